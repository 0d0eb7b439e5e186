package permission

// Identity and access management permissions.
const (
	AreaIAM = "iam"

	IAMViewUser   = "iam.view.user"
	IAMCreateUser = "iam.create.user"
	IAMEditUser   = "iam.edit.user"
	IAMDeleteUser = "iam.delete.user"

	IAMViewRole   = "iam.view.role"
	IAMCreateRole = "iam.create.role"
	IAMEditRole   = "iam.edit.role"
	IAMDeleteRole = "iam.delete.role"

	IAMViewPolicy   = "iam.view.policy"
	IAMCreatePolicy = "iam.create.policy"
	IAMEditPolicy   = "iam.edit.policy"
	IAMDeletePolicy = "iam.delete.policy"

	IAMViewPermission = "iam.view.permission"
	IAMSyncPermission = "iam.sync.permission"
)

func IAMArea() Area {
	return Area{
		Name: AreaIAM,
		Declarations: []Declaration{
			{IAMViewUser, "View staff accounts"},
			{IAMCreateUser, "Register staff accounts"},
			{IAMEditUser, "Edit staff accounts, roles and status"},
			{IAMDeleteUser, "Delete staff accounts"},
			{IAMViewRole, "View roles"},
			{IAMCreateRole, "Create roles"},
			{IAMEditRole, "Edit roles and their grants"},
			{IAMDeleteRole, "Delete roles"},
			{IAMViewPolicy, "View policies"},
			{IAMCreatePolicy, "Create policies"},
			{IAMEditPolicy, "Edit policies and their permissions"},
			{IAMDeletePolicy, "Delete policies"},
			{IAMViewPermission, "View the permission catalog"},
			{IAMSyncPermission, "Synchronize the permission catalog"},
		},
	}
}
