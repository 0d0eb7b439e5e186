package permission

// Branch and system settings permissions.
const (
	AreaBranch   = "branch"
	AreaSettings = "settings"

	BranchViewBranch   = "branch.view.branch"
	BranchCreateBranch = "branch.create.branch"
	BranchEditBranch   = "branch.edit.branch"
	BranchDeleteBranch = "branch.delete.branch"

	SettingsViewSystem = "settings.view.system"
	SettingsEditSystem = "settings.edit.system"
)

func BranchArea() Area {
	return Area{
		Name: AreaBranch,
		Declarations: []Declaration{
			{BranchViewBranch, "View branches"},
			{BranchCreateBranch, "Open branches"},
			{BranchEditBranch, "Edit branch details"},
			{BranchDeleteBranch, "Close branches"},
		},
	}
}

func SettingsArea() Area {
	return Area{
		Name: AreaSettings,
		Declarations: []Declaration{
			{SettingsViewSystem, "View system settings"},
			{SettingsEditSystem, "Edit system settings"},
		},
	}
}
