package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/pos-admin/internal"
	iamDatamodel "github.com/frahmantamala/pos-admin/internal/core/datamodel/iam"
	userDatamodel "github.com/frahmantamala/pos-admin/internal/core/datamodel/user"
	"github.com/frahmantamala/pos-admin/internal/iam"
)

type IAMRepository struct {
	db *gorm.DB
}

func NewIAMRepository(db *gorm.DB) iam.RepositoryAPI {
	return &IAMRepository{db: db}
}

// isUniqueViolation recognises unique index failures from both drivers the
// repository runs on, whether or not gorm translated them.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func translate(err error, duplicate error) error {
	if err == nil {
		return nil
	}
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	if isUniqueViolation(err) {
		return duplicate
	}
	return err
}

func first[T any](q *gorm.DB, out *T) (*T, error) {
	if err := q.First(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// Roles

func (r *IAMRepository) CreateRole(ctx context.Context, role *iamDatamodel.Role) error {
	role.NameKey = iam.NameKey(role.Name)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&iamDatamodel.Role{}).Where("name_key = ?", role.NameKey).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return iam.ErrDuplicateRole
		}
		return tx.Create(role).Error
	})
	return translate(err, iam.ErrDuplicateRole)
}

func (r *IAMRepository) UpdateRole(ctx context.Context, role *iamDatamodel.Role) error {
	role.NameKey = iam.NameKey(role.Name)
	return translate(r.db.WithContext(ctx).Save(role).Error, iam.ErrDuplicateRole)
}

func (r *IAMRepository) GetRoleByID(ctx context.Context, id int64) (*iamDatamodel.Role, error) {
	return first(r.db.WithContext(ctx).Where("id = ?", id), &iamDatamodel.Role{})
}

func (r *IAMRepository) GetRoleByName(ctx context.Context, name string) (*iamDatamodel.Role, error) {
	return first(r.db.WithContext(ctx).Where("name_key = ?", iam.NameKey(name)), &iamDatamodel.Role{})
}

func (r *IAMRepository) ListRoles(ctx context.Context) ([]*iamDatamodel.Role, error) {
	var roles []*iamDatamodel.Role
	err := r.db.WithContext(ctx).Order("name_key ASC").Find(&roles).Error
	return roles, err
}

func (r *IAMRepository) CountRoleUsers(ctx context.Context, roleID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("role_id = ?", roleID).Count(&n).Error
	return n, err
}

func (r *IAMRepository) DeleteRole(ctx context.Context, roleID int64, params iam.DeleteRoleParams) (int64, error) {
	var moved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := first(tx.Where("id = ?", roleID), &iamDatamodel.Role{})
		if err != nil {
			return err
		}
		if role == nil {
			return iam.ErrRoleNotFound
		}
		if role.IsSystem {
			return iam.ErrProtectedEntity.WithMessage("System roles cannot be deleted")
		}

		var holders int64
		if err := tx.Model(&userDatamodel.User{}).Where("role_id = ?", roleID).Count(&holders).Error; err != nil {
			return err
		}
		if holders > 0 {
			if !params.Force {
				return iam.ErrRoleInUse.WithMessage(fmt.Sprintf("Role is assigned to %d user(s)", holders))
			}
			res := tx.Model(&userDatamodel.User{}).Where("role_id = ?", roleID).Update("role_id", params.ReassignTo)
			if res.Error != nil {
				return fmt.Errorf("reassign users of role %d: %w", roleID, res.Error)
			}
			moved = res.RowsAffected
		}

		if err := tx.Where("role_id = ?", roleID).Delete(&iamDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", roleID).Delete(&iamDatamodel.RolePolicy{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", roleID).Delete(&iamDatamodel.Role{}).Error
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// Policies

func (r *IAMRepository) CreatePolicy(ctx context.Context, policy *iamDatamodel.Policy) error {
	policy.NameKey = iam.NameKey(policy.Name)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&iamDatamodel.Policy{}).Where("name_key = ?", policy.NameKey).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return iam.ErrDuplicatePolicy
		}
		return tx.Create(policy).Error
	})
	return translate(err, iam.ErrDuplicatePolicy)
}

func (r *IAMRepository) UpdatePolicy(ctx context.Context, policy *iamDatamodel.Policy) error {
	policy.NameKey = iam.NameKey(policy.Name)
	return translate(r.db.WithContext(ctx).Save(policy).Error, iam.ErrDuplicatePolicy)
}

func (r *IAMRepository) GetPolicyByID(ctx context.Context, id int64) (*iamDatamodel.Policy, error) {
	return first(r.db.WithContext(ctx).Where("id = ?", id), &iamDatamodel.Policy{})
}

func (r *IAMRepository) GetPolicyByName(ctx context.Context, name string) (*iamDatamodel.Policy, error) {
	return first(r.db.WithContext(ctx).Where("name_key = ?", iam.NameKey(name)), &iamDatamodel.Policy{})
}

func (r *IAMRepository) ListPolicies(ctx context.Context) ([]*iamDatamodel.Policy, error) {
	var policies []*iamDatamodel.Policy
	err := r.db.WithContext(ctx).Order("name_key ASC").Find(&policies).Error
	return policies, err
}

func (r *IAMRepository) CountPolicyRoles(ctx context.Context, policyID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&iamDatamodel.RolePolicy{}).Where("policy_id = ?", policyID).Count(&n).Error
	return n, err
}

func (r *IAMRepository) DeletePolicy(ctx context.Context, policyID int64, force bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var attached int64
		if err := tx.Model(&iamDatamodel.RolePolicy{}).Where("policy_id = ?", policyID).Count(&attached).Error; err != nil {
			return err
		}
		if attached > 0 && !force {
			return iam.ErrPolicyInUse.WithMessage(fmt.Sprintf("Policy is attached to %d role(s)", attached))
		}

		if err := tx.Where("policy_id = ?", policyID).Delete(&iamDatamodel.RolePolicy{}).Error; err != nil {
			return err
		}
		if err := tx.Where("policy_id = ?", policyID).Delete(&iamDatamodel.PolicyPermission{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", policyID).Delete(&iamDatamodel.Policy{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return iam.ErrPolicyNotFound
		}
		return nil
	})
}

// Permissions

func (r *IAMRepository) CreatePermission(ctx context.Context, permission *iamDatamodel.Permission) error {
	return translate(r.db.WithContext(ctx).Create(permission).Error, iam.ErrDuplicatePermission)
}

// EnsurePermissions inserts the permissions whose names are not stored yet
// and returns the names it created. Existing rows are left untouched.
func (r *IAMRepository) EnsurePermissions(ctx context.Context, permissions []*iamDatamodel.Permission) ([]string, error) {
	var created []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range permissions {
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(p)
			if res.Error != nil {
				return fmt.Errorf("insert permission %q: %w", p.Name, res.Error)
			}
			if res.RowsAffected > 0 {
				created = append(created, p.Name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *IAMRepository) GetPermissionByID(ctx context.Context, id int64) (*iamDatamodel.Permission, error) {
	return first(r.db.WithContext(ctx).Where("id = ?", id), &iamDatamodel.Permission{})
}

func (r *IAMRepository) GetPermissionByName(ctx context.Context, name string) (*iamDatamodel.Permission, error) {
	return first(r.db.WithContext(ctx).Where("name = ?", name), &iamDatamodel.Permission{})
}

func (r *IAMRepository) ListPermissions(ctx context.Context) ([]*iamDatamodel.Permission, error) {
	var perms []*iamDatamodel.Permission
	err := r.db.WithContext(ctx).Order("name ASC").Find(&perms).Error
	return perms, err
}

func (r *IAMRepository) DeletePermission(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", id).Delete(&iamDatamodel.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("permission_id = ?", id).Delete(&iamDatamodel.PolicyPermission{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&iamDatamodel.Permission{}).Error
	})
}

// Associations. Inserts use ON CONFLICT DO NOTHING so a concurrent grant of
// the same pair collapses into the row that won.

func (r *IAMRepository) AddRolePermission(ctx context.Context, roleID, permissionID int64, addedBy *int64) (*iamDatamodel.RolePermission, bool, error) {
	var (
		stored  iamDatamodel.RolePermission
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &iamDatamodel.RolePermission{RoleID: roleID, PermissionID: permissionID, AddedBy: addedBy, AddedAt: time.Now()}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return tx.Where("role_id = ? AND permission_id = ?", roleID, permissionID).First(&stored).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("grant permission %d to role %d: %w", permissionID, roleID, err)
	}
	return &stored, created, nil
}

func (r *IAMRepository) RemoveRolePermission(ctx context.Context, roleID, permissionID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&iamDatamodel.RolePermission{})
	return res.RowsAffected > 0, res.Error
}

func (r *IAMRepository) ListRolePermissions(ctx context.Context, roleID int64) ([]*iamDatamodel.Permission, error) {
	var perms []*iamDatamodel.Permission
	err := r.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.name ASC").
		Find(&perms).Error
	return perms, err
}

func (r *IAMRepository) AddRolePolicy(ctx context.Context, roleID, policyID int64, addedBy *int64) (*iamDatamodel.RolePolicy, bool, error) {
	var (
		stored  iamDatamodel.RolePolicy
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &iamDatamodel.RolePolicy{RoleID: roleID, PolicyID: policyID, AddedBy: addedBy, AddedAt: time.Now()}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return tx.Where("role_id = ? AND policy_id = ?", roleID, policyID).First(&stored).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("attach policy %d to role %d: %w", policyID, roleID, err)
	}
	return &stored, created, nil
}

func (r *IAMRepository) RemoveRolePolicy(ctx context.Context, roleID, policyID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("role_id = ? AND policy_id = ?", roleID, policyID).
		Delete(&iamDatamodel.RolePolicy{})
	return res.RowsAffected > 0, res.Error
}

func (r *IAMRepository) ListRolePolicies(ctx context.Context, roleID int64) ([]*iamDatamodel.Policy, error) {
	var policies []*iamDatamodel.Policy
	err := r.db.WithContext(ctx).
		Joins("JOIN role_policies ON role_policies.policy_id = policies.id").
		Where("role_policies.role_id = ?", roleID).
		Order("policies.name_key ASC").
		Find(&policies).Error
	return policies, err
}

func (r *IAMRepository) AddPolicyPermission(ctx context.Context, policyID, permissionID int64, addedBy *int64) (*iamDatamodel.PolicyPermission, bool, error) {
	var (
		stored  iamDatamodel.PolicyPermission
		created bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &iamDatamodel.PolicyPermission{PolicyID: policyID, PermissionID: permissionID, AddedBy: addedBy, AddedAt: time.Now()}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0
		return tx.Where("policy_id = ? AND permission_id = ?", policyID, permissionID).First(&stored).Error
	})
	if err != nil {
		return nil, false, fmt.Errorf("add permission %d to policy %d: %w", permissionID, policyID, err)
	}
	return &stored, created, nil
}

func (r *IAMRepository) RemovePolicyPermission(ctx context.Context, policyID, permissionID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("policy_id = ? AND permission_id = ?", policyID, permissionID).
		Delete(&iamDatamodel.PolicyPermission{})
	return res.RowsAffected > 0, res.Error
}

func (r *IAMRepository) ListPolicyPermissions(ctx context.Context, policyID int64) ([]*iamDatamodel.Permission, error) {
	var perms []*iamDatamodel.Permission
	err := r.db.WithContext(ctx).
		Joins("JOIN policy_permissions ON policy_permissions.permission_id = permissions.id").
		Where("policy_permissions.policy_id = ?", policyID).
		Order("permissions.name ASC").
		Find(&perms).Error
	return perms, err
}
