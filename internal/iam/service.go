package iam

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/pos-admin/internal"
	iamDatamodel "github.com/frahmantamala/pos-admin/internal/core/datamodel/iam"
	"github.com/frahmantamala/pos-admin/internal/core/events"
)

// DeleteRoleParams tells the repository what to do with users still holding
// the role. ReassignTo nil with Force set clears their role reference.
type DeleteRoleParams struct {
	Force      bool
	ReassignTo *int64
}

type RepositoryAPI interface {
	CreateRole(ctx context.Context, role *iamDatamodel.Role) error
	UpdateRole(ctx context.Context, role *iamDatamodel.Role) error
	GetRoleByID(ctx context.Context, id int64) (*iamDatamodel.Role, error)
	GetRoleByName(ctx context.Context, name string) (*iamDatamodel.Role, error)
	ListRoles(ctx context.Context) ([]*iamDatamodel.Role, error)
	CountRoleUsers(ctx context.Context, roleID int64) (int64, error)
	DeleteRole(ctx context.Context, roleID int64, params DeleteRoleParams) (int64, error)

	CreatePolicy(ctx context.Context, policy *iamDatamodel.Policy) error
	UpdatePolicy(ctx context.Context, policy *iamDatamodel.Policy) error
	GetPolicyByID(ctx context.Context, id int64) (*iamDatamodel.Policy, error)
	GetPolicyByName(ctx context.Context, name string) (*iamDatamodel.Policy, error)
	ListPolicies(ctx context.Context) ([]*iamDatamodel.Policy, error)
	CountPolicyRoles(ctx context.Context, policyID int64) (int64, error)
	DeletePolicy(ctx context.Context, policyID int64, force bool) error

	CreatePermission(ctx context.Context, permission *iamDatamodel.Permission) error
	EnsurePermissions(ctx context.Context, permissions []*iamDatamodel.Permission) ([]string, error)
	GetPermissionByID(ctx context.Context, id int64) (*iamDatamodel.Permission, error)
	GetPermissionByName(ctx context.Context, name string) (*iamDatamodel.Permission, error)
	ListPermissions(ctx context.Context) ([]*iamDatamodel.Permission, error)
	DeletePermission(ctx context.Context, id int64) error

	AddRolePermission(ctx context.Context, roleID, permissionID int64, addedBy *int64) (*iamDatamodel.RolePermission, bool, error)
	RemoveRolePermission(ctx context.Context, roleID, permissionID int64) (bool, error)
	ListRolePermissions(ctx context.Context, roleID int64) ([]*iamDatamodel.Permission, error)

	AddRolePolicy(ctx context.Context, roleID, policyID int64, addedBy *int64) (*iamDatamodel.RolePolicy, bool, error)
	RemoveRolePolicy(ctx context.Context, roleID, policyID int64) (bool, error)
	ListRolePolicies(ctx context.Context, roleID int64) ([]*iamDatamodel.Policy, error)

	AddPolicyPermission(ctx context.Context, policyID, permissionID int64, addedBy *int64) (*iamDatamodel.PolicyPermission, bool, error)
	RemovePolicyPermission(ctx context.Context, policyID, permissionID int64) (bool, error)
	ListPolicyPermissions(ctx context.Context, policyID int64) ([]*iamDatamodel.Permission, error)
}

type Service struct {
	repo         RepositoryAPI
	publisher    events.Publisher
	logger       *slog.Logger
	fallbackRole string
}

// NewService builds the graph service. fallbackRole names the role that
// inherits the users of a force-deleted role; publisher may be nil.
func NewService(repo RepositoryAPI, publisher events.Publisher, logger *slog.Logger, fallbackRole string) *Service {
	return &Service{
		repo:         repo,
		publisher:    publisher,
		logger:       logger,
		fallbackRole: fallbackRole,
	}
}

func (s *Service) publish(ctx context.Context, eventType, subject string, subjectID int64, object string, objectID int64) {
	if s.publisher == nil {
		return
	}
	evt := events.NewIAMEvent(eventType, internal.ActorIDFromContext(ctx), subject, subjectID, object, objectID)
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("failed to publish iam event", "type", eventType, "error", err)
	}
}

// Roles

func (s *Service) CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetRoleByName(ctx, dto.Name)
	if err != nil {
		s.logger.Error("failed to look up role by name", "name", dto.Name, "error", err)
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateRole
	}

	model := RoleToDataModel(NewRole(dto.Name, dto.Description, dto.IsSystem, dto.IsStaffRole))
	if err := s.repo.CreateRole(ctx, model); err != nil {
		return nil, err
	}

	s.logger.Info("role created", "role_id", model.ID, "name", model.Name)
	s.publish(ctx, events.EventTypeRoleCreated, "role", model.ID, "", 0)
	return RoleFromDataModel(model), nil
}

func (s *Service) UpdateRole(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	model, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrRoleNotFound
	}

	if dto.Name != nil && NameKey(*dto.Name) != model.NameKey {
		if model.IsSystem {
			return nil, ErrProtectedEntity.WithMessage("System roles cannot be renamed")
		}
		if s.isFallbackRole(model) {
			return nil, ErrProtectedEntity.WithMessage("The fallback role cannot be renamed")
		}
		clash, err := s.repo.GetRoleByName(ctx, *dto.Name)
		if err != nil {
			return nil, err
		}
		if clash != nil && clash.ID != model.ID {
			return nil, ErrDuplicateRole
		}
	}
	if dto.Name != nil {
		model.Name = strings.TrimSpace(*dto.Name)
		model.NameKey = NameKey(*dto.Name)
	}
	if dto.Description != nil {
		model.Description = strings.TrimSpace(*dto.Description)
	}
	if dto.IsStaffRole != nil {
		model.IsStaffRole = *dto.IsStaffRole
	}
	model.UpdatedAt = time.Now()

	if err := s.repo.UpdateRole(ctx, model); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeRoleUpdated, "role", model.ID, "", 0)
	return RoleFromDataModel(model), nil
}

func (s *Service) isFallbackRole(role *iamDatamodel.Role) bool {
	return s.fallbackRole != "" && role.NameKey == NameKey(s.fallbackRole)
}

func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	model, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrRoleNotFound
	}
	return RoleFromDataModel(model), nil
}

func (s *Service) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	model, err := s.repo.GetRoleByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrRoleNotFound
	}
	return RoleFromDataModel(model), nil
}

// GetRoleDetail returns the role with its direct permissions, attached
// policies and the number of users holding it.
func (s *Service) GetRoleDetail(ctx context.Context, id int64) (*RoleDetailResponse, error) {
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}

	perms, err := s.repo.ListRolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	policies, err := s.repo.ListRolePolicies(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountRoleUsers(ctx, id)
	if err != nil {
		return nil, err
	}

	return &RoleDetailResponse{
		Role:        role,
		Permissions: PermissionsFromDataModel(perms),
		Policies:    PoliciesFromDataModel(policies),
		UserCount:   count,
	}, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	models, err := s.repo.ListRoles(ctx)
	if err != nil {
		s.logger.Error("failed to list roles", "error", err)
		return nil, err
	}
	roles := make([]*Role, 0, len(models))
	for _, m := range models {
		roles = append(roles, RoleFromDataModel(m))
	}
	return roles, nil
}

// DeleteRole removes a role. System roles are never deleted. A role still
// held by users is only removed with Force, in which case its users move to
// the fallback role, or lose their role when no fallback role exists.
func (s *Service) DeleteRole(ctx context.Context, id int64, opts DeleteRoleOptions) error {
	role, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrRoleNotFound
	}
	if role.IsSystem {
		return ErrProtectedEntity.WithMessage("System roles cannot be deleted")
	}

	params := DeleteRoleParams{Force: opts.Force}
	if opts.Force && s.fallbackRole != "" {
		fallback, err := s.repo.GetRoleByName(ctx, s.fallbackRole)
		if err != nil {
			return err
		}
		switch {
		case fallback == nil:
			s.logger.Warn("fallback role missing, clearing role of affected users",
				"role_id", id, "fallback_role", s.fallbackRole)
		case fallback.ID == role.ID:
			// nothing to hand the users over to; refuse while referenced
			params.Force = false
		default:
			params.ReassignTo = &fallback.ID
		}
	}

	moved, err := s.repo.DeleteRole(ctx, id, params)
	if err != nil {
		return err
	}

	s.logger.Info("role deleted", "role_id", id, "name", role.Name, "users_moved", moved)
	s.publish(ctx, events.EventTypeRoleDeleted, "role", id, "", 0)
	return nil
}

// Policies

func (s *Service) CreatePolicy(ctx context.Context, dto CreatePolicyDTO) (*Policy, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetPolicyByName(ctx, dto.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicatePolicy
	}

	model := PolicyToDataModel(NewPolicy(dto.Name, dto.Description))
	if err := s.repo.CreatePolicy(ctx, model); err != nil {
		return nil, err
	}

	s.logger.Info("policy created", "policy_id", model.ID, "name", model.Name)
	s.publish(ctx, events.EventTypePolicyCreated, "policy", model.ID, "", 0)
	return PolicyFromDataModel(model), nil
}

func (s *Service) UpdatePolicy(ctx context.Context, id int64, dto UpdatePolicyDTO) (*Policy, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	model, err := s.repo.GetPolicyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrPolicyNotFound
	}

	if dto.Name != nil && NameKey(*dto.Name) != model.NameKey {
		clash, err := s.repo.GetPolicyByName(ctx, *dto.Name)
		if err != nil {
			return nil, err
		}
		if clash != nil && clash.ID != model.ID {
			return nil, ErrDuplicatePolicy
		}
	}
	if dto.Name != nil {
		model.Name = strings.TrimSpace(*dto.Name)
		model.NameKey = NameKey(*dto.Name)
	}
	if dto.Description != nil {
		model.Description = strings.TrimSpace(*dto.Description)
	}
	model.UpdatedAt = time.Now()

	if err := s.repo.UpdatePolicy(ctx, model); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypePolicyUpdated, "policy", model.ID, "", 0)
	return PolicyFromDataModel(model), nil
}

// SetPolicyActive toggles a policy. Inactive policies stay attached to their
// roles but contribute nothing to effective permissions.
func (s *Service) SetPolicyActive(ctx context.Context, id int64, active bool) (*Policy, error) {
	model, err := s.repo.GetPolicyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrPolicyNotFound
	}
	if model.IsActive == active {
		return PolicyFromDataModel(model), nil
	}

	model.IsActive = active
	model.UpdatedAt = time.Now()
	if err := s.repo.UpdatePolicy(ctx, model); err != nil {
		return nil, err
	}

	s.logger.Info("policy activation changed", "policy_id", id, "active", active)
	s.publish(ctx, events.EventTypePolicyUpdated, "policy", model.ID, "", 0)
	return PolicyFromDataModel(model), nil
}

func (s *Service) GetPolicy(ctx context.Context, id int64) (*Policy, error) {
	model, err := s.repo.GetPolicyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrPolicyNotFound
	}
	return PolicyFromDataModel(model), nil
}

func (s *Service) GetPolicyDetail(ctx context.Context, id int64) (*PolicyDetailResponse, error) {
	policy, err := s.GetPolicy(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.repo.ListPolicyPermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PolicyDetailResponse{Policy: policy, Permissions: PermissionsFromDataModel(perms)}, nil
}

func (s *Service) ListPolicies(ctx context.Context) ([]*Policy, error) {
	models, err := s.repo.ListPolicies(ctx)
	if err != nil {
		s.logger.Error("failed to list policies", "error", err)
		return nil, err
	}
	return PoliciesFromDataModel(models), nil
}

type DeletePolicyOptions struct {
	Force bool
}

func (s *Service) DeletePolicy(ctx context.Context, id int64, opts DeletePolicyOptions) error {
	model, err := s.repo.GetPolicyByID(ctx, id)
	if err != nil {
		return err
	}
	if model == nil {
		return ErrPolicyNotFound
	}

	if err := s.repo.DeletePolicy(ctx, id, opts.Force); err != nil {
		return err
	}

	s.logger.Info("policy deleted", "policy_id", id, "name", model.Name, "force", opts.Force)
	s.publish(ctx, events.EventTypePolicyDeleted, "policy", id, "", 0)
	return nil
}

// Permissions

func (s *Service) CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetPermissionByName(ctx, dto.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicatePermission
	}

	area := dto.Area
	if area == "" {
		area = AreaOf(dto.Name)
	}
	model := &iamDatamodel.Permission{
		Name:        dto.Name,
		Description: strings.TrimSpace(dto.Description),
		Area:        area,
	}
	if err := s.repo.CreatePermission(ctx, model); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypePermissionCreated, "permission", model.ID, "", 0)
	return PermissionFromDataModel(model), nil
}

func (s *Service) GetPermission(ctx context.Context, id int64) (*Permission, error) {
	model, err := s.repo.GetPermissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrPermissionNotFound
	}
	return PermissionFromDataModel(model), nil
}

func (s *Service) GetPermissionByName(ctx context.Context, name string) (*Permission, error) {
	model, err := s.repo.GetPermissionByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrPermissionNotFound
	}
	return PermissionFromDataModel(model), nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]*Permission, error) {
	models, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	return PermissionsFromDataModel(models), nil
}

// DeletePermission removes a permission and every association to it.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	model, err := s.repo.GetPermissionByID(ctx, id)
	if err != nil {
		return err
	}
	if model == nil {
		return ErrPermissionNotFound
	}
	if err := s.repo.DeletePermission(ctx, id); err != nil {
		return err
	}

	s.logger.Info("permission deleted", "permission_id", id, "name", model.Name)
	s.publish(ctx, events.EventTypePermissionDeleted, "permission", id, "", 0)
	return nil
}

// Associations

func (s *Service) requireRole(ctx context.Context, id int64) error {
	role, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return err
	}
	if role == nil {
		return ErrRoleNotFound
	}
	return nil
}

func (s *Service) requirePolicy(ctx context.Context, id int64) error {
	policy, err := s.repo.GetPolicyByID(ctx, id)
	if err != nil {
		return err
	}
	if policy == nil {
		return ErrPolicyNotFound
	}
	return nil
}

func (s *Service) requirePermission(ctx context.Context, id int64) error {
	perm, err := s.repo.GetPermissionByID(ctx, id)
	if err != nil {
		return err
	}
	if perm == nil {
		return ErrPermissionNotFound
	}
	return nil
}

// AssignPermissionToRole grants a permission directly to a role. Granting an
// existing pair returns the stored association unchanged.
func (s *Service) AssignPermissionToRole(ctx context.Context, roleID, permissionID int64, grantedBy *int64) (*Grant, error) {
	if err := s.requireRole(ctx, roleID); err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, permissionID); err != nil {
		return nil, err
	}

	row, created, err := s.repo.AddRolePermission(ctx, roleID, permissionID, grantedBy)
	if err != nil {
		return nil, err
	}
	if created {
		s.publish(ctx, events.EventTypePermissionGranted, "role", roleID, "permission", permissionID)
	}
	return &Grant{OwnerID: row.RoleID, TargetID: row.PermissionID, AddedBy: row.AddedBy, AddedAt: row.AddedAt, Created: created}, nil
}

func (s *Service) RemovePermissionFromRole(ctx context.Context, roleID, permissionID int64) (bool, error) {
	if err := s.requireRole(ctx, roleID); err != nil {
		return false, err
	}
	removed, err := s.repo.RemoveRolePermission(ctx, roleID, permissionID)
	if err != nil {
		return false, err
	}
	if removed {
		s.publish(ctx, events.EventTypePermissionRevoked, "role", roleID, "permission", permissionID)
	}
	return removed, nil
}

func (s *Service) AttachPolicyToRole(ctx context.Context, roleID, policyID int64, grantedBy *int64) (*Grant, error) {
	if err := s.requireRole(ctx, roleID); err != nil {
		return nil, err
	}
	if err := s.requirePolicy(ctx, policyID); err != nil {
		return nil, err
	}

	row, created, err := s.repo.AddRolePolicy(ctx, roleID, policyID, grantedBy)
	if err != nil {
		return nil, err
	}
	if created {
		s.publish(ctx, events.EventTypePolicyAttached, "role", roleID, "policy", policyID)
	}
	return &Grant{OwnerID: row.RoleID, TargetID: row.PolicyID, AddedBy: row.AddedBy, AddedAt: row.AddedAt, Created: created}, nil
}

func (s *Service) DetachPolicyFromRole(ctx context.Context, roleID, policyID int64) (bool, error) {
	if err := s.requireRole(ctx, roleID); err != nil {
		return false, err
	}
	removed, err := s.repo.RemoveRolePolicy(ctx, roleID, policyID)
	if err != nil {
		return false, err
	}
	if removed {
		s.publish(ctx, events.EventTypePolicyDetached, "role", roleID, "policy", policyID)
	}
	return removed, nil
}

func (s *Service) AddPermissionToPolicy(ctx context.Context, policyID, permissionID int64, grantedBy *int64) (*Grant, error) {
	if err := s.requirePolicy(ctx, policyID); err != nil {
		return nil, err
	}
	if err := s.requirePermission(ctx, permissionID); err != nil {
		return nil, err
	}

	row, created, err := s.repo.AddPolicyPermission(ctx, policyID, permissionID, grantedBy)
	if err != nil {
		return nil, err
	}
	if created {
		s.publish(ctx, events.EventTypePermissionGranted, "policy", policyID, "permission", permissionID)
	}
	return &Grant{OwnerID: row.PolicyID, TargetID: row.PermissionID, AddedBy: row.AddedBy, AddedAt: row.AddedAt, Created: created}, nil
}

func (s *Service) RemovePermissionFromPolicy(ctx context.Context, policyID, permissionID int64) (bool, error) {
	if err := s.requirePolicy(ctx, policyID); err != nil {
		return false, err
	}
	removed, err := s.repo.RemovePolicyPermission(ctx, policyID, permissionID)
	if err != nil {
		return false, err
	}
	if removed {
		s.publish(ctx, events.EventTypePermissionRevoked, "policy", policyID, "permission", permissionID)
	}
	return removed, nil
}
