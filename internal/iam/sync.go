package iam

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	iamDatamodel "github.com/frahmantamala/pos-admin/internal/core/datamodel/iam"
	"github.com/frahmantamala/pos-admin/internal/permission"
)

const (
	PolicyFullAccess      = "FullAccess"
	PolicyOrderViewAccess = "OrderViewAccess"

	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleStaff   = "staff"
)

// SyncReport lists what a sync created (or would create on a dry run) and
// which stored permissions no longer appear in the registry.
type SyncReport struct {
	DryRun   bool     `json:"dry_run"`
	Created  []string `json:"created"`
	Orphaned []string `json:"orphaned"`
}

type SeedReport struct {
	Sync            *SyncReport `json:"sync"`
	PoliciesCreated []string    `json:"policies_created"`
	RolesCreated    []string    `json:"roles_created"`
	AdminCreated    bool        `json:"admin_created"`
}

// AdminProvisioner creates the bootstrap superuser when it does not exist.
type AdminProvisioner interface {
	EnsureSuperuser(ctx context.Context, email, password string, roleID int64) (bool, error)
}

type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

type defaultRole struct {
	name        string
	description string
	system      bool
	staff       bool
	policies    []string
	permissions []string
}

var defaultRoles = []defaultRole{
	{
		name:        RoleOwner,
		description: "Business owner with unrestricted access",
		system:      true,
		policies:    []string{PolicyFullAccess},
	},
	{
		name:        RoleManager,
		description: "Store manager",
		policies:    []string{"MenuFullAccess", "OrderFullAccess", "BranchFullAccess"},
		permissions: []string{permission.IAMViewUser, permission.SettingsViewSystem},
	},
	{
		name:        RoleCashier,
		description: "Front counter staff",
		staff:       true,
		policies:    []string{PolicyOrderViewAccess},
		permissions: []string{permission.OrderCreateOrder, permission.OrderEditOrder},
	},
	{
		name:        RoleStaff,
		description: "Default role for staff accounts",
		staff:       true,
		policies:    []string{PolicyOrderViewAccess},
	},
}

type Syncer struct {
	registry *permission.Registry
	service  *Service
	admins   AdminProvisioner
	logger   *slog.Logger
}

// NewSyncer wires the registry to the store. admins may be nil, in which case
// Seed never creates a user.
func NewSyncer(registry *permission.Registry, service *Service, admins AdminProvisioner, logger *slog.Logger) *Syncer {
	return &Syncer{
		registry: registry,
		service:  service,
		admins:   admins,
		logger:   logger,
	}
}

// Sync makes every registry identifier exist in the store. It never deletes:
// stored permissions missing from the registry are only reported.
func (s *Syncer) Sync(ctx context.Context, dryRun bool) (*SyncReport, error) {
	stored, err := s.service.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored permissions: %w", err)
	}

	known := make(map[string]struct{}, len(stored))
	report := &SyncReport{DryRun: dryRun, Created: []string{}, Orphaned: []string{}}
	for _, p := range stored {
		known[p.Name] = struct{}{}
		if !s.registry.Has(p.Name) {
			report.Orphaned = append(report.Orphaned, p.Name)
		}
	}

	var missing []*iamDatamodel.Permission
	for _, e := range s.registry.All() {
		if _, ok := known[e.Identifier]; ok {
			continue
		}
		missing = append(missing, &iamDatamodel.Permission{
			Name:        e.Identifier,
			Description: e.Description,
			Area:        e.Area,
		})
	}

	if dryRun {
		for _, p := range missing {
			report.Created = append(report.Created, p.Name)
		}
	} else if len(missing) > 0 {
		created, err := s.service.repo.EnsurePermissions(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("create missing permissions: %w", err)
		}
		report.Created = append(report.Created, created...)
	}

	s.logger.Info("permission sync finished",
		"dry_run", dryRun,
		"created", len(report.Created),
		"orphaned", len(report.Orphaned),
	)
	if len(report.Orphaned) > 0 {
		s.logger.Warn("stored permissions missing from registry", "permissions", report.Orphaned)
	}
	return report, nil
}

// Seed syncs the registry, then creates the default policies and roles and
// optionally the bootstrap superuser. Running it again changes nothing.
func (s *Syncer) Seed(ctx context.Context, opts SeedOptions) (*SeedReport, error) {
	syncReport, err := s.Sync(ctx, false)
	if err != nil {
		return nil, err
	}
	report := &SeedReport{Sync: syncReport}

	policyIDs := make(map[string]int64)
	for name, perms := range s.defaultPolicies() {
		id, created, err := s.ensurePolicy(ctx, name, perms)
		if err != nil {
			return nil, err
		}
		policyIDs[NameKey(name)] = id
		if created {
			report.PoliciesCreated = append(report.PoliciesCreated, name)
		}
	}
	sort.Strings(report.PoliciesCreated)

	var ownerID int64
	for _, def := range defaultRoles {
		id, created, err := s.ensureRole(ctx, def, policyIDs)
		if err != nil {
			return nil, err
		}
		if def.name == RoleOwner {
			ownerID = id
		}
		if created {
			report.RolesCreated = append(report.RolesCreated, def.name)
		}
	}

	if opts.AdminEmail != "" && s.admins != nil {
		created, err := s.admins.EnsureSuperuser(ctx, opts.AdminEmail, opts.AdminPassword, ownerID)
		if err != nil {
			return nil, fmt.Errorf("provision admin %s: %w", opts.AdminEmail, err)
		}
		report.AdminCreated = created
	}

	s.logger.Info("seed finished",
		"policies_created", len(report.PoliciesCreated),
		"roles_created", len(report.RolesCreated),
		"admin_created", report.AdminCreated,
	)
	return report, nil
}

func (s *Syncer) defaultPolicies() map[string][]string {
	policies := map[string][]string{
		PolicyFullAccess: s.registry.Identifiers(),
	}
	for _, area := range s.registry.Areas() {
		policies[areaTitle(area)+PolicyFullAccess] = s.registry.ForArea(area)
	}

	var orderView []string
	for _, id := range s.registry.ForArea(permission.AreaOrder) {
		if strings.HasPrefix(id, permission.AreaOrder+".view.") {
			orderView = append(orderView, id)
		}
	}
	policies[PolicyOrderViewAccess] = orderView
	return policies
}

func areaTitle(area string) string {
	if area == permission.AreaIAM {
		return "IAM"
	}
	if area == "" {
		return area
	}
	return strings.ToUpper(area[:1]) + area[1:]
}

func (s *Syncer) ensurePolicy(ctx context.Context, name string, perms []string) (int64, bool, error) {
	repo := s.service.repo
	created := false

	policy, err := repo.GetPolicyByName(ctx, name)
	if err != nil {
		return 0, false, err
	}
	if policy == nil {
		p, err := s.service.CreatePolicy(ctx, CreatePolicyDTO{Name: name, Description: "Built-in policy"})
		if err != nil {
			return 0, false, fmt.Errorf("create policy %s: %w", name, err)
		}
		policy = PolicyToDataModel(p)
		created = true
	}

	for _, id := range perms {
		perm, err := repo.GetPermissionByName(ctx, id)
		if err != nil {
			return 0, false, err
		}
		if perm == nil {
			return 0, false, fmt.Errorf("policy %s references unsynced permission %s", name, id)
		}
		if _, _, err := repo.AddPolicyPermission(ctx, policy.ID, perm.ID, nil); err != nil {
			return 0, false, err
		}
	}
	return policy.ID, created, nil
}

func (s *Syncer) ensureRole(ctx context.Context, def defaultRole, policyIDs map[string]int64) (int64, bool, error) {
	repo := s.service.repo
	created := false

	role, err := repo.GetRoleByName(ctx, def.name)
	if err != nil {
		return 0, false, err
	}
	if role == nil {
		r, err := s.service.CreateRole(ctx, CreateRoleDTO{
			Name:        def.name,
			Description: def.description,
			IsSystem:    def.system,
			IsStaffRole: def.staff,
		})
		if err != nil {
			return 0, false, fmt.Errorf("create role %s: %w", def.name, err)
		}
		role = RoleToDataModel(r)
		created = true
	}

	for _, name := range def.policies {
		policyID, ok := policyIDs[NameKey(name)]
		if !ok {
			return 0, false, fmt.Errorf("role %s references unknown policy %s", def.name, name)
		}
		if _, _, err := repo.AddRolePolicy(ctx, role.ID, policyID, nil); err != nil {
			return 0, false, err
		}
	}
	for _, id := range def.permissions {
		perm, err := repo.GetPermissionByName(ctx, id)
		if err != nil {
			return 0, false, err
		}
		if perm == nil {
			return 0, false, fmt.Errorf("role %s references unsynced permission %s", def.name, id)
		}
		if _, _, err := repo.AddRolePermission(ctx, role.ID, perm.ID, nil); err != nil {
			return 0, false, err
		}
	}
	return role.ID, created, nil
}
