package iam

import (
	"strings"
	"time"

	iamDatamodel "github.com/frahmantamala/pos-admin/internal/core/datamodel/iam"
)

type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	IsStaffRole bool      `json:"is_staff_role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Deletable reports whether the role may ever be removed.
func (r *Role) Deletable() bool {
	return !r.IsSystem
}

type Policy struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Area        string    `json:"area,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Grant is an association row between a role or policy and what it owns,
// with its provenance.
type Grant struct {
	OwnerID  int64     `json:"owner_id"`
	TargetID int64     `json:"target_id"`
	AddedBy  *int64    `json:"added_by,omitempty"`
	AddedAt  time.Time `json:"added_at"`
	Created  bool      `json:"created"`
}

// NameKey is the case-insensitive uniqueness key of role and policy names.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func NewRole(name, description string, isSystem, isStaff bool) *Role {
	now := time.Now()
	return &Role{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		IsSystem:    isSystem,
		IsStaffRole: isStaff,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewPolicy(name, description string) *Policy {
	now := time.Now()
	return &Policy{
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func RoleToDataModel(r *Role) *iamDatamodel.Role {
	return &iamDatamodel.Role{
		ID:          r.ID,
		Name:        r.Name,
		NameKey:     NameKey(r.Name),
		Description: r.Description,
		IsSystem:    r.IsSystem,
		IsStaffRole: r.IsStaffRole,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func RoleFromDataModel(r *iamDatamodel.Role) *Role {
	return &Role{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		IsStaffRole: r.IsStaffRole,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func PolicyToDataModel(p *Policy) *iamDatamodel.Policy {
	return &iamDatamodel.Policy{
		ID:          p.ID,
		Name:        p.Name,
		NameKey:     NameKey(p.Name),
		Description: p.Description,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func PolicyFromDataModel(p *iamDatamodel.Policy) *Policy {
	return &Policy{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func PermissionFromDataModel(p *iamDatamodel.Permission) *Permission {
	return &Permission{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Area:        p.Area,
		CreatedAt:   p.CreatedAt,
	}
}

func PermissionsFromDataModel(rows []*iamDatamodel.Permission) []*Permission {
	out := make([]*Permission, 0, len(rows))
	for _, p := range rows {
		out = append(out, PermissionFromDataModel(p))
	}
	return out
}

func PoliciesFromDataModel(rows []*iamDatamodel.Policy) []*Policy {
	out := make([]*Policy, 0, len(rows))
	for _, p := range rows {
		out = append(out, PolicyFromDataModel(p))
	}
	return out
}
