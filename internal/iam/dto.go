package iam

import (
	"strings"

	"github.com/frahmantamala/pos-admin/internal"
	"github.com/frahmantamala/pos-admin/internal/core/common/validation"
	"github.com/frahmantamala/pos-admin/internal/permission"
)

type CreateRoleDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// IsSystem is only set by seeding; request bodies cannot carry it.
	IsSystem    bool `json:"-"`
	IsStaffRole bool `json:"is_staff_role"`
}

func (d CreateRoleDTO) Validate() error {
	if err := validation.ValidateEntityName("name", d.Name); err != nil {
		return err
	}
	if err := validation.ValidateDescription(d.Description); err != nil {
		return err
	}
	return nil
}

// UpdateRoleDTO carries the editable role fields; nil fields are left alone.
type UpdateRoleDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	IsStaffRole *bool   `json:"is_staff_role,omitempty"`
}

func (d UpdateRoleDTO) Validate() error {
	if d.Name != nil {
		if err := validation.ValidateEntityName("name", *d.Name); err != nil {
			return err
		}
	}
	if d.Description != nil {
		if err := validation.ValidateDescription(*d.Description); err != nil {
			return err
		}
	}
	return nil
}

type DeleteRoleOptions struct {
	Force bool
}

type CreatePolicyDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (d CreatePolicyDTO) Validate() error {
	if err := validation.ValidateEntityName("name", d.Name); err != nil {
		return err
	}
	if err := validation.ValidateDescription(d.Description); err != nil {
		return err
	}
	return nil
}

type UpdatePolicyDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (d UpdatePolicyDTO) Validate() error {
	if d.Name != nil {
		if err := validation.ValidateEntityName("name", *d.Name); err != nil {
			return err
		}
	}
	if d.Description != nil {
		if err := validation.ValidateDescription(*d.Description); err != nil {
			return err
		}
	}
	return nil
}

type SetPolicyActiveDTO struct {
	IsActive *bool `json:"is_active"`
}

func (d SetPolicyActiveDTO) Validate() error {
	if d.IsActive == nil {
		return internal.NewValidationFieldError("is_active", "is_active is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type CreatePermissionDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Area        string `json:"area"`
}

func (d CreatePermissionDTO) Validate() error {
	if err := validation.ValidatePermissionName(d.Name); err != nil {
		return err
	}
	if err := validation.ValidateDescription(d.Description); err != nil {
		return err
	}
	return nil
}

// AreaOf derives the area of a namespaced identifier, empty for flat names.
func AreaOf(name string) string {
	area, _, ok := strings.Cut(name, ".")
	if !ok {
		return ""
	}
	return area
}

type RoleDetailResponse struct {
	Role        *Role         `json:"role"`
	Permissions []*Permission `json:"permissions"`
	Policies    []*Policy     `json:"policies"`
	UserCount   int64         `json:"user_count"`
}

type RolesResponse struct {
	Roles []*Role `json:"roles"`
}

type PolicyDetailResponse struct {
	Policy      *Policy       `json:"policy"`
	Permissions []*Permission `json:"permissions"`
}

type PoliciesResponse struct {
	Policies []*Policy `json:"policies"`
}

type PermissionsResponse struct {
	Permissions []*Permission `json:"permissions"`
}

type RegistryResponse struct {
	Areas       []string           `json:"areas"`
	Permissions []permission.Entry `json:"permissions"`
}

type GrantResponse struct {
	Grant *Grant `json:"grant"`
}

type RemovedResponse struct {
	Removed bool `json:"removed"`
}
