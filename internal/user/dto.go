package user

import (
	"github.com/frahmantamala/pos-admin/internal/core/common/validation"
	coreUser "github.com/frahmantamala/pos-admin/internal/core/user"
)

type CreateUserDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	RoleID   *int64 `json:"role_id,omitempty"`
	Status   string `json:"status,omitempty"`
}

func (d CreateUserDTO) Validate() error {
	if err := validation.ValidateUsername(d.Username); err != nil {
		return err
	}
	if err := validation.ValidateEmail(d.Email); err != nil {
		return err
	}

	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(150)
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(72)
	if d.Status != "" {
		v.Field("status", d.Status).OneOf(coreUser.Statuses()...)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// AssignRoleDTO sets the role of a user; a nil RoleID removes it.
type AssignRoleDTO struct {
	RoleID *int64 `json:"role_id"`
}

type ChangeStatusDTO struct {
	Status string `json:"status"`
}

func (d ChangeStatusDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("status", d.Status).Required().OneOf(coreUser.Statuses()...)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// MeResponse is the current user with their effective permissions.
type MeResponse struct {
	User        *User    `json:"user"`
	Permissions []string `json:"permissions"`
}

type PermissionsResponse struct {
	IsSuperuser bool     `json:"is_superuser"`
	Permissions []string `json:"permissions"`
}
