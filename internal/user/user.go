package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/pos-admin/internal/core/datamodel/user"
	coreUser "github.com/frahmantamala/pos-admin/internal/core/user"
)

// User represents the internal user model
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"` // Never expose password hash
	Status       string     `json:"status"`
	IsSuperuser  bool       `json:"is_superuser"`
	RoleID       *int64     `json:"role_id,omitempty"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsActiveUser() bool {
	return coreUser.Status(u.Status).IsActive()
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Status:       u.Status,
		IsSuperuser:  u.IsSuperuser,
		RoleID:       u.RoleID,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Status:       u.Status,
		IsSuperuser:  u.IsSuperuser,
		RoleID:       u.RoleID,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
