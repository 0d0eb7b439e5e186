package auth

import (
	"golang.org/x/crypto/bcrypt"

	coreUser "github.com/frahmantamala/pos-admin/internal/core/user"
)

// Principal is the authenticated user as the gate sees it. It carries the
// role reference only; permissions are resolved from the store when checked.
type Principal struct {
	ID          int64  `db:"id" json:"id"`
	Username    string `db:"username" json:"username"`
	Email       string `db:"email" json:"email"`
	Name        string `db:"name" json:"name"`
	Status      string `db:"status" json:"status"`
	IsSuperuser bool   `db:"is_superuser" json:"is_superuser"`
	RoleID      *int64 `db:"role_id" json:"role_id,omitempty"`
}

func (p *Principal) IsActive() bool {
	return coreUser.Status(p.Status).IsActive()
}

func (p *Principal) HasRole() bool {
	return p.RoleID != nil && *p.RoleID > 0
}

// Credentials is what login needs to verify a password.
type Credentials struct {
	UserID       int64  `db:"id"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Status       string `db:"status"`
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
