package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/pos-admin/internal/auth"
)

// Repository serves the authentication and permission read path with plain
// SQL. Queries are written with '?' and rebound for the driver in use.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

const principalColumns = `id, username, email, name, status, is_superuser, role_id`

func (r *Repository) GetCredentials(ctx context.Context, login string) (*auth.Credentials, error) {
	var creds auth.Credentials
	query := r.db.Rebind(`SELECT id, email, password_hash, status FROM users WHERE email = ? OR username = ?`)

	login = strings.TrimSpace(login)
	if err := r.db.GetContext(ctx, &creds, query, strings.ToLower(login), login); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return &creds, nil
}

func (r *Repository) GetPrincipal(ctx context.Context, userID int64) (*auth.Principal, error) {
	var p auth.Principal
	query := r.db.Rebind(`SELECT ` + principalColumns + ` FROM users WHERE id = ?`)

	if err := r.db.GetContext(ctx, &p, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get principal: %w", err)
	}
	return &p, nil
}

func (r *Repository) RecordLogin(ctx context.Context, userID int64, at time.Time) error {
	query := r.db.Rebind(`UPDATE users SET last_login_at = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, at, userID); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

func (r *Repository) RolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	names := []string{}
	query := r.db.Rebind(`
SELECT p.name
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
WHERE rp.role_id = ?`)

	if err := r.db.SelectContext(ctx, &names, query, roleID); err != nil {
		return nil, fmt.Errorf("role permissions: %w", err)
	}
	return names, nil
}

func (r *Repository) ActivePolicyPermissions(ctx context.Context, roleID int64) ([]string, error) {
	names := []string{}
	query := r.db.Rebind(`
SELECT DISTINCT p.name
FROM permissions p
JOIN policy_permissions pp ON pp.permission_id = p.id
JOIN policies po ON po.id = pp.policy_id
JOIN role_policies rpo ON rpo.policy_id = po.id
WHERE rpo.role_id = ? AND po.is_active = ?`)

	if err := r.db.SelectContext(ctx, &names, query, roleID, true); err != nil {
		return nil, fmt.Errorf("policy permissions: %w", err)
	}
	return names, nil
}

func (r *Repository) RoleHasPermission(ctx context.Context, roleID int64, permission string) (bool, error) {
	var exists bool
	query := r.db.Rebind(`
SELECT EXISTS(
  SELECT 1 FROM role_permissions rp
  JOIN permissions p ON rp.permission_id = p.id
  WHERE rp.role_id = ? AND p.name = ?
)`)

	if err := r.db.GetContext(ctx, &exists, query, roleID, permission); err != nil {
		return false, fmt.Errorf("role has permission: %w", err)
	}
	return exists, nil
}

func (r *Repository) ActivePolicyHasPermission(ctx context.Context, roleID int64, permission string) (bool, error) {
	var exists bool
	query := r.db.Rebind(`
SELECT EXISTS(
  SELECT 1 FROM role_policies rpo
  JOIN policies po ON po.id = rpo.policy_id
  JOIN policy_permissions pp ON pp.policy_id = po.id
  JOIN permissions p ON p.id = pp.permission_id
  WHERE rpo.role_id = ? AND po.is_active = ? AND p.name = ?
)`)

	if err := r.db.GetContext(ctx, &exists, query, roleID, true, permission); err != nil {
		return false, fmt.Errorf("policy has permission: %w", err)
	}
	return exists, nil
}
