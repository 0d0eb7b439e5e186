package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// PermissionStore is the read side of the authorization graph.
type PermissionStore interface {
	RolePermissions(ctx context.Context, roleID int64) ([]string, error)
	ActivePolicyPermissions(ctx context.Context, roleID int64) ([]string, error)
	RoleHasPermission(ctx context.Context, roleID int64, permission string) (bool, error)
	ActivePolicyHasPermission(ctx context.Context, roleID int64, permission string) (bool, error)
}

// PermissionSet is a de-duplicated set of permission identifiers.
type PermissionSet map[string]struct{}

func (s PermissionSet) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted lists the set in identifier order.
func (s PermissionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Resolver computes effective permissions: the role's direct permissions
// united with those of every active policy attached to the role. Nothing is
// cached between requests.
type Resolver struct {
	store  PermissionStore
	logger *slog.Logger
}

func NewResolver(store PermissionStore, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

type memoCtxKey struct{}

type permissionMemo struct {
	mu   sync.Mutex
	sets map[int64]PermissionSet
}

// WithPermissionMemo lets one request reuse resolved permission sets across
// several checks. The memo dies with the request context.
func WithPermissionMemo(ctx context.Context) context.Context {
	if _, ok := ctx.Value(memoCtxKey{}).(*permissionMemo); ok {
		return ctx
	}
	return context.WithValue(ctx, memoCtxKey{}, &permissionMemo{sets: make(map[int64]PermissionSet)})
}

func memoFrom(ctx context.Context) *permissionMemo {
	m, _ := ctx.Value(memoCtxKey{}).(*permissionMemo)
	return m
}

// Resolve returns the effective permission set of a user. A user without a
// role has an empty set.
func (r *Resolver) Resolve(ctx context.Context, p *Principal) (PermissionSet, error) {
	set := make(PermissionSet)
	if p == nil || !p.HasRole() {
		return set, nil
	}

	memo := memoFrom(ctx)
	if memo != nil {
		memo.mu.Lock()
		defer memo.mu.Unlock()
		if cached, ok := memo.sets[p.ID]; ok {
			return cached, nil
		}
	}

	direct, err := r.store.RolePermissions(ctx, *p.RoleID)
	if err != nil {
		return nil, fmt.Errorf("resolve role permissions for user %d: %w", p.ID, err)
	}
	set.Add(direct...)

	viaPolicies, err := r.store.ActivePolicyPermissions(ctx, *p.RoleID)
	if err != nil {
		return nil, fmt.Errorf("resolve policy permissions for user %d: %w", p.ID, err)
	}
	set.Add(viaPolicies...)

	if memo != nil {
		memo.sets[p.ID] = set
	}
	r.logger.Debug("permissions resolved", "user_id", p.ID, "role_id", *p.RoleID, "count", len(set))
	return set, nil
}

// HasPermission reports whether the user holds permission. An active
// superuser holds every permission. Direct role grants are checked before
// policy grants and the first hit wins.
func (r *Resolver) HasPermission(ctx context.Context, p *Principal, permission string) (bool, error) {
	if p == nil {
		return false, nil
	}
	if p.IsSuperuser && p.IsActive() {
		return true, nil
	}
	if !p.HasRole() {
		return false, nil
	}

	if memoFrom(ctx) != nil {
		set, err := r.Resolve(ctx, p)
		if err != nil {
			return false, err
		}
		return set.Has(permission), nil
	}

	ok, err := r.store.RoleHasPermission(ctx, *p.RoleID, permission)
	if err != nil {
		return false, fmt.Errorf("check role permission %s for user %d: %w", permission, p.ID, err)
	}
	if ok {
		return true, nil
	}

	ok, err = r.store.ActivePolicyHasPermission(ctx, *p.RoleID, permission)
	if err != nil {
		return false, fmt.Errorf("check policy permission %s for user %d: %w", permission, p.ID, err)
	}
	return ok, nil
}
