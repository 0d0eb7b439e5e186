package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/pos-admin/internal/auth"
	"github.com/frahmantamala/pos-admin/internal/transport"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	Register(ctx context.Context, dto CreateUserDTO) (*User, error)
	ChangeStatus(ctx context.Context, userID int64, dto ChangeStatusDTO) (*User, error)
	AssignRole(ctx context.Context, userID int64, roleID *int64) (*User, error)
}

type PermissionResolver interface {
	Resolve(ctx context.Context, p *auth.Principal) (auth.PermissionSet, error)
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Resolver PermissionResolver
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, resolver PermissionResolver) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
		Resolver:    resolver,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, auth.ErrNotAuthenticated)
		return
	}

	u, err := h.Service.GetByID(r.Context(), principal.ID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	perms, err := h.Resolver.Resolve(r.Context(), principal)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, MeResponse{User: u, Permissions: perms.Sorted()})
}

// GetCurrentPermissions handles GET /users/me/permissions
func (h *Handler) GetCurrentPermissions(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, auth.ErrNotAuthenticated)
		return
	}

	perms, err := h.Resolver.Resolve(r.Context(), principal)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PermissionsResponse{
		IsSuperuser: principal.IsSuperuser,
		Permissions: perms.Sorted(),
	})
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	u, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var dto AssignRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	u, err := h.Service.AssignRole(r.Context(), id, dto.RoleID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var dto ChangeStatusDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	u, err := h.Service.ChangeStatus(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}
