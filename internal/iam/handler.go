package iam

import (
	"context"
	"net/http"

	"github.com/frahmantamala/pos-admin/internal"
	"github.com/frahmantamala/pos-admin/internal/permission"
	"github.com/frahmantamala/pos-admin/internal/transport"
)

type ServiceAPI interface {
	CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error)
	UpdateRole(ctx context.Context, id int64, dto UpdateRoleDTO) (*Role, error)
	GetRoleDetail(ctx context.Context, id int64) (*RoleDetailResponse, error)
	ListRoles(ctx context.Context) ([]*Role, error)
	DeleteRole(ctx context.Context, id int64, opts DeleteRoleOptions) error

	CreatePolicy(ctx context.Context, dto CreatePolicyDTO) (*Policy, error)
	UpdatePolicy(ctx context.Context, id int64, dto UpdatePolicyDTO) (*Policy, error)
	SetPolicyActive(ctx context.Context, id int64, active bool) (*Policy, error)
	GetPolicyDetail(ctx context.Context, id int64) (*PolicyDetailResponse, error)
	ListPolicies(ctx context.Context) ([]*Policy, error)
	DeletePolicy(ctx context.Context, id int64, opts DeletePolicyOptions) error

	CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*Permission, error)
	ListPermissions(ctx context.Context) ([]*Permission, error)
	DeletePermission(ctx context.Context, id int64) error

	AssignPermissionToRole(ctx context.Context, roleID, permissionID int64, grantedBy *int64) (*Grant, error)
	RemovePermissionFromRole(ctx context.Context, roleID, permissionID int64) (bool, error)
	AttachPolicyToRole(ctx context.Context, roleID, policyID int64, grantedBy *int64) (*Grant, error)
	DetachPolicyFromRole(ctx context.Context, roleID, policyID int64) (bool, error)
	AddPermissionToPolicy(ctx context.Context, policyID, permissionID int64, grantedBy *int64) (*Grant, error)
	RemovePermissionFromPolicy(ctx context.Context, policyID, permissionID int64) (bool, error)
}

type SyncAPI interface {
	Sync(ctx context.Context, dryRun bool) (*SyncReport, error)
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Syncer   SyncAPI
	Registry *permission.Registry
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, syncer SyncAPI, registry *permission.Registry) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Syncer:      syncer,
		Registry:    registry,
	}
}

func grantStatus(g *Grant) int {
	if g.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

// Roles

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListRoles(r.Context())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RolesResponse{Roles: roles})
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	role, err := h.Service.CreateRole(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, role)
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	detail, err := h.Service.GetRoleDetail(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var dto UpdateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	role, err := h.Service.UpdateRole(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	opts := DeleteRoleOptions{Force: h.BoolQuery(r, "force")}
	if err := h.Service.DeleteRole(r.Context(), id, opts); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GrantRolePermission(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	permissionID, err := h.IDParam(r, "permissionID")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	grant, err := h.Service.AssignPermissionToRole(r.Context(), roleID, permissionID, internal.ActorIDFromContext(r.Context()))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, grantStatus(grant), GrantResponse{Grant: grant})
}

func (h *Handler) RevokeRolePermission(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	permissionID, err := h.IDParam(r, "permissionID")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	removed, err := h.Service.RemovePermissionFromRole(r.Context(), roleID, permissionID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}

func (h *Handler) AttachRolePolicy(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	policyID, err := h.IDParam(r, "policyID")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	grant, err := h.Service.AttachPolicyToRole(r.Context(), roleID, policyID, internal.ActorIDFromContext(r.Context()))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, grantStatus(grant), GrantResponse{Grant: grant})
}

func (h *Handler) DetachRolePolicy(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	policyID, err := h.IDParam(r, "policyID")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	removed, err := h.Service.DetachPolicyFromRole(r.Context(), roleID, policyID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}

// Policies

func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Service.ListPolicies(r.Context())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PoliciesResponse{Policies: policies})
}

func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var dto CreatePolicyDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	policy, err := h.Service.CreatePolicy(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, policy)
}

func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	detail, err := h.Service.GetPolicyDetail(r.Context(), id)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var dto UpdatePolicyDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	policy, err := h.Service.UpdatePolicy(r.Context(), id, dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, policy)
}

func (h *Handler) SetPolicyActive(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	var dto SetPolicyActiveDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	policy, err := h.Service.SetPolicyActive(r.Context(), id, *dto.IsActive)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, policy)
}

func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	opts := DeletePolicyOptions{Force: h.BoolQuery(r, "force")}
	if err := h.Service.DeletePolicy(r.Context(), id, opts); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddPolicyPermission(w http.ResponseWriter, r *http.Request) {
	policyID, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	permissionID, err := h.IDParam(r, "permissionID")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	grant, err := h.Service.AddPermissionToPolicy(r.Context(), policyID, permissionID, internal.ActorIDFromContext(r.Context()))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, grantStatus(grant), GrantResponse{Grant: grant})
}

func (h *Handler) RemovePolicyPermission(w http.ResponseWriter, r *http.Request) {
	policyID, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	permissionID, err := h.IDParam(r, "permissionID")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	removed, err := h.Service.RemovePermissionFromPolicy(r.Context(), policyID, permissionID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RemovedResponse{Removed: removed})
}

// Permissions

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Service.ListPermissions(r.Context())
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Permissions: perms})
}

func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	perm, err := h.Service.CreatePermission(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, perm)
}

func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := h.Service.DeletePermission(r.Context(), id); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRegistry lists the permissions the running binary declares, which may
// differ from what is stored until the next sync.
func (h *Handler) ListRegistry(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, RegistryResponse{
		Areas:       h.Registry.Areas(),
		Permissions: h.Registry.All(),
	})
}

func (h *Handler) SyncPermissions(w http.ResponseWriter, r *http.Request) {
	report, err := h.Syncer.Sync(r.Context(), h.BoolQuery(r, "dry_run"))
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}
