package iam_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/pos-admin/internal/iam"
	"github.com/frahmantamala/pos-admin/internal/permission"
	"github.com/frahmantamala/pos-admin/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handler", func() {
	var (
		e      *env
		router *chi.Mux
	)

	BeforeEach(func() {
		e = newEnv(iam.RoleStaff)
		h := iam.NewHandler(transport.NewBaseHandler(e.logger), e.service, e.syncer, e.registry)

		router = chi.NewRouter()
		router.Get("/roles", h.ListRoles)
		router.Post("/roles", h.CreateRole)
		router.Get("/roles/{id}", h.GetRole)
		router.Delete("/roles/{id}", h.DeleteRole)
		router.Put("/roles/{id}/permissions/{permissionID}", h.GrantRolePermission)
		router.Delete("/roles/{id}/permissions/{permissionID}", h.RevokeRolePermission)
		router.Post("/policies", h.CreatePolicy)
		router.Patch("/policies/{id}/active", h.SetPolicyActive)
		router.Get("/permissions", h.ListPermissions)
		router.Get("/permissions/registry", h.ListRegistry)
		router.Post("/permissions/sync", h.SyncPermissions)
	})

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			Expect(err).NotTo(HaveOccurred())
			reader = bytes.NewReader(payload)
		} else {
			reader = bytes.NewReader(nil)
		}
		req := httptest.NewRequest(method, path, reader)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		return resp.Error.Code
	}

	Describe("roles", func() {
		It("should create a role and list it", func() {
			rec := do(http.MethodPost, "/roles", iam.CreateRoleDTO{Name: "Barista"})
			Expect(rec.Code).To(Equal(http.StatusCreated))

			rec = do(http.MethodGet, "/roles", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var list iam.RolesResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
			Expect(list.Roles).To(HaveLen(1))
			Expect(list.Roles[0].Name).To(Equal("Barista"))
		})

		It("should answer 409 for a duplicate name", func() {
			Expect(do(http.MethodPost, "/roles", iam.CreateRoleDTO{Name: "Barista"}).Code).To(Equal(http.StatusCreated))

			rec := do(http.MethodPost, "/roles", iam.CreateRoleDTO{Name: "barista"})
			Expect(rec.Code).To(Equal(http.StatusConflict))
			Expect(errorCode(rec)).To(Equal("DUPLICATE_NAME"))
		})

		It("should answer 400 for an empty name", func() {
			rec := do(http.MethodPost, "/roles", iam.CreateRoleDTO{Name: ""})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(errorCode(rec)).To(Equal("VALIDATION_FAILED"))
		})

		It("should answer 400 for a non numeric id", func() {
			rec := do(http.MethodGet, "/roles/abc", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should not let a request body mark a role as system", func() {
			rec := do(http.MethodPost, "/roles", map[string]interface{}{"name": "Barista", "is_system": true})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			var created iam.Role
			Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
			Expect(created.IsSystem).To(BeFalse())

			rec = do(http.MethodDelete, fmt.Sprintf("/roles/%d", created.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})

		It("should answer 404 for an unknown role", func() {
			rec := do(http.MethodGet, "/roles/999", nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(errorCode(rec)).To(Equal("NOT_FOUND"))
		})

		It("should answer 409 when deleting a held role without force", func() {
			role, err := e.service.CreateRole(context.Background(), iam.CreateRoleDTO{Name: "Barista"})
			Expect(err).NotTo(HaveOccurred())
			e.register("gina", "active", &role.ID)

			rec := do(http.MethodDelete, fmt.Sprintf("/roles/%d", role.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusConflict))
			Expect(errorCode(rec)).To(Equal("ROLE_IN_USE"))

			rec = do(http.MethodDelete, fmt.Sprintf("/roles/%d?force=true", role.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})
	})

	Describe("role permissions", func() {
		It("should answer 201 for a new grant and 200 for a repeated one", func() {
			e.sync()
			role, err := e.service.CreateRole(context.Background(), iam.CreateRoleDTO{Name: "Barista"})
			Expect(err).NotTo(HaveOccurred())
			path := fmt.Sprintf("/roles/%d/permissions/%d", role.ID, e.permissionID(permission.MenuViewItem))

			Expect(do(http.MethodPut, path, nil).Code).To(Equal(http.StatusCreated))
			Expect(do(http.MethodPut, path, nil).Code).To(Equal(http.StatusOK))

			rec := do(http.MethodGet, fmt.Sprintf("/roles/%d", role.ID), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var detail iam.RoleDetailResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &detail)).To(Succeed())
			Expect(detail.Permissions).To(HaveLen(1))
			Expect(detail.Permissions[0].Name).To(Equal(permission.MenuViewItem))

			rec = do(http.MethodDelete, path, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"removed":true`))

			rec = do(http.MethodDelete, path, nil)
			Expect(rec.Body.String()).To(ContainSubstring(`"removed":false`))

			rec = do(http.MethodDelete, fmt.Sprintf("/roles/9999/permissions/%d", e.permissionID(permission.MenuViewItem)), nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("policies", func() {
		It("should require is_active when toggling", func() {
			policy, err := e.service.CreatePolicy(context.Background(), iam.CreatePolicyDTO{Name: "Floor"})
			Expect(err).NotTo(HaveOccurred())

			rec := do(http.MethodPatch, fmt.Sprintf("/policies/%d/active", policy.ID), map[string]interface{}{})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			rec = do(http.MethodPatch, fmt.Sprintf("/policies/%d/active", policy.ID), map[string]bool{"is_active": false})
			Expect(rec.Code).To(Equal(http.StatusOK))
			var updated iam.Policy
			Expect(json.Unmarshal(rec.Body.Bytes(), &updated)).To(Succeed())
			Expect(updated.IsActive).To(BeFalse())
		})
	})

	Describe("permissions", func() {
		It("should sync on request and honor dry_run", func() {
			rec := do(http.MethodPost, "/permissions/sync?dry_run=true", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var report iam.SyncReport
			Expect(json.Unmarshal(rec.Body.Bytes(), &report)).To(Succeed())
			Expect(report.DryRun).To(BeTrue())
			Expect(report.Created).To(HaveLen(e.registry.Len()))

			rec = do(http.MethodGet, "/permissions", nil)
			var stored iam.PermissionsResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &stored)).To(Succeed())
			Expect(stored.Permissions).To(BeEmpty())

			Expect(do(http.MethodPost, "/permissions/sync", nil).Code).To(Equal(http.StatusOK))
			rec = do(http.MethodGet, "/permissions", nil)
			Expect(json.Unmarshal(rec.Body.Bytes(), &stored)).To(Succeed())
			Expect(stored.Permissions).To(HaveLen(e.registry.Len()))
		})

		It("should list the registry catalog", func() {
			rec := do(http.MethodGet, "/permissions/registry", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var reg iam.RegistryResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &reg)).To(Succeed())
			Expect(reg.Areas).To(Equal(e.registry.Areas()))
			Expect(reg.Permissions).To(HaveLen(e.registry.Len()))
		})
	})
})
