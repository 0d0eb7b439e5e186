package user_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/pos-admin/internal/auth"
	"github.com/frahmantamala/pos-admin/internal/transport"
	"github.com/frahmantamala/pos-admin/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

type stubResolver struct {
	perms []string
}

func (s stubResolver) Resolve(ctx context.Context, p *auth.Principal) (auth.PermissionSet, error) {
	set := make(auth.PermissionSet)
	set.Add(s.perms...)
	return set, nil
}

var _ = Describe("User Handler", func() {
	var (
		repo    *MockRepository
		handler *user.Handler
		router  *chi.Mux
	)

	BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo = NewMockRepository()
		service := user.NewService(repo, mockRoles{7: "cashier"}, nil, lg, bcrypt.MinCost)
		handler = user.NewHandler(transport.NewBaseHandler(lg), service, stubResolver{perms: []string{"order.view.order", "menu.view.item"}})

		router = chi.NewRouter()
		router.Get("/users/me", handler.GetCurrentUser)
		router.Get("/users/me/permissions", handler.GetCurrentPermissions)
		router.Post("/users", handler.CreateUser)
		router.Put("/users/{id}/role", handler.AssignRole)
		router.Patch("/users/{id}/status", handler.ChangeStatus)
	})

	send := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	jsonRequest := func(method, path string, body interface{}) *http.Request {
		payload, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		return httptest.NewRequest(method, path, bytes.NewReader(payload))
	}

	asPrincipal := func(req *http.Request, p *auth.Principal) *http.Request {
		return req.WithContext(auth.ContextWithPrincipal(req.Context(), p))
	}

	Describe("GET /users/me/permissions", func() {
		It("should list the resolved permissions sorted", func() {
			req := asPrincipal(httptest.NewRequest(http.MethodGet, "/users/me/permissions", nil),
				&auth.Principal{ID: 1, Status: "active"})
			rec := send(req)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp user.PermissionsResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.IsSuperuser).To(BeFalse())
			Expect(resp.Permissions).To(Equal([]string{"menu.view.item", "order.view.order"}))
		})

		It("should answer 401 without a principal", func() {
			rec := send(httptest.NewRequest(http.MethodGet, "/users/me/permissions", nil))
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("GET /users/me", func() {
		It("should return the stored user with permissions", func() {
			u, err := handler.Service.Register(context.Background(), user.CreateUserDTO{
				Username: "bob", Email: "bob@pos.test", Name: "Bob", Password: "long-enough",
			})
			Expect(err).NotTo(HaveOccurred())

			rec := send(asPrincipal(httptest.NewRequest(http.MethodGet, "/users/me", nil), &auth.Principal{ID: u.ID}))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"username":"bob"`))
			Expect(rec.Body.String()).NotTo(ContainSubstring("password"))
		})
	})

	Describe("POST /users", func() {
		It("should create the user", func() {
			rec := send(jsonRequest(http.MethodPost, "/users", user.CreateUserDTO{
				Username: "carol", Email: "carol@pos.test", Name: "Carol", Password: "long-enough",
			}))
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(repo.users).To(HaveLen(1))
		})

		It("should answer 400 for a short password", func() {
			rec := send(jsonRequest(http.MethodPost, "/users", user.CreateUserDTO{
				Username: "carol", Email: "carol@pos.test", Name: "Carol", Password: "short",
			}))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(rec.Body.String()).To(ContainSubstring("password"))
		})
	})

	Describe("role and status changes", func() {
		var id int64

		BeforeEach(func() {
			u, err := handler.Service.Register(context.Background(), user.CreateUserDTO{
				Username: "dana", Email: "dana@pos.test", Name: "Dana", Password: "long-enough",
			})
			Expect(err).NotTo(HaveOccurred())
			id = u.ID
		})

		It("should assign an existing role", func() {
			roleID := int64(7)
			rec := send(jsonRequest(http.MethodPut, "/users/1/role", user.AssignRoleDTO{RoleID: &roleID}))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(*repo.users[id].RoleID).To(Equal(roleID))
		})

		It("should answer 404 for an unknown role", func() {
			roleID := int64(70)
			rec := send(jsonRequest(http.MethodPut, "/users/1/role", user.AssignRoleDTO{RoleID: &roleID}))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should reject an unknown status", func() {
			rec := send(jsonRequest(http.MethodPatch, "/users/1/status", user.ChangeStatusDTO{Status: "retired"}))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(repo.users[id].Status).To(Equal("pending"))
		})

		It("should suspend the user", func() {
			rec := send(jsonRequest(http.MethodPatch, "/users/1/status", user.ChangeStatusDTO{Status: "suspended"}))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(repo.users[id].Status).To(Equal("suspended"))
		})
	})
})
