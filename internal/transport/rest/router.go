package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/pos-admin/internal/auth"
	"github.com/frahmantamala/pos-admin/internal/iam"
	"github.com/frahmantamala/pos-admin/internal/permission"
	"github.com/frahmantamala/pos-admin/internal/transport"
	"github.com/frahmantamala/pos-admin/internal/transport/middleware"
	"github.com/frahmantamala/pos-admin/internal/transport/swagger"
	"github.com/frahmantamala/pos-admin/internal/user"
)

type Handlers struct {
	Health *HealthHandler
	Auth   *auth.Handler
	User   *user.Handler
	IAM    *iam.Handler
	Gate   *auth.Gate
}

type RouterOptions struct {
	AllowedOrigins string
	OpenAPIPath    string
	LogRequests    bool
	// LoginRateLimit is requests per minute per IP on /auth; 0 disables it.
	LoginRateLimit int
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts RouterOptions, logger *slog.Logger) {
	gate := h.Gate
	pos := NewPOSHandler(transport.NewBaseHandler(logger))

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	if opts.LogRequests {
		router.Use(middleware.LoggingMiddleware(logger))
	}

	openAPIPath := opts.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.Health)
		r.Get("/ping", h.Health.Ping)

		r.Route("/auth", func(sr chi.Router) {
			if opts.LoginRateLimit > 0 {
				sr.Use(middleware.RateLimitByIP(opts.LoginRateLimit, time.Minute))
			}
			sr.Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Route("/users", func(ur chi.Router) {
				ur.With(gate.RequireAuthenticated()).Get("/me", h.User.GetCurrentUser)
				ur.With(gate.RequireAuthenticated()).Get("/me/permissions", h.User.GetCurrentPermissions)
				ur.With(gate.Middleware(permission.IAMCreateUser)).Post("/", h.User.CreateUser)
				ur.With(gate.Middleware(permission.IAMEditUser)).Put("/{id}/role", h.User.AssignRole)
				ur.With(gate.Middleware(permission.IAMEditUser)).Patch("/{id}/status", h.User.ChangeStatus)
			})

			pr.Route("/roles", func(rr chi.Router) {
				rr.With(gate.Middleware(permission.IAMViewRole)).Get("/", h.IAM.ListRoles)
				rr.With(gate.Middleware(permission.IAMCreateRole)).Post("/", h.IAM.CreateRole)
				rr.With(gate.Middleware(permission.IAMViewRole)).Get("/{id}", h.IAM.GetRole)
				rr.With(gate.Middleware(permission.IAMEditRole)).Put("/{id}", h.IAM.UpdateRole)
				rr.With(gate.Middleware(permission.IAMDeleteRole)).Delete("/{id}", h.IAM.DeleteRole)

				rr.Group(func(er chi.Router) {
					er.Use(gate.Middleware(permission.IAMEditRole))
					er.Put("/{id}/permissions/{permissionID}", h.IAM.GrantRolePermission)
					er.Delete("/{id}/permissions/{permissionID}", h.IAM.RevokeRolePermission)
					er.Put("/{id}/policies/{policyID}", h.IAM.AttachRolePolicy)
					er.Delete("/{id}/policies/{policyID}", h.IAM.DetachRolePolicy)
				})
			})

			pr.Route("/policies", func(pol chi.Router) {
				pol.With(gate.Middleware(permission.IAMViewPolicy)).Get("/", h.IAM.ListPolicies)
				pol.With(gate.Middleware(permission.IAMCreatePolicy)).Post("/", h.IAM.CreatePolicy)
				pol.With(gate.Middleware(permission.IAMViewPolicy)).Get("/{id}", h.IAM.GetPolicy)
				pol.With(gate.Middleware(permission.IAMDeletePolicy)).Delete("/{id}", h.IAM.DeletePolicy)

				pol.Group(func(er chi.Router) {
					er.Use(gate.Middleware(permission.IAMEditPolicy))
					er.Put("/{id}", h.IAM.UpdatePolicy)
					er.Patch("/{id}/active", h.IAM.SetPolicyActive)
					er.Put("/{id}/permissions/{permissionID}", h.IAM.AddPolicyPermission)
					er.Delete("/{id}/permissions/{permissionID}", h.IAM.RemovePolicyPermission)
				})
			})

			pr.Route("/permissions", func(per chi.Router) {
				per.With(gate.Middleware(permission.IAMViewPermission)).Get("/", h.IAM.ListPermissions)
				per.With(gate.Middleware(permission.IAMViewPermission)).Get("/registry", h.IAM.ListRegistry)

				per.Group(func(sr chi.Router) {
					sr.Use(gate.Middleware(permission.IAMSyncPermission))
					sr.Post("/", h.IAM.CreatePermission)
					sr.Delete("/{id}", h.IAM.DeletePermission)
					sr.Post("/sync", h.IAM.SyncPermissions)
				})
			})

			pr.With(gate.RequireAny(permission.MenuViewItem, permission.MenuViewCategory)).Get("/menu", pos.listing(permission.AreaMenu))
			pr.Route("/orders", func(or chi.Router) {
				or.With(gate.Middleware(permission.OrderViewOrder)).Get("/", pos.listing(permission.AreaOrder))
				or.With(gate.Middleware(permission.OrderDeleteOrder)).Delete("/{id}", pos.DeleteOrder)
			})
			pr.With(gate.Middleware(permission.BranchViewBranch)).Get("/branches", pos.listing(permission.AreaBranch))
			pr.With(gate.Middleware(permission.SettingsViewSystem)).Get("/settings", pos.listing(permission.AreaSettings))
		})
	})
}
