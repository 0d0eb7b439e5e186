package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/frahmantamala/pos-admin/internal"
	"github.com/frahmantamala/pos-admin/internal/transport"
)

type Outcome string

const (
	OutcomeAllowed  Outcome = "allowed"
	OutcomeRejected Outcome = "rejected"
)

type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNotAuthenticated Reason = "not_authenticated"
	ReasonAccountInactive  Reason = "account_inactive"
	ReasonForbidden        Reason = "forbidden"
	ReasonError            Reason = "error"
)

// Decision is the outcome of one authorization check. Next carries the path
// to return to after login when the caller was not authenticated.
type Decision struct {
	Outcome    Outcome
	Reason     Reason
	Permission string
	Next       string
	Err        error
}

func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

type PermissionAuthorizer interface {
	HasPermission(ctx context.Context, p *Principal, permission string) (bool, error)
}

type GateOptions struct {
	LoginURL          string
	ForbiddenRedirect string
}

// Gate enforces authentication, then account status, then permission, in
// that order, for every protected route.
type Gate struct {
	authorizer PermissionAuthorizer
	logger     *slog.Logger
	opts       GateOptions
	base       *transport.BaseHandler
}

func NewGate(authorizer PermissionAuthorizer, logger *slog.Logger, opts GateOptions) *Gate {
	return &Gate{
		authorizer: authorizer,
		logger:     logger,
		opts:       opts,
		base:       transport.NewBaseHandler(logger),
	}
}

// Decide evaluates one request. An empty permission checks authentication
// and account status only.
func (g *Gate) Decide(ctx context.Context, p *Principal, permission, requestedPath string) Decision {
	d := Decision{Permission: permission}

	if p == nil {
		d.Outcome = OutcomeRejected
		d.Reason = ReasonNotAuthenticated
		d.Next = requestedPath
		return d
	}
	if !p.IsActive() {
		d.Outcome = OutcomeRejected
		d.Reason = ReasonAccountInactive
		return d
	}
	if permission == "" {
		d.Outcome = OutcomeAllowed
		return d
	}

	ok, err := g.authorizer.HasPermission(ctx, p, permission)
	if err != nil {
		d.Outcome = OutcomeRejected
		d.Reason = ReasonError
		d.Err = err
		return d
	}
	if !ok {
		d.Outcome = OutcomeRejected
		d.Reason = ReasonForbidden
		return d
	}

	d.Outcome = OutcomeAllowed
	return d
}

type notAuthenticatedResponse struct {
	Error *internal.AppError `json:"error"`
	Next  string             `json:"next"`
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func withQuery(base, key, value string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + key + "=" + url.QueryEscape(value)
}

// Check wraps next with the gate for one permission.
func (g *Gate) Check(next http.HandlerFunc, permission string) http.HandlerFunc {
	return g.check(next, []string{permission})
}

func (g *Gate) check(next http.HandlerFunc, permissions []string) http.HandlerFunc {
	if len(permissions) == 0 {
		permissions = []string{""}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := WithPermissionMemo(r.Context())
		principal, _ := PrincipalFromContext(ctx)

		var d Decision
		for _, permission := range permissions {
			d = g.Decide(ctx, principal, permission, r.URL.RequestURI())
			if d.Reason != ReasonForbidden {
				break
			}
		}

		if d.Allowed() {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		g.reject(w, r.WithContext(ctx), principal, d)
	}
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, principal *Principal, d Decision) {
	ctx := r.Context()

	switch d.Reason {
	case ReasonNotAuthenticated:
		g.logger.InfoContext(ctx, "authentication required", "path", r.URL.Path)
		if wantsHTML(r) && g.opts.LoginURL != "" {
			http.Redirect(w, r, withQuery(g.opts.LoginURL, "next", d.Next), http.StatusSeeOther)
			return
		}
		g.base.WriteJSON(w, http.StatusUnauthorized, notAuthenticatedResponse{
			Error: internal.ErrNotAuthenticated,
			Next:  d.Next,
		})

	case ReasonAccountInactive:
		g.logger.WarnContext(ctx, "access denied: account not active",
			"user_id", principal.ID, "status", principal.Status, "path", r.URL.Path)
		status, body := internal.ErrAccountInactive.ToHTTPResponse()
		g.base.WriteJSON(w, status, body)

	case ReasonForbidden:
		g.logger.WarnContext(ctx, "access denied: insufficient permissions",
			"user_id", principal.ID, "required_permission", d.Permission, "path", r.URL.Path)
		if wantsHTML(r) && g.opts.ForbiddenRedirect != "" {
			http.Redirect(w, r, withQuery(g.opts.ForbiddenRedirect, "flash", "You do not have access to that page"), http.StatusSeeOther)
			return
		}
		status, body := internal.ErrForbidden.ToHTTPResponse()
		g.base.WriteJSON(w, status, body)

	default:
		g.logger.ErrorContext(ctx, "authorization check failed",
			"user_id", principal.ID, "permission", d.Permission, "error", d.Err)
		status, body := internal.NewInternalError("Internal server error", d.Err).ToHTTPResponse()
		g.base.WriteJSON(w, status, body)
	}
}

func (g *Gate) Middleware(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.Check(next.ServeHTTP, permission)
	}
}

// RequireAny admits callers holding at least one of permissions.
func (g *Gate) RequireAny(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return g.check(next.ServeHTTP, permissions)
	}
}

// RequireAuthenticated admits any active, logged-in user.
func (g *Gate) RequireAuthenticated() func(http.Handler) http.Handler {
	return g.Middleware("")
}
