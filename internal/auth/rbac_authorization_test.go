package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// fakeStore keeps the authorization graph of a few roles in memory.
type fakeStore struct {
	mu       sync.Mutex
	direct   map[int64][]string
	policies map[int64][]string
	calls    int
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		direct:   make(map[int64][]string),
		policies: make(map[int64][]string),
	}
}

func (f *fakeStore) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeStore) RolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	f.count()
	return f.direct[roleID], f.err
}

func (f *fakeStore) ActivePolicyPermissions(ctx context.Context, roleID int64) ([]string, error) {
	f.count()
	return f.policies[roleID], f.err
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (f *fakeStore) RoleHasPermission(ctx context.Context, roleID int64, permission string) (bool, error) {
	f.count()
	return contains(f.direct[roleID], permission), f.err
}

func (f *fakeStore) ActivePolicyHasPermission(ctx context.Context, roleID int64, permission string) (bool, error) {
	f.count()
	return contains(f.policies[roleID], permission), f.err
}

func principal(id int64, status string, roleID int64) *Principal {
	p := &Principal{ID: id, Username: "user", Status: status}
	if roleID > 0 {
		p.RoleID = &roleID
	}
	return p
}

var _ = ginkgo.Describe("Resolver", func() {
	var (
		ctx      context.Context
		store    *fakeStore
		resolver *Resolver
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		store = newFakeStore()
		store.direct[1] = []string{"iam.view.user", "order.create.order"}
		store.policies[1] = []string{"order.view.order", "order.create.order"}
		resolver = NewResolver(store, quietLogger())
	})

	ginkgo.It("should unite direct and policy permissions without duplicates", func() {
		set, err := resolver.Resolve(ctx, principal(10, "active", 1))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(set.Sorted()).To(gomega.Equal([]string{
			"iam.view.user", "order.create.order", "order.view.order",
		}))
	})

	ginkgo.It("should resolve an empty set for a user without a role", func() {
		set, err := resolver.Resolve(ctx, principal(10, "active", 0))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(set).To(gomega.BeEmpty())
		gomega.Expect(store.calls).To(gomega.BeZero())
	})

	ginkgo.It("should deny by default", func() {
		ok, err := resolver.HasPermission(ctx, principal(10, "active", 1), "settings.edit.system")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeFalse())

		ok, err = resolver.HasPermission(ctx, nil, "order.view.order")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeFalse())
	})

	ginkgo.It("should stop at a direct grant", func() {
		ok, err := resolver.HasPermission(ctx, principal(10, "active", 1), "iam.view.user")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(store.calls).To(gomega.Equal(1))
	})

	ginkgo.It("should fall through to policy grants", func() {
		ok, err := resolver.HasPermission(ctx, principal(10, "active", 1), "order.view.order")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(store.calls).To(gomega.Equal(2))
	})

	ginkgo.It("should let an active superuser through without reading the store", func() {
		root := principal(1, "active", 0)
		root.IsSuperuser = true

		ok, err := resolver.HasPermission(ctx, root, "settings.edit.system")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(store.calls).To(gomega.BeZero())
	})

	ginkgo.It("should not treat a suspended superuser as a superuser", func() {
		root := principal(1, "suspended", 0)
		root.IsSuperuser = true

		ok, err := resolver.HasPermission(ctx, root, "settings.edit.system")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(ok).To(gomega.BeFalse())
	})

	ginkgo.It("should reuse one resolution within a memoized request", func() {
		memoCtx := WithPermissionMemo(ctx)
		p := principal(10, "active", 1)

		for _, perm := range []string{"iam.view.user", "order.view.order", "menu.view.item"} {
			_, err := resolver.HasPermission(memoCtx, p, perm)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		}
		gomega.Expect(store.calls).To(gomega.Equal(2))
	})

	ginkgo.It("should see grants made between requests", func() {
		p := principal(10, "active", 1)
		ok, _ := resolver.HasPermission(ctx, p, "menu.view.item")
		gomega.Expect(ok).To(gomega.BeFalse())

		store.direct[1] = append(store.direct[1], "menu.view.item")
		ok, _ = resolver.HasPermission(ctx, p, "menu.view.item")
		gomega.Expect(ok).To(gomega.BeTrue())
	})

	ginkgo.It("should wrap store failures", func() {
		store.err = errors.New("db down")
		_, err := resolver.HasPermission(ctx, principal(10, "active", 1), "iam.view.user")
		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("db down")))
	})
})

var _ = ginkgo.Describe("Gate", func() {
	var (
		store *fakeStore
		gate  *Gate
		opts  GateOptions
		hits  int
		ok    http.HandlerFunc
	)

	serve := func(mw func(http.Handler) http.Handler, p *Principal, accept string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?page=2", nil)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}
		if p != nil {
			req = req.WithContext(ContextWithPrincipal(req.Context(), p))
		}
		rec := httptest.NewRecorder()
		mw(ok).ServeHTTP(rec, req)
		return rec
	}

	errorCode := func(rec *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
			Next string `json:"next"`
		}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(gomega.Succeed())
		return body.Error.Code
	}

	ginkgo.BeforeEach(func() {
		store = newFakeStore()
		store.direct[1] = []string{"order.view.order"}
		store.policies[1] = []string{"menu.view.category"}
		opts = GateOptions{LoginURL: "/login"}
		hits = 0
		ok = func(w http.ResponseWriter, r *http.Request) {
			hits++
			w.WriteHeader(http.StatusOK)
		}
	})

	ginkgo.JustBeforeEach(func() {
		gate = NewGate(NewResolver(store, quietLogger()), quietLogger(), opts)
	})

	ginkgo.Describe("Decide", func() {
		ginkgo.It("should check authentication, then status, then permission", func() {
			ctx := context.Background()

			d := gate.Decide(ctx, nil, "order.view.order", "/orders")
			gomega.Expect(d.Reason).To(gomega.Equal(ReasonNotAuthenticated))
			gomega.Expect(d.Next).To(gomega.Equal("/orders"))

			// a suspended user with the permission is still refused for status
			d = gate.Decide(ctx, principal(10, "suspended", 1), "order.view.order", "/orders")
			gomega.Expect(d.Reason).To(gomega.Equal(ReasonAccountInactive))

			d = gate.Decide(ctx, principal(10, "active", 1), "order.delete.order", "/orders")
			gomega.Expect(d.Reason).To(gomega.Equal(ReasonForbidden))
			gomega.Expect(d.Allowed()).To(gomega.BeFalse())

			d = gate.Decide(ctx, principal(10, "active", 1), "order.view.order", "/orders")
			gomega.Expect(d.Allowed()).To(gomega.BeTrue())
			gomega.Expect(d.Reason).To(gomega.Equal(ReasonNone))
		})

		ginkgo.It("should refuse an inactive superuser", func() {
			root := principal(1, "locked", 0)
			root.IsSuperuser = true

			d := gate.Decide(context.Background(), root, "settings.edit.system", "/settings")
			gomega.Expect(d.Reason).To(gomega.Equal(ReasonAccountInactive))
		})

		ginkgo.It("should only check authentication and status for an empty permission", func() {
			d := gate.Decide(context.Background(), principal(10, "active", 0), "", "/users/me")
			gomega.Expect(d.Allowed()).To(gomega.BeTrue())
		})

		ginkgo.It("should turn a store failure into an error outcome", func() {
			store.err = errors.New("db down")
			d := gate.Decide(context.Background(), principal(10, "active", 1), "order.view.order", "/orders")
			gomega.Expect(d.Reason).To(gomega.Equal(ReasonError))
			gomega.Expect(d.Err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("Middleware", func() {
		ginkgo.It("should let a permitted user through", func() {
			rec := serve(gate.Middleware("order.view.order"), principal(10, "active", 1), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(hits).To(gomega.Equal(1))
		})

		ginkgo.It("should answer API clients with 401 and the path to return to", func() {
			rec := serve(gate.Middleware("order.view.order"), nil, "application/json")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(errorCode(rec)).To(gomega.Equal("NOT_AUTHENTICATED"))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"next":"/api/v1/orders?page=2"`))
			gomega.Expect(hits).To(gomega.BeZero())
		})

		ginkgo.It("should redirect browsers to the login page", func() {
			rec := serve(gate.Middleware("order.view.order"), nil, "text/html,application/xhtml+xml")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusSeeOther))
			gomega.Expect(rec.Header().Get("Location")).To(gomega.Equal("/login?next=%2Fapi%2Fv1%2Forders%3Fpage%3D2"))
		})

		ginkgo.It("should refuse an inactive account", func() {
			rec := serve(gate.Middleware("order.view.order"), principal(10, "pending", 1), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(errorCode(rec)).To(gomega.Equal("ACCOUNT_INACTIVE"))
		})

		ginkgo.It("should refuse a missing permission", func() {
			rec := serve(gate.Middleware("order.delete.order"), principal(10, "active", 1), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(errorCode(rec)).To(gomega.Equal("FORBIDDEN"))
			gomega.Expect(hits).To(gomega.BeZero())
		})

		ginkgo.It("should answer 500 when the check itself fails", func() {
			store.err = errors.New("db down")
			rec := serve(gate.Middleware("order.view.order"), principal(10, "active", 1), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusInternalServerError))
		})

		ginkgo.Context("with a forbidden redirect configured", func() {
			ginkgo.BeforeEach(func() {
				opts.ForbiddenRedirect = "/dashboard"
			})

			ginkgo.It("should send browsers back with a flash message", func() {
				rec := serve(gate.Middleware("order.delete.order"), principal(10, "active", 1), "text/html")
				gomega.Expect(rec.Code).To(gomega.Equal(http.StatusSeeOther))
				gomega.Expect(rec.Header().Get("Location")).To(gomega.HavePrefix("/dashboard?flash="))
			})

			ginkgo.It("should still answer API clients with 403", func() {
				rec := serve(gate.Middleware("order.delete.order"), principal(10, "active", 1), "application/json")
				gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			})
		})
	})

	ginkgo.Describe("RequireAny", func() {
		ginkgo.It("should admit a user holding any of the permissions", func() {
			rec := serve(gate.RequireAny("menu.view.item", "menu.view.category"), principal(10, "active", 1), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("should refuse a user holding none of them", func() {
			rec := serve(gate.RequireAny("branch.view.branch", "settings.view.system"), principal(10, "active", 1), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		})
	})

	ginkgo.Describe("RequireAuthenticated", func() {
		ginkgo.It("should admit an active user without any permission", func() {
			rec := serve(gate.RequireAuthenticated(), principal(10, "active", 0), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("should refuse a suspended user", func() {
			rec := serve(gate.RequireAuthenticated(), principal(10, "suspended", 0), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		})
	})
})
