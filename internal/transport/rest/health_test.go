package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/pos-admin/internal/transport/rest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type pinger struct{ err error }

func (p pinger) PingContext(ctx context.Context) error { return p.err }

var _ = Describe("HealthHandler", func() {
	check := func(db rest.Pinger) (int, rest.HealthResponse) {
		rec := httptest.NewRecorder()
		rest.NewHealthHandler(db, 37).Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		var resp rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		return rec.Code, resp
	}

	It("should report healthy components", func() {
		code, resp := check(pinger{})
		Expect(code).To(Equal(http.StatusOK))
		Expect(resp.Status).To(Equal(rest.HealthHealthy))
		Expect(resp.Components["permission_registry"].Details).To(HaveKeyWithValue("permissions", BeNumerically("==", 37)))
	})

	It("should answer 503 when the database is unreachable", func() {
		code, resp := check(pinger{err: errors.New("connection refused")})
		Expect(code).To(Equal(http.StatusServiceUnavailable))
		Expect(resp.Status).To(Equal(rest.HealthUnhealthy))
		Expect(resp.Components["postgres"].Message).To(Equal("connection refused"))
	})
})
