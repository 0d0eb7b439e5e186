package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Handler", func() {
	var (
		mockRepo *mockAuthRepository
		tokenGen *JWTTokenGenerator
		handler  *Handler
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockAuthRepository()
		tokenGen = NewJWTTokenGenerator(
			"handler-access-secret-0123456789abcdef",
			"handler-refresh-secret-0123456789abcdef",
			15*time.Minute, time.Hour,
		)
		handler = NewHandler(NewService(mockRepo, tokenGen, quietLogger()))
		handler.Logger = quietLogger()
	})

	post := func(h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
		payload, err := json.Marshal(body)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	ginkgo.Describe("Login", func() {
		ginkgo.It("should return tokens for valid credentials", func() {
			rec := post(handler.Login, LoginDTO{Login: "alice", Password: "correct_password"})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			var tokens AuthTokens
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &tokens)).To(gomega.Succeed())
			gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("should answer 401 for a wrong password", func() {
			rec := post(handler.Login, LoginDTO{Login: "alice", Password: "nope"})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("INVALID_CREDENTIALS"))
		})

		ginkgo.It("should answer 403 for a suspended account", func() {
			rec := post(handler.Login, LoginDTO{Login: "bob", Password: "correct_password"})
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("ACCOUNT_INACTIVE"))
		})

		ginkgo.It("should answer 400 for a malformed body", func() {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{"))
			rec := httptest.NewRecorder()
			handler.Login(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		var (
			seen    *Principal
			present bool
			next    http.Handler
		)

		ginkgo.BeforeEach(func() {
			seen, present = nil, false
			next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, present = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})
		})

		run := func(authorization string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if authorization != "" {
				req.Header.Set("Authorization", authorization)
			}
			rec := httptest.NewRecorder()
			handler.AuthMiddleware(next).ServeHTTP(rec, req)
			return rec
		}

		ginkgo.It("should load the principal of a valid access token", func() {
			token, err := tokenGen.GenerateAccessToken("1", "alice@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			rec := run("Bearer " + token)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(present).To(gomega.BeTrue())
			gomega.Expect(seen.Username).To(gomega.Equal("alice"))
		})

		ginkgo.It("should leave the request anonymous without a token", func() {
			rec := run("")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
			gomega.Expect(present).To(gomega.BeFalse())
		})

		ginkgo.It("should leave the request anonymous for a refresh token", func() {
			token, err := tokenGen.GenerateRefreshToken("1", "alice@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			run("Bearer " + token)
			gomega.Expect(present).To(gomega.BeFalse())
		})

		ginkgo.It("should leave the request anonymous for a deleted user", func() {
			token, err := tokenGen.GenerateAccessToken("77", "gone@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			run("Bearer " + token)
			gomega.Expect(present).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should confirm a valid session", func() {
			token, err := tokenGen.GenerateAccessToken("1", "alice@example.com")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			handler.Logout(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
		})

		ginkgo.It("should answer 401 without a token", func() {
			rec := httptest.NewRecorder()
			handler.Logout(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})
})
