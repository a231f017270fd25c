package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	appErrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type stubService struct {
	session *identity.Session
	err     error
}

func (s *stubService) RequestCode(context.Context, auth.RequestCodeDTO) error { return s.err }

func (s *stubService) VerifyCode(context.Context, auth.VerifyCodeDTO) (*auth.LoginResponse, error) {
	return nil, s.err
}

func (s *stubService) RefreshTokens(context.Context, auth.RefreshTokenDTO) (auth.AuthTokens, error) {
	return auth.AuthTokens{}, s.err
}

func (s *stubService) Authenticate(context.Context, string) (*identity.Session, error) {
	return s.session, s.err
}

var _ = Describe("Auth HTTP", func() {
	var (
		logger  *slog.Logger
		stub    *stubService
		handler *auth.Handler
		rbac    *auth.RBACAuthorization
		reached bool
		next    http.Handler
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		stub = &stubService{}
		handler = auth.NewHandler(transport.NewBaseHandler(logger), stub)
		rbac = auth.NewRBACAuthorization(logger)
		reached = false
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			_, ok := identity.SessionFromContext(r.Context())
			Expect(ok).To(BeTrue())
			w.WriteHeader(http.StatusNoContent)
		})
	})

	serve := func(h http.Handler, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	errorCode := func(w *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		return body.Error.Code
	}

	Describe("AuthMiddleware", func() {
		It("rejects requests without a bearer token", func() {
			w := serve(handler.AuthMiddleware(next), "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(reached).To(BeFalse())
		})

		It("maps expired tokens to 401", func() {
			stub.err = appErrors.ErrTokenExpired
			w := serve(handler.AuthMiddleware(next), "abc")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(w)).To(Equal("TOKEN_EXPIRED"))
		})

		It("maps store failures to 503", func() {
			stub.err = appErrors.NewStoreUnavailableError("db down", nil)
			w := serve(handler.AuthMiddleware(next), "abc")
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})

		It("puts the session into the request context", func() {
			stub.session = identity.NewSession(identity.User{ID: 1, Email: "a@example.com"}, nil)
			w := serve(handler.AuthMiddleware(next), "abc")
			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(reached).To(BeTrue())
		})
	})

	Describe("Me", func() {
		It("routes a user without roles to the viewer view", func() {
			stub.session = identity.NewSession(identity.User{ID: 1, Email: "a@example.com", CreatedAt: time.Now()}, nil)
			w := serve(handler.AuthMiddleware(http.HandlerFunc(handler.Me)), "abc")
			Expect(w.Code).To(Equal(http.StatusOK))

			var resp auth.SessionResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			Expect(resp.Roles).To(BeEmpty())
			Expect(resp.DefaultView).To(Equal("viewer"))
		})
	})

	Describe("RBACAuthorization", func() {
		It("lets approvers through the approve gate and stops requesters", func() {
			stub.session = identity.NewSession(identity.User{ID: 1}, identity.Roles{identity.RoleApprover})
			gated := handler.AuthMiddleware(rbac.Require(identity.ActionApprove, identity.KindExpense)(next))
			Expect(serve(gated, "abc").Code).To(Equal(http.StatusNoContent))

			stub.session = identity.NewSession(identity.User{ID: 2}, identity.Roles{identity.RoleRequester})
			reached = false
			w := serve(gated, "abc")
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(errorCode(w)).To(Equal("PERMISSION_DENIED"))
			Expect(reached).To(BeFalse())
		})

		It("requires admin for elevated routes", func() {
			stub.session = identity.NewSession(identity.User{ID: 1}, identity.Roles{identity.RoleApprover, identity.RolePayer})
			gated := handler.AuthMiddleware(rbac.RequireAdmin()(next))
			Expect(serve(gated, "abc").Code).To(Equal(http.StatusForbidden))

			stub.session = identity.NewSession(identity.User{ID: 1}, identity.Roles{identity.RoleAdmin})
			Expect(serve(gated, "abc").Code).To(Equal(http.StatusNoContent))
		})

		It("answers 401 when no session was established", func() {
			w := serve(rbac.RequireAdmin()(next), "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})
})
