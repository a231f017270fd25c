package auth

import (
	"context"
	"net/http"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

type ServiceAPI interface {
	RequestCode(ctx context.Context, dto RequestCodeDTO) error
	VerifyCode(ctx context.Context, dto VerifyCodeDTO) (*LoginResponse, error)
	RefreshTokens(ctx context.Context, dto RefreshTokenDTO) (AuthTokens, error)
	Authenticate(ctx context.Context, accessToken string) (*identity.Session, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// RequestCode handles POST /auth/otp
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var dto RequestCodeDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	if err := h.Service.RequestCode(r.Context(), dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "code_sent"})
}

// VerifyCode handles POST /auth/otp/verify
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var dto VerifyCodeDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	resp, err := h.Service.VerifyCode(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// Me handles GET /me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}
	h.WriteJSON(w, http.StatusOK, NewSessionResponse(session))
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, errors.NewUnauthorizedError("missing authorization token", errors.ErrCodeInvalidToken))
			return
		}

		session, err := h.Service.Authenticate(r.Context(), token)
		if err != nil {
			h.WriteAppError(w, err)
			return
		}

		ctx := identity.WithSession(r.Context(), session)
		ctx = logger.With(ctx, "user_id", session.UserID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
