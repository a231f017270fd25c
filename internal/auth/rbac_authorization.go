package auth

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

// RBACAuthorization gates routes on the role-only part of identity.Can.
// Ownership checks stay in the services.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

func (ra *RBACAuthorization) Check(next http.HandlerFunc, action identity.Action, kind identity.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := identity.SessionFromContext(r.Context())
		if !ok {
			ra.Logger.Warn("authorization check failed: no session in context")
			ra.WriteAppError(w, errors.ErrInvalidToken)
			return
		}

		if !identity.Can(session, action, identity.Of(kind)) {
			ra.Logger.WarnContext(r.Context(), "access denied",
				"user_id", session.UserID(),
				"action", action,
				"kind", kind,
				"roles", session.Roles.Strings())
			ra.WriteAppError(w, errors.ErrPermissionDenied)
			return
		}

		next.ServeHTTP(w, r)
	}
}

func (ra *RBACAuthorization) Require(action identity.Action, kind identity.Kind) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return ra.Check(next.ServeHTTP, action, kind)
	}
}

// RequireAdmin guards the elevated-privilege routes.
func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := identity.SessionFromContext(r.Context())
			if !ok {
				ra.WriteAppError(w, errors.ErrInvalidToken)
				return
			}
			if !session.IsAdmin() {
				ra.Logger.WarnContext(r.Context(), "access denied: admin required", "user_id", session.UserID())
				ra.WriteAppError(w, errors.ErrPermissionDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
