package report

import (
	"context"
	"net/http"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

type ServiceAPI interface {
	Summary(ctx context.Context, session *identity.Session, rg Range) (*Summary, error)
	Dashboard(ctx context.Context, session *identity.Session, rg Range) (*Dashboard, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// GetDashboard handles GET /reports/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}

	rg, err := ParseRange(r.URL.Query())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	dashboard, err := h.Service.Dashboard(r.Context(), session, rg)
	if err != nil {
		h.Logger.Error("GetDashboard: failed to build dashboard", "error", err, "user_id", session.UserID())
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dashboard)
}

// GetSummary handles GET /reports/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}

	rg, err := ParseRange(r.URL.Query())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	summary, err := h.Service.Summary(r.Context(), session, rg)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}
