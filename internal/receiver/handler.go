package receiver

import (
	"context"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

type ServiceAPI interface {
	List(ctx context.Context, session *identity.Session) ([]*Receiver, error)
	Get(ctx context.Context, session *identity.Session, id int64) (*Receiver, error)
	ByCategories(ctx context.Context, session *identity.Session, categoryIDs []int64) ([]*Receiver, error)
	Create(ctx context.Context, session *identity.Session, dto CreateReceiverDTO) (*Receiver, error)
	Update(ctx context.Context, session *identity.Session, id int64, dto UpdateReceiverDTO) (*Receiver, error)
	Delete(ctx context.Context, session *identity.Session, id int64) error
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

// GetReceivers handles GET /receivers. Repeating category_id narrows the list
// to receivers linked to any of them.
func (h *Handler) GetReceivers(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())

	raw := r.URL.Query()["category_id"]
	if len(raw) == 0 {
		receivers, err := h.Service.List(r.Context(), session)
		if err != nil {
			h.WriteAppError(w, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, ReceiversResponse{Receivers: receivers})
		return
	}

	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			h.WriteAppError(w, errors.NewValidationFieldError("category_id", "invalid category_id", errors.ErrCodeInvalidCategory))
			return
		}
		ids = append(ids, id)
	}

	receivers, err := h.Service.ByCategories(r.Context(), session, ids)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ReceiversResponse{Receivers: receivers})
}

func (h *Handler) GetReceiver(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	rc, err := h.Service.Get(r.Context(), session, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rc)
}

func (h *Handler) CreateReceiver(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())

	var dto CreateReceiverDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	rc, err := h.Service.Create(r.Context(), session, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, rc)
}

func (h *Handler) UpdateReceiver(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto UpdateReceiverDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	rc, err := h.Service.Update(r.Context(), session, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, rc)
}

func (h *Handler) DeleteReceiver(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	if err := h.Service.Delete(r.Context(), session, id); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
