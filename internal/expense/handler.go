package expense

import (
	"context"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/storage"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

type ServiceAPI interface {
	Create(ctx context.Context, session *identity.Session, dto CreateExpenseDTO) (*Expense, error)
	Get(ctx context.Context, session *identity.Session, id int64) (*Expense, error)
	List(ctx context.Context, session *identity.Session, filter Filter) ([]*Expense, error)
	ListMine(ctx context.Context, session *identity.Session, filter Filter) ([]*Expense, error)
	ListPending(ctx context.Context, session *identity.Session, limit, offset int) ([]*Expense, error)
	Recent(ctx context.Context, session *identity.Session, limit int) ([]*Expense, error)
	Update(ctx context.Context, session *identity.Session, id int64, dto UpdateExpenseDTO) (*Expense, error)
	Delete(ctx context.Context, session *identity.Session, id int64) error
	Approve(ctx context.Context, session *identity.Session, id int64, dto ApproveExpenseDTO) (*Expense, error)
	Reject(ctx context.Context, session *identity.Session, id int64, dto RejectExpenseDTO) (*Expense, error)
	Pay(ctx context.Context, session *identity.Session, id int64, dto PayExpenseDTO) (*Expense, error)
	UploadQuotation(ctx context.Context, session *identity.Session, id int64, file Upload) (*Expense, error)
	UploadReceipt(ctx context.Context, session *identity.Session, id int64, file Upload) (*Expense, error)
}

type Handler struct {
	*transport.BaseHandler
	Service        ServiceAPI
	MaxUploadBytes int64
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = storage.DefaultMaxUploadBytes
	}
	return &Handler{
		BaseHandler:    baseHandler,
		Service:        service,
		MaxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}

	var dto CreateExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	e, err := h.Service.Create(r.Context(), session, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	e, err := h.Service.Get(r.Context(), session, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

// ListExpenses handles GET /expenses with the filter query parameters.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, s *identity.Session, f Filter) ([]*Expense, error) {
		return h.Service.List(ctx, s, f)
	})
}

func (h *Handler) ListMyExpenses(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, s *identity.Session, f Filter) ([]*Expense, error) {
		return h.Service.ListMine(ctx, s, f)
	})
}

func (h *Handler) ListPendingExpenses(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, s *identity.Session, f Filter) ([]*Expense, error) {
		return h.Service.ListPending(ctx, s, f.Limit, f.Offset)
	})
}

// RecentExpenses handles GET /expenses/recent?limit=
func (h *Handler) RecentExpenses(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}

	limit := DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 {
			h.WriteAppError(w, errors.NewValidationFieldError("limit", "invalid limit", errors.ErrCodeValidationFailed))
			return
		}
		limit = ClampLimit(l, DefaultRecentLimit)
	}

	expenses, err := h.Service.Recent(r.Context(), session, limit)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ExpensesResponse{Expenses: expenses, Limit: limit})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, *identity.Session, Filter) ([]*Expense, error)) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	expenses, err := fetch(r.Context(), session, filter)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ExpensesResponse{
		Expenses: expenses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

func (h *Handler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto UpdateExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	e, err := h.Service.Update(r.Context(), session, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}
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

func (h *Handler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto ApproveExpenseDTO
	if r.ContentLength != 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.WriteAppError(w, err)
			return
		}
	}

	e, err := h.Service.Approve(r.Context(), session, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto RejectExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	e, err := h.Service.Reject(r.Context(), session, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) PayExpense(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto PayExpenseDTO
	if r.ContentLength != 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.WriteAppError(w, err)
			return
		}
	}

	e, err := h.Service.Pay(r.Context(), session, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}

// UploadQuotation handles POST /expenses/{id}/quotation (multipart, field "file").
func (h *Handler) UploadQuotation(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.Service.UploadQuotation)
}

// UploadReceipt handles POST /expenses/{id}/receipt (multipart, field "file").
func (h *Handler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, h.Service.UploadReceipt)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, attach func(context.Context, *identity.Session, int64, Upload) (*Expense, error)) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	// multipart framing needs a little headroom over the file itself
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		h.WriteAppError(w, errors.NewValidationFieldError("file", "invalid or oversized multipart body", errors.ErrCodeInvalidFile))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteAppError(w, errors.NewValidationFieldError("file", "file is required", errors.ErrCodeInvalidFile))
		return
	}
	defer file.Close()

	e, err := attach(r.Context(), session, id, Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, e)
}
