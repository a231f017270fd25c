package category

import (
	"context"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

type ServiceAPI interface {
	ListCategories(ctx context.Context, session *identity.Session) ([]*Category, error)
	GetCategory(ctx context.Context, session *identity.Session, id int64) (*Category, error)
	CreateCategory(ctx context.Context, session *identity.Session, dto CategoryDTO) (*Category, error)
	UpdateCategory(ctx context.Context, session *identity.Session, id int64, dto CategoryDTO) (*Category, error)
	DeleteCategory(ctx context.Context, session *identity.Session, id int64) error

	ListAccounts(ctx context.Context, session *identity.Session, categoryID *int64) ([]*Account, error)
	GetAccount(ctx context.Context, session *identity.Session, id int64) (*Account, error)
	CreateAccount(ctx context.Context, session *identity.Session, dto CreateAccountDTO) (*Account, error)
	UpdateAccount(ctx context.Context, session *identity.Session, id int64, dto UpdateAccountDTO) (*Account, error)
	DeleteAccount(ctx context.Context, session *identity.Session, id int64) error
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

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())

	categories, err := h.Service.ListCategories(r.Context(), session)
	if err != nil {
		h.Logger.Error("GetCategories: failed to get categories", "error", err)
		h.WriteAppError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CategoriesResponse{
		Categories: categories,
	})
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	c, err := h.Service.GetCategory(r.Context(), session, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

// GetCategoryAccounts handles GET /categories/{id}/accounts
func (h *Handler) GetCategoryAccounts(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	accounts, err := h.Service.ListAccounts(r.Context(), session, &id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, AccountsResponse{Accounts: accounts})
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())

	var dto CategoryDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	c, err := h.Service.CreateCategory(r.Context(), session, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto CategoryDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	c, err := h.Service.UpdateCategory(r.Context(), session, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	if err := h.Service.DeleteCategory(r.Context(), session, id); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAccounts handles GET /accounts?category_id=
func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())

	var categoryID *int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.WriteAppError(w, errors.NewValidationFieldError("category_id", "invalid category_id", errors.ErrCodeInvalidCategory))
			return
		}
		categoryID = &id
	}

	accounts, err := h.Service.ListAccounts(r.Context(), session, categoryID)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, AccountsResponse{Accounts: accounts})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	a, err := h.Service.GetAccount(r.Context(), session, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())

	var dto CreateAccountDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	a, err := h.Service.CreateAccount(r.Context(), session, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	var dto UpdateAccountDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	a, err := h.Service.UpdateAccount(r.Context(), session, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	session, _ := identity.SessionFromContext(r.Context())
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.WriteAppError(w, err)
		return
	}

	if err := h.Service.DeleteAccount(r.Context(), session, id); err != nil {
		h.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
