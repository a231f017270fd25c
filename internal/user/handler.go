package user

import (
	"context"
	"net/http"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	List(ctx context.Context, session *identity.Session, role string) ([]*User, error)
	Get(ctx context.Context, session *identity.Session, id int64) (*User, error)
	Create(ctx context.Context, session *identity.Session, dto CreateUserDTO) (*User, error)
	Update(ctx context.Context, session *identity.Session, id int64, dto UpdateUserDTO) (*User, error)
	Delete(ctx context.Context, session *identity.Session, id int64) error
	AssignRole(ctx context.Context, session *identity.Session, id int64, role string) (*User, error)
	RemoveRole(ctx context.Context, session *identity.Session, id int64, role string) (*User, error)
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

// ListUsers handles GET /admin/users?role=
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}

	users, err := h.Service.List(r.Context(), session, r.URL.Query().Get("role"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, UsersResponse{Users: users})
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
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

	u, err := h.Service.Get(r.Context(), session, id)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	session, ok := identity.SessionFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrInvalidToken)
		return
	}

	var dto CreateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	u, err := h.Service.Create(r.Context(), session, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
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

	var dto UpdateUserDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	u, err := h.Service.Update(r.Context(), session, id, dto)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
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

// AssignRole handles POST /admin/users/{id}/roles
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
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

	var dto RoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, err)
		return
	}

	u, err := h.Service.AssignRole(r.Context(), session, id, dto.Role)
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// RemoveRole handles DELETE /admin/users/{id}/roles/{role}
func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
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

	u, err := h.Service.RemoveRole(r.Context(), session, id, chi.URLParam(r, "role"))
	if err != nil {
		h.WriteAppError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}
