package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/go-chi/chi"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a plain error envelope for failures that never reached a
// service, such as an unreadable body.
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	code := errors.ErrorCode(strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_")))
	h.WriteAppError(w, &errors.AppError{
		Type:       errorTypeForStatus(status),
		Code:       code,
		Message:    message,
		StatusCode: status,
	})
}

// WriteAppError renders any error as {"error": {...}}. Errors that are not an
// AppError become a 500 without leaking their text.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, err error) {
	appErr, ok := errors.IsAppError(err)
	if !ok {
		appErr = errors.NewInternalError("internal server error", err)
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		h.Logger.Error("http error", "status", appErr.StatusCode, "code", appErr.Code, "error", err)
	} else {
		h.Logger.Warn("http error", "status", appErr.StatusCode, "code", appErr.Code, "message", appErr.GetDetailedMessage())
	}

	status, body := appErr.ToHTTPResponse()
	h.WriteJSON(w, status, body)
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewValidationError("invalid request body: "+err.Error(), errors.ErrCodeValidationFailed)
	}
	return nil
}

// IDParam parses a positive int64 chi URL parameter.
func (h *BaseHandler) IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationFieldError(name, "invalid "+name, errors.ErrCodeValidationFailed)
	}
	return id, nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}

func errorTypeForStatus(status int) errors.ErrorType {
	switch status {
	case http.StatusBadRequest:
		return errors.ErrorTypeValidation
	case http.StatusUnauthorized:
		return errors.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return errors.ErrorTypeForbidden
	case http.StatusNotFound:
		return errors.ErrorTypeNotFound
	case http.StatusConflict:
		return errors.ErrorTypeConflict
	case http.StatusServiceUnavailable:
		return errors.ErrorTypeStoreUnavailable
	default:
		return errors.ErrorTypeInternal
	}
}
