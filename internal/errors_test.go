package internal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	appErrors "github.com/frahmantamala/expense-approval/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("matches sentinels through wrapping and copies", func() {
		wrapped := fmt.Errorf("loading: %w", appErrors.ErrExpenseNotFound.WithCause(errors.New("no rows")))

		Expect(errors.Is(wrapped, appErrors.ErrExpenseNotFound)).To(BeTrue())
		Expect(errors.Is(wrapped, appErrors.ErrUserNotFound)).To(BeFalse())
		Expect(appErrors.IsType(wrapped, appErrors.ErrorTypeNotFound)).To(BeTrue())
	})

	It("does not mutate shared sentinels", func() {
		_ = appErrors.ErrPermissionDenied.WithDetails("x")
		_ = appErrors.ErrPermissionDenied.WithCause(errors.New("y"))

		Expect(appErrors.ErrPermissionDenied.Details).To(BeNil())
		Expect(appErrors.ErrPermissionDenied.Cause).To(BeNil())
	})

	It("maps each type to its status code", func() {
		Expect(appErrors.NewValidationError("bad", appErrors.ErrCodeInvalidAmount).StatusCode).To(Equal(http.StatusBadRequest))
		Expect(appErrors.ErrInvalidToken.StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(appErrors.ErrPermissionDenied.StatusCode).To(Equal(http.StatusForbidden))
		Expect(appErrors.ErrExpenseNotFound.StatusCode).To(Equal(http.StatusNotFound))
		Expect(appErrors.ErrInvalidTransition.StatusCode).To(Equal(http.StatusConflict))
		Expect(appErrors.NewStoreUnavailableError("down", nil).StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(appErrors.NewInternalError("boom", nil).StatusCode).To(Equal(http.StatusInternalServerError))
	})

	It("surfaces the first field message for validation errors", func() {
		err := appErrors.NewValidationFieldError("amount", "amount must be positive", appErrors.ErrCodeInvalidAmount)

		Expect(err.Error()).To(Equal("amount must be positive"))
		Expect(err.GetDetailedMessage()).To(Equal("amount must be positive"))
	})

	It("includes the cause in Error but never in JSON", func() {
		err := appErrors.NewStoreUnavailableError("store unavailable", errors.New("dial tcp: refused"))
		Expect(err.Error()).To(ContainSubstring("dial tcp"))

		status, body := err.ToHTTPResponse()
		Expect(status).To(Equal(http.StatusServiceUnavailable))

		raw, marshalErr := json.Marshal(body)
		Expect(marshalErr).NotTo(HaveOccurred())
		Expect(string(raw)).To(MatchJSON(`{"error":{"type":"STORE_UNAVAILABLE","code":"STORE_UNAVAILABLE","message":"store unavailable"}}`))
	})

	It("reports non-app errors as such", func() {
		_, ok := appErrors.IsAppError(errors.New("plain"))
		Expect(ok).To(BeFalse())
		Expect(appErrors.IsType(nil, appErrors.ErrorTypeInternal)).To(BeFalse())
	})
})
