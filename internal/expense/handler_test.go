package expense_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	appErrors "github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

// stubService records what the handler passed down.
type stubService struct {
	expense.ServiceAPI
	filter    expense.Filter
	rejectDTO expense.RejectExpenseDTO
	payDTO    expense.PayExpenseDTO
	upload    expense.Upload
	body      string
	err       error
}

func (s *stubService) List(_ context.Context, _ *identity.Session, f expense.Filter) ([]*expense.Expense, error) {
	s.filter = f
	return []*expense.Expense{{ID: 1, Amount: decimal.NewFromInt(5), Phase: expense.PhaseCreated}}, s.err
}

func (s *stubService) Reject(_ context.Context, _ *identity.Session, id int64, dto expense.RejectExpenseDTO) (*expense.Expense, error) {
	s.rejectDTO = dto
	if s.err != nil {
		return nil, s.err
	}
	return &expense.Expense{ID: id, Phase: expense.PhaseRejected}, nil
}

func (s *stubService) Pay(_ context.Context, _ *identity.Session, id int64, dto expense.PayExpenseDTO) (*expense.Expense, error) {
	s.payDTO = dto
	if s.err != nil {
		return nil, s.err
	}
	return &expense.Expense{ID: id, Phase: expense.PhasePaid}, nil
}

func (s *stubService) UploadQuotation(_ context.Context, _ *identity.Session, id int64, file expense.Upload) (*expense.Expense, error) {
	s.upload = file
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(file.Body)
	s.body = buf.String()
	return &expense.Expense{ID: id}, nil
}

var _ = Describe("Expense Handler", func() {
	var (
		stub    *stubService
		router  chi.Router
		session *identity.Session
	)

	BeforeEach(func() {
		stub = &stubService{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		h := expense.NewHandler(transport.NewBaseHandler(logger), stub, 1024)
		session = identity.NewSession(identity.User{ID: 20}, identity.Roles{identity.RoleApprover})

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if session != nil {
					r = r.WithContext(identity.WithSession(r.Context(), session))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Get("/expenses", h.ListExpenses)
		router.Post("/expenses/{id}/reject", h.RejectExpense)
		router.Post("/expenses/{id}/pay", h.PayExpense)
		router.Post("/expenses/{id}/quotation", h.UploadQuotation)
	})

	It("passes parsed filters to the service", func() {
		req := httptest.NewRequest(http.MethodGet, "/expenses?phase=pending&start_date=2024-01-01&end_date=2024-01-31&limit=5", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(stub.filter.Phases).To(Equal([]expense.Phase{expense.PhaseCreated}))
		Expect(stub.filter.Limit).To(Equal(5))

		var response expense.ExpensesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Expenses).To(HaveLen(1))
	})

	It("rejects non-padded dates with 400", func() {
		req := httptest.NewRequest(http.MethodGet, "/expenses?start_date=2024-1-1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 401 without a session", func() {
		session = nil
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/expenses", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("maps invalid transitions to 409", func() {
		stub.err = appErrors.ErrInvalidTransition
		req := httptest.NewRequest(http.MethodPost, "/expenses/3/reject", strings.NewReader(`{"comment":"no"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(stub.rejectDTO.Comment).To(Equal("no"))
	})

	It("accepts a pay request without a body", func() {
		req := httptest.NewRequest(http.MethodPost, "/expenses/3/pay", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(stub.payDTO.PaymentDate).To(BeNil())
	})

	It("streams a multipart file to the service", func() {
		body := new(bytes.Buffer)
		mw := multipart.NewWriter(body)
		part, err := mw.CreateFormFile("file", "cotizacion.pdf")
		Expect(err).NotTo(HaveOccurred())
		_, _ = part.Write([]byte("%PDF-1.4"))
		Expect(mw.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/expenses/3/quotation", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(stub.upload.Filename).To(Equal("cotizacion.pdf"))
		Expect(stub.upload.Size).To(Equal(int64(8)))
		Expect(stub.body).To(Equal("%PDF-1.4"))
	})

	It("requires the file field", func() {
		body := new(bytes.Buffer)
		mw := multipart.NewWriter(body)
		Expect(mw.WriteField("note", "x")).To(Succeed())
		Expect(mw.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/expenses/3/quotation", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
