package receiver_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
	"github.com/frahmantamala/expense-approval/internal/core/database/testdb"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/receiver"
	receiverPostgres "github.com/frahmantamala/expense-approval/internal/receiver/postgres"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Receiver Handler", func() {
	var (
		db     *gorm.DB
		router chi.Router
	)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		var err error
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		for _, d := range []string{"Transporte", "Comida"} {
			Expect(db.Create(&categoryDatamodel.Category{Description: d}).Error).To(Succeed())
		}

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := receiver.NewService(receiverPostgres.NewReceiverRepository(db), logger)
		h := receiver.NewHandler(transport.NewBaseHandler(logger), service)

		admin := identity.NewSession(identity.User{ID: 1}, identity.Roles{identity.RoleAdmin})
		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(identity.WithSession(r.Context(), admin)))
			})
		})
		router.Get("/receivers", h.GetReceivers)
		router.Get("/receivers/{id}", h.GetReceiver)
		router.Post("/admin/receivers", h.CreateReceiver)
		router.Put("/admin/receivers/{id}", h.UpdateReceiver)
		router.Delete("/admin/receivers/{id}", h.DeleteReceiver)
	})

	AfterEach(func() {
		Expect(testdb.Close(db)).To(Succeed())
	})

	It("creates, filters and deletes receivers", func() {
		w := do(http.MethodPost, "/admin/receivers", `{"name":"Taxis Unidos","category_ids":[1]}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
		w = do(http.MethodPost, "/admin/receivers", `{"name":"Cafeteria","category_ids":[2]}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		var response receiver.ReceiversResponse
		Expect(json.NewDecoder(do(http.MethodGet, "/receivers?category_id=1", "").Body).Decode(&response)).To(Succeed())
		Expect(response.Receivers).To(HaveLen(1))
		Expect(response.Receivers[0].Name).To(Equal("Taxis Unidos"))

		Expect(json.NewDecoder(do(http.MethodGet, "/receivers?category_id=1&category_id=2", "").Body).Decode(&response)).To(Succeed())
		Expect(response.Receivers).To(HaveLen(2))

		Expect(do(http.MethodDelete, "/admin/receivers/1", "").Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodGet, "/receivers/1", "").Code).To(Equal(http.StatusOK))
	})

	It("rejects a rename with 400", func() {
		Expect(do(http.MethodPost, "/admin/receivers", `{"name":"Taxis Unidos","category_ids":[1]}`).Code).To(Equal(http.StatusCreated))
		w := do(http.MethodPut, "/admin/receivers/1", `{"name":"Otro"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("IMMUTABLE_FIELD"))
	})

	It("rejects a malformed category filter", func() {
		Expect(do(http.MethodGet, "/receivers?category_id=x", "").Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 404 for unknown receivers", func() {
		Expect(do(http.MethodGet, "/receivers/42", "").Code).To(Equal(http.StatusNotFound))
	})
})
