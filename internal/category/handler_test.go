package category_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/frahmantamala/expense-approval/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-approval/internal/category/postgres"
	"github.com/frahmantamala/expense-approval/internal/core/database/testdb"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Category Handler Integration", func() {
	var (
		db      *gorm.DB
		handler *category.Handler
		router  chi.Router
		session *identity.Session
	)

	withSession := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(identity.WithSession(r.Context(), session)))
		})
	}

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		var err error
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		repo := categoryPostgres.NewCategoryRepository(db)
		service := category.NewService(repo, slogger)
		handler = category.NewHandler(transport.NewBaseHandler(slogger), service)

		session = identity.NewSession(identity.User{ID: 1}, identity.Roles{identity.RoleAdmin})
		for _, d := range []string{"Transporte", "Comida"} {
			_, err := service.CreateCategory(context.Background(), session, category.CategoryDTO{Description: d})
			Expect(err).NotTo(HaveOccurred())
		}

		router = chi.NewRouter()
		router.Use(withSession)
		router.Get("/categories", handler.GetCategories)
		router.Get("/categories/{id}/accounts", handler.GetCategoryAccounts)
		router.Post("/admin/categories", handler.CreateCategory)
		router.Delete("/admin/categories/{id}", handler.DeleteCategory)
		router.Post("/admin/accounts", handler.CreateAccount)
		router.Get("/accounts", handler.GetAccounts)
	})

	AfterEach(func() {
		Expect(testdb.Close(db)).To(Succeed())
	})

	It("should handle GET /categories request successfully", func() {
		w := do(http.MethodGet, "/categories", "")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		var response category.CategoriesResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())

		names := make([]string, len(response.Categories))
		for i, cat := range response.Categories {
			names[i] = cat.Description
		}
		Expect(names).To(Equal([]string{"Comida", "Transporte"}))
	})

	It("should hide deleted categories from the list", func() {
		Expect(do(http.MethodDelete, "/admin/categories/1", "").Code).To(Equal(http.StatusNoContent))
		Expect(do(http.MethodDelete, "/admin/categories/1", "").Code).To(Equal(http.StatusNotFound))

		var response category.CategoriesResponse
		Expect(json.NewDecoder(do(http.MethodGet, "/categories", "").Body).Decode(&response)).To(Succeed())
		Expect(response.Categories).To(HaveLen(1))
	})

	It("should list accounts of one category", func() {
		Expect(do(http.MethodPost, "/admin/accounts", `{"category_id":1,"description":"Taxi"}`).Code).To(Equal(http.StatusCreated))
		Expect(do(http.MethodPost, "/admin/accounts", `{"category_id":2,"description":"Almuerzo"}`).Code).To(Equal(http.StatusCreated))

		var response category.AccountsResponse
		Expect(json.NewDecoder(do(http.MethodGet, "/categories/1/accounts", "").Body).Decode(&response)).To(Succeed())
		Expect(response.Accounts).To(HaveLen(1))
		Expect(response.Accounts[0].Description).To(Equal("Taxi"))

		Expect(do(http.MethodGet, "/accounts?category_id=abc", "").Code).To(Equal(http.StatusBadRequest))
	})

	It("should forbid writes for non-admins", func() {
		session = identity.NewSession(identity.User{ID: 2}, identity.Roles{identity.RoleViewer})
		w := do(http.MethodPost, "/admin/categories", `{"description":"Hotel"}`)
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("should reject unknown fields", func() {
		w := do(http.MethodPost, "/admin/categories", `{"description":"Hotel","name":"x"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
