package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/category"
	"github.com/frahmantamala/expense-approval/internal/core/identity"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/receiver"
	"github.com/frahmantamala/expense-approval/internal/report"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	"github.com/frahmantamala/expense-approval/internal/transport/swagger"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Health   *HealthHandler
	Auth     *auth.Handler
	User     *user.Handler
	Category *category.Handler
	Receiver *receiver.Handler
	Expense  *expense.Handler
	Report   *report.Handler
}

type RouterConfig struct {
	Spec           []byte
	Validator      func(http.Handler) http.Handler
	Metrics        *middleware.HTTPMetrics
	Gatherer       prometheus.Gatherer
	MetricsPath    string
	RequestTimeout time.Duration
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, cfg RouterConfig, logger *slog.Logger) {
	rbac := auth.NewRBACAuthorization(logger)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware)
	}
	router.Use(middleware.LoggingMiddleware)
	if cfg.RequestTimeout > 0 {
		router.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.Health.WriteError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.Health.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	if cfg.Spec != nil {
		router.Get(swagger.SpecPath, swagger.SpecHandler(cfg.Spec))
		router.Handle("/swagger/*", swagger.Handler())
	}
	if cfg.Gatherer != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		if cfg.Validator != nil {
			r.Use(cfg.Validator)
		}

		r.Get("/ping", h.Health.Ping)
		r.Get("/health", h.Health.Health)

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/otp", h.Auth.RequestCode)
			ar.Post("/otp/verify", h.Auth.VerifyCode)
			ar.Post("/refresh", h.Auth.RefreshToken)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/me", h.Auth.Me)

			pr.Get("/categories", h.Category.GetCategories)
			pr.Get("/categories/{id}", h.Category.GetCategory)
			pr.Get("/categories/{id}/accounts", h.Category.GetCategoryAccounts)
			pr.Get("/accounts", h.Category.GetAccounts)
			pr.Get("/accounts/{id}", h.Category.GetAccount)
			pr.Get("/receivers", h.Receiver.GetReceivers)
			pr.Get("/receivers/{id}", h.Receiver.GetReceiver)

			pr.Route("/expenses", func(er chi.Router) {
				er.With(rbac.Require(identity.ActionCreate, identity.KindExpense)).Post("/", h.Expense.CreateExpense)
				er.Get("/", h.Expense.ListExpenses)
				er.Get("/mine", h.Expense.ListMyExpenses)
				er.With(rbac.Require(identity.ActionListAll, identity.KindExpense)).Get("/pending", h.Expense.ListPendingExpenses)
				er.Get("/recent", h.Expense.RecentExpenses)

				er.Get("/{id}", h.Expense.GetExpense)
				er.Patch("/{id}", h.Expense.UpdateExpense)
				er.Delete("/{id}", h.Expense.DeleteExpense)
				er.Post("/{id}/quotation", h.Expense.UploadQuotation)

				er.With(rbac.Require(identity.ActionApprove, identity.KindExpense)).Post("/{id}/approve", h.Expense.ApproveExpense)
				er.With(rbac.Require(identity.ActionReject, identity.KindExpense)).Post("/{id}/reject", h.Expense.RejectExpense)
				er.With(rbac.Require(identity.ActionPay, identity.KindExpense)).Post("/{id}/pay", h.Expense.PayExpense)
				er.With(rbac.Require(identity.ActionAttachReceipt, identity.KindExpense)).Post("/{id}/receipt", h.Expense.UploadReceipt)
			})

			pr.Route("/reports", func(rr chi.Router) {
				rr.Use(rbac.Require(identity.ActionRead, identity.KindReport))
				rr.Get("/dashboard", h.Report.GetDashboard)
				rr.Get("/summary", h.Report.GetSummary)
			})

			pr.Route("/admin", func(adm chi.Router) {
				adm.Use(rbac.RequireAdmin())

				adm.Get("/users", h.User.ListUsers)
				adm.Post("/users", h.User.CreateUser)
				adm.Get("/users/{id}", h.User.GetUser)
				adm.Patch("/users/{id}", h.User.UpdateUser)
				adm.Delete("/users/{id}", h.User.DeleteUser)
				adm.Post("/users/{id}/roles", h.User.AssignRole)
				adm.Delete("/users/{id}/roles/{role}", h.User.RemoveRole)

				adm.Post("/categories", h.Category.CreateCategory)
				adm.Put("/categories/{id}", h.Category.UpdateCategory)
				adm.Delete("/categories/{id}", h.Category.DeleteCategory)
				adm.Post("/accounts", h.Category.CreateAccount)
				adm.Patch("/accounts/{id}", h.Category.UpdateAccount)
				adm.Delete("/accounts/{id}", h.Category.DeleteAccount)

				adm.Post("/receivers", h.Receiver.CreateReceiver)
				adm.Patch("/receivers/{id}", h.Receiver.UpdateReceiver)
				adm.Delete("/receivers/{id}", h.Receiver.DeleteReceiver)
			})
		})
	})
}
