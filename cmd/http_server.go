package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/expense-approval/api"
	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	authPostgres "github.com/frahmantamala/expense-approval/internal/auth/postgres"
	"github.com/frahmantamala/expense-approval/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-approval/internal/category/postgres"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-approval/internal/expense/postgres"
	"github.com/frahmantamala/expense-approval/internal/receiver"
	receiverPostgres "github.com/frahmantamala/expense-approval/internal/receiver/postgres"
	"github.com/frahmantamala/expense-approval/internal/report"
	reportPostgres "github.com/frahmantamala/expense-approval/internal/report/postgres"
	"github.com/frahmantamala/expense-approval/internal/storage"
	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	"github.com/frahmantamala/expense-approval/internal/transport/rest"
	"github.com/frahmantamala/expense-approval/internal/user"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	router, err := NewRouter(deps)
	if err != nil {
		deps.Logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "env", deps.Config.Env)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

// NewRouter wires repositories, services and handlers onto a chi router.
func NewRouter(deps *Dependencies) (*chi.Mux, error) {
	cfg := deps.Config
	lg := deps.Logger
	base := transport.NewBaseHandler(lg)

	bus := events.NewEventBus(lg)
	bus.SubscribeAll(events.AuditLogHandler(lg), events.ExpenseEventTypes...)

	var routerCfg rest.RouterConfig
	if cfg.Observability.Metrics.Enabled && deps.Registry != nil {
		counter, err := events.NewTransitionCounter(deps.Registry)
		if err != nil {
			return nil, fmt.Errorf("register transition counter: %w", err)
		}
		bus.SubscribeAll(counter.Handle, events.ExpenseEventTypes...)

		httpMetrics, err := middleware.NewHTTPMetrics(deps.Registry)
		if err != nil {
			return nil, fmt.Errorf("register http metrics: %w", err)
		}
		routerCfg.Metrics = httpMetrics
		routerCfg.Gatherer = deps.Registry
		routerCfg.MetricsPath = cfg.Observability.Metrics.Path
	}

	doc, err := api.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	routerCfg.Spec = api.Spec()
	if cfg.Server.ValidateRequests {
		validator, err := middleware.OpenAPIValidator(doc, lg)
		if err != nil {
			return nil, fmt.Errorf("build request validator: %w", err)
		}
		routerCfg.Validator = validator
	}
	routerCfg.RequestTimeout = cfg.Server.WriteTimeout

	userService := user.NewService(userPostgres.NewUserRepository(deps.Gorm), lg)

	codes := auth.NewCodeIssuer(
		authPostgres.NewOTPRepository(deps.Gorm),
		auth.LogCodeSender{Logger: lg},
		auth.CodeIssuerConfig{
			TTL:         cfg.Security.OTPTTL,
			MaxAttempts: cfg.Security.OTPMaxAttempts,
			BCryptCost:  cfg.Security.BCryptCost,
		},
		lg,
	)
	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(codes, userService, tokens, lg)

	categoryService := category.NewService(categoryPostgres.NewCategoryRepository(deps.Gorm), lg)
	receiverService := receiver.NewService(receiverPostgres.NewReceiverRepository(deps.Gorm), lg)

	store := storage.NewClient(storage.Config{
		BaseURL:        cfg.Storage.BaseURL,
		PublicURL:      cfg.Storage.PublicURL,
		ServiceKey:     cfg.Storage.ServiceKey,
		Timeout:        cfg.Storage.Timeout,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	}, lg)
	expenseService := expense.NewService(expensePostgres.NewExpenseRepository(deps.Gorm), receiverService, store, bus, lg)

	reportService := report.NewService(reportPostgres.NewReportRepository(deps.DB), lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Health:   rest.NewHealthHandler(base, deps.DB, cfg.Database.QueryTimeout),
		Auth:     auth.NewHandler(base, authService),
		User:     user.NewHandler(base, userService),
		Category: category.NewHandler(base, categoryService),
		Receiver: receiver.NewHandler(base, receiverService),
		Expense:  expense.NewHandler(base, expenseService, store.MaxUploadBytes()),
		Report:   report.NewHandler(base, reportService),
	}, routerCfg, lg)

	return router, nil
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(config)

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		Registry: registry,
		Logger:   logger.LoggerWrapper(),
	}, nil
}

// initDB opens the pgx-backed pool shared by sqlx and gorm.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Open(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm layers gorm over the existing pool instead of opening a second one.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
}
