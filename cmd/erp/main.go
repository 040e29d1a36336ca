package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/alvarodevdoo/erp/internal/app"
	"github.com/alvarodevdoo/erp/internal/audit"
	audithttp "github.com/alvarodevdoo/erp/internal/audit/http"
	"github.com/alvarodevdoo/erp/internal/auth"
	"github.com/alvarodevdoo/erp/internal/dashboard"
	"github.com/alvarodevdoo/erp/internal/inventory"
	"github.com/alvarodevdoo/erp/internal/masterdata/categories"
	"github.com/alvarodevdoo/erp/internal/masterdata/companies"
	"github.com/alvarodevdoo/erp/internal/masterdata/partners"
	"github.com/alvarodevdoo/erp/internal/masterdata/products"
	"github.com/alvarodevdoo/erp/internal/observability"
	"github.com/alvarodevdoo/erp/internal/platform/cache"
	"github.com/alvarodevdoo/erp/internal/platform/db"
	"github.com/alvarodevdoo/erp/internal/rbac"
	"github.com/alvarodevdoo/erp/internal/roles"
	"github.com/alvarodevdoo/erp/internal/sales/orders"
	"github.com/alvarodevdoo/erp/internal/sales/quotes"
	"github.com/alvarodevdoo/erp/internal/shared"
	"github.com/alvarodevdoo/erp/internal/users"
	"github.com/alvarodevdoo/erp/jobs"
)

const dashboardTTL = time.Minute

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	decimal.MarshalJSONWithoutQuotes = true

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(os.Args[2:]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	rbacService := rbac.NewService(rbac.NewStore(dbpool), redisClient, cfg.PermissionCacheTTL, logger)
	if err := rbacService.SyncCatalog(ctx); err != nil {
		logger.Warn("sync permission catalog", slog.Any("error", err))
	}
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		logger.Error("init token issuer", slog.Any("error", err))
		os.Exit(1)
	}
	authService := auth.NewService(auth.NewRepository(dbpool), tokens, auth.NewRevocationList(redisClient), rbacService)

	companiesService := companies.NewService(companies.NewRepository(dbpool), auditLogger, logger)
	usersService := users.NewService(users.NewRepository(dbpool), rbacService, auditLogger, logger)
	rolesService := roles.NewService(roles.NewRepository(dbpool), rbacService, auditLogger, logger)
	partnersService := partners.NewService(partners.NewRepository(dbpool), auditLogger, logger)
	categoriesService := categories.NewService(categories.NewRepository(dbpool), auditLogger, logger)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, metrics, logger)
	productsService := products.NewService(products.NewRepository(dbpool), inventoryService, auditLogger, logger)

	quotesService := quotes.NewService(quotes.NewRepository(dbpool), auditLogger, metrics, logger)
	ordersService := orders.NewService(orders.NewRepository(dbpool), auditLogger, metrics, logger)

	dashboardService := dashboard.NewService(
		dashboard.NewRepository(dbpool),
		inventoryService,
		dashboard.NewCache(redisClient, dashboardTTL, logger),
		cfg.LowStockLimit,
		logger,
	)
	auditService := audit.NewService(audit.NewRepository(dbpool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		AuthService:        authService,
		AuthHandler:        auth.NewHandler(logger, authService),
		CompaniesHandler:   companies.NewHandler(logger, companiesService, rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware),
		RolesHandler:       roles.NewHandler(logger, rolesService, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		PartnersHandler:    partners.NewHandler(logger, partnersService, rbacMiddleware),
		CategoriesHandler:  categories.NewHandler(logger, categoriesService, rbacMiddleware),
		ProductsHandler:    products.NewHandler(logger, productsService, rbacMiddleware),
		StockHandler:       inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		QuotesHandler:      quotes.NewHandler(logger, quotesService, rbacMiddleware),
		OrdersHandler:      orders.NewHandler(logger, ordersService, rbacMiddleware),
		DashboardHandler:   dashboard.NewHandler(logger, dashboardService, rbacMiddleware),
		AuditHandler:       audithttp.NewHandler(logger, auditService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
