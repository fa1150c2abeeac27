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

	"github.com/optica-erp/optica-backend/internal/adjustments"
	"github.com/optica-erp/optica-backend/internal/app"
	"github.com/optica-erp/optica-backend/internal/inventory"
	"github.com/optica-erp/optica-backend/internal/masterdata/branches"
	"github.com/optica-erp/optica-backend/internal/masterdata/categories"
	"github.com/optica-erp/optica-backend/internal/masterdata/products"
	"github.com/optica-erp/optica-backend/internal/observability"
	"github.com/optica-erp/optica-backend/internal/platform/cache"
	"github.com/optica-erp/optica-backend/internal/platform/db"
	"github.com/optica-erp/optica-backend/internal/reporting"
	"github.com/optica-erp/optica-backend/internal/sales"
	"github.com/optica-erp/optica-backend/internal/shared"
	"github.com/optica-erp/optica-backend/internal/shipments"
	"github.com/optica-erp/optica-backend/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, caching disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	approvalRecorder := shared.NewApprovalRecorder(pool, logger)
	mutator := inventory.NewMutator()

	branchService := branches.NewService(branches.NewRepository(pool), redisClient)
	if err := branchService.VerifyWarehouseInvariant(ctx); err != nil {
		logger.Error("warehouse invariant", slog.Any("error", err))
		os.Exit(1)
	}
	categoryService := categories.NewService(categories.NewRepository(pool))
	productService := products.NewService(products.NewRepository(pool))

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("job queue unavailable", slog.Any("error", err))
		jobClient = nil
	}
	defer func() {
		if jobClient != nil {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}
	}()
	notifier := jobs.NewLowStockNotifier(jobClient, logger)

	saleService := sales.NewService(sales.NewRepository(pool), productService, categoryService, branchService, mutator, notifier)
	adjustmentService := adjustments.NewService(adjustments.NewRepository(pool), branchService, mutator, approvalRecorder)
	shipmentService := shipments.NewService(shipments.NewRepository(pool), branchService, mutator)
	reportingService := reporting.NewService(reporting.NewRepository(pool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Metrics:            metrics,
		BranchesHandler:    branches.NewHandler(logger, branchService),
		CategoriesHandler:  categories.NewHandler(logger, categoryService),
		ProductsHandler:    products.NewHandler(logger, productService),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService),
		SalesHandler:       sales.NewHandler(logger, saleService),
		AdjustmentsHandler: adjustments.NewHandler(logger, adjustmentService),
		ShipmentsHandler:   shipments.NewHandler(logger, shipmentService),
		ReportingHandler:   reporting.NewHandler(logger, reportingService),
		JobHandler:         jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
