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

	"github.com/vigil-ops/vigil/internal/access"
	accesshttp "github.com/vigil-ops/vigil/internal/access/http"
	"github.com/vigil-ops/vigil/internal/app"
	"github.com/vigil-ops/vigil/internal/audit"
	audithttp "github.com/vigil-ops/vigil/internal/audit/http"
	"github.com/vigil-ops/vigil/internal/catalog"
	"github.com/vigil-ops/vigil/internal/directory"
	"github.com/vigil-ops/vigil/internal/observability"
	"github.com/vigil-ops/vigil/internal/platform/cache"
	"github.com/vigil-ops/vigil/internal/platform/db"
	"github.com/vigil-ops/vigil/jobs"
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

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo, logger)
	auditHandler := audithttp.NewHandler(logger, auditService)

	policyRepo := access.NewRepository(dbpool)
	snapshotter := access.NewSnapshotter(redisClient, cfg.SnapshotKey, cfg.SnapshotTTL)
	editor := access.NewEditor(access.EditorConfig{
		Store:     policyRepo,
		Logger:    logger,
		Audit:     auditService,
		Publisher: snapshotter,
	})
	if err := editor.Refresh(ctx, ""); err != nil {
		logger.Error("load policy", slog.Any("error", err))
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	directoryRepo := directory.NewRepository(dbpool)
	directoryService := directory.NewService(directoryRepo)
	directoryHandler := directory.NewHandler(logger, directoryService)

	accessHandler := accesshttp.NewHandler(logger, editor, directoryService, catalogService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AccessHandler:    accessHandler,
		CatalogHandler:   catalogHandler,
		DirectoryHandler: directoryHandler,
		AuditHandler:     auditHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
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
		logger.Error("http shutdown", slog.Any("error", err))
	}
}
