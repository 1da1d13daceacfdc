package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"entryapi/internal/config"
	"entryapi/internal/controller"
	"entryapi/internal/database"
	"entryapi/internal/database/migration"
	handlers "entryapi/internal/http/handler"
	"entryapi/internal/http/middleware"
	"entryapi/internal/logging"
	"entryapi/internal/otel"
	"entryapi/internal/repository/postgres"
	"entryapi/internal/service"
	"entryapi/internal/storage"
)

func main() {
	// Load configuration (.env auto-loaded if present)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", logging.KeyError, err)
		os.Exit(1)
	}

	logger := logging.NewDefault(cfg.LogLevel, cfg.Location)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		fatal(logger, "failed to initialize tracing", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", logging.KeyError, err)
		}
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, logger)
	if err != nil {
		fatal(logger, "failed to connect to database", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		fatal(logger, "failed to migrate database", err)
	}

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		fatal(logger, "failed to initialize object storage", err)
	}

	entryRepo := postgres.NewEntryPostgres(db)
	entrySvc := service.NewEntryService(objStore, entryRepo, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		fatal(logger, "failed to register metrics", err)
	}

	metricsGuard, err := middleware.MetricsAuth(cfg.MetricsPasswordFile)
	if err != nil {
		fatal(logger, "failed to load metrics credentials", err)
	}

	var next controller.ErrorContinuation = controller.Propagate
	if cfg.ErrorMode == "discard" {
		next = controller.Discard(logger)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(logger),
	})

	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.LoggerWithWriter(os.Stdout, cfg.Location))
	app.Use(promMW.Handler())

	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:                db,
		Entries:           entrySvc,
		Gatherer:          reg,
		MetricsGuard:      metricsGuard,
		ErrorContinuation: next,
		PresignExpiry:     cfg.MinIO.PresignExpiry(),
		APIHost:           cfg.AppHost,
	})

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			logger.Error("server shutdown failed", logging.KeyError, err)
		}
	}()

	logger.Info("server_starting", "addr", ":"+cfg.Port, "error_mode", cfg.ErrorMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		fatal(logger, "failed to start server", err)
	}
	logger.Info("server_stopped")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, logging.KeyError, err)
	os.Exit(1)
}
