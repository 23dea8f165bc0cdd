package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/case-service/internal/api/http"
	"github.com/spec-kit/case-service/internal/api/http/handlers"
	"github.com/spec-kit/case-service/internal/bootstrap"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/service"
	"github.com/spec-kit/case-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer backend.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	notifications := worker.NewNotificationWorker(service.NewNotificationService(logger, cfg.Notification), logger, 0)
	notifications.Subscribe(dispatcher)
	notifications.Start(ctx)

	caseService := service.NewCaseService(service.CaseDependencies{
		Cases:           backend.Cases,
		History:         backend.History,
		IDs:             backend.IDs,
		Dispatcher:      dispatcher,
		Logger:          logger,
		DefaultSLAHours: cfg.SLA.DefaultHours,
	})

	sweeper := worker.NewSLASweeper(caseService, cfg.SLA.SweepInterval(), logger, metrics)
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("failed to start sla sweeper", zap.Error(err))
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, backend.Probes),
		Cases:     handlers.NewCasesHandler(caseService),
		History:   handlers.NewHistoryHandler(caseService),
		Metrics:   metrics,
		StaticDir: cfg.App.StaticDir,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := sweeper.Stop(stopCtx); err != nil {
		logger.Warn("sla sweeper did not stop cleanly", zap.Error(err))
	}
	if err := app.ShutdownWithContext(stopCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := notifications.Stop(stopCtx); err != nil {
		logger.Warn("notification worker did not drain", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
