// Command casectl administers cases directly against the configured store.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/bootstrap"
	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/service"
)

func main() {
	if err := newRootCmd(openService).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openService wires the case service from environment configuration. Logs
// go to stderr so stdout stays machine readable.
func openService(ctx context.Context) (*service.CaseService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App, "stderr")
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	backend, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewCaseService(service.CaseDependencies{
		Cases:           backend.Cases,
		History:         backend.History,
		IDs:             backend.IDs,
		Logger:          logger.With(zap.String("component", "casectl")),
		DefaultSLAHours: cfg.SLA.DefaultHours,
	})
	cleanup := func() {
		backend.Close()
		_ = logger.Sync()
	}
	return svc, cleanup, nil
}
