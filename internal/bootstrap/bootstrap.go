// Package bootstrap opens the storage backend, id generator and readiness
// probes selected by configuration. Both the API server and casectl start
// from here.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/idgen"
	"github.com/spec-kit/case-service/internal/persistence"
	"github.com/spec-kit/case-service/internal/repository"
)

// Backend is the opened persistence stack.
type Backend struct {
	Cases   repository.CaseStore
	History repository.HistoryLog
	IDs     idgen.Generator
	Probes  map[string]func(ctx context.Context) error

	closers []func()
}

// Open connects the configured store. The caller must Close the result.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	b := &Backend{Probes: map[string]func(context.Context) error{}}

	redis := persistence.NewRedis(cfg.Redis, logger)
	b.closers = append(b.closers, redis.Close)
	if redis.Enabled() {
		b.Probes["redis"] = redis.Ping
	}

	if err := b.openStore(ctx, cfg, logger); err != nil {
		b.Close()
		return nil, err
	}
	b.Probes["cases"] = b.Cases.Ping

	switch cfg.IDs.Strategy {
	case config.IDStrategyToken:
		b.IDs = idgen.NewTokenGenerator(cfg.IDs.Prefix)
	default:
		var counter idgen.CounterStore
		if cfg.IDs.CounterBackend == config.CounterBackendRedis {
			if !redis.Enabled() {
				b.Close()
				return nil, fmt.Errorf("redis id counter requires REDIS_ADDR")
			}
			counter = idgen.NewRedisCounter(redis.Client, fmt.Sprintf("%s:%s:counter", cfg.App.Name, cfg.IDs.Prefix))
		} else {
			if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
				b.Close()
				return nil, fmt.Errorf("create data dir: %w", err)
			}
			counter = idgen.NewFileCounter(cfg.Storage.DataDir)
		}
		b.IDs = idgen.NewCounterGenerator(cfg.IDs.Prefix, counter)
	}

	logger.Info("storage ready",
		zap.String("driver", cfg.Storage.Driver),
		zap.String("id_strategy", cfg.IDs.Strategy))
	return b, nil
}

func (b *Backend) openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pg.Close)
		if pg.PoolHandle() == nil {
			return fmt.Errorf("postgres storage requires POSTGRES_DSN")
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		b.Cases = repository.NewPostgresCaseStore(pg.PoolHandle())
		b.History = repository.NewPostgresHistoryLog(pg.PoolHandle())
	case config.StorageDriverBadger:
		db, err := persistence.NewBadger(cfg.Badger, logger)
		if err != nil {
			return fmt.Errorf("open badger: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		b.Cases = repository.NewBadgerCaseStore(db.DB)
		b.History = repository.NewBadgerHistoryLog(db.DB)
	default:
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		b.Cases = repository.NewJSONCaseStore(cfg.Storage.DataDir)
		b.History = repository.NewJSONHistoryLog(cfg.Storage.DataDir)
	}
	return nil
}

// Close releases every opened resource in reverse order.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
