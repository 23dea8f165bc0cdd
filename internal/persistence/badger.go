package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/config"
)

// Badger wraps an embedded BadgerDB instance.
type Badger struct {
	DB *badger.DB
}

// zapBadgerLogger adapts zap to badger's Logger interface.
type zapBadgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l zapBadgerLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func (l zapBadgerLogger) Warningf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l zapBadgerLogger) Infof(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l zapBadgerLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// NewBadger opens the database at cfg.Path, or in memory when requested.
func NewBadger(cfg config.BadgerConfig, logger *zap.Logger) (*Badger, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("badger path is required for persistent storage")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(zapBadgerLogger{sugar: logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	if logger != nil {
		logger.Info("opened badger store", zap.String("path", cfg.Path), zap.Bool("in_memory", cfg.InMemory))
	}
	return &Badger{DB: db}, nil
}

// Close releases the database.
func (b *Badger) Close() {
	if b != nil && b.DB != nil {
		_ = b.DB.Close()
	}
}

// Ping verifies the database is open.
func (b *Badger) Ping(context.Context) error {
	if b == nil || b.DB == nil {
		return errors.New("badger not configured")
	}
	if b.DB.IsClosed() {
		return errors.New("badger database closed")
	}
	return nil
}
