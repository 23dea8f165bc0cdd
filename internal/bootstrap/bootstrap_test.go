package bootstrap

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/config"
	"github.com/spec-kit/case-service/internal/domain"
)

func testConfig(t *testing.T, driver string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		App:     config.AppConfig{Name: "case-service"},
		Storage: config.StorageConfig{Driver: driver, DataDir: dir},
		Badger:  config.BadgerConfig{Path: filepath.Join(dir, "badger")},
		IDs:     config.IDConfig{Strategy: config.IDStrategyCounter, Prefix: "CASE", CounterBackend: config.CounterBackendFile},
	}
}

func TestOpenJSONBackend(t *testing.T) {
	cfg := testConfig(t, config.StorageDriverJSON)
	b, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Cases.SaveAll(ctx, []domain.Case{{ID: "CASE0004", Title: "x", Status: domain.CaseStatusPending}}))
	all, err := b.Cases.LoadAll(ctx)
	require.NoError(t, err)

	id, err := b.IDs.NextID(ctx, all)
	require.NoError(t, err)
	assert.Equal(t, "CASE0005", id)
	assert.FileExists(t, filepath.Join(cfg.Storage.DataDir, "counter.json"))

	assert.Contains(t, b.Probes, "cases")
	assert.NotContains(t, b.Probes, "redis")
	assert.NoError(t, b.Probes["cases"](ctx))
}

func TestOpenBadgerBackendWithTokenIDs(t *testing.T) {
	cfg := testConfig(t, config.StorageDriverBadger)
	cfg.IDs.Strategy = config.IDStrategyToken

	b, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	id, err := b.IDs.NextID(context.Background(), nil)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^CASE-[0-9A-F]{8}$`), id)
	assert.NoError(t, b.Probes["cases"](context.Background()))
}

func TestOpenRedisCounterNeedsRedis(t *testing.T) {
	cfg := testConfig(t, config.StorageDriverJSON)
	cfg.IDs.CounterBackend = config.CounterBackendRedis

	_, err := Open(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
