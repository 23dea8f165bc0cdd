package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "case-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:3000", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, StorageDriverJSON, cfg.Storage.Driver)
	assert.Equal(t, "db", cfg.Storage.DataDir)
	assert.Equal(t, IDStrategyCounter, cfg.IDs.Strategy)
	assert.Equal(t, "CASE", cfg.IDs.Prefix)
	assert.Equal(t, CounterBackendFile, cfg.IDs.CounterBackend)
	assert.Equal(t, 2.0, cfg.SLA.DefaultHours)
	assert.Equal(t, 60*time.Second, cfg.SLA.SweepInterval())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_PORT", "8081")
	t.Setenv("STORAGE_DRIVER", "BADGER")
	t.Setenv("BADGER_IN_MEMORY", "true")
	t.Setenv("ID_STRATEGY", "token")
	t.Setenv("SLA_DEFAULT_HOURS", "0.5")
	t.Setenv("SLA_SWEEP_INTERVAL_SECONDS", "5")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8081", cfg.App.Addr())
	assert.Equal(t, StorageDriverBadger, cfg.Storage.Driver)
	assert.True(t, cfg.Badger.InMemory)
	assert.Equal(t, IDStrategyToken, cfg.IDs.Strategy)
	assert.Equal(t, 0.5, cfg.SLA.DefaultHours)
	assert.Equal(t, 5*time.Second, cfg.SLA.SweepInterval())
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoadRejectsInvalidCombinations(t *testing.T) {
	cases := map[string]map[string]string{
		"postgres without dsn":  {"STORAGE_DRIVER": "postgres"},
		"unknown driver":        {"STORAGE_DRIVER": "mongo"},
		"unknown id strategy":   {"ID_STRATEGY": "sequence"},
		"redis counter no addr": {"ID_COUNTER_BACKEND": "redis"},
		"bad sla hours":         {"SLA_DEFAULT_HOURS": "-1"},
		"infinite sla hours":    {"SLA_DEFAULT_HOURS": "Inf"},
		"nan sla hours":         {"SLA_DEFAULT_HOURS": "NaN"},
		"oversized sla hours":   {"SLA_DEFAULT_HOURS": "1e300"},
		"bad redis db":          {"REDIS_DB": "zero"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
