package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers understood by the persistence layer.
const (
	StorageDriverJSON     = "json"
	StorageDriverPostgres = "postgres"
	StorageDriverBadger   = "badger"
)

// Identifier strategies for new cases.
const (
	IDStrategyCounter = "counter"
	IDStrategyToken   = "token"
)

// Counter backends for the counter id strategy.
const (
	CounterBackendFile  = "file"
	CounterBackendRedis = "redis"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Storage      StorageConfig
	Postgres     PostgresConfig
	Badger       BadgerConfig
	Redis        RedisConfig
	IDs          IDConfig
	SLA          SLAConfig
	Logger       LoggerConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	StaticDir             string
}

// StorageConfig selects the case store and history log backend.
type StorageConfig struct {
	Driver  string
	DataDir string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// BadgerConfig holds embedded store values.
type BadgerConfig struct {
	Path     string
	InMemory bool
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// IDConfig controls case identifier generation.
type IDConfig struct {
	Strategy       string
	Prefix         string
	CounterBackend string
}

// SLAConfig controls escalation windows and the expiry sweep.
type SLAConfig struct {
	DefaultHours         float64
	SweepIntervalSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	defaultSLA, err := strconv.ParseFloat(getEnv("SLA_DEFAULT_HOURS", "2"), 64)
	if err != nil || !(defaultSLA > 0) || defaultSLA*float64(time.Hour) >= math.MaxInt64 {
		return nil, fmt.Errorf("invalid SLA_DEFAULT_HOURS: %q", os.Getenv("SLA_DEFAULT_HOURS"))
	}

	dataDir := getEnv("DATA_DIR", "db")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "case-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			StaticDir:             os.Getenv("STATIC_DIR"),
		},
		Storage: StorageConfig{
			Driver:  strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverJSON)),
			DataDir: dataDir,
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Badger: BadgerConfig{
			Path:     getEnv("BADGER_PATH", dataDir+"/badger"),
			InMemory: getEnvAsBool("BADGER_IN_MEMORY", false),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		IDs: IDConfig{
			Strategy:       strings.ToLower(getEnv("ID_STRATEGY", IDStrategyCounter)),
			Prefix:         getEnv("ID_PREFIX", "CASE"),
			CounterBackend: strings.ToLower(getEnv("ID_COUNTER_BACKEND", CounterBackendFile)),
		},
		SLA: SLAConfig{
			DefaultHours:         defaultSLA,
			SweepIntervalSeconds: getEnvAsInt("SLA_SWEEP_INTERVAL_SECONDS", 60),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", ""),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverJSON, StorageDriverBadger:
	case StorageDriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("STORAGE_DRIVER=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}

	switch c.IDs.Strategy {
	case IDStrategyCounter, IDStrategyToken:
	default:
		return fmt.Errorf("unknown ID_STRATEGY %q", c.IDs.Strategy)
	}

	switch c.IDs.CounterBackend {
	case CounterBackendFile:
	case CounterBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("ID_COUNTER_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown ID_COUNTER_BACKEND %q", c.IDs.CounterBackend)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SweepInterval returns the SLA sweep cadence, never shorter than one second.
func (s SLAConfig) SweepInterval() time.Duration {
	if s.SweepIntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.SweepIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
