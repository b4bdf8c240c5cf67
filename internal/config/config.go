package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	SLA      SLAConfig
	Store    StoreConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
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

// RedisConfig holds Redis connection values. Disabled Redis turns off the report cache.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// SLAConfig tunes SLA evaluation and the governance report.
type SLAConfig struct {
	RiskThresholdMinutes  int
	FlagThreshold         int
	TopRequesters         int
	ReportCacheTTLSeconds int
	ReportRefreshSeconds  int
}

// StoreDriver selects the ticket and user store.
type StoreDriver string

const (
	StoreMemory   StoreDriver = "memory"
	StorePostgres StoreDriver = "postgres"
	StoreSQLite   StoreDriver = "sqlite"
)

// StoreConfig picks the persistence backend.
type StoreConfig struct {
	Driver        StoreDriver
	SQLitePath    string
	MigrationsDir string // overrides the embedded Postgres schema when set
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	driver := StoreDriver(strings.ToLower(getEnv("STORE_DRIVER", string(StoreMemory))))
	switch driver {
	case StoreMemory, StorePostgres, StoreSQLite:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want memory, postgres or sqlite", driver)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sla-governance"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		SLA: SLAConfig{
			RiskThresholdMinutes:  getEnvAsInt("SLA_RISK_THRESHOLD_MINUTES", 120),
			FlagThreshold:         getEnvAsInt("SLA_FLAG_THRESHOLD", 4),
			TopRequesters:         getEnvAsInt("SLA_TOP_REQUESTERS", 5),
			ReportCacheTTLSeconds: getEnvAsInt("SLA_REPORT_CACHE_TTL_SECONDS", 60),
			ReportRefreshSeconds:  getEnvAsInt("SLA_REPORT_REFRESH_SECONDS", 300),
		},
		Store: StoreConfig{
			Driver:        driver,
			SQLitePath:    getEnv("SQLITE_PATH", "data/sla.sqlite"),
			MigrationsDir: os.Getenv("POSTGRES_MIGRATIONS_DIR"),
		},
	}

	return cfg, nil
}

// RiskThreshold returns the remaining time below which a ticket counts as at risk.
func (s SLAConfig) RiskThreshold() time.Duration {
	return time.Duration(s.RiskThresholdMinutes) * time.Minute
}

// ReportCacheTTL returns how long a cached governance report stays valid.
func (s SLAConfig) ReportCacheTTL() time.Duration {
	return time.Duration(s.ReportCacheTTLSeconds) * time.Second
}

// ReportRefreshInterval returns the period of the background report refresher; zero disables it.
func (s SLAConfig) ReportRefreshInterval() time.Duration {
	if s.ReportRefreshSeconds <= 0 {
		return 0
	}
	return time.Duration(s.ReportRefreshSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued bearer tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
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
