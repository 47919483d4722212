package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the engine.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	AdminDB  AdminDBConfig
	Redis    RedisConfig
	Platform PlatformConfig
	Auth     AuthConfig
	Logger   LoggerConfig
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

// PostgresConfig holds registry DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// AdminDBConfig holds administrative credentials for the shared database
// server on which per-tenant databases and roles are created.
type AdminDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	MaxConns int32
}

// DSN builds the admin connection string.
func (a AdminDBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", a.User, a.Password, a.Host, a.Port, a.Database)
}

// RedisConfig holds Redis connection values for the observed-state cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PlatformConfig controls tenant stack placement and orchestration behavior.
type PlatformConfig struct {
	BaseDomain          string
	TenantsDir          string
	DockerBin           string
	ApplyTimeoutSec     int
	RemoveTimeoutSec    int
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	PollIntervalSec     int
}

// ApplyTimeout returns the compose-up deadline.
func (p PlatformConfig) ApplyTimeout() time.Duration {
	return time.Duration(p.ApplyTimeoutSec) * time.Second
}

// RemoveTimeout returns the compose-down deadline.
func (p PlatformConfig) RemoveTimeout() time.Duration {
	return time.Duration(p.RemoveTimeoutSec) * time.Second
}

// PollInterval returns the status aggregator cadence.
func (p PlatformConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSec) * time.Second
}

// AuthConfig defines operator authentication parameters.
type AuthConfig struct {
	OperatorEmail         string
	OperatorPasswordHash  string
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
// The admin database password is mandatory: the engine refuses to start without
// the credentials it needs to provision tenant databases.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "tenant-provisioning-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 120),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		AdminDB: AdminDBConfig{
			Host:     getEnv("ADMIN_DB_HOST", "shared-postgres"),
			Port:     getEnv("ADMIN_DB_PORT", "5432"),
			User:     getEnv("ADMIN_DB_USER", "root"),
			Password: os.Getenv("ADMIN_DB_PASSWORD"),
			Database: getEnv("ADMIN_DB_NAME", "defaultdb"),
			MaxConns: int32(getEnvAsInt("ADMIN_DB_MAX_CONNS", 4)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Platform: PlatformConfig{
			BaseDomain:          getEnv("BASE_DOMAIN", "127.0.0.1.nip.io"),
			TenantsDir:          getEnv("TENANTS_DIR", "/opt/saas/tenants"),
			DockerBin:           getEnv("DOCKER_BIN", "docker"),
			ApplyTimeoutSec:     getEnvAsInt("APPLY_TIMEOUT_SECONDS", 120),
			RemoveTimeoutSec:    getEnvAsInt("REMOVE_TIMEOUT_SECONDS", 60),
			RetryMaxAttempts:    getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialBackoff: time.Duration(getEnvAsInt("RETRY_INITIAL_BACKOFF_MS", 500)) * time.Millisecond,
			PollIntervalSec:     getEnvAsInt("STATUS_POLL_INTERVAL_SECONDS", 15),
		},
		Auth: AuthConfig{
			OperatorEmail:         getEnv("OPERATOR_EMAIL", "operator@example.com"),
			OperatorPasswordHash:  os.Getenv("OPERATOR_PASSWORD_HASH"),
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.AdminDB.Password == "" {
		return nil, errors.New("ADMIN_DB_PASSWORD must be set before starting the platform")
	}

	return cfg, nil
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
