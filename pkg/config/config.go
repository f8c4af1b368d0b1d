package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/volunteerhub/volunteerhub/pkg/observability"
	"github.com/volunteerhub/volunteerhub/pkg/store"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage store.Config

	// Authentication configuration
	Auth AuthConfig

	// Redis configuration (token denylist)
	Redis RedisConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// Allowed CORS origins, comma separated. "*" allows any origin.
	CORSOrigins []string

	// Maximum accepted request body size in bytes
	MaxBodyBytes int64
}

// AuthConfig holds token and password hashing settings
type AuthConfig struct {
	// JWTSecret signs session tokens. Required; there is no default.
	JWTSecret string

	// TokenTTL is the session token lifetime
	TokenTTL time.Duration

	// BcryptCost for password hashing
	BcryptCost int

	// Seed account passwords. Empty means a random password is generated
	// for the account at seed time.
	SeedAdminPassword     string
	SeedVolunteerPassword string
}

// RedisConfig holds the optional Redis connection for token revocation.
// An empty address disables the denylist; logout then only discards the
// token client side.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// Interval for the business gauge refresh job
	GaugeRefreshInterval string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		Redis:         loadRedisConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("VHUB_HOST", "0.0.0.0"),
		Port:            getEnv("VHUB_PORT", "8080"),
		ReadTimeout:     getEnvDuration("VHUB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("VHUB_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("VHUB_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("VHUB_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("VHUB_HEALTH_PORT", "9090"),
		CORSOrigins:     splitCSV(getEnv("VHUB_CORS_ORIGINS", "*")),
		MaxBodyBytes:    getEnvInt64("VHUB_MAX_BODY_BYTES", 1<<20),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() store.Config {
	cfg := store.DefaultConfig()

	if driver := getEnv("VHUB_STORAGE_DRIVER", ""); driver != "" {
		cfg.Driver = driver
	}
	if pgURL := getEnv("VHUB_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("VHUB_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxOpenConns = maxConns
	}
	if idleConns := getEnvInt("VHUB_POSTGRES_IDLE_CONNS", 0); idleConns > 0 {
		cfg.MaxIdleConns = idleConns
	}
	if timeout := getEnvDuration("VHUB_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.ConnTimeout = timeout
	}
	if path := getEnv("VHUB_SQLITE_PATH", ""); path != "" {
		cfg.SQLitePath = path
	}
	cfg.Seed = getEnvBool("VHUB_SEED", false)

	return cfg
}

// loadAuthConfig loads authentication configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:             os.Getenv("VHUB_JWT_SECRET"),
		TokenTTL:              getEnvDuration("VHUB_TOKEN_TTL", 24*time.Hour),
		BcryptCost:            getEnvInt("VHUB_BCRYPT_COST", 10),
		SeedAdminPassword:     os.Getenv("VHUB_SEED_ADMIN_PASSWORD"),
		SeedVolunteerPassword: os.Getenv("VHUB_SEED_VOLUNTEER_PASSWORD"),
	}
}

// loadRedisConfig loads the optional Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:     getEnv("VHUB_REDIS_ADDR", ""),
		Password: getEnv("VHUB_REDIS_PASSWORD", ""),
		DB:       getEnvInt("VHUB_REDIS_DB", 0),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:             parseLogLevel(getEnv("VHUB_LOG_LEVEL", "info")),
		MetricsEnabled:       getEnvBool("VHUB_METRICS_ENABLED", true),
		GaugeRefreshInterval: getEnv("VHUB_GAUGE_REFRESH_INTERVAL", "@every 1m"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// The signing secret has no default; a guessable secret would let
	// anyone mint valid session tokens.
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("VHUB_JWT_SECRET is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("VHUB_JWT_SECRET must be at least 32 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be postgres or sqlite)", c.Storage.Driver)
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// splitCSV splits a comma separated list, trimming whitespace
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
