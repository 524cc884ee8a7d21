package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service    ServiceConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Modal      ModalConfig
	Checkpoint CheckpointConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings, used only when
// Checkpoint.Store is "postgres".
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds the connection settings for the optional distributed
// modal lock and/or the optional Redis-backed checkpoint store.
type RedisConfig struct {
	URL     string
	LockTTL time.Duration
}

// ModalConfig holds the default retry/timeout behavior of the modal
// coordinator.
type ModalConfig struct {
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	Distributed bool // when true, use the Redis-backed coordinator instead of the in-process one
}

// CheckpointConfig selects and configures the checkpoint store.
type CheckpointConfig struct {
	Store string // "memory" (default), "postgres", or "redis"
}

// Load loads configuration from environment variables.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "obe"),
			User:        getEnv("POSTGRES_USER", "obe"),
			Password:    getEnv("POSTGRES_PASSWORD", "obe"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
			LockTTL: getEnvDuration("REDIS_LOCK_TTL", 30*time.Second),
		},
		Modal: ModalConfig{
			MaxRetries:  getEnvInt("MODAL_MAX_RETRIES", 5),
			RetryDelay:  getEnvDuration("MODAL_RETRY_DELAY", 350*time.Millisecond),
			Timeout:     getEnvDuration("MODAL_TIMEOUT", 30*time.Second),
			Distributed: getEnvBool("MODAL_DISTRIBUTED", false),
		},
		Checkpoint: CheckpointConfig{
			Store: getEnv("CHECKPOINT_STORE", "memory"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Checkpoint.Store {
	case "memory", "postgres", "redis":
	default:
		return fmt.Errorf("invalid checkpoint store: %q", c.Checkpoint.Store)
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Modal.MaxRetries < 0 {
		return fmt.Errorf("modal max retries must be >= 0")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
