// Package config loads the host process's environment configuration:
// which optional collaborators (debug HTTP surface, Redis fact feed,
// Postgres snapshot store) to wire in, and their connection settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds notfd's full environment configuration.
type Config struct {
	Service ServiceConfig
	HTTP    HTTPConfig
	Redis   RedisConfig
	Storage StorageConfig
}

// ServiceConfig holds process-wide settings.
type ServiceConfig struct {
	Name      string
	LogLevel  string
	LogFormat string
}

// HTTPConfig controls the optional debug HTTP surface.
type HTTPConfig struct {
	Enabled bool
	Port    int
}

// RedisConfig controls the optional Redis-backed fact feed.
type RedisConfig struct {
	Enabled       bool
	Addr          string
	Stream        string
	ConsumerGroup string
	ConsumerName  string
}

// StorageConfig controls the optional Postgres snapshot store.
type StorageConfig struct {
	Enabled     bool
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

// Load reads Config from the environment.
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:      serviceName,
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "text"),
		},
		HTTP: HTTPConfig{
			Enabled: getEnvBool("HTTP_ENABLED", true),
			Port:    getEnvInt("HTTP_PORT", 8080),
		},
		Redis: RedisConfig{
			Enabled:       getEnvBool("REDIS_ENABLED", false),
			Addr:          getEnv("REDIS_ADDR", "localhost:6379"),
			Stream:        getEnv("REDIS_FACT_STREAM", "notf:facts"),
			ConsumerGroup: getEnv("REDIS_CONSUMER_GROUP", "notfd"),
			ConsumerName:  getEnv("REDIS_CONSUMER_NAME", serviceName),
		},
		Storage: StorageConfig{
			Enabled:     getEnvBool("STORAGE_ENABLED", false),
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "notf"),
			User:        getEnv("POSTGRES_USER", "notf"),
			Password:    getEnv("POSTGRES_PASSWORD", "notf"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 10),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
	}
	return cfg, cfg.Validate()
}

// Validate checks the loaded configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.HTTP.Enabled && (c.HTTP.Port < 1 || c.HTTP.Port > 65535) {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Storage.Enabled && c.Storage.MaxConns < c.Storage.MinConns {
		return fmt.Errorf("storage: max_conns must be >= min_conns")
	}
	return nil
}

// DatabaseURL returns the Postgres connection string for StorageConfig.
func (c *StorageConfig) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
