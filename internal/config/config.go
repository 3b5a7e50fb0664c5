// Package config loads the host runtime's configuration from the process
// environment. There is no flag/file layer here (unlike the agents this
// runtime borrows its env-parsing idiom from) because the host is meant to
// run as a single long-lived container process configured entirely by its
// environment.
package config

import (
	"os"
	"strconv"

	"github.com/sandhost/capahost/internal/capability"
)

// Config is the complete runtime configuration, assembled once at startup
// and passed down to every capability and the dispatcher.
type Config struct {
	Env            string
	HTTPAddr       string
	WebSocketAddr  string
	Component      string
	AzureIdentity  string
	GuestModulePath string

	StateStoreBackend string // "memory" or "redis"
	Redis             RedisConfig
	SQL               SQLConfig
	NATSURL           string
	OAuth2            OAuth2Config
}

// RedisConfig configures the optional Redis-backed state store.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// SQLConfig configures the Postgres SQL execution capability.
type SQLConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OAuth2Config configures the identity capability's client-credentials flow.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// Load reads the full configuration from the environment, applying the
// defaults documented in SPEC_FULL.md's configuration surface table.
func Load() (Config, error) {
	cfg := Config{
		Env:             getEnvOrDefault("ENV", "dev"),
		HTTPAddr:        getEnvOrDefault("HTTP_ADDR", "http://localhost:8080"),
		WebSocketAddr:   getEnvOrDefault("WEBSOCKET_ADDR", "0.0.0.0:80"),
		Component:       getEnvOrDefault("COMPONENT", "unknown"),
		AzureIdentity:   os.Getenv("AZURE_IDENTITY"),
		GuestModulePath: os.Getenv("GUEST_MODULE_PATH"),

		StateStoreBackend: getEnvOrDefault("STATE_STORE_BACKEND", "memory"),
		Redis: RedisConfig{
			Host:     getEnvOrDefault("REDIS_HOST", "localhost"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvIntOrDefault("REDIS_DB", 0),
		},
		SQL: SQLConfig{
			Host:     getEnvOrDefault("SQL_HOST", "localhost"),
			Port:     getEnvOrDefault("SQL_PORT", "5432"),
			User:     os.Getenv("SQL_USER"),
			Password: os.Getenv("SQL_PASSWORD"),
			DBName:   os.Getenv("SQL_DBNAME"),
			SSLMode:  getEnvOrDefault("SQL_SSLMODE", "disable"),
		},
		NATSURL: os.Getenv("NATS_URL"),
		OAuth2: OAuth2Config{
			TokenURL:     os.Getenv("OAUTH2_TOKEN_URL"),
			ClientID:     os.Getenv("OAUTH2_CLIENT_ID"),
			ClientSecret: os.Getenv("OAUTH2_CLIENT_SECRET"),
		},
	}

	if cfg.GuestModulePath == "" {
		return Config{}, capability.MissingConfig("GUEST_MODULE_PATH")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
