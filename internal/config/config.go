package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Session  SessionConfig
	Feed     FeedConfig
	Kafka    KafkaConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port string
}

// DatabaseConfig holds the embedded database configuration.
type DatabaseConfig struct {
	Path           string
	MigrationsPath string
}

// SessionConfig holds session management configuration.
type SessionConfig struct {
	TTL time.Duration
}

// FeedConfig holds price feed polling configuration.
type FeedConfig struct {
	PollInterval    time.Duration
	SummaryInterval time.Duration
}

// KafkaConfig holds Kafka configuration. Empty brokers disable publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables, after loading a .env
// file when one is present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Path:           getEnv("DATABASE_PATH", "data/metals_data.db"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),
		},
		Session: SessionConfig{
			TTL: time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		},
		Feed: FeedConfig{
			PollInterval:    time.Duration(getEnvInt("REAL_TIME_UPDATE_FREQUENCY", 30)) * time.Second,
			SummaryInterval: time.Duration(getEnvInt("HISTORICAL_UPDATE_FREQUENCY", 3600)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "metals-events"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
