// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"hometrust/pkg/email"
)

// Config is the top-level runtime configuration.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Auth     Auth
	Artifact Artifact
	Outbox   Outbox

	// FreeMailDomains blocks company registrations using consumer mail
	// providers. Checked at registration time, not at claim review.
	FreeMailDomains []string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Postgres captures database connection configuration.
type Postgres struct {
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Redis captures the dead-letter queue connection.
type Redis struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the notification topic transport.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Auth captures token signing configuration.
type Auth struct {
	JWTSigningKey string
	Issuer        string
}

// Artifact captures the external artifact store endpoint.
type Artifact struct {
	BaseURL string
	Timeout time.Duration
}

// Outbox tunes the notification dispatcher.
type Outbox struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	BaseBackoff  time.Duration
}


// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envOr("HOMETRUST_ADDR", ":8080"),
			ShutdownTimeout: envDuration("HOMETRUST_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxOpenConns:    envInt("POSTGRES_MAX_OPEN_CONNS", 25),
			ConnMaxLifetime: envDuration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_NOTIFICATIONS_TOPIC", "hometrust.notifications"),
		},
		Auth: Auth{
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:        envOr("JWT_ISSUER", "hometrust"),
		},
		Artifact: Artifact{
			BaseURL: os.Getenv("ARTIFACT_STORE_URL"),
			Timeout: envDuration("ARTIFACT_STORE_TIMEOUT", 10*time.Second),
		},
		Outbox: Outbox{
			PollInterval: envDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    envInt("OUTBOX_BATCH_SIZE", 50),
			MaxAttempts:  envInt("OUTBOX_MAX_ATTEMPTS", 3),
			BaseBackoff:  envDuration("OUTBOX_BASE_BACKOFF", 5*time.Second),
		},
		FreeMailDomains: freeMailDomains(),
	}
}

func freeMailDomains() []string {
	raw := os.Getenv("FREE_MAIL_DOMAINS")
	if raw == "" {
		return email.FreeMailDomains
	}
	return splitNonEmpty(raw)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
