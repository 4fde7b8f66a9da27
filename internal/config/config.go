package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the api, ingest and watch binaries.
type Config struct {
	// Server
	Port       int    `env:"PORT" envDefault:"8080"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8081"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	// Request limits
	MaxBodySize int64 `env:"MAX_BODY_SIZE" envDefault:"1048576"` // 1MB in bytes

	// Store
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"sqlite"` // "sqlite", "redis", "postgres" or "memory"
	StoreKey      string `env:"STORE_KEY" envDefault:"entries"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"typeonce.db"`
	DBURL         string `env:"DB_URL"`
	DBTable       string `env:"DB_TABLE" envDefault:"typeonce_kv"`
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Embeddings
	EmbeddingProvider   string        `env:"EMBEDDING_PROVIDER" envDefault:"openai"` // "openai" or "stub" (offline hashed n-grams)
	OpenAIKey           string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `env:"OPENAI_BASE_URL"`
	EmbeddingModel      string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int           `env:"EMBEDDING_DIMENSIONS" envDefault:"384"`
	EmbeddingTimeout    time.Duration `env:"EMBEDDING_TIMEOUT" envDefault:"30s"`

	// Matching
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" envDefault:"0.7"`

	// Queue & notifications
	QueueProvider  string `env:"QUEUE_PROVIDER" envDefault:"none"`  // "nats" or "none" (ingest inline)
	NotifyProvider string `env:"NOTIFY_PROVIDER" envDefault:"none"` // "nats" or "none"
	QueueURL       string `env:"QUEUE_URL"`
	NotifySubject  string `env:"NOTIFY_SUBJECT" envDefault:"entries.changed"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
