package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/kudorimaru/bcart-review-app/pkg/config"
	"github.com/kudorimaru/bcart-review-app/pkg/database"
	"github.com/kudorimaru/bcart-review-app/pkg/tracing"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the review store service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"REVIEW_STORE_HTTP_PORT" envDefault:"3000"`
	RequestTimeout time.Duration `env:"REVIEW_STORE_REQUEST_TIMEOUT" envDefault:"30s"`

	// Storage
	Backend string `env:"REVIEW_STORE_BACKEND" envDefault:"memory"`
	Seed    bool   `env:"REVIEW_STORE_SEED" envDefault:"false"`

	// Public REST API
	APIKey             string   `env:"REVIEW_STORE_API_KEY"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Per-IP limit on review submissions
	SubmitRateLimit float64 `env:"SUBMIT_RATE_LIMIT_RPS" envDefault:"1"`
	SubmitBurst     int     `env:"SUBMIT_RATE_LIMIT_BURST" envDefault:"5"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	Postgres database.PostgresConfig
	Redis    database.RedisConfig
	Tracing  tracing.Config
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load reviewstore config: %w", err)
	}
	cfg.Tracing.ServiceName = "reviewstore"
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("REVIEW_STORE_BACKEND must be one of memory, redis, postgres, got %q", c.Backend)
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		for _, b := range c.KafkaBrokers {
			if strings.TrimSpace(b) == "" {
				return fmt.Errorf("KAFKA_BROKERS contains an empty address")
			}
		}
	}
	if c.SubmitRateLimit <= 0 {
		return fmt.Errorf("SUBMIT_RATE_LIMIT_RPS must be positive, got %f", c.SubmitRateLimit)
	}
	if c.SubmitBurst < 1 {
		return fmt.Errorf("SUBMIT_RATE_LIMIT_BURST must be at least 1, got %d", c.SubmitBurst)
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.Tracing.SampleRate)
	}
	return nil
}
