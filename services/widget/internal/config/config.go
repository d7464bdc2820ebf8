package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	pkgconfig "github.com/kudorimaru/bcart-review-app/pkg/config"
	"github.com/kudorimaru/bcart-review-app/pkg/tracing"
)

// Config holds all configuration for the widget service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort       int           `env:"WIDGET_HTTP_PORT" envDefault:"8080"`
	RequestTimeout time.Duration `env:"WIDGET_REQUEST_TIMEOUT" envDefault:"30s"`

	// PublicURL is the absolute base URL storefront browsers reach this
	// service at. Rendered forms post back to it.
	PublicURL string `env:"WIDGET_PUBLIC_URL" envDefault:"http://localhost:8080"`

	// Review store client
	StoreTimeout       time.Duration `env:"WIDGET_STORE_TIMEOUT" envDefault:"10s"`
	AllowedStoreHosts  []string      `env:"WIDGET_ALLOWED_STORE_HOSTS" envSeparator:","`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Rendering
	Timezone string `env:"WIDGET_TIMEZONE" envDefault:"Asia/Tokyo"`

	// Per-IP limit on form posts
	SubmitRateLimit float64 `env:"SUBMIT_RATE_LIMIT_RPS" envDefault:"1"`
	SubmitBurst     int     `env:"SUBMIT_RATE_LIMIT_BURST" envDefault:"5"`

	Tracing tracing.Config

	location *time.Location
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load widget config: %w", err)
	}
	cfg.Tracing.ServiceName = "widget"
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location returns the time zone review dates are rendered in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	u, err := url.Parse(c.PublicURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("WIDGET_PUBLIC_URL must be an absolute http(s) URL, got %q", c.PublicURL)
	}
	c.PublicURL = strings.TrimRight(c.PublicURL, "/")
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("WIDGET_STORE_TIMEOUT must be positive, got %s", c.StoreTimeout)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("WIDGET_TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc
	for i, h := range c.AllowedStoreHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			return fmt.Errorf("WIDGET_ALLOWED_STORE_HOSTS contains an empty host")
		}
		c.AllowedStoreHosts[i] = h
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
