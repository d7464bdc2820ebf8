package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	pkgconfig "github.com/kudorimaru/bcart-review-app/pkg/config"
	"github.com/kudorimaru/bcart-review-app/pkg/logger"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/app"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for local development; real environment wins.
	if err := pkgconfig.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize structured logger.
	log := logger.New("reviewstore", cfg.LogLevel)
	log.Info("starting review store",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("backend", cfg.Backend),
		slog.Bool("api_key_required", cfg.APIKey != ""),
	)

	// Create the application with all dependencies wired.
	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	// Create a context that is canceled on SIGINT or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Run the application. This blocks until shutdown.
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("run application: %w", err)
	}

	log.Info("review store stopped")
	return nil
}
