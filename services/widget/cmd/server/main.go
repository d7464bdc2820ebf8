package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	pkgconfig "github.com/kudorimaru/bcart-review-app/pkg/config"
	"github.com/kudorimaru/bcart-review-app/pkg/logger"
	"github.com/kudorimaru/bcart-review-app/services/widget/internal/app"
	"github.com/kudorimaru/bcart-review-app/services/widget/internal/config"
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

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("widget", cfg.LogLevel)
	log.Info("starting review widget",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("timezone", cfg.Location().String()),
		slog.Any("allowed_store_hosts", cfg.AllowedStoreHosts),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("run application: %w", err)
	}

	log.Info("review widget stopped")
	return nil
}
