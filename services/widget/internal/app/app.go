package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kudorimaru/bcart-review-app/pkg/health"
	"github.com/kudorimaru/bcart-review-app/pkg/httpclient"
	"github.com/kudorimaru/bcart-review-app/pkg/middleware"
	"github.com/kudorimaru/bcart-review-app/pkg/tracing"
	"github.com/kudorimaru/bcart-review-app/services/widget/internal/config"
	handler "github.com/kudorimaru/bcart-review-app/services/widget/internal/handler/http"
	"github.com/kudorimaru/bcart-review-app/services/widget/internal/widget"
)

// App wires together all dependencies and runs the widget service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}

	// Review store client: bounded timeout, no retries, behind a breaker.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.StoreTimeout
	storeClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(clientCfg),
		httpclient.DefaultCircuitBreakerConfig("reviewstore"),
		logger,
	)

	embedHandler := handler.NewEmbedHandler(
		handler.HTTPStoreFactory(storeClient),
		widget.NewRenderer(widget.DefaultMessages(), cfg.Location()),
		handler.EmbedConfig{
			PublicURL:         cfg.PublicURL,
			AllowedStoreHosts: cfg.AllowedStoreHosts,
		},
		logger,
	)

	a.limiter = middleware.NewRateLimiter(cfg.SubmitRateLimit, cfg.SubmitBurst, 10*time.Minute)

	healthHandler := health.NewHandler()
	healthHandler.RegisterNonCritical("reviewstore_breaker", func(context.Context) error {
		if storeClient.State() == gobreaker.StateOpen {
			return errors.New("review store circuit breaker is open")
		}
		return nil
	})

	// HTTP router.
	router := handler.NewRouter(embedHandler, healthHandler, handler.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		SubmitLimiter:  a.limiter,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the HTTP server, then flushes traces.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.limiter != nil {
		a.limiter.Close()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
