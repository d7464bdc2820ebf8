package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kudorimaru/bcart-review-app/pkg/database"
	"github.com/kudorimaru/bcart-review-app/pkg/health"
	pkgkafka "github.com/kudorimaru/bcart-review-app/pkg/kafka"
	"github.com/kudorimaru/bcart-review-app/pkg/middleware"
	"github.com/kudorimaru/bcart-review-app/pkg/tracing"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/config"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/domain"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/event"
	handler "github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/handler/http"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/repository"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/repository/memory"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/repository/postgres"
	redisrepo "github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/repository/redis"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/service"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/migrations"
)

// initTracer is replaced in tests.
var initTracer = tracing.InitTracer

// App wires together all dependencies and runs the review store.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := initTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}

	healthHandler := health.NewHandler()

	repo, err := a.initRepository(ctx, healthHandler)
	if err != nil {
		_ = a.closeStores()
		a.shutdownTracer()
		return nil, err
	}

	// Domain events are optional; without Kafka the service publishes nothing.
	var events service.EventPublisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	reviewService := service.NewReviewService(repo, events, logger)

	a.limiter = middleware.NewRateLimiter(cfg.SubmitRateLimit, cfg.SubmitBurst, 10*time.Minute)

	// HTTP router.
	router := handler.NewRouter(reviewService, healthHandler, handler.RouterConfig{
		APIKey:         cfg.APIKey,
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

// initRepository connects the configured storage backend and registers its
// health check.
func (a *App) initRepository(ctx context.Context, healthHandler *health.Handler) (repository.ReviewRepository, error) {
	cfg, logger := a.cfg, a.logger

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL")
		database.RegisterPoolMetrics(pool, "reviewstore")

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		healthHandler.Register("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		return postgres.NewReviewRepository(pool), nil

	case config.BackendRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr))

		healthHandler.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		return redisrepo.NewReviewRepository(rdb), nil

	default:
		var seed []domain.Review
		if cfg.Seed {
			seed = memory.SeedReviews()
			logger.Info("seeded in-memory review store", slog.Int("reviews", len(seed)))
		}
		return memory.NewReviewRepository(seed...), nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("backend", a.cfg.Backend),
		)
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

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, then the storage backend.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.limiter != nil {
		a.limiter.Close()
	}

	// 4. Close the storage backend.
	if err := a.closeStores(); err != nil {
		a.logger.Error("storage close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// shutdownTracer flushes and stops the tracer provider.
func (a *App) shutdownTracer() {
	if a.tracerShutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.tracerShutdown(ctx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}
	a.tracerShutdown = nil
}

func (a *App) closeStores() error {
	var err error
	if a.rdb != nil {
		err = a.rdb.Close()
		a.rdb = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return err
}
