package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kudorimaru/bcart-review-app/pkg/health"
	"github.com/kudorimaru/bcart-review-app/pkg/middleware"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/service"
)

// RouterConfig carries the HTTP-level settings of the review store.
type RouterConfig struct {
	// APIKey guards /rest/v1. Empty disables the check.
	APIKey         string
	AllowedOrigins []string
	RequestTimeout time.Duration
	// SubmitLimiter throttles POST /rest/v1/reviews per client IP. Nil
	// disables throttling.
	SubmitLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router with all review store routes registered.
func NewRouter(
	reviewService *service.ReviewService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.AllowedOrigins
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Tracing("reviewstore"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger, middleware.ShopIDFromQuery("shop_id")))
	r.Use(middleware.PrometheusMetrics("reviewstore"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	reviewHandler := NewReviewHandler(reviewService, logger)

	// REST endpoints used by the embedded widget.
	r.Route("/rest/v1/reviews", func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.APIKey))
		r.Use(middleware.NoStore)

		r.Get("/", reviewHandler.QueryReviews)
		r.Get("/summary", reviewHandler.SummarizeReviews)

		r.Group(func(r chi.Router) {
			if cfg.SubmitLimiter != nil {
				r.Use(cfg.SubmitLimiter.Middleware(logger))
			}
			r.Post("/", reviewHandler.SubmitReview)
		})
	})

	// Administrative endpoints.
	r.Route("/api/reviews", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Get("/", reviewHandler.ListAllReviews)
		r.Post("/{id}/approve", reviewHandler.ApproveReview)
	})

	return r
}
