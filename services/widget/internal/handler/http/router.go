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
)

// RouterConfig carries the HTTP-level settings of the widget service.
type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	// SubmitLimiter throttles POST /embed/reviews per client IP. Nil disables
	// throttling.
	SubmitLimiter *middleware.RateLimiter
}

// NewRouter creates a chi router with all widget routes registered.
func NewRouter(
	embedHandler *EmbedHandler,
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
	r.Use(middleware.Tracing("widget"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger, middleware.ShopIDFromQuery("data-shop-id")))
	r.Use(middleware.PrometheusMetrics("widget"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.CacheControl(3600))
		r.Get("/widget.css", embedHandler.Stylesheet)
		r.Get("/widget.js", embedHandler.Loader)
	})

	r.Route("/embed", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Get("/", embedHandler.Embed)

		r.Group(func(r chi.Router) {
			if cfg.SubmitLimiter != nil {
				r.Use(cfg.SubmitLimiter.Middleware(logger))
			}
			r.Post("/reviews", embedHandler.SubmitReview)
		})
	})

	return r
}
