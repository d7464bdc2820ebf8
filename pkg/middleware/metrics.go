package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bcart",
			Name:      "http_requests_total",
			Help:      "HTTP requests by service, method, route and status",
		},
		[]string{"service", "method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bcart",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "route"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bcart",
			Name:      "http_response_size_bytes",
			Help:      "HTTP response body size in bytes",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 7),
		},
		[]string{"service", "route"},
	)

	httpRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bcart",
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served",
		},
		[]string{"service"},
	)
)

// PrometheusMetrics records request counts, latency and response size.
// Routes are labelled with the chi pattern, or "unmatched" for 404s.
func PrometheusMetrics(service string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inFlight := httpRequestsInFlight.WithLabelValues(service)
			inFlight.Inc()
			defer inFlight.Dec()

			start := time.Now()
			sw := wrapWriter(w)
			next.ServeHTTP(sw, r)

			route := routePattern(r)
			httpRequestsTotal.WithLabelValues(service, r.Method, route, strconv.Itoa(sw.Status())).Inc()
			httpRequestDuration.WithLabelValues(service, r.Method, route).Observe(time.Since(start).Seconds())
			httpResponseSize.WithLabelValues(service, route).Observe(float64(sw.bytes))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
