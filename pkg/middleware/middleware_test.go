package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kudorimaru/bcart-review-app/pkg/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// ---------------------------------------------------------------------------
// APIKey
// ---------------------------------------------------------------------------

func TestAPIKey_EmptyKeyDisablesCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKey("")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rest/v1/reviews", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKey_RequiresBothHeaders(t *testing.T) {
	h := APIKey("anon-key")(okHandler)

	cases := []struct {
		name   string
		apikey string
		auth   string
		want   int
	}{
		{"both present", "anon-key", "Bearer anon-key", http.StatusOK},
		{"lowercase scheme", "anon-key", "bearer anon-key", http.StatusOK},
		{"missing apikey", "", "Bearer anon-key", http.StatusUnauthorized},
		{"missing bearer", "anon-key", "", http.StatusUnauthorized},
		{"wrong bearer", "anon-key", "Bearer other", http.StatusUnauthorized},
		{"wrong scheme", "anon-key", "Basic anon-key", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/rest/v1/reviews", nil)
			if tc.apikey != "" {
				req.Header.Set(APIKeyHeader, tc.apikey)
			}
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}

func TestAPIKey_PreflightPassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKey("anon-key")(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/rest/v1/reviews", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ---------------------------------------------------------------------------
// RateLimiter
// ---------------------------------------------------------------------------

func TestRateLimiter_ExceedingBurst_Returns429(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, time.Minute)
	t.Cleanup(rl.Close)
	h := rl.Middleware(discardLogger())(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/rest/v1/reviews", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_IndependentPerIP(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, time.Minute)
	t.Cleanup(rl.Close)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	t.Cleanup(rl.Close)

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }
	rl.Allow("10.0.0.1")
	require.Equal(t, 1, rl.size())

	rl.now = func() time.Time { return base.Add(2 * time.Minute) }
	rl.evictIdle()
	assert.Equal(t, 0, rl.size())
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.10:1234"
	assert.Equal(t, "192.168.1.10", ClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.4")
	assert.Equal(t, "172.16.0.4", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage, 203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORS_Preflight_Returns204WithRESTHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/rest/v1/reviews", nil)
	req.Header.Set("Origin", "https://shop.example.com")

	CORS(DefaultCORSConfig())(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "apikey")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Prefer")
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORS_ExplicitOrigins(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"https://shop.example.com"}})(okHandler)

	allowed := httptest.NewRequest(http.MethodGet, "/", nil)
	allowed.Header.Set("Origin", "https://shop.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, allowed)
	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))

	denied := httptest.NewRequest(http.MethodGet, "/", nil)
	denied.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, denied)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ---------------------------------------------------------------------------
// Logging
// ---------------------------------------------------------------------------

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	h := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rest/v1/reviews", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, float64(http.StatusCreated), line["status"])
	assert.Equal(t, seen, line["correlation_id"])
}

func TestRequestLogging_KeepsIncomingCorrelationID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "corr-1")

	RequestLogging(discardLogger())(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, "corr-1", rec.Header().Get(CorrelationIDHeader))
}

func TestRequestLogger_EnrichesWithShopID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestLogger(base, ShopIDFromQuery("shop_id"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("inside")
	}))

	req := httptest.NewRequest(http.MethodGet, "/rest/v1/reviews?shop_id=eq.test_shop_001", nil)
	req = req.WithContext(logger.WithCorrelationID(req.Context(), "corr-7"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "test_shop_001", line["shop_id"])
	assert.Equal(t, "corr-7", line["correlation_id"])
}

// ---------------------------------------------------------------------------
// Recovery, metrics, cache
// ---------------------------------------------------------------------------

func TestRecovery_PanicReturns500(t *testing.T) {
	h := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestPrometheusMetrics_CountsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics("metrics-test"))
	r.Post("/api/reviews/{id}/approve", okHandler)

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("metrics-test", http.MethodPost, "/api/reviews/{id}/approve", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/reviews/abc/approve", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("metrics-test", http.MethodPost, "/api/reviews/{id}/approve", "200"))

	assert.Equal(t, before+1, after)
}

func TestCacheControl_OnlyForReads(t *testing.T) {
	h := CacheControl(300)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widget.css", nil))
	assert.Equal(t, "public, max-age=300", rec.Header().Get("Cache-Control"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/embed/reviews", nil))
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestAccessLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, accessLogLevel(http.StatusOK))
	assert.Equal(t, slog.LevelWarn, accessLogLevel(http.StatusTooManyRequests))
	assert.Equal(t, slog.LevelError, accessLogLevel(http.StatusBadGateway))
}

func TestStatusWriter_SharedAcrossMiddleware(t *testing.T) {
	var inner *statusWriter
	h := RequestLogging(discardLogger())(PrometheusMetrics("writer-test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = w.(*statusWriter)
		_, _ = w.Write([]byte("hello"))
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, inner)
	assert.Equal(t, http.StatusOK, inner.Status())
	assert.Equal(t, 5, inner.bytes)
	assert.Equal(t, "hello", rec.Body.String())
}
