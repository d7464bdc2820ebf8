package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kudorimaru/bcart-review-app/pkg/tracing"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/config"
	"github.com/kudorimaru/bcart-review-app/services/reviewstore/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func queryApproved(t *testing.T, h http.Handler) []domain.Review {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet,
		"/rest/v1/reviews?shop_id=eq.test_shop_001&product_id=eq.12345&status=eq.approved&order=created_at.desc", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out []domain.Review
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewApp_MemorySeeded(t *testing.T) {
	t.Setenv("REVIEW_STORE_SEED", "true")
	a, err := NewApp(testConfig(t), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	reviews := queryApproved(t, a.httpServer.Handler)
	require.Len(t, reviews, 2)
	assert.Equal(t, "田中太郎", reviews[0].AuthorName)
	assert.Equal(t, ":3000", a.httpServer.Addr)
}

func TestNewApp_MemoryEmptyByDefault(t *testing.T) {
	a, err := NewApp(testConfig(t), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	assert.Empty(t, queryApproved(t, a.httpServer.Handler))
}

func TestNewApp_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REVIEW_STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", mr.Addr())

	a, err := NewApp(testConfig(t), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown() })

	body := `{"shop_id":"test_shop_001","product_id":"12345","rating":5,"author_name":"Taro"}`
	req := httptest.NewRequest(http.MethodPost, "/rest/v1/reviews", strings.NewReader(body))
	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	ids, err := mr.List("reviews:all")
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	req = httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec = httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis"`)
}

func TestNewApp_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	t.Setenv("REVIEW_STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", addr)
	t.Setenv("REDIS_DIAL_TIMEOUT", "100ms")

	_, err := NewApp(testConfig(t), testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestNewApp_StorageFailureStopsTracer(t *testing.T) {
	var shutdowns int
	orig := initTracer
	initTracer = func(context.Context, tracing.Config) (func(context.Context) error, error) {
		return func(context.Context) error {
			shutdowns++
			return nil
		}, nil
	}
	t.Cleanup(func() { initTracer = orig })

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	t.Setenv("REVIEW_STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", addr)
	t.Setenv("REDIS_DIAL_TIMEOUT", "100ms")

	_, err := NewApp(testConfig(t), testLogger())
	require.Error(t, err)
	assert.Equal(t, 1, shutdowns)
}
