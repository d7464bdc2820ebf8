package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      50 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

// statusServer answers every request with the status held in code.
func statusServer(t *testing.T, code *atomic.Int32, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(code.Load()))
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func cbGet(cb *CircuitBreakerClient, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	return cb.Do(context.Background(), req)
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("reviewstore")
	assert.Equal(t, "reviewstore", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.InDelta(t, 0.5, cfg.FailureRatio, 1e-9)
}

func TestCircuitBreaker_PassesThroughWhenHealthy(t *testing.T) {
	var code, hits atomic.Int32
	code.Store(http.StatusOK)
	srv := statusServer(t, &code, &hits)

	cb := NewCircuitBreakerClient(testClient(0), testCBConfig("cb-healthy"), testLogger())

	resp, err := cbGet(cb, srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_OpensOnServerErrors(t *testing.T) {
	var code, hits atomic.Int32
	code.Store(http.StatusInternalServerError)
	srv := statusServer(t, &code, &hits)

	cb := NewCircuitBreakerClient(testClient(0), testCBConfig("cb-open"), testLogger())

	for range 3 {
		_, err := cbGet(cb, srv.URL)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, float64(2), testutil.ToFloat64(circuitBreakerState.WithLabelValues("cb-open")))

	_, err := cbGet(cb, srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(3), hits.Load(), "open breaker must not reach the server")
	assert.Equal(t, float64(1), testutil.ToFloat64(circuitBreakerRejectedTotal.WithLabelValues("cb-open")))
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	var code, hits atomic.Int32
	code.Store(http.StatusServiceUnavailable)
	srv := statusServer(t, &code, &hits)

	cb := NewCircuitBreakerClient(testClient(0), testCBConfig("cb-recover"), testLogger())
	for range 3 {
		_, _ = cbGet(cb, srv.URL)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	code.Store(http.StatusOK)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, cb.State())

	resp, err := cbGet(cb, srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	var code, hits atomic.Int32
	code.Store(http.StatusUnauthorized)
	srv := statusServer(t, &code, &hits)

	cb := NewCircuitBreakerClient(testClient(0), testCBConfig("cb-4xx"), testLogger())

	for range 5 {
		resp, err := cbGet(cb, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_TransportErrorsTrip(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	cb := NewCircuitBreakerClient(testClient(0), testCBConfig("cb-transport"), testLogger())
	for range 3 {
		_, err := cbGet(cb, srv.URL)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrCircuitOpen))
	}

	_, err := cbGet(cb, srv.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

type doerFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

func (f doerFunc) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

func TestCircuitBreaker_WrapsAnyDoer(t *testing.T) {
	var called bool
	inner := doerFunc(func(_ context.Context, req *http.Request) (*http.Response, error) {
		called = true
		assert.Equal(t, "/rest/v1/reviews", req.URL.Path)
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	cb := NewCircuitBreakerClient(inner, testCBConfig("cb-doer"), testLogger())
	resp, err := cbGet(cb, "http://reviewstore.local/rest/v1/reviews")
	require.NoError(t, err)
	resp.Body.Close()
	assert.True(t, called)
}
