package httpclient

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/critiqo/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testCBConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      5 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func newTestBreaker(cfg CircuitBreakerConfig) *CircuitBreakerClient {
	return NewCircuitBreakerClient(New(testConfig()), cfg, testLogger())
}

func get(ctx context.Context, cb *CircuitBreakerClient, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := cb.Do(ctx, req)
	if err == nil {
		_ = resp.Body.Close()
	}
	return resp, err
}

func trip(cb *CircuitBreakerClient, url string, n int) {
	for i := 0; i < n; i++ {
		_, _ = get(context.Background(), cb, url)
	}
}

func statusServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestCircuitBreaker_ClosedState_Success(t *testing.T) {
	server, _ := statusServer(t, http.StatusOK, `{"users":[]}`)
	cb := newTestBreaker(testCBConfig("test-closed"))

	resp, err := get(context.Background(), cb, server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_5xxSurfacesStatusError(t *testing.T) {
	server, _ := statusServer(t, http.StatusInternalServerError, `{"success":false,"message":"database down"}`)
	cb := newTestBreaker(testCBConfig("test-status-error"))

	_, err := get(context.Background(), cb, server.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, "database down", se.Message)
	assert.Contains(t, se.Body, "database down")
}

func TestCircuitBreaker_TripsOnFailures(t *testing.T) {
	server, _ := statusServer(t, http.StatusInternalServerError, "")
	cb := newTestBreaker(testCBConfig("test-trip"))

	for i := 0; i < 3; i++ {
		_, err := get(context.Background(), cb, server.URL)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := get(context.Background(), cb, server.URL)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Equal(t, http.StatusServiceUnavailable, apperrors.HTTPStatus(err))
}

func TestCircuitBreaker_TooManyRequestsCountsAsFailure(t *testing.T) {
	server, _ := statusServer(t, http.StatusTooManyRequests, `{"message":"slow down"}`)
	cb := newTestBreaker(testCBConfig("test-429"))

	_, err := get(context.Background(), cb, server.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Status)

	trip(cb, server.URL, 2)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}

func TestCircuitBreaker_CanceledRequestsDoNotTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	cb := newTestBreaker(testCBConfig("test-canceled"))
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := get(ctx, cb, server.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenToClosedRecovery(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testCBConfig("test-recovery")
	cfg.Timeout = 100 * time.Millisecond
	cb := newTestBreaker(cfg)

	trip(cb, server.URL, 3)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	time.Sleep(150 * time.Millisecond)
	failing.Store(false)

	_, err := get(context.Background(), cb, server.URL)
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_4xxNotCountedAsFailure(t *testing.T) {
	server, _ := statusServer(t, http.StatusForbidden, `{"success":false,"message":"nope"}`)
	cb := newTestBreaker(testCBConfig("test-4xx"))

	for i := 0; i < 5; i++ {
		resp, err := get(context.Background(), cb, server.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_DoWithJSONRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	cb := newTestBreaker(testCBConfig("test-patch"))
	req, err := NewJSONRequest(context.Background(), http.MethodPatch, server.URL, map[string]bool{"isPremium": true})
	require.NoError(t, err)

	resp, err := cb.Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("portal")
	assert.Equal(t, "portal", cfg.Name)
	assert.Equal(t, uint32(1), cfg.MaxRequests)
	assert.Equal(t, 60*time.Second, cfg.Interval)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 0.5, cfg.FailureRatio)
	assert.Equal(t, uint32(5), cfg.MinRequests)
}

func TestCircuitBreaker_OpenStateRejectsRequests(t *testing.T) {
	server, hits := statusServer(t, http.StatusInternalServerError, "")
	cb := newTestBreaker(testCBConfig("test-open-reject"))
	trip(cb, server.URL, 3)
	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, float64(2), testutil.ToFloat64(circuitBreakerState.WithLabelValues("test-open-reject")))

	before := hits.Load()
	for i := 0; i < 5; i++ {
		_, err := get(context.Background(), cb, server.URL)
		assert.ErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, before, hits.Load())
	assert.Equal(t, float64(5), testutil.ToFloat64(circuitBreakerRejected.WithLabelValues("test-open-reject")))
}

func TestCircuitBreaker_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cb := newTestBreaker(testCBConfig("test-ctx"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := get(ctx, cb, server.URL)
	require.Error(t, err)
}
