package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscrawl/internal/ratelimit"
)

type noopWaiter struct{}

func (noopWaiter) Wait(ctx context.Context) error { return nil }

func testConfig(t *testing.T, server *httptest.Server) Config {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.AllowedHosts = []string{u.Hostname()}
	cfg.BaseRetryDelay = time.Millisecond
	cfg.MaxRetryDelay = 5 * time.Millisecond
	cfg.MaxRetryAttempts = 3
	cfg.RequestTimeout = time.Second
	return cfg
}

func TestFetcher_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv)
	f := New(cfg, noopWaiter{})

	body, err := f.Fetch(context.Background(), srv.URL, "https://portal.example.com/")
	require.NoError(t, err)
	assert.Contains(t, body, "hello")
}

func TestFetcher_Fetch_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv)
	f := New(cfg, noopWaiter{})

	_, err := f.Fetch(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetcher_Fetch_Gone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv)
	f := New(cfg, noopWaiter{})

	_, err := f.Fetch(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGone)
}

func TestFetcher_Fetch_ForbiddenAfterOneRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv)
	f := New(cfg, noopWaiter{})

	_, err := f.Fetch(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestFetcher_Fetch_RetriesOn503ThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := testConfig(t, srv)
	f := New(cfg, noopWaiter{})

	body, err := f.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, 2, calls)
}

func TestFetcher_Fetch_RetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv)
	f := New(cfg, noopWaiter{})

	_, err := f.Fetch(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryExhausted)
}

func TestFetcher_Fetch_SSRFValidationFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedHosts = []string{"portal.example.com"}
	f := New(cfg, noopWaiter{})

	_, err := f.Fetch(context.Background(), "https://evil.example.com/x", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSSRFValidation)
}

func TestFetcher_Fetch_RateLimiterWaitError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedHosts = []string{"portal.example.com"}
	f := New(cfg, ratelimit.New(ratelimit.Config{RequestsPerSecond: 1, Burst: 1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "https://portal.example.com/a", "")
	require.Error(t, err)
}
