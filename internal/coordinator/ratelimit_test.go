package coordinator

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceRateLimiter_AllowsUnderLimit(t *testing.T) {
	secret := []byte("test-secret-at-least-32-bytes-long!")
	cfg := testConfig()
	cfg.JWTSecret = secret
	cfg.RateLimit = InstanceRateLimiterConfig{Limit: 2, Window: time.Minute, Enabled: true}
	srv := NewServer(cfg, nil)

	req := authedRequest(t, secret, "crawler-1", http.MethodGet, "/instances", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
}

func TestInstanceRateLimiter_DeniesOverLimitPerInstance(t *testing.T) {
	secret := []byte("test-secret-at-least-32-bytes-long!")
	cfg := testConfig()
	cfg.JWTSecret = secret
	cfg.RateLimit = InstanceRateLimiterConfig{Limit: 1, Window: time.Minute, Enabled: true}
	srv := NewServer(cfg, nil)

	first := authedRequest(t, secret, "crawler-1", http.MethodGet, "/instances", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := authedRequest(t, secret, "crawler-1", http.MethodGet, "/instances", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, second)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestInstanceRateLimiter_TracksInstancesIndependently(t *testing.T) {
	secret := []byte("test-secret-at-least-32-bytes-long!")
	cfg := testConfig()
	cfg.JWTSecret = secret
	cfg.RateLimit = InstanceRateLimiterConfig{Limit: 1, Window: time.Minute, Enabled: true}
	srv := NewServer(cfg, nil)

	reqA := authedRequest(t, secret, "crawler-a", http.MethodGet, "/instances", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, reqA)
	assert.Equal(t, http.StatusOK, rec.Code)

	reqB := authedRequest(t, secret, "crawler-b", http.MethodGet, "/instances", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, reqB)
	assert.Equal(t, http.StatusOK, rec.Code, "a different instance_id must not share crawler-a's budget")
}

func TestInstanceRateLimiter_DisabledByDefaultInTestConfig(t *testing.T) {
	secret := []byte("test-secret-at-least-32-bytes-long!")
	cfg := testConfig()
	cfg.JWTSecret = secret
	srv := NewServer(cfg, nil)

	for i := 0; i < 5; i++ {
		req := authedRequest(t, secret, "crawler-1", http.MethodGet, "/instances", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestInstanceRateLimiter_SkipsUnauthenticatedPublicHealth(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = []byte("test-secret-at-least-32-bytes-long!")
	cfg.RateLimit = InstanceRateLimiterConfig{Limit: 1, Window: time.Minute, Enabled: true}
	srv := NewServer(cfg, nil)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
