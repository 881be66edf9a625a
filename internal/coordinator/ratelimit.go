package coordinator

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// InstanceRateLimiterConfig controls per-instance request throttling on the
// coordinator's HTTP surface. Unlike an IP- or user-keyed HTTP rate limiter,
// the key here is the instance_id authMiddleware already extracted from the
// bearer token — every caller is a trusted crawler instance, not an
// anonymous client, so limiting by instance rather than by address stops
// one misbehaving instance from starving the scheduler's slot table without
// punishing requests sharing its network egress.
type InstanceRateLimiterConfig struct {
	// Limit is the maximum number of requests per instance within Window.
	Limit int

	// Window is the time period each Limit applies to.
	Window time.Duration

	// Enabled controls whether the limiter runs at all.
	Enabled bool
}

// DefaultInstanceRateLimiterConfig allows a registered instance to call any
// coordinator endpoint up to twice per second (120 per minute) on average, generous enough for
// the heartbeat/slot-request polling loop runner.Runner drives while still
// bounding a runaway or misconfigured instance.
func DefaultInstanceRateLimiterConfig() InstanceRateLimiterConfig {
	return InstanceRateLimiterConfig{
		Limit:   120,
		Window:  time.Minute,
		Enabled: true,
	}
}

// requestLog is a sliding window of request timestamps for one instance_id.
// Stale entries are trimmed lazily on each check rather than by a background
// sweeper, which keeps the limiter's memory bounded by active instances only
// (a handful per deployment, not per client IP).
type requestLog struct {
	mu        sync.Mutex
	instances map[string][]time.Time
}

func newRequestLog() *requestLog {
	return &requestLog{instances: make(map[string][]time.Time)}
}

// allow records a request for key at now and reports whether it falls within
// limit requests over the trailing window. The slice is kept sorted by
// insertion order, so trimming expired entries is a single prefix scan.
func (l *requestLog) allow(key string, now time.Time, limit int, window time.Duration) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-window)
	times := l.instances[key]

	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	times = times[i:]

	resetAt = now.Add(window)
	if len(times) > 0 {
		resetAt = times[0].Add(window)
	}

	if len(times) >= limit {
		l.instances[key] = times
		return false, 0, resetAt
	}

	times = append(times, now)
	l.instances[key] = times
	return true, limit - len(times), resetAt
}

// breakerState is a minimal fail-open circuit breaker: after a run of
// consecutive failures it stops calling into requestLog at all and simply
// waves every request through, so a bug in the limiter itself can never
// become an outage for the instances it's supposed to be protecting.
type breakerState struct {
	mu               sync.Mutex
	consecutiveFails int
	openUntil        time.Time
	logger           *slog.Logger
}

const (
	breakerFailureThreshold = 10
	breakerRecovery         = 30 * time.Second
)

func (b *breakerState) isOpen(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Before(b.openUntil)
}

func (b *breakerState) recordResult(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.consecutiveFails = 0
		return
	}
	b.consecutiveFails++
	if b.consecutiveFails >= breakerFailureThreshold {
		b.openUntil = time.Now().Add(breakerRecovery)
		b.logger.Warn("coordinator: rate limiter breaker opened, failing open",
			slog.Int("consecutive_failures", b.consecutiveFails))
	}
}

// instanceRateLimiter is the HTTP middleware adapter around requestLog and
// breakerState: same per-instance sliding window plus fail-open breaker
// composition a client-facing limiter needs, trimmed down to exactly what
// this coordinator's single limiter type uses rather than a pluggable
// store/algorithm/metrics framework built for many limiter shapes at once.
type instanceRateLimiter struct {
	config  InstanceRateLimiterConfig
	log     *requestLog
	breaker *breakerState
	logger  *slog.Logger
}

func newInstanceRateLimiter(cfg InstanceRateLimiterConfig, logger *slog.Logger) *instanceRateLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 120
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &instanceRateLimiter{
		config:  cfg,
		log:     newRequestLog(),
		breaker: &breakerState{logger: logger},
		logger:  logger,
	}
}

// middleware enforces the per-instance limit. It must run after
// authMiddleware has populated the instance_id in context, and before the
// mux dispatches to a handler.
func (rl *instanceRateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		instanceID := instanceIDFromContext(r.Context())
		if instanceID == "" {
			// No authenticated instance (e.g. the public /health path) — not
			// this middleware's concern.
			next.ServeHTTP(w, r)
			return
		}

		now := time.Now()
		if rl.breaker.isOpen(now) {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, resetAt := rl.log.allow(instanceID, now, rl.config.Limit, rl.config.Window)
		rl.breaker.recordResult(nil)

		setRateLimitHeaders(w, rl.config.Limit, remaining, resetAt)
		if !allowed {
			retryAfter := int64(resetAt.Sub(now).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded for this instance")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, limit, remaining int, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	w.Header().Set("X-RateLimit-Type", "instance")
}
