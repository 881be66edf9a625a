// Package ratelimit provides the fetcher's process-wide, cooperative request
// throttle: a single token bucket shared by every concurrent fetch worker.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time for testability, matching the seam the rest of this
// module's resilience packages use.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }

// Config controls the fetcher's request budget.
type Config struct {
	// RequestsPerSecond is R from spec: no more than R requests per second
	// leave the fetcher, measured over any 1-second sliding window.
	RequestsPerSecond float64

	// Burst is the maximum number of requests the limiter allows to fire
	// back-to-back before throttling kicks in. 1 gives the strictest
	// sliding-window behavior; values above 1 permit short bursts.
	Burst int
}

// DefaultConfig returns the spec's default rate: 3 requests/second (the
// midpoint of the stated 2-5 default range), no burst allowance.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 3, Burst: 1}
}

// Validate rejects a non-positive rate or burst.
func (c Config) Validate() error {
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %v", c.RequestsPerSecond)
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", c.Burst)
	}
	return nil
}

// Limiter is a cooperative token bucket: Wait blocks the caller until a
// token is available rather than rejecting the request. Every fetch worker
// in a single instance shares one Limiter, so R bounds the instance's
// aggregate outbound rate regardless of how many fetch workers run
// concurrently.
type Limiter struct {
	bucket *rate.Limiter
}

// New builds a Limiter from cfg. Panics if cfg fails Validate, since a
// misconfigured rate limiter is a startup-time programming error, not a
// runtime condition to recover from.
func New(cfg Config) *Limiter {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("ratelimit: invalid config: %v", err))
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
}

// Wait blocks until a token is available or ctx is canceled. It never drops
// the request: the only way out without acquiring a token is context
// cancellation.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.bucket.Wait(ctx)
}

// SetRate adjusts the limiter's rate at runtime, e.g. when an operator
// overrides the configured R via environment reload.
func (l *Limiter) SetRate(requestsPerSecond float64) {
	l.bucket.SetLimit(rate.Limit(requestsPerSecond))
}
