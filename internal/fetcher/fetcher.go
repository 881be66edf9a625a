// Package fetcher implements spec.md §4.1's rate-limited fetcher: acquire an
// HTML document for a URL, tolerating transient server failures and
// portal-side anti-abuse, returning decoded UTF-8 text.
package fetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"newscrawl/internal/resilience/circuitbreaker"
	"newscrawl/internal/resilience/retry"
	"newscrawl/pkg/security"
)

// userAgentPool is the pre-declared pool of realistic browser user-agents
// fetch() draws from uniformly at random, per spec.md §4.1.
var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
}

// Fetcher acquires HTML documents under a shared rate budget, with retry
// and circuit-breaker protection for transient failures, the way the
// teacher's RSSFetcher wraps gofeed calls (internal/infra/scraper/rss.go).
type Fetcher struct {
	client         *http.Client
	limiter        *ratelimitWaiter
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	allowList      security.AllowList
	resolver       security.Resolver
	cfg            Config
	rng            func() int
}

// ratelimitWaiter is the subset of *ratelimit.Limiter the fetcher depends
// on, seamed out so tests can substitute a no-op waiter.
type ratelimitWaiter interface {
	Wait(ctx context.Context) error
}

// New builds a Fetcher. limiter is shared across every Fetcher in a process
// so R bounds the instance's aggregate outbound rate (spec.md §4.1).
func New(cfg Config, limiter ratelimitWaiter) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
			},
		},
		limiter:        limiter,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FetchConfig()),
		retryConfig:    retry.FetchConfig(int(cfg.BaseRetryDelay.Milliseconds()), int(cfg.MaxRetryDelay.Milliseconds()), cfg.MaxRetryAttempts),
		allowList:      security.NewAllowList(cfg.AllowedHosts),
		resolver:       security.DefaultResolver,
		cfg:            cfg,
		rng:            func() int { return rand.Intn(len(userAgentPool)) }, //nolint:gosec // UA selection, not security-sensitive
	}
}

// Fetch implements fetch(url, referer_hint) from spec.md §4.1. It validates
// the URL against SSRF rules, then issues the request with
// retry/circuit-breaker protection, blocking on the rate limiter before
// every attempt, and returns decoded body text on success.
func (f *Fetcher) Fetch(ctx context.Context, url, refererHint string) (string, error) {
	if err := security.ValidateURL(url, f.allowList, f.resolver); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSSRFValidation, err) // permanent failure, spec.md §7
	}

	forbiddenSeen := false
	var lastErr error

	for attempt := 0; attempt < f.retryConfig.MaxAttempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("fetch: rate limiter wait: %w", err)
		}
		result, cbErr := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, url, refererHint)
		})
		if cbErr == nil {
			return result.(string), nil
		}

		if errors.Is(cbErr, gobreaker.ErrOpenState) {
			slog.Warn("fetch circuit breaker open, request rejected", slog.String("url", url))
			lastErr = cbErr
			break
		}

		var httpErr *retry.HTTPError
		if errors.As(cbErr, &httpErr) {
			switch httpErr.StatusCode {
			case http.StatusNotFound:
				return "", fmt.Errorf("%w: %s", ErrNotFound, url)
			case http.StatusGone:
				return "", fmt.Errorf("%w: %s", ErrGone, url)
			case http.StatusForbidden:
				if forbiddenSeen {
					return "", fmt.Errorf("%w: %s", ErrForbidden, url)
				}
				forbiddenSeen = true
			default:
				if !retry.IsRetryable(cbErr) {
					return "", fmt.Errorf("%w: %v", ErrRetryExhausted, cbErr)
				}
			}
		} else if !retry.IsRetryable(cbErr) {
			return "", fmt.Errorf("%w: %v", ErrRetryExhausted, cbErr)
		}

		lastErr = cbErr

		if attempt == f.retryConfig.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(retry.Backoff(f.retryConfig, attempt)):
		case <-ctx.Done():
			return "", fmt.Errorf("fetch: %w", ctx.Err())
		}
	}

	return "", fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
}

func (f *Fetcher) doFetch(ctx context.Context, url, refererHint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", userAgentPool[f.rng()])
	req.Header.Set("Referer", refererHint)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 300 {
		return "", &retry.HTTPError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return decodeBody(raw, resp.Header.Get("Content-Type"), f.cfg.LegacyEncoding, f.cfg.ReplacementThreshold)
}
