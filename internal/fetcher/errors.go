package fetcher

import "errors"

// Sentinel errors surfaced by Fetch, classified per spec.md §4.1.
var (
	// ErrRetryExhausted means every retry attempt failed, or an attempt
	// failed with an error that is not retryable; the caller decides
	// whether to fail the article or the whole slot.
	ErrRetryExhausted = errors.New("fetch: retry budget exhausted")

	// ErrNotFound is HTTP 404. Non-retryable.
	ErrNotFound = errors.New("fetch: not found")

	// ErrGone is HTTP 410. Non-retryable.
	ErrGone = errors.New("fetch: gone")

	// ErrForbidden is HTTP 403 after one retry. The caller should consider
	// user-agent rotation at a higher level before giving up entirely.
	ErrForbidden = errors.New("fetch: forbidden")

	// ErrSSRFValidation means the URL failed scheme/allow-list/private-range
	// validation before any request was attempted. Permanent, like
	// ErrNotFound/ErrGone (spec.md §7).
	ErrSSRFValidation = errors.New("fetch: url failed ssrf validation")
)
