package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// runFetchWorker is one of K fetch-stage workers (spec.md §4.6): it draws
// ListingEntries, calls the rate-limited fetcher, and emits (entry,
// body_text) pairs. Per-article fetch errors are logged, counted, and
// skipped — the pipeline continues. Retry-exhaustion is treated as
// RateLimitExhausted: a signal that the portal's own anti-abuse throttling
// is engaged, so the worker that saw it pauses for a cooldown before
// resuming, rather than hammering the same host with the next entry
// immediately. The other fetch workers are not paused and keep drawing
// entries.
//
// The worker stops picking up new entries as soon as ctx is done — on
// cancellation, the pipeline does not start fresh fetches, only lets
// whichever fetch is already executing complete (spec.md §5: "an in-flight
// HTTP request is allowed up to its configured timeout; it is not forcibly
// aborted").
func (p *Pipeline) runFetchWorker(ctx context.Context, in <-chan workItem, out chan<- workItem, stats *Stats) {
	for {
		select {
		case item, ok := <-in:
			if !ok {
				return
			}
			p.fetchOne(ctx, item, out, stats)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) fetchOne(ctx context.Context, item workItem, out chan<- workItem, stats *Stats) {
	refererHint := p.cfg.RefererBase + string(item.entry.Category)

	body, err := p.fetcher.Fetch(ctx, item.entry.URL, refererHint)
	if err != nil {
		if isRateLimitExhaustion(err) {
			atomic.AddInt64(&stats.RateLimitPauses, 1)
			slog.Warn("pipeline: fetch retry budget exhausted, pausing fetch worker",
				slog.String("url", item.entry.URL), slog.Duration("cooldown", p.cfg.RateLimitCooldown))
			select {
			case <-time.After(p.cfg.RateLimitCooldown):
			case <-ctx.Done():
			}
		} else {
			atomic.AddInt64(&stats.FetchErrors, 1)
			slog.Warn("pipeline: fetch failed, skipping article",
				slog.String("url", item.entry.URL), slog.Any("error", err))
		}
		return
	}

	item.body = body
	select {
	case out <- item:
	case <-ctx.Done():
	}
}
