package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"

	"newscrawl/internal/dedup"
	"newscrawl/internal/domain/entity"
)

// runProducer drives the listing loop (spec.md §4.6): page by page, running
// each discovered entry through the dedup pre-check before handing admitted
// entries to the fetch stage. It resumes from startPageIndex (the
// checkpoint's LastPageIndex) rather than always starting at page zero, so
// a restarted slot doesn't redrain pages it already finished.
//
// The bounded listingCh itself provides the "will not advance to the next
// page while any queue is full" backpressure rule: a send blocks until the
// fetch stage (and transitively, parse and store) have room, so the
// producer naturally stalls rather than racing ahead.
func (p *Pipeline) runProducer(ctx context.Context, category entity.Category, startPageIndex int, out chan<- workItem, stats *Stats) {
	pageIndex := startPageIndex
	for {
		if ctx.Err() != nil {
			return
		}

		entries, hasNext, err := p.listings.FetchPage(ctx, category, pageIndex)
		if err != nil {
			slog.Warn("pipeline: listing page fetch failed, stopping producer",
				slog.String("category", string(category)), slog.Int("page", pageIndex), slog.Any("error", err))
			return
		}

		for _, entry := range entries {
			atomic.AddInt64(&stats.ListingEntries, 1)

			decision, err := p.checker.Check(ctx, entry.URL)
			if err != nil {
				// Tier 3 unreachable: the URL's status is unknown, so it is
				// admitted. The store stage's unique constraint is the final
				// arbiter regardless, so it is safe to let it through.
				slog.Warn("pipeline: dedup check failed, admitting conservatively",
					slog.String("url", entry.URL), slog.Any("error", err))
			} else if decision == dedup.Reject {
				atomic.AddInt64(&stats.DuplicatesSkipped, 1)
				continue
			}

			item := workItem{entry: entry, pageIndex: pageIndex}
			select {
			case out <- item:
			case <-ctx.Done():
				return
			}
		}

		if !hasNext {
			return
		}
		pageIndex++
	}
}
