package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"newscrawl/internal/domain/entity"
	"newscrawl/internal/resilience/retry"
	"newscrawl/internal/store/metadata"
)

// runStoreWorker is one of the store stage's workers (spec.md §4.6): file
// write, metadata insert, dedup commit, checkpoint advance, in that order.
//
// It does not stop on ctx cancellation: an item reaching this stage has
// already paid for its fetch and parse, and spec.md §5's cancellation
// semantics call for letting in-flight stages drain rather than discarding
// completed work, so the store stage keeps consuming until in closes
// naturally. It only stops early via abort, which a sibling worker closes
// after its own infrastructure-retry budget is exhausted — at that point
// the whole slot is failing and there is nothing left to finish for.
// Each item's store operations run against a cancellation-detached
// context, the way the teacher detaches TouchCrawledAt from the request
// context (internal/usecase/fetch/service.go), so ctx's eventual
// cancellation can't abort a write already in flight.
func (p *Pipeline) runStoreWorker(ctx context.Context, in <-chan workItem, abort <-chan struct{}, stats *Stats) error {
	for {
		select {
		case item, ok := <-in:
			if !ok {
				return nil
			}
			storeCtx := context.WithoutCancel(ctx)
			if err := p.storeWithRetry(storeCtx, item, stats); err != nil {
				return err
			}
		case <-abort:
			return nil
		}
	}
}

func (p *Pipeline) storeWithRetry(ctx context.Context, item workItem, stats *Stats) error {
	var lastErr error
	for attempt := 0; attempt < p.cfg.StoreRetry.MaxAttempts; attempt++ {
		result, err := p.storeOnce(ctx, item)
		if err == nil {
			p.checker.Commit(item.article.CanonicalURL)
			if result == metadata.Duplicate {
				atomic.AddInt64(&stats.StoreDuplicates, 1)
			} else {
				atomic.AddInt64(&stats.Stored, 1)
				p.notifyOntology(ctx, item.article)
			}
			if trackErr := p.tracker.MarkCompleted(item.article.ID, item.article.CanonicalURL, item.pageIndex); trackErr != nil {
				slog.Warn("pipeline: checkpoint mark failed", slog.Any("error", trackErr))
			}
			return nil
		}

		lastErr = err
		if attempt == p.cfg.StoreRetry.MaxAttempts-1 {
			break
		}
		slog.Warn("pipeline: store stage infrastructure error, retrying",
			slog.String("identifier", item.article.ID.String()),
			slog.Int("attempt", attempt+1), slog.Any("error", err))
		time.Sleep(retry.Backoff(p.cfg.StoreRetry, attempt))
	}
	return fmt.Errorf("store %s: %w", item.article.ID, lastErr)
}

func (p *Pipeline) storeOnce(ctx context.Context, item workItem) (metadata.InsertResult, error) {
	filePath, err := p.articles.Write(item.article)
	if err != nil {
		return 0, fmt.Errorf("write article file: %w", err)
	}

	result, err := p.meta.Insert(ctx, item.article, filePath)
	if err != nil {
		return 0, fmt.Errorf("insert metadata: %w", err)
	}
	return result, nil
}

// notifyOntology hands article to the configured ontology notifier and, if
// that succeeds and the metadata store tracks the flag, marks it indexed
// downstream. Best-effort: a failure here is logged, never escalated,
// since extraction itself is out of this system's scope.
func (p *Pipeline) notifyOntology(ctx context.Context, article *entity.ParsedArticle) {
	if err := p.notifier.NotifyStored(ctx, article); err != nil {
		slog.Warn("pipeline: ontology handoff failed",
			slog.String("identifier", article.ID.String()), slog.Any("error", err))
		return
	}
	if marker, ok := p.meta.(downstreamMarker); ok {
		if err := marker.MarkIndexedDownstream(ctx, article.ID); err != nil {
			slog.Warn("pipeline: mark indexed downstream failed",
				slog.String("identifier", article.ID.String()), slog.Any("error", err))
		}
	}
}
