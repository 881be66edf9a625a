package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// runParseWorker is one of M parse-stage workers (spec.md §4.6): CPU-bound
// HTML extraction, emitting ParsedArticles. Parse failures — unknown
// format, an article-deleted marker, or an unparsable identifier — are
// per-article errors: logged, counted, and skipped. A running parse is
// left to finish (it does not suspend, per spec.md §5, so there's nothing
// to interrupt); the worker simply stops picking up new fetched items once
// ctx is done.
func (p *Pipeline) runParseWorker(ctx context.Context, in <-chan workItem, out chan<- workItem, stats *Stats) {
	for {
		select {
		case item, ok := <-in:
			if !ok {
				return
			}
			p.parseOne(ctx, item, out, stats)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) parseOne(ctx context.Context, item workItem, out chan<- workItem, stats *Stats) {
	article, err := p.parser.Parse(item.body, item.entry.URL, item.entry.Category)
	if err != nil {
		atomic.AddInt64(&stats.ParseErrors, 1)
		slog.Warn("pipeline: parse failed, skipping article",
			slog.String("url", item.entry.URL), slog.Any("error", err))
		return
	}

	item.article = article
	select {
	case out <- item:
	case <-ctx.Done():
	}
}
