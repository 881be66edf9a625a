package listing

import (
	"context"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"newscrawl/internal/domain/entity"
)

// rssFallback fetches a category's RSS/Atom index, grounded directly on the
// teacher's RSSFetcher (internal/infra/scraper/rss.go) — same library, same
// client-injection shape — but trimmed to what a listing-page fallback
// needs: one parse call, no circuit breaker of its own, since it's only
// ever invoked after the HTML listing has already come back empty.
type rssFallback struct {
	client *http.Client
}

func newRSSFallback(timeout time.Duration) *rssFallback {
	return &rssFallback{client: &http.Client{Timeout: timeout}}
}

func (r *rssFallback) fetch(ctx context.Context, feedURL string, category entity.Category) ([]entity.ListingEntry, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = "newscrawlbot"
	fp.Client = r.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]entity.ListingEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		discoveredAt := time.Now().UTC()
		if item.PublishedParsed != nil {
			discoveredAt = *item.PublishedParsed
		}
		entries = append(entries, entity.ListingEntry{
			URL:          item.Link,
			Category:     category,
			DiscoveredAt: discoveredAt,
		})
	}
	return entries, nil
}
