package listing

import (
	"context"
	"time"

	"newscrawl/internal/domain/entity"
)

// Source implements pipeline.ListingSource: one page of a category's HTML
// listing, falling back to the category's RSS index (if configured) when
// the HTML page comes back empty on page 0 — e.g. the portal switched to a
// client-rendered listing the selector no longer matches.
type Source struct {
	cfg     Config
	fetcher pageFetcher
	rss     *rssFallback
}

// New builds a Source. fetcher is the same *fetcher.Fetcher the pipeline's
// fetch stage uses, so listing requests share its rate limiter, retry
// policy, and SSRF allow-list.
func New(cfg Config, fetcher pageFetcher) *Source {
	return &Source{
		cfg:     cfg,
		fetcher: fetcher,
		rss:     newRSSFallback(10 * time.Second),
	}
}

// FetchPage satisfies pipeline.ListingSource (spec.md §2: "produces a
// stream of article URLs from listing pages"). hasNext is false once a
// page returns fewer than Config.MinFullPage entries, the signal most
// paginated listings give for "last page" without an explicit total count.
func (s *Source) FetchPage(ctx context.Context, category entity.Category, pageIndex int) ([]entity.ListingEntry, bool, error) {
	cc, err := s.cfg.categoryConfig(category)
	if err != nil {
		return nil, false, err
	}

	entries, err := fetchHTMLPage(ctx, s.fetcher, cc, category, s.cfg.RefererBase, pageIndex)
	if err != nil {
		return nil, false, err
	}

	if len(entries) == 0 && pageIndex == 0 && cc.RSSFeedURL != "" {
		entries, err = s.rss.fetch(ctx, cc.RSSFeedURL, category)
		if err != nil {
			return nil, false, err
		}
		return entries, false, nil
	}

	hasNext := len(entries) >= s.cfg.MinFullPage
	return entries, hasNext, nil
}
