package listing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newscrawl/internal/domain/entity"
)

// pageFetcher is the subset of *fetcher.Fetcher the listing source depends
// on, seamed out the way pipeline.Fetcher is — listing pages are fetched
// through the same rate-limited, SSRF-validated client as article bodies,
// so a page of listing links never costs the process an extra request
// budget beyond what spec.md §4.1's limiter already governs.
type pageFetcher interface {
	Fetch(ctx context.Context, url, refererHint string) (string, error)
}

// fetchHTMLPage retrieves one page of a category's HTML listing and
// extracts article links via cfg.LinkSelector, the way the teacher's
// NextJSScraper/RemixScraper/WebflowScraper extract article links from a
// framework-specific payload, generalized here to a configurable CSS
// selector instead of a fixed framework shape.
func fetchHTMLPage(ctx context.Context, f pageFetcher, cfg CategoryConfig, category entity.Category, refererBase string, pageIndex int) ([]entity.ListingEntry, error) {
	pageURL := fmt.Sprintf(cfg.HTMLListingURLTemplate, pageIndex+1)
	referer := refererBase + category.String()

	body, err := f.Fetch(ctx, pageURL, referer)
	if err != nil {
		return nil, fmt.Errorf("listing: fetch html page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("listing: parse page url: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("listing: parse html page: %w", err)
	}

	now := time.Now().UTC()
	var entries []entity.ListingEntry
	seen := make(map[string]struct{})
	doc.Find(cfg.LinkSelector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		absURL := resolved.String()
		if _, dup := seen[absURL]; dup {
			return
		}
		seen[absURL] = struct{}{}
		entries = append(entries, entity.ListingEntry{
			URL:          absURL,
			Category:     category,
			DiscoveredAt: now,
		})
	})

	return entries, nil
}
