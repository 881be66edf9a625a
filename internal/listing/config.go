// Package listing implements the listing-page producer the pipeline
// orchestrator draws ListingEntries from (spec.md §2: "produces a stream of
// article URLs from listing pages"). The primary path scrapes the portal's
// paginated HTML category listing through the shared rate-limited fetcher;
// an RSS/Atom index is consulted as a fallback when a category exposes one
// and the HTML page yields nothing, the way the teacher's scraper package
// offers several FeedFetcher implementations behind one interface
// (internal/infra/scraper/{rss,nextjs,remix,webflow}.go).
package listing

import (
	"fmt"

	"newscrawl/internal/domain/entity"
)

// CategoryConfig names where and how to list one category's articles.
type CategoryConfig struct {
	// HTMLListingURLTemplate is formatted with a 1-indexed page number via
	// fmt.Sprintf (e.g. "https://portal.example.com/section/general?page=%d").
	HTMLListingURLTemplate string

	// LinkSelector is the goquery CSS selector matching article anchor tags
	// on the listing page.
	LinkSelector string

	// RSSFeedURL is consulted only as a fallback, and only for page 0.
	RSSFeedURL string
}

// Config controls the listing source across all categories.
type Config struct {
	Categories map[entity.Category]CategoryConfig

	// MinFullPage is the entry count below which a page is treated as the
	// listing's last page (hasNext=false), since most portals pad every
	// non-final page to a fixed size.
	MinFullPage int

	// RefererBase is prefixed to a category to build the fetch's
	// referer-hint header (spec.md §4.1), matching pipeline.Config's field
	// of the same name so listing requests look like the same session.
	RefererBase string
}

// DefaultConfig returns a Config with no categories configured; callers
// populate Categories from their own portal-specific settings since there
// is no universal listing URL shape.
func DefaultConfig() Config {
	return Config{
		MinFullPage: 20,
	}
}

func (c Config) categoryConfig(category entity.Category) (CategoryConfig, error) {
	cc, ok := c.Categories[category]
	if !ok {
		return CategoryConfig{}, fmt.Errorf("listing: no source configured for category %q", category)
	}
	return cc, nil
}
