// Package entity defines the core domain entities and validation logic for
// the crawling pipeline: articles, listing entries, checkpoints, crawl
// slots, and worker instances.
package entity

import "time"

// ParsedArticle is the extracted record produced by the HTML parser
// (spec.md §4.2) and handed to the dedup layer and durable stores.
type ParsedArticle struct {
	ID            Identifier
	CanonicalURL  string
	Title         string
	Body          string
	Category      Category
	CrawledAt     time.Time

	// Optional fields.
	PublisherName string
	Author        string
	PublishedAt   *time.Time
	CommentCount  *int64
	ViewCount     *int64
	ContentHash   string
}

// Validate checks the required fields of a ParsedArticle per spec.md §3:
// identifier, canonical URL, non-empty title, non-empty body, a closed-enum
// category, and a crawl timestamp.
func (a *ParsedArticle) Validate() error {
	if a.ID.IsZero() {
		return &ValidationError{Field: "id", Message: "identifier is required"}
	}
	if a.CanonicalURL == "" {
		return &ValidationError{Field: "canonical_url", Message: "canonical URL is required"}
	}
	if a.Title == "" {
		return &ValidationError{Field: "title", Message: "title must not be empty"}
	}
	if a.Body == "" {
		return &ValidationError{Field: "body", Message: "body must not be empty"}
	}
	if !a.Category.IsValid() {
		return &ValidationError{Field: "category", Message: "category is not in the closed enum"}
	}
	if a.CrawledAt.IsZero() {
		return &ValidationError{Field: "crawled_at", Message: "crawl timestamp is required"}
	}
	return nil
}
