package entity

import (
	"fmt"
	"regexp"
)

// Identifier is the composite key (publisher_id, article_id) that uniquely
// identifies an article within the portal. Its canonical string form is
// "{publisher_id}_{article_id}".
type Identifier struct {
	PublisherID string
	ArticleID   string
}

// String returns the canonical "{publisher_id}_{article_id}" form.
func (id Identifier) String() string {
	return id.PublisherID + "_" + id.ArticleID
}

// IsZero reports whether the identifier has not been populated.
func (id Identifier) IsZero() bool {
	return id.PublisherID == "" && id.ArticleID == ""
}

// defaultIdentifierPattern matches the common portal article URL shape
// ".../article/{publisher_id}/{article_id}" with an optional trailing
// slash or query string. Portals that use a different URL grammar supply
// their own *regexp.Regexp to ExtractIdentifier.
var defaultIdentifierPattern = regexp.MustCompile(`/article/(\d+)/(\d+)(?:[/?].*)?$`)

// DefaultIdentifierPattern returns the built-in identifier extraction pattern.
func DefaultIdentifierPattern() *regexp.Regexp {
	return defaultIdentifierPattern
}

// ExtractIdentifier extracts an Identifier from a canonical article URL
// using pattern. A nil pattern falls back to DefaultIdentifierPattern.
// Per spec.md §4.2, failure to extract an identifier is fatal for the
// article being parsed.
func ExtractIdentifier(canonicalURL string, pattern *regexp.Regexp) (Identifier, error) {
	if pattern == nil {
		pattern = defaultIdentifierPattern
	}
	m := pattern.FindStringSubmatch(canonicalURL)
	if len(m) != 3 {
		return Identifier{}, fmt.Errorf("%w: url %q", ErrIdentifierUnparsable, canonicalURL)
	}
	return Identifier{PublisherID: m[1], ArticleID: m[2]}, nil
}
