// Package metadata implements the durable relational metadata store
// (spec.md §4.4): one row per article identifier, unique on
// (publisher_id, article_id) and on canonical URL, queried by the dedup
// layer's tier 3 and by the pipeline's store stage.
package metadata

import (
	"context"
	"errors"

	"newscrawl/internal/domain/entity"
)

// ErrInfrastructure wraps failures that are not a unique-constraint
// rejection: connection loss, timeout, syntax error. Callers (the
// pipeline's store stage) retry these with backoff; a Duplicate result is
// not an error at all.
var ErrInfrastructure = errors.New("metadata: infrastructure failure")

// InsertResult is the three-way outcome of Store.Insert.
type InsertResult int

const (
	// Inserted means the row was written.
	Inserted InsertResult = iota
	// Duplicate means a unique-constraint violation on identifier or
	// canonical URL rejected the insert; this is success, not failure —
	// ingestion is idempotent (spec.md §4.4).
	Duplicate
)

// Store is the metadata store's API (spec.md §4.4). Postgres and SQLite
// adapters both implement it; the pipeline and dedup layer depend only on
// this interface.
type Store interface {
	// Insert writes article at filePath. A unique-constraint violation on
	// (publisher_id, article_id) or canonical URL returns (Duplicate, nil).
	Insert(ctx context.Context, article *entity.ParsedArticle, filePath string) (InsertResult, error)

	ExistsByIdentifier(ctx context.Context, id entity.Identifier) (bool, error)
	ExistsByURL(ctx context.Context, canonicalURL string) (bool, error)

	// MarkIndexedDownstream is idempotent.
	MarkIndexedDownstream(ctx context.Context, id entity.Identifier) error

	CountByCategory(ctx context.Context, category entity.Category) (int64, error)
	TotalCount(ctx context.Context) (int64, error)

	// AllCanonicalURLs supports dedup tier-1 warming at process start
	// (spec.md §4.3).
	AllCanonicalURLs(ctx context.Context) ([]string, error)

	Close() error
}
