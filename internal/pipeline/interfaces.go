package pipeline

import (
	"context"

	"newscrawl/internal/dedup"
	"newscrawl/internal/domain/entity"
	"newscrawl/internal/store/metadata"
)

// ListingSource yields one page of ListingEntries for a category, the way
// the teacher's FeedFetcher yields one feed's worth of FeedItems
// (internal/usecase/fetch/service.go). hasNext is false once the listing is
// drained for this slot's window; pageIndex is zero-based and resumes from
// the checkpoint's LastPageIndex.
type ListingSource interface {
	FetchPage(ctx context.Context, category entity.Category, pageIndex int) (entries []entity.ListingEntry, hasNext bool, err error)
}

// Fetcher is the subset of *fetcher.Fetcher the fetch stage depends on.
type Fetcher interface {
	Fetch(ctx context.Context, url, refererHint string) (string, error)
}

// Parser is the subset of *parser.Parser the parse stage depends on.
type Parser interface {
	Parse(html, canonicalURL string, category entity.Category) (*entity.ParsedArticle, error)
}

// DedupChecker is the subset of *dedup.Checker the pipeline depends on.
type DedupChecker interface {
	Check(ctx context.Context, rawURL string) (dedup.Decision, error)
	Commit(rawURL string)
}

// ArticleWriter is the subset of *article.FileStore the store stage depends on.
type ArticleWriter interface {
	Write(a *entity.ParsedArticle) (string, error)
}

// MetadataInserter is the subset of metadata.Store the store stage depends on.
type MetadataInserter interface {
	Insert(ctx context.Context, article *entity.ParsedArticle, filePath string) (metadata.InsertResult, error)
}

// CheckpointTracker is the subset of *checkpoint.Tracker the store stage
// depends on.
type CheckpointTracker interface {
	MarkCompleted(id entity.Identifier, sourceURL string, pageIndex int) error
	Finish() error
}

// OntologyNotifier hands a freshly stored article to the out-of-scope
// ontology-extraction collaborator. The pipeline treats this as best-effort:
// a failure here never fails the slot, since knowledge-graph extraction is
// explicitly not this system's responsibility (spec.md §1 Non-goals) — only
// the handoff is.
type OntologyNotifier interface {
	NotifyStored(ctx context.Context, article *entity.ParsedArticle) error
}

// downstreamMarker is implemented by metadata stores that track whether an
// article has been handed off downstream. Checked with a type assertion
// rather than added to MetadataInserter, so stores with no use for the
// ontology boundary don't have to implement it — the same optional-interface
// pattern pkg/ratelimit's SlidingWindowAlgorithm uses for AtomicRateLimitStore.
type downstreamMarker interface {
	MarkIndexedDownstream(ctx context.Context, id entity.Identifier) error
}
