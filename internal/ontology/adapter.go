package ontology

import (
	"context"

	"newscrawl/internal/domain/entity"
	"newscrawl/internal/pkgconfig"
)

// Notifier adapts a Client to pipeline.OntologyNotifier, converting the
// pipeline's domain type into the wire-facing ArticleRef. It is the only
// thing the pipeline package depends on from this package, so pipeline
// never needs to know whether a real gRPC collaborator or NoOpClient is
// behind it.
type Notifier struct {
	client Client
}

// NewNotifier wraps client for use as a pipeline.OntologyNotifier.
func NewNotifier(client Client) *Notifier {
	return &Notifier{client: client}
}

// NotifyStored submits article for downstream extraction.
func (n *Notifier) NotifyStored(ctx context.Context, article *entity.ParsedArticle) error {
	_, err := n.client.SubmitArticle(ctx, ArticleRef{
		ArticleID:    article.ID.String(),
		Category:     string(article.Category),
		CanonicalURL: article.CanonicalURL,
		Title:        article.Title,
		CrawledAt:    article.CrawledAt,
	})
	return err
}

// NewClientFromEnv builds a Client from ONTOLOGY_* environment variables.
// An unset ONTOLOGY_GRPC_ADDRESS is not an error: it means no extraction
// collaborator is deployed alongside this instance, so a NoOpClient is
// returned and every handoff becomes a harmless best-effort no-op.
func NewClientFromEnv() (Client, error) {
	addr := pkgconfig.String("ONTOLOGY_GRPC_ADDRESS", "")
	if addr == "" {
		return NewNoOpClient(), nil
	}

	cfg := DefaultConfig()
	cfg.GRPCAddress = addr
	cfg.ConnectionTimeout = pkgconfig.Duration("ONTOLOGY_CONNECTION_TIMEOUT", cfg.ConnectionTimeout)
	cfg.RequestTimeout = pkgconfig.Duration("ONTOLOGY_REQUEST_TIMEOUT", cfg.RequestTimeout)

	return NewGRPCClient(cfg, nil)
}
