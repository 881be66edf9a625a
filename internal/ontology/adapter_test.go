package ontology

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscrawl/internal/domain/entity"
)

type fakeClient struct {
	lastRef ArticleRef
	err     error
}

func (f *fakeClient) SubmitArticle(_ context.Context, ref ArticleRef) (*SubmitResult, error) {
	f.lastRef = ref
	if f.err != nil {
		return nil, f.err
	}
	return &SubmitResult{Accepted: true}, nil
}

func (f *fakeClient) Health(context.Context) error { return nil }
func (f *fakeClient) Close() error                 { return nil }

func TestNotifier_NotifyStored_ConvertsArticleFields(t *testing.T) {
	client := &fakeClient{}
	n := NewNotifier(client)

	crawledAt := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	article := &entity.ParsedArticle{
		ID:           entity.Identifier{PublisherID: "1", ArticleID: "9"},
		CanonicalURL: "https://portal.example.com/article/1/9",
		Title:        "headline",
		Category:     entity.CategoryGeneral,
		CrawledAt:    crawledAt,
	}

	require.NoError(t, n.NotifyStored(context.Background(), article))

	assert.Equal(t, article.ID.String(), client.lastRef.ArticleID)
	assert.Equal(t, string(entity.CategoryGeneral), client.lastRef.Category)
	assert.Equal(t, article.CanonicalURL, client.lastRef.CanonicalURL)
	assert.Equal(t, article.Title, client.lastRef.Title)
	assert.Equal(t, crawledAt, client.lastRef.CrawledAt)
}

func TestNotifier_NotifyStored_PropagatesClientError(t *testing.T) {
	wantErr := errors.New("ontology: collaborator unreachable")
	n := NewNotifier(&fakeClient{err: wantErr})

	err := n.NotifyStored(context.Background(), &entity.ParsedArticle{
		ID: entity.Identifier{PublisherID: "1", ArticleID: "1"},
	})

	assert.ErrorIs(t, err, wantErr)
}

func TestNewClientFromEnv_UnsetAddressReturnsNoOp(t *testing.T) {
	t.Setenv("ONTOLOGY_GRPC_ADDRESS", "")

	client, err := NewClientFromEnv()
	require.NoError(t, err)

	_, ok := client.(*NoOpClient)
	assert.True(t, ok, "expected a NoOpClient when ONTOLOGY_GRPC_ADDRESS is unset")
}
