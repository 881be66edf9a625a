package article

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscrawl/internal/domain/entity"
)

func sampleArticle() *entity.ParsedArticle {
	published := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	views := int64(120)
	return &entity.ParsedArticle{
		ID:            entity.Identifier{PublisherID: "42", ArticleID: "1001"},
		CanonicalURL:  "https://portal.example.com/article/42/1001",
		Title:         "Breaking news",
		Body:          "Paragraph one.\nParagraph two.",
		Category:      entity.CategoryPolitics,
		CrawledAt:     time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
		PublisherName: "Example Daily",
		Author:        "Jane Reporter",
		PublishedAt:   &published,
		ViewCount:     &views,
		ContentHash:   "deadbeef",
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	original := sampleArticle()

	data, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, original.ID, decoded.ID)
	assert.Equal(t, original.CanonicalURL, decoded.CanonicalURL)
	assert.Equal(t, original.Title, decoded.Title)
	assert.Equal(t, original.Body, decoded.Body)
	assert.Equal(t, original.Category, decoded.Category)
	assert.Equal(t, original.PublisherName, decoded.PublisherName)
	assert.Equal(t, original.Author, decoded.Author)
	assert.Equal(t, original.ContentHash, decoded.ContentHash)
	require.NotNil(t, decoded.PublishedAt)
	assert.True(t, original.PublishedAt.Equal(*decoded.PublishedAt))
	require.NotNil(t, decoded.ViewCount)
	assert.Equal(t, *original.ViewCount, *decoded.ViewCount)
}

func TestDecode_MalformedDocument(t *testing.T) {
	_, err := Decode([]byte("not a front-matter document"))
	assert.Error(t, err)
}

func TestEncode_BodyContainingDelimiterSurvivesRoundTrip(t *testing.T) {
	a := sampleArticle()
	a.Body = "before\n---\nafter"

	data, err := Encode(a)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, a.Body, decoded.Body)
}
