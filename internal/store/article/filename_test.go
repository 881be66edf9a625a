package article

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"newscrawl/internal/domain/entity"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{name: "lowercases and spaces to hyphens", title: "Breaking News Today", want: "breaking-news-today"},
		{name: "strips punctuation", title: "What's Next? (2026)", want: "what-s-next-2026"},
		{name: "collapses repeated hyphens", title: "A --- B", want: "a-b"},
		{name: "keeps underscores", title: "keep_this_one", want: "keep_this_one"},
		{name: "trims leading and trailing hyphens", title: "-leading and trailing-", want: "leading-and-trailing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.title))
		})
	}
}

func TestSlugify_TruncatesToMaxSlugBytes(t *testing.T) {
	long := strings.Repeat("word ", 100)
	slug := Slugify(long)
	assert.LessOrEqual(t, len(slug), MaxSlugBytes)
}

func TestFilename(t *testing.T) {
	a := &entity.ParsedArticle{
		ID:        entity.Identifier{PublisherID: "42", ArticleID: "1001"},
		Title:     "Breaking News",
		Category:  entity.CategoryPolitics,
		CrawledAt: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "20260305_politics_42_1001_breaking-news.md", Filename(a))
}

func TestFilename_UniqueOnIdentifierEvenWithSameTitle(t *testing.T) {
	base := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	a1 := &entity.ParsedArticle{ID: entity.Identifier{PublisherID: "1", ArticleID: "1"}, Title: "Same Title", Category: entity.CategoryGeneral, CrawledAt: base}
	a2 := &entity.ParsedArticle{ID: entity.Identifier{PublisherID: "1", ArticleID: "2"}, Title: "Same Title", Category: entity.CategoryGeneral, CrawledAt: base}
	assert.NotEqual(t, Filename(a1), Filename(a2))
}
