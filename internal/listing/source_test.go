package listing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscrawl/internal/domain/entity"
)

// fakeFetcher serves pre-canned HTML bodies keyed by the full request URL,
// standing in for *fetcher.Fetcher.
type fakeFetcher struct {
	byURL map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, url, _ string) (string, error) {
	body, ok := f.byURL[url]
	if !ok {
		return "", nil
	}
	return body, nil
}

func TestSource_FetchPage_PaginatesUntilShortPage(t *testing.T) {
	fullPage := `<html><body>
		<a class="article-link" href="/a/1">one</a>
		<a class="article-link" href="/a/2">two</a>
	</body></html>`
	shortPage := `<html><body>
		<a class="article-link" href="/a/3">three</a>
	</body></html>`

	cfg := Config{
		MinFullPage: 2,
		RefererBase: "https://portal.example.com/section/",
		Categories: map[entity.Category]CategoryConfig{
			entity.CategoryGeneral: {
				HTMLListingURLTemplate: "https://portal.example.com/general?page=%d",
				LinkSelector:           "a.article-link",
			},
		},
	}
	f := &fakeFetcher{byURL: map[string]string{
		"https://portal.example.com/general?page=1": fullPage,
		"https://portal.example.com/general?page=2": shortPage,
	}}
	src := New(cfg, f)

	entries, hasNext, err := src.FetchPage(context.Background(), entity.CategoryGeneral, 0)
	require.NoError(t, err)
	assert.True(t, hasNext)
	assert.Len(t, entries, 2)
	assert.Equal(t, "https://portal.example.com/a/1", entries[0].URL)

	entries, hasNext, err = src.FetchPage(context.Background(), entity.CategoryGeneral, 1)
	require.NoError(t, err)
	assert.False(t, hasNext)
	assert.Len(t, entries, 1)
	assert.Equal(t, "https://portal.example.com/a/3", entries[0].URL)
}

func TestSource_FetchPage_DedupsRepeatedLinksOnOnePage(t *testing.T) {
	page := `<html><body>
		<a class="article-link" href="/a/1">one</a>
		<a class="article-link" href="/a/1">again</a>
	</body></html>`
	cfg := Config{
		MinFullPage: 10,
		Categories: map[entity.Category]CategoryConfig{
			entity.CategoryGeneral: {
				HTMLListingURLTemplate: "https://portal.example.com/general?page=%d",
				LinkSelector:           "a.article-link",
			},
		},
	}
	f := &fakeFetcher{byURL: map[string]string{
		"https://portal.example.com/general?page=1": page,
	}}
	src := New(cfg, f)

	entries, hasNext, err := src.FetchPage(context.Background(), entity.CategoryGeneral, 0)
	require.NoError(t, err)
	assert.False(t, hasNext)
	assert.Len(t, entries, 1)
}

func TestSource_FetchPage_FallsBackToRSSWhenHTMLPageIsEmpty(t *testing.T) {
	rssServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>A</title><link>https://portal.example.com/rss/1</link></item>
</channel></rss>`))
	}))
	defer rssServer.Close()

	cfg := Config{
		MinFullPage: 10,
		Categories: map[entity.Category]CategoryConfig{
			entity.CategoryGeneral: {
				HTMLListingURLTemplate: "https://portal.example.com/general?page=%d",
				LinkSelector:           "a.article-link",
				RSSFeedURL:             rssServer.URL,
			},
		},
	}
	f := &fakeFetcher{byURL: map[string]string{
		"https://portal.example.com/general?page=1": `<html><body>no links here</body></html>`,
	}}
	src := New(cfg, f)

	entries, hasNext, err := src.FetchPage(context.Background(), entity.CategoryGeneral, 0)
	require.NoError(t, err)
	assert.False(t, hasNext)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://portal.example.com/rss/1", entries[0].URL)
}

func TestSource_FetchPage_UnconfiguredCategoryErrors(t *testing.T) {
	src := New(DefaultConfig(), &fakeFetcher{})
	_, _, err := src.FetchPage(context.Background(), entity.CategorySports, 0)
	assert.Error(t, err)
}

func TestRSSFallback_Fetch_ParsesItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
  <item><title>A</title><link>https://example.com/1</link><pubDate>Mon, 01 Jan 2024 00:00:00 +0000</pubDate></item>
  <item><title>B</title><link>https://example.com/2</link></item>
</channel></rss>`))
	}))
	defer server.Close()

	r := newRSSFallback(5 * time.Second)
	entries, err := r.fetch(context.Background(), server.URL, entity.CategoryGeneral)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://example.com/1", entries[0].URL)
	assert.Equal(t, entity.CategoryGeneral, entries[0].Category)
}
