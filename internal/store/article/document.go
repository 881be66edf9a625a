package article

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"newscrawl/internal/domain/entity"
)

// frontMatter is the YAML header written ahead of the article body.
type frontMatter struct {
	PublisherID   string     `yaml:"publisher_id"`
	ArticleID     string     `yaml:"article_id"`
	Title         string     `yaml:"title"`
	CanonicalURL  string     `yaml:"canonical_url"`
	Category      string     `yaml:"category"`
	PublisherName string     `yaml:"publisher_name,omitempty"`
	Author        string     `yaml:"author,omitempty"`
	PublishedAt   *time.Time `yaml:"published_at,omitempty"`
	CrawledAt     time.Time  `yaml:"crawled_at"`
	CommentCount  *int64     `yaml:"comment_count,omitempty"`
	ViewCount     *int64     `yaml:"view_count,omitempty"`
	ContentHash   string     `yaml:"content_hash"`
}

const delimiter = "---\n"

// Encode renders a, front-matter header then body, as the bytes written to
// an article file (spec.md §4.4: "text-wrapped format (front-matter header
// + body)").
func Encode(a *entity.ParsedArticle) ([]byte, error) {
	fm := frontMatter{
		PublisherID:   a.ID.PublisherID,
		ArticleID:     a.ID.ArticleID,
		Title:         a.Title,
		CanonicalURL:  a.CanonicalURL,
		Category:      string(a.Category),
		PublisherName: a.PublisherName,
		Author:        a.Author,
		PublishedAt:   a.PublishedAt,
		CrawledAt:     a.CrawledAt,
		CommentCount:  a.CommentCount,
		ViewCount:     a.ViewCount,
		ContentHash:   a.ContentHash,
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("article: encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter)
	buf.Write(header)
	buf.WriteString(delimiter)
	buf.WriteString(a.Body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Decode parses bytes previously produced by Encode back into front matter
// and body, used by tools that need to read an already-written article
// file (e.g. checkpoint recovery inspecting what's on disk).
func Decode(data []byte) (front *entity.ParsedArticle, err error) {
	parts := bytes.SplitN(data, []byte(delimiter), 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("article: malformed document: expected front matter delimited by %q", delimiter)
	}

	var fm frontMatter
	if err := yaml.Unmarshal(parts[1], &fm); err != nil {
		return nil, fmt.Errorf("article: decode front matter: %w", err)
	}

	body := bytes.TrimPrefix(parts[2], []byte("\n"))
	body = bytes.TrimSuffix(body, []byte("\n"))

	return &entity.ParsedArticle{
		ID:            entity.Identifier{PublisherID: fm.PublisherID, ArticleID: fm.ArticleID},
		CanonicalURL:  fm.CanonicalURL,
		Title:         fm.Title,
		Body:          string(body),
		Category:      entity.Category(fm.Category),
		CrawledAt:     fm.CrawledAt,
		PublisherName: fm.PublisherName,
		Author:        fm.Author,
		PublishedAt:   fm.PublishedAt,
		CommentCount:  fm.CommentCount,
		ViewCount:     fm.ViewCount,
		ContentHash:   fm.ContentHash,
	}, nil
}
