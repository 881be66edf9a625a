package article

import (
	"regexp"
	"strings"

	"newscrawl/internal/domain/entity"
)

// MaxSlugBytes bounds the title-derived portion of a filename so that
// (publisher_id, article_id), which is what actually guarantees
// uniqueness, never gets pushed past common filesystem path-length limits
// by a long headline (spec.md §4.4).
const MaxSlugBytes = 80

// Extension is the article file's extension: front-matter header + body,
// readable as Markdown.
const Extension = "md"

var nonSlugChar = regexp.MustCompile(`[^a-z0-9\-_]+`)
var repeatedHyphen = regexp.MustCompile(`-{2,}`)

// Slugify derives a filename-safe slug from title: lowercase, strip
// anything outside [a-z0-9\-_], collapse repeated hyphens, truncate to
// MaxSlugBytes without splitting a UTF-8 rune (spec.md §4.4).
func Slugify(title string) string {
	lower := strings.ToLower(title)
	replaced := nonSlugChar.ReplaceAllString(lower, "-")
	collapsed := repeatedHyphen.ReplaceAllString(replaced, "-")
	trimmed := strings.Trim(collapsed, "-")
	return truncateUTF8(trimmed, MaxSlugBytes)
}

func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	b := []byte(s)[:maxBytes]
	for len(b) > 0 && !isUTF8Boundary(b) {
		b = b[:len(b)-1]
	}
	return strings.TrimRight(string(b), "-")
}

// isUTF8Boundary reports whether b doesn't end mid-rune.
func isUTF8Boundary(b []byte) bool {
	last := b[len(b)-1]
	return last&0xC0 != 0x80
}

// Filename builds the `{YYYYMMDD}_{category}_{publisher_id}_{article_id}_{title_slug}.{ext}`
// name spec.md §4.4 specifies. (publisher_id, article_id) being unique
// guarantees the filename is unique even when slugs collide.
func Filename(a *entity.ParsedArticle) string {
	date := a.CrawledAt.Format("20060102")
	slug := Slugify(a.Title)
	return strings.Join([]string{
		date, string(a.Category), a.ID.PublisherID, a.ID.ArticleID, slug,
	}, "_") + "." + Extension
}
