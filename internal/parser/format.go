// Package parser implements spec.md §4.2: transform raw HTML into a
// ParsedArticle, selecting among the General, Entertainment, Sports, and
// Card/Photo layout families the way the teacher's web scrapers
// (internal/infra/scraper/webflow.go, nextjs.go, remix.go) select among
// per-source selector configs, generalized into a fixed fallback chain.
package parser

// Format names the layout family a page was extracted with.
type Format string

const (
	FormatGeneral       Format = "general"
	FormatEntertainment Format = "entertainment"
	FormatSports        Format = "sports"
	FormatCard          Format = "card"
)

// Selectors is one layout family's CSS selector set. Each field is tried in
// order; the first selector that matches a non-empty node wins.
type Selectors struct {
	Format Format

	// BodyContainer is the structural signal used for format detection: a
	// family matches only if this selector finds a non-empty node.
	BodyContainer []string

	Title       []string
	Author      []string
	Publisher   []string
	PublishedAt []string

	// Noise is the set of descendant selectors stripped from the body
	// container before text extraction: ads, related-article links, image
	// captions, scripts, styles, iframes, video wrappers, reporter
	// signatures (spec.md §4.2).
	Noise []string

	// DeletedMarker is a selector whose presence means the article was
	// taken down; if found, parsing stops with ErrArticleNotFound without
	// trying the remaining families.
	DeletedMarker string
}

// fallbackChain is tried in this fixed order: General, Entertainment,
// Sports, Card (spec.md §4.2). The selector lists below are deliberately
// broad/defensive — real portals vary their markup, so each family lists
// several plausible selectors rather than one exact match.
var fallbackChain = []Selectors{
	{
		Format:        FormatGeneral,
		BodyContainer: []string{"#article-view-content-div", "div.article_view", "article.article-body"},
		Title:         []string{"h1.article-title", "h1#article-title", "header h1"},
		Author:        []string{"span.byline", "p.reporter", ".author-name"},
		Publisher:     []string{"meta[property='og:site_name']", ".press-logo img"},
		PublishedAt:   []string{"time[datetime]", "span.article-date", ".date-published"},
		Noise: []string{
			"script", "style", "iframe", "ins.ad", ".ad-banner",
			".related-articles", "figcaption", ".reporter-signature", "video",
		},
		DeletedMarker: ".article-deleted-notice",
	},
	{
		Format:        FormatEntertainment,
		BodyContainer: []string{"div.entertain-article-body", "section.ent-content"},
		Title:         []string{"h1.ent-title", "h2.article-headline"},
		Author:        []string{".ent-byline", ".writer"},
		Publisher:     []string{"meta[property='og:site_name']"},
		PublishedAt:   []string{"time[datetime]", ".ent-date"},
		Noise: []string{
			"script", "style", "iframe", ".ent-ad", ".photo-gallery-nav",
			"figcaption", ".ent-reporter", "video",
		},
		DeletedMarker: ".content-removed",
	},
	{
		Format:        FormatSports,
		BodyContainer: []string{"div.sports-article-body", "article.sports-content"},
		Title:         []string{"h1.sports-title"},
		Author:        []string{".sports-byline"},
		Publisher:     []string{"meta[property='og:site_name']"},
		PublishedAt:   []string{"time[datetime]", ".sports-date"},
		Noise: []string{
			"script", "style", "iframe", ".sports-ad", ".scoreboard-widget",
			"figcaption", "video",
		},
		DeletedMarker: ".article-unavailable",
	},
	{
		Format:        FormatCard,
		BodyContainer: []string{"div.card-news-body", "section.photo-story"},
		Title:         []string{"h1.card-title", ".photo-story-title"},
		Author:        []string{".card-byline"},
		Publisher:     []string{"meta[property='og:site_name']"},
		PublishedAt:   []string{"time[datetime]", ".card-date"},
		Noise: []string{
			"script", "style", "iframe", ".card-ad", ".slide-controls",
			"figcaption", "video",
		},
		DeletedMarker: ".card-deleted",
	},
}
