package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"newscrawl/internal/domain/entity"
)

// Parser extracts a ParsedArticle from raw HTML, trying each layout family
// in the fixed General → Entertainment → Sports → Card order (spec.md
// §4.2), falling back to go-readability's generic content extraction when
// every family fails structurally but the page is not an explicit deletion.
type Parser struct {
	identifierPattern *regexp.Regexp
}

// New builds a Parser. A nil pattern uses entity.DefaultIdentifierPattern.
func New(identifierPattern *regexp.Regexp) *Parser {
	return &Parser{identifierPattern: identifierPattern}
}

// Parse transforms html (fetched from canonicalURL) into a ParsedArticle.
// category comes from the ListingEntry that produced this URL — the page
// itself is not re-classified, since the listing it was discovered on
// already carries that information (spec.md §3).
func (p *Parser) Parse(html, canonicalURL string, category entity.Category) (*entity.ParsedArticle, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parser: parse html: %w", err)
	}

	for _, sel := range fallbackChain {
		if sel.DeletedMarker != "" && doc.Find(sel.DeletedMarker).Length() > 0 {
			return nil, ErrArticleNotFound
		}

		article, ok := p.tryFormat(doc, sel, canonicalURL)
		if ok {
			article.Category = category
			return article, nil
		}
	}

	if article, ok := p.tryReadability(html, canonicalURL); ok {
		article.Category = category
		return article, nil
	}

	return nil, ErrUnknownFormat
}

// tryFormat attempts extraction with one layout family's selectors.
// "Successful" means both title and body are present and non-empty after
// sanitization (spec.md §4.2).
func (p *Parser) tryFormat(doc *goquery.Document, sel Selectors, canonicalURL string) (*entity.ParsedArticle, bool) {
	container := firstMatch(doc.Selection, sel.BodyContainer)
	if container == nil || container.Length() == 0 {
		return nil, false
	}

	title := collapseWhitespace(firstText(doc.Selection, sel.Title))
	if title == "" {
		return nil, false
	}

	body := extractBody(container, sel.Noise)
	if body == "" {
		return nil, false
	}

	id, err := entity.ExtractIdentifier(canonicalURL, p.identifierPattern)
	if err != nil {
		return nil, false
	}

	article := &entity.ParsedArticle{
		ID:            id,
		CanonicalURL:  canonicalURL,
		Title:         title,
		Body:          body,
		Author:        collapseWhitespace(firstText(doc.Selection, sel.Author)),
		PublisherName: collapseWhitespace(firstAttrOrText(doc.Selection, sel.Publisher)),
		PublishedAt:   parsePublishedAt(firstDatetimeValue(doc.Selection, sel.PublishedAt)),
		ContentHash:   contentHash(title, body),
	}
	return article, true
}

// tryReadability is the last-resort extractor for pages that don't match
// any declared layout family's structural selectors. It never overrides
// DeletedMarker handling — that check already ran before this is reached.
func (p *Parser) tryReadability(html, canonicalURL string) (*entity.ParsedArticle, bool) {
	pageURL, err := url.Parse(canonicalURL)
	if err != nil {
		return nil, false
	}

	parsed, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return nil, false
	}

	title := collapseWhitespace(parsed.Title)
	body := collapseWhitespace(stripControlAndZeroWidth(parsed.TextContent))
	if title == "" || body == "" {
		return nil, false
	}

	id, err := entity.ExtractIdentifier(canonicalURL, p.identifierPattern)
	if err != nil {
		return nil, false
	}

	return &entity.ParsedArticle{
		ID:           id,
		CanonicalURL: canonicalURL,
		Title:        title,
		Body:         body,
		Author:       parsed.Byline,
		ContentHash:  contentHash(title, body),
	}, true
}

func firstMatch(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, s := range selectors {
		sel := root.Find(s)
		if sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

func firstText(root *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		sel := root.Find(s)
		if sel.Length() > 0 {
			if text := strings.TrimSpace(sel.First().Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

func firstAttrOrText(root *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		sel := root.Find(s).First()
		if sel.Length() == 0 {
			continue
		}
		if content, ok := sel.Attr("content"); ok && content != "" {
			return content
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstDatetimeValue prefers a datetime attribute over text content, since
// structured timestamps parse more reliably than locale-formatted text.
func firstDatetimeValue(root *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		sel := root.Find(s).First()
		if sel.Length() == 0 {
			continue
		}
		if dt, ok := sel.Attr("datetime"); ok && dt != "" {
			return dt
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			return text
		}
	}
	return ""
}

// extractBody removes the noise selector set from a clone of container,
// then joins the remaining text nodes with node-boundary newlines.
func extractBody(container *goquery.Selection, noise []string) string {
	clone := container.Clone()
	for _, n := range noise {
		clone.Find(n).Remove()
	}

	var segments []string
	clone.Contents().Each(func(_ int, node *goquery.Selection) {
		segments = append(segments, node.Text())
	})

	body := joinBodyLines(segments)
	if body == "" {
		// Some containers have no direct children carrying text (e.g. a
		// single wrapping <p>); fall back to the container's own text.
		body = joinBodyLines([]string{clone.Text()})
	}
	return body
}
