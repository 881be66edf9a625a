package parser

import "errors"

var (
	// ErrUnknownFormat means the page could not be parsed: no layout
	// family and no fallback extraction produced an article, or the
	// article's identifier could not be extracted (spec.md §4.2).
	ErrUnknownFormat = errors.New("parser: unknown page format")

	// ErrArticleNotFound means the page carries a known deletion marker.
	ErrArticleNotFound = errors.New("parser: article not found (deleted)")
)
