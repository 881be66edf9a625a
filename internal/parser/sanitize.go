package parser

import (
	"strings"
	"unicode"
)

// collapseWhitespace collapses runs of whitespace into a single space and
// trims the ends, per spec.md §4.2's title-extraction rule.
func collapseWhitespace(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// stripControlAndZeroWidth removes control characters (except newline and tab) and
// zero-width characters portals sometimes embed for ad-tracking or
// copy-paste deterrence, before the body is joined and hashed.
func stripControlAndZeroWidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '​', '‌', '‍', '﻿': // zero-width space/non-joiner/joiner, BOM
			continue
		case '\n', '\t':
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// joinBodyLines joins per-node text segments with node-boundary newlines,
// dropping empty segments, per spec.md §4.2's body-extraction rule.
func joinBodyLines(segments []string) string {
	var nonEmpty []string
	for _, s := range segments {
		s = collapseWhitespace(stripControlAndZeroWidth(s))
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "\n")
}
