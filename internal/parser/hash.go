package parser

import (
	"crypto/sha256"
	"encoding/hex"
)

// contentHash fingerprints title+body for cheap change detection between
// crawls of the same article (spec.md §3's ParsedArticle.ContentHash).
func contentHash(title, body string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + body))
	return hex.EncodeToString(sum[:])
}
