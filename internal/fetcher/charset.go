package fetcher

import (
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

// decodeBody implements spec.md §4.1's body-decoding rule: inspect the
// response Content-Type for an explicit charset; absent or utf-8, decode
// as UTF-8; if the resulting text's replacement-character ratio exceeds
// threshold, redecode the raw bytes as legacyEncoding. The returned string
// is always UTF-8.
func decodeBody(raw []byte, contentType, legacyEncoding string, threshold float64) (string, error) {
	if charset := charsetFromContentType(contentType); charset != "" && !isUTF8Alias(charset) {
		return decodeAs(raw, charset)
	}

	text := string(raw)
	if replacementRatio(text) <= threshold {
		return text, nil
	}

	if decoded, err := decodeAs(raw, legacyEncoding); err == nil {
		return decoded, nil
	}

	// The configured legacy encoding didn't apply cleanly either; ask
	// chardet for its best guess before giving up and returning the
	// original (possibly mis-decoded) UTF-8 interpretation.
	if detected, err := chardet.NewTextDetector().DetectBest(raw); err == nil && detected.Charset != "" {
		if decoded, err := decodeAs(raw, detected.Charset); err == nil {
			return decoded, nil
		}
	}

	return text, nil
}

func charsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}

func isUTF8Alias(charset string) bool {
	return charset == "utf-8" || charset == "utf8"
}

// decodeAs decodes raw using the named encoding, resolved through x/text's
// htmlindex, which recognizes both IANA names and the legacy aliases
// browsers and chardet report (e.g. "euc-kr", "iso-8859-1", "windows-1252").
func decodeAs(raw []byte, name string) (string, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", err
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// replacementRatio is the fraction of runes in s that are the UTF-8
// replacement character, U+FFFD — spec.md §4.1's mis-decode signal.
func replacementRatio(s string) float64 {
	if s == "" {
		return 0
	}
	total := 0
	replaced := 0
	for _, r := range s {
		total++
		if r == utf8.RuneError {
			replaced++
		}
	}
	return float64(replaced) / float64(total)
}
