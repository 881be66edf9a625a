package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// localeDatePattern matches the locale-specific "YYYY.MM.DD. AM/PM H:MM"
// timestamp format spec.md §4.2 calls out alongside ISO-8601.
var localeDatePattern = regexp.MustCompile(`(\d{4})\.(\d{2})\.(\d{2})\.?\s*(AM|PM|오전|오후)?\s*(\d{1,2}):(\d{2})`)

// parsePublishedAt tolerates multiple timestamp formats; a parse failure
// leaves the field empty rather than failing the whole article (spec.md
// §4.2's "parse errors leave the field empty rather than failing").
func parsePublishedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}

	if m := localeDatePattern.FindStringSubmatch(raw); m != nil {
		t, ok := parseLocaleMatch(m)
		if ok {
			return &t
		}
	}

	return nil
}

func parseLocaleMatch(m []string) (time.Time, bool) {
	year, month, day, meridiem, hour, minute := m[1], m[2], m[3], m[4], m[5], m[6]

	h, err := strconv.Atoi(hour)
	if err != nil {
		return time.Time{}, false
	}
	if meridiem == "PM" || meridiem == "오후" {
		if h < 12 {
			h += 12
		}
	} else if meridiem == "AM" || meridiem == "오전" {
		if h == 12 {
			h = 0
		}
	}

	composed := fmt.Sprintf("%s-%s-%s %02d:%s:00", year, month, day, h, minute)
	t, err := time.Parse("2006-01-02 15:04:05", composed)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
