// Package pkgconfig is the one environment-variable loader the crawler,
// coordinator, runner and ontology adapter all share. Every binary in this
// module takes its configuration from the process environment rather than
// a config file, so this package exists once and every component's own
// Config/LoadFromEnv constructor (coordinator.Config, runner.Config,
// ontology.Config, the crawler's ad-hoc flags in cmd/crawler) calls into it
// rather than rolling its own os.Getenv parsing and default-fallback logic.
package pkgconfig

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// String returns the value of an environment variable, or defaultValue if it
// is unset or empty. No validation is performed.
func String(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// Int returns an environment variable parsed as an integer, or defaultValue
// if it is unset, empty, or unparseable. A warning is logged on parse
// failure so a typo'd override doesn't silently fall back.
func Int(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		slog.Warn("pkgconfig: invalid integer, using default",
			slog.String("key", key), slog.String("value", raw), slog.Int("default", defaultValue))
		return defaultValue
	}
	return v
}

// Bool returns an environment variable parsed as a boolean, accepting the
// same forms as strconv.ParseBool ("1", "t", "T", "TRUE", "true", "True"
// and their false counterparts). Falls back to defaultValue on any unset,
// empty, or unparseable value.
func Bool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("pkgconfig: invalid boolean, using default",
			slog.String("key", key), slog.String("value", raw), slog.Bool("default", defaultValue))
		return defaultValue
	}
	return v
}

// Duration returns an environment variable parsed with time.ParseDuration
// ("30s", "1h30m", ...), or defaultValue if unset, empty, or unparseable.
func Duration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("pkgconfig: invalid duration, using default",
			slog.String("key", key), slog.String("value", raw), slog.String("default", defaultValue.String()))
		return defaultValue
	}
	return v
}

// StringList returns a comma-separated environment variable split into a
// trimmed, non-empty slice, or defaultValue if unset, empty, or the split
// yields nothing usable.
func StringList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
