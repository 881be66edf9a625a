package coordinator

import (
	"fmt"
	"time"

	"newscrawl/internal/domain/entity"
	"newscrawl/internal/pkgconfig"
)

// ScheduleEntry is one line of the declarative schedule: a category
// crawled on a fixed-width recurring time window (spec.md §4.7: "a
// declarative schedule (category list × window cadence)").
type ScheduleEntry struct {
	Category   entity.Category
	WindowSize time.Duration
}

// Config controls the coordinator server and its scheduler.
type Config struct {
	ListenAddr string
	JWTSecret  []byte

	Schedule          []ScheduleEntry
	SchedulerInterval time.Duration // how often the scheduler evaluates the slot table.
	GenerateHorizon   time.Duration // how far ahead of now slots are generated.

	HeartbeatInterval time.Duration // expected cadence of instance heartbeats.
	MissedHeartbeats  int           // H, spec.md §4.7 default 2.
	HeartbeatDeadline time.Duration // default 90s; used as given, not derived from MissedHeartbeats*HeartbeatInterval.

	RateLimit InstanceRateLimiterConfig
}

// DefaultSchedule is the out-of-the-box category list: every recognized
// category, crawled in one-hour windows.
func DefaultSchedule() []ScheduleEntry {
	categories := []entity.Category{
		entity.CategoryGeneral, entity.CategoryPolitics, entity.CategoryEconomy,
		entity.CategorySociety, entity.CategoryWorld, entity.CategoryEntertainment,
		entity.CategorySports, entity.CategoryCulture, entity.CategoryIT, entity.CategoryOpinion,
	}
	entries := make([]ScheduleEntry, len(categories))
	for i, c := range categories {
		entries[i] = ScheduleEntry{Category: c, WindowSize: time.Hour}
	}
	return entries
}

// LoadConfigFromEnv builds a Config from environment variables, degrading
// to spec.md §4.7's stated defaults (H=2, interval=30s, deadline=90s) the
// way pkg/config's other Load* helpers fall back to safe defaults rather
// than failing outright. The JWT secret has no safe default: an unset
// secret fails startup, mirroring cmd/api's validateJWTSecret check.
func LoadConfigFromEnv() (*Config, error) {
	secret := pkgconfig.String("COORDINATOR_JWT_SECRET", "")
	if len(secret) < 32 {
		return nil, fmt.Errorf("COORDINATOR_JWT_SECRET must be set and at least 32 characters")
	}

	return &Config{
		ListenAddr:        pkgconfig.String("COORDINATOR_LISTEN_ADDR", ":8090"),
		JWTSecret:         []byte(secret),
		Schedule:          DefaultSchedule(),
		SchedulerInterval: pkgconfig.Duration("COORDINATOR_SCHEDULER_INTERVAL", 10*time.Second),
		GenerateHorizon:   pkgconfig.Duration("COORDINATOR_GENERATE_HORIZON", 1*time.Hour),
		HeartbeatInterval: pkgconfig.Duration("COORDINATOR_HEARTBEAT_INTERVAL", 30*time.Second),
		MissedHeartbeats:  pkgconfig.Int("COORDINATOR_HEARTBEAT_MISSED", 2),
		HeartbeatDeadline: pkgconfig.Duration("COORDINATOR_HEARTBEAT_DEADLINE", 90*time.Second),
		RateLimit: InstanceRateLimiterConfig{
			Limit:   pkgconfig.Int("COORDINATOR_RATELIMIT_LIMIT", 120),
			Window:  pkgconfig.Duration("COORDINATOR_RATELIMIT_WINDOW", time.Minute),
			Enabled: pkgconfig.Bool("COORDINATOR_RATELIMIT_ENABLED", true),
		},
	}, nil
}
