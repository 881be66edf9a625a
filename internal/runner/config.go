// Package runner implements the instance runner (spec.md §4.8): the
// process-local orchestration loop that registers with the coordinator,
// acquires and executes slots, heartbeats, and shuts down cleanly on
// SIGTERM/SIGINT.
package runner

import (
	"fmt"
	"os"
	"time"

	"newscrawl/internal/domain/entity"
	"newscrawl/internal/pkgconfig"
	"newscrawl/internal/resilience/retry"
)

// DefaultIdleInterval is how long Run sleeps after a slot request comes
// back empty, before asking again.
const DefaultIdleInterval = 5 * time.Second

// DefaultShutdownGrace bounds the final slot report Run sends to the
// coordinator after its context is canceled; it does not bound how long
// the in-flight pipeline run takes to wind down
// (spec.md §5: "timeout_secs + brief_drain").
const DefaultShutdownGrace = 30 * time.Second

// Config controls one runner process.
type Config struct {
	CoordinatorURL string
	InstanceID     string
	Capabilities   []entity.Category
	BearerToken    string

	RequestTimeout    time.Duration // coordinator RPC timeout, spec.md §5 default 10s.
	HeartbeatInterval time.Duration // spec.md §4.7 default 30s.
	IdleInterval      time.Duration
	ShutdownGrace     time.Duration

	ConnectRetry retry.Config
}

// DefaultConfig returns production defaults: a 10s coordinator RPC timeout,
// 30s heartbeat interval, 5s idle poll, 30s shutdown grace, and the
// register-retry policy the teacher reserves for database connection
// churn (fast initial retry, short cap — register is cheap and local to
// the coordinator, unlike an outbound portal fetch).
func DefaultConfig() Config {
	return Config{
		RequestTimeout:    10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		IdleInterval:      DefaultIdleInterval,
		ShutdownGrace:     DefaultShutdownGrace,
		ConnectRetry:      retry.DBConfig(),
	}
}

// LoadConfigFromEnv reads runner configuration from the environment,
// falling back to DefaultConfig for anything unset. InstanceID defaults to
// the machine hostname, which spec.md §4.8 requires be stable across
// restarts so the coordinator recognizes a restarted instance reclaiming
// its own prior slots.
func LoadConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()

	cfg.CoordinatorURL = pkgconfig.String("RUNNER_COORDINATOR_URL", "")
	if cfg.CoordinatorURL == "" {
		return nil, fmt.Errorf("runner: RUNNER_COORDINATOR_URL must be set")
	}

	cfg.BearerToken = pkgconfig.String("RUNNER_BEARER_TOKEN", "")
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("runner: RUNNER_BEARER_TOKEN must be set")
	}

	hostname, _ := os.Hostname()
	cfg.InstanceID = pkgconfig.String("RUNNER_INSTANCE_ID", hostname)
	if cfg.InstanceID == "" {
		return nil, fmt.Errorf("runner: RUNNER_INSTANCE_ID must be set (hostname lookup failed)")
	}

	rawCaps := pkgconfig.StringList("RUNNER_CAPABILITIES", nil)
	if len(rawCaps) == 0 {
		return nil, fmt.Errorf("runner: RUNNER_CAPABILITIES must name at least one category")
	}
	caps := make([]entity.Category, 0, len(rawCaps))
	for _, raw := range rawCaps {
		c := entity.Category(raw)
		if !c.IsValid() {
			return nil, fmt.Errorf("runner: unrecognized category in RUNNER_CAPABILITIES: %q", raw)
		}
		caps = append(caps, c)
	}
	cfg.Capabilities = caps

	cfg.RequestTimeout = pkgconfig.Duration("RUNNER_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.HeartbeatInterval = pkgconfig.Duration("RUNNER_HEARTBEAT_INTERVAL", cfg.HeartbeatInterval)
	cfg.IdleInterval = pkgconfig.Duration("RUNNER_IDLE_INTERVAL", cfg.IdleInterval)
	cfg.ShutdownGrace = pkgconfig.Duration("RUNNER_SHUTDOWN_GRACE", cfg.ShutdownGrace)

	return &cfg, nil
}

func capabilityStrings(caps []entity.Category) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = c.String()
	}
	return out
}
