// Package ontology is the collaborator boundary to the out-of-scope
// knowledge-graph extraction and vector-indexing subsystem (spec.md §1
// Non-goals). It hands a stored article off over gRPC and otherwise knows
// nothing about what the other side does with it — grounded on the
// teacher's internal/infra/grpc.GRPCAIProvider, the same thin-client-plus-
// circuit-breaker shape used there for its own out-of-process collaborator.
package ontology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
)

// ArticleRef is everything the extraction side needs to pull the full
// article itself; the body is not inlined onto the wire since this system
// has no opinion on how large that payload should be allowed to get.
type ArticleRef struct {
	ArticleID    string
	Category     string
	CanonicalURL string
	Title        string
	CrawledAt    time.Time
}

// SubmitResult is the extraction side's acknowledgement.
type SubmitResult struct {
	Accepted bool
	Message  string
}

// Client is the boundary the pipeline's store stage depends on.
type Client interface {
	SubmitArticle(ctx context.Context, ref ArticleRef) (*SubmitResult, error)
	Health(ctx context.Context) error
	Close() error
}

// ErrDisabled indicates no ontology collaborator is configured; callers
// should treat this the same as any other best-effort notifier failure.
var ErrDisabled = errors.New("ontology: extraction collaborator is not configured")

// CircuitBreakerConfig mirrors config.AIConfig.CircuitBreaker's shape.
type CircuitBreakerConfig struct {
	MaxRequests     uint32
	Interval        time.Duration
	Timeout         time.Duration
	MinRequests     uint32
	FailureThreshold float64
}

// DefaultCircuitBreakerConfig opens after at least half of at least 5 requests
// in a rolling minute fail, the same shape NewGRPCAIProvider's cbSettings
// applies for the AI collaborator.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		MinRequests:      5,
		FailureThreshold: 0.5,
	}
}

// Config controls the gRPC client dialed against the extraction service.
type Config struct {
	GRPCAddress       string
	ConnectionTimeout time.Duration
	RequestTimeout    time.Duration
	CircuitBreaker    CircuitBreakerConfig
}

// DefaultConfig returns a Config with safe timeouts; GRPCAddress must still
// be set by the caller.
func DefaultConfig() Config {
	return Config{
		ConnectionTimeout: 5 * time.Second,
		RequestTimeout:    10 * time.Second,
		CircuitBreaker:    DefaultCircuitBreakerConfig(),
	}
}

var (
	submitRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ontology_client_submit_requests_total",
			Help: "Total number of ontology article submission requests",
		},
		[]string{"status"},
	)
	submitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ontology_client_submit_duration_seconds",
			Help:    "Ontology article submission latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{},
	)
)

// GRPCClient submits stored articles to the extraction service. The wire
// message is JSON-over-gRPC (see codec.go) rather than a generated protobuf
// stub: this module carries no .proto sources of its own for a service it
// deliberately does not implement, so there is nothing to run protoc
// against. google.golang.org/grpc's pluggable codec still gives the real
// transport, connection-state machinery, and deadlines a generated client
// would, without fabricating message types for a wire format this module
// has no authority over.
type GRPCClient struct {
	conn           *grpc.ClientConn
	cfg            Config
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *slog.Logger
}

// NewGRPCClient dials addr and blocks (up to cfg.ConnectionTimeout) until
// the connection is ready, the same synchronous-dial discipline
// NewGRPCAIProvider uses for its own collaborator.
func NewGRPCClient(cfg Config, logger *slog.Logger) (*GRPCClient, error) {
	if cfg.GRPCAddress == "" {
		return nil, fmt.Errorf("ontology: GRPCAddress is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectionTimeout)
	defer cancel()

	conn, err := grpc.NewClient(
		cfg.GRPCAddress,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("ontology: dial: %w", err)
	}
	conn.Connect()
	if !waitForConnection(ctx, conn) {
		_ = conn.Close()
		return nil, fmt.Errorf("ontology: connection timeout")
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ontology-client",
		MaxRequests: cfg.CircuitBreaker.MaxRequests,
		Interval:    cfg.CircuitBreaker.Interval,
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.CircuitBreaker.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.CircuitBreaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("ontology: circuit breaker state changed",
				slog.String("name", name), slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})

	return &GRPCClient{conn: conn, cfg: cfg, circuitBreaker: cb, logger: logger}, nil
}

// submitArticleRequest/Response are the JSON wire shapes for the one RPC
// this boundary needs.
type submitArticleRequest struct {
	ArticleID    string    `json:"article_id"`
	Category     string    `json:"category"`
	CanonicalURL string    `json:"canonical_url"`
	Title        string    `json:"title"`
	CrawledAt    time.Time `json:"crawled_at"`
}

type submitArticleResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// SubmitArticle hands ref to the extraction service's SubmitArticle RPC.
func (c *GRPCClient) SubmitArticle(ctx context.Context, ref ArticleRef) (*SubmitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	defer func() { submitDuration.WithLabelValues().Observe(time.Since(start).Seconds()) }()

	result, err := c.circuitBreaker.Execute(func() (any, error) {
		req := &submitArticleRequest{
			ArticleID:    ref.ArticleID,
			Category:     ref.Category,
			CanonicalURL: ref.CanonicalURL,
			Title:        ref.Title,
			CrawledAt:    ref.CrawledAt,
		}
		resp := &submitArticleResponse{}
		if err := c.conn.Invoke(ctx, "/ontology.v1.ExtractionService/SubmitArticle", req, resp); err != nil {
			return nil, err
		}
		return &SubmitResult{Accepted: resp.Accepted, Message: resp.Message}, nil
	})

	status := "success"
	if err != nil {
		status = "error"
		if errors.Is(err, gobreaker.ErrOpenState) {
			submitRequestsTotal.WithLabelValues("circuit_breaker_open").Inc()
			return nil, fmt.Errorf("ontology: circuit breaker open: %w", err)
		}
	}
	submitRequestsTotal.WithLabelValues(status).Inc()
	if err != nil {
		return nil, fmt.Errorf("ontology: submit article: %w", err)
	}
	return result.(*SubmitResult), nil
}

// Health reports whether the gRPC connection is ready.
func (c *GRPCClient) Health(_ context.Context) error {
	if c.circuitBreaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("ontology: circuit breaker is open")
	}
	if state := c.conn.GetState(); state != connectivity.Ready {
		return fmt.Errorf("ontology: connection state is %s", state)
	}
	return nil
}

// Close releases the underlying connection.
func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func waitForConnection(ctx context.Context, conn *grpc.ClientConn) bool {
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return true
		}
		if !conn.WaitForStateChange(ctx, state) {
			return false
		}
	}
}

// NoOpClient is used when no extraction service is configured — the same
// role NoopAIProvider plays for the AI collaborator.
type NoOpClient struct{}

// NewNoOpClient returns a Client that declines every submission.
func NewNoOpClient() *NoOpClient { return &NoOpClient{} }

func (NoOpClient) SubmitArticle(context.Context, ArticleRef) (*SubmitResult, error) {
	return nil, ErrDisabled
}
func (NoOpClient) Health(context.Context) error { return ErrDisabled }
func (NoOpClient) Close() error                 { return nil }
