package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"newscrawl/internal/coordinator"
	"newscrawl/internal/resilience/retry"
)

// CoordinatorClient speaks the coordinator wire protocol (spec.md §6) over
// plain HTTP, the way fetcher.Fetcher speaks HTTP to news portals — a
// shared *http.Client with a hard per-call timeout, no retry of its own
// (callers decide what's worth retrying, per spec.md §4.7's failure model:
// heartbeats retry with backoff, but a slot request that comes back empty
// is not a failure).
type CoordinatorClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewCoordinatorClient builds a client against baseURL, authenticating
// every request with token (spec.md §4.7's bearer-token instance
// identity).
func NewCoordinatorClient(baseURL, token string, timeout time.Duration) *CoordinatorClient {
	return &CoordinatorClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *CoordinatorClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("coordinator client: marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("coordinator client: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("coordinator client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		// retry.HTTPError, not a local type, so retry.IsRetryable's status
		// classification (5xx/408/425/429 retryable) applies directly to
		// whatever this call returns.
		return &retry.HTTPError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("coordinator client: decode response: %w", err)
		}
	}
	return nil
}

// Register calls POST /register. Idempotent on the coordinator side — safe
// to call again after a reconnect.
func (c *CoordinatorClient) Register(ctx context.Context, instanceID string, capabilities []string) error {
	var resp coordinator.RegisterResponse
	return c.do(ctx, http.MethodPost, "/register", coordinator.RegisterRequest{
		InstanceID:   instanceID,
		Capabilities: capabilities,
	}, &resp)
}

// Heartbeat calls POST /heartbeat, reporting the slot currently held (nil
// if idle).
func (c *CoordinatorClient) Heartbeat(ctx context.Context, instanceID string, currentSlotID *string) (coordinator.HeartbeatResponse, error) {
	var resp coordinator.HeartbeatResponse
	err := c.do(ctx, http.MethodPost, "/heartbeat", coordinator.HeartbeatRequest{
		InstanceID:    instanceID,
		CurrentSlotID: currentSlotID,
	}, &resp)
	return resp, err
}

// RequestSlot calls POST /slot/request. A nil slot with a nil error means
// none is currently assignable.
func (c *CoordinatorClient) RequestSlot(ctx context.Context, instanceID string) (*coordinator.SlotDTO, error) {
	var resp coordinator.SlotRequestResponse
	if err := c.do(ctx, http.MethodPost, "/slot/request", coordinator.SlotRequestRequest{
		InstanceID: instanceID,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Slot, nil
}

// ReportSlot calls POST /slot/report.
func (c *CoordinatorClient) ReportSlot(ctx context.Context, req coordinator.SlotReportRequest) error {
	var resp coordinator.SlotReportResponse
	return c.do(ctx, http.MethodPost, "/slot/report", req, &resp)
}
