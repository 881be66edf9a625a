package runner

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscrawl/internal/checkpoint"
	"newscrawl/internal/coordinator"
	"newscrawl/internal/dedup"
	"newscrawl/internal/domain/entity"
	"newscrawl/internal/pipeline"
	"newscrawl/internal/store/metadata"
)

// --- fakes, mirroring internal/pipeline's test fakes -----------------------

type fakeListingSource struct {
	entries []entity.ListingEntry
}

func (f *fakeListingSource) FetchPage(_ context.Context, _ entity.Category, pageIndex int) ([]entity.ListingEntry, bool, error) {
	if pageIndex != 0 {
		return nil, false, nil
	}
	return f.entries, false, nil
}

type fakeFetcher struct{}

func (f *fakeFetcher) Fetch(_ context.Context, url, _ string) (string, error) {
	return "<html>" + url + "</html>", nil
}

type fakeParser struct{}

func (f *fakeParser) Parse(_, canonicalURL string, category entity.Category) (*entity.ParsedArticle, error) {
	return &entity.ParsedArticle{
		ID:           entity.Identifier{PublisherID: "pub", ArticleID: canonicalURL},
		CanonicalURL: canonicalURL,
		Title:        "title",
		Body:         "body",
		Category:     category,
		CrawledAt:    time.Now(),
	}, nil
}

type fakeChecker struct{}

func (f *fakeChecker) Check(_ context.Context, _ string) (dedup.Decision, error) {
	return dedup.Admit, nil
}
func (f *fakeChecker) Commit(_ string) {}

type fakeArticleWriter struct{}

func (f *fakeArticleWriter) Write(a *entity.ParsedArticle) (string, error) {
	return "/articles/" + a.ID.String() + ".md", nil
}

// fakeMetadataInserter always reports a fresh insert.
type fakeMetadataInserter struct{}

func (fakeMetadataInserter) Insert(_ context.Context, _ *entity.ParsedArticle, _ string) (metadata.InsertResult, error) {
	return metadata.Inserted, nil
}

// --- test setup -------------------------------------------------------------

func newTestCoordinator(t *testing.T) (*httptest.Server, []byte) {
	t.Helper()
	secret := []byte("runner-test-secret-at-least-32-bytes!")
	cfg := coordinator.Config{
		ListenAddr:        ":0",
		JWTSecret:         secret,
		Schedule:          []coordinator.ScheduleEntry{{Category: entity.CategoryGeneral, WindowSize: time.Hour}},
		SchedulerInterval: time.Second,
		GenerateHorizon:   2 * time.Hour,
		HeartbeatInterval: 30 * time.Second,
		MissedHeartbeats:  2,
		HeartbeatDeadline: 90 * time.Second,
	}
	srv := coordinator.NewServer(cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, secret
}

func TestRunner_RegisterFailsFastOnUnreachableCoordinator(t *testing.T) {
	client := NewCoordinatorClient("http://127.0.0.1:0", "bad-token", 200*time.Millisecond)
	cfg := DefaultConfig()
	cfg.InstanceID = "inst-1"
	cfg.Capabilities = []entity.Category{entity.CategoryGeneral}
	cfg.ConnectRetry.MaxAttempts = 1

	r := New(cfg, client, nil, pipeline.Config{}, nil, nil, nil, nil, nil, nil, nil, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := r.Run(ctx)
	assert.Error(t, err)
}

func TestRunner_ClientRegisterHeartbeatRoundTrip(t *testing.T) {
	ts, secret := newTestCoordinator(t)
	token, err := coordinator.IssueInstanceToken(secret, "inst-1", time.Hour)
	require.NoError(t, err)

	client := NewCoordinatorClient(ts.URL, token, 2*time.Second)
	ctx := context.Background()

	require.NoError(t, client.Register(ctx, "inst-1", []string{"general"}))

	resp, err := client.Heartbeat(ctx, "inst-1", nil)
	require.NoError(t, err)
	assert.True(t, resp.OK)
}

func TestRunner_RequestSlotReturnsNilWhenNoneAssignable(t *testing.T) {
	ts, secret := newTestCoordinator(t)
	token, err := coordinator.IssueInstanceToken(secret, "inst-1", time.Hour)
	require.NoError(t, err)

	client := NewCoordinatorClient(ts.URL, token, 2*time.Second)
	ctx := context.Background()
	require.NoError(t, client.Register(ctx, "inst-1", []string{"sports"}))

	slot, err := client.RequestSlot(ctx, "inst-1")
	require.NoError(t, err)
	assert.Nil(t, slot)
}

func TestRunner_FullLifecycleAcquiresRunsAndReportsASlot(t *testing.T) {
	ts, secret := newTestCoordinator(t)
	token, err := coordinator.IssueInstanceToken(secret, "inst-1", time.Hour)
	require.NoError(t, err)

	client := NewCoordinatorClient(ts.URL, token, 5*time.Second)

	cfg := DefaultConfig()
	cfg.InstanceID = "inst-1"
	cfg.Capabilities = []entity.Category{entity.CategoryGeneral}
	cfg.IdleInterval = 20 * time.Millisecond
	cfg.HeartbeatInterval = time.Hour // keep the background heartbeat quiet for this test

	ckpt := checkpoint.New(t.TempDir())
	listings := &fakeListingSource{entries: []entity.ListingEntry{
		{URL: "https://portal.example.com/a/1", Category: entity.CategoryGeneral},
	}}

	r := New(cfg, client, nil, pipeline.DefaultConfig(), listings, &fakeFetcher{}, &fakeParser{},
		&fakeChecker{}, &fakeArticleWriter{}, fakeMetadataInserter{}, ckpt, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	require.NoError(t, r.register(ctx))

	slot, err := client.RequestSlot(ctx, "inst-1")
	require.NoError(t, err)
	require.NotNil(t, slot)

	r.runAndReport(ctx, slot)

	state := ckpt.Load(entity.CategoryGeneral, slot.WindowStart[:10])
	assert.True(t, state.IsCompleted(entity.Identifier{PublisherID: "pub", ArticleID: "https://portal.example.com/a/1"}))
}
