// Package pipeline implements the orchestrator (spec.md §4.6): a
// three-stage bounded-queue dataflow — listing producer, fetch stage, parse
// stage, store stage — that drives a single slot's work end-to-end with
// backpressure and per-article error isolation, the way the teacher's
// fetch.Service.processFeedItems drives a single source's feed items, but
// generalized from one fan-out stage to a producer feeding three stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"newscrawl/internal/domain/entity"
	"newscrawl/internal/fetcher"
	"newscrawl/internal/resilience/retry"
)

// DefaultQueueCapacity is the bound on every inter-stage channel (spec.md
// §4.6: "default 1000").
const DefaultQueueCapacity = 1000

// DefaultStoreRetries is K, the number of store-stage attempts before a
// persistent infrastructure failure aborts the slot (spec.md §4.6).
const DefaultStoreRetries = 3

// DefaultRateLimitCooldown is how long a fetch worker pauses after
// retry-exhaustion is judged to reflect sustained portal-side throttling
// rather than an ordinary transient failure.
const DefaultRateLimitCooldown = 30 * time.Second

// Config controls one pipeline run.
type Config struct {
	FetchWorkers  int // K, spec.md §4.6.
	ParseWorkers  int // M, defaults to hardware parallelism.
	StoreWorkers  int
	QueueCapacity int

	StoreRetry        retry.Config
	RateLimitCooldown time.Duration

	// RefererBase is prefixed to a category to build the fetcher's
	// referer-hint header (spec.md §4.1).
	RefererBase string
}

// DefaultConfig returns production defaults: 4 fetch workers, parse workers
// equal to GOMAXPROCS, 1 store worker, 1000-deep queues.
func DefaultConfig() Config {
	return Config{
		FetchWorkers:      4,
		ParseWorkers:      runtime.GOMAXPROCS(0),
		StoreWorkers:      1,
		QueueCapacity:     DefaultQueueCapacity,
		StoreRetry:        retry.Config{MaxAttempts: DefaultStoreRetries, InitialDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second, Multiplier: 2.0, JitterFraction: 0.2},
		RateLimitCooldown: DefaultRateLimitCooldown,
		RefererBase:       "https://portal.example.com/section/",
	}
}

func (c Config) withDefaults() Config {
	if c.FetchWorkers <= 0 {
		c.FetchWorkers = 1
	}
	if c.ParseWorkers <= 0 {
		c.ParseWorkers = runtime.GOMAXPROCS(0)
	}
	if c.StoreWorkers <= 0 {
		c.StoreWorkers = 1
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.StoreRetry.MaxAttempts <= 0 {
		c.StoreRetry = retry.Config{MaxAttempts: DefaultStoreRetries, InitialDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second, Multiplier: 2.0, JitterFraction: 0.2}
	}
	if c.RateLimitCooldown <= 0 {
		c.RateLimitCooldown = DefaultRateLimitCooldown
	}
	return c
}

// Outcome is the terminal result a pipeline run reports for its slot.
// Distinct from entity.SlotStatus (the coordinator's persisted state
// machine, spec.md §4.7), which has no "cancelled" state of its own — the
// instance runner (§4.8) is responsible for translating Outcome into
// whatever report_slot_result expects.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed" // SlotFailed, spec.md §4.6.
	OutcomeCancelled Outcome = "cancelled"
)

// ErrSlotFailed wraps the store-stage error that aborted the run after
// StoreRetry.MaxAttempts consecutive infrastructure failures.
var ErrSlotFailed = errors.New("pipeline: slot failed after exhausting store retries")

// Stats accumulates counters across a run. All fields are updated with
// sync/atomic since every stage's workers touch the same Stats
// concurrently.
type Stats struct {
	ListingEntries    int64
	DuplicatesSkipped int64
	FetchErrors       int64
	RateLimitPauses   int64
	ParseErrors       int64
	StoreDuplicates   int64
	Stored            int64
}

// Result is what Pipeline.Run returns.
type Result struct {
	Outcome Outcome
	Stats   Stats
}

// workItem threads one candidate article through every stage. pageIndex is
// carried so the store stage can advance the checkpoint's LastPageIndex
// for the page this entry was discovered on.
type workItem struct {
	entry     entity.ListingEntry
	pageIndex int
	body      string
	article   *entity.ParsedArticle
}

// Pipeline drives one slot's listing → fetch → parse → store dataflow.
type Pipeline struct {
	cfg      Config
	listings ListingSource
	fetcher  Fetcher
	parser   Parser
	checker  DedupChecker
	articles ArticleWriter
	meta     MetadataInserter
	tracker  CheckpointTracker
	notifier OntologyNotifier
}

// noopOntologyNotifier is the default notifier: the ontology handoff is an
// optional collaborator, not every deployment runs one.
type noopOntologyNotifier struct{}

func (noopOntologyNotifier) NotifyStored(context.Context, *entity.ParsedArticle) error { return nil }

// New builds a Pipeline. Zero or negative worker counts, QueueCapacity,
// StoreRetry.MaxAttempts and RateLimitCooldown are replaced: FetchWorkers
// by 1, the others by their DefaultConfig values. RefererBase is used as
// given. The ontology notifier defaults to a no-op;
// set one with WithOntologyNotifier.
func New(cfg Config, listings ListingSource, f Fetcher, p Parser, checker DedupChecker, articles ArticleWriter, meta MetadataInserter, tracker CheckpointTracker) *Pipeline {
	return &Pipeline{
		cfg:      cfg.withDefaults(),
		listings: listings,
		fetcher:  f,
		parser:   p,
		checker:  checker,
		articles: articles,
		meta:     meta,
		tracker:  tracker,
		notifier: noopOntologyNotifier{},
	}
}

// WithOntologyNotifier sets the out-of-scope ontology collaborator a stored
// article is handed off to, and returns p for chaining at construction time.
func (p *Pipeline) WithOntologyNotifier(n OntologyNotifier) *Pipeline {
	if n != nil {
		p.notifier = n
	}
	return p
}

// Run drives the pipeline for category starting at startPageIndex (the
// checkpoint's resume point) until the listing is drained, ctx is
// canceled, or the store stage exhausts its infrastructure-error retry
// budget. The checkpoint is saved unconditionally before Run returns
// (spec.md §4.5: "at slot termination (success, cancel, or error)").
func (p *Pipeline) Run(ctx context.Context, category entity.Category, startPageIndex int) (Result, error) {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var stats Stats
	var fatalErr atomic.Value // holds error

	listingCh := make(chan workItem, p.cfg.QueueCapacity)
	fetchedCh := make(chan workItem, p.cfg.QueueCapacity)
	parsedCh := make(chan workItem, p.cfg.QueueCapacity)

	var producerWG sync.WaitGroup
	producerWG.Add(1)
	go func() {
		defer producerWG.Done()
		defer close(listingCh)
		p.runProducer(runCtx, category, startPageIndex, listingCh, &stats)
	}()

	fetchEg, fetchCtx := errgroup.WithContext(runCtx)
	for i := 0; i < p.cfg.FetchWorkers; i++ {
		fetchEg.Go(func() error {
			p.runFetchWorker(fetchCtx, listingCh, fetchedCh, &stats)
			return nil
		})
	}
	var fetchWG sync.WaitGroup
	fetchWG.Add(1)
	go func() {
		defer fetchWG.Done()
		defer close(fetchedCh)
		_ = fetchEg.Wait()
	}()

	parseEg, parseCtx := errgroup.WithContext(runCtx)
	for i := 0; i < p.cfg.ParseWorkers; i++ {
		parseEg.Go(func() error {
			p.runParseWorker(parseCtx, fetchedCh, parsedCh, &stats)
			return nil
		})
	}
	var parseWG sync.WaitGroup
	parseWG.Add(1)
	go func() {
		defer parseWG.Done()
		defer close(parsedCh)
		_ = parseEg.Wait()
	}()

	// The store stage uses its own abort signal rather than runCtx: a plain
	// external cancellation must NOT stop it from draining parsedCh (that
	// would throw away already-fetched-and-parsed work), but a sibling
	// worker's infrastructure-retry exhaustion must stop every store
	// worker immediately, since the slot is failing regardless.
	storeAbort := make(chan struct{})
	var storeAbortOnce sync.Once
	var storeWG sync.WaitGroup
	for i := 0; i < p.cfg.StoreWorkers; i++ {
		storeWG.Add(1)
		go func() {
			defer storeWG.Done()
			if err := p.runStoreWorker(runCtx, parsedCh, storeAbort, &stats); err != nil {
				fatalErr.Store(err)
				storeAbortOnce.Do(func() { close(storeAbort) })
			}
		}()
	}
	storeWG.Wait()
	if fatalErr.Load() != nil {
		cancelRun() // abort producer/fetch/parse: the slot is failing regardless of their progress.
	}

	producerWG.Wait()
	fetchWG.Wait()
	parseWG.Wait()

	if err := p.tracker.Finish(); err != nil {
		slog.Warn("pipeline: final checkpoint save failed", slog.Any("error", err))
	}

	if v := fatalErr.Load(); v != nil {
		err := v.(error)
		return Result{Outcome: OutcomeFailed, Stats: stats}, fmt.Errorf("%w: %v", ErrSlotFailed, err)
	}
	if ctx.Err() != nil {
		return Result{Outcome: OutcomeCancelled, Stats: stats}, nil
	}
	return Result{Outcome: OutcomeSucceeded, Stats: stats}, nil
}

// isRateLimitExhaustion reports whether err reflects retry-budget
// exhaustion at the fetcher — the signal spec.md §4.6 calls
// RateLimitExhausted, distinct from an ordinary per-article fetch failure
// (NotFound/Gone/Forbidden/SSRF validation).
func isRateLimitExhaustion(err error) bool {
	return errors.Is(err, fetcher.ErrRetryExhausted)
}
