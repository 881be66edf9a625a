package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newscrawl/internal/checkpoint"
	"newscrawl/internal/coordinator"
	"newscrawl/internal/domain/entity"
	"newscrawl/internal/pipeline"
	"newscrawl/internal/resilience/retry"
)

// Runner drives one instance process's loop (spec.md §4.8): register,
// acquire slots, run each to completion, report, heartbeat throughout, and
// shut down cleanly on cancellation. One Runner owns the dependencies
// every slot's pipeline needs, constructing a fresh Pipeline per slot
// (only the checkpoint tracker differs between slots; the checkpoint's
// partition key is the slot's category and window date — pipeline.New
// keeping tracker a constructor argument, not a Run argument, is exactly
// why a new Pipeline per slot is the right shape here rather than reusing
// one across a whole process's lifetime).
type Runner struct {
	cfg    Config
	client *CoordinatorClient
	logger *slog.Logger

	pipelineCfg pipeline.Config
	listings    pipeline.ListingSource
	fetcher     pipeline.Fetcher
	parser      pipeline.Parser
	checker     pipeline.DedupChecker
	articles    pipeline.ArticleWriter
	meta        pipeline.MetadataInserter
	checkpoints *checkpoint.Manager
	saveCadence int
	notifier    pipeline.OntologyNotifier

	mu             sync.Mutex
	currentSlotID  *string
	pendingReports []coordinator.SlotReportRequest
}

// New builds a Runner. logger defaults to slog.Default() if nil.
func New(
	cfg Config,
	client *CoordinatorClient,
	logger *slog.Logger,
	pipelineCfg pipeline.Config,
	listings pipeline.ListingSource,
	fetcher pipeline.Fetcher,
	parser pipeline.Parser,
	checker pipeline.DedupChecker,
	articles pipeline.ArticleWriter,
	meta pipeline.MetadataInserter,
	checkpoints *checkpoint.Manager,
	saveCadence int,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:         cfg,
		client:      client,
		logger:      logger,
		pipelineCfg: pipelineCfg,
		listings:    listings,
		fetcher:     fetcher,
		parser:      parser,
		checker:     checker,
		articles:    articles,
		meta:        meta,
		checkpoints: checkpoints,
		saveCadence: saveCadence,
	}
}

// WithOntologyNotifier sets the out-of-scope ontology collaborator every
// slot's pipeline hands stored articles to, and returns r for chaining at
// construction time. Optional: a Runner with none configured passes nil
// to Pipeline.WithOntologyNotifier, which keeps pipeline.New's no-op default.
func (r *Runner) WithOntologyNotifier(n pipeline.OntologyNotifier) *Runner {
	r.notifier = n
	return r
}

// Run blocks until ctx is canceled (spec.md §4.8: the caller wires SIGTERM/
// SIGINT into ctx's cancellation, the way cmd/api/main.go's signal.Notify
// feeds a context cancel). It registers, starts the heartbeat background
// task, then loops acquiring and executing slots until told to stop.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.register(ctx); err != nil {
		return err
	}
	r.logger.Info("runner: registered", slog.String("instance_id", r.cfg.InstanceID))

	hbCtx, cancelHB := context.WithCancel(ctx)
	defer cancelHB()
	go r.heartbeatLoop(hbCtx)

	for {
		if ctx.Err() != nil {
			return r.shutdown()
		}

		slot, err := r.client.RequestSlot(ctx, r.cfg.InstanceID)
		if err != nil {
			r.logger.Warn("runner: slot request failed", slog.Any("error", err))
			if !r.sleep(ctx, r.cfg.IdleInterval) {
				return r.shutdown()
			}
			continue
		}
		if slot == nil {
			if !r.sleep(ctx, r.cfg.IdleInterval) {
				return r.shutdown()
			}
			continue
		}

		r.runAndReport(ctx, slot)
	}
}

// sleep waits for d or ctx cancellation, reporting which happened first.
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Runner) register(ctx context.Context) error {
	caps := capabilityStrings(r.cfg.Capabilities)
	return retry.WithBackoff(ctx, r.cfg.ConnectRetry, func() error {
		return r.client.Register(ctx, r.cfg.InstanceID, caps)
	})
}

// runAndReport executes one acquired slot's pipeline to completion and
// reports the outcome, buffering the report if the coordinator can't be
// reached right now (spec.md §4.7: "on slot completion buffer the result
// for later reporting").
func (r *Runner) runAndReport(ctx context.Context, slot *coordinator.SlotDTO) {
	category := entity.Category(slot.Category)
	windowStart, err := time.Parse(time.RFC3339, slot.WindowStart)
	if err != nil {
		r.logger.Error("runner: slot has unparseable window_start, using now",
			slog.String("slot_id", slot.ID), slog.Any("error", err))
		windowStart = time.Now().UTC()
	}
	date := windowStart.Format("2006-01-02")

	r.setCurrentSlot(&slot.ID)
	defer r.setCurrentSlot(nil)

	state := r.checkpoints.Load(category, date)
	tracker := checkpoint.NewTracker(r.checkpoints, state, r.saveCadence, nil)
	p := pipeline.New(r.pipelineCfg, r.listings, r.fetcher, r.parser, r.checker, r.articles, r.meta, tracker).
		WithOntologyNotifier(r.notifier)

	result, runErr := p.Run(ctx, category, state.LastPageIndex)
	if runErr != nil {
		r.logger.Error("runner: pipeline run ended in error",
			slog.String("slot_id", slot.ID), slog.Any("error", runErr))
	}
	r.logger.Info("runner: slot finished",
		slog.String("slot_id", slot.ID), slog.String("outcome", string(result.Outcome)),
		slog.Int64("stored", result.Stats.Stored))

	r.report(ctx, slot.ID, result)
}

func (r *Runner) report(ctx context.Context, slotID string, result pipeline.Result) {
	req := coordinator.SlotReportRequest{
		InstanceID: r.cfg.InstanceID,
		SlotID:     slotID,
		Result:     string(result.Outcome),
		Stats: coordinator.SlotReportStats{
			ListingEntries:    result.Stats.ListingEntries,
			DuplicatesSkipped: result.Stats.DuplicatesSkipped,
			FetchErrors:       result.Stats.FetchErrors,
			ParseErrors:       result.Stats.ParseErrors,
			Stored:            result.Stats.Stored,
		},
	}

	reportCtx := ctx
	if ctx.Err() != nil {
		// The lifecycle context is already canceled (shutdown in
		// progress); the report still has to go out, so give it its own
		// bounded deadline instead of a context that's already dead.
		var cancel context.CancelFunc
		reportCtx, cancel = context.WithTimeout(context.Background(), r.cfg.ShutdownGrace)
		defer cancel()
	}

	if err := retry.WithBackoff(reportCtx, r.cfg.ConnectRetry, func() error {
		return r.client.ReportSlot(reportCtx, req)
	}); err != nil {
		r.logger.Warn("runner: slot report failed, buffering for later",
			slog.String("slot_id", slotID), slog.Any("error", err))
		r.bufferReport(req)
	}
}

func (r *Runner) bufferReport(req coordinator.SlotReportRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingReports = append(r.pendingReports, req)
}

// flushBufferedReports retries every buffered report once per heartbeat
// tick, keeping only the ones that still fail.
func (r *Runner) flushBufferedReports(ctx context.Context) {
	r.mu.Lock()
	pending := r.pendingReports
	r.pendingReports = nil
	r.mu.Unlock()

	var stillPending []coordinator.SlotReportRequest
	for _, req := range pending {
		if err := r.client.ReportSlot(ctx, req); err != nil {
			stillPending = append(stillPending, req)
			continue
		}
		r.logger.Info("runner: buffered slot report delivered", slog.String("slot_id", req.SlotID))
	}

	if len(stillPending) > 0 {
		r.mu.Lock()
		r.pendingReports = append(stillPending, r.pendingReports...)
		r.mu.Unlock()
	}
}

func (r *Runner) setCurrentSlot(id *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentSlotID = id
}

func (r *Runner) currentSlot() *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentSlotID
}

// heartbeatLoop sends a heartbeat every HeartbeatInterval regardless of
// slot state (spec.md §4.8), and opportunistically flushes any buffered
// slot reports left over from a coordinator outage.
func (r *Runner) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sendHeartbeat(ctx)
			r.flushBufferedReports(ctx)
		}
	}
}

func (r *Runner) sendHeartbeat(ctx context.Context) {
	var resp coordinator.HeartbeatResponse
	// spec.md §4.7's coordinator failure model: on an unreachable
	// coordinator, keep executing the assigned slot and keep retrying
	// heartbeats with backoff rather than giving up on the slot locally.
	err := retry.WithBackoff(ctx, r.cfg.ConnectRetry, func() error {
		var err error
		resp, err = r.client.Heartbeat(ctx, r.cfg.InstanceID, r.currentSlot())
		return err
	})
	if err != nil {
		r.logger.Warn("runner: heartbeat failed after retry", slog.Any("error", err))
		return
	}
	if len(resp.Reassignments) > 0 {
		r.logger.Warn("runner: coordinator reports this instance's slot was reassigned",
			slog.Any("slot_ids", resp.Reassignments))
	}
}

// shutdown runs on cancellation after any in-flight slot has already been
// run to completion (Outcome Cancelled, reported) by the Run loop's
// synchronous call into runAndReport. There is no dedicated deregister
// RPC in the coordinator's wire protocol (spec.md §6 fixes it to register/
// heartbeat/slot-request/slot-report/health/schedule/instances); ceasing
// heartbeats is itself sufficient deregistration, since the coordinator
// already ages a silent instance out of CountOnline and reassigns
// whatever it's holding once the heartbeat deadline lapses.
func (r *Runner) shutdown() error {
	r.logger.Info("runner: shutting down", slog.String("instance_id", r.cfg.InstanceID))
	return nil
}
