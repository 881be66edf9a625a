package coordinator

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"newscrawl/internal/domain/entity"
)

// Scheduler runs on the coordinator (spec.md §4.7): on each tick it
// generates upcoming slots from the declarative schedule, reaps slots
// whose assigned instance missed its heartbeat deadline, and assigns
// pending (including reclaimed orphaned) slots round-robin across capable,
// idle instances.
type Scheduler struct {
	store   *Store
	cfg     Config
	cursors map[entity.Category]int // per-category round-robin position.
}

func NewScheduler(store *Store, cfg Config) *Scheduler {
	return &Scheduler{store: store, cfg: cfg, cursors: make(map[entity.Category]int)}
}

// Run ticks the scheduler every cfg.SchedulerInterval until ctx is
// canceled, running one pass immediately so a fresh coordinator doesn't
// wait a full interval before its first slots appear.
func (s *Scheduler) Run(ctx context.Context) {
	s.Tick(time.Now())
	ticker := time.NewTicker(s.cfg.SchedulerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Tick(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one scheduling pass: generate, reap, assign. Exported so tests
// can drive the scheduler deterministically instead of waiting on a timer.
func (s *Scheduler) Tick(now time.Time) {
	s.generateSlots(now)
	for _, id := range s.store.ReapOrphans(now) {
		slog.Warn("coordinator: slot orphaned, heartbeat deadline missed", slog.String("slot_id", id))
	}
	s.assignPending(now)
}

// generateSlots creates one pending slot per schedule entry for every
// window boundary between now and now+GenerateHorizon not already covered.
func (s *Scheduler) generateSlots(now time.Time) {
	for _, entry := range s.cfg.Schedule {
		if entry.WindowSize <= 0 {
			continue
		}
		horizon := now.Add(s.cfg.GenerateHorizon)
		for start := now.Truncate(entry.WindowSize); start.Before(horizon); start = start.Add(entry.WindowSize) {
			slot := &entity.CrawlSlot{
				ID:       uuid.New().String(),
				Category: entry.Category,
				Window:   entity.TimeWindow{Start: start, End: start.Add(entry.WindowSize)},
				Status:   entity.SlotPending,
			}
			s.store.AddSlot(slot)
		}
	}
}

// assignPending offers every pending/orphaned slot of each scheduled
// category to the next eligible, idle instance in round-robin order
// (spec.md §4.7 fairness: "given N instances and M slots, the default
// assignment is a simple round-robin constrained by instance
// capabilities"). Orphaned slots are offered before pending ones.
func (s *Scheduler) assignPending(now time.Time) {
	for _, category := range s.scheduledCategories() {
		pending := s.store.PendingForCategory(category)
		sort.SliceStable(pending, func(i, j int) bool {
			return pending[i].Status == entity.SlotOrphaned && pending[j].Status != entity.SlotOrphaned
		})
		for _, slot := range pending {
			instances := s.store.Instances()
			if len(instances) == 0 {
				return
			}
			cursor := s.cursors[category]
			assigned := false
			for i := 0; i < len(instances); i++ {
				candidate := instances[(cursor+i)%len(instances)]
				if !candidate.CanServe(category) || !candidate.Idle() {
					continue
				}
				deadline := now.Add(s.cfg.HeartbeatDeadline)
				if s.store.Assign(slot.ID, candidate.ID, deadline) {
					s.cursors[category] = (cursor + i + 1) % len(instances)
					assigned = true
					break
				}
			}
			if !assigned {
				// No eligible idle instance for this category right now;
				// the remaining pending slots for it wait for the next tick.
				break
			}
		}
	}
}

func (s *Scheduler) scheduledCategories() []entity.Category {
	seen := make(map[entity.Category]struct{}, len(s.cfg.Schedule))
	var out []entity.Category
	for _, entry := range s.cfg.Schedule {
		if _, ok := seen[entry.Category]; !ok {
			seen[entry.Category] = struct{}{}
			out = append(out, entry.Category)
		}
	}
	return out
}
