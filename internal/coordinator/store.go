package coordinator

import (
	"sort"
	"sync"
	"time"

	"newscrawl/internal/domain/entity"
)

// Store is the coordinator's instance registry and slot table (spec.md
// §4.7). The coordinator is explicitly "a single logical service" with
// "high-availability coordinator out of scope" (spec.md §4.7), so unlike
// the metadata store this carries no durable backing: a coordinator
// restart loses slot history, which the spec accepts under that same
// Non-goal. Every method is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	instances map[string]*entity.Instance
	slots     map[string]*entity.CrawlSlot
	// coveredWindows prevents the scheduler from generating a duplicate
	// slot for a (category, window start) it has already produced.
	coveredWindows map[windowKey]struct{}
}

type windowKey struct {
	category entity.Category
	start    int64 // window start, Unix seconds.
}

func NewStore() *Store {
	return &Store{
		instances:      make(map[string]*entity.Instance),
		slots:          make(map[string]*entity.CrawlSlot),
		coveredWindows: make(map[windowKey]struct{}),
	}
}

// Register adds a new instance, or refreshes capabilities and liveness for
// a known one (spec.md §4.7 idempotence: "register with a known instance
// id refreshes capabilities").
func (s *Store) Register(id string, capabilities []entity.Category, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst, ok := s.instances[id]; ok {
		inst.Capabilities = capabilities
		inst.LastHeartbeat = now
		return
	}
	s.instances[id] = &entity.Instance{ID: id, Capabilities: capabilities, LastHeartbeat: now}
}

func (s *Store) Instance(id string) (entity.Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return entity.Instance{}, false
	}
	return *inst, true
}

func (s *Store) Instances() []entity.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Heartbeat refreshes an instance's liveness and, if it reports holding a
// slot it still owns, extends that slot's deadline. Returns false if the
// instance id is unknown (the caller must register first).
func (s *Store) Heartbeat(id string, currentSlotID *string, deadline, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok {
		return false
	}
	inst.LastHeartbeat = now
	if currentSlotID != nil {
		if slot, ok := s.slots[*currentSlotID]; ok && slot.InstanceID != nil && *slot.InstanceID == id {
			slot.ExtendHeartbeat(deadline)
		}
	}
	return true
}

// AddSlot inserts a newly generated pending slot. Returns false without
// modifying anything if the (category, window start) pair is already
// covered by an existing slot.
func (s *Store) AddSlot(slot *entity.CrawlSlot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := windowKey{category: slot.Category, start: slot.Window.Start.Unix()}
	if _, exists := s.coveredWindows[key]; exists {
		return false
	}
	s.coveredWindows[key] = struct{}{}
	s.slots[slot.ID] = slot
	return true
}

func (s *Store) Slot(id string) (entity.CrawlSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return entity.CrawlSlot{}, false
	}
	return *slot, true
}

func (s *Store) Slots() []entity.CrawlSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.CrawlSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, *slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PendingForCategory returns pending or orphaned slots of category, sorted
// by id, so round-robin assignment sees a stable, deterministic order.
// Orphaned slots are included: the glossary defines an orphaned slot as
// "eligible for reassignment", not a dead end requiring a separate
// transition back to pending.
func (s *Store) PendingForCategory(category entity.Category) []*entity.CrawlSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.CrawlSlot
	for _, slot := range s.slots {
		if slot.Category != category {
			continue
		}
		if slot.Status == entity.SlotPending || slot.Status == entity.SlotOrphaned {
			out = append(out, slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Assign binds slot to instance, transitioning pending/orphaned to
// assigned and recording the instance's first heartbeat deadline.
func (s *Store) Assign(slotID, instanceID string, deadline time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok || (slot.Status != entity.SlotPending && slot.Status != entity.SlotOrphaned) {
		return false
	}
	inst, ok := s.instances[instanceID]
	if !ok || !inst.Idle() {
		return false
	}
	slot.Assign(instanceID, deadline)
	id := slotID
	inst.CurrentSlotID = &id
	return true
}

// Decline reverts an assigned slot back to pending (spec.md §4.7: "An
// instance may decline a slot... the slot returns to pending and is
// offered to the next eligible instance").
func (s *Store) Decline(slotID, instanceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok || slot.InstanceID == nil || *slot.InstanceID != instanceID {
		return false
	}
	slot.Status = entity.SlotPending
	slot.InstanceID = nil
	if inst, ok := s.instances[instanceID]; ok {
		inst.CurrentSlotID = nil
	}
	return true
}

// Finish marks slot terminal. Reporting an already-terminal slot is a
// no-op (spec.md §4.7 idempotence: "report_slot_result for an
// already-terminal slot is a no-op (logged)") — the caller logs that case
// using the returned applied=false, known=true combination.
func (s *Store) Finish(slotID, instanceID string, success bool) (applied, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return false, false
	}
	if slot.Status == entity.SlotSucceeded || slot.Status == entity.SlotFailed {
		return false, true
	}
	slot.Finish(success)
	if inst, ok := s.instances[instanceID]; ok && inst.CurrentSlotID != nil && *inst.CurrentSlotID == slotID {
		inst.CurrentSlotID = nil
	}
	return true, true
}

// ReapOrphans transitions every assigned/running slot whose heartbeat
// deadline has passed to orphaned (spec.md §4.7 state machine:
// "assigned/running -timeout-> orphaned"), freeing the owning instance.
// Returns the ids of slots it orphaned, for logging.
func (s *Store) ReapOrphans(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orphaned []string
	for _, slot := range s.slots {
		if !slot.IsOverdue(now) {
			continue
		}
		if slot.InstanceID != nil {
			if inst, ok := s.instances[*slot.InstanceID]; ok && inst.CurrentSlotID != nil && *inst.CurrentSlotID == slot.ID {
				inst.CurrentSlotID = nil
			}
		}
		slot.Orphan()
		slot.InstanceID = nil
		orphaned = append(orphaned, slot.ID)
	}
	return orphaned
}

func (s *Store) CountPending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, slot := range s.slots {
		if slot.Status == entity.SlotPending {
			n++
		}
	}
	return n
}

// CountOnline reports how many registered instances have heartbeated
// within staleAfter of now.
func (s *Store) CountOnline(now time.Time, staleAfter time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, inst := range s.instances {
		if now.Sub(inst.LastHeartbeat) <= staleAfter {
			n++
		}
	}
	return n
}
