package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscrawl/internal/domain/entity"
)

func testConfig() Config {
	return Config{
		Schedule:          []ScheduleEntry{{Category: entity.CategoryGeneral, WindowSize: time.Hour}},
		SchedulerInterval: time.Second,
		GenerateHorizon:   2 * time.Hour,
		HeartbeatInterval: 30 * time.Second,
		MissedHeartbeats:  2,
		HeartbeatDeadline: 90 * time.Second,
	}
}

func TestScheduler_TickGeneratesSlotsFromSchedule(t *testing.T) {
	store := NewStore()
	sched := NewScheduler(store, testConfig())

	sched.Tick(time.Now())

	slots := store.Slots()
	assert.GreaterOrEqual(t, len(slots), 2) // >= 2 one-hour windows within a 2h horizon.
	for _, slot := range slots {
		assert.Equal(t, entity.CategoryGeneral, slot.Category)
		assert.Equal(t, entity.SlotPending, slot.Status)
	}
}

func TestScheduler_TickIsIdempotentForSameWindow(t *testing.T) {
	store := NewStore()
	sched := NewScheduler(store, testConfig())

	now := time.Now()
	sched.Tick(now)
	first := len(store.Slots())
	sched.Tick(now)
	assert.Equal(t, first, len(store.Slots()))
}

func TestScheduler_AssignsRoundRobinAcrossCapableInstances(t *testing.T) {
	store := NewStore()
	cfg := testConfig()
	sched := NewScheduler(store, cfg)

	store.Register("inst-a", []entity.Category{entity.CategoryGeneral}, time.Now())
	store.Register("inst-b", []entity.Category{entity.CategoryGeneral}, time.Now())

	sched.Tick(time.Now())

	slots := store.Slots()
	require.NotEmpty(t, slots)

	assignedTo := map[string]int{}
	for _, slot := range slots {
		if slot.InstanceID != nil {
			assignedTo[*slot.InstanceID]++
		}
	}
	require.Len(t, assignedTo, 2, "both idle capable instances should receive at least one slot")
}

func TestScheduler_DoesNotAssignToIncapableInstance(t *testing.T) {
	store := NewStore()
	cfg := testConfig()
	sched := NewScheduler(store, cfg)

	store.Register("inst-a", []entity.Category{entity.CategorySports}, time.Now())
	sched.Tick(time.Now())

	for _, slot := range store.Slots() {
		assert.Nil(t, slot.InstanceID)
		assert.Equal(t, entity.SlotPending, slot.Status)
	}
}

func TestScheduler_ReassignsOrphanedSlotOnNextTick(t *testing.T) {
	store := NewStore()
	cfg := testConfig()
	sched := NewScheduler(store, cfg)

	store.Register("inst-a", []entity.Category{entity.CategoryGeneral}, time.Now())
	farFuture := time.Now().Add(100 * time.Hour)
	slot := &entity.CrawlSlot{ID: "slot-x", Category: entity.CategoryGeneral, Window: entity.TimeWindow{Start: farFuture, End: farFuture.Add(time.Hour)}, Status: entity.SlotPending}
	store.AddSlot(slot)

	require.True(t, store.Assign("slot-x", "inst-a", time.Now().Add(-time.Second)))

	store.Register("inst-b", []entity.Category{entity.CategoryGeneral}, time.Now())
	sched.Tick(time.Now())

	// The heartbeat deadline already lapsed when the tick ran, so the
	// orphan-then-reassign pass must have picked slot-x back up rather
	// than leaving it stranded in assigned/orphaned limbo.
	got, _ := store.Slot("slot-x")
	assert.Equal(t, entity.SlotAssigned, got.Status)
	require.NotNil(t, got.InstanceID)
}
