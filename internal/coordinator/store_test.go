package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscrawl/internal/domain/entity"
)

func TestStore_RegisterIsIdempotentAndRefreshesCapabilities(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.Register("inst-1", []entity.Category{entity.CategoryGeneral}, now)
	s.Register("inst-1", []entity.Category{entity.CategoryGeneral, entity.CategoryWorld}, now.Add(time.Minute))

	inst, ok := s.Instance("inst-1")
	require.True(t, ok)
	assert.ElementsMatch(t, []entity.Category{entity.CategoryGeneral, entity.CategoryWorld}, inst.Capabilities)
}

func TestStore_AddSlotRejectsDuplicateWindow(t *testing.T) {
	s := NewStore()
	start := time.Now().Truncate(time.Hour)
	slot1 := &entity.CrawlSlot{ID: "a", Category: entity.CategoryGeneral, Window: entity.TimeWindow{Start: start, End: start.Add(time.Hour)}, Status: entity.SlotPending}
	slot2 := &entity.CrawlSlot{ID: "b", Category: entity.CategoryGeneral, Window: entity.TimeWindow{Start: start, End: start.Add(time.Hour)}, Status: entity.SlotPending}

	assert.True(t, s.AddSlot(slot1))
	assert.False(t, s.AddSlot(slot2))
	assert.Len(t, s.Slots(), 1)
}

func TestStore_AssignRequiresPendingOrOrphanedAndIdleInstance(t *testing.T) {
	s := NewStore()
	s.Register("inst-1", []entity.Category{entity.CategoryGeneral}, time.Now())
	slot := &entity.CrawlSlot{ID: "slot-1", Category: entity.CategoryGeneral, Status: entity.SlotPending}
	s.AddSlot(slot)

	deadline := time.Now().Add(90 * time.Second)
	require.True(t, s.Assign("slot-1", "inst-1", deadline))

	got, ok := s.Slot("slot-1")
	require.True(t, ok)
	assert.Equal(t, entity.SlotAssigned, got.Status)
	require.NotNil(t, got.InstanceID)
	assert.Equal(t, "inst-1", *got.InstanceID)

	inst, _ := s.Instance("inst-1")
	assert.False(t, inst.Idle())

	// Already assigned: a second assign attempt fails.
	assert.False(t, s.Assign("slot-1", "inst-1", deadline))
}

func TestStore_FinishIsIdempotentOnTerminalSlot(t *testing.T) {
	s := NewStore()
	s.Register("inst-1", []entity.Category{entity.CategoryGeneral}, time.Now())
	slot := &entity.CrawlSlot{ID: "slot-1", Category: entity.CategoryGeneral, Status: entity.SlotPending}
	s.AddSlot(slot)
	require.True(t, s.Assign("slot-1", "inst-1", time.Now().Add(time.Minute)))

	applied, known := s.Finish("slot-1", "inst-1", true)
	assert.True(t, applied)
	assert.True(t, known)

	applied, known = s.Finish("slot-1", "inst-1", true)
	assert.False(t, applied)
	assert.True(t, known)

	inst, _ := s.Instance("inst-1")
	assert.True(t, inst.Idle())
}

func TestStore_FinishUnknownSlotReportsNotKnown(t *testing.T) {
	s := NewStore()
	_, known := s.Finish("nope", "inst-1", true)
	assert.False(t, known)
}

func TestStore_ReapOrphansFreesOverdueAssignedSlots(t *testing.T) {
	s := NewStore()
	s.Register("inst-1", []entity.Category{entity.CategoryGeneral}, time.Now())
	slot := &entity.CrawlSlot{ID: "slot-1", Category: entity.CategoryGeneral, Status: entity.SlotPending}
	s.AddSlot(slot)

	past := time.Now().Add(-time.Minute)
	require.True(t, s.Assign("slot-1", "inst-1", past))

	orphaned := s.ReapOrphans(time.Now())
	assert.Equal(t, []string{"slot-1"}, orphaned)

	got, _ := s.Slot("slot-1")
	assert.Equal(t, entity.SlotOrphaned, got.Status)
	assert.Nil(t, got.InstanceID)

	inst, _ := s.Instance("inst-1")
	assert.True(t, inst.Idle())

	// An orphaned slot is still offered for assignment.
	pending := s.PendingForCategory(entity.CategoryGeneral)
	require.Len(t, pending, 1)
	assert.Equal(t, "slot-1", pending[0].ID)
}

func TestStore_DeclineReturnsSlotToPending(t *testing.T) {
	s := NewStore()
	s.Register("inst-1", []entity.Category{entity.CategoryGeneral}, time.Now())
	slot := &entity.CrawlSlot{ID: "slot-1", Category: entity.CategoryGeneral, Status: entity.SlotPending}
	s.AddSlot(slot)
	require.True(t, s.Assign("slot-1", "inst-1", time.Now().Add(time.Minute)))

	assert.True(t, s.Decline("slot-1", "inst-1"))
	got, _ := s.Slot("slot-1")
	assert.Equal(t, entity.SlotPending, got.Status)
	assert.Nil(t, got.InstanceID)
}

func TestStore_CountOnlineExcludesStaleHeartbeats(t *testing.T) {
	s := NewStore()
	now := time.Now()
	s.Register("fresh", nil, now)
	s.Register("stale", nil, now.Add(-time.Hour))

	assert.Equal(t, 1, s.CountOnline(now, 90*time.Second))
}
