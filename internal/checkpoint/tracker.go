package checkpoint

import (
	"time"

	"newscrawl/internal/domain/entity"
)

// DefaultSaveCadence is the default number of successful commits between
// saves (spec.md §4.5: "default 10").
const DefaultSaveCadence = 10

// Clock abstracts time.Now for deterministic tests, the same seam
// internal/ratelimit uses for its token bucket.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Tracker wraps a CheckpointState with the save-cadence policy spec.md
// §4.5 requires: at least every cadence successful commits, and
// unconditionally at slot termination. A Tracker is owned by one slot's
// pipeline run.
type Tracker struct {
	mgr     *Manager
	state   *entity.CheckpointState
	cadence int
	clock   Clock

	sinceSave int
}

// NewTracker builds a Tracker over state, saving via mgr every cadence
// commits. cadence <= 0 uses DefaultSaveCadence; a nil clock uses
// SystemClock.
func NewTracker(mgr *Manager, state *entity.CheckpointState, cadence int, clock Clock) *Tracker {
	if cadence <= 0 {
		cadence = DefaultSaveCadence
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Tracker{mgr: mgr, state: state, cadence: cadence, clock: clock}
}

// State returns the underlying CheckpointState.
func (t *Tracker) State() *entity.CheckpointState {
	return t.state
}

// MarkCompleted records id as processed and saves if the cadence has been
// reached. The pipeline's store stage calls this only after a metadata
// insert has succeeded or returned Duplicate (spec.md §4.6: "an
// identifier is added to the completed set only after its metadata
// insert succeeds or returns duplicate").
func (t *Tracker) MarkCompleted(id entity.Identifier, sourceURL string, pageIndex int) error {
	t.state.MarkCompleted(id, sourceURL, pageIndex, t.clock.Now())
	t.sinceSave++
	if t.sinceSave >= t.cadence {
		if err := t.mgr.Save(t.state); err != nil {
			return err
		}
		t.sinceSave = 0
	}
	return nil
}

// Finish saves unconditionally, regardless of cadence. Call at slot
// termination — success, cancel, or error (spec.md §4.5).
func (t *Tracker) Finish() error {
	err := t.mgr.Save(t.state)
	if err == nil {
		t.sinceSave = 0
	}
	return err
}
