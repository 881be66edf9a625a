package entity

import "time"

// CheckpointState is the durable progress marker for a single (category, date)
// crawl, allowing a restarted instance to resume without reprocessing listing
// pages it already drained (spec.md §4.5).
//
// Invariant: every identifier in Completed must already be present in the
// metadata store. The checkpoint is written after the metadata insert, never
// before, so a crash between the two leaves the store ahead of the
// checkpoint rather than the other way around.
type CheckpointState struct {
	Category Category
	Date     string // YYYY-MM-DD, the partition key alongside Category.

	Completed       map[Identifier]struct{}
	LastSuccessURL  string
	LastPageIndex   int
	UpdatedAt       time.Time
}

// NewCheckpointState returns an empty checkpoint for the given category/date.
func NewCheckpointState(category Category, date string) *CheckpointState {
	return &CheckpointState{
		Category:  category,
		Date:      date,
		Completed: make(map[Identifier]struct{}),
	}
}

// IsCompleted reports whether id has already been processed under this checkpoint.
func (c *CheckpointState) IsCompleted(id Identifier) bool {
	_, ok := c.Completed[id]
	return ok
}

// MarkCompleted records id as processed, advances LastSuccessURL/LastPageIndex,
// and bumps UpdatedAt. now must be monotonic with respect to prior calls;
// the checkpoint manager is responsible for supplying a real clock.
func (c *CheckpointState) MarkCompleted(id Identifier, sourceURL string, pageIndex int, now time.Time) {
	if c.Completed == nil {
		c.Completed = make(map[Identifier]struct{})
	}
	c.Completed[id] = struct{}{}
	c.LastSuccessURL = sourceURL
	c.LastPageIndex = pageIndex
	c.UpdatedAt = now
}
