package coordinator

import (
	"time"

	"newscrawl/internal/domain/entity"
)

// This file defines the coordinator wire protocol (spec.md §6): JSON
// request/response bodies for each endpoint the instance runner (§4.8)
// speaks to.

// RegisterRequest is POST /register's body.
type RegisterRequest struct {
	InstanceID   string   `json:"instance_id"`
	Capabilities []string `json:"capabilities"`
}

// RegisterResponse is POST /register's body.
type RegisterResponse struct {
	Registered bool `json:"registered"`
}

// HeartbeatRequest is POST /heartbeat's body.
type HeartbeatRequest struct {
	InstanceID    string  `json:"instance_id"`
	CurrentSlotID *string `json:"current_slot_id,omitempty"`
}

// HeartbeatResponse is POST /heartbeat's body. Reassignments lists slot ids
// this instance previously held that the scheduler has since orphaned (and
// possibly reassigned elsewhere), so a late-arriving instance can notice it lost a
// slot without waiting for its own deadline to lapse locally.
type HeartbeatResponse struct {
	OK            bool     `json:"ok"`
	Reassignments []string `json:"reassignments,omitempty"`
}

// SlotRequestRequest is POST /slot/request's body.
type SlotRequestRequest struct {
	InstanceID string `json:"instance_id"`
}

// SlotRequestResponse is POST /slot/request's body. None is set when no
// eligible slot is currently assignable to the instance.
type SlotRequestResponse struct {
	Slot *SlotDTO `json:"slot,omitempty"`
	None bool     `json:"none,omitempty"`
}

// SlotReportRequest is POST /slot/report's body.
type SlotReportRequest struct {
	InstanceID string          `json:"instance_id"`
	SlotID     string          `json:"slot_id"`
	Result     string          `json:"result"` // "succeeded", "failed", or "cancelled".
	Stats      SlotReportStats `json:"stats"`
}

// SlotReportStats mirrors the pipeline's per-run counters at the wire
// level, deliberately decoupled from pipeline.Stats's Go type so the
// coordinator never needs to import the pipeline package.
type SlotReportStats struct {
	ListingEntries    int64 `json:"listing_entries"`
	DuplicatesSkipped int64 `json:"duplicates_skipped"`
	FetchErrors       int64 `json:"fetch_errors"`
	ParseErrors       int64 `json:"parse_errors"`
	Stored            int64 `json:"stored"`
}

// SlotReportResponse is POST /slot/report's body.
type SlotReportResponse struct {
	OK bool `json:"ok"`
}

// HealthResponse is GET /health's body.
type HealthResponse struct {
	Status          string `json:"status"`
	InstancesOnline int    `json:"instances_online"`
	SlotsPending    int    `json:"slots_pending"`
}

// ScheduleResponse is GET /schedule's body.
type ScheduleResponse struct {
	UpcomingSlots []SlotDTO `json:"upcoming_slots"`
}

// InstancesResponse is GET /instances's body.
type InstancesResponse struct {
	Instances []InstanceDTO `json:"instances"`
}

// SlotDTO is the wire shape of a CrawlSlot.
type SlotDTO struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	WindowStart string  `json:"window_start"`
	WindowEnd   string  `json:"window_end"`
	Status      string  `json:"status"`
	InstanceID  *string `json:"instance_id,omitempty"`
}

func slotToDTO(s entity.CrawlSlot) SlotDTO {
	return SlotDTO{
		ID:          s.ID,
		Category:    s.Category.String(),
		WindowStart: s.Window.Start.UTC().Format(time.RFC3339),
		WindowEnd:   s.Window.End.UTC().Format(time.RFC3339),
		Status:      string(s.Status),
		InstanceID:  s.InstanceID,
	}
}

// InstanceDTO is the wire shape of an Instance.
type InstanceDTO struct {
	ID            string   `json:"id"`
	Capabilities  []string `json:"capabilities"`
	LastHeartbeat string   `json:"last_heartbeat"`
	CurrentSlotID *string  `json:"current_slot_id,omitempty"`
}

func instanceToDTO(i entity.Instance) InstanceDTO {
	caps := make([]string, len(i.Capabilities))
	for idx, c := range i.Capabilities {
		caps[idx] = c.String()
	}
	return InstanceDTO{
		ID:            i.ID,
		Capabilities:  caps,
		LastHeartbeat: i.LastHeartbeat.UTC().Format(time.RFC3339),
		CurrentSlotID: i.CurrentSlotID,
	}
}

func parseCategories(raw []string) ([]entity.Category, bool) {
	out := make([]entity.Category, len(raw))
	for i, r := range raw {
		c := entity.Category(r)
		if !c.IsValid() {
			return nil, false
		}
		out[i] = c
	}
	return out, true
}
