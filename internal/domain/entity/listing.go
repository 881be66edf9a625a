package entity

import "time"

// ListingEntry is a URL discovered on a category listing page. It is
// transient: the pipeline consumes it and it is never persisted as its own
// entity (spec.md §3).
type ListingEntry struct {
	URL         string
	Category    Category
	DiscoveredAt time.Time
}
