// Package dedup implements the three-tier deduplication layer (spec.md
// §4.3): a probabilistic in-memory filter, a bounded recent-URL cache, and
// a durable store fallback, queried in that order so that the common case
// (a URL never seen before) never touches the store.
package dedup

import (
	"context"

	"golang.org/x/sync/singleflight"

	"newscrawl/internal/domain/entity"
)

// MetadataLookup is the tier-3 durable lookup the Checker defers to. It is
// satisfied by the metadata store (internal/store/metadata); declared here
// so dedup depends only on the narrow slice of that store's API it needs.
type MetadataLookup interface {
	ExistsByURL(ctx context.Context, canonicalURL string) (bool, error)
	ExistsByIdentifier(ctx context.Context, id entity.Identifier) (bool, error)
}

// Decision is the outcome of a Checker.Check call.
type Decision int

const (
	// Admit means the URL has not been seen; the caller should proceed to
	// fetch it.
	Admit Decision = iota
	// Reject means the URL is a known duplicate; the caller should skip it.
	Reject
)

// Checker composes the three tiers behind the query protocol spec.md §4.3
// defines. A single Checker is shared by every fetch-stage worker in a
// slot; singleflight collapses concurrent tier-3 lookups for the same key
// into one store round trip.
type Checker struct {
	bloom  *BloomTier
	recent *RecentCache
	store  MetadataLookup
	group  singleflight.Group
}

// New builds a Checker over the given tiers.
func New(bloom *BloomTier, recent *RecentCache, store MetadataLookup) *Checker {
	return &Checker{bloom: bloom, recent: recent, store: store}
}

// Check runs the tier-1 → tier-2 → tier-3 query protocol for rawURL. An
// error return means tier 3 could not be reached (infrastructure failure)
// and the URL's status is unknown; the returned Decision is then not
// meaningful.
func (c *Checker) Check(ctx context.Context, rawURL string) (Decision, error) {
	key := CanonicalizeURL(rawURL)

	if !c.bloom.MightContain(key) {
		return Admit, nil
	}

	if c.recent.Contains(key) {
		return Reject, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.store.ExistsByURL(ctx, key)
	})
	if err != nil {
		return Reject, err
	}

	exists := v.(bool)
	c.recent.Add(key)
	if exists {
		return Reject, nil
	}
	return Admit, nil
}

// Commit records rawURL as durably written. Per spec.md §4.3, tier-1
// insertion is deferred until after the store write succeeds, so this must
// be called from the store stage, not at admission time.
func (c *Checker) Commit(rawURL string) {
	key := CanonicalizeURL(rawURL)
	c.bloom.Add(key)
	c.recent.Add(key)
}

// Warm populates tier 1 from the durable store's full key set at process
// start (spec.md §4.3: "populated on process start from the metadata
// store"). keys should be canonical URLs.
func (c *Checker) Warm(keys []string) {
	for _, k := range keys {
		c.bloom.Add(CanonicalizeURL(k))
	}
}
