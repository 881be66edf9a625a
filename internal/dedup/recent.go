package dedup

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// DefaultRecentCacheSize bounds tier 2 when the caller doesn't size it
// explicitly.
const DefaultRecentCacheSize = 100_000

// RecentCache is the tier-2 bounded LRU of URLs observed within the current
// run (spec.md §4.3). groupcache's lru.Cache is not safe for concurrent use
// on its own, so access is serialized with a mutex here.
type RecentCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewRecentCache builds a tier-2 cache holding at most maxEntries keys.
// maxEntries <= 0 uses DefaultRecentCacheSize.
func NewRecentCache(maxEntries int) *RecentCache {
	if maxEntries <= 0 {
		maxEntries = DefaultRecentCacheSize
	}
	return &RecentCache{cache: lru.New(maxEntries)}
}

// Contains reports whether key is currently held in the cache.
func (r *RecentCache) Contains(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cache.Get(lru.Key(key))
	return ok
}

// Add inserts key, evicting the least recently used entry if the cache is
// at capacity.
func (r *RecentCache) Add(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Add(lru.Key(key), struct{}{})
}

// Len returns the current number of cached entries.
func (r *RecentCache) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
