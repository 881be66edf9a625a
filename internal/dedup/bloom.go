package dedup

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// DefaultFalsePositiveRate is the target tier-1 false-positive rate
// (spec.md §4.3: "≤ 1%").
const DefaultFalsePositiveRate = 0.01

// BloomTier is the tier-1 probabilistic membership filter. It never
// produces a false negative: if MightContain reports false, the key is
// definitely absent from everything added so far.
type BloomTier struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewBloomTier sizes the filter for expectedItems at the given
// falsePositiveRate (pass 0 to use DefaultFalsePositiveRate).
func NewBloomTier(expectedItems uint, falsePositiveRate float64) *BloomTier {
	if falsePositiveRate <= 0 {
		falsePositiveRate = DefaultFalsePositiveRate
	}
	return &BloomTier{filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate)}
}

// MightContain answers tier 1's query: false means "definitely not
// present" (admit with no further I/O); true means "possibly present"
// (fall through to tier 2/3).
func (b *BloomTier) MightContain(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.filter.TestString(key)
}

// Add records key in the filter. Per spec.md §4.3, callers defer this
// until after a successful durable write, not at admission time.
func (b *BloomTier) Add(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter.AddString(key)
}
