package query

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// CachedParse is a successful parse stored in a ParseCache. Entries are
// shared between callers and must not be modified; hand out Clone(Expr).
type CachedParse struct {
	Input    string
	Expr     Expression
	Metadata QueryMetadata
	Stats    ParseStats
}

// ParseCache is a bounded map from input text to its parse result. Inputs
// are keyed by their xxhash digest; the stored input is compared on lookup
// so a digest collision is a miss, never a wrong answer.
//
// Eviction strategy: when the cache reaches its capacity limit the entire map
// is replaced. Filter traffic is dominated by a small set of repeated query
// templates, which refill the cache immediately.
//
// All methods are safe for concurrent use. A nil *ParseCache is a valid,
// always empty cache.
type ParseCache struct {
	mu    sync.RWMutex
	items map[uint64]*CachedParse
	max   int
}

// NewParseCache returns a cache holding up to max entries. It returns nil
// when max is not positive.
func NewParseCache(max int) *ParseCache {
	if max <= 0 {
		return nil
	}
	return &ParseCache{
		items: make(map[uint64]*CachedParse, max),
		max:   max,
	}
}

// Get returns the cached parse of input.
func (c *ParseCache) Get(input string) (*CachedParse, bool) {
	if c == nil {
		return nil, false
	}
	key := xxhash.Sum64String(input)
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || v.Input != input {
		return nil, false
	}
	return v, true
}

// Put stores a parse result.
func (c *ParseCache) Put(entry *CachedParse) {
	if c == nil || entry == nil {
		return
	}
	key := xxhash.Sum64String(entry.Input)
	c.mu.Lock()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.max {
		// Evict everything and start fresh rather than tracking individual entry ages.
		c.items = make(map[uint64]*CachedParse, c.max)
	}
	c.items[key] = entry
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *ParseCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
