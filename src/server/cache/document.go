package cache

import (
	"fmt"

	"codeintel/src/server/dump"
	"codeintel/src/server/lru"
)

// DocumentKey identifies a decoded Document: the dump it belongs to and
// its dump-relative path.
type DocumentKey struct {
	DumpID int64
	Path   string
}

func (k DocumentKey) String() string {
	return fmt.Sprintf("%d:%s", k.DumpID, k.Path)
}

// DocumentCache caches decoded Document payloads. Size is accounted by
// entry count: each cached document counts as one entry toward capacity,
// whatever its number of ranges or its size in bytes.
type DocumentCache struct {
	cache *lru.Cache[DocumentKey, *dump.Document]
}

// NewDocumentCache creates a DocumentCache bounded to capacity entries.
func NewDocumentCache(capacity int) *DocumentCache {
	return &DocumentCache{cache: lru.New[DocumentKey, *dump.Document](capacity, nil)}
}

// GetOrLoad returns the cached Document for key, decoding it via factory
// on a miss. Concurrent misses for the same key are single-flighted.
func (c *DocumentCache) GetOrLoad(key DocumentKey, factory func() (*dump.Document, error)) (*dump.Document, error) {
	return c.cache.GetOrLoad(key, factory)
}

// Invalidate evicts every cache entry belonging to dumpID. Closing a
// dump's connection invalidates its document cache entries (spec §3
// invariant 4).
func (c *DocumentCache) Invalidate(dumpID int64) {
	c.cache.RemoveMatching(func(k DocumentKey) bool { return k.DumpID == dumpID })
}
