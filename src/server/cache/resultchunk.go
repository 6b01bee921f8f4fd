package cache

import (
	"fmt"

	"codeintel/src/server/dump"
	"codeintel/src/server/lru"
)

// ResultChunkKey identifies a decoded ResultChunk: the dump it belongs to
// and its chunk id.
type ResultChunkKey struct {
	DumpID  int64
	ChunkID int32
}

func (k ResultChunkKey) String() string {
	return fmt.Sprintf("%d:%d", k.DumpID, k.ChunkID)
}

// ResultChunkCache caches decoded ResultChunk payloads.
type ResultChunkCache struct {
	cache *lru.Cache[ResultChunkKey, *dump.ResultChunk]
}

// NewResultChunkCache creates a ResultChunkCache bounded to capacity entries.
func NewResultChunkCache(capacity int) *ResultChunkCache {
	return &ResultChunkCache{cache: lru.New[ResultChunkKey, *dump.ResultChunk](capacity, nil)}
}

// GetOrLoad returns the cached ResultChunk for key, decoding it via
// factory on a miss.
func (c *ResultChunkCache) GetOrLoad(key ResultChunkKey, factory func() (*dump.ResultChunk, error)) (*dump.ResultChunk, error) {
	return c.cache.GetOrLoad(key, factory)
}

// Invalidate evicts every cache entry belonging to dumpID (spec §3
// invariant 4).
func (c *ResultChunkCache) Invalidate(dumpID int64) {
	c.cache.RemoveMatching(func(k ResultChunkKey) bool { return k.DumpID == dumpID })
}
