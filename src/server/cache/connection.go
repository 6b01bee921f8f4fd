// Package cache provides the three bounded caches the query backend
// shares: connection handles, decoded documents, and decoded result
// chunks (spec §4.1). Each is built on top of server/lru.Cache.
package cache

import (
	"sync"

	"codeintel/src/internal/common"
	"codeintel/src/server/dump"
	"codeintel/src/server/lru"
)

// PinnedConnection is a reference-counted borrow of a dump's Reader.
// Eviction from the ConnectionCache defers closing the underlying Reader
// until every outstanding borrow has released it (spec §4.1, §5
// "Connection handles are reference-counted while borrowed").
type PinnedConnection struct {
	mu      sync.Mutex
	reader  dump.Reader
	pins    int
	evicted bool
}

func (p *PinnedConnection) pin() {
	p.mu.Lock()
	p.pins++
	p.mu.Unlock()
}

func (p *PinnedConnection) unpin() {
	p.mu.Lock()
	p.pins--
	shouldClose := p.evicted && p.pins <= 0
	p.mu.Unlock()
	if shouldClose {
		_ = p.reader.Close()
	}
}

func (p *PinnedConnection) markEvicted() {
	p.mu.Lock()
	shouldClose := p.pins <= 0
	p.evicted = true
	p.mu.Unlock()
	if shouldClose {
		_ = p.reader.Close()
	}
}

// ConnectionFactory opens a Reader for a dump given its on-disk filename.
type ConnectionFactory func(filename string) (dump.Reader, error)

// ConnectionCache caches opened dump.Reader handles keyed by dump filename.
type ConnectionCache struct {
	cache     *lru.Cache[string, *PinnedConnection]
	factory   ConnectionFactory
	logger    *common.SafeLogger
	onEvicted func(filename string)
}

// NewConnectionCache creates a ConnectionCache of the given capacity.
// Eviction marks the handle evicted (it closes once any in-flight borrow
// completes, or at once if none is active) and calls onEvicted (if
// non-nil) right away, without waiting for that close, so the caller can
// drop document and
// result-chunk cache entries for the same dump (spec §3 invariant 4:
// "closing the connection invalidates document and result-chunk cache
// entries for that dump id"). onEvicted fires for capacity-driven eviction
// and for an explicit Remove alike, since both route through the same
// lru.Cache eviction callback.
func NewConnectionCache(capacity int, factory ConnectionFactory, onEvicted func(filename string)) *ConnectionCache {
	cc := &ConnectionCache{factory: factory, logger: common.StoreLogger, onEvicted: onEvicted}
	cc.cache = lru.New[string, *PinnedConnection](capacity, func(key string, value *PinnedConnection) {
		cc.logger.Debug("evicting connection for dump %s", key)
		value.markEvicted()
		if cc.onEvicted != nil {
			cc.onEvicted(key)
		}
	})
	return cc
}

// WithConnection borrows the Reader for filename under a function scope:
// body runs with a pinned handle guaranteed not to be evicted and closed
// out from under it (spec §4.1 "withConnection(key, factory, body)").
func (c *ConnectionCache) WithConnection(filename string, body func(dump.Reader) error) error {
	_, err := c.WithConnectionHit(filename, body)
	return err
}

// WithConnectionHit behaves like WithConnection but also reports whether
// the connection was already open (a cache hit) rather than freshly
// opened via factory (a miss).
func (c *ConnectionCache) WithConnectionHit(filename string, body func(dump.Reader) error) (bool, error) {
	pinned, hit, err := c.cache.GetOrLoadHit(filename, func() (*PinnedConnection, error) {
		reader, err := c.factory(filename)
		if err != nil {
			return nil, err
		}
		// pins starts at 1: this call's own eventual borrow is already
		// counted before the entry is ever made visible to the LRU via
		// Set(). Without this, a concurrent insert for a different key
		// could evict and close this entry (pins==0) in the window between
		// Set() returning and this call reaching pin() below.
		return &PinnedConnection{reader: reader, pins: 1}, nil
	})
	if err != nil {
		return false, err
	}

	// On a hit the entry already existed with someone else's (or nobody's)
	// pin count; this call still needs its own. On a miss the factory above
	// already counted this call's pin, so pinning again would double-count.
	if hit {
		pinned.pin()
	}
	defer pinned.unpin()

	return hit, body(pinned.reader)
}

// Remove explicitly evicts the connection for filename, e.g. because the
// metadata store reports the dump no longer exists.
func (c *ConnectionCache) Remove(filename string) {
	c.cache.Remove(filename)
}
