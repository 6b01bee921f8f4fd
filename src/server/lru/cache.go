// Package lru provides a generic, capacity-bounded, single-flighted cache.
// It backs all three of the core's caches (connections, documents, result
// chunks); grounded on the container/list-based LRU pattern used for
// in-memory caching across the example pack (entry list + map, evict from
// the list tail on overflow).
package lru

import (
	"container/list"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// OnEvict is called with the key and value of an entry removed from the
// cache, either by capacity pressure or an explicit Remove. Implementations
// that hold a resource (a connection handle) use this hook to release it.
type OnEvict[K comparable, V any] func(key K, value V)

// Cache is a fixed-capacity, least-recently-used cache safe for concurrent
// use. A missing key's factory runs at most once at a time across
// concurrent callers (spec §4.1: "the factory for a missing key is invoked
// at most once per key at a time").
type Cache[K comparable, V any] struct {
	capacity int
	onEvict  OnEvict[K, V]

	mu    sync.Mutex
	ll    *list.List
	items map[K]*list.Element

	group singleflight.Group
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New creates a Cache bounded to capacity entries. capacity <= 0 means
// unbounded (eviction never runs).
func New[K comparable, V any](capacity int, onEvict OnEvict[K, V]) *Cache[K, V] {
	return &Cache[K, V]{
		capacity: capacity,
		onEvict:  onEvict,
		ll:       list.New(),
		items:    make(map[K]*list.Element),
	}
}

// Get returns the value stored for key and marks it most-recently-used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Set inserts or replaces the value stored for key, marks it
// most-recently-used, and evicts the least-recently-used entry if the
// cache is over capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	var evictedKey K
	var evictedValue V
	evicted := false

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.ll.MoveToFront(el)
		c.mu.Unlock()
		return
	}

	el := c.ll.PushFront(&entry[K, V]{key: key, value: value})
	c.items[key] = el

	if c.capacity > 0 && c.ll.Len() > c.capacity {
		back := c.ll.Back()
		if back != nil {
			ev := back.Value.(*entry[K, V])
			evictedKey, evictedValue, evicted = ev.key, ev.value, true
			c.ll.Remove(back)
			delete(c.items, ev.key)
		}
	}
	c.mu.Unlock()

	if evicted && c.onEvict != nil {
		c.onEvict(evictedKey, evictedValue)
	}
}

// Remove deletes key from the cache, invoking onEvict if it was present.
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	ev := el.Value.(*entry[K, V])
	c.ll.Remove(el)
	delete(c.items, key)
	c.mu.Unlock()

	if c.onEvict != nil {
		c.onEvict(ev.key, ev.value)
	}
}

// RemoveMatching deletes every entry whose key satisfies match, invoking
// onEvict for each one removed. Used to drop every cache entry that
// belongs to some outer identity (e.g. a dump id) without the cache
// itself needing to index by that identity.
func (c *Cache[K, V]) RemoveMatching(match func(K) bool) {
	c.mu.Lock()
	var removed []*entry[K, V]
	for key, el := range c.items {
		if !match(key) {
			continue
		}
		removed = append(removed, el.Value.(*entry[K, V]))
		c.ll.Remove(el)
		delete(c.items, key)
	}
	c.mu.Unlock()

	if c.onEvict != nil {
		for _, ev := range removed {
			c.onEvict(ev.key, ev.value)
		}
	}
}

// Len reports the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// GetOrLoad returns the cached value for key, or calls factory to produce
// one on a miss. Concurrent misses for the same key share a single
// factory invocation (golang.org/x/sync/singleflight): every waiter
// receives the first resolver's result, and a failed load is not cached —
// the next request re-attempts (spec §9 "Single-flight on caches").
func (c *Cache[K, V]) GetOrLoad(key K, factory func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	groupKey := anyToString(key)
	v, err, _ := c.group.Do(groupKey, func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		value, err := factory()
		if err != nil {
			return value, err
		}
		c.Set(key, value)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// GetOrLoadHit behaves like GetOrLoad but additionally reports whether the
// value was already present (a hit) rather than freshly produced by
// factory (a miss). Used where a caller wants cache-hit accounting on top
// of the value itself (spec §4 supplement, diagnostics).
func (c *Cache[K, V]) GetOrLoadHit(key K, factory func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	v, err := c.GetOrLoad(key, factory)
	return v, false, err
}

func anyToString[K comparable](key K) string {
	return fmt.Sprintf("%v", key)
}
