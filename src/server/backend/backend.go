// Package backend orchestrates the query pipeline: closest-dump
// selection, local lookup, moniker extraction and prioritisation,
// same-dump remote monikers, and the cross-dump pagination state machine
// (spec §4.4-§4.8). The Backend owns no dumps and no metadata store; it
// is constructed with references to them (spec §3 "Ownership").
package backend

import (
	"sync"
	"sync/atomic"

	"codeintel/src/internal/common"
	"codeintel/src/internal/types"
	"codeintel/src/server/cache"
	"codeintel/src/server/dump"
	"codeintel/src/server/metadata"
)

// ConnectionOpener opens a dump.Reader for a given dump, borrowing it for
// the duration of body via the process-wide ConnectionCache. It reports
// whether the connection was already open (a cache hit) rather than
// freshly opened for this call (a miss).
type ConnectionOpener func(d types.Dump, body func(dump.Reader) error) (bool, error)

// Stats is a lazily-computed, request-lifetime snapshot of cache and
// fan-out activity, supplementing the pipelines with diagnostics
// (spec §4 supplement, grounded on the original's sync.Once-guarded
// compute() pattern for per-request bookkeeping). It never changes any
// pipeline's return values.
type Stats struct {
	CacheHits     int64
	CacheMisses   int64
	DumpsOpened   int64
	RemoteFanOuts int64
}

// statsCollector accumulates counters for the lifetime of a single query
// and freezes them into a Stats snapshot the first time Snapshot is
// called; later calls return that same frozen value even if counters
// keep moving afterward.
type statsCollector struct {
	hits, misses, opens, fanOuts atomic.Int64

	once     sync.Once
	snapshot Stats
}

// Snapshot computes (once) and returns the frozen Stats for this query.
func (c *statsCollector) Snapshot() Stats {
	c.once.Do(func() {
		c.snapshot = Stats{
			CacheHits:     c.hits.Load(),
			CacheMisses:   c.misses.Load(),
			DumpsOpened:   c.opens.Load(),
			RemoteFanOuts: c.fanOuts.Load(),
		}
	})
	return c.snapshot
}

// newStatsCollector creates an empty, per-query statsCollector.
func newStatsCollector() *statsCollector {
	return &statsCollector{}
}

// Backend is the query-serving core: it answers definitions, references,
// and hover by walking one or more dumps reachable from the closest one
// to a query coordinate.
type Backend struct {
	metadata metadata.Store
	open     ConnectionOpener
	logger   *common.SafeLogger
}

// New constructs a Backend over store and opener. opener is typically
// ConnectionCache.WithConnectionHit wrapped to resolve a types.Dump to its
// on-disk filename first.
func New(store metadata.Store, opener ConnectionOpener) *Backend {
	return &Backend{metadata: store, open: opener, logger: common.BackendLogger}
}

// OpenerFromConnectionCache adapts a ConnectionCache plus a filename
// resolver into a ConnectionOpener.
func OpenerFromConnectionCache(cc *cache.ConnectionCache, filenameOf func(types.Dump) string) ConnectionOpener {
	return func(d types.Dump, body func(dump.Reader) error) (bool, error) {
		return cc.WithConnectionHit(filenameOf(d), body)
	}
}

// recordOpen accounts one connection-open call against stats: always a
// dump-open, and a cache hit or miss depending on whether the connection
// was already live.
func recordOpen(stats *statsCollector, hit bool) {
	stats.opens.Add(1)
	if hit {
		stats.hits.Add(1)
	} else {
		stats.misses.Add(1)
	}
}
