package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"codeintel/src/internal/types"
	"codeintel/src/server/dump"
)

type fakeReader struct {
	closed atomic.Bool
}

func (f *fakeReader) Exists(ctx context.Context, path string) (bool, error) { return true, nil }
func (f *fakeReader) Definitions(ctx context.Context, path string, position types.Position) ([]types.InternalLocation, error) {
	return nil, nil
}
func (f *fakeReader) References(ctx context.Context, path string, position types.Position) ([]types.InternalLocation, error) {
	return nil, nil
}
func (f *fakeReader) Hover(ctx context.Context, path string, position types.Position) (*dump.HoverResult, error) {
	return nil, nil
}
func (f *fakeReader) GetRangeByPosition(ctx context.Context, path string, position types.Position) (*dump.RangeLookup, error) {
	return nil, nil
}
func (f *fakeReader) MonikerResults(ctx context.Context, model types.Model, moniker types.Moniker, page dump.PageArgs) (dump.MonikerResultsPage, error) {
	return dump.MonikerResultsPage{}, nil
}
func (f *fakeReader) Close() error {
	f.closed.Store(true)
	return nil
}

func TestConnectionCacheWithConnectionOpensOnce(t *testing.T) {
	opens := 0
	cc := NewConnectionCache(2, func(filename string) (dump.Reader, error) {
		opens++
		return &fakeReader{}, nil
	}, nil)

	for i := 0; i < 3; i++ {
		err := cc.WithConnection("a.dump", func(r dump.Reader) error { return nil })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if opens != 1 {
		t.Fatalf("expected the factory to run once across repeated borrows, got %d", opens)
	}
}

func TestConnectionCacheWithConnectionHitReportsMissThenHit(t *testing.T) {
	cc := NewConnectionCache(2, func(filename string) (dump.Reader, error) {
		return &fakeReader{}, nil
	}, nil)

	hit, err := cc.WithConnectionHit("a.dump", func(r dump.Reader) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hit {
		t.Fatalf("expected the first open to be a miss")
	}

	hit, err = cc.WithConnectionHit("a.dump", func(r dump.Reader) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hit {
		t.Fatalf("expected the second open to be a hit")
	}
}

func TestConnectionCacheDefersCloseUntilUnpinned(t *testing.T) {
	var reader *fakeReader
	cc := NewConnectionCache(1, func(filename string) (dump.Reader, error) {
		reader = &fakeReader{}
		return reader, nil
	}, nil)

	closedDuringBorrow := false
	err := cc.WithConnection("a.dump", func(r dump.Reader) error {
		// force eviction of the single-capacity cache while the borrow is active
		cc.Remove("a.dump")
		closedDuringBorrow = reader.closed.Load()
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closedDuringBorrow {
		t.Fatalf("connection must not close while a borrow is in flight")
	}
	if !reader.closed.Load() {
		t.Fatalf("connection must close once the borrow completes and the entry is evicted")
	}
}

func TestConnectionCachePropagatesFactoryError(t *testing.T) {
	boom := errors.New("boom")
	cc := NewConnectionCache(1, func(filename string) (dump.Reader, error) {
		return nil, boom
	}, nil)

	err := cc.WithConnection("a.dump", func(r dump.Reader) error { return nil })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestDocumentCacheGetOrLoad(t *testing.T) {
	dc := NewDocumentCache(4)
	loads := 0
	key := DocumentKey{DumpID: 1, Path: "a.ts"}

	for i := 0; i < 2; i++ {
		doc, err := dc.GetOrLoad(key, func() (*dump.Document, error) {
			loads++
			return &dump.Document{Path: "a.ts"}, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.Path != "a.ts" {
			t.Fatalf("unexpected document: %+v", doc)
		}
	}

	if loads != 1 {
		t.Fatalf("expected a single decode across repeated lookups, got %d", loads)
	}
}

func TestDocumentCacheInvalidate(t *testing.T) {
	dc := NewDocumentCache(4)
	key := DocumentKey{DumpID: 1, Path: "a.ts"}
	loads := 0
	load := func() (*dump.Document, error) {
		loads++
		return &dump.Document{Path: "a.ts"}, nil
	}

	if _, err := dc.GetOrLoad(key, load); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dc.Invalidate(1)
	if _, err := dc.GetOrLoad(key, load); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loads != 2 {
		t.Fatalf("expected invalidation to force a re-decode, got %d loads", loads)
	}
}

func TestDocumentCacheInvalidateLeavesOtherDumpsAlone(t *testing.T) {
	dc := NewDocumentCache(4)
	keyA := DocumentKey{DumpID: 1, Path: "a.ts"}
	keyB := DocumentKey{DumpID: 2, Path: "a.ts"}
	loadsB := 0

	if _, err := dc.GetOrLoad(keyA, func() (*dump.Document, error) { return &dump.Document{Path: "a.ts"}, nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := dc.GetOrLoad(keyB, func() (*dump.Document, error) {
		loadsB++
		return &dump.Document{Path: "a.ts"}, nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dc.Invalidate(1)

	if _, err := dc.GetOrLoad(keyB, func() (*dump.Document, error) {
		loadsB++
		return &dump.Document{Path: "a.ts"}, nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loadsB != 1 {
		t.Fatalf("expected invalidating dump 1 to leave dump 2's entry cached, got %d loads", loadsB)
	}
}

func TestResultChunkCacheGetOrLoad(t *testing.T) {
	rc := NewResultChunkCache(4)
	key := ResultChunkKey{DumpID: 1, ChunkID: 3}

	chunk, err := rc.GetOrLoad(key, func() (*dump.ResultChunk, error) {
		return &dump.ResultChunk{ID: 3}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunk.ID != 3 {
		t.Fatalf("unexpected chunk: %+v", chunk)
	}
}

func TestResultChunkCacheInvalidate(t *testing.T) {
	rc := NewResultChunkCache(4)
	key := ResultChunkKey{DumpID: 1, ChunkID: 3}
	loads := 0
	load := func() (*dump.ResultChunk, error) {
		loads++
		return &dump.ResultChunk{ID: 3}, nil
	}

	if _, err := rc.GetOrLoad(key, load); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rc.Invalidate(1)
	if _, err := rc.GetOrLoad(key, load); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loads != 2 {
		t.Fatalf("expected invalidation to force a re-decode, got %d loads", loads)
	}
}

// TestConnectionCacheEvictionInvalidatesDocumentsAndChunks exercises
// Invariant 4 (spec §3: "closing the connection invalidates document and
// result-chunk cache entries for that dump id") at the level a real
// runtime wires it: a ConnectionCache eviction must trigger a caller's
// onEvicted hook, which a real caller uses to invalidate the document and
// result-chunk caches for that dump.
func TestConnectionCacheEvictionInvalidatesDocumentsAndChunks(t *testing.T) {
	docs := NewDocumentCache(4)
	chunks := NewResultChunkCache(4)
	docKey := DocumentKey{DumpID: 1, Path: "a.ts"}
	chunkKey := ResultChunkKey{DumpID: 1, ChunkID: 0}

	docLoads, chunkLoads := 0, 0
	loadDoc := func() (*dump.Document, error) {
		docLoads++
		return &dump.Document{Path: "a.ts"}, nil
	}
	loadChunk := func() (*dump.ResultChunk, error) {
		chunkLoads++
		return &dump.ResultChunk{ID: 0}, nil
	}

	if _, err := docs.GetOrLoad(docKey, loadDoc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := chunks.GetOrLoad(chunkKey, loadChunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	onEvicted := func(filename string) {
		docs.Invalidate(1)
		chunks.Invalidate(1)
	}
	cc := NewConnectionCache(1, func(filename string) (dump.Reader, error) {
		return &fakeReader{}, nil
	}, onEvicted)

	if err := cc.WithConnection("a.dump", func(r dump.Reader) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cc.Remove("a.dump")

	if _, err := docs.GetOrLoad(docKey, loadDoc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := chunks.GetOrLoad(chunkKey, loadChunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if docLoads != 2 {
		t.Fatalf("expected closing the connection to force a document re-decode, got %d loads", docLoads)
	}
	if chunkLoads != 2 {
		t.Fatalf("expected closing the connection to force a result-chunk re-decode, got %d loads", chunkLoads)
	}
}
