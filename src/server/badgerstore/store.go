// Package badgerstore is the one concrete dump.Reader implementation
// provided for completeness and tests: a dump's documents, result chunks,
// and definition/reference tables persisted as namespaced keys inside a
// single badger.DB opened read-only, standing in for "typically SQLite"
// (spec §6). Values are encoding/json-encoded records, the same plumbing
// choice the teacher's cache layer makes for its own in-memory entries,
// applied here to persisted dump records instead.
package badgerstore

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"codeintel/src/internal/common"
	"codeintel/src/internal/errors"
	"codeintel/src/internal/types"
	"codeintel/src/server/cache"
	"codeintel/src/server/dump"
)

const (
	keyPrefixDocument   = "doc:"
	keyPrefixChunk      = "chunk:"
	keyPrefixDefinition = "defidx:"
	keyPrefixReference  = "refidx:"
)

// Store is a dump.Reader backed by a read-only badger.DB, one per dump.
type Store struct {
	db     *badger.DB
	info   types.Dump
	docs   *cache.DocumentCache
	chunks *cache.ResultChunkCache
}

// Open opens the dump's .badger directory read-only. docs and chunks are
// the process-wide caches this store decodes through; passing nil for
// either gives this store a private cache with no capacity bound (used by
// tests).
func Open(path string, info types.Dump, docs *cache.DocumentCache, chunks *cache.ResultChunkCache) (*Store, error) {
	opts := badger.DefaultOptions(path).WithReadOnly(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.NewStoreUnavailableError("badger", err)
	}
	if docs == nil {
		docs = cache.NewDocumentCache(0)
	}
	if chunks == nil {
		chunks = cache.NewResultChunkCache(0)
	}
	return &Store{db: db, info: info, docs: docs, chunks: chunks}, nil
}

// Close releases the underlying badger.DB.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getRaw(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreUnavailableError("badger", err)
	}
	return value, nil
}

func (s *Store) loadDocument(path string) (*dump.Document, error) {
	return s.docs.GetOrLoad(cache.DocumentKey{DumpID: s.info.ID, Path: path}, func() (*dump.Document, error) {
		raw, err := s.getRaw(keyPrefixDocument + path)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, nil
		}
		var doc dump.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, errors.NewInternalError("document-decode", err)
		}
		return &doc, nil
	})
}

func (s *Store) loadChunk(id dump.ResultID) (*dump.ResultChunk, error) {
	return s.chunks.GetOrLoad(cache.ResultChunkKey{DumpID: s.info.ID, ChunkID: int32(id)}, func() (*dump.ResultChunk, error) {
		raw, err := s.getRaw(fmt.Sprintf("%s%d", keyPrefixChunk, id))
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, nil
		}
		var chunk dump.ResultChunk
		if err := json.Unmarshal(raw, &chunk); err != nil {
			return nil, errors.NewInternalError("result-chunk-decode", err)
		}
		return &chunk, nil
	})
}

// Exists reports whether the dump contains a Document at path.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	doc, err := s.loadDocument(path)
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}

// resolveEntries dereferences a ResultChunk's entries for id into
// InternalLocations, looking up the target range's span in its owning
// document. Entries referencing a document or range the dump never
// declared are skipped and logged, not fatal (spec §9 "Design Notes").
func (s *Store) resolveEntries(id dump.ResultID, chunk *dump.ResultChunk) ([]types.InternalLocation, error) {
	if chunk == nil {
		return nil, nil
	}
	entries := chunk.Entries[id]
	out := make([]types.InternalLocation, 0, len(entries))
	for _, e := range entries {
		targetDoc, err := s.loadDocument(e.DocumentPath)
		if err != nil {
			return nil, err
		}
		if targetDoc == nil {
			common.StoreLogger.Warn("result chunk entry references unknown document %q in dump %d", e.DocumentPath, s.info.ID)
			continue
		}
		span, ok := rangeSpan(targetDoc, e.RangeID)
		if !ok {
			common.StoreLogger.Warn("result chunk entry references unknown range %d in document %q", e.RangeID, e.DocumentPath)
			continue
		}
		out = append(out, types.InternalLocation{Dump: s.info, Path: e.DocumentPath, Range: span})
	}
	return out, nil
}

func rangeSpan(doc *dump.Document, id dump.RangeID) (types.Range, bool) {
	for _, r := range doc.Ranges {
		if r.ID == id {
			return r.Span, true
		}
	}
	return types.Range{}, false
}

// Definitions implements dump.Reader.
func (s *Store) Definitions(ctx context.Context, path string, position types.Position) ([]types.InternalLocation, error) {
	doc, err := s.loadDocument(path)
	if err != nil || doc == nil {
		return nil, err
	}
	for _, r := range doc.RangesCoveringPosition(position) {
		if !r.HasDefinitionResult {
			continue
		}
		chunk, err := s.loadChunk(r.DefinitionResultID)
		if err != nil {
			return nil, err
		}
		locs, err := s.resolveEntries(r.DefinitionResultID, chunk)
		if err != nil {
			return nil, err
		}
		if len(locs) > 0 {
			return locs, nil
		}
	}
	return nil, nil
}

// References implements dump.Reader: walking covering ranges innermost
// first, it returns the reference result of the first range whose
// reference and definition results resolve to any location, unioned with
// the definition result reachable from that same range (spec §4.2: "a
// reference query must include the defining site").
func (s *Store) References(ctx context.Context, path string, position types.Position) ([]types.InternalLocation, error) {
	doc, err := s.loadDocument(path)
	if err != nil || doc == nil {
		return nil, err
	}
	var out []types.InternalLocation
	for _, r := range doc.RangesCoveringPosition(position) {
		if r.HasReferenceResult {
			chunk, err := s.loadChunk(r.ReferenceResultID)
			if err != nil {
				return nil, err
			}
			locs, err := s.resolveEntries(r.ReferenceResultID, chunk)
			if err != nil {
				return nil, err
			}
			out = append(out, locs...)
		}
		if r.HasDefinitionResult {
			chunk, err := s.loadChunk(r.DefinitionResultID)
			if err != nil {
				return nil, err
			}
			locs, err := s.resolveEntries(r.DefinitionResultID, chunk)
			if err != nil {
				return nil, err
			}
			out = append(out, locs...)
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return out, nil
}

// Hover implements dump.Reader.
func (s *Store) Hover(ctx context.Context, path string, position types.Position) (*dump.HoverResult, error) {
	doc, err := s.loadDocument(path)
	if err != nil || doc == nil {
		return nil, err
	}
	return dump.ResolveHover(doc, position), nil
}

// GetRangeByPosition implements dump.Reader.
func (s *Store) GetRangeByPosition(ctx context.Context, path string, position types.Position) (*dump.RangeLookup, error) {
	doc, err := s.loadDocument(path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return &dump.RangeLookup{Document: doc, Ranges: doc.RangesCoveringPosition(position)}, nil
}

// MonikerResults implements dump.Reader: a table lookup by (scheme,
// identifier) against the definitions or references index, paginated.
func (s *Store) MonikerResults(ctx context.Context, model types.Model, moniker types.Moniker, page dump.PageArgs) (dump.MonikerResultsPage, error) {
	prefix := keyPrefixDefinition
	if model == types.ReferenceModel {
		prefix = keyPrefixReference
	}
	key := fmt.Sprintf("%s%s\x00%s", prefix, moniker.Scheme, moniker.Identifier)

	raw, err := s.getRaw(key)
	if err != nil {
		return dump.MonikerResultsPage{}, err
	}
	if raw == nil {
		return dump.MonikerResultsPage{}, nil
	}

	var rows []dump.ResultChunkEntry
	if err := json.Unmarshal(raw, &rows); err != nil {
		return dump.MonikerResultsPage{}, errors.NewInternalError("moniker-index-decode", err)
	}

	total := len(rows)
	skip := page.Skip
	if skip > total {
		skip = total
	}
	end := total
	if page.Take > 0 && skip+page.Take < end {
		end = skip + page.Take
	}

	out := make([]types.InternalLocation, 0, end-skip)
	for _, row := range rows[skip:end] {
		targetDoc, err := s.loadDocument(row.DocumentPath)
		if err != nil {
			return dump.MonikerResultsPage{}, err
		}
		if targetDoc == nil {
			continue
		}
		span, ok := rangeSpan(targetDoc, row.RangeID)
		if !ok {
			continue
		}
		out = append(out, types.InternalLocation{Dump: s.info, Path: row.DocumentPath, Range: span})
	}

	return dump.MonikerResultsPage{Locations: out, Count: total}, nil
}
