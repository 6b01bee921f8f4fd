// Package dump defines the per-dump reader contract and the decoded
// on-disk shapes it returns: documents, ranges, and result chunks. A dump
// is a read-only index bundle produced by an external ingestion pipeline;
// this package never writes one.
package dump

import (
	"sort"

	"codeintel/src/internal/types"
)

// RangeID identifies a Range within a Document's Ranges.
type RangeID int32

// ResultID identifies a row in a ResultChunk: a definition, reference, or
// hover result attached to one or more ranges.
type ResultID int32

// Range is a dump's on-disk range: a span plus the ids it carries forward
// into the moniker and result-chunk graph. Immutable once loaded
// (spec §3).
type Range struct {
	ID                 RangeID       `json:"id"`
	Span               types.Range   `json:"span"`
	MonikerIDs         []string      `json:"monikerIds,omitempty"`
	DefinitionResultID ResultID      `json:"definitionResultId,omitempty"`
	ReferenceResultID  ResultID      `json:"referenceResultId,omitempty"`
	HoverResultID      ResultID      `json:"hoverResultId,omitempty"`
	HasDefinitionResult bool         `json:"hasDefinitionResult,omitempty"`
	HasReferenceResult  bool         `json:"hasReferenceResult,omitempty"`
	HasHoverResult      bool         `json:"hasHoverResult,omitempty"`
}

// Document is a dump's on-disk record for a single path: its ordered
// ranges, and the moniker/package-information tables they refer into.
// Loaded lazily, cached (spec §3).
type Document struct {
	Path                string                               `json:"path"`
	Ranges              []Range                              `json:"ranges"`
	Monikers            map[string]types.Moniker              `json:"monikers"`
	PackageInformation  map[string]types.PackageInformation   `json:"packageInformation"`
	HoverText           map[ResultID]string                   `json:"hoverText,omitempty"`
}

// RangesCoveringPosition returns every range in the document that covers p,
// ordered innermost first (spec §4.2 "Numeric semantics").
func (d *Document) RangesCoveringPosition(p types.Position) []Range {
	var covering []Range
	for _, r := range d.Ranges {
		if r.Span.Covers(p) {
			covering = append(covering, r)
		}
	}
	sort.SliceStable(covering, func(i, j int) bool {
		return types.CompareInnermostFirst(covering[i].Span, covering[j].Span) < 0
	})
	return covering
}

// MonikersFor resolves a range's moniker ids into Moniker values, skipping
// any id the document does not declare (logged by the caller as an
// internal invariant violation rather than failing the whole lookup).
func (d *Document) MonikersFor(r Range) ([]types.Moniker, []string) {
	out := make([]types.Moniker, 0, len(r.MonikerIDs))
	var missing []string
	for _, id := range r.MonikerIDs {
		m, ok := d.Monikers[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, m)
	}
	return out, missing
}

// ResolveHover returns the hover text of the innermost range covering p
// that carries a hover result, or nil if none does (spec §4.2 "Hover").
func ResolveHover(d *Document, p types.Position) *HoverResult {
	for _, r := range d.RangesCoveringPosition(p) {
		if !r.HasHoverResult {
			continue
		}
		text, ok := d.HoverText[r.HoverResultID]
		if !ok {
			continue
		}
		return &HoverResult{Text: text, Range: r.Span}
	}
	return nil
}

// ResultChunkEntry is one row of a ResultChunk: the set of (documentPath,
// rangeId) pairs a result id dereferences to.
type ResultChunkEntry struct {
	DocumentPath string  `json:"documentPath"`
	RangeID      RangeID `json:"rangeId"`
}

// ResultChunk is a paged table keyed by result id (spec GLOSSARY). Loaded
// lazily, cached.
type ResultChunk struct {
	ID      int32                          `json:"id"`
	Entries map[ResultID][]ResultChunkEntry `json:"entries"`
}
