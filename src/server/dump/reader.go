package dump

import (
	"context"

	"codeintel/src/internal/types"
)

// PageArgs bounds a monikerResults lookup: skip the first Skip rows, return
// at most Take (0 means no limit).
type PageArgs struct {
	Skip int
	Take int
}

// MonikerResultsPage is the result of a monikerResults table scan: the page
// of locations found and the total row count backing it, before Skip and
// Take are applied.
type MonikerResultsPage struct {
	Locations []types.InternalLocation
	Count     int
}

// RangeLookup is the result of getRangeByPosition: the containing document
// plus every range covering the query position, innermost first.
type RangeLookup struct {
	Document *Document
	Ranges   []Range
}

// HoverResult is the text/range pair hover returns, or nil if no range
// covering the position carries a hover result.
type HoverResult struct {
	Text  string
	Range types.Range
}

// Reader is the per-dump "Database" contract: a read-only view over one
// dump's documents, result chunks, and definition/reference tables
// (spec §4.2). All operations accept a context for cancellation and
// tracing; the core never retries a failed call.
type Reader interface {
	// Exists reports whether the dump contains a Document at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Definitions walks the ranges covering position innermost first and
	// dereferences the definition result of the first one whose result
	// yields any location; ranges without a definition result are skipped.
	Definitions(ctx context.Context, path string, position types.Position) ([]types.InternalLocation, error)

	// References walks the ranges covering position innermost first and,
	// for the first one that yields any location, dereferences its
	// reference result unioned with any definition result reachable from
	// the same range (a reference query must also surface the defining
	// site).
	References(ctx context.Context, path string, position types.Position) ([]types.InternalLocation, error)

	// Hover returns the hover text of the innermost range covering
	// position that carries a hover result, or nil if none does.
	Hover(ctx context.Context, path string, position types.Position) (*HoverResult, error)

	// GetRangeByPosition returns every range covering position, innermost
	// first, along with the Document they belong to.
	GetRangeByPosition(ctx context.Context, path string, position types.Position) (*RangeLookup, error)

	// MonikerResults scans the definitions or references table (selected by
	// model) for rows matching moniker's (scheme, identifier), paginated by
	// page.
	MonikerResults(ctx context.Context, model types.Model, moniker types.Moniker, page PageArgs) (MonikerResultsPage, error)

	// Close releases any resources the reader holds. Safe to call once
	// the owning ConnectionCache entry is evicted and unborrowed.
	Close() error
}
