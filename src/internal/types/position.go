// Package types holds the data model shared by the dump reader, the cache
// layer, and the backend resolver: positions, ranges, monikers, and the
// locations produced by a query.
package types

import "fmt"

// Position is a zero-based line/character pair, following LSP convention.
type Position struct {
	Line      int32 `json:"line"`
	Character int32 `json:"character"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Less reports whether p sorts strictly before q in (line, character) order.
func (p Position) Less(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Character < q.Character
}

// Range is a half-open [Start, End) span of positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Covers reports whether p falls inside r under [start, end) semantics:
// start inclusive, end exclusive, compared lexicographically on (line, character).
func (r Range) Covers(p Position) bool {
	return !p.Less(r.Start) && p.Less(r.End)
}

// Span returns a size measure of r (line delta weighted by 1,000,000 plus
// character delta), used to order overlapping ranges so the innermost one
// sorts first.
func (r Range) Span() int64 {
	lines := int64(r.End.Line - r.Start.Line)
	chars := int64(r.End.Character - r.Start.Character)
	return lines*1_000_000 + chars
}

// CompareInnermostFirst orders a and b so that the smaller (innermost)
// range comes first; ties are broken by start position for determinism.
func CompareInnermostFirst(a, b Range) int {
	if sa, sb := a.Span(), b.Span(); sa != sb {
		if sa < sb {
			return -1
		}
		return 1
	}
	if a.Start.Less(b.Start) {
		return -1
	}
	if b.Start.Less(a.Start) {
		return 1
	}
	return 0
}
