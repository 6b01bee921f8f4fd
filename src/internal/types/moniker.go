package types

import "sort"

// MonikerKind classifies how a moniker relates to the symbol it names.
type MonikerKind int32

const (
	MonikerKindLocal MonikerKind = iota
	MonikerKindImport
	MonikerKindExport
)

func (k MonikerKind) String() string {
	switch k {
	case MonikerKindImport:
		return "import"
	case MonikerKindExport:
		return "export"
	default:
		return "local"
	}
}

// rank gives the priority order sortMonikers depends on: import
// before export before local (spec §4.3).
func (k MonikerKind) rank() int {
	switch k {
	case MonikerKindImport:
		return 0
	case MonikerKindExport:
		return 1
	default:
		return 2
	}
}

// Moniker is a named cross-file/cross-repo symbol handle, immutable once
// loaded from a dump's document.
type Moniker struct {
	Kind                 MonikerKind `json:"kind"`
	Scheme                string      `json:"scheme"`
	Identifier            string      `json:"identifier"`
	PackageInformationID  string      `json:"packageInformationId,omitempty"`
}

// PackageInformation is the (name, version) metadata tying a moniker to a
// dependency. Scheme is carried alongside purely for logging/trace tagging
// (spec §3 supplement) — it never participates in the dedup key.
type PackageInformation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Scheme  string `json:"scheme,omitempty"`
}

// Model selects which table monikerResults scans: the definitions table or
// the references table. A tagged selector, not a runtime type lookup
// (spec §9 "Dynamic class references").
type Model int

const (
	DefinitionModel Model = iota
	ReferenceModel
)

func (m Model) String() string {
	if m == ReferenceModel {
		return "reference"
	}
	return "definition"
}

// schemePreference is the fixed, stable scheme preference table sortMonikers
// consults within a kind. Implementer-defined but stable (spec §4.3); unlisted
// schemes fall back to lexicographic order, placed after every listed scheme.
var schemePreference = map[string]int{
	"scip-typescript": 0,
	"scip-go":         1,
	"scip-python":     2,
	"scip-java":       3,
	"npm":             4,
	"gomod":           5,
	"pypi":            6,
	"maven":           7,
}

func schemeRank(scheme string) int {
	if rank, ok := schemePreference[scheme]; ok {
		return rank
	}
	return len(schemePreference)
}

// SortMonikers imposes a deterministic total order over ms: kind rank first
// (import, export, local), then scheme preference, then lexicographic scheme
// and identifier as a final tie-break. It is idempotent: sorting an
// already-sorted slice is a no-op (spec §8 invariant 4).
func SortMonikers(ms []Moniker) []Moniker {
	out := make([]Moniker, len(ms))
	copy(out, ms)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ra, rb := a.Kind.rank(), b.Kind.rank(); ra != rb {
			return ra < rb
		}
		if ra, rb := schemeRank(a.Scheme), schemeRank(b.Scheme); ra != rb {
			return ra < rb
		}
		if a.Scheme != b.Scheme {
			return a.Scheme < b.Scheme
		}
		return a.Identifier < b.Identifier
	})
	return out
}
