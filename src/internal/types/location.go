package types

import "strconv"

// DumpState mirrors the lifecycle of a dump record in the metadata store
// (spec §3 supplement, grounded on the original ingestion pipeline's dump
// lifecycle). findClosestDumps only ever returns Completed dumps; getDumpById
// may surface any state and leaves the decision to the caller.
type DumpState int32

const (
	DumpStateCompleted DumpState = iota
	DumpStateProcessing
	DumpStateErrored
	DumpStateDeleted
)

func (s DumpState) String() string {
	switch s {
	case DumpStateProcessing:
		return "processing"
	case DumpStateErrored:
		return "errored"
	case DumpStateDeleted:
		return "deleted"
	default:
		return "completed"
	}
}

// Dump is a read-only index bundle for a (repository, commit, root).
type Dump struct {
	ID           int64     `json:"id"`
	RepositoryID int64     `json:"repositoryId"`
	Commit       string    `json:"commit"`
	Root         string    `json:"root"`
	Filename     string    `json:"filename"`
	State        DumpState `json:"state"`
}

// InternalLocation is a location produced by a query: the dump it came
// from, a repo-relative path, and a range. Invariant 1 (spec §3): the
// transform between dump-relative and repo-relative paths is
// repo = dump.Root + stored, and the inverse only applies when
// stored.startsWith(dump.Root).
type InternalLocation struct {
	Dump  Dump  `json:"dump"`
	Path  string `json:"path"`
	Range Range  `json:"range"`
}

// Equal implements the value-equality dedup key of invariant 3: (dump.id,
// path, range).
func (l InternalLocation) Equal(other InternalLocation) bool {
	return l.Dump.ID == other.Dump.ID && l.Path == other.Path && l.Range == other.Range
}

// PathToDump converts a repo-relative path into a dump-relative path for a
// dump rooted at root. The caller must check the path starts with root
// before relying on the result (invariant 1's "inverse only when
// stored.startsWith(dump.root)").
func PathToDump(root, repoRelativePath string) (string, bool) {
	if len(repoRelativePath) < len(root) || repoRelativePath[:len(root)] != root {
		return "", false
	}
	return repoRelativePath[len(root):], true
}

// PathFromDump converts a dump-relative (on-disk) path back to a
// repo-relative path: repo = dump.root + stored.
func PathFromDump(root, dumpRelativePath string) string {
	return root + dumpRelativePath
}

// DeduplicateLocations removes value-equality duplicates from locs,
// preserving first-seen order (spec §8 invariant 2: dedup(L) == L, no
// adjacent or otherwise duplicates on value equality).
func DeduplicateLocations(locs []InternalLocation) []InternalLocation {
	seen := make(map[string]struct{}, len(locs))
	out := make([]InternalLocation, 0, len(locs))
	for _, l := range locs {
		key := dedupKey(l)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

func dedupKey(l InternalLocation) string {
	itoa := strconv.FormatInt
	return itoa(l.Dump.ID, 10) + "\x00" + l.Path + "\x00" +
		itoa(int64(l.Range.Start.Line), 10) + ":" + itoa(int64(l.Range.Start.Character), 10) + "\x00" +
		itoa(int64(l.Range.End.Line), 10) + ":" + itoa(int64(l.Range.End.Character), 10)
}
