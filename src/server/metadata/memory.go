package metadata

import (
	"context"
	"sort"
	"strings"
	"sync"

	"codeintel/src/internal/types"
)

type dependencyKey struct {
	scheme     string
	identifier string
	name       string
	version    string
}

// MemoryStore is an in-memory Store, useful for tests and as a worked
// example of the contract; a production deployment supplies its own
// database-backed Store (spec §1, §6).
type MemoryStore struct {
	mu           sync.RWMutex
	dumps        map[int64]types.Dump
	order        []int64 // insertion order, used as the commit-distance proxy
	dependencies map[dependencyKey][]int64
	packages     map[dependencyKey]int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		dumps:        make(map[int64]types.Dump),
		dependencies: make(map[dependencyKey][]int64),
		packages:     make(map[dependencyKey]int64),
	}
}

// AddDump registers a dump. Dumps are returned by FindClosestDumps in the
// order they were added, nearest (first-added) first — the reference
// store's stand-in for true commit-distance ordering.
func (m *MemoryStore) AddDump(d types.Dump) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dumps[d.ID] = d
	m.order = append(m.order, d.ID)
}

// AddDependency records that dumpID depends on the package named by
// (scheme, identifier, name, version), making it discoverable via
// GetReferences / GetSameRepoRemoteReferences for monikers with that
// coordinate.
func (m *MemoryStore) AddDependency(dumpID int64, scheme, identifier, name, version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := dependencyKey{scheme, identifier, name, version}
	m.dependencies[key] = append(m.dependencies[key], dumpID)
}

// SetPackage records that the dump dumpID is the canonical declaration of
// package (scheme, name, version).
func (m *MemoryStore) SetPackage(dumpID int64, scheme, name, version string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[dependencyKey{scheme: scheme, name: name, version: version}] = dumpID
}

func (m *MemoryStore) FindClosestDumps(ctx context.Context, repositoryID int64, commit, path string) ([]types.Dump, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.Dump
	for _, id := range m.order {
		d, ok := m.dumps[id]
		if !ok || d.RepositoryID != repositoryID || d.State != types.DumpStateCompleted {
			continue
		}
		if !strings.HasPrefix(path, d.Root) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *MemoryStore) GetDumpByID(ctx context.Context, id int64) (types.Dump, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dumps[id]
	return d, ok, nil
}

func (m *MemoryStore) GetPackage(ctx context.Context, scheme, name, version string) (PackageResult, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.packages[dependencyKey{scheme: scheme, name: name, version: version}]
	if !ok {
		return PackageResult{}, false, nil
	}
	d, ok := m.dumps[id]
	if !ok {
		return PackageResult{}, false, nil
	}
	return PackageResult{Dump: d}, true, nil
}

func (m *MemoryStore) GetReferences(ctx context.Context, params ReferencesParams) (ReferencesResult, error) {
	return m.references(params, func(d types.Dump) bool { return d.RepositoryID != params.RepositoryID })
}

func (m *MemoryStore) GetSameRepoRemoteReferences(ctx context.Context, params ReferencesParams) (ReferencesResult, error) {
	return m.references(params, func(d types.Dump) bool { return d.RepositoryID == params.RepositoryID })
}

func (m *MemoryStore) references(params ReferencesParams, scope func(types.Dump) bool) (ReferencesResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := dependencyKey{scheme: params.Scheme, identifier: params.Identifier, name: params.Name, version: params.Version}
	ids := m.dependencies[key]

	var matching []types.Dump
	for _, id := range ids {
		d, ok := m.dumps[id]
		if !ok || d.State != types.DumpStateCompleted || !scope(d) {
			continue
		}
		matching = append(matching, d)
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].ID < matching[j].ID })

	total := len(matching)
	skip := params.Offset
	if skip > total {
		skip = total
	}
	end := total
	if params.Limit > 0 && skip+params.Limit < end {
		end = skip + params.Limit
	}

	page := matching[skip:end]
	return ReferencesResult{Dumps: page, TotalCount: total, NewOffset: skip + len(page)}, nil
}
