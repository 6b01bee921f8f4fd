package metadata

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"codeintel/src/internal/common"
	"codeintel/src/internal/types"
)

// Manifest is a YAML description of a MemoryStore's contents: the dumps a
// local run should know about, plus the dependency/package rows the
// references and definitions pipelines cross-dump-resolve through. It
// stands in for the database rows a production metadata store would hold
// (spec §1, §6), grounded on the teacher's own LoadConfig/SaveConfig
// YAML-file plumbing applied here to a second configuration surface.
type Manifest struct {
	Dumps        []ManifestDump       `yaml:"dumps"`
	Dependencies []ManifestDependency `yaml:"dependencies,omitempty"`
	Packages     []ManifestPackage    `yaml:"packages,omitempty"`
}

// ManifestDump is one dump record: its identity, the repository/commit/root
// it was produced from, and the on-disk filename (relative to the
// configured dump directory) the ConnectionCache opens it under.
type ManifestDump struct {
	ID           int64  `yaml:"id"`
	RepositoryID int64  `yaml:"repositoryId"`
	Commit       string `yaml:"commit"`
	Root         string `yaml:"root"`
	Filename     string `yaml:"filename"`
	State        string `yaml:"state,omitempty"` // completed (default), processing, errored, deleted
}

// ManifestDependency records that a dump depends on a package, making it
// discoverable via GetReferences / GetSameRepoRemoteReferences.
type ManifestDependency struct {
	DumpID     int64  `yaml:"dumpId"`
	Scheme     string `yaml:"scheme"`
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
}

// ManifestPackage records that a dump is the canonical declaration of a
// package, making it discoverable via GetPackage / lookupMoniker.
type ManifestPackage struct {
	DumpID  int64  `yaml:"dumpId"`
	Scheme  string `yaml:"scheme"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ParseDumpState parses a manifest state string into a types.DumpState,
// defaulting an empty string to Completed.
func ParseDumpState(s string) (types.DumpState, error) {
	return parseState(s)
}

func parseState(s string) (types.DumpState, error) {
	switch s {
	case "", "completed":
		return types.DumpStateCompleted, nil
	case "processing":
		return types.DumpStateProcessing, nil
	case "errored":
		return types.DumpStateErrored, nil
	case "deleted":
		return types.DumpStateDeleted, nil
	default:
		return 0, fmt.Errorf("unknown dump state %q", s)
	}
}

// ReadManifestFile reads and parses a YAML manifest file without building a
// MemoryStore from it — used by callers (the CLI's connection factory) that
// need to look dumps up by Filename, which LoadManifest's MemoryStore does
// not index on.
func ReadManifestFile(path string) (Manifest, error) {
	data, err := common.SafeReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return manifest, nil
}

// LoadManifest reads a YAML manifest file and builds a MemoryStore from it.
func LoadManifest(path string) (*MemoryStore, error) {
	manifest, err := ReadManifestFile(path)
	if err != nil {
		return nil, err
	}

	store := NewMemoryStore()
	for _, d := range manifest.Dumps {
		state, err := parseState(d.State)
		if err != nil {
			return nil, fmt.Errorf("dump %d: %w", d.ID, err)
		}
		store.AddDump(types.Dump{
			ID:           d.ID,
			RepositoryID: d.RepositoryID,
			Commit:       d.Commit,
			Root:         d.Root,
			Filename:     d.Filename,
			State:        state,
		})
	}
	for _, dep := range manifest.Dependencies {
		store.AddDependency(dep.DumpID, dep.Scheme, dep.Identifier, dep.Name, dep.Version)
	}
	for _, pkg := range manifest.Packages {
		store.SetPackage(pkg.DumpID, pkg.Scheme, pkg.Name, pkg.Version)
	}

	return store, nil
}
