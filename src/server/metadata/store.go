// Package metadata defines the thin interface the core consumes over an
// external relational store of dump records and package/dependency rows
// (spec §4 "Metadata/Dependency adapter"). The real implementation — a
// database-backed store — is an external collaborator (spec §1); this
// package provides only the contract and an in-memory reference
// implementation for tests.
package metadata

import (
	"context"

	"codeintel/src/internal/types"
)

// ReferencesParams scopes a getReferences / getSameRepoRemoteReferences
// lookup to a moniker's (scheme, identifier) and its package coordinates.
type ReferencesParams struct {
	RepositoryID int64
	Commit       string
	Scheme       string
	Identifier   string
	Name         string
	Version      string
	Limit        int
	Offset       int
}

// ReferencesResult is a page of dumps that depend on the moniker named by
// the ReferencesParams that produced it.
type ReferencesResult struct {
	Dumps      []types.Dump
	TotalCount int
	NewOffset  int
}

// PackageResult is the dump that declares a given (scheme, name, version)
// package, if any.
type PackageResult struct {
	Dump types.Dump
}

// Store is the metadata/dependency adapter the backend resolver is
// constructed with (spec §6).
type Store interface {
	// FindClosestDumps returns dumps for repositoryID ordered by commit
	// distance (nearest first) whose Root is a path-prefix of path.
	// Only Completed dumps are returned.
	FindClosestDumps(ctx context.Context, repositoryID int64, commit, path string) ([]types.Dump, error)

	// GetDumpByID returns the dump with id, in any state, or ok=false if
	// no such dump exists.
	GetDumpByID(ctx context.Context, id int64) (types.Dump, bool, error)

	// GetPackage resolves a (scheme, name, version) package to the dump
	// that declares it, or ok=false if none does.
	GetPackage(ctx context.Context, scheme, name, version string) (PackageResult, bool, error)

	// GetReferences returns dumps outside params.RepositoryID that depend
	// on params's moniker coordinates.
	GetReferences(ctx context.Context, params ReferencesParams) (ReferencesResult, error)

	// GetSameRepoRemoteReferences returns dumps within params.RepositoryID
	// that depend on params's moniker coordinates. The querying dump is not
	// excluded here; the backend skips it when it walks the page.
	GetSameRepoRemoteReferences(ctx context.Context, params ReferencesParams) (ReferencesResult, error)
}
