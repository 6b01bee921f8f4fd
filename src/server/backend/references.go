package backend

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"codeintel/src/internal/common"
	"codeintel/src/internal/errors"
	"codeintel/src/internal/types"
	"codeintel/src/server/cursor"
	"codeintel/src/server/dump"
	"codeintel/src/server/metadata"
)

// referencePageLimit bounds each same-repo/remote-repo fan-out page (spec §4.6).
const referencePageLimit = 50

// ReferencesPage is one page of the references pipeline: the locations
// found so far, plus an opaque Cursor to fetch the next page (empty once
// the pagination state machine has terminated).
type ReferencesPage struct {
	Locations []types.InternalLocation
	Cursor    string
}

// References implements the references pipeline and its pagination state
// machine (spec §4.5, §4.6). An empty cursorToken starts a fresh query; a
// non-empty one resumes a prior one at the state it left off in.
func (b *Backend) References(ctx context.Context, coord Coordinates, position types.Position, cursorToken string) (ReferencesPage, Stats, error) {
	stats := newStatsCollector()

	if cursorToken != "" {
		page, err := b.referencesFromCursor(ctx, cursorToken, stats)
		return page, stats.Snapshot(), err
	}

	page, err := b.referencesInitial(ctx, coord, position, stats)
	return page, stats.Snapshot(), err
}

func (b *Backend) referencesFromCursor(ctx context.Context, token string, stats *statsCollector) (ReferencesPage, error) {
	c, err := cursor.Decode(token)
	if err != nil {
		return ReferencesPage{}, err
	}

	d, ok, err := b.metadata.GetDumpByID(ctx, c.DumpID)
	if err != nil {
		return ReferencesPage{}, err
	}
	if !ok {
		// DumpGone (spec §7): the dump a cursor points to no longer
		// exists. Treated as an empty page, not an error.
		return ReferencesPage{}, nil
	}

	locs, next, err := b.advancePagination(ctx, d.RepositoryID, c.DumpID, c, stats)
	if err != nil {
		return ReferencesPage{}, err
	}

	token2, err := encodeCursor(next)
	if err != nil {
		return ReferencesPage{}, err
	}
	// Paginated continuations return only the new page; the client merges
	// (spec §4.6 "Deduplication ... applied ... on the initial request").
	return ReferencesPage{Locations: locs, Cursor: token2}, nil
}

func (b *Backend) referencesInitial(ctx context.Context, coord Coordinates, position types.Position, stats *statsCollector) (ReferencesPage, error) {
	closest, dumpPath, found, err := b.closestDump(ctx, coord, stats)
	if err != nil {
		return ReferencesPage{}, err
	}
	if !found {
		return ReferencesPage{}, errors.NewNoDumpFoundError(coord.RepositoryID, coord.Commit, coord.Path)
	}

	local, err := b.localReferences(ctx, closest, dumpPath, position, stats)
	if err != nil {
		return ReferencesPage{}, err
	}
	locations := mapToRepoRelative(closest, local)

	lookup, err := b.getRangeByPosition(ctx, closest, dumpPath, position, stats)
	if err != nil {
		return ReferencesPage{}, err
	}
	if lookup == nil {
		return ReferencesPage{Locations: types.DeduplicateLocations(locations)}, nil
	}

	for _, r := range lookup.Ranges {
		monikers, missing := lookup.Document.MonikersFor(r)
		b.logMissingMonikers(closest, missing)
		sorted := types.SortMonikers(monikers)

		var rangeLocations []types.InternalLocation
		for _, m := range sorted {
			found, err := b.monikerResults(ctx, closest, m, types.ReferenceModel, dump.PageArgs{}, stats)
			if err != nil {
				return ReferencesPage{}, err
			}
			rangeLocations = append(rangeLocations, found...)
		}

		var initialCursor *cursor.ReferencePaginationCursor
		for _, m := range sorted {
			if m.Kind != types.MonikerKindImport {
				continue
			}
			pkg, ok := lookup.Document.PackageInformation[m.PackageInformationID]
			if !ok {
				continue
			}

			imported, err := b.lookupMoniker(ctx, lookup.Document, closest, m, types.ReferenceModel, stats)
			if err != nil {
				return ReferencesPage{}, err
			}
			rangeLocations = append(rangeLocations, imported...)

			initialCursor = &cursor.ReferencePaginationCursor{
				DumpID:         closest.ID,
				Scheme:         m.Scheme,
				Identifier:     m.Identifier,
				Name:           pkg.Name,
				PackageVersion: pkg.Version,
				Phase:          cursor.PhaseSameRepo,
				Offset:         0,
			}
			break
		}

		locations = append(locations, rangeLocations...)

		if initialCursor == nil {
			continue
		}

		// Processing stops at the first range/moniker that produced a
		// cursor (spec §4.5 step 4d): drive the state machine once and
		// return, regardless of ranges still unvisited.
		pageLocs, next, err := b.advancePagination(ctx, closest.RepositoryID, closest.ID, *initialCursor, stats)
		if err != nil {
			return ReferencesPage{}, err
		}
		locations = append(locations, pageLocs...)

		token, err := encodeCursor(next)
		if err != nil {
			return ReferencesPage{}, err
		}
		return ReferencesPage{Locations: types.DeduplicateLocations(locations), Cursor: token}, nil
	}

	return ReferencesPage{Locations: types.DeduplicateLocations(locations)}, nil
}

func (b *Backend) localReferences(ctx context.Context, d types.Dump, path string, position types.Position, stats *statsCollector) ([]types.InternalLocation, error) {
	var locs []types.InternalLocation
	hit, err := b.open(d, func(r dump.Reader) error {
		var err error
		locs, err = r.References(ctx, path, position)
		return err
	})
	if err != nil {
		return nil, err
	}
	recordOpen(stats, hit)
	return locs, nil
}

// maxPaginationHops bounds the skip-empty-page recursion below: a visited
// guard against metadata contents that keep producing a newCursor without
// ever advancing offset far enough to terminate (spec §9 "Cyclic graphs" /
// traversal guards, applied here to the pagination state machine rather
// than a next/prev result-set walk).
const maxPaginationHops = 1000

// advancePagination runs one phase of the pagination state machine
// (spec §4.6), recursing on the skip-empty-page rule: a phase transition
// that yields no locations but does produce a newCursor is not handed back
// to the client as an empty page.
func (b *Backend) advancePagination(ctx context.Context, repoID, excludeDumpID int64, c cursor.ReferencePaginationCursor, stats *statsCollector) ([]types.InternalLocation, *cursor.ReferencePaginationCursor, error) {
	return b.advancePaginationHop(ctx, repoID, excludeDumpID, c, stats, 0)
}

func (b *Backend) advancePaginationHop(ctx context.Context, repoID, excludeDumpID int64, c cursor.ReferencePaginationCursor, stats *statsCollector, hop int) ([]types.InternalLocation, *cursor.ReferencePaginationCursor, error) {
	if hop >= maxPaginationHops {
		b.logger.Warn("pagination state machine exceeded %d hops for moniker %s/%s, terminating", maxPaginationHops, c.Scheme, c.Identifier)
		return nil, nil, nil
	}

	params := metadata.ReferencesParams{
		RepositoryID: repoID,
		Scheme:       c.Scheme,
		Identifier:   c.Identifier,
		Name:         c.Name,
		Version:      c.PackageVersion,
		Limit:        referencePageLimit,
		Offset:       c.Offset,
	}

	common.TagSpan(ctx,
		attribute.String("package_references", c.Name+"@"+c.PackageVersion),
		attribute.Int("package_references.offset", c.Offset),
	)

	var result metadata.ReferencesResult
	var err error
	if c.Phase == cursor.PhaseRemoteRepo {
		result, err = b.metadata.GetReferences(ctx, params)
	} else {
		result, err = b.metadata.GetSameRepoRemoteReferences(ctx, params)
	}
	if err != nil {
		return nil, nil, err
	}

	// Remote-dump moniker queries are issued in parallel and joined (spec
	// §5), the same errgroup.WithContext shape closestDump uses for its own
	// fan-out.
	perDump := make([][]types.InternalLocation, len(result.Dumps))
	errs := make([]error, len(result.Dumps))
	group, gctx := errgroup.WithContext(ctx)
	for i, d := range result.Dumps {
		if d.ID == excludeDumpID {
			continue
		}
		i, d := i, d
		group.Go(func() error {
			moniker := types.Moniker{Scheme: c.Scheme, Identifier: c.Identifier}
			found, err := b.monikerResults(gctx, d, moniker, types.ReferenceModel, dump.PageArgs{}, stats)
			if err != nil {
				errs[i] = err
				return err
			}
			stats.fanOuts.Add(1)
			perDump[i] = found
			return nil
		})
	}
	_ = group.Wait()
	// Cancellation of the caller's own context takes precedence over any
	// store error, and no partial locations are returned (spec §5, §7).
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := errors.FirstNonCancelled(errs...); err != nil {
		return nil, nil, err
	}

	var locs []types.InternalLocation
	for _, found := range perDump {
		locs = append(locs, found...)
	}

	var next *cursor.ReferencePaginationCursor
	newOffset := c.Offset + len(result.Dumps)
	if newOffset < result.TotalCount {
		nc := c
		nc.Offset = newOffset
		next = &nc
	} else if c.Phase == cursor.PhaseSameRepo {
		hasRemote, err := b.hasRemoteReferences(ctx, repoID, c)
		if err != nil {
			return nil, nil, err
		}
		if hasRemote {
			nc := c
			nc.Phase = cursor.PhaseRemoteRepo
			nc.Offset = 0
			next = &nc
		}
	}

	if len(locs) == 0 && next != nil {
		return b.advancePaginationHop(ctx, repoID, excludeDumpID, *next, stats, hop+1)
	}

	return locs, next, nil
}

// hasRemoteReferences is a count=1, offset=0 probe into the remote scope,
// used to decide whether the same-repo phase should transition rather than
// terminate (spec §4.6).
func (b *Backend) hasRemoteReferences(ctx context.Context, repoID int64, c cursor.ReferencePaginationCursor) (bool, error) {
	result, err := b.metadata.GetReferences(ctx, metadata.ReferencesParams{
		RepositoryID: repoID,
		Scheme:       c.Scheme,
		Identifier:   c.Identifier,
		Name:         c.Name,
		Version:      c.PackageVersion,
		Limit:        1,
		Offset:       0,
	})
	if err != nil {
		return false, err
	}
	return result.TotalCount > 0, nil
}

func encodeCursor(next *cursor.ReferencePaginationCursor) (string, error) {
	if next == nil {
		return "", nil
	}
	return cursor.Encode(*next)
}
