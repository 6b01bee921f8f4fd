package backend

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"codeintel/src/internal/common"
	"codeintel/src/internal/errors"
	"codeintel/src/internal/types"
	"codeintel/src/server/dump"
)

// Definitions implements the definitions pipeline of spec §4.4.
func (b *Backend) Definitions(ctx context.Context, coord Coordinates, position types.Position) ([]types.InternalLocation, Stats, error) {
	stats := newStatsCollector()

	closest, dumpPath, found, err := b.closestDump(ctx, coord, stats)
	if err != nil {
		common.RecordSpanError(ctx, err)
		return nil, stats.Snapshot(), err
	}
	if !found {
		return nil, stats.Snapshot(), errors.NewNoDumpFoundError(coord.RepositoryID, coord.Commit, coord.Path)
	}

	locs, err := b.localDefinitions(ctx, closest, dumpPath, position, stats)
	if err != nil {
		common.RecordSpanError(ctx, err)
		return nil, stats.Snapshot(), err
	}
	if len(locs) > 0 {
		return mapToRepoRelative(closest, locs), stats.Snapshot(), nil
	}

	lookup, err := b.getRangeByPosition(ctx, closest, dumpPath, position, stats)
	if err != nil {
		return nil, stats.Snapshot(), err
	}
	if lookup == nil {
		return []types.InternalLocation{}, stats.Snapshot(), nil
	}

	for _, r := range lookup.Ranges {
		monikers, missing := lookup.Document.MonikersFor(r)
		b.logMissingMonikers(closest, missing)
		for _, m := range types.SortMonikers(monikers) {
			var found []types.InternalLocation
			var err error
			if m.Kind == types.MonikerKindImport {
				found, err = b.lookupMoniker(ctx, lookup.Document, closest, m, types.DefinitionModel, stats)
			} else {
				found, err = b.monikerResults(ctx, closest, m, types.DefinitionModel, dump.PageArgs{}, stats)
			}
			if err != nil {
				return nil, stats.Snapshot(), err
			}
			if len(found) > 0 {
				return found, stats.Snapshot(), nil
			}
		}
	}

	return []types.InternalLocation{}, stats.Snapshot(), nil
}

func (b *Backend) localDefinitions(ctx context.Context, d types.Dump, path string, position types.Position, stats *statsCollector) ([]types.InternalLocation, error) {
	var locs []types.InternalLocation
	hit, err := b.open(d, func(r dump.Reader) error {
		var err error
		locs, err = r.Definitions(ctx, path, position)
		return err
	})
	if err != nil {
		return nil, err
	}
	recordOpen(stats, hit)
	return locs, nil
}

func (b *Backend) getRangeByPosition(ctx context.Context, d types.Dump, path string, position types.Position, stats *statsCollector) (*dump.RangeLookup, error) {
	var lookup *dump.RangeLookup
	hit, err := b.open(d, func(r dump.Reader) error {
		var err error
		lookup, err = r.GetRangeByPosition(ctx, path, position)
		return err
	})
	if err != nil {
		return nil, err
	}
	recordOpen(stats, hit)
	return lookup, nil
}

func (b *Backend) monikerResults(ctx context.Context, d types.Dump, m types.Moniker, model types.Model, page dump.PageArgs, stats *statsCollector) ([]types.InternalLocation, error) {
	var page2 dump.MonikerResultsPage
	hit, err := b.open(d, func(r dump.Reader) error {
		var err error
		page2, err = r.MonikerResults(ctx, model, m, page)
		return err
	})
	if err != nil {
		return nil, err
	}
	recordOpen(stats, hit)
	return mapToRepoRelative(d, page2.Locations), nil
}

// lookupMoniker resolves an import moniker's package, finds the dump that
// declares it, and runs monikerResults against that dump instead of the
// local one (spec §4.4 step 3, §4.5 step 4c).
func (b *Backend) lookupMoniker(ctx context.Context, doc *dump.Document, local types.Dump, m types.Moniker, model types.Model, stats *statsCollector) ([]types.InternalLocation, error) {
	common.TagSpan(ctx,
		attribute.String("moniker", m.Scheme+" "+m.Identifier),
	)

	pkg, ok := doc.PackageInformation[m.PackageInformationID]
	if !ok {
		b.logger.Warn("moniker %s/%s references unknown packageInformationId %q in dump %d", m.Scheme, m.Identifier, m.PackageInformationID, local.ID)
		return nil, nil
	}
	common.TagSpan(ctx, attribute.String("packageInformation", pkg.Name+"@"+pkg.Version))

	result, ok, err := b.metadata.GetPackage(ctx, m.Scheme, pkg.Name, pkg.Version)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	stats.fanOuts.Add(1)
	return b.monikerResults(ctx, result.Dump, m, model, dump.PageArgs{}, stats)
}

func (b *Backend) logMissingMonikers(d types.Dump, missing []string) {
	for _, id := range missing {
		b.logger.Warn("range in dump %d references unknown moniker id %q", d.ID, id)
	}
}

// mapToRepoRelative rewrites every location's Path from dump-relative to
// repo-relative by prefixing d.Root (spec §3 invariant 1) and sets every
// location's Dump to d, whatever dump it carried before. Callers pass only
// the locations read from d itself, so each dump's locations are mapped
// with that dump's own root.
func mapToRepoRelative(d types.Dump, locs []types.InternalLocation) []types.InternalLocation {
	out := make([]types.InternalLocation, len(locs))
	for i, l := range locs {
		out[i] = l
		out[i].Dump = d
		out[i].Path = types.PathFromDump(d.Root, l.Path)
	}
	return out
}
