package backend

import (
	"context"

	"codeintel/src/internal/errors"
	"codeintel/src/internal/types"
	"codeintel/src/server/dump"
)

// Hover implements the hover pipeline of spec §4.8.
func (b *Backend) Hover(ctx context.Context, coord Coordinates, position types.Position) (*dump.HoverResult, Stats, error) {
	stats := newStatsCollector()

	closest, dumpPath, found, err := b.closestDump(ctx, coord, stats)
	if err != nil {
		return nil, stats.Snapshot(), err
	}
	if !found {
		return nil, stats.Snapshot(), errors.NewNoDumpFoundError(coord.RepositoryID, coord.Commit, coord.Path)
	}

	result, err := b.localHover(ctx, closest, dumpPath, position, stats)
	if err != nil {
		return nil, stats.Snapshot(), err
	}
	if result != nil {
		return result, stats.Snapshot(), nil
	}

	defs, defStats, err := b.Definitions(ctx, coord, position)
	stats.fanOuts.Add(defStats.RemoteFanOuts)
	stats.opens.Add(defStats.DumpsOpened)
	if err != nil {
		return nil, stats.Snapshot(), err
	}
	if len(defs) == 0 {
		return nil, stats.Snapshot(), nil
	}

	first := defs[0]
	dumpRelative, ok := types.PathToDump(first.Dump.Root, first.Path)
	if !ok {
		return nil, stats.Snapshot(), nil
	}

	result, err = b.localHover(ctx, first.Dump, dumpRelative, first.Range.Start, stats)
	if err != nil {
		return nil, stats.Snapshot(), err
	}
	return result, stats.Snapshot(), nil
}

func (b *Backend) localHover(ctx context.Context, d types.Dump, path string, position types.Position, stats *statsCollector) (*dump.HoverResult, error) {
	var result *dump.HoverResult
	hit, err := b.open(d, func(r dump.Reader) error {
		var err error
		result, err = r.Hover(ctx, path, position)
		return err
	})
	if err != nil {
		return nil, err
	}
	recordOpen(stats, hit)
	return result, nil
}
