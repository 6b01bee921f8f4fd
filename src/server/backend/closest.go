package backend

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"codeintel/src/internal/common"
	"codeintel/src/internal/errors"
	"codeintel/src/internal/types"
	"codeintel/src/server/dump"
)

// Coordinates identifies the dump a query should run against: either an
// explicit DumpID (the caller asserts validity and no exists check runs),
// or a (RepositoryID, Commit, Path) triple resolved via closest-dump
// selection (spec §4.7).
type Coordinates struct {
	RepositoryID int64
	Commit       string
	Path         string
	DumpID       int64 // if non-zero, takes precedence over the triple above
}

// closestDump resolves Coordinates to a single dump and the path to query
// it with (dump-relative when resolved via the triple, otherwise coord.Path
// verbatim since the caller already asserts the dump's validity).
func (b *Backend) closestDump(ctx context.Context, coord Coordinates, stats *statsCollector) (types.Dump, string, bool, error) {
	if coord.DumpID != 0 {
		d, ok, err := b.metadata.GetDumpByID(ctx, coord.DumpID)
		if err != nil || !ok {
			return types.Dump{}, "", false, err
		}
		return d, coord.Path, true, nil
	}

	candidates, err := b.metadata.FindClosestDumps(ctx, coord.RepositoryID, coord.Commit, coord.Path)
	if err != nil {
		return types.Dump{}, "", false, err
	}
	if len(candidates) == 0 {
		return types.Dump{}, "", false, nil
	}

	existsAt := make([]bool, len(candidates))
	dumpRelative := make([]string, len(candidates))
	errs := make([]error, len(candidates))

	group, gctx := errgroup.WithContext(ctx)
	for i, d := range candidates {
		i, d := i, d
		group.Go(func() error {
			rel, ok := types.PathToDump(d.Root, coord.Path)
			if !ok {
				return nil
			}
			dumpRelative[i] = rel
			exists := false
			hit, err := b.open(d, func(r dump.Reader) error {
				var err error
				exists, err = r.Exists(gctx, rel)
				return err
			})
			if err != nil {
				errs[i] = err
				return err
			}
			recordOpen(stats, hit)
			existsAt[i] = exists
			return nil
		})
	}
	_ = group.Wait()
	// Cancellation of the caller's own context takes precedence over any
	// store error reported by the fan-out (spec §5, §7).
	if err := ctx.Err(); err != nil {
		return types.Dump{}, "", false, err
	}
	// A sibling's real error cancels gctx, which surfaces as
	// context.Canceled in every other still-running goroutine; collapse to
	// the first non-cancellation error rather than whichever error
	// errgroup happened to record first (spec §5, §7).
	if err := errors.FirstNonCancelled(errs...); err != nil {
		return types.Dump{}, "", false, err
	}

	for i, d := range candidates {
		if existsAt[i] {
			common.TagSpan(ctx, attribute.String("closestCommit", d.Commit))
			return d, dumpRelative[i], true, nil
		}
	}
	return types.Dump{}, "", false, nil
}
