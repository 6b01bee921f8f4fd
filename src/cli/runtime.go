// Package cli wires the config, metadata manifest, dump caches, and
// backend into a cobra command tree (spec §6 "External interfaces").
package cli

import (
	"fmt"
	"path/filepath"

	"codeintel/src/config"
	"codeintel/src/internal/common"
	"codeintel/src/internal/errors"
	"codeintel/src/internal/types"
	"codeintel/src/server/backend"
	"codeintel/src/server/badgerstore"
	"codeintel/src/server/cache"
	"codeintel/src/server/dump"
	"codeintel/src/server/metadata"
)

// runtime bundles everything a query command needs: the backend plus the
// caches it was built over (cache commands report on the latter).
type runtime struct {
	cfg     *config.Config
	backend *backend.Backend
	conns   *cache.ConnectionCache
	docs    *cache.DocumentCache
	chunks  *cache.ResultChunkCache
}

// newRuntime loads configPath (or the default config if empty) and
// manifestPath, and constructs a Backend whose ConnectionOpener opens
// badger-backed dumps under cfg.Storage.DumpDir.
func newRuntime(configPath, manifestPath string) (*runtime, error) {
	cfg, err := resolveConfig(configPath)
	if err != nil {
		return nil, err
	}
	logLevel := cfg.LogLevelValue()
	if common.IsCI() {
		logLevel = common.LogDebug
	}
	common.CLILogger.SetLevel(logLevel)

	if !common.FileExists(manifestPath) {
		return nil, errors.NewInternalError("manifest-lookup", fmt.Errorf("manifest file %q does not exist", manifestPath))
	}

	store, err := metadata.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	dumpsByFilename, err := indexByFilename(manifestPath)
	if err != nil {
		return nil, err
	}

	docs := cache.NewDocumentCache(cfg.Caches.Documents)
	chunks := cache.NewResultChunkCache(cfg.Caches.ResultChunks)

	factory := func(filename string) (dump.Reader, error) {
		info, ok := dumpsByFilename[filename]
		if !ok {
			return nil, errors.NewInternalError("connection-factory", fmt.Errorf("unknown dump filename %q", filename))
		}
		return badgerstore.Open(filepath.Join(cfg.Storage.DumpDir, filename), info, docs, chunks)
	}
	// Closing a dump's connection invalidates its document and result-chunk
	// cache entries (spec §3 invariant 4); this fires whether the
	// connection was evicted under capacity pressure or removed explicitly,
	// since both route through the same lru.Cache eviction callback.
	onEvicted := func(filename string) {
		info, ok := dumpsByFilename[filename]
		if !ok {
			return
		}
		docs.Invalidate(info.ID)
		chunks.Invalidate(info.ID)
	}
	conns := cache.NewConnectionCache(cfg.Caches.Connections, factory, onEvicted)
	opener := backend.OpenerFromConnectionCache(conns, func(d types.Dump) string { return d.Filename })

	return &runtime{
		cfg:     cfg,
		backend: backend.New(store, opener),
		conns:   conns,
		docs:    docs,
		chunks:  chunks,
	}, nil
}

// indexByFilename builds a filename -> types.Dump lookup straight from the
// manifest file. MemoryStore itself only exposes dumps by id, which the
// connection factory (filename -> dump.Reader) can't key on.
func indexByFilename(manifestPath string) (map[string]types.Dump, error) {
	manifest, err := metadata.ReadManifestFile(manifestPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.Dump, len(manifest.Dumps))
	for _, d := range manifest.Dumps {
		state, err := metadata.ParseDumpState(d.State)
		if err != nil {
			return nil, err
		}
		out[d.Filename] = types.Dump{
			ID:           d.ID,
			RepositoryID: d.RepositoryID,
			Commit:       d.Commit,
			Root:         d.Root,
			Filename:     d.Filename,
			State:        state,
		}
	}
	return out, nil
}
