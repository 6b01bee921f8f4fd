package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifestFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dumps.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

const sampleManifestYAML = `
dumps:
  - id: 1
    repositoryId: 1
    commit: deadbeef
    root: ""
    filename: dump1.badger
`

func TestNewRuntimeBuildsBackendOverDefaultConfig(t *testing.T) {
	manifest := writeManifestFile(t, sampleManifestYAML)

	rt, err := newRuntime("", manifest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.backend == nil {
		t.Error("expected newRuntime to construct a non-nil backend")
	}
	if rt.conns == nil || rt.docs == nil || rt.chunks == nil {
		t.Error("expected newRuntime to construct all three caches")
	}
}

func TestNewRuntimeRejectsMissingManifest(t *testing.T) {
	if _, err := newRuntime("", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing manifest file")
	}
}

func TestNewRuntimeRejectsMissingConfigFile(t *testing.T) {
	manifest := writeManifestFile(t, sampleManifestYAML)
	if _, err := newRuntime(filepath.Join(t.TempDir(), "missing-config.yaml"), manifest); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestIndexByFilenameRejectsUnknownDumpState(t *testing.T) {
	manifest := writeManifestFile(t, `
dumps:
  - id: 1
    repositoryId: 1
    filename: dump1.badger
    state: bogus
`)
	if _, err := indexByFilename(manifest); err == nil {
		t.Error("expected an error for an unknown dump state")
	}
}
