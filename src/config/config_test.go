package config

import (
	"os"
	"path/filepath"
	"testing"

	"codeintel/src/internal/common"
)

func TestGetDefaultConfigIsValid(t *testing.T) {
	config := GetDefaultConfig()
	if err := validateConfig(config); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
	if config.Caches.Connections <= 0 || config.Caches.Documents <= 0 || config.Caches.ResultChunks <= 0 {
		t.Fatalf("default cache capacities should be positive, got %+v", config.Caches)
	}
	if config.LogLevelValue() != common.LogInfo {
		t.Fatalf("expected default log level info, got %v", config.LogLevelValue())
	}
}

func TestValidateConfigRejectsMissingDumpDir(t *testing.T) {
	config := GetDefaultConfig()
	config.Storage.DumpDir = ""
	if err := validateConfig(config); err == nil {
		t.Fatalf("expected an error for a missing dump_dir")
	}
}

func TestValidateConfigRejectsNonPositiveCapacities(t *testing.T) {
	config := GetDefaultConfig()
	config.Caches.Documents = 0
	if err := validateConfig(config); err == nil {
		t.Fatalf("expected an error for a non-positive document cache capacity")
	}
}

func TestValidateConfigRejectsUnknownLogLevel(t *testing.T) {
	config := GetDefaultConfig()
	config.LogLevel = "verbose"
	if err := validateConfig(config); err == nil {
		t.Fatalf("expected an error for an unknown log level")
	}
}

func TestSaveAndLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := GetDefaultConfig()
	original.Caches.Connections = 7
	original.LogLevel = "debug"

	if err := SaveConfig(original, path); err != nil {
		t.Fatalf("unexpected error saving config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if loaded.Caches.Connections != 7 {
		t.Fatalf("expected Connections to round-trip as 7, got %d", loaded.Caches.Connections)
	}
	if loaded.LogLevelValue() != common.LogDebug {
		t.Fatalf("expected debug log level to round-trip, got %v", loaded.LogLevelValue())
	}
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}

func TestGenerateDefaultConfigCreatesParentDirs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	path := filepath.Join(dir, "config.yaml")

	if err := GenerateDefaultConfig(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}
}
