package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"codeintel/src/internal/common"
)

// Config is the server's on-disk configuration: cache capacities, where
// dump bundles live on disk, and the log level to run at.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Caches  CachesConfig  `yaml:"caches"`
	LogLevel string       `yaml:"log_level,omitempty"`
}

// StorageConfig locates the on-disk dump bundles the ConnectionCache opens.
type StorageConfig struct {
	DumpDir string `yaml:"dump_dir"`
}

// CachesConfig bounds the three process-wide caches (spec §4.1).
type CachesConfig struct {
	Connections  int `yaml:"connections"`
	Documents    int `yaml:"documents"`
	ResultChunks int `yaml:"result_chunks"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateDefaultConfig writes a default configuration file to path.
func GenerateDefaultConfig(path string) error {
	return SaveConfig(GetDefaultConfig(), path)
}

func validateConfig(config *Config) error {
	if config.Storage.DumpDir == "" {
		return fmt.Errorf("storage.dump_dir is required")
	}
	if config.Caches.Connections <= 0 {
		return fmt.Errorf("caches.connections must be positive")
	}
	if config.Caches.Documents <= 0 {
		return fmt.Errorf("caches.documents must be positive")
	}
	if config.Caches.ResultChunks <= 0 {
		return fmt.Errorf("caches.result_chunks must be positive")
	}
	switch config.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codeintel", "config.yaml")
}

// GetDefaultConfig returns the configuration the server runs with when no
// file is present: dumps under ~/.codeintel/dumps, modestly sized caches.
func GetDefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Storage: StorageConfig{DumpDir: filepath.Join(home, ".codeintel", "dumps")},
		Caches: CachesConfig{
			Connections:  100,
			Documents:    5000,
			ResultChunks: 5000,
		},
		LogLevel: "info",
	}
}

// LogLevelValue parses config's LogLevel field into a common.LogLevel, defaulting
// to LogInfo for an empty or unrecognized value.
func (c *Config) LogLevelValue() common.LogLevel {
	switch c.LogLevel {
	case "debug":
		return common.LogDebug
	case "warn":
		return common.LogWarn
	case "error":
		return common.LogError
	default:
		return common.LogInfo
	}
}
