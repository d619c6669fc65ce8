// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config provides configuration management for tablerender with
// support for multiple configuration sources and a well-defined precedence
// order. It enables deployments to customize behavior through configuration
// files while maintaining flexibility with environment variables and
// command-line overrides.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Dataset-specific configuration
//  4. Global configuration file
//  5. Built-in defaults
//
// The package supports YAML configuration files and provides automatic
// discovery of configuration in standard locations. Dataset-specific
// overrides allow fine-grained control over individual exports.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from multiple sources and applies them in
// the correct precedence order. If configPath is provided, it loads from
// that specific file. Otherwise, it searches standard locations:
//   - .tablerender.yaml (current directory)
//   - .tablerender.yml (current directory)
//   - ~/.tablerender/config.yaml
//   - ~/.tablerender/config.yml
//
// Environment variables are applied after loading the config file, allowing
// runtime overrides. Path expansion (~ and environment variables) is performed
// on the store path.
//
// Returns an error if the specified config file cannot be loaded, but will
// succeed with defaults if no config file is found in standard locations.
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Try to load config file if path is provided
	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		// Try default locations
		defaultPaths := []string{
			".tablerender.yaml",
			".tablerender.yml",
			filepath.Join(os.Getenv("HOME"), ".tablerender", "config.yaml"),
			filepath.Join(os.Getenv("HOME"), ".tablerender", "config.yml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Expand paths
	cfg.Store.Path = expandPath(cfg.Store.Path)

	return cfg, nil
}

// loadConfigFile reads and parses a YAML config file
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	// Store selection
	if path := os.Getenv("TABLERENDER_STORE_PATH"); path != "" {
		cfg.Store.Path = path
	}
	if endpoint := os.Getenv("TABLERENDER_ENDPOINT"); endpoint != "" {
		cfg.Store.Endpoint = endpoint
	}

	// Defaults
	if chunkSize := os.Getenv("TABLERENDER_CHUNK_SIZE"); chunkSize != "" {
		if size, err := parsePositiveInt(chunkSize); err == nil {
			cfg.Defaults.ChunkSize = size
		}
	}
	if format := os.Getenv("TABLERENDER_FORMAT"); format != "" {
		cfg.Defaults.OutputFormat = format
	}
	if streaming := os.Getenv("TABLERENDER_STREAMING"); streaming != "" {
		cfg.Defaults.Streaming = parseBool(streaming)
	}
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home := os.Getenv("HOME")
		if home == "" {
			home = os.Getenv("USERPROFILE") // Windows
		}
		path = filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// parsePositiveInt parses a string to a positive integer
func parsePositiveInt(s string) (int, error) {
	var i int
	_, err := fmt.Sscanf(s, "%d", &i)
	if err != nil {
		return 0, fmt.Errorf("failed to parse integer from '%s': %w", s, err)
	}
	if i <= 0 {
		return 0, fmt.Errorf("value must be positive, got: %d", i)
	}
	return i, nil
}

// parseBool parses various boolean representations
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "yes" || s == "1" || s == "on"
}

// GetChunkSize returns the effective chunk size for a dataset, taking
// into account dataset-specific overrides. If the dataset has a
// specific chunk size configured, it returns that value. Otherwise, it
// returns the default chunk size.
func (c *Config) GetChunkSize(dataset string) int {
	if dsConfig, ok := c.Datasets[dataset]; ok && dsConfig.ChunkSize > 0 {
		return dsConfig.ChunkSize
	}
	return c.Defaults.ChunkSize
}

// GetRowLimit returns the configured row limit for a dataset, or 0 if
// the dataset has no limit configured.
func (c *Config) GetRowLimit(dataset string) int {
	if dsConfig, ok := c.Datasets[dataset]; ok && dsConfig.RowLimit > 0 {
		return dsConfig.RowLimit
	}
	return 0
}

// GetKey returns the configured ordering key for a dataset, or the
// empty string when the dataset uses the store default.
func (c *Config) GetKey(dataset string) string {
	if dsConfig, ok := c.Datasets[dataset]; ok {
		return dsConfig.Key
	}
	return ""
}

// Validate checks if the configuration contains valid values. It ensures
// chunk sizes are positive, the output format is supported, and other
// constraints are met. This should be called after loading configuration
// to catch invalid settings early.
func (c *Config) Validate() error {
	if c.Defaults.ChunkSize <= 0 {
		return fmt.Errorf("default chunk size must be positive, got: %d", c.Defaults.ChunkSize)
	}
	switch c.Defaults.OutputFormat {
	case "ndjson", "csv":
	default:
		return fmt.Errorf("unsupported output format %q (expected ndjson or csv)", c.Defaults.OutputFormat)
	}
	for name, dsConfig := range c.Datasets {
		if dsConfig.ChunkSize < 0 {
			return fmt.Errorf("dataset %s: chunk size must not be negative, got: %d", name, dsConfig.ChunkSize)
		}
		if dsConfig.RowLimit < 0 {
			return fmt.Errorf("dataset %s: row limit must not be negative, got: %d", name, dsConfig.RowLimit)
		}
	}
	return nil
}
