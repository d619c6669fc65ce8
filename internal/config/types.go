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

// Package config types define the configuration structures used throughout
// tablerender. These types represent settings that can be loaded from
// YAML configuration files, environment variables, or command-line flags.
package config

// Config represents the complete configuration for tablerender.
// It consolidates settings from various sources and provides a unified
// interface for accessing configuration values throughout the application.
type Config struct {
	Store    StoreConfig              `yaml:"store"`
	Defaults DefaultsConfig           `yaml:"defaults"`
	Datasets map[string]DatasetConfig `yaml:"datasets"`
}

// StoreConfig selects the backing record store. Path points at a local
// SQLite database file; Endpoint points at a remote record-export
// GraphQL service. When both are set, Endpoint wins. TokenEnv names the
// environment variable holding the bearer token for remote endpoints.
type StoreConfig struct {
	Path     string `yaml:"path"`
	Endpoint string `yaml:"endpoint"`
	TokenEnv string `yaml:"token_env"`
}

// DefaultsConfig contains default settings that apply to all export
// operations unless overridden by dataset-specific settings or
// command-line flags.
type DefaultsConfig struct {
	Streaming    bool   `yaml:"streaming"`
	ChunkSize    int    `yaml:"chunk_size"`
	OutputFormat string `yaml:"output_format"`
}

// DatasetConfig contains dataset-specific overrides that allow
// fine-tuning export behavior for individual datasets. This is useful
// when certain datasets have special requirements, such as smaller
// chunk sizes for tables with very wide rows, or a non-default
// ordering key.
type DatasetConfig struct {
	ChunkSize int    `yaml:"chunk_size"`
	RowLimit  int    `yaml:"row_limit"`
	Key       string `yaml:"key"`
}

// DefaultConfig returns a Config with sensible defaults suitable for
// most use cases. These defaults favor streaming export against a
// local SQLite store but can be overridden for remote endpoints or
// special requirements.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			TokenEnv: "TABLERENDER_TOKEN",
		},
		Defaults: DefaultsConfig{
			Streaming:    true,
			ChunkSize:    1000,
			OutputFormat: "ndjson",
		},
		Datasets: make(map[string]DatasetConfig),
	}
}
