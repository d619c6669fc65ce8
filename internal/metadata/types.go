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

// Package metadata types define the structures used for tracking and
// persisting information about export operations. These types capture
// statistics and audit information for compliance and troubleshooting.
package metadata

import (
	"time"
)

// ExportMetadata represents the complete metadata record for a single
// export operation. It captures what was exported, how it was exported,
// and the results. This structure is designed to provide an audit trail
// for compliance and troubleshooting.
type ExportMetadata struct {
	ToolVersion    string        `json:"tool_version"`
	MethodVersion  string        `json:"method_version"`
	ExportID       string        `json:"export_id"`
	Parameters     ExportParams  `json:"parameters"`
	Results        ExportResults `json:"results"`
	Incremental    bool          `json:"incremental"`
	PreviousExport *ExportRef    `json:"previous_export,omitempty"`
}

// ExportParams captures the input parameters used for an export
// operation: the target dataset, the backing store, and operational
// settings like chunk size and row limit. These parameters are
// preserved to enable reproducible exports and debugging.
type ExportParams struct {
	Dataset   string `json:"dataset"`
	Store     string `json:"store"`
	Format    string `json:"format"`
	Streaming bool   `json:"streaming"`
	ChunkSize int    `json:"chunk_size"`
	RowLimit  *int   `json:"row_limit,omitempty"`
}

// ExportResults contains statistics about a completed export operation.
// It tracks quantitative metrics (row counts, key range) and temporal
// information (duration, timestamps). This data is essential for
// performance monitoring and troubleshooting.
type ExportResults struct {
	TotalRows   int       `json:"total_rows"`
	FirstKey    any       `json:"first_key,omitempty"`
	LastKey     any       `json:"last_key,omitempty"`
	Duration    string    `json:"export_duration"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// ExportRef provides a lightweight reference to a previous export
// operation, used to link incremental exports to their predecessors.
// This creates an audit trail showing the chain of exports for a
// dataset.
type ExportRef struct {
	ExportID    string    `json:"export_id"`
	CompletedAt time.Time `json:"completed_at"`
}
