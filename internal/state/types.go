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

package state

import (
	"time"
)

// CurrentVersion is the current state schema version.
// Increment this when making breaking changes to the ExportState structure.
const CurrentVersion = 1

// ExportState represents the persistent state of a dataset export operation.
// It tracks the last exported ordering key to enable incremental exports.
// The state is designed to be forward-compatible through versioning and
// includes integrity validation through checksums.
type ExportState struct {
	// Version indicates the schema version of this state file.
	// Used to handle migrations and compatibility checks.
	Version int `json:"version"`

	// Checksum is the SHA256 hash of the state content (excluding this field).
	// Used to detect corruption or tampering.
	Checksum string `json:"checksum"`

	// Dataset is the exported dataset name.
	Dataset string `json:"dataset"`

	// LastExportID is a unique identifier for the export operation.
	// Can be used for debugging and correlation.
	LastExportID string `json:"last_export_id"`

	// LastKey is the highest ordering-key value exported in the last run.
	// An incremental export resumes with rows whose key is above it.
	LastKey any `json:"last_key"`

	// LastExportTime records when the export completed successfully.
	// Useful for debugging and monitoring.
	LastExportTime time.Time `json:"last_export_time"`

	// TotalExported is the number of rows exported in the last operation.
	// Provides insight into export size and performance.
	TotalExported int `json:"total_exported"`
}
