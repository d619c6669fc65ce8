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

// Package metadata provides functionality for tracking and persisting
// metadata about export operations. It records statistics about each
// export including the number of rows written, the ordering-key range
// covered, and links to previous exports for incremental operations.
//
// The metadata system serves several purposes:
//   - Provides audit trails for compliance
//   - Enables troubleshooting by recording export parameters
//   - Supports incremental export tracking with links to previous runs
//   - Records performance metrics for optimization
//
// Metadata is saved as JSON files alongside state files, allowing
// external tools to analyze export history and performance.
package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	// MethodVersion identifies the current export strategy
	MethodVersion = "keyset-chunked-v1"
)

// Tracker collects statistics during an export operation and generates
// metadata. It tracks row counts and the ordering-key range throughout
// the export. Create a new tracker at the start of each export and call
// its methods to record activity.
type Tracker struct {
	startTime time.Time
	rowStats  RowStats
}

// RowStats holds statistical information about rows processed during an
// export operation: the total count and the key range (first/last
// ordering-key values) of the exported data.
type RowStats struct {
	TotalRows int // Total number of rows written
	FirstKey  any // Ordering key of the first row
	LastKey   any // Ordering key of the last row
}

// New creates a new metadata tracker and initializes it with the current
// time. Call this at the beginning of an export operation.
func New() *Tracker {
	return &Tracker{
		startTime: time.Now(),
	}
}

// UpdateRowStats updates the running statistics with the ordering key of
// a single exported row. Rows arrive in key order, so the first call
// pins the first key and every call advances the last key.
func (t *Tracker) UpdateRowStats(key any) {
	t.rowStats.TotalRows++

	if t.rowStats.FirstKey == nil {
		t.rowStats.FirstKey = key
	}
	if key != nil {
		t.rowStats.LastKey = key
	}
}

// Stats returns the statistics collected so far.
func (t *Tracker) Stats() RowStats {
	return t.rowStats
}

// GenerateMetadata creates an ExportMetadata instance capturing the
// complete export operation statistics. Call this at the end of a
// successful export to create the metadata record.
//
// Parameters:
//   - toolVersion: The version of tablerender
//   - params: The export parameters used for this operation
//   - incremental: Whether this was an incremental export
//   - previousExport: Reference to the previous export (for incremental runs)
//
// Returns a complete metadata record ready for persistence.
func (t *Tracker) GenerateMetadata(toolVersion string, params ExportParams, incremental bool, previousExport *ExportRef) *ExportMetadata {
	completedAt := time.Now()
	duration := completedAt.Sub(t.startTime)

	// Generate unique export ID
	exportID := fmt.Sprintf("%s-%d", getExportType(incremental), t.startTime.Unix())

	return &ExportMetadata{
		ToolVersion:   toolVersion,
		MethodVersion: MethodVersion,
		ExportID:      exportID,
		Parameters:    params,
		Results: ExportResults{
			TotalRows:   t.rowStats.TotalRows,
			FirstKey:    t.rowStats.FirstKey,
			LastKey:     t.rowStats.LastKey,
			Duration:    duration.String(),
			StartedAt:   t.startTime,
			CompletedAt: completedAt,
		},
		Incremental:    incremental,
		PreviousExport: previousExport,
	}
}

// SaveMetadata persists an ExportMetadata record to a JSON file in the
// specified directory. The file is written atomically using a temporary
// file and rename to prevent corruption. The filename includes a
// timestamp for easy sorting.
//
// The metadata file will be named: export-metadata-{timestamp}.json
//
// Returns an error if the save operation fails.
func SaveMetadata(metadata *ExportMetadata, stateDir string) error {
	// Ensure state directory exists
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Generate filename with timestamp
	filename := fmt.Sprintf("export-metadata-%d.json", metadata.Results.StartedAt.Unix())
	filepath := filepath.Join(stateDir, filename)

	// Write to temporary file first for atomicity
	tmpFile := filepath + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("failed to create metadata file: %w", err)
	}

	// Write JSON with proper formatting
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(metadata); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to close metadata file: %w", err)
	}

	// Atomically rename to final location
	if err := os.Rename(tmpFile, filepath); err != nil {
		return fmt.Errorf("failed to save metadata file: %w", err)
	}

	return nil
}

// LoadLatestMetadata finds and loads the most recent metadata file for
// the specified dataset from the state directory. It identifies the
// latest file by modification time and verifies it matches the
// requested dataset.
//
// Returns nil if no metadata exists for the dataset, or an error if
// loading fails.
func LoadLatestMetadata(stateDir, dataset string) (*ExportMetadata, error) {
	pattern := filepath.Join(stateDir, "export-metadata-*.json")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata files: %w", err)
	}

	if len(files) == 0 {
		return nil, nil // No previous metadata
	}

	// Find the most recent file
	var latestFile string
	var latestTime time.Time
	for _, file := range files {
		info, statErr := os.Stat(file)
		if statErr != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = file
		}
	}

	if latestFile == "" {
		return nil, nil
	}

	// Read and parse the metadata
	file, err := os.Open(latestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata file: %w", err)
	}
	defer file.Close()

	var metadata ExportMetadata
	if err := json.NewDecoder(file).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	// Verify it's for the same dataset
	if metadata.Parameters.Dataset != dataset {
		return nil, nil // Metadata is for different dataset
	}

	return &metadata, nil
}

// WriteMetadataToWriter serializes metadata to JSON and writes it to the
// provided io.Writer. The output is formatted with indentation for
// readability. This function is useful for outputting metadata to
// stdout or network streams.
func WriteMetadataToWriter(metadata *ExportMetadata, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

func getExportType(incremental bool) string {
	if incremental {
		return "incremental"
	}
	return "full"
}
