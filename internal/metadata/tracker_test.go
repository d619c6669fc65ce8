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

package metadata

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTracker_UpdateRowStats(t *testing.T) {
	tests := []struct {
		name      string
		keys      []any
		wantStats RowStats
	}{
		{
			name: "single row",
			keys: []any{int64(100)},
			wantStats: RowStats{
				TotalRows: 1,
				FirstKey:  int64(100),
				LastKey:   int64(100),
			},
		},
		{
			name: "multiple rows in key order",
			keys: []any{int64(100), int64(101), int64(102)},
			wantStats: RowStats{
				TotalRows: 3,
				FirstKey:  int64(100),
				LastKey:   int64(102),
			},
		},
		{
			name: "string ordering key",
			keys: []any{"alpha", "bravo", "charlie"},
			wantStats: RowStats{
				TotalRows: 3,
				FirstKey:  "alpha",
				LastKey:   "charlie",
			},
		},
		{
			name: "nil key does not advance last key",
			keys: []any{int64(10), nil, int64(12)},
			wantStats: RowStats{
				TotalRows: 3,
				FirstKey:  int64(10),
				LastKey:   int64(12),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := New()

			for _, key := range tt.keys {
				tracker.UpdateRowStats(key)
			}

			got := tracker.Stats()
			if got.TotalRows != tt.wantStats.TotalRows {
				t.Errorf("TotalRows = %d, want %d", got.TotalRows, tt.wantStats.TotalRows)
			}
			if got.FirstKey != tt.wantStats.FirstKey {
				t.Errorf("FirstKey = %v, want %v", got.FirstKey, tt.wantStats.FirstKey)
			}
			if got.LastKey != tt.wantStats.LastKey {
				t.Errorf("LastKey = %v, want %v", got.LastKey, tt.wantStats.LastKey)
			}
		})
	}
}

func TestTracker_GenerateMetadata(t *testing.T) {
	tracker := New()
	tracker.UpdateRowStats(int64(100))
	tracker.UpdateRowStats(int64(101))

	params := ExportParams{
		Dataset:   "events",
		Store:     "/data/app.db",
		Format:    "ndjson",
		Streaming: true,
		ChunkSize: 500,
	}

	metadata := tracker.GenerateMetadata("v1.2.3", params, false, nil)

	// Verify metadata fields
	if metadata.ToolVersion != "v1.2.3" {
		t.Errorf("ToolVersion = %s, want v1.2.3", metadata.ToolVersion)
	}
	if metadata.MethodVersion != MethodVersion {
		t.Errorf("MethodVersion = %s, want %s", metadata.MethodVersion, MethodVersion)
	}
	if !strings.HasPrefix(metadata.ExportID, "full-") {
		t.Errorf("ExportID = %s, want prefix 'full-'", metadata.ExportID)
	}
	if metadata.Incremental {
		t.Error("Incremental = true, want false")
	}
	if metadata.PreviousExport != nil {
		t.Error("PreviousExport should be nil")
	}

	// Verify results
	if metadata.Results.TotalRows != 2 {
		t.Errorf("TotalRows = %d, want 2", metadata.Results.TotalRows)
	}
	if metadata.Results.FirstKey != int64(100) {
		t.Errorf("FirstKey = %v, want 100", metadata.Results.FirstKey)
	}
	if metadata.Results.LastKey != int64(101) {
		t.Errorf("LastKey = %v, want 101", metadata.Results.LastKey)
	}
	if metadata.Results.CompletedAt.Before(metadata.Results.StartedAt) {
		t.Error("CompletedAt should not precede StartedAt")
	}
}

func TestTracker_GenerateMetadata_Incremental(t *testing.T) {
	tracker := New()
	tracker.UpdateRowStats(int64(200))

	limit := 50
	params := ExportParams{
		Dataset:   "events",
		Store:     "/data/app.db",
		Format:    "csv",
		Streaming: true,
		ChunkSize: 25,
		RowLimit:  &limit,
	}

	previousExport := &ExportRef{
		ExportID:    "full-1234567890",
		CompletedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	metadata := tracker.GenerateMetadata("v1.0.0", params, true, previousExport)

	if !strings.HasPrefix(metadata.ExportID, "incremental-") {
		t.Errorf("ExportID = %s, want prefix 'incremental-'", metadata.ExportID)
	}
	if !metadata.Incremental {
		t.Error("Incremental = false, want true")
	}
	if metadata.PreviousExport == nil {
		t.Fatal("PreviousExport should not be nil")
	}
	if metadata.PreviousExport.ExportID != "full-1234567890" {
		t.Errorf("PreviousExport.ExportID = %s, want full-1234567890", metadata.PreviousExport.ExportID)
	}
}

func TestSaveMetadata(t *testing.T) {
	tmpDir := t.TempDir()

	metadata := &ExportMetadata{
		ToolVersion:   "v1.2.3",
		MethodVersion: MethodVersion,
		ExportID:      "full-1234567890",
		Parameters: ExportParams{
			Dataset:   "events",
			Store:     "/data/app.db",
			Format:    "ndjson",
			Streaming: true,
			ChunkSize: 50,
		},
		Results: ExportResults{
			TotalRows:   100,
			FirstKey:    float64(1),
			LastKey:     float64(100),
			Duration:    "5m30s",
			StartedAt:   time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			CompletedAt: time.Date(2023, 1, 1, 12, 5, 30, 0, time.UTC),
		},
		Incremental: false,
	}

	// Save metadata
	if err := SaveMetadata(metadata, tmpDir); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}

	// Verify file was created
	expectedFile := filepath.Join(tmpDir, "export-metadata-1672574400.json")
	if _, err := os.Stat(expectedFile); err != nil {
		t.Fatalf("metadata file not created: %v", err)
	}

	// Read and verify contents
	data, err := os.ReadFile(expectedFile)
	if err != nil {
		t.Fatalf("failed to read metadata file: %v", err)
	}

	var loaded ExportMetadata
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("failed to parse metadata: %v", err)
	}

	if loaded.ToolVersion != metadata.ToolVersion {
		t.Errorf("ToolVersion = %s, want %s", loaded.ToolVersion, metadata.ToolVersion)
	}
	if loaded.Results.TotalRows != metadata.Results.TotalRows {
		t.Errorf("TotalRows = %d, want %d", loaded.Results.TotalRows, metadata.Results.TotalRows)
	}
}

func TestLoadLatestMetadata(t *testing.T) {
	tmpDir := t.TempDir()

	// Create multiple metadata files
	metadata1 := &ExportMetadata{
		ToolVersion: "v1.0.0",
		ExportID:    "full-1000000000",
		Parameters: ExportParams{
			Dataset: "events",
			Store:   "/data/app.db",
		},
		Results: ExportResults{
			StartedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	metadata2 := &ExportMetadata{
		ToolVersion: "v1.1.0",
		ExportID:    "full-2000000000",
		Parameters: ExportParams{
			Dataset: "events",
			Store:   "/data/app.db",
		},
		Results: ExportResults{
			StartedAt: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	// Save both metadata files
	if err := SaveMetadata(metadata1, tmpDir); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}

	// Sleep briefly to ensure different modification times
	time.Sleep(10 * time.Millisecond)

	if err := SaveMetadata(metadata2, tmpDir); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}

	// Load latest metadata
	loaded, err := LoadLatestMetadata(tmpDir, "events")
	if err != nil {
		t.Fatalf("LoadLatestMetadata failed: %v", err)
	}

	if loaded == nil {
		t.Fatal("expected metadata, got nil")
	}

	// Should get the second (latest) metadata
	if loaded.ExportID != metadata2.ExportID {
		t.Errorf("ExportID = %s, want %s", loaded.ExportID, metadata2.ExportID)
	}
}

func TestLoadLatestMetadata_DifferentDataset(t *testing.T) {
	tmpDir := t.TempDir()

	// Create metadata for a different dataset
	metadata := &ExportMetadata{
		ToolVersion: "v1.0.0",
		ExportID:    "full-1000000000",
		Parameters: ExportParams{
			Dataset: "audit_log",
			Store:   "/data/app.db",
		},
		Results: ExportResults{
			StartedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	if err := SaveMetadata(metadata, tmpDir); err != nil {
		t.Fatalf("SaveMetadata failed: %v", err)
	}

	// Try to load for a different dataset
	loaded, err := LoadLatestMetadata(tmpDir, "events")
	if err != nil {
		t.Fatalf("LoadLatestMetadata failed: %v", err)
	}

	if loaded != nil {
		t.Error("expected nil metadata for different dataset")
	}
}

func TestLoadLatestMetadata_EmptyDir(t *testing.T) {
	loaded, err := LoadLatestMetadata(t.TempDir(), "events")
	if err != nil {
		t.Fatalf("LoadLatestMetadata failed: %v", err)
	}
	if loaded != nil {
		t.Error("expected nil metadata for empty directory")
	}
}

func TestWriteMetadataToWriter(t *testing.T) {
	metadata := &ExportMetadata{
		ToolVersion:   "v1.2.3",
		MethodVersion: MethodVersion,
		ExportID:      "full-1234567890",
		Parameters: ExportParams{
			Dataset:   "events",
			Store:     "/data/app.db",
			Format:    "ndjson",
			Streaming: true,
			ChunkSize: 50,
		},
		Results: ExportResults{
			TotalRows:   100,
			FirstKey:    float64(1),
			LastKey:     float64(100),
			Duration:    "5m30s",
			StartedAt:   time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC),
			CompletedAt: time.Date(2023, 1, 1, 12, 5, 30, 0, time.UTC),
		},
		Incremental: false,
	}

	var buf bytes.Buffer
	if err := WriteMetadataToWriter(metadata, &buf); err != nil {
		t.Fatalf("WriteMetadataToWriter failed: %v", err)
	}

	// Verify output is valid JSON
	var loaded ExportMetadata
	if err := json.Unmarshal(buf.Bytes(), &loaded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}

	// Verify indentation
	output := buf.String()
	if !strings.Contains(output, "\n  \"tool_version\"") {
		t.Error("output should be indented")
	}
}
