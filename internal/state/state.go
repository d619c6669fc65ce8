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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetStateFilePath returns the standard path for a dataset's state file.
// Returns: ~/.tablerender/state/<dataset>.state
func GetStateFilePath(dataset string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home directory is not accessible
		homeDir = "."
	}

	// Replace path separators for filesystem compatibility
	safeName := strings.ReplaceAll(dataset, "/", "-")

	return filepath.Join(homeDir, ".tablerender", "state", safeName+".state")
}

// SaveState persists the export state to disk. The state is stamped with
// the current schema version and a SHA256 checksum, then written with
// atomicWrite so a crash mid-save never leaves a truncated file behind.
func SaveState(st *ExportState, stateFile string) error {
	st.Version = CurrentVersion

	checksum, err := calculateChecksum(st)
	if err != nil {
		return fmt.Errorf("failed to calculate checksum: %w", err)
	}
	st.Checksum = checksum

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(stateFile), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	return atomicWrite(stateFile, data)
}

// LoadState reads and validates the export state from disk, verifying both
// the schema version and the stored checksum. Returns (nil, nil) when no
// state file exists yet, so a first incremental run falls back to a full
// export instead of failing.
func LoadState(stateFile string) (*ExportState, error) {
	data, err := os.ReadFile(stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No previous export
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", stateFile, err)
	}

	var st ExportState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("state file is corrupted (invalid JSON): %w", err)
	}

	if st.Version != CurrentVersion {
		return nil, fmt.Errorf("state file version (%d) is incompatible with current version (%d)",
			st.Version, CurrentVersion)
	}

	// Recompute the checksum over everything but the checksum field itself.
	saved := st.Checksum
	st.Checksum = ""
	computed, err := calculateChecksum(&st)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate checksum for validation: %w", err)
	}
	if saved != computed {
		return nil, fmt.Errorf("state file is corrupted (checksum mismatch)")
	}
	st.Checksum = saved

	return &st, nil
}

// DeleteState removes the state file for a dataset, resetting incremental
// exports to a clean slate. Deleting a file that never existed is not an
// error.
func DeleteState(stateFile string) error {
	if err := os.Remove(stateFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state file: %w", err)
	}
	return nil
}

// atomicWrite writes data to path via a temporary file in the same
// directory: write, fsync, then rename. Readers observe either the old
// complete file or the new complete file, never a partial write.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}

	if err := syncFile(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// syncFile flushes a written file to stable storage before the rename
// that publishes it.
func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open temp file for sync: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return nil
}

// calculateChecksum computes the SHA256 hash of the state's JSON encoding
// with the checksum field zeroed, so the stored hash covers everything
// except itself.
func calculateChecksum(st *ExportState) (string, error) {
	cp := *st
	cp.Checksum = ""

	data, err := json.Marshal(cp)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
