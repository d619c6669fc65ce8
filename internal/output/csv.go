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

package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/colour-white/tablerender/internal/row"
)

// CSVWriter streams rows as CSV with a header line. Column order is
// taken from the WithFields option, or derived from the sorted keys of
// the first row written. Rows missing a column produce an empty cell;
// keys outside the column set are dropped.
type CSVWriter struct {
	mu        sync.Mutex
	writer    *csv.Writer
	fields    []string
	wroteHead bool
	count     int
	closeFunc func() error
}

// CSVOption configures a CSVWriter.
type CSVOption func(*CSVWriter)

// WithFields fixes the CSV column set and order. Without it, the
// columns are the sorted keys of the first row.
func WithFields(fields []string) CSVOption {
	return func(w *CSVWriter) {
		w.fields = fields
	}
}

// NewCSVWriter creates a new CSV writer that writes to the specified output.
func NewCSVWriter(w io.Writer, opts ...CSVOption) *CSVWriter {
	cw := &CSVWriter{writer: csv.NewWriter(w)}
	for _, opt := range opts {
		opt(cw)
	}
	return cw
}

// NewCSVFileWriter creates a new CSV writer that writes to a file.
// The caller must call Close() when done to ensure the file is properly closed.
func NewCSVFileWriter(filename string, opts ...CSVOption) (*CSVWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	cw := &CSVWriter{
		writer:    csv.NewWriter(file),
		closeFunc: file.Close,
	}
	for _, opt := range opts {
		opt(cw)
	}
	return cw, nil
}

// Write writes a single row as a CSV record, emitting the header line
// first if it has not been written yet. Each row is flushed immediately.
func (w *CSVWriter) Write(r row.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.wroteHead {
		if len(w.fields) == 0 {
			w.fields = sortedKeys(r)
		}
		if err := w.writer.Write(w.fields); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		w.wroteHead = true
	}

	record := make([]string, len(w.fields))
	for i, field := range w.fields {
		cell, err := formatCell(r[field])
		if err != nil {
			return fmt.Errorf("failed to encode field %q: %w", field, err)
		}
		record[i] = cell
	}

	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush row: %w", err)
	}

	w.count++
	return nil
}

// Count returns the number of data rows written, excluding the header.
func (w *CSVWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes pending output and closes the underlying writer if
// it's a file.
func (w *CSVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if w.closeFunc != nil {
		return w.closeFunc()
	}
	return nil
}

func sortedKeys(r row.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatCell renders a row value as a CSV cell. Scalars use their
// natural text form; nested structures (expanded relations, embedded
// objects) are encoded as JSON.
func formatCell(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case time.Time:
		return val.Format(time.RFC3339), nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
