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

// Package output provides writers for exported rows in NDJSON (Newline
// Delimited JSON) and CSV formats. NDJSON is a convenient format for
// streaming large datasets where each line contains a valid JSON
// object; CSV is the traditional tabular interchange format with a
// header line and one record per row.
//
// Both writers are thread-safe, flush every row immediately, and are
// designed to handle large volumes of data without accumulating rows
// in memory. They share the OutputWriter interface so the export logic
// can select a format at runtime.
//
// Example usage:
//
//	// Write to a file
//	w, err := output.NewFileWriter("data.ndjson")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	// Write rows
//	for _, r := range rows {
//	    if err := w.Write(r); err != nil {
//	        log.Printf("Failed to write row: %v", err)
//	    }
//	}
//
//	fmt.Printf("Wrote %d rows\n", w.Count())
package output
