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

package export

import "github.com/colour-white/tablerender/internal/row"

// Result is the outcome of an export: either an ordered materialized slice of
// rows or a lazy sequence, tagged explicitly. Consumers branch on Streaming
// rather than inferring the shape of the data.
type Result struct {
	rows      []row.Row
	seq       row.Seq
	streaming bool
}

// Materialized wraps an eagerly produced slice of rows.
func Materialized(rows []row.Row) Result {
	return Result{rows: rows}
}

// Streamed wraps a lazy sequence. The sequence is single-pass; the Result
// inherits that property.
func Streamed(seq row.Seq) Result {
	return Result{seq: seq, streaming: true}
}

// Streaming reports whether the result is a lazy sequence.
func (r Result) Streaming() bool {
	return r.streaming
}

// Rows returns the materialized rows. It is nil for a streaming result.
func (r Result) Rows() []row.Row {
	return r.rows
}

// Seq returns the rows as a lazy sequence regardless of variant. For a
// materialized result a fresh sequence over the slice is returned; for a
// streaming result the underlying single-pass sequence is returned, so Seq
// should be called once.
func (r Result) Seq() row.Seq {
	if r.streaming {
		return r.seq
	}
	return row.FromRows(r.rows)
}

// Collect drains the result into a slice. For a materialized result this is
// the slice itself.
func (r Result) Collect() ([]row.Row, error) {
	if r.streaming {
		return row.Collect(r.seq)
	}
	return r.rows, nil
}

// ApplyRowsLimit truncates already-produced data to the first limit rows. It
// exists for callers that assemble their own data instead of going through a
// Query. A nil limit means unbounded. The variant is preserved: a lazy
// sequence stays lazy and is never forced, consuming at most limit upstream
// items when drained.
func ApplyRowsLimit(res Result, limit *int) Result {
	if limit == nil {
		return res
	}
	n := *limit
	if n < 0 {
		n = 0
	}
	if res.streaming {
		return Streamed(row.Limit(res.seq, n))
	}
	if n > len(res.rows) {
		n = len(res.rows)
	}
	return Materialized(res.rows[:n])
}
