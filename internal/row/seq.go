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

package row

import "errors"

// Done is returned by Seq.Next when the sequence has been exhausted. It is a
// terminal signal, not a failure.
var Done = errors.New("no more rows")

// Seq is a pull-based lazy sequence of rows. Each call to Next produces at
// most one row; implementations must not fetch ahead of what has been pulled.
//
// A Seq is finite, single-pass and single-owner: it must not be shared across
// concurrent consumers, and once Next has returned Done or an error it keeps
// returning that result. Cancellation is achieved by the consumer simply
// ceasing to pull.
type Seq interface {
	// Next returns the next row, Done at the end of the sequence, or the
	// first error encountered while producing rows.
	Next() (Row, error)
}

// SeqFunc adapts a function to the Seq interface.
type SeqFunc func() (Row, error)

// Next implements Seq.
func (f SeqFunc) Next() (Row, error) { return f() }

// FromRows returns a sequence over an already-materialized slice of rows.
// The slice is not copied; it must not be modified while the sequence is
// being consumed.
func FromRows(rows []Row) Seq {
	i := 0
	return SeqFunc(func() (Row, error) {
		if i >= len(rows) {
			return nil, Done
		}
		r := rows[i]
		i++
		return r, nil
	})
}

// Collect drains a sequence into a slice. It stops at the first error and
// returns it along with the rows produced so far.
func Collect(seq Seq) ([]Row, error) {
	var rows []Row
	for {
		r, err := seq.Next()
		if err == Done {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, r)
	}
}

// Limit truncates a sequence to its first n rows. The upstream sequence is
// pulled exactly once per row delivered, so truncating to n consumes no more
// than n upstream items.
func Limit(seq Seq, n int) Seq {
	remaining := n
	return SeqFunc(func() (Row, error) {
		if remaining <= 0 {
			return nil, Done
		}
		r, err := seq.Next()
		if err != nil {
			remaining = 0
			return nil, err
		}
		remaining--
		return r, nil
	})
}

// Map applies fn to each row of the upstream sequence, one invocation per
// pull. A failed transform terminates the sequence: the error is returned and
// repeated on subsequent calls, so no rows are silently skipped.
func Map(seq Seq, fn func(Row) (Row, error)) Seq {
	var failed error
	return SeqFunc(func() (Row, error) {
		if failed != nil {
			return nil, failed
		}
		r, err := seq.Next()
		if err != nil {
			failed = err
			return nil, err
		}
		out, err := fn(r)
		if err != nil {
			failed = err
			return nil, err
		}
		return out, nil
	})
}
