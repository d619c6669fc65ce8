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

package source

import (
	"context"
	"fmt"

	tberrors "github.com/colour-white/tablerender/internal/errors"
	"github.com/colour-white/tablerender/internal/row"
)

// MockQuery is a mock implementation of the Query interface for testing.
type MockQuery struct {
	// Rows to serve, in store order
	Rows []row.Row

	// Behavior flags
	NeedsGranularity bool  // default cursor demands a chunk size
	CursorErr        error // default cursor fails with this error
	FetchAllErr      error // full evaluation fails with this error

	// Track calls for verification. Shared across Restrict copies so a test
	// can observe store-side work regardless of narrowing.
	Calls *MockCalls

	limit int
}

// MockCalls records store-side activity for assertions.
type MockCalls struct {
	FetchAll      int
	Cursor        int
	ChunkedCursor int
	ChunkFetches  int
	LastChunkSize int
	RestrictArgs  []int
}

// NewMockQuery creates a mock query serving the given rows.
func NewMockQuery(rows []row.Row) *MockQuery {
	return &MockQuery{
		Rows:  rows,
		Calls: &MockCalls{},
		limit: -1,
	}
}

// Restrict implements the Query interface. The returned copy shares call
// counters with the original.
func (m *MockQuery) Restrict(n int) Query {
	m.Calls.RestrictArgs = append(m.Calls.RestrictArgs, n)
	clone := *m
	if clone.limit < 0 || n < clone.limit {
		clone.limit = n
	}
	return &clone
}

// FetchAll implements the Query interface.
func (m *MockQuery) FetchAll(ctx context.Context) ([]row.Row, error) {
	m.Calls.FetchAll++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FetchAllErr != nil {
		return nil, m.FetchAllErr
	}
	return m.effectiveRows(), nil
}

// Cursor implements the Query interface.
func (m *MockQuery) Cursor(ctx context.Context) (row.Seq, error) {
	m.Calls.Cursor++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.NeedsGranularity {
		return nil, fmt.Errorf("default cursor unavailable: %w", tberrors.ErrNeedsFetchGranularity)
	}
	if m.CursorErr != nil {
		return nil, m.CursorErr
	}
	return row.FromRows(m.effectiveRows()), nil
}

// ChunkedCursor implements the Query interface. Each chunk-sized batch fetch
// increments Calls.ChunkFetches, letting tests verify how many chunk
// boundaries an iteration crossed.
func (m *MockQuery) ChunkedCursor(ctx context.Context, chunkSize int) (row.Seq, error) {
	m.Calls.ChunkedCursor++
	m.Calls.LastChunkSize = chunkSize
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", chunkSize, tberrors.ErrConfiguration)
	}

	rows := m.effectiveRows()
	var (
		idx    int
		buf    []row.Row
		bufIdx int
	)
	return row.SeqFunc(func() (row.Row, error) {
		if bufIdx >= len(buf) {
			if idx >= len(rows) {
				return nil, row.Done
			}
			end := idx + chunkSize
			if end > len(rows) {
				end = len(rows)
			}
			m.Calls.ChunkFetches++
			buf = rows[idx:end]
			idx = end
			bufIdx = 0
		}
		r := buf[bufIdx]
		bufIdx++
		return r, nil
	}), nil
}

func (m *MockQuery) effectiveRows() []row.Row {
	if m.limit >= 0 && m.limit < len(m.Rows) {
		return m.Rows[:m.limit]
	}
	return m.Rows
}
