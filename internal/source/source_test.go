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
	"errors"
	"fmt"
	"reflect"
	"testing"

	tberrors "github.com/colour-white/tablerender/internal/errors"
	"github.com/colour-white/tablerender/internal/row"
)

func mockRows(n int) []row.Row {
	rows := make([]row.Row, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, row.Row{"id": i})
	}
	return rows
}

func TestNew_DefaultChunkSize(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "explicit size", in: 250, want: 250},
		{name: "zero selects default", in: 0, want: DefaultChunkSize},
		{name: "negative selects default", in: -5, want: DefaultChunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.in).ChunkSize(); got != tt.want {
				t.Errorf("ChunkSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMaterialize(t *testing.T) {
	q := NewMockQuery(mockRows(3))
	src := New(0)

	got, err := src.Materialize(context.Background(), q)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if !reflect.DeepEqual(got, q.Rows) {
		t.Errorf("Materialize = %v, want %v", got, q.Rows)
	}
	if q.Calls.FetchAll != 1 {
		t.Errorf("FetchAll called %d times, want 1", q.Calls.FetchAll)
	}
}

func TestMaterialize_StoreError(t *testing.T) {
	boom := fmt.Errorf("table missing: %w", tberrors.ErrStore)
	q := NewMockQuery(nil)
	q.FetchAllErr = boom

	if _, err := New(0).Materialize(context.Background(), q); !errors.Is(err, tberrors.ErrStore) {
		t.Errorf("Materialize error = %v, want ErrStore", err)
	}
}

func TestIterate_DefaultCursor(t *testing.T) {
	q := NewMockQuery(mockRows(3))
	src := New(0)

	seq, err := src.Iterate(context.Background(), q)
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	got, err := row.Collect(seq)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if !reflect.DeepEqual(got, q.Rows) {
		t.Errorf("Iterate rows = %v, want %v", got, q.Rows)
	}
	if q.Calls.ChunkedCursor != 0 {
		t.Errorf("chunked cursor used %d times, want 0", q.Calls.ChunkedCursor)
	}
}

func TestIterate_GranularityFallback(t *testing.T) {
	// A store whose default cursor demands a fetch granularity must be
	// retried with the chunked strategy, yielding the same rows in the same
	// order as full evaluation.
	q := NewMockQuery(mockRows(7))
	q.NeedsGranularity = true
	src := New(3)

	seq, err := src.Iterate(context.Background(), q)
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	got, err := row.Collect(seq)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	want, err := q.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("fallback rows = %v, want %v", got, want)
	}

	if q.Calls.Cursor != 1 {
		t.Errorf("default cursor tried %d times, want 1", q.Calls.Cursor)
	}
	if q.Calls.ChunkedCursor != 1 {
		t.Errorf("chunked cursor tried %d times, want 1", q.Calls.ChunkedCursor)
	}
	if q.Calls.LastChunkSize != 3 {
		t.Errorf("fallback chunk size = %d, want 3", q.Calls.LastChunkSize)
	}
}

func TestIterate_UnrelatedErrorPropagates(t *testing.T) {
	boom := fmt.Errorf("disk exploded: %w", tberrors.ErrStore)
	q := NewMockQuery(mockRows(3))
	q.CursorErr = boom

	_, err := New(0).Iterate(context.Background(), q)
	if !errors.Is(err, tberrors.ErrStore) {
		t.Fatalf("Iterate error = %v, want wrapped ErrStore", err)
	}
	if err.Error() != boom.Error() {
		t.Errorf("Iterate error = %q, want %q unchanged", err, boom)
	}
	if q.Calls.ChunkedCursor != 0 {
		t.Errorf("fallback attempted on unrelated error: %d chunked calls", q.Calls.ChunkedCursor)
	}
}

func TestIterate_LazyPull(t *testing.T) {
	// Pulling k rows from a chunked iteration must cross only the chunk
	// boundaries those rows require.
	q := NewMockQuery(mockRows(25))
	q.NeedsGranularity = true
	src := New(10)

	seq, err := src.Iterate(context.Background(), q)
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := seq.Next(); err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
	}
	if q.Calls.ChunkFetches != 1 {
		t.Errorf("5 pulls at chunk size 10 crossed %d chunk fetches, want 1", q.Calls.ChunkFetches)
	}
}

func TestRestrict_Composes(t *testing.T) {
	q := NewMockQuery(mockRows(10))

	narrowed := q.Restrict(7).Restrict(4)
	got, err := narrowed.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("got %d rows, want 4", len(got))
	}

	// The looser bound never widens a tighter one.
	widened := q.Restrict(2).Restrict(9)
	got, err = widened.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d rows, want 2", len(got))
	}
}
