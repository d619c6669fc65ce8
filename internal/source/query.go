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

// Package source abstracts over queryable backing stores. A Query is an
// opaque handle to a filtered, ordered set of records; the RowSource turns it
// into either a fully materialized slice or a memory-bounded lazy sequence,
// choosing the fetch strategy adaptively.
package source

import (
	"context"

	"github.com/colour-white/tablerender/internal/row"
)

// Query is an opaque handle to an ordered set of records in a backing store.
// Implementations exist for SQLite tables and remote GraphQL datasets; tests
// use MockQuery.
//
// All narrowing operations are cheap: they describe work for the store to do,
// they never force materialization.
type Query interface {
	// Restrict returns a new Query covering only the first n records in the
	// store's defined order. Restrictions compose: restricting an already
	// restricted query keeps the tighter bound.
	Restrict(n int) Query

	// FetchAll evaluates the query and returns all records in order.
	// Failures are wrapped with errors.ErrStore.
	FetchAll(ctx context.Context) ([]row.Row, error)

	// Cursor returns a lazy sequence using the store's default incremental
	// strategy. It fails with errors.ErrNeedsFetchGranularity when that
	// strategy cannot serve the query's current configuration, for example
	// when related collections must be batch-prefetched. Any other failure
	// is wrapped with errors.ErrStore.
	Cursor(ctx context.Context) (row.Seq, error)

	// ChunkedCursor returns a lazy sequence that fetches chunkSize records
	// per store round-trip. chunkSize must be positive.
	ChunkedCursor(ctx context.Context, chunkSize int) (row.Seq, error)
}
