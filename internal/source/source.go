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

	tberrors "github.com/colour-white/tablerender/internal/errors"
	"github.com/colour-white/tablerender/internal/row"
)

// DefaultChunkSize is the fetch granularity used when a store demands chunked
// iteration and the caller has not configured one. Large enough to keep
// round-trips cheap, small enough to keep streaming memory-bounded.
const DefaultChunkSize = 1000

// RowSource obtains records from a Query with either full materialization or
// bounded-memory iteration, hiding backing-store quirks from the pipeline.
type RowSource struct {
	chunkSize int
}

// New creates a RowSource with the given fallback chunk size. A zero or
// negative value selects DefaultChunkSize.
func New(chunkSize int) *RowSource {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &RowSource{chunkSize: chunkSize}
}

// ChunkSize returns the fetch granularity used for chunked fallback.
func (s *RowSource) ChunkSize() int {
	return s.chunkSize
}

// Materialize forces full evaluation of the query into memory. Store failures
// are propagated unchanged.
func (s *RowSource) Materialize(ctx context.Context, q Query) ([]row.Row, error) {
	return q.FetchAll(ctx)
}

// Iterate returns a lazy, single-pass sequence over the query's records.
//
// Cursor acquisition is a two-phase attempt. The store's default zero-copy
// strategy is tried first; if it reports that a fetch granularity must be
// specified (the query carries joined or prefetched relations the store has
// to batch-load), Iterate transparently retries with an explicit chunked
// cursor. The fallback happens at most once per call, and only for that
// precondition: any other store failure is propagated unchanged, with no
// retry.
func (s *RowSource) Iterate(ctx context.Context, q Query) (row.Seq, error) {
	seq, err := q.Cursor(ctx)
	if err == nil {
		return seq, nil
	}
	if !errors.Is(err, tberrors.ErrNeedsFetchGranularity) {
		return nil, err
	}
	return q.ChunkedCursor(ctx, s.chunkSize)
}
