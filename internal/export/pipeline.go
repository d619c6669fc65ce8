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

// Package export orchestrates tabular exports: it decides eager versus
// streaming delivery, applies row limits as store-side restrictions, runs the
// optional field transform, and hands the caller a Result it can drain into
// any transport.
package export

import (
	"context"
	"fmt"

	tberrors "github.com/colour-white/tablerender/internal/errors"
	"github.com/colour-white/tablerender/internal/row"
	"github.com/colour-white/tablerender/internal/source"
)

// Paginator narrows an already limit-restricted query to the page the caller
// wants. It is supplied by the caller context; ok=false means no further
// narrowing.
type Paginator interface {
	Paginate(q source.Query) (page source.Query, ok bool)
}

// Options configures a single export.
type Options struct {
	// Streaming selects lazy, incrementally produced output instead of a
	// single materialized slice.
	Streaming bool

	// RowLimit caps the number of exported rows. nil means unbounded. The
	// limit is pushed into the query before any fetch so it reduces
	// store-side work rather than truncating fetched data.
	RowLimit *int

	// ChunkSize is the fetch granularity used when the store requires
	// chunked iteration. Zero selects source.DefaultChunkSize.
	ChunkSize int

	// Transform optionally converts records into output rows. Streaming
	// exports require a RecordTransformer.
	Transform Transformer

	// Paginator optionally narrows non-streaming exports to a single page.
	// Limit and pagination compose: limit first, then page.
	Paginator Paginator
}

// Pipeline produces export results from backing-store queries.
type Pipeline struct {
	src *source.RowSource
}

// New creates a Pipeline. chunkSize is the default fetch granularity for
// chunked iteration; zero selects source.DefaultChunkSize. Options.ChunkSize
// overrides it per export.
func New(chunkSize int) *Pipeline {
	return &Pipeline{src: source.New(chunkSize)}
}

// Export produces the rows of q according to opts.
//
// Misconfiguration is reported here, synchronously: a caller never receives a
// partially consumable sequence only to discover the export was invalid.
func (p *Pipeline) Export(ctx context.Context, q source.Query, opts Options) (Result, error) {
	if opts.RowLimit != nil {
		if *opts.RowLimit < 0 {
			return Result{}, fmt.Errorf("row limit must be non-negative, got %d: %w", *opts.RowLimit, tberrors.ErrConfiguration)
		}
		q = q.Restrict(*opts.RowLimit)
	}

	src := p.src
	if opts.ChunkSize > 0 && opts.ChunkSize != src.ChunkSize() {
		src = source.New(opts.ChunkSize)
	}

	if !opts.Streaming {
		return p.exportEager(ctx, q, src, opts)
	}
	return p.exportStreaming(ctx, q, src, opts)
}

// exportEager materializes the query and applies the transform to the whole
// sequence in one call, preserving list-wide transform semantics.
func (p *Pipeline) exportEager(ctx context.Context, q source.Query, src *source.RowSource, opts Options) (Result, error) {
	if opts.Paginator != nil {
		if page, ok := opts.Paginator.Paginate(q); ok {
			q = page
		}
	}

	rows, err := src.Materialize(ctx, q)
	if err != nil {
		return Result{}, err
	}

	if opts.Transform != nil {
		rows, err = opts.Transform.TransformMany(rows, opts.Transform.NewContext())
		if err != nil {
			return Result{}, fmt.Errorf("transform failed: %w", err)
		}
	}
	return Materialized(rows), nil
}

// exportStreaming returns a lazy sequence with the transform applied one
// record per pull. The transform capability is resolved before any store work
// so misconfiguration surfaces before a single row is fetched.
func (p *Pipeline) exportStreaming(ctx context.Context, q source.Query, src *source.RowSource, opts Options) (Result, error) {
	var rt RecordTransformer
	if opts.Transform != nil {
		var ok bool
		if rt, ok = opts.Transform.(RecordTransformer); !ok {
			return Result{}, fmt.Errorf("streaming export requires a per-record transformer, %T transforms batches only: %w",
				opts.Transform, tberrors.ErrConfiguration)
		}
	}

	seq, err := src.Iterate(ctx, q)
	if err != nil {
		return Result{}, err
	}

	if rt != nil {
		tc := rt.NewContext()
		seq = row.Map(seq, func(r row.Row) (row.Row, error) {
			return rt.TransformOne(r, tc)
		})
	}
	return Streamed(seq), nil
}
