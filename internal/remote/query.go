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

package remote

import (
	"context"

	"github.com/colour-white/tablerender/internal/row"
	"github.com/colour-white/tablerender/internal/source"
)

// Query is an opaque handle to a remote dataset's record connection. It
// implements source.Query. Records arrive in the server's defined order;
// narrowing operations only adjust how many are requested.
type Query struct {
	client   *Client
	dataset  string
	pageSize int
	limit    int
}

var _ source.Query = (*Query)(nil)

// Restrict implements source.Query.
func (q *Query) Restrict(n int) source.Query {
	dup := *q
	if dup.limit < 0 || n < dup.limit {
		dup.limit = n
	}
	return &dup
}

// FetchAll implements source.Query. It pages through the whole connection,
// requesting no more than the query limit.
func (q *Query) FetchAll(ctx context.Context) ([]row.Row, error) {
	return row.Collect(q.newCursor(ctx, q.pageSize))
}

// Cursor implements source.Query. A remote connection is paginated by
// construction, so the default strategy simply pages lazily at the client's
// configured page size; the fetch-granularity precondition never arises.
func (q *Query) Cursor(ctx context.Context) (row.Seq, error) {
	return q.newCursor(ctx, q.pageSize), nil
}

// ChunkedCursor implements source.Query.
func (q *Query) ChunkedCursor(ctx context.Context, chunkSize int) (row.Seq, error) {
	return q.newCursor(ctx, chunkSize), nil
}

// Count returns the total number of records in the dataset, used for
// progress reporting.
func (q *Query) Count(ctx context.Context) (int, error) {
	return q.client.count(ctx, q.dataset)
}

func (q *Query) newCursor(ctx context.Context, pageSize int) *pageCursor {
	return &pageCursor{
		ctx:       ctx,
		q:         q,
		pageSize:  pageSize,
		remaining: q.limit,
		hasMore:   true,
	}
}

// pageCursor walks a record connection one page per buffer refill. Each
// downstream pull advances at most one page fetch, and no page is requested
// until a row from it is pulled.
type pageCursor struct {
	ctx       context.Context
	q         *Query
	pageSize  int
	remaining int // rows still allowed under the query limit, -1 unbounded
	after     string
	hasMore   bool
	err       error

	buf []row.Row
	idx int
}

// Next implements row.Seq.
func (c *pageCursor) Next() (row.Row, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.idx >= len(c.buf) {
		if err := c.fetch(); err != nil {
			c.err = err
			return nil, err
		}
		if len(c.buf) == 0 {
			c.err = row.Done
			return nil, row.Done
		}
	}
	r := c.buf[c.idx]
	c.idx++
	return r, nil
}

func (c *pageCursor) fetch() error {
	first := c.pageSize
	if c.remaining >= 0 && c.remaining < first {
		first = c.remaining
	}
	c.buf = nil
	c.idx = 0
	if first == 0 || !c.hasMore {
		return nil
	}

	page, err := c.q.client.fetchPage(c.ctx, c.q.dataset, first, c.after)
	if err != nil {
		return err
	}

	c.buf = page.rows
	c.after = page.endCursor
	c.hasMore = page.hasNextPage
	if c.remaining >= 0 {
		c.remaining -= len(page.rows)
		if c.remaining < 0 {
			// Server over-delivered; trim to the limit.
			c.buf = c.buf[:len(c.buf)+c.remaining]
			c.remaining = 0
		}
	}
	return nil
}
