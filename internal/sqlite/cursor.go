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

package sqlite

import (
	"context"
	"database/sql"

	"github.com/colour-white/tablerender/internal/row"
)

// rowsCursor adapts a live *sql.Rows to the row.Seq interface. One row is
// scanned per pull; the database cursor is the only buffered state.
type rowsCursor struct {
	table string
	rows  *sql.Rows
	done  bool
	err   error
}

func newRowsCursor(table string, rows *sql.Rows) *rowsCursor {
	return &rowsCursor{table: table, rows: rows}
}

// Next implements row.Seq.
func (c *rowsCursor) Next() (row.Row, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.done {
		return nil, row.Done
	}
	if !c.rows.Next() {
		c.done = true
		if err := c.rows.Err(); err != nil {
			c.err = wrapQueryErr(c.table, err)
			return nil, c.err
		}
		_ = c.rows.Close()
		return nil, row.Done
	}

	r, err := scanRow(c.rows)
	if err != nil {
		c.err = wrapQueryErr(c.table, err)
		_ = c.rows.Close()
		return nil, c.err
	}
	return r, nil
}

// chunkedCursor fetches records in keyset-paginated batches, prefetching
// expanded relations per batch. Each downstream pull advances at most one
// batch fetch; nothing beyond the current batch is held in memory.
type chunkedCursor struct {
	ctx       context.Context
	q         *Query
	chunkSize int

	remaining int // rows still allowed under the query limit, -1 unbounded
	lastKey   any
	started   bool
	done      bool
	err       error

	buf []row.Row
	idx int
}

// Next implements row.Seq.
func (c *chunkedCursor) Next() (row.Row, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.idx >= len(c.buf) {
		if c.done {
			return nil, row.Done
		}
		if err := c.fetch(); err != nil {
			c.err = err
			return nil, err
		}
		if len(c.buf) == 0 {
			c.done = true
			return nil, row.Done
		}
	}
	r := c.buf[c.idx]
	c.idx++
	return r, nil
}

// fetch loads the next batch. The batch size is the chunk size capped by
// whatever remains of the query limit; a short batch marks the end of the
// keyset walk.
func (c *chunkedCursor) fetch() error {
	batch := c.chunkSize
	if c.remaining >= 0 && c.remaining < batch {
		batch = c.remaining
	}
	c.buf = nil
	c.idx = 0
	if batch == 0 {
		c.done = true
		return nil
	}

	stmt, args := c.q.selectSQL(c.started, batch)
	if c.started {
		args = append(args, c.lastKey)
	}

	rows, err := c.q.db.QueryContext(c.ctx, stmt, args...)
	if err != nil {
		return wrapQueryErr(c.q.table, err)
	}
	buf, err := scanRows(rows)
	if err != nil {
		return wrapQueryErr(c.q.table, err)
	}
	if err := c.q.attachRelations(c.ctx, buf); err != nil {
		return err
	}

	c.started = true
	if len(buf) > 0 {
		c.lastKey = buf[len(buf)-1][c.q.key]
	}
	if len(buf) < batch {
		c.done = true
	}
	if c.remaining >= 0 {
		c.remaining -= len(buf)
	}
	c.buf = buf
	return nil
}

// scanRows drains a *sql.Rows into generic rows and closes it.
func scanRows(rows *sql.Rows) ([]row.Row, error) {
	defer rows.Close()

	var out []row.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// scanRow scans the current cursor position into a generic row, mapping
// driver byte slices to strings.
func scanRow(rows *sql.Rows) (row.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	r := make(row.Row, len(cols))
	for i, col := range cols {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		r[col] = v
	}
	return r, nil
}
