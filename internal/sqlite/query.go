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
	"fmt"
	"strings"

	tberrors "github.com/colour-white/tablerender/internal/errors"
	"github.com/colour-white/tablerender/internal/row"
	"github.com/colour-white/tablerender/internal/source"
)

// QueryOption configures a dataset query at construction time.
type QueryOption func(*Query)

// WithColumns restricts the projection to the given columns. The ordering key
// is added automatically if missing, since chunked iteration needs it.
func WithColumns(columns ...string) QueryOption {
	return func(q *Query) { q.columns = columns }
}

// WithKey overrides the ordering key column. The column must hold unique
// values.
func WithKey(column string) QueryOption {
	return func(q *Query) { q.key = column }
}

// WithFilter applies an opaque SQL predicate to the dataset. The expression
// is passed through verbatim with its placeholder arguments; filtering
// semantics are the caller's business.
func WithFilter(expr string, args ...any) QueryOption {
	return func(q *Query) {
		q.filter = expr
		q.filterArgs = args
	}
}

// WithStartAfter skips records whose ordering key is at or below value.
// Used for incremental export: value is the last key of a previous run.
func WithStartAfter(value any) QueryOption {
	return func(q *Query) {
		q.startAfter = value
		q.hasStart = true
	}
}

// WithExpand attaches the rows of a related table to each record, as a slice
// of child rows under field. foreignKey is the child column referencing the
// parent's ordering key. Expanding relations forces batched fetch: the
// default cursor becomes unavailable.
func WithExpand(field, table, foreignKey string) QueryOption {
	return func(q *Query) {
		q.expand = append(q.expand, expansion{field: field, table: table, foreignKey: foreignKey})
	}
}

// expansion describes a one-to-many relation prefetched into parent rows.
type expansion struct {
	field      string
	table      string
	foreignKey string
}

// Query is an opaque handle to an ordered subset of a SQLite table. It
// implements source.Query. Narrowing operations copy the handle; no SQL runs
// until a fetch method is called.
type Query struct {
	db         *sql.DB
	table      string
	columns    []string
	key        string
	filter     string
	filterArgs []any
	limit      int
	expand     []expansion
	startAfter any
	hasStart   bool
}

var _ source.Query = (*Query)(nil)

func (q *Query) clone() *Query {
	dup := *q
	dup.columns = append([]string(nil), q.columns...)
	dup.filterArgs = append([]any(nil), q.filterArgs...)
	dup.expand = append([]expansion(nil), q.expand...)
	return &dup
}

// Restrict implements source.Query.
func (q *Query) Restrict(n int) source.Query {
	dup := q.clone()
	if dup.limit < 0 || n < dup.limit {
		dup.limit = n
	}
	return dup
}

// FetchAll implements source.Query.
func (q *Query) FetchAll(ctx context.Context) ([]row.Row, error) {
	stmt, args := q.selectSQL(false, q.limit)
	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, wrapQueryErr(q.table, err)
	}
	out, err := scanRows(rows)
	if err != nil {
		return nil, wrapQueryErr(q.table, err)
	}
	if err := q.attachRelations(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Cursor implements source.Query. The default strategy streams directly off
// a single database cursor; it cannot serve queries with expanded relations,
// which need their children prefetched per batch of parents.
func (q *Query) Cursor(ctx context.Context) (row.Seq, error) {
	if len(q.expand) > 0 {
		fields := make([]string, 0, len(q.expand))
		for _, ex := range q.expand {
			fields = append(fields, ex.field)
		}
		return nil, fmt.Errorf("query on %q expands relations %s; %w",
			q.table, strings.Join(fields, ", "), tberrors.ErrNeedsFetchGranularity)
	}

	stmt, args := q.selectSQL(false, q.limit)
	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, wrapQueryErr(q.table, err)
	}
	return newRowsCursor(q.table, rows), nil
}

// ChunkedCursor implements source.Query. Records are fetched chunkSize at a
// time using keyset pagination on the ordering key, with related tables
// prefetched per chunk.
func (q *Query) ChunkedCursor(ctx context.Context, chunkSize int) (row.Seq, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", chunkSize, tberrors.ErrConfiguration)
	}
	return &chunkedCursor{
		ctx:       ctx,
		q:         q.clone(),
		chunkSize: chunkSize,
		remaining: q.limit,
	}, nil
}

// Count returns the number of records the query covers before any limit,
// used for progress reporting.
func (q *Query) Count(ctx context.Context) (int, error) {
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(q.table))
	args := append([]any(nil), q.filterArgs...)
	var conds []string
	if q.filter != "" {
		conds = append(conds, "("+q.filter+")")
	}
	if q.hasStart {
		conds = append(conds, quoteIdent(q.key)+" > ?")
		args = append(args, q.startAfter)
	}
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	var n int
	if err := q.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, wrapQueryErr(q.table, err)
	}
	return n, nil
}

// selectSQL builds the base SELECT for this query. When afterKey is true the
// statement carries an extra "key > ?" placeholder for keyset continuation,
// appended to args by the caller. limit < 0 means no LIMIT clause.
func (q *Query) selectSQL(afterKey bool, limit int) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.selectList())
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(q.table))

	args := append([]any(nil), q.filterArgs...)
	var conds []string
	if q.filter != "" {
		conds = append(conds, "("+q.filter+")")
	}
	if q.hasStart {
		conds = append(conds, quoteIdent(q.key)+" > ?")
		args = append(args, q.startAfter)
	}
	if afterKey {
		conds = append(conds, quoteIdent(q.key)+" > ?")
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(quoteIdent(q.key))

	if limit >= 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	return b.String(), args
}

func (q *Query) selectList() string {
	if len(q.columns) == 0 {
		return "*"
	}
	cols := q.columns
	hasKey := false
	for _, c := range cols {
		if c == q.key {
			hasKey = true
			break
		}
	}
	if !hasKey {
		cols = append(append([]string(nil), cols...), q.key)
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// attachRelations prefetches each expanded relation for the given batch of
// parent rows and attaches the children in place. One query per relation per
// batch.
func (q *Query) attachRelations(ctx context.Context, parents []row.Row) error {
	if len(q.expand) == 0 || len(parents) == 0 {
		return nil
	}

	keys := make([]any, 0, len(parents))
	for _, p := range parents {
		keys = append(keys, p[q.key])
	}

	for _, ex := range q.expand {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
		stmt := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s) ORDER BY %s",
			quoteIdent(ex.table), quoteIdent(ex.foreignKey), placeholders, quoteIdent(ex.foreignKey))

		rows, err := q.db.QueryContext(ctx, stmt, keys...)
		if err != nil {
			return wrapQueryErr(ex.table, err)
		}
		children, err := scanRows(rows)
		if err != nil {
			return wrapQueryErr(ex.table, err)
		}

		grouped := make(map[string][]row.Row, len(parents))
		for _, child := range children {
			k := fmt.Sprint(child[ex.foreignKey])
			grouped[k] = append(grouped[k], child)
		}
		for _, p := range parents {
			group := grouped[fmt.Sprint(p[q.key])]
			if group == nil {
				group = []row.Row{}
			}
			p[ex.field] = group
		}
	}
	return nil
}
