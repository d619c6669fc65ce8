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

// Package sqlite implements the backing-store Query contract on top of a
// SQLite database. A dataset is a table with a unique ordering key; queries
// support projection, opaque filters, and expansion of one-to-many related
// tables.
//
// Expanded relations are where the fetch-granularity contract comes from: a
// query that expands children cannot serve the default single-pass cursor,
// because child rows are batch-prefetched per chunk of parents. Such a
// query's Cursor fails with errors.ErrNeedsFetchGranularity and the caller
// (normally the row source) retries with ChunkedCursor.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	tberrors "github.com/colour-white/tablerender/internal/errors"
)

// Store is a handle to a SQLite database containing exportable datasets.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at path. The connection is configured with
// WAL journaling and a busy timeout, and capped to a single connection since
// SQLite supports only one writer.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w: %w", path, tberrors.ErrStore, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dataset returns a query over the named table. The table's records are
// ordered by the key column ("id" unless overridden with WithKey), which must
// contain unique values for chunked iteration to be correct.
func (s *Store) Dataset(table string, opts ...QueryOption) *Query {
	q := &Query{
		db:    s.db,
		table: table,
		key:   "id",
		limit: -1,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// quoteIdent quotes a SQL identifier so table and column names can never
// terminate the quoted context.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// wrapQueryErr classifies a database error: missing tables become
// ErrDatasetNotFound, everything else a generic store failure.
func wrapQueryErr(table string, err error) error {
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("table %q: %w: %w", table, tberrors.ErrDatasetNotFound, err)
	}
	return fmt.Errorf("table %q: %w: %w", table, tberrors.ErrStore, err)
}
