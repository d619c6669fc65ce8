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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	tberrors "github.com/colour-white/tablerender/internal/errors"
	"github.com/colour-white/tablerender/internal/row"
)

// recordServer is a fake record-export GraphQL endpoint serving a single
// dataset of numbered records with cursor pagination.
type recordServer struct {
	name    string
	records int

	// request log for assertions
	firsts []int
	afters []string

	// dropNextConn closes the next connection without responding, to
	// simulate a transient network failure.
	dropNextConn bool
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func (s *recordServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.dropNextConn {
			s.dropNextConn = false
			hj, ok := w.(http.Hijacker)
			if !ok {
				panic("response writer does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				panic(err)
			}
			conn.Close()
			return
		}

		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		name, _ := req.Variables["name"].(string)
		if name != s.name {
			fmt.Fprintf(w, `{"errors":[{"message":"dataset \"%s\" not found"}]}`, name)
			return
		}

		if strings.Contains(req.Query, "totalCount") {
			fmt.Fprintf(w, `{"data":{"dataset":{"records":{"totalCount":%d}}}}`, s.records)
			return
		}

		first := int(req.Variables["first"].(float64))
		start := 0
		if after, ok := req.Variables["after"].(string); ok && after != "" {
			start, _ = strconv.Atoi(after)
		}
		s.firsts = append(s.firsts, first)
		s.afters = append(s.afters, fmt.Sprint(req.Variables["after"]))

		end := start + first
		if end > s.records {
			end = s.records
		}

		nodes := make([]map[string]any, 0, end-start)
		for i := start + 1; i <= end; i++ {
			nodes = append(nodes, map[string]any{
				"fields": []map[string]string{
					{"name": "id", "value": strconv.Itoa(i)},
					{"name": "label", "value": fmt.Sprintf("record-%d", i)},
				},
			})
		}

		resp := map[string]any{
			"data": map[string]any{
				"dataset": map[string]any{
					"records": map[string]any{
						"pageInfo": map[string]any{
							"hasNextPage": end < s.records,
							"endCursor":   strconv.Itoa(end),
						},
						"nodes": nodes,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			panic(err)
		}
	}
}

func newTestClient(t *testing.T, srv *recordServer, opts ...ClientOption) *Client {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)
	return NewClientWithHTTP(ts.URL, ts.Client(), opts...)
}

func TestFetchAll_PagesThrough(t *testing.T) {
	srv := &recordServer{name: "events", records: 5}
	client := newTestClient(t, srv, WithPageSize(2))

	rows, err := client.Dataset("events").FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}
	for i, r := range rows {
		if r["id"] != strconv.Itoa(i+1) {
			t.Errorf("row %d: id = %v, want %d", i, r["id"], i+1)
		}
	}
	if len(srv.firsts) != 3 {
		t.Errorf("server saw %d page requests, want 3", len(srv.firsts))
	}
}

func TestCursor_LazyPaging(t *testing.T) {
	srv := &recordServer{name: "events", records: 10}
	client := newTestClient(t, srv, WithPageSize(3))

	seq, err := client.Dataset("events").Cursor(context.Background())
	if err != nil {
		t.Fatalf("Cursor failed: %v", err)
	}

	// Pulling two rows must cost exactly one page request.
	for i := 0; i < 2; i++ {
		if _, err := seq.Next(); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
	}
	if len(srv.firsts) != 1 {
		t.Errorf("server saw %d page requests after 2 pulls, want 1", len(srv.firsts))
	}

	rest, err := row.Collect(seq)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rest) != 8 {
		t.Errorf("remaining rows = %d, want 8", len(rest))
	}
}

func TestRestrict_CapsRequestSize(t *testing.T) {
	srv := &recordServer{name: "events", records: 100}
	client := newTestClient(t, srv, WithPageSize(50))

	rows, err := client.Dataset("events").Restrict(3).FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// The limit must shrink the page request, not truncate afterwards.
	if srv.firsts[0] != 3 {
		t.Errorf("first page request asked for %d records, want 3", srv.firsts[0])
	}
}

func TestDatasetNotFound(t *testing.T) {
	srv := &recordServer{name: "events", records: 1}
	client := newTestClient(t, srv)

	_, err := client.Dataset("missing").FetchAll(context.Background())
	if !errors.Is(err, tberrors.ErrDatasetNotFound) {
		t.Errorf("FetchAll error = %v, want ErrDatasetNotFound", err)
	}
}

func TestRetry_TransientNetworkFailure(t *testing.T) {
	srv := &recordServer{name: "events", records: 2, dropNextConn: true}
	client := newTestClient(t, srv, WithRetryConfig(&RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}))

	rows, err := client.Dataset("events").FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll failed despite retry: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d rows, want 2", len(rows))
	}
}

func TestCount(t *testing.T) {
	srv := &recordServer{name: "events", records: 42}
	client := newTestClient(t, srv)

	n, err := client.Dataset("events").Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 42 {
		t.Errorf("Count = %d, want 42", n)
	}
}
