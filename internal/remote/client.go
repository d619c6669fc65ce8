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

// Package remote implements the backing-store Query contract over a GraphQL
// record-export API. Datasets are exposed as cursor-paginated record
// connections, so incremental iteration maps directly onto the server's
// paging: the default cursor strategy always works and the fetch-granularity
// fallback never triggers here.
package remote

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shurcooL/graphql"

	"github.com/colour-white/tablerender/internal/row"
)

// defaultPageSize is the records-per-request granularity used when the
// caller has not chosen one.
const defaultPageSize = 100

// Client talks to a remote record-export GraphQL endpoint.
type Client struct {
	client   *graphql.Client
	pageSize int
	retry    *RetryConfig
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithPageSize sets the default records-per-request page size.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRetryConfig overrides the retry behavior for transient network
// failures.
func WithRetryConfig(cfg *RetryConfig) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// NewClient creates a client for the given endpoint, authenticating with the
// provided bearer token. The underlying transport pools connections and caps
// response sizes to keep memory bounded.
func NewClient(endpoint, token string, opts ...ClientOption) *Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	httpClient := &http.Client{
		Transport: &authTransport{
			token: token,
			base:  transport,
		},
	}
	return NewClientWithHTTP(endpoint, httpClient, opts...)
}

// NewClientWithHTTP creates a client using a caller-supplied HTTP client.
// Used by tests to point at a local server.
func NewClientWithHTTP(endpoint string, httpClient *http.Client, opts ...ClientOption) *Client {
	c := &Client{
		client:   graphql.NewClient(endpoint, httpClient),
		pageSize: defaultPageSize,
		retry:    DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dataset returns a query over the named remote dataset.
func (c *Client) Dataset(name string) *Query {
	return &Query{
		client:   c,
		dataset:  name,
		pageSize: c.pageSize,
		limit:    -1,
	}
}

// recordPage is one page of records from the remote connection.
type recordPage struct {
	rows        []row.Row
	hasNextPage bool
	endCursor   string
}

// fetchPage retrieves one page of a dataset's records, retrying transient
// network failures with backoff.
func (c *Client) fetchPage(ctx context.Context, dataset string, first int, after string) (*recordPage, error) {
	var query struct {
		Dataset struct {
			Records struct {
				PageInfo struct {
					HasNextPage graphql.Boolean
					EndCursor   graphql.String
				}
				Nodes []struct {
					Fields []struct {
						Name  graphql.String
						Value graphql.String
					}
				}
			} `graphql:"records(first: $first, after: $after)"`
		} `graphql:"dataset(name: $name)"`
	}

	variables := map[string]interface{}{
		"name":  graphql.String(dataset),
		"first": graphql.Int(int32(first)), // #nosec G115 - page sizes are small
		"after": (*graphql.String)(nil),
	}
	if after != "" {
		variables["after"] = graphql.NewString(graphql.String(after))
	}

	err := c.withRetry(ctx, func() error {
		if qErr := c.client.Query(ctx, &query, variables); qErr != nil {
			return c.mapError(qErr, dataset)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	conn := query.Dataset.Records
	page := &recordPage{
		hasNextPage: bool(conn.PageInfo.HasNextPage),
		endCursor:   string(conn.PageInfo.EndCursor),
		rows:        make([]row.Row, 0, len(conn.Nodes)),
	}
	for _, node := range conn.Nodes {
		r := make(row.Row, len(node.Fields))
		for _, f := range node.Fields {
			r[string(f.Name)] = string(f.Value)
		}
		page.rows = append(page.rows, r)
	}
	return page, nil
}

// count retrieves the total number of records in a dataset, used for
// progress reporting.
func (c *Client) count(ctx context.Context, dataset string) (int, error) {
	var query struct {
		Dataset struct {
			Records struct {
				TotalCount graphql.Int
			} `graphql:"records"`
		} `graphql:"dataset(name: $name)"`
	}
	variables := map[string]interface{}{
		"name": graphql.String(dataset),
	}

	err := c.withRetry(ctx, func() error {
		if qErr := c.client.Query(ctx, &query, variables); qErr != nil {
			return c.mapError(qErr, dataset)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(query.Dataset.Records.TotalCount), nil
}

// isNotFoundMessage reports whether a GraphQL error message indicates a
// missing dataset.
func isNotFoundMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "could not resolve")
}
