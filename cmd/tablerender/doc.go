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

// Package main implements the tablerender command-line interface.
// This tool exports tabular datasets from a local SQLite database or a
// remote record service and writes them in NDJSON or CSV format.
//
// The CLI supports:
//   - Streaming export with bounded memory (default behavior)
//   - Eager export for callers that want a fully materialized pass
//   - Row limits, column selection, SQL filters, and relation expansion
//   - Incremental exports that resume from the last exported key
//   - Customizable output destinations (stdout or file)
//   - Bearer token authentication for remote endpoints
//   - Graceful error handling with appropriate exit codes
//
// Usage:
//
//	tablerender export <dataset> [flags]
//	tablerender count <dataset> [flags]
//
// Example:
//
//	tablerender export events --store records.db --format csv --output events.csv
//	tablerender export events --endpoint https://records.example.com/graphql --limit 1000
//
// Exit codes:
//   - 0: Success
//   - 1: General error
//   - 2: Configuration or usage error
//   - 3: Store or network error
package main
