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

// Package errors defines sentinel errors for consistent error handling across the application.
// These errors map to specific exit codes in the CLI for proper scripting support.
package errors

import "errors"

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrNeedsFetchGranularity is the precondition signal a backing store
	// raises when its default zero-copy cursor cannot serve the query and an
	// explicit chunk size is required instead. It is the only error the row
	// source recovers from automatically.
	ErrNeedsFetchGranularity = errors.New("a fetch granularity must be specified")

	// ErrStore indicates a failure in the backing store other than the
	// fetch-granularity precondition. Always propagated, never retried.
	// Maps to exit code 3.
	ErrStore = errors.New("backing store failure")

	// ErrConfiguration indicates an export was requested with settings the
	// pipeline cannot honor, for example streaming with a batch-only
	// transformer. Reported synchronously, never deferred into a sequence.
	// Maps to exit code 2.
	ErrConfiguration = errors.New("invalid export configuration")

	// ErrDatasetNotFound indicates the named dataset does not exist in the
	// backing store. Maps to exit code 2.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrNetworkFailure indicates a network connection problem while talking
	// to a remote store. Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")
)
