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

package export

import "github.com/colour-white/tablerender/internal/row"

// Context carries state shared across the transform invocations of a single
// export. It is built once per export and reused: in streaming mode every
// per-record invocation sees the same context, which lets a transformer keep
// running state such as ordinal counters.
type Context map[string]any

// Transformer converts backing-store records into output rows. The batch
// method receives the whole materialized sequence in one call, so a
// transformer may compute list-wide results (ordinal numbering, totals)
// that a per-record conversion could not.
type Transformer interface {
	// NewContext builds the shared transform context for one export.
	NewContext() Context

	// TransformMany converts a materialized sequence in a single call.
	TransformMany(rows []row.Row, tc Context) ([]row.Row, error)
}

// RecordTransformer is a Transformer that can also convert one record at a
// time. Streaming exports require this capability: without it the pipeline
// rejects the export synchronously rather than failing mid-sequence.
type RecordTransformer interface {
	Transformer

	// TransformOne converts a single record. The context is the same value
	// across the whole iteration.
	TransformOne(r row.Row, tc Context) (row.Row, error)
}
