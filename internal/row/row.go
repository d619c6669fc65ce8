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

// Package row defines the unit of export output and the lazy sequence
// abstraction used to produce it incrementally. A Row is created on demand by
// a backing store, never mutated after it has been yielded, and owned by the
// consumer once produced.
package row

// Row is a single record of export output, a mapping from field name to value.
type Row map[string]any

// Clone returns a shallow copy of the row. Transformers that add fields must
// clone first so rows already yielded downstream are never mutated.
func (r Row) Clone() Row {
	out := make(Row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}
