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

// ordinalKey is the context slot holding the next row number.
const ordinalKey = "ordinal"

// DefaultOrdinalField is the output field name used when OrdinalTransformer
// is not configured with one.
const DefaultOrdinalField = "row_number"

// OrdinalTransformer numbers output rows sequentially starting at 1. In
// batch mode the whole list is numbered in one pass; in streaming mode the
// counter lives in the shared transform context, so numbering stays
// continuous across the iteration.
type OrdinalTransformer struct {
	// Field is the output field to write the row number to.
	// Defaults to DefaultOrdinalField.
	Field string
}

var _ RecordTransformer = (*OrdinalTransformer)(nil)

// NewContext implements Transformer.
func (o *OrdinalTransformer) NewContext() Context {
	return Context{ordinalKey: 1}
}

// TransformMany implements Transformer.
func (o *OrdinalTransformer) TransformMany(rows []row.Row, tc Context) ([]row.Row, error) {
	out := make([]row.Row, 0, len(rows))
	for _, r := range rows {
		numbered, err := o.TransformOne(r, tc)
		if err != nil {
			return nil, err
		}
		out = append(out, numbered)
	}
	return out, nil
}

// TransformOne implements RecordTransformer.
func (o *OrdinalTransformer) TransformOne(r row.Row, tc Context) (row.Row, error) {
	n, _ := tc[ordinalKey].(int)
	out := r.Clone()
	out[o.field()] = n
	tc[ordinalKey] = n + 1
	return out, nil
}

func (o *OrdinalTransformer) field() string {
	if o.Field != "" {
		return o.Field
	}
	return DefaultOrdinalField
}
