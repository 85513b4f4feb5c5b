// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package arrowadapter serves Apache Arrow tables as paged table sources
// and writes rows back out as Parquet, CSV or JSON.
package arrowadapter

import (
	"encoding/json"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"pagedtable/datatable"
)

// typeOf maps an Arrow type onto a column type.
func typeOf(dt arrow.DataType) datatable.DataType {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return datatable.TypeString
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return datatable.TypeInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return datatable.TypeFloat
	case arrow.BOOL:
		return datatable.TypeBool
	case arrow.DATE32, arrow.DATE64:
		return datatable.TypeDate
	case arrow.TIMESTAMP:
		return datatable.TypeTimestamp
	case arrow.DECIMAL128, arrow.DECIMAL256:
		return datatable.TypeDecimal
	case arrow.BINARY, arrow.LARGE_BINARY, arrow.FIXED_SIZE_BINARY:
		return datatable.TypeBinary
	case arrow.STRUCT:
		return datatable.TypeStruct
	case arrow.LIST, arrow.LARGE_LIST, arrow.FIXED_SIZE_LIST:
		return datatable.TypeList
	default:
		return datatable.TypeString
	}
}

// arrowType is the inverse of typeOf used for export. Nested types are
// exported as their formatted text.
func arrowType(dt datatable.DataType) arrow.DataType {
	switch dt {
	case datatable.TypeInt:
		return arrow.PrimitiveTypes.Int64
	case datatable.TypeFloat, datatable.TypeDecimal:
		return arrow.PrimitiveTypes.Float64
	case datatable.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case datatable.TypeDate:
		return arrow.FixedWidthTypes.Date32
	case datatable.TypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	case datatable.TypeBinary:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

// Columns derives the column list from an Arrow schema.
func Columns(schema *arrow.Schema) []datatable.ColumnInfo {
	cols := make([]datatable.ColumnInfo, schema.NumFields())
	for i, f := range schema.Fields() {
		cols[i] = datatable.ColumnInfo{ID: f.Name, Type: typeOf(f.Type)}
	}
	return cols
}

// valueAt converts the Arrow value at pos.
func valueAt(col arrow.Array, pos int) datatable.Value {
	dt := typeOf(col.DataType())
	if col.IsNull(pos) {
		return datatable.NewNullValue(dt)
	}

	switch c := col.(type) {
	case *array.String:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.LargeString:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Int8:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Int16:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Int32:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Int64:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Uint8:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Uint16:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Uint32:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Uint64:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Float16:
		return datatable.NewValue(c.Value(pos).Float32(), dt)
	case *array.Float32:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Float64:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Boolean:
		return datatable.NewValue(c.Value(pos), dt)
	case *array.Date32:
		return datatable.NewValue(c.Value(pos).ToTime(), dt)
	case *array.Date64:
		return datatable.NewValue(c.Value(pos).ToTime(), dt)
	case *array.Timestamp:
		unit := c.DataType().(*arrow.TimestampType).Unit
		return datatable.NewValue(c.Value(pos).ToTime(unit), dt)
	case *array.Decimal128:
		scale := c.DataType().(*arrow.Decimal128Type).Scale
		v := datatable.NewValue(c.Value(pos).ToFloat64(scale), dt)
		v.Formatted = c.Value(pos).ToString(scale)
		return v
	case *array.Binary:
		return datatable.NewValue(append([]byte(nil), c.Value(pos)...), dt)
	case *array.Struct:
		if raw, err := json.Marshal(c.GetOneForMarshal(pos)); err == nil {
			return datatable.NewValue(string(raw), dt)
		}
	}
	return datatable.NewValue(col.ValueStr(pos), dt)
}

// recordsOf converts every row of tbl.
func recordsOf(tbl arrow.Table) ([]datatable.Record, error) {
	ncols := int(tbl.NumCols())
	rows := make([]datatable.Record, 0, tbl.NumRows())

	tr := array.NewTableReader(tbl, 4096)
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		for r := 0; r < int(rec.NumRows()); r++ {
			row := make(datatable.Record, ncols)
			for c := 0; c < ncols; c++ {
				row[c] = valueAt(rec.Column(c), r)
			}
			rows = append(rows, row)
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("reading arrow table: %w", err)
	}
	return rows, nil
}
