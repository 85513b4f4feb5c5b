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

package arrowadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"pagedtable/datatable"
)

// ExportFormat represents the supported export formats
type ExportFormat int

const (
	FormatParquet ExportFormat = iota
	FormatCSV
	FormatJSON
)

// String returns the format's file extension without the dot.
func (f ExportFormat) String() string {
	switch f {
	case FormatParquet:
		return "parquet"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return fmt.Sprintf("ExportFormat(%d)", int(f))
	}
}

// ParseFormat accepts parquet, csv or json, in any case.
func ParseFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "parquet":
		return FormatParquet, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("%w: unknown format %q", datatable.ErrExportFailed, s)
}

// Schema builds the Arrow schema used to export columns.
func Schema(columns []datatable.ColumnInfo) *arrow.Schema {
	fields := make([]arrow.Field, len(columns))
	for i, c := range columns {
		fields[i] = arrow.Field{Name: c.ID, Type: arrowType(c.Type), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// RecordFromRows builds one Arrow record from rows. The caller releases it.
func RecordFromRows(columns []datatable.ColumnInfo, rows []datatable.Record) (arrow.RecordBatch, error) {
	b := array.NewRecordBuilder(memory.NewGoAllocator(), Schema(columns))
	defer b.Release()

	for r, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", datatable.ErrExportFailed, r, len(row), len(columns))
		}
		for c, v := range row {
			if err := appendValue(b.Field(c), v); err != nil {
				return nil, fmt.Errorf("%w: row %d column %s: %v", datatable.ErrExportFailed, r, columns[c].ID, err)
			}
		}
	}
	return b.NewRecordBatch(), nil
}

func appendValue(fb array.Builder, v datatable.Value) error {
	if v.IsNull {
		fb.AppendNull()
		return nil
	}
	switch b := fb.(type) {
	case *array.Int64Builder:
		i, ok := v.Raw.(int64)
		if !ok {
			return fmt.Errorf("%w: %T is not int64", datatable.ErrTypeMismatch, v.Raw)
		}
		b.Append(i)
	case *array.Float64Builder:
		switch x := v.Raw.(type) {
		case float64:
			b.Append(x)
		case int64:
			b.Append(float64(x))
		default:
			return fmt.Errorf("%w: %T is not float64", datatable.ErrTypeMismatch, v.Raw)
		}
	case *array.BooleanBuilder:
		x, ok := v.Raw.(bool)
		if !ok {
			return fmt.Errorf("%w: %T is not bool", datatable.ErrTypeMismatch, v.Raw)
		}
		b.Append(x)
	case *array.Date32Builder:
		t, ok := v.Raw.(time.Time)
		if !ok {
			return fmt.Errorf("%w: %T is not a date", datatable.ErrTypeMismatch, v.Raw)
		}
		b.Append(arrow.Date32FromTime(t))
	case *array.TimestampBuilder:
		t, ok := v.Raw.(time.Time)
		if !ok {
			return fmt.Errorf("%w: %T is not a timestamp", datatable.ErrTypeMismatch, v.Raw)
		}
		ts, err := arrow.TimestampFromTime(t, arrow.Microsecond)
		if err != nil {
			return err
		}
		b.Append(ts)
	case *array.BinaryBuilder:
		raw, ok := v.Raw.([]byte)
		if !ok {
			raw = []byte(v.Formatted)
		}
		b.Append(raw)
	case *array.StringBuilder:
		b.Append(v.Formatted)
	default:
		return fmt.Errorf("unsupported builder %T", fb)
	}
	return nil
}

// Export writes rows to path in format.
func Export(path string, format ExportFormat, columns []datatable.ColumnInfo, rows []datatable.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", format, err)
	}
	werr := Write(f, format, columns, rows)
	if cerr := f.Close(); werr == nil && cerr != nil {
		werr = fmt.Errorf("failed to close %s file: %w", format, cerr)
	}
	return werr
}

// Write encodes rows onto w in format.
func Write(w io.Writer, format ExportFormat, columns []datatable.ColumnInfo, rows []datatable.Record) error {
	if format == FormatJSON {
		return WriteJSON(w, columns, rows)
	}
	rec, err := RecordFromRows(columns, rows)
	if err != nil {
		return err
	}
	defer rec.Release()

	switch format {
	case FormatParquet:
		return WriteParquet(w, rec)
	case FormatCSV:
		return WriteCSV(w, rec)
	default:
		return fmt.Errorf("%w: unknown format %d", datatable.ErrExportFailed, int(format))
	}
}

// WriteParquet writes rec as a Snappy-compressed Parquet file.
func WriteParquet(w io.Writer, rec arrow.RecordBatch) error {
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	// the caller owns w; pqarrow would close an io.Closer sink itself
	writer, err := pqarrow.NewFileWriter(rec.Schema(), struct{ io.Writer }{w}, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// WriteCSV writes rec with a header line.
func WriteCSV(w io.Writer, rec arrow.RecordBatch) error {
	writer := csv.NewWriter(w, rec.Schema(), csv.WithHeader(true), csv.WithNullWriter(""))
	if err := writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return writer.Error()
}

// WriteJSON writes rows as an indented array of objects, keeping numeric
// and boolean types.
func WriteJSON(w io.Writer, columns []datatable.ColumnInfo, rows []datatable.Record) error {
	records := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]interface{}, len(columns))
		for c, col := range columns {
			if c < len(row) {
				record[col.ID] = typedValue(row[c])
			}
		}
		records = append(records, record)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// typedValue returns the JSON representation of v.
func typedValue(v datatable.Value) interface{} {
	if v.IsNull {
		return nil
	}
	switch v.Type {
	case datatable.TypeInt, datatable.TypeFloat, datatable.TypeBool:
		return v.Raw
	case datatable.TypeDate:
		if t, ok := v.Raw.(time.Time); ok {
			return t.Format("2006-01-02")
		}
	case datatable.TypeTimestamp:
		if t, ok := v.Raw.(time.Time); ok {
			return t.UTC().Format(time.RFC3339Nano)
		}
	case datatable.TypeStruct:
		if json.Valid([]byte(v.Formatted)) {
			return json.RawMessage(v.Formatted)
		}
	}
	return v.Formatted
}
