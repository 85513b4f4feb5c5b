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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"pagedtable/datatable"
)

// FileType represents the type of data file
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeCSV
	FileTypeParquet
	FileTypeJSON
	FileTypeDeltaSharingProfile
)

// DetectFileType determines the type of file based on extension and content
func DetectFileType(filePath string, content string) FileType {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv", ".tsv":
		return FileTypeCSV
	case ".parquet":
		return FileTypeParquet
	case ".json", ".share", ".txt":
		if IsDeltaSharingProfile(content) {
			return FileTypeDeltaSharingProfile
		}
		return FileTypeJSON
	default:
		return FileTypeUnknown
	}
}

// IsDeltaSharingProfile checks if the content looks like a Delta Sharing profile
func IsDeltaSharingProfile(content string) bool {
	var profile map[string]interface{}
	if err := json.Unmarshal([]byte(content), &profile); err != nil {
		return false
	}
	_, hasVersion := profile["shareCredentialsVersion"]
	_, hasEndpoint := profile["endpoint"]
	_, hasBearerToken := profile["bearerToken"]
	return hasVersion && hasEndpoint && hasBearerToken
}

// DetectSeparator picks the most frequent of , ; tab and | on the first
// line of r. It defaults to comma.
func DetectSeparator(r io.Reader) rune {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return ','
	}
	first := scanner.Text()

	best, bestCount := ',', 0
	for _, sep := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(first, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// SeparatorName returns a human-readable name for the separator
func SeparatorName(sep rune) string {
	switch sep {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	default:
		return string(sep)
	}
}

// LoadFile reads a CSV, Parquet or JSON file into an Arrow table. The
// caller releases the table.
func LoadFile(ctx context.Context, path string) (arrow.Table, error) {
	switch DetectFileType(path, "") {
	case FileTypeCSV:
		return LoadCSV(path)
	case FileTypeParquet:
		return LoadParquet(ctx, path)
	case FileTypeJSON:
		return LoadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Base(path))
	}
}

// LoadCSV infers column types from the data. The first line is the header.
func LoadCSV(path string) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	sep := DetectSeparator(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind CSV file: %w", err)
	}

	r := csv.NewInferringReader(f,
		csv.WithComma(sep),
		csv.WithHeader(true),
		csv.WithChunk(4096),
		csv.WithAllocator(memory.NewGoAllocator()),
		csv.WithNullReader(true, ""),
	)
	defer r.Release()

	var recs []arrow.RecordBatch
	defer func() {
		for _, rec := range recs {
			rec.Release()
		}
	}()
	for r.Next() {
		rec := r.Record()
		rec.Retain()
		recs = append(recs, rec)
	}
	if err := r.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	if r.Schema() == nil {
		return nil, fmt.Errorf("%w: %s has no header", datatable.ErrEmptyData, filepath.Base(path))
	}
	return array.NewTableFromRecords(r.Schema(), recs), nil
}

// LoadParquet reads every row group of a Parquet file.
func LoadParquet(ctx context.Context, path string) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f, file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	tbl, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	return tbl, nil
}

// LoadJSON reads an array of flat objects, or a single object. Column
// order follows the sorted key names. Numbers become Int64 when every
// value of the key is integral.
func LoadJSON(path string) (arrow.Table, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON file: %w", err)
	}

	var data []map[string]interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		var single map[string]interface{}
		if err := json.Unmarshal(content, &single); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		data = []map[string]interface{}{single}
		if content, err = json.Marshal(data); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: JSON file has no records", datatable.ErrEmptyData)
	}

	schema := inferJSONSchema(data)
	rec, _, err := array.RecordFromJSON(memory.NewGoAllocator(), schema, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to convert JSON: %w", err)
	}
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.RecordBatch{rec}), nil
}

func inferJSONSchema(data []map[string]interface{}) *arrow.Schema {
	kinds := map[string]arrow.DataType{}
	for _, obj := range data {
		for k, v := range obj {
			kinds[k] = widen(kinds[k], v)
		}
	}
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)

	fields := make([]arrow.Field, len(names))
	for i, n := range names {
		dt := kinds[n]
		if dt == nil {
			dt = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: n, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// widen merges the type seen so far with the type of v.
func widen(cur arrow.DataType, v interface{}) arrow.DataType {
	var next arrow.DataType
	switch x := v.(type) {
	case nil:
		return cur
	case bool:
		next = arrow.FixedWidthTypes.Boolean
	case float64:
		next = arrow.PrimitiveTypes.Int64
		if x != math.Trunc(x) {
			next = arrow.PrimitiveTypes.Float64
		}
	default:
		next = arrow.BinaryTypes.String
	}
	switch {
	case cur == nil || arrow.TypeEqual(cur, next):
		return next
	case isNumber(cur) && isNumber(next):
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func isNumber(dt arrow.DataType) bool {
	return dt.ID() == arrow.INT64 || dt.ID() == arrow.FLOAT64
}
