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

// Package datatable holds the value, row, sort and page types shared by the
// data sources, the fetch coordinator and the table engine.
package datatable

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the display layout used for timestamp cells.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// DateLayout is the display layout used for date cells.
const DateLayout = "1/2/2006"

// DataType represents the type of data in a column.
type DataType int

const (
	// TypeString represents string data.
	TypeString DataType = iota
	// TypeInt represents integer data (any size).
	TypeInt
	// TypeFloat represents floating-point data (any precision).
	TypeFloat
	// TypeBool represents boolean data.
	TypeBool
	// TypeDate represents date data (without time).
	TypeDate
	// TypeTimestamp represents timestamp data (date + time).
	TypeTimestamp
	// TypeBinary represents binary/blob data.
	TypeBinary
	// TypeDecimal represents decimal/numeric data (fixed precision).
	TypeDecimal
	// TypeStruct represents structured data (nested fields).
	TypeStruct
	// TypeList represents list/array data.
	TypeList
)

// String returns the string representation of a DataType.
func (dt DataType) String() string {
	switch dt {
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Bool"
	case TypeDate:
		return "Date"
	case TypeTimestamp:
		return "Timestamp"
	case TypeBinary:
		return "Binary"
	case TypeDecimal:
		return "Decimal"
	case TypeStruct:
		return "Struct"
	case TypeList:
		return "List"
	default:
		return fmt.Sprintf("Unknown(%d)", dt)
	}
}

// Numeric reports whether values of this type compare as numbers.
func (dt DataType) Numeric() bool {
	return dt == TypeInt || dt == TypeFloat || dt == TypeDecimal
}

// Value is a typed container for cell values.
// It holds the raw value, type information, and a pre-formatted string for display.
type Value struct {
	// Raw holds the underlying value: int64, float64, string, bool,
	// time.Time or []byte depending on Type.
	Raw interface{}

	// Type indicates the data type of this value.
	Type DataType

	// IsNull indicates whether this value is null/nil.
	IsNull bool

	// Formatted is the display string. The global filter matches against it.
	Formatted string
}

// NewValue creates a new Value from a raw value and type.
// Integer and float raws of any width are normalized to int64 and float64.
func NewValue(raw interface{}, dataType DataType) Value {
	if raw == nil {
		return NewNullValue(dataType)
	}

	raw = normalize(raw)
	return Value{
		Raw:       raw,
		Type:      dataType,
		Formatted: formatValue(raw, dataType),
	}
}

// NewNullValue creates a null value of the specified type.
func NewNullValue(dataType DataType) Value {
	return Value{
		Type:   dataType,
		IsNull: true,
	}
}

// String returns the formatted value.
func (v Value) String() string {
	return v.Formatted
}

func normalize(raw interface{}) interface{} {
	switch x := raw.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	}
	return raw
}

// formatValue converts a raw value to its display string.
func formatValue(raw interface{}, dataType DataType) string {
	switch dataType {
	case TypeTimestamp:
		if t, ok := raw.(time.Time); ok {
			return t.Local().Format(TimestampLayout)
		}
	case TypeDate:
		if t, ok := raw.(time.Time); ok {
			return t.Format(DateLayout)
		}
	case TypeFloat:
		if f, ok := raw.(float64); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	case TypeBinary:
		if b, ok := raw.([]byte); ok {
			return fmt.Sprintf("%x", b)
		}
	}
	return fmt.Sprintf("%v", raw)
}

// Record is one row: values positionally aligned with the source columns.
type Record []Value

// ColumnInfo describes one column exposed by a data source.
type ColumnInfo struct {
	ID   string
	Type DataType
}

// Metadata holds optional metadata about a data source.
type Metadata map[string]interface{}

// SortDirection specifies the direction of sorting.
type SortDirection int

const (
	// SortNone indicates no sorting.
	SortNone SortDirection = iota
	// SortAscending indicates ascending sort order.
	SortAscending
	// SortDescending indicates descending sort order.
	SortDescending
)

// String returns the string representation of a SortDirection.
func (sd SortDirection) String() string {
	switch sd {
	case SortNone:
		return "None"
	case SortAscending:
		return "Ascending"
	case SortDescending:
		return "Descending"
	default:
		return fmt.Sprintf("Unknown(%d)", sd)
	}
}

// SortKey sorts by one column.
type SortKey struct {
	ColumnID string
	Desc     bool
}

// Direction returns the key's direction.
func (k SortKey) Direction() SortDirection {
	if k.Desc {
		return SortDescending
	}
	return SortAscending
}

// Sorting is an ordered list of sort keys. The empty Sorting means
// source order.
type Sorting []SortKey

// IsSorted returns true if this state represents an active sort.
func (s Sorting) IsSorted() bool {
	return len(s) > 0
}

// Direction returns the direction applied to columnID and its position
// in the sorting, or SortNone and -1.
func (s Sorting) Direction(columnID string) (SortDirection, int) {
	for i, k := range s {
		if k.ColumnID == columnID {
			return k.Direction(), i
		}
	}
	return SortNone, -1
}

// Key renders the canonical form used inside cache keys, e.g.
// "age:desc,firstName:asc".
func (s Sorting) Key() string {
	if len(s) == 0 {
		return ""
	}
	parts := make([]string, len(s))
	for i, k := range s {
		dir := "asc"
		if k.Desc {
			dir = "desc"
		}
		parts[i] = k.ColumnID + ":" + dir
	}
	return strings.Join(parts, ",")
}

// ParseSorting reads the form produced by Key. The direction defaults to
// asc.
func ParseSorting(s string) (Sorting, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out Sorting
	for _, part := range strings.Split(s, ",") {
		id, dir, _ := strings.Cut(strings.TrimSpace(part), ":")
		if id == "" {
			return nil, fmt.Errorf("%w: empty column in %q", ErrInvalidSortColumn, s)
		}
		k := SortKey{ColumnID: id}
		switch strings.ToLower(dir) {
		case "", "asc":
		case "desc":
			k.Desc = true
		default:
			return nil, fmt.Errorf("%w: direction %q", ErrInvalidSortColumn, dir)
		}
		out = append(out, k)
	}
	return out, nil
}

// Equal reports whether both sortings are identical.
func (s Sorting) Equal(o Sorting) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share storage with s.
func (s Sorting) Clone() Sorting {
	if s == nil {
		return nil
	}
	out := make(Sorting, len(s))
	copy(out, s)
	return out
}

// PageMeta carries page-independent information about the dataset.
type PageMeta struct {
	TotalRowCount int
}

// Page is one batch of rows returned by a single fetch.
type Page struct {
	Data []Record
	Meta PageMeta
}
