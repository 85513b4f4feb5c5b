package datatable

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Compare orders two values of the same column. Nulls sort after every
// non-null value regardless of direction; callers apply direction only
// to non-null pairs (see Comparator).
func Compare(a, b Value) int {
	switch {
	case a.IsNull && b.IsNull:
		return 0
	case a.IsNull:
		return 1
	case b.IsNull:
		return -1
	}

	switch x := a.Raw.(type) {
	case int64:
		if y, ok := asFloat(b.Raw); ok {
			return cmpFloat(float64(x), y)
		}
	case float64:
		if y, ok := asFloat(b.Raw); ok {
			return cmpFloat(x, y)
		}
	case bool:
		if y, ok := b.Raw.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.Raw.(time.Time); ok {
			return x.Compare(y)
		}
	case []byte:
		if y, ok := b.Raw.([]byte); ok {
			return bytes.Compare(x, y)
		}
	case string:
		if y, ok := b.Raw.(string); ok {
			return CompareAlphanumeric(x, y)
		}
	}
	return CompareAlphanumeric(a.Formatted, b.Formatted)
}

func asFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CompareAlphanumeric compares strings in natural order, case-insensitively:
// runs of digits compare numerically, so "row2" < "row10".
func CompareAlphanumeric(a, b string) int {
	ac := chunks(strings.ToLower(a))
	bc := chunks(strings.ToLower(b))
	for i := 0; i < len(ac) && i < len(bc); i++ {
		x, y := ac[i], bc[i]
		xn, xerr := strconv.ParseFloat(x, 64)
		yn, yerr := strconv.ParseFloat(y, 64)
		if xerr == nil && yerr == nil {
			if c := cmpFloat(xn, yn); c != 0 {
				return c
			}
			continue
		}
		if c := strings.Compare(x, y); c != 0 {
			return c
		}
	}
	return len(ac) - len(bc)
}

func chunks(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if i == 0 {
			continue
		}
		prev := rune(s[i-1])
		if unicode.IsDigit(r) != unicode.IsDigit(prev) {
			out = append(out, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// Comparator builds a multi-key record comparison for sorting. Each key is
// resolved against columns; unknown columns yield ErrInvalidSortColumn.
func Comparator(columns []ColumnInfo, sorting Sorting) (func(a, b Record) int, error) {
	type resolved struct {
		idx  int
		desc bool
	}
	keys := make([]resolved, 0, len(sorting))
	for _, k := range sorting {
		idx := ColumnIndex(columns, k.ColumnID)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSortColumn, k.ColumnID)
		}
		keys = append(keys, resolved{idx: idx, desc: k.Desc})
	}

	return func(a, b Record) int {
		for _, k := range keys {
			av, bv := a[k.idx], b[k.idx]
			c := Compare(av, bv)
			if c == 0 {
				continue
			}
			if k.desc && !av.IsNull && !bv.IsNull {
				c = -c
			}
			return c
		}
		return 0
	}, nil
}

// SortRecords stably sorts rows in place by sorting.
func SortRecords(rows []Record, columns []ColumnInfo, sorting Sorting) error {
	if !sorting.IsSorted() {
		return nil
	}
	cmp, err := Comparator(columns, sorting)
	if err != nil {
		return err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return cmp(rows[i], rows[j]) < 0
	})
	return nil
}
