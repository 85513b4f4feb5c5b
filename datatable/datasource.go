package datatable

import (
	"context"
	"fmt"
)

// PageSource provides paged, sorted access to a remote or simulated dataset.
// Implementations must be safe for concurrent use and deterministic for a
// fixed (offset, limit, sorting) within one session. Meta.TotalRowCount
// must not change between calls.
type PageSource interface {
	// Columns returns the columns every Record is aligned with.
	Columns() []ColumnInfo

	// Fetch returns up to limit rows starting at offset, ordered by sorting.
	// Returns ErrInvalidPageRequest if offset < 0 or limit <= 0.
	// Returns ErrInvalidSortColumn if sorting names an unknown column.
	Fetch(ctx context.Context, offset, limit int, sorting Sorting) (Page, error)
}

// Filter decides whether a row is kept.
type Filter interface {
	// Evaluate returns true if the row passes the filter.
	Evaluate(row Record, columnIDs []string) (bool, error)

	// Description returns a human-readable form of the filter.
	Description() string
}

// ValidatePageRequest checks offset/limit against the PageSource contract.
func ValidatePageRequest(offset, limit int) error {
	if offset < 0 || limit <= 0 {
		return fmt.Errorf("%w: offset=%d limit=%d", ErrInvalidPageRequest, offset, limit)
	}
	return nil
}

// ColumnIndex returns the position of id in columns, or -1.
func ColumnIndex(columns []ColumnInfo, id string) int {
	for i, c := range columns {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// ColumnIDs returns the ids of columns in order.
func ColumnIDs(columns []ColumnInfo) []string {
	ids := make([]string, len(columns))
	for i, c := range columns {
		ids[i] = c.ID
	}
	return ids
}

// SlicePage returns the [offset, offset+limit) window of rows as a Page.
// Offsets past the end yield an empty page with the same total.
func SlicePage(rows []Record, offset, limit int) Page {
	total := len(rows)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	data := make([]Record, end-start)
	copy(data, rows[start:end])
	return Page{Data: data, Meta: PageMeta{TotalRowCount: total}}
}
