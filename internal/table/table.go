// Package table turns the accumulated rows into an ordered row model:
// filtering, client-side sorting, header state and column sizing.
package table

import (
	"fmt"
	"sort"
	"strconv"

	"pagedtable/datatable"
	"pagedtable/internal/filter"
)

const (
	// DefaultColumnSize is used when a column does not set Size.
	DefaultColumnSize float32 = 150
	// MinColumnSize is the smallest width a column can have.
	MinColumnSize float32 = 20
)

// Column describes one displayed column.
type Column struct {
	ID     string
	Header string
	Type   datatable.DataType
	Size   float32
	// DisableSorting removes the header's sort toggle.
	DisableSorting bool
	// Cell renders a non-null value. Nil uses the value's Formatted text.
	Cell func(datatable.Value) string
}

// State is the table-level view state.
type State struct {
	Sorting      datatable.Sorting
	GlobalFilter string
	// Filters are ANDed with the global filter.
	Filters []datatable.Filter
}

// Row is one entry of the row model.
type Row struct {
	// ID is stable for the row's position in the accumulated data.
	ID     string
	Index  int
	Record datatable.Record
}

// RowModel is the filtered and sorted view over the accumulated data.
type RowModel struct {
	Rows []Row
	// Err holds the first filter or sort error. Rows that fail a filter
	// are dropped; a failed sort leaves fetch order.
	Err error
}

// Header is the rendered state of one column header.
type Header struct {
	ID        string
	Label     string
	Size      float32
	CanSort   bool
	Sorted    datatable.SortDirection
	SortIndex int
}

// HeaderGroup is one row of headers.
type HeaderGroup struct {
	ID      string
	Headers []Header
}

// Table is an immutable set of column definitions.
type Table struct {
	columns []Column
	infos   []datatable.ColumnInfo
	ids     []string
}

// New validates columns and applies size defaults.
func New(columns []Column) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", datatable.ErrInvalidColumn)
	}
	t := &Table{columns: make([]Column, len(columns))}
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: column %d has no id", datatable.ErrInvalidColumn, i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate column id %q", datatable.ErrInvalidColumn, c.ID)
		}
		seen[c.ID] = true

		if c.Size == 0 {
			c.Size = DefaultColumnSize
		}
		if c.Size < MinColumnSize {
			c.Size = MinColumnSize
		}
		if c.Header == "" {
			c.Header = c.ID
		}
		t.columns[i] = c
		t.infos = append(t.infos, datatable.ColumnInfo{ID: c.ID, Type: c.Type})
		t.ids = append(t.ids, c.ID)
	}
	return t, nil
}

// Columns returns the column definitions.
func (t *Table) Columns() []Column { return t.columns }

// ColumnIDs returns the column ids in record order.
func (t *Table) ColumnIDs() []string { return t.ids }

// ColumnInfos returns the columns as datatable.ColumnInfo.
func (t *Table) ColumnInfos() []datatable.ColumnInfo { return t.infos }

// TotalWidth is the sum of column sizes.
func (t *Table) TotalWidth() float32 {
	var w float32
	for _, c := range t.columns {
		w += c.Size
	}
	return w
}

// RowModel filters data and then sorts it. Sorting is stable with ties
// broken by the row's position in data.
func (t *Table) RowModel(data []datatable.Record, st State) RowModel {
	var model RowModel
	pred := filter.All(append([]datatable.Filter{filter.Global{Text: st.GlobalFilter}}, st.Filters...)...)

	model.Rows = make([]Row, 0, len(data))
	for i, rec := range data {
		ok, err := pred.Evaluate(rec, t.ids)
		if err != nil {
			if model.Err == nil {
				model.Err = err
			}
			continue
		}
		if ok {
			model.Rows = append(model.Rows, Row{ID: strconv.Itoa(i), Index: i, Record: rec})
		}
	}

	if !st.Sorting.IsSorted() {
		return model
	}
	cmp, err := datatable.Comparator(t.infos, st.Sorting)
	if err != nil {
		if model.Err == nil {
			model.Err = err
		}
		return model
	}
	sort.SliceStable(model.Rows, func(i, j int) bool {
		return cmp(model.Rows[i].Record, model.Rows[j].Record) < 0
	})
	return model
}

// HeaderGroups returns the single header row for st.
func (t *Table) HeaderGroups(st State) []HeaderGroup {
	headers := make([]Header, len(t.columns))
	for i, c := range t.columns {
		dir, idx := st.Sorting.Direction(c.ID)
		headers[i] = Header{
			ID:        c.ID,
			Label:     c.Header,
			Size:      c.Size,
			CanSort:   !c.DisableSorting,
			Sorted:    dir,
			SortIndex: idx,
		}
	}
	return []HeaderGroup{{ID: "0", Headers: headers}}
}

// CellText renders the value at column position col.
func (t *Table) CellText(rec datatable.Record, col int) string {
	if col < 0 || col >= len(rec) || col >= len(t.columns) {
		return ""
	}
	v := rec[col]
	if v.IsNull {
		return ""
	}
	if render := t.columns[col].Cell; render != nil {
		return render(v)
	}
	return v.Formatted
}

// CanSort reports whether columnID exists and allows sorting.
func (t *Table) CanSort(columnID string) bool {
	for _, c := range t.columns {
		if c.ID == columnID {
			return !c.DisableSorting
		}
	}
	return false
}

// NextSorting toggles columnID through unsorted, ascending, descending
// and back to unsorted. Without multi the result sorts by columnID only;
// with multi the other keys are kept in place.
func NextSorting(cur datatable.Sorting, columnID string, multi bool) datatable.Sorting {
	dir, idx := cur.Direction(columnID)

	if !multi {
		switch dir {
		case datatable.SortNone:
			return datatable.Sorting{{ColumnID: columnID}}
		case datatable.SortAscending:
			return datatable.Sorting{{ColumnID: columnID, Desc: true}}
		default:
			return datatable.Sorting{}
		}
	}

	next := cur.Clone()
	switch dir {
	case datatable.SortNone:
		return append(next, datatable.SortKey{ColumnID: columnID})
	case datatable.SortAscending:
		next[idx].Desc = true
		return next
	default:
		return append(next[:idx], next[idx+1:]...)
	}
}
