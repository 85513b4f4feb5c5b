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
	"context"
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"

	"pagedtable/datatable"
)

// Source serves an in-memory dataset page by page. Unlike the simulated
// backend it applies every sort key. Each sorted ordering is computed once
// and kept for the lifetime of the Source.
type Source struct {
	columns []datatable.ColumnInfo
	rows    []datatable.Record

	mu     sync.Mutex
	sorted map[string][]datatable.Record
}

var _ datatable.PageSource = (*Source)(nil)

// NewSource converts tbl. The table may be released afterwards.
func NewSource(tbl arrow.Table) (*Source, error) {
	if tbl == nil {
		return nil, datatable.ErrNoDataSource
	}
	rows, err := recordsOf(tbl)
	if err != nil {
		return nil, err
	}
	return NewRecordSource(Columns(tbl.Schema()), rows)
}

// NewSourceFromTables concatenates tables that share one schema, such as
// the data files of a shared Delta table.
func NewSourceFromTables(tbls []arrow.Table) (*Source, error) {
	if len(tbls) == 0 {
		return nil, fmt.Errorf("%w: no tables", datatable.ErrEmptyData)
	}
	schema := tbls[0].Schema()
	var rows []datatable.Record
	for i, tbl := range tbls {
		if !tbl.Schema().Equal(schema) {
			return nil, fmt.Errorf("%w: table %d schema differs from table 0", datatable.ErrTypeMismatch, i)
		}
		recs, err := recordsOf(tbl)
		if err != nil {
			return nil, err
		}
		rows = append(rows, recs...)
	}
	return NewRecordSource(Columns(schema), rows)
}

// NewRecordSource serves rows that are already converted.
func NewRecordSource(columns []datatable.ColumnInfo, rows []datatable.Record) (*Source, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", datatable.ErrEmptyData)
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", datatable.ErrInvalidRow, i, len(r), len(columns))
		}
	}
	return &Source{
		columns: columns,
		rows:    rows,
		sorted:  map[string][]datatable.Record{"": rows},
	}, nil
}

// Columns implements datatable.PageSource.
func (s *Source) Columns() []datatable.ColumnInfo {
	out := make([]datatable.ColumnInfo, len(s.columns))
	copy(out, s.columns)
	return out
}

// Len returns the number of rows.
func (s *Source) Len() int { return len(s.rows) }

// Fetch implements datatable.PageSource.
func (s *Source) Fetch(ctx context.Context, offset, limit int, sorting datatable.Sorting) (datatable.Page, error) {
	if err := datatable.ValidatePageRequest(offset, limit); err != nil {
		return datatable.Page{}, err
	}
	if err := ctx.Err(); err != nil {
		return datatable.Page{}, err
	}
	rows, err := s.ordered(sorting)
	if err != nil {
		return datatable.Page{}, err
	}
	return datatable.SlicePage(rows, offset, limit), nil
}

func (s *Source) ordered(sorting datatable.Sorting) ([]datatable.Record, error) {
	key := sorting.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if rows, ok := s.sorted[key]; ok {
		return rows, nil
	}
	rows := make([]datatable.Record, len(s.rows))
	copy(rows, s.rows)
	if err := datatable.SortRecords(rows, s.columns, sorting); err != nil {
		return nil, err
	}
	s.sorted[key] = rows
	return rows, nil
}
