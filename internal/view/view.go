// Package view turns the grid's model into a frame that front ends draw
// without further decisions.
package view

import (
	"fmt"

	"pagedtable/datatable"
	"pagedtable/internal/table"
)

// Sort indicators appended to header labels.
const (
	AscendingGlyph  = " 🔼"
	DescendingGlyph = " 🔽"
)

// LoadingText is shown alone while the first page is outstanding.
const LoadingText = "Loading..."

// VisibleRow is one mounted row.
type VisibleRow struct {
	Index  int
	ID     string
	Cells  []string
	Height float32
}

// Model is the input of Render.
type Model struct {
	Headers       []table.Header
	Rows          []VisibleRow
	PaddingTop    float32
	PaddingBottom float32
	TotalHeight   float32
	// ScrollTop is where the grid wants the scroll position to be.
	ScrollTop   float32
	Loading     bool
	Fetching    bool
	Placeholder bool
	Fetched     int
	Total       int
	// Filtered is the number of rows that passed the filters.
	Filtered  int
	Err       error
	FilterErr error
}

// HeaderCell is one drawn header.
type HeaderCell struct {
	ID      string
	Text    string
	Width   float32
	CanSort bool
}

// LineKind distinguishes spacers from rows.
type LineKind int

const (
	LineSpacer LineKind = iota
	LineRow
)

// Line is one element of the scrollable body.
type Line struct {
	Kind   LineKind
	Height float32
	// Row is set for LineRow.
	Row VisibleRow
}

// Frame is everything a front end draws.
type Frame struct {
	Loading bool
	Banner  string
	Headers []HeaderCell
	Body    []Line
	Status  string
	Busy    bool
}

// Render is a pure function of m.
func Render(m Model) Frame {
	if m.Loading {
		return Frame{Loading: true, Status: LoadingText}
	}

	f := Frame{
		Status: fmt.Sprintf("Fetched %d of %d Rows.", m.Fetched, m.Total),
		Busy:   m.Fetching,
	}
	switch {
	case m.Err != nil:
		f.Banner = fmt.Sprintf("Error loading rows: %v", m.Err)
	case m.FilterErr != nil:
		f.Banner = fmt.Sprintf("Filter error: %v", m.FilterErr)
	}

	f.Headers = make([]HeaderCell, len(m.Headers))
	for i, h := range m.Headers {
		f.Headers[i] = HeaderCell{
			ID:      h.ID,
			Text:    HeaderText(h),
			Width:   h.Size,
			CanSort: h.CanSort,
		}
	}

	if m.PaddingTop > 0 {
		f.Body = append(f.Body, Line{Kind: LineSpacer, Height: m.PaddingTop})
	}
	for _, r := range m.Rows {
		f.Body = append(f.Body, Line{Kind: LineRow, Height: r.Height, Row: r})
	}
	if m.PaddingBottom > 0 {
		f.Body = append(f.Body, Line{Kind: LineSpacer, Height: m.PaddingBottom})
	}
	return f
}

// HeaderText is the header label with its sort indicator.
func HeaderText(h table.Header) string {
	switch h.Sorted {
	case datatable.SortAscending:
		return h.Label + AscendingGlyph
	case datatable.SortDescending:
		return h.Label + DescendingGlyph
	}
	return h.Label
}

// Rows returns the drawn rows of f.
func (f Frame) Rows() []VisibleRow {
	var rows []VisibleRow
	for _, l := range f.Body {
		if l.Kind == LineRow {
			rows = append(rows, l.Row)
		}
	}
	return rows
}
