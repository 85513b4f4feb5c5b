package view

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedtable/datatable"
	"pagedtable/internal/table"
)

func headers() []table.Header {
	return []table.Header{
		{ID: "id", Label: "ID", Size: 60, CanSort: true},
		{ID: "age", Label: "Age", Size: 50, CanSort: true, Sorted: datatable.SortAscending},
		{ID: "lastName", Label: "Last Name", Size: 150, CanSort: true, Sorted: datatable.SortDescending, SortIndex: 1},
	}
}

func TestRenderLoadingOnly(t *testing.T) {
	f := Render(Model{Loading: true, Headers: headers(), Fetched: 3, Total: 9})
	assert.True(t, f.Loading)
	assert.Equal(t, LoadingText, f.Status)
	assert.Empty(t, f.Headers)
	assert.Empty(t, f.Body)
}

func TestRenderEmptyDataset(t *testing.T) {
	f := Render(Model{Headers: headers()})
	assert.Equal(t, "Fetched 0 of 0 Rows.", f.Status)
	assert.Empty(t, f.Body)
	assert.Empty(t, f.Banner)
}

func TestRenderHeaderGlyphs(t *testing.T) {
	f := Render(Model{Headers: headers()})
	require.Len(t, f.Headers, 3)
	assert.Equal(t, "ID", f.Headers[0].Text)
	assert.Equal(t, "Age 🔼", f.Headers[1].Text)
	assert.Equal(t, "Last Name 🔽", f.Headers[2].Text)
	assert.Equal(t, float32(150), f.Headers[2].Width)
}

func TestRenderSpacersOnlyWhenPositive(t *testing.T) {
	rows := []VisibleRow{{Index: 0, Cells: []string{"a"}, Height: 35}, {Index: 1, Cells: []string{"b"}, Height: 35}}

	f := Render(Model{Rows: rows, PaddingBottom: 100, Fetched: 2, Total: 2})
	require.Len(t, f.Body, 3)
	assert.Equal(t, LineRow, f.Body[0].Kind)
	assert.Equal(t, LineSpacer, f.Body[2].Kind)
	assert.Equal(t, float32(100), f.Body[2].Height)

	f = Render(Model{Rows: rows, PaddingTop: 70, PaddingBottom: 35})
	require.Len(t, f.Body, 4)
	assert.Equal(t, LineSpacer, f.Body[0].Kind)
	assert.Len(t, f.Rows(), 2)
	assert.Equal(t, "Fetched 0 of 0 Rows.", f.Status)
}

func TestRenderErrorBanner(t *testing.T) {
	f := Render(Model{Err: errors.New("timeout"), Fetched: 100, Total: 1000})
	assert.Contains(t, f.Banner, "timeout")
	assert.Equal(t, "Fetched 100 of 1000 Rows.", f.Status)

	f = Render(Model{FilterErr: errors.New("bad expr")})
	assert.Contains(t, f.Banner, "bad expr")
}
