package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedtable/datatable"
	"pagedtable/dummy"
	"pagedtable/internal/filter"
)

func people(t *testing.T) (*Table, []datatable.Record) {
	t.Helper()
	tbl, err := New(PersonColumns())
	require.NoError(t, err)

	ps := dummy.MakeData(20, 11)
	for i := range ps {
		ps[i].LastName = "Jones"
		ps[i].FirstName = "Pat"
	}
	ps[7].LastName = "Smith"

	recs := make([]datatable.Record, len(ps))
	for i, p := range ps {
		recs[i] = p.Record()
	}
	return tbl, recs
}

func TestNewAppliesSizes(t *testing.T) {
	tbl, err := New(PersonColumns())
	require.NoError(t, err)

	sizes := map[string]float32{}
	for _, c := range tbl.Columns() {
		sizes[c.ID] = c.Size
	}
	assert.Equal(t, float32(60), sizes[dummy.ColID])
	assert.Equal(t, float32(150), sizes[dummy.ColFirstName])
	assert.Equal(t, float32(50), sizes[dummy.ColAge])
	assert.Equal(t, float32(80), sizes[dummy.ColProgress])
	assert.Equal(t, float32(150), sizes[dummy.ColCreatedAt])
	assert.Equal(t, float32(60+150+150+50+50+150+80+150), tbl.TotalWidth())

	tiny, err := New([]Column{{ID: "x", Size: 3}})
	require.NoError(t, err)
	assert.Equal(t, MinColumnSize, tiny.Columns()[0].Size)
	assert.Equal(t, "x", tiny.Columns()[0].Header)
}

func TestNewRejectsBadColumns(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, datatable.ErrInvalidColumn)

	_, err = New([]Column{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, datatable.ErrInvalidColumn)
}

func TestGlobalFilterSmith(t *testing.T) {
	tbl, recs := people(t)

	model := tbl.RowModel(recs, State{GlobalFilter: "smith"})
	require.NoError(t, model.Err)
	require.Len(t, model.Rows, 1)
	assert.Equal(t, 7, model.Rows[0].Index)
	assert.Equal(t, "7", model.Rows[0].ID)

	model = tbl.RowModel(recs, State{GlobalFilter: "SMITH"})
	assert.Len(t, model.Rows, 1)

	model = tbl.RowModel(recs, State{})
	assert.Len(t, model.Rows, len(recs))
}

func TestRowModelSortsStably(t *testing.T) {
	tbl, recs := people(t)

	model := tbl.RowModel(recs, State{Sorting: datatable.Sorting{{ColumnID: dummy.ColAge}}})
	require.NoError(t, model.Err)
	require.Len(t, model.Rows, len(recs))

	ageIdx := datatable.ColumnIndex(tbl.ColumnInfos(), dummy.ColAge)
	for i := 1; i < len(model.Rows); i++ {
		prev, cur := model.Rows[i-1], model.Rows[i]
		pa, ca := prev.Record[ageIdx].Raw.(int64), cur.Record[ageIdx].Raw.(int64)
		require.LessOrEqual(t, pa, ca)
		if pa == ca {
			assert.Less(t, prev.Index, cur.Index, "ties keep fetch order")
		}
	}

	desc := tbl.RowModel(recs, State{Sorting: datatable.Sorting{{ColumnID: dummy.ColAge, Desc: true}}})
	first := desc.Rows[0].Record[ageIdx].Raw.(int64)
	last := desc.Rows[len(desc.Rows)-1].Record[ageIdx].Raw.(int64)
	assert.GreaterOrEqual(t, first, last)
}

func TestRowModelFiltersThenSorts(t *testing.T) {
	tbl, recs := people(t)
	expr, err := filter.ParseExpression("age >= 20", tbl.ColumnIDs())
	require.NoError(t, err)

	model := tbl.RowModel(recs, State{
		Filters: []datatable.Filter{expr},
		Sorting: datatable.Sorting{{ColumnID: dummy.ColVisits, Desc: true}},
	})
	require.NoError(t, model.Err)

	ageIdx := datatable.ColumnIndex(tbl.ColumnInfos(), dummy.ColAge)
	for _, r := range model.Rows {
		assert.GreaterOrEqual(t, r.Record[ageIdx].Raw.(int64), int64(20))
	}
}

func TestRowModelReportsSortError(t *testing.T) {
	tbl, recs := people(t)
	model := tbl.RowModel(recs, State{Sorting: datatable.Sorting{{ColumnID: "missing"}}})
	assert.ErrorIs(t, model.Err, datatable.ErrInvalidSortColumn)
	assert.Len(t, model.Rows, len(recs))
}

func TestNextSortingCycle(t *testing.T) {
	var s datatable.Sorting

	s = NextSorting(s, dummy.ColAge, false)
	assert.Equal(t, datatable.Sorting{{ColumnID: dummy.ColAge}}, s)

	s = NextSorting(s, dummy.ColAge, false)
	assert.Equal(t, datatable.Sorting{{ColumnID: dummy.ColAge, Desc: true}}, s)

	s = NextSorting(s, dummy.ColAge, false)
	assert.False(t, s.IsSorted())

	// A plain click on another column replaces the sort.
	s = NextSorting(datatable.Sorting{{ColumnID: dummy.ColAge}}, dummy.ColVisits, false)
	assert.Equal(t, datatable.Sorting{{ColumnID: dummy.ColVisits}}, s)
}

func TestNextSortingMulti(t *testing.T) {
	s := datatable.Sorting{{ColumnID: dummy.ColAge}}

	s = NextSorting(s, dummy.ColVisits, true)
	assert.Equal(t, "age:asc,visits:asc", s.Key())

	s = NextSorting(s, dummy.ColAge, true)
	assert.Equal(t, "age:desc,visits:asc", s.Key())

	s = NextSorting(s, dummy.ColAge, true)
	assert.Equal(t, "visits:asc", s.Key())
}

func TestNextSortingDoesNotAlias(t *testing.T) {
	cur := datatable.Sorting{{ColumnID: dummy.ColAge}, {ColumnID: dummy.ColVisits}}
	_ = NextSorting(cur, dummy.ColAge, true)
	assert.False(t, cur[0].Desc)
}

func TestHeaderGroups(t *testing.T) {
	tbl, _ := people(t)
	groups := tbl.HeaderGroups(State{Sorting: datatable.Sorting{
		{ColumnID: dummy.ColLastName, Desc: true},
		{ColumnID: dummy.ColAge},
	}})
	require.Len(t, groups, 1)

	byID := map[string]Header{}
	for _, h := range groups[0].Headers {
		byID[h.ID] = h
	}
	assert.Equal(t, "Last Name", byID[dummy.ColLastName].Label)
	assert.Equal(t, datatable.SortDescending, byID[dummy.ColLastName].Sorted)
	assert.Equal(t, 0, byID[dummy.ColLastName].SortIndex)
	assert.Equal(t, datatable.SortAscending, byID[dummy.ColAge].Sorted)
	assert.Equal(t, 1, byID[dummy.ColAge].SortIndex)
	assert.Equal(t, datatable.SortNone, byID[dummy.ColStatus].Sorted)
	assert.True(t, byID[dummy.ColStatus].CanSort)
}

func TestFromSchema(t *testing.T) {
	cols := FromSchema([]datatable.ColumnInfo{{ID: "a", Type: datatable.TypeString}, {ID: "b", Type: datatable.TypeBinary}})
	tbl, err := New(cols)
	require.NoError(t, err)

	rec := datatable.Record{
		datatable.NewValue("x", datatable.TypeString),
		datatable.NewValue(make([]byte, 40), datatable.TypeBinary),
	}
	assert.Equal(t, "x", tbl.CellText(rec, 0))
	assert.Len(t, tbl.CellText(rec, 1), 35)
	assert.Equal(t, "", tbl.CellText(rec, 5))
}
