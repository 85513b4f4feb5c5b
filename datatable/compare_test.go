package datatable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareAlphanumeric(t *testing.T) {
	assert.Negative(t, CompareAlphanumeric("row2", "row10"))
	assert.Positive(t, CompareAlphanumeric("Smith", "jones"))
	assert.Zero(t, CompareAlphanumeric("Smith", "smith"))
	assert.Negative(t, CompareAlphanumeric("a", "ab"))
}

func TestCompareNullsLast(t *testing.T) {
	null := NewNullValue(TypeInt)
	one := NewValue(1, TypeInt)

	assert.Positive(t, Compare(null, one))
	assert.Negative(t, Compare(one, null))
	assert.Zero(t, Compare(null, NewNullValue(TypeInt)))
}

func TestCompareTypes(t *testing.T) {
	now := time.Now()
	assert.Negative(t, Compare(NewValue(int32(3), TypeInt), NewValue(int64(10), TypeInt)))
	assert.Positive(t, Compare(NewValue(2.5, TypeFloat), NewValue(int64(2), TypeInt)))
	assert.Negative(t, Compare(NewValue(false, TypeBool), NewValue(true, TypeBool)))
	assert.Negative(t, Compare(NewValue(now, TypeTimestamp), NewValue(now.Add(time.Second), TypeTimestamp)))
}

func TestSortRecordsMultiKeyStable(t *testing.T) {
	cols := []ColumnInfo{{ID: "name", Type: TypeString}, {ID: "age", Type: TypeInt}}
	row := func(name string, age int) Record {
		return Record{NewValue(name, TypeString), NewValue(age, TypeInt)}
	}
	rows := []Record{row("b", 1), row("a", 2), row("b", 0), row("a", 2), row("c", 5)}

	require.NoError(t, SortRecords(rows, cols, Sorting{{ColumnID: "name"}, {ColumnID: "age", Desc: true}}))

	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = r[0].Formatted + r[1].Formatted
	}
	assert.Equal(t, []string{"a2", "a2", "b1", "b0", "c5"}, got)
}

func TestSortRecordsUnknownColumn(t *testing.T) {
	err := SortRecords([]Record{{NewValue("x", TypeString)}}, []ColumnInfo{{ID: "x"}}, Sorting{{ColumnID: "nope"}})
	assert.ErrorIs(t, err, ErrInvalidSortColumn)
}

func TestSortingKey(t *testing.T) {
	s := Sorting{{ColumnID: "age", Desc: true}, {ColumnID: "firstName"}}
	assert.Equal(t, "age:desc,firstName:asc", s.Key())
	assert.Equal(t, "", Sorting(nil).Key())

	dir, idx := s.Direction("firstName")
	assert.Equal(t, SortAscending, dir)
	assert.Equal(t, 1, idx)

	dir, idx = s.Direction("visits")
	assert.Equal(t, SortNone, dir)
	assert.Equal(t, -1, idx)
}

func TestSlicePage(t *testing.T) {
	rows := make([]Record, 250)
	for i := range rows {
		rows[i] = Record{NewValue(i, TypeInt)}
	}
	p := SlicePage(rows, 200, 100)
	assert.Len(t, p.Data, 50)
	assert.Equal(t, 250, p.Meta.TotalRowCount)

	assert.Empty(t, SlicePage(rows, 400, 100).Data)
	assert.ErrorIs(t, ValidatePageRequest(-1, 10), ErrInvalidPageRequest)
	assert.ErrorIs(t, ValidatePageRequest(0, 0), ErrInvalidPageRequest)
}
