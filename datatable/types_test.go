package datatable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSorting(t *testing.T) {
	s, err := ParseSorting(" age:DESC, firstName ")
	require.NoError(t, err)
	assert.Equal(t, Sorting{{ColumnID: "age", Desc: true}, {ColumnID: "firstName"}}, s)

	back, err := ParseSorting(s.Key())
	require.NoError(t, err)
	assert.True(t, s.Equal(back))

	s, err = ParseSorting("")
	require.NoError(t, err)
	assert.False(t, s.IsSorted())

	_, err = ParseSorting("age:sideways")
	assert.ErrorIs(t, err, ErrInvalidSortColumn)
	_, err = ParseSorting("age,,name")
	assert.ErrorIs(t, err, ErrInvalidSortColumn)
}

func TestSortingCloneDoesNotAlias(t *testing.T) {
	s := Sorting{{ColumnID: "age"}}
	c := s.Clone()
	c[0].Desc = true
	assert.False(t, s[0].Desc)
	assert.Nil(t, Sorting(nil).Clone())
}

func TestNewValueFormatting(t *testing.T) {
	assert.Equal(t, "42", NewValue(int32(42), TypeInt).Formatted)
	assert.Equal(t, int64(42), NewValue(uint16(42), TypeInt).Raw)
	assert.Equal(t, "2.5", NewValue(float32(2.5), TypeFloat).Formatted)
	assert.Equal(t, "0aff", NewValue([]byte{0x0a, 0xff}, TypeBinary).Formatted)

	d := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "3/9/2024", NewValue(d, TypeDate).Formatted)

	null := NewValue(nil, TypeString)
	assert.True(t, null.IsNull)
	assert.Empty(t, null.String())
}
