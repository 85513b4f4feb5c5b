package dummy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedtable/datatable"
)

func TestMakeDataDeterministic(t *testing.T) {
	a := MakeData(50, 7)
	b := MakeData(50, 7)
	require.Equal(t, a, b)

	for i, p := range a {
		assert.Equal(t, i, p.ID)
		assert.GreaterOrEqual(t, p.Progress, 0)
		assert.LessOrEqual(t, p.Progress, 100)
		assert.Contains(t, statuses, p.Status)
	}
}

func TestSourcePaging(t *testing.T) {
	src := NewSource(MakeData(250, 1))
	ctx := context.Background()

	var sizes []int
	for offset := 0; offset < 250; offset += 100 {
		page, err := src.Fetch(ctx, offset, 100, nil)
		require.NoError(t, err)
		assert.Equal(t, 250, page.Meta.TotalRowCount)
		sizes = append(sizes, len(page.Data))
	}
	assert.Equal(t, []int{100, 100, 50}, sizes)
}

func TestSourceSortsByFirstKey(t *testing.T) {
	src := NewSource(MakeData(300, 3))
	page, err := src.Fetch(context.Background(), 0, 300, datatable.Sorting{{ColumnID: ColAge, Desc: true}})
	require.NoError(t, err)

	ageIdx := datatable.ColumnIndex(Columns(), ColAge)
	for i := 1; i < len(page.Data); i++ {
		prev := page.Data[i-1][ageIdx].Raw.(int64)
		cur := page.Data[i][ageIdx].Raw.(int64)
		assert.GreaterOrEqual(t, prev, cur)
	}
}

func TestSourceRejectsBadRequests(t *testing.T) {
	src := NewSource(MakeData(10, 1))
	_, err := src.Fetch(context.Background(), -1, 10, nil)
	assert.ErrorIs(t, err, datatable.ErrInvalidPageRequest)

	_, err = src.Fetch(context.Background(), 0, 10, datatable.Sorting{{ColumnID: "nope"}})
	assert.ErrorIs(t, err, datatable.ErrInvalidSortColumn)
}

func TestSourceLatencyHonoursContext(t *testing.T) {
	src := NewSource(MakeData(10, 1), WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := src.Fetch(ctx, 0, 10, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSourceInjectedFailure(t *testing.T) {
	boom := errors.New("boom")
	src := NewSource(MakeData(200, 1), WithFailures(func(offset int) error {
		if offset >= 100 {
			return boom
		}
		return nil
	}))

	_, err := src.Fetch(context.Background(), 0, 100, nil)
	require.NoError(t, err)
	_, err = src.Fetch(context.Background(), 100, 100, nil)
	assert.ErrorIs(t, err, boom)
}
