package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedtable/datatable"
)

func page(total int, ids ...int) datatable.Page {
	p := datatable.Page{Meta: datatable.PageMeta{TotalRowCount: total}}
	for _, id := range ids {
		p.Data = append(p.Data, datatable.Record{datatable.NewValue(id, datatable.TypeInt)})
	}
	return p
}

var byAge = datatable.Sorting{{ColumnID: "age"}}

func TestPageAppendedAccumulates(t *testing.T) {
	s := Initial("k")
	assert.True(t, s.Loading)
	assert.True(t, s.HasMore())

	s = Reduce(s, FetchStarted{Key: "k"})
	assert.True(t, s.Fetching)

	s = Reduce(s, PageAppended{Key: "k", Page: page(3, 1, 2)})
	s = Reduce(s, PageAppended{Key: "k", Page: page(3, 3)})

	assert.False(t, s.Loading)
	assert.False(t, s.Fetching)
	assert.Equal(t, 3, s.Fetched())
	assert.Equal(t, 3, s.TotalRowCount)
	assert.False(t, s.HasMore())
	assert.Len(t, s.Rows(), 3)
}

func TestNoCrossSortLeakage(t *testing.T) {
	s := Reduce(Initial("k"), PageAppended{Key: "k", Page: page(10, 1, 2)})
	s = Reduce(s, SortChanged{Sorting: byAge, Key: "k|age"})

	s = Reduce(s, PageAppended{Key: "k", Page: page(10, 3, 4)})
	s = Reduce(s, FetchStarted{Key: "k"})
	s = Reduce(s, FetchFailed{Key: "k", Err: errors.New("late")})

	assert.Empty(t, s.Pages)
	assert.Equal(t, "k|age", s.QueryKey)
	assert.True(t, s.Loading)
	assert.False(t, s.Fetching)
	assert.NoError(t, s.Err)
}

func TestSortChangedKeepsPlaceholder(t *testing.T) {
	s := Reduce(Initial("k"), PageAppended{Key: "k", Page: page(10, 1, 2)})
	s = Reduce(s, SortChanged{Sorting: byAge, Key: "k|age", KeepPrevious: true})

	assert.True(t, s.Placeholder)
	assert.Len(t, s.Rows(), 2)
	assert.Equal(t, 0, s.Fetched())
	assert.Equal(t, 2, s.Shown())
	assert.Equal(t, 10, s.TotalRowCount)
	assert.True(t, s.HasMore())
	assert.False(t, s.Loading)

	s = Reduce(s, PageAppended{Key: "k|age", Page: page(10, 9)})
	assert.False(t, s.Placeholder)
	require.Len(t, s.Rows(), 1)
	assert.Equal(t, int64(9), s.Rows()[0][0].Raw)
}

func TestSortChangedRestoresCache(t *testing.T) {
	s := Reduce(Initial("k"), SortChanged{
		Sorting: byAge,
		Key:     "k|age",
		Cached:  []datatable.Page{page(5, 1, 2), page(5, 3)},
	})
	assert.False(t, s.Loading)
	assert.Equal(t, 3, s.Fetched())
	assert.Equal(t, 5, s.TotalRowCount)
}

func TestSortChangedSameKey(t *testing.T) {
	s := Reduce(Initial("k"), PageAppended{Key: "k", Page: page(2, 1)})
	s = Reduce(s, SortChanged{Key: "k"})
	assert.Len(t, s.Pages, 1)
}

func TestPagesReplaced(t *testing.T) {
	s := Reduce(Initial("k"), PageAppended{Key: "k", Page: page(4, 1, 2)})
	s = Reduce(s, PagesReplaced{Key: "other", Pages: []datatable.Page{page(4, 7)}})
	assert.Equal(t, 2, s.Fetched())

	s = Reduce(s, PagesReplaced{Key: "k", Pages: []datatable.Page{page(4, 5, 6)}})
	assert.Equal(t, int64(5), s.Rows()[0][0].Raw)
}

func TestFetchFailedKeepsPages(t *testing.T) {
	boom := errors.New("boom")
	s := Reduce(Initial("k"), PageAppended{Key: "k", Page: page(4, 1, 2)})
	s = Reduce(s, FetchStarted{Key: "k"})
	s = Reduce(s, FetchFailed{Key: "k", Err: boom})

	assert.ErrorIs(t, s.Err, boom)
	assert.False(t, s.Fetching)
	assert.Equal(t, 2, s.Fetched())
	assert.True(t, s.HasMore())

	s = Reduce(s, FetchStarted{Key: "k"})
	assert.NoError(t, s.Err)
}

func TestFiltersAndInvalidate(t *testing.T) {
	s := Reduce(Initial("k"), FilterChanged{Text: "smith"})
	assert.Equal(t, "smith", s.GlobalFilter)

	s = Reduce(s, FiltersChanged{Filters: []datatable.Filter{nil}})
	assert.Len(t, s.Filters, 1)

	s = Reduce(s, PageAppended{Key: "k", Page: page(4, 1)})
	s = Reduce(s, CacheInvalidated{})
	assert.Empty(t, s.Pages)
	assert.True(t, s.Loading)
	assert.Equal(t, "smith", s.GlobalFilter)
}

func TestReduceDoesNotAlias(t *testing.T) {
	s1 := Reduce(Initial("k"), PageAppended{Key: "k", Page: page(4, 1)})
	s2 := Reduce(s1, PageAppended{Key: "k", Page: page(4, 2)})
	s3 := Reduce(s1, PageAppended{Key: "k", Page: page(4, 3)})

	assert.Len(t, s1.Pages, 1)
	assert.Equal(t, int64(2), s2.Rows()[1][0].Raw)
	assert.Equal(t, int64(3), s3.Rows()[1][0].Raw)
}

func TestEmptyDatasetHasNoMore(t *testing.T) {
	s := Reduce(Initial("k"), PageAppended{Key: "k", Page: page(0)})
	assert.False(t, s.HasMore())
	assert.Equal(t, 0, s.Fetched())
	assert.False(t, s.Loading)
}
