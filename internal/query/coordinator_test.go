package query

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagedtable/datatable"
	"pagedtable/dummy"
)

type call struct {
	offset int
	sort   string
}

// spySource records every Fetch and can block or fail on demand.
type spySource struct {
	datatable.PageSource

	mu      sync.Mutex
	calls   []call
	started chan struct{}
	gate    chan struct{}
	fail    func(n, offset int) error
}

func newSpy(rows int) *spySource {
	return &spySource{PageSource: dummy.NewSource(dummy.MakeData(rows, 1))}
}

func (s *spySource) Fetch(ctx context.Context, offset, limit int, sorting datatable.Sorting) (datatable.Page, error) {
	s.mu.Lock()
	n := len(s.calls)
	s.calls = append(s.calls, call{offset: offset, sort: sorting.Key()})
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return datatable.Page{}, ctx.Err()
		}
	}
	if s.fail != nil {
		if err := s.fail(n, offset); err != nil {
			return datatable.Page{}, err
		}
	}
	return s.PageSource.Fetch(ctx, offset, limit, sorting)
}

func (s *spySource) offsets() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.offset
	}
	return out
}

func (s *spySource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func testOptions() Options {
	return Options{
		FetchSize:        100,
		Timeout:          time.Second,
		KeepPreviousData: true,
	}
}

var ageDesc = datatable.Sorting{{ColumnID: dummy.ColAge, Desc: true}}

func TestFetchesUntilExhausted(t *testing.T) {
	src := newSpy(250)
	c := New(src, testOptions(), testLogger())
	ctx := context.Background()

	require.True(t, c.Snapshot().IsLoading)
	for i := 0; i < 6; i++ {
		require.NoError(t, c.FetchNextPage(ctx))
	}

	assert.Equal(t, []int{0, 100, 200}, src.offsets())
	r := c.Snapshot()
	require.Len(t, r.Pages, 3)
	assert.Len(t, r.Pages[2].Data, 50)
	assert.Equal(t, 250, r.Fetched)
	assert.Equal(t, 250, r.TotalRowCount)
	assert.False(t, r.HasNextPage)
	assert.False(t, r.IsLoading)
	assert.Len(t, r.Rows(), 250)
}

func TestEmptyDataset(t *testing.T) {
	src := newSpy(0)
	c := New(src, testOptions(), testLogger())

	require.NoError(t, c.EnsureInitial(context.Background()))
	require.NoError(t, c.FetchNextPage(context.Background()))

	r := c.Snapshot()
	assert.Equal(t, 1, src.count())
	assert.Equal(t, 0, r.TotalRowCount)
	assert.Equal(t, 0, r.Fetched)
	assert.False(t, r.HasNextPage)
	assert.False(t, r.IsLoading)
}

func TestEnsureInitialOnlyOnce(t *testing.T) {
	src := newSpy(500)
	c := New(src, testOptions(), testLogger())

	require.NoError(t, c.EnsureInitial(context.Background()))
	require.NoError(t, c.EnsureInitial(context.Background()))
	assert.Equal(t, []int{0}, src.offsets())
}

func TestConcurrentFetchIsShared(t *testing.T) {
	src := newSpy(50)
	src.started = make(chan struct{}, 8)
	src.gate = make(chan struct{})
	c := New(src, testOptions(), testLogger())

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	fetch := func() {
		defer wg.Done()
		errs <- c.FetchNextPage(context.Background())
	}

	wg.Add(1)
	go fetch()
	<-src.started
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go fetch()
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, src.count())
	assert.Equal(t, 50, c.Snapshot().Fetched)
}

func TestSortChangeRestartsFromZero(t *testing.T) {
	src := newSpy(300)
	c := New(src, testOptions(), testLogger())
	ctx := context.Background()

	require.NoError(t, c.FetchNextPage(ctx))
	require.NoError(t, c.FetchNextPage(ctx))

	assert.True(t, c.SetSorting(ageDesc))
	assert.False(t, c.SetSorting(ageDesc.Clone()))
	require.NoError(t, c.FetchNextPage(ctx))

	src.mu.Lock()
	last := src.calls[len(src.calls)-1]
	src.mu.Unlock()
	assert.Equal(t, 0, last.offset)
	assert.Equal(t, "age:desc", last.sort)
	assert.Equal(t, 100, c.Snapshot().Fetched)
}

func TestKeepPreviousData(t *testing.T) {
	src := newSpy(300)
	c := New(src, testOptions(), testLogger())
	ctx := context.Background()
	require.NoError(t, c.FetchNextPage(ctx))

	c.SetSorting(ageDesc)
	r := c.Snapshot()
	assert.True(t, r.IsPlaceholderData)
	assert.Len(t, r.Pages, 1)
	assert.Equal(t, 0, r.Fetched, "placeholder rows are not counted")
	assert.False(t, r.IsLoading)
	assert.True(t, r.HasNextPage)

	require.NoError(t, c.FetchNextPage(ctx))
	r = c.Snapshot()
	assert.False(t, r.IsPlaceholderData)
	assert.Equal(t, 100, r.Fetched)
}

func TestWithoutKeepPreviousData(t *testing.T) {
	opts := testOptions()
	opts.KeepPreviousData = false
	c := New(newSpy(300), opts, testLogger())
	require.NoError(t, c.FetchNextPage(context.Background()))

	c.SetSorting(ageDesc)
	r := c.Snapshot()
	assert.False(t, r.IsPlaceholderData)
	assert.Empty(t, r.Pages)
	assert.True(t, r.IsLoading)
}

func TestCachedKeyIsRestored(t *testing.T) {
	src := newSpy(300)
	c := New(src, testOptions(), testLogger())
	ctx := context.Background()
	require.NoError(t, c.FetchNextPage(ctx))
	require.NoError(t, c.FetchNextPage(ctx))

	c.SetSorting(ageDesc)
	require.NoError(t, c.FetchNextPage(ctx))
	c.SetSorting(nil)

	r := c.Snapshot()
	assert.Len(t, r.Pages, 2)
	assert.Equal(t, 3, src.count())
}

func TestStaleCompletionIsFlagged(t *testing.T) {
	src := newSpy(300)
	src.started = make(chan struct{}, 8)
	src.gate = make(chan struct{})
	c := New(src, testOptions(), testLogger())

	var mu sync.Mutex
	var loaded []PageLoaded
	c.Subscribe(func(ev Event) {
		if pl, ok := ev.(PageLoaded); ok {
			mu.Lock()
			loaded = append(loaded, pl)
			mu.Unlock()
		}
	})

	done := make(chan error)
	go func() { done <- c.FetchNextPage(context.Background()) }()
	<-src.started
	oldKey := c.Key()
	c.SetSorting(ageDesc)
	close(src.gate)
	require.NoError(t, <-done)

	mu.Lock()
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].IsStale())
	assert.Equal(t, oldKey, loaded[0].EventKey())
	mu.Unlock()

	r := c.Snapshot()
	assert.Equal(t, 0, r.Fetched)
	assert.NotEqual(t, oldKey, r.Key)
}

func TestRetryThenSuccess(t *testing.T) {
	src := newSpy(100)
	src.fail = func(n, _ int) error {
		if n < 2 {
			return errors.New("flaky")
		}
		return nil
	}
	opts := testOptions()
	opts.Retry = 3
	c := New(src, opts, testLogger())

	require.NoError(t, c.FetchNextPage(context.Background()))
	assert.Equal(t, 3, src.count())
	assert.Equal(t, 0, c.Snapshot().FailureCount)
}

func TestFailedPageKeepsEarlierPages(t *testing.T) {
	boom := errors.New("boom")
	src := newSpy(300)
	src.fail = func(_, offset int) error {
		if offset >= 100 {
			return boom
		}
		return nil
	}
	opts := testOptions()
	opts.Retry = 1
	c := New(src, opts, testLogger())

	var failed []FetchFailed
	c.Subscribe(func(ev Event) {
		if ff, ok := ev.(FetchFailed); ok {
			failed = append(failed, ff)
		}
	})

	require.NoError(t, c.FetchNextPage(context.Background()))
	err := c.FetchNextPage(context.Background())
	require.ErrorIs(t, err, boom)

	r := c.Snapshot()
	assert.Len(t, r.Pages, 1)
	assert.ErrorIs(t, r.Err, boom)
	assert.Equal(t, 1, r.FailureCount)
	assert.True(t, r.HasNextPage)
	assert.Equal(t, []int{0, 100, 100}, src.offsets())
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Index)

	// the next trigger retries and clears the error
	src.fail = nil
	require.NoError(t, c.FetchNextPage(context.Background()))
	r = c.Snapshot()
	assert.NoError(t, r.Err)
	assert.Equal(t, 200, r.Fetched)
}

func TestInvalidRequestIsNotRetried(t *testing.T) {
	src := newSpy(100)
	opts := testOptions()
	opts.Retry = 3
	c := New(src, opts, testLogger())
	c.SetSorting(datatable.Sorting{{ColumnID: "nope"}})

	err := c.FetchNextPage(context.Background())
	assert.ErrorIs(t, err, datatable.ErrInvalidSortColumn)
	assert.Equal(t, 1, src.count())
}

func TestBreakerFailsFast(t *testing.T) {
	src := newSpy(300)
	src.fail = func(int, int) error { return errors.New("down") }
	opts := testOptions()
	opts.Breaker = BreakerOptions{MaxFailures: 2, OpenTimeout: time.Hour}
	c := New(src, opts, testLogger())
	ctx := context.Background()

	assert.Error(t, c.FetchNextPage(ctx))
	assert.Error(t, c.FetchNextPage(ctx))
	err := c.FetchNextPage(ctx)
	assert.ErrorIs(t, err, datatable.ErrSourceUnavailable)
	assert.Equal(t, 2, src.count())
}

func TestAttemptTimeout(t *testing.T) {
	src := newSpy(100)
	src.gate = make(chan struct{})
	opts := testOptions()
	opts.Timeout = 10 * time.Millisecond
	c := New(src, opts, testLogger())

	err := c.FetchNextPage(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRefetchReplacesPages(t *testing.T) {
	src := newSpy(300)
	c := New(src, testOptions(), testLogger())
	ctx := context.Background()
	require.NoError(t, c.FetchNextPage(ctx))
	require.NoError(t, c.FetchNextPage(ctx))

	var replaced []PagesReplaced
	c.Subscribe(func(ev Event) {
		if pr, ok := ev.(PagesReplaced); ok {
			replaced = append(replaced, pr)
		}
	})

	require.NoError(t, c.Refetch(ctx))
	assert.Equal(t, []int{0, 100, 0, 100}, src.offsets())
	require.Len(t, replaced, 1)
	assert.Len(t, replaced[0].Pages, 2)
	assert.False(t, replaced[0].IsStale())
	assert.Equal(t, 200, c.Snapshot().Fetched)
}

func TestRefetchFailureKeepsPages(t *testing.T) {
	src := newSpy(300)
	c := New(src, testOptions(), testLogger())
	ctx := context.Background()
	require.NoError(t, c.FetchNextPage(ctx))

	src.fail = func(int, int) error { return errors.New("offline") }
	assert.Error(t, c.Refetch(ctx))

	r := c.Snapshot()
	assert.Len(t, r.Pages, 1)
	assert.Error(t, r.Err)
}

func TestFetchPageOnlyFetchesTheNextPage(t *testing.T) {
	src := newSpy(300)
	c := New(src, testOptions(), testLogger())
	ctx := context.Background()

	require.NoError(t, c.FetchPage(ctx, 0))
	require.NoError(t, c.FetchPage(ctx, 1))
	// a second trigger for page 1 after it landed
	require.NoError(t, c.FetchPage(ctx, 1))
	require.NoError(t, c.FetchPage(ctx, 5))

	assert.Equal(t, []int{0, 100}, src.offsets())
	assert.Equal(t, 200, c.Snapshot().Fetched)
}

func TestInvalidate(t *testing.T) {
	src := newSpy(300)
	c := New(src, testOptions(), testLogger())
	ctx := context.Background()
	require.NoError(t, c.FetchNextPage(ctx))

	c.Invalidate()
	r := c.Snapshot()
	assert.Empty(t, r.Pages)
	assert.True(t, r.IsLoading)

	require.NoError(t, c.EnsureInitial(ctx))
	assert.Equal(t, []int{0, 0}, src.offsets())
}

func TestInvalidateDropsInFlightPage(t *testing.T) {
	src := newSpy(300)
	src.started = make(chan struct{}, 8)
	src.gate = make(chan struct{})
	c := New(src, testOptions(), testLogger())

	done := make(chan error)
	go func() { done <- c.FetchNextPage(context.Background()) }()
	<-src.started
	c.Invalidate()
	close(src.gate)
	require.NoError(t, <-done)

	assert.Empty(t, c.Snapshot().Pages)
}

func TestInactiveKeysExpire(t *testing.T) {
	src := newSpy(300)
	opts := testOptions()
	opts.CacheTime = time.Minute
	c := New(src, opts, testLogger())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	first := c.Key()
	require.NoError(t, c.FetchNextPage(ctx))
	c.SetSorting(ageDesc)
	require.NoError(t, c.FetchNextPage(ctx))

	now = now.Add(10 * time.Minute)
	c.SetSorting(datatable.Sorting{{ColumnID: dummy.ColVisits}})

	c.mu.Lock()
	_, kept := c.cache[first]
	_, placeholder := c.cache[c.placeholderKey]
	c.mu.Unlock()
	assert.False(t, kept)
	assert.True(t, placeholder)
}
