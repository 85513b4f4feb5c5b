// Package query fetches pages from a datatable.PageSource and caches
// them per sort key. Concurrent requests for the same page share one
// fetch, failed fetches are retried with exponential backoff, and a
// circuit breaker stops hammering a source that keeps failing.
package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"pagedtable/datatable"
)

// Result is a snapshot of the current key's data.
type Result struct {
	Key           string
	Pages         []datatable.Page
	TotalRowCount int
	// Fetched counts rows of the current key only, never placeholder rows.
	Fetched           int
	IsLoading         bool
	IsFetching        bool
	IsPlaceholderData bool
	HasNextPage       bool
	Err               error
	FailureCount      int
}

// Rows flattens Pages in fetch order.
func (r Result) Rows() []datatable.Record {
	var n int
	for _, p := range r.Pages {
		n += len(p.Data)
	}
	rows := make([]datatable.Record, 0, n)
	for _, p := range r.Pages {
		rows = append(rows, p.Data...)
	}
	return rows
}

type entry struct {
	gen      uint64
	pages    []datatable.Page
	total    int
	inflight int
	err      error
	failures int
	updated  time.Time
}

func (e *entry) fetched() int {
	var n int
	for _, p := range e.pages {
		n += len(p.Data)
	}
	return n
}

func (e *entry) hasNext() bool {
	if len(e.pages) == 0 {
		return true
	}
	if len(e.pages[len(e.pages)-1].Data) == 0 {
		return false
	}
	return e.fetched() < e.total
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	src     datatable.PageSource
	opts    Options
	log     *logrus.Entry
	group   singleflight.Group
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time

	mu             sync.Mutex
	key            string
	sorting        datatable.Sorting
	placeholderKey string
	cache          map[string]*entry
	gen            uint64
	subs           map[int]func(Event)
	nextSub        int
}

// New returns a Coordinator for src with an empty sort.
func New(src datatable.PageSource, opts Options, log *logrus.Entry) *Coordinator {
	opts = opts.withDefaults()
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Coordinator{
		src:   src,
		opts:  opts,
		log:   log.WithField("component", "query"),
		now:   time.Now,
		cache: map[string]*entry{},
		subs:  map[int]func(Event){},
	}
	c.key = c.keyFor(nil)
	if opts.Breaker.MaxFailures > 0 {
		c.breaker = gobreaker.NewCircuitBreaker(opts.Breaker.settings(opts.QueryKey, c.onBreakerChange, countsAgainstSource))
	}
	return c
}

func (c *Coordinator) onBreakerChange(name string, from, to gobreaker.State) {
	c.log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Info("circuit breaker state changed")
}

// countsAgainstSource reports errors that say nothing about the source's
// health as successes.
func countsAgainstSource(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, datatable.ErrInvalidPageRequest) ||
		errors.Is(err, datatable.ErrInvalidSortColumn)
}

func (c *Coordinator) keyFor(s datatable.Sorting) string {
	return c.opts.QueryKey + "|" + s.Key()
}

// FetchSize returns the page size in rows.
func (c *Coordinator) FetchSize() int { return c.opts.FetchSize }

// Key returns the current cache key.
func (c *Coordinator) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// KeyFor returns the cache key used for sorting s.
func (c *Coordinator) KeyFor(s datatable.Sorting) string { return c.keyFor(s) }

// Subscribe registers fn for every event. Callbacks run on the goroutine
// that completed the fetch and must not block.
func (c *Coordinator) Subscribe(fn func(Event)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Coordinator) publish(ev Event) {
	c.mu.Lock()
	subs := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// entryLocked returns key's entry, creating it. c.mu must be held.
func (c *Coordinator) entryLocked(key string) *entry {
	e, ok := c.cache[key]
	if !ok {
		c.gen++
		e = &entry{gen: c.gen, updated: c.now()}
		c.cache[key] = e
	}
	return e
}

// SetSorting switches to the key for s. Pages cached for that key are
// available immediately. It reports whether the key changed.
func (c *Coordinator) SetSorting(s datatable.Sorting) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.keyFor(s)
	if key == c.key {
		return false
	}
	if old, ok := c.cache[c.key]; ok && len(old.pages) > 0 {
		c.placeholderKey = c.key
	}
	if old, ok := c.cache[c.key]; ok {
		old.updated = c.now()
	}
	c.key = key
	c.sorting = s.Clone()
	c.collectLocked()

	c.log.WithField("key", key).Debug("sort key changed")
	return true
}

// collectLocked drops inactive keys older than CacheTime.
func (c *Coordinator) collectLocked() {
	if c.opts.CacheTime <= 0 {
		return
	}
	cutoff := c.now().Add(-c.opts.CacheTime)
	for k, e := range c.cache {
		if k == c.key || k == c.placeholderKey || e.inflight > 0 {
			continue
		}
		if e.updated.Before(cutoff) {
			delete(c.cache, k)
			c.log.WithField("key", k).Debug("evicted cached pages")
		}
	}
}

// Snapshot returns the current key's state.
func (c *Coordinator) Snapshot() Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	r := Result{Key: c.key, HasNextPage: true}
	e, ok := c.cache[c.key]
	if ok {
		r.Pages = append([]datatable.Page(nil), e.pages...)
		r.TotalRowCount = e.total
		r.Fetched = e.fetched()
		r.IsFetching = e.inflight > 0
		r.HasNextPage = e.hasNext()
		r.Err = e.err
		r.FailureCount = e.failures
	}

	if len(r.Pages) == 0 && c.opts.KeepPreviousData && c.placeholderKey != "" {
		if prev, ok := c.cache[c.placeholderKey]; ok && len(prev.pages) > 0 {
			r.Pages = append([]datatable.Page(nil), prev.pages...)
			r.TotalRowCount = prev.total
			r.IsPlaceholderData = true
		}
	}
	r.IsLoading = !r.IsPlaceholderData && (!ok || len(e.pages) == 0) && r.Err == nil
	return r
}

// EnsureInitial fetches page 0 when the current key has no pages.
func (c *Coordinator) EnsureInitial(ctx context.Context) error {
	c.mu.Lock()
	e, ok := c.cache[c.key]
	empty := !ok || len(e.pages) == 0
	c.mu.Unlock()
	if !empty {
		return nil
	}
	return c.FetchNextPage(ctx)
}

// FetchNextPage fetches the page after the last cached one for the
// current key. Concurrent calls for the same page share one fetch. It is
// a no-op once every row has been fetched.
func (c *Coordinator) FetchNextPage(ctx context.Context) error {
	return c.fetchNext(ctx, -1)
}

// FetchPage fetches page index of the current key. It is a no-op unless
// index is the next page to fetch, so a trigger queued before an earlier
// page landed never reaches further ahead.
func (c *Coordinator) FetchPage(ctx context.Context, index int) error {
	return c.fetchNext(ctx, index)
}

func (c *Coordinator) fetchNext(ctx context.Context, want int) error {
	c.mu.Lock()
	key := c.key
	sorting := c.sorting.Clone()
	e := c.entryLocked(key)
	index := len(e.pages)
	if !e.hasNext() || (want >= 0 && want != index) {
		c.mu.Unlock()
		return nil
	}
	gen := e.gen
	c.mu.Unlock()

	flight := key + "#" + strconv.FormatUint(gen, 10) + "#" + strconv.Itoa(index)
	_, err, _ := c.group.Do(flight, func() (interface{}, error) {
		return nil, c.fetchPage(ctx, key, gen, sorting, index)
	})
	return err
}

func (c *Coordinator) begin(key string, gen uint64, index int) bool {
	c.mu.Lock()
	e, ok := c.cache[key]
	if !ok || e.gen != gen || len(e.pages) != index {
		c.mu.Unlock()
		return false
	}
	e.inflight++
	e.err = nil
	stale := key != c.key
	c.mu.Unlock()

	c.publish(FetchStarted{eventBase: eventBase{Key: key, Stale: stale}, Index: index})
	return true
}

func (c *Coordinator) fetchPage(ctx context.Context, key string, gen uint64, sorting datatable.Sorting, index int) error {
	if !c.begin(key, gen, index) {
		return nil
	}

	offset := index * c.opts.FetchSize
	page, err := c.load(ctx, sorting, offset)

	c.mu.Lock()
	e, ok := c.cache[key]
	if !ok || e.gen != gen {
		// invalidated while in flight
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{"key": key, "offset": offset}).Debug("dropping page for invalidated key")
		return nil
	}
	e.inflight--
	e.updated = c.now()
	stale := key != c.key

	if err != nil {
		e.err = err
		e.failures++
		c.mu.Unlock()
		c.log.WithError(err).WithFields(logrus.Fields{"key": key, "offset": offset}).Warn("page fetch failed")
		c.publish(FetchFailed{eventBase: eventBase{Key: key, Stale: stale}, Index: index, Err: err})
		return err
	}

	e.pages = append(e.pages, page)
	e.total = page.Meta.TotalRowCount
	e.failures = 0
	c.mu.Unlock()

	c.publish(PageLoaded{eventBase: eventBase{Key: key, Stale: stale}, Index: index, Page: page})
	return nil
}

// load fetches one page with retries, a per-attempt timeout and the
// circuit breaker.
func (c *Coordinator) load(ctx context.Context, sorting datatable.Sorting, offset int) (datatable.Page, error) {
	limit := c.opts.FetchSize
	log := c.log.WithFields(logrus.Fields{"offset": offset, "limit": limit, "sort": sorting.Key()})

	attempt := func() (datatable.Page, error) {
		actx, cancel := ctx, context.CancelFunc(func() {})
		if c.opts.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		}
		defer cancel()

		log.Debug("fetching page")
		page, err := c.execute(actx, offset, limit, sorting)
		switch {
		case err == nil:
			return page, nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return page, backoff.Permanent(fmt.Errorf("%w: %v", datatable.ErrSourceUnavailable, err))
		case errors.Is(err, datatable.ErrInvalidPageRequest), errors.Is(err, datatable.ErrInvalidSortColumn):
			return page, backoff.Permanent(err)
		case ctx.Err() != nil:
			return page, backoff.Permanent(ctx.Err())
		}
		return page, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryDelay
	b.MaxInterval = c.opts.RetryMaxDelay
	var strategy backoff.BackOff = b
	if c.opts.RetryDelay <= 0 {
		strategy = &backoff.ZeroBackOff{}
	}

	page, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(strategy),
		backoff.WithMaxTries(uint(c.opts.Retry+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WithError(err).WithField("retry_in", next).Debug("retrying page fetch")
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return datatable.Page{}, fmt.Errorf("fetch rows %d-%d: %w", offset, offset+limit, err)
	}
	return page, nil
}

func (c *Coordinator) execute(ctx context.Context, offset, limit int, sorting datatable.Sorting) (datatable.Page, error) {
	if c.breaker == nil {
		return c.src.Fetch(ctx, offset, limit, sorting)
	}
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.src.Fetch(ctx, offset, limit, sorting)
	})
	if err != nil {
		return datatable.Page{}, err
	}
	return v.(datatable.Page), nil
}

// Refetch reloads every cached page of the current key in order and
// replaces them in one step. On failure the old pages are kept.
func (c *Coordinator) Refetch(ctx context.Context) error {
	c.mu.Lock()
	key := c.key
	sorting := c.sorting.Clone()
	e := c.entryLocked(key)
	n := len(e.pages)
	gen := e.gen
	c.mu.Unlock()

	if n == 0 {
		return c.FetchNextPage(ctx)
	}

	flight := "refetch#" + key + "#" + strconv.FormatUint(gen, 10)
	_, err, _ := c.group.Do(flight, func() (interface{}, error) {
		return nil, c.refetch(ctx, key, gen, sorting, n)
	})
	return err
}

func (c *Coordinator) refetch(ctx context.Context, key string, gen uint64, sorting datatable.Sorting, n int) error {
	c.mu.Lock()
	if e, ok := c.cache[key]; ok && e.gen == gen {
		e.inflight++
		e.err = nil
	}
	stale := key != c.key
	c.mu.Unlock()
	c.publish(FetchStarted{eventBase: eventBase{Key: key, Stale: stale}})

	pages := make([]datatable.Page, 0, n)
	var err error
	for i := 0; i < n; i++ {
		var p datatable.Page
		p, err = c.load(ctx, sorting, i*c.opts.FetchSize)
		if err != nil {
			break
		}
		pages = append(pages, p)
	}

	c.mu.Lock()
	e, ok := c.cache[key]
	if !ok || e.gen != gen {
		c.mu.Unlock()
		return nil
	}
	e.inflight--
	e.updated = c.now()
	stale = key != c.key
	if err != nil {
		e.err = err
		e.failures++
		c.mu.Unlock()
		c.log.WithError(err).WithField("key", key).Warn("refetch failed")
		c.publish(FetchFailed{eventBase: eventBase{Key: key, Stale: stale}, Err: err})
		return err
	}
	// keep pages appended while the refetch was running
	if len(e.pages) > len(pages) {
		pages = append(pages, e.pages[len(pages):]...)
	}
	e.pages = pages
	if len(pages) > 0 {
		e.total = pages[len(pages)-1].Meta.TotalRowCount
	}
	e.failures = 0
	replaced := append([]datatable.Page(nil), pages...)
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"key": key, "pages": len(replaced)}).Debug("refetched pages")
	c.publish(PagesReplaced{eventBase: eventBase{Key: key, Stale: stale}, Pages: replaced})
	return nil
}

// Invalidate drops the current key's pages. In-flight fetches for it are
// discarded when they complete.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	delete(c.cache, c.key)
	key := c.key
	c.mu.Unlock()
	c.log.WithField("key", key).Info("cache invalidated")
}

// InvalidateAll drops every cached key.
func (c *Coordinator) InvalidateAll() {
	c.mu.Lock()
	c.cache = map[string]*entry{}
	c.placeholderKey = ""
	c.mu.Unlock()
	c.log.Info("cache cleared")
}
