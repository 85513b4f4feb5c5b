// Package grid wires the fetch coordinator, the table engine and the
// row virtualizer into one screen, and owns the policy that decides when
// the next page is fetched.
package grid

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"pagedtable/datatable"
	"pagedtable/internal/query"
	"pagedtable/internal/state"
	"pagedtable/internal/table"
	"pagedtable/internal/view"
	"pagedtable/internal/virtual"
)

// Config holds the screen's tuning knobs.
type Config struct {
	// FetchThreshold is the distance to the bottom, in pixels, below
	// which the next page is requested.
	FetchThreshold float32
	Overscan       int
	RowHeight      float32
	ViewportHeight float32
	Query          query.Options
}

// DefaultConfig returns the stock screen configuration.
func DefaultConfig() Config {
	return Config{
		FetchThreshold: 300,
		Overscan:       10,
		RowHeight:      35,
		ViewportHeight: 500,
		Query:          query.DefaultOptions(),
	}
}

// Metrics describe the scroll container.
type Metrics struct {
	ScrollTop    float32
	ScrollHeight float32
	ClientHeight float32
}

// DistanceToBottom is how far the viewport's bottom edge is from the end
// of the content.
func (m Metrics) DistanceToBottom() float32 {
	return m.ScrollHeight - m.ScrollTop - m.ClientHeight
}

// Dispatcher runs blocking work off the caller's goroutine.
type Dispatcher func(func())

// Background runs fn on a new goroutine.
func Background(fn func()) { go fn() }

// Inline runs fn on the caller's goroutine.
func Inline(fn func()) { fn() }

// Option configures a Grid.
type Option func(*Grid)

// WithDispatcher replaces the Background dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(g *Grid) { g.dispatch = d }
}

// Grid is safe for concurrent use.
type Grid struct {
	cfg      Config
	coord    *query.Coordinator
	table    *table.Table
	virt     *virtual.Virtualizer
	log      *logrus.Entry
	dispatch Dispatcher

	mu        sync.Mutex
	ctx       context.Context
	st        state.State
	rows      table.RowModel
	metrics   Metrics
	resets    uint64
	listeners []func()
	cancel    func()
}

// New builds a grid over src with the given columns.
func New(src datatable.PageSource, columns []table.Column, cfg Config, log *logrus.Entry, opts ...Option) (*Grid, error) {
	if src == nil {
		return nil, datatable.ErrNoDataSource
	}
	tbl, err := table.New(columns)
	if err != nil {
		return nil, fmt.Errorf("grid columns: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.RowHeight <= 0 {
		cfg.RowHeight = DefaultConfig().RowHeight
	}

	g := &Grid{
		cfg:      cfg,
		coord:    query.New(src, cfg.Query, log),
		table:    tbl,
		log:      log.WithField("component", "grid"),
		dispatch: Background,
		ctx:      context.Background(),
		virt: virtual.New(virtual.Options{
			EstimateSize: cfg.RowHeight,
			Overscan:     cfg.Overscan,
		}),
	}
	for _, o := range opts {
		o(g)
	}
	g.st = state.Initial(g.coord.Key())
	g.metrics = Metrics{ClientHeight: cfg.ViewportHeight}
	g.virt.SetViewport(0, cfg.ViewportHeight)
	g.cancel = g.coord.Subscribe(g.onEvent)
	return g, nil
}

// Table returns the column definitions.
func (g *Grid) Table() *table.Table { return g.table }

// Coordinator returns the fetch coordinator.
func (g *Grid) Coordinator() *query.Coordinator { return g.coord }

// OnChange registers fn to run after every state change. fn runs on the
// goroutine that caused the change.
func (g *Grid) OnChange(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

// Close stops listening to the coordinator.
func (g *Grid) Close() {
	if g.cancel != nil {
		g.cancel()
	}
}

func (g *Grid) notify() {
	g.mu.Lock()
	ls := append([]func(){}, g.listeners...)
	g.mu.Unlock()
	for _, fn := range ls {
		fn()
	}
}

// Mount starts the initial load. ctx bounds every fetch the grid issues.
func (g *Grid) Mount(ctx context.Context) {
	g.mu.Lock()
	g.ctx = ctx
	g.mu.Unlock()

	g.run(func(ctx context.Context) error { return g.coord.EnsureInitial(ctx) })
}

func (g *Grid) run(fn func(ctx context.Context) error) {
	g.mu.Lock()
	ctx := g.ctx
	g.mu.Unlock()
	g.dispatch(func() {
		if err := fn(ctx); err != nil {
			g.log.WithError(err).Debug("fetch returned error")
		}
	})
}

// OnScroll records the container metrics and fetches the next page when
// the viewport is near the bottom.
func (g *Grid) OnScroll(m Metrics) {
	g.mu.Lock()
	g.metrics = m
	g.virt.SetViewport(m.ScrollTop, m.ClientHeight)
	g.mu.Unlock()

	g.check(&m)
	g.notify()
}

// check runs the trigger policy. With m nil it re-checks the last known
// scroll position against the current content height.
func (g *Grid) check(m *Metrics) {
	g.mu.Lock()
	metrics := g.metrics
	if m != nil {
		metrics = *m
	} else {
		metrics.ScrollHeight = g.virt.TotalSize()
	}
	st := g.st
	g.mu.Unlock()

	if !g.shouldFetch(st, metrics) {
		return
	}
	next := len(st.Pages)
	if st.Placeholder {
		next = 0
	}
	g.log.WithFields(logrus.Fields{
		"fetched":  st.Fetched(),
		"total":    st.TotalRowCount,
		"distance": metrics.DistanceToBottom(),
		"page":     next,
	}).Debug("near bottom, fetching next page")
	g.run(func(ctx context.Context) error { return g.coord.FetchPage(ctx, next) })
}

func (g *Grid) shouldFetch(st state.State, m Metrics) bool {
	if st.Fetching || !st.HasMore() {
		return false
	}
	if m.DistanceToBottom() >= g.cfg.FetchThreshold {
		return false
	}
	// a failed first page is retried by the next trigger
	return (len(st.Pages) > 0 && !st.Placeholder) || st.Err != nil
}

func (g *Grid) onEvent(ev query.Event) {
	if ev.IsStale() {
		return
	}
	var action state.Action
	recheck := false
	switch e := ev.(type) {
	case query.FetchStarted:
		action = state.FetchStarted{Key: e.EventKey()}
	case query.PageLoaded:
		g.mu.Lock()
		g.st = state.Reduce(g.st, g.pageLoadedLocked(e))
		g.rebuildLocked()
		g.mu.Unlock()
		g.notify()
		g.check(nil)
		return
	case query.PagesReplaced:
		action = state.PagesReplaced{Key: e.EventKey(), Pages: e.Pages}
		recheck = true
	case query.FetchFailed:
		action = state.FetchFailed{Key: e.EventKey(), Err: e.Err}
	default:
		return
	}

	g.apply(action)
	if recheck {
		g.check(nil)
	}
}

// pageLoadedLocked appends e when it is the next page of the current key.
// Otherwise the state has drifted from the cache, e.g. a page that landed
// while the sort was switching back, and the pages are taken from the
// coordinator instead. g.mu must be held.
func (g *Grid) pageLoadedLocked(e query.PageLoaded) state.Action {
	key := e.EventKey()
	next := len(g.st.Pages)
	if g.st.Placeholder {
		next = 0
	}
	if key != g.st.QueryKey || e.Index == next {
		return state.PageAppended{Key: key, Page: e.Page}
	}
	snap := g.coord.Snapshot()
	if snap.Key != key || snap.IsPlaceholderData {
		return state.PageAppended{Key: key, Page: e.Page}
	}
	g.log.WithFields(logrus.Fields{"key": key, "page": e.Index, "have": next}).Debug("resyncing pages from cache")
	return state.PagesReplaced{Key: key, Pages: snap.Pages}
}

// apply reduces a and recomputes the row model.
func (g *Grid) apply(actions ...state.Action) {
	g.mu.Lock()
	for _, a := range actions {
		g.st = state.Reduce(g.st, a)
	}
	g.rebuildLocked()
	g.mu.Unlock()
	g.notify()
}

func (g *Grid) rebuildLocked() {
	g.rows = g.table.RowModel(g.st.Rows(), table.State{
		Sorting:      g.st.Sorting,
		GlobalFilter: g.st.GlobalFilter,
		Filters:      g.st.Filters,
	})
	g.virt.SetCount(len(g.rows.Rows))
}

// ToggleSort cycles columnID's sort and restarts fetching from the first
// page of the new sort.
func (g *Grid) ToggleSort(columnID string, multi bool) {
	if !g.table.CanSort(columnID) {
		return
	}
	g.mu.Lock()
	next := table.NextSorting(g.st.Sorting, columnID, multi)
	g.mu.Unlock()
	g.SetSorting(next)
}

// SetSorting replaces the sort and scrolls back to the top.
func (g *Grid) SetSorting(next datatable.Sorting) {
	// held across the switch so no page event lands between the snapshot
	// and the reduce
	g.mu.Lock()
	g.coord.SetSorting(next)
	snap := g.coord.Snapshot()

	var cached []datatable.Page
	if !snap.IsPlaceholderData {
		cached = snap.Pages
	}

	g.st = state.Reduce(g.st, state.SortChanged{
		Sorting:      next,
		Key:          snap.Key,
		Cached:       cached,
		KeepPrevious: g.cfg.Query.KeepPreviousData,
	})
	g.rebuildLocked()
	g.scrollToTopLocked()
	g.mu.Unlock()
	g.notify()

	g.log.WithField("sort", next.Key()).Debug("sorting changed")
	g.run(func(ctx context.Context) error { return g.coord.EnsureInitial(ctx) })
}

func (g *Grid) scrollToTopLocked() {
	g.metrics.ScrollTop = g.virt.ScrollToIndex(0, virtual.AlignStart)
	g.resets++
}

// ScrollResets counts the times the grid moved the viewport back to the
// first row. Front ends scroll their container to the top when it changes.
func (g *Grid) ScrollResets() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resets
}

// SetGlobalFilter filters the fetched rows by text.
func (g *Grid) SetGlobalFilter(text string) {
	g.apply(state.FilterChanged{Text: text})
}

// SetFilters replaces the additional filters.
func (g *Grid) SetFilters(filters []datatable.Filter) {
	g.apply(state.FiltersChanged{Filters: filters})
}

// Refetch reloads every fetched page of the current sort.
func (g *Grid) Refetch() {
	g.run(func(ctx context.Context) error { return g.coord.Refetch(ctx) })
}

// Invalidate drops the current sort's pages and loads them again.
func (g *Grid) Invalidate() {
	g.coord.Invalidate()
	g.resetToTop()
	g.run(func(ctx context.Context) error { return g.coord.EnsureInitial(ctx) })
}

// InvalidateAll drops the pages of every sort, then loads the current one
// again.
func (g *Grid) InvalidateAll() {
	g.coord.InvalidateAll()
	g.resetToTop()
	g.run(func(ctx context.Context) error { return g.coord.EnsureInitial(ctx) })
}

func (g *Grid) resetToTop() {
	g.mu.Lock()
	g.st = state.Reduce(g.st, state.CacheInvalidated{})
	g.rebuildLocked()
	g.scrollToTopLocked()
	g.mu.Unlock()
	g.notify()
}

// FetchAll loads every remaining page of the current sort on the calling
// goroutine. It stops at the first failed page.
func (g *Grid) FetchAll(ctx context.Context) error {
	if err := g.coord.EnsureInitial(ctx); err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap := g.coord.Snapshot()
		if snap.Err != nil {
			return snap.Err
		}
		if !snap.HasNextPage {
			return nil
		}
		if err := g.coord.FetchNextPage(ctx); err != nil {
			return err
		}
	}
}

// State returns a copy of the reducer state.
func (g *Grid) State() state.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st
}

// Rows returns the current row model, for export.
func (g *Grid) Rows() []datatable.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]datatable.Record, len(g.rows.Rows))
	for i, r := range g.rows.Rows {
		out[i] = r.Record
	}
	return out
}

// Model captures what the view needs for the current scroll position.
func (g *Grid) Model() view.Model {
	g.mu.Lock()
	defer g.mu.Unlock()

	w := g.virt.Window()
	m := view.Model{
		Headers: g.table.HeaderGroups(table.State{Sorting: g.st.Sorting})[0].Headers,
		// hidden while a failed first page is waiting for a retry
		Loading:       g.st.Loading && g.st.Err == nil,
		Fetching:      g.st.Fetching,
		Placeholder:   g.st.Placeholder,
		Fetched:       g.st.Shown(),
		Total:         g.st.TotalRowCount,
		Filtered:      len(g.rows.Rows),
		Err:           g.st.Err,
		FilterErr:     g.rows.Err,
		PaddingTop:    w.PaddingTop,
		PaddingBottom: w.PaddingBottom,
		TotalHeight:   w.TotalSize,
		ScrollTop:     g.metrics.ScrollTop,
	}
	m.Rows = make([]view.VisibleRow, 0, len(w.Items))
	for _, it := range w.Items {
		r := g.rows.Rows[it.Index]
		cells := make([]string, len(g.table.Columns()))
		for c := range cells {
			cells[c] = g.table.CellText(r.Record, c)
		}
		m.Rows = append(m.Rows, view.VisibleRow{Index: it.Index, ID: r.ID, Cells: cells, Height: it.Size})
	}
	return m
}

// Frame renders the current model.
func (g *Grid) Frame() view.Frame {
	return view.Render(g.Model())
}
