// Package state holds the table screen's state and the pure reducer that
// advances it.
package state

import "pagedtable/datatable"

// State is everything the screen renders from, apart from geometry.
type State struct {
	// QueryKey is the cache key of the current sort.
	QueryKey      string
	Sorting       datatable.Sorting
	GlobalFilter  string
	Filters       []datatable.Filter
	Pages         []datatable.Page
	TotalRowCount int
	Loading       bool
	Fetching      bool
	Err           error
	// Placeholder is true while Pages belong to the previous sort.
	Placeholder bool
}

// Initial is the state before anything was fetched for key.
func Initial(key string) State {
	return State{QueryKey: key, Loading: true}
}

// Rows flattens Pages in fetch order.
func (s State) Rows() []datatable.Record {
	var n int
	for _, p := range s.Pages {
		n += len(p.Data)
	}
	rows := make([]datatable.Record, 0, n)
	for _, p := range s.Pages {
		rows = append(rows, p.Data...)
	}
	return rows
}

// Fetched is the number of rows loaded for the current key.
func (s State) Fetched() int {
	if s.Placeholder {
		return 0
	}
	return s.Shown()
}

// Shown is the number of rows on screen, placeholder rows included, so it
// always pairs with TotalRowCount of the same pages.
func (s State) Shown() int {
	var n int
	for _, p := range s.Pages {
		n += len(p.Data)
	}
	return n
}

// HasMore reports whether rows remain to be fetched for the current key.
func (s State) HasMore() bool {
	if s.Placeholder || len(s.Pages) == 0 {
		return true
	}
	if len(s.Pages[len(s.Pages)-1].Data) == 0 {
		return false
	}
	return s.Fetched() < s.TotalRowCount
}

// Action is an input to Reduce.
type Action interface {
	isAction()
}

// SortChanged switches to a new sort and its cache key. Cached pages for
// the key, if any, replace the current ones; otherwise the previous pages
// stay visible as placeholder when KeepPrevious is set.
type SortChanged struct {
	Sorting      datatable.Sorting
	Key          string
	Cached       []datatable.Page
	KeepPrevious bool
}

// FilterChanged sets the global filter text.
type FilterChanged struct{ Text string }

// FiltersChanged replaces the additional filters.
type FiltersChanged struct{ Filters []datatable.Filter }

// PageAppended adds a page fetched for Key.
type PageAppended struct {
	Key  string
	Page datatable.Page
}

// PagesReplaced swaps every page of Key, after a refetch.
type PagesReplaced struct {
	Key   string
	Pages []datatable.Page
}

// FetchStarted marks a fetch for Key as outstanding.
type FetchStarted struct{ Key string }

// FetchFailed records a failed fetch for Key.
type FetchFailed struct {
	Key string
	Err error
}

// CacheInvalidated drops the loaded pages of the current key.
type CacheInvalidated struct{}

func (SortChanged) isAction()      {}
func (FilterChanged) isAction()    {}
func (FiltersChanged) isAction()   {}
func (PageAppended) isAction()     {}
func (PagesReplaced) isAction()    {}
func (FetchStarted) isAction()     {}
func (FetchFailed) isAction()      {}
func (CacheInvalidated) isAction() {}

// Reduce returns the state after a. It never mutates s. Actions carrying
// a key other than s.QueryKey are ignored so that pages of an abandoned
// sort are never merged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SortChanged:
		if a.Key == s.QueryKey {
			s.Sorting = a.Sorting.Clone()
			return s
		}
		s.QueryKey = a.Key
		s.Sorting = a.Sorting.Clone()
		s.Err = nil
		s.Fetching = false
		switch {
		case len(a.Cached) > 0:
			s.Pages = clonePages(a.Cached)
			s.TotalRowCount = a.Cached[len(a.Cached)-1].Meta.TotalRowCount
			s.Placeholder = false
			s.Loading = false
		case a.KeepPrevious && len(s.Pages) > 0:
			s.Placeholder = true
			s.Loading = false
		default:
			s.Pages = nil
			s.Placeholder = false
			s.Loading = true
		}

	case FilterChanged:
		s.GlobalFilter = a.Text

	case FiltersChanged:
		s.Filters = append([]datatable.Filter(nil), a.Filters...)

	case PageAppended:
		if a.Key != s.QueryKey {
			return s
		}
		if s.Placeholder {
			s.Pages = nil
			s.Placeholder = false
		}
		s.Pages = append(clonePages(s.Pages), a.Page)
		s.TotalRowCount = a.Page.Meta.TotalRowCount
		s.Loading = false
		s.Fetching = false
		s.Err = nil

	case PagesReplaced:
		if a.Key != s.QueryKey {
			return s
		}
		s.Pages = clonePages(a.Pages)
		if len(a.Pages) > 0 {
			s.TotalRowCount = a.Pages[len(a.Pages)-1].Meta.TotalRowCount
		}
		s.Placeholder = false
		s.Loading = false
		s.Fetching = false
		s.Err = nil

	case FetchStarted:
		if a.Key != s.QueryKey {
			return s
		}
		s.Fetching = true
		s.Err = nil

	case FetchFailed:
		if a.Key != s.QueryKey {
			return s
		}
		s.Fetching = false
		s.Loading = false
		s.Err = a.Err

	case CacheInvalidated:
		s.Pages = nil
		s.TotalRowCount = 0
		s.Placeholder = false
		s.Loading = true
		s.Fetching = false
		s.Err = nil
	}
	return s
}

func clonePages(p []datatable.Page) []datatable.Page {
	if p == nil {
		return nil
	}
	return append(make([]datatable.Page, 0, len(p)+1), p...)
}
