package query

import "pagedtable/datatable"

// Event is published to subscribers when a key's data changes. Stale is
// true when the event's key is no longer the current key; consumers
// must not merge stale data.
type Event interface {
	EventKey() string
	IsStale() bool
}

type eventBase struct {
	Key   string
	Stale bool
}

func (e eventBase) EventKey() string { return e.Key }
func (e eventBase) IsStale() bool    { return e.Stale }

// FetchStarted is published before the first attempt of a fetch.
type FetchStarted struct {
	eventBase
	Index int
}

// PageLoaded is published when page Index was appended to Key.
type PageLoaded struct {
	eventBase
	Index int
	Page  datatable.Page
}

// PagesReplaced is published after a refetch replaced every page of Key.
type PagesReplaced struct {
	eventBase
	Pages []datatable.Page
}

// FetchFailed is published when every attempt for a page failed.
type FetchFailed struct {
	eventBase
	Index int
	Err   error
}
