package dummy

import (
	"context"
	"time"

	"pagedtable/datatable"
)

// Source serves Person rows page by page, the way a remote API would.
// Only the first sort key is applied, as the simulated backend does.
type Source struct {
	people  []Person
	latency time.Duration
	failure func(offset int) error
}

// Option configures a Source.
type Option func(*Source)

// WithLatency delays every fetch by d, or until ctx is done.
func WithLatency(d time.Duration) Option {
	return func(s *Source) { s.latency = d }
}

// WithFailures makes Fetch return fn(offset) when it is non-nil.
func WithFailures(fn func(offset int) error) Option {
	return func(s *Source) { s.failure = fn }
}

// NewSource serves a private copy of people.
func NewSource(people []Person, opts ...Option) *Source {
	cp := make([]Person, len(people))
	copy(cp, people)
	s := &Source{people: cp}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ datatable.PageSource = (*Source)(nil)

// Columns implements datatable.PageSource.
func (s *Source) Columns() []datatable.ColumnInfo {
	return Columns()
}

// Fetch implements datatable.PageSource.
func (s *Source) Fetch(ctx context.Context, offset, limit int, sorting datatable.Sorting) (datatable.Page, error) {
	if err := datatable.ValidatePageRequest(offset, limit); err != nil {
		return datatable.Page{}, err
	}
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return datatable.Page{}, ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return datatable.Page{}, err
	}
	if s.failure != nil {
		if err := s.failure(offset); err != nil {
			return datatable.Page{}, err
		}
	}

	rows := make([]datatable.Record, len(s.people))
	for i, p := range s.people {
		rows[i] = p.Record()
	}
	if sorting.IsSorted() {
		if err := datatable.SortRecords(rows, Columns(), sorting[:1]); err != nil {
			return datatable.Page{}, err
		}
	}
	return datatable.SlicePage(rows, offset, limit), nil
}
