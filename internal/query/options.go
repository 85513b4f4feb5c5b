package query

import (
	"time"

	"github.com/sony/gobreaker"
)

// Options configures a Coordinator.
type Options struct {
	// QueryKey prefixes every cache key.
	QueryKey string
	// FetchSize is the number of rows requested per page.
	FetchSize int
	// Retry is the number of retries after a failed attempt.
	Retry int
	// RetryDelay is the first backoff interval; later ones grow
	// exponentially up to RetryMaxDelay.
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
	// Timeout bounds a single attempt. Zero disables it.
	Timeout time.Duration
	// KeepPreviousData exposes the previous key's pages while the first
	// page of a new key loads.
	KeepPreviousData bool
	// CacheTime is how long an inactive key's pages are kept.
	CacheTime time.Duration
	Breaker   BreakerOptions
}

// BreakerOptions configures the circuit breaker around the source.
type BreakerOptions struct {
	// MaxFailures is the number of consecutive failed attempts that
	// opens the breaker. Zero disables the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a
	// probe request through.
	OpenTimeout time.Duration
	// Interval clears failure counts while closed. Zero never clears.
	Interval time.Duration
}

// DefaultOptions mirrors the defaults of the config package.
func DefaultOptions() Options {
	return Options{
		QueryKey:         "table-data",
		FetchSize:        100,
		Retry:            3,
		RetryDelay:       500 * time.Millisecond,
		RetryMaxDelay:    10 * time.Second,
		Timeout:          30 * time.Second,
		KeepPreviousData: true,
		CacheTime:        5 * time.Minute,
		Breaker: BreakerOptions{
			MaxFailures: 5,
			OpenTimeout: 30 * time.Second,
		},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.QueryKey == "" {
		o.QueryKey = d.QueryKey
	}
	if o.FetchSize <= 0 {
		o.FetchSize = d.FetchSize
	}
	if o.Retry < 0 {
		o.Retry = 0
	}
	if o.RetryMaxDelay <= 0 {
		o.RetryMaxDelay = d.RetryMaxDelay
	}
	return o
}

func (b BreakerOptions) settings(name string, onChange func(name string, from, to gobreaker.State), isSuccessful func(error) bool) gobreaker.Settings {
	maxFailures := b.MaxFailures
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    b.Interval,
		Timeout:     b.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: onChange,
		IsSuccessful:  isSuccessful,
	}
}
