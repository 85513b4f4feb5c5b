// Package config loads settings from defaults, an optional config file
// and PAGEDTABLE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"pagedtable/internal/grid"
	"pagedtable/internal/query"
)

// EnvPrefix prefixes every environment override, e.g.
// PAGEDTABLE_TABLE_FETCH_SIZE.
const EnvPrefix = "PAGEDTABLE"

// Source kinds.
const (
	SourceDummy        = "dummy"
	SourceFile         = "file"
	SourceDeltaSharing = "deltasharing"
)

// Config is the full application configuration.
type Config struct {
	Table  *Table
	Query  *Query
	Source *Source
	Logger *Logger
	Viper  *viper.Viper
}

// Table configures paging and layout.
type Table struct {
	FetchSize      int
	FetchThreshold float64
	Overscan       int
	RowHeight      float64
	ViewportHeight float64
}

// Query configures the fetch coordinator.
type Query struct {
	Key              string
	Retry            int
	RetryDelay       time.Duration
	RetryMaxDelay    time.Duration
	Timeout          time.Duration
	KeepPreviousData bool
	CacheTime        time.Duration
	Breaker          *Breaker
}

// Breaker configures the circuit breaker.
type Breaker struct {
	MaxFailures uint32
	OpenTimeout time.Duration
	Interval    time.Duration
}

// Source selects and configures the data source.
type Source struct {
	Kind    string
	Rows    int
	Seed    uint64
	File    string
	Profile string
	Table   string
	Latency time.Duration
	// Chaos is the probability that a dummy fetch fails.
	Chaos float64
}

// Logger logger config struct
type Logger struct {
	Level      string
	Format     string
	Output     string
	OutputFile string
}

// New returns a viper instance reading PAGEDTABLE_* overrides.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configPath when set, otherwise looks for a pagedtable
// config in the working directory and $HOME/.pagedtable. A missing file
// is not an error unless configPath names it.
func LoadConfig(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("pagedtable")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pagedtable")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromViper builds a Config from v, falling back to defaults.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Table:  getTableConfig(v),
		Query:  getQueryConfig(v),
		Source: getSourceConfig(v),
		Logger: getLoggerConfig(v),
		Viper:  v,
	}
}

func getTableConfig(v *viper.Viper) *Table {
	return &Table{
		FetchSize:      getIntOrDefault(v, "table.fetch_size", 100),
		FetchThreshold: getFloat64OrDefault(v, "table.fetch_threshold", 300),
		Overscan:       getIntOrDefault(v, "table.overscan", 10),
		RowHeight:      getFloat64OrDefault(v, "table.row_height", 35),
		ViewportHeight: getFloat64OrDefault(v, "table.viewport_height", 500),
	}
}

func getQueryConfig(v *viper.Viper) *Query {
	return &Query{
		Key:              getStringOrDefault(v, "query.key", "table-data"),
		Retry:            getIntOrDefault(v, "query.retry", 3),
		RetryDelay:       getDurationOrDefault(v, "query.retry_delay", 500*time.Millisecond),
		RetryMaxDelay:    getDurationOrDefault(v, "query.retry_max_delay", 10*time.Second),
		Timeout:          getDurationOrDefault(v, "query.timeout", 30*time.Second),
		KeepPreviousData: getBoolOrDefault(v, "query.keep_previous_data", true),
		CacheTime:        getDurationOrDefault(v, "query.cache_time", 5*time.Minute),
		Breaker: &Breaker{
			MaxFailures: getUint32OrDefault(v, "query.breaker.max_failures", 5),
			OpenTimeout: getDurationOrDefault(v, "query.breaker.open_timeout", 30*time.Second),
			Interval:    getDurationOrDefault(v, "query.breaker.interval", 0),
		},
	}
}

func getSourceConfig(v *viper.Viper) *Source {
	return &Source{
		Kind:    getStringOrDefault(v, "source.kind", SourceDummy),
		Rows:    getIntOrDefault(v, "source.rows", 1000),
		Seed:    getUint64OrDefault(v, "source.seed", 42),
		File:    getStringOrDefault(v, "source.file", ""),
		Profile: getStringOrDefault(v, "source.profile", ""),
		Table:   getStringOrDefault(v, "source.table", ""),
		Latency: getDurationOrDefault(v, "source.latency", 0),
		Chaos:   getFloat64OrDefault(v, "source.chaos", 0),
	}
}

func getLoggerConfig(v *viper.Viper) *Logger {
	return &Logger{
		Level:      getStringOrDefault(v, "logger.level", "info"),
		Format:     getStringOrDefault(v, "logger.format", "text"),
		Output:     getStringOrDefault(v, "logger.output", "stderr"),
		OutputFile: getStringOrDefault(v, "logger.output_file", ""),
	}
}

// Validate rejects settings the grid cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Table.FetchSize <= 0 {
		errs = append(errs, fmt.Errorf("table.fetch_size must be positive, got %d", c.Table.FetchSize))
	}
	if c.Table.RowHeight <= 0 {
		errs = append(errs, fmt.Errorf("table.row_height must be positive, got %g", c.Table.RowHeight))
	}
	if c.Table.ViewportHeight <= 0 {
		errs = append(errs, fmt.Errorf("table.viewport_height must be positive, got %g", c.Table.ViewportHeight))
	}
	if c.Table.FetchThreshold < 0 {
		errs = append(errs, fmt.Errorf("table.fetch_threshold must not be negative, got %g", c.Table.FetchThreshold))
	}
	if c.Table.Overscan < 0 {
		errs = append(errs, fmt.Errorf("table.overscan must not be negative, got %d", c.Table.Overscan))
	}
	if c.Query.Retry < 0 {
		errs = append(errs, fmt.Errorf("query.retry must not be negative, got %d", c.Query.Retry))
	}
	if c.Source.Rows < 0 {
		errs = append(errs, fmt.Errorf("source.rows must not be negative, got %d", c.Source.Rows))
	}
	if c.Source.Chaos < 0 || c.Source.Chaos > 1 {
		errs = append(errs, fmt.Errorf("source.chaos must be within [0, 1], got %g", c.Source.Chaos))
	}
	switch c.Source.Kind {
	case SourceDummy:
	case SourceFile:
		if c.Source.File == "" {
			errs = append(errs, errors.New("source.file is required for the file source"))
		}
	case SourceDeltaSharing:
		if c.Source.Profile == "" {
			errs = append(errs, errors.New("source.profile is required for the deltasharing source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.kind %q", c.Source.Kind))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// QueryOptions maps the query section onto coordinator options.
func (c *Config) QueryOptions() query.Options {
	return query.Options{
		QueryKey:         c.Query.Key,
		FetchSize:        c.Table.FetchSize,
		Retry:            c.Query.Retry,
		RetryDelay:       c.Query.RetryDelay,
		RetryMaxDelay:    c.Query.RetryMaxDelay,
		Timeout:          c.Query.Timeout,
		KeepPreviousData: c.Query.KeepPreviousData,
		CacheTime:        c.Query.CacheTime,
		Breaker: query.BreakerOptions{
			MaxFailures: c.Query.Breaker.MaxFailures,
			OpenTimeout: c.Query.Breaker.OpenTimeout,
			Interval:    c.Query.Breaker.Interval,
		},
	}
}

// GridConfig maps the table and query sections onto the grid.
func (c *Config) GridConfig() grid.Config {
	return grid.Config{
		FetchThreshold: float32(c.Table.FetchThreshold),
		Overscan:       c.Table.Overscan,
		RowHeight:      float32(c.Table.RowHeight),
		ViewportHeight: float32(c.Table.ViewportHeight),
		Query:          c.QueryOptions(),
	}
}
