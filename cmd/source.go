package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	arrowadapter "pagedtable/adapters/arrow"
	"pagedtable/adapters/deltasharing"
	"pagedtable/config"
	"pagedtable/datatable"
	"pagedtable/dummy"
	"pagedtable/internal/table"
)

// errSimulated is returned by chaos-enabled dummy fetches.
var errSimulated = errors.New("simulated fetch failure")

// errNoTable means a deltasharing source was configured without a table.
var errNoTable = errors.New("source.table is required to open a shared table")

// openedSource is a page source with its display columns.
type openedSource struct {
	name    string
	src     datatable.PageSource
	columns []table.Column
}

// openSource builds the configured page source.
func openSource(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*openedSource, error) {
	s := cfg.Source
	switch s.Kind {
	case config.SourceFile:
		tbl, err := arrowadapter.LoadFile(ctx, s.File)
		if err != nil {
			return nil, err
		}
		defer tbl.Release()
		src, err := arrowadapter.NewSource(tbl)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{"file": s.File, "rows": src.Len()}).Info("loaded file")
		return &openedSource{name: filepath.Base(s.File), src: src, columns: table.FromSchema(src.Columns())}, nil

	case config.SourceDeltaSharing:
		if s.Table == "" {
			return nil, errNoTable
		}
		t, err := deltasharing.ParseTableURL(s.Table)
		if err != nil {
			return nil, err
		}
		catalog, err := deltasharing.NewCatalogFromFile(s.Profile, cfg.Query.Timeout, log)
		if err != nil {
			return nil, err
		}
		src, err := catalog.Load(ctx, t, "")
		if err != nil {
			return nil, err
		}
		return &openedSource{name: deltasharing.TableURL(t), src: src, columns: table.FromSchema(src.Columns())}, nil

	case config.SourceDummy:
		var opts []dummy.Option
		if s.Latency > 0 {
			opts = append(opts, dummy.WithLatency(s.Latency))
		}
		if s.Chaos > 0 {
			var mu sync.Mutex
			rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))
			opts = append(opts, dummy.WithFailures(func(offset int) error {
				mu.Lock()
				roll := rng.Float64()
				mu.Unlock()
				if roll < s.Chaos {
					return fmt.Errorf("%w at offset %d", errSimulated, offset)
				}
				return nil
			}))
		}
		src := dummy.NewSource(dummy.MakeData(s.Rows, s.Seed), opts...)
		log.WithFields(logrus.Fields{"rows": s.Rows, "chaos": s.Chaos}).Info("generated dummy data")
		return &openedSource{name: "people", src: src, columns: table.PersonColumns()}, nil
	}
	return nil, fmt.Errorf("unknown source.kind %q", s.Kind)
}
