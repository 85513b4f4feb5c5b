// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package deltasharing browses a Delta Sharing server and loads shared
// tables as paged sources.
package deltasharing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	delta_sharing "github.com/magpierre/go_delta_sharing_client"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	arrowadapter "pagedtable/adapters/arrow"
	"pagedtable/datatable"
)

// DefaultTimeout bounds every call to the sharing server.
const DefaultTimeout = 60 * time.Second

// maxConcurrentDownloads caps parallel data file downloads.
const maxConcurrentDownloads = 4

// Table identifies a shared table.
type Table = delta_sharing.Table

// FileInfo describes one data file of a table.
type FileInfo struct {
	ID         string
	Size       int64
	NumRecords int64
}

// Catalog talks to one sharing server.
type Catalog struct {
	client  delta_sharing.SharingClient
	timeout time.Duration
	log     *logrus.Entry
}

// NewCatalog parses profile, the JSON contents of a profile file.
func NewCatalog(profile string, timeout time.Duration, log *logrus.Entry) (*Catalog, error) {
	if !arrowadapter.IsDeltaSharingProfile(profile) {
		return nil, fmt.Errorf("not a Delta Sharing profile")
	}
	client, err := delta_sharing.NewSharingClientFromString(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Delta Sharing client: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Catalog{client: client, timeout: timeout, log: log.WithField("component", "deltasharing")}, nil
}

// NewCatalogFromFile reads the profile at path.
func NewCatalogFromFile(path string, timeout time.Duration, log *logrus.Entry) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return NewCatalog(string(raw), timeout, log)
}

func (c *Catalog) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Tables lists every table of every share.
func (c *Catalog) Tables(ctx context.Context) ([]Table, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	tables, _, err := c.client.ListAllTables(ctx, 0, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list all tables: %w", err)
	}
	c.log.WithField("tables", len(tables)).Debug("listed shared tables")
	return tables, nil
}

// Files lists the data files of table.
func (c *Catalog) Files(ctx context.Context, table Table) ([]FileInfo, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.ListFilesInTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", TableURL(table), err)
	}
	files := make([]FileInfo, len(resp.AddFiles))
	for i, f := range resp.AddFiles {
		files[i] = FileInfo{ID: f.Id, Size: f.Size, NumRecords: -1}
		if st, err := f.GetStats(); err == nil {
			files[i].NumRecords = st.NumRecords
		}
	}
	return files, nil
}

// Load downloads table into a paged source. With fileID empty every data
// file is loaded and concatenated.
func (c *Catalog) Load(ctx context.Context, table Table, fileID string) (*arrowadapter.Source, error) {
	log := c.log.WithFields(logrus.Fields{"table": TableURL(table), "file": fileID})
	start := time.Now()

	if fileID != "" {
		lctx, cancel := c.withTimeout(ctx)
		defer cancel()
		tbl, err := delta_sharing.LoadArrowTable(lctx, c.client, table, fileID)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", TableURL(table), err)
		}
		defer tbl.Release()
		log.WithField("elapsed", time.Since(start)).Info("loaded shared table file")
		return arrowadapter.NewSource(tbl)
	}

	lctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.client.ListFilesInTable(lctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", TableURL(table), err)
	}
	if len(resp.AddFiles) == 0 {
		return nil, fmt.Errorf("%w: %s has no data files", datatable.ErrEmptyData, TableURL(table))
	}

	tbls := make([]arrow.Table, len(resp.AddFiles))
	defer func() {
		for _, t := range tbls {
			if t != nil {
				t.Release()
			}
		}
	}()

	g, gctx := errgroup.WithContext(lctx)
	g.SetLimit(maxConcurrentDownloads)
	for i, f := range resp.AddFiles {
		g.Go(func() error {
			t, err := c.client.ReadFileUrlToArrowTable(gctx, f.Url)
			if err != nil {
				return fmt.Errorf("file %s: %w", f.Id, err)
			}
			tbls[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", TableURL(table), err)
	}

	src, err := arrowadapter.NewSourceFromTables(tbls)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"files":   len(tbls),
		"rows":    src.Len(),
		"elapsed": time.Since(start),
	}).Info("loaded shared table")
	return src, nil
}

// TableURL renders table as share.schema.table.
func TableURL(t Table) string {
	return t.Share + "." + t.Schema + "." + t.Name
}

// ParseTableURL accepts share.schema.table, optionally prefixed with a
// profile path and '#'.
func ParseTableURL(s string) (Table, error) {
	if i := strings.LastIndex(s, "#"); i >= 0 {
		s = s[i+1:]
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Table{}, fmt.Errorf("invalid table %q: want share.schema.table", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return Table{}, fmt.Errorf("invalid table %q: empty name", s)
		}
	}
	return Table{Share: parts[0], Schema: parts[1], Name: parts[2]}, nil
}
