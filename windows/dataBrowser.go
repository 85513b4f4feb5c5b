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

package windows

import (
	"context"
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	arrowadapter "pagedtable/adapters/arrow"
	"pagedtable/adapters/deltasharing"
	"pagedtable/datatable"
	"pagedtable/internal/grid"
	"pagedtable/internal/table"
)

// Data holds information about a table tab.
type Data struct {
	view      *TableView
	tab       *container.TabItem
	tableName string
}

// DataBrowser manages one tab per open table.
type DataBrowser struct {
	w              fyne.Window
	ctx            context.Context
	cfg            grid.Config
	log            *logrus.Entry
	theme          *CustomTheme
	tabs           *container.DocTabs
	tabDataMap     map[*container.TabItem]*Data
	statusCallback func(string)
}

// NewDataBrowser creates an empty browser. ctx bounds every grid fetch.
func NewDataBrowser(ctx context.Context, w fyne.Window, th *CustomTheme, cfg grid.Config, log *logrus.Entry, statusCallback func(string)) *DataBrowser {
	t := &DataBrowser{
		w:              w,
		ctx:            ctx,
		cfg:            cfg,
		log:            log.WithField("component", "browser"),
		theme:          th,
		tabDataMap:     make(map[*container.TabItem]*Data),
		statusCallback: statusCallback,
	}

	t.tabs = container.NewDocTabs()
	t.tabs.CloseIntercept = func(ti *container.TabItem) {
		if data, exists := t.tabDataMap[ti]; exists {
			data.view.Close()
			delete(t.tabDataMap, ti)
			t.log.WithField("table", data.tableName).Debug("closed tab")
		}
		t.tabs.Remove(ti)
		if t.tabs.Selected() != nil {
			t.updateStatusForTab(t.tabs.Selected())
		} else if t.statusCallback != nil {
			t.statusCallback("Ready")
		}
	}
	t.tabs.OnSelected = t.updateStatusForTab
	return t
}

// Content is the browser's canvas object.
func (t *DataBrowser) Content() fyne.CanvasObject { return t.tabs }

// updateStatusForTab updates the status bar with information about the given tab.
func (t *DataBrowser) updateStatusForTab(ti *container.TabItem) {
	if ti == nil || t.statusCallback == nil {
		return
	}
	data, exists := t.tabDataMap[ti]
	if !exists {
		return
	}

	g := data.view.Grid()
	st := g.State()
	statusText := fmt.Sprintf("Table %s (%d columns) | Fetched %d of %d Rows.",
		data.tableName, len(g.Table().Columns()), st.Fetched(), st.TotalRowCount)
	if st.Sorting.IsSorted() {
		parts := make([]string, len(st.Sorting))
		for i, s := range st.Sorting {
			direction := "↑"
			if s.Desc {
				direction = "↓"
			}
			parts[i] = s.ColumnID + " " + direction
		}
		statusText += " | Sorted: " + strings.Join(parts, ", ")
	}
	if st.GlobalFilter != "" || len(st.Filters) > 0 {
		statusText += " | Filtered"
	}
	t.statusCallback(statusText)
}

// CreateDataBrowser opens a tab with a grid over src.
func (t *DataBrowser) CreateDataBrowser(name string, src datatable.PageSource, columns []table.Column) error {
	g, err := grid.New(src, columns, t.cfg, t.log)
	if err != nil {
		return err
	}

	var newTab *container.TabItem
	v := NewTableView(t.ctx, t.w, t.theme, name, g, func(string) {
		if newTab != nil && t.tabs.Selected() == newTab {
			t.updateStatusForTab(newTab)
		}
	})
	newTab = container.NewTabItem(tabTitle(name), v.Content())
	t.tabDataMap[newTab] = &Data{view: v, tab: newTab, tableName: name}

	t.tabs.Append(newTab)
	t.tabs.Select(newTab)
	t.updateStatusForTab(newTab)
	t.log.WithFields(logrus.Fields{"table": name, "columns": len(columns)}).Info("opened tab")
	return nil
}

// withProgress runs load off the UI goroutine behind a modal progress
// dialog, then hands its result to done on the UI goroutine.
func (t *DataBrowser) withProgress(title string, load func() (datatable.PageSource, []table.Column, error), done func(datatable.PageSource, []table.Column)) {
	pbi := widget.NewProgressBarInfinite()
	di := dialog.NewCustomWithoutButtons(title, pbi, t.w)
	di.Resize(fyne.NewSize(300, 100))
	di.Show()

	go func() {
		src, cols, err := load()
		fyne.Do(func() {
			di.Hide()
			if err != nil {
				t.log.WithError(err).Warn("load failed")
				dialog.ShowError(err, t.w)
				return
			}
			done(src, cols)
		})
	}()
}

// GetData downloads a shared table and opens it in a new tab. Tables with
// more than one data file ask which file to open first.
func (t *DataBrowser) GetData(catalog *deltasharing.Catalog, tbl deltasharing.Table) {
	go func() {
		files, err := catalog.Files(t.ctx, tbl)
		fyne.Do(func() {
			if err != nil {
				t.log.WithError(err).Warn("listing files failed")
				dialog.ShowError(err, t.w)
				return
			}
			if len(files) <= 1 {
				t.loadShared(catalog, tbl, "")
				return
			}
			t.chooseFile(catalog, tbl, files)
		})
	}()
}

const allFiles = "All files"

func (t *DataBrowser) chooseFile(catalog *deltasharing.Catalog, tbl deltasharing.Table, files []deltasharing.FileInfo) {
	options := []string{allFiles}
	ids := map[string]string{allFiles: ""}
	for _, f := range files {
		label := fmt.Sprintf("%s (%d bytes)", f.ID, f.Size)
		if f.NumRecords >= 0 {
			label = fmt.Sprintf("%s (%d rows)", f.ID, f.NumRecords)
		}
		options = append(options, label)
		ids[label] = f.ID
	}
	sel := widget.NewSelect(options, nil)
	sel.SetSelected(allFiles)

	dialog.ShowForm(fmt.Sprintf("Open %s", tbl.Name), "Open", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("File", sel)},
		func(ok bool) {
			if ok {
				t.loadShared(catalog, tbl, ids[sel.Selected])
			}
		}, t.w)
}

func (t *DataBrowser) loadShared(catalog *deltasharing.Catalog, tbl deltasharing.Table, fileID string) {
	t.withProgress(fmt.Sprintf("Loading %s...", tbl.Name), func() (datatable.PageSource, []table.Column, error) {
		src, err := catalog.Load(t.ctx, tbl, fileID)
		if err != nil {
			return nil, nil, err
		}
		return src, table.FromSchema(src.Columns()), nil
	}, func(src datatable.PageSource, cols []table.Column) {
		if err := t.CreateDataBrowser(deltasharing.TableURL(tbl), src, cols); err != nil {
			dialog.ShowError(err, t.w)
		}
	})
}

// LoadFile reads a CSV, Parquet or JSON file and opens it in a new tab.
func (t *DataBrowser) LoadFile(path string) {
	t.withProgress("Loading "+tabTitle(path)+"...", func() (datatable.PageSource, []table.Column, error) {
		tbl, err := arrowadapter.LoadFile(t.ctx, path)
		if err != nil {
			return nil, nil, err
		}
		defer tbl.Release()
		src, err := arrowadapter.NewSource(tbl)
		if err != nil {
			return nil, nil, err
		}
		return src, table.FromSchema(src.Columns()), nil
	}, func(src datatable.PageSource, cols []table.Column) {
		if err := t.CreateDataBrowser(path, src, cols); err != nil {
			dialog.ShowError(err, t.w)
		}
	})
}

// Selected returns the grid of the active tab, or nil.
func (t *DataBrowser) Selected() *grid.Grid {
	if data, ok := t.tabDataMap[t.tabs.Selected()]; ok {
		return data.view.Grid()
	}
	return nil
}

// ExportSelected exports the active tab's rows.
func (t *DataBrowser) ExportSelected() {
	if data, ok := t.tabDataMap[t.tabs.Selected()]; ok {
		exportData(t.w, data.view.Grid(), data.tableName)
	}
}

// RefetchAll reloads the fetched pages of every open tab.
func (t *DataBrowser) RefetchAll() {
	for _, data := range t.tabDataMap {
		data.view.Grid().Refetch()
	}
}

// CloseAll stops every grid.
func (t *DataBrowser) CloseAll() {
	for ti, data := range t.tabDataMap {
		data.view.Close()
		delete(t.tabDataMap, ti)
	}
}
