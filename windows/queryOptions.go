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
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"pagedtable/datatable"
	"pagedtable/internal/filter"
	"pagedtable/internal/grid"
)

// Filter modes offered by the dialog.
const (
	ModeExpression = "Expression"
	ModeScript     = "Go script"
)

// FilterOptions is the dialog's result.
type FilterOptions struct {
	Mode string
	Text string
}

// Compile turns the options into a filter. Blank text yields nil.
func (o FilterOptions) Compile(columnIDs []string) (datatable.Filter, error) {
	text := strings.TrimSpace(o.Text)
	if text == "" {
		return nil, nil
	}
	if o.Mode == ModeScript {
		return filter.CompileScript(text)
	}
	expr, err := filter.ParseExpression(text, columnIDs)
	if err != nil || expr == nil {
		return nil, err
	}
	return expr, nil
}

// FilterDialog edits the grid's additional filter, either a simple
// expression or a Go predicate body.
type FilterDialog struct {
	dialog    dialog.Dialog
	window    fyne.Window
	grid      *grid.Grid
	mode      *widget.RadioGroup
	textEntry *widget.Entry
	help      *widget.Label
}

// NewFilterDialog creates the dialog for g.
func NewFilterDialog(w fyne.Window, g *grid.Grid) *FilterDialog {
	fd := &FilterDialog{window: w, grid: g}
	fd.createDialog()
	return fd
}

func (fd *FilterDialog) createDialog() {
	columnLabel := widget.NewLabel("Columns (tap to insert):")
	columnLabel.TextStyle = fyne.TextStyle{Bold: true}

	columns := container.NewVBox()
	for _, c := range fd.grid.Table().ColumnInfos() {
		id := c.ID
		columns.Add(widget.NewButton(fmt.Sprintf("%s (%s)", c.ID, c.Type), func() {
			fd.insertColumn(id)
		}))
	}
	columnScroll := container.NewVScroll(columns)
	columnScroll.SetMinSize(fyne.NewSize(400, 160))

	fd.textEntry = widget.NewMultiLineEntry()
	fd.textEntry.SetMinRowsVisible(5)
	fd.textEntry.TextStyle = fyne.TextStyle{Monospace: true}

	fd.help = widget.NewLabel("")
	fd.help.TextStyle = fyne.TextStyle{Italic: true}
	fd.help.Wrapping = fyne.TextWrapWord

	fd.mode = widget.NewRadioGroup([]string{ModeExpression, ModeScript}, fd.setMode)
	fd.mode.Horizontal = true
	fd.mode.SetSelected(ModeExpression)

	if current := fd.grid.State().Filters; len(current) > 0 {
		desc := current[0].Description()
		if _, ok := current[0].(*filter.Script); ok {
			fd.mode.SetSelected(ModeScript)
			desc = strings.TrimPrefix(desc, "script: ")
		}
		fd.textEntry.SetText(desc)
	}

	content := container.NewVBox(
		columnLabel,
		columnScroll,
		widget.NewSeparator(),
		fd.mode,
		fd.textEntry,
		fd.help,
	)

	fd.dialog = dialog.NewCustomConfirm(
		"Filter Rows",
		"Apply",
		"Cancel",
		content,
		func(confirmed bool) {
			if confirmed {
				fd.handleConfirm()
			}
		},
		fd.window,
	)
	fd.dialog.Resize(fyne.NewSize(560, 520))
}

func (fd *FilterDialog) setMode(mode string) {
	if mode == ModeScript {
		fd.textEntry.SetPlaceHolder(`return row["age"].(int64) > 30`)
		fd.help.SetText("Body of func Match(row map[string]interface{}) bool. Null cells are nil; strings and time are imported.")
		return
	}
	fd.textEntry.SetPlaceHolder("e.g., age > 25 AND status = single")
	fd.help.SetText("Conditions use =, !=, >, >=, <, <= or ~ (contains) and are joined with AND / OR. Leave empty to clear.")
}

func (fd *FilterDialog) insertColumn(id string) {
	if fd.mode.Selected == ModeScript {
		id = fmt.Sprintf("row[%q]", id)
	}
	text := fd.textEntry.Text
	if text != "" && !strings.HasSuffix(text, " ") {
		text += " "
	}
	fd.textEntry.SetText(text + id)
}

func (fd *FilterDialog) handleConfirm() {
	opts := FilterOptions{Mode: fd.mode.Selected, Text: fd.textEntry.Text}
	f, err := opts.Compile(fd.grid.Table().ColumnIDs())
	if err != nil {
		dialog.ShowError(err, fd.window)
		return
	}
	if f == nil {
		fd.grid.SetFilters(nil)
		return
	}
	fd.grid.SetFilters([]datatable.Filter{f})
}

func (fd *FilterDialog) Show() {
	fd.dialog.Show()
}
