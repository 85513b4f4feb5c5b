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
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	arrowadapter "pagedtable/adapters/arrow"
	"pagedtable/internal/grid"
)

// exportData asks for a format and a destination, then writes the grid's
// filtered and sorted rows. Only fetched rows are exported.
func exportData(w fyne.Window, g *grid.Grid, tableName string) {
	formats := []string{
		arrowadapter.FormatParquet.String(),
		arrowadapter.FormatCSV.String(),
		arrowadapter.FormatJSON.String(),
	}
	sel := widget.NewSelect(formats, nil)
	sel.SetSelected(formats[0])

	items := []*widget.FormItem{widget.NewFormItem("Format", sel)}
	dialog.ShowForm("Export Rows", "Next", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		format, err := arrowadapter.ParseFormat(sel.Selected)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		saveRows(w, g, tableName, format)
	}, w)
}

func saveRows(w fyne.Window, g *grid.Grid, tableName string, format arrowadapter.ExportFormat) {
	columns := g.Table().ColumnInfos()
	rows := g.Rows()

	saveDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()

		pbi := widget.NewProgressBarInfinite()
		progress := dialog.NewCustomWithoutButtons("Exporting...", pbi, w)
		progress.Resize(fyne.NewSize(300, 100))
		progress.Show()

		go func() {
			exportErr := arrowadapter.Write(writer, format, columns, rows)
			if cerr := writer.Close(); exportErr == nil {
				exportErr = cerr
			}
			fyne.Do(func() {
				progress.Hide()
				if exportErr != nil {
					dialog.ShowError(fmt.Errorf("export failed: %w", exportErr), w)
					return
				}
				dialog.ShowInformation("Export Successful",
					fmt.Sprintf("Exported %d rows to:\n%s", len(rows), path), w)
			})
		}()
	}, w)

	saveDialog.SetFileName(cleanFilename(tableName) + "." + strings.ToLower(format.String()))
	saveDialog.Show()
}

// cleanFilename keeps letters, digits, '_' and '-', and turns spaces into
// underscores.
func cleanFilename(name string) string {
	base := tabTitle(name)
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range DataFileExtensions {
		if ext == e {
			base = strings.TrimSuffix(base, filepath.Ext(base))
			break
		}
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "export"
	}
	return b.String()
}
