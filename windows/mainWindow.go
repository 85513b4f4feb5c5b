package windows

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"pagedtable/adapters/deltasharing"
	"pagedtable/config"
	"pagedtable/datatable"
	"pagedtable/internal/table"
)

// AppID identifies the application to the Fyne preferences store.
const AppID = "pagedtable"

type MainWindow struct {
	a           fyne.App
	w           fyne.Window
	ctx         context.Context
	cfg         *config.Config
	log         *logrus.Entry
	theme       *CustomTheme
	top, left   fyne.CanvasObject
	bottom      fyne.CanvasObject
	tree        *NavigationTree
	dataBrowser *DataBrowser
	statusBar   *widget.Label
}

// NewMainWindow builds the window. ctx bounds every fetch and catalog
// call made from it.
func NewMainWindow(ctx context.Context, cfg *config.Config, log *logrus.Entry) *MainWindow {
	t := &MainWindow{
		ctx:   ctx,
		cfg:   cfg,
		log:   log.WithField("component", "window"),
		theme: &CustomTheme{},
	}
	t.a = app.NewWithID(AppID)
	t.a.Settings().SetTheme(t.theme)
	t.w = t.a.NewWindow("Paged Table")
	t.w.Resize(fyne.NewSize(1100, 700))

	t.statusBar = widget.NewLabel("Ready")
	t.statusBar.TextStyle = fyne.TextStyle{Italic: true}
	t.statusBar.Truncation = fyne.TextTruncateEllipsis
	t.bottom = container.NewHBox(t.statusBar)

	t.dataBrowser = NewDataBrowser(ctx, t.w, t.theme, cfg.GridConfig(), log, t.SetStatus)

	t.tree = NewNavigationTree()
	t.tree.OnTable = func(c *deltasharing.Catalog, tbl deltasharing.Table) {
		t.SetStatus("Loading table data: " + tbl.Name)
		t.dataBrowser.GetData(c, tbl)
	}
	t.left = widget.NewCard("", "Shares", t.tree.Widget())
	t.left.Hide()

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.MenuIcon(), func() {
			if t.left.Visible() {
				t.left.Hide()
			} else {
				t.left.Show()
			}
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.FolderOpenIcon(), t.OpenDataFile),
		widget.NewToolbarAction(theme.StorageIcon(), t.OpenProfile),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() {
			t.dataBrowser.ExportSelected()
		}),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() {
			if g := t.dataBrowser.Selected(); g != nil {
				g.Refetch()
			}
		}),
		widget.NewToolbarAction(theme.ContentClearIcon(), func() {
			if g := t.dataBrowser.Selected(); g != nil {
				g.Invalidate()
			}
		}),
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.ColorPaletteIcon(), t.toggleTheme),
	)
	t.top = toolbar

	split := container.NewHSplit(t.left, t.dataBrowser.Content())
	split.Offset = 0.2
	t.w.SetContent(container.NewBorder(t.top, t.bottom, nil, nil, split))

	t.a.Lifecycle().SetOnEnteredForeground(t.dataBrowser.RefetchAll)
	t.a.Lifecycle().SetOnStopped(t.dataBrowser.CloseAll)
	return t
}

// SetStatus updates the status bar message
func (t *MainWindow) SetStatus(message string) {
	if t.statusBar != nil {
		t.statusBar.SetText(message)
	}
}

// OpenSource opens src in a new tab.
func (t *MainWindow) OpenSource(name string, src datatable.PageSource, columns []table.Column) error {
	return t.dataBrowser.CreateDataBrowser(name, src, columns)
}

// OpenDataFile browses for a CSV, Parquet or JSON file.
func (t *MainWindow) OpenDataFile() {
	NewDataFileDialog(t.w, func(path string, err error) {
		if err != nil {
			dialog.ShowError(err, t.w)
			return
		}
		t.SetStatus("Loading file: " + path)
		t.dataBrowser.LoadFile(path)
	}).Show()
}

// OpenProfile browses for a Delta Sharing profile.
func (t *MainWindow) OpenProfile() {
	NewProfileDialog(t.w, func(path string, err error) {
		if err != nil {
			t.SetStatus("Error opening profile")
			dialog.ShowError(err, t.w)
			return
		}
		t.LoadProfile(path)
	}).Show()
}

// LoadProfile connects to the sharing server in path and fills the
// navigation tree.
func (t *MainWindow) LoadProfile(path string) {
	catalog, err := deltasharing.NewCatalogFromFile(path, t.cfg.Query.Timeout, t.log)
	if err != nil {
		t.SetStatus("Error connecting to Delta Sharing")
		dialog.ShowError(err, t.w)
		return
	}

	t.SetStatus("Loading profile...")
	t.left.Show()
	go func() {
		ctx, cancel := createTimeoutContext(t.ctx, t.cfg.Query.Timeout)
		defer cancel()
		n, err := t.tree.LoadShares(ctx, catalog)
		fyne.Do(func() {
			if err != nil {
				t.log.WithError(err).Warn("listing tables failed")
				t.SetStatus("Error listing shares")
				dialog.ShowError(err, t.w)
				return
			}
			t.SetStatus(fmt.Sprintf("Profile loaded: %d tables", n))
		})
	}()
}

func (t *MainWindow) toggleTheme() {
	t.theme.Dark = !t.theme.Dark
	t.a.Settings().SetTheme(t.theme)
}

// ShowAndRun blocks until the window is closed.
func (t *MainWindow) ShowAndRun() {
	t.w.ShowAndRun()
}
