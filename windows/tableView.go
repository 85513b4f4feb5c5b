package windows

import (
	"context"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"pagedtable/internal/grid"
	"pagedtable/internal/view"
)

// columnsLayout places cells side by side at fixed widths.
type columnsLayout struct {
	widths []float32
}

func (l *columnsLayout) width(i int) float32 {
	if i < len(l.widths) {
		return l.widths[i]
	}
	return 0
}

func (l *columnsLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var w, h float32
	for i, o := range objects {
		w += l.width(i)
		if m := o.MinSize().Height; m > h {
			h = m
		}
	}
	return fyne.NewSize(w, h)
}

func (l *columnsLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	var x float32
	for i, o := range objects {
		w := l.width(i)
		o.Move(fyne.NewPos(x, 0))
		o.Resize(fyne.NewSize(w, size.Height))
		x += w
	}
}

// bodyLayout stacks the body lines at their exact heights, so the content
// height always equals the virtualizer's total size.
type bodyLayout struct {
	width   float32
	heights []float32
}

func (l *bodyLayout) MinSize([]fyne.CanvasObject) fyne.Size {
	var h float32
	for _, lh := range l.heights {
		h += lh
	}
	return fyne.NewSize(l.width, h)
}

func (l *bodyLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	var y float32
	for i, o := range objects {
		if i >= len(l.heights) {
			break
		}
		o.Move(fyne.NewPos(0, y))
		o.Resize(fyne.NewSize(size.Width, l.heights[i]))
		y += l.heights[i]
	}
}

type rowWidget struct {
	box   *fyne.Container
	bg    *canvas.Rectangle
	cells []*widget.Label
}

// TableView draws a grid: sortable headers, the virtualized body between
// two spacers, a filter bar and a status line.
type TableView struct {
	grid   *grid.Grid
	window fyne.Window
	theme  *CustomTheme
	name   string
	cancel context.CancelFunc

	widths        []float32
	headerButtons []*widget.Button
	body          *fyne.Container
	bodyLayout    *bodyLayout
	topSpacer     *canvas.Rectangle
	bottomSpacer  *canvas.Rectangle
	rows          []*rowWidget
	scroll        *container.Scroll

	filter   *widget.Entry
	status   *widget.Label
	banner   *widget.Label
	activity *widget.ProgressBarInfinite
	loading  fyne.CanvasObject
	table    fyne.CanvasObject
	content  fyne.CanvasObject

	resets   uint64
	onStatus func(string)
}

// NewTableView builds the view for g and starts its initial load. ctx
// bounds every fetch the grid issues; Close cancels it.
func NewTableView(ctx context.Context, w fyne.Window, th *CustomTheme, name string, g *grid.Grid, onStatus func(string)) *TableView {
	ctx, cancel := context.WithCancel(ctx)
	v := &TableView{
		grid:     g,
		window:   w,
		theme:    th,
		name:     name,
		cancel:   cancel,
		onStatus: onStatus,
		resets:   g.ScrollResets(),
	}
	v.build()
	g.OnChange(func() { fyne.Do(v.refresh) })
	g.Mount(ctx)
	v.refresh()
	return v
}

func (v *TableView) build() {
	cols := v.grid.Table().Columns()
	v.widths = make([]float32, len(cols))
	headers := make([]fyne.CanvasObject, len(cols))
	for i, c := range cols {
		v.widths[i] = c.Size
		id := c.ID
		btn := widget.NewButton(c.Header, func() {
			v.grid.ToggleSort(id, shiftPressed())
		})
		btn.Alignment = widget.ButtonAlignLeading
		btn.Importance = widget.LowImportance
		if !v.grid.Table().CanSort(id) {
			btn.Disable()
		}
		v.headerButtons = append(v.headerButtons, btn)
		headers[i] = btn
	}
	header := container.NewStack(
		canvas.NewRectangle(theme.Color(theme.ColorNameHeaderBackground)),
		container.New(&columnsLayout{widths: v.widths}, headers...),
	)

	v.bodyLayout = &bodyLayout{width: v.grid.Table().TotalWidth()}
	v.body = container.New(v.bodyLayout)
	v.topSpacer = canvas.NewRectangle(color.Transparent)
	v.bottomSpacer = canvas.NewRectangle(color.Transparent)

	v.scroll = container.NewVScroll(v.body)
	v.scroll.OnScrolled = v.onScrolled

	v.filter = widget.NewEntry()
	v.filter.SetPlaceHolder("Search all columns...")
	v.filter.OnChanged = v.grid.SetGlobalFilter

	advanced := widget.NewButtonWithIcon("Filter", theme.SearchIcon(), func() {
		NewFilterDialog(v.window, v.grid).Show()
	})
	export := widget.NewButtonWithIcon("Export", theme.DocumentSaveIcon(), func() {
		exportData(v.window, v.grid, v.name)
	})
	reload := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), v.grid.InvalidateAll)

	v.status = widget.NewLabel("")
	v.status.TextStyle = fyne.TextStyle{Italic: true}
	v.banner = widget.NewLabel("")
	v.banner.Importance = widget.DangerImportance
	v.banner.Wrapping = fyne.TextWrapWord
	v.banner.Hide()
	v.activity = widget.NewProgressBarInfinite()
	v.activity.Hide()

	toolbar := container.NewBorder(nil, nil, nil, container.NewHBox(advanced, export, reload), v.filter)
	footer := container.NewVBox(v.banner, container.NewBorder(nil, nil, nil, v.activity, v.status))

	v.table = container.NewHScroll(container.NewBorder(header, nil, nil, nil, v.scroll))
	v.loading = container.NewCenter(widget.NewLabel(view.LoadingText))
	v.content = container.NewBorder(toolbar, footer, nil, nil, container.NewStack(v.table, v.loading))
}

// Content is the tab body.
func (v *TableView) Content() fyne.CanvasObject { return v.content }

// Grid returns the view's grid.
func (v *TableView) Grid() *grid.Grid { return v.grid }

// Close stops the grid and cancels outstanding fetches.
func (v *TableView) Close() {
	v.grid.Close()
	v.cancel()
}

func (v *TableView) onScrolled(p fyne.Position) {
	v.grid.OnScroll(grid.Metrics{
		ScrollTop:    p.Y,
		ScrollHeight: v.body.MinSize().Height,
		ClientHeight: v.scroll.Size().Height,
	})
}

// refresh redraws from the grid's current frame. It runs on the UI
// goroutine.
func (v *TableView) refresh() {
	f := v.grid.Frame()
	v.setStatus(f.Status)
	if f.Loading {
		v.table.Hide()
		v.loading.Show()
		return
	}
	v.loading.Hide()
	v.table.Show()

	for i, h := range f.Headers {
		if i < len(v.headerButtons) && v.headerButtons[i].Text != h.Text {
			v.headerButtons[i].SetText(h.Text)
		}
	}

	heights := make([]float32, len(f.Body))
	objects := make([]fyne.CanvasObject, len(f.Body))
	n := 0
	for i, line := range f.Body {
		heights[i] = line.Height
		if line.Kind == view.LineSpacer {
			if i == 0 {
				objects[i] = v.topSpacer
			} else {
				objects[i] = v.bottomSpacer
			}
			continue
		}
		r := v.row(n)
		v.fill(r, line.Row)
		objects[i] = r.box
		n++
	}
	v.bodyLayout.heights = heights
	v.body.Objects = objects
	v.body.Refresh()

	if n := v.grid.ScrollResets(); n != v.resets {
		v.resets = n
		v.scroll.ScrollToTop()
	}

	if f.Banner != "" {
		v.banner.SetText(f.Banner)
		v.banner.Show()
	} else {
		v.banner.Hide()
	}
	if f.Busy {
		v.activity.Show()
	} else {
		v.activity.Hide()
	}
}

func (v *TableView) setStatus(s string) {
	v.status.SetText(s)
	if v.onStatus != nil {
		v.onStatus(v.name + ": " + s)
	}
}

// row returns the n-th pooled row widget.
func (v *TableView) row(n int) *rowWidget {
	for len(v.rows) <= n {
		r := &rowWidget{bg: canvas.NewRectangle(color.Transparent)}
		cells := make([]fyne.CanvasObject, len(v.widths))
		for i := range cells {
			l := widget.NewLabel("")
			l.Truncation = fyne.TextTruncateEllipsis
			r.cells = append(r.cells, l)
			cells[i] = l
		}
		r.box = container.NewStack(r.bg, container.New(&columnsLayout{widths: v.widths}, cells...))
		v.rows = append(v.rows, r)
	}
	return v.rows[n]
}

func (v *TableView) fill(r *rowWidget, row view.VisibleRow) {
	r.bg.FillColor = v.theme.rowBackground(row.Index)
	r.bg.Refresh()
	for i, l := range r.cells {
		text := ""
		if i < len(row.Cells) {
			text = row.Cells[i]
		}
		if l.Text != text {
			l.SetText(text)
		}
	}
}
