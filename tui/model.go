// Package tui draws a grid in the terminal. Rows are one line high, so
// the grid's pixel metrics are counted in lines.
package tui

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"pagedtable/internal/grid"
	"pagedtable/internal/view"
)

const (
	// fallbackBody is used until the first WindowSizeMsg.
	fallbackBody = 20
	// chrome is the title, header, status and help lines.
	chrome      = 4
	minColWidth = 4
	maxColWidth = 24
)

var (
	accent = lipgloss.AdaptiveColor{Light: "#1976D2", Dark: "#42A5F5"}
	muted  = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9E9E9E"}
)

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	row    lipgloss.Style
	altRow lipgloss.Style
	banner lipgloss.Style
	status lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		header: lipgloss.NewStyle().Bold(true).Underline(true),
		row:    lipgloss.NewStyle(),
		altRow: lipgloss.NewStyle().Faint(true),
		banner: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		status: lipgloss.NewStyle().Italic(true).Foreground(muted),
	}
}

// GridConfig converts a pixel-based grid configuration to lines.
func GridConfig(base grid.Config) grid.Config {
	cfg := base
	ratio := base.RowHeight
	if ratio <= 0 {
		ratio = grid.DefaultConfig().RowHeight
	}
	cfg.FetchThreshold = base.FetchThreshold / ratio
	if cfg.FetchThreshold < 1 {
		cfg.FetchThreshold = 1
	}
	cfg.RowHeight = 1
	cfg.ViewportHeight = fallbackBody
	return cfg
}

// changedMsg tells the program that the grid's state moved.
type changedMsg struct{}

// Model is the bubbletea model of one grid.
type Model struct {
	grid    *grid.Grid
	name    string
	keys    keyMap
	help    help.Model
	filter  textinput.Model
	spinner spinner.Model
	styles  styles
	widths  []int

	filtering bool
	width     int
	height    int
	top       int
	resets    uint64
	pending   atomic.Bool
}

var _ tea.Model = (*Model)(nil)

// New builds the model for g. name is shown as the title.
func New(g *grid.Grid, name string) *Model {
	ti := textinput.New()
	ti.Prompt = "Search: "
	ti.Placeholder = "type to filter all columns…"
	ti.CharLimit = 128

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	m := &Model{
		grid:    g,
		name:    name,
		keys:    defaultKeyMap(),
		help:    help.New(),
		filter:  ti,
		spinner: s,
		styles:  defaultStyles(),
		resets:  g.ScrollResets(),
	}
	for _, c := range g.Table().Columns() {
		w := int(c.Size / 8)
		w = max(w, minColWidth, runewidth.StringWidth(c.Header+view.AscendingGlyph))
		m.widths = append(m.widths, min(w, maxColWidth))
	}
	return m
}

// Run shows g until the user quits or ctx ends.
func Run(ctx context.Context, g *grid.Grid, name string) error {
	m := New(g, name)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	g.OnChange(func() {
		// Send blocks until the event loop reads it, and the loop itself
		// triggers changes, so coalesce and hand off.
		if m.pending.CompareAndSwap(false, true) {
			go p.Send(changedMsg{})
		}
	})
	g.Mount(ctx)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.scrollTo(m.top)
		return m, nil
	case changedMsg:
		m.pending.Store(false)
		m.syncTop()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	body := m.bodyHeight()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.LineDown):
		m.scrollTo(m.top + 1)
	case key.Matches(msg, m.keys.LineUp):
		m.scrollTo(m.top - 1)
	case key.Matches(msg, m.keys.PageDown):
		m.scrollTo(m.top + body)
	case key.Matches(msg, m.keys.PageUp):
		m.scrollTo(m.top - body)
	case key.Matches(msg, m.keys.Top):
		m.scrollTo(0)
	case key.Matches(msg, m.keys.Bottom):
		m.scrollTo(m.total())
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.Refetch):
		m.grid.Refetch()
	case key.Matches(msg, m.keys.Invalidate):
		m.grid.Invalidate()
		m.syncTop()
	default:
		col, multi, ok := sortColumn(msg.String())
		cols := m.grid.Table().Columns()
		if ok && col < len(cols) {
			m.grid.ToggleSort(cols[col].ID, multi)
			m.syncTop()
		}
	}
	return m, nil
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.grid.SetGlobalFilter("")
		m.scrollTo(m.top)
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.grid.SetGlobalFilter(m.filter.Value())
	m.scrollTo(m.top)
	return m, cmd
}

// syncTop follows the grid back to the first row after a sort change or
// an invalidation.
func (m *Model) syncTop() {
	if n := m.grid.ScrollResets(); n != m.resets {
		m.resets = n
		m.top = 0
	}
}

func (m *Model) bodyHeight() int {
	if m.height == 0 {
		return fallbackBody
	}
	return max(m.height-chrome-1, 1)
}

// total is the number of filtered rows, in lines.
func (m *Model) total() int {
	return int(m.grid.Model().TotalHeight)
}

// scrollTo clamps top and reports the new position to the grid.
func (m *Model) scrollTo(top int) {
	body := m.bodyHeight()
	total := m.total()
	top = min(top, max(total-body, 0))
	top = max(top, 0)
	m.top = top
	m.grid.OnScroll(grid.Metrics{
		ScrollTop:    float32(top),
		ScrollHeight: float32(total),
		ClientHeight: float32(body),
	})
}

// Top is the first visible row index.
func (m *Model) Top() int { return m.top }

func (m *Model) View() string {
	f := m.grid.Frame()
	var b strings.Builder
	b.WriteString(m.line(m.styles.title, m.name))

	if f.Loading {
		b.WriteString(m.line(m.styles.status, m.spinner.View()+" "+f.Status))
		return b.String()
	}

	cells := make([]string, len(f.Headers))
	for i, h := range f.Headers {
		cells[i] = fit(h.Text, m.colWidth(i))
	}
	b.WriteString(m.line(m.styles.header, strings.Join(cells, " ")))

	body := m.bodyHeight()
	shown := 0
	for _, r := range f.Rows() {
		if r.Index < m.top || r.Index >= m.top+body {
			continue
		}
		for i := range cells {
			cells[i] = ""
			if i < len(r.Cells) {
				cells[i] = fit(r.Cells[i], m.colWidth(i))
			}
		}
		style := m.styles.row
		if r.Index%2 == 1 {
			style = m.styles.altRow
		}
		b.WriteString(m.line(style, strings.Join(cells, " ")))
		shown++
	}
	for ; shown < body; shown++ {
		b.WriteByte('\n')
	}

	if f.Banner != "" {
		b.WriteString(m.line(m.styles.banner, f.Banner))
	} else {
		b.WriteByte('\n')
	}
	status := f.Status
	if f.Busy {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(m.line(m.styles.status, status))

	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.help()) + m.help.Styles.ShortSeparator.Render(" • ") +
			m.help.Styles.ShortKey.Render("1-9") + " " + m.help.Styles.ShortDesc.Render("sort (shift: multi)"))
	}
	return b.String()
}

func (m *Model) colWidth(col int) int {
	if col < len(m.widths) {
		return m.widths[col]
	}
	return minColWidth
}

// line renders s clipped to the terminal width, with a newline.
func (m *Model) line(style lipgloss.Style, s string) string {
	if m.width > 0 {
		s = runewidth.Truncate(s, m.width, "…")
	}
	return style.Render(s) + "\n"
}

func fit(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(s, w, "…"), w)
}
