package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Sternrassler/eve-market-browser/pkg/market"
	"github.com/Sternrassler/eve-market-browser/pkg/session"
	"github.com/Sternrassler/eve-market-browser/pkg/window"
)

// ordersUpdated is sent when the coordinator merged a page, changed filters,
// or ended the session.
type ordersUpdated struct{}

const (
	rowBaseHeight    = 1
	rowExpandedExtra = 2

	// Header, filter line, status line, help line.
	chromeHeight = 4
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58a6ff"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#484f58"))
	buyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#3fb950"))
	sellStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#f85149"))
)

// model renders the order collection through the virtualization window: only
// the rows the layout puts in range are built into lines, however large the
// collection grows.
type model struct {
	coord  *session.Coordinator
	driver *window.Driver
	hints  *window.HeightHints
	spin   spinner.Model

	orders []market.Order
	epoch  uint64
	cursor int
	offset int

	width, height int
}

func newModel(coord *session.Coordinator) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff"))

	hints := window.NewHeightHints(rowBaseHeight, rowExpandedExtra)
	driver := window.NewDriver(hints, window.DefaultOverscan, window.DefaultFetchThreshold)

	return model{
		coord:  coord,
		driver: driver,
		hints:  hints,
		spin:   s,
	}
}

func (m model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, m.maybeFetch()

	case ordersUpdated:
		m.orders = m.coord.Snapshot()
		// A new epoch replaced the collection; selection and measured
		// heights belong to the old rows.
		if e := m.coord.Epoch(); e != m.epoch {
			m.epoch = e
			m.cursor = 0
			m.offset = 0
			m.hints.Reset()
		}
		if m.cursor >= len(m.orders) && len(m.orders) > 0 {
			m.cursor = len(m.orders) - 1
		}
		return m, m.maybeFetch()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.orders)-1 {
			m.cursor++
			m.ensureVisible()
		}
		return m, m.maybeFetch()

	case "pgup":
		m.cursor -= m.viewportHeight()
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureVisible()
		return m, nil

	case "pgdown":
		m.cursor += m.viewportHeight()
		if m.cursor > len(m.orders)-1 {
			m.cursor = len(m.orders) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.ensureVisible()
		return m, m.maybeFetch()

	case "enter", " ":
		if m.cursor < len(m.orders) {
			m.hints.SetExpanded(m.cursor, !m.hints.IsExpanded(m.cursor))
			m.ensureVisible()
		}
		return m, nil

	case "b":
		buy := true
		return m, m.setSide(&buy)

	case "s":
		sell := false
		return m, m.setSide(&sell)

	case "a":
		return m, m.setSide(nil)

	case "r":
		f := m.coord.Filters()
		coord := m.coord
		return m, func() tea.Msg {
			coord.SetFilters(context.Background(), f)
			return nil
		}
	}

	return m, nil
}

// setSide starts a new session with the order-side filter changed and
// everything else kept.
func (m model) setSide(side *bool) tea.Cmd {
	f := m.coord.Filters()
	f.IsBuyOrder = side
	coord := m.coord
	return func() tea.Msg {
		coord.SetFilters(context.Background(), f)
		return nil
	}
}

// maybeFetch asks the coordinator for the next page when the rendered range
// runs close to the end of the collection. The coordinator still applies its
// own single-flight and exhaustion guards.
func (m model) maybeFetch() tea.Cmd {
	total := len(m.orders)
	rng := m.driver.Layout(total, m.viewportHeight(), m.offset)
	if !m.driver.ShouldFetchNext(rng, total, m.coord.HasMore(), m.coord.InFlight()) {
		return nil
	}
	coord := m.coord
	return func() tea.Msg {
		coord.RequestNext(context.Background())
		return nil
	}
}

// ensureVisible scrolls the offset so the selected row is fully inside the
// viewport.
func (m *model) ensureVisible() {
	top := 0
	for i := 0; i < m.cursor; i++ {
		top += m.hints.Estimate(i)
	}
	height := m.hints.Estimate(m.cursor)
	vh := m.viewportHeight()

	if top < m.offset {
		m.offset = top
	} else if top+height > m.offset+vh {
		m.offset = top + height - vh
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m model) viewportHeight() int {
	vh := m.height - chromeHeight
	if vh < 1 {
		vh = 1
	}
	return vh
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("EVE Market Browser"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.filterLine()))
	b.WriteString("\n")
	b.WriteString(m.rowsView())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("[↑/↓] scroll  [enter] details  [b]uy [s]ell [a]ll  [r]efresh  [q]uit"))

	return b.String()
}

func (m model) filterLine() string {
	f := m.coord.Filters()

	parts := []string{fmt.Sprintf("region %d", f.RegionID)}
	if f.TypeID != 0 {
		parts = append(parts, fmt.Sprintf("type %d", f.TypeID))
	}
	switch {
	case f.IsBuyOrder == nil:
		parts = append(parts, "buy+sell")
	case *f.IsBuyOrder:
		parts = append(parts, "buy only")
	default:
		parts = append(parts, "sell only")
	}
	return strings.Join(parts, "  ")
}

// rowsView renders the in-range rows and clips them to the viewport. The
// layout range starts at a row boundary above the scroll offset, so the
// overshoot is trimmed line-wise using the range's start offset.
func (m model) rowsView() string {
	total := len(m.orders)
	vh := m.viewportHeight()

	if total == 0 {
		return dimStyle.Render("  no orders")
	}

	rng := m.driver.Layout(total, vh, m.offset)

	var lines []string
	for i := rng.Start; i < rng.End; i++ {
		lines = append(lines, m.renderRow(i)...)
	}

	skip := m.offset - rng.StartOffset
	if skip < 0 {
		skip = 0
	}
	if skip > len(lines) {
		skip = len(lines)
	}
	lines = lines[skip:]
	if len(lines) > vh {
		lines = lines[:vh]
	}

	return strings.Join(lines, "\n")
}

func (m model) renderRow(i int) []string {
	o := m.orders[i]

	side := sellStyle.Render("SELL")
	if o.IsBuyOrder {
		side = buyStyle.Render("BUY ")
	}

	prefix := "  "
	if i == m.cursor {
		prefix = selectedStyle.Render("▸ ")
	}

	line := fmt.Sprintf("%s%s  %-28.28s %16.2f ISK  %8d  %s",
		prefix, side, o.TypeName, o.Price, o.VolumeRemain, o.StationName)
	if i == m.cursor {
		line = selectedStyle.Render(line)
	}

	lines := []string{line}
	if m.hints.IsExpanded(i) {
		lines = append(lines,
			dimStyle.Render(fmt.Sprintf("      order %d  region %s  issued %s",
				o.OrderID, o.RegionName, o.Issued.Format("2006-01-02 15:04"))),
			dimStyle.Render(fmt.Sprintf("      duration %dd  location %d",
				o.Duration, o.LocationID)),
		)
	}
	return lines
}

func (m model) statusLine() string {
	switch m.coord.State() {
	case session.StateLoading:
		return fmt.Sprintf("%s loading...  %d orders", m.spin.View(), len(m.orders))
	case session.StateDone:
		return dimStyle.Render(fmt.Sprintf("end of results  %d orders", len(m.orders)))
	default:
		return fmt.Sprintf("%d orders", len(m.orders))
	}
}
