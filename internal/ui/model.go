// Package ui is the terminal search table.
package ui

import (
	"fmt"
	"strings"
	"time"

	"crypto_search/internal/domain"
	"crypto_search/internal/service"
	"crypto_search/internal/view"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Styles.
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	rankStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	nameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	symbolStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	moneyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8")).Padding(0, 1)
)

type column struct {
	title string
	width int
	right bool
}

var columns = []column{
	{"Rank", 5, true},
	{"Name", 22, false},
	{"Symbol", 8, false},
	{"Market Cap", 22, true},
	{"Price", 16, true},
	{"Available Supply", 22, true},
	{"Volume(24hrs)", 22, true},
}

// Source is the refresh loop as seen by the TUI.
type Source interface {
	State() service.State
	Subscribe() (<-chan *domain.Snapshot, func())
}

// publishedMsg signals a new snapshot.
type publishedMsg struct{}

// closedMsg signals the subscription ended.
type closedMsg struct{}

// pollMsg re-reads loop state so error and loading changes show without a publish.
type pollMsg time.Time

// Model is the bubbletea model.
type Model struct {
	src         Source
	updates     <-chan *domain.Snapshot
	unsubscribe func()
	onQuit      func()

	input    textinput.Model
	viewport viewport.Model
	page     view.Page
	width    int
	height   int
	ready    bool
}

// New creates the model and subscribes to src. onQuit runs once when the
// user quits; pass the loop's Stop.
func New(src Source, onQuit func()) Model {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.Prompt = "/ "
	ti.CharLimit = 64
	ti.Focus()

	updates, unsubscribe := src.Subscribe()
	m := Model{
		src:         src,
		updates:     updates,
		unsubscribe: unsubscribe,
		onQuit:      onQuit,
		input:       ti,
		viewport:    viewport.New(120, 20),
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForPublish(), pollCmd())
}

func (m Model) waitForPublish() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return closedMsg{}
		}
		return publishedMsg{}
	}
}

func pollCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit()
			return m, tea.Quit
		case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		// title, input, banner, header, footer
		m.viewport.Height = max(1, msg.Height-6)
		m.ready = true
		m.render()
		return m, nil

	case publishedMsg:
		m.refresh()
		return m, m.waitForPublish()

	case closedMsg:
		return m, nil

	case pollMsg:
		m.refresh()
		return m, pollCmd()
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	if m.input.Value() != prev {
		m.refresh()
		m.viewport.GotoTop()
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) quit() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.onQuit != nil {
		m.onQuit()
		m.onQuit = nil
	}
}

// refresh rebuilds the page from the latest state and the current filter.
func (m *Model) refresh() {
	m.page = view.Build(m.src.State(), m.input.Value())
	m.render()
}

func (m *Model) render() {
	var b strings.Builder
	for i, row := range m.page.Rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(renderRow(row))
	}
	m.viewport.SetContent(b.String())
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Crypto Search"))
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	b.WriteByte('\n')
	b.WriteString(m.banner())
	b.WriteByte('\n')

	if m.page.Status == view.StatusReady || (m.page.Status == view.StatusError && m.page.Total > 0) {
		b.WriteString(renderHeader())
		b.WriteByte('\n')
		b.WriteString(m.viewport.View())
		b.WriteByte('\n')
	}

	b.WriteString(m.footer())
	return b.String()
}

func (m Model) banner() string {
	switch m.page.Status {
	case view.StatusLoading:
		return dimStyle.Render(view.MsgLoading)
	case view.StatusError:
		return errorStyle.Render(m.page.Error)
	case view.StatusEmpty:
		return dimStyle.Render(view.MsgEmpty)
	default:
		return ""
	}
}

func (m Model) footer() string {
	fetched := "never"
	if !m.page.FetchedAt.IsZero() {
		fetched = m.page.FetchedAt.Local().Format("15:04:05")
	}
	text := fmt.Sprintf("%d/%d shown  v%d  updated %s  esc quit", len(m.page.Rows), m.page.Total, m.page.Version, fetched)
	return footerStyle.Render(text)
}

// Page returns the page currently displayed.
func (m Model) Page() view.Page {
	return m.page
}

func renderHeader() string {
	cells := make([]string, len(columns))
	for i, c := range columns {
		cells[i] = cell(headerStyle, c, c.title)
	}
	return strings.Join(cells, " ")
}

func renderRow(r view.Row) string {
	values := []struct {
		style lipgloss.Style
		text  string
	}{
		{rankStyle, fmt.Sprintf("%d", r.Rank)},
		{nameStyle, r.Name},
		{symbolStyle, r.Symbol},
		{moneyStyle, r.MarketCap},
		{moneyStyle, r.Price},
		{optionalStyle(r.Supply), r.Supply},
		{optionalStyle(r.Volume), r.Volume},
	}

	cells := make([]string, len(columns))
	for i, c := range columns {
		cells[i] = cell(values[i].style, c, values[i].text)
	}
	return strings.Join(cells, " ")
}

func optionalStyle(text string) lipgloss.Style {
	if text == view.NotAvail {
		return dimStyle
	}
	return moneyStyle
}

func cell(style lipgloss.Style, c column, text string) string {
	if lipgloss.Width(text) > c.width {
		text = truncate(text, c.width)
	}
	s := style.Width(c.width)
	if c.right {
		s = s.Align(lipgloss.Right)
	}
	return s.Render(text)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
