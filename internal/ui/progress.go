// Package ui renders interactive run progress in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"diagtest/internal/runner"
)

type progressModel struct {
	title   string
	events  <-chan runner.Event
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	width   int
	done    bool
}

type fileItem struct {
	path    string
	status  string
	stage   runner.Stage
	pending int // compile units queued but not finished
	settled int // compile units that reached a verdict
	failed  bool
}

type eventMsg runner.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders run progress
// for the given fixture files.
func NewProgressModel(title string, files []string, events <-chan runner.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items = append(items, fileItem{path: file, status: "queued"})
		index[file] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(runner.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := m.width - statusWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}

	for _, item := range m.items {
		name := truncate(item.path, nameWidth)
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", item.status))
		b.WriteString(fmt.Sprintf("  %s %s", statusStyled, name))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev runner.Event) tea.Cmd {
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	item.stage = ev.Stage

	switch ev.Stage {
	case runner.StageParse:
		switch ev.Status {
		case runner.StatusWorking:
			item.status = "parsing"
		case runner.StatusError:
			item.status = "malformed"
			item.failed = true
		}
	case runner.StageResolve:
		switch ev.Status {
		case runner.StatusWorking:
			item.status = "resolving"
		case runner.StatusDone:
			item.status = "compiling"
		case runner.StatusError:
			item.status = "error"
			item.failed = true
		}
	case runner.StageCompile:
		switch ev.Status {
		case runner.StatusQueued:
			item.pending++
		case runner.StatusWorking:
			item.status = "compiling"
		}
	case runner.StageMatch:
		item.settled++
		if ev.Status == runner.StatusError {
			item.failed = true
		}
		if item.settled >= item.pending {
			if item.failed {
				item.status = "failed"
			} else {
				item.status = "done"
			}
		}
	}

	return m.prog.SetPercent(m.fraction())
}

// fraction weights each file by its stage; files with scheduled compile
// units advance with their settled/pending ratio.
func (m *progressModel) fraction() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		switch {
		case item.status == "done" || item.status == "failed" ||
			item.status == "malformed" || item.status == "error":
			total += 1.0
		case item.pending > 0:
			total += 0.3 + 0.7*float64(item.settled)/float64(item.pending)
		case item.stage == runner.StageResolve:
			total += 0.2
		case item.stage == runner.StageParse:
			total += 0.1
		}
	}
	return total / float64(len(m.items))
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "failed", "malformed", "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "parsing", "resolving", "compiling":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
