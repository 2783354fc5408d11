// Package tui renders the kanban board in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/adanyl0v/taskboard/internal/board"
	"github.com/adanyl0v/taskboard/internal/models"
)

const (
	noticeTTL      = 4 * time.Second
	requestTimeout = 15 * time.Second
)

// loadedMsg is sent when a refetch finished.
type loadedMsg struct {
	err error
}

// movedMsg is sent when the server answered a card move.
type movedMsg struct {
	title string
	err   error
}

// actionMsg is sent when a toggle or delete finished.
type actionMsg struct {
	notice string
	err    error
}

type clearNoticeMsg struct {
	id int
}

// grab tracks a card that has been picked up and where it would land.
type grab struct {
	src    models.Status
	srcIdx int
	taskID string
	dstCol int
	dstIdx int
}

// Model is the board view.
type Model struct {
	projector *board.Projector
	keys      KeyMap
	help      help.Model

	col    int
	cursor [3]int
	grab   *grab

	notice      string
	noticeIsErr bool
	noticeID    int
	loading     bool

	width  int
	height int
}

func New(projector *board.Projector) Model {
	return Model{
		projector: projector,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		loading:   true,
	}
}

// Init loads the board.
func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	p := m.projector
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return loadedMsg{err: p.Load(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case loadedMsg:
		m.loading = false
		m.clampCursors()
		if msg.err != nil {
			return m.setNotice("Failed to fetch tasks: "+msg.err.Error(), true)
		}
		return m, nil

	case movedMsg:
		m.clampCursors()
		if msg.err != nil {
			return m.setNotice(fmt.Sprintf("Failed to reorder tasks (%s moved back)", msg.title), true)
		}
		return m, nil

	case actionMsg:
		m.clampCursors()
		if msg.err != nil {
			return m.setNotice(msg.notice+": "+msg.err.Error(), true)
		}
		return m.setNotice(msg.notice, false)

	case clearNoticeMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.grab != nil {
			return m.updateGrab(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Left):
		m.col = max(0, m.col-1)
	case key.Matches(msg, m.keys.Right):
		m.col = min(len(models.Statuses)-1, m.col+1)
	case key.Matches(msg, m.keys.Up):
		m.cursor[m.col] = max(0, m.cursor[m.col]-1)
	case key.Matches(msg, m.keys.Down):
		m.cursor[m.col] = min(m.columnLen(m.col)-1, m.cursor[m.col]+1)
		m.cursor[m.col] = max(0, m.cursor[m.col])
	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		return m, m.load()
	case key.Matches(msg, m.keys.Grab):
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.grab = &grab{
			src:    models.Statuses[m.col],
			srcIdx: m.cursor[m.col],
			taskID: task.ID,
			dstCol: m.col,
			dstIdx: m.cursor[m.col],
		}
	case key.Matches(msg, m.keys.Toggle):
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.toggle(task)
	case key.Matches(msg, m.keys.Delete):
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.delete(task)
	}
	return m, nil
}

func (m Model) updateGrab(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	g := *m.grab
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		g.dstCol = max(0, g.dstCol-1)
		g.dstIdx = min(g.dstIdx, m.slots(g, g.dstCol))
	case key.Matches(msg, m.keys.Right):
		g.dstCol = min(len(models.Statuses)-1, g.dstCol+1)
		g.dstIdx = min(g.dstIdx, m.slots(g, g.dstCol))
	case key.Matches(msg, m.keys.Up):
		g.dstIdx = max(0, g.dstIdx-1)
	case key.Matches(msg, m.keys.Down):
		g.dstIdx = min(m.slots(g, g.dstCol), g.dstIdx+1)
	case key.Matches(msg, m.keys.Cancel):
		// Dropped outside any column.
		_, _ = m.projector.BeginMove(g.src, g.srcIdx, nil, 0)
		m.grab = nil
		return m, nil
	case key.Matches(msg, m.keys.Drop):
		m.grab = nil
		return m.drop(g)
	}
	m.grab = &g
	return m, nil
}

// slots returns the highest drop index in column col, not counting the
// grabbed card itself.
func (m Model) slots(g grab, col int) int {
	n := m.columnLen(col)
	if models.Statuses[col] == g.src {
		n--
	}
	return max(0, n)
}

func (m Model) drop(g grab) (tea.Model, tea.Cmd) {
	dst := models.Statuses[g.dstCol]
	move, err := m.projector.BeginMove(g.src, g.srcIdx, &dst, g.dstIdx)
	if err != nil {
		return m.setNotice("Cannot move card: "+err.Error(), true)
	}

	m.col = g.dstCol
	m.cursor[m.col] = g.dstIdx

	title := ""
	if task, ok := m.taskAt(g.dstCol, g.dstIdx); ok {
		title = task.Title
	}
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return movedMsg{title: title, err: move.Commit(ctx)}
	}
}

func (m Model) toggle(task models.Task) tea.Cmd {
	p := m.projector
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := p.ToggleComplete(ctx, task.ID)
		if err != nil {
			return actionMsg{notice: "Failed to update task", err: err}
		}
		return actionMsg{notice: fmt.Sprintf("Updated %q", task.Title)}
	}
}

func (m Model) delete(task models.Task) tea.Cmd {
	p := m.projector
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := p.DeleteTask(ctx, task.ID)
		if err != nil {
			return actionMsg{notice: "Failed to delete task", err: err}
		}
		return actionMsg{notice: fmt.Sprintf("Deleted %q", task.Title)}
	}
}

func (m Model) setNotice(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.noticeID++
	m.notice = text
	m.noticeIsErr = isErr

	id := m.noticeID
	return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{id: id}
	})
}

func (m Model) columnLen(col int) int {
	return len(m.projector.View().Column(models.Statuses[col]))
}

func (m Model) taskAt(col, idx int) (models.Task, bool) {
	tasks := m.projector.View().Column(models.Statuses[col])
	if idx < 0 || idx >= len(tasks) {
		return models.Task{}, false
	}
	return tasks[idx], true
}

func (m Model) selected() (models.Task, bool) {
	return m.taskAt(m.col, m.cursor[m.col])
}

func (m *Model) clampCursors() {
	for col := range models.Statuses {
		m.cursor[col] = max(0, min(m.cursor[col], m.columnLen(col)-1))
	}
}

func (m Model) View() string {
	view := m.projector.View()

	colWidth := 30
	if m.width > 0 {
		colWidth = max(20, m.width/len(models.Statuses)-4)
	}

	columns := make([]string, len(models.Statuses))
	for col, status := range models.Statuses {
		columns[col] = m.renderColumn(view, col, status, colWidth)
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString(mutedStyle.Render("Loading..."))
	case m.projector.Pending() > 0:
		b.WriteString(mutedStyle.Render("Saving..."))
	case m.notice != "":
		style := noticeStyle
		if m.noticeIsErr {
			style = errorNoticeStyle
		}
		b.WriteString(style.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderColumn(view board.Board, col int, status models.Status, width int) string {
	tasks := view.Column(status)

	var lines []string
	header := titleStyle.Foreground(statusColor(status)).Render(fmt.Sprintf("%s (%d)", status, len(tasks)))
	lines = append(lines, header)

	slot := -1
	if m.grab != nil && m.grab.dstCol == col {
		slot = m.grab.dstIdx
	}

	// Drop slots are counted without the grabbed card.
	shown := 0
	for i, task := range tasks {
		grabbed := m.grab != nil && m.grab.taskID == task.ID
		if !grabbed && shown == slot {
			lines = append(lines, dropSlotStyle.Render("▸ drop here"))
		}

		line := priorityMarker(task.Priority) + " " + truncate(task.Title, width-4)
		switch {
		case grabbed:
			lines = append(lines, grabbedCardStyle.Render(line))
		case m.grab == nil && col == m.col && i == m.cursor[col]:
			lines = append(lines, selectedCardStyle.Render(line))
		default:
			lines = append(lines, cardStyle.Render(line))
		}
		if !grabbed {
			shown++
		}
	}
	if slot >= shown {
		lines = append(lines, dropSlotStyle.Render("▸ drop here"))
	}
	if len(tasks) == 0 && slot < 0 {
		lines = append(lines, mutedStyle.Render("no tasks"))
	}

	style := columnStyle
	if col == m.col || (m.grab != nil && m.grab.dstCol == col) {
		style = focusedColumnStyle
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}

func truncate(s string, width int) string {
	if width <= 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
