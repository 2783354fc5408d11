package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/taskboard/internal/board"
	"github.com/adanyl0v/taskboard/internal/board/boardtest"
	"github.com/adanyl0v/taskboard/internal/models"
)

func newTestModel(t *testing.T, api *boardtest.FakeAPI) Model {
	t.Helper()

	m := New(board.NewProjector(api, zerolog.Nop()))
	msg := m.Init()()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// press feeds keys in order and returns the last command produced.
func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()

	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(keyMsg(k))
		m = updated.(Model)
	}
	return m, cmd
}

func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()

	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	return updated.(Model)
}

func titles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func TestModel_DragCardToNextColumn(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.Add("A", models.StatusPending)
	api.Add("B", models.StatusPending)
	api.Add("C", models.StatusInProgress)
	m := newTestModel(t, api)

	m, cmd := press(t, m, "j", "g", "l", "j", "enter")
	require.NotNil(t, cmd)

	// Applied before the server answers.
	view := m.projector.View()
	assert.Equal(t, []string{"C", "B"}, titles(view.Column(models.StatusInProgress)))
	assert.Equal(t, 1, m.projector.Pending())
	assert.Contains(t, m.View(), "Saving...")

	m = run(t, m, cmd)
	assert.Equal(t, 0, m.projector.Pending())
	assert.Equal(t, []string{"A", "C", "B"}, titles(api.Tasks()))
	assert.Equal(t, models.StatusInProgress, api.Tasks()[2].Status)

	selected, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "B", selected.Title)
}

func TestModel_CancelGrabSendsNothing(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.Add("A", models.StatusPending)
	m := newTestModel(t, api)

	m, _ = press(t, m, "g", "l")
	assert.Contains(t, m.View(), "drop here")

	m, cmd := press(t, m, "esc")
	assert.Nil(t, cmd)
	assert.Nil(t, m.grab)
	assert.Empty(t, api.Reorders)
	assert.Empty(t, api.Updates)
	assert.Equal(t, []string{"A"}, titles(m.projector.View().Column(models.StatusPending)))
}

func TestModel_FailedMoveShowsNoticeAndRollsBack(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.Add("A", models.StatusPending)
	api.Add("B", models.StatusPending)
	api.ReorderErr = errors.New("connection refused")
	m := newTestModel(t, api)

	m, cmd := press(t, m, "g", "j", "enter")
	assert.Equal(t, []string{"B", "A"}, titles(m.projector.View().Column(models.StatusPending)))

	m = run(t, m, cmd)
	assert.Equal(t, []string{"A", "B"}, titles(m.projector.View().Column(models.StatusPending)))
	assert.True(t, m.noticeIsErr)
	assert.Contains(t, m.View(), "Failed to reorder tasks")
}

func TestModel_ToggleComplete(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.Add("A", models.StatusPending)
	m := newTestModel(t, api)

	m, cmd := press(t, m, "x")
	m = run(t, m, cmd)

	assert.Equal(t, models.StatusCompleted, api.Tasks()[0].Status)
	assert.Equal(t, []string{"A"}, titles(m.projector.View().Column(models.StatusCompleted)))
	assert.False(t, m.noticeIsErr)
	assert.Contains(t, m.notice, "Updated")
}

func TestModel_DeleteTask(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.Add("A", models.StatusPending)
	api.Add("B", models.StatusPending)
	m := newTestModel(t, api)

	m, cmd := press(t, m, "j", "d")
	m = run(t, m, cmd)

	assert.Equal(t, []string{"A"}, titles(api.Tasks()))
	assert.Equal(t, 0, m.cursor[0])
}

func TestModel_NoticeClearsOnlyForLatest(t *testing.T) {
	api := boardtest.NewFakeAPI()
	m := newTestModel(t, api)

	updated, _ := m.setNotice("first", false)
	m = updated.(Model)
	updated, _ = m.setNotice("second", false)
	m = updated.(Model)

	updated, _ = m.Update(clearNoticeMsg{id: 1})
	m = updated.(Model)
	assert.Equal(t, "second", m.notice)

	updated, _ = m.Update(clearNoticeMsg{id: 2})
	m = updated.(Model)
	assert.Empty(t, m.notice)
}

func TestModel_LoadFailureShowsNotice(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.ListErr = errors.New("offline")
	m := newTestModel(t, api)

	assert.True(t, m.noticeIsErr)
	assert.Contains(t, m.View(), "Failed to fetch tasks")
}

func TestModel_ViewShowsColumns(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.Add("write report", models.StatusPending)
	api.Add("ship it", models.StatusCompleted)
	m := newTestModel(t, api)

	out := m.View()
	assert.Contains(t, out, "Pending (1)")
	assert.Contains(t, out, "In Progress (0)")
	assert.Contains(t, out, "Completed (1)")
	assert.Contains(t, out, "write report")
	assert.Contains(t, out, "no tasks")
}
