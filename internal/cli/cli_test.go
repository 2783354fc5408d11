package cli_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/taskboard/internal/cli"
	"github.com/adanyl0v/taskboard/internal/client"
	"github.com/adanyl0v/taskboard/internal/credential"
	v1 "github.com/adanyl0v/taskboard/internal/delivery/http/v1"
	"github.com/adanyl0v/taskboard/internal/locker"
	"github.com/adanyl0v/taskboard/internal/models"
	"github.com/adanyl0v/taskboard/internal/services"
	"github.com/adanyl0v/taskboard/internal/storage/sqlite"
)

type harness struct {
	t      *testing.T
	server string
	config string
	creds  *credential.Store

	boardModel tea.Model
	runBoard   func(m tea.Model) error
	stderr     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	logger := zerolog.Nop()
	handler := v1.New(
		logger,
		services.NewAuthService(logger, store, "taskboard-test", []byte("test-key"), time.Hour),
		services.NewTaskService(logger, store, locker.NewLocal(), 5*time.Second),
		store,
	)
	router := gin.New()
	v1.RegisterRoutes(router, handler)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &harness{
		t:      t,
		server: srv.URL,
		config: filepath.Join(t.TempDir(), "config.yaml"),
		creds:  credential.New(keyring.NewArrayKeyring(nil)),
	}
}

// run executes the CLI with the test server and returns its stdout.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()

	root := cli.NewRootCommand(cli.Options{
		OpenCredentials: func(cli.Settings) (*credential.Store, error) {
			return h.creds, nil
		},
		RunBoard: func(m tea.Model) error {
			h.boardModel = m
			return nil
		},
	})

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", h.config, "--server", h.server, "--no-input"}, args...))

	err := root.ExecuteContext(context.Background())
	h.stderr = errOut.String()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()

	out, err := h.run(args...)
	require.NoError(h.t, err)
	return out
}

func (h *harness) tasks() []models.Task {
	h.t.Helper()

	token, err := h.creds.Token(h.server)
	require.NoError(h.t, err)
	tasks, err := client.NewClient(h.server, token).ListTasks(context.Background(), models.TaskFilter{})
	require.NoError(h.t, err)
	return tasks
}

func (h *harness) idOf(title string) string {
	h.t.Helper()

	for _, task := range h.tasks() {
		if task.Title == title {
			return task.ID
		}
	}
	h.t.Fatalf("no task titled %q", title)
	return ""
}

func TestCLI_RegisterStoresToken(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("register", "--email", "ann@example.com", "--password", "secret123")
	assert.Equal(t, "Registered as ann@example.com\n", out)

	token, err := h.creds.Token(h.server)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = h.run("register", "--email", "ann@example.com", "--password", "secret123")
	assert.ErrorContains(t, err, "409")

	out = h.mustRun("logout")
	assert.Equal(t, "Logged out\n", out)
	_, err = h.creds.Token(h.server)
	assert.ErrorIs(t, err, credential.ErrNotFound)

	out = h.mustRun("login", "-e", "ann@example.com", "-p", "secret123")
	assert.Equal(t, "Logged in as ann@example.com\n", out)
}

func TestCLI_CommandsRequireLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("list")
	assert.ErrorContains(t, err, "not logged in")

	require.NoError(t, h.creds.SetToken(h.server, "garbage"))
	_, err = h.run("list")
	assert.ErrorContains(t, err, "not logged in")
}

func TestCLI_AddListAndFilter(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-e", "ann@example.com", "-p", "secret123")

	out := h.mustRun("list")
	assert.Equal(t, "No tasks\n", out)

	out = h.mustRun("add", "Write report", "--priority", "high", "--due", "2026-11-02")
	assert.Contains(t, out, `Created "Write report"`)
	h.mustRun("add", "--title", "Review PR", "--status", "in_progress", "-d", "backend")

	tasks := h.tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, models.StatusPending, tasks[0].Status)
	require.NotNil(t, tasks[0].DueDate)
	assert.Equal(t, "2026-11-02", tasks[0].DueDate.Format(time.DateOnly))
	assert.Equal(t, models.StatusInProgress, tasks[1].Status)
	assert.Equal(t, models.PriorityMedium, tasks[1].Priority)

	out = h.mustRun("list")
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "Review PR")
	assert.Less(t, strings.Index(out, "Write report"), strings.Index(out, "Review PR"))

	out = h.mustRun("list", "--status", "In Progress")
	assert.NotContains(t, out, "Write report")
	assert.Contains(t, out, "Review PR")

	out = h.mustRun("list", "-q", "backend")
	assert.Contains(t, out, "Review PR")

	_, err := h.run("list", "--status", "blocked")
	assert.ErrorContains(t, err, `unknown status "blocked"`)
}

func TestCLI_AddValidation(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-e", "ann@example.com", "-p", "secret123")

	_, err := h.run("add")
	assert.ErrorContains(t, err, "--no-input")

	_, err = h.run("add", "Pay rent", "--due", "next week")
	assert.ErrorContains(t, err, "invalid due date")

	_, err = h.run("add", "Pay rent", "--priority", "urgent")
	assert.ErrorContains(t, err, `unknown priority "urgent"`)

	assert.Empty(t, h.tasks())
}

func TestCLI_EditChangesOnlyGivenFields(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-e", "ann@example.com", "-p", "secret123")
	h.mustRun("add", "Write report", "-d", "draft", "--due", "2026-11-02", "-c", "work")
	id := h.idOf("Write report")

	out := h.mustRun("edit", id, "--title", "Write final report", "-p", "high")
	assert.Equal(t, `Updated "Write final report" (`+id+")\n", out)

	tasks := h.tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Write final report", tasks[0].Title)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)
	assert.Equal(t, "draft", tasks[0].Description)
	assert.Equal(t, "work", tasks[0].Category)
	require.NotNil(t, tasks[0].DueDate)

	h.mustRun("edit", id, "--due", "")
	assert.Nil(t, h.tasks()[0].DueDate)
	assert.Equal(t, "Write final report", h.tasks()[0].Title)

	_, err := h.run("edit", id)
	assert.ErrorContains(t, err, "nothing to change")

	_, err = h.run("edit", id, "--due", "soon")
	assert.ErrorContains(t, err, "invalid due date")

	_, err = h.run("edit", id, "--title", "  ")
	assert.ErrorContains(t, err, "title is required")

	_, err = h.run("edit", "missing", "--title", "x")
	assert.ErrorContains(t, err, "task missing not found")
}

func TestCLI_MoveReordersOnServer(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-e", "ann@example.com", "-p", "secret123")
	h.mustRun("add", "A")
	h.mustRun("add", "B")
	h.mustRun("add", "C", "--status", "In Progress")

	b := h.idOf("B")
	out := h.mustRun("move", b, "in progress", "1")
	assert.Equal(t, "Moved "+b+" to In Progress at 1\n", out)

	tasks := h.tasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"A", "C", "B"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
	assert.Equal(t, models.StatusInProgress, tasks[2].Status)

	// No index appends to the column.
	a := h.idOf("A")
	h.mustRun("move", a, "completed")
	tasks = h.tasks()
	assert.Equal(t, "A", tasks[2].Title)
	assert.Equal(t, models.StatusCompleted, tasks[2].Status)

	_, err := h.run("move", "missing", "pending")
	assert.ErrorContains(t, err, "task missing not found")

	_, err = h.run("move", a, "archived")
	assert.ErrorContains(t, err, `unknown status "archived"`)
}

func TestCLI_ToggleAndRemove(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-e", "ann@example.com", "-p", "secret123")
	h.mustRun("add", "A")

	a := h.idOf("A")
	out := h.mustRun("toggle", a)
	assert.Equal(t, a+" is now Completed\n", out)
	out = h.mustRun("toggle", a)
	assert.Equal(t, a+" is now Pending\n", out)

	out = h.mustRun("rm", a)
	assert.Equal(t, "Deleted "+a+"\n", out)
	assert.Empty(t, h.tasks())

	_, err := h.run("rm", a)
	assert.ErrorContains(t, err, "not found")

	_, err = h.run("toggle", a)
	assert.ErrorContains(t, err, "not found")
}

func TestCLI_BoardStartsWithLoadedProjector(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-e", "ann@example.com", "-p", "secret123")
	h.mustRun("add", "A")

	h.mustRun("board")
	require.NotNil(t, h.boardModel)

	m, _ := h.boardModel.Update(h.boardModel.Init()())
	assert.Contains(t, m.View(), "Pending (1)")
}

func TestCLI_BoardKeepsLogsOffTheScreen(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "-e", "ann@example.com", "-p", "secret123")
	h.mustRun("add", "A")
	a := h.idOf("A")

	h.runBoard = func(m tea.Model) error {
		m, _ = m.Update(m.Init()())

		token, err := h.creds.Token(h.server)
		require.NoError(t, err)
		require.NoError(t, client.NewClient(h.server, token).DeleteTask(context.Background(), a))

		for _, key := range []tea.KeyMsg{
			{Type: tea.KeyRunes, Runes: []rune("g")},
			{Type: tea.KeyRunes, Runes: []rune("l")},
			{Type: tea.KeyEnter},
		} {
			var cmd tea.Cmd
			m, cmd = m.Update(key)
			if key.Type == tea.KeyEnter {
				require.NotNil(t, cmd)
				m, _ = m.Update(cmd())
			}
		}
		assert.Contains(t, m.View(), "Failed")
		return nil
	}

	h.mustRun("board")
	assert.Empty(t, h.stderr)
}

func TestCLI_ServerFromConfigFileAndEnv(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(h.config, []byte("server: "+h.server+"\n"), 0o600))

	run := func(args ...string) error {
		root := cli.NewRootCommand(cli.Options{
			OpenCredentials: func(cli.Settings) (*credential.Store, error) {
				return h.creds, nil
			},
		})
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(append([]string{"--config", h.config, "--no-input"}, args...))
		return root.ExecuteContext(context.Background())
	}

	require.NoError(t, run("register", "-e", "ann@example.com", "-p", "secret123"))
	_, err := h.creds.Token(h.server)
	require.NoError(t, err)

	t.Setenv("TASKBOARD_SERVER", "http://127.0.0.1:1")
	err = run("login", "-e", "ann@example.com", "-p", "secret123")
	assert.ErrorContains(t, err, "127.0.0.1:1")
}
