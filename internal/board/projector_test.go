package board_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/taskboard/internal/board"
	"github.com/adanyl0v/taskboard/internal/board/boardtest"
	"github.com/adanyl0v/taskboard/internal/client"
	"github.com/adanyl0v/taskboard/internal/models"
)

func newLoadedProjector(t *testing.T, api *boardtest.FakeAPI) *board.Projector {
	t.Helper()

	p := board.NewProjector(api, zerolog.Nop())
	require.NoError(t, p.Load(context.Background()))
	return p
}

func ids(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}

func statusPtr(s models.Status) *models.Status {
	return &s
}

func TestProjector_ScenarioMoveAcrossColumns(t *testing.T) {
	api := boardtest.NewFakeAPI()
	a := api.Add("A", models.StatusPending)
	b := api.Add("B", models.StatusPending)
	c := api.Add("C", models.StatusInProgress)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(api.Tasks()))

	p := newLoadedProjector(t, api)
	err := p.MoveCard(context.Background(), models.StatusPending, 1, statusPtr(models.StatusInProgress), 1)
	require.NoError(t, err)

	require.Len(t, api.Reorders, 1)
	assert.Equal(t, []models.ReorderEntry{
		{ID: a.ID, Position: 0},
		{ID: c.ID, Position: 1},
		{ID: b.ID, Position: 2},
	}, api.Reorders[0])

	require.Len(t, api.Updates, 1)
	assert.Equal(t, b.ID, api.Updates[0].ID)
	assert.Equal(t, models.StatusInProgress, *api.Updates[0].Patch.Status)

	assert.Equal(t, []string{a.ID, c.ID, b.ID}, ids(api.Tasks()))

	view := p.View()
	assert.Equal(t, []string{a.ID}, ids(view.Column(models.StatusPending)))
	assert.Equal(t, []string{c.ID, b.ID}, ids(view.Column(models.StatusInProgress)))
	assert.Equal(t, 0, p.Pending())

	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, []string{c.ID, b.ID}, ids(p.View().Column(models.StatusInProgress)))
}

func TestProjector_MoveToTopOfColumn(t *testing.T) {
	api := boardtest.NewFakeAPI()
	a := api.Add("A", models.StatusPending)
	b := api.Add("B", models.StatusPending)
	c := api.Add("C", models.StatusInProgress)

	p := newLoadedProjector(t, api)
	err := p.MoveCard(context.Background(), models.StatusPending, 1, statusPtr(models.StatusInProgress), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(api.Tasks()))
	assert.Equal(t, []string{b.ID, c.ID}, ids(p.View().Column(models.StatusInProgress)))
}

func TestProjector_MoveToCompletedSetsStatus(t *testing.T) {
	api := boardtest.NewFakeAPI()
	pending := api.Add("P", models.StatusPending)
	done := api.Add("D", models.StatusCompleted)

	p := newLoadedProjector(t, api)
	move, err := p.BeginMove(models.StatusPending, 0, statusPtr(models.StatusCompleted), 0)
	require.NoError(t, err)

	assert.Equal(t, []models.ReorderEntry{
		{ID: pending.ID, Position: 0},
		{ID: done.ID, Position: 1},
	}, move.Entries())

	completed := p.View().Column(models.StatusCompleted)
	require.Len(t, completed, 2)
	assert.Equal(t, pending.ID, completed[0].ID)
	assert.Equal(t, models.StatusCompleted, completed[0].Status)

	require.NoError(t, move.Commit(context.Background()))
	assert.Equal(t, models.StatusCompleted, api.Tasks()[0].Status)
}

func TestProjector_NilDestinationIsNoop(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.Add("A", models.StatusPending)

	p := newLoadedProjector(t, api)
	before := p.View()

	err := p.MoveCard(context.Background(), models.StatusPending, 0, nil, 0)
	require.NoError(t, err)

	assert.Empty(t, api.Reorders)
	assert.Empty(t, api.Updates)
	assert.Equal(t, before, p.View())
}

func TestProjector_OptimisticViewBeforeCommit(t *testing.T) {
	api := boardtest.NewFakeAPI()
	a := api.Add("A", models.StatusPending)
	b := api.Add("B", models.StatusPending)

	p := newLoadedProjector(t, api)
	move, err := p.BeginMove(models.StatusPending, 0, statusPtr(models.StatusPending), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, p.Pending())
	assert.Equal(t, []string{b.ID, a.ID}, ids(p.View().Column(models.StatusPending)))
	assert.Empty(t, api.Reorders)

	// A refetch while the move is in flight keeps it on top.
	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, []string{b.ID, a.ID}, ids(p.View().Column(models.StatusPending)))

	require.NoError(t, move.Commit(context.Background()))
	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, []string{b.ID, a.ID}, ids(api.Tasks()))
	assert.Empty(t, api.Updates)
}

func TestProjector_FailedReorderRollsBack(t *testing.T) {
	api := boardtest.NewFakeAPI()
	a := api.Add("A", models.StatusPending)
	b := api.Add("B", models.StatusPending)
	api.ReorderErr = errors.New("connection refused")

	p := newLoadedProjector(t, api)
	err := p.MoveCard(context.Background(), models.StatusPending, 0, statusPtr(models.StatusPending), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ReorderErr)

	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, []string{a.ID, b.ID}, ids(p.View().Column(models.StatusPending)))
	assert.Equal(t, []string{a.ID, b.ID}, ids(api.Tasks()))
}

func TestProjector_FailedStatusUpdateRollsBackWithoutReorder(t *testing.T) {
	api := boardtest.NewFakeAPI()
	a := api.Add("A", models.StatusPending)
	api.UpdateErr = errors.New("server error")

	p := newLoadedProjector(t, api)
	err := p.MoveCard(context.Background(), models.StatusPending, 0, statusPtr(models.StatusCompleted), 0)
	require.Error(t, err)

	assert.Empty(t, api.Reorders)
	assert.Equal(t, []string{a.ID}, ids(p.View().Column(models.StatusPending)))
	assert.Empty(t, p.View().Column(models.StatusCompleted))
}

func TestProjector_FailedReorderAfterStatusChangeResyncs(t *testing.T) {
	api := boardtest.NewFakeAPI()
	a := api.Add("A", models.StatusPending)
	api.ReorderErr = errors.New("server error")

	p := newLoadedProjector(t, api)
	err := p.MoveCard(context.Background(), models.StatusPending, 0, statusPtr(models.StatusInProgress), 0)
	require.Error(t, err)

	// The status change reached the server, so the board shows it.
	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, []string{a.ID}, ids(p.View().Column(models.StatusInProgress)))
}

func TestProjector_MoveRejectsBadSource(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.Add("A", models.StatusPending)

	p := newLoadedProjector(t, api)
	err := p.MoveCard(context.Background(), models.StatusPending, 3, statusPtr(models.StatusCompleted), 0)
	assert.ErrorIs(t, err, board.ErrCardOutOfRange)
	assert.Equal(t, 0, p.Pending())
	assert.Empty(t, api.Reorders)
}

func TestProjector_DiscardsStaleFetch(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.Add("A", models.StatusPending)

	p := board.NewProjector(api, zerolog.Nop())
	api.ListHook = func() {
		api.ListHook = nil
		api.Add("B", models.StatusPending)
		require.NoError(t, p.Load(context.Background()))
	}

	// The outer fetch saw only A and finishes after the inner one.
	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, 2, p.View().Len())
}

func TestProjector_DiscardsFetchStartedBeforeConfirmedMove(t *testing.T) {
	api := boardtest.NewFakeAPI()
	a := api.Add("A", models.StatusPending)
	b := api.Add("B", models.StatusPending)

	p := newLoadedProjector(t, api)
	api.ListHook = func() {
		api.ListHook = nil
		err := p.MoveCard(context.Background(), models.StatusPending, 1, statusPtr(models.StatusPending), 0)
		require.NoError(t, err)
	}

	require.NoError(t, p.Load(context.Background()))
	assert.Equal(t, []string{b.ID, a.ID}, ids(p.View().Column(models.StatusPending)))
}

func TestProjector_FailedLoadKeepsBoard(t *testing.T) {
	api := boardtest.NewFakeAPI()
	api.Add("A", models.StatusPending)

	p := newLoadedProjector(t, api)
	api.ListErr = errors.New("offline")

	assert.ErrorIs(t, p.Load(context.Background()), api.ListErr)
	assert.Equal(t, 1, p.View().Len())
}

func TestProjector_ToggleComplete(t *testing.T) {
	api := boardtest.NewFakeAPI()
	pending := api.Add("P", models.StatusPending)
	inProgress := api.Add("I", models.StatusInProgress)
	completed := api.Add("C", models.StatusCompleted)

	p := newLoadedProjector(t, api)
	ctx := context.Background()

	require.NoError(t, p.ToggleComplete(ctx, pending.ID))
	require.NoError(t, p.ToggleComplete(ctx, inProgress.ID))
	require.NoError(t, p.ToggleComplete(ctx, completed.ID))

	view := p.View()
	assert.Equal(t, []string{completed.ID}, ids(view.Column(models.StatusPending)))
	assert.Empty(t, view.Column(models.StatusInProgress))
	assert.Equal(t, []string{pending.ID, inProgress.ID}, ids(view.Column(models.StatusCompleted)))

	require.Len(t, api.Updates, 3)
	for _, call := range api.Updates {
		assert.NotNil(t, call.Patch.Status)
		assert.Nil(t, call.Patch.Title)
	}
	assert.Empty(t, api.Reorders)

	err := p.ToggleComplete(ctx, "missing")
	assert.ErrorIs(t, err, board.ErrTaskNotOnBoard)
}

func TestProjector_ToggleFailureLeavesBoard(t *testing.T) {
	api := boardtest.NewFakeAPI()
	task := api.Add("P", models.StatusPending)
	api.UpdateErr = errors.New("server error")

	p := newLoadedProjector(t, api)
	require.Error(t, p.ToggleComplete(context.Background(), task.ID))
	assert.Equal(t, []string{task.ID}, ids(p.View().Column(models.StatusPending)))
}

func TestProjector_CreateAndDeleteRefetch(t *testing.T) {
	api := boardtest.NewFakeAPI()
	p := newLoadedProjector(t, api)
	ctx := context.Background()

	created, err := p.CreateTask(ctx, client.NewTask{Title: "new", Status: models.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID}, ids(p.View().Column(models.StatusInProgress)))

	require.NoError(t, p.DeleteTask(ctx, created.ID))
	assert.Equal(t, 0, p.View().Len())

	var apiErr *client.APIError
	require.ErrorAs(t, p.DeleteTask(ctx, created.ID), &apiErr)

	api.CreateErr = errors.New("server error")
	_, err = p.CreateTask(ctx, client.NewTask{Title: "nope"})
	require.Error(t, err)
	assert.Equal(t, 0, p.View().Len())
}

func TestProjector_MovesReachServerInBeginOrder(t *testing.T) {
	api := boardtest.NewFakeAPI()
	a := api.Add("A", models.StatusPending)
	b := api.Add("B", models.StatusPending)
	c := api.Add("C", models.StatusPending)

	p := newLoadedProjector(t, api)
	first, err := p.BeginMove(models.StatusPending, 2, statusPtr(models.StatusPending), 0)
	require.NoError(t, err)
	second, err := p.BeginMove(models.StatusPending, 2, statusPtr(models.StatusPending), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, ids(p.View().Column(models.StatusPending)))

	// The second move is committed first but waits for the first.
	done := make(chan error, 1)
	go func() { done <- second.Commit(context.Background()) }()
	require.NoError(t, first.Commit(context.Background()))
	require.NoError(t, <-done)

	require.Len(t, api.Reorders, 2)
	assert.Equal(t, []models.ReorderEntry{
		{ID: c.ID, Position: 0},
		{ID: a.ID, Position: 1},
		{ID: b.ID, Position: 2},
	}, api.Reorders[0])
	assert.Equal(t, []models.ReorderEntry{
		{ID: b.ID, Position: 0},
		{ID: c.ID, Position: 1},
		{ID: a.ID, Position: 2},
	}, api.Reorders[1])

	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, ids(api.Tasks()))
	assert.Equal(t, ids(api.Tasks()), ids(p.View().Column(models.StatusPending)))
}

func TestProjector_FailedMoveIsNotSentWithLaterMove(t *testing.T) {
	api := boardtest.NewFakeAPI()
	a := api.Add("A", models.StatusPending)
	b := api.Add("B", models.StatusPending)
	c := api.Add("C", models.StatusPending)
	api.ReorderErrs = []error{errors.New("timeout")}

	p := newLoadedProjector(t, api)
	first, err := p.BeginMove(models.StatusPending, 2, statusPtr(models.StatusPending), 0)
	require.NoError(t, err)
	second, err := p.BeginMove(models.StatusPending, 1, statusPtr(models.StatusPending), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, ids(p.View().Column(models.StatusPending)))

	done := make(chan error, 1)
	go func() { done <- second.Commit(context.Background()) }()
	assert.Error(t, first.Commit(context.Background()))
	require.NoError(t, <-done)

	require.Len(t, api.Reorders, 2)
	assert.Equal(t, []models.ReorderEntry{
		{ID: b.ID, Position: 0},
		{ID: c.ID, Position: 1},
		{ID: a.ID, Position: 2},
	}, api.Reorders[1])

	assert.Equal(t, 0, p.Pending())
	assert.Equal(t, []string{b.ID, c.ID, a.ID}, ids(api.Tasks()))
	assert.Equal(t, ids(api.Tasks()), ids(p.View().Column(models.StatusPending)))
}

func TestProjector_CancelledWaitDropsMove(t *testing.T) {
	api := boardtest.NewFakeAPI()
	a := api.Add("A", models.StatusPending)
	b := api.Add("B", models.StatusPending)

	p := newLoadedProjector(t, api)
	first, err := p.BeginMove(models.StatusPending, 1, statusPtr(models.StatusPending), 0)
	require.NoError(t, err)
	second, err := p.BeginMove(models.StatusPending, 1, statusPtr(models.StatusCompleted), 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, second.Commit(ctx), context.Canceled)
	assert.Equal(t, 1, p.Pending())

	require.NoError(t, first.Commit(context.Background()))
	assert.Equal(t, 0, p.Pending())
	assert.Len(t, api.Reorders, 1)
	assert.Empty(t, api.Updates)
	assert.Equal(t, []string{b.ID, a.ID}, ids(p.View().Column(models.StatusPending)))
}
