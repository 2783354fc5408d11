// Package storagetest holds the behaviour every storage.Store backend must
// share. Backend packages call Run from their own tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adanyl0v/taskboard/internal/models"
	"github.com/adanyl0v/taskboard/internal/storage"
)

// Factory returns a ready store. Stores may be shared between tests:
// every test works with freshly registered owners.
type Factory func(t *testing.T) storage.Store

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"ListSortsByPosition", testListSortsByPosition},
		{"ListBreaksTiesByCreation", testListBreaksTiesByCreation},
		{"ListFilters", testListFilters},
		{"CountTasks", testCountTasks},
		{"GetTaskScopedByOwner", testGetTaskScopedByOwner},
		{"UpdateTaskPatch", testUpdateTaskPatch},
		{"UpdateTaskClearsDueDate", testUpdateTaskClearsDueDate},
		{"UpdateTaskForeignOwner", testUpdateTaskForeignOwner},
		{"DeleteTask", testDeleteTask},
		{"DeleteTaskForeignOwner", testDeleteTaskForeignOwner},
		{"RepositionPermutation", testRepositionPermutation},
		{"RepositionSkipsForeignTasks", testRepositionSkipsForeignTasks},
		{"RepositionEmpty", testRepositionEmpty},
		{"Users", testUsers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// NewUser inserts a user with a unique email and returns its id.
func NewUser(t *testing.T, s storage.UserStore) string {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	user := &models.User{
		ID:        uuid.NewString(),
		Email:     uuid.NewString() + "@example.com",
		Password:  "hash",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.InsertUser(context.Background(), user))
	return user.ID
}

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func insertTask(t *testing.T, s storage.TaskStore, ownerID, title string, status models.Status, position int, offset time.Duration) *models.Task {
	t.Helper()

	createdAt := baseTime.Add(offset)
	task := &models.Task{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Title:     title,
		Priority:  models.PriorityMedium,
		Status:    status,
		Position:  position,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, s.InsertTask(context.Background(), task))
	return task
}

func titles(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

func testListSortsByPosition(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)

	insertTask(t, s, owner, "C", models.StatusCompleted, 2, 0)
	insertTask(t, s, owner, "A", models.StatusPending, 0, time.Second)
	insertTask(t, s, owner, "B", models.StatusInProgress, 1, 2*time.Second)

	tasks, err := s.ListTasks(ctx, owner, models.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, titles(tasks))
	for i, task := range tasks {
		assert.Equal(t, i, task.Position)
		assert.Equal(t, owner, task.UserID)
	}
}

func testListBreaksTiesByCreation(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)

	insertTask(t, s, owner, "later", models.StatusPending, 1, 2*time.Second)
	insertTask(t, s, owner, "earlier", models.StatusPending, 1, time.Second)
	insertTask(t, s, owner, "first", models.StatusPending, 0, 3*time.Second)

	tasks, err := s.ListTasks(ctx, owner, models.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "earlier", "later"}, titles(tasks))
}

func testListFilters(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)

	a := insertTask(t, s, owner, "Write report", models.StatusPending, 0, 0)
	_, err := s.UpdateTask(ctx, owner, a.ID, models.TaskPatch{Description: ptr("quarterly numbers")})
	require.NoError(t, err)
	insertTask(t, s, owner, "Buy milk", models.StatusCompleted, 1, time.Second)
	high := insertTask(t, s, owner, "Fix 100% bug", models.StatusInProgress, 2, 2*time.Second)
	priority := models.PriorityHigh
	_, err = s.UpdateTask(ctx, owner, high.ID, models.TaskPatch{Priority: &priority})
	require.NoError(t, err)

	tasks, err := s.ListTasks(ctx, owner, models.TaskFilter{Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy milk"}, titles(tasks))

	tasks, err = s.ListTasks(ctx, owner, models.TaskFilter{Priority: models.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fix 100% bug"}, titles(tasks))

	tasks, err = s.ListTasks(ctx, owner, models.TaskFilter{Query: "QUARTERLY"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Write report"}, titles(tasks))

	tasks, err = s.ListTasks(ctx, owner, models.TaskFilter{Query: "100%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fix 100% bug"}, titles(tasks))
}

func testCountTasks(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)
	other := NewUser(t, s)

	count, err := s.CountTasks(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, count)

	insertTask(t, s, owner, "A", models.StatusPending, 0, 0)
	insertTask(t, s, owner, "B", models.StatusPending, 1, time.Second)
	insertTask(t, s, other, "X", models.StatusPending, 0, 0)

	count, err = s.CountTasks(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func testGetTaskScopedByOwner(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)
	other := NewUser(t, s)
	task := insertTask(t, s, owner, "mine", models.StatusPending, 0, 0)

	got, err := s.GetTask(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)

	_, err = s.GetTask(ctx, other, task.ID)
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)

	_, err = s.GetTask(ctx, owner, uuid.NewString())
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)
}

func testUpdateTaskPatch(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)
	task := insertTask(t, s, owner, "old", models.StatusPending, 3, 0)

	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	status := models.StatusCompleted
	updated, err := s.UpdateTask(ctx, owner, task.ID, models.TaskPatch{
		Title:   ptr("new"),
		Status:  &status,
		DueDate: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, models.PriorityMedium, updated.Priority)
	assert.Equal(t, 3, updated.Position)
	require.NotNil(t, updated.DueDate)
	assert.True(t, due.Equal(*updated.DueDate))

	got, err := s.GetTask(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func testUpdateTaskClearsDueDate(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)
	task := insertTask(t, s, owner, "due", models.StatusPending, 0, 0)

	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.UpdateTask(ctx, owner, task.ID, models.TaskPatch{DueDate: &due})
	require.NoError(t, err)

	updated, err := s.UpdateTask(ctx, owner, task.ID, models.TaskPatch{Title: ptr("kept")})
	require.NoError(t, err)
	require.NotNil(t, updated.DueDate)

	updated, err = s.UpdateTask(ctx, owner, task.ID, models.TaskPatch{ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, "kept", updated.Title)

	got, err := s.GetTask(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.DueDate)
}

func testUpdateTaskForeignOwner(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)
	other := NewUser(t, s)
	task := insertTask(t, s, owner, "mine", models.StatusPending, 0, 0)

	_, err := s.UpdateTask(ctx, other, task.ID, models.TaskPatch{Title: ptr("stolen")})
	assert.ErrorIs(t, err, storage.ErrTaskNotFound)

	got, err := s.GetTask(ctx, owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)
}

func testDeleteTask(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)
	a := insertTask(t, s, owner, "A", models.StatusPending, 0, 0)
	insertTask(t, s, owner, "B", models.StatusPending, 1, time.Second)
	insertTask(t, s, owner, "C", models.StatusPending, 2, 2*time.Second)

	require.NoError(t, s.DeleteTask(ctx, owner, a.ID))
	assert.ErrorIs(t, s.DeleteTask(ctx, owner, a.ID), storage.ErrTaskNotFound)

	// Survivors keep their positions; the gap is tolerated.
	tasks, err := s.ListTasks(ctx, owner, models.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 1, tasks[0].Position)
	assert.Equal(t, 2, tasks[1].Position)
}

func testDeleteTaskForeignOwner(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)
	other := NewUser(t, s)
	task := insertTask(t, s, owner, "mine", models.StatusPending, 0, 0)

	assert.ErrorIs(t, s.DeleteTask(ctx, other, task.ID), storage.ErrTaskNotFound)

	_, err := s.GetTask(ctx, owner, task.ID)
	assert.NoError(t, err)
}

func testRepositionPermutation(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)
	a := insertTask(t, s, owner, "A", models.StatusPending, 0, 0)
	b := insertTask(t, s, owner, "B", models.StatusPending, 1, time.Second)
	c := insertTask(t, s, owner, "C", models.StatusInProgress, 2, 2*time.Second)

	updated, err := s.Reposition(ctx, owner, []models.ReorderEntry{
		{ID: a.ID, Position: 0},
		{ID: c.ID, Position: 1},
		{ID: b.ID, Position: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	tasks, err := s.ListTasks(ctx, owner, models.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C", "B"}, titles(tasks))
}

func testRepositionSkipsForeignTasks(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := NewUser(t, s)
	other := NewUser(t, s)
	mine := insertTask(t, s, owner, "mine", models.StatusPending, 0, 0)
	theirs := insertTask(t, s, other, "theirs", models.StatusPending, 0, 0)

	updated, err := s.Reposition(ctx, owner, []models.ReorderEntry{
		{ID: theirs.ID, Position: 7},
		{ID: uuid.NewString(), Position: 8},
		{ID: mine.ID, Position: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	got, err := s.GetTask(ctx, other, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Position)

	got, err = s.GetTask(ctx, owner, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Position)
}

// RepositionRollsBack checks that a batch failing partway leaves every
// position as it was. The caller must make s reject any write of
// rejectedPosition.
func RepositionRollsBack(t *testing.T, s storage.Store, rejectedPosition int) {
	t.Helper()

	ctx := context.Background()
	owner := NewUser(t, s)
	a := insertTask(t, s, owner, "A", models.StatusPending, 0, 0)
	b := insertTask(t, s, owner, "B", models.StatusPending, 1, time.Second)
	c := insertTask(t, s, owner, "C", models.StatusPending, 2, 2*time.Second)

	_, err := s.Reposition(ctx, owner, []models.ReorderEntry{
		{ID: a.ID, Position: 2},
		{ID: b.ID, Position: rejectedPosition},
		{ID: c.ID, Position: 0},
	})
	require.Error(t, err)

	tasks, err := s.ListTasks(ctx, owner, models.TaskFilter{})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B", "C"}, titles(tasks))
	for i, task := range tasks {
		assert.Equal(t, i, task.Position, task.Title)
	}
}

func testRepositionEmpty(t *testing.T, s storage.Store) {
	owner := NewUser(t, s)

	updated, err := s.Reposition(context.Background(), owner, nil)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	email := uuid.NewString() + "@example.com"
	user := &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  "hash",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.InsertUser(ctx, user))

	dup := *user
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.InsertUser(ctx, &dup), storage.ErrDuplicateEmail)

	got, err := s.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.Password)

	got, err = s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, email, got.Email)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func ptr[T any](v T) *T {
	return &v
}
