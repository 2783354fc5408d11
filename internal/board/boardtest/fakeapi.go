// Package boardtest provides an in-memory board.TaskAPI for tests.
package boardtest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/adanyl0v/taskboard/internal/client"
	"github.com/adanyl0v/taskboard/internal/models"
)

// FakeAPI mimics the server: creates append, reads sort by position and
// reorder skips unknown ids.
type FakeAPI struct {
	mu     sync.Mutex
	tasks  map[string]models.Task
	nextID int
	clock  time.Time

	// Reorders records every batch sent to ReorderTasks, failed or not.
	Reorders [][]models.ReorderEntry
	// Updates records every patch sent to UpdateTask by task id.
	Updates []UpdateCall

	// Error injection.
	ListErr    error
	CreateErr  error
	UpdateErr  error
	DeleteErr  error
	ReorderErr error
	// ReorderErrs fails successive ReorderTasks calls in order; a nil
	// entry lets that call through. It is consulted before ReorderErr.
	ReorderErrs []error

	// ListHook runs inside ListTasks after the snapshot is taken and
	// before it is returned.
	ListHook func()
}

type UpdateCall struct {
	ID    string
	Patch models.TaskPatch
}

func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		tasks: make(map[string]models.Task),
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Add stores a task the way POST /tasks would and returns it.
func (f *FakeAPI) Add(title string, status models.Status) models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(client.NewTask{Title: title, Status: status})
}

// AddRaw stores task unchanged, bypassing validation.
func (f *FakeAPI) AddRaw(task models.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task
}

func (f *FakeAPI) addLocked(t client.NewTask) models.Task {
	f.nextID++
	f.clock = f.clock.Add(time.Second)

	task := models.Task{
		ID:          fmt.Sprintf("t%d", f.nextID),
		UserID:      "owner",
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Status:      t.Status,
		Category:    t.Category,
		Position:    len(f.tasks),
		CreatedAt:   f.clock,
		UpdatedAt:   f.clock,
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	f.tasks[task.ID] = task
	return task
}

// Tasks returns the stored tasks in server order.
func (f *FakeAPI) Tasks() []models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedLocked()
}

func (f *FakeAPI) sortedLocked() []models.Task {
	tasks := make([]models.Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return tasks
}

func (f *FakeAPI) ListTasks(_ context.Context, filter models.TaskFilter) ([]models.Task, error) {
	f.mu.Lock()
	if f.ListErr != nil {
		f.mu.Unlock()
		return nil, f.ListErr
	}
	tasks := f.sortedLocked()
	hook := f.ListHook
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	filtered := tasks[:0]
	for _, task := range tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		filtered = append(filtered, task)
	}
	return filtered, nil
}

func (f *FakeAPI) CreateTask(_ context.Context, task client.NewTask) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	created := f.addLocked(task)
	return &created, nil
}

func (f *FakeAPI) UpdateTask(_ context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updates = append(f.Updates, UpdateCall{ID: id, Patch: patch})
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}

	task, ok := f.tasks[id]
	if !ok {
		return nil, notFound()
	}
	patch.Apply(&task)
	f.tasks[id] = task
	return &task, nil
}

func (f *FakeAPI) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.tasks[id]; !ok {
		return notFound()
	}
	delete(f.tasks, id)
	return nil
}

func (f *FakeAPI) ReorderTasks(_ context.Context, entries []models.ReorderEntry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reorders = append(f.Reorders, append([]models.ReorderEntry(nil), entries...))
	if len(f.ReorderErrs) > 0 {
		err := f.ReorderErrs[0]
		f.ReorderErrs = f.ReorderErrs[1:]
		if err != nil {
			return 0, err
		}
	} else if f.ReorderErr != nil {
		return 0, f.ReorderErr
	}

	updated := 0
	for _, e := range entries {
		task, ok := f.tasks[e.ID]
		if !ok {
			continue
		}
		task.Position = e.Position
		f.tasks[e.ID] = task
		updated++
	}
	return updated, nil
}

func notFound() error {
	return &client.APIError{StatusCode: http.StatusNotFound, Message: "Task not found or unauthorized"}
}
