// Package storage defines the persistence contract shared by the
// postgres, mongo and sqlite backends.
package storage

import (
	"context"
	"errors"

	"github.com/adanyl0v/taskboard/internal/models"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// TaskStore persists tasks. Every call is scoped by ownerID: a task owned
// by someone else behaves exactly like a missing one.
type TaskStore interface {
	// CountTasks returns how many tasks ownerID currently has.
	CountTasks(ctx context.Context, ownerID string) (int, error)

	// ListTasks returns the owner's tasks sorted by position, then
	// creation time, then id.
	ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error)

	GetTask(ctx context.Context, ownerID, taskID string) (*models.Task, error)

	// InsertTask stores task as is. ID, UserID and Position must be set.
	InsertTask(ctx context.Context, task *models.Task) error

	// UpdateTask applies patch and bumps updated_at. It returns
	// ErrTaskNotFound when no task with that id belongs to ownerID.
	UpdateTask(ctx context.Context, ownerID, taskID string, patch models.TaskPatch) (*models.Task, error)

	DeleteTask(ctx context.Context, ownerID, taskID string) error

	// Reposition rewrites the position of every entry in a single
	// transaction. Entries whose task is missing or owned by someone
	// else are skipped. It returns the number of tasks updated.
	Reposition(ctx context.Context, ownerID string, entries []models.ReorderEntry) (int, error)
}

type UserStore interface {
	// InsertUser returns ErrDuplicateEmail when the email is taken.
	InsertUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store is what a backend provides to the application.
type Store interface {
	TaskStore
	UserStore

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
