package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adanyl0v/taskboard/internal/models"
)

var (
	ErrInvalidTask        = errors.New("invalid task")
	ErrInvalidReorder     = errors.New("invalid reorder request")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type AuthService interface {
	// Register creates a user with the given email and password and
	// issues an access token for it.
	//
	// It returns ErrUserAlreadyExists if the email is taken.
	Register(ctx context.Context, params CredentialsParams) (*AuthResult, error)

	// Login authenticates the user by email and password.
	//
	// It returns ErrInvalidCredentials both for an unknown email and for
	// a wrong password.
	Login(ctx context.Context, params CredentialsParams) (*AuthResult, error)

	// ParseJWTToken parses the given JWT token and returns the registered
	// claims or an error wrapping jwt.ErrTokenExpired if the token is expired.
	ParseJWTToken(token string) (*jwt.RegisteredClaims, error)
}

type TaskService interface {
	// ListTasks returns the owner's tasks sorted by position.
	ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error)

	// CreateTask validates params and appends the task at the end of the
	// owner's list.
	//
	// It returns an error wrapping ErrInvalidTask on validation failure.
	CreateTask(ctx context.Context, ownerID string, params CreateTaskParams) (*models.Task, error)

	// UpdateTask applies the patch to a task owned by ownerID.
	//
	// It returns storage.ErrTaskNotFound if the task doesn't exist or
	// belongs to someone else, and ErrInvalidTask on validation failure.
	UpdateTask(ctx context.Context, ownerID, taskID string, patch models.TaskPatch) (*models.Task, error)

	// DeleteTask removes the task without renumbering the rest.
	DeleteTask(ctx context.Context, ownerID, taskID string) error

	// ReorderTasks rewrites positions as one unit. Entries naming tasks
	// the owner doesn't have are ignored. It returns how many tasks
	// were repositioned, or ErrInvalidReorder for a malformed batch.
	ReorderTasks(ctx context.Context, ownerID string, entries []models.ReorderEntry) (int, error)
}

// PositionAssigner picks the position of a task about to be created.
type PositionAssigner interface {
	AssignInitialPosition(ctx context.Context, ownerID string) (int, error)
}

type CredentialsParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User        *models.User
	AccessToken string
	ExpiresAt   time.Time
}

type CreateTaskParams struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    models.Priority
	Status      models.Status
	Category    string
}
