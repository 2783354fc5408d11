package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/taskboard/internal/locker"
	"github.com/adanyl0v/taskboard/internal/models"
	"github.com/adanyl0v/taskboard/internal/storage"
)

const maxTitleLength = 255

type countingPositionAssigner struct {
	store storage.TaskStore
}

// NewPositionAssigner appends: a new task's position is the number of
// tasks the owner already has. Callers must hold the owner lock until
// the task is stored, otherwise two creates can share a position.
func NewPositionAssigner(store storage.TaskStore) PositionAssigner {
	return &countingPositionAssigner{store: store}
}

func (a *countingPositionAssigner) AssignInitialPosition(ctx context.Context, ownerID string) (int, error) {
	return a.store.CountTasks(ctx, ownerID)
}

type taskServiceImpl struct {
	logger      zerolog.Logger
	store       storage.TaskStore
	positions   PositionAssigner
	locker      locker.Locker
	lockTimeout time.Duration
}

func NewTaskService(
	logger zerolog.Logger,
	store storage.TaskStore,
	ownerLocker locker.Locker,
	lockTimeout time.Duration,
) TaskService {
	return &taskServiceImpl{
		logger:      logger,
		store:       store,
		positions:   NewPositionAssigner(store),
		locker:      ownerLocker,
		lockTimeout: lockTimeout,
	}
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	tasks, err := s.store.ListTasks(ctx, ownerID, filter)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to list tasks")
		return nil, err
	}

	s.logger.Info().
		Int("count", len(tasks)).
		Str("user_id", ownerID).
		Msg("tasks found")
	return tasks, nil
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, ownerID string, params CreateTaskParams) (*models.Task, error) {
	title := strings.TrimSpace(params.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	priority := params.Priority
	if priority == "" {
		priority = models.PriorityMedium
	} else if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, priority)
	}

	status := params.Status
	if status == "" {
		status = models.StatusPending
	} else if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, status)
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	task := &models.Task{
		ID:          taskUUID.String(),
		UserID:      ownerID,
		Title:       title,
		Description: params.Description,
		DueDate:     params.DueDate,
		Priority:    priority,
		Status:      status,
		Category:    strings.TrimSpace(params.Category),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.withOwnerLock(ctx, ownerID, func(ctx context.Context) error {
		position, err := s.positions.AssignInitialPosition(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to assign position: %w", err)
		}
		task.Position = position

		return s.store.InsertTask(ctx, task)
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to create task")
		return nil, err
	}
	s.logger.Debug().
		Str("task_id", task.ID).
		Int("position", task.Position).
		Msg("created task")

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", ownerID).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, ownerID, taskID string, patch models.TaskPatch) (*models.Task, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if err := validateTitle(title); err != nil {
			return nil, err
		}
		patch.Title = &title
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, *patch.Priority)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTask, *patch.Status)
	}

	if patch.Empty() {
		s.logger.Warn().
			Str("task_id", taskID).
			Msg("no fields to update")
		return s.store.GetTask(ctx, ownerID, taskID)
	}

	task, err := s.store.UpdateTask(ctx, ownerID, taskID, patch)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Str("user_id", ownerID).
			Msg("failed to update task")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", ownerID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	err := s.store.DeleteTask(ctx, ownerID, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Str("user_id", ownerID).
			Msg("failed to delete task")
		return err
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", ownerID).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) ReorderTasks(ctx context.Context, ownerID string, entries []models.ReorderEntry) (int, error) {
	if err := validateReorder(entries); err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("rejected reorder")
		return 0, err
	}

	var updated int
	err := s.withOwnerLock(ctx, ownerID, func(ctx context.Context) error {
		var err error
		updated, err = s.store.Reposition(ctx, ownerID, entries)
		return err
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to reorder tasks")
		return 0, err
	}
	if updated < len(entries) {
		s.logger.Warn().
			Str("user_id", ownerID).
			Int("requested", len(entries)).
			Int("updated", updated).
			Msg("ignored reorder entries for unknown tasks")
	}

	s.logger.Info().
		Str("user_id", ownerID).
		Int("updated", updated).
		Msg("reordered tasks")
	return updated, nil
}

func (s *taskServiceImpl) withOwnerLock(ctx context.Context, ownerID string, fn func(ctx context.Context) error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	unlock, err := s.locker.Lock(lockCtx, ownerID)
	if err != nil {
		return err
	}
	defer unlock()

	return fn(ctx)
}

func validateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidTask, maxTitleLength)
	}
	return nil
}

// validateReorder rejects batches that cannot describe an ordering. It
// does not require the batch to cover every task or to be contiguous.
func validateReorder(entries []models.ReorderEntry) error {
	ids := make(map[string]struct{}, len(entries))
	positions := make(map[int]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry %d has no task id", ErrInvalidReorder, i)
		}
		if e.Position < 0 {
			return fmt.Errorf("%w: entry %d has negative position %d", ErrInvalidReorder, i, e.Position)
		}
		if _, ok := ids[e.ID]; ok {
			return fmt.Errorf("%w: duplicate task id %q", ErrInvalidReorder, e.ID)
		}
		if _, ok := positions[e.Position]; ok {
			return fmt.Errorf("%w: duplicate position %d", ErrInvalidReorder, e.Position)
		}
		ids[e.ID] = struct{}{}
		positions[e.Position] = struct{}{}
	}
	return nil
}
