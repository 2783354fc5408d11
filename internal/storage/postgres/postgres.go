// Package postgres implements storage.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/taskboard/internal/models"
	"github.com/adanyl0v/taskboard/internal/storage"
)

type Store struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

func New(logger zerolog.Logger, pgPool *pgxpool.Pool) *Store {
	return &Store{
		logger: logger,
		pgPool: pgPool,
	}
}

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pgPool.Exec(ctx, schema)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to apply schema")
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	s.logger.Debug().Msg("applied schema")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pgPool.Ping(ctx)
}

func (s *Store) Close(context.Context) error {
	s.pgPool.Close()
	return nil
}

const selectTaskColumns = `
SELECT id,
       user_id,
       title,
       description,
       due_date,
       priority,
       status,
       category,
       position,
       created_at,
       updated_at
FROM tasks
`

func scanTask(row pgx.Row) (*models.Task, error) {
	var (
		task     models.Task
		priority string
		status   string
	)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.DueDate,
		&priority,
		&status,
		&task.Category,
		&task.Position,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Priority = models.Priority(priority)
	task.Status = models.Status(status)
	return &task, nil
}

func (s *Store) CountTasks(ctx context.Context, ownerID string) (int, error) {
	const countTasksQuery = `
SELECT COUNT(*)
FROM tasks
WHERE user_id = $1
`
	var count int
	err := s.pgPool.QueryRow(ctx, countTasksQuery, ownerID).Scan(&count)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to count tasks")
		return 0, err
	}
	return count, nil
}

func (s *Store) ListTasks(ctx context.Context, ownerID string, filter models.TaskFilter) ([]models.Task, error) {
	var b strings.Builder
	b.WriteString(selectTaskColumns)
	b.WriteString("WHERE user_id = $1\n")
	args := []any{ownerID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		b.WriteString("  AND status = $" + strconv.Itoa(len(args)) + "\n")
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		b.WriteString("  AND priority = $" + strconv.Itoa(len(args)) + "\n")
	}
	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		n := strconv.Itoa(len(args))
		b.WriteString("  AND (title ILIKE $" + n + " OR description ILIKE $" + n + ")\n")
	}
	b.WriteString("ORDER BY position ASC, created_at ASC, id ASC\n")

	rows, err := s.pgPool.Query(ctx, b.String(), args...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", ownerID).
			Msg("failed to select tasks")
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	s.logger.Debug().
		Int("count", len(tasks)).
		Str("user_id", ownerID).
		Msg("selected tasks")
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	task, err := scanTask(s.pgPool.QueryRow(
		ctx,
		selectTaskColumns+"WHERE id = $1 AND user_id = $2",
		taskID,
		ownerID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrTaskNotFound
		}
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to select task")
		return nil, err
	}
	return task, nil
}

func (s *Store) InsertTask(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (id,
                   user_id,
                   title,
                   description,
                   due_date,
                   priority,
                   status,
                   category,
                   position,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.DueDate,
		string(task.Priority),
		string(task.Status),
		task.Category,
		task.Position,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return err
	}
	s.logger.Debug().
		Str("task_id", task.ID).
		Int("position", task.Position).
		Msg("inserted task")
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, ownerID, taskID string, patch models.TaskPatch) (*models.Task, error) {
	const updateTaskQuery = `
UPDATE tasks
SET title = COALESCE($1, title),
    description = COALESCE($2, description),
    due_date = CASE WHEN $10 THEN NULL ELSE COALESCE($3, due_date) END,
    priority = COALESCE($4, priority),
    status = COALESCE($5, status),
    category = COALESCE($6, category),
    updated_at = $7
WHERE id = $8 AND user_id = $9
RETURNING id, user_id, title, description, due_date, priority,
          status, category, position, created_at, updated_at
`
	task, err := scanTask(s.pgPool.QueryRow(
		ctx,
		updateTaskQuery,
		patch.Title,
		patch.Description,
		patch.DueDate,
		stringPtr(patch.Priority),
		stringPtr(patch.Status),
		patch.Category,
		time.Now(),
		taskID,
		ownerID,
		patch.ClearDueDate && patch.DueDate == nil,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrTaskNotFound
		}
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to update task")
		return nil, err
	}
	s.logger.Debug().
		Str("task_id", taskID).
		Msg("updated task")
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1 AND user_id = $2
`
	tag, err := s.pgPool.Exec(ctx, deleteTaskQuery, taskID, ownerID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrTaskNotFound
	}
	s.logger.Debug().
		Str("task_id", taskID).
		Msg("deleted task")
	return nil
}

func (s *Store) Reposition(ctx context.Context, ownerID string, entries []models.ReorderEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.pgPool.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const updatePositionQuery = `
UPDATE tasks
SET position = $1,
    updated_at = $2
WHERE id = $3 AND user_id = $4
`
	now := time.Now()
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(updatePositionQuery, e.Position, now, e.ID, ownerID)
	}

	results := tx.SendBatch(ctx, batch)
	updated := 0
	for range entries {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			s.logger.Error().
				Err(err).
				Str("user_id", ownerID).
				Msg("failed to update task position")
			return 0, err
		}
		updated += int(tag.RowsAffected())
	}
	if err = results.Close(); err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to close batch")
		return 0, err
	}

	err = tx.Commit(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return 0, err
	}
	s.logger.Debug().
		Str("user_id", ownerID).
		Int("requested", len(entries)).
		Int("updated", updated).
		Msg("repositioned tasks")
	return updated, nil
}

func (s *Store) InsertUser(ctx context.Context, user *models.User) error {
	const insertUserQuery = `
INSERT INTO users (id,
                   email,
                   password,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := s.pgPool.Exec(
		ctx,
		insertUserQuery,
		user.ID,
		user.Email,
		user.Password,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return storage.ErrDuplicateEmail
		}
		s.logger.Error().
			Err(err).
			Msg("failed to insert user")
		return err
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *Store) getUser(ctx context.Context, column, value string) (*models.User, error) {
	selectUserQuery := `
SELECT id,
       email,
       password,
       created_at,
       updated_at
FROM users
WHERE ` + column + ` = $1
`
	var user models.User
	err := s.pgPool.QueryRow(ctx, selectUserQuery, value).Scan(
		&user.ID,
		&user.Email,
		&user.Password,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		s.logger.Error().
			Err(err).
			Str(column, value).
			Msg("failed to select user")
		return nil, err
	}
	return &user, nil
}

func stringPtr[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
