// Package sqlite implements storage.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/adanyl0v/taskboard/internal/models"
	"github.com/adanyl0v/taskboard/internal/storage"
)

const memoryPath = ":memory:"

// Store implements storage.Store using SQLite.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens (or creates) a SQLite database at path and runs any pending
// schema migrations. Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a separate database, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	if path != memoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

type taskRow struct {
	ID          string       `db:"id"`
	UserID      string       `db:"user_id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	DueDate     sql.NullTime `db:"due_date"`
	Priority    string       `db:"priority"`
	Status      string       `db:"status"`
	Category    string       `db:"category"`
	Position    int          `db:"position"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

func (r taskRow) toModel() models.Task {
	task := models.Task{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    models.Priority(r.Priority),
		Status:      models.Status(r.Status),
		Category:    r.Category,
		Position:    r.Position,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.DueDate.Valid {
		due := r.DueDate.Time
		task.DueDate = &due
	}
	return task
}

const taskColumns = `id, user_id, title, description, due_date, priority,
	status, category, position, created_at, updated_at`

func (s *Store) CountTasks(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM tasks WHERE user_id = ?", ownerID)
	if err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return count, nil
}

func (s *Store) ListTasks(
	ctx context.Context,
	ownerID string,
	filter models.TaskFilter,
) ([]models.Task, error) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{ownerID}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Priority != "" {
		conditions = append(conditions, "priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.Query != "" {
		conditions = append(conditions, "(title LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(filter.Query) + "%"
		args = append(args, pattern, pattern)
	}

	query := "SELECT " + taskColumns + " FROM tasks WHERE " +
		strings.Join(conditions, " AND ") +
		" ORDER BY position ASC, created_at ASC, id ASC"

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	tasks := make([]models.Task, len(rows))
	for i, row := range rows {
		tasks[i] = row.toModel()
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	return getTask(ctx, s.db, ownerID, taskID)
}

func getTask(ctx context.Context, q sqlx.QueryerContext, ownerID, taskID string) (*models.Task, error) {
	var row taskRow
	err := sqlx.GetContext(ctx, q, &row,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?",
		taskID, ownerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTaskNotFound
		}
		return nil, fmt.Errorf("getting task %s: %w", taskID, err)
	}
	task := row.toModel()
	return &task, nil
}

func (s *Store) InsertTask(ctx context.Context, task *models.Task) error {
	var dueDate sql.NullTime
	if task.DueDate != nil {
		dueDate = sql.NullTime{Time: task.DueDate.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, user_id, title, description, due_date, priority,
			status, category, position, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Description, dueDate,
		string(task.Priority), string(task.Status), task.Category, task.Position,
		task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (s *Store) UpdateTask(
	ctx context.Context,
	ownerID, taskID string,
	patch models.TaskPatch,
) (*models.Task, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := getTask(ctx, tx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	patch.Apply(task)
	task.UpdatedAt = time.Now().UTC()

	var dueDate sql.NullTime
	if task.DueDate != nil {
		dueDate = sql.NullTime{Time: task.DueDate.UTC(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, priority = ?,
			status = ?, category = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		task.Title, task.Description, dueDate, string(task.Priority),
		string(task.Status), task.Category, task.UpdatedAt,
		task.ID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", taskID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing task update: %w", err)
	}
	return task, nil
}

func (s *Store) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ?",
		taskID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", taskID, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return storage.ErrTaskNotFound
	}
	return nil
}

func (s *Store) Reposition(
	ctx context.Context,
	ownerID string,
	entries []models.ReorderEntry,
) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		"UPDATE tasks SET position = ?, updated_at = ? WHERE id = ? AND user_id = ?")
	if err != nil {
		return 0, fmt.Errorf("preparing reposition statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	updated := 0
	for _, e := range entries {
		result, err := stmt.ExecContext(ctx, e.Position, now, e.ID, ownerID)
		if err != nil {
			return 0, fmt.Errorf("repositioning task %s: %w", e.ID, err)
		}
		rows, _ := result.RowsAffected()
		updated += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing reposition: %w", err)
	}
	return updated, nil
}

type userRow struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	Password  string    `db:"password"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r userRow) toModel() *models.User {
	return &models.User{
		ID:        r.ID,
		Email:     r.Email,
		Password:  r.Password,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (s *Store) InsertUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Password, user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
	)
	if err != nil {
		var sqliteErr *moderncsqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return storage.ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
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
	var row userRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, email, password, created_at, updated_at FROM users WHERE "+column+" = ?",
		value,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user by %s: %w", column, err)
	}
	return row.toModel(), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
