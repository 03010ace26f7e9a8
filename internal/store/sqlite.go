package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteSchema = `
CREATE TABLE IF NOT EXISTS job_tasks (
	id             TEXT PRIMARY KEY,
	task_name      TEXT NOT NULL,
	delay_ms       INTEGER NOT NULL,
	status         TEXT NOT NULL,
	job_conditions TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
)`

	// Fixed-width so that text ordering matches time ordering.
	sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

	sqliteSelectColumns = `id, task_name, delay_ms, status, job_conditions, created_at, updated_at`

	sqliteUpsert = `
INSERT INTO job_tasks (id, task_name, delay_ms, status, job_conditions, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	task_name      = excluded.task_name,
	delay_ms       = excluded.delay_ms,
	status         = excluded.status,
	job_conditions = excluded.job_conditions,
	updated_at     = excluded.updated_at`
)

// SQLiteStore is a single-file implementation of the Store interface.
// Timestamps are stored as fixed-width UTC text, job conditions as JSON text.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// ListTasks retrieves all tasks, oldest first.
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteSelectColumns+` FROM job_tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		task, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// GetTask retrieves a single task by its id.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteSelectColumns+` FROM job_tasks WHERE id = ?`, id)
	task, err := scanSQLiteTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// UpsertTask creates or updates a task. CreatedAt is kept on update.
func (s *SQLiteStore) UpsertTask(ctx context.Context, task Task) error {
	conditions, err := marshalConditions(task.JobConditions)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	createdAt := task.CreatedAt.UTC()
	if task.CreatedAt.IsZero() {
		createdAt = now
	}

	_, err = s.db.ExecContext(ctx, sqliteUpsert,
		task.ID, task.TaskName, task.Delay, string(task.Status), string(conditions),
		createdAt.Format(sqliteTimeFormat), now.Format(sqliteTimeFormat))
	return err
}

// DeleteTask removes a task by id.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM job_tasks WHERE id = ?`, id)
	return err
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteTask(row rowScanner) (Task, error) {
	var (
		task                 Task
		status, conditions   string
		createdAt, updatedAt string
	)
	if err := row.Scan(&task.ID, &task.TaskName, &task.Delay, &status, &conditions, &createdAt, &updatedAt); err != nil {
		return Task{}, err
	}
	task.Status = Status(status)

	tree, err := unmarshalConditions([]byte(conditions))
	if err != nil {
		return Task{}, fmt.Errorf("task %s: %w", task.ID, err)
	}
	task.JobConditions = tree

	if task.CreatedAt, err = time.Parse(sqliteTimeFormat, createdAt); err != nil {
		return Task{}, fmt.Errorf("task %s: created_at: %w", task.ID, err)
	}
	if task.UpdatedAt, err = time.Parse(sqliteTimeFormat, updatedAt); err != nil {
		return Task{}, fmt.Errorf("task %s: updated_at: %w", task.ID, err)
	}
	return task, nil
}
