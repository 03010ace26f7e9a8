package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgSchema = `
CREATE TABLE IF NOT EXISTS job_tasks (
	id             TEXT PRIMARY KEY,
	task_name      TEXT NOT NULL,
	delay_ms       INTEGER NOT NULL,
	status         TEXT NOT NULL,
	job_conditions JSONB NOT NULL DEFAULT '{"groups":[]}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	pgSelectColumns = `id, task_name, delay_ms, status, job_conditions, created_at, updated_at`

	pgUpsert = `
INSERT INTO job_tasks (id, task_name, delay_ms, status, job_conditions, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()), now())
ON CONFLICT (id) DO UPDATE SET
	task_name      = EXCLUDED.task_name,
	delay_ms       = EXCLUDED.delay_ms,
	status         = EXCLUDED.status,
	job_conditions = EXCLUDED.job_conditions,
	updated_at     = now()`
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
// Job conditions are stored as JSONB in the persisted tree shape.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tasks table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ListTasks retrieves all tasks from the database, oldest first.
func (p *PostgresStore) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+pgSelectColumns+` FROM job_tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// GetTask retrieves a single task by its id from the database.
func (p *PostgresStore) GetTask(ctx context.Context, id string) (*Task, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgSelectColumns+` FROM job_tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// UpsertTask creates or updates a task in the database.
func (p *PostgresStore) UpsertTask(ctx context.Context, task Task) error {
	conditions, err := marshalConditions(task.JobConditions)
	if err != nil {
		return err
	}

	var createdAt any
	if !task.CreatedAt.IsZero() {
		createdAt = task.CreatedAt
	}

	_, err = p.pool.Exec(ctx, pgUpsert,
		task.ID, task.TaskName, task.Delay, string(task.Status), conditions, createdAt)
	return err
}

// DeleteTask removes a task from the database.
func (p *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM job_tasks WHERE id = $1`, id)
	return err
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// rowScanner is satisfied by pgx.Row, pgx.Rows and *sql.Row(s).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		task       Task
		status     string
		conditions []byte
	)
	if err := row.Scan(&task.ID, &task.TaskName, &task.Delay, &status, &conditions, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return Task{}, err
	}
	task.Status = Status(status)

	tree, err := unmarshalConditions(conditions)
	if err != nil {
		return Task{}, fmt.Errorf("task %s: %w", task.ID, err)
	}
	task.JobConditions = tree
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return task, nil
}
