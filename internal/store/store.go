package store

import (
	"context"
	"errors"
	"time"

	"github.com/TimurManjosov/jobwatch/internal/rules"
)

// ErrNotFound is returned when a task does not exist.
var ErrNotFound = errors.New("task not found")

// Store defines the interface for task persistence operations.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// ListTasks retrieves all tasks ordered by creation time, oldest first.
	// Returns an empty slice if no tasks are found.
	ListTasks(ctx context.Context) ([]Task, error)

	// GetTask retrieves a single task by its id.
	// Returns ErrNotFound if the task does not exist.
	GetTask(ctx context.Context, id string) (*Task, error)

	// UpsertTask creates or updates a task.
	// If a task with the same id exists, it will be replaced.
	UpsertTask(ctx context.Context, task Task) error

	// DeleteTask removes a task by id.
	// Returns no error if the task doesn't exist (idempotent).
	DeleteTask(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	// After Close is called, the store should not be used.
	Close() error
}

// Status is the lifecycle state of a scraping task.
type Status string

const (
	StatusReady      Status = "ready"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusStopped    Status = "stopped"
)

// Finished reports whether the task has reached a terminal state.
func (s Status) Finished() bool {
	return s == StatusDone || s == StatusStopped
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusReady, StatusProcessing, StatusDone, StatusStopped:
		return true
	}
	return false
}

// Task is a scraping task: a name, the delay between job ads, and the job
// conditions a posting must satisfy to be kept.
type Task struct {
	ID            string     `json:"id" yaml:"id"`
	TaskName      string     `json:"taskName" yaml:"taskName"`
	Delay         int        `json:"delay" yaml:"delay"` // milliseconds
	Status        Status     `json:"status" yaml:"status"`
	JobConditions rules.Tree `json:"jobConditions" yaml:"jobConditions"`
	CreatedAt     time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// Clone returns a copy whose rule tree shares nothing with t.
func (t Task) Clone() Task {
	t.JobConditions = t.JobConditions.Clone()
	return t
}
