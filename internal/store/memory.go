package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It uses a map for storage and RWMutex for thread-safe concurrent access.
// This implementation is suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]Task // id -> Task
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]Task),
	}
}

// ListTasks retrieves all tasks, oldest first.
func (m *MemoryStore) ListTasks(ctx context.Context) ([]Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		result = append(result, task.Clone())
	}
	sortTasks(result)
	return result, nil
}

// GetTask retrieves a single task by its id.
func (m *MemoryStore) GetTask(ctx context.Context, id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, exists := m.tasks[id]
	if !exists {
		return nil, ErrNotFound
	}

	clone := task.Clone()
	return &clone, nil
}

// UpsertTask creates or updates a task in memory.
// CreatedAt is preserved across updates; UpdatedAt is always refreshed.
func (m *MemoryStore) UpsertTask(ctx context.Context, task Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.tasks[task.ID]; ok {
		task.CreatedAt = existing.CreatedAt
	} else if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	m.tasks[task.ID] = task.Clone()
	return nil
}

// DeleteTask removes a task from memory.
func (m *MemoryStore) DeleteTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: no error if task doesn't exist
	delete(m.tasks, id)
	return nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}

// sortTasks orders tasks by creation time, breaking ties by id.
func sortTasks(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
