package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNewStore_Memory(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, "memory", "")
	if err != nil {
		t.Fatalf("NewStore('memory') failed: %v", err)
	}
	if store == nil {
		t.Fatal("Expected non-nil store")
	}

	// Verify it's a memory store by checking it can store and retrieve
	if err := store.UpsertTask(ctx, newTestTask("t1", "Go jobs")); err != nil {
		t.Fatalf("UpsertTask failed: %v", err)
	}

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("Expected 1 task, got %d", len(tasks))
	}

	store.Close()
}

func TestNewStore_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")

	store, err := NewStore(ctx, "sqlite", path)
	if err != nil {
		t.Fatalf("NewStore('sqlite') failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*SQLiteStore); !ok {
		t.Errorf("Expected *SQLiteStore, got %T", store)
	}
}

func TestNewStore_UnsupportedType(t *testing.T) {
	ctx := context.Background()
	_, err := NewStore(ctx, "invalid-type", "")
	if err == nil {
		t.Fatal("Expected error for unsupported store type")
	}
	expectedMsg := "unsupported store type: invalid-type"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
}

func TestNewStore_PostgresWithInvalidDSN(t *testing.T) {
	ctx := context.Background()
	// Invalid DSN should fail while parsing the pool config
	_, err := NewStore(ctx, "postgres", "invalid-dsn")
	if err == nil {
		t.Fatal("Expected error for invalid DSN")
	}
}

func TestNewStore_CaseSensitivity(t *testing.T) {
	ctx := context.Background()

	// Store type should be case-sensitive (lowercase expected)
	_, err := NewStore(ctx, "Memory", "")
	if err == nil {
		t.Error("Expected error for 'Memory' (capital M)")
	}

	_, err = NewStore(ctx, "MEMORY", "")
	if err == nil {
		t.Error("Expected error for 'MEMORY' (all caps)")
	}

	// Correct case should work
	store, err := NewStore(ctx, "memory", "")
	if err != nil {
		t.Fatalf("NewStore('memory') should work: %v", err)
	}
	store.Close()
}
