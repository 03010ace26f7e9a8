package snapshot

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/TimurManjosov/jobwatch/internal/store"
)

func testTask(id, name string) store.Task {
	return store.Task{
		ID:            id,
		TaskName:      name,
		Delay:         2000,
		Status:        store.StatusReady,
		JobConditions: rules.Tree{Groups: []rules.ConditionGroup{{ID: id + "-g", SubConditions: []rules.SubCondition{}}}},
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBuild_Empty(t *testing.T) {
	snap := Build(nil)

	if snap == nil {
		t.Fatal("Build returned nil")
	}
	if len(snap.Tasks) != 0 {
		t.Errorf("Expected 0 tasks, got %d", len(snap.Tasks))
	}
	if snap.ETag == "" {
		t.Error("Expected non-empty ETag")
	}
}

func TestBuild_CopiesTasks(t *testing.T) {
	tasks := []store.Task{testTask("a", "A")}
	snap := Build(tasks)

	tasks[0].TaskName = "changed"
	tasks[0].JobConditions.Groups[0].ID = "changed"

	if snap.Tasks[0].TaskName != "A" || snap.Tasks[0].JobConditions.Groups[0].ID != "a-g" {
		t.Errorf("snapshot shares memory with input: %+v", snap.Tasks[0])
	}
}

func TestBuild_ETags(t *testing.T) {
	a := Build([]store.Task{testTask("a", "A")})
	b := Build([]store.Task{testTask("a", "A")})
	if a.ETag != b.ETag {
		t.Errorf("Expected deterministic ETags, got %s and %s", a.ETag, b.ETag)
	}

	changed := testTask("a", "A")
	changed.Status = store.StatusProcessing
	c := Build([]store.Task{changed})
	if a.ETag == c.ETag {
		t.Error("Expected different ETags for different content")
	}
}

func TestETagFormat(t *testing.T) {
	snap := Build([]store.Task{testTask("a", "A")})

	if len(snap.ETag) < 4 || snap.ETag[:3] != `W/"` {
		t.Errorf("Expected ETag to start with 'W/\"', got %s", snap.ETag)
	}
	if snap.ETag[len(snap.ETag)-1] != '"' {
		t.Errorf("Expected ETag to end with '\"', got %s", snap.ETag)
	}
}

func TestFind(t *testing.T) {
	snap := Build([]store.Task{testTask("a", "A"), testTask("b", "B")})

	if got := snap.Find("b"); got == nil || got.TaskName != "B" {
		t.Errorf("Find(b) = %+v", got)
	}
	if got := snap.Find("missing"); got != nil {
		t.Errorf("Find(missing) = %+v, want nil", got)
	}
}

func TestLoadAndUpdate(t *testing.T) {
	h := NewHolder()

	initial := h.Load()
	if initial == nil {
		t.Fatal("Load returned nil")
	}
	if len(initial.Tasks) != 0 {
		t.Errorf("Expected empty initial snapshot, got %d tasks", len(initial.Tasks))
	}

	next := Build([]store.Task{testTask("a", "A")})
	h.Update(next)

	loaded := h.Load()
	if len(loaded.Tasks) != 1 {
		t.Errorf("Expected 1 task after update, got %d", len(loaded.Tasks))
	}
	if loaded.ETag != next.ETag {
		t.Errorf("Expected ETag %s, got %s", next.ETag, loaded.ETag)
	}
}

func TestUpdate_NotifiesOnlyOnChange(t *testing.T) {
	h := NewHolder()
	updates, unsub := h.Subscribe()
	defer unsub()

	snap := Build([]store.Task{testTask("a", "A")})
	h.Update(snap)

	select {
	case etag := <-updates:
		if etag != snap.ETag {
			t.Errorf("Expected ETag %s, got %s", snap.ETag, etag)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for update")
	}

	// Same content, same ETag: no notification
	h.Update(Build([]store.Task{testTask("a", "A")}))
	select {
	case etag := <-updates:
		t.Errorf("Unexpected update received: %s", etag)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	if err := st.UpsertTask(ctx, testTask("a", "A")); err != nil {
		t.Fatalf("UpsertTask failed: %v", err)
	}

	h := NewHolder()
	if err := h.Rebuild(ctx, st); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if got := h.Load().Find("a"); got == nil {
		t.Error("rebuilt snapshot is missing task a")
	}
}

func TestConcurrentAccess(t *testing.T) {
	h := NewHolder()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if h.Load() == nil {
				t.Error("Load returned nil")
			}
		}()
		go func(n int) {
			defer wg.Done()
			task := testTask("a", "A")
			task.Delay = 1000 + n
			h.Update(Build([]store.Task{task}))
		}(i)
	}

	wg.Wait()
	if h.Load() == nil {
		t.Error("Final Load returned nil")
	}
}

func TestSnapshotMarshaling(t *testing.T) {
	snap := Build([]store.Task{testTask("a", "A")})

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Failed to marshal snapshot: %v", err)
	}

	var decoded Snapshot
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal snapshot: %v", err)
	}
	if decoded.ETag != snap.ETag || len(decoded.Tasks) != 1 {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}
