// Package snapshot holds the current, immutable list of tasks served to
// read-only clients, keyed by a weak ETag.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/TimurManjosov/jobwatch/internal/store"
)

type Snapshot struct {
	ETag      string       `json:"etag"`
	Tasks     []store.Task `json:"tasks"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Find returns the task with id, or nil.
func (s *Snapshot) Find(id string) *store.Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

// Build creates a snapshot from tasks. The ETag is derived from the JSON
// encoding of the tasks, so equal content yields equal ETags.
func Build(tasks []store.Task) *Snapshot {
	cp := make([]store.Task, len(tasks))
	for i, t := range tasks {
		cp[i] = t.Clone()
	}

	blob, _ := json.Marshal(cp)
	etag := `W/"` + strconv.FormatUint(xxhash.Sum64(blob), 16) + `"`
	return &Snapshot{ETag: etag, Tasks: cp, UpdatedAt: time.Now().UTC()}
}

// Holder publishes snapshots to concurrent readers.
type Holder struct {
	current atomic.Pointer[Snapshot]
	notifier
}

// NewHolder returns a holder with an empty snapshot.
func NewHolder() *Holder {
	h := &Holder{notifier: newNotifier()}
	h.current.Store(Build(nil))
	return h
}

// Load returns the current snapshot. Callers must not modify it.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Update swaps in s and notifies subscribers when the ETag changed.
func (h *Holder) Update(s *Snapshot) {
	prev := h.current.Swap(s)
	if prev == nil || prev.ETag != s.ETag {
		h.publishUpdate(s.ETag)
	}
}

// Rebuild reloads all tasks from st and updates the snapshot.
func (h *Holder) Rebuild(ctx context.Context, st store.Store) error {
	tasks, err := st.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("rebuild snapshot: %w", err)
	}
	h.Update(Build(tasks))
	return nil
}
