// Package tasks implements the scraping task lifecycle on top of a Store:
// validated create/update, status transitions and rule tree editing.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/TimurManjosov/jobwatch/internal/store"
	"github.com/TimurManjosov/jobwatch/internal/validation"
)

var (
	// ErrNotFound is returned when a task does not exist.
	ErrNotFound = store.ErrNotFound
	// ErrTaskBusy is returned when starting a task while another one is processing.
	ErrTaskBusy = errors.New("another task is already processing")
	// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrTaskFinished is returned when editing a task that is done or stopped.
	ErrTaskFinished = errors.New("task is finished")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries field-level validation messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Input is the editable part of a task.
type Input struct {
	TaskName string
	Delay    int
	// JobConditions is optional on create (a fresh tree is used) and on
	// update (the stored tree is kept).
	JobConditions *rules.Tree
}

// Service coordinates task mutations. Mutations are serialized so that the
// single-processing-task rule holds across concurrent requests.
type Service struct {
	store  store.Store
	logger zerolog.Logger

	mu        sync.Mutex
	listeners []Listener

	newID func() string
}

// NewService creates a task service over st.
func NewService(st store.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.With().Str("component", "tasks").Logger(),
		newID:  uuid.NewString,
	}
}

// List returns all tasks, oldest first.
func (s *Service) List(ctx context.Context) ([]store.Task, error) {
	return s.store.ListTasks(ctx)
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id string) (*store.Task, error) {
	return s.store.GetTask(ctx, id)
}

// Create validates in and stores a new task in the ready state.
func (s *Service) Create(ctx context.Context, in Input) (*store.Task, error) {
	tree := rules.NewTree()
	if in.JobConditions != nil {
		hydrated, err := rules.Hydrate(rules.Normalize(*in.JobConditions).Groups)
		if err != nil {
			return nil, conditionsError(*in.JobConditions)
		}
		tree = hydrated
	}
	if err := validate(in.TaskName, in.Delay, &tree); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := store.Task{
		ID:            s.newID(),
		TaskName:      strings.TrimSpace(in.TaskName),
		Delay:         in.Delay,
		Status:        store.StatusReady,
		JobConditions: tree,
	}
	saved, err := s.save(ctx, task)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("task_id", saved.ID).Str("task_name", saved.TaskName).Msg("task created")
	s.publish(ctx, Event{Type: EventCreated, Task: *saved})
	return saved, nil
}

// Update replaces name, delay and (optionally) the conditions of a task.
// Finished tasks cannot be edited.
func (s *Service) Update(ctx context.Context, id string, in Input) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	tree := current.JobConditions
	if in.JobConditions != nil {
		hydrated, err := rules.Hydrate(rules.Normalize(*in.JobConditions).Groups)
		if err != nil {
			return nil, conditionsError(*in.JobConditions)
		}
		tree = hydrated
	}
	if err := validate(in.TaskName, in.Delay, &tree); err != nil {
		return nil, err
	}

	before := current.Clone()
	next := current.Clone()
	next.TaskName = strings.TrimSpace(in.TaskName)
	next.Delay = in.Delay
	next.JobConditions = tree

	saved, err := s.save(ctx, next)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("task_id", id).Msg("task updated")
	s.publish(ctx, Event{Type: EventUpdated, Task: *saved, Before: &before})
	return saved, nil
}

// Delete removes a task. Deleting an unknown task is not an error.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.GetTask(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}

	s.logger.Info().Str("task_id", id).Msg("task deleted")
	s.publish(ctx, Event{Type: EventDeleted, Task: *current, Before: current})
	return nil
}

// Duplicate copies a task under a new id. The copy starts in the ready
// state and owns an independent rule tree.
func (s *Service) Duplicate(ctx context.Context, id string) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	cp := src.Clone()
	cp.ID = s.newID()
	cp.Status = store.StatusReady
	cp.CreatedAt = time.Time{}
	cp.UpdatedAt = time.Time{}

	saved, err := s.save(ctx, cp)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("task_id", saved.ID).Str("source_id", id).Msg("task duplicated")
	s.publish(ctx, Event{Type: EventCreated, Task: *saved})
	return saved, nil
}

// Start moves a ready task to processing. Only one task may be processing
// at a time.
func (s *Service) Start(ctx context.Context, id string) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != store.StatusReady {
		return nil, transitionError(current.Status, store.StatusProcessing)
	}

	all, err := s.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if t.ID != id && t.Status == store.StatusProcessing {
			return nil, fmt.Errorf("%w: %s", ErrTaskBusy, t.ID)
		}
	}

	return s.transition(ctx, current, store.StatusProcessing)
}

// Stop moves a processing task to stopped.
func (s *Service) Stop(ctx context.Context, id string) (*store.Task, error) {
	return s.finish(ctx, id, store.StatusStopped)
}

// Complete moves a processing task to done.
func (s *Service) Complete(ctx context.Context, id string) (*store.Task, error) {
	return s.finish(ctx, id, store.StatusDone)
}

// EditConditions loads the task's rule tree, applies fn and stores the
// validated result. Errors from fn are returned unchanged, except
// rules.ErrInvalidTree which becomes a *ValidationError.
func (s *Service) EditConditions(ctx context.Context, id string, fn func(rules.Tree) (rules.Tree, error)) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.editable(ctx, id)
	if err != nil {
		return nil, err
	}

	tree, err := fn(current.JobConditions.Clone())
	if errors.Is(err, rules.ErrInvalidTree) {
		return nil, &ValidationError{Fields: map[string]string{"jobConditions": validation.ConditionMessage(err)}}
	}
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateTree(tree); err != nil {
		return nil, conditionsError(tree)
	}

	before := current.Clone()
	next := current.Clone()
	next.JobConditions = tree

	saved, err := s.save(ctx, next)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("task_id", id).Int("groups", len(tree.Groups)).Msg("job conditions edited")
	s.publish(ctx, Event{Type: EventUpdated, Task: *saved, Before: &before})
	return saved, nil
}

func (s *Service) finish(ctx context.Context, id string, to store.Status) (*store.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != store.StatusProcessing {
		return nil, transitionError(current.Status, to)
	}
	return s.transition(ctx, current, to)
}

// transition must be called with s.mu held.
func (s *Service) transition(ctx context.Context, current *store.Task, to store.Status) (*store.Task, error) {
	before := current.Clone()
	next := current.Clone()
	next.Status = to

	saved, err := s.save(ctx, next)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("task_id", saved.ID).
		Str("from", string(before.Status)).
		Str("to", string(to)).
		Msg("task status changed")
	s.publish(ctx, Event{Type: EventStatusChanged, Task: *saved, Before: &before})
	return saved, nil
}

// editable loads a task and rejects finished ones.
func (s *Service) editable(ctx context.Context, id string) (*store.Task, error) {
	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Finished() {
		return nil, fmt.Errorf("%w: %s is %s", ErrTaskFinished, id, current.Status)
	}
	return current, nil
}

// save upserts and reads the task back so timestamps reflect the store.
func (s *Service) save(ctx context.Context, task store.Task) (*store.Task, error) {
	if err := s.store.UpsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return s.store.GetTask(ctx, task.ID)
}

func validate(name string, delay int, tree *rules.Tree) error {
	result := validation.ValidateTask(validation.TaskValidationParams{
		TaskName:      name,
		Delay:         delay,
		JobConditions: tree,
	})
	if !result.Valid {
		return &ValidationError{Fields: result.Errors}
	}
	return nil
}

// conditionsError reports a tree that failed rules.ValidateTree.
func conditionsError(tree rules.Tree) error {
	return &ValidationError{Fields: validation.ValidateJobConditions(tree).Errors}
}

func transitionError(from, to store.Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
