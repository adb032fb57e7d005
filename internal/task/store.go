package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pixelforge/internal/generation"
)

// Store is the in-memory task registry. Every mutation is scoped to one task.
type Store struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*Task
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{tasks: make(map[uuid.UUID]*Task)}
}

// Create registers a new pending task.
func (s *Store) Create(id uuid.UUID, opts generation.Options, at time.Time) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; exists {
		return Task{}, fmt.Errorf("%w: task %s already exists", ErrInvalidTransition, id)
	}
	t := &Task{
		ID:        id,
		Options:   opts,
		Status:    StatusPending,
		CreatedAt: at,
	}
	s.tasks[id] = t
	return t.clone(), nil
}

// Get returns a snapshot of the task.
func (s *Store) Get(id uuid.UUID) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t.clone(), nil
}

// Remove forgets a task that was never accepted for execution.
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
}

// MarkProcessing moves a pending task to processing.
func (s *Store) MarkProcessing(id uuid.UUID, at time.Time) error {
	return s.update(id, func(t *Task) error {
		if t.Status != StatusPending {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusProcessing)
		}
		t.Status = StatusProcessing
		t.StartedAt = &at
		return nil
	})
}

// Complete records the result of a task.
func (s *Store) Complete(id uuid.UUID, result *generation.ImageResult, at time.Time) error {
	return s.update(id, func(t *Task) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusCompleted)
		}
		t.Status = StatusCompleted
		t.Result = result
		t.CompletedAt = &at
		return nil
	})
}

// Fail records the failure message of a task.
func (s *Store) Fail(id uuid.UUID, message string, at time.Time) error {
	return s.update(id, func(t *Task) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusFailed)
		}
		t.Status = StatusFailed
		t.Error = message
		t.CompletedAt = &at
		return nil
	})
}

func (s *Store) update(id uuid.UUID, fn func(*Task) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return fn(t)
}
