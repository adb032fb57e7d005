package task

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pixelforge/internal/generation"
)

// Status represents the current state of a task
type Status string

// Possible task status values
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is one generation request and its outcome.
type Task struct {
	ID          uuid.UUID
	Options     generation.Options
	Status      Status
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	// Error is the failure message of a failed task.
	Error  string
	Result *generation.ImageResult
}

// clone returns a copy that shares no mutable state with t.
func (t *Task) clone() Task {
	c := *t
	if t.StartedAt != nil {
		at := *t.StartedAt
		c.StartedAt = &at
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	return c
}
