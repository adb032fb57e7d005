package task

import "errors"

var (
	// ErrTaskNotFound is returned for ids that were never issued or were rejected at submission.
	ErrTaskNotFound = errors.New("task not found")

	// ErrResultNotReady is returned when a task has no result yet or has failed.
	ErrResultNotReady = errors.New("task result not ready")

	// ErrQueueClosed is returned once the pool is stopping or stopped.
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrQueueFull is returned when the pending queue is at capacity.
	ErrQueueFull = errors.New("task queue is full")

	// ErrInvalidTransition is returned for status changes the state machine forbids.
	ErrInvalidTransition = errors.New("invalid task status transition")
)
