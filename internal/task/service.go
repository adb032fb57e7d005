package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pixelforge/internal/generation"
	"github.com/phrazzld/pixelforge/internal/platform/logger"
)

// Executor runs the generation behind one task.
type Executor interface {
	Execute(ctx context.Context, id uuid.UUID, opts generation.Options) (*generation.ImageResult, error)
}

// ImageGenerator is the engine operation used by GenerationExecutor.
type ImageGenerator interface {
	GenerateCompleteImage(ctx context.Context, opts generation.Options, outputDir, name string) (*generation.ImageResult, error)
}

// GenerationExecutor writes each task's artifacts to outputDir, named after the task id.
type GenerationExecutor struct {
	Generator ImageGenerator
	OutputDir string
}

// Execute implements Executor.
func (e *GenerationExecutor) Execute(ctx context.Context, id uuid.UUID, opts generation.Options) (*generation.ImageResult, error) {
	return e.Generator.GenerateCompleteImage(ctx, opts, e.OutputDir, id.String())
}

// Stats summarizes the job-level load.
type Stats struct {
	Active        int `json:"active"`
	Waiting       int `json:"waiting"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Service creates tasks, dispatches them to the pool and answers queries.
type Service struct {
	store    *Store
	pool     *WorkerPool
	executor Executor
	newID    func() (uuid.UUID, error)
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a Service. The pool must be started by the caller.
func NewService(store *Store, pool *WorkerPool, executor Executor, log *slog.Logger) (*Service, error) {
	if store == nil || pool == nil || executor == nil {
		return nil, fmt.Errorf("%w: store, pool and executor are required", generation.ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		pool:     pool,
		executor: executor,
		newID:    uuid.NewV7,
		now:      time.Now,
		logger:   log.With("component", "task_service"),
	}, nil
}

// Create validates the options, registers a pending task and queues it.
// A task rejected by the pool is forgotten and its id is not returned.
func (s *Service) Create(ctx context.Context, opts generation.Options) (uuid.UUID, error) {
	if err := opts.Validate(); err != nil {
		return uuid.Nil, err
	}

	id, err := s.newID()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generating task id: %w", err)
	}
	if _, err := s.store.Create(id, opts, s.now()); err != nil {
		return uuid.Nil, err
	}

	taskLogger := s.logger.With("task_id", id)
	job := Job{
		ID: id,
		Run: func(ctx context.Context) (*generation.ImageResult, error) {
			return s.executor.Execute(logger.WithLogger(ctx, taskLogger), id, opts)
		},
		OnStart: func(slot int) {
			if err := s.store.MarkProcessing(id, s.now()); err != nil {
				taskLogger.Error("failed to mark task processing", "error", err)
				return
			}
			taskLogger.Info("task started", "worker_id", slot)
		},
		OnFinish: func(result *generation.ImageResult, err error) {
			s.finish(taskLogger, id, result, err)
		},
	}

	if err := s.pool.Submit(job); err != nil {
		s.store.Remove(id)
		s.logger.WarnContext(ctx, "task rejected", "error", err)
		return uuid.Nil, err
	}

	taskLogger.InfoContext(ctx, "task created",
		"type", opts.Type,
		"composite", opts.Composite != nil && *opts.Composite)
	return id, nil
}

func (s *Service) finish(log *slog.Logger, id uuid.UUID, result *generation.ImageResult, err error) {
	now := s.now()
	if err != nil {
		log.Error("task failed", "error", err)
		if updateErr := s.store.Fail(id, err.Error(), now); updateErr != nil {
			log.Error("failed to update task status to failed", "error", updateErr)
		}
		return
	}
	if result == nil {
		if updateErr := s.store.Fail(id, "generation produced no result", now); updateErr != nil {
			log.Error("failed to update task status to failed", "error", updateErr)
		}
		return
	}

	log.Info("task completed", "svg_path", result.SVGPath, "raster_path", result.RasterPath)
	if updateErr := s.store.Complete(id, result, now); updateErr != nil {
		log.Error("failed to update task status to completed", "error", updateErr)
	}
}

// Get returns a snapshot of the task.
func (s *Service) Get(_ context.Context, id uuid.UUID) (Task, error) {
	return s.store.Get(id)
}

// Result returns the artifacts of a completed task.
func (s *Service) Result(_ context.Context, id uuid.UUID) (*generation.ImageResult, error) {
	t, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	switch t.Status {
	case StatusCompleted:
		return t.Result, nil
	case StatusFailed:
		return nil, fmt.Errorf("%w: task failed: %s", ErrResultNotReady, t.Error)
	default:
		return nil, fmt.Errorf("%w: task is %s", ErrResultNotReady, t.Status)
	}
}

// Stats returns the current job-level load.
func (s *Service) Stats() Stats {
	ps := s.pool.Stats()
	return Stats{Active: ps.Active, Waiting: ps.Waiting, MaxConcurrent: ps.MaxConcurrent}
}

// IsRejection reports whether err means the pool did not accept a task.
func IsRejection(err error) bool {
	return errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed)
}
