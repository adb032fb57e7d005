package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/pixelforge/internal/app"
	"github.com/phrazzld/pixelforge/internal/config"
	"github.com/phrazzld/pixelforge/internal/service/auth"
	"github.com/phrazzld/pixelforge/internal/task"
)

// application holds the shared dependencies of the server and releases
// them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	components    *app.Components
	jwtService    auth.JWTService
	authenticator *auth.Authenticator

	pool  *task.WorkerPool
	tasks *task.Service

	// params is nil when no params file is configured.
	params *config.ParamsStore
}

// newApplication creates the application with all dependencies initialized.
// The worker pool is started; cleanup stops it.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	a := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	a.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	a.authenticator, err = auth.NewAuthenticator(cfg.Auth, auth.NewBcryptVerifier())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize authenticator: %w", err)
	}
	logger.Info("authentication initialized",
		"username", cfg.Auth.Username,
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	transport, err := app.NewTransport(ctx, cfg.LLM, logger.With("component", "model_transport"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model transport: %w", err)
	}

	a.components, err = app.Build(transport, cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Server.ParamsFile != "" {
		if a.params, err = config.NewParamsStore(cfg.Server.ParamsFile); err != nil {
			return nil, fmt.Errorf("failed to initialize params store: %w", err)
		}
	}

	if err := a.setupTasks(ctx); err != nil {
		return nil, err
	}

	logger.Info("application initialized successfully")
	return a, nil
}

// setupTasks creates and starts the job-level worker pool.
func (a *application) setupTasks(ctx context.Context) error {
	a.pool = task.NewWorkerPool(ctx, task.WorkerPoolConfig{
		WorkerCount: a.config.Task.MaxConcurrentJobs,
		QueueSize:   a.config.Task.QueueSize,
	}, a.logger)

	executor := &task.GenerationExecutor{
		Generator: a.components.Engine,
		OutputDir: a.config.Server.OutputDir,
	}
	tasks, err := task.NewService(task.NewStore(), a.pool, executor, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create task service: %w", err)
	}
	a.tasks = tasks
	a.pool.Start()
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down.
func (a *application) Run(ctx context.Context) error {
	if err := a.startHTTPServer(ctx, a.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// tokenLifetime is the configured JWT lifetime.
func (a *application) tokenLifetime() time.Duration {
	return time.Duration(a.config.Auth.TokenLifetimeMinutes) * time.Minute
}

// cleanup stops the worker pool. Running jobs finish; queued jobs fail.
func (a *application) cleanup() {
	if a.pool != nil {
		a.pool.Stop()
	}
}
