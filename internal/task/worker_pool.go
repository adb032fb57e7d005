package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/pixelforge/internal/generation"
)

// Job is one unit of work for the WorkerPool.
//
// OnStart and OnFinish are called from the pool's dispatch loop, never
// concurrently with each other, and must not call back into the pool.
type Job struct {
	ID       uuid.UUID
	Run      func(ctx context.Context) (*generation.ImageResult, error)
	OnStart  func(slot int)
	OnFinish func(result *generation.ImageResult, err error)
}

// PoolStats is a snapshot of the pool's load.
type PoolStats struct {
	Active        int
	Waiting       int
	MaxConcurrent int
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount is the number of long-lived execution slots.
	// If zero or negative, defaults to 1
	WorkerCount int

	// QueueSize bounds the number of jobs waiting for a free slot.
	// If zero or negative, defaults to 100
	QueueSize int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 3,
		QueueSize:   100,
	}
}

type submitRequest struct {
	job   Job
	reply chan error
}

type slotResult struct {
	slot   int
	job    Job
	result *generation.ImageResult
	err    error
}

// WorkerPool runs jobs on a fixed set of long-lived slots. Jobs wait in FIFO
// order for a free slot. A single dispatch loop owns the slot table and the
// queue; the slots only execute.
type WorkerPool struct {
	workerCount int
	queueSize   int
	ctx         context.Context

	submitCh chan submitRequest
	doneCh   chan slotResult
	statsCh  chan chan PoolStats
	stopCh   chan struct{}
	loopDone chan struct{}
	slots    []chan Job
	wg       sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool

	logger *slog.Logger
}

// NewWorkerPool creates a new worker pool with the specified configuration.
// Jobs run with a context derived from ctx that is never cancelled by the pool.
func NewWorkerPool(ctx context.Context, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "worker_pool")

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", workerCount)
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultWorkerPoolConfig().QueueSize
	}

	return &WorkerPool{
		workerCount: workerCount,
		queueSize:   queueSize,
		ctx:         context.WithoutCancel(ctx),
		submitCh:    make(chan submitRequest),
		doneCh:      make(chan slotResult),
		statsCh:     make(chan chan PoolStats),
		stopCh:      make(chan struct{}),
		loopDone:    make(chan struct{}),
		logger:      logger,
	}
}

// Start launches the slots and the dispatch loop. Calling it again is a no-op.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	p.slots = make([]chan Job, p.workerCount)
	for i := range p.slots {
		p.slots[i] = make(chan Job, 1)
		p.wg.Add(1)
		go p.slot(i, p.slots[i])
	}
	go p.loop()

	p.logger.Info("worker pool started", "worker_count", p.workerCount, "queue_size", p.queueSize)
}

// Submit enqueues a job. It fails with ErrQueueFull when queueSize jobs are
// already waiting and with ErrQueueClosed when the pool is not running.
func (p *WorkerPool) Submit(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s has no run function", job.ID)
	}
	if !p.running() {
		return ErrQueueClosed
	}

	reply := make(chan error, 1)
	select {
	case p.submitCh <- submitRequest{job: job, reply: reply}:
		return <-reply
	case <-p.loopDone:
		return ErrQueueClosed
	}
}

// Stats returns the current load of the pool.
func (p *WorkerPool) Stats() PoolStats {
	if p.running() {
		reply := make(chan PoolStats, 1)
		select {
		case p.statsCh <- reply:
			return <-reply
		case <-p.loopDone:
		}
	}
	return PoolStats{MaxConcurrent: p.workerCount}
}

// Stop lets running jobs finish, fails every queued job with ErrQueueClosed
// and waits for all slots to exit.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	if !started {
		return
	}
	close(p.stopCh)
	<-p.loopDone
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && !p.stopped
}

// loop is the only goroutine that touches the queue and the slot table.
func (p *WorkerPool) loop() {
	defer close(p.loopDone)

	var (
		queue    []Job
		busy     = make([]bool, p.workerCount)
		active   int
		stopping bool
		stopCh   = p.stopCh
	)

	dispatch := func() {
		for len(queue) > 0 && active < p.workerCount {
			slot := 0
			for busy[slot] {
				slot++
			}
			job := queue[0]
			queue[0] = Job{}
			queue = queue[1:]

			busy[slot] = true
			active++
			if job.OnStart != nil {
				job.OnStart(slot)
			}
			p.slots[slot] <- job
		}
	}

	shutdown := func() {
		for _, ch := range p.slots {
			close(ch)
		}
	}

	for {
		select {
		case req := <-p.submitCh:
			switch {
			case stopping:
				req.reply <- ErrQueueClosed
			case len(queue) >= p.queueSize:
				req.reply <- fmt.Errorf("%w: %d jobs waiting", ErrQueueFull, len(queue))
			default:
				queue = append(queue, req.job)
				req.reply <- nil
				p.logger.Debug("job enqueued", "task_id", req.job.ID, "queue_len", len(queue))
				dispatch()
			}

		case res := <-p.doneCh:
			busy[res.slot] = false
			active--
			if res.job.OnFinish != nil {
				res.job.OnFinish(res.result, res.err)
			}
			if stopping {
				if active == 0 {
					shutdown()
					return
				}
				continue
			}
			dispatch()

		case reply := <-p.statsCh:
			reply <- PoolStats{Active: active, Waiting: len(queue), MaxConcurrent: p.workerCount}

		case <-stopCh:
			stopping = true
			stopCh = nil
			for _, job := range queue {
				if job.OnFinish != nil {
					job.OnFinish(nil, ErrQueueClosed)
				}
			}
			if len(queue) > 0 {
				p.logger.Warn("failing queued jobs on shutdown", "count", len(queue))
			}
			queue = nil
			if active == 0 {
				shutdown()
				return
			}
		}
	}
}

// slot executes the jobs handed to it until its channel is closed.
func (p *WorkerPool) slot(id int, jobs <-chan Job) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)
	for job := range jobs {
		result, err := p.execute(id, job)
		p.doneCh <- slotResult{slot: id, job: job, result: result, err: err}
	}
	p.logger.Debug("stopping worker", "worker_id", id)
}

// execute runs one job, turning a panic into that job's error.
func (p *WorkerPool) execute(slot int, job Job) (result *generation.ImageResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "task_id", job.ID, "worker_id", slot, "panic", r)
			result, err = nil, fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(p.ctx)
}
