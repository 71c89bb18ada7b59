package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/teamtasks-api/internal/redact"
)

// ErrUnknownJobType is returned when no factory is registered for a persisted job.
var ErrUnknownJobType = errors.New("unknown job type")

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size of the in-memory queue
	QueueSize int

	// StuckJobAge defines how long a job can stay in processing state
	// before it is considered stuck and requeued
	StuckJobAge time.Duration

	// PendingJobAge defines how long a saved job may wait outside the queue,
	// for example after a burst overflowed it, before the monitor requeues it
	PendingJobAge time.Duration

	// StuckJobCheckInterval defines how often to look for stuck and stranded jobs
	StuckJobCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:           2,
		QueueSize:             100,
		StuckJobAge:           30 * time.Minute,
		PendingJobAge:         time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// Runner persists, queues and executes background jobs.
type Runner struct {
	store     Store
	queue     *Queue
	pool      *WorkerPool
	config    RunnerConfig
	logger    *slog.Logger
	factories map[string]Factory

	mu         sync.Mutex
	started    bool
	inflight   map[uuid.UUID]struct{}
	settled    map[uuid.UUID]struct{}
	monitorWG  sync.WaitGroup
	stopMon    context.CancelFunc
	errHandler func(job Job, err error)
}

// NewRunner creates a Runner. Register factories for every persisted job type before Start.
func NewRunner(store Store, config RunnerConfig, logger *slog.Logger) *Runner {
	defaults := DefaultRunnerConfig()
	if config.StuckJobCheckInterval <= 0 {
		config.StuckJobCheckInterval = defaults.StuckJobCheckInterval
	}
	if config.PendingJobAge <= 0 {
		config.PendingJobAge = defaults.PendingJobAge
	}
	logger = logger.With("component", "job_runner")

	queue := NewQueue(config.QueueSize, logger)
	return &Runner{
		store:     store,
		queue:     queue,
		pool:      NewWorkerPool(queue, config.WorkerCount, logger),
		config:    config,
		logger:    logger,
		factories: make(map[string]Factory),
		inflight:  make(map[uuid.UUID]struct{}),
		settled:   make(map[uuid.UUID]struct{}),
		errHandler: func(job Job, err error) {
			logger.Error("job execution failed",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"error", redact.Error(err))
		},
	}
}

// Register installs the factory used to rehydrate persisted jobs of jobType.
func (r *Runner) Register(jobType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[jobType] = factory
}

// SetErrorHandler replaces the callback invoked when a job fails.
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.errHandler = handler
}

// Submit persists job and queues it for execution.
// If the queue is full the job stays pending in the store and the monitor
// queues it once it has waited PendingJobAge; Submit still succeeds.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	if err := r.store.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	if err := r.enqueue(job); err != nil {
		if errors.Is(err, ErrQueueFull) {
			r.logger.Warn("job queue full, job deferred",
				"job_id", job.ID(),
				"job_type", job.Type())
			return nil
		}
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID(), err)
	}
	return nil
}

// enqueue queues job unless it is already queued or running.
func (r *Runner) enqueue(job Job) error {
	r.mu.Lock()
	if _, ok := r.inflight[job.ID()]; ok {
		r.mu.Unlock()
		return nil
	}
	r.inflight[job.ID()] = struct{}{}
	r.mu.Unlock()

	if err := r.queue.Enqueue(job); err != nil {
		r.release(job.ID())
		return err
	}
	return nil
}

func (r *Runner) release(id uuid.UUID) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.settled[id] = struct{}{}
	r.mu.Unlock()
}

// isInflight reports whether the job is queued or running, or finished since
// the current sweep listed it.
func (r *Runner) isInflight(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, queued := r.inflight[id]
	_, settled := r.settled[id]
	return queued || settled
}

// beginSweep forgets previously settled jobs. Records listed after this call
// reflect every job settled before it.
func (r *Runner) beginSweep() {
	r.mu.Lock()
	r.settled = make(map[uuid.UUID]struct{})
	r.mu.Unlock()
}

// Start starts the workers, recovers unfinished jobs and starts the monitor.
// Workers run before recovery so a backlog larger than the queue drains.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("job runner already started")
	}
	r.started = true
	r.mu.Unlock()

	r.pool.Start(r.process)

	if err := r.Recover(ctx); err != nil {
		r.queue.Close()
		r.pool.Stop()
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	monCtx, cancel := context.WithCancel(context.Background())
	r.stopMon = cancel
	r.monitorWG.Add(1)
	go r.stuckJobMonitor(monCtx)

	return nil
}

// Stop shuts the runner down. Jobs still queued remain pending in the store.
func (r *Runner) Stop() {
	if r.stopMon != nil {
		r.stopMon()
	}
	r.monitorWG.Wait()
	r.queue.Close()
	r.pool.Stop()
}

// Recover requeues pending jobs and resets jobs left in processing state.
// Jobs that do not fit in the queue are left pending for the monitor.
func (r *Runner) Recover(ctx context.Context) error {
	r.beginSweep()
	pending, err := r.store.ListByStatus(ctx, StatusPending, 0)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	processing, err := r.store.ListByStatus(ctx, StatusProcessing, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range processing {
		r.requeue(ctx, rec, true)
	}
	for _, rec := range pending {
		r.requeue(ctx, rec, false)
	}

	return nil
}

// requeue rebuilds rec and puts it back on the queue, resetting its status first if asked.
// Jobs already queued or running in this process are skipped.
func (r *Runner) requeue(ctx context.Context, rec Record, reset bool) {
	if r.isInflight(rec.ID) {
		return
	}
	log := r.logger.With("job_id", rec.ID, "job_type", rec.Type)

	job, err := r.rehydrate(rec)
	if err != nil {
		log.Error("cannot rebuild job, marking failed", "error", err)
		if updateErr := r.store.UpdateStatus(ctx, rec.ID, StatusFailed, redact.Error(err)); updateErr != nil {
			log.Error("failed to mark job failed", "error", updateErr)
		}
		return
	}

	if reset {
		if err := r.store.UpdateStatus(ctx, rec.ID, StatusPending, "reset after recovery"); err != nil {
			log.Error("failed to reset job status", "error", err)
			return
		}
	}

	if err := r.enqueue(job); err != nil {
		if errors.Is(err, ErrQueueFull) {
			log.Debug("job queue full, leaving job pending")
			return
		}
		log.Error("failed to requeue job", "error", err)
		return
	}
	log.Info("requeued job")
}

func (r *Runner) rehydrate(rec Record) (Job, error) {
	r.mu.Lock()
	factory, ok := r.factories[rec.Type]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobType, rec.Type)
	}
	return factory(rec)
}

// process executes a single job and records the outcome.
func (r *Runner) process(ctx context.Context, job Job, workerID int) {
	defer r.release(job.ID())

	log := r.logger.With(
		"job_id", job.ID(),
		"job_type", job.Type(),
		"worker_id", workerID,
	)

	// Status writes must land even if shutdown cancels ctx mid-job.
	storeCtx := context.WithoutCancel(ctx)

	if err := r.store.UpdateStatus(storeCtx, job.ID(), StatusProcessing, ""); err != nil {
		log.Error("failed to update job status to processing", "error", err)
		return
	}

	log.Debug("processing job")

	if err := job.Execute(ctx); err != nil {
		if ctx.Err() != nil {
			// Shutdown interrupted the job; it stays in processing and is recovered on restart.
			log.Warn("job interrupted by shutdown", "error", err)
			return
		}
		if updateErr := r.store.UpdateStatus(storeCtx, job.ID(), StatusFailed, redact.Error(err)); updateErr != nil {
			log.Error("failed to update job status to failed", "error", updateErr)
		}
		r.errHandler(job, err)
		return
	}

	if err := r.store.UpdateStatus(storeCtx, job.ID(), StatusCompleted, ""); err != nil {
		log.Error("failed to update job status to completed", "error", err)
		return
	}
	log.Debug("job completed")
}

// stuckJobMonitor periodically requeues jobs stuck in processing state and
// pending jobs that never made it into the queue.
func (r *Runner) stuckJobMonitor(ctx context.Context) {
	defer r.monitorWG.Done()

	ticker := time.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.beginSweep()
			r.requeueStuck(ctx)
			r.requeueStranded(ctx)
		}
	}
}

func (r *Runner) requeueStuck(ctx context.Context) {
	stuck, err := r.store.ListByStatus(ctx, StatusProcessing, r.config.StuckJobAge)
	if err != nil {
		r.logger.Error("failed to check for stuck jobs", "error", err)
		return
	}
	if len(stuck) == 0 {
		return
	}

	r.logger.Info("found stuck jobs", "count", len(stuck))
	for _, rec := range stuck {
		r.requeue(ctx, rec, true)
	}
}

func (r *Runner) requeueStranded(ctx context.Context) {
	pending, err := r.store.ListByStatus(ctx, StatusPending, r.config.PendingJobAge)
	if err != nil {
		r.logger.Error("failed to check for pending jobs", "error", err)
		return
	}
	for _, rec := range pending {
		r.requeue(ctx, rec, false)
	}
}
