package job

import (
	"context"
	"log/slog"
	"sync"
)

// Handler processes one job on a worker goroutine.
type Handler func(ctx context.Context, job Job, workerID int)

// WorkerPool runs a fixed number of workers consuming a Queue.
type WorkerPool struct {
	queue       *Queue
	workerCount int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger
}

// NewWorkerPool creates a pool of workerCount workers. A non-positive count means one worker.
func NewWorkerPool(queue *Queue, workerCount int, logger *slog.Logger) *WorkerPool {
	if workerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1)
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		queue:       queue,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches the workers. Each received job is passed to handle.
func (p *WorkerPool) Start(handle Handler) {
	p.logger.Info("starting worker pool", "worker_count", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, handle)
	}
}

// Stop cancels in-flight work and waits for all workers to exit.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) worker(id int, handle Handler) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-p.queue.Jobs():
			if !ok {
				p.logger.Debug("job queue closed, stopping worker", "worker_id", id)
				return
			}
			handle(p.ctx, job, id)
		}
	}
}
