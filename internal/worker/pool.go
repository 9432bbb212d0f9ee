package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Priya8975/event-console/internal/engine"
)

// JobProcessor applies one queued Stripe event.
type JobProcessor interface {
	Process(ctx context.Context, job engine.WebhookJob)
}

// Pool manages a fixed number of worker goroutines that process webhook jobs.
type Pool struct {
	numWorkers int
	jobs       chan engine.WebhookJob
	processor  JobProcessor
	logger     *slog.Logger
	wg         sync.WaitGroup
}

// NewPool creates a worker pool with the given number of workers.
func NewPool(numWorkers int, processor JobProcessor, logger *slog.Logger) *Pool {
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan engine.WebhookJob, numWorkers*2),
		processor:  processor,
		logger:     logger,
	}
}

// Start launches all worker goroutines. They read from the jobs channel
// until it is closed or the context is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	p.logger.Info("worker pool started", "num_workers", p.numWorkers)
}

// Submit hands a job to the next free worker.
func (p *Pool) Submit(job engine.WebhookJob) {
	p.jobs <- job
}

// Stop closes the jobs channel and waits for in-flight jobs to finish.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for job := range p.jobs {
		select {
		case <-ctx.Done():
			return
		default:
			p.processor.Process(ctx, job)
		}
	}
}
