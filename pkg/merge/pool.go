package merge

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context)
}

// JobFunc adapts a function to the Job interface
type JobFunc func(ctx context.Context)

func (f JobFunc) Execute(ctx context.Context) { f(ctx) }

// Pool manages a pool of workers that execute jobs concurrently. Jobs report
// their own results; the pool only schedules them.
type Pool struct {
	workers  int
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewPool creates a new worker pool with the specified number of workers.
// Cancelling ctx stops workers from picking up queued jobs.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			job.Execute(p.ctx)
		}
	}
}

// Submit hands a job to the next free worker. It returns false without
// running the job once the pool's context is done.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait closes the queue and blocks until every submitted job has finished
func (p *Pool) Wait() {
	p.stopOnce.Do(func() { close(p.jobQueue) })
	p.wg.Wait()
	p.cancel()
}
