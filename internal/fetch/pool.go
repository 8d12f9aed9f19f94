package fetch

import (
	"context"
	"errors"
	"sync"
)

type job func(ctx context.Context)

// workerPool runs download jobs with bounded concurrency. Every submitted
// job is executed exactly once, even after cancellation: workers drain the
// queue and jobs observe the cancelled context themselves, so each URL still
// yields a record.
type workerPool struct {
	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan job
	wg     sync.WaitGroup
}

func newWorkerPool(parent context.Context, concurrency, queueSize int) (*workerPool, error) {
	if concurrency <= 0 || queueSize <= 0 {
		return nil, errors.New("worker pool requires positive concurrency and queue size")
	}
	ctx, cancel := context.WithCancel(parent)
	pool := &workerPool{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan job, queueSize),
	}
	pool.start(concurrency)
	return pool, nil
}

func (p *workerPool) start(concurrency int) {
	for i := 0; i < concurrency; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job(p.ctx)
			}
		}()
	}
}

// submit schedules a job, rejecting it if the pool has shut down.
func (p *workerPool) submit(fn job) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobs <- fn:
		return nil
	}
}

// close stops accepting jobs, waits for queued work to finish, and releases
// the workers.
func (p *workerPool) close() {
	close(p.jobs)
	p.wg.Wait()
	p.cancel()
}
