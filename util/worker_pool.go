package util

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// WorkerPool runs handlers either inline (one worker, strictly sequential)
// or on at most n concurrent goroutines.
type WorkerPool struct {
	workers int64
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
}

func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}

	return &WorkerPool{
		workers: int64(workers),
		sem:     semaphore.NewWeighted(int64(workers)),
	}
}

func (p *WorkerPool) Sequential() bool {
	return p.workers == 1
}

// Go runs handler. In sequential mode it returns only after handler is done;
// otherwise it blocks until a worker slot is free and then returns
// immediately.
func (p *WorkerPool) Go(ctx context.Context, handler func()) error {
	if p.Sequential() {
		handler()
		return nil
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		handler()
	}()

	return nil
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
