// Package workerpool provides a bounded goroutine pool.
//
// The reconciler uses it to poll the payment provider for many stale orders
// at once without opening an unbounded number of upstream connections.
//
//	pool := workerpool.New(8)
//	defer pool.Shutdown()
//
//	for _, o := range orders {
//	    o := o
//	    if err := pool.SubmitWait(ctx, func() { reconcile(o) }); err != nil {
//	        break
//	    }
//	}
//	pool.Wait()
package workerpool

import (
	"context"
	"errors"
	"sync"

	"github.com/shashiranjanraj/storefront/pkg/logger"
)

// ErrPoolFull is returned by Submit when every worker is busy and the queue
// is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned after Shutdown.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool runs submitted tasks on a fixed number of goroutines.
type Pool struct {
	tasks   chan func()
	workers sync.WaitGroup
	pending sync.WaitGroup
	once    sync.Once
	closeCh chan struct{}
}

// New starts a pool of size workers. The queue holds 2*size tasks.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	p := &Pool{
		tasks:   make(chan func(), size*2),
		closeCh: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p.workers.Add(1)
		go p.work()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	select {
	case <-p.closeCh:
		return ErrPoolClosed
	default:
	}

	p.pending.Add(1)
	select {
	case p.tasks <- task:
		return nil
	default:
		p.pending.Done()
		return ErrPoolFull
	}
}

// SubmitWait blocks until task is queued, ctx is done, or the pool closes.
func (p *Pool) SubmitWait(ctx context.Context, task func()) error {
	select {
	case <-p.closeCh:
		return ErrPoolClosed
	default:
	}

	p.pending.Add(1)
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		p.pending.Done()
		return ctx.Err()
	case <-p.closeCh:
		p.pending.Done()
		return ErrPoolClosed
	}
}

// Wait blocks until every task queued so far has finished.
func (p *Pool) Wait() { p.pending.Wait() }

// Shutdown drains the queue and stops the workers. Safe to call twice.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.closeCh)
		close(p.tasks)
		p.workers.Wait()
	})
}

func (p *Pool) work() {
	defer p.workers.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer p.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked", "panic", r)
		}
	}()
	task()
}
