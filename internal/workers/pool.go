package workers

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Pool is a bounded worker pool. Tasks are queued on a fixed-depth channel
// and executed by a fixed number of goroutines; a panicking task is contained
// and logged without taking its worker down.
type Pool struct {
	name   string
	tasks  chan func()
	wg     sync.WaitGroup
	logger *logrus.Logger

	// mu is held for reading across submits so Shutdown cannot close the
	// task channel under an in-flight send.
	mu     sync.RWMutex
	closed bool
}

// NewPool starts a pool with the given number of workers and queue depth
func NewPool(name string, size, queueDepth int, logger *logrus.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if queueDepth <= 0 {
		queueDepth = size
	}

	p := &Pool{
		name:   name,
		tasks:  make(chan func(), queueDepth),
		logger: logger,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WithFields(logrus.Fields{
				"pool":  p.name,
				"panic": r,
			}).Error("Worker task panicked")
		}
	}()
	task()
}

// Submit queues a task, blocking while the queue is full. It returns false
// once the pool has been shut down.
func (p *Pool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}
	p.tasks <- task
	return true
}

// TrySubmit queues a task without blocking. It returns false when the queue
// is saturated or the pool has been shut down; fire-and-forget callers log
// and move on.
func (p *Pool) TrySubmit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		p.logger.WithField("pool", p.name).Warn("Worker pool saturated, task dropped")
		return false
	}
}

// Shutdown stops accepting tasks and waits for in-flight work to finish, up
// to the context deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
