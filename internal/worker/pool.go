package worker

import (
	"log/slog"
	"sync"

	"github.com/baharkarakas/ledger-backend/internal/metrics"
)

type Task func()

type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task

	mu     sync.RWMutex
	closed bool
}

func NewPool(n, queueSize int) *Pool {
	if n < 1 {
		n = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{jobs: make(chan Task, queueSize)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
				run(job)
			}
		}()
	}
	return p
}

// run keeps one panicking task from taking the worker down with it.
func run(job Task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker task panic", "err", rec)
		}
	}()
	job()
}

// Submit blocks while the queue is full. It returns false once the pool is
// stopped.
func (p *Pool) Submit(f Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.jobs <- f
	metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
	return true
}

// TrySubmit enqueues f without blocking and reports whether it was accepted.
func (p *Pool) TrySubmit(f Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
		return true
	default:
		return false
	}
}

// Stop drains queued tasks and waits for the workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
