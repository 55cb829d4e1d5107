package pipeline

import (
	"context"
	"errors"
	"sync"

	"interview-insights-go/internal/logger"
)

// ErrQueueFull is returned when the submission queue cannot take more work.
var ErrQueueFull = errors.New("processing queue full")

// Pool runs submissions on a fixed set of workers. Each worker owns one
// request end to end; the cache store is the only shared state.
type Pool struct {
	orch     *Orchestrator
	jobs     chan Submission
	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once
}

func NewPool(orch *Orchestrator, queueSize int) *Pool {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{orch: orch, jobs: make(chan Submission, queueSize)}
}

// Start launches n workers. Safe to call once.
func (p *Pool) Start(ctx context.Context, n int) {
	p.once.Do(func() {
		log := logger.New().WithField("component", "pipeline.pool")
		if n <= 0 {
			n = 2
		}
		for i := 0; i < n; i++ {
			p.wg.Add(1)
			go func(id int) {
				defer p.wg.Done()
				for sub := range p.jobs {
					p.orch.Process(ctx, sub)
				}
			}(i)
		}
		log.WithField("workers", n).Info("worker pool started")
	})
}

// Submit queues a request without blocking.
func (p *Pool) Submit(sub Submission) error {
	select {
	case p.jobs <- sub:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight work to finish.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}
