// Package workers runs fire-and-forget side effects (cache writes, purges)
// off the request path.
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
)

// Task is one unit of background work. Name is used in logs.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool is a fixed set of goroutines draining a bounded task queue.
type Pool struct {
	tasks       chan Task
	workerCount int
	timeout     time.Duration
	logger      *zap.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool. Call Start to launch the workers.
func NewPool(workerCount, bufferSize int, taskTimeout time.Duration, logger *zap.Logger) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &Pool{
		tasks:       make(chan Task, bufferSize),
		workerCount: workerCount,
		timeout:     taskTimeout,
		logger:      logger,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	p.logger.Info("starting task workers", zap.Int("workers", p.workerCount), zap.Int("buffer", cap(p.tasks)))
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Submit queues task without blocking. When the queue is full or the pool is
// stopped the task is dropped and an ErrTaskRejected is returned.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return customerrors.ErrTaskRejected{Task: task.Name, Reason: "pool stopped"}
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		p.logger.Warn("task queue full, dropping task", zap.String("task", task.Name))
		return customerrors.ErrTaskRejected{Task: task.Name, Reason: "queue full"}
	}
}

// Stop closes the queue and waits until every queued task has run.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("task workers stopped")
}

// Pending returns the number of queued tasks.
func (p *Pool) Pending() int {
	return len(p.tasks)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", zap.String("task", task.Name), zap.Any("panic", r))
		}
	}()
	if err := task.Run(ctx); err != nil {
		p.logger.Warn("task failed", zap.String("task", task.Name), zap.Error(err))
	}
}
