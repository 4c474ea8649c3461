package queue

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryConfig configures the in-process queue
type MemoryConfig struct {
	BufferSize  int
	Concurrency int
}

// MemoryQueue is a buffered channel drained by a fixed worker pool. Tasks do
// not survive a restart.
type MemoryQueue struct {
	config MemoryConfig
	logger *zap.Logger

	tasks  chan *Task
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates an in-process queue
func NewMemoryQueue(config MemoryConfig, logger *zap.Logger) *MemoryQueue {
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryQueue{
		config: config,
		logger: logger,
		tasks:  make(chan *Task, config.BufferSize),
	}
}

// Enqueue adds a task without blocking
func (q *MemoryQueue) Enqueue(ctx context.Context, task *Task) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		q.logger.Debug("Task enqueued",
			zap.String("task_id", task.ID),
			zap.String("method", task.Method),
			zap.String("queue", task.Queue),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Consume starts the worker pool and blocks until ctx is done or the queue
// is closed and drained. Handlers run on a context that is not cancelled with
// ctx so in-flight tasks can finish.
func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < q.config.Concurrency; i++ {
		wg.Add(1)
		go q.worker(ctx, handler, i, &wg)
	}

	q.logger.Info("Memory queue consumers started", zap.Int("workers", q.config.Concurrency))
	wg.Wait()
	q.logger.Info("Memory queue consumers stopped")
	return nil
}

func (q *MemoryQueue) worker(ctx context.Context, handler Handler, workerID int, wg *sync.WaitGroup) {
	defer wg.Done()
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
			return
		case task, ok := <-q.tasks:
			if !ok {
				q.logger.Debug("Task channel closed", zap.Int("worker_id", workerID))
				return
			}
			if err := safeHandle(handlerCtx, handler, task, q.logger); err != nil {
				q.logger.Warn("Task failed",
					zap.Int("worker_id", workerID),
					zap.String("task_id", task.ID),
					zap.String("method", task.Method),
					zap.Error(err),
				)
			}
		}
	}
}

// Len returns the number of buffered tasks
func (q *MemoryQueue) Len() int {
	return len(q.tasks)
}

// Close stops accepting tasks. Buffered tasks are still delivered to running consumers.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.tasks)
	return nil
}
