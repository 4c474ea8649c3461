package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the Redis list queue
type RedisConfig struct {
	KeyPrefix    string
	Name         string
	Concurrency  int
	BlockTimeout time.Duration
}

// RedisQueue is a reliable list queue. Producers LPUSH onto the pending
// list; consumers atomically BLMOVE a task onto a processing list, remove it
// when the handler returns, and push failed deliveries onto a failed list.
type RedisQueue struct {
	client *redis.Client
	config RedisConfig
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewRedisQueue wraps an existing client
func NewRedisQueue(client *redis.Client, config RedisConfig, logger *zap.Logger) *RedisQueue {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "pdfsubmit"
	}
	if config.Name == "" {
		config.Name = "long"
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.BlockTimeout <= 0 {
		config.BlockTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{
		client: client,
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// PendingKey is the list producers push to
func (q *RedisQueue) PendingKey() string {
	return fmt.Sprintf("%s:queue:%s", q.config.KeyPrefix, q.config.Name)
}

// ProcessingKey holds tasks currently being handled
func (q *RedisQueue) ProcessingKey() string {
	return q.PendingKey() + ":processing"
}

// FailedKey holds tasks whose handler returned an error
func (q *RedisQueue) FailedKey() string {
	return q.PendingKey() + ":failed"
}

// Enqueue pushes the encoded task onto the pending list
func (q *RedisQueue) Enqueue(ctx context.Context, task *Task) error {
	if q.isClosed() {
		return ErrQueueClosed
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	if err := q.client.LPush(ctx, q.PendingKey(), raw).Err(); err != nil {
		return fmt.Errorf("failed to push task: %w", err)
	}
	q.logger.Debug("Task enqueued",
		zap.String("task_id", task.ID),
		zap.String("method", task.Method),
		zap.String("key", q.PendingKey()),
	)
	return nil
}

// Recover moves tasks left on the processing list by a crashed consumer back
// to the pending list. Call it once at startup before Consume.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.ProcessingKey(), q.PendingKey(), "RIGHT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, fmt.Errorf("failed to recover processing tasks: %w", err)
		}
		moved++
	}
	if moved > 0 {
		q.logger.Info("Recovered orphaned tasks", zap.Int("count", moved))
	}
	return moved, nil
}

// Consume runs Concurrency blocking consumers
func (q *RedisQueue) Consume(ctx context.Context, handler Handler) error {
	if q.isClosed() {
		return ErrQueueClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-q.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < q.config.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			q.consumeLoop(ctx, handler, workerID)
		}(i)
	}

	q.logger.Info("Redis queue consumers started",
		zap.Int("workers", q.config.Concurrency),
		zap.String("key", q.PendingKey()),
	)
	wg.Wait()
	q.logger.Info("Redis queue consumers stopped")
	return nil
}

func (q *RedisQueue) consumeLoop(ctx context.Context, handler Handler, workerID int) {
	handlerCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := q.client.BLMove(ctx, q.PendingKey(), q.ProcessingKey(), "RIGHT", "LEFT", q.config.BlockTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			q.logger.Warn("Failed to pop task", zap.Int("worker_id", workerID), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		q.handle(handlerCtx, handler, raw, workerID)
	}
}

func (q *RedisQueue) handle(ctx context.Context, handler Handler, raw string, workerID int) {
	var task Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		q.logger.Error("Dropping undecodable task to failed list", zap.Int("worker_id", workerID), zap.Error(err))
		q.ack(ctx, raw, true)
		return
	}

	err := safeHandle(ctx, handler, &task, q.logger)
	if err != nil {
		q.logger.Warn("Task failed",
			zap.Int("worker_id", workerID),
			zap.String("task_id", task.ID),
			zap.String("method", task.Method),
			zap.Error(err),
		)
	}
	q.ack(ctx, raw, err != nil)
}

// ack removes the task from the processing list, copying it to the failed list when failed
func (q *RedisQueue) ack(ctx context.Context, raw string, failed bool) {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.ProcessingKey(), 1, raw)
		if failed {
			pipe.LPush(ctx, q.FailedKey(), raw)
		}
		return nil
	})
	if err != nil {
		q.logger.Error("Failed to acknowledge task", zap.Error(err))
	}
}

// Depth returns the pending, processing and failed list lengths
func (q *RedisQueue) Depth(ctx context.Context) (pending, processing, failed int64, err error) {
	pipe := q.client.Pipeline()
	p := pipe.LLen(ctx, q.PendingKey())
	pr := pipe.LLen(ctx, q.ProcessingKey())
	f := pipe.LLen(ctx, q.FailedKey())
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to read queue depth: %w", err)
	}
	return p.Val(), pr.Val(), f.Val(), nil
}

// Close stops consumers. The client is owned by the caller.
func (q *RedisQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.done)
	return nil
}

func (q *RedisQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
