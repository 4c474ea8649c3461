// Package queue provides the background task queue used to run attachment
// jobs outside the request path. Backends: in-process channels, a Redis
// reliable list and NATS queue groups.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrQueueClosed is returned when enqueueing to or consuming from a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueFull is returned when the in-process buffer is full
	ErrQueueFull = errors.New("queue is full")

	// ErrUnknownBackend is returned by New for an unsupported backend name
	ErrUnknownBackend = errors.New("unknown queue backend")
)

// Task is one unit of background work
type Task struct {
	ID         string          `json:"id"`
	Method     string          `json:"method"`
	Queue      string          `json:"queue"`
	Timeout    time.Duration   `json:"timeout"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewTask encodes payload and stamps a new task id
func NewTask(method, queueName string, timeout time.Duration, payload any) (*Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task payload: %w", err)
	}
	return &Task{
		ID:         uuid.New().String(),
		Method:     method,
		Queue:      queueName,
		Timeout:    timeout,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into v
func (t *Task) Decode(v any) error {
	if len(t.Payload) == 0 {
		return errors.New("task payload is empty")
	}
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("failed to decode task payload: %w", err)
	}
	return nil
}

// Handler processes one task. A returned error marks the delivery as failed.
type Handler func(ctx context.Context, task *Task) error

// Queue is a named task queue
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	// Consume runs handlers until ctx is cancelled or the queue is closed.
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// Recoverer is implemented by backends that park in-flight tasks on a
// processing list, where a crashed consumer can strand them.
type Recoverer interface {
	Recover(ctx context.Context) (int, error)
}

// RecoverStranded moves tasks stranded by a previous consumer back to the
// pending side of q. Backends without a processing list report 0.
func RecoverStranded(ctx context.Context, q Queue) (int, error) {
	r, ok := q.(Recoverer)
	if !ok {
		return 0, nil
	}
	return r.Recover(ctx)
}

// safeHandle runs the handler, converting a panic into an error
func safeHandle(ctx context.Context, handler Handler, task *Task, logger *zap.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task handler panicked",
				zap.String("task_id", task.ID),
				zap.String("method", task.Method),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("task handler panicked: %v", r)
		}
	}()
	return handler(ctx, task)
}
