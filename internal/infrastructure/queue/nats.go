package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSConfig configures the NATS queue
type NATSConfig struct {
	URL            string
	ClientName     string
	SubjectPrefix  string
	Name           string
	Concurrency    int
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

// NATSQueue publishes tasks to a subject and consumes them through a queue
// group, so each task is delivered to one subscriber. Delivery is at most once.
type NATSQueue struct {
	conn   *nats.Conn
	config NATSConfig
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewNATSQueue connects to the server
func NewNATSQueue(config NATSConfig, logger *zap.Logger) (*NATSQueue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = "pdfsubmit"
	}
	if config.Name == "" {
		config.Name = "long"
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 2 * time.Second
	}
	if config.ReconnectWait <= 0 {
		config.ReconnectWait = 2 * time.Second
	}
	if config.MaxReconnects <= 0 {
		config.MaxReconnects = 60
	}

	conn, err := nats.Connect(
		config.URL,
		nats.Name(config.ClientName),
		nats.Timeout(config.ConnectTimeout),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSQueue{conn: conn, config: config, logger: logger}, nil
}

// Subject is the subject tasks are published on
func (q *NATSQueue) Subject() string {
	return q.config.SubjectPrefix + ".queue." + q.config.Name
}

// Enqueue publishes the encoded task
func (q *NATSQueue) Enqueue(ctx context.Context, task *Task) error {
	if q.isClosed() {
		return ErrQueueClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	if err := q.conn.Publish(q.Subject(), raw); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	q.logger.Debug("Task published",
		zap.String("task_id", task.ID),
		zap.String("subject", q.Subject()),
	)
	return nil
}

// Consume subscribes Concurrency members of the "workers" queue group and
// blocks until ctx is done, then drains the subscriptions.
func (q *NATSQueue) Consume(ctx context.Context, handler Handler) error {
	if q.isClosed() {
		return ErrQueueClosed
	}

	handlerCtx := context.WithoutCancel(ctx)
	subs := make([]*nats.Subscription, 0, q.config.Concurrency)
	for i := 0; i < q.config.Concurrency; i++ {
		sub, err := q.conn.QueueSubscribe(q.Subject(), "workers", func(msg *nats.Msg) {
			var task Task
			if err := json.Unmarshal(msg.Data, &task); err != nil {
				q.logger.Error("Dropping undecodable task", zap.Error(err))
				return
			}
			if err := safeHandle(handlerCtx, handler, &task, q.logger); err != nil {
				q.logger.Warn("Task failed",
					zap.String("task_id", task.ID),
					zap.String("method", task.Method),
					zap.Error(err),
				)
			}
		})
		if err != nil {
			return fmt.Errorf("nats subscribe: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	q.logger.Info("NATS queue consumers started",
		zap.Int("subscriptions", len(subs)),
		zap.String("subject", q.Subject()),
	)

	<-ctx.Done()
	for _, sub := range subs {
		if err := sub.Drain(); err != nil {
			return fmt.Errorf("nats drain subscription: %w", err)
		}
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil && !q.conn.IsClosed() {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// Close drains and closes the connection
func (q *NATSQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

func (q *NATSQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
