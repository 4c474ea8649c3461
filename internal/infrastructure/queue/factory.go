package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/pdfonsubmit/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// New builds the queue selected by cfg.Queue.Backend
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Queue, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.Worker.Concurrency

	switch cfg.Queue.Backend {
	case "", "memory":
		return NewMemoryQueue(MemoryConfig{
			BufferSize:  cfg.Queue.BufferSize,
			Concurrency: concurrency,
		}, logger), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return &ownedRedisQueue{
			RedisQueue: NewRedisQueue(client, RedisConfig{
				KeyPrefix:    cfg.Queue.KeyPrefix,
				Name:         cfg.Queue.Name,
				Concurrency:  concurrency,
				BlockTimeout: cfg.Queue.BlockTimeout,
			}, logger),
			client: client,
		}, nil

	case "nats":
		return NewNATSQueue(NATSConfig{
			URL:           cfg.NATS.URL,
			ClientName:    cfg.NATS.Name,
			SubjectPrefix: cfg.Queue.KeyPrefix,
			Name:          cfg.Queue.Name,
			Concurrency:   concurrency,
		}, logger)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Queue.Backend)
	}
}

var _ Recoverer = (*ownedRedisQueue)(nil)

// ownedRedisQueue closes the client it was created with
type ownedRedisQueue struct {
	*RedisQueue
	client *redis.Client
}

func (q *ownedRedisQueue) Close() error {
	if err := q.RedisQueue.Close(); err != nil {
		return err
	}
	return q.client.Close()
}
