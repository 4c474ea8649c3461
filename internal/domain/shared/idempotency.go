package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers delivery keys (CloudEvent ids, Idempotency-Key
// headers) so a redelivered submission is not enqueued twice.
type IdempotencyStore interface {
	// MarkProcessed marks a key as seen for ttl.
	// Returns true if the key was newly marked, false if it was already seen.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether a key has been seen and not yet expired.
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a key, so a delivery whose processing failed can be retried.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key is remembered. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
