package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which events a handler has already consumed.
// The same event can arrive twice: once from the in-process publish after
// commit and once from the outbox processor.
type IdempotencyStore interface {
	// Claim records key if absent. It returns false when key was already claimed.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so a later delivery is handled again
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig holds configuration for idempotent event handling
type IdempotencyConfig struct {
	// TTL is how long a consumed event id is remembered
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
