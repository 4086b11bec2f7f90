package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// RedisConfig tunes the distributed locker
type RedisConfig struct {
	// TTL bounds how long a crashed holder can block a key
	TTL time.Duration
	// RetryInterval is the pause between attempts on a busy key
	RetryInterval time.Duration
	// WaitTimeout caps the total wait for one key
	WaitTimeout time.Duration
}

// DefaultRedisConfig returns the default distributed lock settings
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		TTL:           30 * time.Second,
		RetryInterval: 50 * time.Millisecond,
		WaitTimeout:   10 * time.Second,
	}
}

// RedisLocker serializes stock mutations across processes with redislock
type RedisLocker struct {
	client *redislock.Client
	cfg    RedisConfig
	logger *zap.Logger
}

// NewRedisLocker creates a locker over a redis client
func NewRedisLocker(rdb redislock.RedisClient, cfg RedisConfig, logger *zap.Logger) *RedisLocker {
	def := DefaultRedisConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = def.WaitTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		cfg:    cfg,
		logger: logger.Named("stock_locker"),
	}
}

// Lock obtains every key in order, retrying busy keys until WaitTimeout
func (l *RedisLocker) Lock(ctx context.Context, keys []string) (func(), error) {
	held := make([]*redislock.Lock, 0, len(keys))
	release := func() {
		// release must work after the caller's context is cancelled
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("failed to release stock lock",
					zap.String("key", held[i].Key()),
					zap.Error(err),
				)
			}
		}
	}

	for _, key := range keys {
		lk, err := l.obtain(ctx, key)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, lk)
	}

	done := false
	return func() {
		if done {
			return
		}
		done = true
		release()
	}, nil
}

func (l *RedisLocker) obtain(ctx context.Context, key string) (*redislock.Lock, error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.WaitTimeout)
	defer cancel()

	lk, err := l.client.Obtain(waitCtx, key, l.cfg.TTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.cfg.RetryInterval),
	})
	switch {
	case err == nil:
		return lk, nil
	case errors.Is(err, redislock.ErrNotObtained),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		l.logger.Warn("stock lock not obtained", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %s", shared.ErrLockNotObtained, key)
	default:
		return nil, fmt.Errorf("obtain stock lock %s: %w", key, err)
	}
}

var _ appinv.StockLocker = (*RedisLocker)(nil)
