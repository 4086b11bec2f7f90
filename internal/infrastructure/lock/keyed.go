// Package lock provides the stock lockers that serialize balance mutations
// per (warehouse, product) key.
package lock

import (
	"context"
	"fmt"
	"sync"

	appinv "github.com/kitchenledger/backend/internal/application/inventory"
	"github.com/kitchenledger/backend/internal/domain/shared"
)

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// KeyedLocker is an in-process locker with one mutex per key.
// Unused keys are dropped once their last holder or waiter leaves.
type KeyedLocker struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

// NewKeyedLocker creates an empty KeyedLocker
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{entries: make(map[string]*keyedEntry)}
}

// Lock acquires every key in the given order. Callers pass keys sorted so
// that two postings sharing keys cannot deadlock. If ctx ends while waiting,
// keys already held are released and the context error is returned.
func (l *KeyedLocker) Lock(ctx context.Context, keys []string) (func(), error) {
	held := make([]string, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.unlock(held[i])
		}
	}

	for _, key := range keys {
		if err := l.lock(ctx, key); err != nil {
			release()
			return nil, fmt.Errorf("%w: waiting for %s: %w", shared.ErrLockNotObtained, key, err)
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *KeyedLocker) lock(ctx context.Context, key string) error {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.drop(key, e)
		return ctx.Err()
	}
}

func (l *KeyedLocker) unlock(key string) {
	l.mu.Lock()
	e, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	<-e.ch
	l.drop(key, e)
}

func (l *KeyedLocker) drop(key string, e *keyedEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// size returns the number of tracked keys
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

var _ appinv.StockLocker = (*KeyedLocker)(nil)
