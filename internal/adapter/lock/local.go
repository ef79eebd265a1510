// Package lock serializes mutating operations per audit session, either
// inside one process (Local) or across replicas (Redis).
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

type localEntry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Waiting respects ctx and the configured timeout.
type Local struct {
	mu      sync.Mutex
	locks   map[string]*localEntry
	timeout time.Duration
}

// NewLocal creates a Local locker. A zero timeout waits until ctx is done.
func NewLocal(timeout time.Duration) *Local {
	return &Local{locks: map[string]*localEntry{}, timeout: timeout}
}

// Lock blocks until key is free. Returns domain.ErrConflict when the wait
// times out or ctx ends first.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &localEntry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, e)
		return nil, fmt.Errorf("lock %s: %w: %w", key, domain.ErrConflict, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.drop(key, e)
		})
	}, nil
}

func (l *Local) drop(key string, e *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}
