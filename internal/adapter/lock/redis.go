package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

const redisRetryInterval = 100 * time.Millisecond

// Redis is a distributed session lock backed by bsm/redislock.
type Redis struct {
	client  redis.UniversalClient
	locker  *redislock.Client
	ttl     time.Duration
	timeout time.Duration
	log     *slog.Logger
}

// NewRedis creates a Redis locker on top of an existing client. ttl bounds how
// long a crashed holder can keep a session locked; a live holder refreshes the
// lock every ttl/2 until it releases.
func NewRedis(client redis.UniversalClient, ttl, timeout time.Duration, logger *slog.Logger) *Redis {
	return &Redis{
		client:  client,
		locker:  redislock.New(client),
		ttl:     ttl,
		timeout: timeout,
		log:     logger.With("adapter", "redislock"),
	}
}

// Lock obtains key, retrying until the configured timeout. Returns
// domain.ErrConflict if another holder keeps it.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	obtainCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		obtainCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	l, err := r.locker.Obtain(obtainCtx, key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(redisRetryInterval),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("lock %s: %w", key, domain.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}

	// The request context may already be gone while the lock is held.
	bg := context.WithoutCancel(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(bg, key, l, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			if err := l.Release(bg); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				r.log.WarnContext(ctx, "release lock failed", slog.String("key", key), slog.String("error", err.Error()))
			}
		})
	}, nil
}

// keepAlive extends the lock TTL until stop is closed or the lock is lost.
func (r *Redis) keepAlive(ctx context.Context, key string, l *redislock.Lock, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, r.ttl/2)
			err := l.Refresh(refreshCtx, r.ttl, nil)
			cancel()
			if errors.Is(err, redislock.ErrNotObtained) {
				r.log.ErrorContext(ctx, "session lock lost", slog.String("key", key))
				return
			}
			if err != nil {
				r.log.WarnContext(ctx, "refresh lock failed", slog.String("key", key), slog.String("error", err.Error()))
			}
		}
	}
}

// Ping checks the lock backend.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// NewRedisClient builds a go-redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
