package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
)

func TestLocal_SerializesSameKey(t *testing.T) {
	t.Parallel()

	l := NewLocal(0)
	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(context.Background(), "k")
			require.NoError(t, err)
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Empty(t, l.locks)
}

func TestLocal_DifferentKeysIndependent(t *testing.T) {
	t.Parallel()

	l := NewLocal(50 * time.Millisecond)
	releaseA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := l.Lock(context.Background(), "b")
	require.NoError(t, err)
	releaseB()
}

func TestLocal_TimeoutIsConflict(t *testing.T) {
	t.Parallel()

	l := NewLocal(20 * time.Millisecond)
	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	_, err = l.Lock(context.Background(), "k")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocal_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	l := NewLocal(time.Second)
	release, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	release()
	release()

	again, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()
}
