package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker(t *testing.T) {
	l := NewLocker()

	assert.True(t, l.TryLock("a"))
	assert.False(t, l.TryLock("a"), "second holder is refused")
	assert.True(t, l.TryLock("b"), "other sessions are unaffected")

	l.Unlock("a")
	assert.True(t, l.TryLock("a"))
}

func TestLocker_SingleWinner(t *testing.T) {
	l := NewLocker()
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryLock("shared") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

// lockerContract runs the behaviour every TurnLocker must share. a and b
// stand for two replicas.
func lockerContract(t *testing.T, a, b TurnLocker) {
	ctx := context.Background()

	release, err := a.Acquire(ctx, "s1")
	require.NoError(t, err)

	_, err = b.Acquire(ctx, "s1")
	assert.ErrorIs(t, err, ErrLocked, "second holder is refused")

	releaseOther, err := b.Acquire(ctx, "s2")
	require.NoError(t, err, "other sessions are unaffected")
	releaseOther()

	release()
	release, err = b.Acquire(ctx, "s1")
	require.NoError(t, err)
	release()
}

func TestLocker_Acquire(t *testing.T) {
	l := NewLocker()
	lockerContract(t, l, l)
}

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	newLocker := func() *RedisLocker {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisLocker(client, time.Minute)
	}

	t.Run("contract", func(t *testing.T) {
		lockerContract(t, newLocker(), newLocker())
	})

	t.Run("expired lock is taken over", func(t *testing.T) {
		a, b := newLocker(), newLocker()
		ctx := context.Background()

		staleRelease, err := a.Acquire(ctx, "stuck")
		require.NoError(t, err)
		mr.FastForward(2 * time.Minute)

		release, err := b.Acquire(ctx, "stuck")
		require.NoError(t, err)

		staleRelease()
		assert.True(t, mr.Exists(redisLockKey("stuck")), "stale holder cannot release the new lock")

		release()
		assert.False(t, mr.Exists(redisLockKey("stuck")))
	})

	t.Run("redis down", func(t *testing.T) {
		l := newLocker()
		mr.Close()
		_, err := l.Acquire(context.Background(), "s1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrLocked)
	})
}
