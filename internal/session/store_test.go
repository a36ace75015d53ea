package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the behaviour every Store must share.
func storeContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		_, err := store.Load(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("round trip", func(t *testing.T) {
		state := NewState("s-1", "sys")
		state.Conversation.Append(NewUserTurn("hello"))
		require.NoError(t, store.Save(ctx, state))

		loaded, err := store.Load(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, "s-1", loaded.ID)
		assert.Equal(t, state.Conversation.Snapshot(), loaded.Conversation.Snapshot())
	})

	t.Run("loaded state is independent", func(t *testing.T) {
		state := NewState("s-2", "sys")
		require.NoError(t, store.Save(ctx, state))

		loaded, err := store.Load(ctx, "s-2")
		require.NoError(t, err)
		loaded.Conversation.Append(NewUserTurn("unsaved"))

		again, err := store.Load(ctx, "s-2")
		require.NoError(t, err)
		assert.Equal(t, 1, again.Conversation.Len())
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		a := NewState("a", "sys")
		a.Conversation.Append(NewUserTurn("from a"))
		b := NewState("b", "sys")
		require.NoError(t, store.Save(ctx, a))
		require.NoError(t, store.Save(ctx, b))

		loaded, err := store.Load(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, 1, loaded.Conversation.Len())
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, NewState("gone", "sys")))
		require.NoError(t, store.Delete(ctx, "gone"))

		_, err := store.Load(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(time.Hour))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, NewState("old", "sys")))
	require.NoError(t, store.Save(ctx, NewState("kept", "sys")))

	now = now.Add(30 * time.Second)
	require.NoError(t, store.Save(ctx, NewState("kept", "sys")))

	now = now.Add(45 * time.Second)
	_, err := store.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Load(ctx, "kept")
	assert.NoError(t, err, "saving refreshes the TTL")

	now = now.Add(time.Hour)
	assert.Equal(t, 1, store.Sweep())
	assert.Zero(t, store.Len())
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	storeContract(t, store)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, NewState("s", "sys")))
	assert.True(t, mr.Exists(redisKeyPrefix+"s"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "s")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	require.NoError(t, mr.Set(redisKeyPrefix+"bad", `{"id":"bad","conversation":{"turns":[]}}`))

	_, err := store.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_PingFailsWhenDown(t *testing.T) {
	store, mr := newRedisStore(t, time.Hour)
	mr.Close()

	assert.Error(t, store.Ping(context.Background()))
}
