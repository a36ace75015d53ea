package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const redisLockPrefix = "dashboard:lock:"

// releaseScript deletes the lock only while it still carries the caller's
// token, so an expired lock taken over by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a TurnLocker shared by every replica using the same Redis,
// paired with RedisStore. Locks expire after ttl if the holder never
// releases them.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl}
}

func redisLockKey(id string) string {
	return redisLockPrefix + id
}

// Acquire implements TurnLocker with SET NX PX.
func (l *RedisLocker) Acquire(ctx context.Context, id string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, redisLockKey(id), token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// The request context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(ctx, l.client, []string{redisLockKey(id)}, token)
	}, nil
}
