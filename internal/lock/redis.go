// Package lock provides distributed mutual exclusion over named resources,
// backed by Redis. Leases are time-bound so a crashed holder never wedges a
// slot for longer than the TTL.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"slotline/internal/logger"
)

// ErrNotAcquired is returned when the lock is already held elsewhere.
// Callers are expected to fail fast and let the client retry.
var ErrNotAcquired = errors.New("lock already held")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
    return 0
end
`)

// Lease is a held lock. Release is safe to call more than once and on every
// exit path; failures are logged and swallowed since the TTL is the
// correctness backstop.
type Lease interface {
	Release(ctx context.Context)
	Extend(ctx context.Context, ttl time.Duration) bool
}

// RedisLock acquires leases in a shared Redis instance, visible to all
// horizontally scaled copies of the service.
type RedisLock struct {
	client *redis.Client
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

// Acquire attempts a single atomic SET NX with the given TTL. It never
// blocks waiting for the holder: either the lease is obtained now or
// ErrNotAcquired is returned.
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &redisLease{client: l.client, key: key, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
	once   sync.Once
}

// Release deletes the key only if it still holds this lease's token, so an
// expired lease can never delete a newer holder's lock.
func (rl *redisLease) Release(ctx context.Context) {
	rl.once.Do(func() {
		if err := releaseScript.Run(ctx, rl.client, []string{rl.key}, rl.token).Err(); err != nil && err != redis.Nil {
			logger.WithContext(ctx).Error("Failed to release lock, TTL will expire it",
				"error", err,
				"key", rl.key)
		}
	})
}

// Extend refreshes the TTL if the lease is still held. Returns false when
// the key expired or was taken over.
func (rl *redisLease) Extend(ctx context.Context, ttl time.Duration) bool {
	res, err := extendScript.Run(ctx, rl.client, []string{rl.key}, rl.token, ttl.Milliseconds()).Int64()
	if err != nil {
		logger.WithContext(ctx).Error("Failed to extend lock", "error", err, "key", rl.key)
		return false
	}
	return res == 1
}
