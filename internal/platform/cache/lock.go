package cache

import (
	"context"
	"log"
	"time"

	"judgehub/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker hands out short-lived mutual-exclusion locks. The Redis implementation
// is used to serialize concurrent streak updates for one user and to elect a
// single runner for the daily streak sweep.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

type redisLocker struct {
	rdb *redis.Client
}

func NewRedisLocker(rdb *redis.Client) Locker {
	return &redisLocker{rdb: rdb}
}

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lockValue := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, key, lockValue, ttl).Result()
		if err != nil {
			return nil, common.Errorf("failed to attempt lock acquisition for %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, common.Errorf("gave up waiting for lock %s: %w", key, common.ErrLockNotAcquired)
		case <-time.After(50 * time.Millisecond):
		}
	}

	release := func() {
		deleted, err := releaseScript.Run(context.Background(), l.rdb, []string{key}, lockValue).Result()
		if err != nil {
			log.Printf("ERROR: Failed to release lock %s: %v", key, err)
		} else if n, _ := deleted.(int64); n != 1 {
			log.Printf("WARN: Did not release lock %s; it expired or was taken over.", key)
		}
	}
	return release, nil
}

// TryAcquire attempts the lock once without waiting. Used by the streak sweeper
// so only one process runs the sweep per interval.
func TryAcquire(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, func(), error) {
	lockValue := uuid.NewString()
	ok, err := rdb.SetNX(ctx, key, lockValue, ttl).Result()
	if err != nil || !ok {
		return false, nil, err
	}
	release := func() {
		if _, err := releaseScript.Run(context.Background(), rdb, []string{key}, lockValue).Result(); err != nil {
			log.Printf("ERROR: Failed to release lock %s: %v", key, err)
		}
	}
	return true, release, nil
}
