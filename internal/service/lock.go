package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes sync attempts per invoice identity.
type Locker interface {
	// Acquire takes the named lock for at most ttl. It returns a release
	// function on success and ErrSyncInProgress when the lock is held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// redisLocker implements Locker with a Redis SET NX lock. The token guards
// against releasing a lock that expired and was re-acquired elsewhere.
type redisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	release := func() {
		// Best effort; the TTL bounds a leaked lock.
		releaseScript.Run(context.Background(), l.client, []string{key}, token)
	}
	return release, nil
}
