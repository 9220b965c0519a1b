package utils

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// GroupLocker serializes mutation of a shared-ride group. Two simultaneous
// joiners would otherwise both read a stale member count and compute a wrong
// per-passenger split.
type GroupLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// RedisLocker is a SETNX-based mutex with a best-effort owner-checked release.
type RedisLocker struct {
	Client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{Client: client}
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Acquire polls until the lock is taken or the context expires.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	for {
		ok, err := l.Client.SetNX(ctx, "lock:"+key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			release := func() {
				_, _ = releaseScript.Run(context.Background(), l.Client, []string{"lock:" + key}, token).Result()
			}
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
