package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Снимаем лок только если он всё ещё наш.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock keeps two sync runs from working on the same database at once.
type RunLock struct {
	c   *redis.Client
	ttl time.Duration
}

func NewRunLock(addr string, ttl time.Duration) *RunLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RunLock{
		c:   redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

// Acquire returns false when another holder owns key.
func (l *RunLock) Acquire(ctx context.Context, key, owner string) (bool, error) {
	ok, err := l.c.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis lock")
	}
	return ok, nil
}

func (l *RunLock) Release(ctx context.Context, key, owner string) error {
	if err := releaseScript.Run(ctx, l.c, []string{key}, owner).Err(); err != nil && err != redis.Nil {
		return errors.Wrap(err, "redis unlock")
	}
	return nil
}

func (l *RunLock) Close() error {
	return l.c.Close()
}
