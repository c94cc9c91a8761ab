package throttle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"pickup-request-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "login:fail:"

// RedisThrottle counts failed logins per key in a fixed window.
type RedisThrottle struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
}

func NewRedisThrottle(rdb redis.Cmdable, limit int, window time.Duration) *RedisThrottle {
	return &RedisThrottle{rdb: rdb, limit: limit, window: window}
}

func (t *RedisThrottle) Check(ctx context.Context, key string) error {
	n, err := t.rdb.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("login throttle: get: %w", err)
	}

	count, err := strconv.Atoi(n)
	if err != nil {
		return fmt.Errorf("login throttle: bad counter %q: %w", n, err)
	}
	if count >= t.limit {
		return fmt.Errorf("login %s: %w", key, domain.ErrRateLimited)
	}
	return nil
}

// Fail records one failed attempt. The window starts at the first failure.
func (t *RedisThrottle) Fail(ctx context.Context, key string) error {
	k := keyPrefix + key

	count, err := t.rdb.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("login throttle: incr: %w", err)
	}
	if count == 1 {
		if err := t.rdb.Expire(ctx, k, t.window).Err(); err != nil {
			return fmt.Errorf("login throttle: expire: %w", err)
		}
	}
	return nil
}

func (t *RedisThrottle) Reset(ctx context.Context, key string) error {
	if err := t.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("login throttle: del: %w", err)
	}
	return nil
}
