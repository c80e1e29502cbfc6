package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps windows as INCR counters with a TTL. Window boundaries
// follow Redis expiry, so the now argument only anchors ResetAt.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (r *RedisStore) Incr(ctx context.Context, key string, now time.Time, window time.Duration) (Window, error) {
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return Window{}, err
	}

	// Set expiration on first request
	if count == 1 {
		if err := r.redis.PExpire(ctx, key, window).Err(); err != nil {
			return Window{}, err
		}
		return Window{Count: 1, ResetAt: now.Add(window)}, nil
	}

	ttl, err := r.redis.PTTL(ctx, key).Result()
	if err != nil {
		return Window{}, err
	}
	if ttl < 0 {
		// lost its expiry; re-arm so the key cannot live forever
		r.redis.PExpire(ctx, key, window)
		ttl = window
	}
	return Window{Count: int(count), ResetAt: now.Add(ttl)}, nil
}

func (r *RedisStore) Peek(ctx context.Context, key string, now time.Time) (Window, bool, error) {
	count, err := r.redis.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return Window{}, false, nil
	}
	if err != nil {
		return Window{}, false, err
	}
	ttl, err := r.redis.PTTL(ctx, key).Result()
	if err != nil {
		return Window{}, false, err
	}
	return Window{Count: count, ResetAt: now.Add(ttl)}, true, nil
}
