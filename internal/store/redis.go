package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisKV stores blobs as plain string values under prefix:key.
type RedisKV struct {
	redis  *redis.Client
	prefix string
}

func NewRedisKV(redisClient *redis.Client, prefix string) *RedisKV {
	return &RedisKV{redis: redisClient, prefix: prefix}
}

func (r *RedisKV) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.redis.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return data, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.redis.Set(ctx, r.key(key), value, 0).Err()
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.redis.Del(ctx, r.key(key)).Err()
}
