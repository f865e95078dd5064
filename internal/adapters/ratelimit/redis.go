package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"velvetden/internal/domain"
)

const keyPrefix = "login:attempts:"

// counter is the subset of redis.Cmdable used by the limiter.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisLimiter struct {
	client counter
	max    int64
	window time.Duration
}

// NewRedisLimiter returns a fixed-window LoginLimiter allowing max attempts per key and window.
func NewRedisLimiter(client redis.Cmdable, max int, window time.Duration) domain.LoginLimiter {
	return newLimiter(client, max, window)
}

func newLimiter(client counter, max int, window time.Duration) *redisLimiter {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &redisLimiter{client: client, max: int64(max), window: window}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := keyPrefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	}
	return n <= l.max, nil
}

func (l *redisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, keyPrefix+key).Err()
}

// NewClient connects to Redis and verifies the connection with PING.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
