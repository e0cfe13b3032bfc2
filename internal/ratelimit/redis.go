package ratelimit

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisWindowTTL outlives the one-second window so clock skew between
// replicas cannot expire a key mid-window.
const redisWindowTTL = 2 * time.Second

// RedisLimiter counts requests in per-second Redis keys so limits hold
// across replicas. Each check increments the window key and refreshes its
// TTL in one pipelined round trip.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: strings.TrimSpace(prefix)}
}

// Allow consumes one slot from the key's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if l == nil || l.client == nil || limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	second := now.Unix()
	reset := time.Unix(second+1, 0).UTC()

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, l.windowKey(key, second))
	pipe.Expire(ctx, l.windowKey(key, second), redisWindowTTL)
	if _, errExec := pipe.Exec(ctx); errExec != nil {
		return Result{}, errExec
	}

	count := incr.Val()
	if count > int64(limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	return Result{Allowed: true, Remaining: limit - int(count), Reset: reset}, nil
}

func (l *RedisLimiter) windowKey(key string, second int64) string {
	parts := []string{key, strconv.FormatInt(second, 10)}
	if l.prefix != "" {
		parts = append([]string{l.prefix}, parts...)
	}
	return strings.Join(parts, ":")
}
