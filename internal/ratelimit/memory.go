package ratelimit

import (
	"context"
	"sync"
	"time"
)

// bucket tracks consumption within one one-second window.
type bucket struct {
	second int64
	used   int
}

// MemoryLimiter counts requests per key in one-second buckets. It serves
// single-process deployments and the Redis failure fallback; a key's
// bucket resets the first time it is touched in a new second.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]bucket
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]bucket)}
}

// Allow consumes one slot from the key's current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	second := now.Unix()
	reset := time.Unix(second+1, 0).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b.second != second {
		b = bucket{second: second}
	}
	if b.used >= limit {
		l.buckets[key] = b
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	b.used++
	l.buckets[key] = b
	return Result{Allowed: true, Remaining: limit - b.used, Reset: reset}, nil
}
