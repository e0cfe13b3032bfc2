package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/edchat-io/edchat/internal/config"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Unix(1000, 0)

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "u:1", 3, now)
		if err != nil {
			t.Fatalf("allow %d: %v", i+1, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d denied", i+1)
		}
		if result.Remaining != 3-(i+1) {
			t.Fatalf("remaining = %d after request %d", result.Remaining, i+1)
		}
	}

	result, err := limiter.Allow(ctx, "u:1", 3, now)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatal("fourth request allowed within window")
	}

	// A new second opens a fresh window.
	result, err = limiter.Allow(ctx, "u:1", 3, now.Add(time.Second))
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !result.Allowed {
		t.Fatal("request denied in new window")
	}
}

func TestMemoryLimiterIsolatesKeys(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Unix(2000, 0)

	if result, _ := limiter.Allow(ctx, "u:1", 1, now); !result.Allowed {
		t.Fatal("first key denied")
	}
	if result, _ := limiter.Allow(ctx, "u:1", 1, now); result.Allowed {
		t.Fatal("first key not capped")
	}
	if result, _ := limiter.Allow(ctx, "u:2", 1, now); !result.Allowed {
		t.Fatal("second key affected by first")
	}
}

func TestManagerDisabledAllowsAll(t *testing.T) {
	manager := NewManager(config.RateLimitConfig{PerSecond: 0}, nil, nil)
	for i := 0; i < 10; i++ {
		result, err := manager.Allow(context.Background(), "u:1")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !result.Allowed {
			t.Fatal("disabled limiter denied a request")
		}
	}
}

func TestManagerMemoryBackend(t *testing.T) {
	now := time.Unix(3000, 0)
	manager := NewManager(config.RateLimitConfig{PerSecond: 2}, func() time.Time { return now }, nil)

	key := KeyForUser(7)
	for i := 0; i < 2; i++ {
		result, err := manager.Allow(context.Background(), key)
		if err != nil {
			t.Fatalf("allow %d: %v", i+1, err)
		}
		if !result.Allowed {
			t.Fatalf("request %d denied", i+1)
		}
	}
	result, err := manager.Allow(context.Background(), key)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if result.Allowed {
		t.Fatal("over-limit request allowed")
	}
}

func TestKeyForUser(t *testing.T) {
	if got := KeyForUser(0); got != "" {
		t.Fatalf("zero user key = %q", got)
	}
	if got := KeyForUser(42); got != "u:42" {
		t.Fatalf("key = %q", got)
	}
}
