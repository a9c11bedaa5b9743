package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) (Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Limiter{Client: client, Prefix: "rl:"}, mr
}

func TestLimiterSlidingWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t)
	ctx := context.Background()
	window := 2 * time.Second

	for i := 0; i < 2; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "cart-1", window, 2)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("event %d should be under the limit", i)
		}
		if remaining != 1-i {
			t.Fatalf("event %d: remaining = %d", i, remaining)
		}
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "cart-1", window, 2)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if allowed || remaining != 0 {
		t.Fatalf("third event should be rejected with 0 remaining, got allowed=%v remaining=%d", allowed, remaining)
	}

	// Another key keeps its own budget.
	if allowed, _, _, _ := limiter.Allow(ctx, "cart-2", window, 2); !allowed {
		t.Fatal("separate key should not share the window")
	}

	mr.FastForward(window)
	if allowed, _, _, _ := limiter.Allow(ctx, "cart-1", window, 2); !allowed {
		t.Fatal("window should have slid past the old events")
	}
}

func TestLimiterDisabledWithoutClient(t *testing.T) {
	limiter := Limiter{}
	allowed, _, _, err := limiter.Allow(context.Background(), "any", time.Second, 5)
	if err != nil || !allowed {
		t.Fatalf("nil client should disable enforcement, got allowed=%v err=%v", allowed, err)
	}
}
