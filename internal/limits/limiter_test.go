package limits

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, perMinute int) (*LoginLimiter, func()) {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	limiter := NewLoginLimiter(client, perMinute)
	cleanup := func() {
		client.Close()
		server.Close()
	}
	return limiter, cleanup
}

func TestLoginLimiterEnforcesPerMinute(t *testing.T) {
	limiter, cleanup := newTestLimiter(t, 2)
	defer cleanup()

	ctx := context.Background()
	key := "10.0.0.1"

	if err := limiter.Allow(ctx, key); err != nil {
		t.Fatalf("first attempt should pass: %v", err)
	}
	if err := limiter.Allow(ctx, key); err != nil {
		t.Fatalf("second attempt should pass: %v", err)
	}
	if err := limiter.Allow(ctx, key); err != ErrLimitExceeded {
		t.Fatalf("expected limit error, got %v", err)
	}
}

func TestLoginLimiterKeysAreIndependent(t *testing.T) {
	limiter, cleanup := newTestLimiter(t, 1)
	defer cleanup()

	ctx := context.Background()
	if err := limiter.Allow(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("first key should pass: %v", err)
	}
	if err := limiter.Allow(ctx, "10.0.0.2"); err != nil {
		t.Fatalf("second key should pass: %v", err)
	}
	if err := limiter.Allow(ctx, "10.0.0.1"); err != ErrLimitExceeded {
		t.Fatalf("expected limit error for exhausted key, got %v", err)
	}
}

func TestLoginLimiterDisabledAllowsEverything(t *testing.T) {
	var limiter *LoginLimiter
	if err := limiter.Allow(context.Background(), "anyone"); err != nil {
		t.Fatalf("nil limiter should allow: %v", err)
	}

	limiter, cleanup := newTestLimiter(t, 0)
	defer cleanup()
	for i := 0; i < 20; i++ {
		if err := limiter.Allow(context.Background(), "anyone"); err != nil {
			t.Fatalf("zero budget disables throttling: %v", err)
		}
	}
}
