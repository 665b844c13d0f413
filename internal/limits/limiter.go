package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// LoginLimiter throttles login attempts per client using fixed one-minute
// windows in redis. A nil limiter or client allows everything, so callers do
// not need to special-case disabled throttling.
type LoginLimiter struct {
	client    *redis.Client
	perMinute int
}

func NewLoginLimiter(client *redis.Client, perMinute int) *LoginLimiter {
	return &LoginLimiter{client: client, perMinute: perMinute}
}

// Allow records one attempt for the key and reports whether it stays within
// the per-minute budget.
func (l *LoginLimiter) Allow(ctx context.Context, key string) error {
	if l == nil || l.client == nil || l.perMinute <= 0 {
		return nil
	}
	return l.countCheck(ctx, fmt.Sprintf("risk:login:%s", key), time.Minute, l.perMinute)
}

func (l *LoginLimiter) countCheck(ctx context.Context, key string, ttl time.Duration, limit int) error {
	now := time.Now().UTC().Unix() / int64(ttl.Seconds())
	redisKey := fmt.Sprintf("%s:%d", key, now)

	cnt, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return err
	}
	if cnt == 1 {
		l.client.Expire(ctx, redisKey, ttl)
	}
	if int(cnt) > limit {
		return ErrLimitExceeded
	}
	return nil
}
