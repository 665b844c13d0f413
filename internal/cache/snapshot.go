package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/james-6-23/new-api-tools-sub000/internal/models"
)

// SnapshotCache stores serialized leaderboard results in redis so that a
// reconnecting operator sees data immediately while the first live fetch is
// in flight. Entries expire on a short TTL; callers bypassing the cache
// simply skip Get.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SnapshotCache{client: client, ttl: ttl}
}

func (c *SnapshotCache) Get(ctx context.Context, sortBy string) (*models.LeaderboardResult, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(sortBy)).Bytes()
	if err != nil {
		return nil, false
	}
	var result models.LeaderboardResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (c *SnapshotCache) Set(ctx context.Context, sortBy string, result *models.LeaderboardResult) {
	if c == nil || c.client == nil || result == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(sortBy), data, c.ttl)
}

func (c *SnapshotCache) key(sortBy string) string {
	return "risk:leaderboard:snapshot:" + sortBy
}
