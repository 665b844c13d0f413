package prefs

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/james-6-23/new-api-tools-sub000/internal/view"
)

// Store persists small per-operator, per-view scalar settings. Writes are
// last-write-wins; they only originate from direct operator interaction, so
// no coordination beyond redis itself is needed.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// RefreshInterval returns the operator's stored interval for a view in
// seconds. ok is false when no explicit value was ever stored, meaning the
// caller should fall back to the system default.
func (s *Store) RefreshInterval(ctx context.Context, operator string, v view.View) (int, bool) {
	if s == nil || s.client == nil {
		return 0, false
	}
	raw, err := s.client.Get(ctx, refreshKey(operator, v)).Result()
	if err != nil {
		return 0, false
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0, false
	}
	return secs, true
}

// SetRefreshInterval stores an explicit interval choice.
func (s *Store) SetRefreshInterval(ctx context.Context, operator string, v view.View, seconds int) error {
	if s == nil || s.client == nil {
		return nil
	}
	if seconds < 0 {
		return fmt.Errorf("refresh interval must be >= 0, got %d", seconds)
	}
	return s.client.Set(ctx, refreshKey(operator, v), strconv.Itoa(seconds), 0).Err()
}

// ClearRefreshInterval removes the stored value so future sessions fall back
// to the system-recommended default rather than an explicit "off".
func (s *Store) ClearRefreshInterval(ctx context.Context, operator string, v view.View) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, refreshKey(operator, v)).Err()
}

func refreshKey(operator string, v view.View) string {
	return fmt.Sprintf("risk:prefs:%s:%s:refresh_interval", operator, v)
}
