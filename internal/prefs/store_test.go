package prefs

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/james-6-23/new-api-tools-sub000/internal/view"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	cleanup := func() {
		client.Close()
		server.Close()
	}
	return NewStore(client), cleanup
}

func TestRefreshIntervalRoundTrip(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, ok := store.RefreshInterval(ctx, "alice@example.com", view.Leaderboards); ok {
		t.Fatal("expected no stored preference")
	}

	if err := store.SetRefreshInterval(ctx, "alice@example.com", view.Leaderboards, 45); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok := store.RefreshInterval(ctx, "alice@example.com", view.Leaderboards)
	if !ok || got != 45 {
		t.Fatalf("got %d ok=%v, want 45", got, ok)
	}
}

func TestRefreshIntervalScopedPerOperatorAndView(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SetRefreshInterval(ctx, "alice@example.com", view.Leaderboards, 30); err != nil {
		t.Fatalf("set: %v", err)
	}

	if _, ok := store.RefreshInterval(ctx, "bob@example.com", view.Leaderboards); ok {
		t.Fatal("preference leaked across operators")
	}
	if _, ok := store.RefreshInterval(ctx, "alice@example.com", view.IPMonitoring); ok {
		t.Fatal("preference leaked across views")
	}
}

func TestClearRefreshIntervalRemovesKey(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SetRefreshInterval(ctx, "alice@example.com", view.IPMonitoring, 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.ClearRefreshInterval(ctx, "alice@example.com", view.IPMonitoring); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := store.RefreshInterval(ctx, "alice@example.com", view.IPMonitoring); ok {
		t.Fatal("cleared preference still readable")
	}
}
