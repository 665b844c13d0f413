package leaderboard

import (
	"testing"

	"github.com/james-6-23/new-api-tools-sub000/internal/models"
)

func entries(ids ...int64) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.LeaderboardEntry{UserID: id, Status: "active"})
	}
	return out
}

func windowsFor(ids ...int64) map[models.Window][]models.LeaderboardEntry {
	out := make(map[models.Window][]models.LeaderboardEntry)
	for _, w := range models.Windows() {
		out[w] = entries(ids...)
	}
	return out
}

func TestCommitWindowLeavesOthersUntouched(t *testing.T) {
	c := NewCache()
	c.CommitFull(c.BeginFull(), windowsFor(1, 2, 3))

	ticket := c.BeginWindow(models.Window1h)
	c.CommitWindow(ticket, models.Window1h, entries(9))

	oneHour, _ := c.Window(models.Window1h)
	if len(oneHour) != 1 || oneHour[0].UserID != 9 {
		t.Fatalf("1h window not replaced: %+v", oneHour)
	}
	daily, _ := c.Window(models.Window24h)
	if len(daily) != 3 {
		t.Fatalf("24h window disturbed by partial refresh: %+v", daily)
	}
}

func TestStaleFullCommitDropped(t *testing.T) {
	c := NewCache()
	stale := c.BeginFull()
	fresh := c.BeginFull()

	if !c.CommitFull(fresh, windowsFor(7)) {
		t.Fatal("fresh commit should apply")
	}
	if c.CommitFull(stale, windowsFor(1)) {
		t.Fatal("stale commit must be dropped")
	}
	got, _ := c.Window(models.Window24h)
	if got[0].UserID != 7 {
		t.Fatalf("stale data clobbered fresh: %+v", got)
	}
}

func TestStaleWindowCommitDropped(t *testing.T) {
	c := NewCache()
	stale := c.BeginWindow(models.Window3h)
	fresh := c.BeginWindow(models.Window3h)

	if !c.CommitWindow(fresh, models.Window3h, entries(7)) {
		t.Fatal("fresh commit should apply")
	}
	if c.CommitWindow(stale, models.Window3h, entries(1)) {
		t.Fatal("stale commit must be dropped")
	}
	got, _ := c.Window(models.Window3h)
	if got[0].UserID != 7 {
		t.Fatalf("stale data clobbered fresh: %+v", got)
	}
}

func TestWindowRefreshDoesNotInvalidateFullFetch(t *testing.T) {
	// A single-window refresh must not stop an older full fetch from
	// populating other windows.
	c := NewCache()
	full := c.BeginFull()
	single := c.BeginWindow(models.Window1h)

	c.CommitWindow(single, models.Window1h, entries(9))
	if !c.CommitFull(full, windowsFor(1, 2)) {
		t.Fatal("full commit should still apply to unsuperseded windows")
	}

	oneHour, _ := c.Window(models.Window1h)
	if len(oneHour) != 1 || oneHour[0].UserID != 9 {
		t.Fatalf("newer single-window data overwritten: %+v", oneHour)
	}
	weekly, _ := c.Window(models.Window7d)
	if len(weekly) != 2 {
		t.Fatalf("full fetch did not populate untouched window: %+v", weekly)
	}
}

func TestRemoveUsersDropsFromEveryWindow(t *testing.T) {
	c := NewCache()
	c.CommitFull(c.BeginFull(), windowsFor(1, 2, 3))

	removed := c.RemoveUsers([]int64{2})
	if removed != len(models.Windows()) {
		t.Fatalf("expected one removal per window, got %d", removed)
	}
	for _, w := range models.Windows() {
		got, _ := c.Window(w)
		for _, e := range got {
			if e.UserID == 2 {
				t.Fatalf("user 2 still present in window %s", w)
			}
		}
		if len(got) != 2 {
			t.Fatalf("window %s has %d rows, want 2", w, len(got))
		}
	}
}

func TestFlagUsersRewritesStatusInPlace(t *testing.T) {
	c := NewCache()
	c.CommitFull(c.BeginFull(), windowsFor(1, 2))

	flagged := c.FlagUsers([]int64{1}, "banned")
	if flagged != len(models.Windows()) {
		t.Fatalf("expected one flag per window, got %d", flagged)
	}
	got, _ := c.Window(models.Window24h)
	for _, e := range got {
		switch e.UserID {
		case 1:
			if e.Status != "banned" {
				t.Fatalf("user 1 status %q, want banned", e.Status)
			}
		default:
			if e.Status != "active" {
				t.Fatalf("user %d status changed unexpectedly", e.UserID)
			}
		}
	}
}

func TestWindowReturnsCopy(t *testing.T) {
	c := NewCache()
	c.CommitFull(c.BeginFull(), windowsFor(1))

	got, _ := c.Window(models.Window24h)
	got[0].Status = "mutated"

	again, _ := c.Window(models.Window24h)
	if again[0].Status != "active" {
		t.Fatal("Window must return a copy, not the cached slice")
	}
}
