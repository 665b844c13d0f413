package leaderboard

import (
	"sync"
	"time"

	"github.com/james-6-23/new-api-tools-sub000/internal/models"
)

// Cache holds one ordered result list per time window. Entries keep backend
// order; the cache never re-sorts. Writes are guarded by per-window sequence
// numbers so a stale in-flight response can never clobber a newer one: results
// apply in completion order but only while the issuing ticket still holds the
// latest sequence for that window.
type Cache struct {
	mu        sync.Mutex
	entries   map[models.Window][]models.LeaderboardEntry
	issued    map[models.Window]uint64
	fetchedAt map[models.Window]time.Time
}

// Ticket records the sequence numbers issued to one fetch.
type Ticket struct {
	seqs map[models.Window]uint64
}

func NewCache() *Cache {
	return &Cache{
		entries:   make(map[models.Window][]models.LeaderboardEntry),
		issued:    make(map[models.Window]uint64),
		fetchedAt: make(map[models.Window]time.Time),
	}
}

// BeginFull opens a wholesale refresh spanning every window.
func (c *Cache) BeginFull() Ticket {
	return c.begin(models.Windows())
}

// BeginWindow opens a partial refresh for a single window. Windows not named
// here are untouched by the eventual commit.
func (c *Cache) BeginWindow(w models.Window) Ticket {
	return c.begin([]models.Window{w})
}

func (c *Cache) begin(windows []models.Window) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Ticket{seqs: make(map[models.Window]uint64, len(windows))}
	for _, w := range windows {
		c.issued[w]++
		t.seqs[w] = c.issued[w]
	}
	return t
}

// CommitFull replaces the cached entries of every window covered by the
// ticket, skipping windows superseded by a later-issued fetch. It reports
// whether any window was applied.
func (c *Cache) CommitFull(t Ticket, windows map[models.Window][]models.LeaderboardEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	applied := false
	now := time.Now()
	for w, entries := range windows {
		seq, ok := t.seqs[w]
		if !ok || seq != c.issued[w] {
			continue
		}
		c.entries[w] = entries
		c.fetchedAt[w] = now
		applied = true
	}
	return applied
}

// CommitWindow replaces only the named window's entries. Every other window's
// cached data stays untouched, so a per-window manual refresh never resets
// unrelated lists. A stale ticket is dropped silently.
func (c *Cache) CommitWindow(t Ticket, w models.Window, entries []models.LeaderboardEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq, ok := t.seqs[w]
	if !ok || seq != c.issued[w] {
		return false
	}
	c.entries[w] = entries
	c.fetchedAt[w] = time.Now()
	return true
}

// Window returns a copy of the cached entries for one window.
func (c *Cache) Window(w models.Window) ([]models.LeaderboardEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.entries[w]
	if !ok {
		return nil, false
	}
	out := make([]models.LeaderboardEntry, len(entries))
	copy(out, entries)
	return out, true
}

// Snapshot returns a copy of every cached window. Top-N truncation is a view
// concern; the cache always exposes the full list for export and paging.
func (c *Cache) Snapshot() map[models.Window][]models.LeaderboardEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[models.Window][]models.LeaderboardEntry, len(c.entries))
	for w, entries := range c.entries {
		cp := make([]models.LeaderboardEntry, len(entries))
		copy(cp, entries)
		out[w] = cp
	}
	return out
}

// FetchedAt reports when a window's entries were last committed.
func (c *Cache) FetchedAt(w models.Window) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.fetchedAt[w]
	return ts, ok
}

// RemoveUsers drops matching rows from every cached window, returning how
// many rows were removed. Used as the optimistic local update after a
// completed delete so the table reflects the mutation without a full refetch.
func (c *Cache) RemoveUsers(userIDs []int64) int {
	if len(userIDs) == 0 {
		return 0
	}
	drop := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		drop[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for w, entries := range c.entries {
		kept := entries[:0]
		for _, e := range entries {
			if _, gone := drop[e.UserID]; gone {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		c.entries[w] = kept
	}
	return removed
}

// FlagUsers rewrites the account status of matching rows in place, the
// optimistic update after a completed ban or unban.
func (c *Cache) FlagUsers(userIDs []int64, status string) int {
	if len(userIDs) == 0 {
		return 0
	}
	mark := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		mark[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	flagged := 0
	for _, entries := range c.entries {
		for i := range entries {
			if _, ok := mark[entries[i].UserID]; ok {
				entries[i].Status = status
				flagged++
			}
		}
	}
	return flagged
}
