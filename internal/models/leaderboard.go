package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Window is a fixed lookback duration scoping a leaderboard query.
type Window string

const (
	Window1h  Window = "1h"
	Window3h  Window = "3h"
	Window6h  Window = "6h"
	Window12h Window = "12h"
	Window24h Window = "24h"
	Window3d  Window = "3d"
	Window7d  Window = "7d"
)

// Windows lists every supported window in ascending duration order.
func Windows() []Window {
	return []Window{Window1h, Window3h, Window6h, Window12h, Window24h, Window3d, Window7d}
}

// ValidWindow reports whether w names a supported window.
func ValidWindow(w Window) bool {
	switch w {
	case Window1h, Window3h, Window6h, Window12h, Window24h, Window3d, Window7d:
		return true
	}
	return false
}

// Sort keys accepted by the leaderboard query. A different sort key is a
// different backend query, not a client-side transform.
const (
	SortByRequests    = "requests"
	SortByQuota       = "quota"
	SortByFailureRate = "failure_rate"
)

// ValidSortBy reports whether s is an accepted leaderboard sort key.
func ValidSortBy(s string) bool {
	switch s {
	case SortByRequests, SortByQuota, SortByFailureRate:
		return true
	}
	return false
}

// LeaderboardEntry is one ranked row as produced by the backend. Fields are
// never recomputed locally; the only local mutation is removing or flagging a
// row after a completed ban/unban/delete, pending the next refresh.
type LeaderboardEntry struct {
	UserID           int64           `json:"user_id"`
	Username         string          `json:"username"`
	DisplayName      string          `json:"display_name,omitempty"`
	Status           string          `json:"status"`
	RequestCount     int64           `json:"request_count"`
	FailureCount     int64           `json:"failure_count"`
	FailureRate      float64         `json:"failure_rate"`
	QuotaConsumed    decimal.Decimal `json:"quota_consumed"`
	PromptTokens     int64           `json:"prompt_tokens"`
	CompletionTokens int64           `json:"completion_tokens"`
	IPCount          int             `json:"ip_count"`
}

// LeaderboardResult is a multi-window leaderboard response.
type LeaderboardResult struct {
	Windows     map[Window][]LeaderboardEntry `json:"windows"`
	SortBy      string                        `json:"sort_by"`
	GeneratedAt time.Time                     `json:"generated_at"`
}

// IPUsageEntry summarizes request activity from one address within a window.
type IPUsageEntry struct {
	IP           string    `json:"ip"`
	UserCount    int       `json:"user_count"`
	RequestCount int64     `json:"request_count"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
}
