package models

import "time"

// BannedUser is one row of the banned accounts listing.
type BannedUser struct {
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	Reason         string    `json:"reason"`
	BannedBy       string    `json:"banned_by"`
	TokensDisabled bool      `json:"tokens_disabled"`
	BannedAt       time.Time `json:"banned_at"`
}

// BanRecord is one historical ban/unban event.
type BanRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"` // "ban" or "unban"
	Reason    string    `json:"reason"`
	Source    string    `json:"source"` // "manual" or "auto"
	CreatedAt time.Time `json:"created_at"`
}

// Page wraps a server-side paginated listing. Only the displayed page is held
// client-side; navigation refetches.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// ActivityBucket is an aggregate count of users at one activity level.
type ActivityBucket struct {
	Level string `json:"level"`
	Count int64  `json:"count"`
}

// ActivityStats carries aggregate counters the console cannot recompute from
// loaded rows, plus a one-time refresh-interval advisory scaled to deployment
// size.
type ActivityStats struct {
	Buckets                   []ActivityBucket `json:"buckets"`
	TotalUsers                int64            `json:"total_users"`
	RecommendedRefreshSeconds int              `json:"recommended_refresh_seconds"`
}
