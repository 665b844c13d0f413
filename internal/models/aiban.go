package models

import "time"

// SuspiciousUser is one entry of the AI scanner's candidate list.
type SuspiciousUser struct {
	UserID       int64   `json:"user_id"`
	Username     string  `json:"username"`
	RequestCount int64   `json:"request_count"`
	FailureRate  float64 `json:"failure_rate"`
	IPCount      int     `json:"ip_count"`
	Flags        string  `json:"flags,omitempty"`
}

// Assessment is a single per-user AI risk verdict. Displayed transiently and
// never cached across navigation.
type Assessment struct {
	UserID            int64   `json:"user_id"`
	RiskScore         float64 `json:"risk_score"` // 0-10
	Confidence        float64 `json:"confidence"` // 0-1
	RecommendedAction string  `json:"recommended_action"`
	Reason            string  `json:"reason"`
}

// ScanResult is the terminal summary of one batch scan.
type ScanResult struct {
	Processed int `json:"processed"`
	Banned    int `json:"banned"`
	Warned    int `json:"warned"`
}

// ScannerConfig is the AI scanner connection settings held by the backend.
// APIKey is a secret: listing responses carry it masked unless the operator
// explicitly requests it revealed.
type ScannerConfig struct {
	Enabled bool   `json:"enabled"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
}

// ProbeResult reports a scanner connectivity test. Nothing is persisted by a
// probe.
type ProbeResult struct {
	OK        bool          `json:"ok"`
	Latency   time.Duration `json:"latency"`
	Model     string        `json:"model"`
	Prompt    string        `json:"prompt"`
	Reply     string        `json:"reply"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// ScanAuditLog is one historical scan/ban/unban record from the backend's
// scanner audit trail.
type ScanAuditLog struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	RiskScore float64   `json:"risk_score"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
