package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/james-6-23/new-api-tools-sub000/internal/config"
	"github.com/james-6-23/new-api-tools-sub000/internal/models"
)

// APIError is a backend-reported business failure: the transport round-trip
// succeeded but the envelope carried success:false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("upstream request failed with status %d", e.Status)
}

// Client consumes the remote risk API. Every response is a JSON envelope with
// a success flag and either data or a message.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(cfg config.UpstreamConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:   strings.TrimSpace(cfg.Token),
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Ping probes upstream connectivity with a cheap status round-trip.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/status", nil, nil, nil)
}

// Leaderboards fetches ranked entries for the requested windows in one call.
func (c *Client) Leaderboards(ctx context.Context, windows []models.Window, limit int, sortBy string, noCache bool) (*models.LeaderboardResult, error) {
	names := make([]string, 0, len(windows))
	for _, w := range windows {
		names = append(names, string(w))
	}
	q := url.Values{}
	q.Set("windows", strings.Join(names, ","))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if sortBy != "" {
		q.Set("sort_by", sortBy)
	}
	if noCache {
		q.Set("no_cache", "true")
	}

	var result models.LeaderboardResult
	if err := c.do(ctx, http.MethodGet, "/api/leaderboards", q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IPUsage fetches per-address activity within one window.
func (c *Client) IPUsage(ctx context.Context, window models.Window, limit int) ([]models.IPUsageEntry, error) {
	q := url.Values{}
	q.Set("window", string(window))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var entries []models.IPUsageEntry
	if err := c.do(ctx, http.MethodGet, "/api/risk/ip-usage", q, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ActivityStats fetches aggregate activity-bucket counters and the interval
// advisory.
func (c *Client) ActivityStats(ctx context.Context) (*models.ActivityStats, error) {
	var stats models.ActivityStats
	if err := c.do(ctx, http.MethodGet, "/api/users/activity-stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// BatchDeleteResult is the outcome of a batch-delete call, in either mode.
type BatchDeleteResult struct {
	Count   int      `json:"count"`
	Users   []string `json:"users,omitempty"`
	UserIDs []int64  `json:"user_ids,omitempty"`
	Deleted int      `json:"deleted,omitempty"`
}

// BatchDeleteUsers previews (dryRun true) or executes a batch deletion of
// users at one activity level.
func (c *Client) BatchDeleteUsers(ctx context.Context, activityLevel string, dryRun, hardDelete bool) (*BatchDeleteResult, error) {
	body := map[string]any{
		"activity_level": activityLevel,
		"dry_run":        dryRun,
		"hard_delete":    hardDelete,
	}
	var result BatchDeleteResult
	if err := c.do(ctx, http.MethodPost, "/api/users/batch-delete", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteUser previews or executes a single-user deletion.
func (c *Client) DeleteUser(ctx context.Context, userID int64, dryRun, hardDelete bool) (*BatchDeleteResult, error) {
	q := url.Values{}
	q.Set("dry_run", strconv.FormatBool(dryRun))
	q.Set("hard_delete", strconv.FormatBool(hardDelete))
	var result BatchDeleteResult
	path := fmt.Sprintf("/api/users/%d", userID)
	if err := c.do(ctx, http.MethodDelete, path, q, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BanUser bans one account, optionally disabling its tokens.
func (c *Client) BanUser(ctx context.Context, userID int64, reason string, disableTokens bool, actionContext string) error {
	body := map[string]any{
		"reason":         reason,
		"disable_tokens": disableTokens,
		"context":        actionContext,
	}
	path := fmt.Sprintf("/api/users/%d/ban", userID)
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

// UnbanUser lifts a ban, optionally re-enabling tokens.
func (c *Client) UnbanUser(ctx context.Context, userID int64, reason string, enableTokens bool, actionContext string) error {
	body := map[string]any{
		"reason":        reason,
		"enable_tokens": enableTokens,
		"context":       actionContext,
	}
	path := fmt.Sprintf("/api/users/%d/unban", userID)
	return c.do(ctx, http.MethodPost, path, nil, body, nil)
}

// BannedUsers lists currently banned accounts, paginated server-side.
func (c *Client) BannedUsers(ctx context.Context, page, pageSize int) (*models.Page[models.BannedUser], error) {
	var out models.Page[models.BannedUser]
	if err := c.do(ctx, http.MethodGet, "/api/users/banned", pageQuery(page, pageSize), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BanRecords lists historical ban/unban events, paginated server-side.
func (c *Client) BanRecords(ctx context.Context, page, pageSize int) (*models.Page[models.BanRecord], error) {
	var out models.Page[models.BanRecord]
	if err := c.do(ctx, http.MethodGet, "/api/risk/ban-records", pageQuery(page, pageSize), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuspiciousUsers lists scan candidates within one window.
func (c *Client) SuspiciousUsers(ctx context.Context, window models.Window) ([]models.SuspiciousUser, error) {
	q := url.Values{}
	q.Set("window", string(window))
	var users []models.SuspiciousUser
	if err := c.do(ctx, http.MethodGet, "/api/ai-ban/suspicious", q, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Assess requests one per-user AI risk assessment.
func (c *Client) Assess(ctx context.Context, userID int64, window models.Window) (*models.Assessment, error) {
	body := map[string]any{
		"user_id": userID,
		"window":  string(window),
	}
	var a models.Assessment
	if err := c.do(ctx, http.MethodPost, "/api/ai-ban/assess", nil, body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// RunScan triggers a batch scan over at most limit candidates.
func (c *Client) RunScan(ctx context.Context, window models.Window, limit int) (*models.ScanResult, error) {
	body := map[string]any{
		"window": string(window),
		"limit":  limit,
	}
	var result models.ScanResult
	if err := c.do(ctx, http.MethodPost, "/api/ai-ban/scan", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ScannerConfig fetches the stored AI scanner settings. The backend returns
// the API key in full; masking is the console's responsibility.
func (c *Client) ScannerConfig(ctx context.Context) (*models.ScannerConfig, error) {
	var cfg models.ScannerConfig
	if err := c.do(ctx, http.MethodGet, "/api/ai-ban/config", nil, nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveScannerConfig persists scanner settings.
func (c *Client) SaveScannerConfig(ctx context.Context, cfg models.ScannerConfig) error {
	return c.do(ctx, http.MethodPost, "/api/ai-ban/config", nil, cfg, nil)
}

// ScanAuditLogs lists the scanner's audit trail, paginated server-side.
func (c *Client) ScanAuditLogs(ctx context.Context, page, pageSize int) (*models.Page[models.ScanAuditLog], error) {
	var out models.Page[models.ScanAuditLog]
	if err := c.do(ctx, http.MethodGet, "/api/ai-ban/audit-logs", pageQuery(page, pageSize), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PurgeScanAuditLogs deletes the scanner audit trail, returning how many
// records were removed.
func (c *Client) PurgeScanAuditLogs(ctx context.Context) (int64, error) {
	var result struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/ai-ban/audit-logs", nil, nil, &result); err != nil {
		return 0, err
	}
	return result.Deleted, nil
}

func pageQuery(page, pageSize int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	return q
}
