package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/james-6-23/new-api-tools-sub000/internal/config"
	"github.com/james-6-23/new-api-tools-sub000/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := NewClient(config.UpstreamConfig{
		BaseURL: server.URL,
		Token:   "secret-token",
		Timeout: 5 * time.Second,
	})
	return client, server.Close
}

func wrap(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal response data: %v", err)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    json.RawMessage(raw),
	})
}

func TestLeaderboardsSendsQueryAndAuth(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.URL.Path != "/api/leaderboards" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("windows") != "1h,24h" {
			t.Errorf("unexpected windows %q", q.Get("windows"))
		}
		if q.Get("sort_by") != models.SortByQuota {
			t.Errorf("unexpected sort_by %q", q.Get("sort_by"))
		}
		if q.Get("no_cache") != "true" {
			t.Errorf("expected no_cache=true, got %q", q.Get("no_cache"))
		}
		wrap(t, w, models.LeaderboardResult{
			Windows: map[models.Window][]models.LeaderboardEntry{
				models.Window1h:  {{UserID: 1, Username: "alice"}},
				models.Window24h: {{UserID: 1, Username: "alice"}, {UserID: 2, Username: "bob"}},
			},
			SortBy: models.SortByQuota,
		})
	})
	defer closeFn()

	result, err := client.Leaderboards(context.Background(), []models.Window{models.Window1h, models.Window24h}, 100, models.SortByQuota, true)
	if err != nil {
		t.Fatalf("leaderboards: %v", err)
	}
	if len(result.Windows[models.Window24h]) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestEnvelopeFailureBecomesAPIError(t *testing.T) {
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "insufficient privileges",
		})
	})
	defer closeFn()

	_, err := client.ActivityStats(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Message != "insufficient privileges" {
		t.Fatalf("unexpected APIError %+v", apiErr)
	}
}

func TestBatchDeleteSendsMode(t *testing.T) {
	var body map[string]any
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/users/batch-delete" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		wrap(t, w, BatchDeleteResult{Count: 3, UserIDs: []int64{1, 2, 3}})
	})
	defer closeFn()

	result, err := client.BatchDeleteUsers(context.Background(), "inactive", true, true)
	if err != nil {
		t.Fatalf("batch delete: %v", err)
	}
	if result.Count != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if body["dry_run"] != true || body["hard_delete"] != true || body["activity_level"] != "inactive" {
		t.Fatalf("unexpected request body %+v", body)
	}
}

func TestBanUserPostsReason(t *testing.T) {
	var path string
	var body map[string]any
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	defer closeFn()

	if err := client.BanUser(context.Background(), 42, "abuse", true, "leaderboard"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if path != "/api/users/42/ban" {
		t.Fatalf("unexpected path %q", path)
	}
	if body["reason"] != "abuse" || body["disable_tokens"] != true {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestPingUsesStatusEndpoint(t *testing.T) {
	var path string
	client, closeFn := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	defer closeFn()

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if path != "/api/status" {
		t.Fatalf("unexpected path %q", path)
	}
}
