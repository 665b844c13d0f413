package aiban

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
	"github.com/james-6-23/new-api-tools-sub000/internal/upstream"
)

func TestMaskKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"short", "********"},
		{"12345678", "********"},
		{"sk-abcdef1234567890", "sk-a****7890"},
		{"  sk-abcdef1234567890  ", "sk-a****7890"},
	}
	for _, tc := range cases {
		if got := MaskKey(tc.in); got != tc.want {
			t.Fatalf("MaskKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	client := upstream.NewClient(config.UpstreamConfig{BaseURL: server.URL, Timeout: 5 * time.Second})
	svc := NewService(client, config.ScannerConfig{ProbeTimeout: time.Second, ProbePrompt: "ping"}, nil)
	return svc, server.Close
}

func TestSaveConfigValidation(t *testing.T) {
	svc, closeFn := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid config must never reach upstream")
	})
	defer closeFn()

	err := svc.SaveConfig(context.Background(), models.ScannerConfig{APIKey: "sk-x"})
	if err == nil {
		t.Fatal("expected base url error")
	}
	err = svc.SaveConfig(context.Background(), models.ScannerConfig{BaseURL: "https://api.example.com"})
	if !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
}

func TestConfigMasksKeyByDefault(t *testing.T) {
	svc, closeFn := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := json.Marshal(models.ScannerConfig{
			Enabled: true,
			BaseURL: "https://api.example.com",
			APIKey:  "sk-abcdef1234567890",
			Model:   "gpt-4o-mini",
		})
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": json.RawMessage(raw)})
	})
	defer closeFn()

	cfg, err := svc.Config(context.Background(), false)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.APIKey != "sk-a****7890" {
		t.Fatalf("key not masked: %q", cfg.APIKey)
	}

	cfg, err = svc.Config(context.Background(), true)
	if err != nil {
		t.Fatalf("config reveal: %v", err)
	}
	if cfg.APIKey != "sk-abcdef1234567890" {
		t.Fatalf("revealed key altered: %q", cfg.APIKey)
	}
}

func TestRunScanSingleFlight(t *testing.T) {
	release := make(chan struct{})
	svc, closeFn := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		raw, _ := json.Marshal(models.ScanResult{Processed: 5, Banned: 1, Warned: 2})
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": json.RawMessage(raw)})
	})
	defer closeFn()

	done := make(chan error, 1)
	go func() {
		_, err := svc.RunScan(context.Background(), models.Window24h, 50)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !svc.Scanning() {
		if time.Now().After(deadline) {
			t.Fatal("scan never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := svc.RunScan(context.Background(), models.Window24h, 50); !errors.Is(err, ErrScanInFlight) {
		t.Fatalf("expected ErrScanInFlight, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if svc.Scanning() {
		t.Fatal("scanning flag not cleared")
	}
}

func TestTestConfigRequiresKey(t *testing.T) {
	svc, closeFn := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	defer closeFn()

	result := svc.TestConfig(context.Background(), models.ScannerConfig{Model: "gpt-4o-mini"})
	if result.OK {
		t.Fatal("probe without key must not succeed")
	}
	if result.Error != ErrKeyRequired.Error() {
		t.Fatalf("unexpected error %q", result.Error)
	}
}
