package aiban

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/james-6-23/new-api-tools-sub000/internal/config"
	"github.com/james-6-23/new-api-tools-sub000/internal/models"
	"github.com/james-6-23/new-api-tools-sub000/internal/upstream"
)

var (
	ErrScanInFlight = errors.New("a scan is already running")
	ErrKeyRequired  = errors.New("scanner api key required")
)

// Service orchestrates the AI abuse scanner: candidate listing, per-user
// assessments, batch scans, and the validate-then-save configuration
// round-trip.
type Service struct {
	client *upstream.Client
	logger *slog.Logger
	probe  config.ScannerConfig

	mu       sync.Mutex
	scanning bool
}

func NewService(client *upstream.Client, probe config.ScannerConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, probe: probe, logger: logger}
}

// ListSuspicious returns a read-only snapshot of scan candidates. Staleness
// across repeated calls is acceptable.
func (s *Service) ListSuspicious(ctx context.Context, window models.Window) ([]models.SuspiciousUser, error) {
	return s.client.SuspiciousUsers(ctx, window)
}

// Assess requests a single per-user risk verdict. Assessments for different
// users may run concurrently; results are transient and never cached.
func (s *Service) Assess(ctx context.Context, userID int64, window models.Window) (*models.Assessment, error) {
	return s.client.Assess(ctx, userID, window)
}

// Scanning reports whether a batch scan is outstanding.
func (s *Service) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// RunScan triggers one batch scan. Re-triggering while a scan is outstanding
// is rejected rather than queued.
func (s *Service) RunScan(ctx context.Context, window models.Window, limit int) (*models.ScanResult, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, ErrScanInFlight
	}
	s.scanning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	result, err := s.client.RunScan(ctx, window, limit)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ai scan finished",
		"window", window,
		"processed", result.Processed,
		"banned", result.Banned,
		"warned", result.Warned)
	return result, nil
}

// Config fetches the stored scanner settings. The API key is masked unless
// the operator explicitly asked for it to be revealed.
func (s *Service) Config(ctx context.Context, reveal bool) (*models.ScannerConfig, error) {
	cfg, err := s.client.ScannerConfig(ctx)
	if err != nil {
		return nil, err
	}
	if !reveal {
		cfg.APIKey = MaskKey(cfg.APIKey)
	}
	return cfg, nil
}

// SaveConfig persists scanner settings upstream. Saving is always explicit;
// the connectivity probe never writes.
func (s *Service) SaveConfig(ctx context.Context, cfg models.ScannerConfig) error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return errors.New("scanner base url required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return ErrKeyRequired
	}
	return s.client.SaveScannerConfig(ctx, cfg)
}

// TestConfig probes the candidate settings with one round-trip chat
// completion and reports latency plus the sample exchange. Nothing is
// persisted.
func (s *Service) TestConfig(ctx context.Context, cfg models.ScannerConfig) *models.ProbeResult {
	result := &models.ProbeResult{
		Model:     cfg.Model,
		Prompt:    s.probe.ProbePrompt,
		CheckedAt: time.Now(),
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		result.Error = ErrKeyRequired.Error()
		return result
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")))
	}
	client := openai.NewClient(opts...)

	probeCtx, cancel := context.WithTimeout(ctx, s.probe.ProbeTimeout)
	defer cancel()

	start := time.Now()
	resp, err := client.Chat.Completions.New(probeCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(s.probe.ProbePrompt),
		},
	})
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if len(resp.Choices) > 0 {
		result.Reply = resp.Choices[0].Message.Content
	}
	result.OK = true
	return result
}

// AuditLogs lists the scanner's historical records. Pagination stays
// server-side; the console never assumes it can hold the full history.
func (s *Service) AuditLogs(ctx context.Context, page, pageSize int) (*models.Page[models.ScanAuditLog], error) {
	return s.client.ScanAuditLogs(ctx, page, pageSize)
}

// MaskKey redacts a secret for display, keeping just enough prefix to
// recognize which key is stored.
func MaskKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s****%s", key[:4], key[len(key)-4:])
}
