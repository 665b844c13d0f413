package health

import (
	"context"
	"sync"
	"time"

	"github.com/james-6-23/new-api-tools-sub000/internal/config"
	"github.com/james-6-23/new-api-tools-sub000/internal/upstream"
)

// Status is the last observed state of the upstream risk API.
type Status struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	Latency   string    `json:"latency"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor periodically pings the upstream risk API so readiness checks do not
// probe it inline on every request.
type Monitor struct {
	client   *upstream.Client
	interval time.Duration
	timeout  time.Duration

	mu        sync.RWMutex
	status    Status
	startOnce sync.Once
}

func NewMonitor(client *upstream.Client, cfg config.HealthConfig) *Monitor {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 || timeout > interval {
		timeout = 5 * time.Second
	}
	return &Monitor{client: client, interval: interval, timeout: timeout}
}

// Start begins the monitoring loop until ctx is canceled.
func (m *Monitor) Start(ctx context.Context) {
	if m.client == nil {
		return
	}
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Initial probe
	m.check(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	timeoutCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := m.client.Ping(timeoutCtx)
	status := Status{
		Healthy:   err == nil,
		Latency:   time.Since(start).Round(time.Millisecond).String(),
		CheckedAt: time.Now(),
	}
	if err != nil {
		status.Error = err.Error()
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

// Current returns the last probe result. Before the first probe completes the
// zero Status reports unhealthy with no error, which readiness treats as not
// ready yet.
func (m *Monitor) Current() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
