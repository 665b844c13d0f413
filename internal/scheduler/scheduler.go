package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// PersistFunc durably stores an explicitly chosen interval. Clear is true when
// auto refresh was turned off, in which case the stored key must be removed so
// a future session falls back to the system default.
type PersistFunc func(ctx context.Context, seconds int, clear bool)

// Scheduler drives the auto refresh of one view. A one second cadence
// decrements a countdown; on reaching zero it invokes the refresh callback and
// resets to the interval configured at that moment, never a value captured at
// construction time.
type Scheduler struct {
	mu        sync.Mutex
	interval  int // seconds; 0 disables ticking
	countdown int
	explicit  bool // operator has explicitly chosen a value
	running   bool
	cancel    context.CancelFunc

	onTick  func()
	persist PersistFunc
	logger  *slog.Logger
}

// Options configure a scheduler for one view.
type Options struct {
	IntervalSeconds int
	// Explicit marks IntervalSeconds as an operator choice restored from the
	// preference store, shielding it from recommended-interval advisories.
	Explicit bool
	OnTick   func()
	Persist  PersistFunc
	Logger   *slog.Logger
}

func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.IntervalSeconds
	if interval < 0 {
		interval = 0
	}
	return &Scheduler{
		interval:  interval,
		countdown: interval,
		explicit:  opts.Explicit,
		onTick:    opts.OnTick,
		persist:   opts.Persist,
		logger:    logger,
	}
}

// Start begins ticking until Stop or context cancellation. Restarting an
// inactive scheduler begins again from a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.countdown = s.interval
	s.mu.Unlock()

	go s.run(loopCtx)
}

// Stop halts ticking. In-flight refresh callbacks are not interrupted; their
// results are superseded by cache sequencing rather than blocked on.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances the countdown by one second. At zero the refresh callback
// fires and the countdown resets to the interval configured right now. A
// callback that fails must handle its own error reporting; the cadence
// continues regardless.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	if s.interval <= 0 {
		s.mu.Unlock()
		return
	}
	fire := false
	s.countdown--
	if s.countdown <= 0 {
		s.countdown = 0
		fire = true
	}
	tick := s.onTick
	s.mu.Unlock()

	if !fire {
		return
	}
	if tick != nil {
		tick()
	}
	s.mu.Lock()
	// Reset against the live interval; the operator may have changed it while
	// the callback ran.
	s.countdown = s.interval
	s.mu.Unlock()
}

// SetIntervalSeconds records an explicit operator choice. The countdown resets
// to the new value immediately; zero disables ticking and clears the persisted
// key instead of storing an explicit "off".
func (s *Scheduler) SetIntervalSeconds(ctx context.Context, seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	s.mu.Lock()
	s.interval = seconds
	s.countdown = seconds
	s.explicit = true
	persist := s.persist
	s.mu.Unlock()

	if persist != nil {
		persist(ctx, seconds, seconds == 0)
	}
}

// ApplyRecommended adjusts the default interval from a deployment-scale
// advisory. It never overrides a value the operator has explicitly set.
func (s *Scheduler) ApplyRecommended(seconds int) bool {
	if seconds <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.explicit {
		return false
	}
	if s.interval == seconds {
		return false
	}
	s.interval = seconds
	s.countdown = seconds
	s.logger.Debug("applied recommended refresh interval", "seconds", seconds)
	return true
}

// ManualRefresh fires the refresh callback immediately and resets the
// countdown so the next scheduled refresh cannot land within the same second.
func (s *Scheduler) ManualRefresh() {
	s.mu.Lock()
	s.countdown = s.interval
	tick := s.onTick
	s.mu.Unlock()
	if tick != nil {
		tick()
	}
}

// ResetCountdown winds the countdown back to the full interval without firing
// the callback, for manual refreshes whose fetch the caller issues itself.
func (s *Scheduler) ResetCountdown() {
	s.mu.Lock()
	s.countdown = s.interval
	s.mu.Unlock()
}

// Countdown returns the live countdown and configured interval in seconds.
func (s *Scheduler) Countdown() (remaining, interval int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown, s.interval
}

// IntervalSeconds returns the configured interval.
func (s *Scheduler) IntervalSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}
