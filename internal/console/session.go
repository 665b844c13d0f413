package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/james-6-23/new-api-tools-sub000/internal/cache"
	"github.com/james-6-23/new-api-tools-sub000/internal/config"
	"github.com/james-6-23/new-api-tools-sub000/internal/journal"
	"github.com/james-6-23/new-api-tools-sub000/internal/leaderboard"
	"github.com/james-6-23/new-api-tools-sub000/internal/models"
	"github.com/james-6-23/new-api-tools-sub000/internal/observability"
	"github.com/james-6-23/new-api-tools-sub000/internal/prefs"
	"github.com/james-6-23/new-api-tools-sub000/internal/scheduler"
	"github.com/james-6-23/new-api-tools-sub000/internal/upstream"
	"github.com/james-6-23/new-api-tools-sub000/internal/view"
	"github.com/james-6-23/new-api-tools-sub000/internal/workflow"
)

const defaultFetchLimit = 100

// Deps are the process-wide collaborators shared by every session.
type Deps struct {
	Config    *config.Config
	Upstream  *upstream.Client
	Prefs     *prefs.Store
	Journal   *journal.Store
	Snapshots *cache.SnapshotCache
	Metrics   *observability.Provider
	Logger    *slog.Logger
}

// Session is the single owned state object behind one operator's risk center
// screen: active view, history, per-view schedulers, leaderboard and IP
// caches, and the live confirmation workflows. Created on mount, torn down on
// Close; nothing lives in ambient package scope.
type Session struct {
	id       uuid.UUID
	operator string
	deps     Deps
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	router     *view.Router
	history    *view.MemoryHistory
	lbCache    *leaderboard.Cache
	workflows  *workflow.Registry
	schedulers map[view.View]*scheduler.Scheduler

	mu           sync.Mutex
	sortBy       string
	ipEntries    []models.IPUsageEntry
	ipIssued     uint64
	stats        *models.ActivityStats
	lastSeen     time.Time
	advisoryOnce sync.Once
}

// NewSession mounts a session for one operator arriving at the given address.
func NewSession(deps Deps, operator, initialPath, initialHash string) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		id:       uuid.New(),
		operator: operator,
		deps:     deps,
		logger:   logger.With("operator", operator),
		ctx:      ctx,
		cancel:   cancel,
		lbCache:  leaderboard.NewCache(),
		sortBy:   models.SortByRequests,
		lastSeen: time.Now(),
	}
	s.history = view.NewMemoryHistory(initialPath)
	s.router = view.NewRouter(s.history)
	s.workflows = workflow.NewRegistry(workflow.Hooks{
		Preview:   s.previewAction,
		Execute:   s.executeAction,
		OnSuccess: s.applyActionResult,
	}, s.logger)

	s.schedulers = map[view.View]*scheduler.Scheduler{
		view.Leaderboards: s.newScheduler(ctx, view.Leaderboards, deps.Config.Refresh.LeaderboardSeconds,
			func() { s.refreshLeaderboards("scheduled") }),
		view.IPMonitoring: s.newScheduler(ctx, view.IPMonitoring, deps.Config.Refresh.IPMonitoringSeconds,
			func() { s.refreshIPUsage("scheduled") }),
	}

	res := s.router.ResolveInitial(initialPath, initialHash)
	if sched, ok := s.schedulers[res.View]; ok {
		sched.Start(ctx)
	}
	return s
}

func (s *Session) newScheduler(ctx context.Context, v view.View, defaultSeconds int, onTick func()) *scheduler.Scheduler {
	interval := defaultSeconds
	explicit := false
	if stored, ok := s.deps.Prefs.RefreshInterval(ctx, s.operator, v); ok {
		interval = stored
		explicit = true
	}
	return scheduler.New(scheduler.Options{
		IntervalSeconds: interval,
		Explicit:        explicit,
		OnTick:          onTick,
		Persist: func(ctx context.Context, seconds int, clear bool) {
			var err error
			if clear {
				err = s.deps.Prefs.ClearRefreshInterval(ctx, s.operator, v)
			} else {
				err = s.deps.Prefs.SetRefreshInterval(ctx, s.operator, v, seconds)
			}
			if err != nil {
				s.logger.Warn("persist refresh interval failed", "view", v, "error", err)
			}
		},
		Logger: s.logger,
	})
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Operator returns the owning operator.
func (s *Session) Operator() string { return s.operator }

// Touch records activity for idle eviction.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// LastSeen reports the most recent operator activity.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// CurrentView returns the active view.
func (s *Session) CurrentView() view.View {
	return s.router.Current()
}

// ResolveInitial re-runs initial address resolution, e.g. after a reload.
func (s *Session) ResolveInitial(path, hash string) view.Resolution {
	res := s.router.ResolveInitial(path, hash)
	s.syncSchedulers(res.View)
	return res
}

// SetView activates a view from an explicit operator action.
func (s *Session) SetView(v view.View) view.Resolution {
	previous, changed := s.router.SetView(v)
	if changed {
		s.stopSchedulerFor(previous)
		s.startSchedulerFor(s.router.Current())
	}
	active := s.router.Current()
	return view.Resolution{View: active, CanonicalPath: view.PathFor(active)}
}

// Navigate follows a back/forward movement without pushing history.
func (s *Session) Navigate(path string) view.Resolution {
	previous, changed := s.router.Navigate(path)
	if changed {
		s.stopSchedulerFor(previous)
		s.startSchedulerFor(s.router.Current())
	}
	active := s.router.Current()
	return view.Resolution{View: active, CanonicalPath: view.PathFor(active)}
}

func (s *Session) syncSchedulers(active view.View) {
	for v, sched := range s.schedulers {
		if v == active {
			sched.Start(s.ctx)
		} else {
			sched.Stop()
		}
	}
}

func (s *Session) stopSchedulerFor(v view.View) {
	if sched, ok := s.schedulers[v]; ok {
		sched.Stop()
	}
}

func (s *Session) startSchedulerFor(v view.View) {
	if sched, ok := s.schedulers[v]; ok {
		sched.Start(s.ctx)
	}
}

// Close tears the session down: schedulers stop and in-flight fetches are
// abandoned via the session context.
func (s *Session) Close() {
	for _, sched := range s.schedulers {
		sched.Stop()
	}
	s.cancel()
}

// SortBy returns the active leaderboard sort key.
func (s *Session) SortBy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortBy
}

// SetSortBy switches the leaderboard sort key. A different key is a different
// backend query, so the whole cache is refetched rather than re-sorted
// locally.
func (s *Session) SetSortBy(sortBy string) error {
	if !models.ValidSortBy(sortBy) {
		return fmt.Errorf("unknown sort key %q", sortBy)
	}
	s.mu.Lock()
	changed := s.sortBy != sortBy
	s.sortBy = sortBy
	s.mu.Unlock()
	if changed {
		go s.refreshLeaderboards("sort_change")
	}
	return nil
}

// Leaderboards returns the cached multi-window snapshot. A cold session first
// restores the shared redis snapshot so reconnecting operators see data
// immediately, with a live fetch racing in the background; a bypass request
// always fetches synchronously.
func (s *Session) Leaderboards(noCache bool) map[models.Window][]models.LeaderboardEntry {
	if noCache {
		s.fetchAllWindows("on_demand", true)
		return s.lbCache.Snapshot()
	}
	if len(s.lbCache.Snapshot()) == 0 {
		if stored, ok := s.deps.Snapshots.Get(s.ctx, s.SortBy()); ok {
			s.lbCache.CommitFull(s.lbCache.BeginFull(), stored.Windows)
			go s.refreshLeaderboards("on_demand")
		} else {
			s.fetchAllWindows("on_demand", false)
		}
	}
	return s.lbCache.Snapshot()
}

// WindowEntries returns the full cached list for one window.
func (s *Session) WindowEntries(w models.Window) ([]models.LeaderboardEntry, bool) {
	return s.lbCache.Window(w)
}

func (s *Session) refreshLeaderboards(trigger string) {
	s.fetchAllWindows(trigger, trigger != "scheduled")
}

func (s *Session) fetchAllWindows(trigger string, noCache bool) {
	ticket := s.lbCache.BeginFull()
	start := time.Now()
	result, err := s.deps.Upstream.Leaderboards(s.ctx, models.Windows(), defaultFetchLimit, s.SortBy(), noCache)
	s.deps.Metrics.RecordUpstream("leaderboards", err, time.Since(start))
	s.deps.Metrics.RecordRefresh(string(view.Leaderboards), trigger, err)
	if err != nil {
		// The scheduler cadence continues regardless; the next tick retries.
		s.logger.Warn("leaderboard refresh failed", "trigger", trigger, "error", err)
		return
	}
	if !s.lbCache.CommitFull(ticket, result.Windows) {
		s.logger.Debug("dropped superseded leaderboard result", "trigger", trigger)
		return
	}
	s.deps.Snapshots.Set(s.ctx, s.SortBy(), result)
}

// RefreshWindow refetches a single window, leaving every other window's
// cached list untouched. The view's countdown resets so the next scheduled
// refresh cannot land within the same second.
func (s *Session) RefreshWindow(w models.Window) error {
	if !models.ValidWindow(w) {
		return fmt.Errorf("unknown window %q", w)
	}
	if sched, ok := s.schedulers[view.Leaderboards]; ok {
		sched.ResetCountdown()
	}

	ticket := s.lbCache.BeginWindow(w)
	start := time.Now()
	result, err := s.deps.Upstream.Leaderboards(s.ctx, []models.Window{w}, defaultFetchLimit, s.SortBy(), true)
	s.deps.Metrics.RecordUpstream("leaderboards", err, time.Since(start))
	s.deps.Metrics.RecordRefresh(string(view.Leaderboards), "manual", err)
	if err != nil {
		return err
	}
	entries, ok := result.Windows[w]
	if !ok {
		return fmt.Errorf("window %q missing from response", w)
	}
	s.lbCache.CommitWindow(ticket, w, entries)
	return nil
}

// ManualRefresh fires a full refresh of the active monitored view and resets
// its countdown.
func (s *Session) ManualRefresh() {
	if sched, ok := s.schedulers[s.router.Current()]; ok {
		sched.ManualRefresh()
		return
	}
	// Non-monitored views refresh on demand only.
	s.refreshLeaderboards("manual")
}

// SetRefreshInterval records an explicit per-view interval choice.
func (s *Session) SetRefreshInterval(ctx context.Context, v view.View, seconds int) error {
	sched, ok := s.schedulers[v]
	if !ok {
		return fmt.Errorf("view %q has no auto refresh", v)
	}
	sched.SetIntervalSeconds(ctx, seconds)
	return nil
}

// Countdown reports the live countdown and configured interval for one view.
func (s *Session) Countdown(v view.View) (remaining, interval int, err error) {
	sched, ok := s.schedulers[v]
	if !ok {
		return 0, 0, fmt.Errorf("view %q has no auto refresh", v)
	}
	remaining, interval = sched.Countdown()
	return remaining, interval, nil
}

// IPUsage returns the latest IP monitoring snapshot.
func (s *Session) IPUsage() []models.IPUsageEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.IPUsageEntry, len(s.ipEntries))
	copy(out, s.ipEntries)
	return out
}

func (s *Session) refreshIPUsage(trigger string) {
	s.mu.Lock()
	s.ipIssued++
	seq := s.ipIssued
	s.mu.Unlock()

	start := time.Now()
	entries, err := s.deps.Upstream.IPUsage(s.ctx, models.Window24h, defaultFetchLimit)
	s.deps.Metrics.RecordUpstream("ip_usage", err, time.Since(start))
	s.deps.Metrics.RecordRefresh(string(view.IPMonitoring), trigger, err)
	if err != nil {
		s.logger.Warn("ip usage refresh failed", "trigger", trigger, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.ipIssued {
		// A later refresh superseded this one while it was in flight.
		return
	}
	s.ipEntries = entries
}

// ActivityStats returns the cached aggregate counters, fetching when cold.
func (s *Session) ActivityStats() *models.ActivityStats {
	s.mu.Lock()
	cached := s.stats
	s.mu.Unlock()
	if cached != nil {
		return cached
	}
	s.refreshAggregates()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// refreshAggregates refetches activity-bucket totals that an optimistic row
// update cannot recompute (bucket membership depends on fields the loaded
// rows do not carry). The refresh-interval advisory piggybacks on the first
// successful fetch and never overrides an explicit operator choice.
func (s *Session) refreshAggregates() {
	start := time.Now()
	stats, err := s.deps.Upstream.ActivityStats(s.ctx)
	s.deps.Metrics.RecordUpstream("activity_stats", err, time.Since(start))
	if err != nil {
		s.logger.Warn("activity stats refresh failed", "error", err)
		return
	}

	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()

	if stats.RecommendedRefreshSeconds > 0 {
		s.advisoryOnce.Do(func() {
			for v, sched := range s.schedulers {
				if sched.ApplyRecommended(stats.RecommendedRefreshSeconds) {
					s.logger.Info("adopted recommended refresh interval",
						"view", v, "seconds", stats.RecommendedRefreshSeconds)
				}
			}
		})
	}
}

// Workflows exposes the session's confirmation workflow registry.
func (s *Session) Workflows() *workflow.Registry {
	return s.workflows
}
