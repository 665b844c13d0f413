package console

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const workflowRetention = 30 * time.Minute

// Manager holds one session per operator and evicts sessions that have gone
// idle. Reconnecting to an existing session resumes it; a new address simply
// re-resolves the view.
type Manager struct {
	mu       sync.Mutex
	deps     Deps
	sessions map[string]*Session
	logger   *slog.Logger

	idleTimeout time.Duration
	stop        chan struct{}
	done        chan struct{}
}

func NewManager(deps Deps, idleTimeout, sweepInterval time.Duration) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		deps:        deps,
		sessions:    make(map[string]*Session),
		logger:      logger,
		idleTimeout: idleTimeout,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go m.sweep(sweepInterval)
	return m
}

// Session returns the operator's live session, creating one at the given
// address when none exists.
func (m *Manager) Session(operator, path, hash string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[operator]; ok {
		s.Touch()
		return s
	}
	s := NewSession(m.deps, operator, path, hash)
	m.sessions[operator] = s
	m.logger.Info("session opened", "operator", operator, "session_id", s.ID())
	return s
}

// Lookup returns the operator's session without creating one.
func (m *Manager) Lookup(operator string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[operator]
	if ok {
		s.Touch()
	}
	return s, ok
}

// Evict closes and removes the operator's session, e.g. on logout.
func (m *Manager) Evict(operator string) {
	m.mu.Lock()
	s, ok := m.sessions[operator]
	if ok {
		delete(m.sessions, operator)
	}
	m.mu.Unlock()
	if ok {
		s.Close()
		m.logger.Info("session closed", "operator", operator)
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) sweep(interval time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweepOnce()
		}
	}
}

func (m *Manager) sweepOnce() {
	cutoff := time.Now().Add(-m.idleTimeout)

	m.mu.Lock()
	var expired []*Session
	for operator, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(m.sessions, operator)
			expired = append(expired, s)
		} else {
			s.Workflows().Prune(workflowRetention)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		m.logger.Info("session evicted", "operator", s.Operator(), "idle_since", s.LastSeen())
	}
}

// Shutdown stops the sweeper and closes every session.
func (m *Manager) Shutdown(ctx context.Context) error {
	close(m.stop)
	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	return nil
}
