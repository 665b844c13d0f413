package view

import "sync"

// History abstracts the browser history the router drives. Push adds a new
// entry, Replace rewrites the current entry without adding one.
type History interface {
	Current() string
	Push(path string)
	Replace(path string)
}

// Router owns the active view for one session and keeps it in lockstep with
// navigation history.
type Router struct {
	mu      sync.Mutex
	history History
	current View
}

func NewRouter(history History) *Router {
	return &Router{history: history, current: Default}
}

// Current returns the active view.
func (r *Router) Current() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// ResolveInitial determines the view from the session's first address. Legacy
// hash addresses are rewritten in place so reloads land on the canonical path.
func (r *Router) ResolveInitial(path, hash string) Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := Resolve(path, hash)
	if res.Migrated && r.history.Current() != res.CanonicalPath {
		r.history.Replace(res.CanonicalPath)
	}
	r.current = res.View
	return res
}

// SetView activates a view from an explicit operator action, pushing a history
// entry only when the current path differs.
func (r *Router) SetView(v View) (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !Valid(v) {
		v = Default
	}
	previous := r.current
	path := PathFor(v)
	if r.history.Current() != path {
		r.history.Push(path)
	}
	r.current = v
	return previous, previous != v
}

// Navigate re-resolves the view after a back/forward movement. It never pushes
// a new entry; a legacy address encountered here is still rewritten in place.
func (r *Router) Navigate(path string) (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := Resolve(path, "")
	if r.history.Current() != res.CanonicalPath {
		r.history.Replace(res.CanonicalPath)
	}
	previous := r.current
	r.current = res.View
	return previous, previous != res.View
}

// MemoryHistory is an in-process history stack. The HTTP layer keeps one per
// session so the router sees the same back/forward model the browser applies.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
	index   int
}

func NewMemoryHistory(initial string) *MemoryHistory {
	return &MemoryHistory{entries: []string{initial}}
}

func (h *MemoryHistory) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

func (h *MemoryHistory) Push(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], path)
	h.index = len(h.entries) - 1
}

func (h *MemoryHistory) Replace(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.index] = path
}

// Back moves one entry backwards, reporting the new current path.
func (h *MemoryHistory) Back() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index == 0 {
		return h.entries[h.index], false
	}
	h.index--
	return h.entries[h.index], true
}

// Forward moves one entry forwards, reporting the new current path.
func (h *MemoryHistory) Forward() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return h.entries[h.index], false
	}
	h.index++
	return h.entries[h.index], true
}

// Len reports the number of history entries, used to assert that re-renders
// do not pile up duplicates.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
