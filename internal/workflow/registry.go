package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State of one confirmation workflow.
//
//	previewing -> previewed | preview_failed | cancelled
//	previewed  -> executing | cancelled
//	executing  -> succeeded | failed
//	failed     -> executing (retry without retyping the phrase)
type State string

const (
	StatePreviewing    State = "previewing"
	StatePreviewed     State = "previewed"
	StatePreviewFailed State = "preview_failed"
	StateExecuting     State = "executing"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
	StateCancelled     State = "cancelled"
)

// ConfirmationPhrase must be typed exactly to execute an irreversible action.
const ConfirmationPhrase = "DELETE"

var (
	ErrNotFound        = errors.New("workflow not found")
	ErrNotConfirmable  = errors.New("workflow is not awaiting confirmation")
	ErrPhraseMismatch  = errors.New("confirmation phrase does not match")
	ErrExecuteInFlight = errors.New("another execution for this target is already in flight")
	ErrAlreadyFinished = errors.New("workflow already finished")
)

// Preview is the dry-run summary shown before confirmation.
type Preview struct {
	Count   int      `json:"count"`
	Samples []string `json:"samples,omitempty"`
	UserIDs []int64  `json:"user_ids,omitempty"`
}

// Result is the terminal outcome of an executed action.
type Result struct {
	AffectedUserIDs []int64
	Detail          string
}

// Hooks bind a registry to the backend and to the caches it updates
// optimistically.
type Hooks struct {
	// Preview computes the dry-run effect of an action. Actions with a fixed,
	// known target return immediately.
	Preview func(ctx context.Context, action Action) (Preview, error)
	// Execute applies the action for real.
	Execute func(ctx context.Context, action Action) (Result, error)
	// OnSuccess applies the optimistic local update and triggers the
	// background aggregate-counters refresh.
	OnSuccess func(action Action, result Result)
}

// Workflow is one live confirmation dialog. It exists from the instant the
// operator requests the action; the preview fills in asynchronously so the
// dialog never waits on the network to become visible.
type Workflow struct {
	mu             sync.Mutex
	id             uuid.UUID
	action         Action
	state          State
	preview        Preview
	notice         string
	errMsg         string
	phraseVerified bool
	createdAt      time.Time
	updatedAt      time.Time
}

// Snapshot is an immutable copy of workflow state for transport.
type Snapshot struct {
	ID             uuid.UUID `json:"id"`
	Kind           Kind      `json:"kind"`
	State          State     `json:"state"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	RequiresPhrase bool      `json:"requires_phrase"`
	Preview        *Preview  `json:"preview,omitempty"`
	Notice         string    `json:"notice,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (w *Workflow) snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{
		ID:             w.id,
		Kind:           w.action.Kind(),
		State:          w.state,
		Title:          w.action.Title(),
		Message:        w.action.Message(),
		RequiresPhrase: w.action.Irreversible() && !w.phraseVerified,
		Notice:         w.notice,
		Error:          w.errMsg,
		CreatedAt:      w.createdAt,
		UpdatedAt:      w.updatedAt,
	}
	if w.state != StatePreviewing && w.state != StatePreviewFailed {
		p := w.preview
		snap.Preview = &p
	}
	return snap
}

// Registry owns the live workflows of one session and enforces the per-origin
// single-flight rule.
type Registry struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*Workflow
	inflight map[string]uuid.UUID
	hooks    Hooks
	logger   *slog.Logger
}

func NewRegistry(hooks Hooks, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		items:    make(map[uuid.UUID]*Workflow),
		inflight: make(map[string]uuid.UUID),
		hooks:    hooks,
		logger:   logger,
	}
}

// Begin opens a workflow and starts its preview in the background. The
// returned snapshot is already renderable: title and message are final, only
// the affected-entity list and count are pending.
func (r *Registry) Begin(ctx context.Context, action Action) Snapshot {
	wf := &Workflow{
		id:        uuid.New(),
		action:    action,
		state:     StatePreviewing,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	r.mu.Lock()
	r.items[wf.id] = wf
	r.mu.Unlock()

	go r.runPreview(context.WithoutCancel(ctx), wf)
	return wf.snapshot()
}

func (r *Registry) runPreview(ctx context.Context, wf *Workflow) {
	preview, err := r.hooks.Preview(ctx, wf.action)

	wf.mu.Lock()
	defer wf.mu.Unlock()
	if wf.state != StatePreviewing {
		// Cancelled while the preview was in flight; drop the stale result.
		return
	}
	wf.updatedAt = time.Now()
	if err != nil {
		wf.state = StatePreviewFailed
		wf.errMsg = err.Error()
		r.logger.Warn("workflow preview failed", "kind", wf.action.Kind(), "error", err)
		return
	}
	wf.preview = preview
	if preview.Count == 0 {
		// Nothing to confirm: auto-close with an informational notice.
		wf.state = StateCancelled
		wf.notice = "No matching users found; nothing to do."
		return
	}
	wf.state = StatePreviewed
}

// Get returns a snapshot of one workflow.
func (r *Registry) Get(id uuid.UUID) (Snapshot, error) {
	r.mu.Lock()
	wf, ok := r.items[id]
	r.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return wf.snapshot(), nil
}

// Confirm validates the confirmation and starts execution. A failed execution
// leaves the workflow confirmable again without retyping the phrase. Phrase
// mismatches never reach the network.
func (r *Registry) Confirm(ctx context.Context, id uuid.UUID, phrase string) (Snapshot, error) {
	r.mu.Lock()
	wf, ok := r.items[id]
	r.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNotFound
	}

	wf.mu.Lock()
	switch wf.state {
	case StatePreviewed, StateFailed:
	default:
		wf.mu.Unlock()
		return wf.snapshot(), ErrNotConfirmable
	}
	if wf.action.Irreversible() && !wf.phraseVerified {
		if phrase != ConfirmationPhrase {
			wf.mu.Unlock()
			return wf.snapshot(), ErrPhraseMismatch
		}
		wf.phraseVerified = true
	}
	origin := wf.action.Origin()

	r.mu.Lock()
	if holder, busy := r.inflight[origin]; busy && holder != wf.id {
		r.mu.Unlock()
		wf.mu.Unlock()
		return wf.snapshot(), ErrExecuteInFlight
	}
	r.inflight[origin] = wf.id
	r.mu.Unlock()

	wf.state = StateExecuting
	wf.errMsg = ""
	wf.updatedAt = time.Now()
	wf.mu.Unlock()

	go r.runExecute(context.WithoutCancel(ctx), wf, origin)
	return wf.snapshot(), nil
}

func (r *Registry) runExecute(ctx context.Context, wf *Workflow, origin string) {
	result, err := r.hooks.Execute(ctx, wf.action)

	r.mu.Lock()
	if r.inflight[origin] == wf.id {
		delete(r.inflight, origin)
	}
	r.mu.Unlock()

	wf.mu.Lock()
	wf.updatedAt = time.Now()
	if err != nil {
		// The dialog stays open with the failure inline so the operator can
		// retry without re-entering the confirmation phrase.
		wf.state = StateFailed
		wf.errMsg = err.Error()
		wf.mu.Unlock()
		r.logger.Warn("workflow execute failed", "kind", wf.action.Kind(), "error", err)
		return
	}
	wf.state = StateSucceeded
	action := wf.action
	wf.mu.Unlock()

	if r.hooks.OnSuccess != nil {
		r.hooks.OnSuccess(action, result)
	}
}

// Cancel abandons a workflow before execution. Executing workflows cannot be
// cancelled; their outcome is already committed upstream.
func (r *Registry) Cancel(id uuid.UUID) (Snapshot, error) {
	r.mu.Lock()
	wf, ok := r.items[id]
	r.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNotFound
	}

	wf.mu.Lock()
	switch wf.state {
	case StateExecuting:
		wf.mu.Unlock()
		return wf.snapshot(), ErrNotConfirmable
	case StateSucceeded, StateFailed, StateCancelled:
		wf.mu.Unlock()
		return wf.snapshot(), ErrAlreadyFinished
	}
	wf.state = StateCancelled
	wf.updatedAt = time.Now()
	wf.mu.Unlock()
	return wf.snapshot(), nil
}

// Prune drops terminal workflows older than maxAge, returning how many were
// removed.
func (r *Registry) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	candidates := make(map[uuid.UUID]*Workflow, len(r.items))
	for id, wf := range r.items {
		candidates[id] = wf
	}
	r.mu.Unlock()

	var expired []uuid.UUID
	for id, wf := range candidates {
		wf.mu.Lock()
		terminal := wf.state == StateSucceeded || wf.state == StateCancelled ||
			wf.state == StatePreviewFailed || wf.state == StateFailed
		stale := wf.updatedAt.Before(cutoff)
		wf.mu.Unlock()
		if terminal && stale {
			expired = append(expired, id)
		}
	}

	r.mu.Lock()
	for _, id := range expired {
		delete(r.items, id)
	}
	r.mu.Unlock()
	return len(expired)
}
