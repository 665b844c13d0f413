package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func waitState(t *testing.T, r *Registry, id uuid.UUID, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := r.Get(id)
		if err != nil {
			t.Fatalf("get workflow: %v", err)
		}
		if snap.State == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := r.Get(id)
	t.Fatalf("workflow never reached %s, stuck at %s (error %q)", want, snap.State, snap.Error)
	return Snapshot{}
}

func staticHooks(preview Preview, previewErr error, execErr error) Hooks {
	return Hooks{
		Preview: func(context.Context, Action) (Preview, error) {
			return preview, previewErr
		},
		Execute: func(context.Context, Action) (Result, error) {
			if execErr != nil {
				return Result{}, execErr
			}
			return Result{AffectedUserIDs: []int64{1}}, nil
		},
	}
}

func TestBeginIsImmediatelyRenderable(t *testing.T) {
	block := make(chan struct{})
	r := NewRegistry(Hooks{
		Preview: func(context.Context, Action) (Preview, error) {
			<-block
			return Preview{Count: 4}, nil
		},
		Execute: func(context.Context, Action) (Result, error) { return Result{}, nil },
	}, nil)

	snap := r.Begin(context.Background(), BatchDelete{ActivityLevel: "inactive", HardDelete: true})
	if snap.State != StatePreviewing {
		t.Fatalf("expected previewing, got %s", snap.State)
	}
	if snap.Title == "" || snap.Message == "" {
		t.Fatal("title and message must be final before the preview resolves")
	}
	if snap.Preview != nil {
		t.Fatal("preview must not be exposed while pending")
	}

	close(block)
	snap = waitState(t, r, snap.ID, StatePreviewed)
	if snap.Preview == nil || snap.Preview.Count != 4 {
		t.Fatalf("unexpected preview %+v", snap.Preview)
	}
}

func TestEmptyPreviewAutoCancelsWithNotice(t *testing.T) {
	r := NewRegistry(staticHooks(Preview{Count: 0}, nil, nil), nil)
	snap := r.Begin(context.Background(), BatchDelete{ActivityLevel: "none"})
	snap = waitState(t, r, snap.ID, StateCancelled)
	if snap.Notice == "" {
		t.Fatal("empty preview must carry an informational notice")
	}
	if _, err := r.Confirm(context.Background(), snap.ID, ConfirmationPhrase); !errors.Is(err, ErrNotConfirmable) {
		t.Fatalf("expected ErrNotConfirmable, got %v", err)
	}
}

func TestPreviewFailureBlocksConfirmation(t *testing.T) {
	r := NewRegistry(staticHooks(Preview{}, errors.New("backend down"), nil), nil)
	snap := r.Begin(context.Background(), PurgeLogs{})
	snap = waitState(t, r, snap.ID, StatePreviewFailed)
	if snap.Error == "" {
		t.Fatal("preview failure must surface its error")
	}
	if _, err := r.Confirm(context.Background(), snap.ID, ConfirmationPhrase); !errors.Is(err, ErrNotConfirmable) {
		t.Fatalf("expected ErrNotConfirmable, got %v", err)
	}
}

func TestIrreversibleRequiresExactPhrase(t *testing.T) {
	executed := false
	r := NewRegistry(Hooks{
		Preview: func(context.Context, Action) (Preview, error) { return Preview{Count: 2}, nil },
		Execute: func(context.Context, Action) (Result, error) {
			executed = true
			return Result{}, nil
		},
	}, nil)

	snap := r.Begin(context.Background(), BatchDelete{ActivityLevel: "inactive", HardDelete: true})
	snap = waitState(t, r, snap.ID, StatePreviewed)
	if !snap.RequiresPhrase {
		t.Fatal("hard delete must require the phrase")
	}

	for _, phrase := range []string{"", "delete", "DELET", "DELETE "} {
		if _, err := r.Confirm(context.Background(), snap.ID, phrase); !errors.Is(err, ErrPhraseMismatch) {
			t.Fatalf("phrase %q: expected ErrPhraseMismatch, got %v", phrase, err)
		}
	}
	if executed {
		t.Fatal("a phrase mismatch must never reach execution")
	}

	if _, err := r.Confirm(context.Background(), snap.ID, ConfirmationPhrase); err != nil {
		t.Fatalf("exact phrase rejected: %v", err)
	}
	waitState(t, r, snap.ID, StateSucceeded)
	if !executed {
		t.Fatal("confirmed workflow never executed")
	}
}

func TestReversibleSkipsPhrase(t *testing.T) {
	r := NewRegistry(staticHooks(Preview{Count: 1}, nil, nil), nil)
	snap := r.Begin(context.Background(), Ban{UserID: 5, Username: "mallory"})
	snap = waitState(t, r, snap.ID, StatePreviewed)
	if snap.RequiresPhrase {
		t.Fatal("ban is reversible and must not require the phrase")
	}
	if _, err := r.Confirm(context.Background(), snap.ID, ""); err != nil {
		t.Fatalf("confirm without phrase: %v", err)
	}
	waitState(t, r, snap.ID, StateSucceeded)
}

func TestFailedExecutionRetriesWithoutPhrase(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	r := NewRegistry(Hooks{
		Preview: func(context.Context, Action) (Preview, error) { return Preview{Count: 1}, nil },
		Execute: func(context.Context, Action) (Result, error) {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			if attempts == 1 {
				return Result{}, errors.New("upstream 502")
			}
			return Result{}, nil
		},
	}, nil)

	snap := r.Begin(context.Background(), UserDelete{UserID: 3, Username: "bob", HardDelete: true})
	snap = waitState(t, r, snap.ID, StatePreviewed)

	if _, err := r.Confirm(context.Background(), snap.ID, ConfirmationPhrase); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	snap = waitState(t, r, snap.ID, StateFailed)
	if snap.Error == "" {
		t.Fatal("failed execution must surface the error inline")
	}
	if snap.RequiresPhrase {
		t.Fatal("verified phrase must survive a failed execution")
	}

	if _, err := r.Confirm(context.Background(), snap.ID, ""); err != nil {
		t.Fatalf("retry without phrase: %v", err)
	}
	waitState(t, r, snap.ID, StateSucceeded)
}

func TestSingleFlightPerOrigin(t *testing.T) {
	release := make(chan struct{})
	r := NewRegistry(Hooks{
		Preview: func(context.Context, Action) (Preview, error) { return Preview{Count: 1}, nil },
		Execute: func(context.Context, Action) (Result, error) {
			<-release
			return Result{}, nil
		},
	}, nil)

	first := r.Begin(context.Background(), Ban{UserID: 7, Username: "eve"})
	waitState(t, r, first.ID, StatePreviewed)
	if _, err := r.Confirm(context.Background(), first.ID, ""); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	// Ban and unban share an origin: the second invocation is rejected, not
	// queued, while the first executes.
	second := r.Begin(context.Background(), Unban{UserID: 7, Username: "eve"})
	waitState(t, r, second.ID, StatePreviewed)
	if _, err := r.Confirm(context.Background(), second.ID, ""); !errors.Is(err, ErrExecuteInFlight) {
		t.Fatalf("expected ErrExecuteInFlight, got %v", err)
	}

	close(release)
	waitState(t, r, first.ID, StateSucceeded)

	// Once the first completes the origin is free again.
	if _, err := r.Confirm(context.Background(), second.ID, ""); err != nil {
		t.Fatalf("confirm after release: %v", err)
	}
	waitState(t, r, second.ID, StateSucceeded)
}

func TestCancelRejectsExecuting(t *testing.T) {
	release := make(chan struct{})
	r := NewRegistry(Hooks{
		Preview: func(context.Context, Action) (Preview, error) { return Preview{Count: 1}, nil },
		Execute: func(context.Context, Action) (Result, error) {
			<-release
			return Result{}, nil
		},
	}, nil)

	snap := r.Begin(context.Background(), Ban{UserID: 2, Username: "carol"})
	waitState(t, r, snap.ID, StatePreviewed)
	if _, err := r.Confirm(context.Background(), snap.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := r.Cancel(snap.ID); !errors.Is(err, ErrNotConfirmable) {
		t.Fatalf("expected ErrNotConfirmable while executing, got %v", err)
	}
	close(release)
	waitState(t, r, snap.ID, StateSucceeded)
	if _, err := r.Cancel(snap.ID); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
}

func TestOnSuccessReceivesResult(t *testing.T) {
	done := make(chan Result, 1)
	hooks := staticHooks(Preview{Count: 1}, nil, nil)
	hooks.OnSuccess = func(_ Action, result Result) { done <- result }
	r := NewRegistry(hooks, nil)

	snap := r.Begin(context.Background(), Unban{UserID: 1, Username: "al"})
	waitState(t, r, snap.ID, StatePreviewed)
	if _, err := r.Confirm(context.Background(), snap.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	select {
	case result := <-done:
		if len(result.AffectedUserIDs) != 1 {
			t.Fatalf("unexpected result %+v", result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnSuccess never invoked")
	}
}

func TestPruneDropsOnlyStaleTerminal(t *testing.T) {
	r := NewRegistry(staticHooks(Preview{Count: 1}, nil, nil), nil)
	live := r.Begin(context.Background(), Ban{UserID: 1, Username: "a"})
	waitState(t, r, live.ID, StatePreviewed)

	finished := r.Begin(context.Background(), Ban{UserID: 2, Username: "b"})
	waitState(t, r, finished.ID, StatePreviewed)
	if _, err := r.Confirm(context.Background(), finished.ID, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	waitState(t, r, finished.ID, StateSucceeded)

	if n := r.Prune(0); n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}
	if _, err := r.Get(live.ID); err != nil {
		t.Fatalf("live workflow pruned: %v", err)
	}
	if _, err := r.Get(finished.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for pruned workflow, got %v", err)
	}
}
