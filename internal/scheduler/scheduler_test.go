package scheduler

import (
	"context"
	"testing"
)

func TestTickFiresAtZeroAndResets(t *testing.T) {
	fired := 0
	s := New(Options{IntervalSeconds: 3, OnTick: func() { fired++ }})

	for i := 0; i < 3; i++ {
		s.Tick()
	}
	if fired != 1 {
		t.Fatalf("expected 1 firing after 3 ticks, got %d", fired)
	}
	remaining, interval := s.Countdown()
	if remaining != 3 || interval != 3 {
		t.Fatalf("expected reset to full interval, got remaining=%d interval=%d", remaining, interval)
	}
}

func TestTickRespectsIntervalChangedMidCycle(t *testing.T) {
	fired := 0
	s := New(Options{IntervalSeconds: 60, OnTick: func() { fired++ }})

	for i := 0; i < 30; i++ {
		s.Tick()
	}
	// Halfway through, the operator picks a faster cadence. The countdown
	// resets to the new value immediately.
	s.SetIntervalSeconds(context.Background(), 10)
	remaining, _ := s.Countdown()
	if remaining != 10 {
		t.Fatalf("expected countdown 10 after change, got %d", remaining)
	}
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	if fired != 1 {
		t.Fatalf("expected firing 10 ticks after change, got %d firings", fired)
	}
	if remaining, _ := s.Countdown(); remaining != 10 {
		t.Fatalf("reset must use the live interval, got %d", remaining)
	}
}

func TestCountdownNeverGoesNegative(t *testing.T) {
	s := New(Options{IntervalSeconds: 1, OnTick: func() {}})
	for i := 0; i < 5; i++ {
		s.Tick()
		if remaining, _ := s.Countdown(); remaining < 0 {
			t.Fatalf("countdown went negative: %d", remaining)
		}
	}
}

func TestZeroIntervalDisablesTicking(t *testing.T) {
	fired := 0
	s := New(Options{IntervalSeconds: 0, OnTick: func() { fired++ }})
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	if fired != 0 {
		t.Fatalf("disabled scheduler fired %d times", fired)
	}
}

func TestSetIntervalPersistsAndZeroClears(t *testing.T) {
	type call struct {
		seconds int
		clear   bool
	}
	var calls []call
	s := New(Options{
		IntervalSeconds: 30,
		Persist: func(_ context.Context, seconds int, clear bool) {
			calls = append(calls, call{seconds, clear})
		},
	})

	s.SetIntervalSeconds(context.Background(), 15)
	s.SetIntervalSeconds(context.Background(), 0)

	if len(calls) != 2 {
		t.Fatalf("expected 2 persist calls, got %d", len(calls))
	}
	if calls[0] != (call{15, false}) {
		t.Fatalf("unexpected first persist %+v", calls[0])
	}
	if calls[1] != (call{0, true}) {
		t.Fatalf("turning auto refresh off must clear, got %+v", calls[1])
	}
}

func TestApplyRecommendedSkipsExplicitChoice(t *testing.T) {
	s := New(Options{IntervalSeconds: 30})
	if !s.ApplyRecommended(60) {
		t.Fatal("default interval should accept the advisory")
	}
	if s.IntervalSeconds() != 60 {
		t.Fatalf("expected interval 60, got %d", s.IntervalSeconds())
	}

	s.SetIntervalSeconds(context.Background(), 20)
	if s.ApplyRecommended(90) {
		t.Fatal("advisory must not override an explicit choice")
	}
	if s.IntervalSeconds() != 20 {
		t.Fatalf("explicit interval clobbered: %d", s.IntervalSeconds())
	}
}

func TestApplyRecommendedSkipsRestoredPreference(t *testing.T) {
	s := New(Options{IntervalSeconds: 45, Explicit: true})
	if s.ApplyRecommended(60) {
		t.Fatal("a restored preference counts as explicit")
	}
}

func TestManualRefreshFiresAndResets(t *testing.T) {
	fired := 0
	s := New(Options{IntervalSeconds: 30, OnTick: func() { fired++ }})
	for i := 0; i < 12; i++ {
		s.Tick()
	}
	s.ManualRefresh()
	if fired != 1 {
		t.Fatalf("manual refresh should fire exactly once, got %d", fired)
	}
	if remaining, _ := s.Countdown(); remaining != 30 {
		t.Fatalf("manual refresh must reset the countdown, got %d", remaining)
	}
}

func TestResetCountdownDoesNotFire(t *testing.T) {
	fired := 0
	s := New(Options{IntervalSeconds: 30, OnTick: func() { fired++ }})
	for i := 0; i < 12; i++ {
		s.Tick()
	}
	s.ResetCountdown()
	if fired != 0 {
		t.Fatalf("reset must not fire, got %d firings", fired)
	}
	if remaining, _ := s.Countdown(); remaining != 30 {
		t.Fatalf("expected full countdown, got %d", remaining)
	}
}

func TestStartStop(t *testing.T) {
	s := New(Options{IntervalSeconds: 30, OnTick: func() {}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	if !s.Running() {
		t.Fatal("expected running after Start")
	}
	s.Start(ctx) // idempotent
	s.Stop()
	if s.Running() {
		t.Fatal("expected stopped after Stop")
	}
}
