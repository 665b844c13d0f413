package timeutil

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid period")

// Window represents a normalized rolling time window (e.g. "24h", "7d")
// anchored to a reference instant.
type Window struct {
	period string
	start  time.Time
	end    time.Time
}

// NewWindow constructs a rolling window for the requested period ending at now.
func NewWindow(period string, now time.Time) (Window, error) {
	dur, err := DurationFromPeriod(period)
	if err != nil {
		return Window{}, err
	}
	return Window{
		period: normalizePeriod(period),
		start:  now.Add(-dur),
		end:    now,
	}, nil
}

// Period returns the normalized period string (e.g., "7d").
func (w Window) Period() string { return w.period }

// Start returns the inclusive start of the window.
func (w Window) Start() time.Time { return w.start }

// End returns the exclusive end of the window.
func (w Window) End() time.Time { return w.end }

// Duration returns the window length.
func (w Window) Duration() time.Duration { return w.end.Sub(w.start) }

// Contains reports whether the timestamp falls within [start, end).
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.start) && ts.Before(w.end)
}

// StartString returns the start timestamp formatted as RFC3339 UTC.
func (w Window) StartString() string { return w.start.UTC().Format(time.RFC3339) }

// EndString returns the end timestamp formatted as RFC3339 UTC.
func (w Window) EndString() string { return w.end.UTC().Format(time.RFC3339) }

// DurationFromPeriod parses a period string like "3h" or "7d" into a duration.
func DurationFromPeriod(period string) (time.Duration, error) {
	p := normalizePeriod(period)
	if len(p) < 2 {
		return 0, ErrInvalidPeriod
	}
	unit := p[len(p)-1]
	value, err := strconv.Atoi(p[:len(p)-1])
	if err != nil || value <= 0 {
		return 0, ErrInvalidPeriod
	}
	switch unit {
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	default:
		return 0, ErrInvalidPeriod
	}
}

func normalizePeriod(period string) string {
	return strings.ToLower(strings.TrimSpace(period))
}
