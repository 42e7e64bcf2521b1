// Package ratelimit implements the two per-source limiter shapes of
// spec.md §4.1: a fixed-window counter and a minimum-delay spacer. Neither
// maps cleanly onto golang.org/x/time/rate's token bucket — the spec wants
// a hard admission count per wall-clock window plus threshold-crossing
// saturation logs, not a smoothed rate — so both are hand-rolled here in
// the small-struct-plus-Options-plus-injected-logger shape the teacher uses
// for its long-lived components (internal/ingestion/runner.go).
package ratelimit

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrSourceTemporarilyUnavailable is returned by Take only when the caller's
// context is cancelled while waiting for admission; the limiter itself never
// gives up admitting a call.
var ErrSourceTemporarilyUnavailable = errors.New("source temporarily unavailable: rate limiter wait cancelled")

// saturationThresholds are the occupancy fractions that trigger a log line,
// each logged at most once per window.
var saturationThresholds = []float64{0.25, 0.50, 0.75, 0.95}

// FixedWindow admits at most Limit calls to Take per Window duration, shared
// across every worker of one external source. Take blocks past the limit
// until the window rolls over.
type FixedWindow struct {
	name   string
	limit  int
	window time.Duration
	logger *log.Logger

	mu            sync.Mutex
	windowStart   time.Time
	count         int
	loggedAtLevel int // index into saturationThresholds already logged this window
}

// NewFixedWindow creates a FixedWindow limiter. name identifies the source
// in log lines (e.g. "store", "meta"). A nil logger defaults to log.Default().
func NewFixedWindow(name string, limit int, window time.Duration, logger *log.Logger) *FixedWindow {
	if logger == nil {
		logger = log.Default()
	}
	return &FixedWindow{
		name:        name,
		limit:       limit,
		window:      window,
		logger:      logger,
		windowStart: time.Now(),
	}
}

// Take blocks until the caller is admitted, or ctx is cancelled.
func (w *FixedWindow) Take(ctx context.Context) error {
	for {
		wait, admitted := w.tryAdmit()
		if admitted {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ErrSourceTemporarilyUnavailable
		case <-timer.C:
		}
	}
}

// tryAdmit checks the current window, rolling it over if expired, and
// either admits the caller (returning admitted=true) or returns how long to
// wait before the window is expected to roll over.
func (w *FixedWindow) tryAdmit() (wait time.Duration, admitted bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(w.windowStart)
	if elapsed >= w.window {
		w.windowStart = now
		w.count = 0
		w.loggedAtLevel = 0
		elapsed = 0
	}

	if w.count < w.limit {
		w.count++
		w.logSaturationLocked()
		return 0, true
	}

	return w.window - elapsed, false
}

// logSaturationLocked logs once per window the first time occupancy crosses
// each of 25/50/75/95%. Caller must hold w.mu.
func (w *FixedWindow) logSaturationLocked() {
	occupancy := float64(w.count) / float64(w.limit)
	for w.loggedAtLevel < len(saturationThresholds) && occupancy >= saturationThresholds[w.loggedAtLevel] {
		w.logger.Printf("ratelimit[%s]: window %.0f%% saturated (%d/%d)", w.name, saturationThresholds[w.loggedAtLevel]*100, w.count, w.limit)
		w.loggedAtLevel++
	}
}
