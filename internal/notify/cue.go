// Package notify provides activity cue implementations fired when the
// console receives a fresh change-set.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Log is an activity cue that records change-set arrivals to the logger.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging cue.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// Play logs a single activity event.
func (l *Log) Play() {
	l.logger.Debug("collection activity")
}

// Throttled wraps a cue and suppresses repeat firings inside a quiet
// interval. Bursts of change-sets, as produced by a bulk clear, collapse to
// one cue.
type Throttled struct {
	inner interface{ Play() }
	quiet time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewThrottled wraps inner with the given quiet interval.
func NewThrottled(inner interface{ Play() }, quiet time.Duration) *Throttled {
	return &Throttled{inner: inner, quiet: quiet}
}

// Play fires the wrapped cue unless one fired within the quiet interval.
func (t *Throttled) Play() {
	t.mu.Lock()
	now := time.Now()
	if now.Sub(t.last) < t.quiet {
		t.mu.Unlock()
		return
	}
	t.last = now
	t.mu.Unlock()

	t.inner.Play()
}
