package core

import "time"

// rateWindow is one user's fixed 60-second counting interval.
type rateWindow struct {
	start time.Time
	count int
}

// RateLimiter bounds per-user message throughput with fixed windows that
// reset lazily on the first message after expiry. Windows do not slide: a
// burst at second 59 followed by another at second 61 is allowed. That is a
// deliberate simplicity trade-off, not a bug.
//
// The limiter is owned by the hub goroutine and needs no locking.
type RateLimiter struct {
	window  time.Duration
	windows map[string]*rateWindow
}

// NewRateLimiter constructs a limiter with the standard 60s window.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		window:  time.Minute,
		windows: make(map[string]*rateWindow),
	}
}

// Allow reports whether the user may send another message at now, given the
// current per-minute limit. Denial does not consume window budget.
func (l *RateLimiter) Allow(userID string, limit int, now time.Time) bool {
	if limit <= 0 {
		return true
	}

	w, ok := l.windows[userID]
	if !ok || now.After(w.start.Add(l.window)) {
		l.windows[userID] = &rateWindow{start: now, count: 1}
		return true
	}

	if w.count < limit {
		w.count++
		return true
	}
	return false
}

// Forget drops the user's window. Called when the session ends.
func (l *RateLimiter) Forget(userID string) {
	delete(l.windows, userID)
}
