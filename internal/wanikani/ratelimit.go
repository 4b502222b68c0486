package wanikani

import (
	"context"
	"sync"
	"time"
)

// Default upstream budget: 60 requests per rolling 60 second window.
const (
	DefaultRateLimit  = 60
	DefaultRateWindow = time.Minute
)

// Limiter is a sliding-window rate limiter shared across every concurrent
// sync worker in the process.
//
// It keeps the timestamps of requests issued inside the current window.
// Acquire prunes stamps older than the window, then either records a new
// stamp or sleeps until the oldest one ages out. Bursts are smoothed against
// true elapsed time rather than fixed window boundaries.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
}

// NewLimiter creates a [Limiter] allowing limit requests per rolling window.
// Non-positive arguments fall back to the WaniKani defaults.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &Limiter{limit: limit, window: window}
}

// Acquire blocks until the caller may issue one upstream request.
//
// The only error it can return is the context's, when the caller is
// cancelled while waiting; the limiter itself never fails.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)

		if len(l.stamps) < l.limit {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.stamps[0].Add(l.window).Sub(now)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Pending returns how many request stamps currently sit inside the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())
	return len(l.stamps)
}

// prune drops stamps older than one window before now. Callers hold l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}
