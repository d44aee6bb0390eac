// Package ratelimit provides a rolling-window call budget shared by the
// external clients. The clock is injectable so the window is testable
// without wall-clock waits.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// realClock delegates to the time package.
type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns a Clock backed by wall-clock time.
func RealClock() Clock { return realClock{} }

// Window is a rolling-window rate limiter: at most limit calls within any
// span of the configured window. Acquire suspends the caller until a slot
// is available.
type Window struct {
	limit  int
	window time.Duration
	clock  Clock

	mu    sync.Mutex
	calls []time.Time // acquisition times within the current window, oldest first
}

// NewWindow creates a rolling-window limiter. A nil clock means wall-clock.
func NewWindow(limit int, window time.Duration, clock Clock) (*Window, error) {
	if limit < 1 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("rate window must be positive, got %v", window)
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Window{
		limit:  limit,
		window: window,
		clock:  clock,
	}, nil
}

// Acquire blocks until a call slot is available or ctx is done.
func (w *Window) Acquire(ctx context.Context) error {
	for {
		wait, ok := w.tryAcquire()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.clock.After(wait):
		}
	}
}

// tryAcquire claims a slot if one is free, otherwise returns how long to
// wait before the oldest call leaves the window.
func (w *Window) tryAcquire() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	w.prune(now)

	if len(w.calls) < w.limit {
		w.calls = append(w.calls, now)
		return 0, true
	}

	wait := w.calls[0].Add(w.window).Sub(now)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, false
}

// prune drops calls that have left the window. Caller holds the lock.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.calls) && !w.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.calls = append(w.calls[:0], w.calls[i:]...)
	}
}

// Used reports how many slots are currently consumed.
func (w *Window) Used() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.clock.Now())
	return len(w.calls)
}
