package limiter

import (
	"context"
	"fmt"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock is the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Window is the counter state of one identity
type Window struct {
	Count   int
	ResetAt time.Time
}

// WindowStore holds per-identity fixed windows.
type WindowStore interface {
	// Incr counts one request for key, opening a fresh window that ends at
	// now+window when none is active.
	Incr(ctx context.Context, key string, now time.Time, window time.Duration) (Window, error)
	// Peek returns the active window for key, if any.
	Peek(ctx context.Context, key string, now time.Time) (Window, bool, error)
}

// Decision is the outcome of one admission check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long the caller should wait before the window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.Before(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Limiter admits at most limit requests per identity per fixed window.
type Limiter struct {
	store  WindowStore
	prefix string
	limit  int
	window time.Duration
	clock  Clock
}

// New creates a limiter whose keys are namespaced by prefix.
func New(store WindowStore, prefix string, limit int, window time.Duration, clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock
	}
	return &Limiter{
		store:  store,
		prefix: prefix,
		limit:  limit,
		window: window,
		clock:  clock,
	}
}

func (l *Limiter) key(identity string) string {
	return fmt.Sprintf("ratelimit:%s:%s", l.prefix, identity)
}

// Limit returns the configured requests per window.
func (l *Limiter) Limit() int { return l.limit }

// Now returns the limiter's clock reading.
func (l *Limiter) Now() time.Time { return l.clock.Now() }

// CheckAndConsume counts one request for identity and reports whether it is
// within the limit. Rejected requests still count.
func (l *Limiter) CheckAndConsume(ctx context.Context, identity string) (Decision, error) {
	w, err := l.store.Incr(ctx, l.key(identity), l.clock.Now(), l.window)
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   w.Count <= l.limit,
		Limit:     l.limit,
		Remaining: max(0, l.limit-w.Count),
		ResetAt:   w.ResetAt,
	}, nil
}

// Remaining reports how many requests identity has left without consuming one.
func (l *Limiter) Remaining(ctx context.Context, identity string) (int, error) {
	w, ok, err := l.store.Peek(ctx, l.key(identity), l.clock.Now())
	if err != nil {
		return 0, err
	}
	if !ok {
		return l.limit, nil
	}
	return max(0, l.limit-w.Count), nil
}
