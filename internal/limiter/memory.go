package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// MemoryStore keeps windows in process memory. Expired windows are replaced
// lazily on the next Incr and removed in bulk by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*Window
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*Window)}
}

func (m *MemoryStore) Incr(_ context.Context, key string, now time.Time, window time.Duration) (Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.After(w.ResetAt) {
		w = &Window{ResetAt: now.Add(window)}
		m.windows[key] = w
	}
	w.Count++
	return *w, nil
}

func (m *MemoryStore) Peek(_ context.Context, key string, now time.Time) (Window, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.After(w.ResetAt) {
		return Window{}, false, nil
	}
	return *w, true, nil
}

// Sweep drops every window that has expired by now and returns how many.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, w := range m.windows {
		if now.After(w.ResetAt) {
			delete(m.windows, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked windows.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// ScheduleSweep registers a periodic Sweep on c, e.g. spec "@every 1m".
func (m *MemoryStore) ScheduleSweep(c *cron.Cron, spec string, clock Clock, onSwept func(int)) (cron.EntryID, error) {
	if clock == nil {
		clock = SystemClock
	}
	return c.AddFunc(spec, func() {
		n := m.Sweep(clock.Now())
		if onSwept != nil && n > 0 {
			onSwept(n)
		}
	})
}
