package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pickup-request-service/internal/domain"
)

// MemoryThrottle is the single-process fallback used when no Redis address
// is configured. Expired entries are swept at most once per window, so the
// map only holds keys that failed within the last two windows.
type MemoryThrottle struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	now       func() time.Time
	entries   map[string]memoryEntry
	nextSweep time.Time
}

type memoryEntry struct {
	count   int
	resetAt time.Time
}

func NewMemoryThrottle(limit int, window time.Duration) *MemoryThrottle {
	return &MemoryThrottle{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: map[string]memoryEntry{},
	}
}

func (t *MemoryThrottle) Check(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return nil
	}
	if !t.now().Before(e.resetAt) {
		delete(t.entries, key)
		return nil
	}
	if e.count >= t.limit {
		return fmt.Errorf("login %s: %w", key, domain.ErrRateLimited)
	}
	return nil
}

func (t *MemoryThrottle) Fail(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	e, ok := t.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = memoryEntry{resetAt: now.Add(t.window)}
	}
	e.count++
	t.entries[key] = e
	return nil
}

func (t *MemoryThrottle) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, key)
	return nil
}

func (t *MemoryThrottle) sweep(now time.Time) {
	if now.Before(t.nextSweep) {
		return
	}
	for k, e := range t.entries {
		if !now.Before(e.resetAt) {
			delete(t.entries, k)
		}
	}
	t.nextSweep = now.Add(t.window)
}
