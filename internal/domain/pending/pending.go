// Package pending defines the interface for tracking in-flight recomputes.
package pending

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// Tracker records which recompute keys are queued but not yet applied. It is
// the coalescing gate for score submissions: a key that is already pending is
// not enqueued a second time.
type Tracker interface {
	// MarkPending atomically checks if key is pending and records it if not.
	// Returns true if key was already pending, false if it was newly recorded.
	MarkPending(ctx context.Context, key string) bool

	// Clear removes a key once its recompute has been applied (or failed and
	// been abandoned), allowing the next submission to enqueue again.
	Clear(ctx context.Context, key string)

	// Pending returns a sorted snapshot of the pending keys.
	Pending(ctx context.Context) []string

	Size() int64
}

// inMemoryTracker implements Tracker with a plain mutex-guarded set. The
// pending population is bounded by the number of (contest, team) pairs, so
// no eviction is needed.
type inMemoryTracker struct {
	mu   sync.RWMutex
	keys map[string]struct{}
	size atomic.Int64
}

// NewInMemoryTracker creates an empty in-memory tracker.
func NewInMemoryTracker() Tracker {
	return &inMemoryTracker{
		keys: make(map[string]struct{}),
	}
}

func (t *inMemoryTracker) MarkPending(_ context.Context, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.keys[key]; exists {
		return true
	}
	t.keys[key] = struct{}{}
	t.size.Add(1)
	return false
}

func (t *inMemoryTracker) Clear(_ context.Context, key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.keys[key]; exists {
		delete(t.keys, key)
		t.size.Add(-1)
	}
}

func (t *inMemoryTracker) Pending(_ context.Context) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, len(t.keys))
	for k := range t.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (t *inMemoryTracker) Size() int64 {
	return t.size.Load()
}
