package forma

import (
	"sync"
	"time"
)

// Failure records a payload a followed watcher delivered that could not be
// applied.
type Failure struct {
	Err error
	At  time.Time
}

// failureRing is a bounded, thread-safe history of recent failures.
type failureRing struct {
	mu    sync.RWMutex
	items []Failure
	head  int
	count int
}

// newFailureRing returns nil for a non-positive size, which disables history.
func newFailureRing(size int) *failureRing {
	if size <= 0 {
		return nil
	}
	return &failureRing{items: make([]Failure, size)}
}

func (r *failureRing) push(f Failure) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[r.head] = f
	r.head = (r.head + 1) % len(r.items)
	if r.count < len(r.items) {
		r.count++
	}
}

func (r *failureRing) reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.items)
	r.head, r.count = 0, 0
}

// all returns the retained failures, oldest first.
func (r *failureRing) all() []Failure {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}
	size := len(r.items)
	out := make([]Failure, r.count)
	start := (r.head - r.count + size) % size
	for i := range out {
		out[i] = r.items[(start+i)%size]
	}
	return out
}
