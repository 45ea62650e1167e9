package component

import "sync"

// Queue is a Scheduler that collects dirty owners until Flush.
type Queue struct {
	mu      sync.Mutex
	pending []*Owner
}

// NewQueue creates an empty render queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule adds o to the queue.
func (q *Queue) Schedule(o *Owner) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, o)
}

// Len returns the number of queued owners.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush re-renders every queued owner once, in scheduling order, and returns
// how many rendered. Owners disposed since they were queued are skipped.
// Owners dirtied during the flush are left for the next one.
func (q *Queue) Flush() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	seen := make(map[uint64]bool, len(pending))
	rendered := 0
	for _, o := range pending {
		id := o.ID()
		if seen[id] {
			continue
		}
		seen[id] = true

		if !o.IsDirty() {
			continue
		}
		if o.Rerender() {
			rendered++
		}
	}
	return rendered
}
