package queue

import (
	"sort"
	"sync"
	"time"
)

// Queue is a thread-safe pending-work queue with priority-ordered batch
// pulls and timer-based delayed re-enqueue for retries.
//
// Ordering: DequeueBatch returns items priority-descending with ties broken
// by arrival order. The guarantee holds within one batch only; items
// arriving mid-tick are honored on the next pull.
type Queue struct {
	mu      sync.Mutex
	pending []*Item
	nextSeq uint64
	timers  map[*time.Timer]struct{}
	closed  bool
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		timers: make(map[*time.Timer]struct{}),
	}
}

// Enqueue appends an item. The first enqueue stamps EnqueuedAt.
func (q *Queue) Enqueue(item *Item) {
	if item == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}
	item.seq = q.nextSeq
	q.nextSeq++
	q.pending = append(q.pending, item)
}

// EnqueueAfter re-enqueues an item once delay has elapsed. Used by the
// execution scheduler's retry path; the delay timer never blocks the caller.
func (q *Queue) EnqueueAfter(item *Item, delay time.Duration) {
	if item == nil {
		return
	}
	if delay <= 0 {
		q.Enqueue(item)
		return
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		delete(q.timers, timer)
		if q.closed {
			return
		}
		if item.EnqueuedAt.IsZero() {
			item.EnqueuedAt = time.Now()
		}
		item.seq = q.nextSeq
		q.nextSeq++
		q.pending = append(q.pending, item)
	})
	q.timers[timer] = struct{}{}
	q.mu.Unlock()
}

// DequeueBatch removes and returns up to n items, priority-descending,
// ties in arrival order. Returns nil when the queue is empty.
func (q *Queue) DequeueBatch(n int) []*Item {
	if n <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}

	sort.SliceStable(q.pending, func(i, j int) bool {
		if q.pending[i].Priority != q.pending[j].Priority {
			return q.pending[i].Priority > q.pending[j].Priority
		}
		return q.pending[i].seq < q.pending[j].seq
	})

	if n > len(q.pending) {
		n = len(q.pending)
	}

	batch := make([]*Item, n)
	copy(batch, q.pending[:n])
	remaining := make([]*Item, len(q.pending)-n)
	copy(remaining, q.pending[n:])
	q.pending = remaining

	return batch
}

// Len returns the number of immediately pending items. Items waiting on a
// retry delay are not counted until their timer fires.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops pending retry timers and drops further enqueues. Items already
// pending remain drainable via DequeueBatch.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	for timer := range q.timers {
		timer.Stop()
	}
	q.timers = make(map[*time.Timer]struct{})
}
