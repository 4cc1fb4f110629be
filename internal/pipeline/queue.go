package pipeline

import "sync"

// Queue is an unbounded FIFO of rating keys with strict duplicate
// suppression: a key stays tracked from enqueue until the worker that pulled
// it calls Done, so re-enqueuing an item that is queued or in flight is a
// no-op.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []int
	tracked map[int]struct{}
	closed  bool
}

func NewQueue() *Queue {
	q := &Queue{tracked: make(map[int]struct{})}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a rating key, returning false if it is already queued or in
// flight.
func (q *Queue) Enqueue(ratingKey int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if _, ok := q.tracked[ratingKey]; ok {
		return false
	}
	q.tracked[ratingKey] = struct{}{}
	q.items = append(q.items, ratingKey)
	q.cond.Signal()
	return true
}

// Dequeue blocks until a key is available or the queue is closed. The key
// remains tracked until Done is called for it.
func (q *Queue) Dequeue() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return 0, false
	}
	key := q.items[0]
	q.items = q.items[1:]
	return key, true
}

// Done releases a key pulled by Dequeue so it may be enqueued again.
func (q *Queue) Done(ratingKey int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.tracked, ratingKey)
}

// Close wakes all blocked consumers; subsequent Dequeue calls drain the
// remaining items and then return false.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of keys waiting to be pulled.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// InFlight returns the number of keys queued or being processed.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracked)
}
