package session

import (
	"context"
	"sync"
)

// Queue is a thread-safe fixed-capacity FIFO that drops its oldest item
// when a new one arrives while full.
//
// One producer and one consumer are expected; Push never waits.
type Queue[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // read position
	count    int
	capacity int
	closed   bool
	notify   chan struct{} // signalled on push, closed on Close

	// Stats
	pushed    int64
	dropped   int64
	delivered int64
}

// QueueStats contains queue statistics.
type QueueStats struct {
	Count     int
	Capacity  int
	Pushed    int64
	Dropped   int64
	Delivered int64
}

// NewQueue creates a queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// Push appends an item, evicting the oldest one if the queue is full.
// Returns true if an item was evicted. Pushing to a closed queue is a no-op.
func (q *Queue[T]) Push(item T) (dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	if q.count == q.capacity {
		var zero T
		q.buf[q.head] = zero
		q.head = (q.head + 1) % q.capacity
		q.count--
		q.dropped++
		dropped = true
	}

	q.buf[(q.head+q.count)%q.capacity] = item
	q.count++
	q.pushed++

	// Wake the consumer; a pending signal already covers this push.
	select {
	case q.notify <- struct{}{}:
	default:
	}

	return dropped
}

// Receive removes and returns the oldest item, waiting until one is
// available. Returns false if ctx is done or the queue is closed.
func (q *Queue[T]) Receive(ctx context.Context) (T, bool) {
	for {
		if item, ok, closed := q.pop(); ok {
			return item, true
		} else if closed {
			return item, false
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-q.notify:
		}
	}
}

// TryReceive removes and returns the oldest item without waiting.
func (q *Queue[T]) TryReceive() (T, bool) {
	item, ok, _ := q.pop()
	return item, ok
}

func (q *Queue[T]) pop() (item T, ok bool, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return item, false, true
	}
	if q.count == 0 {
		return item, false, false
	}

	item = q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // Clear reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.delivered++

	return item, true, false
}

// Close discards buffered items and wakes any waiting receiver.
// Subsequent pushes are ignored.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.buf = make([]T, q.capacity)
	q.head = 0
	q.count = 0
	close(q.notify)
}

// Snapshot returns the buffered items oldest first without removing them.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, q.count)
	for i := 0; i < q.count; i++ {
		out[i] = q.buf[(q.head+i)%q.capacity]
	}
	return out
}

// Len returns the current number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity of the queue.
func (q *Queue[T]) Cap() int {
	return q.capacity
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:     q.count,
		Capacity:  q.capacity,
		Pushed:    q.pushed,
		Dropped:   q.dropped,
		Delivered: q.delivered,
	}
}
