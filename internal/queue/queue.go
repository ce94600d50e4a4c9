// Package queue provides the generic thread-safe FIFO buffering capture
// traffic between the sim loop and the recorder.
package queue

import (
	"sync"
)

// compactThreshold is the minimum consumed prefix before Pop considers
// shifting unread items back to the front of the buffer.
const compactThreshold = 32

// Queue is a mutex-guarded FIFO. Pop advances a head index instead of
// reslicing, so the backing array is reused rather than re-allocated
// under steady push/pop traffic.
type Queue[T any] struct {
	mu   sync.Mutex
	buf  []T
	head int
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends items in order.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.buf = append(q.buf, items...)
}

// Pop removes and returns the oldest item, or the zero value when the
// queue is empty.
func (q *Queue[T]) Pop() (item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.buf) {
		return item
	}
	item = q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // drop the reference so the GC can collect it
	q.head++
	q.compact()
	return item
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.head
}

// Empty reports whether the queue holds no items.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Clear discards all queued items, keeping the buffer's capacity.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.buf)
	q.buf = q.buf[:0]
	q.head = 0
}

// Drain returns every queued item in order and leaves the queue empty.
// The returned slice is the caller's own; later pushes never alias it.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.buf) - q.head
	if n == 0 {
		q.buf = q.buf[:0]
		q.head = 0
		return nil
	}
	out := make([]T, n)
	copy(out, q.buf[q.head:])
	clear(q.buf)
	q.buf = q.buf[:0]
	q.head = 0
	return out
}

// compact shifts unread items to the front once the consumed prefix
// outgrows the live portion. Caller holds the lock.
func (q *Queue[T]) compact() {
	if q.head < compactThreshold || q.head*2 < len(q.buf) {
		return
	}
	n := copy(q.buf, q.buf[q.head:])
	clear(q.buf[n:])
	q.buf = q.buf[:n]
	q.head = 0
}
