// Package admission implements the bounded admission queue that gates
// outbound Gnutella connection attempts to a configured concurrency
// cap.
package admission

import (
	"golang.org/x/sys/unix"

	"github.com/dstutzbach/gnutella-crawler/internal/deque"
)

// Queue holds pending peer addresses and starts new connections under
// a concurrency cap, probing for fd availability before each start so
// the crawler degrades gracefully instead of crashing when the
// process runs out of file descriptors.
type Queue struct {
	pending        *deque.Deque[string]
	maxConnections int
	active         func() int
	start          func(addr string)
}

// New creates an admission queue. active reports the crawler's current
// number of in-flight connections; start begins a new connection for
// addr (never called while active() >= maxConnections).
func New(maxConnections int, active func() int, start func(addr string)) *Queue {
	return &Queue{
		pending:        deque.New[string](64),
		maxConnections: maxConnections,
		active:         active,
		start:          start,
	}
}

// Enqueue adds addr to the tail of the pending queue.
func (q *Queue) Enqueue(addr string) {
	q.pending.PushBack(addr)
}

// Len reports how many addresses are waiting to be dequeued.
func (q *Queue) Len() int { return q.pending.Len() }

// Drain starts as many new connections as the concurrency cap and the
// available file descriptors allow, stopping as soon as either is
// exhausted. It is called once per dispatcher iteration.
func (q *Queue) Drain() {
	for q.active() < q.maxConnections && !q.pending.Empty() {
		if !fdAvailable() {
			return
		}
		q.start(q.pending.PopFront())
	}
}

// fdAvailable probes for descriptor headroom by opening and
// immediately closing a harmless file, exactly as the original's
// maybe_dequeue() does with /dev/null. A single syscall round trip is
// the cheapest portable way for a single-threaded process to ask "do
// I have one more fd" without tracking the kernel's rlimit itself.
func fdAvailable() bool {
	fd, err := unix.Open("/dev/null", unix.O_RDONLY, 0)
	if err != nil {
		return false
	}
	_ = unix.Close(fd)
	return true
}
