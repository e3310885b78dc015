package engine

import (
	"github.com/dstutzbach/gnutella-crawler/internal/clock"
	"github.com/dstutzbach/gnutella-crawler/internal/heap"
)

// Timer fires a callback once at or after a scheduled deadline. The
// timer service owns a Timer while it is scheduled; HeapIndex is the
// sentinel -1 when the timer is not currently in the heap (either it
// hasn't been scheduled, or the dispatcher has already extracted it to
// fire, or it has been cancelled).
type Timer struct {
	deadline clock.Instant
	callback func(payload any)
	payload  any
	heapIdx  int
}

func (t *Timer) Less(other heap.Item) bool {
	return t.deadline < other.(*Timer).deadline
}

func (t *Timer) HeapIndex() int       { return t.heapIdx }
func (t *Timer) SetHeapIndex(i int)   { t.heapIdx = i }

// Timers schedules callbacks at an absolute monotonic deadline,
// backed by a min-heap keyed on that deadline. Cancel and Reset are
// O(log n).
type Timers struct {
	clock *clock.Clock
	heap  *heap.Heap
}

// NewTimers creates a timer service driven by clock.
func NewTimers(c *clock.Clock) *Timers {
	return &Timers{clock: c, heap: heap.New(true)}
}

// Len reports how many timers are currently scheduled.
func (t *Timers) Len() int { return t.heap.Len() }

// Empty reports whether no timers are scheduled.
func (t *Timers) Empty() bool { return t.heap.Empty() }

// Peek returns the next timer to fire, or nil if none are scheduled.
func (t *Timers) Peek() *Timer {
	item := t.heap.Peek()
	if item == nil {
		return nil
	}
	return item.(*Timer)
}

// Schedule arranges for callback(payload) to run at clock.Now()+delay.
func (t *Timers) Schedule(delay clock.Instant, callback func(payload any), payload any) *Timer {
	timer := &Timer{
		deadline: t.clock.Now() + delay,
		callback: callback,
		payload:  payload,
		heapIdx:  -1,
	}
	t.heap.Insert(timer)
	return timer
}

// Cancel removes timer if it is still scheduled. Calling Cancel from
// inside the timer's own callback is a safe no-op: the dispatcher has
// already extracted the timer from the heap by the time its callback
// runs.
func (t *Timers) Cancel(timer *Timer) {
	if !t.heap.Contains(timer) {
		return
	}
	t.heap.Remove(timer)
}

// Reset reschedules timer to fire at clock.Now()+delay.
func (t *Timers) Reset(timer *Timer, delay clock.Instant) {
	timer.deadline = t.clock.Now() + delay
	if t.heap.Contains(timer) {
		t.heap.Fix(timer)
	} else {
		t.heap.Insert(timer)
	}
}

// fireNext extracts and runs the minimum timer, which must be due.
// Called only by the dispatcher's main loop.
func (t *Timers) fireNext() {
	timer := t.heap.ExtractMin().(*Timer)
	timer.callback(timer.payload)
}
