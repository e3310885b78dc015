package engine

import (
	"golang.org/x/sys/unix"
)

// fdHandler is invoked by the dispatcher whenever its fd reports
// nonzero revents.
type fdHandler interface {
	onEvent(revents int16)
}

// Entry is a stable handle to one watched fd. Its index into the
// dispatcher's parallel arrays moves around on swap-remove, which is
// why the index lives on the handle rather than being recovered from
// pointer arithmetic.
type Entry struct {
	fd      int
	idx     int
	handler fdHandler
}

// Fd returns the watched file descriptor.
func (e *Entry) Fd() int { return e.fd }

// watchEvents are requested on every watched fd: data, priority data,
// error, hangup, and invalid-fd notifications. Write interest
// (POLLOUT) is added and removed per fd by the File layer.
const watchEvents = unix.POLLIN | unix.POLLPRI | unix.POLLERR | unix.POLLHUP | unix.POLLNVAL

// Dispatcher owns the watched-fd table: two parallel slices kept the
// same length and order, doubled on overflow by append's own growth.
type Dispatcher struct {
	pollfds []unix.PollFd
	entries []*Entry
}

// NewDispatcher creates an empty fd dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		pollfds: make([]unix.PollFd, 0, 128),
		entries: make([]*Entry, 0, 128),
	}
}

// Len returns the number of fds currently watched.
func (d *Dispatcher) Len() int { return len(d.pollfds) }

// Register starts watching fd for readability, priority data, and
// error conditions, invoking handler when any are observed.
func (d *Dispatcher) Register(fd int, handler fdHandler) *Entry {
	e := &Entry{fd: fd, idx: len(d.pollfds), handler: handler}
	d.pollfds = append(d.pollfds, unix.PollFd{Fd: int32(fd), Events: watchEvents})
	d.entries = append(d.entries, e)
	return e
}

// Unregister closes e's fd and removes it from the watched table,
// swapping the last slot into the vacated one and fixing up the
// swapped entry's index.
func (d *Dispatcher) Unregister(e *Entry) {
	idx := e.idx
	last := len(d.pollfds) - 1

	_ = unix.Close(int(d.pollfds[idx].Fd))

	if idx != last {
		d.pollfds[idx] = d.pollfds[last]
		d.entries[idx] = d.entries[last]
		d.entries[idx].idx = idx
	}
	d.pollfds = d.pollfds[:last]
	d.entries = d.entries[:last]
	e.idx = -1
}

// SetWriteInterest adds or clears POLLOUT on e's pollfd.
func (d *Dispatcher) SetWriteInterest(e *Entry, want bool) {
	if want {
		d.pollfds[e.idx].Events |= unix.POLLOUT
	} else {
		d.pollfds[e.idx].Events &^= unix.POLLOUT
	}
}

// hasWriteInterest reports whether e currently requests POLLOUT.
func (d *Dispatcher) hasWriteInterest(e *Entry) bool {
	return d.pollfds[e.idx].Events&unix.POLLOUT != 0
}

// poll blocks on readiness up to timeoutMs (-1 for infinite, 0 for a
// non-blocking poll) and returns the number of ready fds.
func (d *Dispatcher) poll(timeoutMs int) (int, error) {
	for {
		n, err := unix.Poll(d.pollfds, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		return n, err
	}
}

// dispatchReady invokes the handler for every fd with nonzero revents.
// It decrements the scan index after every invocation so that a slot
// vacated by an in-callback Unregister is re-examined: swap-remove may
// have moved a still-ready entry into the current index.
func (d *Dispatcher) dispatchReady(ready int) {
	for i := 0; i < len(d.pollfds) && ready > 0; i++ {
		revents := d.pollfds[i].Revents
		if revents == 0 {
			continue
		}
		d.pollfds[i].Revents = 0
		handler := d.entries[i].handler
		ready--
		handler.onEvent(revents)
		i--
	}
}
