package engine

import "github.com/sirupsen/logrus"

// Fatalf reports an invariant violation and terminates the process.
// It is used for conditions the process cannot continue past: a
// zero-byte write on a writable fd, EAGAIN on a fd the poller just
// reported ready, POLLOUT with an empty write buffer, a failed
// SetNonblock or poll, and a write failure on the process's stdout.
// An empty-deque pop and heap misuse panic in their own packages, and
// a clock that fails its resolution check is returned as an error by
// NewRuntime. Per-connection failures must never reach this; they
// go through the Gnutella layer's report-and-destroy path instead.
func Fatalf(log *logrus.Entry, format string, args ...any) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.Fatalf(format, args...)
}
