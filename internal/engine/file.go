package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	initialWriteBuf = 4096
	initialReadBuf  = 8192
	readChunk       = 4096
)

// File is a non-blocking buffered wrapper around one fd: a growable
// write buffer drained opportunistically as the fd reports writable,
// and a growable read buffer filled as it reports readable. Deleting a
// File from inside its own handler (including from a read handler it
// drives, such as a LineReader callback) defers the actual teardown
// until the handler returns; deleting it from anywhere else tears down
// immediately.
type File struct {
	d       *Dispatcher
	entry   *Entry
	log     *logrus.Entry
	wbuf    []byte
	rbuf    []byte
	eof     bool
	deleted bool
	torn    bool
	inHandler   bool
	errHandler  func()
	readHandler func()
}

// NewFile sets fd non-blocking, registers it with d, and installs
// errHandler as the File's error callback. The File has no read
// handler until one is installed (see LineReader).
func NewFile(d *Dispatcher, fd int, errHandler func(), log *logrus.Entry) *File {
	if err := unix.SetNonblock(fd, true); err != nil {
		Fatalf(log, "engine: set fd %d non-blocking: %v", fd, err)
	}
	f := &File{
		d:          d,
		log:        log,
		wbuf:       make([]byte, 0, initialWriteBuf),
		rbuf:       make([]byte, 0, initialReadBuf),
		errHandler: errHandler,
	}
	f.entry = d.Register(fd, f)
	return f
}

// Fd returns the underlying file descriptor.
func (f *File) Fd() int { return f.entry.fd }

// SetReadHandler installs the callback invoked after every successful
// read. Used by LineReader to attach itself to a File.
func (f *File) SetReadHandler(h func()) { f.readHandler = h }

// SetErrHandler replaces the File's error callback.
func (f *File) SetErrHandler(h func()) { f.errHandler = h }

// DisableRead clears read interest, for write-only Files such as the
// process's stdout.
func (f *File) DisableRead() {
	f.d.pollfds[f.entry.idx].Events &^= unix.POLLIN
}

// Write appends p to the write buffer and requests write interest.
func (f *File) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	f.wbuf = append(f.wbuf, p...)
	f.d.SetWriteInterest(f.entry, true)
}

// Printf formats into the write buffer and requests write interest.
// fmt.Appendf already grows its destination slice as needed, which is
// the same grow-and-retry discipline the original C file_vprintf()
// implements by hand against vsnprintf's return value.
func (f *File) Printf(format string, args ...any) {
	f.wbuf = fmt.Appendf(f.wbuf, format, args...)
	f.d.SetWriteInterest(f.entry, true)
}

// Pending reports whether the File has unflushed output.
func (f *File) Pending() bool { return len(f.wbuf) > 0 }

// Delete asks the File to free its resources. If called from within
// the File's own handler (directly, or re-entrantly from a read
// handler it is currently driving), teardown is deferred until the
// handler returns.
func (f *File) Delete() {
	f.deleted = true
	if !f.inHandler {
		f.teardown()
	}
}

func (f *File) teardown() {
	if f.torn {
		return
	}
	f.torn = true
	f.d.Unregister(f.entry)
}

// fail invokes the error handler and tears down unconditionally: by
// the time a File decides to fail itself, the fd is no longer usable,
// so there is nothing to defer.
func (f *File) fail() {
	if f.errHandler != nil {
		f.errHandler()
	}
	f.teardown()
}

func (f *File) growRead() {
	if cap(f.rbuf)-len(f.rbuf) >= readChunk {
		return
	}
	newCap := cap(f.rbuf)
	if newCap == 0 {
		newCap = 1
	}
	for newCap-len(f.rbuf) < readChunk {
		newCap *= 2
	}
	grown := make([]byte, len(f.rbuf), newCap)
	copy(grown, f.rbuf)
	f.rbuf = grown
}

// onEvent is the dispatcher callback. It is never reentered for the
// same File: the dispatcher only calls a handler once per readiness
// cycle, even though a nested callback (a read handler deleting the
// File) may run synchronously inside it.
func (f *File) onEvent(revents int16) {
	f.inHandler = true
	defer func() { f.inHandler = false }()

	if revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL|unix.POLLPRI) != 0 {
		f.fail()
		return
	}

	if revents&unix.POLLOUT != 0 {
		if len(f.wbuf) == 0 {
			Fatalf(f.log, "engine: POLLOUT fired with an empty write buffer on fd %d", f.Fd())
		}
		n, err := unix.Write(f.Fd(), f.wbuf)
		switch {
		case err == unix.EAGAIN:
			// The poller just said this fd is writable; EAGAIN here
			// means the readiness report was wrong, which on this
			// single-threaded loop indicates a bug rather than a
			// spurious wakeup worth retrying.
			Fatalf(f.log, "engine: EAGAIN writing to ready fd %d", f.Fd())
		case err == unix.EINTR:
			// Retried on the next writable event.
		case err != nil:
			f.fail()
			return
		case n == 0:
			Fatalf(f.log, "engine: zero-byte write on writable fd %d", f.Fd())
		default:
			copy(f.wbuf, f.wbuf[n:])
			f.wbuf = f.wbuf[:len(f.wbuf)-n]
		}
	}

	if revents&unix.POLLIN != 0 {
		start := len(f.rbuf)
		f.growRead()
		n, err := unix.Read(f.Fd(), f.rbuf[start:cap(f.rbuf)])
		switch {
		case err == unix.EAGAIN:
			Fatalf(f.log, "engine: EAGAIN reading ready fd %d", f.Fd())
		case err == unix.EINTR:
			// Retried on the next readable event.
		case err != nil:
			f.fail()
			return
		case n == 0:
			f.eof = true
		default:
			f.rbuf = f.rbuf[:start+n]
			if f.readHandler != nil {
				f.readHandler()
			}
		}
	}

	if len(f.wbuf) > 0 {
		f.d.SetWriteInterest(f.entry, true)
	} else {
		f.d.SetWriteInterest(f.entry, false)
		if f.eof {
			f.fail()
			return
		}
	}

	if f.deleted {
		f.teardown()
	}
}
