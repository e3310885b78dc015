package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type testHandler struct {
	onFn func(revents int16)
	n    int
}

func (h *testHandler) onEvent(revents int16) {
	h.n++
	if h.onFn != nil {
		h.onFn(revents)
	}
}

func pipeFds(t *testing.T) (r, w int) {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe2(fds[:], 0))
	return fds[0], fds[1]
}

func TestRegisterUnregisterSwapsLastSlotIn(t *testing.T) {
	d := NewDispatcher()
	r1, w1 := pipeFds(t)
	r2, w2 := pipeFds(t)
	defer unix.Close(w1)
	defer unix.Close(w2)

	h1 := &testHandler{}
	h2 := &testHandler{}
	e1 := d.Register(r1, h1) // closes r1 when unregistered
	e2 := d.Register(r2, h2)
	require.Equal(t, 2, d.Len())
	require.Equal(t, 0, e1.idx)
	require.Equal(t, 1, e2.idx)

	d.Unregister(e1)
	require.Equal(t, 1, d.Len())
	require.Equal(t, 0, e2.idx, "last slot's entry must be swapped into the vacated index")
	require.Equal(t, r2, int(d.pollfds[0].Fd))

	unix.Close(r2)
}

func TestDispatcherReentrantUnregisterRevisitsSwappedSlot(t *testing.T) {
	d := NewDispatcher()
	r1, w1 := pipeFds(t)
	r2, w2 := pipeFds(t)
	defer unix.Close(w1)
	defer unix.Close(w2)

	// Make both fds readable.
	_, err := unix.Write(w1, []byte("x"))
	require.NoError(t, err)
	_, err = unix.Write(w2, []byte("x"))
	require.NoError(t, err)

	var e1 *Entry
	h1 := &testHandler{}
	h2 := &testHandler{}
	h1.onFn = func(revents int16) {
		d.Unregister(e1) // unregisters slot 0, swapping slot 1 (h2) into slot 0
	}
	e1 = d.Register(r1, h1)
	d.Register(r2, h2)

	n, err := d.poll(1000)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	d.dispatchReady(n)

	require.Equal(t, 1, h1.n)
	require.Equal(t, 1, h2.n, "handler swapped into the vacated slot must still run this iteration")
}

func TestSetWriteInterest(t *testing.T) {
	d := NewDispatcher()
	r, w := pipeFds(t)
	defer unix.Close(r)
	defer unix.Close(w)

	e := d.Register(w, &testHandler{})
	require.False(t, d.hasWriteInterest(e))
	d.SetWriteInterest(e, true)
	require.True(t, d.hasWriteInterest(e))
	d.SetWriteInterest(e, false)
	require.False(t, d.hasWriteInterest(e))
}
