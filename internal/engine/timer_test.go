package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dstutzbach/gnutella-crawler/internal/clock"
)

func newTestTimers(t *testing.T) *Timers {
	t.Helper()
	c, err := clock.New()
	require.NoError(t, err)
	return NewTimers(c)
}

func TestTimersFireInNonDecreasingDeadlineOrder(t *testing.T) {
	timers := newTestTimers(t)

	const n = 50
	order := rand.Perm(n)
	var fired []int

	for _, v := range order {
		v := v
		timers.Schedule(time.Duration(v)*time.Millisecond, func(payload any) {
			fired = append(fired, payload.(int))
		}, v)
	}

	for !timers.Empty() {
		timers.fireNext()
	}

	require.Len(t, fired, n)
	for i := 1; i < len(fired); i++ {
		require.LessOrEqual(t, fired[i-1], fired[i])
	}
}

func TestCancelFromInsideCallbackIsNoop(t *testing.T) {
	timers := newTestTimers(t)

	var self *Timer
	ran := false
	self = timers.Schedule(0, func(payload any) {
		ran = true
		require.NotPanics(t, func() { timers.Cancel(self) })
	}, nil)

	require.NotNil(t, self)
	timers.fireNext()
	require.True(t, ran)
}

func TestCancelBeforeFirePreventsCallback(t *testing.T) {
	timers := newTestTimers(t)

	fired := false
	timer := timers.Schedule(time.Hour, func(payload any) { fired = true }, nil)
	timers.Cancel(timer)

	require.True(t, timers.Empty())
	require.False(t, fired)
}

func TestResetWithLargerDelayPostponesFiring(t *testing.T) {
	timers := newTestTimers(t)

	order := []string{}
	a := timers.Schedule(5*time.Millisecond, func(payload any) { order = append(order, "a") }, nil)
	timers.Schedule(10*time.Millisecond, func(payload any) { order = append(order, "b") }, nil)

	timers.Reset(a, time.Hour)

	timers.fireNext() // b fires first now
	require.Equal(t, []string{"b"}, order)
}

func TestResetWithZeroDelayFiresOnNextIteration(t *testing.T) {
	timers := newTestTimers(t)

	timer := timers.Schedule(time.Hour, func(payload any) {}, nil)
	timers.Reset(timer, 0)

	next := timers.Peek()
	require.Same(t, timer, next)
	require.LessOrEqual(t, next.deadline, timers.clock.Now())
}
