package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowIsMonotonicallyNonDecreasing(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	prev := c.Now()
	for i := 0; i < 1000; i++ {
		now := c.Now()
		require.GreaterOrEqual(t, now, prev)
		prev = now
	}
}

func TestNowReflectsElapsedTime(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.GreaterOrEqual(t, c.Now(), 10*time.Millisecond)
}

func TestNewStartsNearZero(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	require.Less(t, c.Now(), time.Second)
}
