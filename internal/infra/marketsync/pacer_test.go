package marketsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJitterPacerNextStaysInBounds(t *testing.T) {
	pacer := NewJitterPacer(10*time.Second, 20*time.Second)
	for i := 0; i < 1000; i++ {
		delay := pacer.Next()
		require.GreaterOrEqual(t, delay, 10*time.Second)
		require.LessOrEqual(t, delay, 20*time.Second)
	}
}

func TestJitterPacerNormalizesBounds(t *testing.T) {
	pacer := NewJitterPacer(-time.Second, -2*time.Second)
	require.Equal(t, time.Duration(0), pacer.Next())

	fixed := NewJitterPacer(5*time.Millisecond, time.Millisecond)
	require.Equal(t, 5*time.Millisecond, fixed.Next())
}

func TestJitterPacerWait(t *testing.T) {
	pacer := NewJitterPacer(time.Millisecond, 2*time.Millisecond)
	delay, err := pacer.Wait(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, delay, time.Millisecond)
}

func TestJitterPacerWaitInterrupted(t *testing.T) {
	pacer := NewJitterPacer(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := pacer.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}
