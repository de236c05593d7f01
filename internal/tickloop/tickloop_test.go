package tickloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoopCallsStepAtConfiguredRate(t *testing.T) {
	loop := NewLoop(100) // 10ms period
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	var calls int32
	loop.Run(ctx, func(ctx context.Context, tick uint32) {
		atomic.AddInt32(&calls, 1)
	})

	require.Greater(t, int(atomic.LoadInt32(&calls)), 3)
}

func TestLoopRecoversFromPanicAndContinues(t *testing.T) {
	loop := NewLoop(200)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	var calls int32
	loop.Run(ctx, func(ctx context.Context, tick uint32) {
		n := atomic.AddInt32(&calls, 1)
		if n == 2 {
			panic("boom")
		}
	})

	require.Greater(t, int(atomic.LoadInt32(&calls)), 2, "a panicking tick must not stop the loop")
}

func TestLoopTracksSmoothedDuration(t *testing.T) {
	loop := NewLoop(1000)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	loop.Run(ctx, func(ctx context.Context, tick uint32) {
		time.Sleep(time.Millisecond)
	})

	require.Greater(t, loop.SmoothedTickDuration(), time.Duration(0))
	require.Greater(t, loop.CurrentTick(), uint32(0))
}
