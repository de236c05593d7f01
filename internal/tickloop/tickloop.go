package tickloop

import (
	"context"
	"log/slog"
	"time"
)

// Loop is the fixed-interval scheduler described in §5: a single logical
// simulation thread that runs one Step per tick, records the last tick's
// duration and an exponentially smoothed average, and slips one-for-one
// (no catch-up collapsing) when a tick overruns its budget. Grounded on
// the teacher's TickManager: a time.Ticker driven loop cancellable via
// context, generalized from a fixed-goroutine AI scan to an arbitrary
// per-tick callback.
type Loop struct {
	period time.Duration

	tick             uint64
	lastTickDuration time.Duration
	smoothedDuration time.Duration
	smoothingAlpha   float64
}

// NewLoop returns a Loop targeting the given tick rate (Hz).
func NewLoop(tickRateHz int) *Loop {
	return &Loop{
		period:         time.Second / time.Duration(tickRateHz),
		smoothingAlpha: 0.1,
	}
}

// CurrentTick returns the number of Step calls completed so far.
func (l *Loop) CurrentTick() uint32 { return uint32(l.tick) }

// LastTickDuration returns how long the most recently completed Step took.
func (l *Loop) LastTickDuration() time.Duration { return l.lastTickDuration }

// SmoothedTickDuration returns the exponentially smoothed average tick
// duration (α = 0.1, per §5).
func (l *Loop) SmoothedTickDuration() time.Duration { return l.smoothedDuration }

// Run calls step once per tick until ctx is canceled. A panic inside step
// is recovered and logged at the tick boundary, never propagated (§5/§7).
// Cancellation is observed promptly: the loop finishes the in-flight tick,
// then exits without sleeping.
func (l *Loop) Run(ctx context.Context, step func(ctx context.Context, tick uint32)) {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		l.runStepSafely(ctx, step)
		elapsed := time.Since(start)

		l.lastTickDuration = elapsed
		if l.smoothedDuration == 0 {
			l.smoothedDuration = elapsed
		} else {
			l.smoothedDuration = time.Duration(l.smoothingAlpha*float64(elapsed) + (1-l.smoothingAlpha)*float64(l.smoothedDuration))
		}
		l.tick++

		if elapsed > l.period {
			slog.Warn("tickloop: tick exceeded budget", "tick", l.tick, "elapsed", elapsed, "budget", l.period)
			continue // one-for-one slip: proceed immediately, no catch-up collapsing
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (l *Loop) runStepSafely(ctx context.Context, step func(ctx context.Context, tick uint32)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tickloop: handler panic recovered at tick boundary", "tick", l.tick, "panic", r)
		}
	}()
	step(ctx, uint32(l.tick))
}
