package clientpredict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockSyncOnPongHalvesRoundTrip(t *testing.T) {
	c := NewClockSync(30)
	sent := time.Unix(0, 0)
	now := sent.Add(100 * time.Millisecond)

	c.OnPong(sent, now, 42)

	require.Equal(t, 50*time.Millisecond, c.OneWayLatency())
}

func TestClockSyncEstimatesForwardTicks(t *testing.T) {
	c := NewClockSync(30)
	sent := time.Unix(0, 0)
	pongAt := sent.Add(60 * time.Millisecond)
	c.OnPong(sent, pongAt, 100)

	// One second later, at 30 ticks/sec plus the 30ms one-way latency
	// already folded into the estimate, 1.03s truncates to 30 ticks, so the
	// estimate is tick 100+30.
	later := pongAt.Add(time.Second)
	est := c.EstimatedServerTick(later)

	require.Greater(t, est, uint32(129))
}
