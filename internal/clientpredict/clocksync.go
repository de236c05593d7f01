package clientpredict

import "time"

// ClockSync tracks the client's estimate of the server's current tick from
// round-trip Pong timing (§4.7 "Tick synchronization", §4.8).
type ClockSync struct {
	tickRateHz int

	oneWayLatency  time.Duration
	lastServerTick uint32
	lastPongAt     time.Time
}

// NewClockSync returns a ClockSync for a client ticking at tickRateHz.
func NewClockSync(tickRateHz int) *ClockSync {
	return &ClockSync{tickRateHz: tickRateHz}
}

// OnPong records a round trip: sentAt is when the Ping was sent, now is
// when its Pong arrived, and serverTick is the tick the server stamped
// into the Pong. Half the round-trip time is taken as the one-way latency.
func (c *ClockSync) OnPong(sentAt, now time.Time, serverTick uint32) {
	rtt := now.Sub(sentAt)
	if rtt < 0 {
		rtt = 0
	}
	c.oneWayLatency = rtt / 2
	c.lastServerTick = serverTick
	c.lastPongAt = now
}

// EstimatedServerTick projects the last known server tick forward by the
// elapsed time since it was observed plus one-way latency, so a freshly
// produced input carries a tick close to the server's current one.
func (c *ClockSync) EstimatedServerTick(now time.Time) uint32 {
	if c.lastPongAt.IsZero() {
		return c.lastServerTick
	}
	elapsed := now.Sub(c.lastPongAt) + c.oneWayLatency
	if elapsed <= 0 {
		return c.lastServerTick
	}
	ticks := uint32(elapsed.Seconds() * float64(c.tickRateHz))
	return c.lastServerTick + ticks
}

// OneWayLatency returns the most recently computed one-way latency.
func (c *ClockSync) OneWayLatency() time.Duration { return c.oneWayLatency }
