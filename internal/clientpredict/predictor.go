// Package clientpredict implements the client half of §4.7: local input
// prediction and server reconciliation. It imports physics.Execute directly
// so the predicted step is identical to the GameServer's authoritative one
// — the same function, the same settings, the same Δt.
package clientpredict

import (
	"github.com/rvult/riftnet/internal/physics"
)

// Epsilon is the default per-axis position tolerance for accepting a
// server snapshot without replay (§4.7 step 3).
const Epsilon = 0.01

// pendingInput is one input the client has sent but not yet seen
// acknowledged by a snapshot.
type pendingInput struct {
	input physics.InputData
}

// ringEntry is one predicted snapshot recorded at the tick it was produced,
// for later comparison against the server's authoritative snapshot (§4.7).
type ringEntry struct {
	tick  uint32
	state physics.StateSnapshot
}

// Reconciliation describes the outcome of comparing a server snapshot to
// the locally predicted state for the same tick (§4.7 step 4).
type Reconciliation struct {
	Mispredicted  bool
	HadRingEntry  bool
	PreReplay     physics.StateSnapshot
	PostReplay    physics.StateSnapshot
	RepliedInputs int
}

// Predictor holds a client's rolling prediction state: the next input
// sequence, the pending (unacknowledged) input buffer, the state ring, and
// the current predicted state.
type Predictor struct {
	settings physics.MovementSettings
	dt       float32
	epsilon  float32

	nextSequence uint32
	pending      []pendingInput
	ring         []ringEntry
	current      physics.StateSnapshot
}

// New constructs a Predictor seeded at spawn, ticking at tickRateHz and
// comparing with the given per-axis epsilon. epsilon <= 0 selects Epsilon.
func New(spawn physics.StateSnapshot, settings physics.MovementSettings, tickRateHz int, epsilon float32) *Predictor {
	if epsilon <= 0 {
		epsilon = Epsilon
	}
	return &Predictor{
		settings: settings,
		dt:       1.0 / float32(tickRateHz),
		epsilon:  epsilon,
		current:  spawn,
	}
}

// Current returns the predictor's current (possibly just-reconciled)
// predicted state.
func (p *Predictor) Current() physics.StateSnapshot { return p.current }

// PendingCount reports how many sent inputs are still unacknowledged, for
// diagnostics.
func (p *Predictor) PendingCount() int { return len(p.pending) }

// Step runs one local prediction tick (§4.7 steps 1-3): it assigns the
// next sequence number to move/rotation/actions sampled this tick, records
// the input in the pending buffer, advances "current" through
// physics.Execute, records the resulting predicted state in the ring under
// tick, and returns the input so the caller can send it.
func (p *Predictor) Step(tick uint32, move physics.Vector2, rotation float32, actions physics.ActionFlags) physics.InputData {
	p.nextSequence++
	in := physics.InputData{
		Tick:     tick,
		Sequence: p.nextSequence,
		Move:     move,
		Rotation: rotation,
		Actions:  actions,
	}

	p.pending = append(p.pending, pendingInput{input: in})
	p.current = physics.Execute(p.current, in, p.settings, p.dt)
	p.ring = append(p.ring, ringEntry{tick: tick, state: p.current})

	return in
}

// Reconcile applies a server PlayerState snapshot (§4.7 on-receive steps):
// it prunes acknowledged inputs from the pending buffer, compares the
// snapshot against the ring entry recorded at the same tick, and — on
// mismatch or a missing ring entry — replays every still-pending input
// through physics.Execute to rebuild "current".
func (p *Predictor) Reconcile(snapshot physics.StateSnapshot) Reconciliation {
	p.prune(snapshot.LastProcessedInput)

	entry, ok := p.ringEntryForTick(snapshot.Tick)
	result := Reconciliation{HadRingEntry: ok}

	if ok && entry.state.Position.WithinEpsilon(snapshot.Position, p.epsilon) &&
		entry.state.Velocity.WithinEpsilon(snapshot.Velocity, p.epsilon) &&
		entry.state.Flags == snapshot.Flags {
		return result
	}

	result.Mispredicted = true
	if ok {
		result.PreReplay = entry.state
	} else {
		result.PreReplay = p.current
	}

	p.current = snapshot
	for _, pi := range p.pending {
		p.current = physics.Execute(p.current, pi.input, p.settings, p.dt)
		result.RepliedInputs++
	}
	result.PostReplay = p.current

	p.pruneRingBefore(snapshot.Tick)

	return result
}

func (p *Predictor) prune(lastProcessed uint32) {
	kept := p.pending[:0]
	for _, pi := range p.pending {
		if pi.input.Sequence > lastProcessed {
			kept = append(kept, pi)
		}
	}
	p.pending = kept
}

func (p *Predictor) ringEntryForTick(tick uint32) (ringEntry, bool) {
	for _, e := range p.ring {
		if e.tick == tick {
			return e, true
		}
	}
	return ringEntry{}, false
}

// pruneRingBefore drops ring entries at or before tick: the client never
// discards an entry before its matching snapshot has arrived (§4.7 step 2),
// so once reconciled they carry no further information.
func (p *Predictor) pruneRingBefore(tick uint32) {
	kept := p.ring[:0]
	for _, e := range p.ring {
		if e.tick > tick {
			kept = append(kept, e)
		}
	}
	p.ring = kept
}
