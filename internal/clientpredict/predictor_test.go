package clientpredict

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rvult/riftnet/internal/physics"
)

const dt30 = float32(1) / 30

func TestStepAccumulatesWalkDisplacement(t *testing.T) {
	settings := physics.DefaultMovementSettings()
	p := New(physics.StateSnapshot{Flags: physics.StateGrounded}, settings, 30, 0)

	var last physics.InputData
	for tick := uint32(1); tick <= 5; tick++ {
		last = p.Step(tick, physics.Vector2{Y: 1}, 0, 0)
	}

	require.Equal(t, uint32(5), last.Sequence)
	require.Equal(t, 5, p.PendingCount())
	expectedZ := 5 * settings.WalkSpeed * dt30
	require.InDelta(t, expectedZ, p.Current().Position.Z, 1e-4)
}

func TestReconcileWithinEpsilonAcceptsSilently(t *testing.T) {
	settings := physics.DefaultMovementSettings()
	p := New(physics.StateSnapshot{Flags: physics.StateGrounded}, settings, 30, 0)
	p.Step(1, physics.Vector2{Y: 1}, 0, 0)

	serverSnapshot := p.Current()
	serverSnapshot.LastProcessedInput = 1

	result := p.Reconcile(serverSnapshot)

	require.False(t, result.Mispredicted)
	require.True(t, result.HadRingEntry)
	require.Equal(t, 0, p.PendingCount())
}

func TestReconcileMismatchReplaysPendingInputs(t *testing.T) {
	settings := physics.DefaultMovementSettings()
	p := New(physics.StateSnapshot{Flags: physics.StateGrounded}, settings, 30, 0)

	p.Step(1, physics.Vector2{Y: 1}, 0, 0)
	p.Step(2, physics.Vector2{Y: 1}, 0, 0)
	p.Step(3, physics.Vector2{Y: 1}, 0, 0)

	// Server only acknowledges input 1, and disagrees sharply on position
	// (as if a correction knocked the player back), forcing a replay of
	// inputs 2 and 3.
	serverSnapshot := physics.StateSnapshot{
		Tick:               1,
		LastProcessedInput: 1,
		Flags:              physics.StateGrounded,
		Position:           physics.Vector3{X: 5, Y: 0, Z: 5},
	}

	result := p.Reconcile(serverSnapshot)

	require.True(t, result.Mispredicted)
	require.True(t, result.HadRingEntry)
	require.Equal(t, 2, result.RepliedInputs)
	require.Equal(t, 2, p.PendingCount())

	expected := physics.Execute(serverSnapshot, physics.InputData{Tick: 2, Sequence: 2, Move: physics.Vector2{Y: 1}}, settings, dt30)
	expected = physics.Execute(expected, physics.InputData{Tick: 3, Sequence: 3, Move: physics.Vector2{Y: 1}}, settings, dt30)
	require.Equal(t, expected, p.Current())
	require.Equal(t, expected, result.PostReplay)
}

func TestReconcileMissingRingEntryTreatedAsMisprediction(t *testing.T) {
	settings := physics.DefaultMovementSettings()
	p := New(physics.StateSnapshot{Flags: physics.StateGrounded}, settings, 30, 0)
	p.Step(1, physics.Vector2{Y: 1}, 0, 0)

	// Snapshot references a tick the predictor never recorded.
	serverSnapshot := physics.StateSnapshot{Tick: 99, LastProcessedInput: 1, Flags: physics.StateGrounded}

	result := p.Reconcile(serverSnapshot)

	require.True(t, result.Mispredicted)
	require.False(t, result.HadRingEntry)
	require.Equal(t, 0, result.RepliedInputs)
	require.Equal(t, serverSnapshot, p.Current())
}
