package physics

// ActionFlags packs the boolean intents of one InputData tick into a
// single byte (§3).
type ActionFlags uint8

const (
	ActionJump ActionFlags = 1 << iota
	ActionSprint
	ActionCrouch
)

func (f ActionFlags) Has(flag ActionFlags) bool { return f&flag != 0 }

// StateFlags packs the derived booleans of a StateSnapshot into one byte
// (§3): grounded/sprinting/crouching/jumping/falling.
type StateFlags uint8

const (
	StateGrounded StateFlags = 1 << iota
	StateSprinting
	StateCrouching
	StateJumping
	StateFalling
)

func (f StateFlags) Has(flag StateFlags) bool { return f&flag != 0 }

// InputData is one client intent tick (§3). Sequence is monotonic per
// session; Tick identifies which simulation step produced it.
type InputData struct {
	Tick     uint32
	Sequence uint32
	Move     Vector2
	Rotation float32
	Actions  ActionFlags
}

// MovementSettings are the physics constants shared byte-for-byte between
// client and server; deterministic replay requires exact equality (§3).
type MovementSettings struct {
	WalkSpeed         float32 `yaml:"walk_speed"`
	SprintSpeed       float32 `yaml:"sprint_speed"`
	JumpImpulse       float32 `yaml:"jump_impulse"`
	Gravity           float32 `yaml:"gravity"`
	Friction          float32 `yaml:"friction"`
	GroundedThreshold float32 `yaml:"grounded_threshold"`
	MaxStep           float32 `yaml:"max_step"`
}

// DefaultMovementSettings returns the settings both AuthServer-issued
// clients and the GameServer load when no override is configured.
func DefaultMovementSettings() MovementSettings {
	return MovementSettings{
		WalkSpeed:         4.0,
		SprintSpeed:       7.0,
		JumpImpulse:       6.0,
		Gravity:           -15.0,
		Friction:          8.0,
		GroundedThreshold: 0.05,
		MaxStep:           0.3,
	}
}

// StateSnapshot is the authoritative or predicted state at a tick (§3).
type StateSnapshot struct {
	Tick               uint32
	LastProcessedInput uint32
	Position           Vector3
	Velocity           Vector3
	Rotation           float32
	Flags              StateFlags
}
