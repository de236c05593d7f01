package physics

// Execute is the single source of truth for player motion (§4.3, §9): a
// pure transition from one StateSnapshot to the next given an input, the
// shared settings, and a fixed timestep. Both GameServer and client
// prediction import this exact function so replay is bit-identical —
// it must never read a clock, a random source, or any package-level
// state, and must avoid transcendental math whose implementation can
// differ across platforms.
func Execute(prev StateSnapshot, in InputData, settings MovementSettings, dt float32) StateSnapshot {
	next := prev
	next.Tick = in.Tick
	next.LastProcessedInput = in.Sequence
	next.Rotation = in.Rotation

	speed := settings.WalkSpeed
	sprinting := in.Actions.Has(ActionSprint)
	if sprinting {
		speed = settings.SprintSpeed
	}

	grounded := prev.Flags.Has(StateGrounded)

	horizontal := Vector3{X: in.Move.X * speed, Z: in.Move.Y * speed}

	vy := prev.Velocity.Y
	if grounded {
		vy = 0
		if in.Actions.Has(ActionJump) {
			vy = settings.JumpImpulse
			grounded = false
		}
	} else {
		vy += settings.Gravity * dt
	}

	var vx, vz float32
	if in.Move.SqrMagnitude() > 0 {
		vx, vz = horizontal.X, horizontal.Z
	} else {
		decay := float32(1) - settings.Friction*dt
		if decay < 0 {
			decay = 0
		}
		vx, vz = prev.Velocity.X*decay, prev.Velocity.Z*decay
	}
	velocity := Vector3{X: vx, Y: vy, Z: vz}

	position := prev.Position.Add(velocity.Scale(dt))

	falling := false
	if position.Y <= 0 {
		position.Y = 0
		if velocity.Y <= settings.GroundedThreshold {
			grounded = true
			velocity.Y = 0
		}
	} else if velocity.Y < -settings.GroundedThreshold {
		grounded = false
		falling = true
	}

	next.Position = position
	next.Velocity = velocity

	var flags StateFlags
	if grounded {
		flags |= StateGrounded
	}
	if sprinting && grounded {
		flags |= StateSprinting
	}
	if in.Actions.Has(ActionCrouch) {
		flags |= StateCrouching
	}
	if !grounded && velocity.Y > 0 {
		flags |= StateJumping
	}
	if falling {
		flags |= StateFalling
	}
	next.Flags = flags

	return next
}
