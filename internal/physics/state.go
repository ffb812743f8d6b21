package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MoveState is the ground/air classification of the player.
type MoveState uint8

const (
	Airborne MoveState = iota
	Grounded
)

func (s MoveState) String() string {
	switch s {
	case Airborne:
		return "airborne"
	case Grounded:
		return "grounded"
	default:
		return fmt.Sprintf("MoveState(%d)", uint8(s))
	}
}

type PlayerState struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Yaw      float32
	Pitch    float32
	Move     MoveState
	// GroundNormal is only meaningful while Move == Grounded.
	GroundNormal mgl32.Vec3
}

func (p PlayerState) Grounded() bool {
	return p.Move == Grounded
}

// HorizontalSpeed is the XY speed, the number the trainer is about.
func (p PlayerState) HorizontalSpeed() float32 {
	return horizontal(p.Velocity).Len()
}

// Forward is the world XY direction the view faces.
func (p PlayerState) Forward() mgl32.Vec2 {
	return RotateYaw(mgl32.Vec2{0, 1}, p.Yaw)
}

// InputSample is one tick of normalized input.
type InputSample struct {
	// Wish is player-local: x = right, y = forward.
	Wish mgl32.Vec2
	Jump bool
	// View is (yaw delta, pitch delta) in radians.
	View mgl32.Vec2
}

// SideStrafe reports input that only holds a side key.
func (in InputSample) SideStrafe() bool {
	return in.Wish[0] != 0 && in.Wish[1] == 0
}

// Snapshot is the read-only view of the simulator handed to renderers.
type Snapshot struct {
	PlayerState
	Tick uint64
	// AirTime is seconds since the last ground contact.
	AirTime float32
	// Wish is the world-space wish direction used on the last tick.
	Wish  mgl32.Vec2
	Speed float32
}

// Extrapolate returns the position dt seconds past the snapshot, for drawing
// between ticks.
func (s Snapshot) Extrapolate(dt float32) mgl32.Vec3 {
	return s.Position.Add(s.Velocity.Mul(dt))
}

// StepReport describes what happened during one Step.
type StepReport struct {
	Jumped     bool
	Landed     bool
	LeftGround bool
	Clamped    bool
	Reset      bool
	Wrapped    bool
	// Falling is set while airborne longer than the fall threshold. It is
	// gameplay, not a fault.
	Falling bool
}

type Diagnostics struct {
	Ticks         uint64
	ClampedSteps  uint64
	Resets        uint64
	Jumps         uint64
	Landings      uint64
	AirborneTicks uint64
}
