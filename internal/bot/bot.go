// Package bot demonstrates strafe jumping by driving the input sampler the
// way a player would: keys plus view rotation, never touching physics state.
package bot

import (
	"fmt"
	"log/slog"

	"github.com/Versifine/strafe/internal/input"
	"github.com/Versifine/strafe/internal/physics"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultMaxTurnRate is in degrees per second.
	DefaultMaxTurnRate = float32(1000)

	// takeoffFraction of the reachable ground speed triggers the first jump.
	takeoffFraction = float32(0.99)
	// landing below stallFraction of the reachable ground speed ends a run.
	stallFraction = float32(0.9)
)

type State uint8

const (
	Idle State = iota
	Takeoff
	Flight
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Takeoff:
		return "takeoff"
	case Flight:
		return "flight"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Bot is a Pilot. The mask decides which parts of the input it owns; with
// OverrideNone it leaves the player alone.
type Bot struct {
	state   State
	mask    input.Override
	auto    bool
	maxTurn float32

	// side is +1 when strafing right (clockwise), -1 when strafing left.
	side        float32
	wasGrounded bool
	jumpHeld    bool
}

type Option func(*Bot)

// WithAutoRestart makes an idle bot take off again on its own.
func WithAutoRestart(on bool) Option {
	return func(b *Bot) { b.auto = on }
}

func WithMaxTurnRate(degPerSec float32) Option {
	return func(b *Bot) {
		if degPerSec > 0 {
			b.maxTurn = mgl32.DegToRad(degPerSec)
		}
	}
}

func WithMask(m input.Override) Option {
	return func(b *Bot) { b.mask = m }
}

func New(opts ...Option) *Bot {
	b := &Bot{
		maxTurn: mgl32.DegToRad(DefaultMaxTurnRate),
		side:    1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bot) State() State {
	return b.state
}

func (b *Bot) Mask() input.Override {
	return b.mask
}

func (b *Bot) SetMask(m input.Override) {
	b.mask = m
}

// TakeOff starts a run from the ground.
func (b *Bot) TakeOff() {
	b.setState(Takeoff)
}

func (b *Bot) Stop() {
	b.setState(Idle)
}

func (b *Bot) setState(s State) {
	if b.state != s {
		slog.Debug("Strafe bot state changed", "from", b.state, "to", s)
	}
	b.state = s
}

// Pilot inspects the latest snapshot and writes this tick's keys and view
// steering into the sampler.
func (b *Bot) Pilot(snap physics.Snapshot, c physics.Constants, dt float32, s *input.Sampler) {
	grounded := snap.Grounded()
	landed := grounded && !b.wasGrounded
	b.wasGrounded = grounded

	if b.mask == input.OverrideNone {
		s.Override(0, input.OverrideNone)
		b.jumpHeld = false
		return
	}

	reachable := reachableGroundSpeed(c)
	var (
		keys  input.KeyState
		steer bool
	)

	if b.state == Idle && b.auto {
		b.setState(Takeoff)
	}
	if b.state == Takeoff && !grounded {
		b.setState(Flight)
		b.side = b.pickSide(snap)
		landed = false
	}

	switch b.state {
	case Takeoff:
		keys = input.Keys(input.Forward)
		if snap.Speed >= takeoffFraction*reachable && !b.jumpHeld {
			keys = keys.With(input.Jump, true)
		}
	case Flight:
		if grounded && snap.Speed < stallFraction*reachable {
			b.setState(Idle)
			break
		}
		if landed {
			b.side = -b.side
		}
		keys = input.Keys(input.Forward, b.sideKey())
		if grounded && !b.jumpHeld {
			keys = keys.With(input.Jump, true)
		}
		steer = true
	}

	b.jumpHeld = keys.Has(input.Jump)
	s.Override(keys, b.mask)

	if !b.mask.Has(input.OverrideTurn) {
		return
	}
	var yaw float32
	if steer {
		if side, ok := b.strafeSide(s); ok {
			yaw = b.turn(snap, c, dt, side)
		}
	}
	maxStep := b.maxTurn * dt
	pitch := mgl32.Clamp(-snap.Pitch, -maxStep, maxStep)
	s.Steer(yaw, pitch)
}

// strafeSide reads the side from whoever owns the move keys.
func (b *Bot) strafeSide(s *input.Sampler) (float32, bool) {
	if b.mask.Has(input.OverrideMove) {
		return b.side, true
	}
	keys := s.UserKeys()
	switch {
	case keys.Has(input.Right) && !keys.Has(input.Left):
		return 1, true
	case keys.Has(input.Left) && !keys.Has(input.Right):
		return -1, true
	default:
		return 0, false
	}
}

func (b *Bot) sideKey() input.Action {
	if b.side > 0 {
		return input.Right
	}
	return input.Left
}

// pickSide starts the flight turning toward whichever side the velocity
// already leans.
func (b *Bot) pickSide(snap physics.Snapshot) float32 {
	v := mgl32.Vec2{snap.Velocity[0], snap.Velocity[1]}
	if v.Len() < 1e-6 {
		return b.side
	}
	local := physics.RotateYaw(v, -snap.Yaw)
	if local[0] < 0 {
		return -1
	}
	return 1
}

// turn is the yaw change that puts the diagonal wish direction at the optimal
// air-strafe angle from the velocity, limited by the turn rate.
func (b *Bot) turn(snap physics.Snapshot, c physics.Constants, dt, side float32) float32 {
	v := mgl32.Vec2{snap.Velocity[0], snap.Velocity[1]}
	if v.Len() < 1e-3 {
		return 0
	}
	// the forward+side wish sits 45 degrees off the view
	want := physics.Heading(v) - side*OptimalAngle(v.Len(), c.Air(false), dt) + side*math32.Pi/4
	delta := physics.WrapSigned(want - snap.Yaw)
	maxStep := b.maxTurn * dt
	return mgl32.Clamp(delta, -maxStep, maxStep)
}

// OptimalAngle is the angle between velocity and wish direction that gives the
// largest speed gain for one air-accelerate tick.
func OptimalAngle(speed float32, m physics.Movement, dt float32) float32 {
	if speed <= 0 {
		return 0
	}
	cos := mgl32.Clamp((m.SpeedCap-m.Accel*dt)/speed, -1, 1)
	return math32.Acos(cos)
}

// reachableGroundSpeed is where ground acceleration and friction balance, or
// the cap if that comes first.
func reachableGroundSpeed(c physics.Constants) float32 {
	if c.Friction <= 0 {
		return c.GroundSpeedCap
	}
	return math32.Min(c.GroundSpeedCap, c.GroundAccel/c.Friction)
}
