package input

import (
	"github.com/Versifine/strafe/internal/physics"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultSensitivity is radians of view rotation per mouse count.
const DefaultSensitivity = float32(0.0022)

// Override selects which parts of the input a pilot replaces.
type Override uint8

const (
	OverrideMove Override = 1 << iota
	OverrideJump
	OverrideTurn

	OverrideNone Override = 0
	OverrideAll           = OverrideMove | OverrideJump | OverrideTurn
)

func (o Override) Has(x Override) bool {
	return o&x == x
}

var moveKeys = Keys(Forward, Back, Left, Right)

// Sampler turns raw key and mouse events into one InputSample per tick.
// View deltas accumulate between samples and are handed over whole.
type Sampler struct {
	binds       KeyBinds
	sensitivity float32
	invertPitch bool
	jumpMode    physics.JumpMode

	user   KeyState
	tapped KeyState
	view   mgl32.Vec2

	pilot     KeyState
	pilotView mgl32.Vec2
	mask      Override

	prev     KeyState
	pressed  KeyState
	released KeyState
}

type Option func(*Sampler)

func WithBinds(b KeyBinds) Option {
	return func(s *Sampler) { s.binds = b }
}

func WithSensitivity(radPerCount float32) Option {
	return func(s *Sampler) {
		if radPerCount > 0 {
			s.sensitivity = radPerCount
		}
	}
}

func WithInvertPitch(invert bool) Option {
	return func(s *Sampler) { s.invertPitch = invert }
}

func WithJumpMode(m physics.JumpMode) Option {
	return func(s *Sampler) { s.jumpMode = m }
}

func NewSampler(opts ...Option) *Sampler {
	s := &Sampler{
		binds:       DefaultKeyBinds(),
		sensitivity: DefaultSensitivity,
		jumpMode:    physics.JumpEdge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sampler) Binds() KeyBinds {
	return s.binds
}

func (s *Sampler) JumpMode() physics.JumpMode {
	return s.jumpMode
}

func (s *Sampler) SetJumpMode(m physics.JumpMode) {
	s.jumpMode = m
}

// Press marks every action bound to btn as held. It reports whether the
// button is bound at all.
func (s *Sampler) Press(btn Button) bool {
	actions := s.binds.Lookup(btn)
	for _, a := range actions {
		s.Set(a, true)
	}
	return len(actions) > 0
}

func (s *Sampler) Release(btn Button) bool {
	actions := s.binds.Lookup(btn)
	for _, a := range actions {
		s.Set(a, false)
	}
	return len(actions) > 0
}

// Set holds or releases an action directly. A press that is released again
// before the next Sample still counts as pressed for that sample.
func (s *Sampler) Set(a Action, down bool) {
	if down && !s.user.Has(a) {
		s.tapped = s.tapped.With(a, true)
	}
	s.user = s.user.With(a, down)
}

// MouseMotion accumulates relative mouse counts. Moving right turns right and
// moving up looks up unless pitch is inverted.
func (s *Sampler) MouseMotion(dx, dy float32) {
	pitch := -dy * s.sensitivity
	if s.invertPitch {
		pitch = -pitch
	}
	s.view = s.view.Add(mgl32.Vec2{-dx * s.sensitivity, pitch})
}

// Turn adds a view delta in radians.
func (s *Sampler) Turn(yaw, pitch float32) {
	s.view = s.view.Add(mgl32.Vec2{yaw, pitch})
}

// Override replaces the masked parts of the user's input with keys. It stays
// in effect until changed.
func (s *Sampler) Override(keys KeyState, mask Override) {
	s.pilot = keys
	s.mask = mask
}

// Steer adds a pilot view delta, used only while OverrideTurn is set.
func (s *Sampler) Steer(yaw, pitch float32) {
	s.pilotView = s.pilotView.Add(mgl32.Vec2{yaw, pitch})
}

func (s *Sampler) Mask() Override {
	return s.mask
}

// Keys is the effective key state after overrides.
func (s *Sampler) Keys() KeyState {
	return s.merge(s.user)
}

func (s *Sampler) UserKeys() KeyState {
	return s.user
}

func (s *Sampler) merge(user KeyState) KeyState {
	own := s.userOwned()
	return user&own | s.pilot&^own
}

// userOwned is the set of actions the pilot does not override.
func (s *Sampler) userOwned() KeyState {
	var piloted KeyState
	if s.mask.Has(OverrideMove) {
		piloted |= moveKeys
	}
	if s.mask.Has(OverrideJump) {
		piloted = piloted.With(Jump, true)
	}
	return ^piloted
}

// Sample produces the input for one tick and clears accumulated view motion.
func (s *Sampler) Sample() physics.InputSample {
	keys := s.Keys()
	pressed := keys.Pressed(s.prev) | s.tapped&s.userOwned()

	var jump bool
	switch s.jumpMode {
	case physics.JumpHold:
		jump = keys.Has(Jump) || pressed.Has(Jump)
	default:
		jump = pressed.Has(Jump)
	}

	view := s.view
	if s.mask.Has(OverrideTurn) {
		view = s.pilotView
	}

	s.pressed = pressed
	s.released = keys.Released(s.prev)
	s.prev = keys
	s.tapped = 0
	s.view = mgl32.Vec2{}
	s.pilotView = mgl32.Vec2{}

	return physics.InputSample{
		Wish: keys.Wish(),
		Jump: jump,
		View: view,
	}
}

// Pressed is the set of actions that went down for the last sample.
func (s *Sampler) Pressed() KeyState {
	return s.pressed
}

func (s *Sampler) Released() KeyState {
	return s.released
}
