package physics

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

// Simulator owns one player's kinematic state and advances it a tick at a
// time. It is not safe for concurrent use; the host is the only writer.
type Simulator struct {
	constants Constants
	staged    *Constants
	resolver  Resolver

	state PlayerState
	spawn PlayerState

	maxStep       float32
	fallThreshold float32
	logger        *slog.Logger

	tick    uint64
	airTime float32
	wish    mgl32.Vec2
	diag    Diagnostics

	initial *PlayerState
}

type Option func(*Simulator)

// WithSpawn sets where the player starts and where it returns after a reset.
func WithSpawn(pos mgl32.Vec3, yaw float32) Option {
	return func(s *Simulator) {
		s.spawn.Position = pos
		s.spawn.Yaw = WrapYaw(yaw)
	}
}

// WithState starts from an explicit state instead of classifying the spawn.
func WithState(st PlayerState) Option {
	return func(s *Simulator) {
		s.initial = &st
	}
}

func WithMaxStep(seconds float32) Option {
	return func(s *Simulator) {
		if seconds > 0 {
			s.maxStep = seconds
		}
	}
}

// WithFallThreshold sets how long the player may be airborne before steps are
// reported as Falling.
func WithFallThreshold(seconds float32) Option {
	return func(s *Simulator) {
		if seconds > 0 {
			s.fallThreshold = seconds
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSimulator(c Constants, r Resolver, opts ...Option) (*Simulator, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid physics constants: %w", err)
	}
	if r == nil {
		return nil, errors.New("physics: resolver is nil")
	}
	s := &Simulator{
		constants:     c,
		resolver:      r,
		maxStep:       DefaultMaxStep,
		fallThreshold: DefaultFallThreshold,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !finiteVec3(s.spawn.Position) {
		return nil, fmt.Errorf("physics: spawn %v is not finite", s.spawn.Position)
	}
	s.spawn.Move, s.spawn.GroundNormal = s.classify(s.spawn.Position)

	if s.initial != nil {
		s.state = *s.initial
		s.initial = nil
	} else {
		s.state = s.spawn
	}
	return s, nil
}

// classify runs a zero-length query so a freshly placed player knows whether it
// is standing on something.
func (s *Simulator) classify(pos mgl32.Vec3) (MoveState, mgl32.Vec3) {
	res, err := s.resolver.Resolve(s.query(pos, mgl32.Vec3{}))
	if err != nil || !res.Ground {
		return Airborne, mgl32.Vec3{}
	}
	return Grounded, res.GroundNormal
}

func (s *Simulator) query(origin, displacement mgl32.Vec3) Query {
	return Query{
		Origin:         origin,
		Displacement:   displacement,
		Hull:           s.constants.Hull(),
		Probe:          s.constants.GroundProbe(),
		SlopeTolerance: s.constants.SlopeTolerance,
	}
}

// Stage buffers a new constant set; it takes effect at the start of the next
// Step, never mid-tick.
func (s *Simulator) Stage(c Constants) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid physics constants: %w", err)
	}
	s.staged = &c
	return nil
}

func (s *Simulator) Constants() Constants {
	return s.constants
}

func (s *Simulator) Diagnostics() Diagnostics {
	return s.diag
}

func (s *Simulator) Snapshot() Snapshot {
	return Snapshot{
		PlayerState: s.state,
		Tick:        s.tick,
		AirTime:     s.airTime,
		Wish:        s.wish,
		Speed:       s.state.HorizontalSpeed(),
	}
}

// Reset puts the player back at the spawn point at rest.
func (s *Simulator) Reset() {
	s.state = s.spawn
	s.airTime = 0
	s.wish = mgl32.Vec2{}
}

// Step advances the simulation by dt seconds.
func (s *Simulator) Step(dt float32, in InputSample) StepReport {
	if s.staged != nil {
		s.constants = *s.staged
		s.staged = nil
		s.logger.Debug("Applied staged physics constants", "tick", s.tick)
	}

	var report StepReport
	if !finite(dt) || dt <= 0 {
		return report
	}
	if dt > s.maxStep {
		s.logger.Debug("Clamped simulation step", "dt", dt, "max", s.maxStep, "tick", s.tick)
		dt = s.maxStep
		report.Clamped = true
		s.diag.ClampedSteps++
	}
	s.tick++
	s.diag.Ticks++

	s.look(in.View)
	wish := s.wishDir(in.Wish)
	s.wish = wish

	move := s.state.Move
	if move == Grounded && in.Jump {
		s.state.Velocity[2] = s.constants.JumpSpeed
		move = Airborne
		report.Jumped = true
		s.diag.Jumps++
	}

	switch move {
	case Grounded:
		applyFriction(&s.state.Velocity, s.constants, dt)
		if wish != (mgl32.Vec2{}) {
			groundAccelerate(&s.state.Velocity, wish, s.constants, dt)
		}
		// The ground carries the player's weight, so gravity never builds up
		// into a slope and turns into downhill drift.
		projectOntoPlane(&s.state.Velocity, s.state.GroundNormal)
	case Airborne:
		if wish != (mgl32.Vec2{}) {
			accelerate(&s.state.Velocity, wish, s.constants.Air(in.SideStrafe()), dt)
		}
		s.state.Velocity[2] -= s.constants.Gravity * dt
	}

	if !s.healthy() {
		return s.blowUp(report, "integration")
	}

	res, err := s.resolver.Resolve(s.query(s.state.Position, s.state.Velocity.Mul(dt)))
	if err != nil {
		return s.blowUp(report, err.Error())
	}
	s.state.Position = s.state.Position.Add(res.Displacement)
	for _, n := range res.Normals {
		clipVelocity(&s.state.Velocity, n)
	}
	report.Wrapped = res.Wrapped

	s.transition(res, dt, &report)

	if !s.healthy() {
		return s.blowUp(report, "position")
	}
	return report
}

// look applies the view delta directly; mouse look is never smoothed.
func (s *Simulator) look(view mgl32.Vec2) {
	s.state.Yaw = WrapYaw(s.state.Yaw + view[0])
	s.state.Pitch = ClampPitch(s.state.Pitch + view[1])
}

// wishDir rotates local input by yaw only. Diagonals are normalized so they
// are not faster than a single key; analog input below 1 is kept as is.
func (s *Simulator) wishDir(local mgl32.Vec2) mgl32.Vec2 {
	l := local.Len()
	if !(l >= DegenerateWishLen) {
		return mgl32.Vec2{}
	}
	w := RotateYaw(local, s.state.Yaw)
	if l > 1 {
		w = w.Mul(1 / l)
	}
	return w
}

func (s *Simulator) transition(res Result, dt float32, report *StepReport) {
	wasGrounded := s.state.Move == Grounded
	if res.Ground {
		s.state.Move = Grounded
		s.state.GroundNormal = res.GroundNormal
		// Walking down a slope keeps its in-plane vertical velocity.
		if !wasGrounded {
			if s.state.Velocity[2] < 0 {
				s.state.Velocity[2] = 0
			}
			report.Landed = true
			s.diag.Landings++
		}
		s.airTime = 0
		return
	}

	s.state.Move = Airborne
	s.state.GroundNormal = mgl32.Vec3{}
	if wasGrounded {
		report.LeftGround = true
	}
	s.airTime += dt
	s.diag.AirborneTicks++
	if s.airTime >= s.fallThreshold {
		report.Falling = true
	}
}

func (s *Simulator) healthy() bool {
	return finiteVec3(s.state.Position) &&
		finiteVec3(s.state.Velocity) &&
		finite(s.state.Yaw) &&
		finite(s.state.Pitch)
}

func (s *Simulator) blowUp(report StepReport, cause string) StepReport {
	s.logger.Warn("Simulation blew up, resetting to spawn",
		"cause", cause,
		"tick", s.tick,
		"position", s.state.Position,
		"velocity", s.state.Velocity,
	)
	s.Reset()
	s.diag.Resets++
	report.Reset = true
	report.Landed = false
	report.LeftGround = false
	report.Falling = false
	return report
}
