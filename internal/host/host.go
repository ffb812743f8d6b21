// Package host drives the simulator at a fixed tick rate from variable frame
// times and hands each frame's final state to renderers.
package host

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Versifine/strafe/internal/event"
	"github.com/Versifine/strafe/internal/input"
	"github.com/Versifine/strafe/internal/physics"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/zeebo/xxh3"
	"golang.org/x/time/rate"
)

const (
	DefaultTickRate = 100
	DefaultMaxFrame = 200 * time.Millisecond
)

// Pilot may rewrite the sampler's input before each tick (bot, tutorial).
type Pilot interface {
	Pilot(snap physics.Snapshot, c physics.Constants, dt float32, s *input.Sampler)
}

// Renderer draws a frame. It gets a copy and must not hold on to the sampler
// or simulator.
type Renderer interface {
	Render(f Frame)
}

type Diagnostics struct {
	physics.Diagnostics
	Frames           uint64
	FrameClamps      uint64
	MaxTicksPerFrame int
}

// Frame is everything a renderer needs, by value.
type Frame struct {
	Snapshot physics.Snapshot
	// Alpha is the leftover fraction of a tick, for drawing between ticks.
	Alpha float32
	// Position is the snapshot position extrapolated by Alpha ticks.
	Position mgl32.Vec3
	Ticks    int

	Constants   physics.Constants
	Preset      string
	Diagnostics Diagnostics
	// Report merges the step reports of every tick in this frame.
	Report physics.StepReport
	Keys   input.KeyState
	Trace  uint64
}

type staged struct {
	constants physics.Constants
	preset    string
}

type Host struct {
	sim     *physics.Simulator
	sampler *input.Sampler
	pilot   Pilot

	renderers []Renderer
	bus       *event.Bus

	tick     time.Duration
	maxFrame time.Duration
	acc      time.Duration

	staged  *staged
	preset  string
	falling bool

	// clampWarn keeps a stalled terminal from flooding the log.
	clampWarn *rate.Limiter

	trace *xxh3.Hasher
	buf   [49]byte
	diag  Diagnostics
}

type Option func(*Host)

func WithTickRate(hz int) Option {
	return func(h *Host) {
		if hz > 0 {
			h.tick = time.Second / time.Duration(hz)
		}
	}
}

func WithMaxFrame(d time.Duration) Option {
	return func(h *Host) {
		if d > 0 {
			h.maxFrame = d
		}
	}
}

func WithPilot(p Pilot) Option {
	return func(h *Host) { h.pilot = p }
}

func WithRenderer(r ...Renderer) Option {
	return func(h *Host) { h.renderers = append(h.renderers, r...) }
}

func WithBus(b *event.Bus) Option {
	return func(h *Host) { h.bus = b }
}

// WithPreset names the constants the simulator starts with, for display.
func WithPreset(name string) Option {
	return func(h *Host) { h.preset = name }
}

func New(sim *physics.Simulator, sampler *input.Sampler, opts ...Option) (*Host, error) {
	if sim == nil {
		return nil, errors.New("host: simulator is nil")
	}
	if sampler == nil {
		return nil, errors.New("host: sampler is nil")
	}
	h := &Host{
		sim:      sim,
		sampler:  sampler,
		tick:     time.Second / DefaultTickRate,
		maxFrame: DefaultMaxFrame,
		trace:    xxh3.New(),

		clampWarn: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.tick > h.maxFrame {
		return nil, fmt.Errorf("host: tick %v is longer than max frame %v", h.tick, h.maxFrame)
	}
	h.sampler.SetJumpMode(sim.Constants().JumpMode)
	return h, nil
}

// Frame accounts elapsed wall time, runs every whole tick it covers, carries
// the remainder and renders once.
func (h *Host) Frame(elapsed time.Duration) Frame {
	h.diag.Frames++
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > h.maxFrame {
		h.diag.FrameClamps++
		if h.clampWarn.Allow() {
			slog.Warn("dropped below min framerate", "elapsed", elapsed, "max", h.maxFrame, "clamps", h.diag.FrameClamps)
		}
		h.bus.Publish(event.EventFrameClamped, &event.FrameClampedEvent{Elapsed: elapsed, Max: h.maxFrame})
		elapsed = h.maxFrame
	}

	h.acc += elapsed
	var (
		ticks  int
		merged physics.StepReport
	)
	for h.acc >= h.tick {
		merged = mergeReports(merged, h.Tick())
		h.acc -= h.tick
		ticks++
	}
	if ticks > h.diag.MaxTicksPerFrame {
		h.diag.MaxTicksPerFrame = ticks
	}

	snap := h.sim.Snapshot()
	alpha := float32(h.acc) / float32(h.tick)
	f := Frame{
		Snapshot:    snap,
		Alpha:       alpha,
		Position:    snap.Extrapolate(alpha * float32(h.tick.Seconds())),
		Ticks:       ticks,
		Constants:   h.sim.Constants(),
		Preset:      h.preset,
		Diagnostics: h.Diagnostics(),
		Report:      merged,
		Keys:        h.sampler.Keys(),
		Trace:       h.trace.Sum64(),
	}
	for _, r := range h.renderers {
		r.Render(f)
	}
	return f
}

// AddRenderer attaches a renderer after construction.
func (h *Host) AddRenderer(r Renderer) {
	h.renderers = append(h.renderers, r)
}

// Tick runs exactly one fixed step.
func (h *Host) Tick() physics.StepReport {
	if h.staged != nil {
		next := *h.staged
		h.staged = nil
		if err := h.sim.Stage(next.constants); err != nil {
			slog.Error("Rejected staged constants", "error", err)
		} else {
			h.sampler.SetJumpMode(next.constants.JumpMode)
			h.preset = next.preset
			slog.Info("Applied physics constants", "preset", next.preset, "tick", h.sim.Snapshot().Tick+1)
			h.bus.Publish(event.EventConstantsApplied, &event.ConstantsAppliedEvent{
				Tick:   h.sim.Snapshot().Tick + 1,
				Preset: next.preset,
			})
		}
	}

	dt := float32(h.tick.Seconds())
	if h.pilot != nil {
		h.pilot.Pilot(h.sim.Snapshot(), h.sim.Constants(), dt, h.sampler)
	}
	report := h.sim.Step(dt, h.sampler.Sample())

	snap := h.sim.Snapshot()
	h.record(snap)
	h.publish(report, snap)
	return report
}

// Stage queues a constant set; it takes effect at the next tick boundary.
func (h *Host) Stage(c physics.Constants, preset string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid physics constants: %w", err)
	}
	h.staged = &staged{constants: c, preset: preset}
	return nil
}

// Reset returns the player to spawn between ticks.
func (h *Host) Reset() {
	h.sim.Reset()
	h.falling = false
}

func (h *Host) Snapshot() physics.Snapshot {
	return h.sim.Snapshot()
}

func (h *Host) Constants() physics.Constants {
	return h.sim.Constants()
}

func (h *Host) Preset() string {
	return h.preset
}

// Pending is what the next tick will run with: the staged constants if any,
// otherwise the current ones.
func (h *Host) Pending() (physics.Constants, string) {
	if h.staged != nil {
		return h.staged.constants, h.staged.preset
	}
	return h.sim.Constants(), h.preset
}

func (h *Host) Sampler() *input.Sampler {
	return h.sampler
}

func (h *Host) TickDuration() time.Duration {
	return h.tick
}

func (h *Host) Diagnostics() Diagnostics {
	d := h.diag
	d.Diagnostics = h.sim.Diagnostics()
	return d
}

// Trace fingerprints every tick's state so far. Two runs with the same
// inputs produce the same trace regardless of frame pacing.
func (h *Host) Trace() uint64 {
	return h.trace.Sum64()
}

func (h *Host) record(s physics.Snapshot) {
	b := h.buf[:]
	binary.LittleEndian.PutUint64(b[0:], s.Tick)
	floats := [...]float32{
		s.Position[0], s.Position[1], s.Position[2],
		s.Velocity[0], s.Velocity[1], s.Velocity[2],
		s.Yaw, s.Pitch, s.AirTime, s.Speed,
	}
	for i, f := range floats {
		binary.LittleEndian.PutUint32(b[8+4*i:], math.Float32bits(f))
	}
	b[48] = byte(s.Move)
	_, _ = h.trace.Write(b)
}

func (h *Host) publish(r physics.StepReport, s physics.Snapshot) {
	if h.bus == nil {
		return
	}
	emit := func(kind event.SimKind) {
		h.bus.Publish(kind.Name(), event.NewSimEvent(kind, s.Tick, s.Position, s.Speed, s.AirTime))
	}
	if r.Jumped {
		emit(event.KindJumped)
	}
	if r.Landed {
		emit(event.KindLanded)
	}
	if r.Reset {
		emit(event.KindReset)
	}
	if r.Clamped {
		emit(event.KindStepClamped)
	}
	if r.Falling && !h.falling {
		emit(event.KindFalling)
	}
	h.falling = r.Falling
}

func mergeReports(a, b physics.StepReport) physics.StepReport {
	return physics.StepReport{
		Jumped:     a.Jumped || b.Jumped,
		Landed:     a.Landed || b.Landed,
		LeftGround: a.LeftGround || b.LeftGround,
		Clamped:    a.Clamped || b.Clamped,
		Reset:      a.Reset || b.Reset,
		Wrapped:    a.Wrapped || b.Wrapped,
		Falling:    b.Falling,
	}
}
