// Package trainer assembles a playable session from configuration: map,
// simulator, input, bot, tutorial and host, plus the terminal front end.
package trainer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Versifine/strafe/internal/bot"
	"github.com/Versifine/strafe/internal/coach"
	"github.com/Versifine/strafe/internal/config"
	"github.com/Versifine/strafe/internal/event"
	"github.com/Versifine/strafe/internal/host"
	"github.com/Versifine/strafe/internal/input"
	"github.com/Versifine/strafe/internal/maps"
	"github.com/Versifine/strafe/internal/physics"
	"github.com/go-gl/mathgl/mgl32"
)

// Rig is every long-lived piece of one training session, wired together.
type Rig struct {
	Map   *maps.Map
	Host  *host.Host
	Bot   *bot.Bot
	Coach *coach.Coach
	Bus   *event.Bus
}

type rigOptions struct {
	renderers []host.Renderer
	bot       bool
}

type RigOption func(*rigOptions)

func WithRenderers(r ...host.Renderer) RigOption {
	return func(o *rigOptions) { o.renderers = append(o.renderers, r...) }
}

// WithBot starts the session with the strafe bot flying.
func WithBot(enabled bool) RigOption {
	return func(o *rigOptions) { o.bot = enabled }
}

func NewRig(cfg *config.Config, opts ...RigOption) (*Rig, error) {
	var o rigOptions
	for _, opt := range opts {
		opt(&o)
	}

	k, err := cfg.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve physics: %w", err)
	}
	m, err := maps.Build(cfg.Map.Name, k.UnitScale, cfg.Map.Seed)
	if err != nil {
		return nil, fmt.Errorf("build map: %w", err)
	}
	sim, err := physics.NewSimulator(k, m.World,
		physics.WithSpawn(m.Spawn, m.SpawnYaw),
		physics.WithMaxStep(float32(cfg.Sim.MaxStep.Seconds())),
		physics.WithFallThreshold(float32(cfg.Sim.FallThreshold.Seconds())),
	)
	if err != nil {
		return nil, fmt.Errorf("create simulator: %w", err)
	}
	samplerOpts, err := cfg.SamplerOptions(k.JumpMode)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus()
	bus.SubscribeAll(event.SimEventHandler, event.SimEventNames...)

	r := &Rig{
		Map: m,
		Bot: bot.New(bot.WithAutoRestart(true)),
		Bus: bus,
	}
	r.Coach = coach.New(r.Bot, coach.WithStageHook(r.onStage))

	r.Host, err = host.New(sim, input.NewSampler(samplerOpts...),
		host.WithTickRate(cfg.Sim.TickRate),
		host.WithMaxFrame(cfg.Sim.MaxFrame),
		host.WithPilot(r.Coach),
		host.WithBus(bus),
		host.WithPreset(presetName(cfg.Physics.Preset)),
		host.WithRenderer(o.renderers...),
	)
	if err != nil {
		return nil, fmt.Errorf("create host: %w", err)
	}
	if o.bot {
		r.ToggleBot()
	}

	slog.Info("Session ready",
		"map", m.Name,
		"preset", r.Host.Preset(),
		"tick", r.Host.TickDuration(),
		"jump_mode", k.JumpMode,
	)
	return r, nil
}

func presetName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return config.CustomPreset
	}
	return name
}

// onStage resets the player for every tutorial stage.
func (r *Rig) onStage(s coach.Stage) {
	if r.Host != nil {
		r.Host.Reset()
	}
	r.Bus.Publish(event.EventStageChanged, &event.StageEvent{Stage: s.String()})
}

// ToggleBot hands all controls to the bot, or takes them back. It ends the
// tutorial if one is running. It reports whether the bot is now flying.
func (r *Rig) ToggleBot() bool {
	if r.Coach.Active() {
		r.Coach.Abort()
	}
	if r.Bot.Mask() == input.OverrideAll {
		r.Bot.SetMask(input.OverrideNone)
		r.Bot.Stop()
		slog.Info("Bot disengaged")
		return false
	}
	r.Bot.SetMask(input.OverrideAll)
	r.Bot.TakeOff()
	slog.Info("Bot engaged")
	return true
}

// ToggleTutorial starts the tutorial from the beginning or abandons it.
func (r *Rig) ToggleTutorial() bool {
	if r.Coach.Active() {
		r.Coach.Abort()
		r.Bot.Stop()
		slog.Info("Tutorial abandoned", "stage", r.Coach.Stage())
		return false
	}
	r.Coach.Start()
	return true
}

// SetPreset stages a named preset, keeping the current jump mode.
func (r *Rig) SetPreset(name string) error {
	k, ok := physics.Preset(name)
	if !ok {
		return fmt.Errorf("unknown preset %q (have %s)", name, strings.Join(physics.PresetNames(), ", "))
	}
	cur, _ := r.Host.Pending()
	if k.UnitScale != cur.UnitScale {
		return fmt.Errorf("preset %s uses a different unit scale than map %s; restart with --preset %s", name, r.Map.Name, name)
	}
	k.JumpMode = cur.JumpMode
	return r.Host.Stage(k, strings.ToLower(name))
}

// NextPreset stages the next preset that shares the current unit scale.
func (r *Rig) NextPreset() (string, error) {
	names := physics.PresetNames()
	k, preset := r.Host.Pending()
	cur := -1
	for i, n := range names {
		if n == preset {
			cur = i
		}
	}
	scale := k.UnitScale
	for step := 1; step <= len(names); step++ {
		name := names[(cur+step+len(names))%len(names)]
		if k, _ := physics.Preset(name); k.UnitScale == scale {
			return name, r.SetPreset(name)
		}
	}
	return "", fmt.Errorf("no preset matches unit scale %v", scale)
}

func (r *Rig) SetJumpMode(m physics.JumpMode) error {
	k, preset := r.Host.Pending()
	k.JumpMode = m
	return r.Host.Stage(k, preset)
}

func (r *Rig) ToggleJumpMode() (physics.JumpMode, error) {
	m := physics.JumpHold
	if k, _ := r.Host.Pending(); k.JumpMode == physics.JumpHold {
		m = physics.JumpEdge
	}
	return m, r.SetJumpMode(m)
}

// SetConstant stages one physics constant by its configuration name. Angles
// are in degrees. The result is reported as the custom preset.
func (r *Rig) SetConstant(field string, value float32) error {
	k, _ := r.Host.Pending()
	fields := map[string]*float32{
		"ground_accel":     &k.GroundAccel,
		"friction":         &k.Friction,
		"stop_speed":       &k.StopSpeed,
		"ground_speed_cap": &k.GroundSpeedCap,
		"air_accel":        &k.AirAccel,
		"air_speed_cap":    &k.AirSpeedCap,
		"gravity":          &k.Gravity,
		"jump_speed":       &k.JumpSpeed,
	}
	field = strings.ToLower(field)
	switch field {
	case "slope_tolerance":
		k.SlopeTolerance = mgl32.DegToRad(value)
	default:
		dst, ok := fields[field]
		if !ok {
			return fmt.Errorf("unknown constant %q", field)
		}
		*dst = value
	}
	return r.Host.Stage(k, config.CustomPreset)
}

// Run advances the session by whole ticks as fast as possible, rendering once
// per tick. It is the headless loop.
func (r *Rig) Run(d time.Duration) host.Frame {
	tick := r.Host.TickDuration()
	n := (d + tick - 1) / tick
	var f host.Frame
	for i := time.Duration(0); i < n; i++ {
		f = r.Host.Frame(tick)
	}
	return f
}

// SolidAt reports whether p is inside any brush of the map.
func (r *Rig) SolidAt(p mgl32.Vec3) bool {
	brushes := r.Map.World.Brushes()
	for i := range brushes {
		if brushes[i].Contains(p) {
			return true
		}
	}
	return false
}
