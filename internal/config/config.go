package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Versifine/strafe/internal/input"
	"github.com/Versifine/strafe/internal/maps"
	"github.com/Versifine/strafe/internal/physics"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// CustomPreset starts from no preset; every physics field must then be set.
const CustomPreset = "custom"

type Config struct {
	Physics PhysicsConfig `yaml:"physics"`
	Input   InputConfig   `yaml:"input"`
	Sim     SimConfig     `yaml:"sim"`
	Map     MapConfig     `yaml:"map"`
	Logging LoggingConfig `yaml:"logging"`
}

// PhysicsConfig names a preset and overrides any of its fields. Angles are in
// degrees.
type PhysicsConfig struct {
	Preset string `yaml:"preset"`

	GroundAccel    *float32 `yaml:"ground_accel,omitempty"`
	Friction       *float32 `yaml:"friction,omitempty"`
	StopSpeed      *float32 `yaml:"stop_speed,omitempty"`
	GroundSpeedCap *float32 `yaml:"ground_speed_cap,omitempty"`
	AirAccel       *float32 `yaml:"air_accel,omitempty"`
	AirSpeedCap    *float32 `yaml:"air_speed_cap,omitempty"`
	AirTurn        *AirTurn `yaml:"air_turn,omitempty"`
	Gravity        *float32 `yaml:"gravity,omitempty"`
	JumpSpeed      *float32 `yaml:"jump_speed,omitempty"`
	SlopeTolerance *float32 `yaml:"slope_tolerance,omitempty"`
	UnitScale      *float32 `yaml:"unit_scale,omitempty"`
	JumpMode       string   `yaml:"jump_mode,omitempty"`
}

type AirTurn struct {
	Accel    float32 `yaml:"accel"`
	SpeedCap float32 `yaml:"speed_cap"`
}

type InputConfig struct {
	Sensitivity float32 `yaml:"sensitivity"`
	InvertPitch bool    `yaml:"invert_pitch"`
	// Binds maps action names to buttons; unnamed actions keep their default.
	Binds map[string]string `yaml:"binds,omitempty"`
}

type SimConfig struct {
	TickRate      int           `yaml:"tick_rate"`
	MaxFrame      time.Duration `yaml:"max_frame"`
	MaxStep       time.Duration `yaml:"max_step"`
	FallThreshold time.Duration `yaml:"fall_threshold"`
}

type MapConfig struct {
	Name string `yaml:"name"`
	Seed uint64 `yaml:"seed"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// FieldError reports an unusable setting by its path in the YAML file.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

func Default() *Config {
	return &Config{
		Physics: PhysicsConfig{Preset: "vq3"},
		Input: InputConfig{
			Sensitivity: input.DefaultSensitivity,
		},
		Sim: SimConfig{
			TickRate:      100,
			MaxFrame:      200 * time.Millisecond,
			MaxStep:       50 * time.Millisecond,
			FallThreshold: 3 * time.Second,
		},
		Map: MapConfig{
			Name: "runway",
			Seed: maps.DefaultSeed,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes the config as YAML.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// Validate checks everything except the physics constants, which Resolve
// checks.
func (c *Config) Validate() error {
	if c.Sim.TickRate <= 0 {
		return &FieldError{Field: "sim.tick_rate", Reason: "must be > 0"}
	}
	tick := time.Second / time.Duration(c.Sim.TickRate)
	if c.Sim.MaxFrame < tick {
		return &FieldError{Field: "sim.max_frame", Reason: fmt.Sprintf("must be at least one tick (%v)", tick)}
	}
	if c.Sim.MaxStep <= 0 {
		return &FieldError{Field: "sim.max_step", Reason: "must be > 0"}
	}
	if c.Sim.FallThreshold <= 0 {
		return &FieldError{Field: "sim.fall_threshold", Reason: "must be > 0"}
	}
	if c.Input.Sensitivity <= 0 {
		return &FieldError{Field: "input.sensitivity", Reason: "must be > 0"}
	}
	if _, err := c.Binds(); err != nil {
		return err
	}
	if maps.Describe(c.Map.Name) == "" {
		return &FieldError{Field: "map.name", Reason: fmt.Sprintf("unknown map %q (have %s)", c.Map.Name, strings.Join(maps.Names(), ", "))}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "text", "json":
	default:
		return &FieldError{Field: "logging.format", Reason: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// Binds applies the configured binds over the defaults.
func (c *Config) Binds() (input.KeyBinds, error) {
	binds := input.DefaultKeyBinds()
	for name, btn := range c.Input.Binds {
		a, err := input.ParseAction(name)
		if err != nil {
			return binds, &FieldError{Field: "input.binds." + name, Reason: err.Error()}
		}
		if strings.TrimSpace(btn) == "" {
			return binds, &FieldError{Field: "input.binds." + name, Reason: "missing"}
		}
		binds.Rebind(a, input.KeyButton(btn))
	}
	return binds, nil
}

// Resolve builds the validated physics constants the file describes.
func (c *Config) Resolve() (physics.Constants, error) {
	p := c.Physics
	name := strings.ToLower(strings.TrimSpace(p.Preset))

	var k physics.Constants
	switch name {
	case "", CustomPreset:
		if err := p.requireAll(); err != nil {
			return physics.Constants{}, err
		}
		k.SlopeTolerance = math32.Acos(physics.MinWalkNormalZ)
		k.UnitScale = 1
	default:
		var ok bool
		k, ok = physics.Preset(name)
		if !ok {
			return physics.Constants{}, &FieldError{
				Field:  "physics.preset",
				Reason: fmt.Sprintf("unknown preset %q (have %s, %s)", p.Preset, strings.Join(physics.PresetNames(), ", "), CustomPreset),
			}
		}
	}

	set := func(dst *float32, src *float32) {
		if src != nil {
			*dst = *src
		}
	}
	set(&k.GroundAccel, p.GroundAccel)
	set(&k.Friction, p.Friction)
	set(&k.StopSpeed, p.StopSpeed)
	set(&k.GroundSpeedCap, p.GroundSpeedCap)
	set(&k.AirAccel, p.AirAccel)
	set(&k.AirSpeedCap, p.AirSpeedCap)
	set(&k.Gravity, p.Gravity)
	set(&k.JumpSpeed, p.JumpSpeed)
	set(&k.UnitScale, p.UnitScale)
	if p.SlopeTolerance != nil {
		k.SlopeTolerance = mgl32.DegToRad(*p.SlopeTolerance)
	}
	if p.AirTurn != nil {
		k.AirTurn = &physics.Movement{Accel: p.AirTurn.Accel, SpeedCap: p.AirTurn.SpeedCap}
	}
	if p.JumpMode != "" {
		mode, err := physics.ParseJumpMode(p.JumpMode)
		if err != nil {
			return physics.Constants{}, &FieldError{Field: "physics.jump_mode", Reason: err.Error()}
		}
		k.JumpMode = mode
	}

	if err := k.Validate(); err != nil {
		var ce *physics.ConstantError
		if errors.As(err, &ce) {
			return physics.Constants{}, &FieldError{Field: "physics." + ce.Field, Reason: ce.Reason}
		}
		return physics.Constants{}, err
	}
	return k, nil
}

func (p PhysicsConfig) requireAll() error {
	required := []struct {
		name  string
		value *float32
	}{
		{"ground_accel", p.GroundAccel},
		{"friction", p.Friction},
		{"stop_speed", p.StopSpeed},
		{"ground_speed_cap", p.GroundSpeedCap},
		{"air_accel", p.AirAccel},
		{"air_speed_cap", p.AirSpeedCap},
		{"gravity", p.Gravity},
		{"jump_speed", p.JumpSpeed},
	}
	for _, r := range required {
		if r.value == nil {
			return &FieldError{Field: "physics." + r.name, Reason: "missing"}
		}
	}
	return nil
}

// SamplerOptions configures an input.Sampler from the input section and the
// resolved jump mode.
func (c *Config) SamplerOptions(mode physics.JumpMode) ([]input.Option, error) {
	binds, err := c.Binds()
	if err != nil {
		return nil, err
	}
	return []input.Option{
		input.WithBinds(binds),
		input.WithSensitivity(c.Input.Sensitivity),
		input.WithInvertPitch(c.Input.InvertPitch),
		input.WithJumpMode(mode),
	}, nil
}

// TickDuration is the fixed simulation step.
func (c *Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.Sim.TickRate)
}
