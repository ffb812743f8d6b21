package physics

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"github.com/elliotchance/orderedmap/v2"
)

const (
	// Reference-unit sizes (Quake units). Multiplied by Constants.UnitScale.
	PlayerRadius      = 16.0
	PlayerHeight      = 56.0
	GroundProbeDist   = 0.25
	StallSpeed        = 1e-4
	DegenerateWishLen = 1e-4
	MinWalkNormalZ    = 0.7

	MaxPitch = 89.0 * math32.Pi / 180.0

	DefaultMaxStep       = float32(0.05)
	DefaultFallThreshold = float32(3.0)
)

// JumpMode selects how a held jump key is interpreted.
type JumpMode int

const (
	// JumpEdge jumps once per key press.
	JumpEdge JumpMode = iota
	// JumpHold keeps jumping on every landing while the key is held (auto-hop).
	JumpHold
)

func (m JumpMode) String() string {
	switch m {
	case JumpEdge:
		return "edge"
	case JumpHold:
		return "hold"
	default:
		return fmt.Sprintf("JumpMode(%d)", int(m))
	}
}

func ParseJumpMode(s string) (JumpMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "edge", "press":
		return JumpEdge, nil
	case "hold", "auto", "autohop":
		return JumpHold, nil
	default:
		return JumpEdge, fmt.Errorf("unknown jump mode %q", s)
	}
}

// Movement is one accelerate rule: speed along the wish direction is raised by
// at most Accel*dt and never past SpeedCap.
type Movement struct {
	Accel    float32
	SpeedCap float32
}

// Constants are the tunable physics parameters of one reference engine.
type Constants struct {
	GroundAccel    float32
	Friction       float32
	StopSpeed      float32
	GroundSpeedCap float32

	AirAccel    float32
	AirSpeedCap float32
	// AirTurn replaces the air rule while only a side key is held (CPM-style).
	AirTurn *Movement

	Gravity   float32
	JumpSpeed float32

	// SlopeTolerance is the largest angle between a contact normal and +Z,
	// in radians, that still counts as ground.
	SlopeTolerance float32
	JumpMode       JumpMode
	// UnitScale is world units per reference unit.
	UnitScale float32
}

// ConstantError reports an invalid constant by its configuration name.
type ConstantError struct {
	Field  string
	Reason string
}

func (e *ConstantError) Error() string {
	return e.Field + ": " + e.Reason
}

func (c Constants) Validate() error {
	positive := []struct {
		name  string
		value float32
	}{
		{"ground_accel", c.GroundAccel},
		{"ground_speed_cap", c.GroundSpeedCap},
		{"air_accel", c.AirAccel},
		{"air_speed_cap", c.AirSpeedCap},
		{"gravity", c.Gravity},
		{"jump_speed", c.JumpSpeed},
		{"unit_scale", c.UnitScale},
	}
	for _, p := range positive {
		if !finite(p.value) || p.value <= 0 {
			return &ConstantError{Field: p.name, Reason: fmt.Sprintf("must be > 0, got %v", p.value)}
		}
	}

	nonNegative := []struct {
		name  string
		value float32
	}{
		{"friction", c.Friction},
		{"stop_speed", c.StopSpeed},
	}
	for _, p := range nonNegative {
		if !finite(p.value) || p.value < 0 {
			return &ConstantError{Field: p.name, Reason: fmt.Sprintf("must be >= 0, got %v", p.value)}
		}
	}

	if !finite(c.SlopeTolerance) || c.SlopeTolerance < 0 || c.SlopeTolerance >= math32.Pi/2 {
		return &ConstantError{Field: "slope_tolerance", Reason: fmt.Sprintf("must be in [0, 90) degrees, got %v rad", c.SlopeTolerance)}
	}
	if c.JumpMode != JumpEdge && c.JumpMode != JumpHold {
		return &ConstantError{Field: "jump_mode", Reason: fmt.Sprintf("unknown mode %d", int(c.JumpMode))}
	}
	if c.AirTurn != nil {
		if !finite(c.AirTurn.Accel) || c.AirTurn.Accel <= 0 {
			return &ConstantError{Field: "air_turn.accel", Reason: fmt.Sprintf("must be > 0, got %v", c.AirTurn.Accel)}
		}
		if !finite(c.AirTurn.SpeedCap) || c.AirTurn.SpeedCap <= 0 {
			return &ConstantError{Field: "air_turn.speed_cap", Reason: fmt.Sprintf("must be > 0, got %v", c.AirTurn.SpeedCap)}
		}
	}
	return nil
}

// Ground returns the grounded accelerate rule.
func (c Constants) Ground() Movement {
	return Movement{Accel: c.GroundAccel, SpeedCap: c.GroundSpeedCap}
}

// Air returns the airborne accelerate rule for the given input shape.
func (c Constants) Air(sideStrafe bool) Movement {
	if sideStrafe && c.AirTurn != nil {
		return *c.AirTurn
	}
	return Movement{Accel: c.AirAccel, SpeedCap: c.AirSpeedCap}
}

func (c Constants) Hull() Hull {
	return Hull{Radius: PlayerRadius * c.UnitScale, Height: PlayerHeight * c.UnitScale}
}

func (c Constants) GroundProbe() float32 {
	return GroundProbeDist * c.UnitScale
}

var (
	// acos(0.7), the walkable limit of the Quake 3 pmove code.
	quakeSlopeTolerance = math32.Acos(MinWalkNormalZ)

	vq3 = Constants{
		GroundAccel:    10 * 320,
		Friction:       6,
		StopSpeed:      100,
		GroundSpeedCap: 320,
		AirAccel:       1 * 320,
		AirSpeedCap:    320,
		Gravity:        800,
		JumpSpeed:      270,
		SlopeTolerance: quakeSlopeTolerance,
		JumpMode:       JumpEdge,
		UnitScale:      1,
	}

	qw = Constants{
		GroundAccel:    10 * 320,
		Friction:       6,
		StopSpeed:      100,
		GroundSpeedCap: 320,
		AirAccel:       10 * 320,
		AirSpeedCap:    30,
		Gravity:        800,
		JumpSpeed:      270,
		SlopeTolerance: quakeSlopeTolerance,
		JumpMode:       JumpEdge,
		UnitScale:      1,
	}

	hybrid = func() Constants {
		c := vq3
		c.AirTurn = &Movement{Accel: 2100, SpeedCap: 35}
		return c
	}()

	// trainer is a small-unit set used by the tutorial and by the tests.
	trainer = Constants{
		GroundAccel:    10,
		Friction:       6,
		StopSpeed:      100 * 3.0 / 320,
		GroundSpeedCap: 3,
		AirAccel:       1,
		AirSpeedCap:    0.3,
		Gravity:        20,
		JumpSpeed:      5,
		SlopeTolerance: quakeSlopeTolerance,
		JumpMode:       JumpEdge,
		UnitScale:      3.0 / 320,
	}

	presets = func() *orderedmap.OrderedMap[string, Constants] {
		m := orderedmap.NewOrderedMap[string, Constants]()
		m.Set("vq3", vq3)
		m.Set("qw", qw)
		m.Set("hybrid", hybrid)
		m.Set("trainer", trainer)
		return m
	}()
)

// Preset returns a copy of the named constant set.
func Preset(name string) (Constants, bool) {
	c, ok := presets.Get(strings.ToLower(name))
	if !ok {
		return Constants{}, false
	}
	if c.AirTurn != nil {
		turn := *c.AirTurn
		c.AirTurn = &turn
	}
	return c, true
}

// PresetNames lists presets in registration order.
func PresetNames() []string {
	return presets.Keys()
}

// MustPreset is Preset for names known at compile time.
func MustPreset(name string) Constants {
	c, ok := Preset(name)
	if !ok {
		panic("physics: unknown preset " + name)
	}
	return c
}
