package physics

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestPresets_AllValid(t *testing.T) {
	names := PresetNames()
	want := []string{"vq3", "qw", "hybrid", "trainer"}
	if len(names) != len(want) {
		t.Fatalf("PresetNames() = %v, want %v", names, want)
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("PresetNames()[%d] = %q, want %q", i, names[i], name)
		}
		c, ok := Preset(name)
		if !ok {
			t.Fatalf("Preset(%q) missing", name)
		}
		if err := c.Validate(); err != nil {
			t.Fatalf("Preset(%q).Validate() error = %v", name, err)
		}
	}
}

func TestPreset_CaseInsensitiveAndUnknown(t *testing.T) {
	if _, ok := Preset("VQ3"); !ok {
		t.Fatal("Preset(\"VQ3\") not found")
	}
	if _, ok := Preset("cpma"); ok {
		t.Fatal("Preset(\"cpma\") found, want unknown")
	}
}

func TestPreset_ReturnsIndependentCopy(t *testing.T) {
	a := MustPreset("hybrid")
	a.AirTurn.Accel = 1

	b := MustPreset("hybrid")
	if b.AirTurn.Accel != 2100 {
		t.Fatalf("AirTurn.Accel = %v after mutating another copy, want 2100", b.AirTurn.Accel)
	}
}

func TestConstants_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Constants)
		field  string
	}{
		{"zero ground accel", func(c *Constants) { c.GroundAccel = 0 }, "ground_accel"},
		{"negative friction", func(c *Constants) { c.Friction = -1 }, "friction"},
		{"NaN air cap", func(c *Constants) { c.AirSpeedCap = math32.NaN() }, "air_speed_cap"},
		{"infinite gravity", func(c *Constants) { c.Gravity = math32.Inf(1) }, "gravity"},
		{"zero jump", func(c *Constants) { c.JumpSpeed = 0 }, "jump_speed"},
		{"vertical slope", func(c *Constants) { c.SlopeTolerance = math32.Pi / 2 }, "slope_tolerance"},
		{"bad jump mode", func(c *Constants) { c.JumpMode = 7 }, "jump_mode"},
		{"zero scale", func(c *Constants) { c.UnitScale = 0 }, "unit_scale"},
		{"bad air turn", func(c *Constants) { c.AirTurn = &Movement{Accel: 10} }, "air_turn.speed_cap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MustPreset("trainer")
			tt.mutate(&c)
			err := c.Validate()
			var ce *ConstantError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() error = %v, want ConstantError", err)
			}
			if ce.Field != tt.field {
				t.Fatalf("Field = %q, want %q", ce.Field, tt.field)
			}
		})
	}

	c := MustPreset("trainer")
	c.Friction = 0
	c.StopSpeed = 0
	if err := c.Validate(); err != nil {
		t.Fatalf("frictionless constants rejected: %v", err)
	}
}

func TestParseJumpMode(t *testing.T) {
	tests := []struct {
		in      string
		want    JumpMode
		wantErr bool
	}{
		{"edge", JumpEdge, false},
		{" Hold ", JumpHold, false},
		{"autohop", JumpHold, false},
		{"toggle", JumpEdge, true},
	}
	for _, tt := range tests {
		got, err := ParseJumpMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseJumpMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseJumpMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConstants_AirPicksTurnRuleForSideStrafe(t *testing.T) {
	c := MustPreset("hybrid")
	if got := c.Air(true); got != *c.AirTurn {
		t.Fatalf("Air(true) = %+v, want AirTurn", got)
	}
	if got := c.Air(false); got.SpeedCap != 320 {
		t.Fatalf("Air(false).SpeedCap = %v, want 320", got.SpeedCap)
	}
	vq3 := MustPreset("vq3")
	if got := vq3.Air(true); got.SpeedCap != 320 {
		t.Fatalf("vq3 Air(true).SpeedCap = %v, want 320", got.SpeedCap)
	}
}

func TestConstants_HullScales(t *testing.T) {
	h := MustPreset("trainer").Hull()
	approxEqual(t, h.Radius, 0.15, 1e-6, "radius")
	approxEqual(t, h.Height, 0.525, 1e-6, "height")
}

func TestAngles(t *testing.T) {
	approxEqual(t, WrapYaw(-math32.Pi/2), 3*math32.Pi/2, 1e-6, "WrapYaw(-π/2)")
	approxEqual(t, WrapYaw(5*math32.Pi), math32.Pi, 1e-5, "WrapYaw(5π)")
	approxEqual(t, WrapSigned(3*math32.Pi/2), -math32.Pi/2, 1e-6, "WrapSigned(3π/2)")

	for _, yaw := range []float32{0, 0.4, 2, 4.5} {
		forward := PlayerState{Yaw: yaw}.Forward()
		approxEqual(t, Heading(forward), yaw, 1e-5, "Heading(Forward(yaw))")
	}

	right := RotateYaw(mgl32.Vec2{1, 0}, 0)
	if right != (mgl32.Vec2{1, 0}) {
		t.Fatalf("right at yaw 0 = %v, want +X", right)
	}
}

func TestSnapshot_Extrapolate(t *testing.T) {
	s := Snapshot{PlayerState: PlayerState{
		Position: mgl32.Vec3{1, 2, 3},
		Velocity: mgl32.Vec3{10, 0, -10},
	}}
	got := s.Extrapolate(0.5)
	if got != (mgl32.Vec3{6, 2, -2}) {
		t.Fatalf("Extrapolate(0.5) = %v", got)
	}
}
