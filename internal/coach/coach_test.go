package coach

import (
	"strings"
	"testing"

	"github.com/Versifine/strafe/internal/bot"
	"github.com/Versifine/strafe/internal/input"
	"github.com/Versifine/strafe/internal/physics"
)

func TestStage_Masks(t *testing.T) {
	tests := []struct {
		stage Stage
		move  bool
		jump  bool
		turn  bool
	}{
		{Intro, false, false, false},
		{Observe, true, true, true},
		{Hopping, true, false, true},
		{Moving, false, true, true},
		{Turning, true, true, false},
		{Done, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			m := tt.stage.Mask()
			if m.Has(input.OverrideMove) != tt.move || m.Has(input.OverrideJump) != tt.jump || m.Has(input.OverrideTurn) != tt.turn {
				t.Fatalf("Mask() = %03b, want move=%v jump=%v turn=%v", m, tt.move, tt.jump, tt.turn)
			}
		})
	}
}

func TestCoach_Progression(t *testing.T) {
	var started []Stage
	b := bot.New(bot.WithAutoRestart(true))
	c := New(b, WithStageDuration(1), WithGoal(2), WithStageHook(func(s Stage) {
		started = append(started, s)
	}))
	use := input.Keys(input.Use)
	const groundCap = float32(320)

	if c.Active() {
		t.Fatal("coach active before Start")
	}
	c.Start()
	if c.Stage() != Intro || b.Mask() != input.OverrideNone {
		t.Fatalf("after Start: stage=%v mask=%v", c.Stage(), b.Mask())
	}

	// timed stage: pressing early does nothing
	if c.Update(0.5, 0, groundCap, use) {
		t.Fatal("advanced before the stage was complete")
	}
	c.Update(0.6, 0, groundCap, 0)
	if !c.Ready() {
		t.Fatal("intro not ready after 1.1s")
	}
	if !c.Update(0.01, 0, groundCap, use) || c.Stage() != Observe {
		t.Fatalf("stage = %v, want observe", c.Stage())
	}
	if b.Mask() != input.OverrideAll || b.State() != bot.Takeoff {
		t.Fatalf("observe: bot mask=%v state=%v", b.Mask(), b.State())
	}

	c.Update(1.1, 0, groundCap, 0)
	c.Update(0.01, 0, groundCap, use)
	if c.Stage() != Hopping {
		t.Fatalf("stage = %v, want hopping", c.Stage())
	}

	// speed stage: the best speed counts, not the current one
	c.Update(0.01, 500, groundCap, 0)
	c.Update(0.01, 100, groundCap, 0)
	if c.Ready() {
		t.Fatal("ready below goal")
	}
	if p := c.Progress(groundCap); p < 0.78 || p > 0.79 {
		t.Fatalf("Progress = %v, want 500/640", p)
	}
	c.Update(0.01, 700, groundCap, 0)
	if !c.Ready() {
		t.Fatal("not ready above goal")
	}
	if !strings.Contains(c.Prompt("f"), `"f"`) {
		t.Fatalf("Prompt() = %q, want the action key named", c.Prompt("f"))
	}

	for _, want := range []Stage{Moving, Turning, Done} {
		c.Update(0.01, 0, groundCap, use)
		if c.Stage() != want {
			t.Fatalf("stage = %v, want %v", c.Stage(), want)
		}
		c.Update(0.01, 1000, groundCap, 0)
	}
	if c.Active() {
		t.Fatal("coach still active after turning stage")
	}

	want := []Stage{Intro, Observe, Hopping, Moving, Turning, Done}
	if len(started) != len(want) {
		t.Fatalf("stage hook calls = %v, want %v", started, want)
	}
	for i := range want {
		if started[i] != want[i] {
			t.Fatalf("stage hook calls = %v, want %v", started, want)
		}
	}
}

func TestCoach_PilotUsesSamplerEdges(t *testing.T) {
	b := bot.New(bot.WithAutoRestart(true))
	c := New(b, WithStageDuration(0.01))
	c.Start()

	s := input.NewSampler()
	k := physics.MustPreset("vq3")
	snap := physics.Snapshot{PlayerState: physics.PlayerState{Move: physics.Grounded}}

	c.Pilot(snap, k, 0.02, s)
	s.Sample()
	if !c.Ready() {
		t.Fatal("intro not ready")
	}

	s.Press("f")
	s.Sample()
	c.Pilot(snap, k, 0.01, s)
	if c.Stage() != Observe {
		t.Fatalf("stage = %v, want observe after pressing the action key", c.Stage())
	}
}

func TestCoach_Abort(t *testing.T) {
	b := bot.New()
	c := New(b)
	c.Start()
	c.Update(10, 0, 320, 0)
	c.Abort()
	if c.Active() || b.Mask() != input.OverrideNone {
		t.Fatal("Abort left the tutorial running")
	}
}
