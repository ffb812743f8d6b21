package trainer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Versifine/strafe/internal/config"
	"github.com/Versifine/strafe/internal/event"
	"github.com/Versifine/strafe/internal/input"
	"github.com/Versifine/strafe/internal/physics"
	"github.com/gdamore/tcell/v2"
)

func testConfig(mapName string) *config.Config {
	cfg := config.Default()
	cfg.Map.Name = mapName
	return cfg
}

func newTestRig(t *testing.T, cfg *config.Config, opts ...RigOption) *Rig {
	t.Helper()
	r, err := NewRig(cfg, opts...)
	if err != nil {
		t.Fatalf("NewRig() error = %v", err)
	}
	return r
}

func newTestSession(t *testing.T) (*Session, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen.Init() error = %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(100, 30)

	s, err := NewSession(screen, newTestRig(t, testConfig("flat")))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s, screen
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func typeCommand(s *Session, now time.Time, cmd string) {
	s.HandleEvent(key(':'), now)
	for _, r := range cmd {
		s.HandleEvent(key(r), now)
	}
	s.HandleEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), now)
}

func TestNewRig_Errors(t *testing.T) {
	cfg := testConfig("flat")
	cfg.Physics.Preset = "nope"
	if _, err := NewRig(cfg); err == nil || !strings.Contains(err.Error(), "physics.preset") {
		t.Fatalf("NewRig() error = %v, want the preset field named", err)
	}
}

func TestReplay_BotBeatsGroundCap(t *testing.T) {
	cfg := testConfig("flat")
	res, err := Replay(cfg, 10*time.Second)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if res.Ticks != 1000 {
		t.Fatalf("Ticks = %d, want 1000", res.Ticks)
	}
	if res.MaxUPS <= 320 {
		t.Fatalf("MaxUPS = %v, want above the 320 ground cap", res.MaxUPS)
	}
	if res.Diagnostics.Jumps == 0 || res.Diagnostics.Resets != 0 {
		t.Fatalf("Diagnostics = %+v", res.Diagnostics)
	}

	again, err := Replay(testConfig("flat"), 10*time.Second)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if again.Trace != res.Trace {
		t.Fatalf("replay trace %x != %x", again.Trace, res.Trace)
	}

	if _, err := Replay(cfg, 0); err == nil {
		t.Fatal("Replay(0) should fail")
	}
}

func TestRig_PresetsShareUnitScale(t *testing.T) {
	r := newTestRig(t, testConfig("flat"))

	if err := r.SetPreset("trainer"); err == nil {
		t.Fatal("SetPreset(trainer) on a vq3-scale map should fail")
	}
	if err := r.SetPreset("cpma"); err == nil {
		t.Fatal("SetPreset(unknown) should fail")
	}

	name, err := r.NextPreset()
	if err != nil || name != "qw" {
		t.Fatalf("NextPreset() = %q, %v; want qw", name, err)
	}
	r.Run(r.Host.TickDuration())
	if r.Host.Preset() != "qw" || r.Host.Constants().AirSpeedCap != 30 {
		t.Fatalf("preset = %s, constants = %+v", r.Host.Preset(), r.Host.Constants())
	}

	// hybrid, then wrap past trainer back to vq3
	r.NextPreset()
	r.Run(r.Host.TickDuration())
	if name, _ := r.NextPreset(); name != "vq3" {
		t.Fatalf("NextPreset() = %q, want vq3 skipping trainer", name)
	}
}

func TestRig_SetConstantAndJumpMode(t *testing.T) {
	r := newTestRig(t, testConfig("flat"))

	if err := r.SetConstant("gravity", 600); err != nil {
		t.Fatalf("SetConstant() error = %v", err)
	}
	if err := r.SetConstant("jump_speed", 300); err != nil {
		t.Fatalf("SetConstant() error = %v", err)
	}
	if err := r.SetConstant("warp", 2); err == nil {
		t.Fatal("SetConstant(unknown) should fail")
	}
	if r.Host.Constants().Gravity != 800 {
		t.Fatal("constant applied before the next tick")
	}
	r.Run(r.Host.TickDuration())
	k := r.Host.Constants()
	if k.Gravity != 600 || k.JumpSpeed != 300 || r.Host.Preset() != config.CustomPreset {
		t.Fatalf("constants = %+v preset = %s", k, r.Host.Preset())
	}

	if err := r.SetConstant("gravity", -1); err == nil {
		t.Fatal("negative gravity accepted")
	}

	m, err := r.ToggleJumpMode()
	if err != nil || m != physics.JumpHold {
		t.Fatalf("ToggleJumpMode() = %v, %v", m, err)
	}
	r.Run(r.Host.TickDuration())
	if r.Host.Sampler().JumpMode() != physics.JumpHold {
		t.Fatal("jump mode not applied to the sampler")
	}
}

func TestRig_TutorialResetsOnStage(t *testing.T) {
	r := newTestRig(t, testConfig("flat"))
	var stages []string
	r.Bus.Subscribe(event.EventStageChanged, func(e any) { stages = append(stages, e.(*event.StageEvent).Stage) })

	r.Host.Sampler().Set(input.Forward, true)
	r.Run(500 * time.Millisecond)
	if r.Host.Snapshot().Speed == 0 {
		t.Fatal("player did not move")
	}

	if !r.ToggleTutorial() {
		t.Fatal("tutorial did not start")
	}
	if len(stages) != 1 || stages[0] != "intro" || r.Host.Snapshot().Speed != 0 {
		t.Fatalf("stage start: events=%v speed=%v", stages, r.Host.Snapshot().Speed)
	}
	if r.ToggleTutorial() || r.Coach.Active() {
		t.Fatal("tutorial did not stop")
	}

	if !r.ToggleBot() || r.Bot.Mask() != input.OverrideAll {
		t.Fatal("bot did not engage")
	}
	if r.ToggleBot() || r.Bot.Mask() != input.OverrideNone {
		t.Fatal("bot did not disengage")
	}
}

func TestSession_KeyPulse(t *testing.T) {
	s, _ := newTestSession(t)
	now := time.Unix(0, 0)

	if !s.HandleEvent(key('w'), now) {
		t.Fatal("w quit the session")
	}
	if !s.rig.Host.Sampler().Keys().Has(input.Forward) {
		t.Fatal("w did not hold forward")
	}
	s.Frame(now.Add(100*time.Millisecond), 100*time.Millisecond)
	if s.rig.Host.Snapshot().Speed == 0 {
		t.Fatal("player did not accelerate while forward was held")
	}

	// the opposite key replaces forward
	s.HandleEvent(key('s'), now.Add(100*time.Millisecond))
	keys := s.rig.Host.Sampler().Keys()
	if keys.Has(input.Forward) || !keys.Has(input.Back) {
		t.Fatalf("keys = %v, want back only", keys)
	}

	s.Frame(now.Add(time.Second), 10*time.Millisecond)
	if s.rig.Host.Sampler().Keys() != 0 {
		t.Fatalf("keys = %v after the pulse expired", s.rig.Host.Sampler().Keys())
	}
}

func TestSession_ArrowsAndMouseTurn(t *testing.T) {
	s, _ := newTestSession(t)
	now := time.Unix(0, 0)
	yaw0 := s.rig.Host.Snapshot().Yaw

	s.HandleEvent(tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), now)
	s.Frame(now, 10*time.Millisecond)
	got := physics.WrapSigned(s.rig.Host.Snapshot().Yaw - yaw0)
	if got < 0.0872 || got > 0.0873 {
		t.Fatalf("left arrow turned %v rad, want 5 degrees", got)
	}

	s.HandleEvent(tcell.NewEventMouse(10, 10, tcell.ButtonNone, tcell.ModNone), now)
	s.HandleEvent(tcell.NewEventMouse(12, 10, tcell.ButtonNone, tcell.ModNone), now)
	before := s.rig.Host.Snapshot().Yaw
	s.Frame(now, 10*time.Millisecond)
	turned := physics.WrapSigned(s.rig.Host.Snapshot().Yaw - before)
	want := -2 * countsPerCell * input.DefaultSensitivity
	if turned > want+1e-5 || turned < want-1e-5 {
		t.Fatalf("mouse right turned %v rad, want %v", turned, want)
	}
}

func TestSession_Commands(t *testing.T) {
	s, screen := newTestSession(t)
	now := time.Unix(0, 0)

	typeCommand(s, now, "set gravity 600")
	s.Frame(now, 10*time.Millisecond)
	if s.rig.Host.Constants().Gravity != 600 {
		t.Fatalf("gravity = %v after :set", s.rig.Host.Constants().Gravity)
	}
	if !strings.Contains(s.prompt(), "gravity = 600") {
		t.Fatalf("prompt = %q", s.prompt())
	}

	typeCommand(s, now, "preset trainer")
	if !strings.Contains(s.prompt(), "unit scale") {
		t.Fatalf("prompt = %q, want unit scale error", s.prompt())
	}

	typeCommand(s, now, "jump hold")
	s.Frame(now, 10*time.Millisecond)
	if s.rig.Host.Constants().JumpMode != physics.JumpHold {
		t.Fatal(":jump hold not applied")
	}

	typeCommand(s, now, "dance")
	if !strings.Contains(s.prompt(), "unknown command") {
		t.Fatalf("prompt = %q", s.prompt())
	}

	// typing a bound key in command mode does not move the player
	s.HandleEvent(key(':'), now)
	s.HandleEvent(key('w'), now)
	if s.rig.Host.Sampler().Keys().Has(input.Forward) {
		t.Fatal("command mode leaked keys to the sampler")
	}
	if s.prompt() != ":w" {
		t.Fatalf("prompt = %q, want the command line", s.prompt())
	}
	s.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), now)
	if s.commandMode {
		t.Fatal("escape did not leave command mode")
	}

	// status messages expire
	if s.prompt() == "" {
		t.Fatal("no status after cancelling")
	}
	s.Frame(now.Add(statusTimeout), 0)
	if s.prompt() != "" {
		t.Fatalf("prompt = %q after status timeout", s.prompt())
	}

	cells, w, _ := screen.GetContents()
	var row strings.Builder
	for x := 0; x < w; x++ {
		row.Write(cells[x].Bytes)
	}
	if !strings.Contains(row.String(), "UPS") {
		t.Fatalf("first screen row = %q, want the speed readout", row.String())
	}
}

func TestSession_ControlKeys(t *testing.T) {
	s, _ := newTestSession(t)
	now := time.Unix(0, 0)

	s.HandleEvent(key('b'), now)
	if s.rig.Bot.Mask() != input.OverrideAll {
		t.Fatal("b did not engage the bot")
	}
	s.HandleEvent(key('t'), now)
	if !s.rig.Coach.Active() {
		t.Fatal("t did not start the tutorial")
	}
	if !strings.Contains(s.prompt(), "tutorial started") {
		t.Fatalf("prompt = %q", s.prompt())
	}
	s.Frame(now.Add(statusTimeout), 0)
	if !strings.HasPrefix(s.prompt(), "[intro") {
		t.Fatalf("prompt = %q, want the tutorial text", s.prompt())
	}

	if s.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), now) {
		t.Fatal("escape did not quit")
	}
	if s.HandleEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), now) {
		t.Fatal("ctrl-c did not quit")
	}
}

func TestSession_RunStopsOnContext(t *testing.T) {
	s, _ := newTestSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if s.rig.Host.Diagnostics().Frames == 0 {
		t.Fatal("Run drew no frames")
	}
}

func TestPollEvents_StopsWhenRunEnds(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen.Init() error = %v", err)
	}
	t.Cleanup(screen.Fini)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Nobody reads events any more, and the buffer is already full.
	events := make(chan tcell.Event, 1)
	events <- tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone)
	for i := 0; i < 5; i++ {
		screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)
	}

	done := make(chan struct{})
	go func() {
		pollEvents(ctx, screen, events)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pollEvents still blocked on a full channel after ctx ended")
	}
}

func TestPollEvents_ClosesOnFini(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen.Init() error = %v", err)
	}
	events := make(chan tcell.Event, 10)
	screen.InjectKey(tcell.KeyRune, 'w', tcell.ModNone)

	go pollEvents(context.Background(), screen, events)
	select {
	case ev := <-events:
		if k, ok := ev.(*tcell.EventKey); !ok || k.Rune() != 'w' {
			t.Fatalf("forwarded %#v, want the injected key", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("injected key never forwarded")
	}

	screen.Fini()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("unexpected event after Fini")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events not closed after Fini")
	}
}

func TestSession_CloseDetachesFromBus(t *testing.T) {
	s, _ := newTestSession(t)
	before := s.rig.Bus.Handlers(event.EventReset)

	s.HandleEvent(key('w'), time.Unix(0, 0))
	s.Close()

	if got := s.rig.Bus.Handlers(event.EventReset); got != before-1 {
		t.Fatalf("reset handlers = %d, want %d", got, before-1)
	}
	if s.rig.Host.Sampler().Keys() != 0 {
		t.Fatal("Close left keys held")
	}
}
