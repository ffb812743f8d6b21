package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Versifine/strafe/internal/event"
	"github.com/Versifine/strafe/internal/host"
	"github.com/Versifine/strafe/internal/input"
	"github.com/Versifine/strafe/internal/render"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	defaultFrameInterval = 8 * time.Millisecond
	// Terminals report key presses but not releases, so a press holds the
	// key for a short pulse that autorepeat keeps extending.
	defaultMovePulse = 180 * time.Millisecond
	yawStep          = float32(5.0)
	pitchStep        = float32(5.0)
	// Mouse motion arrives in whole cells.
	countsPerCell = float32(8)
	statusTimeout = 3 * time.Second
	zoomStep      = float32(1.25)
)

var opposite = map[input.Action]input.Action{
	input.Forward: input.Back,
	input.Back:    input.Forward,
	input.Left:    input.Right,
	input.Right:   input.Left,
}

// Session is the interactive terminal front end. All of its methods run on
// the frame goroutine; only PollEvent runs elsewhere.
type Session struct {
	screen tcell.Screen
	rig    *Rig
	hud    *render.HUD

	frameInterval time.Duration
	movePulse     time.Duration

	held      map[input.Button]time.Time
	mouse     [2]int
	mouseSeen bool
	buttons   tcell.ButtonMask

	commandMode bool
	commandBuf  []rune
	status      string
	statusUntil time.Time
	now         time.Time

	unsubscribe func()
}

type SessionOption func(*Session)

func WithFrameInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.frameInterval = d
		}
	}
}

func WithMovePulse(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.movePulse = d
		}
	}
}

// NewSession attaches a HUD on screen to the rig's host. The screen must be
// initialised by the caller.
func NewSession(screen tcell.Screen, rig *Rig, opts ...SessionOption) (*Session, error) {
	if screen == nil {
		return nil, errors.New("trainer: screen is nil")
	}
	if rig == nil {
		return nil, errors.New("trainer: rig is nil")
	}
	s := &Session{
		screen:        screen,
		rig:           rig,
		frameInterval: defaultFrameInterval,
		movePulse:     defaultMovePulse,
		held:          make(map[input.Button]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hud = render.NewHUD(screen,
		render.WithSolid(rig.SolidAt),
		render.WithPrompt(s.prompt),
		render.WithHelp(helpLine(rig.Host.Sampler().Binds())),
	)
	rig.Host.AddRenderer(s.hud)

	clearTrail := func(any) { s.hud.ClearTrail() }
	s.unsubscribe = rig.Bus.SubscribeAll(clearTrail, event.EventReset, event.EventStageChanged)
	return s, nil
}

// Close stops the session listening on the rig's bus and releases held keys.
// The HUD stays attached to the host.
func (s *Session) Close() {
	s.unsubscribe()
	s.clearInput()
}

// Run pumps screen events and draws frames until ctx ends or the player
// quits.
func (s *Session) Run(ctx context.Context) error {
	s.screen.EnableMouse(tcell.MouseMotionEvents)
	s.screen.HideCursor()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan tcell.Event, 100)
	go pollEvents(ctx, s.screen, events)

	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !s.HandleEvent(ev, time.Now()) {
				return nil
			}
		case now := <-ticker.C:
			s.Frame(now, now.Sub(last))
			last = now
		}
	}
}

// pollEvents forwards screen events until the screen is finalised, closing
// events, or ctx ends.
func pollEvents(ctx context.Context, screen tcell.Screen, events chan<- tcell.Event) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			close(events)
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Frame releases expired key pulses and advances the host.
func (s *Session) Frame(now time.Time, elapsed time.Duration) host.Frame {
	s.now = now
	sampler := s.rig.Host.Sampler()
	for btn, until := range s.held {
		if !now.Before(until) {
			sampler.Release(btn)
			delete(s.held, btn)
		}
	}
	return s.rig.Host.Frame(elapsed)
}

// HandleEvent applies one terminal event. It returns false when the player
// asked to quit.
func (s *Session) HandleEvent(ev tcell.Event, now time.Time) bool {
	s.now = now
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return s.handleKey(ev)
	case *tcell.EventMouse:
		s.handleMouse(ev)
	case *tcell.EventResize:
		s.screen.Sync()
	}
	return true
}

func (s *Session) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		return false
	}
	if s.commandMode {
		s.handleCommandKey(ev)
		return true
	}
	if ev.Key() == tcell.KeyEscape {
		return false
	}

	btn := keyButton(ev)
	if btn != "" && s.press(btn) {
		return true
	}

	switch ev.Key() {
	case tcell.KeyLeft:
		s.turn(yawStep, 0)
	case tcell.KeyRight:
		s.turn(-yawStep, 0)
	case tcell.KeyUp:
		s.turn(0, pitchStep)
	case tcell.KeyDown:
		s.turn(0, -pitchStep)
	case tcell.KeyTab:
		s.nextPreset()
	case tcell.KeyRune:
		return s.handleRune(ev.Rune())
	}
	return true
}

func (s *Session) handleRune(r rune) bool {
	switch r {
	case 'q':
		return false
	case ':':
		s.commandMode = true
		s.commandBuf = s.commandBuf[:0]
	case 'b':
		if s.rig.ToggleBot() {
			s.setStatus("bot flying")
		} else {
			s.setStatus("bot off")
		}
	case 't':
		if s.rig.ToggleTutorial() {
			s.setStatus("tutorial started")
		} else {
			s.setStatus("tutorial abandoned")
		}
	case 'p':
		s.nextPreset()
	case 'j':
		m, err := s.rig.ToggleJumpMode()
		s.report(err, "jump mode "+m.String())
	case 'r':
		s.rig.Host.Reset()
		s.hud.ClearTrail()
	case 'x':
		s.clearInput()
	case '+', '=':
		s.hud.ZoomBy(zoomStep)
	case '-', '_':
		s.hud.ZoomBy(1 / zoomStep)
	}
	return true
}

// press holds every action bound to btn for one pulse and drops the opposite
// direction, as a real keyboard would.
func (s *Session) press(btn input.Button) bool {
	sampler := s.rig.Host.Sampler()
	actions := sampler.Binds().Lookup(btn)
	if len(actions) == 0 {
		return false
	}
	for _, a := range actions {
		if o, ok := opposite[a]; ok {
			other := sampler.Binds().Button(o)
			sampler.Release(other)
			delete(s.held, other)
		}
	}
	sampler.Press(btn)
	s.held[btn] = s.now.Add(s.movePulse)
	return true
}

func (s *Session) handleMouse(ev *tcell.EventMouse) {
	sampler := s.rig.Host.Sampler()
	x, y := ev.Position()
	if s.mouseSeen {
		dx, dy := float32(x-s.mouse[0]), float32(y-s.mouse[1])
		if dx != 0 || dy != 0 {
			sampler.MouseMotion(dx*countsPerCell, dy*countsPerCell)
		}
	}
	s.mouse = [2]int{x, y}
	s.mouseSeen = true

	buttons := ev.Buttons()
	for i, mask := range []tcell.ButtonMask{tcell.Button1, tcell.Button2, tcell.Button3} {
		btn := input.MouseButton(i + 1)
		switch {
		case buttons&mask != 0 && s.buttons&mask == 0:
			sampler.Press(btn)
		case buttons&mask == 0 && s.buttons&mask != 0:
			sampler.Release(btn)
		}
	}
	s.buttons = buttons
	switch {
	case buttons&tcell.WheelUp != 0:
		s.hud.ZoomBy(zoomStep)
	case buttons&tcell.WheelDown != 0:
		s.hud.ZoomBy(1 / zoomStep)
	}
}

func (s *Session) turn(yawDeg, pitchDeg float32) {
	s.rig.Host.Sampler().Turn(mgl32.DegToRad(yawDeg), mgl32.DegToRad(pitchDeg))
}

func (s *Session) nextPreset() {
	name, err := s.rig.NextPreset()
	s.report(err, "preset "+name)
}

func (s *Session) clearInput() {
	sampler := s.rig.Host.Sampler()
	for btn := range s.held {
		sampler.Release(btn)
		delete(s.held, btn)
	}
	for _, a := range input.Actions() {
		sampler.Set(a, false)
	}
}

func (s *Session) report(err error, ok string) {
	if err != nil {
		slog.Warn("Command failed", "error", err)
		s.setStatus(err.Error())
		return
	}
	s.setStatus(ok)
}

func (s *Session) setStatus(text string) {
	s.status = text
	s.statusUntil = s.now.Add(statusTimeout)
}

// prompt is what the HUD shows along the bottom: the command line, a recent
// status message, or the tutorial text.
func (s *Session) prompt() string {
	switch {
	case s.commandMode:
		return ":" + string(s.commandBuf)
	case s.status != "" && s.now.Before(s.statusUntil):
		return s.status
	case s.rig.Coach.Active():
		use := s.rig.Host.Sampler().Binds().Button(input.Use)
		return fmt.Sprintf("[%s %.0f%%] %s", s.rig.Coach.Stage(),
			100*s.rig.Coach.Progress(s.rig.Host.Constants().GroundSpeedCap), s.rig.Coach.Prompt(use))
	default:
		return ""
	}
}

// keyButton names the physical key of ev the way binds spell it.
func keyButton(ev *tcell.EventKey) input.Button {
	switch ev.Key() {
	case tcell.KeyRune:
		return input.KeyButton(string(ev.Rune()))
	case tcell.KeyUp:
		return "up"
	case tcell.KeyDown:
		return "down"
	case tcell.KeyLeft:
		return "left"
	case tcell.KeyRight:
		return "right"
	case tcell.KeyEnter:
		return "enter"
	case tcell.KeyTab:
		return "tab"
	default:
		return ""
	}
}

func helpLine(b input.KeyBinds) string {
	var parts []string
	for _, a := range input.Actions() {
		parts = append(parts, fmt.Sprintf("%s %s", b.Button(a), a))
	}
	return strings.Join(parts, "  ") +
		"  arrows look  b bot  t tutorial  p preset  j jump mode  r reset  +/- zoom  : command  esc quit"
}
