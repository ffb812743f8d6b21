// Package coach runs the interactive tutorial: a fixed sequence of stages,
// each handing a different part of the controls to the player while the strafe
// bot keeps the rest.
package coach

import (
	"fmt"
	"log/slog"

	"github.com/Versifine/strafe/internal/bot"
	"github.com/Versifine/strafe/internal/input"
	"github.com/Versifine/strafe/internal/physics"
	"github.com/chewxy/math32"
)

const (
	DefaultStageDuration = float32(5)
	// DefaultGoal is 1000 ups on a 320 ups ground cap.
	DefaultGoal = float32(1000.0 / 320.0)
)

type Stage uint8

const (
	Intro Stage = iota
	Observe
	Hopping
	Moving
	Turning
	Done
)

func (s Stage) String() string {
	switch s {
	case Intro:
		return "intro"
	case Observe:
		return "observe"
	case Hopping:
		return "hopping"
	case Moving:
		return "moving"
	case Turning:
		return "turning"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

func (s Stage) timed() bool {
	return s == Intro || s == Observe
}

// Mask is what the bot controls during the stage.
func (s Stage) Mask() input.Override {
	switch s {
	case Observe:
		return input.OverrideAll
	case Hopping:
		return input.OverrideMove | input.OverrideTurn
	case Moving:
		return input.OverrideJump | input.OverrideTurn
	case Turning:
		return input.OverrideMove | input.OverrideJump
	default:
		return input.OverrideNone
	}
}

var stageText = map[Stage]string{
	Intro: "Strafe jumping gains speed past the ground limit. The engine only " +
		"refuses acceleration while your wish direction is close to your " +
		"velocity; keep it just outside that zone and speed keeps growing.",
	Observe: "Watch the bot: it builds ground speed, jumps, holds forward with " +
		"one side key, turns smoothly toward that side, and swaps sides on " +
		"every landing.",
	Hopping: "Your turn to jump. The bot moves and turns; press jump the " +
		"moment you touch the ground so friction never gets a tick.",
	Moving: "Now the keys. The bot jumps and turns; hold forward plus the side " +
		"the view is turning toward and swap on each landing.",
	Turning: "Finally the mouse. The bot jumps and holds the keys; turn toward " +
		"the held side key just fast enough to keep accelerating.",
	Done: "Tutorial complete.",
}

// Coach is a Pilot that wraps the strafe bot.
type Coach struct {
	bot      *bot.Bot
	stage    Stage
	elapsed  float32
	maxSpeed float32
	ready    bool

	duration float32
	goal     float32
	onStage  func(Stage)
}

type Option func(*Coach)

func WithStageDuration(seconds float32) Option {
	return func(c *Coach) {
		if seconds > 0 {
			c.duration = seconds
		}
	}
}

// WithGoal sets the speed goal as a multiple of the ground speed cap.
func WithGoal(multiple float32) Option {
	return func(c *Coach) {
		if multiple > 0 {
			c.goal = multiple
		}
	}
}

// WithStageHook is called whenever a new stage begins, including the first.
func WithStageHook(fn func(Stage)) Option {
	return func(c *Coach) { c.onStage = fn }
}

func New(b *bot.Bot, opts ...Option) *Coach {
	c := &Coach{
		bot:      b,
		stage:    Done,
		duration: DefaultStageDuration,
		goal:     DefaultGoal,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins the tutorial from the first stage.
func (c *Coach) Start() {
	c.enter(Intro)
}

// Abort ends the tutorial and gives all controls back.
func (c *Coach) Abort() {
	c.stage = Done
	c.ready = false
	c.bot.SetMask(input.OverrideNone)
}

func (c *Coach) Active() bool {
	return c.stage != Done
}

func (c *Coach) Stage() Stage {
	return c.stage
}

func (c *Coach) Ready() bool {
	return c.ready
}

// Progress is how far the current stage is toward completion, in [0, 1].
func (c *Coach) Progress(groundCap float32) float32 {
	switch {
	case c.stage == Done:
		return 1
	case c.stage.timed():
		return math32.Min(1, c.elapsed/c.duration)
	case groundCap <= 0:
		return 0
	default:
		return math32.Min(1, c.maxSpeed/(c.goal*groundCap))
	}
}

// Prompt is the text to show for the current stage.
func (c *Coach) Prompt(use input.Button) string {
	text := stageText[c.stage]
	if !c.ready {
		return text
	}
	if c.stage == Turning {
		return text + fmt.Sprintf(" Press %q to finish.", string(use))
	}
	return text + fmt.Sprintf(" Press %q to continue.", string(use))
}

// Update advances stage timers and speed records. It reports whether a new
// stage began.
func (c *Coach) Update(dt, speed, groundCap float32, pressed input.KeyState) bool {
	if c.stage == Done {
		return false
	}
	wasReady := c.ready
	if !c.ready {
		if c.stage.timed() {
			c.elapsed += dt
			c.ready = c.elapsed > c.duration
		} else {
			c.maxSpeed = math32.Max(c.maxSpeed, speed)
			c.ready = c.maxSpeed > c.goal*groundCap
		}
		if c.ready {
			slog.Info("Tutorial stage complete", "stage", c.stage, "max_speed", c.maxSpeed)
		}
	}
	if wasReady && pressed.Has(input.Use) {
		c.enter(c.stage + 1)
		return true
	}
	return false
}

func (c *Coach) enter(s Stage) {
	c.stage = s
	c.elapsed = 0
	c.maxSpeed = 0
	c.ready = false
	c.bot.SetMask(s.Mask())
	if s.Mask() == input.OverrideNone {
		c.bot.Stop()
	} else {
		c.bot.TakeOff()
	}
	slog.Info("Tutorial stage started", "stage", s)
	if c.onStage != nil {
		c.onStage(s)
	}
}

// Pilot updates the tutorial from the previous sample and then flies the bot.
// With the tutorial inactive it only flies the bot.
func (c *Coach) Pilot(snap physics.Snapshot, k physics.Constants, dt float32, s *input.Sampler) {
	if c.Active() {
		c.Update(dt, snap.Speed, k.GroundSpeedCap, s.Pressed())
	}
	c.bot.Pilot(snap, k, dt, s)
}
