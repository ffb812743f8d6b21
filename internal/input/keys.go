package input

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Action is a logical control the trainer understands.
type Action uint8

const (
	Forward Action = iota
	Back
	Left
	Right
	Jump
	// Use is the tutorial's "continue" key.
	Use

	actionCount
)

var actionNames = [actionCount]string{
	Forward: "forward",
	Back:    "back",
	Left:    "left",
	Right:   "right",
	Jump:    "jump",
	Use:     "action",
}

func (a Action) String() string {
	if a < actionCount {
		return actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", uint8(a))
}

func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for a, name := range actionNames {
		if name == s {
			return Action(a), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Actions lists every action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, actionCount)
	for a := Action(0); a < actionCount; a++ {
		out = append(out, a)
	}
	return out
}

// KeyState is the set of held actions.
type KeyState uint8

func Keys(actions ...Action) KeyState {
	var k KeyState
	for _, a := range actions {
		k = k.With(a, true)
	}
	return k
}

func (k KeyState) Has(a Action) bool {
	return k&(1<<a) != 0
}

func (k KeyState) With(a Action, down bool) KeyState {
	if down {
		return k | 1<<a
	}
	return k &^ (1 << a)
}

// Pressed is the set of actions held now but not in prev.
func (k KeyState) Pressed(prev KeyState) KeyState {
	return k &^ prev
}

// Released is the set of actions held in prev but not now.
func (k KeyState) Released(prev KeyState) KeyState {
	return prev &^ k
}

// SideStrafe is true when only side keys are held.
func (k KeyState) SideStrafe() bool {
	return (k.Has(Left) || k.Has(Right)) && !(k.Has(Forward) || k.Has(Back))
}

// Wish is the local move direction: x = right, y = forward. Opposite keys
// cancel. The simulator normalizes diagonals.
func (k KeyState) Wish() mgl32.Vec2 {
	var w mgl32.Vec2
	if k.Has(Right) {
		w[0]++
	}
	if k.Has(Left) {
		w[0]--
	}
	if k.Has(Forward) {
		w[1]++
	}
	if k.Has(Back) {
		w[1]--
	}
	return w
}

func (k KeyState) String() string {
	var parts []string
	for _, a := range Actions() {
		if k.Has(a) {
			parts = append(parts, a.String())
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Button names a physical key ("w", "space") or mouse button ("mouse1").
// Names are case-insensitive.
type Button string

func KeyButton(name string) Button {
	if name == " " {
		return "space"
	}
	return Button(strings.ToLower(strings.TrimSpace(name)))
}

func MouseButton(index int) Button {
	return Button("mouse" + strconv.Itoa(index))
}

// KeyBinds maps each action to one button.
type KeyBinds struct {
	buttons [actionCount]Button
}

func DefaultKeyBinds() KeyBinds {
	var b KeyBinds
	b.buttons[Forward] = "w"
	b.buttons[Back] = "s"
	b.buttons[Left] = "a"
	b.buttons[Right] = "d"
	b.buttons[Jump] = "space"
	b.buttons[Use] = "f"
	return b
}

func (b *KeyBinds) Rebind(a Action, btn Button) {
	if a < actionCount {
		b.buttons[a] = KeyButton(string(btn))
	}
}

func (b KeyBinds) Button(a Action) Button {
	if a < actionCount {
		return b.buttons[a]
	}
	return ""
}

// Lookup returns every action bound to btn; a button may drive several.
func (b KeyBinds) Lookup(btn Button) []Action {
	btn = KeyButton(string(btn))
	var out []Action
	for a, bound := range b.buttons {
		if bound != "" && bound == btn {
			out = append(out, Action(a))
		}
	}
	return out
}
