package event

import (
	"context"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"
)

type SimKind int

const (
	KindJumped SimKind = iota
	KindLanded
	KindReset
	KindFalling
	KindStepClamped
)

func (k SimKind) String() string {
	switch k {
	case KindJumped:
		return "Jumped"
	case KindLanded:
		return "Landed"
	case KindReset:
		return "Reset"
	case KindFalling:
		return "Falling"
	case KindStepClamped:
		return "StepClamped"
	default:
		return "Unknown"
	}
}

// Name is the bus event name the kind is published under.
func (k SimKind) Name() string {
	switch k {
	case KindJumped:
		return EventJumped
	case KindLanded:
		return EventLanded
	case KindReset:
		return EventReset
	case KindFalling:
		return EventFalling
	case KindStepClamped:
		return EventStepClamped
	default:
		return ""
	}
}

type SimEvent struct {
	Kind     SimKind
	Tick     uint64
	Position mgl32.Vec3
	Speed    float32
	AirTime  float32
}

func NewSimEvent(kind SimKind, tick uint64, pos mgl32.Vec3, speed, airTime float32) *SimEvent {
	return &SimEvent{
		Kind:     kind,
		Tick:     tick,
		Position: pos,
		Speed:    speed,
		AirTime:  airTime,
	}
}

// SimEventHandler logs simulation events. Resets are warnings; the rest are
// routine and logged at debug.
func SimEventHandler(event any) {
	simEvent, ok := event.(*SimEvent)
	if !ok {
		slog.Error("Invalid event type for SimEventHandler")
		return
	}
	level := slog.LevelDebug
	if simEvent.Kind == KindReset {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "Simulation event",
		"kind", simEvent.Kind.String(),
		"tick", simEvent.Tick,
		"speed", simEvent.Speed,
		"air_time", simEvent.AirTime,
	)
}
