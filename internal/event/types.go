package event

import "time"

const (
	EventJumped           = "sim.jumped"
	EventLanded           = "sim.landed"
	EventReset            = "sim.reset"
	EventFalling          = "sim.falling"
	EventStepClamped      = "sim.step_clamped"
	EventFrameClamped     = "host.frame_clamped"
	EventConstantsApplied = "host.constants_applied"
	EventStageChanged     = "coach.stage"
)

// SimEventNames are the events published once per affected tick.
var SimEventNames = []string{
	EventJumped,
	EventLanded,
	EventReset,
	EventFalling,
	EventStepClamped,
}

type FrameClampedEvent struct {
	Elapsed time.Duration
	Max     time.Duration
}

type ConstantsAppliedEvent struct {
	Tick   uint64
	Preset string
}

type StageEvent struct {
	Stage string
}
