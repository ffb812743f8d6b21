package render

import (
	"log/slog"

	"github.com/Versifine/strafe/internal/host"
	"github.com/chewxy/math32"
)

// LogRenderer reports speed through slog once per interval of simulated
// ticks. It is the renderer for headless replays.
type LogRenderer struct {
	logger   *slog.Logger
	interval uint64
	next     uint64
	maxUPS   float32
}

func NewLogRenderer(l *slog.Logger, intervalTicks uint64) *LogRenderer {
	if l == nil {
		l = slog.Default()
	}
	if intervalTicks == 0 {
		intervalTicks = 1
	}
	return &LogRenderer{logger: l, interval: intervalTicks, next: intervalTicks}
}

func (r *LogRenderer) Render(f host.Frame) {
	snap := f.Snapshot
	ups := SpeedReadout(snap.Speed, f.Constants.UnitScale)
	r.maxUPS = math32.Max(r.maxUPS, ups.UPS)
	if snap.Tick < r.next {
		return
	}
	for r.next <= snap.Tick {
		r.next += r.interval
	}
	r.logger.Info("Speed",
		"tick", snap.Tick,
		"ups", int(math32.Round(ups.UPS)),
		"max_ups", int(math32.Round(r.maxUPS)),
		"kph", int(math32.Round(ups.KPH)),
		"state", snap.Move.String(),
		"jumps", f.Diagnostics.Jumps,
	)
}

// MaxUPS is the highest speed seen at any rendered frame.
func (r *LogRenderer) MaxUPS() float32 {
	return r.maxUPS
}
