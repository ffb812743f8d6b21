package trainer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Versifine/strafe/internal/config"
	"github.com/Versifine/strafe/internal/host"
	"github.com/Versifine/strafe/internal/render"
)

type ReplayResult struct {
	Ticks       uint64
	Trace       uint64
	MaxUPS      float32
	Final       host.Frame
	Diagnostics host.Diagnostics
}

// Replay flies the bot headless for d of simulated time, logging speed once
// per simulated second.
func Replay(cfg *config.Config, d time.Duration) (ReplayResult, error) {
	if d <= 0 {
		return ReplayResult{}, fmt.Errorf("replay duration must be > 0, got %v", d)
	}
	logs := render.NewLogRenderer(slog.Default(), uint64(cfg.Sim.TickRate))
	rig, err := NewRig(cfg, WithBot(true), WithRenderers(logs))
	if err != nil {
		return ReplayResult{}, err
	}

	f := rig.Run(d)
	res := ReplayResult{
		Ticks:       f.Snapshot.Tick,
		Trace:       rig.Host.Trace(),
		MaxUPS:      logs.MaxUPS(),
		Final:       f,
		Diagnostics: rig.Host.Diagnostics(),
	}
	slog.Info("Replay finished",
		"ticks", res.Ticks,
		"max_ups", int(res.MaxUPS),
		"jumps", res.Diagnostics.Jumps,
		"resets", res.Diagnostics.Resets,
		"trace", fmt.Sprintf("%016x", res.Trace),
	)
	return res, nil
}
