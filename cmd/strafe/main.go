package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Versifine/strafe/internal/config"
	"github.com/Versifine/strafe/internal/logger"
	"github.com/Versifine/strafe/internal/maps"
	"github.com/Versifine/strafe/internal/physics"
	"github.com/Versifine/strafe/internal/trainer"

	"github.com/alecthomas/kong"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/term"
)

const defaultConfigPath = "configs/strafe.yaml"

type overrides struct {
	Preset string `help:"Physics preset (vq3, qw, hybrid, trainer, custom)."`
	Map    string `help:"Map to load (flat, runway, freestyle)."`
	Seed   uint64 `help:"Seed for generated maps. 0 keeps the configured seed."`
	Jump   string `help:"Jump mode: edge or hold."`
}

var CLI struct {
	Config string `help:"Configuration file. Defaults are used when the default file is missing." short:"c" default:"configs/strafe.yaml" type:"path"`
	Debug  bool   `help:"Whether to enable debug logging."`

	Play struct {
		Overrides overrides `embed:""`
		Bot       bool      `help:"Start with the strafe bot flying."`
	} `cmd:"" default:"1" help:"Train in the terminal."`

	Replay struct {
		Overrides overrides `embed:""`
		Seconds   float64   `help:"Simulated seconds to fly." default:"30"`
	} `cmd:"" help:"Fly the strafe bot headless and print the trajectory trace."`

	Presets struct{} `cmd:"" help:"List the physics presets."`

	Maps struct{} `cmd:"" help:"List the maps."`

	DefaultConfig struct{} `cmd:"" name:"config" help:"Write the default configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("strafe"),
		kong.Description("a strafe-jumping trainer for the terminal"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	var err error
	switch ctx.Command() {
	case "play":
		err = playCommand()
	case "replay":
		err = replayCommand()
	case "presets":
		err = presetsCommand(os.Stdout)
	case "maps":
		for _, name := range maps.Names() {
			fmt.Printf("%-10s %s\n", name, maps.Describe(name))
		}
	case "config":
		err = config.Default().Encode(os.Stdout)
	}
	if err != nil {
		writeError(err)
	}
}

// loadConfig reads the config file and applies command-line overrides. A
// missing default file means defaults; a missing explicit file is an error.
func loadConfig(o overrides) (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if errors.Is(err, fs.ErrNotExist) && isDefaultPath(CLI.Config) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", CLI.Config, err)
	}

	if o.Preset != "" {
		cfg.Physics.Preset = o.Preset
	}
	if o.Map != "" {
		cfg.Map.Name = o.Map
	}
	if o.Seed != 0 {
		cfg.Map.Seed = o.Seed
	}
	if o.Jump != "" {
		cfg.Physics.JumpMode = o.Jump
	}
	if CLI.Debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isDefaultPath(p string) bool {
	return strings.HasSuffix(p, defaultConfigPath)
}

func initLogger(cfg *config.Config, out io.Writer) io.Closer {
	closer, err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: out,
		File:   cfg.Logging.File,
	})
	if err != nil {
		slog.Error("Failed to open log file", "error", err)
	}
	return closer
}

func playCommand() error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("play needs a terminal; use replay for headless runs")
	}
	cfg, err := loadConfig(CLI.Play.Overrides)
	if err != nil {
		return err
	}
	// The screen owns stdout, so logs only go to a file.
	closer := initLogger(cfg, io.Discard)
	defer closer.Close()

	var opts []trainer.RigOption
	if CLI.Play.Bot {
		opts = append(opts, trainer.WithBot(true))
	}
	rig, err := trainer.NewRig(cfg, opts...)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer screen.Fini()

	session, err := trainer.NewSession(screen, rig)
	if err != nil {
		return err
	}
	defer session.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = session.Run(ctx)

	d := rig.Host.Diagnostics()
	slog.Info("Session ended",
		"ticks", d.Ticks,
		"jumps", d.Jumps,
		"frames", d.Frames,
		"frame_clamps", d.FrameClamps,
	)
	return err
}

func replayCommand() error {
	cfg, err := loadConfig(CLI.Replay.Overrides)
	if err != nil {
		return err
	}
	closer := initLogger(cfg, os.Stderr)
	defer closer.Close()

	d := time.Duration(CLI.Replay.Seconds * float64(time.Second))
	res, err := trainer.Replay(cfg, d)
	if err != nil {
		return err
	}
	snap := res.Final.Snapshot
	fmt.Printf("ticks   %d\n", res.Ticks)
	fmt.Printf("trace   %016x\n", res.Trace)
	fmt.Printf("max ups %.1f\n", res.MaxUPS)
	fmt.Printf("final   pos=(%.2f, %.2f, %.2f) speed=%.2f %s\n",
		snap.Position[0], snap.Position[1], snap.Position[2], snap.Speed, snap.Move)
	fmt.Printf("jumps   %d  resets %d\n", res.Diagnostics.Jumps, res.Diagnostics.Resets)
	return nil
}

func presetsCommand(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tGROUND\tFRICTION\tSTOP\tGCAP\tAIR\tACAP\tAIR TURN\tGRAVITY\tJUMP\tSLOPE\tSCALE")
	for _, name := range physics.PresetNames() {
		k := physics.MustPreset(name)
		turn := "-"
		if k.AirTurn != nil {
			turn = fmt.Sprintf("%g/%g", k.AirTurn.Accel, k.AirTurn.SpeedCap)
		}
		fmt.Fprintf(tw, "%s\t%g\t%g\t%g\t%g\t%g\t%g\t%s\t%g\t%g\t%.1f°\t%.5g\n",
			name, k.GroundAccel, k.Friction, k.StopSpeed, k.GroundSpeedCap,
			k.AirAccel, k.AirSpeedCap, turn, k.Gravity, k.JumpSpeed,
			mgl32.RadToDeg(k.SlopeTolerance), k.UnitScale)
	}
	return tw.Flush()
}
