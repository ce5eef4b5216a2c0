package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/control"
	"github.com/pthm-cable/slime/game"
	"github.com/pthm-cable/slime/telemetry"
)

func main() {
	os.Exit(run())
}

// run is the program body. Deferred cleanup finishes before main exits
// with the returned status.
func run() int {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	restorePath := flag.String("restore", "", "Start from a snapshot file instead of seeding")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "Seeding RNG seed (0 = config, then time-based)")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop once frame N is reached (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 0, "Simulation frames per update call (0 = config)")
	controlAddr := flag.String("control-addr", "", "Listen address for the websocket control server (empty = config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 && cfg.Seeding.Seed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	var restore *telemetry.Snapshot
	if *restorePath != "" {
		snap, err := telemetry.LoadSnapshot(*restorePath)
		if err != nil {
			slog.Error("failed to load snapshot", "path", *restorePath, "error", err)
			return 1
		}
		restore = snap
	}

	addr := cfg.Control.Addr
	if *controlAddr != "" {
		addr = *controlAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Build game options
	opts := game.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
		Headless:       *headless,
		StepsPerUpdate: *stepsPerUpdate,
		Restore:        restore,
	}

	if *headless {
		// Headless mode - pure CPU simulation, no raylib needed
		g, err := game.NewGameWithOptions(opts)
		if err != nil {
			slog.Error("failed to create simulation", "error", err)
			return 1
		}
		defer g.Unload()
		startControl(ctx, g, addr)

		slog.Info("starting headless simulation",
			"seed", rngSeed,
			"max_ticks", *maxTicks,
			"steps_per_update", *stepsPerUpdate,
		)

		if err := runHeadless(ctx, g, *maxTicks); err != nil {
			return 1
		}
	} else {
		// Graphical mode
		rl.SetConfigFlags(rl.FlagWindowResizable)
		rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Slime")
		defer rl.CloseWindow()

		rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

		g, err := game.NewGameWithOptions(opts)
		if err != nil {
			slog.Error("failed to create simulation", "error", err)
			return 1
		}
		defer g.Unload()
		startControl(ctx, g, addr)

		for !rl.WindowShouldClose() && ctx.Err() == nil {
			g.Update()
			g.Draw()

			if *maxTicks > 0 && g.Tick() >= *maxTicks {
				break
			}
		}
	}
	return 0
}

// runHeadless advances g until maxTicks frames are done (0 = no limit) or
// ctx ends. Interruption is a clean stop; a failed frame or a pipeline that
// never became ready is returned.
func runHeadless(ctx context.Context, g *game.Game, maxTicks uint64) error {
	if err := g.WaitReady(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		slog.Error("pipeline not ready", "error", err)
		return err
	}

	for ctx.Err() == nil {
		if err := g.UpdateHeadless(); err != nil {
			return err
		}
		if maxTicks > 0 && g.Tick() >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return nil
		}
	}
	slog.Info("interrupted", "tick", g.Tick())
	return nil
}

// startControl serves the websocket control endpoint when addr is set.
// Remote edits go to the game's parameter store; every stats window is
// pushed to connected clients.
func startControl(ctx context.Context, g *game.Game, addr string) {
	if addr == "" {
		return
	}
	hub := control.NewHub(g.Params())
	g.SetStatsCallback(hub.BroadcastStats)

	go func() {
		if err := hub.Serve(ctx, addr); err != nil {
			slog.Error("control server stopped", "error", err)
		}
	}()
}
