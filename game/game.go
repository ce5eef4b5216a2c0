package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/slime/camera"
	"github.com/pthm-cable/slime/components"
	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/renderer"
	"github.com/pthm-cable/slime/systems"
	"github.com/pthm-cable/slime/telemetry"
	"github.com/pthm-cable/slime/ui"
)

// maxStepsPerUpdate bounds the speed-up keys.
const maxStepsPerUpdate = 32

// Options configures a game instance.
type Options struct {
	Seed           int64  // seeding RNG; 0 = seeding.seed from config
	LogStats       bool   // log window and perf stats via slog
	SnapshotDir    string // where snapshots go; empty = no bookmark snapshots
	OutputDir      string // CSV logs and config copy; empty = disabled
	Headless       bool   // no window, no rendering state
	StepsPerUpdate int    // frames per Update call; 0 = config value
	Config         *config.Config
	StatsCallback  func(telemetry.WindowStats)
	Restore        *telemetry.Snapshot // starting state instead of seeding
}

// Game hosts one simulation: parameter store, storage, scheduler, telemetry
// and, when not headless, the window-side rendering and input.
type Game struct {
	cfg    *config.Config
	consts systems.Constants
	seed   int64

	// Host world: one entity per displayed copy of the torus
	world      *ecs.World
	tileMap    *ecs.Map1[components.Tile]
	tileFilter *ecs.Filter1[components.Tile]
	tiles      []components.Tile

	store    *systems.ParamStore
	defaults systems.Params
	agents   *systems.AgentStore
	trail    *systems.TrailMap
	sched    *Scheduler
	cancel   context.CancelFunc

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	outputManager    *telemetry.OutputManager
	bookmarkDetector *telemetry.BookmarkDetector
	statsCallback    func(telemetry.WindowStats)
	logStats         bool
	snapshotDir      string

	// Rendering (nil when headless)
	camera        *camera.Camera
	trailRenderer *renderer.TrailRenderer
	hud           *ui.HUD
	paramsPanel   *ui.ParamsPanel
	perfPanel     *ui.PerfPanel
	tint          rl.Color
	showPerf      bool

	// State
	headless       bool
	unloaded       bool
	paused         bool
	stepsPerUpdate int
	lastErr        error
	screenWidth    float32
	screenHeight   float32
}

// NewGameWithOptions builds storage, seeds or restores the population and
// starts kernel preparation in the background. Frames are no-ops until the
// scheduler is ready; use WaitReady to block on it.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	cfg.ComputeDerived()

	consts := ConstantsFromConfig(cfg)
	if err := consts.Validate(); err != nil {
		return nil, err
	}
	kopt := KernelOptionsFromConfig(cfg)
	spec := SeedSpecFromConfig(cfg, opts.Seed)

	defaults := ParamsFromConfig(cfg)
	initial := defaults
	if opts.Restore != nil {
		initial = opts.Restore.Params
	}
	store, err := systems.NewParamStore(consts, initial)
	if err != nil {
		return nil, fmt.Errorf("initial parameters: %w", err)
	}

	agents := systems.NewAgentStore(consts.AgentCount)
	trail := systems.NewTrailMap(consts.Width, consts.Height, kopt.MaxIntensity)
	if opts.Restore != nil {
		if err := opts.Restore.Restore(agents, trail); err != nil {
			return nil, fmt.Errorf("restoring snapshot: %w", err)
		}
		spec.Seed = opts.Restore.Seed
	} else if err := systems.SeedAgents(agents, consts, spec); err != nil {
		return nil, err
	}

	steps := opts.StepsPerUpdate
	if steps < 1 {
		steps = cfg.Scheduler.StepsPerUpdate
	}

	world := ecs.NewWorld()
	g := &Game{
		cfg:              cfg,
		consts:           consts,
		seed:             spec.Seed,
		world:            world,
		tileMap:          ecs.NewMap1[components.Tile](world),
		tileFilter:       ecs.NewFilter1[components.Tile](world),
		store:            store,
		defaults:         defaults,
		agents:           agents,
		trail:            trail,
		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Telemetry.CoverageThreshold),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		statsCallback:    opts.StatsCallback,
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
		headless:         opts.Headless,
		stepsPerUpdate:   steps,
	}

	for _, t := range renderer.TileGrid(cfg.Display.Tiles) {
		g.tileMap.NewEntity(&t)
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	g.sched = NewScheduler(consts, kopt, agents, trail, cfg.Scheduler.Workers)
	g.sched.SetPerf(g.perfCollector)
	if opts.Restore != nil {
		g.sched.ResumeFrom(opts.Restore.Frame)
		g.collector.StartAt(opts.Restore.Frame)
	}
	ctx, cancel := context.WithCancel(context.Background())
	g.cancel = cancel
	g.sched.Prepare(ctx)

	if !g.headless {
		g.initRendering()
	}

	slog.Info("simulation created",
		"width", consts.Width,
		"height", consts.Height,
		"agents", consts.AgentCount,
		"seed", g.seed,
		"seed_mode", string(spec.Mode),
		"restored", opts.Restore != nil,
		"start_frame", g.sched.Frames(),
		"headless", g.headless,
	)
	return g, nil
}

// initRendering sets up window-side state. Requires an open raylib window.
func (g *Game) initRendering() {
	g.screenWidth = float32(rl.GetScreenWidth())
	g.screenHeight = float32(rl.GetScreenHeight())

	g.camera = camera.New(g.screenWidth, g.screenHeight, g.cfg.Derived.GridW32, g.cfg.Derived.GridH32)
	g.trailRenderer = renderer.NewTrailRenderer()
	g.trailRenderer.Init(g.consts.Width, g.consts.Height)
	g.hud = ui.NewHUD()
	g.paramsPanel = ui.NewParamsPanel(g.store, g.defaults, int32(g.screenWidth)-330, 10)
	g.perfPanel = ui.NewPerfPanel(10, 110)
	g.tint = renderer.TintColor(g.cfg.Display.Tint)
}

// WaitReady blocks until the scheduler can run frames or preparation fails.
func (g *Game) WaitReady(ctx context.Context) error {
	return g.sched.WaitReady(ctx)
}

// Update handles input and advances the simulation (graphical mode).
func (g *Game) Update() {
	g.handleInput()
	if g.paused {
		return
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		if err := g.simulationStep(i == g.stepsPerUpdate-1); err != nil {
			g.fail(err)
			return
		}
	}
}

// UpdateHeadless advances the simulation without input or rendering.
func (g *Game) UpdateHeadless() error {
	for i := 0; i < g.stepsPerUpdate; i++ {
		if err := g.simulationStep(false); err != nil {
			g.fail(err)
			return err
		}
	}
	return nil
}

// simulationStep runs one frame and its telemetry. upload also pushes the
// trail map to the display texture.
func (g *Game) simulationStep(upload bool) error {
	if g.sched.State() != Ready {
		return nil
	}

	g.perfCollector.StartFrame()
	if err := g.sched.Frame(g.store); err != nil {
		g.perfCollector.EndFrame()
		return err
	}

	if upload && g.trailRenderer != nil {
		g.perfCollector.StartPhase(telemetry.PhaseDisplay)
		g.trailRenderer.Update(g.trail)
	}

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.flushTelemetry()
	g.perfCollector.EndFrame()
	return nil
}

// fail pauses on a frame error. Params are validated on entry to the store,
// so this is a closed scheduler or a bug.
func (g *Game) fail(err error) {
	if errors.Is(err, g.lastErr) {
		return
	}
	g.lastErr = err
	g.paused = true
	slog.Error("frame failed", "frame", g.sched.Frames(), "error", err)
}

// Draw renders the trail map and UI (graphical mode).
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	g.trailRenderer.Draw(g.camera, g.displayTiles(), g.tint)

	err := g.lastErr
	if err == nil {
		err = g.sched.Err()
	}
	g.hud.Draw(ui.HUDData{
		Title:          "Slime",
		State:          g.sched.State().String(),
		Width:          g.consts.Width,
		Height:         g.consts.Height,
		Agents:         g.agents.Len(),
		Frames:         g.sched.Frames(),
		Wraps:          g.sched.Wraps(),
		StepsPerUpdate: g.stepsPerUpdate,
		Zoom:           g.camera.Zoom,
		FPS:            rl.GetFPS(),
		Paused:         g.paused,
		Err:            err,
	})
	g.hud.DrawControls(int32(g.screenWidth), int32(g.screenHeight),
		"Drag: pan | Wheel: zoom | Home: reset view | Space: pause | ,/.: steps | P: params | T: perf | S: snapshot")

	g.paramsPanel.Draw()
	if g.showPerf {
		g.perfPanel.Draw(g.perfCollector.Stats())
	}

	rl.EndDrawing()
	g.perfCollector.RecordDraw()
}

// displayTiles collects tile entities from the host world.
func (g *Game) displayTiles() []components.Tile {
	g.tiles = g.tiles[:0]
	query := g.tileFilter.Query()
	for query.Next() {
		g.tiles = append(g.tiles, *query.Get())
	}
	return g.tiles
}

// Unload releases the workers, output files and GPU resources.
func (g *Game) Unload() {
	if g.unloaded {
		return
	}
	g.unloaded = true
	g.cancel()
	g.sched.Close()
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
	if g.trailRenderer != nil {
		g.trailRenderer.Unload()
	}
}

// SetStatsCallback replaces the function called with every flushed stats window.
func (g *Game) SetStatsCallback(fn func(telemetry.WindowStats)) {
	g.statsCallback = fn
}

// Tick returns the number of completed frames.
func (g *Game) Tick() uint64 {
	return g.sched.Frames()
}

// Params returns the live parameter store. Editors outside the game, such
// as the remote control hub, write to it directly.
func (g *Game) Params() *systems.ParamStore {
	return g.store
}

// Scheduler returns the frame scheduler.
func (g *Game) Scheduler() *Scheduler {
	return g.sched
}

// Trail returns the trail map. Only read it between frames.
func (g *Game) Trail() *systems.TrailMap {
	return g.trail
}

// Snapshot captures the current state.
func (g *Game) Snapshot() *telemetry.Snapshot {
	return telemetry.CaptureSnapshot(g.seed, g.sched.Frames(), g.store.Params(), g.agents, g.trail)
}
