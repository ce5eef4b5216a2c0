package game

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/slime/config"
	"github.com/pthm-cable/slime/systems"
	"github.com/pthm-cable/slime/telemetry"
)

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := loadDefaults(t)
	cfg.Grid.Width = 40
	cfg.Grid.Height = 30
	cfg.Grid.AgentCount = 100
	cfg.Agents.SensorDistance = 5
	cfg.Seeding.Radius = 15
	cfg.Scheduler.Workers = 1
	cfg.Telemetry.StatsWindow = 50
	return cfg
}

func newHeadlessGame(t *testing.T, opts Options) *Game {
	t.Helper()
	opts.Headless = true
	g, err := NewGameWithOptions(opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(g.Unload)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.WaitReady(ctx); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestHeadlessGameRunsWindows(t *testing.T) {
	var windows []telemetry.WindowStats
	g := newHeadlessGame(t, Options{
		Seed:           3,
		Config:         smallConfig(t),
		StepsPerUpdate: 10,
		StatsCallback: func(s telemetry.WindowStats) {
			windows = append(windows, s)
		},
	})

	for g.Tick() < 200 {
		if err := g.UpdateHeadless(); err != nil {
			t.Fatal(err)
		}
	}

	if g.Tick() != 200 {
		t.Errorf("expected 200 frames in steps of 10, got %d", g.Tick())
	}
	if len(windows) != 4 {
		t.Fatalf("expected 4 stats windows of 50 frames, got %d", len(windows))
	}
	last := windows[len(windows)-1]
	if last.WindowEndFrame != 200 || last.Agents != 100 {
		t.Errorf("unexpected last window: %+v", last)
	}
	if last.TrailTotal <= 0 {
		t.Error("expected deposits to leave a trail")
	}
}

func TestGameTilesLiveInWorld(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Display.Tiles = 1
	g := newHeadlessGame(t, Options{Config: cfg})

	if got := len(g.displayTiles()); got != 9 {
		t.Errorf("expected 3x3 tile entities, got %d", got)
	}
}

func TestGameParamsEditTakesEffect(t *testing.T) {
	g := newHeadlessGame(t, Options{Config: smallConfig(t), Seed: 1})

	if _, err := g.Params().Update(func(p *systems.Params) { p.MoveSpeed = 0 }); err != nil {
		t.Fatal(err)
	}
	before := g.Snapshot().Agents
	if err := g.UpdateHeadless(); err != nil {
		t.Fatal(err)
	}
	for i, a := range g.Snapshot().Agents {
		if a.X != before[i].X || a.Y != before[i].Y {
			t.Fatalf("agent %d moved with zero speed", i)
		}
	}
}

func TestGameRestoresSnapshot(t *testing.T) {
	cfg := smallConfig(t)
	src := newHeadlessGame(t, Options{Config: cfg, Seed: 5, StepsPerUpdate: 25})
	if err := src.UpdateHeadless(); err != nil {
		t.Fatal(err)
	}
	snap := src.Snapshot()

	dst := newHeadlessGame(t, Options{Config: cfg, Seed: 6, Restore: snap})
	got := dst.Snapshot()
	for i := range snap.Agents {
		if got.Agents[i] != snap.Agents[i] {
			t.Fatalf("agent %d not restored: %+v vs %+v", i, got.Agents[i], snap.Agents[i])
		}
	}
	for i := range snap.Trail {
		if got.Trail[i] != snap.Trail[i] {
			t.Fatalf("cell %d not restored", i)
		}
	}
	if got.Seed != snap.Seed {
		t.Errorf("expected restored seed %d, got %d", snap.Seed, got.Seed)
	}
	if dst.Tick() != snap.Frame {
		t.Fatalf("expected restored run to resume at frame %d, got %d", snap.Frame, dst.Tick())
	}

	// Same frame numbers feed the tie-break hash, so both runs stay in step
	dst.stepsPerUpdate = 25
	if err := src.UpdateHeadless(); err != nil {
		t.Fatal(err)
	}
	if err := dst.UpdateHeadless(); err != nil {
		t.Fatal(err)
	}
	if dst.Tick() != src.Tick() {
		t.Errorf("expected both runs at frame %d, got %d", src.Tick(), dst.Tick())
	}
	want := src.Snapshot().Agents
	for i, a := range dst.Snapshot().Agents {
		if a != want[i] {
			t.Fatalf("agent %d diverged after resume: %+v vs %+v", i, a, want[i])
		}
	}
}

func TestGameWritesOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	g := newHeadlessGame(t, Options{Config: smallConfig(t), OutputDir: dir, StepsPerUpdate: 50})
	if err := g.UpdateHeadless(); err != nil {
		t.Fatal(err)
	}
	g.Unload()

	for _, name := range []string{"config.yaml", "telemetry.csv", "perf.csv", "bookmarks.csv"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s missing: %v", name, err)
			continue
		}
		if name == "telemetry.csv" && info.Size() == 0 {
			t.Error("telemetry.csv is empty after a full window")
		}
	}
}

func TestUpdateHeadlessAfterUnload(t *testing.T) {
	g := newHeadlessGame(t, Options{Config: smallConfig(t)})
	g.Unload()
	if err := g.UpdateHeadless(); err == nil {
		t.Error("expected an error after unload")
	}
}

func TestGameRefreshesDerivedGrid(t *testing.T) {
	cfg := smallConfig(t)
	newHeadlessGame(t, Options{Config: cfg})

	// The camera sizes its world from these
	if cfg.Derived.GridW32 != 40 || cfg.Derived.GridH32 != 30 {
		t.Errorf("expected derived grid 40x30, got %fx%f", cfg.Derived.GridW32, cfg.Derived.GridH32)
	}
}
