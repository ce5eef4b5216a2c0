package game

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/pthm-cable/slime/systems"
)

func presetParams() systems.Params {
	return systems.Params{
		MoveSpeed:      0.33,
		FadeSpeed:      0.003,
		DiffuseSpeed:   0.05,
		SensorSize:     1,
		SensorDistance: 5,
		TurningSpeed:   0.2,
	}
}

// staticSource returns a fixed record and counts reads.
type staticSource struct {
	p     systems.Params
	reads int
}

func (s *staticSource) Params() systems.Params {
	s.reads++
	return s.p
}

func newTestScheduler(t *testing.T, c systems.Constants, seed systems.SeedSpec, workers int) *Scheduler {
	t.Helper()
	agents := systems.NewAgentStore(c.AgentCount)
	if err := systems.SeedAgents(agents, c, seed); err != nil {
		t.Fatal(err)
	}
	trail := systems.NewTrailMap(c.Width, c.Height, 1)
	s := NewScheduler(c, systems.DefaultKernelOptions(), agents, trail, workers)
	t.Cleanup(s.Close)
	return s
}

func prepared(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Prepare(ctx)
	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf("scheduler not ready: %v", err)
	}
	if s.State() != Ready {
		t.Fatalf("expected Ready, got %s", s.State())
	}
}

func TestSchedulerNoDispatchWhileLoading(t *testing.T) {
	c := systems.Constants{Width: 20, Height: 20, AgentCount: 10}
	s := newTestScheduler(t, c, systems.SeedSpec{Mode: systems.SeedRandom, Seed: 1}, 1)
	before := append([]systems.Agent(nil), s.Agents().Agents...)

	src := &staticSource{p: presetParams()}
	for i := 0; i < 5; i++ {
		if err := s.Frame(src); err != nil {
			t.Fatalf("frame while loading: %v", err)
		}
	}

	if s.State() != Loading {
		t.Errorf("expected Loading, got %s", s.State())
	}
	if s.Frames() != 0 {
		t.Errorf("expected no frames, got %d", s.Frames())
	}
	if src.reads != 0 {
		t.Errorf("params read %d times while loading", src.reads)
	}
	for i, a := range s.Agents().Agents {
		if a != before[i] {
			t.Fatalf("agent %d moved while loading", i)
		}
	}
	if s.Trail().Total() != 0 {
		t.Errorf("trail map should stay zero while loading, total %f", s.Trail().Total())
	}
}

func TestSchedulerPreparationFailureStaysLoading(t *testing.T) {
	c := systems.Constants{Width: 40, Height: 30, AgentCount: 10}
	agents := systems.NewAgentStore(10)
	trail := systems.NewTrailMap(10, 10, 1) // wrong size
	s := NewScheduler(c, systems.DefaultKernelOptions(), agents, trail, 1)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Prepare(ctx)
	if err := s.WaitReady(ctx); err == nil {
		t.Fatal("expected preparation to fail")
	}
	if s.State() != Loading {
		t.Errorf("expected Loading after failure, got %s", s.State())
	}
	if s.Err() == nil {
		t.Error("expected Err to report the failure")
	}
	if err := s.Frame(&staticSource{p: presetParams()}); err != nil {
		t.Errorf("frame after failed preparation: %v", err)
	}
	if s.Frames() != 0 {
		t.Errorf("expected no frames, got %d", s.Frames())
	}
}

func TestSchedulerPrepareCancelled(t *testing.T) {
	c := systems.Constants{Width: 20, Height: 20, AgentCount: 4}
	s := newTestScheduler(t, c, systems.SeedSpec{Mode: systems.SeedCenter}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Prepare(ctx)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := s.WaitReady(waitCtx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if s.State() != Loading {
		t.Errorf("expected Loading, got %s", s.State())
	}
}

func TestSchedulerRejectsInvalidParams(t *testing.T) {
	c := systems.Constants{Width: 20, Height: 20, AgentCount: 10}
	s := newTestScheduler(t, c, systems.SeedSpec{Mode: systems.SeedRandom, Seed: 2}, 1)
	prepared(t, s)
	before := append([]systems.Agent(nil), s.Agents().Agents...)

	bad := presetParams()
	bad.SensorDistance = 500
	err := s.Frame(&staticSource{p: bad})
	if !errors.Is(err, systems.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}

	if s.Frames() != 0 {
		t.Errorf("rejected frame must not advance the counter, got %d", s.Frames())
	}
	for i, a := range s.Agents().Agents {
		if a != before[i] {
			t.Fatalf("agent %d changed on a rejected frame", i)
		}
	}
	if s.Trail().Total() != 0 {
		t.Errorf("trail changed on a rejected frame, total %f", s.Trail().Total())
	}
}

func TestSchedulerRereadsParamsEveryFrame(t *testing.T) {
	c := systems.Constants{Width: 30, Height: 30, AgentCount: 1}
	s := newTestScheduler(t, c, systems.SeedSpec{Mode: systems.SeedCenter, Seed: 3}, 1)
	prepared(t, s)

	p := presetParams()
	p.MoveSpeed = 0
	store, err := systems.NewParamStore(c, p)
	if err != nil {
		t.Fatal(err)
	}

	start := s.Agents().Agents[0]
	if err := s.Frame(store); err != nil {
		t.Fatal(err)
	}
	if a := s.Agents().Agents[0]; a.X != start.X || a.Y != start.Y {
		t.Fatalf("agent moved with zero move speed: %+v -> %+v", start, a)
	}

	if _, err := store.Update(func(p *systems.Params) { p.MoveSpeed = 2 }); err != nil {
		t.Fatal(err)
	}
	if err := s.Frame(store); err != nil {
		t.Fatal(err)
	}
	a := s.Agents().Agents[0]
	moved := math.Hypot(float64(a.X-start.X), float64(a.Y-start.Y))
	if math.Abs(moved-2) > 0.05 {
		t.Errorf("expected the new move speed to apply on the next frame, moved %f", moved)
	}

	src := &staticSource{p: presetParams()}
	for i := 0; i < 3; i++ {
		if err := s.Frame(src); err != nil {
			t.Fatal(err)
		}
	}
	if src.reads != 3 {
		t.Errorf("expected one read per frame, got %d", src.reads)
	}
}

func TestSchedulerDiffusionSeesSameFrameDeposits(t *testing.T) {
	c := systems.Constants{Width: 10, Height: 10, AgentCount: 1}
	s := newTestScheduler(t, c, systems.SeedSpec{Mode: systems.SeedCenter}, 1)
	s.Agents().Agents[0] = systems.Agent{X: 5.5, Y: 5.5}
	prepared(t, s)

	p := presetParams()
	p.MoveSpeed = 0
	p.FadeSpeed = 0
	p.DiffuseSpeed = 1
	if err := s.Frame(&staticSource{p: p}); err != nil {
		t.Fatal(err)
	}

	// The 0.5 deposit at (5,5) is spread over its 3x3 neighborhood in the same frame
	want := float32(0.5 / 9)
	for _, cell := range [][2]int{{4, 4}, {5, 5}, {6, 6}, {6, 5}} {
		if got := s.Trail().At(cell[0], cell[1]); math.Abs(float64(got-want)) > 1e-6 {
			t.Errorf("cell %v: expected %f, got %f", cell, want, got)
		}
	}
}

func TestSchedulerClosedRejectsFrames(t *testing.T) {
	c := systems.Constants{Width: 10, Height: 10, AgentCount: 1}
	s := newTestScheduler(t, c, systems.SeedSpec{Mode: systems.SeedCenter}, 2)
	prepared(t, s)

	s.Close()
	if err := s.Frame(&staticSource{p: presetParams()}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestSchedulerEndToEnd(t *testing.T) {
	c := systems.Constants{Width: 40, Height: 30, AgentCount: 100}
	s := newTestScheduler(t, c, systems.SeedSpec{Mode: systems.SeedDisk, Radius: 15, Seed: 9}, 2)

	for i, a := range s.Agents().Agents {
		if math.Hypot(float64(a.X-20), float64(a.Y-15)) > 15+1e-3 {
			t.Fatalf("agent %d seeded outside the disk", i)
		}
	}
	prepared(t, s)

	store, err := systems.NewParamStore(c, presetParams())
	if err != nil {
		t.Fatal(err)
	}
	for frame := 0; frame < 1000; frame++ {
		if err := s.Frame(store); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
	}

	if s.Frames() != 1000 {
		t.Errorf("expected 1000 frames, got %d", s.Frames())
	}
	for i, a := range s.Agents().Agents {
		if a.X < 0 || a.X >= 40 || a.Y < 0 || a.Y >= 30 {
			t.Fatalf("agent %d off the torus: (%f, %f)", i, a.X, a.Y)
		}
	}
	total := float64(s.Trail().Total())
	if math.IsNaN(total) || math.IsInf(total, 0) {
		t.Fatalf("total intensity not finite: %f", total)
	}
	if limit := float64(40 * 30 * s.Trail().MaxIntensity()); total > limit {
		t.Errorf("total intensity %f exceeds %f", total, limit)
	}
	for i, v := range s.Trail().Cells() {
		if v < 0 || v > s.Trail().MaxIntensity() {
			t.Fatalf("cell %d out of bounds: %f", i, v)
		}
	}
	if s.Wraps() == 0 {
		t.Error("expected at least one agent to wrap around the grid")
	}
}

func TestSchedulerRejectsBadSensorSpread(t *testing.T) {
	for _, spread := range []float32{-1, float32(math.NaN()), float32(math.Inf(1))} {
		c := systems.Constants{Width: 20, Height: 20, AgentCount: 4}
		opt := systems.DefaultKernelOptions()
		opt.SensorSpread = spread
		s := NewScheduler(c, opt, systems.NewAgentStore(4), systems.NewTrailMap(20, 20, 1), 1)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		s.Prepare(ctx)
		if err := s.WaitReady(ctx); err == nil {
			t.Errorf("spread %f: expected preparation to fail", spread)
		}
		if s.State() != Loading {
			t.Errorf("spread %f: expected Loading, got %s", spread, s.State())
		}
		cancel()
		s.Close()
	}
}

func TestSchedulerResumeFrom(t *testing.T) {
	c := systems.Constants{Width: 20, Height: 20, AgentCount: 4}
	s := newTestScheduler(t, c, systems.SeedSpec{Mode: systems.SeedCenter}, 1)
	s.ResumeFrom(500)
	prepared(t, s)

	if err := s.Frame(&staticSource{p: presetParams()}); err != nil {
		t.Fatal(err)
	}
	if s.Frames() != 501 {
		t.Errorf("expected frame 501 after resuming at 500, got %d", s.Frames())
	}
}
