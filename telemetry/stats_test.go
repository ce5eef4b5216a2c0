package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/slime/systems"
)

func TestComputeTrailStats(t *testing.T) {
	cells := []float32{0, 0, 0, 0, 0.5, 0.5, 1, 1, 1, 1}
	s := ComputeTrailStats(cells, 0.5)

	if math.Abs(s.Total-5) > 1e-9 {
		t.Errorf("total = %v, want 5", s.Total)
	}
	if math.Abs(s.Mean-0.5) > 1e-9 {
		t.Errorf("mean = %v, want 0.5", s.Mean)
	}
	// population std of {0 x4, 0.5 x2, 1 x4} around 0.5
	if want := math.Sqrt(0.2); math.Abs(s.Std-want) > 1e-9 {
		t.Errorf("std = %v, want %v", s.Std, want)
	}
	if s.Max != 1 {
		t.Errorf("max = %v, want 1", s.Max)
	}
	if s.P50 != 0.5 {
		t.Errorf("p50 = %v, want 0.5", s.P50)
	}
	if s.P90 != 1 {
		t.Errorf("p90 = %v, want 1", s.P90)
	}
	if math.Abs(s.Coverage-0.6) > 1e-9 {
		t.Errorf("coverage = %v, want 0.6", s.Coverage)
	}
}

func TestComputeTrailStatsEmpty(t *testing.T) {
	if s := ComputeTrailStats(nil, 0.1); s != (TrailStats{}) {
		t.Errorf("expected zero stats for an empty grid, got %+v", s)
	}
}

func TestComputeTrailStatsDoesNotReorderInput(t *testing.T) {
	cells := []float32{0.9, 0.1, 0.5}
	ComputeTrailStats(cells, 0)
	if cells[0] != 0.9 || cells[1] != 0.1 || cells[2] != 0.5 {
		t.Errorf("input cells were modified: %v", cells)
	}
}

func TestCollectorWindows(t *testing.T) {
	c := NewCollector(10, 0.05)
	p := systems.Params{MoveSpeed: 0.33, SensorSize: 1, SensorDistance: 5}
	cells := []float32{0, 0.1, 0.2, 0.3}

	if c.ShouldFlush(9) {
		t.Error("should not flush before the window ends")
	}
	if !c.ShouldFlush(10) {
		t.Error("should flush at the window end")
	}

	first := c.Flush(10, 40, 4, cells, p)
	if first.WindowStartFrame != 0 || first.WindowEndFrame != 10 {
		t.Errorf("unexpected window bounds: %d-%d", first.WindowStartFrame, first.WindowEndFrame)
	}
	if first.Wraps != 40 {
		t.Errorf("wraps = %d, want 40", first.Wraps)
	}
	if math.Abs(first.WrapRate-1) > 1e-9 {
		t.Errorf("wrap rate = %v, want 1 (40 wraps / 10 frames / 4 agents)", first.WrapRate)
	}
	if first.MoveSpeed != 0.33 || first.SensorDistance != 5 {
		t.Errorf("params not recorded: %+v", first)
	}
	if math.Abs(first.Coverage-0.75) > 1e-9 {
		t.Errorf("coverage = %v, want 0.75", first.Coverage)
	}

	if c.ShouldFlush(15) {
		t.Error("window should restart after a flush")
	}
	second := c.Flush(20, 50, 4, cells, p)
	if second.Wraps != 10 {
		t.Errorf("second window wraps = %d, want 10", second.Wraps)
	}
	if second.WindowStartFrame != 10 {
		t.Errorf("second window start = %d, want 10", second.WindowStartFrame)
	}
}
