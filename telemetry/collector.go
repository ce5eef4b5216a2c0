package telemetry

import "github.com/pthm-cable/slime/systems"

// Collector tracks stats windows and produces WindowStats.
type Collector struct {
	windowFrames      uint64
	coverageThreshold float64

	// Current window tracking
	windowStartFrame uint64
	wrapsAtStart     uint64

	buf []float64
}

// NewCollector creates a stats collector flushing every windowFrames frames.
// Cells at or above coverageThreshold count toward coverage.
func NewCollector(windowFrames int, coverageThreshold float64) *Collector {
	if windowFrames < 1 {
		windowFrames = 1
	}
	return &Collector{
		windowFrames:      uint64(windowFrames),
		coverageThreshold: coverageThreshold,
	}
}

// StartAt begins the first window at frame, for runs resumed from a snapshot.
func (c *Collector) StartAt(frame uint64) {
	c.windowStartFrame = frame
}

// ShouldFlush returns true if enough frames have passed to flush the window.
func (c *Collector) ShouldFlush(frame uint64) bool {
	return frame-c.windowStartFrame >= c.windowFrames
}

// Flush produces a WindowStats and starts the next window.
// wrapsTotal is the scheduler's running wrap count; the window reports the
// difference since the previous flush. cells is read, not retained.
func (c *Collector) Flush(frame, wrapsTotal uint64, agents int, cells []float32, p systems.Params) WindowStats {
	var trail TrailStats
	trail, c.buf = computeTrailStats(cells, c.coverageThreshold, c.buf)

	wraps := wrapsTotal - c.wrapsAtStart
	var wrapRate float64
	if frames := frame - c.windowStartFrame; frames > 0 && agents > 0 {
		wrapRate = float64(wraps) / float64(frames) / float64(agents)
	}

	stats := WindowStats{
		WindowStartFrame: c.windowStartFrame,
		WindowEndFrame:   frame,
		Agents:           agents,
		Wraps:            wraps,
		WrapRate:         wrapRate,

		TrailTotal: trail.Total,
		TrailMean:  trail.Mean,
		TrailStd:   trail.Std,
		TrailMax:   trail.Max,
		TrailP50:   trail.P50,
		TrailP90:   trail.P90,
		Coverage:   trail.Coverage,

		MoveSpeed:      p.MoveSpeed,
		FadeSpeed:      p.FadeSpeed,
		DiffuseSpeed:   p.DiffuseSpeed,
		SensorSize:     p.SensorSize,
		SensorDistance: p.SensorDistance,
		TurningSpeed:   p.TurningSpeed,
	}

	c.windowStartFrame = frame
	c.wrapsAtStart = wrapsTotal

	return stats
}

// WindowFrames returns the number of frames per window.
func (c *Collector) WindowFrames() uint64 {
	return c.windowFrames
}
