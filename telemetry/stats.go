package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrailStats summarizes the trail map at one instant.
type TrailStats struct {
	Total    float64
	Mean     float64
	Std      float64
	Max      float64
	P50      float64
	P90      float64
	Coverage float64 // fraction of cells at or above the coverage threshold
}

// ComputeTrailStats summarizes cells. Coverage counts cells >= threshold.
func ComputeTrailStats(cells []float32, threshold float64) TrailStats {
	s, _ := computeTrailStats(cells, threshold, nil)
	return s
}

// computeTrailStats is ComputeTrailStats with a reusable float64 buffer.
func computeTrailStats(cells []float32, threshold float64, buf []float64) (TrailStats, []float64) {
	n := len(cells)
	if n == 0 {
		return TrailStats{}, buf
	}
	if cap(buf) < n {
		buf = make([]float64, n)
	}
	x := buf[:n]

	covered := 0
	for i, v := range cells {
		x[i] = float64(v)
		if x[i] >= threshold {
			covered++
		}
	}

	var s TrailStats
	s.Total = floats.Sum(x)
	s.Mean, s.Std = stat.PopMeanStdDev(x, nil)
	s.Max = floats.Max(x)
	s.Coverage = float64(covered) / float64(n)

	sort.Float64s(x)
	s.P50 = stat.Quantile(0.5, stat.Empirical, x, nil)
	s.P90 = stat.Quantile(0.9, stat.Empirical, x, nil)

	return s, buf
}

// WindowStats holds aggregated statistics for one stats window.
type WindowStats struct {
	WindowStartFrame uint64 `csv:"-" json:"window_start"`
	WindowEndFrame   uint64 `csv:"window_end" json:"window_end"`

	Agents   int     `csv:"agents" json:"agents"`
	Wraps    uint64  `csv:"wraps" json:"wraps"`         // edge crossings during the window
	WrapRate float64 `csv:"wrap_rate" json:"wrap_rate"` // wraps per agent per frame

	// Trail map structure at window end
	TrailTotal float64 `csv:"trail_total" json:"trail_total"`
	TrailMean  float64 `csv:"trail_mean" json:"trail_mean"`
	TrailStd   float64 `csv:"trail_std" json:"trail_std"`
	TrailMax   float64 `csv:"trail_max" json:"trail_max"`
	TrailP50   float64 `csv:"trail_p50" json:"trail_p50"`
	TrailP90   float64 `csv:"trail_p90" json:"trail_p90"`
	Coverage   float64 `csv:"coverage" json:"coverage"`

	// Parameters in effect at window end
	MoveSpeed      float32 `csv:"move_speed" json:"move_speed"`
	FadeSpeed      float32 `csv:"fade_speed" json:"fade_speed"`
	DiffuseSpeed   float32 `csv:"diffuse_speed" json:"diffuse_speed"`
	SensorSize     int     `csv:"sensor_size" json:"sensor_size"`
	SensorDistance float32 `csv:"sensor_distance" json:"sensor_distance"`
	TurningSpeed   float32 `csv:"turning_speed" json:"turning_speed"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartFrame),
		slog.Uint64("window_end", s.WindowEndFrame),
		slog.Int("agents", s.Agents),
		slog.Uint64("wraps", s.Wraps),
		slog.Float64("wrap_rate", s.WrapRate),
		slog.Float64("trail_total", s.TrailTotal),
		slog.Float64("trail_mean", s.TrailMean),
		slog.Float64("trail_std", s.TrailStd),
		slog.Float64("trail_max", s.TrailMax),
		slog.Float64("trail_p50", s.TrailP50),
		slog.Float64("trail_p90", s.TrailP90),
		slog.Float64("coverage", s.Coverage),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndFrame,
		"agents", s.Agents,
		"wraps", s.Wraps,
		"wrap_rate", s.WrapRate,
		"trail_total", s.TrailTotal,
		"trail_mean", s.TrailMean,
		"trail_std", s.TrailStd,
		"trail_max", s.TrailMax,
		"trail_p90", s.TrailP90,
		"coverage", s.Coverage,
		"move_speed", s.MoveSpeed,
		"sensor_distance", s.SensorDistance,
		"turning_speed", s.TurningSpeed,
	)
}
