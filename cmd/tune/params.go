package main

import (
	"math"

	"github.com/pthm-cable/slime/systems"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // matches the config key under agents
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters, in Params field order.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the search space around start. maxDist caps the
// sensor distance at the grid's limit.
func NewParamVector(start systems.Params, maxDist float64) *ParamVector {
	distMax := min(maxDist, 60)
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "move_speed", Min: 0.1, Max: 3.0, Default: float64(start.MoveSpeed)},
			{Name: "fade_speed", Min: 0.0005, Max: 0.02, Default: float64(start.FadeSpeed)},
			{Name: "diffuse_speed", Min: 0.0, Max: 0.5, Default: float64(start.DiffuseSpeed)},
			{Name: "sensor_size", Min: 1, Max: 3, Default: float64(start.SensorSize)},
			{Name: "sensor_distance", Min: 2, Max: distMax, Default: math.Min(float64(start.SensorDistance), distMax)},
			{Name: "turning_speed", Min: 0.05, Max: 1.0, Default: float64(start.TurningSpeed)},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Max(spec.Min, math.Min(spec.Max, v[i]))
	}
	return clamped
}

// ToParams clamps values and converts them to a parameter record.
func (pv *ParamVector) ToParams(values []float64) systems.Params {
	c := pv.Clamp(values)
	return systems.Params{
		MoveSpeed:      float32(c[0]),
		FadeSpeed:      float32(c[1]),
		DiffuseSpeed:   float32(c[2]),
		SensorSize:     int(math.Round(c[3])),
		SensorDistance: float32(c[4]),
		TurningSpeed:   float32(c[5]),
	}
}
