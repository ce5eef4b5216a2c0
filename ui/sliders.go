package ui

import (
	"fmt"
	"math"

	"github.com/pthm-cable/slime/systems"
)

// slider describes one editable parameter.
type slider struct {
	Label    string
	Min, Max float32
	Format   string
	Integer  bool
	get      func(*systems.Params) float32
	set      func(*systems.Params, float32)
}

// paramSliders returns the slider set for a grid with constants c. Ranges
// stay inside the valid parameter ranges so a dragged value never needs
// more than rounding.
func paramSliders(c systems.Constants) []slider {
	maxDist := min(c.MaxSensorDistance(), 100)
	return []slider{
		{
			Label: "Move speed", Min: 0, Max: 5, Format: "%.2f",
			get: func(p *systems.Params) float32 { return p.MoveSpeed },
			set: func(p *systems.Params, v float32) { p.MoveSpeed = v },
		},
		{
			Label: "Fade speed", Min: 0, Max: 0.05, Format: "%.4f",
			get: func(p *systems.Params) float32 { return p.FadeSpeed },
			set: func(p *systems.Params, v float32) { p.FadeSpeed = v },
		},
		{
			Label: "Diffuse speed", Min: 0, Max: 1, Format: "%.3f",
			get: func(p *systems.Params) float32 { return p.DiffuseSpeed },
			set: func(p *systems.Params, v float32) { p.DiffuseSpeed = v },
		},
		{
			Label: "Sensor size", Min: 1, Max: 5, Format: "%.0f", Integer: true,
			get: func(p *systems.Params) float32 { return float32(p.SensorSize) },
			set: func(p *systems.Params, v float32) { p.SensorSize = int(math.Round(float64(v))) },
		},
		{
			Label: "Sensor distance", Min: 1, Max: maxDist, Format: "%.1f",
			get: func(p *systems.Params) float32 { return p.SensorDistance },
			set: func(p *systems.Params, v float32) { p.SensorDistance = v },
		},
		{
			Label: "Turning speed", Min: 0, Max: math.Pi / 2, Format: "%.3f",
			get: func(p *systems.Params) float32 { return p.TurningSpeed },
			set: func(p *systems.Params, v float32) { p.TurningSpeed = v },
		},
	}
}

// valueText formats the slider's current value.
func (s slider) valueText(p *systems.Params) string {
	return fmt.Sprintf(s.Format, s.get(p))
}

// submit clamps p into the valid ranges and stores it. The store keeps its
// previous value if the record is still rejected.
func submit(store *systems.ParamStore, p systems.Params) error {
	return store.Set(p.Clamp(store.Constants()))
}
