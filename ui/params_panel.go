package ui

import (
	"fmt"
	"log/slog"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/pthm-cable/slime/systems"
)

// ParamsPanel edits the live simulation parameters with sliders. Each
// change is clamped and published to the store; the simulation picks it up
// on its next frame.
type ParamsPanel struct {
	renderer *Renderer
	store    *systems.ParamStore
	defaults systems.Params
	sliders  []slider
	x, y     int32
	width    int32
	visible  bool
	lastErr  error
}

// NewParamsPanel creates a panel bound to store. defaults is what the
// reset button restores.
func NewParamsPanel(store *systems.ParamStore, defaults systems.Params, x, y int32) *ParamsPanel {
	return &ParamsPanel{
		renderer: NewRenderer(),
		store:    store,
		defaults: defaults,
		sliders:  paramSliders(store.Constants()),
		x:        x,
		y:        y,
		width:    320,
		visible:  true,
	}
}

// Toggle shows or hides the panel.
func (pp *ParamsPanel) Toggle() { pp.visible = !pp.visible }

// Visible reports whether the panel is shown.
func (pp *ParamsPanel) Visible() bool { return pp.visible }

// SetPosition updates the panel position.
func (pp *ParamsPanel) SetPosition(x, y int32) {
	pp.x = x
	pp.y = y
}

// Contains reports whether a screen point lies over the panel, so the
// caller can keep mouse drags from also panning the camera.
func (pp *ParamsPanel) Contains(x, y float32) bool {
	if !pp.visible {
		return false
	}
	return x >= float32(pp.x) && x < float32(pp.x+pp.width) &&
		y >= float32(pp.y) && y < float32(pp.y+pp.height())
}

func (pp *ParamsPanel) height() int32 {
	t := pp.renderer.Theme
	return t.Padding*2 + t.LineHeight + 4 + int32(len(pp.sliders))*(t.LineHeight+t.SliderHeight+6) + 30 + t.LineHeight
}

// Draw renders the panel and applies any slider movement.
func (pp *ParamsPanel) Draw() {
	if !pp.visible {
		return
	}
	r := pp.renderer
	t := r.Theme
	r.DrawPanel(pp.x, pp.y, pp.width, pp.height())

	x := pp.x + t.Padding
	y := r.DrawSectionHeader(x, pp.y+t.Padding, "Parameters [P]")
	sliderW := float32(pp.width - 2*t.Padding - 60)

	current := pp.store.Params()
	edited := current
	for _, s := range pp.sliders {
		rl.DrawText(s.Label, x, y, t.FontSize, t.LabelColor)
		y += t.LineHeight

		v := gui.SliderBar(
			rl.Rectangle{X: float32(x), Y: float32(y), Width: sliderW, Height: float32(t.SliderHeight)},
			"", "",
			s.get(&current), s.Min, s.Max,
		)
		rl.DrawText(s.valueText(&current), x+int32(sliderW)+8, y+2, t.FontSize, t.ValueColor)
		if v != s.get(&current) {
			s.set(&edited, v)
		}
		y += t.SliderHeight + 6
	}

	if gui.Button(rl.Rectangle{X: float32(x), Y: float32(y), Width: 100, Height: 24}, "Reset") {
		edited = pp.defaults
	}
	y += 30

	if edited != current {
		pp.apply(edited)
	}
	if pp.lastErr != nil {
		rl.DrawText(pp.lastErr.Error(), x, y, t.FontSize, t.ErrorColor)
	}
}

func (pp *ParamsPanel) apply(p systems.Params) {
	if err := submit(pp.store, p); err != nil {
		pp.lastErr = fmt.Errorf("rejected: %w", err)
		slog.Warn("parameter update rejected", "error", err)
		return
	}
	pp.lastErr = nil
	slog.Debug("parameters updated", "params", pp.store.Params())
}
