package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/pthm-cable/slime/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title          string
	State          string
	Width, Height  int
	Agents         int
	Frames         uint64
	Wraps          uint64
	StepsPerUpdate int
	Zoom           float32
	FPS            int32
	Paused         bool
	Err            error
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Grid: %dx%d | Agents: %d | Zoom: %.2fx", data.Width, data.Height, data.Agents, data.Zoom),
		10, 35, 16, rl.LightGray,
	)

	rl.DrawText(
		fmt.Sprintf("Frame: %d | Wraps: %d | Steps: %dx | FPS: %d", data.Frames, data.Wraps, data.StepsPerUpdate, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	status := "Running"
	switch {
	case data.Err != nil:
		rl.DrawText(data.Err.Error(), 10, 75, 16, h.renderer.Theme.ErrorColor)
		return
	case data.State != "ready":
		status = "Loading..."
	case data.Paused:
		status = "PAUSED"
	}
	rl.DrawText(status, 10, 75, 16, rl.Yellow)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenWidth, screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders per-phase frame timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Frame Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(
		fmt.Sprintf("Avg: %s (%.0f frames/s)", stats.AvgFrameDuration.Round(time.Microsecond), stats.FramesPerSecond),
		x, y, 14, rl.Yellow,
	)
	y += 16

	for _, name := range telemetry.Phases() {
		avg := stats.PhaseAvg[name]
		pct := stats.PhasePct[name]

		color := rl.LightGray
		if pct > 60 {
			color = rl.Red
		} else if pct > 30 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", name, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
