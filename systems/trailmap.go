package systems

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/blas/blas32"
)

// TrailMap is the toroidal intensity grid agents sense and deposit into.
// Cells are row-major (i = y*W + x) and stay within [0, MaxIntensity].
type TrailMap struct {
	W, H int

	cells []float32
	// Diffusion destination for the double-buffered pass
	back []float32

	maxIntensity float32
}

// NewTrailMap allocates a zeroed trail map.
func NewTrailMap(w, h int, maxIntensity float32) *TrailMap {
	if maxIntensity <= 0 {
		maxIntensity = 1
	}
	return &TrailMap{
		W:            w,
		H:            h,
		cells:        make([]float32, w*h),
		back:         make([]float32, w*h),
		maxIntensity: maxIntensity,
	}
}

// Cells returns the current intensity grid. Callers must treat it as read-only;
// the slice is only stable between frames.
func (t *TrailMap) Cells() []float32 { return t.cells }

// GridSize returns the grid dimensions.
func (t *TrailMap) GridSize() (int, int) { return t.W, t.H }

// MaxIntensity returns the per-cell ceiling.
func (t *TrailMap) MaxIntensity() float32 { return t.maxIntensity }

// Index returns the cell index for (x, y), wrapping both coordinates.
func (t *TrailMap) Index(x, y int) int {
	return modInt(y, t.H)*t.W + modInt(x, t.W)
}

// At returns the intensity at (x, y) with wrap-around.
func (t *TrailMap) At(x, y int) float32 {
	return t.cells[t.Index(x, y)]
}

// Set stores v at (x, y), clamped to [0, MaxIntensity].
func (t *TrailMap) Set(x, y int, v float32) {
	t.cells[t.Index(x, y)] = t.clamp(v)
}

// Deposit adds amount at (x, y), saturating at MaxIntensity.
// Called concurrently by the agent kernel without synchronization; a lost
// update between two agents on the same cell is accepted.
func (t *TrailMap) Deposit(x, y int, amount float32) {
	i := t.Index(x, y)
	v := t.cells[i] + amount
	if v > t.maxIntensity {
		v = t.maxIntensity
	}
	t.cells[i] = v
}

// SampleWindow sums the (2*size+1)^2 cells centered on (cx, cy), wrapping at edges.
func (t *TrailMap) SampleWindow(cx, cy, size int) float32 {
	var sum float32
	for dy := -size; dy <= size; dy++ {
		row := modInt(cy+dy, t.H) * t.W
		for dx := -size; dx <= size; dx++ {
			sum += t.cells[row+modInt(cx+dx, t.W)]
		}
	}
	return sum
}

// Total returns the summed intensity of the grid.
func (t *TrailMap) Total() float32 {
	// Cells are non-negative, so the absolute sum is the sum.
	return blas32.Asum(blas32.Vector{N: len(t.cells), Inc: 1, Data: t.cells})
}

// Max returns the largest cell value.
func (t *TrailMap) Max() float32 {
	var m float32
	for _, v := range t.cells {
		if v > m {
			m = v
		}
	}
	return m
}

// Load replaces the grid with cells, clamping every value. The length must
// match W*H.
func (t *TrailMap) Load(cells []float32) error {
	if len(cells) != len(t.cells) {
		return fmt.Errorf("trail map load: got %d cells, want %d", len(cells), len(t.cells))
	}
	for i, v := range cells {
		t.cells[i] = t.clamp(v)
	}
	return nil
}

// Clear zeroes both buffers.
func (t *TrailMap) Clear() {
	clear(t.cells)
	clear(t.back)
}

// Swap makes the diffusion destination the current grid.
func (t *TrailMap) Swap() {
	t.cells, t.back = t.back, t.cells
}

// WriteRGBA exports the grid as opaque gray pixels, intensity replicated into
// R, G and B. dst must hold at least W*H pixels.
func (t *TrailMap) WriteRGBA(dst []color.RGBA) {
	scale := 255 / t.maxIntensity
	for i, v := range t.cells {
		g := uint8(t.clamp(v) * scale)
		dst[i] = color.RGBA{R: g, G: g, B: g, A: 255}
	}
}

func (t *TrailMap) clamp(v float32) float32 {
	if v < 0 || v != v {
		return 0
	}
	if v > t.maxIntensity {
		return t.maxIntensity
	}
	return v
}
