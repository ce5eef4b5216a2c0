package systems

import (
	"image/color"
	"math"
	"testing"
)

func TestTrailMapWrapIndex(t *testing.T) {
	tm := NewTrailMap(8, 6, 1)

	if tm.Index(-1, 0) != tm.Index(7, 0) {
		t.Error("x=-1 should wrap to x=7")
	}
	if tm.Index(8, 5) != tm.Index(0, 5) {
		t.Error("x=8 should wrap to x=0")
	}
	if tm.Index(3, -1) != tm.Index(3, 5) {
		t.Error("y=-1 should wrap to y=5")
	}
	if tm.Index(2, 3) != 3*8+2 {
		t.Errorf("expected row-major index 26, got %d", tm.Index(2, 3))
	}
}

func TestTrailMapDepositSaturates(t *testing.T) {
	tm := NewTrailMap(4, 4, 1)

	tm.Deposit(1, 1, 0.6)
	if got := tm.At(1, 1); got != 0.6 {
		t.Errorf("expected 0.6, got %f", got)
	}
	tm.Deposit(1, 1, 0.6)
	if got := tm.At(1, 1); got != 1 {
		t.Errorf("expected saturation at 1, got %f", got)
	}
}

func TestTrailMapSetClamps(t *testing.T) {
	tm := NewTrailMap(4, 4, 2)

	tm.Set(0, 0, -1)
	tm.Set(1, 0, 5)
	tm.Set(2, 0, float32(math.NaN()))
	if tm.At(0, 0) != 0 || tm.At(1, 0) != 2 || tm.At(2, 0) != 0 {
		t.Errorf("expected clamped values [0 2 0], got [%f %f %f]", tm.At(0, 0), tm.At(1, 0), tm.At(2, 0))
	}
}

func TestSampleWindowWraps(t *testing.T) {
	tm := NewTrailMap(10, 10, 1)
	// Corners are all neighbors of (0,0) on the torus
	tm.Set(0, 0, 0.1)
	tm.Set(9, 0, 0.2)
	tm.Set(0, 9, 0.3)
	tm.Set(9, 9, 0.4)
	tm.Set(5, 5, 1) // outside the window

	got := tm.SampleWindow(0, 0, 1)
	if math.Abs(float64(got-1.0)) > 1e-6 {
		t.Errorf("expected wrapped window sum 1.0, got %f", got)
	}

	// size 2 covers 25 cells
	tm.Clear()
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			tm.Set(x, y, 0.1)
		}
	}
	got = tm.SampleWindow(9, 9, 2)
	if math.Abs(float64(got-2.5)) > 1e-5 {
		t.Errorf("expected 25 cells * 0.1 = 2.5, got %f", got)
	}
}

func TestTrailMapTotalAndMax(t *testing.T) {
	tm := NewTrailMap(16, 16, 1)
	tm.Set(3, 3, 0.25)
	tm.Set(4, 3, 0.5)
	tm.Set(15, 15, 0.75)

	if got := tm.Total(); math.Abs(float64(got-1.5)) > 1e-6 {
		t.Errorf("expected total 1.5, got %f", got)
	}
	if got := tm.Max(); got != 0.75 {
		t.Errorf("expected max 0.75, got %f", got)
	}

	tm.Clear()
	if tm.Total() != 0 {
		t.Errorf("expected zero total after clear, got %f", tm.Total())
	}
}

func TestWriteRGBA(t *testing.T) {
	tm := NewTrailMap(3, 1, 1)
	tm.Set(0, 0, 0)
	tm.Set(1, 0, 0.5)
	tm.Set(2, 0, 1)

	px := make([]color.RGBA, 3)
	tm.WriteRGBA(px)

	if px[0] != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("expected black opaque, got %v", px[0])
	}
	if px[1].R != 127 || px[1].G != px[1].R || px[1].B != px[1].R {
		t.Errorf("expected gray 127, got %v", px[1])
	}
	if px[2] != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("expected white, got %v", px[2])
	}
}

func TestWrapCoord(t *testing.T) {
	cases := []struct{ in, extent, want float32 }{
		{5, 10, 5},
		{10, 10, 0},
		{12.5, 10, 2.5},
		{-0.5, 10, 9.5},
		{-20, 10, 0},
		{-1e-9, 10, 0},
	}
	for _, tc := range cases {
		got := wrapCoord(tc.in, tc.extent)
		if math.Abs(float64(got-tc.want)) > 1e-5 {
			t.Errorf("wrapCoord(%f, %f) = %f, want %f", tc.in, tc.extent, got, tc.want)
		}
		if got < 0 || got >= tc.extent {
			t.Errorf("wrapCoord(%f, %f) = %f outside [0, extent)", tc.in, tc.extent, got)
		}
	}
}

func TestTrailMapLoad(t *testing.T) {
	tm := NewTrailMap(2, 2, 1)
	if err := tm.Load([]float32{0.1, 2, -1, 0.5}); err != nil {
		t.Fatal(err)
	}
	want := []float32{0.1, 1, 0, 0.5}
	for i, v := range tm.Cells() {
		if v != want[i] {
			t.Errorf("cell %d: expected %f, got %f", i, want[i], v)
		}
	}
	if err := tm.Load(make([]float32, 3)); err == nil {
		t.Error("expected size mismatch to fail")
	}
}
