package systems

import "gonum.org/v1/gonum/blas/blas32"

// UpdateTrail diffuses and fades rows [y0, y1) of the trail map.
//
// Each cell blends toward its wrapped 3x3 average by p.DiffuseSpeed, then
// loses p.FadeSpeed, clamped to [0, MaxIntensity]. scratch must hold at
// least W floats and must not be shared with a concurrent call.
//
// With inPlace false the pass reads the current grid and writes the back
// buffer, so every cell sees a consistent pre-pass neighborhood; the caller
// swaps once all rows are done. With inPlace true rows are rewritten in the
// live grid and a row may average neighbors already updated this pass.
func UpdateTrail(tm *TrailMap, y0, y1 int, p Params, inPlace bool, scratch []float32) {
	w, h := tm.W, tm.H
	src := tm.cells
	dst := tm.back
	if inPlace {
		dst = src
	}
	d := p.DiffuseSpeed
	fade := p.FadeSpeed
	maxI := tm.maxIntensity

	avg := scratch[:w]
	avgVec := blas32.Vector{N: w, Inc: 1, Data: avg}

	for y := y0; y < y1; y++ {
		north := modInt(y-1, h) * w
		row := y * w
		south := modInt(y+1, h) * w

		for x := 0; x < w; x++ {
			west := x - 1
			if west < 0 {
				west = w - 1
			}
			east := x + 1
			if east == w {
				east = 0
			}
			sum := src[north+west] + src[north+x] + src[north+east] +
				src[row+west] + src[row+x] + src[row+east] +
				src[south+west] + src[south+x] + src[south+east]
			avg[x] = sum / 9
		}

		// dst = (1-d)*src + d*avg
		out := blas32.Vector{N: w, Inc: 1, Data: dst[row : row+w]}
		if !inPlace {
			blas32.Copy(blas32.Vector{N: w, Inc: 1, Data: src[row : row+w]}, out)
		}
		blas32.Scal(1-d, out)
		blas32.Axpy(d, avgVec, out)

		for x, v := range out.Data {
			v -= fade
			if v < 0 {
				v = 0
			} else if v > maxI {
				v = maxI
			}
			out.Data[x] = v
		}
	}
}

// StepTrail runs UpdateTrail over the whole grid on the calling goroutine
// and swaps buffers when double-buffered.
func StepTrail(tm *TrailMap, p Params, inPlace bool) {
	UpdateTrail(tm, 0, tm.H, p, inPlace, make([]float32, tm.W))
	if !inPlace {
		tm.Swap()
	}
}
