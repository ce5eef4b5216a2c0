package systems

import "math"

// modInt returns a mod m in [0, m).
func modInt(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// wrapCoord wraps v onto the torus [0, extent).
func wrapCoord(v, extent float32) float32 {
	if v >= 0 && v < extent {
		return v
	}
	v = float32(math.Mod(float64(v), float64(extent)))
	if v < 0 {
		v += extent
	}
	// -epsilon + extent can round up to extent in float32
	if v >= extent {
		v = 0
	}
	return v
}

// normalizeAngle wraps angle to [-Pi, Pi].
func normalizeAngle(angle float32) float32 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

func isFinite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Fast trig for the agent kernel. Avoids float32->float64 round trips
// on the hot path; accurate to ~0.001.

// fastSin approximates sin(x) using a corrected parabola.
func fastSin(x float32) float32 {
	x = normalizeAngle(x)
	const pi = math.Pi
	const pi2 = pi * pi
	ax := x
	if ax < 0 {
		ax = -ax
	}
	y := 4 * x * (pi - ax) / pi2
	ay := y
	if ay < 0 {
		ay = -ay
	}
	return 0.225*(y*ay-y) + y
}

// fastCos approximates cos(x) using fastSin.
func fastCos(x float32) float32 {
	return fastSin(x + math.Pi/2)
}
