package systems

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/ojrac/opensimplex-go"
)

// SeedMode selects the initial spatial distribution of agents.
type SeedMode string

const (
	SeedDisk   SeedMode = "disk"   // uniform over a centered disk, facing the center
	SeedRandom SeedMode = "random" // uniform over the grid, random heading
	SeedCenter SeedMode = "center" // all at the grid center, random heading
	SeedNoise  SeedMode = "noise"  // density follows simplex noise, random heading
)

// noiseAttempts bounds rejection sampling per agent in noise mode.
const noiseAttempts = 32

// SeedSpec describes how to place the initial population.
type SeedSpec struct {
	Mode       SeedMode
	Radius     float32 // disk radius; 0 = half the smaller grid side
	Seed       int64
	NoiseScale float64 // noise feature size in cells
}

// SeedAgents places every agent in store according to spec.
func SeedAgents(store *AgentStore, c Constants, spec SeedSpec) error {
	rng := rand.New(rand.NewSource(spec.Seed))
	w, h := float32(c.Width), float32(c.Height)
	cx, cy := w/2, h/2

	switch spec.Mode {
	case SeedDisk, "":
		radius := spec.Radius
		if radius <= 0 {
			radius = min(w, h) / 2
		}
		for i := range store.Agents {
			// sqrt keeps the density uniform over the disk area
			r := radius * float32(math.Sqrt(rng.Float64()))
			theta := rng.Float64() * 2 * math.Pi
			x := cx + r*float32(math.Cos(theta))
			y := cy + r*float32(math.Sin(theta))
			store.Agents[i] = Agent{
				X:       wrapCoord(x, w),
				Y:       wrapCoord(y, h),
				Heading: float32(math.Atan2(float64(cy-y), float64(cx-x))),
			}
		}

	case SeedRandom:
		for i := range store.Agents {
			store.Agents[i] = Agent{
				X:       wrapCoord(rng.Float32()*w, w),
				Y:       wrapCoord(rng.Float32()*h, h),
				Heading: randomHeading(rng),
			}
		}

	case SeedCenter:
		for i := range store.Agents {
			store.Agents[i] = Agent{X: cx, Y: cy, Heading: randomHeading(rng)}
		}

	case SeedNoise:
		scale := spec.NoiseScale
		if scale <= 0 {
			scale = float64(min(c.Width, c.Height)) / 8
		}
		noise := opensimplex.NewNormalized(spec.Seed)
		for i := range store.Agents {
			var x, y float32
			for try := 0; try < noiseAttempts; try++ {
				x = wrapCoord(rng.Float32()*w, w)
				y = wrapCoord(rng.Float32()*h, h)
				if rng.Float64() < noise.Eval2(float64(x)/scale, float64(y)/scale) {
					break
				}
			}
			store.Agents[i] = Agent{X: x, Y: y, Heading: randomHeading(rng)}
		}

	default:
		return fmt.Errorf("unknown seed mode %q", spec.Mode)
	}
	return nil
}

func randomHeading(rng *rand.Rand) float32 {
	return float32(rng.Float64()*2*math.Pi - math.Pi)
}
