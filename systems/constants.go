// Package systems implements the slime mold simulation core: the agent
// population, the trail map, and the two per-frame kernels that advance them.
package systems

import (
	"errors"
	"fmt"
)

// ErrInvalidConstants is returned when grid dimensions or population size are unusable.
var ErrInvalidConstants = errors.New("invalid simulation constants")

// Constants are the grid dimensions and population size, fixed for the
// lifetime of a simulation. They size every buffer and define the wrap-around.
type Constants struct {
	Width      int
	Height     int
	AgentCount int
}

// Validate reports whether the constants can back a simulation.
func (c Constants) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConstants, c.Width, c.Height)
	}
	if c.AgentCount < 0 {
		return fmt.Errorf("%w: agent count %d", ErrInvalidConstants, c.AgentCount)
	}
	return nil
}

// Cells returns the number of trail map cells.
func (c Constants) Cells() int {
	return c.Width * c.Height
}

// MaxSensorDistance is the upper bound for Params.SensorDistance.
func (c Constants) MaxSensorDistance() float32 {
	return float32(min(c.Width, c.Height))
}
