// Package components defines ECS components for the host world.
package components

// Tile is one toroidal copy of the trail texture on screen. (0, 0) is the
// copy under the camera; neighbours are offset by whole grid widths.
type Tile struct {
	TX, TY int
}
