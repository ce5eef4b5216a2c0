// Package camera provides a 2D camera for viewing the toroidal trail map.
package camera

import "math"

// Zoom limits. Zoom is screen pixels per grid cell; the bounds correspond to
// showing at most 3 cells per pixel and at least 0.01.
const (
	DefaultMinZoom = 1.0 / 3
	DefaultMaxZoom = 100

	// wheelStep is the fractional change in view scale per wheel notch.
	wheelStep = 0.2
)

// Camera controls the viewport into the simulation grid.
// Supports drag pan and wheel zoom with toroidal wrapping.
type Camera struct {
	// Position is the camera center in grid coordinates
	X, Y float32

	// Zoom level (1.0 = one screen pixel per cell)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Grid dimensions (for toroidal wrapping)
	WorldW, WorldH float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera centered on the grid with 1:1 zoom.
func New(viewportW, viewportH, worldW, worldH float32) *Camera {
	return &Camera{
		X:         worldW / 2,
		Y:         worldH / 2,
		Zoom:      1.0,
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldH:    worldH,
		MinZoom:   DefaultMinZoom,
		MaxZoom:   DefaultMaxZoom,
	}
}

// WorldToScreen converts grid coordinates to screen coordinates, taking the
// shortest way around the torus.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	dx := toroidalDelta(wx, c.X, c.WorldW)
	dy := toroidalDelta(wy, c.Y, c.WorldH)

	sx = c.ViewportW/2 + dx*c.Zoom
	sy = c.ViewportH/2 + dy*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to grid coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	dx := (sx - c.ViewportW/2) / c.Zoom
	dy := (sy - c.ViewportH/2) / c.Zoom

	wx = mod(c.X+dx, c.WorldW)
	wy = mod(c.Y+dy, c.WorldH)
	return wx, wy
}

// TileRect returns the screen rectangle of the grid copy offset by
// (tx, ty) whole grids from the one the camera sits in. No wrapping is
// applied, so tiles around (0, 0) cover the view of the torus.
func (c *Camera) TileRect(tx, ty int) (x, y, w, h float32) {
	w = c.WorldW * c.Zoom
	h = c.WorldH * c.Zoom
	x = c.ViewportW/2 + (float32(tx)*c.WorldW-c.X)*c.Zoom
	y = c.ViewportH/2 + (float32(ty)*c.WorldH-c.Y)*c.Zoom
	return x, y, w, h
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Pan moves the camera by the given delta in screen pixels.
// Automatically wraps around grid boundaries.
func (c *Camera) Pan(dx, dy float32) {
	c.X = mod(c.X+dx/c.Zoom, c.WorldW)
	c.Y = mod(c.Y+dy/c.Zoom, c.WorldH)
}

// Drag moves the view with a mouse drag of (dx, dy) screen pixels: the
// content follows the cursor, so the camera moves the opposite way.
func (c *Camera) Drag(dx, dy float32) {
	c.Pan(-dx, -dy)
}

// Wheel applies a mouse wheel movement. Each notch up shrinks the view
// scale by 20%, each notch down grows it.
func (c *Camera) Wheel(move float32) {
	if move == 0 {
		return
	}
	scale := 1 / c.Zoom * (1 - wheelStep*move)
	if scale <= 0 {
		c.SetZoom(c.MaxZoom)
		return
	}
	c.SetZoom(1 / scale)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.X = c.WorldW / 2
	c.Y = c.WorldH / 2
	c.Zoom = 1.0
}

// toroidalDelta computes the shortest signed distance from 'from' to 'to'
// in a toroidal space of the given size.
func toroidalDelta(to, from, size float32) float32 {
	d := to - from
	if d > size/2 {
		d -= size
	} else if d < -size/2 {
		d += size
	}
	return d
}

// mod computes the positive modulo (Go's % can return negative).
func mod(x, m float32) float32 {
	r := float32(math.Mod(float64(x), float64(m)))
	if r < 0 {
		r += m
	}
	if r >= m {
		r = 0
	}
	return r
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
