package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/pthm-cable/slime/camera"
	"github.com/pthm-cable/slime/components"
	"github.com/pthm-cable/slime/systems"
)

// TrailRenderer uploads the trail map to a texture and draws it as a grid
// of tiled copies, so the torus reads as continuous while panning.
type TrailRenderer struct {
	tex         rl.Texture2D
	pixels      []color.RGBA
	texW, texH  int
	initialized bool
}

// NewTrailRenderer creates a trail renderer. Init must run after the
// raylib window exists.
func NewTrailRenderer() *TrailRenderer {
	return &TrailRenderer{}
}

// Init allocates the texture for a gridW x gridH trail map.
func (r *TrailRenderer) Init(gridW, gridH int) {
	if r.initialized {
		return
	}
	r.texW = gridW
	r.texH = gridH
	r.pixels = make([]color.RGBA, gridW*gridH)

	img := rl.GenImageColor(gridW, gridH, rl.Black)
	r.tex = rl.LoadTextureFromImage(img)
	rl.SetTextureFilter(r.tex, rl.FilterPoint)
	rl.UnloadImage(img)

	r.initialized = true
}

// Update converts the current trail buffer to gray pixels and uploads it.
func (r *TrailRenderer) Update(tm *systems.TrailMap) {
	if !r.initialized {
		r.Init(tm.W, tm.H)
	}
	if tm.W != r.texW || tm.H != r.texH {
		return
	}
	tm.WriteRGBA(r.pixels)
	rl.UpdateTexture(r.tex, r.pixels)
}

// Draw renders the texture once per tile. Tiles whose rectangle misses the
// viewport are skipped.
func (r *TrailRenderer) Draw(cam *camera.Camera, tiles []components.Tile, tint rl.Color) {
	if !r.initialized {
		return
	}
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(r.texW), Height: float32(r.texH)}
	for _, t := range tiles {
		x, y, w, h := cam.TileRect(t.TX, t.TY)
		if x+w < 0 || y+h < 0 || x > cam.ViewportW || y > cam.ViewportH {
			continue
		}
		dst := rl.Rectangle{X: x, Y: y, Width: w, Height: h}
		rl.DrawTexturePro(r.tex, src, dst, rl.Vector2{}, 0, tint)
	}
}

// Unload frees GPU resources.
func (r *TrailRenderer) Unload() {
	if !r.initialized {
		return
	}
	rl.UnloadTexture(r.tex)
	r.initialized = false
}

// TileGrid returns the (2n+1)^2 tile offsets from -n to n on each axis,
// center first.
func TileGrid(n int) []components.Tile {
	if n < 0 {
		n = 0
	}
	tiles := make([]components.Tile, 0, (2*n+1)*(2*n+1))
	tiles = append(tiles, components.Tile{})
	for ty := -n; ty <= n; ty++ {
		for tx := -n; tx <= n; tx++ {
			if tx == 0 && ty == 0 {
				continue
			}
			tiles = append(tiles, components.Tile{TX: tx, TY: ty})
		}
	}
	return tiles
}

// TintColor converts an RGB triple to an opaque color, clamping each channel.
func TintColor(rgb [3]int) rl.Color {
	ch := func(v int) uint8 {
		return uint8(max(0, min(255, v)))
	}
	return rl.Color{R: ch(rgb[0]), G: ch(rgb[1]), B: ch(rgb[2]), A: 255}
}
