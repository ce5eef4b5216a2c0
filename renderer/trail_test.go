package renderer

import (
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/pthm-cable/slime/components"
)

func TestTileGrid(t *testing.T) {
	tiles := TileGrid(1)
	if len(tiles) != 9 {
		t.Fatalf("expected 9 tiles, got %d", len(tiles))
	}
	if tiles[0] != (components.Tile{}) {
		t.Errorf("expected center tile first, got %+v", tiles[0])
	}
	seen := make(map[components.Tile]bool)
	for _, tile := range tiles {
		if tile.TX < -1 || tile.TX > 1 || tile.TY < -1 || tile.TY > 1 {
			t.Errorf("tile out of range: %+v", tile)
		}
		if seen[tile] {
			t.Errorf("duplicate tile %+v", tile)
		}
		seen[tile] = true
	}

	if got := len(TileGrid(0)); got != 1 {
		t.Errorf("expected a single tile for n=0, got %d", got)
	}
	if got := len(TileGrid(-2)); got != 1 {
		t.Errorf("expected negative n treated as 0, got %d tiles", got)
	}
}

func TestTintColorClamps(t *testing.T) {
	got := TintColor([3]int{-5, 128, 999})
	want := rl.Color{R: 0, G: 128, B: 255, A: 255}
	if got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}
