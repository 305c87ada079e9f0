package tilemap

import (
	"errors"

	"github.com/ironvale/sim/internal/core/event"
)

// ErrOutOfBounds is returned for coordinate queries outside the grid.
// Coordinates never wrap or clamp silently.
var ErrOutOfBounds = errors.New("tilemap: coordinate out of bounds")

// Tile is one terrain cell.
type Tile struct {
	Walkable  bool
	Cost      float64 // movement cost multiplier, >= 1 for walkable tiles
	Elevation float64
	Opaque    bool // blocks line of sight
}

// Point is a grid coordinate.
type Point struct {
	X, Y int
}

// Grid is a fixed-size 2D tile array. Terrain is immutable during normal
// play except through SetTile, which bumps the revision counter and
// publishes TileChanged so cached path and visibility results can be
// invalidated.
type Grid struct {
	width    int
	height   int
	tiles    []Tile // row-major, [y*width+x]
	bus      *event.Bus
	revision uint64
}

func New(width, height int, fill Tile) *Grid {
	g := &Grid{
		width:  width,
		height: height,
		tiles:  make([]Tile, width*height),
	}
	for i := range g.tiles {
		g.tiles[i] = fill
	}
	return g
}

// AttachBus wires terrain-change notifications. Optional: a grid without a
// bus simply mutates silently (used by tests and snapshot restore).
func (g *Grid) AttachBus(b *event.Bus) { g.bus = b }

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// Revision increments on every terrain mutation. Consumers stamp derived
// results (paths, visibility) with the revision they were computed at.
func (g *Grid) Revision() uint64 { return g.revision }

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

func (g *Grid) At(x, y int) (Tile, error) {
	if !g.InBounds(x, y) {
		return Tile{}, ErrOutOfBounds
	}
	return g.tiles[y*g.width+x], nil
}

// SetTile replaces the tile at (x,y), bumps the revision, and publishes
// TileChanged. Used for explicit terrain modification (destructible walls).
func (g *Grid) SetTile(x, y int, t Tile) error {
	if !g.InBounds(x, y) {
		return ErrOutOfBounds
	}
	g.tiles[y*g.width+x] = t
	g.revision++
	if g.bus != nil {
		event.Publish(g.bus, event.TileChanged{X: x, Y: y})
	}
	return nil
}

// Walkable reports whether (x,y) can be stood on. Out of bounds is simply
// not walkable; callers needing the distinction use At.
func (g *Grid) Walkable(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	return g.tiles[y*g.width+x].Walkable
}

// Opaque reports whether (x,y) blocks sight. Out of bounds blocks.
func (g *Grid) Opaque(x, y int) bool {
	if !g.InBounds(x, y) {
		return true
	}
	return g.tiles[y*g.width+x].Opaque
}

// CostAt returns the movement cost of a tile, or +Inf semantics via ok=false
// for unwalkable or out-of-bounds tiles.
func (g *Grid) CostAt(x, y int) (float64, bool) {
	if !g.InBounds(x, y) {
		return 0, false
	}
	t := g.tiles[y*g.width+x]
	if !t.Walkable {
		return 0, false
	}
	if t.Cost < 1 {
		return 1, true
	}
	return t.Cost, true
}

// Elevation returns the tile elevation; out of bounds yields 0.
func (g *Grid) Elevation(x, y int) float64 {
	if !g.InBounds(x, y) {
		return 0
	}
	return g.tiles[y*g.width+x].Elevation
}

// Tiles exposes the raw tile array for snapshotting. The caller must treat
// it as read-only.
func (g *Grid) Tiles() []Tile { return g.tiles }

// RestoreTiles replaces the whole tile array (snapshot restore). The
// revision bumps once so any cached derivations are invalidated.
func (g *Grid) RestoreTiles(width, height int, tiles []Tile) error {
	if len(tiles) != width*height {
		return errors.New("tilemap: tile array does not match dimensions")
	}
	g.width = width
	g.height = height
	g.tiles = tiles
	g.revision++
	return nil
}
