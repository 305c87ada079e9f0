package world

import (
	"math"
	"sort"

	"github.com/ironvale/sim/internal/core/ecs"
	"github.com/ironvale/sim/internal/core/event"
	"github.com/ironvale/sim/internal/tilemap"
)

// SpatialGrid is a uniform-cell index over entity positions. Cell size is a
// fixed constant chosen relative to typical query radius and entity density.
//
// The grid holds weak references only (entity ID + last known position) and
// is mutated exclusively through lifecycle events on the bus; after any
// sequence of move/despawn events has been processed, membership exactly
// matches each live entity's current position. Accessed only from the
// simulation goroutine, so no locks.
type SpatialGrid struct {
	cellSize  int
	cells     map[cellKey]map[ecs.EntityID]struct{}
	positions map[ecs.EntityID]tilemap.Point
}

type cellKey struct {
	cx, cy int
}

func NewSpatialGrid(cellSize int) *SpatialGrid {
	if cellSize < 1 {
		cellSize = 8
	}
	return &SpatialGrid{
		cellSize:  cellSize,
		cells:     make(map[cellKey]map[ecs.EntityID]struct{}),
		positions: make(map[ecs.EntityID]tilemap.Point),
	}
}

// Bind subscribes the grid to the position-change notifications that drive
// all membership updates. This is the only mutation path.
func (g *SpatialGrid) Bind(bus *event.Bus) {
	event.Subscribe(bus, func(ev event.EntitySpawned) {
		g.add(ev.Entity, ev.X, ev.Y)
	})
	event.Subscribe(bus, func(ev event.EntityMoved) {
		g.move(ev.Entity, ev.ToX, ev.ToY)
	})
	event.Subscribe(bus, func(ev event.EntityDestroyed) {
		g.remove(ev.Entity)
	})
}

func toCell(v, size int) int {
	if v < 0 {
		return (v - size + 1) / size
	}
	return v / size
}

func (g *SpatialGrid) keyFor(x, y int) cellKey {
	return cellKey{cx: toCell(x, g.cellSize), cy: toCell(y, g.cellSize)}
}

func (g *SpatialGrid) add(id ecs.EntityID, x, y int) {
	if _, ok := g.positions[id]; ok {
		g.remove(id) // re-spawn with a tracked ID: reconcile first
	}
	k := g.keyFor(x, y)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
	g.positions[id] = tilemap.Point{X: x, Y: y}
}

func (g *SpatialGrid) remove(id ecs.EntityID) {
	pos, ok := g.positions[id]
	if !ok {
		return
	}
	k := g.keyFor(pos.X, pos.Y)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
	delete(g.positions, id)
}

func (g *SpatialGrid) move(id ecs.EntityID, x, y int) {
	pos, ok := g.positions[id]
	if !ok {
		g.add(id, x, y)
		return
	}
	oldK := g.keyFor(pos.X, pos.Y)
	newK := g.keyFor(x, y)
	if oldK != newK {
		if cell := g.cells[oldK]; cell != nil {
			delete(cell, id)
			if len(cell) == 0 {
				delete(g.cells, oldK)
			}
		}
		cell := g.cells[newK]
		if cell == nil {
			cell = make(map[ecs.EntityID]struct{})
			g.cells[newK] = cell
		}
		cell[id] = struct{}{}
	}
	g.positions[id] = tilemap.Point{X: x, Y: y}
}

// Len returns the number of tracked entities.
func (g *SpatialGrid) Len() int { return len(g.positions) }

// PositionOf returns the last known position of a tracked entity.
func (g *SpatialGrid) PositionOf(id ecs.EntityID) (tilemap.Point, bool) {
	p, ok := g.positions[id]
	return p, ok
}

// Query returns all entities within radius of (x,y), sorted by ID so
// results are deterministic. Only cells intersecting the radius' bounding
// box are examined, then candidates are filtered by exact distance.
func (g *SpatialGrid) Query(x, y int, radius float64) []ecs.EntityID {
	if radius < 0 {
		return nil
	}
	r := int(math.Ceil(radius))
	minCx := toCell(x-r, g.cellSize)
	maxCx := toCell(x+r, g.cellSize)
	minCy := toCell(y-r, g.cellSize)
	maxCy := toCell(y+r, g.cellSize)

	r2 := radius * radius
	var result []ecs.EntityID
	for cy := minCy; cy <= maxCy; cy++ {
		for cx := minCx; cx <= maxCx; cx++ {
			for id := range g.cells[cellKey{cx: cx, cy: cy}] {
				p := g.positions[id]
				dx := float64(p.X - x)
				dy := float64(p.Y - y)
				if dx*dx+dy*dy <= r2 {
					result = append(result, id)
				}
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// At returns the entities standing exactly on (x,y), sorted by ID.
func (g *SpatialGrid) At(x, y int) []ecs.EntityID {
	var result []ecs.EntityID
	for id := range g.cells[g.keyFor(x, y)] {
		if p := g.positions[id]; p.X == x && p.Y == y {
			result = append(result, id)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// InCell returns all entities in one grid cell, sorted by ID.
func (g *SpatialGrid) InCell(cx, cy int) []ecs.EntityID {
	cell := g.cells[cellKey{cx: cx, cy: cy}]
	result := make([]ecs.EntityID, 0, len(cell))
	for id := range cell {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Nearest returns the closest entity to (x,y) satisfying pred, scanning
// cell rings outward so dense worlds do not degrade to a full scan.
// Distance ties resolve to the lowest entity ID.
func (g *SpatialGrid) Nearest(x, y int, pred func(ecs.EntityID) bool) (ecs.EntityID, bool) {
	if len(g.positions) == 0 {
		return 0, false
	}

	center := g.keyFor(x, y)
	maxRing := g.maxRingFrom(center)

	var best ecs.EntityID
	bestDist := math.Inf(1)
	found := false

	for ring := 0; ring <= maxRing; ring++ {
		g.eachRingCell(center, ring, func(k cellKey) {
			for id := range g.cells[k] {
				if pred != nil && !pred(id) {
					continue
				}
				p := g.positions[id]
				dx := float64(p.X - x)
				dy := float64(p.Y - y)
				d := dx*dx + dy*dy
				if !found || d < bestDist || (d == bestDist && id < best) {
					best, bestDist, found = id, d, true
				}
			}
		})
		// Anything in ring+1 or farther is at least ring*cellSize away.
		if found {
			safe := float64(ring * g.cellSize)
			if safe*safe >= bestDist {
				break
			}
		}
	}
	return best, found
}

func (g *SpatialGrid) maxRingFrom(center cellKey) int {
	max := 0
	for k := range g.cells {
		d := abs(k.cx - center.cx)
		if dy := abs(k.cy - center.cy); dy > d {
			d = dy
		}
		if d > max {
			max = d
		}
	}
	return max
}

// eachRingCell visits the cells at exactly chebyshev distance ring from
// center, in a fixed scan order.
func (g *SpatialGrid) eachRingCell(center cellKey, ring int, fn func(cellKey)) {
	if ring == 0 {
		fn(center)
		return
	}
	for cx := center.cx - ring; cx <= center.cx+ring; cx++ {
		fn(cellKey{cx: cx, cy: center.cy - ring})
		fn(cellKey{cx: cx, cy: center.cy + ring})
	}
	for cy := center.cy - ring + 1; cy <= center.cy+ring-1; cy++ {
		fn(cellKey{cx: center.cx - ring, cy: cy})
		fn(cellKey{cx: center.cx + ring, cy: cy})
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
