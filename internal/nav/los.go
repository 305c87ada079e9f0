package nav

import (
	"github.com/ironvale/sim/internal/tilemap"
)

// LOS answers visibility queries by supercover raytracing over the terrain
// grid: the ray is walked cell by cell from origin to target, visiting every
// cell the segment passes through. A traversed cell with its opacity flag
// set blocks the ray; the origin cell is excluded, the target cell included.
//
// Corner rule: when the ray passes exactly through a cell corner, the walk
// traverses only the adjoining candidate cell with the lower X+Y coordinate
// sum (lower X on a tie). The choice depends only on the corner, not the
// traversal direction. Opaque endpoints are the one asymmetry: the origin
// cell never blocks its own ray, the target cell does.
//
// Elevation rule: endpoints whose elevation differs by more than the
// configured threshold cannot see each other, and any intermediate tile
// rising more than the threshold above the higher endpoint blocks like a
// wall. Both conditions are symmetric in the endpoints.
type LOS struct {
	grid      *tilemap.Grid
	threshold float64

	cache    map[losKey]bool
	cacheRev uint64
	cacheMax int
}

type losKey struct {
	a, b tilemap.Point
}

// NewLOS builds a visibility engine. cacheSize bounds the memoized result
// count; zero disables caching.
func NewLOS(g *tilemap.Grid, elevationThreshold float64, cacheSize int) *LOS {
	l := &LOS{
		grid:      g,
		threshold: elevationThreshold,
		cacheMax:  cacheSize,
	}
	if cacheSize > 0 {
		l.cache = make(map[losKey]bool, cacheSize)
		l.cacheRev = g.Revision()
	}
	return l
}

// Visible reports whether target is visible from origin. Out-of-bounds
// endpoints fail with ErrOutOfBounds.
func (l *LOS) Visible(from, to tilemap.Point) (bool, error) {
	g := l.grid
	if !g.InBounds(from.X, from.Y) || !g.InBounds(to.X, to.Y) {
		return false, tilemap.ErrOutOfBounds
	}
	if from == to {
		return true, nil
	}

	// Keys are directional: the origin cell is excluded from the trace but
	// the target cell is not, so A->B and B->A can legitimately differ when
	// exactly one endpoint is opaque. Each direction caches its own answer.
	key := losKey{a: from, b: to}
	if l.cache != nil {
		// Terrain moved on: every memoized result is suspect. Drop them all.
		if l.cacheRev != g.Revision() {
			l.cache = make(map[losKey]bool, l.cacheMax)
			l.cacheRev = g.Revision()
		} else if v, ok := l.cache[key]; ok {
			return v, nil
		}
	}

	visible := l.trace(from, to)

	if l.cache != nil {
		if len(l.cache) >= l.cacheMax {
			l.cache = make(map[losKey]bool, l.cacheMax)
		}
		l.cache[key] = visible
	}
	return visible, nil
}

func (l *LOS) trace(from, to tilemap.Point) bool {
	sightCeiling := l.grid.Elevation(from.X, from.Y)
	if e := l.grid.Elevation(to.X, to.Y); e > sightCeiling {
		sightCeiling = e
	}
	if diff := l.grid.Elevation(from.X, from.Y) - l.grid.Elevation(to.X, to.Y); diff > l.threshold || -diff > l.threshold {
		return false
	}

	blocked := func(x, y int) bool {
		if l.grid.Opaque(x, y) {
			return true
		}
		return l.grid.Elevation(x, y) > sightCeiling+l.threshold
	}

	clear := true
	supercover(from, to, func(x, y int) bool {
		if blocked(x, y) {
			clear = false
			return false
		}
		return true
	})
	return clear
}

// supercover walks every cell the segment from a to b passes through,
// excluding a, in order. visit returns false to stop early. Corner
// crossings traverse the single tie-break cell (see LOS doc).
//
// This is the classical supercover variant of Bresenham: on a diagonal
// error step it also visits the orthogonal cell the segment clips, decided
// by comparing the error sum against the doubled major delta.
func supercover(a, b tilemap.Point, visit func(x, y int) bool) {
	x, y := a.X, a.Y
	dx, dy := b.X-a.X, b.Y-a.Y
	xstep, ystep := 1, 1
	if dx < 0 {
		xstep, dx = -1, -dx
	}
	if dy < 0 {
		ystep, dy = -1, -dy
	}
	ddx, ddy := 2*dx, 2*dy

	if ddx >= ddy {
		err := dx
		errPrev := dx
		for i := 0; i < dx; i++ {
			x += xstep
			err += ddy
			if err > ddx {
				y += ystep
				err -= ddx
				switch {
				case err+errPrev < ddx: // clips the cell below the step
					if !visit(x, y-ystep) {
						return
					}
				case err+errPrev > ddx: // clips the cell beside the step
					if !visit(x-xstep, y) {
						return
					}
				default: // exact corner
					c := cornerCell(
						tilemap.Point{X: x, Y: y - ystep},
						tilemap.Point{X: x - xstep, Y: y},
					)
					if !visit(c.X, c.Y) {
						return
					}
				}
			}
			if !visit(x, y) {
				return
			}
			errPrev = err
		}
		return
	}

	err := dy
	errPrev := dy
	for i := 0; i < dy; i++ {
		y += ystep
		err += ddx
		if err > ddy {
			x += xstep
			err -= ddy
			switch {
			case err+errPrev < ddy:
				if !visit(x-xstep, y) {
					return
				}
			case err+errPrev > ddy:
				if !visit(x, y-ystep) {
					return
				}
			default:
				c := cornerCell(
					tilemap.Point{X: x - xstep, Y: y},
					tilemap.Point{X: x, Y: y - ystep},
				)
				if !visit(c.X, c.Y) {
					return
				}
			}
		}
		if !visit(x, y) {
			return
		}
		errPrev = err
	}
}

// cornerCell picks which adjoining cell a corner-crossing ray traverses:
// the lower coordinate sum, then the lower X. Direction-independent.
func cornerCell(a, b tilemap.Point) tilemap.Point {
	sa, sb := a.X+a.Y, b.X+b.Y
	if sa != sb {
		if sa < sb {
			return a
		}
		return b
	}
	if a.X <= b.X {
		return a
	}
	return b
}
