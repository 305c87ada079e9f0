package nav

import (
	"container/heap"
	"math"

	"github.com/ironvale/sim/internal/tilemap"
)

// Path is an ordered walk from just after start to goal inclusive. It is
// owned by the requester and stale once the terrain revision moves on;
// callers re-request rather than reusing blindly.
type Path struct {
	Points   []tilemap.Point
	Cost     float64
	Revision uint64
}

// Stale reports whether the terrain changed since the path was computed.
func (p *Path) Stale(g *tilemap.Grid) bool {
	return p.Revision != g.Revision()
}

// Options tune a single pathfinding query.
type Options struct {
	// Diagonal enables 8-connected movement with octile costs; otherwise
	// the search is 4-connected.
	Diagonal bool

	// AvoidEntities treats tiles for which Occupied returns true as
	// temporarily non-traversable for this query only. The terrain itself
	// is never mutated.
	AvoidEntities bool
	Occupied      func(x, y int) bool
}

// Neighbor probe order is fixed (heading order) so equal-cost searches
// expand identically across runs.
var (
	dirs4 = [4]tilemap.Point{
		{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0},
	}
	dirs8 = [8]tilemap.Point{
		{X: 0, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 0}, {X: 1, Y: 1},
		{X: 0, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: 0}, {X: -1, Y: -1},
	}
)

const sqrt2 = math.Sqrt2

// Pathfinder runs A* over a terrain grid.
type Pathfinder struct {
	grid *tilemap.Grid
}

func NewPathfinder(g *tilemap.Grid) *Pathfinder {
	return &Pathfinder{grid: g}
}

// FindPath searches from start to goal. The boolean result distinguishes
// the expected no-route outcome from a found path; it is never an error.
// The search is bounded: each tile enters the closed set at most once, so a
// grid with N tiles explores at most N states.
func (pf *Pathfinder) FindPath(start, goal tilemap.Point, opt Options) (Path, bool) {
	g := pf.grid
	if !g.Walkable(start.X, start.Y) || !g.Walkable(goal.X, goal.Y) {
		return Path{}, false
	}
	if opt.AvoidEntities && opt.Occupied != nil && opt.Occupied(goal.X, goal.Y) {
		return Path{}, false
	}
	if start == goal {
		return Path{Revision: g.Revision()}, true
	}

	w, h := g.Width(), g.Height()
	idx := func(p tilemap.Point) int { return p.Y*w + p.X }

	gScore := make([]float64, w*h)
	for i := range gScore {
		gScore[i] = math.Inf(1)
	}
	parent := make([]int32, w*h)
	for i := range parent {
		parent[i] = -1
	}
	closed := make([]bool, w*h)

	open := &openSet{}
	heap.Init(open)
	seq := uint64(0)

	gScore[idx(start)] = 0
	heap.Push(open, node{p: start, f: pf.heuristic(start, goal, opt.Diagonal), seq: seq})

	dirs := dirs4[:]
	if opt.Diagonal {
		dirs = dirs8[:]
	}

	for open.Len() > 0 {
		cur := heap.Pop(open).(node)
		ci := idx(cur.p)
		if closed[ci] {
			continue
		}
		closed[ci] = true

		if cur.p == goal {
			return pf.reconstruct(parent, start, goal, gScore[ci]), true
		}

		for _, d := range dirs {
			np := tilemap.Point{X: cur.p.X + d.X, Y: cur.p.Y + d.Y}
			if !g.Walkable(np.X, np.Y) {
				continue
			}
			diagonal := d.X != 0 && d.Y != 0
			// No corner cutting: a diagonal step needs both orthogonal
			// neighbours to be open.
			if diagonal && (!g.Walkable(cur.p.X+d.X, cur.p.Y) || !g.Walkable(cur.p.X, cur.p.Y+d.Y)) {
				continue
			}
			if opt.AvoidEntities && opt.Occupied != nil && opt.Occupied(np.X, np.Y) {
				continue
			}
			ni := idx(np)
			if closed[ni] {
				continue
			}

			stepCost, _ := g.CostAt(np.X, np.Y)
			if diagonal {
				stepCost *= sqrt2
			}
			tentative := gScore[ci] + stepCost
			if tentative >= gScore[ni] {
				continue
			}
			gScore[ni] = tentative
			parent[ni] = int32(ci)
			seq++
			heap.Push(open, node{
				p:   np,
				f:   tentative + pf.heuristic(np, goal, opt.Diagonal),
				seq: seq,
			})
		}
	}

	return Path{}, false
}

// heuristic is admissible and consistent for the matching connectivity:
// Manhattan for 4-connected, octile for 8-connected. Tile costs are >= 1,
// so distance alone never overestimates.
func (pf *Pathfinder) heuristic(a, b tilemap.Point, diagonal bool) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	if !diagonal {
		return dx + dy
	}
	if dx < dy {
		dx, dy = dy, dx
	}
	return dx + (sqrt2-1)*dy
}

func (pf *Pathfinder) reconstruct(parent []int32, start, goal tilemap.Point, cost float64) Path {
	w := pf.grid.Width()
	var rev []tilemap.Point
	cur := goal.Y*w + goal.X
	startIdx := start.Y*w + start.X
	for cur != startIdx {
		rev = append(rev, tilemap.Point{X: cur % w, Y: cur / w})
		cur = int(parent[cur])
	}
	points := make([]tilemap.Point, len(rev))
	for i := range rev {
		points[i] = rev[len(rev)-1-i]
	}
	return Path{Points: points, Cost: cost, Revision: pf.grid.Revision()}
}

// node is one open-set entry. seq is a monotone push counter: equal f-scores
// pop in insertion order (FIFO), which pins tie-breaking and makes searches
// reproducible.
type node struct {
	p   tilemap.Point
	f   float64
	seq uint64
}

type openSet []node

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f != s[j].f {
		return s[i].f < s[j].f
	}
	return s[i].seq < s[j].seq
}
func (s openSet) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s *openSet) Push(v any) { *s = append(*s, v.(node)) }
func (s *openSet) Pop() any {
	old := *s
	n := len(old)
	v := old[n-1]
	*s = old[:n-1]
	return v
}
