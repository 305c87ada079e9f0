package system

import (
	"time"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/core/ecs"
	"github.com/ironvale/sim/internal/core/event"
	coresys "github.com/ironvale/sim/internal/core/system"
	"github.com/ironvale/sim/internal/tilemap"
	"github.com/ironvale/sim/internal/world"
)

// CollisionSystem enforces the occupancy invariant after all movement has
// settled: at most one blocking entity stands on any tile. Overlaps can
// only appear from spawns or scripted teleports, since MovementSystem never
// steps onto an occupied tile; the lowest entity ID holds the tile and each
// loser is pushed to the first free adjacent tile in heading order.
type CollisionSystem struct {
	state *world.State
}

func NewCollisionSystem(ws *world.State) *CollisionSystem {
	return &CollisionSystem{state: ws}
}

func (s *CollisionSystem) Name() string         { return "collision" }
func (s *CollisionSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *CollisionSystem) Update(_ time.Duration) {
	occupied := make(map[tilemap.Point]ecs.EntityID)
	var overlaps []ecs.EntityID

	s.state.Colliders.Each(func(id ecs.EntityID, col *component.Collider) {
		if !col.Blocking {
			return
		}
		tf, ok := s.state.Transforms.Get(id)
		if !ok {
			return
		}
		p := tilemap.Point{X: tf.X, Y: tf.Y}
		holder, taken := occupied[p]
		if !taken {
			occupied[p] = id
			return
		}
		// Lowest ID holds the tile.
		if id < holder {
			occupied[p] = id
			overlaps = append(overlaps, holder)
		} else {
			overlaps = append(overlaps, id)
		}
	})

	for _, loser := range overlaps {
		tf, ok := s.state.Transforms.Get(loser)
		if !ok {
			continue
		}
		p := tilemap.Point{X: tf.X, Y: tf.Y}
		winner := occupied[p]
		event.Publish(s.state.Bus, event.CollisionOccurred{
			Mover: loser, Blocker: winner, X: p.X, Y: p.Y,
		})
		s.pushOut(loser, tf, occupied)
	}
}

// pushOut relocates an entity to the first walkable unoccupied neighbour,
// scanning headings in fixed order so resolution is deterministic.
func (s *CollisionSystem) pushOut(id ecs.EntityID, tf *component.Transform, occupied map[tilemap.Point]ecs.EntityID) {
	for h := 0; h < 8; h++ {
		x := tf.X + component.HeadingDX[h]
		y := tf.Y + component.HeadingDY[h]
		if !s.state.Terrain.Walkable(x, y) {
			continue
		}
		if _, taken := occupied[tilemap.Point{X: x, Y: y}]; taken {
			continue
		}
		if _, blocked := s.state.BlockerAt(x, y, id); blocked {
			continue
		}
		if err := s.state.MoveEntity(id, x, y); err == nil {
			occupied[tilemap.Point{X: x, Y: y}] = id
			return
		}
	}
	// Fully boxed in: the overlap stands until the neighbourhood clears.
}
