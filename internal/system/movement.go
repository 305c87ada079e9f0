package system

import (
	"time"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/core/ecs"
	"github.com/ironvale/sim/internal/core/event"
	coresys "github.com/ironvale/sim/internal/core/system"
	"github.com/ironvale/sim/internal/nav"
	"github.com/ironvale/sim/internal/tilemap"
	"github.com/ironvale/sim/internal/world"
)

// MovementSystem advances entities along their paths one tile per step
// cooldown. Paths are requested lazily from the goal set by InputSystem and
// re-requested whenever the terrain revision moves past the path or an
// entity blocks the next step.
type MovementSystem struct {
	state *world.State
}

func NewMovementSystem(ws *world.State) *MovementSystem {
	return &MovementSystem{state: ws}
}

func (s *MovementSystem) Name() string         { return "movement" }
func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MovementSystem) Update(_ time.Duration) {
	s.state.Movements.Each(func(id ecs.EntityID, mv *component.Movement) {
		if !mv.HasGoal {
			return
		}
		tf, ok := s.state.Transforms.Get(id)
		if !ok {
			mv.HasGoal = false
			mv.ClearPath()
			return
		}

		if tf.X == mv.GoalX && tf.Y == mv.GoalY {
			s.finish(id, mv, tf)
			return
		}

		if mv.Arrived() || mv.PathRevision != s.state.Terrain.Revision() {
			if !s.repath(id, mv, tf) {
				return
			}
		}

		if mv.StepTimer > 0 {
			mv.StepTimer--
			return
		}

		next := mv.Path[mv.NextIndex]
		if blocker, blocked := s.state.BlockerAt(next.X, next.Y, id); blocked {
			if next.X == mv.GoalX && next.Y == mv.GoalY {
				// The goal tile itself is held by an entity; standing
				// adjacent is as close as walking gets (melee range).
				s.finish(id, mv, tf)
				return
			}
			event.Publish(s.state.Bus, event.CollisionOccurred{
				Mover: id, Blocker: blocker, X: next.X, Y: next.Y,
			})
			mv.ClearPath() // re-path next tick, routing around the blocker
			return
		}

		if err := s.state.MoveEntity(id, next.X, next.Y); err != nil {
			mv.HasGoal = false
			mv.ClearPath()
			return
		}
		mv.NextIndex++
		if mv.Speed > 1 {
			mv.StepTimer = mv.Speed - 1
		}

		if next.X == mv.GoalX && next.Y == mv.GoalY {
			tf2, _ := s.state.Transforms.Get(id)
			s.finish(id, mv, tf2)
		}
	})
}

// repath requests a fresh path toward the goal, avoiding occupied tiles.
// The goal tile itself is exempt from the occupancy filter: a goal standing
// on another entity (chasing into melee range) must still be plannable, and
// the step loop stops one tile short if it is still held on arrival.
// An unreachable goal is an expected outcome: the goal is dropped and
// PathFailed announced.
func (s *MovementSystem) repath(id ecs.EntityID, mv *component.Movement, tf *component.Transform) bool {
	occupied := s.state.OccupiedProbe(id)
	goalX, goalY := mv.GoalX, mv.GoalY
	path, ok := s.state.Pathfinder.FindPath(
		tilemap.Point{X: tf.X, Y: tf.Y},
		tilemap.Point{X: mv.GoalX, Y: mv.GoalY},
		nav.Options{
			Diagonal:      true,
			AvoidEntities: true,
			Occupied: func(x, y int) bool {
				if x == goalX && y == goalY {
					return false
				}
				return occupied(x, y)
			},
		},
	)
	if !ok {
		mv.HasGoal = false
		mv.ClearPath()
		event.Publish(s.state.Bus, event.PathFailed{
			Entity: id, GoalX: mv.GoalX, GoalY: mv.GoalY,
		})
		return false
	}
	if len(path.Points) == 0 {
		s.finish(id, mv, tf)
		return false
	}
	mv.Path = path.Points
	mv.PathRevision = path.Revision
	mv.NextIndex = 0
	return true
}

func (s *MovementSystem) finish(id ecs.EntityID, mv *component.Movement, tf *component.Transform) {
	mv.HasGoal = false
	mv.ClearPath()
	event.Publish(s.state.Bus, event.EntityStopped{Entity: id, X: tf.X, Y: tf.Y})
}
