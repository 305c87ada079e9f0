package world

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/core/ecs"
	"github.com/ironvale/sim/internal/core/event"
	"github.com/ironvale/sim/internal/nav"
	"github.com/ironvale/sim/internal/tilemap"
)

// Options configures a simulation context.
type Options struct {
	MaxEntities        int
	CellSize           int
	ElevationThreshold float64
	LOSCacheSize       int
	Seed               int64
}

// State is the explicitly constructed simulation context passed to every
// system and query. There are no ambient singletons: multiple isolated
// States can coexist (the test suites rely on this).
//
// All randomness flows through Rand, seeded from config, so identical
// inputs reproduce identical runs.
type State struct {
	Log  *zap.Logger
	Rand *rand.Rand
	Seed int64

	World   *ecs.World
	Bus     *event.Bus
	Terrain *tilemap.Grid
	Grid    *SpatialGrid

	Pathfinder *nav.Pathfinder
	Sight      *nav.LOS

	Transforms  *ecs.Store[component.Transform]
	Stats       *ecs.Store[component.Stats]
	AIs         *ecs.Store[component.AI]
	Combats     *ecs.Store[component.Combat]
	Movements   *ecs.Store[component.Movement]
	Colliders   *ecs.Store[component.Collider]
	Renderables *ecs.Store[component.Renderable]
}

// NewState wires a fresh simulation over the given terrain.
func NewState(log *zap.Logger, terrain *tilemap.Grid, opt Options) *State {
	if log == nil {
		log = zap.NewNop()
	}
	bus := event.NewBus(log)
	terrain.AttachBus(bus)

	w := ecs.NewWorld(opt.MaxEntities)
	s := &State{
		Log:     log,
		Rand:    rand.New(rand.NewSource(opt.Seed)),
		Seed:    opt.Seed,
		World:   w,
		Bus:     bus,
		Terrain: terrain,
		Grid:    NewSpatialGrid(opt.CellSize),

		Pathfinder: nav.NewPathfinder(terrain),
		Sight:      nav.NewLOS(terrain, opt.ElevationThreshold, opt.LOSCacheSize),

		Transforms:  ecs.NewStore[component.Transform](w.Pool()),
		Stats:       ecs.NewStore[component.Stats](w.Pool()),
		AIs:         ecs.NewStore[component.AI](w.Pool()),
		Combats:     ecs.NewStore[component.Combat](w.Pool()),
		Movements:   ecs.NewStore[component.Movement](w.Pool()),
		Colliders:   ecs.NewStore[component.Collider](w.Pool()),
		Renderables: ecs.NewStore[component.Renderable](w.Pool()),
	}

	reg := w.Registry()
	reg.Register(s.Transforms)
	reg.Register(s.Stats)
	reg.Register(s.AIs)
	reg.Register(s.Combats)
	reg.Register(s.Movements)
	reg.Register(s.Colliders)
	reg.Register(s.Renderables)

	s.Grid.Bind(bus)
	return s
}

// Spawn creates an entity standing at (x,y) and announces it. Additional
// components are attached by the caller afterwards.
func (s *State) Spawn(x, y int) (ecs.EntityID, error) {
	if !s.Terrain.InBounds(x, y) {
		return 0, fmt.Errorf("spawn at (%d,%d): %w", x, y, tilemap.ErrOutOfBounds)
	}
	id, err := s.World.CreateEntity()
	if err != nil {
		return 0, err
	}
	if err := s.Transforms.Add(id, component.Transform{X: x, Y: y, Heading: 4}); err != nil {
		return 0, err
	}
	event.Publish(s.Bus, event.EntitySpawned{Entity: id, X: x, Y: y})
	return id, nil
}

// Despawn queues an entity for destruction at the tick boundary.
func (s *State) Despawn(id ecs.EntityID) {
	s.World.MarkForDestruction(id)
}

// MoveEntity updates the transform and publishes EntityMoved; the spatial
// grid follows the event. This is the single write path for positions.
func (s *State) MoveEntity(id ecs.EntityID, x, y int) error {
	tf, ok := s.Transforms.Get(id)
	if !ok {
		return ecs.ErrStaleReference
	}
	if !s.Terrain.InBounds(x, y) {
		return tilemap.ErrOutOfBounds
	}
	fromX, fromY := tf.X, tf.Y
	if fromX == x && fromY == y {
		return nil
	}
	tf.Heading = component.HeadingTo(fromX, fromY, x, y)
	tf.X, tf.Y = x, y
	event.Publish(s.Bus, event.EntityMoved{
		Entity: id, FromX: fromX, FromY: fromY, ToX: x, ToY: y,
	})
	return nil
}

// BlockerAt returns the first blocking entity standing on (x,y), excluding
// the given entity. Deterministic: lowest entity ID wins.
func (s *State) BlockerAt(x, y int, exclude ecs.EntityID) (ecs.EntityID, bool) {
	for _, id := range s.Grid.At(x, y) {
		if id == exclude {
			continue
		}
		if col, ok := s.Colliders.Get(id); ok && col.Blocking {
			return id, true
		}
	}
	return 0, false
}

// OccupiedProbe returns the entity-avoidance predicate for pathfinding
// queries issued on behalf of mover.
func (s *State) OccupiedProbe(mover ecs.EntityID) func(x, y int) bool {
	return func(x, y int) bool {
		_, blocked := s.BlockerAt(x, y, mover)
		return blocked
	}
}

// EachRenderable is the read-only presentation iteration: the renderer
// pulls Transform + Renderable pairs once per tick and never writes back.
func (s *State) EachRenderable(fn func(id ecs.EntityID, tf component.Transform, r component.Renderable)) {
	ecs.Each2(s.Transforms, s.Renderables, func(id ecs.EntityID, tf *component.Transform, r *component.Renderable) {
		fn(id, *tf, *r)
	})
}
