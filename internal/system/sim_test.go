package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/core/ecs"
	"github.com/ironvale/sim/internal/core/event"
	coresys "github.com/ironvale/sim/internal/core/system"
	"github.com/ironvale/sim/internal/tilemap"
	"github.com/ironvale/sim/internal/world"
)

const dt = 50 * time.Millisecond

type sim struct {
	state *world.State
	sched *coresys.Scheduler
}

func newSim(t *testing.T, w, h int, seed int64) *sim {
	t.Helper()
	terrain := tilemap.New(w, h, tilemap.Tile{Walkable: true, Cost: 1})
	ws := world.NewState(nil, terrain, world.Options{
		MaxEntities:        256,
		CellSize:           4,
		ElevationThreshold: 2,
		Seed:               seed,
	})
	sched := coresys.NewScheduler(nil)
	RegisterAll(sched, ws, nil)
	return &sim{state: ws, sched: sched}
}

func (s *sim) run(t *testing.T, ticks int) {
	t.Helper()
	for i := 0; i < ticks; i++ {
		s.sched.Tick(dt)
	}
}

// mob spawns a full fighting entity: transform, stats, combat, movement,
// blocking collider.
func (s *sim) mob(t *testing.T, x, y, hp int) ecs.EntityID {
	t.Helper()
	id, err := s.state.Spawn(x, y)
	require.NoError(t, err)
	require.NoError(t, s.state.Stats.Add(id, component.Stats{
		Level: 1, STR: 8, DEX: 8, HP: hp, MaxHP: hp,
	}))
	require.NoError(t, s.state.Combats.Add(id, component.Combat{
		AttackRange: 1, AttackDamage: 3, AttackCooldown: 1,
	}))
	require.NoError(t, s.state.Movements.Add(id, component.Movement{Speed: 1}))
	require.NoError(t, s.state.Colliders.Add(id, component.Collider{Blocking: true}))
	return id
}

func pos(t *testing.T, s *sim, id ecs.EntityID) tilemap.Point {
	t.Helper()
	tf, ok := s.state.Transforms.Get(id)
	require.True(t, ok)
	return tilemap.Point{X: tf.X, Y: tf.Y}
}

func TestMoveIntentStepsAndGridFollows(t *testing.T) {
	s := newSim(t, 20, 20, 1)
	id := s.mob(t, 5, 5, 10)

	var moved []event.EntityMoved
	event.Subscribe(s.state.Bus, func(ev event.EntityMoved) { moved = append(moved, ev) })

	event.Publish(s.state.Bus, event.MoveIntent{Entity: id, GoalX: 5, GoalY: 6})
	s.run(t, 1)

	assert.Equal(t, tilemap.Point{X: 5, Y: 6}, pos(t, s, id))
	assert.Contains(t, s.state.Grid.Query(5, 6, 1), id)
	require.Len(t, moved, 1)
	assert.Equal(t, 5, moved[0].FromX)
	assert.Equal(t, 5, moved[0].FromY)
}

func TestMoveIntentReachesGoalAndStops(t *testing.T) {
	s := newSim(t, 20, 20, 1)
	id := s.mob(t, 0, 0, 10)

	var stopped []event.EntityStopped
	event.Subscribe(s.state.Bus, func(ev event.EntityStopped) { stopped = append(stopped, ev) })

	event.Publish(s.state.Bus, event.MoveIntent{Entity: id, GoalX: 7, GoalY: 3})
	s.run(t, 20)

	assert.Equal(t, tilemap.Point{X: 7, Y: 3}, pos(t, s, id))
	require.NotEmpty(t, stopped)
	assert.Equal(t, id, stopped[0].Entity)

	mv, ok := s.state.Movements.Get(id)
	require.True(t, ok)
	assert.False(t, mv.HasGoal)
}

func TestMoveIntentToOccupiedTileStopsAdjacent(t *testing.T) {
	s := newSim(t, 20, 20, 1)
	id := s.mob(t, 2, 5, 10)
	s.mob(t, 8, 5, 10) // blocking entity holding the goal tile

	var failed []event.PathFailed
	var stopped []event.EntityStopped
	event.Subscribe(s.state.Bus, func(ev event.PathFailed) { failed = append(failed, ev) })
	event.Subscribe(s.state.Bus, func(ev event.EntityStopped) { stopped = append(stopped, ev) })

	event.Publish(s.state.Bus, event.MoveIntent{Entity: id, GoalX: 8, GoalY: 5})
	s.run(t, 12)

	// The mover closes to melee range of the occupant instead of failing.
	assert.Empty(t, failed)
	require.NotEmpty(t, stopped)
	p := pos(t, s, id)
	assert.Equal(t, 1, chebyshev(p.X, p.Y, 8, 5))

	mv, ok := s.state.Movements.Get(id)
	require.True(t, ok)
	assert.False(t, mv.HasGoal)
}

func TestUnreachableGoalPublishesPathFailed(t *testing.T) {
	s := newSim(t, 6, 6, 1)
	// Seal off the goal corner.
	for _, p := range []tilemap.Point{{X: 4, Y: 5}, {X: 4, Y: 4}, {X: 5, Y: 4}} {
		require.NoError(t, s.state.Terrain.SetTile(p.X, p.Y, tilemap.Tile{Walkable: false, Opaque: true}))
	}
	id := s.mob(t, 0, 0, 10)

	var failed []event.PathFailed
	event.Subscribe(s.state.Bus, func(ev event.PathFailed) { failed = append(failed, ev) })

	event.Publish(s.state.Bus, event.MoveIntent{Entity: id, GoalX: 5, GoalY: 5})
	s.run(t, 2)

	require.Len(t, failed, 1)
	assert.Equal(t, id, failed[0].Entity)
	assert.Equal(t, tilemap.Point{X: 0, Y: 0}, pos(t, s, id), "failed path moves nothing")

	mv, _ := s.state.Movements.Get(id)
	assert.False(t, mv.HasGoal, "goal dropped after failure")
}

func TestMovementRoutesAroundBlockingEntity(t *testing.T) {
	s := newSim(t, 5, 3, 1)
	blocker := s.mob(t, 2, 1, 10)
	mover := s.mob(t, 0, 1, 10)

	event.Publish(s.state.Bus, event.MoveIntent{Entity: mover, GoalX: 4, GoalY: 1})
	s.run(t, 12)

	assert.Equal(t, tilemap.Point{X: 4, Y: 1}, pos(t, s, mover))
	assert.Equal(t, tilemap.Point{X: 2, Y: 1}, pos(t, s, blocker), "blocker never disturbed")
}

func TestTerrainChangeInvalidatesPathMidWalk(t *testing.T) {
	s := newSim(t, 8, 3, 1)
	id := s.mob(t, 0, 1, 10)

	event.Publish(s.state.Bus, event.MoveIntent{Entity: id, GoalX: 7, GoalY: 1})
	s.run(t, 2)

	// Drop a wall ahead; the stale path must not walk through it.
	require.NoError(t, s.state.Terrain.SetTile(4, 1, tilemap.Tile{Walkable: false, Opaque: true}))
	s.run(t, 20)

	assert.Equal(t, tilemap.Point{X: 7, Y: 1}, pos(t, s, id))
	assert.True(t, s.state.Terrain.Walkable(pos(t, s, id).X, pos(t, s, id).Y))
}

func TestPauseFreezesTheWorld(t *testing.T) {
	s := newSim(t, 10, 10, 1)
	id := s.mob(t, 0, 0, 10)

	event.Publish(s.state.Bus, event.MoveIntent{Entity: id, GoalX: 5, GoalY: 0})
	s.run(t, 2)
	at := pos(t, s, id)
	tick := s.sched.TickCount()

	s.sched.Pause()
	for i := 0; i < 10; i++ {
		assert.False(t, s.sched.Tick(dt))
	}
	assert.Equal(t, at, pos(t, s, id), "no mutation while paused")
	assert.Equal(t, tick, s.sched.TickCount())

	s.sched.Resume()
	s.run(t, 10)
	assert.Equal(t, tilemap.Point{X: 5, Y: 0}, pos(t, s, id))
}

func TestCollisionResolutionSeparatesOverlap(t *testing.T) {
	s := newSim(t, 10, 10, 1)
	a := s.mob(t, 4, 4, 10)
	b := s.mob(t, 4, 4, 10) // spawned into an occupied tile

	var collisions []event.CollisionOccurred
	event.Subscribe(s.state.Bus, func(ev event.CollisionOccurred) { collisions = append(collisions, ev) })

	s.run(t, 1)

	require.NotEmpty(t, collisions)
	assert.Equal(t, b, collisions[0].Mover, "higher ID loses the tile")
	assert.Equal(t, a, collisions[0].Blocker)

	assert.Equal(t, tilemap.Point{X: 4, Y: 4}, pos(t, s, a))
	assert.NotEqual(t, pos(t, s, a), pos(t, s, b))
	assert.Equal(t, 1, chebyshev(pos(t, s, b).X, pos(t, s, b).Y, 4, 4))
}

func TestStatusEffectsPoisonAndRegen(t *testing.T) {
	s := newSim(t, 5, 5, 1)
	id := s.mob(t, 1, 1, 10)

	st, _ := s.state.Stats.Get(id)
	st.AddEffect(component.StatusEffect{ID: "venom", Kind: "poison", Strength: 2, Remaining: 3})
	st.AddEffect(component.StatusEffect{ID: "salve", Kind: "regen", Strength: 1, Remaining: 2})

	s.run(t, 1)
	st, _ = s.state.Stats.Get(id)
	assert.Equal(t, 9, st.HP, "poison 2, regen 1")

	s.run(t, 5)
	st, _ = s.state.Stats.Get(id)
	assert.Equal(t, 6, st.HP, "one more mixed tick, then poison alone")
	assert.Empty(t, st.Effects, "expired effects dropped")
}

func TestPoisonDeathDestroysAtTickBoundary(t *testing.T) {
	s := newSim(t, 5, 5, 1)
	id := s.mob(t, 1, 1, 3)

	var died []event.EntityDied
	var destroyed []event.EntityDestroyed
	event.Subscribe(s.state.Bus, func(ev event.EntityDied) { died = append(died, ev) })
	event.Subscribe(s.state.Bus, func(ev event.EntityDestroyed) { destroyed = append(destroyed, ev) })

	st, _ := s.state.Stats.Get(id)
	st.AddEffect(component.StatusEffect{ID: "venom", Kind: "poison", Strength: 5, Remaining: -1})

	s.run(t, 1)

	require.Len(t, died, 1)
	require.Len(t, destroyed, 1)
	assert.Equal(t, id, destroyed[0].Entity)
	assert.Equal(t, 1, destroyed[0].X, "last known position carried on the event")
	assert.False(t, s.state.World.Alive(id))
	assert.Equal(t, 0, s.state.Grid.Len())
}

func TestDeterministicRuns(t *testing.T) {
	trace := func() ([]event.EntityMoved, []event.EntityDamaged, []tilemap.Point) {
		s := newSim(t, 16, 16, 42)
		var moves []event.EntityMoved
		var hits []event.EntityDamaged
		event.Subscribe(s.state.Bus, func(ev event.EntityMoved) { moves = append(moves, ev) })
		event.Subscribe(s.state.Bus, func(ev event.EntityDamaged) { hits = append(hits, ev) })

		wolf := s.mob(t, 2, 2, 20)
		require.NoError(t, s.state.AIs.Add(wolf, component.AI{
			Archetype: "wolf", State: component.AIIdle,
			Persona:          component.Personality{Aggression: 0.9, Curiosity: 0.5},
			PerceptionRadius: 10, HomeX: 2, HomeY: 2,
			WanderRadius: 3, LeashRadius: 12, FleeHealthFrac: 0.2,
		}))
		prey := s.mob(t, 10, 10, 15)
		_ = prey

		s.run(t, 60)

		var finals []tilemap.Point
		s.state.Transforms.Each(func(_ ecs.EntityID, tf *component.Transform) {
			finals = append(finals, tilemap.Point{X: tf.X, Y: tf.Y})
		})
		return moves, hits, finals
	}

	m1, h1, f1 := trace()
	m2, h2, f2 := trace()
	assert.Equal(t, m1, m2, "identical seeds give identical movement streams")
	assert.Equal(t, h1, h2, "identical damage streams")
	assert.Equal(t, f1, f2, "identical final positions")
}
