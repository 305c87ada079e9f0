package event

import "github.com/ironvale/sim/internal/core/ecs"

// Events are immutable value payloads. State names are carried as strings so
// the event contract stays self-contained: a transport or replay log can
// serialize any event without reaching into component internals.

// ── Lifecycle ──

type EntitySpawned struct {
	Entity ecs.EntityID
	X, Y   int
}

// EntityDestroyed carries the last known position so reactive indexes
// (spatial grid) can reconcile without resolving the dead entity.
type EntityDestroyed struct {
	Entity ecs.EntityID
	X, Y   int
}

// ── Movement ──

type EntityMoved struct {
	Entity       ecs.EntityID
	FromX, FromY int
	ToX, ToY     int
}

type EntityStopped struct {
	Entity ecs.EntityID
	X, Y   int
}

type PathFailed struct {
	Entity       ecs.EntityID
	GoalX, GoalY int
}

// ── Combat ──

type EntityDamaged struct {
	Entity ecs.EntityID
	Amount int
	Source ecs.EntityID
}

type EntityDied struct {
	Entity ecs.EntityID
	Killer ecs.EntityID
}

type CombatStateChanged struct {
	Entity   ecs.EntityID
	Old, New string
}

type AIStateChanged struct {
	Entity   ecs.EntityID
	Old, New string
}

// ── Terrain ──

type TileChanged struct {
	X, Y int
}

// ── Collision ──

type CollisionOccurred struct {
	Mover   ecs.EntityID
	Blocker ecs.EntityID
	X, Y    int
}

// ── High-level intents (input boundary; the core never reads devices) ──

type MoveIntent struct {
	Entity       ecs.EntityID
	GoalX, GoalY int
}

type AttackIntent struct {
	Entity ecs.EntityID
	Target ecs.EntityID
}

type PauseToggle struct{}
