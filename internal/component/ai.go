package component

import "github.com/ironvale/sim/internal/core/ecs"

// AIState is the closed set of behavior variants. New behaviors extend this
// enum and the AI system's dispatch table; there is no open subclassing.
type AIState uint8

const (
	AIIdle AIState = iota
	AIWander
	AIChase
	AIAttack
	AIFlee
	AIReturn
)

var aiStateNames = [...]string{"idle", "wander", "chase", "attack", "flee", "return"}

func (s AIState) String() string {
	if int(s) < len(aiStateNames) {
		return aiStateNames[s]
	}
	return "unknown"
}

// Personality weights modulate state transitions. Values are 0..1 and come
// from content scripts; the core treats them as opaque tuning.
type Personality struct {
	Aggression float64 // scales chase acquisition range
	Bravery    float64 // scales the flee health threshold down
	Curiosity  float64 // scales wander radius
}

// AI drives autonomous behavior. The current target is a weak reference:
// an entity ID resolved through the pool at use time, never an owning edge.
type AI struct {
	Archetype string
	State     AIState
	Persona   Personality

	PerceptionRadius int
	Target           ecs.EntityID

	// Home anchor for wander and return behavior.
	HomeX, HomeY int
	WanderRadius int
	LeashRadius  int // chase gives up beyond this distance from home

	FleeHealthFrac float64 // flee below this fraction of MaxHP

	DecideCooldown int // ticks between decisions
	DecideTimer    int
}
