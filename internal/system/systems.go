// Package system implements the simulation behaviors that run every tick.
// Execution order within a tick is fixed: intents are drained first, then
// movement, AI, combat and status effects, then collision resolution, and
// finally destruction of queued entities. Identical inputs produce identical
// event streams.
package system

import (
	coresys "github.com/ironvale/sim/internal/core/system"
	"github.com/ironvale/sim/internal/scripting"
	"github.com/ironvale/sim/internal/world"
)

// RegisterAll wires the full system set into the scheduler in canonical
// order. scripts may be nil; every scripted decision has a Go fallback.
func RegisterAll(sched *coresys.Scheduler, ws *world.State, scripts *scripting.Engine) {
	sched.Register(NewInputSystem(ws))
	sched.Register(NewMovementSystem(ws))
	sched.Register(NewAISystem(ws, scripts))
	sched.Register(NewCombatSystem(ws, scripts))
	sched.Register(NewStatusSystem(ws))
	sched.Register(NewCollisionSystem(ws))
	sched.Register(NewCleanupSystem(ws))
}

func chebyshev(x1, y1, x2, y2 int) int {
	dx := x1 - x2
	dy := y1 - y2
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dy > dx {
		return dy
	}
	return dx
}
