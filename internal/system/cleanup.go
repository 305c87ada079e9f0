package system

import (
	"time"

	"github.com/ironvale/sim/internal/core/event"
	coresys "github.com/ironvale/sim/internal/core/system"
	"github.com/ironvale/sim/internal/world"
)

// CleanupSystem runs last in the tick: it destroys every entity queued for
// removal and announces each destruction with its last known position, so
// reactive indexes reconcile without touching freed slots.
type CleanupSystem struct {
	state *world.State
}

func NewCleanupSystem(ws *world.State) *CleanupSystem {
	return &CleanupSystem{state: ws}
}

func (s *CleanupSystem) Name() string         { return "cleanup" }
func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for _, dead := range s.state.World.FlushDestroyQueue() {
		p, _ := s.state.Grid.PositionOf(dead)
		event.Publish(s.state.Bus, event.EntityDestroyed{Entity: dead, X: p.X, Y: p.Y})
	}
}
