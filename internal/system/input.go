package system

import (
	"time"

	"github.com/ironvale/sim/internal/core/event"
	coresys "github.com/ironvale/sim/internal/core/system"
	"github.com/ironvale/sim/internal/world"
)

// InputSystem is the intent boundary: high-level commands arrive on the bus
// at any point during a tick and are buffered, then applied to components at
// the start of the next tick in arrival order. The simulation core never
// reads devices or sockets; whatever drives it publishes intents.
type InputSystem struct {
	state   *world.State
	moves   []event.MoveIntent
	attacks []event.AttackIntent
}

func NewInputSystem(ws *world.State) *InputSystem {
	s := &InputSystem{state: ws}
	event.Subscribe(ws.Bus, func(ev event.MoveIntent) {
		s.moves = append(s.moves, ev)
	})
	event.Subscribe(ws.Bus, func(ev event.AttackIntent) {
		s.attacks = append(s.attacks, ev)
	})
	return s
}

func (s *InputSystem) Name() string         { return "input" }
func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	for _, ev := range s.moves {
		mv, ok := s.state.Movements.Get(ev.Entity)
		if !ok {
			continue // stale or non-moving entity: drop silently
		}
		mv.GoalX, mv.GoalY = ev.GoalX, ev.GoalY
		mv.HasGoal = true
		mv.ClearPath()
	}
	s.moves = s.moves[:0]

	for _, ev := range s.attacks {
		cb, ok := s.state.Combats.Get(ev.Entity)
		if !ok {
			continue
		}
		if !s.state.World.Alive(ev.Target) {
			continue
		}
		cb.Target = ev.Target
	}
	s.attacks = s.attacks[:0]
}
