package system

import (
	"time"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/core/ecs"
	"github.com/ironvale/sim/internal/core/event"
	coresys "github.com/ironvale/sim/internal/core/system"
	"github.com/ironvale/sim/internal/world"
)

// StatusSystem applies timed status effects once per tick and decays their
// durations. Effect kinds the core understands: "poison" deals Strength
// damage, "regen" heals Strength. Unknown kinds only tick down; their
// meaning lives in content scripts.
type StatusSystem struct {
	state *world.State
}

func NewStatusSystem(ws *world.State) *StatusSystem {
	return &StatusSystem{state: ws}
}

func (s *StatusSystem) Name() string         { return "status" }
func (s *StatusSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *StatusSystem) Update(_ time.Duration) {
	s.state.Stats.Each(func(id ecs.EntityID, st *component.Stats) {
		if !st.Alive() || len(st.Effects) == 0 {
			return
		}
		for i := range st.Effects {
			switch st.Effects[i].Kind {
			case "poison":
				dealt := st.Damage(int(st.Effects[i].Strength))
				if dealt > 0 {
					event.Publish(s.state.Bus, event.EntityDamaged{Entity: id, Amount: dealt})
				}
			case "regen":
				st.Heal(int(st.Effects[i].Strength))
			}
		}
		st.TickEffects()

		if !st.Alive() {
			event.Publish(s.state.Bus, event.EntityDied{Entity: id})
			s.state.Despawn(id)
		}
	})
}
