package system

import (
	"time"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/core/ecs"
	"github.com/ironvale/sim/internal/core/event"
	coresys "github.com/ironvale/sim/internal/core/system"
	"github.com/ironvale/sim/internal/scripting"
	"github.com/ironvale/sim/internal/tilemap"
	"github.com/ironvale/sim/internal/world"
)

// AISystem drives autonomous entities through a closed behavior-state set.
// Go handles perception (spatial query + line-of-sight gate) and command
// emission; an optional Lua ai_decide hook can override the state choice,
// falling back to the built-in dispatch table.
type AISystem struct {
	state   *world.State
	scripts *scripting.Engine
}

func NewAISystem(ws *world.State, scripts *scripting.Engine) *AISystem {
	return &AISystem{state: ws, scripts: scripts}
}

func (s *AISystem) Name() string         { return "ai" }
func (s *AISystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

// sense is the per-decision snapshot of what the entity perceives.
type sense struct {
	target   ecs.EntityID // 0 = none
	dist     int          // chebyshev tiles to target
	visible  bool
	homeDist int
}

// aiHandler evaluates one behavior state: it performs the state's per-tick
// action (emitting intents) and returns the next state.
type aiHandler func(s *AISystem, id ecs.EntityID, ai *component.AI, st *component.Stats, tf *component.Transform, sn sense) component.AIState

var aiTable = map[component.AIState]aiHandler{
	component.AIIdle:   (*AISystem).tickIdle,
	component.AIWander: (*AISystem).tickWander,
	component.AIChase:  (*AISystem).tickChase,
	component.AIAttack: (*AISystem).tickAttack,
	component.AIFlee:   (*AISystem).tickFlee,
	component.AIReturn: (*AISystem).tickReturn,
}

func (s *AISystem) Update(_ time.Duration) {
	s.state.AIs.Each(func(id ecs.EntityID, ai *component.AI) {
		st, ok := s.state.Stats.Get(id)
		if !ok || !st.Alive() {
			return
		}
		tf, ok := s.state.Transforms.Get(id)
		if !ok {
			return
		}
		if ai.DecideTimer > 0 {
			ai.DecideTimer--
			return
		}
		ai.DecideTimer = ai.DecideCooldown

		sn := s.perceive(id, ai, tf)
		next := s.decide(id, ai, st, tf, sn)
		if next != ai.State {
			old := ai.State
			ai.State = next
			event.Publish(s.state.Bus, event.AIStateChanged{
				Entity: id, Old: old.String(), New: next.String(),
			})
		}
	})
}

// perceive validates the current target and scans for a new one if none is
// held. A candidate is hostile when its archetype differs (or it has no AI
// at all), has living stats, and passes the line-of-sight gate.
func (s *AISystem) perceive(id ecs.EntityID, ai *component.AI, tf *component.Transform) sense {
	sn := sense{homeDist: chebyshev(tf.X, tf.Y, ai.HomeX, ai.HomeY)}

	if ai.Target != 0 {
		if !s.targetAlive(ai.Target) {
			ai.Target = 0
		}
	}

	if ai.Target == 0 && ai.PerceptionRadius > 0 && ai.Persona.Aggression > 0 {
		cand, ok := s.state.Grid.Nearest(tf.X, tf.Y, func(other ecs.EntityID) bool {
			if other == id || !s.targetAlive(other) {
				return false
			}
			if oa, ok := s.state.AIs.Get(other); ok && oa.Archetype == ai.Archetype {
				return false // same archetype: packmates, never hostile
			}
			return true
		})
		if ok {
			otf, has := s.state.Transforms.Get(cand)
			if has && chebyshev(tf.X, tf.Y, otf.X, otf.Y) <= ai.PerceptionRadius {
				ai.Target = cand
			}
		}
	}

	if ai.Target != 0 {
		otf, ok := s.state.Transforms.Get(ai.Target)
		if !ok {
			ai.Target = 0
			return sn
		}
		sn.target = ai.Target
		sn.dist = chebyshev(tf.X, tf.Y, otf.X, otf.Y)
		vis, err := s.state.Sight.Visible(
			tilemap.Point{X: tf.X, Y: tf.Y},
			tilemap.Point{X: otf.X, Y: otf.Y},
		)
		sn.visible = err == nil && vis
	}
	return sn
}

func (s *AISystem) targetAlive(id ecs.EntityID) bool {
	st, ok := s.state.Stats.Get(id)
	return ok && st.Alive()
}

// decide picks the next behavior state, preferring the Lua hook.
func (s *AISystem) decide(id ecs.EntityID, ai *component.AI, st *component.Stats, tf *component.Transform, sn sense) component.AIState {
	if s.scripts != nil {
		ctx := scripting.DecideContext{
			Archetype:     ai.Archetype,
			State:         ai.State.String(),
			HP:            st.HP,
			MaxHP:         st.MaxHP,
			TargetID:      uint64(sn.target),
			TargetDist:    sn.dist,
			TargetVisible: sn.visible,
			HomeDist:      sn.homeDist,
			WanderDist:    ai.WanderRadius,
			LeashDist:     ai.LeashRadius,
			Aggression:    ai.Persona.Aggression,
			Bravery:       ai.Persona.Bravery,
			Curiosity:     ai.Persona.Curiosity,
		}
		if name, ok := s.scripts.Decide(ctx); ok {
			if next, valid := aiStateFromName(name); valid {
				s.act(id, ai, tf, sn, next)
				return next
			}
		}
	}

	handler, ok := aiTable[ai.State]
	if !ok {
		return component.AIIdle
	}
	return handler(s, id, ai, st, tf, sn)
}

// act performs the entry/ongoing action for a script-chosen state so Lua
// overrides still move and attack through the same intent events.
func (s *AISystem) act(id ecs.EntityID, ai *component.AI, tf *component.Transform, sn sense, next component.AIState) {
	switch next {
	case component.AIWander:
		s.emitWanderGoal(id, ai)
	case component.AIChase:
		if otf, ok := s.state.Transforms.Get(sn.target); ok {
			event.Publish(s.state.Bus, event.MoveIntent{Entity: id, GoalX: otf.X, GoalY: otf.Y})
		}
	case component.AIAttack:
		if sn.target != 0 {
			event.Publish(s.state.Bus, event.AttackIntent{Entity: id, Target: sn.target})
		}
	case component.AIFlee, component.AIReturn:
		event.Publish(s.state.Bus, event.MoveIntent{Entity: id, GoalX: ai.HomeX, GoalY: ai.HomeY})
	}
}

// fleeFrac is the effective flee threshold: braver entities hold on longer.
func fleeFrac(ai *component.AI) float64 {
	return ai.FleeHealthFrac * (1 - ai.Persona.Bravery)
}

func hurt(st *component.Stats, ai *component.AI) bool {
	if st.MaxHP <= 0 {
		return false
	}
	return float64(st.HP)/float64(st.MaxHP) < fleeFrac(ai)
}

func (s *AISystem) tickIdle(id ecs.EntityID, ai *component.AI, st *component.Stats, tf *component.Transform, sn sense) component.AIState {
	if sn.target != 0 && sn.visible {
		s.act(id, ai, tf, sn, component.AIChase)
		return component.AIChase
	}
	if ai.WanderRadius > 0 && s.state.Rand.Float64() < ai.Persona.Curiosity {
		s.emitWanderGoal(id, ai)
		return component.AIWander
	}
	return component.AIIdle
}

func (s *AISystem) tickWander(id ecs.EntityID, ai *component.AI, st *component.Stats, tf *component.Transform, sn sense) component.AIState {
	if sn.target != 0 && sn.visible {
		s.act(id, ai, tf, sn, component.AIChase)
		return component.AIChase
	}
	if mv, ok := s.state.Movements.Get(id); ok && !mv.HasGoal {
		return component.AIIdle
	}
	return component.AIWander
}

func (s *AISystem) tickChase(id ecs.EntityID, ai *component.AI, st *component.Stats, tf *component.Transform, sn sense) component.AIState {
	if sn.target == 0 {
		s.act(id, ai, tf, sn, component.AIReturn)
		return component.AIReturn
	}
	if ai.LeashRadius > 0 && sn.homeDist > ai.LeashRadius {
		ai.Target = 0
		s.act(id, ai, tf, sn, component.AIReturn)
		return component.AIReturn
	}
	if hurt(st, ai) {
		s.act(id, ai, tf, sn, component.AIFlee)
		return component.AIFlee
	}
	if cb, ok := s.state.Combats.Get(id); ok && sn.dist <= cb.AttackRange && sn.visible {
		s.act(id, ai, tf, sn, component.AIAttack)
		return component.AIAttack
	}
	s.act(id, ai, tf, sn, component.AIChase)
	return component.AIChase
}

func (s *AISystem) tickAttack(id ecs.EntityID, ai *component.AI, st *component.Stats, tf *component.Transform, sn sense) component.AIState {
	if sn.target == 0 {
		s.act(id, ai, tf, sn, component.AIReturn)
		return component.AIReturn
	}
	if hurt(st, ai) {
		s.act(id, ai, tf, sn, component.AIFlee)
		return component.AIFlee
	}
	if cb, ok := s.state.Combats.Get(id); ok && (sn.dist > cb.AttackRange || !sn.visible) {
		s.act(id, ai, tf, sn, component.AIChase)
		return component.AIChase
	}
	s.act(id, ai, tf, sn, component.AIAttack)
	return component.AIAttack
}

func (s *AISystem) tickFlee(id ecs.EntityID, ai *component.AI, st *component.Stats, tf *component.Transform, sn sense) component.AIState {
	if !hurt(st, ai) {
		ai.Target = 0
		s.act(id, ai, tf, sn, component.AIReturn)
		return component.AIReturn
	}
	s.act(id, ai, tf, sn, component.AIFlee)
	return component.AIFlee
}

func (s *AISystem) tickReturn(id ecs.EntityID, ai *component.AI, st *component.Stats, tf *component.Transform, sn sense) component.AIState {
	if sn.homeDist <= 1 {
		return component.AIIdle
	}
	s.act(id, ai, tf, sn, component.AIReturn)
	return component.AIReturn
}

// emitWanderGoal picks a random walkable point around the home anchor.
func (s *AISystem) emitWanderGoal(id ecs.EntityID, ai *component.AI) {
	r := ai.WanderRadius
	if r < 1 {
		r = 1
	}
	for try := 0; try < 4; try++ {
		x := ai.HomeX + s.state.Rand.Intn(2*r+1) - r
		y := ai.HomeY + s.state.Rand.Intn(2*r+1) - r
		if s.state.Terrain.Walkable(x, y) {
			event.Publish(s.state.Bus, event.MoveIntent{Entity: id, GoalX: x, GoalY: y})
			return
		}
	}
}

func aiStateFromName(name string) (component.AIState, bool) {
	switch name {
	case "idle":
		return component.AIIdle, true
	case "wander":
		return component.AIWander, true
	case "chase":
		return component.AIChase, true
	case "attack":
		return component.AIAttack, true
	case "flee":
		return component.AIFlee, true
	case "return":
		return component.AIReturn, true
	}
	return component.AIIdle, false
}
