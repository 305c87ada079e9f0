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

// CombatSystem resolves attacks. Targets are weak references re-validated
// through the entity pool every tick: a stale or dead target is dropped and
// replaced from the threat table, never dereferenced. The damage formula
// comes from the Lua combat_damage hook with a built-in fallback.
type CombatSystem struct {
	state   *world.State
	scripts *scripting.Engine
}

func NewCombatSystem(ws *world.State, scripts *scripting.Engine) *CombatSystem {
	s := &CombatSystem{state: ws, scripts: scripts}
	// A death immediately clears every threat table edge pointing at the
	// victim, so nobody retargets a corpse between cleanup and reuse.
	event.Subscribe(ws.Bus, func(ev event.EntityDied) {
		ws.Combats.Each(func(_ ecs.EntityID, cb *component.Combat) {
			cb.DropThreat(ev.Entity)
			if cb.Target == ev.Entity {
				cb.Target = 0
			}
		})
	})
	return s
}

func (s *CombatSystem) Name() string         { return "combat" }
func (s *CombatSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *CombatSystem) Update(_ time.Duration) {
	s.state.Combats.Each(func(id ecs.EntityID, cb *component.Combat) {
		st, ok := s.state.Stats.Get(id)
		if !ok || !st.Alive() {
			return
		}
		tf, ok := s.state.Transforms.Get(id)
		if !ok {
			return
		}

		if cb.CooldownTimer > 0 {
			cb.CooldownTimer--
		}

		if cb.Target != 0 && !s.validTarget(cb.Target) {
			cb.Target = 0
		}
		if cb.Target == 0 {
			if src, ok := cb.HighestThreat(); ok && s.validTarget(src) {
				cb.Target = src
			}
		}

		if cb.Target == 0 {
			s.setInCombat(id, cb, false)
			return
		}
		s.setInCombat(id, cb, true)

		tgtTf, ok := s.state.Transforms.Get(cb.Target)
		if !ok {
			cb.Target = 0
			return
		}
		if chebyshev(tf.X, tf.Y, tgtTf.X, tgtTf.Y) > cb.AttackRange {
			return // closing distance is the AI's job
		}
		vis, err := s.state.Sight.Visible(
			tilemap.Point{X: tf.X, Y: tf.Y},
			tilemap.Point{X: tgtTf.X, Y: tgtTf.Y},
		)
		if err != nil || !vis {
			return
		}
		if cb.CooldownTimer > 0 {
			return
		}
		cb.CooldownTimer = cb.AttackCooldown

		tf.Heading = component.HeadingTo(tf.X, tf.Y, tgtTf.X, tgtTf.Y)
		s.swing(id, cb, st, cb.Target)
	})
}

func (s *CombatSystem) validTarget(id ecs.EntityID) bool {
	st, ok := s.state.Stats.Get(id)
	return ok && st.Alive()
}

func (s *CombatSystem) setInCombat(id ecs.EntityID, cb *component.Combat, in bool) {
	if cb.InCombat == in {
		return
	}
	cb.InCombat = in
	old, now := "combat", "idle"
	if in {
		old, now = "idle", "combat"
	}
	event.Publish(s.state.Bus, event.CombatStateChanged{Entity: id, Old: old, New: now})
}

// swing resolves one attack against a validated target.
func (s *CombatSystem) swing(id ecs.EntityID, cb *component.Combat, st *component.Stats, target ecs.EntityID) {
	tgtStats, ok := s.state.Stats.Get(target)
	if !ok {
		return
	}

	tgtStance := component.StanceNeutral
	if tc, ok := s.state.Combats.Get(target); ok {
		tgtStance = tc.Stance
	}

	hit, dmg := s.resolveDamage(cb, st, tgtStats, tgtStance)
	if !hit {
		cb.AttacksMissed++
		return
	}

	dealt := tgtStats.Damage(dmg)
	cb.AttacksLanded++
	cb.DamageDealt += dealt

	if tc, ok := s.state.Combats.Get(target); ok {
		tc.DamageTaken += dealt
		tc.AddThreat(id, float64(dealt))
	}

	event.Publish(s.state.Bus, event.EntityDamaged{Entity: target, Amount: dealt, Source: id})

	if !tgtStats.Alive() {
		cb.Kills++
		cb.Target = 0
		event.Publish(s.state.Bus, event.EntityDied{Entity: target, Killer: id})
		s.state.Despawn(target)
	}
}

// resolveDamage consults the Lua formula first, then the built-in one:
// a d20 hit roll against a DEX-difference threshold, base + STR/4 damage,
// aggressive stance +25%, defensive target halves.
func (s *CombatSystem) resolveDamage(cb *component.Combat, st, tgt *component.Stats, tgtStance component.Stance) (bool, int) {
	if s.scripts != nil {
		res, ok := s.scripts.CalcDamage(scripting.DamageContext{
			AttackerLevel: st.Level,
			AttackerSTR:   st.STR,
			AttackerDEX:   st.DEX,
			BaseDamage:    cb.AttackDamage,
			Stance:        cb.Stance.String(),
			TargetLevel:   tgt.Level,
			TargetDEX:     tgt.DEX,
			TargetStance:  tgtStance.String(),
		})
		if ok {
			return res.IsHit, res.Damage
		}
	}

	roll := s.state.Rand.Intn(20) + 1
	need := 4 + (tgt.DEX-st.DEX)/4
	if roll < need {
		return false, 0
	}

	dmg := cb.AttackDamage + st.STR/4
	if cb.Stance == component.StanceAggressive {
		dmg += dmg / 4
	}
	if tgtStance == component.StanceDefensive {
		dmg /= 2
	}
	if dmg < 1 {
		dmg = 1
	}
	return true, dmg
}
