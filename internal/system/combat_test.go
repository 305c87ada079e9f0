package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/core/event"
	"github.com/ironvale/sim/internal/tilemap"
)

func TestAttackIntentFightsToTheDeath(t *testing.T) {
	s := newSim(t, 10, 10, 7)
	attacker := s.mob(t, 3, 3, 30)
	victim := s.mob(t, 4, 3, 12)
	s.state.Combats.Remove(victim) // a defenceless target keeps the trace one-sided

	var hits []event.EntityDamaged
	var died []event.EntityDied
	event.Subscribe(s.state.Bus, func(ev event.EntityDamaged) { hits = append(hits, ev) })
	event.Subscribe(s.state.Bus, func(ev event.EntityDied) { died = append(died, ev) })

	event.Publish(s.state.Bus, event.AttackIntent{Entity: attacker, Target: victim})
	s.run(t, 60)

	require.Len(t, died, 1)
	assert.Equal(t, victim, died[0].Entity)
	assert.Equal(t, attacker, died[0].Killer)
	assert.False(t, s.state.World.Alive(victim))

	require.NotEmpty(t, hits)
	total := 0
	for _, h := range hits {
		assert.Equal(t, victim, h.Entity)
		assert.Equal(t, attacker, h.Source)
		total += h.Amount
	}
	assert.Equal(t, 12, total, "damage clamps at remaining HP")

	cb, ok := s.state.Combats.Get(attacker)
	require.True(t, ok)
	assert.Equal(t, 1, cb.Kills)
	assert.Equal(t, 12, cb.DamageDealt)
	assert.Equal(t, len(hits), cb.AttacksLanded)
	assert.Zero(t, cb.Target, "dead target dropped")
}

func TestCombatStateChangeEvents(t *testing.T) {
	s := newSim(t, 10, 10, 7)
	attacker := s.mob(t, 3, 3, 30)
	victim := s.mob(t, 4, 3, 200)

	var states []event.CombatStateChanged
	event.Subscribe(s.state.Bus, func(ev event.CombatStateChanged) { states = append(states, ev) })

	event.Publish(s.state.Bus, event.AttackIntent{Entity: attacker, Target: victim})
	s.run(t, 3)

	require.NotEmpty(t, states)
	assert.Equal(t, attacker, states[0].Entity)
	assert.Equal(t, "idle", states[0].Old)
	assert.Equal(t, "combat", states[0].New)
}

func TestDamageBuildsThreatAndRetaliation(t *testing.T) {
	s := newSim(t, 10, 10, 7)
	attacker := s.mob(t, 3, 3, 30)
	victim := s.mob(t, 4, 3, 200)

	event.Publish(s.state.Bus, event.AttackIntent{Entity: attacker, Target: victim})
	s.run(t, 30)

	vcb, ok := s.state.Combats.Get(victim)
	require.True(t, ok)
	top, found := vcb.HighestThreat()
	require.True(t, found)
	assert.Equal(t, attacker, top)
	assert.Equal(t, attacker, vcb.Target, "victim retaliates against its highest threat")
	assert.Positive(t, vcb.DamageTaken)

	acb, _ := s.state.Combats.Get(attacker)
	assert.Positive(t, acb.DamageTaken, "retaliation landed")
}

func TestAttackIntentOnDeadTargetIgnored(t *testing.T) {
	s := newSim(t, 10, 10, 7)
	attacker := s.mob(t, 3, 3, 30)
	victim := s.mob(t, 4, 3, 5)

	s.state.Despawn(victim)
	s.run(t, 1) // cleanup frees the slot

	event.Publish(s.state.Bus, event.AttackIntent{Entity: attacker, Target: victim})
	s.run(t, 3)

	cb, _ := s.state.Combats.Get(attacker)
	assert.Zero(t, cb.Target)
	assert.False(t, cb.InCombat)
}

func TestNoAttackWithoutLineOfSight(t *testing.T) {
	s := newSim(t, 10, 10, 7)
	attacker := s.mob(t, 3, 3, 30)
	victim := s.mob(t, 5, 3, 10)

	acb, _ := s.state.Combats.Get(attacker)
	acb.AttackRange = 3

	require.NoError(t, s.state.Terrain.SetTile(4, 3, tilemap.Tile{Walkable: false, Opaque: true}))

	var hits []event.EntityDamaged
	event.Subscribe(s.state.Bus, func(ev event.EntityDamaged) { hits = append(hits, ev) })

	event.Publish(s.state.Bus, event.AttackIntent{Entity: attacker, Target: victim})
	s.run(t, 10)

	assert.Empty(t, hits, "the wall blocks every swing")
}

func TestStanceModifiersInFallbackFormula(t *testing.T) {
	s := newSim(t, 10, 10, 7)
	attacker := s.mob(t, 3, 3, 30)
	victim := s.mob(t, 4, 3, 1000)

	acb, _ := s.state.Combats.Get(attacker)
	acb.Stance = component.StanceAggressive
	vcb, _ := s.state.Combats.Get(victim)
	vcb.Stance = component.StanceDefensive
	vcb.AttackDamage = 0 // victim never initiates

	var hits []event.EntityDamaged
	event.Subscribe(s.state.Bus, func(ev event.EntityDamaged) { hits = append(hits, ev) })

	event.Publish(s.state.Bus, event.AttackIntent{Entity: attacker, Target: victim})
	s.run(t, 20)

	// base 3 + STR 8/4 = 5, aggressive +25% = 6, defensive halves = 3.
	for _, h := range hits {
		if h.Entity == victim {
			assert.Equal(t, 3, h.Amount)
		}
	}
}
