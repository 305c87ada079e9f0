package world

import (
	"fmt"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/core/ecs"
	"github.com/ironvale/sim/internal/data"
	"github.com/ironvale/sim/internal/tilemap"
)

// PersonaFunc optionally overrides an archetype's default personality.
// Content scripts provide one; a nil func keeps the template values.
type PersonaFunc func(archetype string) (component.Personality, bool)

// SpawnFromTemplate creates a fully equipped entity from an archetype
// template. The spawn tile anchors the entity's home for wander and leash
// behavior.
func SpawnFromTemplate(s *State, tpl *data.ArchetypeTemplate, x, y int, persona PersonaFunc) (ecs.EntityID, error) {
	id, err := s.Spawn(x, y)
	if err != nil {
		return 0, err
	}

	if err := s.Stats.Add(id, component.Stats{
		Level: tpl.Level,
		STR:   tpl.STR,
		DEX:   tpl.DEX,
		INT:   tpl.INT,
		HP:    tpl.HP,
		MaxHP: tpl.HP,
		MP:    tpl.MP,
		MaxMP: tpl.MP,
	}); err != nil {
		return 0, err
	}

	speed := tpl.MoveSpeed
	if speed < 1 {
		speed = 1
	}
	if err := s.Movements.Add(id, component.Movement{Speed: speed}); err != nil {
		return 0, err
	}

	if tpl.AttackDamage > 0 {
		cooldown := tpl.AttackCooldown
		if cooldown < 1 {
			cooldown = 1
		}
		attackRange := tpl.AttackRange
		if attackRange < 1 {
			attackRange = 1
		}
		if err := s.Combats.Add(id, component.Combat{
			AttackRange:    attackRange,
			AttackDamage:   tpl.AttackDamage,
			AttackCooldown: cooldown,
		}); err != nil {
			return 0, err
		}
	}

	p := component.Personality{
		Aggression: tpl.Aggression,
		Bravery:    tpl.Bravery,
		Curiosity:  tpl.Curiosity,
	}
	if persona != nil {
		if override, ok := persona(tpl.Name); ok {
			p = override
		}
	}
	if err := s.AIs.Add(id, component.AI{
		Archetype:        tpl.Name,
		Persona:          p,
		PerceptionRadius: tpl.PerceptionRadius,
		HomeX:            x,
		HomeY:            y,
		WanderRadius:     tpl.WanderRadius,
		LeashRadius:      tpl.LeashRadius,
		FleeHealthFrac:   tpl.FleeHealthFrac,
		DecideCooldown:   tpl.DecideCooldown,
	}); err != nil {
		return 0, err
	}

	if err := s.Colliders.Add(id, component.Collider{Blocking: tpl.Blocking}); err != nil {
		return 0, err
	}
	if tpl.Sprite != "" {
		if err := s.Renderables.Add(id, component.Renderable{
			Sprite:  tpl.Sprite,
			Layer:   tpl.Layer,
			Visible: true,
		}); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// PopulateSpawns instantiates every spawn declaration from a map document.
// Groups with count > 1 fan out over nearby free tiles. Returns the number
// of entities created.
func PopulateSpawns(s *State, table *data.ArchetypeTable, spawns []tilemap.Spawn, persona PersonaFunc) (int, error) {
	created := 0
	for _, sp := range spawns {
		tpl := table.Get(sp.Archetype)
		if tpl == nil {
			return created, fmt.Errorf("spawn references unknown archetype %q", sp.Archetype)
		}
		count := sp.Count
		if count < 1 {
			count = 1
		}
		for n := 0; n < count; n++ {
			x, y, ok := s.freeTileNear(sp.X, sp.Y)
			if !ok {
				return created, fmt.Errorf("no free tile near (%d,%d) for %s", sp.X, sp.Y, sp.Archetype)
			}
			if _, err := SpawnFromTemplate(s, tpl, x, y, persona); err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

// freeTileNear finds the closest walkable tile to (x,y) with no blocking
// occupant, scanning outward ring by ring. The scan order is fixed so runs
// with the same map produce the same placement.
func (s *State) freeTileNear(x, y int) (int, int, bool) {
	const maxRing = 4
	for r := 0; r <= maxRing; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if max(abs(dx), abs(dy)) != r {
					continue
				}
				cx, cy := x+dx, y+dy
				if !s.Terrain.Walkable(cx, cy) {
					continue
				}
				if _, blocked := s.BlockerAt(cx, cy, 0); blocked {
					continue
				}
				return cx, cy, true
			}
		}
	}
	return 0, 0, false
}
