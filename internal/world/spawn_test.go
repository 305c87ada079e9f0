package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/core/ecs"
	"github.com/ironvale/sim/internal/data"
	"github.com/ironvale/sim/internal/tilemap"
)

func wolfTemplate() *data.ArchetypeTemplate {
	return &data.ArchetypeTemplate{
		Name: "wolf", Level: 3, HP: 24, STR: 12, DEX: 14, INT: 4,
		AttackRange: 1, AttackDamage: 4, AttackCooldown: 2,
		MoveSpeed: 1, PerceptionRadius: 8, WanderRadius: 4, LeashRadius: 14,
		FleeHealthFrac: 0.4, DecideCooldown: 3,
		Aggression: 0.9, Bravery: 0.5, Curiosity: 0.3,
		Blocking: true, Sprite: "wolf", Layer: 1,
	}
}

func spawnTable() *data.ArchetypeTable {
	return data.NewArchetypeTable(*wolfTemplate(), data.ArchetypeTemplate{
		Name: "deer", Level: 1, HP: 10, DEX: 16,
		MoveSpeed: 1, PerceptionRadius: 6, WanderRadius: 6, LeashRadius: 20,
		FleeHealthFrac: 1, Curiosity: 0.6, Sprite: "deer",
	})
}

func TestSpawnFromTemplateAttachesComponents(t *testing.T) {
	s := testState(t, 20, 20)

	id, err := SpawnFromTemplate(s, wolfTemplate(), 5, 5, nil)
	require.NoError(t, err)

	st, ok := s.Stats.Get(id)
	require.True(t, ok)
	assert.Equal(t, 24, st.HP)
	assert.Equal(t, 24, st.MaxHP)

	cb, ok := s.Combats.Get(id)
	require.True(t, ok)
	assert.Equal(t, 4, cb.AttackDamage)
	assert.Equal(t, 2, cb.AttackCooldown)

	ai, ok := s.AIs.Get(id)
	require.True(t, ok)
	assert.Equal(t, "wolf", ai.Archetype)
	assert.Equal(t, 5, ai.HomeX)
	assert.Equal(t, 5, ai.HomeY)
	assert.InDelta(t, 0.9, ai.Persona.Aggression, 1e-9)

	col, ok := s.Colliders.Get(id)
	require.True(t, ok)
	assert.True(t, col.Blocking)

	r, ok := s.Renderables.Get(id)
	require.True(t, ok)
	assert.Equal(t, "wolf", r.Sprite)
	assert.True(t, r.Visible)

	assert.Contains(t, s.Grid.Query(5, 5, 1), id)
}

func TestSpawnFromTemplatePersonaOverride(t *testing.T) {
	s := testState(t, 20, 20)

	persona := func(archetype string) (component.Personality, bool) {
		if archetype == "wolf" {
			return component.Personality{Aggression: 0.1, Bravery: 1, Curiosity: 0}, true
		}
		return component.Personality{}, false
	}
	id, err := SpawnFromTemplate(s, wolfTemplate(), 5, 5, persona)
	require.NoError(t, err)

	ai, _ := s.AIs.Get(id)
	assert.InDelta(t, 0.1, ai.Persona.Aggression, 1e-9)
	assert.InDelta(t, 1.0, ai.Persona.Bravery, 1e-9)
}

func TestSpawnFromTemplateHarmlessGetsNoCombat(t *testing.T) {
	s := testState(t, 20, 20)
	tpl := wolfTemplate()
	tpl.AttackDamage = 0

	id, err := SpawnFromTemplate(s, tpl, 5, 5, nil)
	require.NoError(t, err)

	_, ok := s.Combats.Get(id)
	assert.False(t, ok)
}

func TestPopulateSpawnsFansOutGroups(t *testing.T) {
	s := testState(t, 20, 20)

	created, err := PopulateSpawns(s, spawnTable(), []tilemap.Spawn{
		{Archetype: "wolf", X: 10, Y: 10, Count: 3},
		{Archetype: "deer", X: 3, Y: 3},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, created)
	assert.Equal(t, 4, s.Grid.Len())

	// Blocking wolves fan out over distinct tiles near the anchor.
	seen := map[tilemap.Point]int{}
	s.Transforms.Each(func(id ecs.EntityID, tf *component.Transform) {
		if ai, ok := s.AIs.Get(id); ok && ai.Archetype == "wolf" {
			seen[tilemap.Point{X: tf.X, Y: tf.Y}]++
			assert.LessOrEqual(t, chebyshevDist(tf.X, tf.Y, 10, 10), 4)
		}
	})
	assert.Len(t, seen, 3)
	for _, n := range seen {
		assert.Equal(t, 1, n)
	}
}

func chebyshevDist(x1, y1, x2, y2 int) int {
	return max(abs(x1-x2), abs(y1-y2))
}

func TestPopulateSpawnsUnknownArchetype(t *testing.T) {
	s := testState(t, 20, 20)

	_, err := PopulateSpawns(s, spawnTable(), []tilemap.Spawn{
		{Archetype: "dragon", X: 1, Y: 1},
	}, nil)
	assert.ErrorContains(t, err, "unknown archetype")
}
