package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeScript(t *testing.T, root, sub, name, body string) {
	t.Helper()
	dir := filepath.Join(root, sub)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestEngineWithoutScripts(t *testing.T) {
	e, err := NewEngine(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	_, ok := e.Decide(DecideContext{Archetype: "wolf", State: "idle"})
	assert.False(t, ok, "missing ai_decide falls back to Go")

	_, ok = e.CalcDamage(DamageContext{BaseDamage: 3})
	assert.False(t, ok)

	assert.Nil(t, e.GetPersonality("wolf"))
}

func TestDecide(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "ai", "decide.lua", `
function ai_decide(ctx)
  if ctx.hp < ctx.max_hp * ctx.bravery then
    return "flee"
  end
  if ctx.target_id ~= 0 and ctx.target_visible then
    return "chase"
  end
  return nil
end
`)
	e, err := NewEngine(root, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	state, ok := e.Decide(DecideContext{
		Archetype: "wolf", State: "idle",
		HP: 2, MaxHP: 10, Bravery: 0.5,
	})
	require.True(t, ok)
	assert.Equal(t, "flee", state)

	state, ok = e.Decide(DecideContext{
		Archetype: "wolf", State: "idle",
		HP: 10, MaxHP: 10, Bravery: 0.5,
		TargetID: 7, TargetVisible: true,
	})
	require.True(t, ok)
	assert.Equal(t, "chase", state)

	// nil return defers to the Go dispatch table.
	_, ok = e.Decide(DecideContext{
		Archetype: "wolf", State: "idle",
		HP: 10, MaxHP: 10, Bravery: 0.5,
	})
	assert.False(t, ok)
}

func TestCalcDamage(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "combat", "damage.lua", `
function combat_damage(ctx)
  local dmg = ctx.attacker.base_damage + math.floor(ctx.attacker.str / 4)
  if ctx.target.stance == "defensive" then
    dmg = math.floor(dmg / 2)
  end
  return { is_hit = true, damage = dmg }
end
`)
	e, err := NewEngine(root, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	res, ok := e.CalcDamage(DamageContext{
		AttackerSTR: 12, BaseDamage: 5, TargetStance: "neutral",
	})
	require.True(t, ok)
	assert.True(t, res.IsHit)
	assert.Equal(t, 8, res.Damage)

	res, ok = e.CalcDamage(DamageContext{
		AttackerSTR: 12, BaseDamage: 5, TargetStance: "defensive",
	})
	require.True(t, ok)
	assert.Equal(t, 4, res.Damage)
}

func TestCalcDamageScriptFault(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "combat", "damage.lua", `
function combat_damage(ctx)
  error("formula broke")
end
`)
	e, err := NewEngine(root, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	_, ok := e.CalcDamage(DamageContext{BaseDamage: 3})
	assert.False(t, ok, "a faulting script degrades to the Go formula")
}

func TestGetPersonality(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "content", "personalities.lua", `
local personalities = {
  wolf   = { aggression = 0.9, bravery = 0.3, curiosity = 0.6 },
  rabbit = { aggression = 0.0, bravery = 0.9, curiosity = 0.8 },
}
function get_personality(archetype)
  return personalities[archetype]
end
`)
	e, err := NewEngine(root, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	p := e.GetPersonality("wolf")
	require.NotNil(t, p)
	assert.InDelta(t, 0.9, p.Aggression, 1e-9)
	assert.InDelta(t, 0.3, p.Bravery, 1e-9)

	assert.Nil(t, e.GetPersonality("dragon"))
}

func TestLoadBadScriptFails(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "ai", "broken.lua", `function ai_decide(`)

	_, err := NewEngine(root, zap.NewNop())
	assert.Error(t, err)
}
