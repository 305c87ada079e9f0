package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for content logic: AI decisions,
// damage formulas, and per-archetype tuning tables. Single-goroutine access
// only (simulation loop). Every bridge call degrades to a Go fallback when
// the script is missing or faults, so a broken content pack never stops the
// simulation.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory tree.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"content", "ai", "combat"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory, sorted by ReadDir order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DecideContext holds pre-packed data for one AI decision. Go handles
// perception and command execution; Lua only picks the next behavior state.
type DecideContext struct {
	Archetype string
	State     string
	HP, MaxHP int

	// Target (0 = none; distances in chebyshev tiles)
	TargetID      uint64
	TargetDist    int
	TargetVisible bool

	HomeDist    int
	WanderDist  int
	LeashDist   int

	Aggression float64
	Bravery    float64
	Curiosity  float64
}

// Decide calls Lua ai_decide(ctx). The returned string names the next
// behavior state ("idle", "wander", "chase", "attack", "flee", "return").
// ok=false means no script decision: the caller uses its Go dispatch table.
func (e *Engine) Decide(ctx DecideContext) (string, bool) {
	fn := e.vm.GetGlobal("ai_decide")
	if fn == lua.LNil {
		return "", false
	}

	t := e.vm.NewTable()
	t.RawSetString("archetype", lua.LString(ctx.Archetype))
	t.RawSetString("state", lua.LString(ctx.State))
	t.RawSetString("hp", lua.LNumber(ctx.HP))
	t.RawSetString("max_hp", lua.LNumber(ctx.MaxHP))
	t.RawSetString("target_id", lua.LNumber(ctx.TargetID))
	t.RawSetString("target_dist", lua.LNumber(ctx.TargetDist))
	if ctx.TargetVisible {
		t.RawSetString("target_visible", lua.LTrue)
	} else {
		t.RawSetString("target_visible", lua.LFalse)
	}
	t.RawSetString("home_dist", lua.LNumber(ctx.HomeDist))
	t.RawSetString("wander_dist", lua.LNumber(ctx.WanderDist))
	t.RawSetString("leash_dist", lua.LNumber(ctx.LeashDist))
	t.RawSetString("aggression", lua.LNumber(ctx.Aggression))
	t.RawSetString("bravery", lua.LNumber(ctx.Bravery))
	t.RawSetString("curiosity", lua.LNumber(ctx.Curiosity))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua ai_decide error", zap.Error(err), zap.String("archetype", ctx.Archetype))
		return "", false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	if result == lua.LNil {
		return "", false
	}
	state := lua.LVAsString(result)
	if state == "" {
		return "", false
	}
	return state, true
}

// DamageContext holds pre-packed data for a melee swing calculation.
type DamageContext struct {
	AttackerLevel int
	AttackerSTR   int
	AttackerDEX   int
	BaseDamage    int
	Stance        string

	TargetLevel  int
	TargetDEX    int
	TargetStance string
}

// DamageResult is returned by the Lua combat function.
type DamageResult struct {
	IsHit  bool
	Damage int
}

// CalcDamage calls Lua combat_damage(ctx). ok=false means no script
// formula: the caller applies the built-in one.
func (e *Engine) CalcDamage(ctx DamageContext) (DamageResult, bool) {
	fn := e.vm.GetGlobal("combat_damage")
	if fn == lua.LNil {
		return DamageResult{}, false
	}

	t := e.vm.NewTable()

	atk := e.vm.NewTable()
	atk.RawSetString("level", lua.LNumber(ctx.AttackerLevel))
	atk.RawSetString("str", lua.LNumber(ctx.AttackerSTR))
	atk.RawSetString("dex", lua.LNumber(ctx.AttackerDEX))
	atk.RawSetString("base_damage", lua.LNumber(ctx.BaseDamage))
	atk.RawSetString("stance", lua.LString(ctx.Stance))
	t.RawSetString("attacker", atk)

	tgt := e.vm.NewTable()
	tgt.RawSetString("level", lua.LNumber(ctx.TargetLevel))
	tgt.RawSetString("dex", lua.LNumber(ctx.TargetDEX))
	tgt.RawSetString("stance", lua.LString(ctx.TargetStance))
	t.RawSetString("target", tgt)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua combat_damage error", zap.Error(err))
		return DamageResult{}, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua combat_damage returned non-table")
		return DamageResult{}, false
	}

	return DamageResult{
		IsHit:  rt.RawGetString("is_hit") == lua.LTrue,
		Damage: int(lua.LVAsNumber(rt.RawGetString("damage"))),
	}, true
}

// Personality holds per-archetype behavior weights from content scripts.
type Personality struct {
	Aggression float64
	Bravery    float64
	Curiosity  float64
}

// GetPersonality calls Lua get_personality(archetype). Returns nil when no
// definition exists (the archetype keeps its spawn-table defaults).
func (e *Engine) GetPersonality(archetype string) *Personality {
	fn := e.vm.GetGlobal("get_personality")
	if fn == lua.LNil {
		return nil
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(archetype)); err != nil {
		e.log.Error("lua get_personality error", zap.Error(err), zap.String("archetype", archetype))
		return nil
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	if result == lua.LNil {
		return nil
	}

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil
	}

	return &Personality{
		Aggression: lNum(rt, "aggression"),
		Bravery:    lNum(rt, "bravery"),
		Curiosity:  lNum(rt, "curiosity"),
	}
}

// --- Lua helpers ---

func lNum(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
