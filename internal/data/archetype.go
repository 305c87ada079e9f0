package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ArchetypeTemplate holds static data for an entity archetype loaded from
// YAML. Map files reference archetypes by name; the runner resolves them
// against this table when instantiating spawns.
type ArchetypeTemplate struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
	HP    int    `yaml:"hp"`
	MP    int    `yaml:"mp"`
	STR   int    `yaml:"str"`
	DEX   int    `yaml:"dex"`
	INT   int    `yaml:"intel"`

	AttackRange    int `yaml:"attack_range"`
	AttackDamage   int `yaml:"attack_damage"`
	AttackCooldown int `yaml:"attack_cooldown"` // ticks between swings

	MoveSpeed int `yaml:"move_speed"` // ticks per tile step

	PerceptionRadius int     `yaml:"perception_radius"`
	WanderRadius     int     `yaml:"wander_radius"`
	LeashRadius      int     `yaml:"leash_radius"`
	FleeHealthFrac   float64 `yaml:"flee_health_frac"`
	DecideCooldown   int     `yaml:"decide_cooldown"`

	// Default personality; content scripts may override per archetype.
	Aggression float64 `yaml:"aggression"`
	Bravery    float64 `yaml:"bravery"`
	Curiosity  float64 `yaml:"curiosity"`

	Blocking bool   `yaml:"blocking"`
	Sprite   string `yaml:"sprite"`
	Layer    int    `yaml:"layer"`
}

type archetypeListFile struct {
	Archetypes []ArchetypeTemplate `yaml:"archetypes"`
}

// ArchetypeTable holds all archetype templates indexed by name.
type ArchetypeTable struct {
	templates map[string]*ArchetypeTemplate
}

// NewArchetypeTable builds a table from in-memory templates. Later
// duplicates overwrite earlier ones.
func NewArchetypeTable(tpls ...ArchetypeTemplate) *ArchetypeTable {
	t := &ArchetypeTable{templates: make(map[string]*ArchetypeTemplate, len(tpls))}
	for i := range tpls {
		a := tpls[i]
		t.templates[a.Name] = &a
	}
	return t
}

// LoadArchetypeTable loads archetype templates from a YAML file.
func LoadArchetypeTable(path string) (*ArchetypeTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetype list: %w", err)
	}
	var f archetypeListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse archetype list: %w", err)
	}
	t := &ArchetypeTable{templates: make(map[string]*ArchetypeTemplate, len(f.Archetypes))}
	for i := range f.Archetypes {
		a := &f.Archetypes[i]
		if a.Name == "" {
			return nil, fmt.Errorf("archetype %d has no name", i)
		}
		if _, dup := t.templates[a.Name]; dup {
			return nil, fmt.Errorf("duplicate archetype %q", a.Name)
		}
		t.templates[a.Name] = a
	}
	return t, nil
}

// Get returns an archetype template by name, or nil if not found.
func (t *ArchetypeTable) Get(name string) *ArchetypeTemplate {
	return t.templates[name]
}

// Count returns the number of loaded templates.
func (t *ArchetypeTable) Count() int {
	return len(t.templates)
}
