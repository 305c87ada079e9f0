package tilemap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Map files are YAML: a legend mapping single runes to tile definitions,
// row strings painting the grid top to bottom, and entity spawn points.
// Content (archetype names, AI data) is opaque to the core; the runner
// resolves archetypes against scripted definitions.

// TileDef is one legend entry.
type TileDef struct {
	Walkable  bool    `yaml:"walkable"`
	Cost      float64 `yaml:"cost"`
	Elevation float64 `yaml:"elevation"`
	Opaque    bool    `yaml:"opaque"`
}

// Spawn declares an entity to create when the map is instantiated.
type Spawn struct {
	Archetype string `yaml:"archetype"`
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	Count     int    `yaml:"count"`
}

// MapFile is the on-disk map document.
type MapFile struct {
	Name   string             `yaml:"name"`
	Legend map[string]TileDef `yaml:"legend"`
	Rows   []string           `yaml:"rows"`
	Spawns []Spawn            `yaml:"spawns"`
}

// LoadFile reads and parses a map document from disk.
func LoadFile(path string) (*Grid, *MapFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read map %s: %w", path, err)
	}
	g, mf, err := Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("parse map %s: %w", path, err)
	}
	return g, mf, nil
}

// Parse builds a Grid from a YAML map document. Every row must be the same
// width and every rune must appear in the legend.
func Parse(raw []byte) (*Grid, *MapFile, error) {
	var mf MapFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return nil, nil, fmt.Errorf("unmarshal: %w", err)
	}
	if len(mf.Rows) == 0 {
		return nil, nil, fmt.Errorf("map %q has no rows", mf.Name)
	}

	legend := make(map[rune]Tile, len(mf.Legend))
	for key, def := range mf.Legend {
		runes := []rune(key)
		if len(runes) != 1 {
			return nil, nil, fmt.Errorf("legend key %q is not a single rune", key)
		}
		cost := def.Cost
		if cost < 1 {
			cost = 1
		}
		legend[runes[0]] = Tile{
			Walkable:  def.Walkable,
			Cost:      cost,
			Elevation: def.Elevation,
			Opaque:    def.Opaque,
		}
	}

	width := len([]rune(mf.Rows[0]))
	height := len(mf.Rows)
	g := New(width, height, Tile{})

	for y, row := range mf.Rows {
		runes := []rune(row)
		if len(runes) != width {
			return nil, nil, fmt.Errorf("row %d width %d, want %d", y, len(runes), width)
		}
		for x, r := range runes {
			tile, ok := legend[r]
			if !ok {
				return nil, nil, fmt.Errorf("row %d: rune %q not in legend", y, r)
			}
			g.tiles[y*width+x] = tile
		}
	}

	for i, sp := range mf.Spawns {
		if !g.InBounds(sp.X, sp.Y) {
			return nil, nil, fmt.Errorf("spawn %d (%s) at (%d,%d): %w",
				i, sp.Archetype, sp.X, sp.Y, ErrOutOfBounds)
		}
	}

	return g, &mf, nil
}
