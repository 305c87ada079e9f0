// Package snapshot captures and restores the complete simulation state as a
// versioned value. A snapshot is self-contained: entity allocation tables,
// components, terrain, tick counter and RNG seed travel together, so a
// restored world resolves exactly the references the saved one did.
package snapshot

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/ironvale/sim/internal/component"
	"github.com/ironvale/sim/internal/core/ecs"
	"github.com/ironvale/sim/internal/core/event"
	"github.com/ironvale/sim/internal/tilemap"
	"github.com/ironvale/sim/internal/world"
)

// Version is the current snapshot schema version. Bump on any change to
// WorldState or the component layouts it embeds.
const Version = 1

var (
	// ErrVersionMismatch means the snapshot was written by an incompatible
	// schema version. Checked before anything else is decoded.
	ErrVersionMismatch = errors.New("snapshot: version mismatch")

	// ErrChecksumMismatch means the payload does not match its checksum.
	// The snapshot is corrupt; restoring it would be undefined behavior.
	ErrChecksumMismatch = errors.New("snapshot: checksum mismatch")
)

// EntityRecord is one entity's component set. Absent components are nil.
type EntityRecord struct {
	ID         ecs.EntityID          `json:"id"`
	Transform  *component.Transform  `json:"transform,omitempty"`
	Stats      *component.Stats      `json:"stats,omitempty"`
	AI         *component.AI         `json:"ai,omitempty"`
	Combat     *component.Combat     `json:"combat,omitempty"`
	Movement   *component.Movement   `json:"movement,omitempty"`
	Collider   *component.Collider   `json:"collider,omitempty"`
	Renderable *component.Renderable `json:"renderable,omitempty"`
}

// WorldState is the full simulation aggregate at one tick boundary.
type WorldState struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`
	Seed    int64  `json:"seed"`

	Pool ecs.PoolState `json:"pool"`

	MapWidth  int            `json:"map_width"`
	MapHeight int            `json:"map_height"`
	Tiles     []tilemap.Tile `json:"tiles"`

	Entities []EntityRecord `json:"entities"`
}

// Capture assembles a WorldState from a live simulation. Call only at a
// tick boundary so no partial system pass is frozen.
func Capture(ws *world.State, tick uint64) *WorldState {
	tiles := ws.Terrain.Tiles()
	snap := &WorldState{
		Version:   Version,
		Tick:      tick,
		Seed:      ws.Seed,
		Pool:      ws.World.Pool().Export(),
		MapWidth:  ws.Terrain.Width(),
		MapHeight: ws.Terrain.Height(),
		Tiles:     append([]tilemap.Tile(nil), tiles...),
	}

	for _, id := range ws.World.Pool().LiveIDs() {
		rec := EntityRecord{ID: id}
		if c, ok := ws.Transforms.Get(id); ok {
			cc := *c
			rec.Transform = &cc
		}
		if c, ok := ws.Stats.Get(id); ok {
			cc := *c
			cc.Effects = append([]component.StatusEffect(nil), c.Effects...)
			rec.Stats = &cc
		}
		if c, ok := ws.AIs.Get(id); ok {
			cc := *c
			rec.AI = &cc
		}
		if c, ok := ws.Combats.Get(id); ok {
			cc := *c
			cc.Threat = append([]component.ThreatEntry(nil), c.Threat...)
			rec.Combat = &cc
		}
		if c, ok := ws.Movements.Get(id); ok {
			cc := *c
			cc.Path = append([]tilemap.Point(nil), c.Path...)
			rec.Movement = &cc
		}
		if c, ok := ws.Colliders.Get(id); ok {
			cc := *c
			rec.Collider = &cc
		}
		if c, ok := ws.Renderables.Get(id); ok {
			cc := *c
			rec.Renderable = &cc
		}
		snap.Entities = append(snap.Entities, rec)
	}
	return snap
}

// Apply restores a WorldState into a freshly constructed State. Restored
// entities are announced as spawned so reactive indexes rebuild through the
// same event path they use during play.
func Apply(ws *world.State, snap *WorldState) error {
	if snap.Version != Version {
		return fmt.Errorf("%w: snapshot v%d, runtime v%d", ErrVersionMismatch, snap.Version, Version)
	}
	if ws.World.Pool().Live() != 0 {
		return errors.New("snapshot: restore target world is not empty")
	}

	if err := ws.Terrain.RestoreTiles(snap.MapWidth, snap.MapHeight, append([]tilemap.Tile(nil), snap.Tiles...)); err != nil {
		return fmt.Errorf("restore terrain: %w", err)
	}
	if err := ws.World.Pool().Import(snap.Pool); err != nil {
		return fmt.Errorf("restore entity pool: %w", err)
	}
	ws.Seed = snap.Seed
	ws.Rand = rand.New(rand.NewSource(snap.Seed))

	for _, rec := range snap.Entities {
		if err := applyRecord(ws, rec); err != nil {
			return fmt.Errorf("restore entity %d: %w", rec.ID, err)
		}
	}
	return nil
}

func applyRecord(ws *world.State, rec EntityRecord) error {
	if !ws.World.Alive(rec.ID) {
		return ecs.ErrStaleReference
	}
	if rec.Transform != nil {
		if err := ws.Transforms.Add(rec.ID, *rec.Transform); err != nil {
			return err
		}
	}
	if rec.Stats != nil {
		if err := ws.Stats.Add(rec.ID, *rec.Stats); err != nil {
			return err
		}
	}
	if rec.AI != nil {
		if err := ws.AIs.Add(rec.ID, *rec.AI); err != nil {
			return err
		}
	}
	if rec.Combat != nil {
		if err := ws.Combats.Add(rec.ID, *rec.Combat); err != nil {
			return err
		}
	}
	if rec.Movement != nil {
		if err := ws.Movements.Add(rec.ID, *rec.Movement); err != nil {
			return err
		}
	}
	if rec.Collider != nil {
		if err := ws.Colliders.Add(rec.ID, *rec.Collider); err != nil {
			return err
		}
	}
	if rec.Renderable != nil {
		if err := ws.Renderables.Add(rec.ID, *rec.Renderable); err != nil {
			return err
		}
	}
	if rec.Transform != nil {
		event.Publish(ws.Bus, event.EntitySpawned{
			Entity: rec.ID, X: rec.Transform.X, Y: rec.Transform.Y,
		})
	}
	return nil
}
