package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironvale/sim/internal/tilemap"
)

func mustVisible(t *testing.T, l *LOS, a, b tilemap.Point) bool {
	t.Helper()
	v, err := l.Visible(a, b)
	require.NoError(t, err)
	return v
}

func TestVisibleOutOfBounds(t *testing.T) {
	l := NewLOS(openGrid(4, 4), 2, 0)

	_, err := l.Visible(tilemap.Point{X: -1, Y: 0}, tilemap.Point{X: 1, Y: 1})
	assert.ErrorIs(t, err, tilemap.ErrOutOfBounds)
	_, err = l.Visible(tilemap.Point{X: 0, Y: 0}, tilemap.Point{X: 4, Y: 0})
	assert.ErrorIs(t, err, tilemap.ErrOutOfBounds)
}

func TestWallBlocksAndRemovalRestores(t *testing.T) {
	g := openGrid(5, 1)
	l := NewLOS(g, 2, 64)

	a := tilemap.Point{X: 0, Y: 0}
	b := tilemap.Point{X: 2, Y: 0}
	assert.True(t, mustVisible(t, l, a, b))

	wall(t, g, 1, 0)
	assert.False(t, mustVisible(t, l, a, b), "wall between the two cells blocks")

	// Removing the wall invalidates cached results and restores sight.
	require.NoError(t, g.SetTile(1, 0, tilemap.Tile{Walkable: true, Cost: 1}))
	assert.True(t, mustVisible(t, l, a, b))
}

func TestTargetCellCountsOriginDoesNot(t *testing.T) {
	g := openGrid(3, 1)
	wall(t, g, 2, 0)
	l := NewLOS(g, 2, 0)

	// Opaque target is not visible; standing inside an opaque cell can
	// still see out (origin excluded from the walk).
	assert.False(t, mustVisible(t, l, tilemap.Point{X: 0, Y: 0}, tilemap.Point{X: 2, Y: 0}))
	assert.True(t, mustVisible(t, l, tilemap.Point{X: 2, Y: 0}, tilemap.Point{X: 1, Y: 0}))
}

func TestCacheKeepsDirectionsSeparate(t *testing.T) {
	g := openGrid(3, 1)
	wall(t, g, 2, 0)

	a := tilemap.Point{X: 0, Y: 0}
	b := tilemap.Point{X: 2, Y: 0}

	// An opaque endpoint makes the two directions differ; a cached answer
	// for one direction must never be served for the other, whichever is
	// queried first.
	l := NewLOS(g, 2, 64)
	assert.False(t, mustVisible(t, l, a, b))
	assert.True(t, mustVisible(t, l, b, a))

	l = NewLOS(g, 2, 64)
	assert.True(t, mustVisible(t, l, b, a))
	assert.False(t, mustVisible(t, l, a, b))

	// Repeat queries hit the cache and stay stable.
	assert.False(t, mustVisible(t, l, a, b))
	assert.True(t, mustVisible(t, l, b, a))
}

func TestDiagonalCornerTieBreak(t *testing.T) {
	g := openGrid(3, 3)
	l := NewLOS(g, 2, 0)

	a := tilemap.Point{X: 0, Y: 0}
	b := tilemap.Point{X: 2, Y: 2}

	// The exact diagonal crosses cell corners; the tie-break walks the
	// lower-sum/lower-X cell, so (0,1) is on the ray and (1,0) is not.
	wall(t, g, 1, 0)
	assert.True(t, mustVisible(t, l, a, b))
	assert.True(t, mustVisible(t, l, b, a))

	wall(t, g, 0, 1)
	assert.False(t, mustVisible(t, l, a, b))
	assert.False(t, mustVisible(t, l, b, a))
}

func TestVisibilitySymmetry(t *testing.T) {
	g := openGrid(6, 6)
	for _, p := range []tilemap.Point{{X: 2, Y: 1}, {X: 3, Y: 3}, {X: 1, Y: 4}, {X: 4, Y: 2}} {
		wall(t, g, p.X, p.Y)
	}
	l := NewLOS(g, 100, 0) // threshold high enough to never block

	var open []tilemap.Point
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			if !g.Opaque(x, y) {
				open = append(open, tilemap.Point{X: x, Y: y})
			}
		}
	}
	for _, a := range open {
		for _, b := range open {
			assert.Equal(t,
				mustVisible(t, l, a, b),
				mustVisible(t, l, b, a),
				"asymmetric visibility between %v and %v", a, b)
		}
	}
}

func TestElevationBlocksSight(t *testing.T) {
	g := openGrid(5, 1)
	l := NewLOS(g, 2, 0)

	// Endpoint difference beyond the threshold blocks regardless of opacity.
	require.NoError(t, g.SetTile(4, 0, tilemap.Tile{Walkable: true, Cost: 1, Elevation: 5}))
	assert.False(t, mustVisible(t, l, tilemap.Point{X: 0, Y: 0}, tilemap.Point{X: 4, Y: 0}))
	assert.False(t, mustVisible(t, l, tilemap.Point{X: 4, Y: 0}, tilemap.Point{X: 0, Y: 0}))

	// A ridge between two low endpoints blocks like a wall.
	require.NoError(t, g.SetTile(4, 0, tilemap.Tile{Walkable: true, Cost: 1}))
	require.NoError(t, g.SetTile(2, 0, tilemap.Tile{Walkable: true, Cost: 1, Elevation: 5}))
	assert.False(t, mustVisible(t, l, tilemap.Point{X: 0, Y: 0}, tilemap.Point{X: 4, Y: 0}))

	// Below the threshold nothing blocks.
	require.NoError(t, g.SetTile(2, 0, tilemap.Tile{Walkable: true, Cost: 1, Elevation: 1.5}))
	assert.True(t, mustVisible(t, l, tilemap.Point{X: 0, Y: 0}, tilemap.Point{X: 4, Y: 0}))
}

func TestSupercoverVisitsEveryCrossedCell(t *testing.T) {
	var cells []tilemap.Point
	supercover(tilemap.Point{X: 0, Y: 0}, tilemap.Point{X: 4, Y: 2}, func(x, y int) bool {
		cells = append(cells, tilemap.Point{X: x, Y: y})
		return true
	})

	assert.Equal(t, []tilemap.Point{
		{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 2}, {X: 4, Y: 2},
	}, cells)
}

func TestSupercoverStraightLines(t *testing.T) {
	var cells []tilemap.Point
	supercover(tilemap.Point{X: 2, Y: 3}, tilemap.Point{X: 2, Y: 0}, func(x, y int) bool {
		cells = append(cells, tilemap.Point{X: x, Y: y})
		return true
	})
	assert.Equal(t, []tilemap.Point{{X: 2, Y: 2}, {X: 2, Y: 1}, {X: 2, Y: 0}}, cells)
}
