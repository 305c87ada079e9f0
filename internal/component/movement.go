package component

import "github.com/ironvale/sim/internal/tilemap"

// Movement carries an entity's current path and stepping cadence. Paths are
// owned by this component and become stale when the terrain revision moves
// past PathRevision; the movement system re-requests rather than reusing
// them blindly.
type Movement struct {
	Speed     int // ticks per tile step, >= 1
	StepTimer int

	Path         []tilemap.Point
	PathRevision uint64
	NextIndex    int // next path index to step onto

	GoalX, GoalY int
	HasGoal      bool
}

// ClearPath drops the active path but keeps the goal, forcing a re-request.
func (m *Movement) ClearPath() {
	m.Path = nil
	m.NextIndex = 0
}

// Arrived reports whether the path is fully consumed.
func (m *Movement) Arrived() bool {
	return len(m.Path) == 0 || m.NextIndex >= len(m.Path)
}
