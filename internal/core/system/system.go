package system

import "time"

// Phase defines execution ordering within a single tick. Within a phase,
// systems run in registration order.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain external intents
	PhaseUpdate                  // 1: movement, AI, combat
	PhasePostUpdate              // 2: collision resolution, derived state
	PhaseCleanup                 // 3: destroy queued entities
)

// System is the interface every simulation system implements. Update runs
// once per tick on the simulation goroutine; systems never run concurrently.
type System interface {
	Name() string
	Phase() Phase
	Update(dt time.Duration)
}
