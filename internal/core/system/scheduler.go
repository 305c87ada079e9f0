package system

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// Scheduler executes systems in phase order each tick. Registration order is
// preserved within a phase (stable sort), so two runs with the same setup
// execute systems identically, which replay testing relies on.
//
// Pause is a toggle, not a separate code path: while paused, Tick returns
// without running any system, so no simulation-time mutation or event fires.
type Scheduler struct {
	log     *zap.Logger
	systems []System
	sorted  bool
	paused  bool
	tick    uint64
}

func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		log:     log,
		systems: make([]System, 0, 16),
	}
}

func (s *Scheduler) Register(sys System) {
	s.systems = append(s.systems, sys)
	s.sorted = false
}

// Tick runs one simulation step. Returns false if the scheduler is paused
// and nothing ran.
func (s *Scheduler) Tick(dt time.Duration) bool {
	if s.paused {
		return false
	}
	s.ensureSorted()
	s.tick++
	for _, sys := range s.systems {
		sys.Update(dt)
	}
	return true
}

// TickCount returns the number of completed (non-paused) ticks.
func (s *Scheduler) TickCount() uint64 { return s.tick }

// SetTickCount aligns the counter after a snapshot restore.
func (s *Scheduler) SetTickCount(n uint64) { s.tick = n }

func (s *Scheduler) Pause() {
	if !s.paused {
		s.paused = true
		s.log.Info("simulation paused", zap.Uint64("tick", s.tick))
	}
}

func (s *Scheduler) Resume() {
	if s.paused {
		s.paused = false
		s.log.Info("simulation resumed", zap.Uint64("tick", s.tick))
	}
}

func (s *Scheduler) TogglePause() {
	if s.paused {
		s.Resume()
	} else {
		s.Pause()
	}
}

func (s *Scheduler) Paused() bool { return s.paused }

func (s *Scheduler) ensureSorted() {
	if !s.sorted {
		sort.SliceStable(s.systems, func(i, j int) bool {
			return s.systems[i].Phase() < s.systems[j].Phase()
		})
		s.sorted = true
	}
}
