package component

// StatusEffect is one timed effect on an entity. Durations are measured in
// ticks so that replays are exact.
type StatusEffect struct {
	ID        string
	Kind      string // "poison", "slow", "regen"; opaque to the core
	Strength  float64
	Remaining int // ticks; <0 means permanent
}

// Stats holds attributes and vitals under a three-stat model; content
// scripts are free to ignore any of them.
type Stats struct {
	Level int
	STR   int
	DEX   int
	INT   int

	HP    int
	MaxHP int
	MP    int
	MaxMP int

	// Effects is ordered by application time. A slice, not a map, so that
	// per-tick decay walks it deterministically.
	Effects []StatusEffect
}

func (s *Stats) Alive() bool { return s.HP > 0 }

// Damage applies damage and reports the amount actually taken.
func (s *Stats) Damage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	if amount > s.HP {
		amount = s.HP
	}
	s.HP -= amount
	return amount
}

// Heal restores health up to MaxHP and reports the amount restored.
func (s *Stats) Heal(amount int) int {
	if amount < 0 {
		amount = 0
	}
	if s.HP+amount > s.MaxHP {
		amount = s.MaxHP - s.HP
	}
	s.HP += amount
	return amount
}

// AddEffect applies or refreshes a status effect by ID.
func (s *Stats) AddEffect(e StatusEffect) {
	for i := range s.Effects {
		if s.Effects[i].ID == e.ID {
			s.Effects[i] = e
			return
		}
	}
	s.Effects = append(s.Effects, e)
}

func (s *Stats) HasEffect(kind string) bool {
	for i := range s.Effects {
		if s.Effects[i].Kind == kind {
			return true
		}
	}
	return false
}

// TickEffects decays effect timers by one tick and drops expired effects,
// preserving order.
func (s *Stats) TickEffects() {
	kept := s.Effects[:0]
	for _, e := range s.Effects {
		if e.Remaining > 0 {
			e.Remaining--
		}
		if e.Remaining != 0 {
			kept = append(kept, e)
		}
	}
	s.Effects = kept
}
