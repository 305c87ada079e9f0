package component

import "github.com/ironvale/sim/internal/core/ecs"

// Stance is the closed set of combat postures.
type Stance uint8

const (
	StanceNeutral Stance = iota
	StanceAggressive
	StanceDefensive
)

var stanceNames = [...]string{"neutral", "aggressive", "defensive"}

func (s Stance) String() string {
	if int(s) < len(stanceNames) {
		return stanceNames[s]
	}
	return "unknown"
}

// ThreatEntry accumulates hostility from one attacker. Kept as an ordered
// slice so threat scans are deterministic.
type ThreatEntry struct {
	Source ecs.EntityID
	Amount float64
}

// Combat holds an entity's fighting state. Target is a weak reference
// resolved through the entity pool before every use; a stale target is
// dropped, never dereferenced.
type Combat struct {
	Stance   Stance
	InCombat bool
	Target   ecs.EntityID

	AttackRange    int // chebyshev tiles
	AttackDamage   int // base damage fed to the formula
	AttackCooldown int // ticks between swings
	CooldownTimer  int

	Threat []ThreatEntry

	// Statistics, carried across the entity's lifetime.
	DamageDealt   int
	DamageTaken   int
	Kills         int
	AttacksLanded int
	AttacksMissed int
}

// AddThreat accumulates threat from a source.
func (c *Combat) AddThreat(source ecs.EntityID, amount float64) {
	for i := range c.Threat {
		if c.Threat[i].Source == source {
			c.Threat[i].Amount += amount
			return
		}
	}
	c.Threat = append(c.Threat, ThreatEntry{Source: source, Amount: amount})
}

// HighestThreat returns the source with the most accumulated threat.
// Ties resolve to the earliest attacker, which is stable across runs.
func (c *Combat) HighestThreat() (ecs.EntityID, bool) {
	var best ecs.EntityID
	bestAmount := 0.0
	found := false
	for _, t := range c.Threat {
		if !found || t.Amount > bestAmount {
			best, bestAmount, found = t.Source, t.Amount, true
		}
	}
	return best, found
}

// DropThreat removes one source (despawned or stale entities).
func (c *Combat) DropThreat(source ecs.EntityID) {
	for i := range c.Threat {
		if c.Threat[i].Source == source {
			c.Threat = append(c.Threat[:i], c.Threat[i+1:]...)
			return
		}
	}
}
