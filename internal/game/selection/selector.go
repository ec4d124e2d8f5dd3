// Package selection chooses which ability, if any, an agent uses on a check tick.
package selection

import (
	"github.com/cory-johannsen/spelledmobs/internal/game/ability"
	"github.com/cory-johannsen/spelledmobs/internal/game/condition"
	"github.com/cory-johannsen/spelledmobs/internal/game/dice"
)

// CooldownFunc reports the remaining cooldown ticks of an ability; 0 means ready.
type CooldownFunc func(abilityID string) int

// Choice is the outcome of a successful selection.
type Choice struct {
	Entry ability.Entry
	Level int
}

// Selector draws ability choices from a random source.
type Selector struct {
	src dice.Source
}

// New creates a Selector.
//
// Precondition: src must be non-nil.
func New(src dice.Source) *Selector {
	if src == nil {
		panic("selection.New: src must not be nil")
	}
	return &Selector{src: src}
}

// AnyReady reports whether at least one entry is off cooldown.
func AnyReady(entries []ability.Entry, cooldown CooldownFunc) bool {
	for _, e := range entries {
		if cooldown(e.ID) <= 0 {
			return true
		}
	}
	return false
}

// Eligible returns, in catalog order, the entries that are off cooldown, pass
// their own chance draw, and whose conditions all hold in ctx.
//
// Postcondition: Exactly one chance draw is consumed per entry that is off cooldown.
func (s *Selector) Eligible(entries []ability.Entry, cooldown CooldownFunc, ctx condition.Context) []ability.Entry {
	var out []ability.Entry
	for _, e := range entries {
		if cooldown(e.ID) > 0 {
			continue
		}
		// draw is in [0,1), so Chance 0 never passes and Chance 1 always does.
		if s.src.Float64() >= e.Chance {
			continue
		}
		if !condition.All(e.Conditions, ctx) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Pool flattens eligible into a list where each entry occupies Weight slots.
func Pool(eligible []ability.Entry) []ability.Entry {
	n := 0
	for _, e := range eligible {
		n += e.Weight
	}
	pool := make([]ability.Entry, 0, n)
	for _, e := range eligible {
		for i := 0; i < e.Weight; i++ {
			pool = append(pool, e)
		}
	}
	return pool
}

// Pick draws one entry uniformly from the weighted pool built from eligible.
//
// Postcondition: Returns false iff the pool is empty.
func (s *Selector) Pick(eligible []ability.Entry) (ability.Entry, bool) {
	pool := Pool(eligible)
	if len(pool) == 0 {
		return ability.Entry{}, false
	}
	return pool[s.src.Intn(len(pool))], true
}

// Level draws the cast level for e from [MinLevel, MaxLevel].
func (s *Selector) Level(e ability.Entry) int {
	return dice.Between(s.src, e.MinLevel, e.MaxLevel)
}

// Cooldown draws the cooldown to arm for e from [MinCooldownTicks, MaxCooldownTicks].
func (s *Selector) Cooldown(e ability.Entry) int {
	return dice.Between(s.src, e.MinCooldownTicks, e.MaxCooldownTicks)
}

// Choose runs eligibility, the weighted draw, and the level draw.
//
// Postcondition: Returns false when no entry is eligible.
func (s *Selector) Choose(entries []ability.Entry, cooldown CooldownFunc, ctx condition.Context) (Choice, bool) {
	e, ok := s.Pick(s.Eligible(entries, cooldown, ctx))
	if !ok {
		return Choice{}, false
	}
	return Choice{Entry: e, Level: s.Level(e)}, true
}
