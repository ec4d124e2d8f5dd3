package engine

import (
	"github.com/cory-johannsen/spelledmobs/internal/game/ability"
	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
	"github.com/cory-johannsen/spelledmobs/internal/game/casting"
)

// AbilityStatus is one catalog entry as seen by a specific agent.
type AbilityStatus struct {
	Entry         ability.Entry
	CooldownTicks int
}

// Ready reports whether the ability is off cooldown.
func (s AbilityStatus) Ready() bool {
	return s.CooldownTicks == 0
}

// AgentReport describes an agent's abilities and engine state.
type AgentReport struct {
	ID                 agent.ID
	Type               string
	Alive              bool
	CheckIntervalTicks int
	Abilities          []AbilityStatus
	// Casting is nil when the agent is not casting.
	Casting *casting.State
	// Cooldowns includes abilities no longer in the catalog.
	Cooldowns map[string]int
}

// QueryAgent reports id's catalog abilities with their cooldowns and casting state.
//
// Postcondition: Returns false if the environment does not know id.
func (e *Engine) QueryAgent(id agent.ID) (AgentReport, bool) {
	facts, ok := e.env.AgentFacts(id)
	if !ok {
		return AgentReport{}, false
	}
	entries, interval := e.catalog.Load().Lookup(facts.Type)
	snap, _ := e.store.Snapshot(id)
	r := AgentReport{
		ID:                 id,
		Type:               facts.Type,
		Alive:              facts.Alive,
		CheckIntervalTicks: interval,
		Casting:            snap.Casting,
		Cooldowns:          snap.Cooldowns,
	}
	if r.Cooldowns == nil {
		r.Cooldowns = map[string]int{}
	}
	for _, en := range entries {
		r.Abilities = append(r.Abilities, AbilityStatus{Entry: en, CooldownTicks: r.Cooldowns[en.ID]})
	}
	return r, true
}
