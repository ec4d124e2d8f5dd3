// Package casting tracks per-agent cooldowns and the single casting slot that
// marks an agent as committed to a durational ability.
package casting

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
)

// State records an in-progress durational cast.
type State struct {
	AbilityID     string
	Level         int
	StartTick     uint64
	DurationTicks int
}

// Elapsed returns the ticks since the cast began, or 0 if now precedes StartTick.
func (s State) Elapsed(now uint64) uint64 {
	if now < s.StartTick {
		return 0
	}
	return now - s.StartTick
}

// Done reports whether the cast has run its full duration at tick now.
func (s State) Done(now uint64) bool {
	return s.Elapsed(now) >= uint64(s.DurationTicks)
}

// Snapshot is a copy of one agent's state for reporting.
type Snapshot struct {
	// Cooldowns maps ability id to remaining ticks; never contains zero values.
	Cooldowns map[string]int
	// Casting is nil when the agent is not casting.
	Casting *State
}

type agentState struct {
	mu        sync.Mutex
	cooldowns map[string]int
	casting   *State // single slot
}

// Store holds cooldown and casting state for every known agent.
// All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	agents map[agent.ID]*agentState
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{agents: make(map[agent.ID]*agentState)}
}

func (s *Store) lookup(id agent.ID) (*agentState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.agents[id]
	return st, ok
}

func (s *Store) ensure(id agent.ID) *agentState {
	if st, ok := s.lookup(id); ok {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.agents[id]
	if !ok {
		st = &agentState{cooldowns: make(map[string]int)}
		s.agents[id] = st
	}
	return st
}

// Advance moves id's state forward one tick: every cooldown decrements by one
// and is removed on reaching zero, and a casting state that is done at now is cleared.
//
// Postcondition: Returns true iff id is still casting at tick now.
func (s *Store) Advance(id agent.ID, now uint64) bool {
	st, ok := s.lookup(id)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	for ability, remaining := range st.cooldowns {
		if remaining <= 1 {
			delete(st.cooldowns, ability)
			continue
		}
		st.cooldowns[ability] = remaining - 1
	}
	if st.casting != nil && st.casting.Done(now) {
		st.casting = nil
	}
	return st.casting != nil
}

// Cooldown returns the remaining cooldown ticks of abilityID for id; 0 means ready.
func (s *Store) Cooldown(id agent.ID, abilityID string) int {
	st, ok := s.lookup(id)
	if !ok {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cooldowns[abilityID]
}

// ArmCooldown puts abilityID on cooldown for ticks ticks, replacing any existing value.
//
// Precondition: ticks >= 1.
func (s *Store) ArmCooldown(id agent.ID, abilityID string, ticks int) {
	if ticks < 1 {
		panic(fmt.Sprintf("casting.Store.ArmCooldown: ticks must be >= 1, got %d", ticks))
	}
	st := s.ensure(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.cooldowns[abilityID] = ticks
}

// BeginCasting occupies id's casting slot with cs, replacing any existing cast.
//
// Precondition: cs.DurationTicks >= 1.
func (s *Store) BeginCasting(id agent.ID, cs State) {
	if cs.DurationTicks < 1 {
		panic(fmt.Sprintf("casting.Store.BeginCasting: duration must be >= 1, got %d", cs.DurationTicks))
	}
	st := s.ensure(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.casting = &cs
}

// Casting returns id's casting state, if any.
func (s *Store) Casting(id agent.ID) (State, bool) {
	st, ok := s.lookup(id)
	if !ok {
		return State{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.casting == nil {
		return State{}, false
	}
	return *st.casting, true
}

// ClearCasting empties id's casting slot and reports whether it was occupied.
func (s *Store) ClearCasting(id agent.ID) bool {
	st, ok := s.lookup(id)
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	was := st.casting != nil
	st.casting = nil
	return was
}

// Remove discards all state for id.
func (s *Store) Remove(id agent.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.agents, id)
}

// ClearAll discards all state for every agent.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents = make(map[agent.ID]*agentState)
}

// Agents returns the ids with stored state, sorted for stable iteration.
func (s *Store) Agents() []agent.ID {
	s.mu.RLock()
	out := make([]agent.ID, 0, len(s.agents))
	for id := range s.agents {
		out = append(out, id)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Snapshot returns a copy of id's state.
//
// Postcondition: Returns (zero, false) if id has no stored state.
func (s *Store) Snapshot(id agent.ID) (Snapshot, bool) {
	st, ok := s.lookup(id)
	if !ok {
		return Snapshot{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	snap := Snapshot{Cooldowns: make(map[string]int, len(st.cooldowns))}
	for k, v := range st.cooldowns {
		snap.Cooldowns[k] = v
	}
	if st.casting != nil {
		cs := *st.casting
		snap.Casting = &cs
	}
	return snap, true
}
