package testutil

import (
	"context"
	"sync"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
)

// Env is a scriptable agent.Environment for unit tests. Agents are reported in
// insertion order. Line of sight defaults to true.
type Env struct {
	mu      sync.Mutex
	order   []agent.ID
	facts   map[agent.ID]agent.Facts
	blocked map[[2]agent.ID]bool
	world   agent.WorldFacts
	// Succeed decides ExecuteAbility's result; nil means always succeed.
	Succeed func(agent.CastRequest) bool
	// Casts records every ExecuteAbility request.
	Casts []agent.CastRequest
}

// NewEnv returns an Env holding facts.
func NewEnv(facts ...agent.Facts) *Env {
	e := &Env{facts: make(map[agent.ID]agent.Facts), blocked: make(map[[2]agent.ID]bool)}
	for _, f := range facts {
		e.Put(f)
	}
	return e
}

// Put inserts or replaces f.
func (e *Env) Put(f agent.Facts) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.facts[f.ID]; !ok {
		e.order = append(e.order, f.ID)
	}
	e.facts[f.ID] = f
}

// Delete removes id.
func (e *Env) Delete(id agent.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.facts, id)
	for i, o := range e.order {
		if o == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// BlockSight makes LineOfSight(from, to) report false.
func (e *Env) BlockSight(from, to agent.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blocked[[2]agent.ID{from, to}] = true
}

// SetWorld replaces the world facts.
func (e *Env) SetWorld(w agent.WorldFacts) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.world = w
}

// CastCount returns the number of ExecuteAbility calls made.
func (e *Env) CastCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Casts)
}

func (e *Env) Agents() []agent.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]agent.ID(nil), e.order...)
}

func (e *Env) IsAgentValid(id agent.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.facts[id]
	return ok && f.Alive
}

func (e *Env) AgentFacts(id agent.ID) (agent.Facts, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.facts[id]
	return f, ok
}

func (e *Env) EnvironmentFacts() agent.WorldFacts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world
}

func (e *Env) AgentsInBox(min, max agent.Vec3) []agent.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []agent.ID
	for _, id := range e.order {
		p := e.facts[id].Position
		if p.X >= min.X && p.X <= max.X && p.Y >= min.Y && p.Y <= max.Y && p.Z >= min.Z && p.Z <= max.Z {
			out = append(out, id)
		}
	}
	return out
}

func (e *Env) LineOfSight(from, to agent.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.blocked[[2]agent.ID{from, to}]
}

func (e *Env) ExecuteAbility(_ context.Context, req agent.CastRequest) bool {
	e.mu.Lock()
	succeed := e.Succeed
	e.Casts = append(e.Casts, req)
	e.mu.Unlock()
	if succeed == nil {
		return true
	}
	return succeed(req)
}
