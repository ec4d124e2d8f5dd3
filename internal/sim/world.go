// Package sim provides an in-memory agent.Environment used to run the engine
// without a host runtime: an ordered agent registry, a day/weather clock, and
// a cast log.
package sim

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
)

const (
	// MinCastDistance and MaxCastDistance bound the caster-target distance
	// ExecuteAbility accepts.
	MinCastDistance = 1.0
	MaxCastDistance = 64.0
)

// Cast is one accepted ExecuteAbility request.
type Cast struct {
	Tick    uint64
	Request agent.CastRequest
}

// DepartureFunc is notified after an agent is removed from the world.
type DepartureFunc func(id agent.ID)

// World is an in-memory agent.Environment. Agents are iterated in spawn order.
// All methods are safe for concurrent use.
type World struct {
	mu         sync.RWMutex
	order      []agent.ID
	agents     map[agent.ID]*agent.Facts
	blocked    map[[2]agent.ID]bool
	casts      []Cast
	tick       uint64
	departures []DepartureFunc
	castFilter func(agent.CastRequest) bool
	clock      *Clock
	logger     *zap.Logger
}

// NewWorld creates an empty World.
//
// Precondition: clock and logger must be non-nil.
func NewWorld(clock *Clock, logger *zap.Logger) *World {
	if clock == nil {
		panic("sim.NewWorld: clock must not be nil")
	}
	if logger == nil {
		panic("sim.NewWorld: logger must not be nil")
	}
	return &World{
		agents:  make(map[agent.ID]*agent.Facts),
		blocked: make(map[[2]agent.ID]bool),
		clock:   clock,
		logger:  logger,
	}
}

// Clock returns the world clock.
func (w *World) Clock() *Clock {
	return w.clock
}

// Spawn adds a new agent built from tmpl.
//
// Precondition: tmpl must be non-nil and valid.
// Postcondition: Returns the new agent's facts; it is last in iteration order.
func (w *World) Spawn(tmpl *Template, pos, look agent.Vec3) (agent.Facts, error) {
	if tmpl == nil {
		return agent.Facts{}, fmt.Errorf("sim.World.Spawn: tmpl must not be nil")
	}
	if err := tmpl.Validate(); err != nil {
		return agent.Facts{}, err
	}
	f := tmpl.Facts(agent.NewID(), pos, look)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.agents[f.ID] = &f
	w.order = append(w.order, f.ID)
	return f, nil
}

// Populate spawns every spawn point in p.
//
// Postcondition: Returns the ids spawned, in order.
func (w *World) Populate(p *Population) ([]agent.ID, error) {
	var ids []agent.ID
	for i, s := range p.Spawns {
		tmpl, ok := p.Template(s.Template)
		if !ok {
			return ids, fmt.Errorf("spawn %d: unknown template %q", i, s.Template)
		}
		for n := 0; n < s.Count; n++ {
			pos := s.Position.Add(agent.Vec3{X: float64(n) * s.Spacing})
			f, err := w.Spawn(tmpl, pos, s.Look)
			if err != nil {
				return ids, fmt.Errorf("spawn %d: %w", i, err)
			}
			ids = append(ids, f.ID)
		}
	}
	return ids, nil
}

// Remove deletes id and notifies departure listeners.
//
// Postcondition: Returns an error if id is not found.
func (w *World) Remove(id agent.ID) error {
	w.mu.Lock()
	if _, ok := w.agents[id]; !ok {
		w.mu.Unlock()
		return fmt.Errorf("agent %s not found", id)
	}
	delete(w.agents, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	listeners := append([]DepartureFunc(nil), w.departures...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(id)
	}
	return nil
}

// OnDeparture registers fn to be called after every Remove.
func (w *World) OnDeparture(fn DepartureFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.departures = append(w.departures, fn)
}

// Update applies fn to id's facts under the world lock.
//
// Precondition: fn must not retain the pointer or change the ID.
func (w *World) Update(id agent.ID, fn func(f *agent.Facts)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.agents[id]
	if !ok {
		return fmt.Errorf("agent %s not found", id)
	}
	fn(f)
	return nil
}

// BlockSight makes LineOfSight(from, to) report false until UnblockSight.
func (w *World) BlockSight(from, to agent.ID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.blocked[[2]agent.ID{from, to}] = true
}

// UnblockSight restores line of sight from from to to.
func (w *World) UnblockSight(from, to agent.ID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.blocked, [2]agent.ID{from, to})
}

// SetCastFilter installs fn to veto cast requests; nil accepts every valid request.
func (w *World) SetCastFilter(fn func(agent.CastRequest) bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.castFilter = fn
}

// Casts returns a copy of the cast log.
func (w *World) Casts() []Cast {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]Cast(nil), w.casts...)
}

// Tick advances the clock one tick and moves every agent by its velocity.
func (w *World) Tick(_ context.Context, tick uint64) {
	w.clock.Advance(1)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tick = tick
	for _, id := range w.order {
		f := w.agents[id]
		if f.Alive {
			f.Position = f.Position.Add(f.Velocity)
		}
	}
}

// Agents returns every agent id in spawn order.
func (w *World) Agents() []agent.ID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]agent.ID(nil), w.order...)
}

// IsAgentValid reports whether id exists and is alive.
func (w *World) IsAgentValid(id agent.ID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.agents[id]
	return ok && f.Alive
}

// AgentFacts returns a copy of id's facts.
func (w *World) AgentFacts(id agent.ID) (agent.Facts, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	f, ok := w.agents[id]
	if !ok {
		return agent.Facts{}, false
	}
	out := *f
	out.StatusEffects = make(map[string]int, len(f.StatusEffects))
	for k, v := range f.StatusEffects {
		out.StatusEffects[k] = v
	}
	return out, true
}

// EnvironmentFacts returns the clock's current facts.
func (w *World) EnvironmentFacts() agent.WorldFacts {
	return w.clock.Facts()
}

// AgentsInBox returns, in spawn order, the agents whose position lies in [min, max].
func (w *World) AgentsInBox(min, max agent.Vec3) []agent.ID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []agent.ID
	for _, id := range w.order {
		p := w.agents[id].Position
		if p.X >= min.X && p.X <= max.X &&
			p.Y >= min.Y && p.Y <= max.Y &&
			p.Z >= min.Z && p.Z <= max.Z {
			out = append(out, id)
		}
	}
	return out
}

// LineOfSight reports false only for pairs blocked with BlockSight.
func (w *World) LineOfSight(from, to agent.ID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.blocked[[2]agent.ID{from, to}]
}

// ExecuteAbility accepts a request whose caster is alive and whose target, if
// any, is alive and within [MinCastDistance, MaxCastDistance] of the caster.
// Accepted requests are appended to the cast log.
func (w *World) ExecuteAbility(_ context.Context, req agent.CastRequest) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	caster, ok := w.agents[req.Caster]
	if !ok || !caster.Alive {
		return false
	}
	if req.Target != agent.None {
		target, ok := w.agents[req.Target]
		if !ok || !target.Alive {
			return false
		}
		d := caster.Position.DistanceTo(target.Position)
		if d < MinCastDistance || d > MaxCastDistance {
			return false
		}
	}
	if w.castFilter != nil && !w.castFilter(req) {
		return false
	}
	w.casts = append(w.casts, Cast{Tick: w.tick, Request: req})
	if req.ShowEffects {
		w.logger.Info("cast effect",
			zap.Stringer("caster", req.Caster),
			zap.String("ability", req.AbilityID),
			zap.Int("level", req.Level),
		)
	}
	return true
}
