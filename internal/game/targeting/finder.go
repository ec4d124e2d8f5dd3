// Package targeting selects the best target for a caster from the agents the
// environment reports nearby.
package targeting

import (
	"math"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
)

const (
	MinDistance         = 3.0
	MaxDistance         = 32.0
	MaxHeightDiff       = 8.0
	VisibilityThreshold = 0.5
	// DefaultSearchRadius is the horizontal half-extent of the search box.
	DefaultSearchRadius = 16.0
)

// Factors are the additive components of a candidate's priority.
type Factors struct {
	Health     float64
	Player     float64
	Threat     float64
	Armor      float64
	Speed      float64
	Height     float64
	Visibility float64
	Offense    float64
	Defense    float64
}

// Sum returns the total of all factors.
func (f Factors) Sum() float64 {
	return f.Health + f.Player + f.Threat + f.Armor + f.Speed + f.Height + f.Visibility + f.Offense + f.Defense
}

// Candidate is a target that passed every filter.
type Candidate struct {
	Facts    agent.Facts
	Distance float64
	Factors  Factors
	Priority float64
}

// Finder acquires targets through an Environment.
type Finder struct {
	env    agent.Environment
	logger *zap.Logger
	debug  func() bool
}

// NewFinder creates a Finder. Decision traces are logged only while debug reports true.
//
// Precondition: env and logger must be non-nil.
func NewFinder(env agent.Environment, logger *zap.Logger, debug func() bool) *Finder {
	if env == nil {
		panic("targeting.NewFinder: env must not be nil")
	}
	if logger == nil {
		panic("targeting.NewFinder: logger must not be nil")
	}
	if debug == nil {
		debug = func() bool { return false }
	}
	return &Finder{env: env, logger: logger, debug: debug}
}

// Find returns the highest-priority candidate around caster. Ties go to the
// candidate the environment reported first.
//
// Postcondition: Returns (zero, false) when caster is not alive or no candidate passes the filters.
func (f *Finder) Find(caster agent.Facts, searchRadius float64) (agent.Facts, bool) {
	if !caster.Alive {
		return agent.Facts{}, false
	}
	var (
		best  Candidate
		found bool
	)
	for _, c := range f.Candidates(caster, searchRadius) {
		if !found || c.Priority > best.Priority {
			best, found = c, true
		}
	}
	if !found {
		if f.debug() {
			f.logger.Debug("no target found", zap.Stringer("caster", caster.ID))
		}
		return agent.Facts{}, false
	}
	if f.debug() {
		f.logger.Debug("target selected",
			zap.Stringer("caster", caster.ID),
			zap.Stringer("target", best.Facts.ID),
			zap.Float64("distance", best.Distance),
			zap.Float64("priority", best.Priority),
		)
	}
	return best.Facts, true
}

// Candidates returns every agent in the search box that passes the filters,
// in environment order, with priorities computed.
func (f *Finder) Candidates(caster agent.Facts, searchRadius float64) []Candidate {
	half := agent.Vec3{X: searchRadius, Y: MaxHeightDiff, Z: searchRadius}
	ids := f.env.AgentsInBox(caster.Position.Sub(half), caster.Position.Add(half))
	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		if id == caster.ID {
			continue
		}
		target, ok := f.env.AgentFacts(id)
		if !ok || !target.Alive {
			continue
		}
		if !InViewRange(caster, target) {
			continue
		}
		factors := ComputeFactors(caster, target, f.env.LineOfSight(caster.ID, id))
		distance := caster.Position.DistanceTo(target.Position)
		c := Candidate{
			Facts:    target,
			Distance: distance,
			Factors:  factors,
			Priority: Priority(distance, factors),
		}
		if f.debug() {
			f.logger.Debug("target candidate",
				zap.Stringer("caster", caster.ID),
				zap.Stringer("target", id),
				zap.Float64("distance", distance),
				zap.Float64("health", factors.Health),
				zap.Float64("threat", factors.Threat),
				zap.Float64("visibility", factors.Visibility),
				zap.Float64("priority", c.Priority),
			)
		}
		out = append(out, c)
	}
	return out
}

// InViewRange reports whether target is within [MinDistance, MaxDistance], no
// more than MaxHeightDiff above or below, and inside caster's view cone.
func InViewRange(caster, target agent.Facts) bool {
	d := caster.Position.DistanceTo(target.Position)
	if d < MinDistance || d > MaxDistance {
		return false
	}
	if math.Abs(target.Position.Y-caster.Position.Y) > MaxHeightDiff {
		return false
	}
	return viewDot(caster, target) >= VisibilityThreshold
}

func viewDot(caster, target agent.Facts) float64 {
	dir := target.Position.Sub(caster.Position).Normalize()
	return caster.Look.Normalize().Dot(dir)
}

// Priority combines distance and factors: closer and higher-scoring targets rank first.
func Priority(distance float64, f Factors) float64 {
	return (1 / (distance + 1)) * (1 + f.Sum())
}

// ComputeFactors scores target from caster's point of view. los reports whether
// caster has line of sight to target.
func ComputeFactors(caster, target agent.Facts, los bool) Factors {
	var f Factors
	if target.MaxHealth > 0 {
		f.Health = 1 - target.Health/target.MaxHealth
	}
	if target.Privileged {
		f.Player = 0.5
		f.Threat += 0.3
	}
	attacksCaster := target.Attacking == caster.ID || caster.AttackedBy == target.ID
	attackedByCaster := caster.Attacking == target.ID
	if attacksCaster {
		f.Threat += 0.2
		f.Offense += 0.3
	}
	if attackedByCaster {
		f.Threat -= 0.1
		f.Offense -= 0.1
	}
	if target.EquipmentCount > 0 {
		f.Threat += 0.1
		f.Armor = 0.1 * float64(target.EquipmentCount)
	}
	if target.Velocity.Length() > 0.1 {
		f.Speed = 0.2
	}
	switch dy := target.Position.Y - caster.Position.Y; {
	case dy > 0:
		f.Height = 0.2
	case dy < 0:
		f.Height = -0.1
	}
	switch {
	case los:
		f.Visibility = 0.3
	case viewDot(caster, target) > VisibilityThreshold:
		f.Visibility = 0.1
	}
	if target.HeldItem != "" {
		f.Offense += 0.2
	}
	if target.Armor > 0 {
		f.Defense = math.Min(0.1*target.Armor, 0.3)
	}
	if target.OffhandItem != "" {
		f.Defense += 0.2
	}
	return f
}
