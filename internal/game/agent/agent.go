// Package agent defines the read-only facts the ability engine consumes about
// simulated agents and the capability boundary to the environment that owns them.
package agent

import (
	"context"

	"github.com/google/uuid"
)

// ID is the stable key of an agent. Engine state is indexed by ID, never by
// object identity.
type ID = uuid.UUID

// None is the zero ID, used where a target is absent.
var None = uuid.Nil

// NewID returns a fresh random agent ID.
func NewID() ID {
	return uuid.New()
}

// Weather is the environment's discretized weather state.
type Weather string

const (
	WeatherClear   Weather = "clear"
	WeatherRain    Weather = "rain"
	WeatherThunder Weather = "thunder"
)

// Facts is a snapshot of one agent's state as reported by the environment.
type Facts struct {
	ID   ID
	Type string
	Name string
	// Alive is false for removed or dead agents.
	Alive     bool
	Health    float64
	MaxHealth float64
	Position  Vec3
	// Look is the agent's facing direction; it need not be normalized.
	Look     Vec3
	Velocity Vec3
	// EquipmentCount is the number of occupied armor slots.
	EquipmentCount int
	// Armor is the agent's total armor value.
	Armor       float64
	HeldItem    string
	OffhandItem string
	// Privileged marks player-controlled agents.
	Privileged bool
	// Attacking is the agent this agent is currently attacking, or None.
	Attacking ID
	// AttackedBy is the agent that last attacked this agent, or None.
	AttackedBy       ID
	StatusEffects    map[string]int // effect id → amplifier (0-based)
	InWater          bool
	OnFire           bool
	Sneaking         bool
	Sprinting        bool
	LastDamageSource string
	Biome            string
	LightLevel       int
}

// HealthPercent returns Health/MaxHealth×100, or 0 when MaxHealth is not positive.
func (f Facts) HealthPercent() float64 {
	if f.MaxHealth <= 0 {
		return 0
	}
	return f.Health / f.MaxHealth * 100
}

// WorldFacts is a snapshot of environment-wide state.
type WorldFacts struct {
	// TimeOfDay is a cyclic counter whose range is known to the environment.
	TimeOfDay int64
	Weather   Weather
	MoonPhase int
}

// CastRequest asks the environment to perform an ability's visible effect.
type CastRequest struct {
	Caster    ID
	Target    ID // None when the ability has no target
	AbilityID string
	Level     int
	// ShowEffects mirrors the engine's debug flag for visual feedback.
	ShowEffects bool
}

// Environment is the capability boundary between the engine and the runtime
// that owns agents. The engine only reads facts and requests executions.
//
// Implementations must return agents in a fixed iteration order from Agents and
// AgentsInBox; target tie-breaking depends on it.
type Environment interface {
	// Agents returns every agent the engine should consider this tick.
	Agents() []ID
	// IsAgentValid reports whether id refers to a live agent.
	IsAgentValid(id ID) bool
	// AgentFacts returns the facts for id, or false if it is unknown.
	AgentFacts(id ID) (Facts, bool)
	// EnvironmentFacts returns the world-wide facts.
	EnvironmentFacts() WorldFacts
	// AgentsInBox returns agents whose positions lie inside the axis-aligned box [min, max].
	AgentsInBox(min, max Vec3) []ID
	// LineOfSight reports whether from can see to.
	LineOfSight(from, to ID) bool
	// ExecuteAbility performs the ability and reports success.
	ExecuteAbility(ctx context.Context, req CastRequest) bool
}
