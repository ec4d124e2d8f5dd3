package condition

import (
	"math"
	"strconv"
	"strings"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
	"github.com/cory-johannsen/spelledmobs/internal/game/dice"
)

// Epsilon is the tolerance for numeric equality comparisons.
const Epsilon = 1e-3

// DefaultTargetCountRadius is the search radius for TargetCount when the spec
// carries no "radius" extra parameter.
const DefaultTargetCountRadius = 16.0

// ScriptCaller evaluates a named script hook as a boolean predicate.
type ScriptCaller interface {
	// CallCondition calls hook with the caster, optional target, and the spec's
	// extra parameters. An undefined hook reports (false, nil).
	CallCondition(hook string, caster agent.Facts, target *agent.Facts, extra map[string]string) (bool, error)
}

// Context is everything a condition may observe during one evaluation.
//
// Invariant: Rand must be non-nil when any RandomChance spec is evaluated.
type Context struct {
	Caster agent.Facts
	// Target is nil when no target was acquired.
	Target *agent.Facts
	World  agent.WorldFacts
	// Env answers spatial queries; TargetCount evaluates false when nil.
	Env  agent.Environment
	Rand dice.Source
	// Scripts backs Script specs; they evaluate false when nil.
	Scripts ScriptCaller
}

// All reports whether every spec in specs holds. An empty list always passes.
// Evaluation short-circuits on the first failing spec.
func All(specs []Spec, ctx Context) bool {
	for _, s := range specs {
		if !Evaluate(s, ctx) {
			return false
		}
	}
	return true
}

// Evaluate reports whether s holds in ctx. The raw result is XORed with s.Invert.
//
// Precondition: s must have passed Validate.
// Postcondition: No side effects beyond consuming randomness from ctx.Rand.
func Evaluate(s Spec, ctx Context) bool {
	return raw(s, ctx) != s.Invert
}

func raw(s Spec, ctx Context) bool {
	c := ctx.Caster
	switch s.Kind {
	case HealthPercentage:
		if c.MaxHealth <= 0 {
			return false
		}
		return compareNumeric(s.Operator, c.HealthPercent(), s.NumericValue)
	case HealthAbsolute:
		return compareNumeric(s.Operator, c.Health, s.NumericValue)
	case TargetDistance:
		if ctx.Target == nil {
			return false
		}
		return compareNumeric(s.Operator, c.Position.DistanceTo(ctx.Target.Position), s.NumericValue)
	case TargetHealth:
		if ctx.Target == nil {
			return false
		}
		return compareNumeric(s.Operator, ctx.Target.Health, s.NumericValue)
	case TargetType:
		if ctx.Target == nil {
			return false
		}
		return compareString(s.Operator, ctx.Target.Type, s.Value)
	case EntityName:
		return compareString(s.Operator, c.Name, s.Value)
	case HeldItem:
		if c.HeldItem == "" {
			return false
		}
		return compareString(s.Operator, c.HeldItem, s.Value)
	case TimeOfDay:
		return compareNumeric(s.Operator, float64(ctx.World.TimeOfDay), s.NumericValue)
	case Weather:
		return compareString(s.Operator, string(ctx.World.Weather), s.Value)
	case MoonPhase:
		return compareNumeric(s.Operator, float64(ctx.World.MoonPhase), s.NumericValue)
	case Biome:
		if c.Biome == "" {
			return false
		}
		return compareString(s.Operator, c.Biome, s.Value)
	case LightLevel:
		return compareNumeric(s.Operator, float64(c.LightLevel), s.NumericValue)
	case Height:
		return compareNumeric(s.Operator, c.Position.Y, s.NumericValue)
	case IsInWater:
		return c.InWater
	case IsOnFire:
		return c.OnFire
	case IsSneaking:
		return c.Sneaking
	case IsSprinting:
		return c.Sprinting
	case StatusEffect:
		return statusEffect(s, c)
	case ArmorValue:
		return compareNumeric(s.Operator, c.Armor, s.NumericValue)
	case LastDamageSource:
		if c.LastDamageSource == "" {
			return false
		}
		return compareString(s.Operator, c.LastDamageSource, s.Value)
	case TargetCount:
		return targetCount(s, ctx)
	case RandomChance:
		return compareNumeric(s.Operator, dice.Percent(ctx.Rand), s.NumericValue)
	case Expression:
		return evalExpression(s, ctx)
	case Script:
		if ctx.Scripts == nil {
			return false
		}
		ok, err := ctx.Scripts.CallCondition(s.Value, c, ctx.Target, s.Extra)
		return err == nil && ok
	default:
		return false
	}
}

func statusEffect(s Spec, c agent.Facts) bool {
	amp, ok := c.StatusEffects[s.Value]
	if !ok {
		return false
	}
	if s.Operator == Equals || s.Operator == NotEquals {
		return true
	}
	return compareNumeric(s.Operator, float64(amp+1), s.NumericValue)
}

func targetCount(s Spec, ctx Context) bool {
	if ctx.Env == nil {
		return false
	}
	radius := DefaultTargetCountRadius
	if raw, ok := s.Extra["radius"]; ok {
		if r, err := strconv.ParseFloat(raw, 64); err == nil && r > 0 {
			radius = r
		}
	}
	wantType := s.Extra["target_type"]
	half := agent.Vec3{X: radius, Y: radius, Z: radius}
	pos := ctx.Caster.Position
	count := 0
	for _, id := range ctx.Env.AgentsInBox(pos.Sub(half), pos.Add(half)) {
		if id == ctx.Caster.ID {
			continue
		}
		f, ok := ctx.Env.AgentFacts(id)
		if !ok || !f.Alive {
			continue
		}
		if wantType != "" && f.Type != wantType {
			continue
		}
		count++
	}
	return compareNumeric(s.Operator, float64(count), s.NumericValue)
}

func compareNumeric(op Operator, actual, expected float64) bool {
	switch op {
	case Equals:
		return math.Abs(actual-expected) < Epsilon
	case NotEquals:
		return math.Abs(actual-expected) >= Epsilon
	case GreaterThan:
		return actual > expected
	case LessThan:
		return actual < expected
	case GreaterThanOrEquals:
		return actual >= expected
	case LessThanOrEquals:
		return actual <= expected
	default:
		return false
	}
}

func compareString(op Operator, actual, expected string) bool {
	switch op {
	case Equals:
		return actual == expected
	case NotEquals:
		return actual != expected
	case Contains:
		return strings.Contains(actual, expected)
	case StartsWith:
		return strings.HasPrefix(actual, expected)
	case EndsWith:
		return strings.HasSuffix(actual, expected)
	default:
		return false
	}
}
