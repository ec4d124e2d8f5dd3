// Package condition implements the condition sublanguage attached to ability
// entries: a closed set of condition kinds, a comparison-operator vocabulary,
// and a pure evaluator over an evaluation Context.
package condition

import (
	"fmt"
	"strings"
)

// Kind identifies a condition variant. The set is closed; Evaluate dispatches
// on it with a single switch.
type Kind string

const (
	HealthPercentage Kind = "health_percentage"
	HealthAbsolute   Kind = "health_absolute"
	TargetDistance   Kind = "target_distance"
	TargetHealth     Kind = "target_health"
	TargetType       Kind = "target_type"
	EntityName       Kind = "entity_name"
	HeldItem         Kind = "held_item"
	TimeOfDay        Kind = "time_of_day"
	Weather          Kind = "weather"
	MoonPhase        Kind = "moon_phase"
	Biome            Kind = "biome"
	LightLevel       Kind = "light_level"
	Height           Kind = "height"
	IsInWater        Kind = "is_in_water"
	IsOnFire         Kind = "is_on_fire"
	IsSneaking       Kind = "is_sneaking"
	IsSprinting      Kind = "is_sprinting"
	StatusEffect     Kind = "status_effect"
	ArmorValue       Kind = "armor_value"
	LastDamageSource Kind = "last_damage_source"
	TargetCount      Kind = "target_count"
	RandomChance     Kind = "random_chance"
	Expression       Kind = "expression"
	Script           Kind = "script"
)

// Kinds lists every supported Kind in declaration order.
var Kinds = []Kind{
	HealthPercentage, HealthAbsolute, TargetDistance, TargetHealth, TargetType,
	EntityName, HeldItem, TimeOfDay, Weather, MoonPhase, Biome, LightLevel,
	Height, IsInWater, IsOnFire, IsSneaking, IsSprinting, StatusEffect,
	ArmorValue, LastDamageSource, TargetCount, RandomChance, Expression, Script,
}

var kindAliases = map[string]Kind{
	"weather_state": Weather,
	"expr":          Expression,
	"lua":           Script,
}

// ParseKind resolves a serialized condition type name. Matching is
// case-insensitive and accepts '-' in place of '_'.
//
// Postcondition: Returns a member of Kinds or an error.
func ParseKind(s string) (Kind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range Kinds {
		if string(k) == norm {
			return k, nil
		}
	}
	if k, ok := kindAliases[norm]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown condition type %q", s)
}

// Operator is a comparison operator.
type Operator string

const (
	Equals              Operator = "equals"
	NotEquals           Operator = "not_equals"
	GreaterThan         Operator = "greater_than"
	LessThan            Operator = "less_than"
	GreaterThanOrEquals Operator = "greater_than_or_equals"
	LessThanOrEquals    Operator = "less_than_or_equals"
	Contains            Operator = "contains"
	StartsWith          Operator = "starts_with"
	EndsWith            Operator = "ends_with"
)

var operatorAliases = map[string]Operator{
	"equals": Equals, "eq": Equals, "==": Equals, "=": Equals,
	"not_equals": NotEquals, "ne": NotEquals, "!=": NotEquals,
	"greater_than": GreaterThan, "gt": GreaterThan, ">": GreaterThan,
	"less_than": LessThan, "lt": LessThan, "<": LessThan,
	"greater_than_or_equals": GreaterThanOrEquals, "gte": GreaterThanOrEquals, ">=": GreaterThanOrEquals,
	"less_than_or_equals": LessThanOrEquals, "lte": LessThanOrEquals, "<=": LessThanOrEquals,
	"contains":    Contains,
	"starts_with": StartsWith,
	"ends_with":   EndsWith,
}

// ParseOperator resolves a serialized operator name. An empty string yields Equals.
func ParseOperator(s string) (Operator, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if norm == "" {
		return Equals, nil
	}
	if op, ok := operatorAliases[norm]; ok {
		return op, nil
	}
	return "", fmt.Errorf("unknown comparison operator %q", s)
}

// Spec is one condition attached to an ability entry. Specs are plain data:
// immutable once loaded and safe to share between goroutines.
type Spec struct {
	Kind         Kind              `yaml:"type" json:"type"`
	Operator     Operator          `yaml:"operator,omitempty" json:"operator,omitempty"`
	Value        string            `yaml:"value,omitempty" json:"value,omitempty"`
	NumericValue float64           `yaml:"numericValue,omitempty" json:"numericValue,omitempty"`
	Invert       bool              `yaml:"invert,omitempty" json:"invert,omitempty"`
	Extra        map[string]string `yaml:"extra,omitempty" json:"extra,omitempty"`
}

// Normalize returns s with canonical kind and operator names and an empty Extra
// collapsed to nil.
//
// Postcondition: Returns a Spec that passes Validate, or an error.
func (s Spec) Normalize() (Spec, error) {
	k, err := ParseKind(string(s.Kind))
	if err != nil {
		return Spec{}, err
	}
	op, err := ParseOperator(string(s.Operator))
	if err != nil {
		return Spec{}, err
	}
	out := s
	out.Kind = k
	out.Operator = op
	if k == Weather && strings.EqualFold(out.Value, "storm") {
		out.Value = "thunder"
	}
	if len(s.Extra) == 0 {
		out.Extra = nil
	} else {
		out.Extra = make(map[string]string, len(s.Extra))
		for key, v := range s.Extra {
			out.Extra[key] = v
		}
	}
	if err := out.Validate(); err != nil {
		return Spec{}, err
	}
	return out, nil
}

// Validate checks that s is evaluable.
//
// Postcondition: nil return guarantees a known kind, a known operator applicable
// to the kind's operand type, and a compilable expression for Expression specs.
func (s Spec) Validate() error {
	if _, err := ParseKind(string(s.Kind)); err != nil {
		return err
	}
	if _, err := ParseOperator(string(s.Operator)); err != nil {
		return err
	}
	switch s.Kind {
	case TargetType, EntityName, HeldItem, Weather, Biome, LastDamageSource:
		if s.Value == "" {
			return fmt.Errorf("condition %s: value must not be empty", s.Kind)
		}
	case StatusEffect:
		if s.Value == "" {
			return fmt.Errorf("condition %s: value must name a status effect", s.Kind)
		}
	case Script:
		if s.Value == "" {
			return fmt.Errorf("condition %s: value must name a hook function", s.Kind)
		}
	case Expression:
		if _, err := compileExpression(s.Value); err != nil {
			return fmt.Errorf("condition %s: %w", s.Kind, err)
		}
	default:
		if isStringOperator(s.Operator) {
			return fmt.Errorf("condition %s: operator %s requires a string operand", s.Kind, s.Operator)
		}
	}
	return nil
}

func isStringOperator(op Operator) bool {
	return op == Contains || op == StartsWith || op == EndsWith
}
