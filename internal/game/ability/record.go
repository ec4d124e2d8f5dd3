package ability

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/spelledmobs/internal/game/condition"
)

// Record is the serialized form of one agent type's catalog section. Pointer
// fields distinguish an omitted value, which takes its default, from an
// explicit one, which is validated as given.
type Record struct {
	AgentType          string          `yaml:"agentType" json:"agentType"`
	CheckIntervalTicks *int            `yaml:"checkIntervalTicks,omitempty" json:"checkIntervalTicks,omitempty"`
	Abilities          []AbilityRecord `yaml:"abilities" json:"abilities"`
}

// AbilityRecord is the serialized form of an Entry.
type AbilityRecord struct {
	ID                  string           `yaml:"id" json:"id"`
	MinLevel            *int             `yaml:"minLevel,omitempty" json:"minLevel,omitempty"`
	MaxLevel            *int             `yaml:"maxLevel,omitempty" json:"maxLevel,omitempty"`
	MinCooldownTicks    *int             `yaml:"minCooldownTicks,omitempty" json:"minCooldownTicks,omitempty"`
	MaxCooldownTicks    *int             `yaml:"maxCooldownTicks,omitempty" json:"maxCooldownTicks,omitempty"`
	Weight              *int             `yaml:"weight,omitempty" json:"weight,omitempty"`
	Chance              *float64         `yaml:"chance,omitempty" json:"chance,omitempty"`
	ActionDurationTicks *int             `yaml:"actionDurationTicks,omitempty" json:"actionDurationTicks,omitempty"`
	Conditions          []condition.Spec `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

// UnmarshalRecord parses a record from YAML or JSON bytes.
//
// Postcondition: Returns the decoded record without applying defaults, or an
// error. Unknown fields are ignored.
func UnmarshalRecord(data []byte) (Record, error) {
	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("parsing ability record: %w", err)
	}
	return r, nil
}

// MarshalRecord encodes r as YAML.
func MarshalRecord(r Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encoding ability record: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding ability record: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalRecordJSON encodes r as indented JSON.
func MarshalRecordJSON(r Record) ([]byte, error) {
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding ability record: %w", err)
	}
	return out, nil
}

// ToRecord converts a catalog section back to its serialized form with every
// field explicit.
func ToRecord(agentType string, s AgentAbilities) Record {
	interval := s.CheckIntervalTicks
	r := Record{AgentType: agentType, CheckIntervalTicks: &interval}
	for _, e := range s.Abilities {
		r.Abilities = append(r.Abilities, AbilityRecord{
			ID:                  e.ID,
			MinLevel:            &e.MinLevel,
			MaxLevel:            &e.MaxLevel,
			MinCooldownTicks:    &e.MinCooldownTicks,
			MaxCooldownTicks:    &e.MaxCooldownTicks,
			Weight:              &e.Weight,
			Chance:              &e.Chance,
			ActionDurationTicks: &e.ActionDurationTicks,
			Conditions:          append([]condition.Spec(nil), e.Conditions...),
		})
	}
	return r
}

// ToEntry applies defaults to a, qualifies its id with namespace, and validates it.
//
// Postcondition: Returns a valid Entry or an error describing why a was rejected.
func (a AbilityRecord) ToEntry(namespace string) (Entry, error) {
	e := Entry{
		ID:               QualifyID(a.ID, namespace),
		MinLevel:         intOr(a.MinLevel, DefaultMinLevel),
		MinCooldownTicks: intOr(a.MinCooldownTicks, DefaultMinCooldownTicks),
		Weight:           intOr(a.Weight, DefaultWeight),
		Chance:           DefaultChance,
	}
	if e.ID == "" {
		return Entry{}, errors.New("ability id must not be empty")
	}
	// An omitted upper bound never undercuts an explicit lower bound.
	e.MaxLevel = intOr(a.MaxLevel, max(DefaultMaxLevel, e.MinLevel))
	e.MaxCooldownTicks = intOr(a.MaxCooldownTicks, max(DefaultMaxCooldownTicks, e.MinCooldownTicks))
	if a.Chance != nil {
		e.Chance = *a.Chance
	}
	e.ActionDurationTicks = intOr(a.ActionDurationTicks, 0)
	for i, raw := range a.Conditions {
		spec, err := raw.Normalize()
		if err != nil {
			return Entry{}, fmt.Errorf("ability %q: condition %d: %w", e.ID, i, err)
		}
		e.Conditions = append(e.Conditions, spec)
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// Build assembles a catalog from records. Invalid ability entries and invalid
// records are dropped and reported; building continues with the rest.
//
// Postcondition: The catalog contains only agent types with at least one valid
// ability. The first record for an agent type wins; within a record the first
// entry for an ability id wins.
func Build(records []Record, namespace string) (*Catalog, []error) {
	var warnings []error
	sections := make(map[string]AgentAbilities, len(records))
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if r.AgentType == "" {
			warnings = append(warnings, errors.New("ability record: agentType must not be empty"))
			continue
		}
		if seen[r.AgentType] {
			warnings = append(warnings, fmt.Errorf("ability record %q: duplicate agent type ignored", r.AgentType))
			continue
		}
		seen[r.AgentType] = true
		interval := intOr(r.CheckIntervalTicks, DefaultCheckIntervalTicks)
		if interval < 1 {
			warnings = append(warnings, fmt.Errorf("ability record %q: checkIntervalTicks must be >= 1", r.AgentType))
			continue
		}
		section := AgentAbilities{CheckIntervalTicks: interval}
		ids := make(map[string]bool, len(r.Abilities))
		for _, a := range r.Abilities {
			e, err := a.ToEntry(namespace)
			if err != nil {
				warnings = append(warnings, fmt.Errorf("ability record %q: %w", r.AgentType, err))
				continue
			}
			if ids[e.ID] {
				warnings = append(warnings, fmt.Errorf("ability record %q: duplicate ability %q ignored", r.AgentType, e.ID))
				continue
			}
			ids[e.ID] = true
			section.Abilities = append(section.Abilities, e)
		}
		if len(section.Abilities) == 0 {
			warnings = append(warnings, fmt.Errorf("ability record %q: no valid abilities", r.AgentType))
			continue
		}
		sections[r.AgentType] = section
	}
	return NewCatalog(sections), warnings
}
