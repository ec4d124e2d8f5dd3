package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
)

// Template is a reusable agent archetype loaded from YAML.
type Template struct {
	Type           string  `yaml:"type"`
	Name           string  `yaml:"name"`
	MaxHealth      float64 `yaml:"max_health"`
	Privileged     bool    `yaml:"privileged"`
	EquipmentCount int     `yaml:"equipment_count"`
	Armor          float64 `yaml:"armor"`
	HeldItem       string  `yaml:"held_item"`
	OffhandItem    string  `yaml:"offhand_item"`
	Biome          string  `yaml:"biome"`
	LightLevel     int     `yaml:"light_level"`
}

// Validate checks that the template satisfies basic invariants.
//
// Postcondition: Returns nil iff Type is non-empty, MaxHealth > 0,
// EquipmentCount in [0,4], and Armor >= 0.
func (t *Template) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("agent template: type must not be empty")
	}
	if t.MaxHealth <= 0 {
		return fmt.Errorf("agent template %q: max_health must be > 0", t.Type)
	}
	if t.EquipmentCount < 0 || t.EquipmentCount > 4 {
		return fmt.Errorf("agent template %q: equipment_count must be in [0,4]", t.Type)
	}
	if t.Armor < 0 {
		return fmt.Errorf("agent template %q: armor must be >= 0", t.Type)
	}
	return nil
}

// Facts returns fresh facts for a new agent of this template.
func (t *Template) Facts(id agent.ID, pos, look agent.Vec3) agent.Facts {
	name := t.Name
	if name == "" {
		name = t.Type
	}
	return agent.Facts{
		ID:             id,
		Type:           t.Type,
		Name:           name,
		Alive:          true,
		Health:         t.MaxHealth,
		MaxHealth:      t.MaxHealth,
		Position:       pos,
		Look:           look,
		EquipmentCount: t.EquipmentCount,
		Armor:          t.Armor,
		HeldItem:       t.HeldItem,
		OffhandItem:    t.OffhandItem,
		Privileged:     t.Privileged,
		StatusEffects:  map[string]int{},
		Biome:          t.Biome,
		LightLevel:     t.LightLevel,
	}
}

// SpawnPoint places Count agents of Template starting at Position, spaced
// Spacing apart along X.
type SpawnPoint struct {
	Template string     `yaml:"template"`
	Position agent.Vec3 `yaml:"position"`
	Look     agent.Vec3 `yaml:"look"`
	Count    int        `yaml:"count"`
	Spacing  float64    `yaml:"spacing"`
}

// Population is a set of templates and the spawn points that use them.
type Population struct {
	Templates []*Template  `yaml:"templates"`
	Spawns    []SpawnPoint `yaml:"spawns"`
}

// Validate checks every template and that every spawn point names a known template.
func (p *Population) Validate() error {
	known := make(map[string]bool, len(p.Templates))
	for _, t := range p.Templates {
		if err := t.Validate(); err != nil {
			return err
		}
		if known[t.Type] {
			return fmt.Errorf("agent template %q: duplicate type", t.Type)
		}
		known[t.Type] = true
	}
	for i, s := range p.Spawns {
		if !known[s.Template] {
			return fmt.Errorf("spawn %d: unknown template %q", i, s.Template)
		}
		if s.Count < 0 {
			return fmt.Errorf("spawn %d: count must be >= 0", i)
		}
	}
	return nil
}

// Template returns the template for typ.
func (p *Population) Template(typ string) (*Template, bool) {
	for _, t := range p.Templates {
		if t.Type == typ {
			return t, true
		}
	}
	return nil, false
}

// LoadPopulationFromBytes parses and validates a population from YAML.
func LoadPopulationFromBytes(data []byte) (*Population, error) {
	var p Population
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing population YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPopulation reads a population file.
//
// Precondition: path must name a readable YAML file.
func LoadPopulation(path string) (*Population, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading population %q: %w", path, err)
	}
	p, err := LoadPopulationFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return p, nil
}
