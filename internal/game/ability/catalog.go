// Package ability provides the ability catalog: per-agent-type ability entries,
// the immutable catalog snapshot handed to the engine, and the serialized record
// format it is loaded from.
package ability

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/cory-johannsen/spelledmobs/internal/game/condition"
)

const (
	// DefaultCheckIntervalTicks applies to agent types absent from the catalog
	// and to records that omit checkIntervalTicks.
	DefaultCheckIntervalTicks = 20
	DefaultMinLevel           = 1
	DefaultMaxLevel           = 1
	DefaultMinCooldownTicks   = 60
	DefaultMaxCooldownTicks   = 200
	DefaultWeight             = 1
	DefaultChance             = 1.0
)

// Entry is one ability an agent type may use.
type Entry struct {
	// ID is namespaced, e.g. "pack:fireball".
	ID                  string
	MinLevel            int
	MaxLevel            int
	MinCooldownTicks    int
	MaxCooldownTicks    int
	Weight              int
	Chance              float64
	Conditions          []condition.Spec
	// ActionDurationTicks is 0 for abilities that do not occupy the agent.
	ActionDurationTicks int
}

// Durational reports whether casting e occupies the agent for multiple ticks.
func (e Entry) Durational() bool {
	return e.ActionDurationTicks > 0
}

// Validate checks the entry's invariants.
//
// Postcondition: Returns nil iff ID is a valid namespaced id, 1 <= MinLevel <= MaxLevel,
// 1 <= MinCooldownTicks <= MaxCooldownTicks, Weight >= 1, Chance in [0,1],
// ActionDurationTicks >= 0, and every condition validates.
func (e Entry) Validate() error {
	if err := ValidateID(e.ID); err != nil {
		return err
	}
	if e.MinLevel < 1 || e.MaxLevel < e.MinLevel {
		return fmt.Errorf("ability %q: level range [%d,%d] is invalid", e.ID, e.MinLevel, e.MaxLevel)
	}
	if e.MinCooldownTicks < 1 || e.MaxCooldownTicks < e.MinCooldownTicks {
		return fmt.Errorf("ability %q: cooldown range [%d,%d] is invalid", e.ID, e.MinCooldownTicks, e.MaxCooldownTicks)
	}
	if e.Weight < 1 {
		return fmt.Errorf("ability %q: weight must be >= 1", e.ID)
	}
	if e.Chance < 0 || e.Chance > 1 {
		return fmt.Errorf("ability %q: chance %v must be in [0,1]", e.ID, e.Chance)
	}
	if e.ActionDurationTicks < 0 {
		return fmt.Errorf("ability %q: actionDurationTicks must be >= 0", e.ID)
	}
	for i, c := range e.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("ability %q: condition %d: %w", e.ID, i, err)
		}
	}
	return nil
}

// ValidateID checks that id is of the form "namespace:name" using only
// letters, digits, '_', '.', and ':'.
func ValidateID(id string) error {
	ns, name, ok := strings.Cut(id, ":")
	if !ok || ns == "" || name == "" {
		return fmt.Errorf("ability id %q must be namespaced as ns:name", id)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '.' || r == ':':
		default:
			return fmt.Errorf("ability id %q contains invalid character %q", id, r)
		}
	}
	return nil
}

// QualifyID prefixes id with namespace when it carries no namespace separator.
func QualifyID(id, namespace string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, ":") {
		return id
	}
	return namespace + ":" + id
}

// AgentAbilities is the catalog section for one agent type.
type AgentAbilities struct {
	CheckIntervalTicks int
	Abilities          []Entry
}

// Catalog is an immutable snapshot mapping agent types to their abilities.
// A nil *Catalog behaves as an empty catalog.
type Catalog struct {
	byType map[string]AgentAbilities
}

// NewCatalog builds a catalog from sections. The map and slices are copied.
//
// Precondition: every section has CheckIntervalTicks >= 1.
func NewCatalog(sections map[string]AgentAbilities) *Catalog {
	c := &Catalog{byType: make(map[string]AgentAbilities, len(sections))}
	for k, v := range sections {
		if v.CheckIntervalTicks < 1 {
			panic(fmt.Sprintf("ability.NewCatalog: agent type %q has check interval %d", k, v.CheckIntervalTicks))
		}
		c.byType[k] = AgentAbilities{
			CheckIntervalTicks: v.CheckIntervalTicks,
			Abilities:          append([]Entry(nil), v.Abilities...),
		}
	}
	return c
}

// Lookup returns the abilities and check interval for agentType. An unknown
// type yields an empty list and DefaultCheckIntervalTicks.
//
// Postcondition: The returned slice must not be modified by the caller.
func (c *Catalog) Lookup(agentType string) ([]Entry, int) {
	if c == nil {
		return nil, DefaultCheckIntervalTicks
	}
	s, ok := c.byType[agentType]
	if !ok {
		return nil, DefaultCheckIntervalTicks
	}
	return s.Abilities, s.CheckIntervalTicks
}

// Entry returns the entry with the given id in agentType's section.
func (c *Catalog) Entry(agentType, id string) (Entry, bool) {
	entries, _ := c.Lookup(agentType)
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Section returns agentType's full section.
func (c *Catalog) Section(agentType string) (AgentAbilities, bool) {
	if c == nil {
		return AgentAbilities{}, false
	}
	s, ok := c.byType[agentType]
	return s, ok
}

// AgentTypes returns the catalogued agent types in sorted order.
func (c *Catalog) AgentTypes() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.byType))
	for k := range c.byType {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Holder publishes the current catalog snapshot. Loads are lock-free.
type Holder struct {
	p atomic.Pointer[Catalog]
}

// NewHolder returns a Holder publishing c.
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.p.Store(c)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() *Catalog {
	return h.p.Load()
}

// Swap publishes c and returns the previous snapshot.
func (h *Holder) Swap(c *Catalog) *Catalog {
	return h.p.Swap(c)
}
