package ability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/spelledmobs/internal/game/ability"
)

func TestCatalog_NilBehavesEmpty(t *testing.T) {
	var c *ability.Catalog
	entries, interval := c.Lookup("pack:zombie")
	assert.Empty(t, entries)
	assert.Equal(t, ability.DefaultCheckIntervalTicks, interval)
	assert.Nil(t, c.AgentTypes())
	_, ok := c.Entry("pack:zombie", "pack:fireball")
	assert.False(t, ok)
}

func TestNewCatalog_CopiesInput(t *testing.T) {
	abilities := []ability.Entry{{ID: "pack:a", MinLevel: 1, MaxLevel: 1, MinCooldownTicks: 1, MaxCooldownTicks: 1, Weight: 1}}
	sections := map[string]ability.AgentAbilities{"pack:mob": {CheckIntervalTicks: 5, Abilities: abilities}}
	c := ability.NewCatalog(sections)
	abilities[0].ID = "pack:mutated"
	delete(sections, "pack:mob")

	entries, interval := c.Lookup("pack:mob")
	require.Len(t, entries, 1)
	assert.Equal(t, "pack:a", entries[0].ID)
	assert.Equal(t, 5, interval)
}

func TestNewCatalog_PanicsOnZeroInterval(t *testing.T) {
	assert.Panics(t, func() {
		ability.NewCatalog(map[string]ability.AgentAbilities{"pack:mob": {}})
	})
}

func TestHolder_SwapPublishesSnapshot(t *testing.T) {
	first := ability.NewCatalog(nil)
	second := ability.NewCatalog(map[string]ability.AgentAbilities{
		"pack:mob": {CheckIntervalTicks: 1, Abilities: []ability.Entry{{ID: "pack:a"}}},
	})
	h := ability.NewHolder(first)
	assert.Same(t, first, h.Load())
	assert.Same(t, first, h.Swap(second))
	assert.Same(t, second, h.Load())
}

func TestValidateID(t *testing.T) {
	for _, ok := range []string{"pack:fireball", "a:b.c", "ns:under_score", "A1:B2"} {
		assert.NoError(t, ability.ValidateID(ok), ok)
	}
	for _, bad := range []string{"", "fireball", ":fireball", "pack:", "pack:fire ball", "pack:fire-ball", "pack/fireball"} {
		assert.Error(t, ability.ValidateID(bad), bad)
	}
}

func TestQualifyID(t *testing.T) {
	assert.Equal(t, "pack:heal", ability.QualifyID("heal", "pack"))
	assert.Equal(t, "other:heal", ability.QualifyID("other:heal", "pack"))
	assert.Equal(t, "pack:heal", ability.QualifyID("  heal ", "pack"))
	assert.Equal(t, "", ability.QualifyID("", "pack"))
}
