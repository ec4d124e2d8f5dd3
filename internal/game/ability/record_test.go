package ability_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/spelledmobs/internal/game/ability"
	"github.com/cory-johannsen/spelledmobs/internal/game/condition"
)

const zombieYAML = `
agentType: pack:zombie
checkIntervalTicks: 40
abilities:
  - id: pack:fireball
    minLevel: 1
    maxLevel: 3
    minCooldownTicks: 60
    maxCooldownTicks: 120
    weight: 2
    chance: 0.5
    actionDurationTicks: 40
    conditions:
      - type: HEALTH_PERCENTAGE
        operator: less_than
        numericValue: 50
      - type: target-distance
        operator: ">="
        numericValue: 6
  - id: heal
`

func TestUnmarshalRecord_AppliesDefaultsOnBuild(t *testing.T) {
	r, err := ability.UnmarshalRecord([]byte(zombieYAML))
	require.NoError(t, err)
	c, warnings := ability.Build([]ability.Record{r}, "pack")
	require.Empty(t, warnings)

	entries, interval := c.Lookup("pack:zombie")
	require.Len(t, entries, 2)
	assert.Equal(t, 40, interval)

	fb := entries[0]
	assert.Equal(t, "pack:fireball", fb.ID)
	assert.Equal(t, 3, fb.MaxLevel)
	assert.Equal(t, 0.5, fb.Chance)
	assert.True(t, fb.Durational())
	require.Len(t, fb.Conditions, 2)
	assert.Equal(t, condition.HealthPercentage, fb.Conditions[0].Kind)
	assert.Equal(t, condition.GreaterThanOrEquals, fb.Conditions[1].Operator)

	heal := entries[1]
	assert.Equal(t, ability.Entry{
		ID:               "pack:heal",
		MinLevel:         1,
		MaxLevel:         1,
		MinCooldownTicks: 60,
		MaxCooldownTicks: 200,
		Weight:           1,
		Chance:           1.0,
	}, heal)
	assert.False(t, heal.Durational())
}

func TestUnmarshalRecord_AcceptsJSON(t *testing.T) {
	data := []byte(`{"agentType":"pack:witch","abilities":[{"id":"pack:curse","weight":3,"conditions":[{"type":"weather","value":"storm"}]}]}`)
	r, err := ability.UnmarshalRecord(data)
	require.NoError(t, err)
	c, warnings := ability.Build([]ability.Record{r}, "pack")
	require.Empty(t, warnings)
	e, ok := c.Entry("pack:witch", "pack:curse")
	require.True(t, ok)
	assert.Equal(t, 3, e.Weight)
	assert.Equal(t, "thunder", e.Conditions[0].Value)
	_, interval := c.Lookup("pack:witch")
	assert.Equal(t, ability.DefaultCheckIntervalTicks, interval)
}

func TestUnmarshalRecord_Malformed(t *testing.T) {
	_, err := ability.UnmarshalRecord([]byte("agentType: [unterminated"))
	assert.Error(t, err)
}

func TestBuild_DropsInvalidEntriesAndKeepsRest(t *testing.T) {
	bad := 0
	inverted := 1
	r := ability.Record{
		AgentType: "pack:skeleton",
		Abilities: []ability.AbilityRecord{
			{ID: "pack:arrow"},
			{ID: "pack:zero_weight", Weight: &bad},
			{ID: "pack:bad_levels", MinLevel: intp(3), MaxLevel: &inverted},
			{ID: "pack:bad chars"},
			{ID: ""},
			{ID: "pack:bad_cond", Conditions: []condition.Spec{{Kind: "phase_of_jupiter"}}},
			{ID: "pack:bad_chance", Chance: floatp(1.5)},
			{ID: "pack:arrow", Weight: intp(9)},
		},
	}
	c, warnings := ability.Build([]ability.Record{r}, "pack")
	assert.Len(t, warnings, 7)
	entries, _ := c.Lookup("pack:skeleton")
	require.Len(t, entries, 1)
	assert.Equal(t, "pack:arrow", entries[0].ID)
	assert.Equal(t, 1, entries[0].Weight, "first entry for a duplicate id wins")
}

func TestBuild_OmittedUpperBoundFollowsLowerBound(t *testing.T) {
	r := ability.Record{
		AgentType: "pack:golem",
		Abilities: []ability.AbilityRecord{{ID: "pack:slam", MinLevel: intp(4), MinCooldownTicks: intp(300)}},
	}
	c, warnings := ability.Build([]ability.Record{r}, "pack")
	require.Empty(t, warnings)
	e, ok := c.Entry("pack:golem", "pack:slam")
	require.True(t, ok)
	assert.Equal(t, 4, e.MaxLevel)
	assert.Equal(t, 300, e.MaxCooldownTicks)
}

func TestBuild_RecordLevelRejections(t *testing.T) {
	records := []ability.Record{
		{AgentType: "", Abilities: []ability.AbilityRecord{{ID: "pack:a"}}},
		{AgentType: "pack:bat", CheckIntervalTicks: intp(0), Abilities: []ability.AbilityRecord{{ID: "pack:a"}}},
		{AgentType: "pack:empty", Abilities: []ability.AbilityRecord{{ID: "bad id"}}},
		{AgentType: "pack:wolf", Abilities: []ability.AbilityRecord{{ID: "pack:bite"}}},
		{AgentType: "pack:wolf", Abilities: []ability.AbilityRecord{{ID: "pack:howl"}}},
	}
	c, warnings := ability.Build(records, "pack")
	assert.Len(t, warnings, 5)
	assert.Equal(t, []string{"pack:wolf"}, c.AgentTypes())
	_, ok := c.Entry("pack:wolf", "pack:bite")
	assert.True(t, ok)

	entries, interval := c.Lookup("pack:empty")
	assert.Empty(t, entries, "a type with zero valid abilities behaves as absent")
	assert.Equal(t, ability.DefaultCheckIntervalTicks, interval)
}

func TestMarshalRecord_RoundTripsThroughYAMLAndJSON(t *testing.T) {
	r, err := ability.UnmarshalRecord([]byte(zombieYAML))
	require.NoError(t, err)
	c, _ := ability.Build([]ability.Record{r}, "pack")
	section, ok := c.Section("pack:zombie")
	require.True(t, ok)

	for name, marshal := range map[string]func(ability.Record) ([]byte, error){
		"yaml": ability.MarshalRecord,
		"json": ability.MarshalRecordJSON,
	} {
		data, err := marshal(ability.ToRecord("pack:zombie", section))
		require.NoError(t, err, name)
		back, err := ability.UnmarshalRecord(data)
		require.NoError(t, err, name)
		c2, warnings := ability.Build([]ability.Record{back}, "other")
		require.Empty(t, warnings, name)
		section2, ok := c2.Section("pack:zombie")
		require.True(t, ok, name)
		assert.Equal(t, section, section2, name)
	}
}

func TestProperty_Record_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 5).Draw(rt, "n")
		section := ability.AgentAbilities{CheckIntervalTicks: rapid.IntRange(1, 200).Draw(rt, "interval")}
		for i := 0; i < n; i++ {
			minLevel := rapid.IntRange(1, 10).Draw(rt, "minLevel")
			minCD := rapid.IntRange(1, 500).Draw(rt, "minCD")
			e := ability.Entry{
				ID:                  "pack:ability_" + string(rune('a'+i)),
				MinLevel:            minLevel,
				MaxLevel:            minLevel + rapid.IntRange(0, 5).Draw(rt, "levelSpan"),
				MinCooldownTicks:    minCD,
				MaxCooldownTicks:    minCD + rapid.IntRange(0, 500).Draw(rt, "cdSpan"),
				Weight:              rapid.IntRange(1, 50).Draw(rt, "weight"),
				Chance:              rapid.Float64Range(0, 1).Draw(rt, "chance"),
				ActionDurationTicks: rapid.IntRange(0, 100).Draw(rt, "duration"),
			}
			if rapid.Bool().Draw(rt, "withCondition") {
				e.Conditions = []condition.Spec{{
					Kind:         condition.HealthPercentage,
					Operator:     condition.LessThan,
					NumericValue: float64(rapid.IntRange(0, 100).Draw(rt, "threshold")),
					Invert:       rapid.Bool().Draw(rt, "invert"),
				}}
			}
			section.Abilities = append(section.Abilities, e)
		}
		data, err := ability.MarshalRecord(ability.ToRecord("pack:mob", section))
		require.NoError(rt, err)
		back, err := ability.UnmarshalRecord(data)
		require.NoError(rt, err)
		c, warnings := ability.Build([]ability.Record{back}, "pack")
		require.Empty(rt, warnings)
		got, ok := c.Section("pack:mob")
		require.True(rt, ok)
		assert.Equal(rt, section, got)
	})
}

func TestLoadDirectory_ReadsAllFormatsAndReportsBadFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("zombie.yaml", zombieYAML)
	write("witch.json", `{"agentType":"pack:witch","abilities":[{"id":"curse"}]}`)
	write("spider.yml", "agentType: pack:spider\nabilities:\n  - id: web\n")
	write("broken.yaml", "agentType: [oops")
	write("notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	c, warnings, err := ability.LoadDirectory(dir, "mobs")
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
	assert.Equal(t, []string{"pack:spider", "pack:witch", "pack:zombie"}, c.AgentTypes())
	_, ok := c.Entry("pack:witch", "mobs:curse")
	assert.True(t, ok)
	_, ok = c.Entry("pack:zombie", "mobs:heal")
	assert.True(t, ok)
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	_, _, err := ability.LoadDirectory(filepath.Join(t.TempDir(), "absent"), "pack")
	assert.Error(t, err)
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
