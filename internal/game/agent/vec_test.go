package agent_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
)

func TestVec3_DistanceTo(t *testing.T) {
	a := agent.Vec3{X: 0, Y: 0, Z: 0}
	b := agent.Vec3{X: 3, Y: 4, Z: 0}
	assert.InDelta(t, 5.0, a.DistanceTo(b), 1e-9)
}

func TestVec3_Normalize_Zero(t *testing.T) {
	assert.Equal(t, agent.Vec3{}, agent.Vec3{}.Normalize())
}

func TestFacts_HealthPercent(t *testing.T) {
	assert.InDelta(t, 50.0, agent.Facts{Health: 10, MaxHealth: 20}.HealthPercent(), 1e-9)
	assert.Equal(t, 0.0, agent.Facts{Health: 10}.HealthPercent())
}

func TestProperty_Vec3_NormalizeIsUnit(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		v := agent.Vec3{
			X: rapid.Float64Range(-1000, 1000).Draw(rt, "x"),
			Y: rapid.Float64Range(-1000, 1000).Draw(rt, "y"),
			Z: rapid.Float64Range(-1000, 1000).Draw(rt, "z"),
		}
		if v.Length() < 1e-6 {
			return
		}
		assert.InDelta(rt, 1.0, v.Normalize().Length(), 1e-9)
		assert.False(rt, math.IsNaN(v.Normalize().X))
	})
}
