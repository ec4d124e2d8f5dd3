package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
	"github.com/cory-johannsen/spelledmobs/internal/game/condition"
	"github.com/cory-johannsen/spelledmobs/internal/scripting"
)

var _ condition.ScriptCaller = (*scripting.Manager)(nil)

func newTestManager(t testing.TB, limit int) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(zap.New(core), limit)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0644))
	return dir
}

func hasLevel(logs *observer.ObservedLogs, level string) bool {
	for _, e := range logs.All() {
		if e.Level.String() == level {
			return true
		}
	}
	return false
}

const conditionsLua = `
function is_wounded(caster, target, extra)
	return caster.health_percent < tonumber(extra.threshold or "50")
end

function target_is_player(caster, target, extra)
	return target ~= nil and target.privileged
end

function target_close(caster, target, extra)
	return target ~= nil and engine.distance(caster, target) <= 5
end

function is_strong(caster, target, extra)
	return engine.has_effect(caster, "pack:strength")
end

function spin(caster, target, extra)
	while true do end
end

function broken(caster, target, extra)
	error("intentional")
end
`

func caster() agent.Facts {
	return agent.Facts{
		ID:            agent.NewID(),
		Type:          "pack:zombie",
		Alive:         true,
		Health:        4,
		MaxHealth:     20,
		StatusEffects: map[string]int{"pack:strength": 0},
	}
}

func TestManager_Load_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "hooks.lua", `
		function add(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.Load(dir))
	ret, err := mgr.CallHook("add", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_CallHook_NothingLoaded_LogsInfo(t *testing.T) {
	mgr, logs := newTestManager(t, 0)
	ret, err := mgr.CallHook("anything")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.True(t, hasLevel(logs, "info"))
}

func TestManager_CallHook_MissingOrNonFunctionHook(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.Load(writeTempLua(t, "v.lua", `not_a_function = 3`)))
	ret, err := mgr.CallHook("nonexistent")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	ret, err = mgr.CallHook("not_a_function")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_Load_InvalidLuaKeepsPreviousVM(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.Load(writeTempLua(t, "ok.lua", `function ping() return "pong" end`)))
	assert.Error(t, mgr.Load(writeTempLua(t, "bad.lua", `this is not valid lua @@@@`)))
	ret, err := mgr.CallHook("ping")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("pong"), ret)
}

func TestManager_Load_MissingDir(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	assert.Error(t, mgr.Load(filepath.Join(t.TempDir(), "absent")))
}

func TestManager_Load_MultipleFilesOrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`function get_val() return base_val end`), 0644))
	require.NoError(t, mgr.Load(dir))
	ret, err := mgr.CallHook("get_val")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(10), ret)
}

func TestManager_CallCondition(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.Load(writeTempLua(t, "conditions.lua", conditionsLua)))
	c := caster()
	player := &agent.Facts{ID: agent.NewID(), Alive: true, Privileged: true, Position: agent.Vec3{X: 3, Z: 4}}

	ok, err := mgr.CallCondition("is_wounded", c, nil, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = mgr.CallCondition("is_wounded", c, nil, map[string]string{"threshold": "10"})
	assert.False(t, ok)

	ok, _ = mgr.CallCondition("target_is_player", c, player, nil)
	assert.True(t, ok)
	ok, _ = mgr.CallCondition("target_is_player", c, nil, nil)
	assert.False(t, ok)

	ok, _ = mgr.CallCondition("target_close", c, player, nil)
	assert.True(t, ok)
	ok, _ = mgr.CallCondition("is_strong", c, nil, nil)
	assert.True(t, ok)
	ok, _ = mgr.CallCondition("undefined_hook", c, nil, nil)
	assert.False(t, ok)
}

func TestManager_RuntimeErrorsYieldFalseAndWarn(t *testing.T) {
	mgr, logs := newTestManager(t, 1000)
	require.NoError(t, mgr.Load(writeTempLua(t, "conditions.lua", conditionsLua)))
	ok, err := mgr.CallCondition("broken", caster(), nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = mgr.CallCondition("spin", caster(), nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, hasLevel(logs, "warn"))

	// The budget is per call: a normal hook still runs after a runaway one.
	ok, _ = mgr.CallCondition("is_wounded", caster(), nil, nil)
	assert.True(t, ok)
}

func TestManager_BackedConditionEvaluates(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.Load(writeTempLua(t, "conditions.lua", conditionsLua)))
	spec, err := condition.Spec{Kind: "lua", Value: "is_wounded"}.Normalize()
	require.NoError(t, err)
	assert.True(t, condition.Evaluate(spec, condition.Context{Caster: caster(), Scripts: mgr}))
}

func TestEngineLog_AllLevels(t *testing.T) {
	mgr, logs := newTestManager(t, 0)
	require.NoError(t, mgr.Load(writeTempLua(t, "log.lua", `
		function do_all_logs()
			engine.log.debug("d")
			engine.log.info("i")
			engine.log.warn("w")
			engine.log.error("e")
		end
	`)))
	_, err := mgr.CallHook("do_all_logs")
	require.NoError(t, err)
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		assert.True(t, hasLevel(logs, lvl), "expected %s log", lvl)
	}
}

func TestManager_Close_ReleasesVM(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.Load(writeTempLua(t, "init.lua", `function get_x() return 1 end`)))
	mgr.Close()
	ret, err := mgr.CallHook("get_x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	ok, err := mgr.CallCondition("get_x", caster(), nil, nil)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestNewManager_PanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() { scripting.NewManager(nil, 0) })
}

func TestManager_ConcurrentCalls_NoRace(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.Load(writeTempLua(t, "conditions.lua", conditionsLua)))
	const goroutines = 10
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				ok, err := mgr.CallCondition("is_wounded", caster(), nil, nil)
				assert.NoError(t, err)
				assert.True(t, ok)
			}
		}()
	}
	wg.Wait()
}

func TestProperty_CallHookUndefinedReturnsNil(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.Load(t.TempDir()))
	rapid.Check(t, func(rt *rapid.T) {
		hook := rapid.StringMatching(`hook_[a-z]{1,10}`).Draw(rt, "hook")
		ret, err := mgr.CallHook(hook)
		assert.NoError(rt, err)
		assert.Equal(rt, lua.LNil, ret)
	})
}
