package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/spelledmobs/internal/game/agent"
)

// Manager owns one sandboxed LState loaded from a script directory and
// dispatches hook calls to it.
//
// All methods are safe for concurrent use; calls into the VM are serialized.
type Manager struct {
	mu        sync.Mutex
	state     *lua.LState
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: logger must be non-nil; instLimit >= 0, where 0 uses DefaultInstructionLimit.
// Postcondition: Returns a non-nil Manager.
func NewManager(logger *zap.Logger, instLimit int) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{instLimit: instLimit, logger: logger}
}

// Load creates a fresh sandboxed VM, registers the engine.* modules, executes
// every *.lua file in scriptDir in lexicographic order, and replaces the
// current VM with it.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: On error the previously loaded VM stays in place.
func (m *Manager) Load(scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState(m.instLimit)
	m.RegisterModules(L)
	for _, path := range luaFiles {
		err := withLimit(L, m.instLimit, func() error { return L.DoFile(path) })
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.mu.Lock()
	old := m.state
	m.state = L
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
	m.logger.Info("scripts loaded", zap.String("dir", scriptDir), zap.Int("files", len(luaFiles)))
	return nil
}

// CallHook calls the named Lua global function. Returns (LNil, nil) if no
// scripts are loaded or the hook is not defined. Lua runtime errors, including
// an exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callLocked(hook, args...), nil
}

// CallCondition calls hook(caster, target, extra) and reports the truthiness of
// its result. target is nil in Lua when absent. A missing hook or a runtime
// error yields false.
func (m *Manager) CallCondition(hook string, caster agent.Facts, target *agent.Facts, extra map[string]string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return false, nil
	}
	L := m.state
	args := []lua.LValue{agentTable(L, caster), lua.LNil, stringTable(L, extra)}
	if target != nil {
		args[1] = agentTable(L, *target)
	}
	return lua.LVAsBool(m.callLocked(hook, args...)), nil
}

// callLocked requires m.mu to be held.
func (m *Manager) callLocked(hook string, args ...lua.LValue) lua.LValue {
	L := m.state
	if L == nil {
		m.logger.Info("scripting: no scripts loaded", zap.String("hook", hook))
		return lua.LNil
	}
	fn := L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil
	}

	err := withLimit(L, m.instLimit, func() error {
		return L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		L.SetTop(0)
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret
}

// Close releases the VM. Later calls behave as if no scripts were loaded.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		m.state.Close()
		m.state = nil
	}
}

func agentTable(L *lua.LState, f agent.Facts) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(f.ID.String()))
	t.RawSetString("type", lua.LString(f.Type))
	t.RawSetString("name", lua.LString(f.Name))
	t.RawSetString("alive", lua.LBool(f.Alive))
	t.RawSetString("health", lua.LNumber(f.Health))
	t.RawSetString("max_health", lua.LNumber(f.MaxHealth))
	t.RawSetString("health_percent", lua.LNumber(f.HealthPercent()))
	t.RawSetString("x", lua.LNumber(f.Position.X))
	t.RawSetString("y", lua.LNumber(f.Position.Y))
	t.RawSetString("z", lua.LNumber(f.Position.Z))
	t.RawSetString("armor", lua.LNumber(f.Armor))
	t.RawSetString("held_item", lua.LString(f.HeldItem))
	t.RawSetString("privileged", lua.LBool(f.Privileged))
	t.RawSetString("in_water", lua.LBool(f.InWater))
	t.RawSetString("on_fire", lua.LBool(f.OnFire))
	t.RawSetString("sneaking", lua.LBool(f.Sneaking))
	t.RawSetString("sprinting", lua.LBool(f.Sprinting))
	t.RawSetString("biome", lua.LString(f.Biome))
	t.RawSetString("light_level", lua.LNumber(f.LightLevel))
	effects := L.NewTable()
	for id, amp := range f.StatusEffects {
		effects.RawSetString(id, lua.LNumber(amp))
	}
	t.RawSetString("effects", effects)
	return t
}

func stringTable(L *lua.LState, m map[string]string) *lua.LTable {
	t := L.NewTable()
	for k, v := range m {
		t.RawSetString(k, lua.LString(v))
	}
	return t
}
