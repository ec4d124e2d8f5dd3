package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the engine.* Lua tables into L:
//
//	engine.log.debug/info/warn/error(msg)
//	engine.distance(a, b)   -- a, b are agent tables with x, y, z
//	engine.has_effect(a, id)
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	logTbl := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	} {
		logFn := fn
		L.SetField(logTbl, name, L.NewFunction(func(L *lua.LState) int {
			logFn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	L.SetField(engine, "log", logTbl)

	L.SetField(engine, "distance", L.NewFunction(luaDistance))
	L.SetField(engine, "has_effect", L.NewFunction(luaHasEffect))

	L.SetGlobal("engine", engine)
}

func luaDistance(L *lua.LState) int {
	a := L.CheckTable(1)
	b := L.CheckTable(2)
	dx := float64(lua.LVAsNumber(a.RawGetString("x")) - lua.LVAsNumber(b.RawGetString("x")))
	dy := float64(lua.LVAsNumber(a.RawGetString("y")) - lua.LVAsNumber(b.RawGetString("y")))
	dz := float64(lua.LVAsNumber(a.RawGetString("z")) - lua.LVAsNumber(b.RawGetString("z")))
	L.Push(lua.LNumber(math.Sqrt(dx*dx + dy*dy + dz*dz)))
	return 1
}

func luaHasEffect(L *lua.LState) int {
	a := L.CheckTable(1)
	id := L.CheckString(2)
	effects, ok := a.RawGetString("effects").(*lua.LTable)
	L.Push(lua.LBool(ok && effects.RawGetString(id) != lua.LNil))
	return 1
}
