package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// CombatantInfo is a snapshot of a combatant passed to Lua hooks.
type CombatantInfo struct {
	Name      string
	Mob       bool
	Health    float64
	MaxHealth float64
	Energy    float64
	Stunned   bool
	Abilities []string
}

// CombatantTable converts info into a Lua table with the fields name, mob,
// health, max_health, energy, stunned and abilities (a sequence).
func CombatantTable(L *lua.LState, info CombatantInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(info.Name))
	t.RawSetString("mob", lua.LBool(info.Mob))
	t.RawSetString("health", lua.LNumber(info.Health))
	t.RawSetString("max_health", lua.LNumber(info.MaxHealth))
	t.RawSetString("energy", lua.LNumber(info.Energy))
	t.RawSetString("stunned", lua.LBool(info.Stunned))
	abilities := L.NewTable()
	for _, a := range info.Abilities {
		abilities.Append(lua.LString(a))
	}
	t.RawSetString("abilities", abilities)
	return t
}

// RegisterModules registers the battle table into L:
//
//	battle.log(msg)      logs msg at Info with the namespace
//	battle.roll(expr)    rolls a dice expression, returning the total
//	battle.chance(p)     returns true with probability p
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: battle global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState, ns string) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			m.logger.Info("lua", zap.String("namespace", ns), zap.String("msg", L.CheckString(1)))
			return 0
		},
		"roll": func(L *lua.LState) int {
			res, err := m.roller.RollExpr(L.CheckString(1))
			if err != nil {
				L.RaiseError("battle.roll: %v", err)
				return 0
			}
			L.Push(lua.LNumber(res.Total()))
			return 1
		},
		"chance": func(L *lua.LState) int {
			p := float64(L.CheckNumber(1))
			L.Push(lua.LBool(m.roller.Chance("lua:"+ns, p)))
			return 1
		},
	})
	L.SetGlobal("battle", mod)
}
