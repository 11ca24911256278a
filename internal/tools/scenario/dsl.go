package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "scenario"

// Scenario is an ordered list of steps loaded from a Lua script.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one DSL call with its arguments.
type Step struct {
	Kind string
	Args map[string]any
}

// LoadScenarioFromFile runs a Lua script that must return a Scenario.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scenario := &Scenario{Name: name}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

// Commands take an optional table; expectations take a required one.
var scenarioMethods = []lua.RegistryFunction{
	{Name: "challenge", Function: scenarioChallenge},
	{Name: "accept", Function: stepWithOptions("accept")},
	{Name: "complete", Function: stepWithOptions("complete")},
	{Name: "finish", Function: stepWithOptions("finish")},
	{Name: "extend", Function: stepWithOptions("extend")},
	{Name: "switch_pause", Function: stepWithOptions("switch_pause")},
	{Name: "flush", Function: stepWithOptions("flush")},
	{Name: "contribute", Function: scenarioContribute},
	{Name: "advance", Function: stepWithTable("advance")},
	{Name: "expect", Function: stepWithTable("expect")},
	{Name: "expect_balance", Function: scenarioExpectBalance},
	{Name: "expect_wallet", Function: scenarioExpectWallet},
	{Name: "expect_events", Function: scenarioExpectEvents},
}

func scenarioChallenge(state *lua.State) int {
	scenario := checkScenario(state)
	data := optionalTable(state, 2)
	if strings.TrimSpace(optionalString(data, "description", "")) == "" {
		lua.Errorf(state, "challenge description is required")
		return 0
	}
	appendStep(scenario, "challenge", data)
	return 0
}

func scenarioContribute(state *lua.State) int {
	scenario := checkScenario(state)
	amount := lua.CheckInteger(state, 2)
	data := optionalTable(state, 3)
	data["amount"] = amount
	appendStep(scenario, "contribute", data)
	return 0
}

func scenarioExpectBalance(state *lua.State) int {
	scenario := checkScenario(state)
	amount := lua.CheckInteger(state, 2)
	data := optionalTable(state, 3)
	data["balance"] = amount
	appendStep(scenario, "expect_balance", data)
	return 0
}

func scenarioExpectWallet(state *lua.State) int {
	scenario := checkScenario(state)
	actor := lua.CheckString(state, 2)
	amount := lua.CheckInteger(state, 3)
	appendStep(scenario, "expect_wallet", map[string]any{"actor": actor, "balance": amount})
	return 0
}

func scenarioExpectEvents(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	names, ok := tableToGo(state, 2).([]any)
	if !ok {
		lua.ArgumentError(state, 2, "list of event names expected")
		return 0
	}
	data := optionalTable(state, 3)
	data["events"] = names
	appendStep(scenario, "expect_events", data)
	return 0
}

func stepWithOptions(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		appendStep(scenario, kind, optionalTable(state, 2))
		return 0
	}
}

func stepWithTable(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		lua.CheckType(state, 2, lua.TypeTable)
		appendStep(scenario, kind, tableToMap(state, 2))
		return 0
	}
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func appendStep(scenario *Scenario, kind string, data map[string]any) int {
	if scenario == nil {
		return -1
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
	return len(scenario.Steps) - 1
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
