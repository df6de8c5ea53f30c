package agent

import "encoding/json"

// Command types accepted on the agent's command topics.
const (
	CmdLoadScenario    = "load_scenario"
	CmdResetTree       = "reset_tree"
	CmdSetBlackboard   = "set_blackboard"
	CmdClearBlackboard = "clear_blackboard"
	CmdPlayerPosition  = "player_position"
	CmdPlayerLeft      = "player_left"
	CmdSay             = "say"
)

// KnownCommand reports whether an agent understands the command type.
func KnownCommand(t string) bool {
	switch t {
	case CmdLoadScenario, CmdResetTree, CmdSetBlackboard, CmdClearBlackboard,
		CmdPlayerPosition, CmdPlayerLeft, CmdSay:
		return true
	}
	return false
}

// Command represents a controller-issued instruction handled by an agent.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// LoadScenarioData carries a scenario tree definition.
type LoadScenarioData struct {
	Name       string `json:"name"`
	ConfigYAML string `json:"config_yaml"`
}

// SetBlackboardData writes one blackboard entry.
type SetBlackboardData struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// PlayerPositionData is the nearest player's position in world units.
type PlayerPositionData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SayData is something a player said to the NPC.
type SayData struct {
	Message string `json:"message"`
}
