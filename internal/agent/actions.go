package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
)

func (e *AgentEngine) handleCommand(cmd Command) error {
	switch cmd.Type {
	case CmdLoadScenario:
		var payload LoadScenarioData
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		return e.HandleLoadScenario(payload)
	case CmdResetTree:
		e.Tree.Reset()
		log.Printf("[agent] tree reset")
		return nil
	case CmdSetBlackboard:
		var payload SetBlackboardData
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		return e.HandleSetBlackboard(payload)
	case CmdClearBlackboard:
		e.Blackboard.Clear()
		e.Blackboard.Set(KeyPosition, Vec3{})
		return nil
	case CmdPlayerPosition:
		var payload PlayerPositionData
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		e.Blackboard.Set(KeyPlayerPosition, Vec3(payload))
		return nil
	case CmdPlayerLeft:
		e.Blackboard.Remove(KeyPlayerPosition)
		return nil
	case CmdSay:
		var payload SayData
		if err := json.Unmarshal(cmd.Data, &payload); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		return e.HandleSay(payload)
	default:
		return fmt.Errorf("unknown command type: %s", cmd.Type)
	}
}

// HandleLoadScenario swaps the running tree for the one in data.
func (e *AgentEngine) HandleLoadScenario(data LoadScenarioData) error {
	if strings.TrimSpace(data.ConfigYAML) == "" {
		return errors.New("config_yaml is required")
	}
	return e.LoadScenario(data.Name, data.ConfigYAML)
}

// HandleSetBlackboard writes one entry. Position keys are decoded into Vec3
// so leaves can read them typed.
func (e *AgentEngine) HandleSetBlackboard(data SetBlackboardData) error {
	if data.Key == "" {
		return errors.New("key is required")
	}
	value := data.Value
	switch data.Key {
	case KeyPosition, KeyPlayerPosition, KeyWanderTarget:
		raw, err := json.Marshal(data.Value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", data.Key, err)
		}
		var v Vec3
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("%s must be a position: %w", data.Key, err)
		}
		value = v
	}
	e.Blackboard.Set(data.Key, value)
	return nil
}

// HandleSay stores a player utterance for the conversation branch.
func (e *AgentEngine) HandleSay(data SayData) error {
	msg := strings.TrimSpace(data.Message)
	if msg == "" {
		return errors.New("message is required")
	}
	e.Blackboard.Set(KeyPendingUtterance, msg)
	return nil
}
