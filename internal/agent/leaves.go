package agent

import (
	"context"
	"log"
	"math"
	"time"

	"example.com/npc-behaviour/internal/agent/behavior"
	"example.com/npc-behaviour/internal/scenario"
	"github.com/google/uuid"
)

// Blackboard keys written by commands and built-in leaves.
const (
	KeyPosition         = "position"
	KeyPlayerPosition   = "player_position"
	KeyPendingUtterance = "pending_utterance"
	KeyConversationJob  = "conversation_job"
	KeyLastReply        = "last_reply"
	KeyWanderTarget     = "wander_target"
)

const wanderRadius = 500

// Vec3 is a world position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Distance(o Vec3) float64 {
	dx, dy, dz := v.X-o.X, v.Y-o.Y, v.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// registerLeaves exposes the engine's built-in leaves to scenarios.
func (e *AgentEngine) registerLeaves(reg *scenario.Registry) {
	reg.Condition("player_nearby", e.playerNearby)
	reg.Condition("player_said_something", e.playerSaidSomething)
	reg.Condition("in_conversation", e.inConversation)
	reg.Condition("conversation_finished", e.conversationFinished)
	reg.Condition("has_wander_target", e.hasWanderTarget)

	reg.Action("start_conversation", e.startConversation)
	reg.Action("wait_for_reply", e.waitForReply)
	reg.Action("end_conversation", e.endConversation)
	reg.Action("pick_wander_target", e.pickWanderTarget)
	reg.Action("clear_wander_target", e.clearWanderTarget)
	reg.Action("idle", e.idle)

	reg.Duration("idle_time", e.randomDuration(time.Second, 3*time.Second))
	reg.Duration("wander_time", e.randomDuration(2*time.Second, 5*time.Second))
}

// --- Conditions ---

func (e *AgentEngine) playerNearby() bool {
	player, ok := behavior.TryGet[Vec3](e.Blackboard, KeyPlayerPosition)
	if !ok {
		return false
	}
	self := behavior.GetAs[Vec3](e.Blackboard, KeyPosition)
	return self.Distance(player) <= e.Config.ConversationRange
}

func (e *AgentEngine) playerSaidSomething() bool {
	return e.Blackboard.GetString(KeyPendingUtterance) != ""
}

func (e *AgentEngine) inConversation() bool {
	return e.thread.Len() > e.systemMessages()
}

func (e *AgentEngine) conversationFinished() bool {
	id := e.Blackboard.GetString(KeyConversationJob)
	if id == "" {
		return true
	}
	job := e.JobManager.GetJob(id)
	return job == nil || job.Status != JobStatusRunning
}

func (e *AgentEngine) hasWanderTarget() bool {
	return e.Blackboard.Contains(KeyWanderTarget)
}

// --- Actions ---

func (e *AgentEngine) startConversation() behavior.Status {
	utterance := e.Blackboard.GetString(KeyPendingUtterance)
	if utterance != "" {
		e.thread.Add(RoleUser, utterance)
	}
	e.thread.Truncate(e.Config.MaxMessageHistory)
	history := e.thread.Messages()
	profile := e.profile

	id := "conv-" + uuid.NewString()
	started := e.JobManager.StartJob(id, "conversation", []byte(utterance), func(ctx context.Context) (string, error) {
		return e.Responder.Respond(ctx, profile, history)
	})
	if !started {
		return behavior.StatusFailure
	}
	e.Blackboard.Remove(KeyPendingUtterance)
	e.Blackboard.Set(KeyConversationJob, id)
	return behavior.StatusSuccess
}

// waitForReply reports Running until the conversation job ends, then records
// the reply in the thread.
func (e *AgentEngine) waitForReply() behavior.Status {
	id := e.Blackboard.GetString(KeyConversationJob)
	if id == "" {
		return behavior.StatusFailure
	}
	job := e.JobManager.GetJob(id)
	if job == nil {
		e.Blackboard.Remove(KeyConversationJob)
		return behavior.StatusFailure
	}
	switch job.Status {
	case JobStatusRunning, JobStatusPending:
		return behavior.StatusRunning
	case JobStatusFailed:
		log.Printf("[agent] conversation job %s failed: %s", id, job.Error)
		e.Blackboard.Remove(KeyConversationJob)
		e.JobManager.Forget(id)
		return behavior.StatusFailure
	}
	e.thread.Add(RoleAssistant, job.Result)
	e.Blackboard.Set(KeyLastReply, job.Result)
	e.Blackboard.Remove(KeyConversationJob)
	e.JobManager.Forget(id)
	log.Printf("[agent] %s: %s", e.profile.Name, job.Result)
	return behavior.StatusSuccess
}

func (e *AgentEngine) endConversation() behavior.Status {
	summary := e.thread.Summary(e.profile.Name)
	e.profile.Remember(summary, e.Config.MaxMemories)
	e.thread.Clear()
	e.Blackboard.Remove(KeyLastReply)
	return behavior.StatusSuccess
}

func (e *AgentEngine) pickWanderTarget() behavior.Status {
	self := behavior.GetAs[Vec3](e.Blackboard, KeyPosition)
	angle := e.rng.Float64() * 2 * math.Pi
	dist := e.rng.Float64() * wanderRadius
	e.Blackboard.Set(KeyWanderTarget, Vec3{
		X: self.X + dist*math.Cos(angle),
		Y: self.Y + dist*math.Sin(angle),
		Z: self.Z,
	})
	return behavior.StatusSuccess
}

func (e *AgentEngine) clearWanderTarget() behavior.Status {
	e.Blackboard.Remove(KeyWanderTarget)
	return behavior.StatusSuccess
}

func (e *AgentEngine) idle() behavior.Status {
	return behavior.StatusSuccess
}

func (e *AgentEngine) randomDuration(min, max time.Duration) func() time.Duration {
	return func() time.Duration {
		return min + time.Duration(e.rng.Int64N(int64(max-min)+1))
	}
}

func (e *AgentEngine) systemMessages() int {
	if e.profile.Context != "" {
		return 1
	}
	return 0
}

// defaultScenario is loaded when no scenario_path is configured.
const defaultScenario = `
name: default
root:
  type: selector
  name: npc
  children:
    - type: sequence
      name: converse
      children:
        - {type: condition, ref: player_nearby}
        - {type: condition, ref: player_said_something}
        - {type: action, ref: start_conversation}
        - {type: action, ref: wait_for_reply}
    - type: sequence
      name: farewell
      children:
        - type: inverter
          children:
            - {type: condition, ref: player_nearby}
        - {type: condition, ref: in_conversation}
        - {type: condition, ref: conversation_finished}
        - {type: action, ref: end_conversation}
    - type: random_selector
      name: pastime
      children:
        - type: sequence
          name: wander
          children:
            - {type: action, ref: pick_wander_target}
            - {type: timer, ref: wander_time}
            - {type: action, ref: clear_wander_target}
        - type: sequence
          name: rest
          children:
            - {type: action, ref: idle}
            - {type: timer, ref: idle_time}
`
