package controller

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"example.com/npc-behaviour/internal/agent"
	"example.com/npc-behaviour/internal/db"
	mqttc "example.com/npc-behaviour/internal/mqtt"
)

// broadcastTarget is the target_agent recorded for commands sent to every agent.
const broadcastTarget = agent.ReservedAgentID

type commandRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (req commandRequest) validate() error {
	if req.Type == "" {
		return errors.New("command type required")
	}
	if !agent.KnownCommand(req.Type) {
		return fmt.Errorf("unknown command type %q", req.Type)
	}
	return nil
}

func (c *Controller) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := c.DB.ListAgents(r.Context())
	if err != nil {
		log.Printf("list agents: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list agents")
		return
	}
	respondJSON(w, http.StatusOK, agents)
}

func (c *Controller) GetAgent(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathTail(r.URL.Path, "/api/agents/", "")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	a, err := c.DB.GetAgent(r.Context(), agentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "agent not found")
			return
		}
		log.Printf("get agent: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to fetch agent")
		return
	}
	respondJSON(w, http.StatusOK, a)
}

// DeleteAgent drops an agent from the registry. A live agent reappears with
// its next telemetry message.
func (c *Controller) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathTail(r.URL.Path, "/api/agents/", "")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid agent id")
		return
	}
	if err := c.DB.DeleteAgent(r.Context(), agentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "agent not found")
			return
		}
		log.Printf("delete agent: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to delete agent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AgentCommand publishes a command to one agent. Agents that have never
// reported telemetry are unknown and rejected.
func (c *Controller) AgentCommand(w http.ResponseWriter, r *http.Request) {
	agentID, err := pathTail(r.URL.Path, "/api/agents/", "/command")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid command path")
		return
	}
	if agentID == agent.ReservedAgentID {
		respondError(w, http.StatusBadRequest, "use the broadcast endpoint to reach every agent")
		return
	}
	if _, err := c.DB.GetAgent(r.Context(), agentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "agent not found")
			return
		}
		log.Printf("fetch agent for command: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to fetch agent")
		return
	}
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid command payload")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cmd, err := c.queueCommand(r.Context(), agentID, agent.Command{Type: req.Type, Data: req.Data})
	if err != nil {
		log.Printf("queue command: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to queue command")
		return
	}
	respondJSON(w, http.StatusCreated, cmd)
}

func (c *Controller) BroadcastCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid command payload")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cmd, err := c.queueCommand(r.Context(), broadcastTarget, agent.Command{Type: req.Type, Data: req.Data})
	if err != nil {
		log.Printf("queue broadcast: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to queue command")
		return
	}
	respondJSON(w, http.StatusCreated, cmd)
}

// queueCommand records cmd in the command log and publishes it. target is an
// agent id or broadcastTarget.
func (c *Controller) queueCommand(ctx context.Context, target string, cmd agent.Command) (db.Command, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return db.Command{}, fmt.Errorf("marshal command: %w", err)
	}
	now := time.Now().UTC()
	rec := db.Command{
		Type:        cmd.Type,
		TargetAgent: target,
		PayloadJSON: string(payload),
		Status:      "queued",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := c.DB.CreateCommand(ctx, rec)
	if err != nil {
		return db.Command{}, fmt.Errorf("create command: %w", err)
	}
	rec.ID = id

	topic := mqttc.BroadcastTopic
	if target != broadcastTarget {
		topic = mqttc.CommandTopic(target)
	}
	log.Printf("command %s queued for %s topic %s", cmd.Type, target, topic)
	if !c.MQTT.Connected() {
		return rec, nil
	}
	c.MQTT.Publish(topic, payload)
	if err := c.DB.UpdateCommandStatus(ctx, id, "sent"); err != nil {
		log.Printf("mark command %d sent: %v", id, err)
		return rec, nil
	}
	rec.Status = "sent"
	return rec, nil
}
