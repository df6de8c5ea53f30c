package controller

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"example.com/npc-behaviour/internal/agent"
	"example.com/npc-behaviour/internal/db"
	"example.com/npc-behaviour/internal/scenario"
)

type scenarioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ConfigYAML  string `json:"config_yaml"`
}

// toScenario validates the tree definition. The stored description falls
// back to the one inside the YAML.
func (req scenarioRequest) toScenario(id int64) (db.Scenario, error) {
	if req.Name == "" {
		return db.Scenario{}, errors.New("scenario name required")
	}
	spec, err := scenario.Parse(req.ConfigYAML)
	if err != nil {
		return db.Scenario{}, fmt.Errorf("invalid scenario config: %v", err)
	}
	desc := req.Description
	if desc == "" {
		desc = spec.Description
	}
	return db.Scenario{ID: id, Name: req.Name, Description: desc, ConfigYAML: req.ConfigYAML}, nil
}

func (c *Controller) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := c.DB.ListScenarios(r.Context())
	if err != nil {
		log.Printf("list scenarios: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list scenarios")
		return
	}
	respondJSON(w, http.StatusOK, scenarios)
}

func (c *Controller) GetScenario(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDFromPath(r.URL.Path, "/api/scenarios/")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid scenario id")
		return
	}
	s, err := c.DB.GetScenarioByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "scenario not found")
			return
		}
		log.Printf("get scenario: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to fetch scenario")
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (c *Controller) CreateScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid scenario payload")
		return
	}
	s, err := req.toScenario(0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := c.DB.CreateScenario(r.Context(), s)
	if err != nil {
		log.Printf("create scenario: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create scenario")
		return
	}
	s.ID = id
	respondJSON(w, http.StatusCreated, s)
}

func (c *Controller) UpdateScenario(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDFromPath(r.URL.Path, "/api/scenarios/")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid scenario id")
		return
	}
	var req scenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid scenario payload")
		return
	}
	s, err := req.toScenario(id)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := c.DB.UpdateScenario(r.Context(), s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "scenario not found")
			return
		}
		log.Printf("update scenario: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to update scenario")
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (c *Controller) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDFromPath(r.URL.Path, "/api/scenarios/")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid scenario id")
		return
	}
	if err := c.DB.DeleteScenario(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "scenario not found")
			return
		}
		log.Printf("delete scenario: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to delete scenario")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deployScenarioRequest struct {
	AgentID string `json:"agent_id"`
}

// DeployScenario sends a stored scenario to one agent, or to every agent when
// the body is empty or names no agent.
func (c *Controller) DeployScenario(w http.ResponseWriter, r *http.Request) {
	scenarioID, err := parseIDWithSuffix(r.URL.Path, "/api/scenarios/", "/deploy")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid scenario deploy path")
		return
	}
	var req deployScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid deploy payload")
		return
	}
	s, err := c.DB.GetScenarioByID(r.Context(), scenarioID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "scenario not found")
			return
		}
		log.Printf("deploy scenario fetch: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load scenario")
		return
	}
	if _, err := scenario.Parse(s.ConfigYAML); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid scenario config: %v", err))
		return
	}
	data, err := json.Marshal(agent.LoadScenarioData{Name: s.Name, ConfigYAML: s.ConfigYAML})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode scenario command")
		return
	}

	target := broadcastTarget
	if req.AgentID != "" {
		if _, err := c.DB.GetAgent(r.Context(), req.AgentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondError(w, http.StatusNotFound, fmt.Sprintf("agent %s not found", req.AgentID))
				return
			}
			log.Printf("deploy scenario agent fetch: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to fetch agent")
			return
		}
		target = req.AgentID
	}
	cmd, err := c.queueCommand(r.Context(), target, agent.Command{Type: agent.CmdLoadScenario, Data: data})
	if err != nil {
		log.Printf("deploy scenario queue: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to queue command")
		return
	}
	respondJSON(w, http.StatusCreated, cmd)
}
