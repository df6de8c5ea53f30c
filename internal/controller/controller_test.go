package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"example.com/npc-behaviour/internal/agent"
	"example.com/npc-behaviour/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const idleScenario = `description: stands around
root: {type: action, ref: idle}`

func newTestController(t *testing.T) *Controller {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "controller.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return New(d, nil)
}

func do(h http.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestPathTail(t *testing.T) {
	id, err := pathTail("/api/agents/npc-1/command", "/api/agents/", "/command")
	require.NoError(t, err)
	assert.Equal(t, "npc-1", id)

	_, err = pathTail("/api/agents/", "/api/agents/", "")
	assert.Error(t, err)
	_, err = pathTail("/api/agents/a/b", "/api/agents/", "")
	assert.Error(t, err)
	_, err = pathTail("/api/scenarios/3", "/api/agents/", "")
	assert.Error(t, err)

	n, err := parseIDWithSuffix("/api/scenarios/3/deploy/", "/api/scenarios/", "/deploy")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestAgentsEndpoints(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.DB.UpsertAgentState(context.Background(), db.AgentState{AgentID: "npc-1", Name: "Mira"}))

	rec := do(c.ListAgents, http.MethodGet, "/api/agents", "")
	require.Equal(t, http.StatusOK, rec.Code)
	agents := decode[[]db.Agent](t, rec)
	require.Len(t, agents, 1)
	assert.Equal(t, "Mira", agents[0].Name)

	rec = do(c.GetAgent, http.MethodGet, "/api/agents/npc-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "online", decode[db.Agent](t, rec).Status)

	rec = do(c.GetAgent, http.MethodGet, "/api/agents/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(c.DeleteAgent, http.MethodDelete, "/api/agents/npc-1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(c.GetAgent, http.MethodGet, "/api/agents/npc-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(c.DeleteAgent, http.MethodDelete, "/api/agents/npc-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAgentCommand(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.DB.UpsertAgentState(context.Background(), db.AgentState{AgentID: "npc-1"}))

	rec := do(c.AgentCommand, http.MethodPost, "/api/agents/npc-1/command", `{"type":"say","data":{"message":"hi"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	cmd := decode[db.Command](t, rec)
	assert.Equal(t, "say", cmd.Type)
	assert.Equal(t, "npc-1", cmd.TargetAgent)
	assert.Equal(t, "queued", cmd.Status, "no broker means nothing was sent")

	var payload agent.Command
	require.NoError(t, json.Unmarshal([]byte(cmd.PayloadJSON), &payload))
	assert.JSONEq(t, `{"message":"hi"}`, string(payload.Data))

	rec = do(c.AgentCommand, http.MethodPost, "/api/agents/npc-1/command", `{"type":"dance"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown command type")

	rec = do(c.AgentCommand, http.MethodPost, "/api/agents/npc-1/command", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(c.AgentCommand, http.MethodPost, "/api/agents/ghost/command", `{"type":"reset_tree"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(c.AgentCommand, http.MethodPost, "/api/agents/all/command", `{"type":"reset_tree"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(c.BroadcastCommand, http.MethodPost, "/api/agents/command/broadcast", `{"type":"player_left"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "all", decode[db.Command](t, rec).TargetAgent)

	rec = do(c.ListCommands, http.MethodGet, "/api/commands?agent=npc-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]db.Command](t, rec), 1)

	rec = do(c.ListCommands, http.MethodGet, "/api/commands", "")
	assert.Len(t, decode[[]db.Command](t, rec), 2)
}

func TestScenarioEndpoints(t *testing.T) {
	c := newTestController(t)

	body, _ := json.Marshal(scenarioRequest{Name: "idle", ConfigYAML: idleScenario})
	rec := do(c.CreateScenario, http.MethodPost, "/api/scenarios", string(body))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[db.Scenario](t, rec)
	assert.Equal(t, "stands around", created.Description)

	rec = do(c.CreateScenario, http.MethodPost, "/api/scenarios", `{"name":"broken","config_yaml":"root: {type: wobble}"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid scenario config")

	rec = do(c.CreateScenario, http.MethodPost, "/api/scenarios", `{"config_yaml":"root: {type: action, ref: idle}"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(c.ListScenarios, http.MethodGet, "/api/scenarios", "")
	assert.Len(t, decode[[]db.Scenario](t, rec), 1)

	path := "/api/scenarios/" + itoa(created.ID)
	body, _ = json.Marshal(scenarioRequest{Name: "idle", Description: "renamed", ConfigYAML: idleScenario})
	rec = do(c.UpdateScenario, http.MethodPut, path, string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(c.GetScenario, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed", decode[db.Scenario](t, rec).Description)

	rec = do(c.UpdateScenario, http.MethodPut, "/api/scenarios/999", string(body))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(c.DeleteScenario, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(c.GetScenario, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(c.GetScenario, http.MethodGet, "/api/scenarios/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeployScenario(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()
	id, err := c.DB.CreateScenario(ctx, db.Scenario{Name: "idle", ConfigYAML: idleScenario})
	require.NoError(t, err)
	require.NoError(t, c.DB.UpsertAgentState(ctx, db.AgentState{AgentID: "npc-1"}))
	path := "/api/scenarios/" + itoa(id) + "/deploy"

	rec := do(c.DeployScenario, http.MethodPost, path, `{"agent_id":"npc-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	cmd := decode[db.Command](t, rec)
	assert.Equal(t, agent.CmdLoadScenario, cmd.Type)
	assert.Equal(t, "npc-1", cmd.TargetAgent)

	var payload agent.Command
	require.NoError(t, json.Unmarshal([]byte(cmd.PayloadJSON), &payload))
	var data agent.LoadScenarioData
	require.NoError(t, json.Unmarshal(payload.Data, &data))
	assert.Equal(t, "idle", data.Name)
	assert.Equal(t, idleScenario, data.ConfigYAML)

	rec = do(c.DeployScenario, http.MethodPost, path, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "all", decode[db.Command](t, rec).TargetAgent)

	rec = do(c.DeployScenario, http.MethodPost, path, `{"agent_id":"ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(c.DeployScenario, http.MethodPost, "/api/scenarios/999/deploy", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
