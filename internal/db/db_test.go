package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "npc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestAgentUpsert(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	require.Error(t, d.UpsertAgentState(ctx, AgentState{}))

	require.NoError(t, d.UpsertAgentState(ctx, AgentState{AgentID: "npc-1", Name: "Mira", TreeState: "RUNNING", Path: "npc/pastime", Tick: 3}))
	require.NoError(t, d.UpsertAgentState(ctx, AgentState{AgentID: "npc-1", TreeState: "SUCCESS", Path: "npc/converse", LastNode: "start_conversation", Depth: 1, Tick: 4, Scenario: "default"}))

	a, err := d.GetAgent(ctx, "npc-1")
	require.NoError(t, err)
	assert.Equal(t, "Mira", a.Name, "empty name keeps the stored one")
	assert.Equal(t, "SUCCESS", a.TreeState)
	assert.Equal(t, "npc/converse", a.Path)
	assert.Equal(t, "start_conversation", a.LastNode)
	assert.Equal(t, 1, a.Depth)
	assert.Equal(t, uint64(4), a.Tick)
	assert.Equal(t, "default", a.Scenario)
	assert.Equal(t, "online", a.Status)

	_, err = d.GetAgent(ctx, "nobody")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, d.UpsertAgentState(ctx, AgentState{AgentID: "npc-0"}))
	agents, err := d.ListAgents(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "npc-0", agents[0].AgentID)

	require.NoError(t, d.DeleteAgent(ctx, "npc-0"))
	agents, err = d.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, 1)
	assert.ErrorIs(t, d.DeleteAgent(ctx, "npc-0"), sql.ErrNoRows)
}

func TestOpenFailsForUnwritablePath(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "missing", "npc.db"))
	require.Error(t, err)
	assert.Nil(t, d)
}

func TestAgentStatus(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "unknown", agentStatus(time.Time{}, now))
	assert.Equal(t, "online", agentStatus(now.Add(-30*time.Second), now))
	assert.Equal(t, "offline", agentStatus(now.Add(-2*time.Minute), now))
}

func TestScenarioCRUD(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	list, err := d.ListScenarios(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	id, err := d.CreateScenario(ctx, Scenario{Name: "guard", ConfigYAML: "root: {type: action, ref: idle}"})
	require.NoError(t, err)

	_, err = d.CreateScenario(ctx, Scenario{Name: "guard"})
	assert.Error(t, err, "names are unique")

	require.NoError(t, d.UpdateScenario(ctx, Scenario{ID: id, Name: "guard", Description: "stands still", ConfigYAML: "x"}))
	s, err := d.GetScenarioByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "stands still", s.Description)
	assert.Equal(t, "x", s.ConfigYAML)

	assert.ErrorIs(t, d.UpdateScenario(ctx, Scenario{ID: id + 100, Name: "ghost"}), sql.ErrNoRows)

	require.NoError(t, d.DeleteScenario(ctx, id))
	assert.ErrorIs(t, d.DeleteScenario(ctx, id), sql.ErrNoRows)
	_, err = d.GetScenarioByID(ctx, id)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCommandLog(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC()
	first, err := d.CreateCommand(ctx, Command{Type: "say", TargetAgent: "npc-1", PayloadJSON: `{}`, Status: "queued", CreatedAt: base})
	require.NoError(t, err)
	_, err = d.CreateCommand(ctx, Command{Type: "reset_tree", TargetAgent: "all", PayloadJSON: `{}`, Status: "queued", CreatedAt: base.Add(time.Second)})
	require.NoError(t, err)

	all, err := d.ListCommands(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "reset_tree", all[0].Type)

	mine, err := d.ListCommands(ctx, "npc-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first, mine[0].ID)

	require.NoError(t, d.UpdateCommandStatus(ctx, first, "sent"))
	mine, err = d.ListCommands(ctx, "npc-1")
	require.NoError(t, err)
	assert.Equal(t, "sent", mine[0].Status)
}
