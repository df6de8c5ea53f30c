package db

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// OfflineAfter is how long an agent may stay silent before it is reported offline.
const OfflineAfter = time.Minute

type DB struct {
	SQL  *sql.DB
	Path string
}

// Agent is the controller's view of one NPC agent, refreshed from telemetry.
type Agent struct {
	ID        int64     `json:"id"`
	AgentID   string    `json:"agent_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	TreeState string    `json:"tree_status"`
	Path      string    `json:"path"`
	LastNode  string    `json:"last_node"`
	Depth     int       `json:"depth"`
	Tick      uint64    `json:"tick"`
	Scenario  string    `json:"scenario"`
	LastSeen  time.Time `json:"last_seen"`
}

// AgentState is the subset of a telemetry message stored per agent.
type AgentState struct {
	AgentID   string
	Name      string
	TreeState string
	Path      string
	LastNode  string
	Depth     int
	Tick      uint64
	Scenario  string
}

type Scenario struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ConfigYAML  string `json:"config_yaml"`
}

// Command is one command published to an agent (or to "all").
type Command struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	TargetAgent string    `json:"target_agent"`
	PayloadJSON string    `json:"payload_json"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := setup(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{SQL: db, Path: path}, nil
}

func setup(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}
	// one connection avoids SQLITE_BUSY between goroutines; writes are rare
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return err
	}
	return migrate(db)
}

func (d *DB) Close() error {
	return d.SQL.Close()
}

func migrate(db *sql.DB) error {
	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			agent_id TEXT NOT NULL UNIQUE,
			name TEXT,
			tree_status TEXT,
			path TEXT,
			last_node TEXT,
			depth INTEGER DEFAULT 0,
			tick INTEGER DEFAULT 0,
			scenario TEXT,
			last_seen TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS scenarios (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			config_yaml TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL,
			target_agent TEXT,
			payload_json TEXT,
			status TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			log.Printf("migration failed: %v", err)
			return err
		}
	}
	return nil
}

const agentColumns = `id, agent_id, name, tree_status, path, last_node, depth, tick, scenario, last_seen`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row rowScanner, now time.Time) (Agent, error) {
	var a Agent
	var name, treeState, path, lastNode, scenario sql.NullString
	var lastSeen sql.NullTime
	var tick int64
	if err := row.Scan(&a.ID, &a.AgentID, &name, &treeState, &path, &lastNode, &a.Depth, &tick, &scenario, &lastSeen); err != nil {
		return Agent{}, err
	}
	a.Name = name.String
	a.TreeState = treeState.String
	a.Path = path.String
	a.LastNode = lastNode.String
	a.Scenario = scenario.String
	a.Tick = uint64(tick)
	if lastSeen.Valid {
		a.LastSeen = lastSeen.Time
	}
	a.Status = agentStatus(a.LastSeen, now)
	return a, nil
}

func agentStatus(lastSeen, now time.Time) string {
	switch {
	case lastSeen.IsZero():
		return "unknown"
	case now.Sub(lastSeen) > OfflineAfter:
		return "offline"
	default:
		return "online"
	}
}

func (d *DB) ListAgents(ctx context.Context) ([]Agent, error) {
	rows, err := d.SQL.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY agent_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	now := time.Now()
	agents := []Agent{}
	for rows.Next() {
		a, err := scanAgent(rows, now)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// GetAgent looks an agent up by its agent_id. Missing agents return sql.ErrNoRows.
func (d *DB) GetAgent(ctx context.Context, agentID string) (Agent, error) {
	row := d.SQL.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE agent_id = ?`, agentID)
	return scanAgent(row, time.Now())
}

// UpsertAgentState records a telemetry heartbeat.
func (d *DB) UpsertAgentState(ctx context.Context, s AgentState) error {
	if strings.TrimSpace(s.AgentID) == "" {
		return errors.New("agent id required")
	}
	_, err := d.SQL.ExecContext(ctx, `INSERT INTO agents (agent_id, name, tree_status, path, last_node, depth, tick, scenario, last_seen)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(agent_id) DO UPDATE SET
	name=CASE WHEN excluded.name != '' THEN excluded.name ELSE agents.name END,
	tree_status=excluded.tree_status,
	path=excluded.path,
	last_node=excluded.last_node,
	depth=excluded.depth,
	tick=excluded.tick,
	scenario=excluded.scenario,
	last_seen=excluded.last_seen`,
		s.AgentID, s.Name, s.TreeState, s.Path, s.LastNode, s.Depth, int64(s.Tick), s.Scenario, time.Now().UTC())
	return err
}

// DeleteAgent forgets an agent. It returns sql.ErrNoRows when agentID is unknown.
func (d *DB) DeleteAgent(ctx context.Context, agentID string) error {
	res, err := d.SQL.ExecContext(ctx, `DELETE FROM agents WHERE agent_id = ?`, agentID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (d *DB) ListScenarios(ctx context.Context) ([]Scenario, error) {
	rows, err := d.SQL.QueryContext(ctx, `SELECT id, name, description, config_yaml FROM scenarios ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	scenarios := []Scenario{}
	for rows.Next() {
		var s Scenario
		var desc sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &desc, &s.ConfigYAML); err != nil {
			return nil, err
		}
		s.Description = desc.String
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}

func (d *DB) GetScenarioByID(ctx context.Context, id int64) (Scenario, error) {
	var s Scenario
	var desc sql.NullString
	err := d.SQL.QueryRowContext(ctx, `SELECT id, name, description, config_yaml FROM scenarios WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &desc, &s.ConfigYAML)
	if err != nil {
		return Scenario{}, err
	}
	s.Description = desc.String
	return s, nil
}

func (d *DB) CreateScenario(ctx context.Context, s Scenario) (int64, error) {
	res, err := d.SQL.ExecContext(ctx, `INSERT INTO scenarios (name, description, config_yaml) VALUES (?, ?, ?)`,
		s.Name, s.Description, s.ConfigYAML)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateScenario rewrites a scenario. It returns sql.ErrNoRows when id is unknown.
func (d *DB) UpdateScenario(ctx context.Context, s Scenario) error {
	res, err := d.SQL.ExecContext(ctx, `UPDATE scenarios SET name = ?, description = ?, config_yaml = ? WHERE id = ?`,
		s.Name, s.Description, s.ConfigYAML, s.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteScenario returns sql.ErrNoRows when id is unknown.
func (d *DB) DeleteScenario(ctx context.Context, id int64) error {
	res, err := d.SQL.ExecContext(ctx, `DELETE FROM scenarios WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (d *DB) CreateCommand(ctx context.Context, c Command) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	res, err := d.SQL.ExecContext(ctx, `INSERT INTO commands (type, target_agent, payload_json, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Type, c.TargetAgent, c.PayloadJSON, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) UpdateCommandStatus(ctx context.Context, id int64, status string) error {
	_, err := d.SQL.ExecContext(ctx, `UPDATE commands SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().UTC(), id)
	return err
}

// ListCommands returns the command log newest first, optionally for one target.
func (d *DB) ListCommands(ctx context.Context, target string) ([]Command, error) {
	query := `SELECT id, type, target_agent, payload_json, status, created_at, updated_at FROM commands`
	var args []interface{}
	if target != "" {
		query += ` WHERE target_agent = ?`
		args = append(args, target)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := d.SQL.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cmds := []Command{}
	for rows.Next() {
		var c Command
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.Type, &c.TargetAgent, &c.PayloadJSON, &c.Status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			c.CreatedAt = createdAt.Time
		}
		if updatedAt.Valid {
			c.UpdatedAt = updatedAt.Time
		}
		cmds = append(cmds, c)
	}
	return cmds, rows.Err()
}
