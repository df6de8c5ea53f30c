package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"example.com/npc-behaviour/internal/agent/behavior"
	mqttc "example.com/npc-behaviour/internal/mqtt"
	"example.com/npc-behaviour/internal/scenario"
	mqttlib "github.com/eclipse/paho.mqtt.golang"
)

// AgentEngine drives one NPC's behaviour tree. The tree, its Context and the
// command queue are only touched from the goroutine running Run/Step.
type AgentEngine struct {
	Config     Config
	MQTTClient *mqttc.Client
	JobManager *JobManager
	Blackboard *behavior.Blackboard
	Tree       *behavior.Tree
	Registry   *scenario.Registry
	Responder  Responder

	clock         *behavior.ManualClock
	cmdChan       chan Command
	thread        *Thread
	profile       Profile
	rng           *rand.Rand
	scenarioName  string
	lastStatus    behavior.Status
	lastTelemetry time.Time
}

func NewAgentEngine(cfg Config) *AgentEngine {
	cfg.ApplyDefaults()
	clock := behavior.NewManualClock(time.Now())

	engine := &AgentEngine{
		Config:     cfg,
		JobManager: NewJobManager(),
		Registry:   scenario.NewRegistry(),
		Responder:  CannedResponder{},
		clock:      clock,
		cmdChan:    make(chan Command, 32),
		thread:     NewThread(cfg.Profile.Context),
		profile:    cfg.Profile,
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	engine.registerLeaves(engine.Registry)

	engine.Tree = behavior.NewTree(nil)
	engine.Tree.Context.Clock = clock
	if cfg.Debug {
		engine.Tree.Context.Logger = log.New(os.Stderr, "[bt] ", log.LstdFlags)
	}
	engine.Blackboard = engine.Tree.Context.Blackboard
	engine.Blackboard.Set(KeyPosition, Vec3{})

	if err := engine.LoadScenario("default", defaultScenario); err != nil {
		// the built-in scenario only references built-in leaves
		panic(fmt.Sprintf("agent: default scenario: %v", err))
	}
	return engine
}

// LoadScenarioFile replaces the tree with the scenario stored at path.
func (e *AgentEngine) LoadScenarioFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scenario %s: %w", path, err)
	}
	return e.LoadScenario("", string(data))
}

// LoadScenario parses and builds a tree and swaps it in with fresh
// resumption state. The blackboard is kept.
func (e *AgentEngine) LoadScenario(name, raw string) error {
	spec, err := scenario.Parse(raw)
	if err != nil {
		return err
	}
	root, err := scenario.Build(spec, e.Registry)
	if err != nil {
		return fmt.Errorf("build scenario: %w", err)
	}
	if name == "" {
		name = spec.Name
	}
	e.Tree.Replace(root)
	e.scenarioName = name
	log.Printf("[agent] loaded scenario %q", name)
	if l := e.Tree.Context.Logger; l != nil {
		l.Printf("scenario %q:\n%s", name, behavior.Dump(root))
	}
	return nil
}

// Start connects to the broker and ticks until ctx is cancelled.
func (e *AgentEngine) Start(ctx context.Context) {
	if e.MQTTClient == nil {
		e.connectMQTT()
	}
	log.Printf("agent engine started (tick %s)", e.Config.TickInterval)
	e.Run(ctx)
	e.MQTTClient.Disconnect()
}

// Run ticks the tree every TickInterval until ctx is cancelled. Conversation
// jobs started while running see ctx and are cancelled with it.
func (e *AgentEngine) Run(ctx context.Context) {
	e.JobManager = NewJobManagerWithContext(ctx)
	ticker := time.NewTicker(e.Config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.Step(now)
		}
	}
}

// Step runs one tick: queued commands first, then the tree, then telemetry
// when due. now is the single time every node sees during the tick.
func (e *AgentEngine) Step(now time.Time) behavior.Status {
	e.clock.Set(now)
	e.drainCommands()

	status := e.tick()
	e.lastStatus = status

	if now.Sub(e.lastTelemetry) >= e.Config.TelemetryInterval {
		e.publishTelemetry(now)
	}
	return status
}

// tick runs the tree, turning a leaf panic into a failed tick. Tree.Tick has
// already discarded resumption state by the time the panic reaches here.
func (e *AgentEngine) tick() (status behavior.Status) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[agent] tick aborted, tree reset: %v", r)
			status = behavior.StatusFailure
		}
	}()
	return e.Tree.Tick()
}

// Enqueue queues a command for the next tick. It never blocks; a full
// queue drops the command.
func (e *AgentEngine) Enqueue(cmd Command) bool {
	select {
	case e.cmdChan <- cmd:
		return true
	default:
		log.Printf("command queue full, dropping command: %s", cmd.Type)
		return false
	}
}

func (e *AgentEngine) drainCommands() {
	for {
		select {
		case cmd := <-e.cmdChan:
			if err := e.handleCommand(cmd); err != nil {
				log.Printf("%s failed: %v", cmd.Type, err)
			}
		default:
			return
		}
	}
}

func (e *AgentEngine) connectMQTT() {
	onConnect := func(c mqttlib.Client) {
		log.Printf("MQTT connected")
		for _, topic := range []string{mqttc.CommandTopic(e.Config.AgentID), mqttc.BroadcastTopic} {
			log.Printf("subscribing to %s", topic)
			if token := c.Subscribe(topic, 0, e.mqttHandler); token.Wait() && token.Error() != nil {
				log.Printf("subscribe %s error: %v", topic, token.Error())
			}
		}
	}
	e.MQTTClient = mqttc.NewClientWithHandler("agent-"+e.Config.AgentID, e.Config.MQTTBroker, onConnect)
}

func (e *AgentEngine) mqttHandler(_ mqttlib.Client, msg mqttlib.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		log.Printf("invalid command JSON: %v", err)
		return
	}
	if e.Enqueue(cmd) {
		log.Printf("queued command: %s", cmd.Type)
	}
}

// Telemetry is the debug snapshot an agent publishes after ticks.
type Telemetry struct {
	AgentID   string `json:"agent_id"`
	Name      string `json:"name"`
	TS        string `json:"ts"`
	Tick      uint64 `json:"tick"`
	Status    string `json:"status"`
	LastNode  string `json:"last_node"`
	Path      string `json:"path"`
	Depth     int    `json:"depth"`
	Scenario  string `json:"scenario"`
	JobID     string `json:"job_id,omitempty"`
	JobStatus string `json:"job_status,omitempty"`
	JobError  string `json:"job_error,omitempty"`
}

// Snapshot captures the tree's debug fields after the last tick.
func (e *AgentEngine) Snapshot(now time.Time) Telemetry {
	bctx := e.Tree.Context
	t := Telemetry{
		AgentID:  e.Config.AgentID,
		Name:     e.Config.Name,
		TS:       now.UTC().Format(time.RFC3339),
		Tick:     e.Tree.Ticks(),
		Status:   e.lastStatus.String(),
		Path:     bctx.CurrentPath,
		Depth:    bctx.CurrentDepth,
		Scenario: e.scenarioName,
	}
	if bctx.LastExecutedNode != nil {
		t.LastNode = bctx.LastExecutedNode.Name()
	}
	if job := e.JobManager.GetCurrentJob(); job != nil {
		t.JobID = job.ID
		t.JobStatus = string(job.Status)
		t.JobError = job.Error
	}
	return t
}

func (e *AgentEngine) publishTelemetry(now time.Time) {
	e.lastTelemetry = now
	if !e.MQTTClient.Connected() {
		return
	}
	buf, err := json.Marshal(e.Snapshot(now))
	if err != nil {
		log.Printf("telemetry marshal error: %v", err)
		return
	}
	e.MQTTClient.PublishRetained(mqttc.TelemetryTopic(e.Config.AgentID), buf)
}

// Profile returns a copy of the NPC profile including its memories.
func (e *AgentEngine) Profile() Profile {
	p := e.profile
	p.Memory = append([]string(nil), e.profile.Memory...)
	return p
}

// Thread exposes the current conversation history.
func (e *AgentEngine) Thread() *Thread { return e.thread }
