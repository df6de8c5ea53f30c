package httpserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"example.com/npc-behaviour/internal/agent"
	"example.com/npc-behaviour/internal/controller"
	"example.com/npc-behaviour/internal/db"
	mqttc "example.com/npc-behaviour/internal/mqtt"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Server struct {
	DB         *db.DB
	MQTT       *mqttc.Client
	Controller *controller.Controller
	Hub        *TelemetryHub
}

// NewServer opens the store and subscribes to agent telemetry. mqttClient
// may be nil to run without a broker.
func NewServer(dbPath string, mqttClient *mqttc.Client) (*Server, error) {
	dbConn, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	s := &Server{
		DB:         dbConn,
		MQTT:       mqttClient,
		Controller: controller.New(dbConn, mqttClient),
		Hub:        NewTelemetryHub(),
	}
	s.subscribeTelemetry()
	return s, nil
}

// Handler returns the controller's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/agents", s.handleListAgents)
	mux.HandleFunc("/api/agents/command/broadcast", s.handleBroadcast)
	mux.HandleFunc("/api/agents/", s.handleAgentSubroutes)
	mux.HandleFunc("/api/scenarios", s.handleScenariosCollection)
	mux.HandleFunc("/api/scenarios/", s.handleScenarioItem)
	mux.HandleFunc("/api/commands", s.handleListCommands)
	mux.HandleFunc("/api/telemetry/stream", s.handleTelemetryStream)
	mux.HandleFunc("/api/telemetry/ws", s.Hub.ServeWS)
	return mux
}

func (s *Server) Start(addr string) error {
	log.Printf("controller listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) Close() error {
	s.MQTT.Disconnect()
	return s.DB.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.Controller.Health(w, r)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.Controller.ListAgents(w, r)
}

func (s *Server) handleAgentSubroutes(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimSuffix(r.URL.Path, "/")
	if strings.HasSuffix(trimmed, "/command") {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.Controller.AgentCommand(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.Controller.GetAgent(w, r)
	case http.MethodDelete:
		s.Controller.DeleteAgent(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.Controller.BroadcastCommand(w, r)
}

func (s *Server) handleScenariosCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.Controller.ListScenarios(w, r)
	case http.MethodPost:
		s.Controller.CreateScenario(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleScenarioItem(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/deploy") {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.Controller.DeployScenario(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.Controller.GetScenario(w, r)
	case http.MethodPut:
		s.Controller.UpdateScenario(w, r)
	case http.MethodDelete:
		s.Controller.DeleteScenario(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.Controller.ListCommands(w, r)
}

func (s *Server) handleTelemetryStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	s.Hub.ServeSSE(w, r)
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func (s *Server) subscribeTelemetry() {
	if !s.MQTT.Connected() {
		return
	}
	log.Printf("controller subscribing to %s", mqttc.TelemetryWildcard)
	s.MQTT.Subscribe(mqttc.TelemetryWildcard, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleTelemetry(msg.Topic(), msg.Payload())
	})
}

// handleTelemetry records one agent heartbeat and forwards it to stream
// subscribers.
func (s *Server) handleTelemetry(topic string, payload []byte) {
	agentID := mqttc.AgentIDFromTelemetryTopic(topic)
	if agentID == "" || agentID == agent.ReservedAgentID {
		log.Printf("telemetry: unable to parse agent id from topic %s", topic)
		return
	}
	var t agent.Telemetry
	if err := json.Unmarshal(payload, &t); err != nil {
		log.Printf("telemetry: invalid payload for %s: %v", agentID, err)
		return
	}
	t.AgentID = agentID
	state := db.AgentState{
		AgentID:   agentID,
		Name:      t.Name,
		TreeState: t.Status,
		Path:      t.Path,
		LastNode:  t.LastNode,
		Depth:     t.Depth,
		Tick:      t.Tick,
		Scenario:  t.Scenario,
	}
	if err := s.DB.UpsertAgentState(context.Background(), state); err != nil {
		log.Printf("telemetry: failed to upsert agent %s: %v", agentID, err)
	}
	out, err := json.Marshal(t)
	if err != nil {
		log.Printf("telemetry: marshal %s: %v", agentID, err)
		return
	}
	s.Hub.Broadcast(out)
}
