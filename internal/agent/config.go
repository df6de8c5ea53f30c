package agent

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTickInterval      = 100 * time.Millisecond
	defaultTelemetryInterval = time.Second
	defaultConversationRange = 200
	defaultMaxMessageHistory = 20
	defaultMaxMemories       = 10
)

// ReservedAgentID names the broadcast command topic and cannot identify an agent.
const ReservedAgentID = "all"

// Config represents the agent's runtime configuration.
type Config struct {
	AgentID           string        `yaml:"agent_id"`
	Name              string        `yaml:"name"`
	MQTTBroker        string        `yaml:"mqtt_broker"`
	TickInterval      time.Duration `yaml:"tick_interval"`
	TelemetryInterval time.Duration `yaml:"telemetry_interval"`
	ScenarioPath      string        `yaml:"scenario_path"`
	Debug             bool          `yaml:"debug"`
	ConversationRange float64       `yaml:"conversation_range"`
	MaxMessageHistory int           `yaml:"max_message_history"`
	MaxMemories       int           `yaml:"max_memories"`
	Profile           Profile       `yaml:"profile"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config file %s not found", path)
		}
		return cfg, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML, applies defaults and validates the result.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = c.Profile.Name
	}
	if c.Name == "" {
		c.Name = c.AgentID
	}
	if c.Profile.Name == "" {
		c.Profile.Name = c.Name
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.TelemetryInterval <= 0 {
		c.TelemetryInterval = defaultTelemetryInterval
	}
	if c.ConversationRange <= 0 {
		c.ConversationRange = defaultConversationRange
	}
	if c.MaxMessageHistory <= 0 {
		c.MaxMessageHistory = defaultMaxMessageHistory
	}
	if c.MaxMemories <= 0 {
		c.MaxMemories = defaultMaxMemories
	}
}

func (c Config) Validate() error {
	if c.AgentID == "" {
		return errors.New("config missing agent_id")
	}
	if c.AgentID == ReservedAgentID {
		return fmt.Errorf("agent_id %q is reserved for broadcasts", ReservedAgentID)
	}
	return nil
}
