package mqttc

import (
	"log"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	commandTopicPrefix   = "npc/commands/"
	telemetryTopicPrefix = "npc/telemetry/"

	// BroadcastTopic reaches every agent.
	BroadcastTopic = commandTopicPrefix + "all"
	// TelemetryWildcard matches every agent's telemetry topic.
	TelemetryWildcard = telemetryTopicPrefix + "#"
)

// CommandTopic is the per-agent command topic.
func CommandTopic(agentID string) string { return commandTopicPrefix + agentID }

// TelemetryTopic is where an agent publishes its retained telemetry.
func TelemetryTopic(agentID string) string { return telemetryTopicPrefix + agentID }

// AgentIDFromTelemetryTopic returns "" for topics outside the telemetry tree.
func AgentIDFromTelemetryTopic(topic string) string {
	if !strings.HasPrefix(topic, telemetryTopicPrefix) {
		return ""
	}
	return strings.TrimPrefix(topic, telemetryTopicPrefix)
}

type Client struct {
	Client mqtt.Client
}

// NewClientWithBroker connects to broker, falling back to $MQTT_BROKER and
// then the local default when broker is empty.
func NewClientWithBroker(clientID, broker string) *Client {
	return NewClientWithHandler(clientID, broker, nil)
}

// NewClientWithHandler lets callers provide an OnConnect handler.
func NewClientWithHandler(clientID, broker string, onConnect mqtt.OnConnectHandler) *Client {
	if broker == "" {
		broker = os.Getenv("MQTT_BROKER")
		if broker == "" {
			broker = "tcp://127.0.0.1:1883"
		}
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		log.Printf("MQTT connect error: %v", token.Error())
	}
	return &Client{Client: c}
}

// Connected is false for a nil or disconnected client.
func (c *Client) Connected() bool {
	return c != nil && c.Client != nil && c.Client.IsConnected()
}

func (c *Client) Publish(topic string, payload []byte) {
	c.publish(topic, payload, false)
}

// PublishRetained publishes a message the broker keeps for late subscribers.
func (c *Client) PublishRetained(topic string, payload []byte) {
	c.publish(topic, payload, true)
}

func (c *Client) publish(topic string, payload []byte, retained bool) {
	if c == nil || c.Client == nil {
		return
	}
	token := c.Client.Publish(topic, 0, retained, payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("MQTT publish %s error: %v", topic, token.Error())
	}
}

func (c *Client) Subscribe(topic string, handler mqtt.MessageHandler) {
	if c == nil || c.Client == nil {
		return
	}
	token := c.Client.Subscribe(topic, 0, handler)
	token.Wait()
	if token.Error() != nil {
		log.Printf("MQTT subscribe error: %v", token.Error())
	}
}

func (c *Client) Disconnect() {
	if c == nil || c.Client == nil {
		return
	}
	c.Client.Disconnect(250)
}
