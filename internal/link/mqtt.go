package link

import (
	"fmt"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/tappie/internal/logic"
)

// Availability payloads, retained on the availability topic.
const (
	Online  = "online"
	Offline = "offline"
)

// Topics names the MQTT topics of one device.
type Topics struct {
	prefix string
}

// NewTopics returns the topics under tappie/<name>/.
func NewTopics(name string) Topics {
	return Topics{prefix: "tappie/" + name + "/"}
}

// Channel returns the topic of a notification channel.
func (t Topics) Channel(ch logic.Channel) string {
	return t.prefix + ch.String()
}

// Availability returns the retained availability topic.
func (t Topics) Availability() string {
	return t.prefix + "availability"
}

// MQTTConfig configures an MQTT link.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Name     string
}

// MQTT reports to a host through a broker. The broker session stands in
// for the host connection.
type MQTT struct {
	Signals

	client paho.Client
	topics Topics
}

// NewMQTT starts connecting to the broker in the background. Connection
// state is reported through Signals; an unreachable broker is not an error.
func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt: no broker configured")
	}
	m := &MQTT{topics: NewTopics(cfg.Name)}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(m.topics.Availability(), Offline, 1, true).
		SetOnConnectHandler(m.onConnect).
		SetConnectionLostHandler(m.onConnectionLost)

	m.client = paho.NewClient(opts)
	// With connect retry the token only completes once connected.
	m.client.Connect()

	slog.Info("mqtt: connecting", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return m, nil
}

// onConnect runs on a paho goroutine after every (re)connect.
func (m *MQTT) onConnect(client paho.Client) {
	slog.Info("mqtt: connected")
	m.Established()
	if err := m.publish(m.topics.Availability(), 1, true, Online); err != nil {
		slog.Warn("mqtt: availability publish failed", "error", err)
	}
}

func (m *MQTT) onConnectionLost(client paho.Client, err error) {
	slog.Warn("mqtt: connection lost", "error", err)
	m.Lost()
}

func (m *MQTT) publish(topic string, qos byte, retained bool, payload string) error {
	token := m.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Notify publishes payload on the channel's topic.
func (m *MQTT) Notify(ch logic.Channel, payload string) error {
	if !m.Status().Connected || !m.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	// QoS 0 (at-most-once), not retained
	return m.publish(m.topics.Channel(ch), 0, false, payload)
}

// Advertise republishes the retained online marker.
func (m *MQTT) Advertise() error {
	if !m.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	return m.publish(m.topics.Availability(), 1, true, Online)
}

// Disconnect marks the device offline and closes the broker session.
func (m *MQTT) Disconnect() error {
	var err error
	if m.client.IsConnectionOpen() {
		err = m.publish(m.topics.Availability(), 1, true, Offline)
	}
	m.client.Disconnect(250)
	m.Lost()
	return err
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	if m.client.IsConnected() {
		return m.Disconnect()
	}
	m.client.Disconnect(0)
	return nil
}
