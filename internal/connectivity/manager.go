// Package connectivity owns the network and broker session lifecycle.
package connectivity

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"

	"github.com/sweeney/grid-monitor/internal/metrics"
	"github.com/sweeney/grid-monitor/internal/mqtt"
	"github.com/sweeney/grid-monitor/internal/network"
)

// State is the connectivity level reached so far.
type State int

const (
	NetworkDown State = iota
	BrokerDown
	Connected
)

func (s State) String() string {
	switch s {
	case NetworkDown:
		return "network_down"
	case BrokerDown:
		return "broker_down"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Layer names used in errors and metrics.
const (
	LayerNetwork = "network"
	LayerBroker  = "broker"
)

// ConnectError is a transient failure to reach the network or the broker.
// It is retried on the next cycle and never escalated.
type ConnectError struct {
	Layer string
	Err   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("%s connect: %v", e.Layer, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Config holds credentials and bounds for connection attempts.
type Config struct {
	SSID         string
	WiFiPassword string
	WiFiTimeout  time.Duration
	Broker       mqtt.ConnectOptions
	CommandTopic string
	// Availability, if set, receives a retained "online" after each broker connect.
	AvailabilityTopic string
}

// Manager drives NetworkDown -> BrokerDown -> Connected, one attempt per call.
// Not safe for concurrent use; the control loop is its only caller.
type Manager struct {
	cfg       Config
	link      network.Link
	transport mqtt.Transport
	metrics   *metrics.Metrics
	state     State
	lastErr   error
	logFail   rate.Sometimes
	sessions  int
}

// NewManager creates a Manager in NetworkDown.
func NewManager(cfg Config, link network.Link, transport mqtt.Transport, m *metrics.Metrics) *Manager {
	return &Manager{
		cfg:       cfg,
		link:      link,
		transport: transport,
		metrics:   m,
		state:     NetworkDown,
		logFail:   rate.Sometimes{First: 3, Interval: time.Minute},
	}
}

// EnsureConnected checks both layers, falls back on detected loss and makes
// at most one connection attempt. It never returns an error: failures are
// logged (throttled), kept in LastError and retried on the next call.
func (m *Manager) EnsureConnected() State {
	if !m.link.IsConnected() {
		if m.state != NetworkDown {
			log.Printf("connectivity: network lost")
			m.transport.Close()
			m.state = NetworkDown
		}
		if err := m.link.Connect(m.cfg.SSID, m.cfg.WiFiPassword, m.cfg.WiFiTimeout); err != nil {
			m.fail(&ConnectError{Layer: LayerNetwork, Err: err})
			return m.setState(NetworkDown)
		}
		m.metrics.ConnectAttempt(LayerNetwork, nil)
		log.Printf("connectivity: network up")
		// The broker attempt waits for the next call.
		return m.setState(BrokerDown)
	}

	if m.state == Connected {
		if m.transport.IsConnected() {
			return m.state
		}
		log.Printf("connectivity: broker session lost")
		m.transport.Close()
	}

	if err := m.connectBroker(); err != nil {
		m.fail(&ConnectError{Layer: LayerBroker, Err: err})
		return m.setState(BrokerDown)
	}
	m.metrics.ConnectAttempt(LayerBroker, nil)
	m.lastErr = nil
	m.sessions++
	log.Printf("connectivity: connected to %s, subscribed to %s", m.cfg.Broker.BrokerURL(), m.cfg.CommandTopic)
	return m.setState(Connected)
}

func (m *Manager) connectBroker() error {
	if err := m.transport.Connect(m.cfg.Broker); err != nil {
		return err
	}
	if err := m.transport.Subscribe(m.cfg.CommandTopic); err != nil {
		m.transport.Close()
		return err
	}
	if m.cfg.AvailabilityTopic != "" {
		if err := m.transport.Publish(m.cfg.AvailabilityTopic, []byte(mqtt.AvailabilityOnline), true); err != nil {
			log.Printf("connectivity: publish availability: %v", err)
		}
	}
	return nil
}

func (m *Manager) fail(err *ConnectError) {
	m.lastErr = err
	m.metrics.ConnectAttempt(err.Layer, err)
	m.logFail.Do(func() {
		log.Printf("connectivity: %v (retrying every cycle)", err)
	})
}

func (m *Manager) setState(s State) State {
	if s == Connected {
		// Reset throttling so the next outage logs immediately.
		m.logFail = rate.Sometimes{First: 3, Interval: time.Minute}
	}
	m.state = s
	m.metrics.Connectivity(int(s))
	return s
}

// State returns the state reached by the last EnsureConnected call.
func (m *Manager) State() State {
	return m.state
}

// Sessions counts successful broker connects. A change between two calls
// means the session was re-established, even if State stayed Connected.
func (m *Manager) Sessions() int {
	return m.sessions
}

// Connected reports whether publishes can be attempted.
func (m *Manager) Connected() bool {
	return m.state == Connected
}

// LastError returns the most recent connection failure, nil after a successful connect.
func (m *Manager) LastError() error {
	return m.lastErr
}

// Poll returns one queued inbound message when connected.
func (m *Manager) Poll() (mqtt.Message, bool) {
	if m.state != Connected {
		return mqtt.Message{}, false
	}
	return m.transport.Poll()
}

// Publish sends payload if connected. It reports whether the message was handed to the transport.
func (m *Manager) Publish(topic string, payload []byte, retained bool) (bool, error) {
	if m.state != Connected {
		return false, nil
	}
	if err := m.transport.Publish(topic, payload, retained); err != nil {
		return false, err
	}
	return true, nil
}

// Close publishes availability offline (when connected) and ends the session.
func (m *Manager) Close() error {
	if m.state == Connected && m.cfg.AvailabilityTopic != "" {
		if err := m.transport.Publish(m.cfg.AvailabilityTopic, []byte(mqtt.AvailabilityOffline), true); err != nil {
			log.Printf("connectivity: publish availability: %v", err)
		}
	}
	m.state = BrokerDown
	return m.transport.Close()
}
