package mqtt

import (
	"errors"
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// inboxCapacity bounds queued commands between two polls.
const inboxCapacity = 16

const publishTimeout = 5 * time.Second

// PahoTransport implements Transport on top of the Eclipse Paho client.
// Reconnection is left to the caller: auto-reconnect is disabled so the
// connectivity state machine stays the single owner of the session.
type PahoTransport struct {
	client paho.Client
	inbox  *inbox
}

// NewPahoTransport creates an unconnected transport.
func NewPahoTransport() *PahoTransport {
	return &PahoTransport{inbox: newInbox(inboxCapacity)}
}

// Connect opens a new broker session, replacing any previous client.
func (p *PahoTransport) Connect(o ConnectOptions) error {
	if p.client != nil {
		p.client.Disconnect(250)
		p.client = nil
	}

	opts := paho.NewClientOptions().
		AddBroker(o.BrokerURL()).
		SetClientID(o.ClientID).
		SetCleanSession(true).
		SetKeepAlive(o.KeepAlive).
		SetConnectTimeout(o.Timeout).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(false)

	if o.Username != "" {
		opts.SetUsername(o.Username)
	}
	if o.Password != "" {
		opts.SetPassword(o.Password)
	}
	if o.WillTopic != "" {
		opts.SetWill(o.WillTopic, o.WillPayload, 1, true)
	}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Printf("mqtt: connection lost: %v", err)
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(o.Timeout) {
		client.Disconnect(0)
		return fmt.Errorf("connect to %s: timeout after %v", o.BrokerURL(), o.Timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", o.BrokerURL(), err)
	}

	p.client = client
	return nil
}

// Subscribe registers topic at QoS 1; messages are queued for Poll.
func (p *PahoTransport) Subscribe(topic string) error {
	if p.client == nil {
		return errors.New("subscribe: not connected")
	}
	token := p.client.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		p.inbox.push(Message{Topic: m.Topic(), Payload: append([]byte(nil), m.Payload()...)})
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Publish sends payload at QoS 0 (at-most-once); status is a point-in-time observation.
func (p *PahoTransport) Publish(topic string, payload []byte, retained bool) error {
	if p.client == nil {
		return errors.New("publish: not connected")
	}
	token := p.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Poll returns the oldest queued inbound message.
func (p *PahoTransport) Poll() (Message, bool) {
	return p.inbox.pop()
}

// IsConnected reports whether the underlying client has a live session.
func (p *PahoTransport) IsConnected() bool {
	return p.client != nil && p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *PahoTransport) Close() error {
	if p.client != nil {
		p.client.Disconnect(1000) // 1 second timeout
		p.client = nil
	}
	return nil
}
