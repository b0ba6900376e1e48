// Package mqtt provides the publish/subscribe transport with abstraction for testing.
package mqtt

import (
	"fmt"
	"time"
)

// TopicPrefix is the namespace all device topics live under.
const TopicPrefix = "home/grid"

// Topics are the per-device topic names.
type Topics struct {
	Status       string // JSON status records
	Command      string // plaintext supervisory commands
	Availability string // retained "online"/"offline" presence
}

// TopicsFor returns the topic set for deviceID.
func TopicsFor(deviceID string) Topics {
	base := fmt.Sprintf("%s/%s", TopicPrefix, deviceID)
	return Topics{
		Status:       base + "/status",
		Command:      base + "/command",
		Availability: base + "/availability",
	}
}

// Availability payloads.
const (
	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"
)

// ConnectOptions describes a broker session.
type ConnectOptions struct {
	Host      string
	Port      int
	ClientID  string
	Username  string
	Password  string
	KeepAlive time.Duration
	Timeout   time.Duration // bound on the connect handshake

	// WillTopic, if set, receives WillPayload (retained) when the broker
	// detects an unclean disconnect.
	WillTopic   string
	WillPayload string
}

// BrokerURL returns the tcp:// URL for the options.
func (o ConnectOptions) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", o.Host, o.Port)
}

// Message is one inbound publish.
type Message struct {
	Topic   string
	Payload []byte
}

// Transport is a poll-style publish/subscribe session.
// Inbound messages are queued and handed out by Poll, so callers never
// receive callbacks on another goroutine.
type Transport interface {
	// Connect opens a session. It blocks for at most opts.Timeout.
	Connect(opts ConnectOptions) error

	// Subscribe registers interest in topic; matching messages become available via Poll.
	Subscribe(topic string) error

	// Publish sends payload to topic.
	Publish(topic string, payload []byte, retained bool) error

	// Poll returns the oldest queued inbound message, if any. Never blocks.
	Poll() (Message, bool)

	// IsConnected reports whether the session is currently up.
	IsConnected() bool

	// Close disconnects from the broker. Safe to call when not connected.
	Close() error
}
