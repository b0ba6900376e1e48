package status

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/grid-monitor/internal/logic"
	"github.com/sweeney/grid-monitor/internal/metrics"
)

// Sender delivers a payload when the session is up. It reports sent=false
// with a nil error when the message was dropped because there is no session.
type Sender interface {
	Publish(topic string, payload []byte, retained bool) (bool, error)
}

// Publisher emits status records on demand or when the heartbeat is due.
// Records that cannot be delivered are dropped, never queued.
type Publisher struct {
	sender    Sender
	topic     string
	retained  bool
	heartbeat *logic.Heartbeat
	metrics   *metrics.Metrics
	last      []byte
}

// NewPublisher creates a Publisher whose first heartbeat is due interval after start.
func NewPublisher(sender Sender, topic string, retained bool, interval time.Duration, start time.Time, m *metrics.Metrics) *Publisher {
	return &Publisher{
		sender:    sender,
		topic:     topic,
		retained:  retained,
		heartbeat: logic.NewHeartbeat(interval, start),
		metrics:   m,
	}
}

// Publish sends rec if force is set or the heartbeat is due. A successful
// send restarts the heartbeat period. It reports whether a record was sent.
func (p *Publisher) Publish(now time.Time, rec Record, force bool) (bool, error) {
	if !force && !p.heartbeat.Due(now) {
		return false, nil
	}

	payload, err := FormatRecord(rec)
	if err != nil {
		return false, fmt.Errorf("format status: %w", err)
	}

	sent, err := p.sender.Publish(p.topic, payload, p.retained)
	p.metrics.Publish(sent, err)
	if err != nil {
		return false, fmt.Errorf("publish status: %w", err)
	}
	if !sent {
		return false, nil
	}

	p.heartbeat.Mark(now)
	p.last = payload
	log.Printf("status published: %s", payload)
	return true, nil
}

// LastPublished returns the time of the last successful publish (or the start time).
func (p *Publisher) LastPublished() time.Time {
	return p.heartbeat.Last()
}

// LastPayload returns the most recently sent payload, nil if none.
func (p *Publisher) LastPayload() []byte {
	return p.last
}
