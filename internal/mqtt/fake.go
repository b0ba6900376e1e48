package mqtt

import "errors"

// Published is one message recorded by FakeTransport.
type Published struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakeTransport records publishes and serves scripted inbound messages.
type FakeTransport struct {
	// Published contains every successful publish, in order.
	Published []Published

	// Subscriptions contains every subscribed topic, in order.
	Subscriptions []string

	// Inbound is the queue handed out by Poll.
	Inbound []Message

	// Connects counts Connect calls; LastOptions holds the most recent options.
	Connects    int
	LastOptions ConnectOptions

	// ConnectError, SubscribeError and PublishError, if set, are returned by the matching call.
	ConnectError   error
	SubscribeError error
	PublishError   error

	// Connected controls the return value of IsConnected. Connect sets it on success.
	Connected bool

	// Closed counts Close calls.
	Closed int
}

// NewFakeTransport creates a FakeTransport for testing.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{}
}

// Connect records the attempt and marks the fake connected unless ConnectError is set.
func (f *FakeTransport) Connect(opts ConnectOptions) error {
	f.Connects++
	f.LastOptions = opts
	if f.ConnectError != nil {
		f.Connected = false
		return f.ConnectError
	}
	f.Connected = true
	return nil
}

// Subscribe records the topic.
func (f *FakeTransport) Subscribe(topic string) error {
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.Subscriptions = append(f.Subscriptions, topic)
	return nil
}

// Publish records the message.
func (f *FakeTransport) Publish(topic string, payload []byte, retained bool) error {
	if !f.Connected {
		return errors.New("publish: not connected")
	}
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Published = append(f.Published, Published{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

// Poll pops the first Inbound message.
func (f *FakeTransport) Poll() (Message, bool) {
	if len(f.Inbound) == 0 {
		return Message{}, false
	}
	m := f.Inbound[0]
	f.Inbound = f.Inbound[1:]
	return m, true
}

// Deliver queues an inbound message.
func (f *FakeTransport) Deliver(topic, payload string) {
	f.Inbound = append(f.Inbound, Message{Topic: topic, Payload: []byte(payload)})
}

// IsConnected reports whether the fake transport is "connected".
func (f *FakeTransport) IsConnected() bool {
	return f.Connected
}

// Close marks the transport as disconnected.
func (f *FakeTransport) Close() error {
	f.Closed++
	f.Connected = false
	return nil
}

// PublishedTo returns the publishes sent to topic.
func (f *FakeTransport) PublishedTo(topic string) []Published {
	var out []Published
	for _, p := range f.Published {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// Reset clears recorded state.
func (f *FakeTransport) Reset() {
	*f = FakeTransport{}
}
