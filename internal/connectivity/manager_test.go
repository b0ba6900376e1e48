package connectivity

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/grid-monitor/internal/mqtt"
	"github.com/sweeney/grid-monitor/internal/network"
)

var testTopics = mqtt.TopicsFor("TEST")

func newTestManager(link *network.FakeLink, tr *mqtt.FakeTransport) *Manager {
	cfg := Config{
		SSID:              "Homeguard",
		WiFiPassword:      "pw",
		WiFiTimeout:       30 * time.Second,
		Broker:            mqtt.ConnectOptions{Host: "broker", Port: 1883, ClientID: "TEST"},
		CommandTopic:      testTopics.Command,
		AvailabilityTopic: testTopics.Availability,
	}
	return NewManager(cfg, link, tr, nil)
}

func TestStartsNetworkDown(t *testing.T) {
	m := newTestManager(&network.FakeLink{}, mqtt.NewFakeTransport())
	if m.State() != NetworkDown {
		t.Errorf("got %s, want network_down", m.State())
	}
	if m.Connected() {
		t.Error("should not report connected")
	}
}

func TestFullConnectTakesTwoCalls(t *testing.T) {
	link := &network.FakeLink{ConnectResults: []bool{true}}
	tr := mqtt.NewFakeTransport()
	m := newTestManager(link, tr)

	if s := m.EnsureConnected(); s != BrokerDown {
		t.Fatalf("first call: got %s, want broker_down", s)
	}
	if tr.Connects != 0 {
		t.Error("broker attempt made in the same call as the network attempt")
	}
	if link.LastTimeout != 30*time.Second || link.LastSSID != "Homeguard" {
		t.Errorf("network attempt args: ssid=%s timeout=%v", link.LastSSID, link.LastTimeout)
	}

	if s := m.EnsureConnected(); s != Connected {
		t.Fatalf("second call: got %s, want connected", s)
	}
	if len(tr.Subscriptions) != 1 || tr.Subscriptions[0] != testTopics.Command {
		t.Errorf("subscriptions: got %v", tr.Subscriptions)
	}
	avail := tr.PublishedTo(testTopics.Availability)
	if len(avail) != 1 || string(avail[0].Payload) != "online" || !avail[0].Retained {
		t.Errorf("availability: got %+v", avail)
	}
	if m.LastError() != nil {
		t.Errorf("LastError: got %v", m.LastError())
	}
}

func TestNetworkAlreadyUpConnectsBrokerFirstCall(t *testing.T) {
	link := &network.FakeLink{Up: true}
	tr := mqtt.NewFakeTransport()
	m := newTestManager(link, tr)

	if s := m.EnsureConnected(); s != Connected {
		t.Fatalf("got %s, want connected", s)
	}
	if link.Attempts != 0 {
		t.Error("should not attempt network when already up")
	}
}

func TestOneAttemptPerCall(t *testing.T) {
	link := &network.FakeLink{}
	tr := mqtt.NewFakeTransport()
	m := newTestManager(link, tr)

	for i := 0; i < 5; i++ {
		if s := m.EnsureConnected(); s != NetworkDown {
			t.Fatalf("call %d: got %s", i, s)
		}
	}
	if link.Attempts != 5 {
		t.Errorf("network attempts: got %d, want 5", link.Attempts)
	}

	var ce *ConnectError
	if !errors.As(m.LastError(), &ce) || ce.Layer != LayerNetwork {
		t.Errorf("LastError: got %v", m.LastError())
	}
}

func TestBrokerFailureRetried(t *testing.T) {
	link := &network.FakeLink{Up: true}
	tr := mqtt.NewFakeTransport()
	tr.ConnectError = errors.New("connection refused")
	m := newTestManager(link, tr)

	for i := 0; i < 3; i++ {
		if s := m.EnsureConnected(); s != BrokerDown {
			t.Fatalf("call %d: got %s, want broker_down", i, s)
		}
	}
	if tr.Connects != 3 {
		t.Errorf("broker attempts: got %d, want 3", tr.Connects)
	}
	var ce *ConnectError
	if !errors.As(m.LastError(), &ce) || ce.Layer != LayerBroker {
		t.Errorf("LastError: got %v", m.LastError())
	}
	if !errors.Is(m.LastError(), tr.ConnectError) {
		t.Error("ConnectError should unwrap to the transport error")
	}

	tr.ConnectError = nil
	if s := m.EnsureConnected(); s != Connected {
		t.Errorf("after recovery: got %s", s)
	}
}

func TestSubscribeFailureClosesSession(t *testing.T) {
	link := &network.FakeLink{Up: true}
	tr := mqtt.NewFakeTransport()
	tr.SubscribeError = errors.New("not authorized")
	m := newTestManager(link, tr)

	if s := m.EnsureConnected(); s != BrokerDown {
		t.Fatalf("got %s, want broker_down", s)
	}
	if tr.Connected {
		t.Error("session should be closed after subscribe failure")
	}
}

func TestBrokerLossFallsBackAndResubscribes(t *testing.T) {
	link := &network.FakeLink{Up: true}
	tr := mqtt.NewFakeTransport()
	m := newTestManager(link, tr)
	m.EnsureConnected()

	// Broker drops; network stays.
	tr.Connected = false
	tr.ConnectError = errors.New("refused")
	if s := m.EnsureConnected(); s != BrokerDown {
		t.Fatalf("got %s, want broker_down", s)
	}

	tr.ConnectError = nil
	if s := m.EnsureConnected(); s != Connected {
		t.Fatalf("got %s, want connected", s)
	}
	if len(tr.Subscriptions) != 2 {
		t.Errorf("expected re-subscribe, subscriptions: %v", tr.Subscriptions)
	}
	if m.Sessions() != 2 {
		t.Errorf("sessions: got %d, want 2", m.Sessions())
	}
}

func TestSilentReconnectCountsSession(t *testing.T) {
	link := &network.FakeLink{Up: true}
	tr := mqtt.NewFakeTransport()
	m := newTestManager(link, tr)
	m.EnsureConnected()

	tr.Connected = false
	if s := m.EnsureConnected(); s != Connected {
		t.Fatalf("got %s, want connected", s)
	}
	if m.Sessions() != 2 {
		t.Errorf("sessions: got %d, want 2", m.Sessions())
	}
	if tr.Closed != 1 {
		t.Errorf("stale session should be closed once, got %d", tr.Closed)
	}
}

func TestNetworkLossFallsBackToNetworkDown(t *testing.T) {
	link := &network.FakeLink{Up: true}
	tr := mqtt.NewFakeTransport()
	m := newTestManager(link, tr)
	m.EnsureConnected()

	link.Up = false
	if s := m.EnsureConnected(); s != NetworkDown {
		t.Fatalf("got %s, want network_down", s)
	}
	if tr.Closed == 0 {
		t.Error("transport should be closed on network loss")
	}
	if m.Connected() {
		t.Error("should not report connected")
	}
}

func TestPollAndPublishGatedOnConnected(t *testing.T) {
	link := &network.FakeLink{Up: true}
	tr := mqtt.NewFakeTransport()
	tr.Deliver(testTopics.Command, "ON")
	m := newTestManager(link, tr)

	if _, ok := m.Poll(); ok {
		t.Error("Poll should return nothing before connect")
	}
	sent, err := m.Publish(testTopics.Status, []byte("{}"), false)
	if sent || err != nil {
		t.Errorf("Publish before connect: sent=%v err=%v", sent, err)
	}

	m.EnsureConnected()
	msg, ok := m.Poll()
	if !ok || string(msg.Payload) != "ON" {
		t.Errorf("Poll: got %q ok=%v", msg.Payload, ok)
	}
	sent, err = m.Publish(testTopics.Status, []byte("{}"), false)
	if !sent || err != nil {
		t.Errorf("Publish: sent=%v err=%v", sent, err)
	}

	tr.PublishError = errors.New("broken pipe")
	sent, err = m.Publish(testTopics.Status, []byte("{}"), false)
	if sent || err == nil {
		t.Errorf("Publish with error: sent=%v err=%v", sent, err)
	}
}

func TestClosePublishesOffline(t *testing.T) {
	link := &network.FakeLink{Up: true}
	tr := mqtt.NewFakeTransport()
	m := newTestManager(link, tr)
	m.EnsureConnected()

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	avail := tr.PublishedTo(testTopics.Availability)
	if len(avail) != 2 || string(avail[1].Payload) != "offline" {
		t.Errorf("availability: got %+v", avail)
	}
	if tr.Connected {
		t.Error("transport should be closed")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		NetworkDown: "network_down",
		BrokerDown:  "broker_down",
		Connected:   "connected",
		State(9):    "State(9)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("got %s, want %s", s.String(), want)
		}
	}
}
