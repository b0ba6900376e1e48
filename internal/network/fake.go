package network

import (
	"errors"
	"time"
)

// FakeLink is a scripted Link for tests.
type FakeLink struct {
	// Up controls IsConnected.
	Up bool

	// ConnectResults are consumed one per Connect call; true brings the link up.
	// When exhausted, Connect fails.
	ConnectResults []bool

	// Attempts counts Connect calls; LastSSID and LastTimeout record the latest call.
	Attempts    int
	LastSSID    string
	LastTimeout time.Duration
}

// Connect consumes the next scripted result.
func (f *FakeLink) Connect(ssid, password string, timeout time.Duration) error {
	f.Attempts++
	f.LastSSID = ssid
	f.LastTimeout = timeout
	if len(f.ConnectResults) == 0 {
		return errors.New("no network")
	}
	ok := f.ConnectResults[0]
	f.ConnectResults = f.ConnectResults[1:]
	if !ok {
		return errors.New("association failed")
	}
	f.Up = true
	return nil
}

// IsConnected returns Up.
func (f *FakeLink) IsConnected() bool {
	return f.Up
}
