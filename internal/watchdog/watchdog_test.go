package watchdog

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

type bufCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufCloser) Close() error {
	b.closed = true
	return nil
}

func TestDeviceFeedAndDisarm(t *testing.T) {
	buf := &bufCloser{}
	d := &Device{w: buf}

	for i := 0; i < 3; i++ {
		if err := d.Feed(); err != nil {
			t.Fatalf("feed %d: %v", i, err)
		}
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := buf.String(); got != "111V" {
		t.Errorf("written: got %q, want 111V", got)
	}
	if !buf.closed {
		t.Error("device not closed")
	}
}

func TestOpenDeviceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchdog")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := OpenDevice(path)
	if err != nil {
		t.Fatalf("OpenDevice: %v", err)
	}
	d.Feed()
	d.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "1V" {
		t.Errorf("file contents: got %q, want 1V", data)
	}
}

func TestOpenDeviceMissing(t *testing.T) {
	if _, err := OpenDevice(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing device")
	}
}

func TestNoopAndCounter(t *testing.T) {
	var f Feeder = Noop{}
	if err := f.Feed(); err != nil {
		t.Errorf("noop feed: %v", err)
	}

	c := &Counter{}
	f = c
	f.Feed()
	f.Feed()
	f.Close()
	if c.Feeds != 2 || !c.Closed {
		t.Errorf("counter: %+v", c)
	}
}
