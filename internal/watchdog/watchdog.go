// Package watchdog feeds a hardware or software watchdog from the control loop.
package watchdog

import (
	"fmt"
	"io"
	"log"
	"os"
)

// DefaultDevice is the Linux watchdog character device.
const DefaultDevice = "/dev/watchdog"

// Feeder is fed once per control cycle. A missed feed lets the watchdog
// reset the device.
type Feeder interface {
	Feed() error
	Close() error
}

// Noop is a Feeder that does nothing. Used when no watchdog is configured.
type Noop struct{}

func (Noop) Feed() error  { return nil }
func (Noop) Close() error { return nil }

// Device feeds a Linux watchdog device by writing to it.
type Device struct {
	w io.WriteCloser
}

// OpenDevice opens the watchdog at path. Once opened, the kernel expects
// regular feeds until Close is called.
func OpenDevice(path string) (*Device, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open watchdog %s: %w", path, err)
	}
	log.Printf("watchdog: opened %s", path)
	return &Device{w: f}, nil
}

// Feed pets the watchdog.
func (d *Device) Feed() error {
	if _, err := d.w.Write([]byte{'1'}); err != nil {
		return fmt.Errorf("feed watchdog: %w", err)
	}
	return nil
}

// Close writes the magic character so the kernel disarms the timer, then
// closes the device.
func (d *Device) Close() error {
	_, werr := d.w.Write([]byte{'V'})
	cerr := d.w.Close()
	if werr != nil {
		return fmt.Errorf("disarm watchdog: %w", werr)
	}
	return cerr
}

// Counter counts feeds. Used in tests.
type Counter struct {
	Feeds   int
	Closed  bool
	FeedErr error
}

func (c *Counter) Feed() error {
	if c.FeedErr != nil {
		return c.FeedErr
	}
	c.Feeds++
	return nil
}

func (c *Counter) Close() error {
	c.Closed = true
	return nil
}
