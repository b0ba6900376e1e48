// Package gpio provides digital outputs (relay, status LED) with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Output drives a single digital output line.
type Output interface {
	// Set drives the line to its logical on/off state. Writes are idempotent.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin defaults (BCM numbering)
const (
	DefaultPinRelay = 17
	DefaultPinLED   = 27
)

// Pulse switches out on for d and back off. Used as a relay self-test at boot.
func Pulse(out Output, d time.Duration, sleep func(time.Duration)) error {
	if err := out.Set(true); err != nil {
		return err
	}
	sleep(d)
	return out.Set(false)
}

// Discard is an Output that drops all writes, used when a line is not wired.
type Discard struct{}

func (Discard) Set(bool) error { return nil }
func (Discard) Close() error   { return nil }
