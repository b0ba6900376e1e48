//go:build !linux

package gpio

import "errors"

// LineOutput is not available on non-Linux platforms.
type LineOutput struct{}

// NewLineOutput returns an error on non-Linux platforms.
func NewLineOutput(chipName string, pin int, activeLow bool) (*LineOutput, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Set is not implemented on non-Linux platforms.
func (o *LineOutput) Set(on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (o *LineOutput) Close() error {
	return nil
}
