package sensor

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultIIOPath is channel 0 of the first IIO device (e.g. an ADS1015 or MCP3208 driver).
const DefaultIIOPath = "/sys/bus/iio/devices/iio:device0/in_voltage0_raw"

// IIOReader reads raw samples from a Linux Industrial I/O sysfs channel.
type IIOReader struct {
	path string
}

// NewIIOReader checks the channel is readable and returns a reader for it.
func NewIIOReader(path string) (*IIOReader, error) {
	r := &IIOReader{path: path}
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("open adc channel: %w", err)
	}
	return r, nil
}

// Read returns the current raw value of the channel.
func (r *IIOReader) Read() (int, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", r.path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", r.path, err)
	}
	return v, nil
}
