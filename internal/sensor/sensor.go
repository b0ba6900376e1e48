// Package sensor provides analog sampling of the grid voltage sensor.
// The real implementation reads a Linux IIO ADC channel.
// The fake and simulated implementations allow running without hardware.
package sensor

// ADC reads raw analog samples.
type ADC interface {
	// Read returns one raw sample in the range 0..MaxRaw.
	Read() (int, error)
}

// MaxRaw is the full-scale value of a 12-bit converter.
const MaxRaw = 4095

// clamp bounds v to 0..max.
func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
