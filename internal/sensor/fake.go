package sensor

import "errors"

// FakeADC is a test double that returns scripted raw samples.
type FakeADC struct {
	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []int

	// Errors marks sample indexes whose read fails.
	Errors map[int]error

	index int
	Reads int
}

// NewFakeADC creates a FakeADC with the given samples.
func NewFakeADC(samples ...int) *FakeADC {
	return &FakeADC{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeADC) Read() (int, error) {
	i := f.index
	f.Reads++
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	if err, ok := f.Errors[i]; ok {
		return 0, err
	}
	return f.Samples[i], nil
}

// Set replaces the script and rewinds to the start.
func (f *FakeADC) Set(samples ...int) {
	f.Samples = samples
	f.index = 0
}
