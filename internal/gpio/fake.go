package gpio

// FakeOutput is a test double that records every write.
type FakeOutput struct {
	// Writes contains every value passed to Set, in order.
	Writes []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeOutput creates a FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records the value.
func (f *FakeOutput) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, on)
	return nil
}

// Value returns the last written value (false if never written).
func (f *FakeOutput) Value() bool {
	if len(f.Writes) == 0 {
		return false
	}
	return f.Writes[len(f.Writes)-1]
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeOutput) Reset() {
	f.Writes = nil
	f.SetError = nil
	f.Closed = false
}
