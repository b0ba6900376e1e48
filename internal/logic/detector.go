package logic

// Thresholds configures the Detector's hysteresis band and debounce depth.
type Thresholds struct {
	High      int // Offline -> Online requires readings above High
	Low       int // Online -> Offline requires readings at or below Low
	MinStable int // consecutive agreeing readings needed to confirm a flip
}

// Detector turns filtered readings into a debounced grid verdict.
// The initial verdict is Offline until enough readings prove otherwise.
type Detector struct {
	th        Thresholds
	confirmed Verdict
	pending   Verdict // "" when nothing is pending yet
	stable    int
}

// NewDetector creates a Detector. Callers validate th (High > Low, MinStable >= 1)
// before construction; the Detector itself never fails.
func NewDetector(th Thresholds) *Detector {
	return &Detector{
		th:        th,
		confirmed: VerdictOffline,
	}
}

// Update evaluates one filtered reading and returns a StateChanged event if the
// confirmed verdict flipped, nil otherwise.
func (d *Detector) Update(v int) *StateChanged {
	var candidate Verdict
	if d.confirmed.Online() {
		// Once online, only a drop below Low counts as offline.
		candidate = verdictFor(v > d.th.Low)
	} else {
		candidate = verdictFor(v > d.th.High)
	}

	if candidate == d.pending {
		d.stable++
	} else {
		d.pending = candidate
		d.stable = 1
	}

	if d.stable < d.th.MinStable || candidate == d.confirmed {
		return nil
	}

	ev := &StateChanged{From: d.confirmed, To: candidate, Reading: v}
	d.confirmed = candidate
	d.stable = 0
	return ev
}

// Confirmed returns the current confirmed verdict.
func (d *Detector) Confirmed() Verdict {
	return d.confirmed
}

// Pending returns the verdict the last reading argued for ("" before the first reading).
func (d *Detector) Pending() Verdict {
	return d.pending
}

// StabilityCount returns the number of consecutive readings agreeing with Pending.
func (d *Detector) StabilityCount() int {
	return d.stable
}

// Thresholds returns the detector configuration.
func (d *Detector) Thresholds() Thresholds {
	return d.th
}
