// Package logic contains pure business logic for grid presence detection and relay policy.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

// Verdict is the confirmed presence of grid power.
type Verdict string

const (
	VerdictOnline  Verdict = "online"
	VerdictOffline Verdict = "offline"
)

// Online reports whether v is VerdictOnline.
func (v Verdict) Online() bool {
	return v == VerdictOnline
}

func verdictFor(online bool) Verdict {
	if online {
		return VerdictOnline
	}
	return VerdictOffline
}

// StateChanged is emitted by the Detector when the confirmed verdict flips.
type StateChanged struct {
	From    Verdict
	To      Verdict
	Reading int // filtered reading that confirmed the flip
}

// RelayMode selects between automatic relay control and a manual override.
// The zero value is Auto.
type RelayMode struct {
	Manual    bool
	DesiredOn bool // only meaningful when Manual
}

// AutoMode returns the automatic relay mode.
func AutoMode() RelayMode {
	return RelayMode{}
}

// ManualMode returns a manual override forcing the relay to on.
func ManualMode(on bool) RelayMode {
	return RelayMode{Manual: true, DesiredOn: on}
}

// String returns "auto" or "manual".
func (m RelayMode) String() string {
	if m.Manual {
		return "manual"
	}
	return "auto"
}
