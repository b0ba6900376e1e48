package logic

import "time"

// Heartbeat tracks when the last status publish happened.
type Heartbeat struct {
	interval time.Duration
	last     time.Time
}

// NewHeartbeat creates a Heartbeat whose first period starts at start.
// An interval <= 0 disables periodic publishes.
func NewHeartbeat(interval time.Duration, start time.Time) *Heartbeat {
	return &Heartbeat{interval: interval, last: start}
}

// Due reports whether a periodic publish is owed at now.
func (h *Heartbeat) Due(now time.Time) bool {
	if h.interval <= 0 {
		return false
	}
	return now.Sub(h.last) >= h.interval
}

// Mark records a successful publish at now and restarts the period.
func (h *Heartbeat) Mark(now time.Time) {
	h.last = now
}

// Last returns the time of the last recorded publish (or the start time).
func (h *Heartbeat) Last() time.Time {
	return h.last
}
