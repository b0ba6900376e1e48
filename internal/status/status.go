// Package status provides the status record, its publisher and a thread-safe
// tracker read by the HTTP status server.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/grid-monitor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	DeviceID    string
	High        int
	Low         int
	MinStable   int
	Samples     int
	Trim        int
	CycleMs     int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Simulated   bool
}

// Counts tracks events since startup.
type Counts struct {
	StateChanges int
	Commands     int
	Unknown      int
	CycleErrors  int
	Publishes    int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Grid         logic.Verdict
	Pending      logic.Verdict
	Stability    int
	RelayOn      bool
	Mode         logic.RelayMode
	Reading      int
	History      []int
	HistoryMean  int
	Connectivity string
	LastChange   time.Time
	LastPublish  time.Time
	Counts       Counts
	BootID       string
	StartTime    time.Time
	Now          time.Time
	Config       Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time, boot id and config.
func NewTracker(startTime time.Time, bootID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Grid:         logic.VerdictOffline,
			Connectivity: "network_down",
			BootID:       bootID,
			StartTime:    startTime,
			Config:       cfg,
		},
		now: time.Now,
	}
}

// Update replaces the dynamic part of the snapshot.
// Called from the control loop once per cycle.
func (t *Tracker) Update(fn func(s *Snapshot)) {
	t.mu.Lock()
	fn(&t.snap)
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.History = append([]int(nil), t.snap.History...)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
