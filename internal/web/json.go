package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/grid-monitor/internal/status"
)

// StatusJSON is the JSON representation of the daemon status.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	DeviceID      string     `json:"device_id"`
	BootID        string     `json:"boot_id"`
	Grid          string     `json:"grid_status"`
	Pending       string     `json:"pending,omitempty"`
	Stability     int        `json:"stability"`
	Relay         string     `json:"relay"`
	RelayMode     string     `json:"relay_mode"`
	Reading       int        `json:"adc_raw"`
	History       []int      `json:"history"`
	HistoryMean   int        `json:"history_mean"`
	Connectivity  string     `json:"connectivity"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	LastChange    string     `json:"last_change,omitempty"`
	LastPublish   string     `json:"last_publish,omitempty"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	StateChanges int `json:"state_changes"`
	Commands     int `json:"commands"`
	Unknown      int `json:"unknown_commands"`
	CycleErrors  int `json:"cycle_errors"`
	Publishes    int `json:"publishes"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	High        int    `json:"threshold_high"`
	Low         int    `json:"threshold_low"`
	MinStable   int    `json:"min_stable"`
	Samples     int    `json:"samples"`
	Trim        int    `json:"trim"`
	CycleMs     int64  `json:"cycle_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Simulated   bool   `json:"simulated,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func relayWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func formatJSON(snap status.Snapshot) []byte {
	history := snap.History
	if history == nil {
		history = []int{}
	}

	sj := StatusJSON{
		Status: StatusInner{
			DeviceID:      snap.Config.DeviceID,
			BootID:        snap.BootID,
			Grid:          string(snap.Grid),
			Pending:       string(snap.Pending),
			Stability:     snap.Stability,
			Relay:         relayWord(snap.RelayOn),
			RelayMode:     snap.Mode.String(),
			Reading:       snap.Reading,
			History:       history,
			HistoryMean:   snap.HistoryMean,
			Connectivity:  snap.Connectivity,
			UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
			StartTime:     formatTime(snap.StartTime),
			Timestamp:     formatTime(snap.Now),
			LastChange:    formatTime(snap.LastChange),
			LastPublish:   formatTime(snap.LastPublish),
			Counts: CountsJSON{
				StateChanges: snap.Counts.StateChanges,
				Commands:     snap.Counts.Commands,
				Unknown:      snap.Counts.Unknown,
				CycleErrors:  snap.Counts.CycleErrors,
				Publishes:    snap.Counts.Publishes,
			},
			Config: ConfigJSON{
				High:        snap.Config.High,
				Low:         snap.Config.Low,
				MinStable:   snap.Config.MinStable,
				Samples:     snap.Config.Samples,
				Trim:        snap.Config.Trim,
				CycleMs:     snap.Config.CycleMs,
				HeartbeatMs: snap.Config.HeartbeatMs,
				Broker:      snap.Config.Broker,
				HTTPAddr:    snap.Config.HTTPAddr,
				Simulated:   snap.Config.Simulated,
			},
		},
	}

	data, _ := json.MarshalIndent(sj, "", "  ")
	return data
}
