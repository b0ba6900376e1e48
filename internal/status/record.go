package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/grid-monitor/internal/logic"
)

// Record is a point-in-time status observation published to the broker.
type Record struct {
	DeviceID   string
	BootID     string
	Grid       logic.Verdict
	RelayOn    bool
	Mode       logic.RelayMode
	Uptime     time.Duration
	FreeMemory uint64
	Reading    int // last filtered reading
}

// RecordJSON is the wire format of a status record.
type RecordJSON struct {
	DeviceID   string `json:"device_id"`
	GridStatus string `json:"grid_status"`
	Relay      string `json:"relay"`
	RelayMode  string `json:"relay_mode"`
	Uptime     int64  `json:"uptime"`
	FreeMemory uint64 `json:"free_memory"`
	ADCRaw     int    `json:"adc_raw"`
	BootID     string `json:"boot_id,omitempty"`
}

// FormatRecord returns the JSON payload for rec.
func FormatRecord(rec Record) ([]byte, error) {
	return json.Marshal(RecordJSON{
		DeviceID:   rec.DeviceID,
		GridStatus: string(rec.Grid),
		Relay:      onOff(rec.RelayOn),
		RelayMode:  rec.Mode.String(),
		Uptime:     int64(rec.Uptime.Truncate(time.Second).Seconds()),
		FreeMemory: rec.FreeMemory,
		ADCRaw:     rec.Reading,
		BootID:     rec.BootID,
	})
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
