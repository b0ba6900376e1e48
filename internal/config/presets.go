package config

import (
	"fmt"
	"sort"

	"github.com/sweeney/grid-monitor/internal/logic"
)

// Preset is a named threshold set for a typical installation.
type Preset struct {
	Name        string
	Description string
	Thresholds  logic.Thresholds
}

var presets = map[string]Preset{
	"residential_220v": {
		Name:        "residential_220v",
		Description: "Typical household 220V supply",
		Thresholds:  logic.Thresholds{High: 2800, Low: 2600, MinStable: 3},
	},
	"industrial_220v": {
		Name:        "industrial_220v",
		Description: "Industrial 220V with more electrical noise",
		Thresholds:  logic.Thresholds{High: 2900, Low: 2500, MinStable: 5},
	},
	"rural_unstable": {
		Name:        "rural_unstable",
		Description: "Rural supply with frequent sags",
		Thresholds:  logic.Thresholds{High: 2700, Low: 2300, MinStable: 7},
	},
	"high_sensitivity": {
		Name:        "high_sensitivity",
		Description: "Fast reaction to small changes",
		Thresholds:  logic.Thresholds{High: 2600, Low: 2400, MinStable: 2},
	},
	"low_sensitivity": {
		Name:        "low_sensitivity",
		Description: "Only reacts to large, sustained changes",
		Thresholds:  logic.Thresholds{High: 3000, Low: 2000, MinStable: 10},
	},
}

// Presets returns all presets sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupPreset returns the preset called name.
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[name]
	return p, ok
}

// ApplyPreset replaces the detector settings with those of the named preset.
func (c *Config) ApplyPreset(name string) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}
	c.Preset = name
	c.Detector = DetectorConfig{
		High:      p.Thresholds.High,
		Low:       p.Thresholds.Low,
		MinStable: p.Thresholds.MinStable,
	}
	return nil
}
