// Package calibrate derives detector thresholds from recorded readings.
package calibrate

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sweeney/grid-monitor/internal/logic"
)

// MinReportReadings is the shortest history Report will analyse.
const MinReportReadings = 10

// StableStep is the largest reading-to-reading change counted as stable.
const StableStep = 50

var (
	ErrNoReadings          = errors.New("calibrate: need readings with the grid both on and off")
	ErrOverlap             = errors.New("calibrate: on and off readings overlap")
	ErrInsufficientHistory = fmt.Errorf("calibrate: need at least %d readings", MinReportReadings)
)

// Stats summarises the two calibration sets.
type Stats struct {
	AvgOn      int
	AvgOff     int
	MinOn      int
	MaxOff     int
	Separation int // MinOn - MaxOff
	Margin     int // 10% of AvgOn - AvgOff
}

// Thresholds is the result of OptimalThresholds.
type Thresholds struct {
	High        int
	Low         int
	Recommended int // midpoint of the two means, for single-threshold setups
	Stats       Stats
}

// Detector returns t as detector settings with the given debounce count.
func (t Thresholds) Detector(minStable int) logic.Thresholds {
	return logic.Thresholds{High: t.High, Low: t.Low, MinStable: minStable}
}

// OptimalThresholds computes hysteresis thresholds from readings taken with
// the grid on and with it off. Each boundary sits 10% of the gap between
// the two means inside the observed extremes.
func OptimalThresholds(on, off []int) (Thresholds, error) {
	if len(on) == 0 || len(off) == 0 {
		return Thresholds{}, ErrNoReadings
	}

	minOn, _, avgOn := summarize(on)
	_, maxOff, avgOff := summarize(off)
	if minOn <= maxOff {
		return Thresholds{}, fmt.Errorf("%w: lowest on %d, highest off %d", ErrOverlap, minOn, maxOff)
	}

	margin := float64(avgOn-avgOff) * 0.1
	a := int(float64(maxOff) + margin)
	b := int(float64(minOn) - margin)
	high, low := max(a, b), min(a, b)
	if high == low {
		high++
	}

	return Thresholds{
		High:        high,
		Low:         low,
		Recommended: (avgOn + avgOff) / 2,
		Stats: Stats{
			AvgOn:      avgOn,
			AvgOff:     avgOff,
			MinOn:      minOn,
			MaxOff:     maxOff,
			Separation: minOn - maxOff,
			Margin:     int(margin),
		},
	}, nil
}

func summarize(values []int) (lo, hi, mean int) {
	lo, hi = values[0], values[0]
	sum := 0
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
		sum += v
	}
	return lo, hi, sum / len(values)
}

// Report describes the stability of a reading history.
type Report struct {
	Count            int
	Min              int
	Max              int
	Mean             int
	MeanStep         int
	MaxStep          int
	StabilityPercent int // share of steps smaller than StableStep
	SuggestedHigh    int
	SuggestedLow     int
	Recommendations  []string
}

// Range returns Max - Min.
func (r Report) Range() int {
	return r.Max - r.Min
}

// Analyze builds a Report from history, oldest first.
func Analyze(history []int) (Report, error) {
	if len(history) < MinReportReadings {
		return Report{}, fmt.Errorf("%w, got %d", ErrInsufficientHistory, len(history))
	}

	lo, hi, mean := summarize(history)
	r := Report{Count: len(history), Min: lo, Max: hi, Mean: mean}

	steps := len(history) - 1
	var sum, stable int
	for i := 1; i < len(history); i++ {
		d := history[i] - history[i-1]
		if d < 0 {
			d = -d
		}
		sum += d
		r.MaxStep = max(r.MaxStep, d)
		if d < StableStep {
			stable++
		}
	}
	r.MeanStep = sum / steps
	r.StabilityPercent = stable * 100 / steps

	switch {
	case r.StabilityPercent > 80:
		r.Recommendations = append(r.Recommendations, "sensor stable, current thresholds are probably adequate")
	case r.StabilityPercent > 60:
		r.Recommendations = append(r.Recommendations, "sensor moderately stable, consider raising min_stable")
	default:
		r.Recommendations = append(r.Recommendations, "sensor unstable, consider the rural_unstable preset")
	}
	if r.MaxStep > 200 {
		r.Recommendations = append(r.Recommendations, "large jumps detected, widen the hysteresis band")
	}
	if r.Range() < 500 {
		r.Recommendations = append(r.Recommendations, "narrow reading range, check the sensor wiring")
	}

	r.SuggestedHigh = mean + (hi-mean)/2
	r.SuggestedLow = mean - (mean-lo)/2
	return r, nil
}

// Format writes a human-readable report.
func (r Report) Format(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "readings:   %d\n", r.Count)
	fmt.Fprintf(&b, "min/max:    %d / %d (range %d)\n", r.Min, r.Max, r.Range())
	fmt.Fprintf(&b, "mean:       %d\n", r.Mean)
	fmt.Fprintf(&b, "step:       mean %d, max %d\n", r.MeanStep, r.MaxStep)
	fmt.Fprintf(&b, "stability:  %d%%\n", r.StabilityPercent)
	b.WriteString("recommendations:\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "  - %s\n", rec)
	}
	fmt.Fprintf(&b, "suggested:  high %d, low %d\n", r.SuggestedHigh, r.SuggestedLow)
	_, err := io.WriteString(w, b.String())
	return err
}

// ParseReadings reads integers separated by whitespace or commas. Lines
// starting with # are ignored.
func ParseReadings(r io.Reader) ([]int, error) {
	var out []int
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(c rune) bool {
			return c == ',' || c == ' ' || c == '\t'
		})
		for _, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			out = append(out, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
