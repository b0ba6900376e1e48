package sensor

import (
	"log"
	"sort"
	"time"
)

// Reading is the result of one filtered burst.
type Reading struct {
	Value  int // outlier-trimmed mean
	Min    int // smallest raw sample in the burst
	Max    int // largest raw sample in the burst
	Errors int // samples that failed to read and were counted as 0
}

// SamplerConfig sets the burst shape.
type SamplerConfig struct {
	Samples int           // samples per burst
	Trim    int           // total samples dropped, half from each end
	Delay   time.Duration // pause between samples
	MaxRaw  int           // clamp ceiling for raw samples
}

// Sampler collects bursts of raw samples and reduces them to one reading.
type Sampler struct {
	adc   ADC
	cfg   SamplerConfig
	sleep func(time.Duration)
	buf   []int
}

// NewSampler creates a Sampler. sleep is called between samples; pass
// time.Sleep in production and a no-op in tests.
func NewSampler(adc ADC, cfg SamplerConfig, sleep func(time.Duration)) *Sampler {
	if cfg.MaxRaw <= 0 {
		cfg.MaxRaw = MaxRaw
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Sampler{
		adc:   adc,
		cfg:   cfg,
		sleep: sleep,
		buf:   make([]int, 0, cfg.Samples),
	}
}

// Burst reads cfg.Samples raw values and returns their trimmed mean.
// Read failures are logged, counted and included as 0.
func (s *Sampler) Burst() Reading {
	s.buf = s.buf[:0]
	var failed int
	for i := 0; i < s.cfg.Samples; i++ {
		if i > 0 && s.cfg.Delay > 0 {
			s.sleep(s.cfg.Delay)
		}
		v, err := s.adc.Read()
		if err != nil {
			if failed == 0 {
				log.Printf("adc read error: %v", err)
			}
			failed++
			v = 0
		}
		s.buf = append(s.buf, clamp(v, s.cfg.MaxRaw))
	}

	r := Reading{Errors: failed}
	if len(s.buf) == 0 {
		return r
	}
	r.Value = TrimmedMean(s.buf, s.cfg.Trim)
	// TrimmedMean sorted s.buf in place.
	r.Min = s.buf[0]
	r.Max = s.buf[len(s.buf)-1]
	return r
}

// TrimmedMean sorts samples in place, drops trim/2 values from each end and
// returns the integer mean of the rest. If trimming would leave nothing, the
// mean of all samples is returned. An empty slice yields 0.
func TrimmedMean(samples []int, trim int) int {
	if len(samples) == 0 {
		return 0
	}
	sort.Ints(samples)

	half := trim / 2
	if half < 0 {
		half = 0
	}
	kept := samples
	if len(samples)-2*half > 0 {
		kept = samples[half : len(samples)-half]
	}
	return mean(kept)
}

func mean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return sum / len(values)
}
