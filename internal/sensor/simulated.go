package sensor

import "math/rand"

// SimulatedADC produces readings that wander around a base level and
// occasionally swap between a grid-present and a grid-absent level.
type SimulatedADC struct {
	rng  *rand.Rand
	base int
}

// NewSimulatedADC creates a simulator seeded with seed.
func NewSimulatedADC(seed int64) *SimulatedADC {
	return &SimulatedADC{
		rng:  rand.New(rand.NewSource(seed)),
		base: 2700,
	}
}

// Read returns base ±200 variation ±50 noise, clamped to the ADC range.
// Each call has a 5% chance of moving the base to the other level.
func (s *SimulatedADC) Read() (int, error) {
	variation := s.rng.Intn(401) - 200
	noise := s.rng.Intn(101) - 50
	v := s.base + variation + noise

	if s.rng.Float64() < 0.05 {
		if s.base > 2600 {
			s.base = 2400
		} else {
			s.base = 2800
		}
	}
	return clamp(v, MaxRaw), nil
}
