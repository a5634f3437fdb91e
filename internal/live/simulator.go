// Package live drives the live RPM marker and AFR sampling.
package live

import (
	"math"
	"time"

	"cdi-tuner.klederson.com/internal/config"
)

// Simulator holds the live RPM signal. The target bounces between the axis
// bounds at Speed RPM/s; Visual chases it with exponential easing and lands
// exactly on a bound instead of creeping toward it.
type Simulator struct {
	Target float64
	Visual float64
	Dir    int // +1 rising, -1 falling

	Speed   float64
	Ease    float64
	SnapTol float64

	following bool
}

// NewSimulator creates a simulator resting at RPMMin and rising.
func NewSimulator(speed, ease, snapTol float64) *Simulator {
	return &Simulator{
		Target:  config.RPMMin,
		Visual:  config.RPMMin,
		Dir:     1,
		Speed:   speed,
		Ease:    ease,
		SnapTol: snapTol,
	}
}

// ClampDelta bounds a frame delta to [MinFrameDelta, MaxFrameDelta].
func ClampDelta(dt time.Duration) time.Duration {
	if dt < config.MinFrameDelta {
		return config.MinFrameDelta
	}
	if dt > config.MaxFrameDelta {
		return config.MaxFrameDelta
	}
	return dt
}

// Advance moves the signal forward by dt.
func (s *Simulator) Advance(dt time.Duration) {
	dt = ClampDelta(dt)

	if !s.following {
		s.Target += float64(s.Dir) * s.Speed * dt.Seconds()
		switch {
		case s.Target >= config.RPMMax:
			s.Target = config.RPMMax
			s.Dir = -1
		case s.Target <= config.RPMMin:
			s.Target = config.RPMMin
			s.Dir = 1
		}
	}

	if s.Target == config.RPMMax || s.Target == config.RPMMin {
		s.Visual = s.Target
		return
	}

	v := s.Visual + (s.Target-s.Visual)*s.Ease
	// Snap only when the target is near the bound too. A marker still lagging
	// near a bound after the target has moved away would otherwise be pulled
	// back onto the bound.
	for _, bound := range []float64{config.RPMMin, config.RPMMax} {
		if math.Abs(v-bound) <= s.SnapTol && math.Abs(s.Target-bound) <= s.SnapTol {
			v = bound
		}
	}
	s.Visual = math.Max(config.RPMMin, math.Min(config.RPMMax, v))
}

// Follow makes an external reading the target. The bounce stops until
// Release is called; Visual keeps easing.
func (s *Simulator) Follow(rpm float64) {
	if math.IsNaN(rpm) || math.IsInf(rpm, 0) {
		return
	}
	rpm = math.Max(config.RPMMin, math.Min(config.RPMMax, rpm))
	if rpm > s.Target {
		s.Dir = 1
	} else if rpm < s.Target {
		s.Dir = -1
	}
	s.Target = rpm
	s.following = true
}

// Release returns to the simulated bounce from the current position.
func (s *Simulator) Release() {
	s.following = false
	if s.Dir == 0 {
		s.Dir = 1
	}
}

// Following reports whether an external reading drives the target.
func (s *Simulator) Following() bool {
	return s.following
}

// RPM returns the eased RPM rounded to an integer.
func (s *Simulator) RPM() int {
	return int(math.Round(s.Visual))
}

// Reset puts the signal back at rest.
func (s *Simulator) Reset() {
	s.Target = config.RPMMin
	s.Visual = config.RPMMin
	s.Dir = 1
	s.following = false
}
