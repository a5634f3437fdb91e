// Package curve holds the editable ignition timing maps.
//
// A Set is one CDI configuration: one (basic) or two (dual) maps sharing a
// pickup cap. Every value stays within [config.TimingMin, Pickup]; values at
// RPMs above a map's limiter are locked and only ever change through a
// wholesale Apply or a pickup clamp.
package curve

import (
	"errors"
	"fmt"
	"math"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/grid"
)

var (
	ErrMapCount    = errors.New("curve: map count mismatch")
	ErrCurveLength = errors.New("curve: curve length does not match grid")
	ErrNonFinite   = errors.New("curve: non-finite value")
)

// Map is a single timing curve with its rev limiter.
type Map struct {
	Limiter int
	Curve   [grid.Count]float64
}

// Locked reports whether sample i lies beyond the limiter.
func (m *Map) Locked(i int) bool {
	return grid.RPM(i) > m.Limiter
}

// Set is the whole configuration edited by one tuner session.
type Set struct {
	Pickup float64
	Maps   []*Map
	Active int
}

// NewSet returns a set of count maps filled with the default curve.
func NewSet(count int) *Set {
	if count < 1 {
		count = 1
	}
	s := &Set{Pickup: config.DefaultPickup}
	for n := 0; n < count; n++ {
		m := &Map{Limiter: config.DefaultLimiter}
		for i := range m.Curve {
			m.Curve[i] = clamp(round1(defaultTiming(float64(grid.RPM(i)))-3*float64(n)), config.TimingMin, s.Pickup)
		}
		s.Maps = append(s.Maps, m)
	}
	return s
}

func defaultTiming(rpm float64) float64 {
	var v float64
	switch {
	case rpm <= 1500:
		v = 10
	case rpm <= 6000:
		v = 10 + (rpm-1500)/4500*22
	case rpm <= 12000:
		v = 32
	default:
		v = 32 - (rpm-12000)/8000*6
	}
	return round1(v)
}

// Cap is the upper clamp for every timing value.
func (s *Set) Cap() float64 {
	return s.Pickup
}

// ActiveMap returns the map currently emphasized for editing.
func (s *Set) ActiveMap() *Map {
	return s.Maps[s.Active]
}

// SetActive selects the map to edit. Out-of-range indices are ignored.
func (s *Set) SetActive(i int) {
	if i >= 0 && i < len(s.Maps) {
		s.Active = i
	}
}

// CycleActive moves the active emphasis to the next map.
func (s *Set) CycleActive() {
	s.Active = (s.Active + 1) % len(s.Maps)
}

// SetValue writes v into sample i of map mi, clamped and rounded to 0.1°.
// Locked samples are never written; ok is false then.
func (s *Set) SetValue(mi, i int, v float64) (float64, bool) {
	if mi < 0 || mi >= len(s.Maps) || !grid.Valid(i) {
		return 0, false
	}
	m := s.Maps[mi]
	if m.Locked(i) {
		return m.Curve[i], false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return m.Curve[i], false
	}
	v = clamp(round1(v), config.TimingMin, s.Pickup)
	m.Curve[i] = v
	return v, true
}

// Nudge adds delta to sample i of map mi.
func (s *Set) Nudge(mi, i int, delta float64) (float64, bool) {
	if mi < 0 || mi >= len(s.Maps) || !grid.Valid(i) {
		return 0, false
	}
	return s.SetValue(mi, i, s.Maps[mi].Curve[i]+delta)
}

// SetPickup changes the cap and re-clamps every map to it. Non-finite input
// is rejected so the previous cap stays in place.
func (s *Set) SetPickup(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	s.Pickup = clamp(round1(v), config.TimingMin, config.TimingMax)
	for _, m := range s.Maps {
		for i := range m.Curve {
			m.Curve[i] = clamp(m.Curve[i], config.TimingMin, s.Pickup)
		}
	}
	return true
}

// SetLimiter moves the limiter of map mi, clamped to the RPM axis.
func (s *Set) SetLimiter(mi int, rpm float64) bool {
	if mi < 0 || mi >= len(s.Maps) || math.IsNaN(rpm) || math.IsInf(rpm, 0) {
		return false
	}
	s.Maps[mi].Limiter = int(math.Round(grid.ClampRPM(rpm)))
	return true
}

// TimingAt linearly interpolates map mi at an arbitrary RPM.
func (s *Set) TimingAt(mi int, rpm float64) float64 {
	m := s.Maps[mi]
	lo, hi, t := grid.Bracket(rpm)
	return m.Curve[lo] + (m.Curve[hi]-m.Curve[lo])*t
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	out := &Set{Pickup: s.Pickup, Active: s.Active}
	for _, m := range s.Maps {
		cp := *m
		out.Maps = append(out.Maps, &cp)
	}
	return out
}

// Equal compares pickup, limiters and curves.
func (s *Set) Equal(o *Set) bool {
	if s.Pickup != o.Pickup || len(s.Maps) != len(o.Maps) {
		return false
	}
	for i := range s.Maps {
		if *s.Maps[i] != *o.Maps[i] {
			return false
		}
	}
	return true
}

// MapPayload is one map on the wire.
type MapPayload struct {
	Limiter int       `json:"limiter"`
	Curve   []float64 `json:"curve"`
}

// Payload is the device representation of a Set.
type Payload struct {
	Pickup float64      `json:"pickup"`
	Maps   []MapPayload `json:"maps"`
}

// Payload exports the set for sending.
func (s *Set) Payload() Payload {
	p := Payload{Pickup: s.Pickup}
	for _, m := range s.Maps {
		c := make([]float64, grid.Count)
		copy(c, m.Curve[:])
		p.Maps = append(p.Maps, MapPayload{Limiter: m.Limiter, Curve: c})
	}
	return p
}

// Apply replaces every map with the payload. Either all maps are applied or,
// on error, none are.
func (s *Set) Apply(p Payload) error {
	if len(p.Maps) != len(s.Maps) {
		return fmt.Errorf("%w: got %d, want %d", ErrMapCount, len(p.Maps), len(s.Maps))
	}
	if math.IsNaN(p.Pickup) || math.IsInf(p.Pickup, 0) {
		return fmt.Errorf("%w: pickup", ErrNonFinite)
	}
	pickup := clamp(round1(p.Pickup), config.TimingMin, config.TimingMax)

	staged := make([]Map, len(p.Maps))
	for n, mp := range p.Maps {
		if len(mp.Curve) != grid.Count {
			return fmt.Errorf("%w: map %d has %d points, want %d", ErrCurveLength, n, len(mp.Curve), grid.Count)
		}
		staged[n].Limiter = int(grid.ClampRPM(float64(mp.Limiter)))
		for i, v := range mp.Curve {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: map %d point %d", ErrNonFinite, n, i)
			}
			staged[n].Curve[i] = clamp(round1(v), config.TimingMin, pickup)
		}
	}

	s.Pickup = pickup
	for n := range staged {
		*s.Maps[n] = staged[n]
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
