// Package grid holds the fixed RPM axis every timing curve is sampled on.
package grid

import (
	"math"

	"cdi-tuner.klederson.com/internal/config"
)

// Count is the number of sample points on the axis.
const Count = (config.RPMMax-config.RPMMin)/config.RPMStep + 1

var points = func() [Count]int {
	var p [Count]int
	for i := range p {
		p[i] = config.RPMMin + i*config.RPMStep
	}
	return p
}()

// RPM returns the RPM of sample i.
func RPM(i int) int {
	return points[i]
}

// Points returns a copy of the whole axis.
func Points() []int {
	out := make([]int, Count)
	copy(out, points[:])
	return out
}

// Valid reports whether i addresses a sample.
func Valid(i int) bool {
	return i >= 0 && i < Count
}

// Nearest returns the index of the sample closest to rpm, clamped to the axis.
func Nearest(rpm float64) int {
	i := int(math.Round((rpm - config.RPMMin) / config.RPMStep))
	return ClampIndex(i)
}

// Bracket returns the indices of the samples around rpm and the interpolation
// weight of the upper one. Out-of-range RPMs clamp to the ends.
func Bracket(rpm float64) (lo, hi int, t float64) {
	if rpm <= config.RPMMin {
		return 0, 0, 0
	}
	if rpm >= config.RPMMax {
		return Count - 1, Count - 1, 0
	}
	pos := (rpm - config.RPMMin) / config.RPMStep
	lo = int(math.Floor(pos))
	hi = lo + 1
	if hi >= Count {
		return Count - 1, Count - 1, 0
	}
	return lo, hi, pos - float64(lo)
}

// ClampIndex clamps i to [0, Count-1].
func ClampIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i >= Count {
		return Count - 1
	}
	return i
}

// ClampRPM clamps rpm to the axis bounds.
func ClampRPM(rpm float64) float64 {
	return math.Max(config.RPMMin, math.Min(config.RPMMax, rpm))
}
