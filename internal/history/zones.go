package history

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/grid"
)

var (
	colorRich  = colorful.Color{R: 0.20, G: 0.45, B: 1.00}
	colorStoic = colorful.Color{R: 0.00, G: 1.00, B: 0.25}
	colorLean  = colorful.Color{R: 1.00, G: 0.18, B: 0.12}
)

// Color maps an AFR reading onto the rich-stoich-lean scale, blended in Lab
// space so the midpoints stay readable.
func Color(afr float64) colorful.Color {
	afr = math.Max(config.AFRSafeMin, math.Min(config.AFRSafeMax, afr))
	if afr <= config.AFRStoich {
		t := (afr - config.AFRSafeMin) / (config.AFRStoich - config.AFRSafeMin)
		return colorRich.BlendLab(colorStoic, t).Clamped()
	}
	t := (afr - config.AFRStoich) / (config.AFRSafeMax - config.AFRStoich)
	return colorStoic.BlendLab(colorLean, t).Clamped()
}

// Zone is one coarse overlay band.
type Zone struct {
	Index int // Curve index where the band starts
	AFR   float64
	Color colorful.Color
}

// Zones buckets live readings into ZoneStep-wide bands keyed by curve index.
// They only live while the overlay is on.
type Zones struct {
	bands map[int]Zone
}

// NewZones creates an empty overlay.
func NewZones() *Zones {
	return &Zones{bands: make(map[int]Zone)}
}

// ZoneIndex returns the curve index of the band containing rpm.
func ZoneIndex(rpm float64) int {
	start := math.Floor(rpm/config.ZoneStep) * config.ZoneStep
	return grid.Nearest(grid.ClampRPM(start))
}

// Update recolors the band containing rpm.
func (z *Zones) Update(rpm, afr float64) {
	if math.IsNaN(rpm) || math.IsNaN(afr) {
		return
	}
	i := ZoneIndex(rpm)
	z.bands[i] = Zone{Index: i, AFR: afr, Color: Color(afr)}
}

// Bands returns the current bands.
func (z *Zones) Bands() []Zone {
	out := make([]Zone, 0, len(z.bands))
	for i := 0; i < grid.Count; i++ {
		if b, ok := z.bands[i]; ok {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of colored bands.
func (z *Zones) Len() int { return len(z.bands) }

// Clear drops every band.
func (z *Zones) Clear() {
	z.bands = make(map[int]Zone)
}
