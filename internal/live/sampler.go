package live

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"cdi-tuner.klederson.com/internal/config"
)

// Sampler gates fetches of one live signal: at most one per interval and
// never while another is outstanding.
type Sampler struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	inFlight bool
}

// NewSampler creates a sampler allowing one attempt per interval.
func NewSampler(interval time.Duration) *Sampler {
	return &Sampler{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// TryBegin claims the next fetch. Callers that get true must call Done.
func (s *Sampler) TryBegin(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	if !s.limiter.AllowN(now, 1) {
		return false
	}
	s.inFlight = true
	return true
}

// Done releases the in-flight claim.
func (s *Sampler) Done() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// InFlight reports whether a fetch is outstanding.
func (s *Sampler) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

type afrBand struct {
	upTo       float64
	base, span float64
}

// Fallback AFR bands: rich at idle, near stoich through the midrange,
// richer again toward the top.
var afrBands = []afrBand{
	{upTo: 1500, base: 12.2, span: 0.6},
	{upTo: 4000, base: 12.8, span: 1.0},
	{upTo: 9000, base: 13.4, span: 1.2},
	{upTo: 14000, base: 12.9, span: 1.0},
	{upTo: math.Inf(1), base: 12.4, span: 0.8},
}

// FallbackAFR returns a plausible AFR for rpm drawn from the band table.
func FallbackAFR(rpm float64, rng *rand.Rand) float64 {
	var b afrBand
	for _, b = range afrBands {
		if rpm < b.upTo {
			break
		}
	}
	v := b.base + rng.Float64()*b.span
	v = math.Max(config.AFRSafeMin, math.Min(config.AFRSafeMax, v))
	return round1(v)
}

// ResolveAFR returns the device reading rounded to 0.1, or a fallback
// value when the reading is missing or not a positive finite number.
func ResolveAFR(v float64, ok bool, rpm float64, rng *rand.Rand) float64 {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return FallbackAFR(rpm, rng)
	}
	return round1(v)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
