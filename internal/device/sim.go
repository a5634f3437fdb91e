package device

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/live"
)

// Simulated is an in-memory CDI box for demo mode, tests and the emulator.
// The engine revs along a slow sinusoid with noise; the map store is last
// write wins.
type Simulated struct {
	mu      sync.Mutex
	payload curve.Payload
	profile int
	rng     *rand.Rand
	start   time.Time
	now     func() time.Time

	phase     float64
	amplitude float64
}

// NewSimulated creates a device holding count default maps.
func NewSimulated(count int, rng *rand.Rand) *Simulated {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulated{
		payload:   curve.NewSet(count).Payload(),
		rng:       rng,
		start:     time.Now(),
		now:       time.Now,
		phase:     rng.Float64() * 2 * math.Pi,
		amplitude: 0.35 + rng.Float64()*0.1,
	}
}

// SetClock replaces the time source.
func (s *Simulated) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.start = now()
}

// SetProfile changes the reported active profile.
func (s *Simulated) SetProfile(p int) {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
}

// MapCount returns how many maps the device stores.
func (s *Simulated) MapCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payload.Maps)
}

func (s *Simulated) Name() string { return "simulated" }

func (s *Simulated) Status(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{Online: true, EngineRunning: true, ActiveProfile: s.profile}, nil
}

func (s *Simulated) ReadMap(ctx context.Context) (curve.Payload, error) {
	if err := ctx.Err(); err != nil {
		return curve.Payload{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePayload(s.payload), nil
}

// SendMap stores p when it has the device's map count and grid-sized curves.
func (s *Simulated) SendMap(ctx context.Context, p curve.Payload) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(p.Maps) != len(s.payload.Maps) {
		reason := fmt.Sprintf("expected %d maps, got %d", len(s.payload.Maps), len(p.Maps))
		return SendResult{Reason: reason}, fmt.Errorf("%w: %s", ErrRejected, reason)
	}
	if err := CheckPayload(p); err != nil {
		return SendResult{Reason: "bad curve length"}, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	s.payload = clonePayload(p)
	return SendResult{OK: true}, nil
}

// LiveRPM returns the simulated engine speed.
func (s *Simulated) LiveRPM(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().Sub(s.start).Seconds()
	mid := (config.RPMMin + config.RPMMax) / 2.0
	span := (config.RPMMax - config.RPMMin) / 2.0
	rpm := mid + span*math.Sin(t*s.amplitude+s.phase) + (s.rng.Float64()-0.5)*120
	return math.Round(math.Max(config.RPMMin, math.Min(config.RPMMax, rpm))), nil
}

// LiveAFR returns a banded AFR reading for rpm.
func (s *Simulated) LiveAFR(ctx context.Context, rpm int) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return live.FallbackAFR(float64(rpm), s.rng), nil
}

func clonePayload(p curve.Payload) curve.Payload {
	out := curve.Payload{Pickup: p.Pickup, Maps: make([]curve.MapPayload, len(p.Maps))}
	for i, m := range p.Maps {
		out.Maps[i] = curve.MapPayload{Limiter: m.Limiter, Curve: append([]float64(nil), m.Curve...)}
	}
	return out
}
