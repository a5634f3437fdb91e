package live

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"cdi-tuner.klederson.com/internal/config"
)

func newTestSimulator() *Simulator {
	return NewSimulator(config.LiveSpeedRPM, config.LiveEase, config.LiveSnapTol)
}

func TestSimulatorSnapsToMax(t *testing.T) {
	s := newTestSimulator()
	s.Target, s.Visual = config.RPMMax-50, config.RPMMax-200

	s.Advance(100 * time.Millisecond)
	if s.Visual != config.RPMMax {
		t.Fatalf("visual = %v, want exactly %v", s.Visual, config.RPMMax)
	}
	if s.Dir != -1 {
		t.Errorf("direction = %d, want -1", s.Dir)
	}
}

func TestSimulatorNoSnapWhileTargetAway(t *testing.T) {
	s := newTestSimulator()
	s.Visual = config.RPMMax
	s.Follow(config.RPMMax - 100)

	s.Advance(16 * time.Millisecond)
	want := config.RPMMax - 100*config.LiveEase
	if math.Abs(s.Visual-want) > 1e-9 {
		t.Errorf("visual = %v, want %v (eased, not pinned to the bound)", s.Visual, want)
	}
}

func TestSimulatorFullSweepReachesBothBounds(t *testing.T) {
	s := newTestSimulator()
	sawMax := false
	for i := 0; i < 5000; i++ {
		s.Advance(time.Second / config.TargetFPS)
		if s.Visual < config.RPMMin || s.Visual > config.RPMMax {
			t.Fatalf("visual left the axis: %v", s.Visual)
		}
		if s.Visual == config.RPMMax {
			sawMax = true
		}
		if sawMax && s.Visual == config.RPMMin {
			return
		}
	}
	t.Fatalf("bounds not reached exactly (sawMax=%v)", sawMax)
}

func TestSimulatorEasesTowardTarget(t *testing.T) {
	s := newTestSimulator()
	s.Follow(8000)
	prev := s.Visual
	for i := 0; i < 10; i++ {
		s.Advance(33 * time.Millisecond)
		if s.Visual <= prev || s.Visual > 8000 {
			t.Fatalf("frame %d: visual %v after %v", i, s.Visual, prev)
		}
		prev = s.Visual
	}
	if s.Target != 8000 {
		t.Errorf("following target moved: %v", s.Target)
	}
	s.Release()
	s.Advance(100 * time.Millisecond)
	if s.Target <= 8000 {
		t.Errorf("released target should resume rising, got %v", s.Target)
	}
}

func TestSimulatorFollowIgnoresNaN(t *testing.T) {
	s := newTestSimulator()
	s.Follow(math.NaN())
	if s.Following() {
		t.Error("NaN reading engaged follow mode")
	}
}

func TestClampDelta(t *testing.T) {
	if ClampDelta(0) != config.MinFrameDelta {
		t.Error("zero delta not raised to minimum")
	}
	if ClampDelta(5*time.Second) != config.MaxFrameDelta {
		t.Error("spike not clamped")
	}
	if ClampDelta(20*time.Millisecond) != 20*time.Millisecond {
		t.Error("normal delta changed")
	}
}

func TestLoopDropsStaleEpochs(t *testing.T) {
	var l Loop
	now := time.Unix(0, 0)
	first := l.Start(now)
	if _, ok := l.Frame(first, now.Add(33*time.Millisecond)); !ok {
		t.Fatal("current epoch frame rejected")
	}
	l.Stop()
	l.Stop()
	if _, ok := l.Frame(first, now.Add(66*time.Millisecond)); ok {
		t.Error("frame accepted after stop")
	}
	second := l.Start(now.Add(100 * time.Millisecond))
	if _, ok := l.Frame(first, now.Add(133*time.Millisecond)); ok {
		t.Error("stale epoch frame accepted")
	}
	dt, ok := l.Frame(second, now.Add(133*time.Millisecond))
	if !ok || dt != 33*time.Millisecond {
		t.Errorf("frame = %v,%v", dt, ok)
	}
}

func TestSamplerThrottleAndSingleFlight(t *testing.T) {
	s := NewSampler(80 * time.Millisecond)
	now := time.Unix(100, 0)

	if !s.TryBegin(now) {
		t.Fatal("first attempt refused")
	}
	if s.TryBegin(now.Add(200 * time.Millisecond)) {
		t.Error("second fetch started while one is in flight")
	}
	s.Done()
	if s.TryBegin(now.Add(10 * time.Millisecond)) {
		t.Error("attempt inside the interval allowed")
	}
	if !s.TryBegin(now.Add(300 * time.Millisecond)) {
		t.Error("attempt after the interval refused")
	}
	if !s.InFlight() {
		t.Error("claim not recorded")
	}
}

func TestFallbackAFRLowBand(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		v := FallbackAFR(500, rng)
		if v < 12.2 || v > 12.8 {
			t.Fatalf("FallbackAFR(500) = %v outside [12.2, 12.8]", v)
		}
	}
}

func TestFallbackAFRSafeRange(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for rpm := float64(config.RPMMin); rpm <= config.RPMMax; rpm += 100 {
		v := FallbackAFR(rpm, rng)
		if v < config.AFRSafeMin || v > config.AFRSafeMax {
			t.Fatalf("FallbackAFR(%v) = %v", rpm, v)
		}
		if math.Abs(v*10-math.Round(v*10)) > 1e-9 {
			t.Fatalf("FallbackAFR(%v) = %v not rounded", rpm, v)
		}
	}
}

func TestResolveAFR(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	if got := ResolveAFR(14.26, true, 5000, rng); got != 14.3 {
		t.Errorf("ResolveAFR(14.26) = %v", got)
	}
	for _, bad := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		got := ResolveAFR(bad, true, 500, rng)
		if got < 12.2 || got > 12.8 {
			t.Errorf("ResolveAFR(%v) = %v, want fallback", bad, got)
		}
	}
	if got := ResolveAFR(14, false, 500, rng); got < 12.2 || got > 12.8 {
		t.Errorf("missing reading = %v", got)
	}
}
