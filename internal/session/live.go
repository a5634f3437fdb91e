package session

import (
	"context"
	"math"
	"time"

	"cdi-tuner.klederson.com/internal/device"
	"cdi-tuner.klederson.com/internal/live"
)

// StartLive turns live mode on and returns the epoch its frames carry.
// Calling it while live is already on restarts the frame chain.
func (s *Session) StartLive(now time.Time) uint64 {
	if !s.loop.Enabled() {
		s.Sim.Reset()
		s.afr, s.hasAFR = 0, false
		s.sink.Break()
	}
	epoch := s.loop.Start(now)
	s.log.Debug().Uint64("epoch", epoch).Msg("live started")
	return epoch
}

// StopLive turns live mode off. The next frame ends the chain. The AFR
// history is kept.
func (s *Session) StopLive() {
	if !s.loop.Enabled() {
		return
	}
	s.loop.Stop()
	s.Sim.Reset()
	s.afr, s.hasAFR = 0, false
	s.sink.Break()
	s.log.Debug().Msg("live stopped")
}

// Live reports whether live mode is on.
func (s *Session) Live() bool {
	return s.loop.Enabled()
}

// LiveEpoch returns the epoch of the running frame chain.
func (s *Session) LiveEpoch() uint64 {
	return s.loop.Epoch()
}

// Frame advances the live signal for a frame of epoch. It returns false
// when the frame chain must not be rescheduled.
func (s *Session) Frame(epoch uint64, now time.Time) bool {
	if !s.active {
		s.loop.Stop()
	}
	dt, ok := s.loop.Frame(epoch, now)
	if !ok {
		return false
	}
	s.Sim.Advance(dt)
	return true
}

// AFR returns the latest AFR sample.
func (s *Session) AFR() (float64, bool) {
	return s.afr, s.hasAFR
}

// AFRRequest is a claimed AFR fetch. Epoch is the live run it belongs to.
type AFRRequest struct {
	RPM   int
	Epoch uint64
}

// BeginAFR claims an AFR fetch if the throttle and the single-flight guard
// allow one.
func (s *Session) BeginAFR(now time.Time) (AFRRequest, bool) {
	if !s.loop.Enabled() || !s.afrSample.TryBegin(now) {
		return AFRRequest{}, false
	}
	return AFRRequest{RPM: s.Sim.RPM(), Epoch: s.loop.Epoch()}, true
}

// FetchAFR runs req against t. It may be called off the UI goroutine.
func FetchAFR(ctx context.Context, t device.Transport, req AFRRequest) (float64, error) {
	return t.LiveAFR(ctx, req.RPM)
}

// CompleteAFR releases the fetch claim and records the reading, or the
// fallback value when the reading is unusable. Readings from a previous
// live run are returned but not recorded.
func (s *Session) CompleteAFR(req AFRRequest, v float64, err error, now time.Time) float64 {
	s.afrSample.Done()
	if err != nil && !device.IsOffline(err) {
		s.log.Debug().Err(err).Int("rpm", req.RPM).Msg("live afr unavailable")
	}
	afr := live.ResolveAFR(v, err == nil, float64(req.RPM), s.rng)
	if !s.loop.Enabled() || req.Epoch != s.loop.Epoch() {
		return afr
	}
	s.afr, s.hasAFR = afr, true
	s.sink.Record(float64(req.RPM), afr, now)
	s.Trace.Push(afr)
	if s.overlay {
		s.Zones.Update(float64(req.RPM), afr)
	}
	return afr
}

// BeginRPM claims a live RPM fetch when the device is the RPM source.
func (s *Session) BeginRPM(now time.Time) bool {
	if !s.deviceRPM || !s.loop.Enabled() {
		return false
	}
	return s.rpmSample.TryBegin(now)
}

// FetchRPM reads the live RPM from t. It may be called off the UI goroutine.
func FetchRPM(ctx context.Context, t device.Transport) (float64, error) {
	return t.LiveRPM(ctx)
}

// CompleteRPM releases the fetch claim and steers the simulator. A failed
// or unusable reading hands the target back to the bounce.
func (s *Session) CompleteRPM(v float64, err error) {
	s.rpmSample.Done()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		if s.Sim.Following() {
			s.log.Debug().Err(err).Msg("live rpm lost, bouncing")
		}
		s.Sim.Release()
		return
	}
	if s.loop.Enabled() {
		s.Sim.Follow(v)
	}
}

// ClearHistory drops every recorded AFR cell and the trace.
func (s *Session) ClearHistory() {
	s.History.Clear()
	s.Trace.Reset()
	s.Zones.Clear()
}
