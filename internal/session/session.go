// Package session is the state of one tuner session: the curve set being
// edited, the live signal, the AFR history and the device it talks to.
//
// Every method runs on the UI goroutine. Network calls happen elsewhere and
// hand their results back through the Complete* and Apply* methods, so no
// field is ever touched concurrently.
package session

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/device"
	"cdi-tuner.klederson.com/internal/drag"
	"cdi-tuner.klederson.com/internal/grid"
	"cdi-tuner.klederson.com/internal/history"
	"cdi-tuner.klederson.com/internal/live"
	"cdi-tuner.klederson.com/internal/plot"
)

// Options configures a new session.
type Options struct {
	Variant   config.Variant
	Transport device.Transport
	Live      config.LiveSettings
	// DeviceRPM polls the transport for the live RPM instead of bouncing.
	DeviceRPM bool
	Rand      *rand.Rand
	Log       zerolog.Logger
}

// Session is owned by the host application and passed to every component.
type Session struct {
	Set     *curve.Set
	Variant config.Variant

	History *history.Recorder
	Zones   *history.Zones
	Trace   *history.Trace
	Sim     *live.Simulator

	loop      live.Loop
	afrSample *live.Sampler
	rpmSample *live.Sampler
	deviceRPM bool
	sink      history.Sink

	transport device.Transport
	drag      *drag.Controller
	rng       *rand.Rand
	log       zerolog.Logger

	afr    float64
	hasAFR bool

	overlay bool
	panel   bool

	active      bool
	statusEpoch uint64
	status      device.Status

	busy   Op
	notice Notice

	View   plot.View
	Cursor int
}

// New creates an inactive session. Call Activate to start status polling.
func New(opts Options) *Session {
	if opts.Variant == "" {
		opts.Variant = config.VariantBasic
	}
	if opts.Transport == nil {
		opts.Transport = device.Null{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	lv := opts.Live
	if lv.SpeedRPM <= 0 {
		lv.SpeedRPM = config.LiveSpeedRPM
	}
	if lv.Ease <= 0 {
		lv.Ease = config.LiveEase
	}
	if lv.SnapTol <= 0 {
		lv.SnapTol = config.LiveSnapTol
	}
	if lv.AFRInterval.Duration <= 0 {
		lv.AFRInterval.Duration = config.AFRInterval
	}
	if lv.RPMInterval.Duration <= 0 {
		lv.RPMInterval.Duration = config.RPMInterval
	}

	rec := history.NewRecorder()
	return &Session{
		Set:       curve.NewSet(opts.Variant.MapCount()),
		Variant:   opts.Variant,
		History:   rec,
		Zones:     history.NewZones(),
		Trace:     history.NewTrace(config.AFRTraceCapacity),
		Sim:       live.NewSimulator(lv.SpeedRPM, lv.Ease, lv.SnapTol),
		afrSample: live.NewSampler(lv.AFRInterval.Duration),
		rpmSample: live.NewSampler(lv.RPMInterval.Duration),
		deviceRPM: opts.DeviceRPM,
		sink:      rec,
		transport: opts.Transport,
		rng:       opts.Rand,
		log:       opts.Log.With().Str("component", "session").Logger(),
		View:      plot.FullView(),
		Cursor:    0,
	}
}

// Transport returns the device the session talks to.
func (s *Session) Transport() device.Transport {
	return s.transport
}

// SetTransport swaps the device. Outstanding results from the old device
// are still accepted; they carry no device identity.
func (s *Session) SetTransport(t device.Transport) {
	if t == nil {
		t = device.Null{}
	}
	s.transport = t
	s.status = device.Status{}
	s.log.Info().Str("transport", t.Name()).Msg("transport changed")
}

// AttachSurface creates the drag controller for the plot surface.
func (s *Session) AttachSurface(surface drag.Surface) *drag.Controller {
	s.drag = drag.NewController(s.Set, surface)
	return s.drag
}

// Drag returns the drag controller, or nil before AttachSurface.
func (s *Session) Drag() *drag.Controller {
	return s.drag
}

// SetHistorySink redirects AFR recording. Nil restores the session recorder.
func (s *Session) SetHistorySink(sink history.Sink) {
	if sink == nil {
		sink = s.History
	}
	s.sink = sink
}

// SwitchVariant tears the current module down and brings up a fresh curve
// set for v. It returns the new status epoch when polling restarted.
func (s *Session) SwitchVariant(v config.Variant) (uint64, bool) {
	if v == s.Variant {
		return 0, false
	}
	wasActive := s.active
	s.Deactivate()
	s.Variant = v
	s.Set = curve.NewSet(v.MapCount())
	if s.drag != nil {
		s.drag.Reset(s.Set)
	}
	s.Cursor = grid.ClampIndex(s.Cursor)
	s.log.Info().Str("variant", string(v)).Msg("variant switched")
	if !wasActive {
		return 0, false
	}
	return s.Activate()
}

// Activate starts status polling. It returns the epoch status ticks must
// carry and true when polling was not already running.
func (s *Session) Activate() (uint64, bool) {
	if s.active {
		return s.statusEpoch, false
	}
	s.active = true
	s.statusEpoch++
	return s.statusEpoch, true
}

// Deactivate stops status polling and live mode. Safe to call repeatedly.
func (s *Session) Deactivate() {
	if !s.active {
		return
	}
	s.active = false
	s.statusEpoch++
	s.StopLive()
	if s.drag != nil {
		s.drag.Reset(s.Set)
	}
}

// Active reports whether the module is active.
func (s *Session) Active() bool {
	return s.active
}

// StatusDue reports whether a status tick from epoch should still poll.
func (s *Session) StatusDue(epoch uint64) bool {
	return s.active && epoch == s.statusEpoch
}

// CompleteStatus stores a status poll. Errors mean offline.
func (s *Session) CompleteStatus(st device.Status, err error) {
	if err != nil {
		s.log.Debug().Err(err).Msg("status poll failed")
		st = device.Status{}
	}
	if st.Online != s.status.Online {
		s.log.Info().Bool("online", st.Online).Msg("device status changed")
	}
	s.status = st
}

// Status returns the last polled device status.
func (s *Session) Status() device.Status {
	return s.status
}

// Scene assembles the renderer input for the current state.
func (s *Session) Scene() plot.Scene {
	sc := plot.Scene{
		Set:        s.Set,
		View:       s.View,
		ShowZones:  s.overlay,
		CenterText: s.CenterText(),
		Cursor:     s.Cursor,
		Live: plot.LiveMarker{
			On:     s.loop.Enabled(),
			RPM:    s.Sim.Visual,
			AFR:    s.afr,
			HasAFR: s.hasAFR,
		},
	}
	if s.overlay {
		sc.Zones = s.Zones.Bands()
	}
	if s.panel {
		sc.History = s.History.Snapshot()
		sc.Trace = s.Trace.Values()
	}
	return sc
}
