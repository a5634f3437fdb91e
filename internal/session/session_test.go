package session

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/device"
	"cdi-tuner.klederson.com/internal/history"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// echo stores whatever it is sent and hands it back on read.
type echo struct {
	device.Null
	stored curve.Payload
	afr    float64
	afrErr error
}

func (e *echo) Name() string { return "echo" }

func (e *echo) ReadMap(context.Context) (curve.Payload, error) { return e.stored, nil }

func (e *echo) SendMap(_ context.Context, p curve.Payload) (device.SendResult, error) {
	e.stored = p
	return device.SendResult{OK: true}, nil
}

func (e *echo) LiveAFR(context.Context, int) (float64, error) { return e.afr, e.afrErr }

func newTestSession(t *testing.T, v config.Variant, tr device.Transport) *Session {
	t.Helper()
	return New(Options{
		Variant:   v,
		Transport: tr,
		Rand:      rand.New(rand.NewSource(7)),
		Log:       zerolog.Nop(),
	})
}

func TestSendReadRoundTrip(t *testing.T) {
	e := &echo{}
	s := newTestSession(t, config.VariantDual, e)
	ctx := context.Background()

	s.Set.SetPickup(31.5)
	s.Set.SetValue(0, 3, 12.4)
	s.Set.SetValue(1, 10, 0)
	s.Set.SetLimiter(1, 9750)
	want := s.Set.Clone()

	if err := s.Send(ctx); err != nil {
		t.Fatalf("Send: %v", err)
	}
	s.Set.SetValue(0, 3, 30)
	s.Set.SetLimiter(1, 20000)
	if err := s.Read(ctx); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !s.Set.Equal(want) {
		t.Error("read back a different map set")
	}
	if s.Busy() != OpNone {
		t.Errorf("busy = %v after round trip", s.Busy())
	}
}

func TestReadFailureKeepsLocalMaps(t *testing.T) {
	s := newTestSession(t, config.VariantDual, &echo{})
	s.Set.SetValue(0, 0, 9.9)
	before := s.Set.Clone()

	if err := s.BeginRead(); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyRead(curve.Payload{}, device.ErrUnreachable); !errors.Is(err, device.ErrUnreachable) {
		t.Errorf("ApplyRead = %v", err)
	}
	if !s.Set.Equal(before) {
		t.Error("failed read changed local maps")
	}

	short := curve.NewSet(2).Payload()
	short.Maps[1].Curve = short.Maps[1].Curve[:10]
	if err := s.ApplyRead(short, nil); !errors.Is(err, curve.ErrCurveLength) {
		t.Errorf("short curve = %v", err)
	}
	if err := s.ApplyRead(curve.NewSet(1).Payload(), nil); !errors.Is(err, curve.ErrMapCount) {
		t.Errorf("missing map = %v", err)
	}
	if !s.Set.Equal(before) {
		t.Error("malformed read changed local maps")
	}
}

func TestBusyGuard(t *testing.T) {
	s := newTestSession(t, config.VariantBasic, &echo{})
	if _, err := s.BeginSend(); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginRead(); !errors.Is(err, ErrBusy) {
		t.Errorf("read during send = %v", err)
	}
	if err := s.FinishSend(device.SendResult{OK: false, Reason: "engine running"}, nil); !errors.Is(err, device.ErrRejected) {
		t.Errorf("rejected send = %v", err)
	}
	if err := s.BeginRead(); err != nil {
		t.Errorf("read after send finished = %v", err)
	}
}

func TestFrameChain(t *testing.T) {
	s := newTestSession(t, config.VariantBasic, nil)
	s.Activate()

	epoch := s.StartLive(t0)
	if !s.Frame(epoch, t0.Add(100*time.Millisecond)) {
		t.Fatal("first frame stopped the chain")
	}
	if s.Sim.Target <= config.RPMMin {
		t.Errorf("target did not advance: %v", s.Sim.Target)
	}

	stale := epoch
	epoch = s.StartLive(t0.Add(200 * time.Millisecond))
	if s.Frame(stale, t0.Add(210*time.Millisecond)) {
		t.Error("stale epoch frame continued")
	}

	s.StopLive()
	s.StopLive()
	if s.Frame(epoch, t0.Add(300*time.Millisecond)) {
		t.Error("frame after stop continued")
	}
	if s.Sim.Visual != config.RPMMin {
		t.Errorf("live state not zeroed: %v", s.Sim.Visual)
	}
}

func TestDeactivateEndsLive(t *testing.T) {
	s := newTestSession(t, config.VariantBasic, nil)
	first, started := s.Activate()
	if !started {
		t.Fatal("Activate did not start polling")
	}
	if again, started := s.Activate(); started || again != first {
		t.Error("second Activate restarted polling")
	}
	epoch := s.StartLive(t0)
	s.Deactivate()
	s.Deactivate()
	if s.StatusDue(first) {
		t.Error("status tick still due after deactivate")
	}
	if s.Frame(epoch, t0.Add(time.Second)) || s.Live() {
		t.Error("live survived deactivate")
	}
	next, started := s.Activate()
	if !started || next == first || !s.StatusDue(next) {
		t.Error("reactivate did not open a new status epoch")
	}
}

func TestSwitchVariant(t *testing.T) {
	s := newTestSession(t, config.VariantBasic, nil)
	old, _ := s.Activate()
	epoch, restarted := s.SwitchVariant(config.VariantDual)
	if !restarted || epoch == old {
		t.Error("switch did not restart polling")
	}
	if len(s.Set.Maps) != 2 || s.Variant != config.VariantDual {
		t.Errorf("maps = %d, variant = %s", len(s.Set.Maps), s.Variant)
	}
	if _, restarted := s.SwitchVariant(config.VariantDual); restarted {
		t.Error("switch to same variant restarted polling")
	}
}

func TestAFRSamplingRecordsHistory(t *testing.T) {
	e := &echo{afr: 14.04}
	s := newTestSession(t, config.VariantBasic, e)
	s.Activate()
	s.SetOverlay(true)
	s.StartLive(t0)

	req, ok := s.BeginAFR(t0)
	if !ok {
		t.Fatal("first AFR attempt refused")
	}
	if _, ok := s.BeginAFR(t0.Add(time.Second)); ok {
		t.Error("second fetch started while one is in flight")
	}
	v, err := FetchAFR(context.Background(), s.Transport(), req)
	if got := s.CompleteAFR(req, v, err, t0); got != 14.0 {
		t.Errorf("afr = %v, want 14.0", got)
	}

	if e, ok := s.History.Get(500); !ok || e.AFR != 14.0 {
		t.Errorf("history[500] = %+v, %v", e, ok)
	}
	if s.Zones.Len() != 1 || s.Trace.Len() != 1 {
		t.Errorf("zones = %d, trace = %d", s.Zones.Len(), s.Trace.Len())
	}
	if _, ok := s.BeginAFR(t0.Add(10 * time.Millisecond)); ok {
		t.Error("throttle allowed a fetch inside the interval")
	}
	if _, ok := s.BeginAFR(t0.Add(2 * config.AFRInterval)); !ok {
		t.Error("fetch refused after the interval")
	}
}

func TestAFRFallbackOnFailure(t *testing.T) {
	e := &echo{afrErr: device.ErrUnsupported}
	s := newTestSession(t, config.VariantBasic, e)
	s.Activate()
	s.StartLive(t0)

	req, _ := s.BeginAFR(t0)
	v, err := FetchAFR(context.Background(), e, req)
	got := s.CompleteAFR(req, v, err, t0)
	if got < 12.2 || got > 12.8 {
		t.Errorf("fallback at 500 rpm = %v", got)
	}
	if afr, ok := s.AFR(); !ok || afr != got {
		t.Errorf("AFR() = %v, %v", afr, ok)
	}
}

type sinkFunc func(rpm, afr float64, now time.Time)

func (f sinkFunc) Record(rpm, afr float64, now time.Time) { f(rpm, afr, now) }

func (sinkFunc) Break() {}

func TestHistorySinkInjection(t *testing.T) {
	s := newTestSession(t, config.VariantBasic, &echo{afr: 13})
	var calls int
	s.SetHistorySink(sinkFunc(func(float64, float64, time.Time) { calls++ }))
	s.Activate()
	s.StartLive(t0)
	req, _ := s.BeginAFR(t0)
	s.CompleteAFR(req, 13, nil, t0)
	if calls != 1 || s.History.Len() != 0 {
		t.Errorf("calls = %d, recorder len = %d", calls, s.History.Len())
	}
	var _ history.Sink = s.History
}

// sample runs one AFR fetch at the simulator's current RPM.
func sample(t *testing.T, s *Session, at time.Time) {
	t.Helper()
	req, ok := s.BeginAFR(at)
	if !ok {
		t.Fatalf("AFR fetch refused at %d rpm", s.Sim.RPM())
	}
	v, err := FetchAFR(context.Background(), s.Transport(), req)
	s.CompleteAFR(req, v, err, at)
}

func TestLiveRestartKeepsHistory(t *testing.T) {
	e := &echo{afr: 13.9}
	s := newTestSession(t, config.VariantBasic, e)
	s.Activate()
	s.StartLive(t0)

	at := t0
	sample(t, s, at)
	s.Sim.Visual = 15000
	at = at.Add(2 * config.AFRInterval)
	sample(t, s, at)
	if got, _ := s.History.Get(10000); got.AFR != 13.9 {
		t.Fatalf("sweep did not fill cell 10000: %+v", got)
	}

	s.StopLive()
	s.StartLive(at)
	e.afr = 16.8
	s.Sim.Visual = 572
	at = at.Add(2 * config.AFRInterval)
	sample(t, s, at)

	if got, _ := s.History.Get(10000); got.AFR != 13.9 {
		t.Errorf("cell 10000 = %v after restart, want 13.9", got.AFR)
	}
	if got, _ := s.History.Get(600); got.AFR != 16.8 {
		t.Errorf("cell 600 = %v, want 16.8", got.AFR)
	}
}

func TestStaleAFRDroppedAfterRestart(t *testing.T) {
	e := &echo{afr: 13.9}
	s := newTestSession(t, config.VariantBasic, e)
	s.Activate()
	s.StartLive(t0)

	stale, ok := s.BeginAFR(t0)
	if !ok {
		t.Fatal("AFR fetch refused")
	}
	s.StopLive()
	s.StartLive(t0.Add(time.Second))

	s.CompleteAFR(stale, 11.9, nil, t0.Add(time.Second))
	if s.History.Len() != 0 || s.Trace.Len() != 0 {
		t.Errorf("stale reading recorded: history = %d, trace = %d", s.History.Len(), s.Trace.Len())
	}
	if _, ok := s.AFR(); ok {
		t.Error("stale reading became the live AFR")
	}

	sample(t, s, t0.Add(2*time.Second))
	if got, ok := s.History.Get(500); !ok || got.AFR != 13.9 {
		t.Errorf("new run not recorded: %+v, %v", got, ok)
	}
}

type deadDevice struct{ device.Null }

func (deadDevice) LiveRPM(context.Context) (float64, error) { return 0, device.ErrUnreachable }

func TestDeadDeviceRPMReleasesToBounce(t *testing.T) {
	tr := &device.Fallback{
		Primary: deadDevice{},
		Backup:  device.NewSimulated(1, rand.New(rand.NewSource(2))),
	}
	s := New(Options{Variant: config.VariantBasic, Transport: tr, DeviceRPM: true, Log: zerolog.Nop()})
	s.Activate()
	s.StartLive(t0)
	s.Sim.Follow(9000)

	if !s.BeginRPM(t0) {
		t.Fatal("rpm fetch refused")
	}
	v, err := FetchRPM(context.Background(), s.Transport())
	if !device.IsOffline(err) {
		t.Fatalf("dead device rpm = %v, %v", v, err)
	}
	s.CompleteRPM(v, err)
	if s.Sim.Following() {
		t.Error("simulator still following a dead device")
	}

	req, _ := s.BeginAFR(t0)
	afr, err := FetchAFR(context.Background(), s.Transport(), req)
	if err != nil || afr < config.AFRSafeMin {
		t.Errorf("AFR backup = %v, %v", afr, err)
	}
}

type rpmSource struct {
	device.Null
	rpm float64
	err error
}

func (r rpmSource) LiveRPM(context.Context) (float64, error) { return r.rpm, r.err }

func TestDeviceRPMFollowsAndFallsBack(t *testing.T) {
	s := New(Options{Variant: config.VariantBasic, DeviceRPM: true, Log: zerolog.Nop()})
	s.Activate()
	s.StartLive(t0)

	if !s.BeginRPM(t0) {
		t.Fatal("rpm fetch refused")
	}
	v, err := FetchRPM(context.Background(), rpmSource{rpm: 7200})
	s.CompleteRPM(v, err)
	if !s.Sim.Following() || s.Sim.Target != 7200 {
		t.Errorf("target = %v following = %v", s.Sim.Target, s.Sim.Following())
	}

	s.BeginRPM(t0.Add(time.Second))
	v, err = FetchRPM(context.Background(), rpmSource{err: device.ErrUnreachable})
	s.CompleteRPM(v, err)
	if s.Sim.Following() {
		t.Error("simulator still following after a failed reading")
	}
}

func TestOverlayAndCenterTextExclusive(t *testing.T) {
	s := newTestSession(t, config.VariantBasic, nil)
	s.History.Record(3000, 13.5, t0)
	s.Zones.Update(3000, 13.5)
	s.overlay = true

	s.SetPanel(true)
	if s.Overlay() || !s.CenterText() {
		t.Error("opening the panel kept the overlay")
	}
	if s.Zones.Len() != 0 {
		t.Error("zones survived overlay off")
	}
	s.SetOverlay(true)
	if s.CenterText() || !s.Panel() {
		t.Error("overlay did not suppress the center text")
	}
	if s.History.Len() != 1 {
		t.Error("mode switch touched history")
	}
	sc := s.Scene()
	if !sc.ShowZones || sc.CenterText {
		t.Errorf("scene shows zones=%v center=%v", sc.ShowZones, sc.CenterText)
	}
}

func TestTableEdits(t *testing.T) {
	s := newTestSession(t, config.VariantBasic, nil)
	s.Cursor = 0
	if v, err := s.EditCursor("99"); err != nil || v != s.Set.Pickup {
		t.Errorf("EditCursor(99) = %v, %v", v, err)
	}
	prev := s.Set.ActiveMap().Curve[0]
	if v, err := s.EditCursor("abc"); !errors.Is(err, ErrInput) || v != prev {
		t.Errorf("EditCursor(abc) = %v, %v", v, err)
	}
	if v, _ := s.EditPickup("75"); v != config.TimingMax {
		t.Errorf("pickup = %v", v)
	}
	if v, _ := s.EditLimiter("100"); v != config.RPMMin {
		t.Errorf("limiter = %v", v)
	}
	s.MoveCursor(10)
	if _, err := s.EditCursor("12"); err == nil {
		t.Error("edit past the limiter accepted")
	}
	s.MoveCursor(-100)
	if s.Cursor != 0 {
		t.Errorf("cursor = %d", s.Cursor)
	}
}

func TestNoticeExpires(t *testing.T) {
	s := newTestSession(t, config.VariantBasic, nil)
	s.Notify(NoticeError, "device unreachable", t0, config.NoticeTTL)
	if n, ok := s.Notice(t0.Add(time.Second)); !ok || n.Kind != NoticeError {
		t.Error("notice missing before ttl")
	}
	if _, ok := s.Notice(t0.Add(config.NoticeTTL)); ok {
		t.Error("notice still showing after ttl")
	}
	if !s.ExpireNotice(t0.Add(config.NoticeTTL)) {
		t.Error("ExpireNotice did not clear")
	}
}

func TestCompleteStatus(t *testing.T) {
	s := newTestSession(t, config.VariantBasic, nil)
	s.CompleteStatus(device.Status{Online: true, ActiveProfile: 4}, nil)
	if !s.Status().Online {
		t.Error("status not stored")
	}
	s.CompleteStatus(device.Status{Online: true}, device.ErrUnreachable)
	if s.Status().Online {
		t.Error("failed poll kept device online")
	}
}
