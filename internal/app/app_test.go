package app

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/rs/zerolog"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/device"
	"cdi-tuner.klederson.com/internal/drag"
	"cdi-tuner.klederson.com/internal/plot"
	"cdi-tuner.klederson.com/internal/session"
)

func init() {
	zone.NewGlobal()
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// helper to send a message through Update and return the updated Model.
func appUpdate(m Model, msg tea.Msg) (Model, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, variant config.Variant) (Model, *device.Simulated) {
	t.Helper()
	dev := device.NewSimulated(variant.MapCount(), rand.New(rand.NewSource(3)))
	sess := session.New(session.Options{
		Variant:   variant,
		Transport: dev,
		Rand:      rand.New(rand.NewSource(4)),
		Log:       zerolog.Nop(),
	})
	m := New(Options{Session: sess, Log: zerolog.Nop(), Now: func() time.Time { return t0 }})
	m.Init()
	m, _ = appUpdate(m, tea.WindowSizeMsg{Width: 160, Height: 44})
	return m, dev
}

func TestViewBeforeSize(t *testing.T) {
	m := New(Options{Log: zerolog.Nop()})
	if !strings.Contains(m.View(), "Initializing") {
		t.Error("expected placeholder before the first resize")
	}
}

func TestViewRendersPanels(t *testing.T) {
	m, _ := newTestModel(t, config.VariantDual)
	out := m.View()
	for _, want := range []string{"IGNITION MAP 1/2", "MAP TABLE", "OFFLINE"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if _, ok := m.shared.Mapper(); !ok {
		t.Error("View did not publish plot geometry")
	}

	m, _ = appUpdate(m, keyPress("a"))
	if out := m.View(); !strings.Contains(out, "AFR DETAIL") {
		t.Error("detail panel not shown")
	}
}

func TestMouseDragEditsPoint(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	m.View()
	sess := m.Session()
	mp, ok := m.shared.Mapper()
	if !ok {
		t.Fatal("no plot geometry")
	}

	lay := m.layout()
	x, y := mp.ToPixel(8, sess.Set.ActiveMap().Curve[8])
	col := int(x)/config.CellWidthPx + lay.originX
	row := int(y)/config.CellHeightPx + lay.originY

	m, _ = appUpdate(m, tea.MouseMsg{X: col, Y: row, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	_, idx, ok := m.shared.drag.Target()
	if !ok {
		t.Fatal("press on a point did not start a drag")
	}
	if m.shared.scroll || m.shared.captured != mousePointer {
		t.Error("drag did not disable scroll and capture the pointer")
	}
	if sess.Cursor != idx {
		t.Errorf("cursor = %d, want grabbed index %d", sess.Cursor, idx)
	}

	m, _ = appUpdate(m, tea.MouseMsg{X: col + 40, Y: row - 4, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	_, wantY := plot.CellCenter(0, row-4-lay.originY)
	want := mp.ToValue(wantY)
	if got := sess.Set.ActiveMap().Curve[idx]; math.Abs(got-want) > 0.051 {
		t.Errorf("dragged value = %v, want %v", got, want)
	}

	m, _ = appUpdate(m, tea.MouseMsg{X: col + 40, Y: row - 4, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if m.shared.drag.State() != drag.Idle || !m.shared.scroll || m.shared.captured != -1 {
		t.Error("release did not end the drag")
	}
}

func TestClickOffPointMovesCursor(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	m.View()
	lay := m.layout()
	// Top-right corner of the canvas is far from every point.
	m, _ = appUpdate(m, tea.MouseMsg{X: lay.originX + lay.canvasCols - 3, Y: lay.originY, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if m.shared.drag.State() != drag.Idle {
		t.Fatal("empty click grabbed a point")
	}
	if m.Session().Cursor < 70 {
		t.Errorf("cursor = %d, want near the right edge", m.Session().Cursor)
	}
}

func TestWheelZooms(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	m.View()
	lay := m.layout()
	m, _ = appUpdate(m, tea.MouseMsg{X: lay.originX + 20, Y: lay.originY + 5, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	v := m.Session().View
	if v.Hi-v.Lo >= 78 {
		t.Errorf("view not zoomed: %+v", v)
	}
	m, _ = appUpdate(m, keyPress("0"))
	if v := m.Session().View; v.Lo != 0 || v.Hi != 78 {
		t.Errorf("reset view = %+v", v)
	}
}

func TestLiveFrameChain(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	sess := m.Session()

	m, cmd := appUpdate(m, keyPress("l"))
	if cmd == nil || !sess.Live() {
		t.Fatal("live did not start")
	}
	epoch := sess.LiveEpoch()
	m, cmd = appUpdate(m, FrameMsg{Epoch: epoch, At: t0.Add(50 * time.Millisecond)})
	if cmd == nil {
		t.Fatal("frame chain ended while live")
	}

	m, _ = appUpdate(m, keyPress("l"))
	if _, cmd = appUpdate(m, FrameMsg{Epoch: epoch, At: t0.Add(100 * time.Millisecond)}); cmd != nil {
		t.Error("frame rescheduled after stop")
	}
}

func TestAFRMessageRecords(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	sess := m.Session()
	m, _ = appUpdate(m, keyPress("l"))
	req, ok := sess.BeginAFR(t0)
	if !ok {
		t.Fatal("AFR fetch refused")
	}
	m, _ = appUpdate(m, AFRMsg{Req: req, Value: 13.26, At: t0})
	if v, ok := sess.AFR(); !ok || v != 13.3 {
		t.Errorf("AFR = %v, %v", v, ok)
	}
	if sess.History.Len() != 1 {
		t.Errorf("history len = %d", sess.History.Len())
	}
}

func TestSendThenRead(t *testing.T) {
	m, dev := newTestModel(t, config.VariantDual)
	sess := m.Session()
	sess.Set.SetValue(1, 4, 7.5)
	want := sess.Set.Clone()

	m, cmd := appUpdate(m, keyPress("s"))
	if cmd == nil || sess.Busy() != session.OpSend {
		t.Fatal("send did not start")
	}
	if _, cmd := appUpdate(m, keyPress("r")); cmd == nil || sess.Busy() != session.OpSend {
		t.Error("read started during send")
	}
	res, err := dev.SendMap(context.Background(), sess.Set.Payload())
	m, _ = appUpdate(m, SendMsg{Result: res, Err: err})
	if n, ok := sess.Notice(t0); !ok || n.Kind != session.NoticeSuccess {
		t.Errorf("send notice = %+v", n)
	}

	sess.Set.SetValue(1, 4, 20)
	m, _ = appUpdate(m, keyPress("r"))
	p, err := dev.ReadMap(context.Background())
	m, _ = appUpdate(m, ReadMsg{Payload: p, Err: err})
	if !sess.Set.Equal(want) {
		t.Error("read did not restore the sent map")
	}
}

func TestReadFailureNotice(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	sess := m.Session()
	before := sess.Set.Clone()
	m, _ = appUpdate(m, keyPress("r"))
	m, _ = appUpdate(m, ReadMsg{Err: device.ErrUnreachable})
	n, ok := sess.Notice(t0)
	if !ok || n.Kind != session.NoticeError || !strings.Contains(n.Text, "unchanged") {
		t.Errorf("notice = %+v", n)
	}
	if !sess.Set.Equal(before) || sess.Busy() != session.OpNone {
		t.Error("failed read left state behind")
	}
	m, _ = appUpdate(m, NoticeExpiredMsg(t0.Add(config.NoticeTTL)))
	if _, ok := sess.Notice(t0); ok {
		t.Error("notice not cleared")
	}
}

func TestStatusPollingEpochs(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	sess := m.Session()

	m, cmd := appUpdate(m, StatusMsg{Epoch: 1, Status: device.Status{Online: true, ActiveProfile: 2}})
	if cmd == nil || !sess.Status().Online {
		t.Fatal("status poll not stored or not rescheduled")
	}

	m, _ = appUpdate(m, keyPress("v"))
	if sess.Variant != config.VariantDual {
		t.Fatalf("variant = %s", sess.Variant)
	}
	if _, cmd := appUpdate(m, StatusTickMsg{Epoch: 1}); cmd != nil {
		t.Error("stale status chain kept polling after the variant switch")
	}
	if _, cmd := appUpdate(m, StatusTickMsg{Epoch: 3}); cmd == nil {
		t.Error("new status chain not polling")
	}
}

func TestEditPickup(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	sess := m.Session()

	m, _ = appUpdate(m, keyPress("p"))
	if m.editing != editPickup {
		t.Fatalf("editing = %v", m.editing)
	}
	m.input.SetValue("40")
	m, _ = appUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	if sess.Set.Pickup != 40 || m.editing != editNone {
		t.Errorf("pickup = %v, editing = %v", sess.Set.Pickup, m.editing)
	}

	m, _ = appUpdate(m, keyPress("p"))
	m.input.SetValue("fast")
	m, _ = appUpdate(m, tea.KeyMsg{Type: tea.KeyEnter})
	if sess.Set.Pickup != 40 {
		t.Errorf("invalid input changed pickup to %v", sess.Set.Pickup)
	}
	if n, ok := sess.Notice(t0); !ok || n.Kind != session.NoticeError {
		t.Error("invalid input not reported")
	}

	m, _ = appUpdate(m, keyPress("p"))
	m, _ = appUpdate(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.editing != editNone {
		t.Error("esc did not cancel the edit")
	}
}

func TestNudgeLockedPoint(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	sess := m.Session()
	sess.Set.SetLimiter(0, 8000)
	sess.Cursor = 60
	before := sess.Set.ActiveMap().Curve[60]
	m, _ = appUpdate(m, keyPress("+"))
	if sess.Set.ActiveMap().Curve[60] != before {
		t.Error("locked point nudged")
	}
	if n, ok := sess.Notice(t0); !ok || n.Kind != session.NoticeError {
		t.Error("locked nudge not reported")
	}
}

func TestOverlayPanelKeys(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	sess := m.Session()
	m, _ = appUpdate(m, keyPress("o"))
	m, _ = appUpdate(m, keyPress("a"))
	if sess.Overlay() || !sess.CenterText() {
		t.Error("panel did not take over from the overlay")
	}
	m, _ = appUpdate(m, tea.KeyMsg{Type: tea.KeyEsc})
	if sess.Panel() {
		t.Error("esc did not close the panel")
	}
}

func TestQuitDeactivates(t *testing.T) {
	m, _ := newTestModel(t, config.VariantBasic)
	m, _ = appUpdate(m, keyPress("l"))
	_, cmd := appUpdate(m, keyPress("q"))
	if cmd == nil {
		t.Fatal("quit returned no command")
	}
	if m.Session().Active() || m.Session().Live() {
		t.Error("session still active after quit")
	}
	if m.shared.ctx.Err() == nil {
		t.Error("outstanding calls not cancelled")
	}
}
