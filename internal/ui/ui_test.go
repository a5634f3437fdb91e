package ui

import (
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/curve"
)

func init() {
	zone.NewGlobal()
}

func TestTachAngle(t *testing.T) {
	if got := TachAngle(config.RPMMin); got != tachStart {
		t.Errorf("min angle = %v", got)
	}
	if got := TachAngle(config.RPMMax); math.Abs(got-(tachStart+tachSweep)) > 1e-9 {
		t.Errorf("max angle = %v", got)
	}
	if TachAngle(-5) != TachAngle(config.RPMMin) || TachAngle(1e6) != TachAngle(config.RPMMax) {
		t.Error("angle not clamped")
	}
}

func TestRenderTachometerSize(t *testing.T) {
	if RenderTachometer(4, 3, 5000, 14000, true) != "" {
		t.Error("tiny gauge rendered")
	}
	out := RenderTachometer(30, 10, 5000, 14000, true)
	lines := strings.Split(out, "\n")
	if len(lines) != 10 {
		t.Fatalf("rows = %d", len(lines))
	}
	for i, l := range lines {
		if w := lipgloss.Width(l); w != 30 {
			t.Errorf("row %d width = %d", i, w)
		}
	}
}

func TestTablePanelHeight(t *testing.T) {
	set := curve.NewSet(2)
	set.SetLimiter(0, 9000)
	for _, cursor := range []int{0, 40, 78} {
		out := RenderTablePanel(set, 34, 20, TableState{Cursor: cursor, LiveRow: -1})
		if n := len(strings.Split(out, "\n")); n != 20 {
			t.Errorf("cursor %d: %d lines, want 20", cursor, n)
		}
		if !strings.Contains(out, ">>") {
			t.Errorf("cursor %d scrolled out of view", cursor)
		}
	}
}

func TestTableRowLocked(t *testing.T) {
	set := curve.NewSet(1)
	set.SetLimiter(0, 8000)
	row := renderTableRow(set, 60, 40, TableState{Cursor: 60, LiveRow: -1})
	if !strings.Contains(row, "--") {
		t.Errorf("locked row = %q", row)
	}
	row = renderTableRow(set, 0, 40, TableState{Cursor: 0, LiveRow: -1})
	if !strings.Contains(row, "500") {
		t.Errorf("row = %q", row)
	}
}

func TestDetailPanelHeight(t *testing.T) {
	out := RenderDetailPanel(DetailInfo{
		Live: true, RPM: 6000, AFR: 13.1, HasAFR: true, Timing: 28.5,
		Limiter: 14000, Cells: 12, Trace: []float64{12.8, 13.1, 13.4},
	}, 40, 36)
	if n := len(strings.Split(out, "\n")); n != 36 {
		t.Errorf("lines = %d", n)
	}
	if !strings.Contains(out, "6000 rpm") || !strings.Contains(out, "13.1") {
		t.Error("readings missing")
	}
}

func TestSparkline(t *testing.T) {
	s := renderSparkline([]float64{1, 2, 3, 4}, 2)
	if len([]rune(s)) != 2 {
		t.Errorf("sparkline = %q", s)
	}
	if renderSparkline(nil, 5) != "" {
		t.Error("empty sparkline not empty")
	}
}

func TestMenuBarMarksButtons(t *testing.T) {
	out := zone.Scan(RenderMenuBar(120, MenuState{Variant: config.VariantDual, Maps: 2, Live: true}))
	if !strings.Contains(out, "[L]ive") || !strings.Contains(out, "DUAL") {
		t.Errorf("menu = %q", out)
	}
}

func TestStatusBarNotice(t *testing.T) {
	out := RenderStatusBar(100, StatusInfo{Online: true, Notice: "map sent"})
	if !strings.Contains(out, "ONLINE") || !strings.Contains(out, "map sent") {
		t.Errorf("status = %q", out)
	}
	out = RenderStatusBar(100, StatusInfo{Live: true, RPM: 4500, Profile: "Street"})
	if !strings.Contains(out, "4500") || !strings.Contains(out, "OFFLINE") {
		t.Errorf("status = %q", out)
	}
}
