package plot

import (
	"fmt"
	"image/color"
	"math"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/grid"
	"cdi-tuner.klederson.com/internal/history"
)

// Theme holds the renderer palette.
type Theme struct {
	Background color.NRGBA
	Grid       color.NRGBA
	Label      color.NRGBA
	Active     color.NRGBA
	Inactive   color.NRGBA
	Locked     color.NRGBA
	Point      color.NRGBA
	Cursor     color.NRGBA
	Limiter    color.NRGBA
	Live       color.NRGBA
	Timing     color.NRGBA
	Trace      color.NRGBA
}

// DefaultTheme is the green-on-black phosphor palette.
var DefaultTheme = Theme{
	Background: color.NRGBA{0x05, 0x0A, 0x05, 0xFF},
	Grid:       color.NRGBA{0x00, 0x4A, 0x0A, 0xFF},
	Label:      color.NRGBA{0x00, 0x8F, 0x11, 0xFF},
	Active:     color.NRGBA{0x00, 0xFF, 0x41, 0xFF},
	Inactive:   color.NRGBA{0x00, 0xFF, 0xAA, 0xFF},
	Locked:     color.NRGBA{0x3A, 0x4A, 0x3A, 0xFF},
	Point:      color.NRGBA{0xCC, 0xFF, 0xCC, 0xFF},
	Cursor:     color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF},
	Limiter:    color.NRGBA{0xFF, 0xB0, 0x00, 0xFF},
	Live:       color.NRGBA{0xFF, 0x3B, 0x30, 0xFF},
	Timing:     color.NRGBA{0xF0, 0xF0, 0xF0, 0xFF},
	Trace:      color.NRGBA{0x00, 0xD0, 0xFF, 0xFF},
}

const (
	inactiveAlpha = 0.35
	zoneAlpha     = 0.30
	pointRadius   = 3.0
	cursorRadius  = 5.0
)

// LiveMarker is the live signal as seen by the renderer.
type LiveMarker struct {
	On     bool
	RPM    float64
	AFR    float64
	HasAFR bool
}

// Scene is everything one frame depends on.
type Scene struct {
	Set        *curve.Set
	View       View
	Live       LiveMarker
	ShowZones  bool
	Zones      []history.Zone
	CenterText bool
	History    []history.Entry
	Trace      []float64
	Cursor     int // Highlighted index, -1 for none
}

// Renderer draws scenes onto canvases. It owns no state besides its theme.
type Renderer struct {
	Theme Theme
}

// NewRenderer creates a renderer with the default theme.
func NewRenderer() *Renderer {
	return &Renderer{Theme: DefaultTheme}
}

// DrawMain draws the curve editor and returns the mapper used, so pointer
// input can be resolved against the same geometry. ok is false when the
// frame was skipped.
func (r *Renderer) DrawMain(c Canvas, vp Viewport, sc Scene) (Mapper, bool) {
	if sc.Set == nil || !c.Fit(vp) {
		return Mapper{}, false
	}
	c.Clear(r.Theme.Background)

	m, ok := NewMapper(vp.PlotRect(), sc.Set.Cap(), sc.View)
	if !ok {
		return Mapper{}, false
	}

	if sc.ShowZones {
		r.drawZones(c, m, sc.Zones)
	}
	r.drawAxes(c, m)

	for n, mp := range sc.Set.Maps {
		if n != sc.Set.Active {
			r.drawCurve(c, m, mp, withAlpha(r.Theme.Inactive, inactiveAlpha), withAlpha(r.Theme.Locked, inactiveAlpha))
		}
	}
	active := sc.Set.ActiveMap()
	r.drawLimiter(c, m, active)
	r.drawCurve(c, m, active, r.Theme.Active, r.Theme.Locked)
	r.drawPoints(c, m, active, sc.Cursor)

	if sc.Live.On {
		r.drawLiveMarker(c, m, sc.Live.RPM)
	}
	if sc.CenterText && sc.Live.HasAFR {
		x := m.Plot.X + m.Plot.W/2
		y := m.Plot.Y + m.Plot.H/2
		c.Text(x, y, fmt.Sprintf("AFR %.1f", sc.Live.AFR), TextStyle{
			Color: history.Color(sc.Live.AFR),
			Align: AlignCenter,
			Large: true,
		})
	}
	return m, true
}

func (r *Renderer) drawZones(c Canvas, m Mapper, zones []history.Zone) {
	width := config.ZoneStep / config.RPMStep
	for _, z := range zones {
		x0 := math.Max(m.Plot.X, m.IndexX(z.Index))
		x1 := math.Min(m.Plot.Right(), m.IndexX(z.Index+width))
		if x1 <= x0 {
			continue
		}
		c.FillRect(Rect{X: x0, Y: m.Plot.Y, W: x1 - x0, H: m.Plot.H}, withAlpha(z.Color, zoneAlpha))
	}
}

func (r *Renderer) drawAxes(c Canvas, m Mapper) {
	step := 5.0
	if m.Cap > 40 {
		step = 10
	}
	label := TextStyle{Color: r.Theme.Label, Align: AlignRight}
	for v := 0.0; v <= m.Cap+1e-9; v += step {
		y := m.ValueY(v)
		c.Line(m.Plot.X, y, m.Plot.Right(), y, 1, r.Theme.Grid)
		c.Text(m.Plot.X-4, y, fmt.Sprintf("%.0f", v), label)
	}

	rpmStep := 2000
	if m.View.Hi-m.View.Lo < 24 {
		rpmStep = 500
	}
	label.Align = AlignCenter
	lo, hi := grid.RPM(m.View.Lo), grid.RPM(m.View.Hi)
	for rpm := (lo + rpmStep - 1) / rpmStep * rpmStep; rpm <= hi; rpm += rpmStep {
		x := m.RPMX(float64(rpm))
		c.Line(x, m.Plot.Y, x, m.Plot.Bottom(), 1, r.Theme.Grid)
		c.Text(x, m.Plot.Bottom()+config.PlotMarginBottom/2, rpmLabel(rpm), label)
	}
}

func rpmLabel(rpm int) string {
	if rpm%1000 == 0 {
		return fmt.Sprintf("%dk", rpm/1000)
	}
	return fmt.Sprintf("%.1fk", float64(rpm)/1000)
}

func (r *Renderer) drawCurve(c Canvas, m Mapper, mp *curve.Map, col, locked color.NRGBA) {
	for i := m.View.Lo; i < m.View.Hi; i++ {
		x0, y0 := m.ToPixel(i, mp.Curve[i])
		x1, y1 := m.ToPixel(i+1, mp.Curve[i+1])
		seg := col
		if mp.Locked(i + 1) {
			seg = locked
		}
		c.Line(x0, y0, x1, y1, 2, seg)
	}
}

func (r *Renderer) drawLimiter(c Canvas, m Mapper, mp *curve.Map) {
	x := m.RPMX(float64(mp.Limiter))
	if x < m.Plot.X || x > m.Plot.Right() {
		return
	}
	c.Line(x, m.Plot.Y, x, m.Plot.Bottom(), 1, withAlpha(r.Theme.Limiter, 0.6))
	c.Text(x, m.Plot.Y-config.PlotMarginTop/2, "LIM", TextStyle{Color: r.Theme.Limiter, Align: AlignCenter})
}

func (r *Renderer) drawPoints(c Canvas, m Mapper, mp *curve.Map, cursor int) {
	for i := m.View.Lo; i <= m.View.Hi; i++ {
		if mp.Locked(i) {
			continue
		}
		x, y := m.ToPixel(i, mp.Curve[i])
		if i == cursor {
			c.Circle(x, y, cursorRadius, r.Theme.Cursor)
			continue
		}
		c.Circle(x, y, pointRadius, r.Theme.Point)
	}
}

func (r *Renderer) drawLiveMarker(c Canvas, m Mapper, rpm float64) {
	x := m.RPMX(rpm)
	if x < m.Plot.X || x > m.Plot.Right() {
		return
	}
	c.Line(x, m.Plot.Y, x, m.Plot.Bottom(), 2, r.Theme.Live)
}

// DrawDetail draws the AFR detail canvas: one colored column per recorded
// 100-RPM cell across the whole axis, the interpolated timing of the active
// map on top, and the recent AFR trace.
func (r *Renderer) DrawDetail(c Canvas, vp Viewport, sc Scene) bool {
	if sc.Set == nil || !c.Fit(vp) {
		return false
	}
	c.Clear(r.Theme.Background)

	plot := vp.PlotRect()
	if plot.Degenerate() || !(sc.Set.Cap() > 0) {
		return false
	}

	cells := (config.RPMMax-config.RPMMin)/config.HistoryStep + 1
	cellW := plot.W / float64(cells)
	cellX := func(rpm float64) float64 {
		return plot.X + (rpm-config.RPMMin)/config.HistoryStep*cellW
	}

	c.Line(plot.X, plot.Bottom(), plot.Right(), plot.Bottom(), 1, r.Theme.Grid)
	label := TextStyle{Color: r.Theme.Label, Align: AlignCenter}
	for rpm := 5000; rpm <= config.RPMMax; rpm += 5000 {
		x := cellX(float64(rpm))
		c.Line(x, plot.Y, x, plot.Bottom(), 1, r.Theme.Grid)
		c.Text(x, plot.Bottom()+config.PlotMarginBottom/2, rpmLabel(rpm), label)
	}

	for _, e := range sc.History {
		c.FillRect(Rect{X: cellX(float64(e.RPM)), Y: plot.Y, W: math.Max(cellW, 1), H: plot.H}, history.Color(e.AFR))
	}

	ceiling := sc.Set.Cap()
	timingY := func(v float64) float64 {
		return plot.Y + plot.H*(1-v/ceiling)
	}
	active := sc.Set.Active
	prevX, prevY := cellX(config.RPMMin), timingY(sc.Set.TimingAt(active, config.RPMMin))
	for k := 1; k < cells; k++ {
		rpm := float64(config.RPMMin + k*config.HistoryStep)
		x, y := cellX(rpm), timingY(sc.Set.TimingAt(active, rpm))
		c.Line(prevX, prevY, x, y, 1.5, r.Theme.Timing)
		prevX, prevY = x, y
	}

	if len(sc.Trace) > 1 {
		r.drawTrace(c, Rect{X: plot.X, Y: plot.Y, W: plot.W, H: plot.H / 4}, sc.Trace)
	}
	if sc.Live.On {
		x := cellX(sc.Live.RPM)
		c.Line(x, plot.Y, x, plot.Bottom(), 2, r.Theme.Live)
	}
	if sc.Live.HasAFR {
		c.Text(plot.Right(), plot.Y-config.PlotMarginTop/2, fmt.Sprintf("%.1f", sc.Live.AFR),
			TextStyle{Color: history.Color(sc.Live.AFR), Align: AlignRight})
	}
	return true
}

func (r *Renderer) drawTrace(c Canvas, band Rect, trace []float64) {
	span := config.AFRSafeMax - config.AFRSafeMin
	y := func(v float64) float64 {
		v = math.Max(config.AFRSafeMin, math.Min(config.AFRSafeMax, v))
		return band.Bottom() - band.H*(v-config.AFRSafeMin)/span
	}
	dx := band.W / float64(len(trace)-1)
	for i := 1; i < len(trace); i++ {
		c.Line(band.X+dx*float64(i-1), y(trace[i-1]), band.X+dx*float64(i), y(trace[i]), 1, r.Theme.Trace)
	}
}
