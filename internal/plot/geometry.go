// Package plot maps timing curves onto a drawing surface and draws them.
//
// All geometry is expressed in logical pixels. Pointer coordinates arrive in
// logical pixels too, so hit testing never depends on the device pixel
// ratio of the backing store.
package plot

import (
	"math"

	"cdi-tuner.klederson.com/internal/config"
	"cdi-tuner.klederson.com/internal/curve"
	"cdi-tuner.klederson.com/internal/grid"
)

// Rect is an axis-aligned rectangle in logical pixels.
type Rect struct {
	X, Y, W, H float64
}

// Right returns the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// Degenerate reports whether r is too small (or malformed) to draw into.
func (r Rect) Degenerate() bool {
	for _, v := range []float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return r.W <= config.MinPlotPx || r.H <= config.MinPlotPx
}

// Viewport is the logical size of a surface and its device pixel ratio.
type Viewport struct {
	CSSW, CSSH float64
	DPR        float64
}

// CellViewport sizes a terminal region of cols x rows cells.
func CellViewport(cols, rows int) Viewport {
	return Viewport{
		CSSW: float64(cols * config.CellWidthPx),
		CSSH: float64(rows * config.CellHeightPx),
		DPR:  1,
	}
}

// CellCenter returns the logical pixel at the center of a terminal cell.
func CellCenter(col, row int) (x, y float64) {
	return float64(col*config.CellWidthPx) + config.CellWidthPx/2.0,
		float64(row*config.CellHeightPx) + config.CellHeightPx/2.0
}

// Scale returns the device pixel ratio, treating unset or invalid as 1.
func (v Viewport) Scale() float64 {
	if v.DPR <= 0 || math.IsNaN(v.DPR) || math.IsInf(v.DPR, 0) {
		return 1
	}
	return v.DPR
}

// BackingSize returns the physical pixel size of the backing store.
func (v Viewport) BackingSize() (w, h int) {
	s := v.Scale()
	return int(math.Ceil(v.CSSW * s)), int(math.Ceil(v.CSSH * s))
}

// Bounds returns the whole surface.
func (v Viewport) Bounds() Rect {
	return Rect{W: v.CSSW, H: v.CSSH}
}

// Degenerate reports whether the surface is too small to draw into.
func (v Viewport) Degenerate() bool {
	return v.Bounds().Degenerate()
}

// PlotRect returns the area inside the axis margins.
func (v Viewport) PlotRect() Rect {
	return Rect{
		X: config.PlotMarginLeft,
		Y: config.PlotMarginTop,
		W: v.CSSW - config.PlotMarginLeft - config.PlotMarginRight,
		H: v.CSSH - config.PlotMarginTop - config.PlotMarginBottom,
	}
}

// View is the inclusive range of grid indices shown on the x axis.
type View struct {
	Lo, Hi int
}

// FullView shows the whole grid.
func FullView() View {
	return View{Lo: 0, Hi: grid.Count - 1}
}

const minViewSpan = 8

// Zoom narrows (factor < 1) or widens (factor > 1) the view around index
// center, keeping it inside the grid.
func (v View) Zoom(center int, factor float64) View {
	span := int(math.Round(float64(v.Hi-v.Lo) * factor))
	span = max(minViewSpan, min(grid.Count-1, span))
	lo := center - span/2
	return View{Lo: lo, Hi: lo + span}.clamp()
}

// Pan shifts the view by delta indices.
func (v View) Pan(delta int) View {
	return View{Lo: v.Lo + delta, Hi: v.Hi + delta}.clamp()
}

func (v View) clamp() View {
	span := v.Hi - v.Lo
	if v.Lo < 0 {
		v.Lo, v.Hi = 0, span
	}
	if v.Hi > grid.Count-1 {
		v.Lo, v.Hi = grid.Count-1-span, grid.Count-1
	}
	return v
}

// Mapper converts between (index, timing) and logical pixels for one plot.
type Mapper struct {
	Plot Rect
	Cap  float64
	View View
}

// NewMapper returns a mapper for the plot rect. ok is false for degenerate
// rects, a non-positive cap or an empty view; callers skip the frame then.
func NewMapper(plot Rect, ceiling float64, view View) (Mapper, bool) {
	if plot.Degenerate() || !(ceiling > 0) || math.IsInf(ceiling, 0) || view.Hi <= view.Lo {
		return Mapper{}, false
	}
	return Mapper{Plot: plot, Cap: ceiling, View: view}, true
}

func (m Mapper) span() float64 {
	return float64(m.View.Hi - m.View.Lo)
}

// IndexX returns the x position of grid index i.
func (m Mapper) IndexX(i int) float64 {
	return m.Plot.X + m.Plot.W*float64(i-m.View.Lo)/m.span()
}

// ValueY returns the y position of a timing value.
func (m Mapper) ValueY(v float64) float64 {
	return m.Plot.Y + m.Plot.H*(1-v/m.Cap)
}

// ToPixel returns the position of sample i with value v.
func (m Mapper) ToPixel(i int, v float64) (x, y float64) {
	return m.IndexX(i), m.ValueY(v)
}

// ToValue converts a y position to a timing value clamped to [TimingMin, Cap].
func (m Mapper) ToValue(y float64) float64 {
	v := m.Cap * (1 - (y-m.Plot.Y)/m.Plot.H)
	return math.Max(config.TimingMin, math.Min(m.Cap, v))
}

// ToIndex returns the visible grid index nearest to x.
func (m Mapper) ToIndex(x float64) int {
	i := m.View.Lo + int(math.Round((x-m.Plot.X)/m.Plot.W*m.span()))
	return max(m.View.Lo, min(m.View.Hi, i))
}

// RPMX returns the x position of an arbitrary RPM.
func (m Mapper) RPMX(rpm float64) float64 {
	pos := (rpm - config.RPMMin) / config.RPMStep
	return m.Plot.X + m.Plot.W*(pos-float64(m.View.Lo))/m.span()
}

// Visible reports whether index i is inside the view.
func (m Mapper) Visible(i int) bool {
	return i >= m.View.Lo && i <= m.View.Hi
}

// PointerKind is the input device behind a pointer event.
type PointerKind int

const (
	PointerMouse PointerKind = iota
	PointerPen
	PointerTouch
)

// HitRadius returns the pick tolerance for the pointer kind.
func (k PointerKind) HitRadius() float64 {
	if k == PointerTouch {
		return config.HitRadiusTouch
	}
	return config.HitRadiusMouse
}

// HitTest returns the editable sample of mp closest to (x, y) within the
// pointer's hit radius. Locked samples are never returned.
func (m Mapper) HitTest(mp *curve.Map, x, y float64, kind PointerKind) (int, bool) {
	best, bestDist := -1, kind.HitRadius()
	for i := m.View.Lo; i <= m.View.Hi; i++ {
		if mp.Locked(i) {
			continue
		}
		px, py := m.ToPixel(i, mp.Curve[i])
		if d := math.Hypot(px-x, py-y); d <= bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}
