package plot

import "image/color"

// Align anchors text horizontally at its x coordinate.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// TextStyle describes how a label is drawn.
type TextStyle struct {
	Color color.Color
	Align Align
	Large bool
}

// Canvas is a drawing surface addressed in logical pixels. Fit must be
// called before every frame; it resizes the backing store to the viewport
// and reports false when the viewport is too small to draw into.
type Canvas interface {
	Fit(v Viewport) bool
	Clear(c color.Color)
	FillRect(r Rect, c color.Color)
	Line(x0, y0, x1, y1, width float64, c color.Color)
	Circle(x, y, r float64, c color.Color)
	// Text draws s vertically centered on y.
	Text(x, y float64, s string, st TextStyle)
}

func withAlpha(c color.Color, a float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(float64(n.A)*a + 0.5)
	return n
}
