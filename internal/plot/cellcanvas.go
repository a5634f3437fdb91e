package plot

import (
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"cdi-tuner.klederson.com/internal/config"
)

type cell struct {
	ch   rune
	fg   colorful.Color
	bg   colorful.Color
	bold bool
}

// CellCanvas rasterizes drawing calls onto terminal cells. Each cell covers
// CellWidthPx x CellHeightPx logical pixels.
type CellCanvas struct {
	cols, rows int
	cells      []cell
}

// NewCellCanvas creates an empty canvas; call Fit before drawing.
func NewCellCanvas() *CellCanvas {
	return &CellCanvas{}
}

// Fit resizes the cell grid to the viewport.
func (c *CellCanvas) Fit(v Viewport) bool {
	if v.Degenerate() {
		return false
	}
	cols := int(v.CSSW / config.CellWidthPx)
	rows := int(v.CSSH / config.CellHeightPx)
	if cols != c.cols || rows != c.rows {
		c.cols, c.rows = cols, rows
		c.cells = make([]cell, cols*rows)
	}
	return cols > 0 && rows > 0
}

// Size returns the grid dimensions in cells.
func (c *CellCanvas) Size() (cols, rows int) {
	return c.cols, c.rows
}

func (c *CellCanvas) at(x, y float64) *cell {
	col := int(math.Floor(x / config.CellWidthPx))
	row := int(math.Floor(y / config.CellHeightPx))
	return c.atCell(col, row)
}

func (c *CellCanvas) atCell(col, row int) *cell {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return nil
	}
	return &c.cells[row*c.cols+col]
}

func toColorful(col color.Color) (colorful.Color, float64) {
	n := color.NRGBAModel.Convert(col).(color.NRGBA)
	return colorful.Color{
		R: float64(n.R) / 255,
		G: float64(n.G) / 255,
		B: float64(n.B) / 255,
	}, float64(n.A) / 255
}

// Clear resets every cell to a blank of color col.
func (c *CellCanvas) Clear(col color.Color) {
	bg, _ := toColorful(col)
	for i := range c.cells {
		c.cells[i] = cell{ch: ' ', fg: bg, bg: bg}
	}
}

// FillRect tints the background of every cell whose center lies in r.
func (c *CellCanvas) FillRect(r Rect, col color.Color) {
	fill, alpha := toColorful(col)
	for row := 0; row < c.rows; row++ {
		for cl := 0; cl < c.cols; cl++ {
			x, y := CellCenter(cl, row)
			if !r.Contains(x, y) {
				continue
			}
			ce := c.atCell(cl, row)
			ce.bg = ce.bg.BlendRgb(fill, alpha)
			if ce.ch == ' ' {
				ce.fg = ce.bg
			}
		}
	}
}

// Line plots a line with box-drawing glyphs chosen from its slope.
func (c *CellCanvas) Line(x0, y0, x1, y1, width float64, col color.Color) {
	fg, alpha := toColorful(col)
	ch := lineRune(x1-x0, y1-y0)
	steps := int(math.Ceil(math.Max(math.Abs(x1-x0)/config.CellWidthPx, math.Abs(y1-y0)/config.CellHeightPx)*2)) + 1
	for s := 0; s <= steps; s++ {
		t := float64(s) / float64(steps)
		ce := c.at(x0+(x1-x0)*t, y0+(y1-y0)*t)
		if ce == nil {
			continue
		}
		ce.ch = ch
		ce.fg = ce.bg.BlendRgb(fg, alpha)
		ce.bold = width >= 2
	}
}

// lineRune picks a glyph for a segment direction, correcting for the
// cell aspect ratio.
func lineRune(dx, dy float64) rune {
	dy *= float64(config.CellWidthPx) / config.CellHeightPx
	if dx == 0 && dy == 0 {
		return '·'
	}
	angle := math.Atan2(-dy, dx)
	if angle < 0 {
		angle += math.Pi
	}
	switch sector := int(math.Round(angle/(math.Pi/4))) % 4; sector {
	case 0:
		return '─'
	case 1:
		return '╱'
	case 2:
		return '│'
	default:
		return '╲'
	}
}

// Circle marks the cell under (x, y).
func (c *CellCanvas) Circle(x, y, r float64, col color.Color) {
	ce := c.at(x, y)
	if ce == nil {
		return
	}
	fg, alpha := toColorful(col)
	ce.ch = '●'
	if r < 4 {
		ce.ch = '•'
	}
	ce.fg = ce.bg.BlendRgb(fg, alpha)
	ce.bold = true
}

// Text writes s into one row. Large text is bold and letter-spaced.
func (c *CellCanvas) Text(x, y float64, s string, st TextStyle) {
	if st.Large {
		s = strings.Join(strings.Split(s, ""), " ")
	}
	runes := []rune(s)
	fg, alpha := toColorful(st.Color)

	col := int(math.Floor(x / config.CellWidthPx))
	switch st.Align {
	case AlignCenter:
		col -= len(runes) / 2
	case AlignRight:
		col -= len(runes)
	}
	row := int(math.Floor(y / config.CellHeightPx))
	for i, r := range runes {
		ce := c.atCell(col+i, row)
		if ce == nil {
			continue
		}
		ce.ch = r
		ce.fg = ce.bg.BlendRgb(fg, alpha)
		ce.bold = st.Large
	}
}

// RuneAt returns the glyph in a cell, or 0 outside the grid.
func (c *CellCanvas) RuneAt(col, row int) rune {
	if ce := c.atCell(col, row); ce != nil {
		return ce.ch
	}
	return 0
}

// Row returns the plain glyphs of one row.
func (c *CellCanvas) Row(row int) string {
	if row < 0 || row >= c.rows {
		return ""
	}
	var sb strings.Builder
	for _, ce := range c.cells[row*c.cols : (row+1)*c.cols] {
		sb.WriteRune(ce.ch)
	}
	return sb.String()
}

// String renders the canvas as styled terminal text. Runs of cells with
// the same style share one lipgloss render.
func (c *CellCanvas) String() string {
	var sb strings.Builder
	var run strings.Builder
	for row := 0; row < c.rows; row++ {
		line := c.cells[row*c.cols : (row+1)*c.cols]
		start := 0
		for i := 1; i <= len(line); i++ {
			if i < len(line) && sameStyle(line[i], line[start]) {
				continue
			}
			run.Reset()
			for _, ce := range line[start:i] {
				run.WriteRune(ce.ch)
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(line[start].fg.Hex())).
				Background(lipgloss.Color(line[start].bg.Hex())).
				Bold(line[start].bold)
			sb.WriteString(style.Render(run.String()))
			start = i
		}
		if row < c.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func sameStyle(a, b cell) bool {
	return a.fg.Hex() == b.fg.Hex() && a.bg.Hex() == b.bg.Hex() && a.bold == b.bold
}
