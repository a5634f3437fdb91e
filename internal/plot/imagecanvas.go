package plot

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

const circleSegments = 24

// ImageCanvas draws into an RGBA backing store of Viewport.BackingSize()
// physical pixels. Every call takes logical pixels and is scaled by the
// device pixel ratio.
type ImageCanvas struct {
	img   *image.NRGBA
	z     *vector.Rasterizer
	scale float64
}

// NewImageCanvas creates an empty canvas; call Fit before drawing.
func NewImageCanvas() *ImageCanvas {
	return &ImageCanvas{scale: 1}
}

// Fit reallocates the backing store when the viewport size changed.
func (c *ImageCanvas) Fit(v Viewport) bool {
	if v.Degenerate() {
		return false
	}
	w, h := v.BackingSize()
	if c.img == nil || c.img.Bounds().Dx() != w || c.img.Bounds().Dy() != h {
		c.img = imaging.New(w, h, color.Black)
		c.z = vector.NewRasterizer(w, h)
	}
	c.scale = v.Scale()
	return true
}

// Image returns the backing store.
func (c *ImageCanvas) Image() *image.NRGBA {
	return c.img
}

// Clear fills the backing store.
func (c *ImageCanvas) Clear(col color.Color) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{}, draw.Src)
}

// FillRect composites a rectangle over the backing store.
func (c *ImageCanvas) FillRect(r Rect, col color.Color) {
	s := c.scale
	rect := image.Rect(
		int(math.Floor(r.X*s)), int(math.Floor(r.Y*s)),
		int(math.Ceil(r.Right()*s)), int(math.Ceil(r.Bottom()*s)),
	).Intersect(c.img.Bounds())
	draw.Draw(c.img, rect, image.NewUniform(col), image.Point{}, draw.Over)
}

func (c *ImageCanvas) fill(col color.Color) {
	c.z.DrawOp = draw.Over
	c.z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

// Line strokes a segment as a filled quad.
func (c *ImageCanvas) Line(x0, y0, x1, y1, width float64, col color.Color) {
	s := c.scale
	dx, dy := x1-x0, y1-y0
	n := math.Hypot(dx, dy)
	if n == 0 {
		return
	}
	hw := math.Max(width*s, 1) / 2
	nx, ny := -dy/n*hw, dx/n*hw

	b := c.img.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
	c.z.MoveTo(float32(x0*s+nx), float32(y0*s+ny))
	c.z.LineTo(float32(x1*s+nx), float32(y1*s+ny))
	c.z.LineTo(float32(x1*s-nx), float32(y1*s-ny))
	c.z.LineTo(float32(x0*s-nx), float32(y0*s-ny))
	c.z.ClosePath()
	c.fill(col)
}

// Circle fills a disc.
func (c *ImageCanvas) Circle(x, y, r float64, col color.Color) {
	s := c.scale
	cx, cy, rr := x*s, y*s, r*s
	b := c.img.Bounds()
	c.z.Reset(b.Dx(), b.Dy())
	for i := 0; i <= circleSegments; i++ {
		a := 2 * math.Pi * float64(i) / circleSegments
		px, py := float32(cx+rr*math.Cos(a)), float32(cy+rr*math.Sin(a))
		if i == 0 {
			c.z.MoveTo(px, py)
			continue
		}
		c.z.LineTo(px, py)
	}
	c.z.ClosePath()
	c.fill(col)
}

// Text draws s with the 7x13 bitmap face, scaled up by the pixel ratio
// (and doubled for large text).
func (c *ImageCanvas) Text(x, y float64, s string, st TextStyle) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	h := face.Height
	if w <= 0 {
		return
	}

	glyphs := imaging.New(w, h, color.Transparent)
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(st.Color),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	mult := c.scale
	if st.Large {
		mult *= 2
	}
	k := max(1, int(math.Round(mult)))
	if k > 1 {
		glyphs = imaging.Resize(glyphs, w*k, h*k, imaging.NearestNeighbor)
	}

	tw, th := glyphs.Bounds().Dx(), glyphs.Bounds().Dy()
	left := int(math.Round(x * c.scale))
	switch st.Align {
	case AlignCenter:
		left -= tw / 2
	case AlignRight:
		left -= tw
	}
	top := int(math.Round(y*c.scale)) - th/2
	dst := image.Rect(left, top, left+tw, top+th)
	draw.Draw(c.img, dst, glyphs, image.Point{}, draw.Over)
}

// EncodePNG writes the backing store as PNG.
func (c *ImageCanvas) EncodePNG(w io.Writer) error {
	return imaging.Encode(w, c.img, imaging.PNG)
}

// Save writes the backing store to path; the format follows the extension.
func (c *ImageCanvas) Save(path string) error {
	return imaging.Save(c.img, path)
}
