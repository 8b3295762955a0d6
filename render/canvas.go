package render

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/graph"
	"github.com/TFMV/relmap/models"
)

// Title position in logical pixels
var titleDot = r2.Vec{X: 12, Y: 24}

// Canvas is the raster surface of the view. It owns its pixels exclusively;
// Render reads the store and never writes to it.
type Canvas struct {
	theme   Theme
	colors  palette
	img     *image.RGBA
	width   float64
	height  float64
	density float64
	raster  *rasterizer
	text    *typesetter
}

// NewCanvas creates an empty canvas drawing with theme
func NewCanvas(theme Theme) (*Canvas, error) {
	text, err := newTypesetter()
	if err != nil {
		return nil, err
	}
	return &Canvas{
		theme:   theme,
		colors:  theme.palette(),
		img:     image.NewRGBA(image.Rectangle{}),
		density: 1,
		raster:  newRasterizer(),
		text:    text,
	}, nil
}

// Image returns the physical-pixel surface of the last render
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// Size returns the logical size and pixel density of the surface
func (c *Canvas) Size() (width, height, density float64) {
	return c.width, c.height, c.density
}

// Resize sets the logical size and density. The backing surface is
// floor(width*density) x floor(height*density) physical pixels.
func (c *Canvas) Resize(width, height, density float64) {
	if density <= 0 {
		density = 1
	}
	width, height = math.Max(width, 0), math.Max(height, 0)
	c.width, c.height, c.density = width, height, density

	pw := int(math.Floor(width * density))
	ph := int(math.Floor(height * density))
	if b := c.img.Bounds(); b.Dx() == pw && b.Dy() == ph {
		return
	}
	c.img = image.NewRGBA(image.Rect(0, 0, pw, ph))
}

// Render resizes the surface and draws s onto it: background, title,
// edges, node shapes, labels. An empty store draws the placeholder message.
func (c *Canvas) Render(s *graph.Store, width, height, density float64) (*image.RGBA, error) {
	c.Resize(width, height, density)

	c.drawBackground()
	if err := c.drawText(c.theme.TitleText, titleDot, c.theme.TitleSize, true, alignLeft, c.colors.title); err != nil {
		return nil, err
	}

	if s == nil || s.Len() == 0 {
		center := r2.Vec{X: c.width / 2, Y: c.height / 2}
		if err := c.drawText(c.theme.PlaceholderText, center, c.theme.PlaceholderSize, false, alignCenter, c.colors.placeholder); err != nil {
			return nil, err
		}
		return c.img, nil
	}

	for _, l := range s.Links() {
		a := r2.Scale(c.density, l.Source.Position())
		b := r2.Scale(c.density, l.Target.Position())
		c.raster.fill(c.img, c.colors.edge, segment(a, b, c.theme.EdgeWidth*c.density))
	}

	for _, n := range s.Nodes() {
		c.drawNode(n)
	}

	for _, n := range s.Nodes() {
		if n.Label == "" {
			continue
		}
		dot := r2.Vec{X: n.X, Y: n.Y + n.Size}
		if err := c.drawText(n.Label, dot, c.theme.LabelSize, false, alignCenter, c.colors.label); err != nil {
			return nil, err
		}
	}

	return c.img, nil
}

// drawNode fills the node's shape and strokes a border centered on its edge
func (c *Canvas) drawNode(n *graph.Node) {
	fill, ok := c.colors.shapes[n.Shape]
	if !ok {
		fill = c.colors.shapes[models.ShapeDisk]
	}
	c.raster.fill(c.img, fill, scaled(n.Outline(0), c.density))

	if bw := c.theme.BorderWidth; bw > 0 {
		outer := scaled(n.Outline(bw/2), c.density)
		inner := reversed(scaled(n.Outline(-bw/2), c.density))
		c.raster.fill(c.img, c.colors.border, outer, inner)
	}
}

// drawText positions text in logical coordinates
func (c *Canvas) drawText(s string, at r2.Vec, size float64, bold bool, a align, col color.Color) error {
	return c.text.draw(c.img, s, r2.Scale(c.density, at), size*c.density, bold, a, col)
}

// drawBackground fills a diagonal gradient from the top-left corner to the
// bottom-right corner
func (c *Canvas) drawBackground() {
	b := c.img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return
	}

	steps := w + h - 1
	ramp := make([][4]uint8, steps)
	top, bottom := c.colors.backgroundTop, c.colors.backgroundBottom
	for i := range ramp {
		t := 0.0
		if steps > 1 {
			t = float64(i) / float64(steps-1)
		}
		ramp[i] = premultiply(lerpColor(top, bottom, t))
	}

	for y := 0; y < h; y++ {
		row := c.img.Pix[y*c.img.Stride:]
		for x := 0; x < w; x++ {
			px := ramp[x+y]
			copy(row[4*x:4*x+4], px[:])
		}
	}
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

func premultiply(c color.NRGBA) [4]uint8 {
	r, g, b, a := c.RGBA()
	return [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}
