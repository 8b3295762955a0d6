package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

// rasterizer fills polygons into an RGBA surface. Each fill rasterizes only
// the bounding box of the clipped path, so cost scales with shape size and
// not surface size.
type rasterizer struct {
	z *vector.Rasterizer
}

func newRasterizer() *rasterizer {
	return &rasterizer{z: vector.NewRasterizer(0, 0)}
}

// fill composites col over dst inside the union of paths (nonzero winding,
// so a reversed inner path cuts a hole). Coordinates are physical pixels.
func (r *rasterizer) fill(dst *image.RGBA, col color.Color, paths ...[]r2.Vec) {
	bounds := dst.Bounds()
	if bounds.Empty() {
		return
	}
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	clipped := make([][]r2.Vec, 0, len(paths))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range paths {
		c := clipPolygon(p, w, h)
		if len(c) < 3 {
			continue
		}
		for _, v := range c {
			minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
			minY, maxY = math.Min(minY, v.Y), math.Max(maxY, v.Y)
		}
		clipped = append(clipped, c)
	}
	if len(clipped) == 0 {
		return
	}

	box := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(bounds)
	if box.Empty() {
		return
	}

	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	r.z.Reset(box.Dx(), box.Dy())
	for _, c := range clipped {
		r.z.MoveTo(float32(c[0].X-ox), float32(c[0].Y-oy))
		for _, v := range c[1:] {
			r.z.LineTo(float32(v.X-ox), float32(v.Y-oy))
		}
		r.z.ClosePath()
	}
	r.z.Draw(dst, box, image.NewUniform(col), image.Point{})
}

// segment returns the quad covering a line of the given width from a to b
func segment(a, b r2.Vec, width float64) []r2.Vec {
	d := r2.Sub(b, a)
	l := r2.Norm(d)
	if l == 0 {
		return nil
	}
	n := r2.Scale(width/2/l, r2.Vec{X: -d.Y, Y: d.X})
	return []r2.Vec{
		r2.Add(a, n),
		r2.Add(b, n),
		r2.Sub(b, n),
		r2.Sub(a, n),
	}
}

// reversed returns a copy of p with its winding flipped
func reversed(p []r2.Vec) []r2.Vec {
	out := make([]r2.Vec, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// scaled multiplies every vertex by k
func scaled(p []r2.Vec, k float64) []r2.Vec {
	out := make([]r2.Vec, len(p))
	for i, v := range p {
		out[i] = r2.Scale(k, v)
	}
	return out
}

// clipPolygon clips p to the rectangle [0,w]x[0,h] (Sutherland-Hodgman)
func clipPolygon(p []r2.Vec, w, h float64) []r2.Vec {
	planes := []struct {
		inside func(r2.Vec) bool
		cross  func(a, b r2.Vec) r2.Vec
	}{
		{
			inside: func(v r2.Vec) bool { return v.X >= 0 },
			cross:  func(a, b r2.Vec) r2.Vec { return lerpAtX(a, b, 0) },
		},
		{
			inside: func(v r2.Vec) bool { return v.X <= w },
			cross:  func(a, b r2.Vec) r2.Vec { return lerpAtX(a, b, w) },
		},
		{
			inside: func(v r2.Vec) bool { return v.Y >= 0 },
			cross:  func(a, b r2.Vec) r2.Vec { return lerpAtY(a, b, 0) },
		},
		{
			inside: func(v r2.Vec) bool { return v.Y <= h },
			cross:  func(a, b r2.Vec) r2.Vec { return lerpAtY(a, b, h) },
		},
	}

	out := p
	for _, plane := range planes {
		if len(out) == 0 {
			return nil
		}
		in := out
		out = make([]r2.Vec, 0, len(in)+4)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case plane.inside(cur):
				if !plane.inside(prev) {
					out = append(out, plane.cross(prev, cur))
				}
				out = append(out, cur)
			case plane.inside(prev):
				out = append(out, plane.cross(prev, cur))
			}
			prev = cur
		}
	}
	return out
}

func lerpAtX(a, b r2.Vec, x float64) r2.Vec {
	t := (x - a.X) / (b.X - a.X)
	return r2.Vec{X: x, Y: a.Y + t*(b.Y-a.Y)}
}

func lerpAtY(a, b r2.Vec, y float64) r2.Vec {
	t := (y - a.Y) / (b.Y - a.Y)
	return r2.Vec{X: a.X + t*(b.X-a.X), Y: y}
}
