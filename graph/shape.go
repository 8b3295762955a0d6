package graph

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/models"
)

// diskSegments is the polygon resolution used for disks
const diskSegments = 48

// TriangleVertices returns the apex-up equilateral triangle of side size
// whose centroid sits at center: apex, bottom-left, bottom-right.
func TriangleVertices(center r2.Vec, size float64) (r2.Vec, r2.Vec, r2.Vec) {
	h := math.Sqrt(3) / 2 * size
	apex := r2.Vec{X: center.X, Y: center.Y - 2.0/3.0*h}
	left := r2.Vec{X: center.X - size/2, Y: center.Y + h/3}
	right := r2.Vec{X: center.X + size/2, Y: center.Y + h/3}
	return apex, left, right
}

// Outline returns the polygon drawn for the node, grown outward by grow
// (negative values shrink it). Vertices run clockwise in screen coordinates.
func (n *Node) Outline(grow float64) []r2.Vec {
	c := n.Position()
	switch n.Shape {
	case models.ShapeSquare:
		h := math.Max(n.Size/2+grow, 0)
		return []r2.Vec{
			{X: c.X - h, Y: c.Y - h},
			{X: c.X + h, Y: c.Y - h},
			{X: c.X + h, Y: c.Y + h},
			{X: c.X - h, Y: c.Y + h},
		}
	case models.ShapeTriangle:
		// Scale about the centroid so every edge moves by grow
		inradius := n.Size / (2 * math.Sqrt(3))
		k := 0.0
		if inradius > 0 {
			k = math.Max((inradius+grow)/inradius, 0)
		}
		a, l, r := TriangleVertices(c, n.Size)
		scale := func(p r2.Vec) r2.Vec {
			return r2.Add(c, r2.Scale(k, r2.Sub(p, c)))
		}
		return []r2.Vec{scale(a), scale(r), scale(l)}
	default:
		radius := math.Max(n.Size/2+grow, 0)
		pts := make([]r2.Vec, diskSegments)
		for i := range pts {
			theta := 2 * math.Pi * float64(i) / diskSegments
			pts[i] = r2.Vec{
				X: c.X + radius*math.Cos(theta),
				Y: c.Y + radius*math.Sin(theta),
			}
		}
		return pts
	}
}
