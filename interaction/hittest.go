// Package interaction turns pointer events into drag gestures on the
// simulation store.
package interaction

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/graph"
	"github.com/TFMV/relmap/models"
)

// HitTest returns the topmost node whose shape contains p, or nil. Nodes are
// visited in reverse draw order. Containment uses the exact drawn geometry
// of each shape rather than a bounding circle.
func HitTest(s *graph.Store, p r2.Vec) *graph.Node {
	nodes := s.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		if Contains(nodes[i], p) {
			return nodes[i]
		}
	}
	return nil
}

// Contains reports whether p lies inside the shape drawn for n
func Contains(n *graph.Node, p r2.Vec) bool {
	d := r2.Sub(p, n.Position())
	half := n.Size / 2

	switch n.Shape {
	case models.ShapeSquare:
		return math.Abs(d.X) <= half && math.Abs(d.Y) <= half
	case models.ShapeTriangle:
		a, b, c := graph.TriangleVertices(n.Position(), n.Size)
		return inTriangle(p, a, b, c)
	default:
		return r2.Norm2(d) <= half*half
	}
}

// inTriangle uses edge-sign tests; points on an edge count as inside
func inTriangle(p, a, b, c r2.Vec) bool {
	d1 := r2.Cross(r2.Sub(b, a), r2.Sub(p, a))
	d2 := r2.Cross(r2.Sub(c, b), r2.Sub(p, b))
	d3 := r2.Cross(r2.Sub(a, c), r2.Sub(p, c))

	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
