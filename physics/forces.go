package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/graph"
)

// LinkForce treats every link as a spring whose rest length grows with the
// size of its endpoints
type LinkForce struct {
	Strength       float64
	DistanceFactor float64
	jitter         *jitter
	degree         map[*graph.Node]int
}

// Name returns the name of the force
func (f *LinkForce) Name() string {
	return "link"
}

// RestLength returns the spring length for a link
func (f *LinkForce) RestLength(l graph.Link) float64 {
	return (l.Source.Size + l.Target.Size) * f.DistanceFactor
}

// Apply pulls or pushes link endpoints toward the rest length. The correction
// is split so that the endpoint with more links moves less.
func (f *LinkForce) Apply(s *graph.Store, alpha float64) {
	links := s.Links()
	if len(links) == 0 {
		return
	}

	if f.degree == nil {
		f.degree = make(map[*graph.Node]int, s.Len())
	}
	clear(f.degree)
	for _, l := range links {
		f.degree[l.Source]++
		f.degree[l.Target]++
	}

	for _, l := range links {
		src, dst := l.Source, l.Target
		dx := dst.X + dst.VX - src.X - src.VX
		dy := dst.Y + dst.VY - src.Y - src.VY
		if dx == 0 && dy == 0 {
			n := f.jitter.nudge(src.ID, dst.ID)
			dx, dy = n.X, n.Y
		}
		dist := math.Sqrt(dx*dx + dy*dy)
		k := (dist - f.RestLength(l)) / dist * alpha * f.Strength
		dx *= k
		dy *= k

		ds, dt := float64(f.degree[src]), float64(f.degree[dst])
		bias := ds / (ds + dt)

		dst.VX -= dx * bias
		dst.VY -= dy * bias
		src.VX += dx * (1 - bias)
		src.VY += dy * (1 - bias)
	}
}

// ChargeForce makes every pair of nodes repel (negative strength) or attract
// with a magnitude inversely proportional to their distance. Pairs are
// visited exhaustively; graphs stay in the low hundreds of nodes.
type ChargeForce struct {
	Strength    float64
	DistanceMin float64
	jitter      *jitter
}

// Name returns the name of the force
func (f *ChargeForce) Name() string {
	return "charge"
}

// Apply accumulates the pairwise charge into node velocities
func (f *ChargeForce) Apply(s *graph.Store, alpha float64) {
	nodes := s.Nodes()
	minSq := f.DistanceMin * f.DistanceMin

	for i, a := range nodes {
		for j, b := range nodes {
			if i == j {
				continue
			}
			dx := b.X - a.X
			dy := b.Y - a.Y
			if dx == 0 && dy == 0 {
				n := f.jitter.nudge(a.ID, b.ID)
				dx, dy = n.X, n.Y
			}
			l := dx*dx + dy*dy
			if l < minSq {
				l = math.Sqrt(minSq * l)
			}
			w := f.Strength * alpha / l
			a.VX += dx * w
			a.VY += dy * w
		}
	}
}

// CenterForce shifts free nodes so that the centroid drifts toward Center.
// It moves positions directly and does not depend on alpha.
type CenterForce struct {
	Center   r2.Vec
	Strength float64
}

// Name returns the name of the force
func (f *CenterForce) Name() string {
	return "center"
}

// Apply translates every unpinned node by the scaled centroid offset
func (f *CenterForce) Apply(s *graph.Store, _ float64) {
	if s.Len() == 0 || f.Strength == 0 {
		return
	}
	shift := r2.Scale(f.Strength, r2.Sub(f.Center, s.Centroid()))
	for _, n := range s.Nodes() {
		if n.Pinned {
			continue
		}
		n.X += shift.X
		n.Y += shift.Y
	}
}

// Collider separates overlapping nodes by moving them apart along the line
// between their centers. It is a positional correction applied after
// integration; pinned nodes never move, their partner absorbs the full
// displacement.
type Collider struct {
	RadiusFactor float64
	Padding      float64
	Iterations   int
	jitter       *jitter
}

// Radius returns the collision radius of a node
func (c *Collider) Radius(n *graph.Node) float64 {
	return n.Size*c.RadiusFactor + c.Padding
}

// Resolve pushes every overlapping pair apart until they just touch
func (c *Collider) Resolve(s *graph.Store) {
	nodes := s.Nodes()
	iterations := max(c.Iterations, 1)

	for range iterations {
		moved := false
		for i := 0; i < len(nodes); i++ {
			a := nodes[i]
			ra := c.Radius(a)
			for j := i + 1; j < len(nodes); j++ {
				b := nodes[j]
				if a.Pinned && b.Pinned {
					continue
				}
				rb := c.Radius(b)
				r := ra + rb

				dx := b.X - a.X
				dy := b.Y - a.Y
				d2 := dx*dx + dy*dy
				if d2 >= r*r {
					continue
				}

				var ux, uy, d float64
				if d2 == 0 {
					dir := c.jitter.direction(a.ID, b.ID)
					ux, uy = dir.X, dir.Y
				} else {
					d = math.Sqrt(d2)
					ux, uy = dx/d, dy/d
				}
				overlap := r - d

				// Larger nodes give way less
				wa := rb * rb / (ra*ra + rb*rb)
				switch {
				case a.Pinned:
					wa = 0
				case b.Pinned:
					wa = 1
				}
				wb := 1 - wa

				a.X -= ux * overlap * wa
				a.Y -= uy * overlap * wa
				b.X += ux * overlap * wb
				b.Y += uy * overlap * wb
				moved = true
			}
		}
		if !moved {
			return
		}
	}
}
