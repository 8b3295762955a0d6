package graph

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/models"
)

// Stats summarizes what a reconciliation changed
type Stats struct {
	Added        int
	Kept         int
	Removed      int
	Links        int
	DroppedEdges int
}

// Reconcile merges g into the store. Records whose ID survives keep their
// position, velocity and pin; display attributes are refreshed. New IDs start
// at their hint, or at fallback when they have none. IDs missing from g are
// discarded. Links are rebuilt from g's edges, skipping any edge whose
// endpoints do not both resolve.
//
// The graph is validated first; on error the store is left unchanged.
func (s *Store) Reconcile(g *models.Graph, fallback r2.Vec) (Stats, error) {
	var stats Stats
	if g == nil {
		g = &models.Graph{}
	}
	if err := g.Validate(); err != nil {
		return stats, fmt.Errorf("reconcile graph %q: %w", g.ID, err)
	}

	nodes := make([]*Node, 0, len(g.Nodes))
	index := make(map[string]*Node, len(g.Nodes))

	for _, in := range g.Nodes {
		if prev, ok := s.index[in.ID]; ok {
			prev.Shape = in.Shape
			prev.Size = in.Size
			prev.Label = in.Label
			nodes = append(nodes, prev)
			index[in.ID] = prev
			stats.Kept++
			continue
		}

		pos := fallback
		if in.Hint != nil {
			pos = *in.Hint
		}
		n := &Node{
			ID:    in.ID,
			Shape: in.Shape,
			Size:  in.Size,
			Label: in.Label,
			X:     pos.X,
			Y:     pos.Y,
		}
		nodes = append(nodes, n)
		index[in.ID] = n
		stats.Added++
	}
	stats.Removed = len(s.nodes) - stats.Kept

	links := make([]Link, 0, len(g.Edges))
	for _, e := range g.Edges {
		src, okSrc := index[e.Source]
		dst, okDst := index[e.Target]
		if !okSrc || !okDst {
			stats.DroppedEdges++
			continue
		}
		links = append(links, Link{Source: src, Target: dst})
	}
	stats.Links = len(links)

	s.nodes = nodes
	s.index = index
	s.links = links
	return stats, nil
}
