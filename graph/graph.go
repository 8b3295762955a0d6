// Package graph holds the simulation state store: the persistent node
// records the layout engine moves around and the links between them.
package graph

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/models"
)

// Node is the persistent simulation record for one input node
type Node struct {
	ID     string
	Shape  models.Shape
	Size   float64
	Label  string
	X, Y   float64 // position in logical canvas coordinates
	VX, VY float64 // velocity used in physics simulation
	FX, FY float64 // pin target, meaningful only while Pinned
	Pinned bool
}

// Radius returns the radius-equivalent of the node's display size
func (n *Node) Radius() float64 {
	return n.Size / 2
}

// Position returns the node position as a vector
func (n *Node) Position() r2.Vec {
	return r2.Vec{X: n.X, Y: n.Y}
}

// Pin fixes the node at (x, y) until Unpin is called
func (n *Node) Pin(x, y float64) {
	n.FX, n.FY = x, y
	n.Pinned = true
}

// Unpin releases the node and clears its velocity
func (n *Node) Unpin() {
	n.FX, n.FY = 0, 0
	n.Pinned = false
	n.VX, n.VY = 0, 0
}

// Link connects two live records of the same store
type Link struct {
	Source *Node
	Target *Node
}

// Store is the authoritative set of simulation records keyed by node ID.
// Nodes keep the order of the most recent reconciliation, which is also the
// draw order. A Store is not safe for concurrent use.
type Store struct {
	nodes []*Node
	index map[string]*Node
	links []Link
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		index: make(map[string]*Node),
	}
}

// Len returns the number of nodes
func (s *Store) Len() int {
	return len(s.nodes)
}

// Nodes returns the records in draw order. The slice must not be modified.
func (s *Store) Nodes() []*Node {
	return s.nodes
}

// Node looks up a record by ID
func (s *Store) Node(id string) (*Node, bool) {
	n, ok := s.index[id]
	return n, ok
}

// Links returns the resolved links in input order. The slice must not be modified.
func (s *Store) Links() []Link {
	return s.links
}

// Centroid returns the mean position of all nodes
func (s *Store) Centroid() r2.Vec {
	if len(s.nodes) == 0 {
		return r2.Vec{}
	}
	var sum r2.Vec
	for _, n := range s.nodes {
		sum = r2.Add(sum, n.Position())
	}
	return r2.Scale(1/float64(len(s.nodes)), sum)
}

// Snapshot copies the current node positions and display attributes
func (s *Store) Snapshot() []models.NodeSnapshot {
	out := make([]models.NodeSnapshot, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, models.NodeSnapshot{
			ID:    n.ID,
			Shape: n.Shape,
			X:     n.X,
			Y:     n.Y,
			Size:  n.Size,
			Label: n.Label,
		})
	}
	return out
}
