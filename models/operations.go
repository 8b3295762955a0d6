package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"
)

// NewGraph creates a new graph with a unique ID and timestamp
func NewGraph(name string) *Graph {
	return &Graph{
		ID:        uuid.New().String(),
		Name:      name,
		Nodes:     []Node{},
		Edges:     []Edge{},
		CreatedAt: time.Now(),
	}
}

// NewNode creates a node with the given shape and size
func NewNode(id string, shape Shape, size float64, label string) Node {
	return Node{
		ID:    id,
		Shape: shape,
		Size:  size,
		Label: label,
	}
}

// WithHint returns a copy of the node carrying an initial position
func (n Node) WithHint(x, y float64) Node {
	n.Hint = &r2.Vec{X: x, Y: y}
	return n
}

// AddNode appends a node to the graph
func (g *Graph) AddNode(node Node) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge appends an edge to the graph. Endpoints are not checked here;
// edges that reference unknown nodes are dropped at reconciliation.
func (g *Graph) AddEdge(source, target string) {
	g.Edges = append(g.Edges, Edge{Source: source, Target: target})
}

// Validate checks identifier uniqueness and normalizes sizes and shapes
func (g *Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for i := range g.Nodes {
		node := &g.Nodes[i]
		if node.ID == "" {
			return fmt.Errorf("node at index %d has an empty id", i)
		}
		if _, dup := seen[node.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, node.ID)
		}
		seen[node.ID] = struct{}{}

		if node.Size <= 0 {
			node.Size = DefaultNodeSize
		}
		if node.Shape == "" {
			node.Shape = ShapeDisk
		}
		if !node.Shape.Valid() {
			return fmt.Errorf("node %s: %w: %q", node.ID, ErrUnknownShape, node.Shape)
		}
	}
	return nil
}
