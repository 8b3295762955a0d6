// Package models provides data structures shared across relmap.
// It defines the graph model that callers hand to the layout engine and the
// snapshot shape the engine hands back.
package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// DefaultNodeSize is used when a node arrives without a positive size
const DefaultNodeSize = 28.0

var (
	// ErrDuplicateNodeID is returned when a graph lists the same node identifier twice
	ErrDuplicateNodeID = errors.New("duplicate node id")

	// ErrEntityNotFound is returned by resolvers when the requested entity does not exist
	ErrEntityNotFound = errors.New("entity not found")

	// ErrUnknownShape is returned when a shape name is outside the supported set
	ErrUnknownShape = errors.New("unknown shape")
)

// Shape is the kind of glyph a node is drawn with
type Shape string

// Supported shapes
const (
	ShapeDisk     Shape = "disk"
	ShapeSquare   Shape = "square"
	ShapeTriangle Shape = "triangle"
)

// ParseShape converts a shape name into a Shape. "circle" is accepted as disk.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disk", "circle", "":
		return ShapeDisk, nil
	case "square":
		return ShapeSquare, nil
	case "triangle":
		return ShapeTriangle, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownShape, s)
	}
}

// Valid reports whether the shape is one of the supported kinds
func (s Shape) Valid() bool {
	switch s {
	case ShapeDisk, ShapeSquare, ShapeTriangle:
		return true
	}
	return false
}

// Node represents a node in the input graph
type Node struct {
	ID    string  `json:"id"`
	Shape Shape   `json:"shape"`
	Size  float64 `json:"size"`
	Label string  `json:"label"`
	Hint  *r2.Vec `json:"-"` // Initial position for nodes the engine has not seen yet
}

// Edge represents a directed association between two nodes
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph represents a collection of nodes and edges supplied by the caller
type Graph struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	CreatedAt time.Time `json:"created_at"`
}

// NodeSnapshot is the position record emitted after a drag completes
type NodeSnapshot struct {
	ID    string  `json:"id"`
	Shape Shape   `json:"shape"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Label string  `json:"label"`
}

// Position returns the snapshot coordinates as a vector
func (s NodeSnapshot) Position() r2.Vec {
	return r2.Vec{X: s.X, Y: s.Y}
}

// Hints converts a snapshot into a hint table keyed by node ID
func Hints(snapshot []NodeSnapshot) map[string]r2.Vec {
	hints := make(map[string]r2.Vec, len(snapshot))
	for _, s := range snapshot {
		hints[s.ID] = s.Position()
	}
	return hints
}

// Request selects the entity and the relation types to resolve
type Request struct {
	EntityID string            `json:"entity_id"`
	Teams    bool              `json:"teams"`
	Repos    bool              `json:"repos"`
	Center   r2.Vec            `json:"-"` // Anchor for the focal node when it has no hint
	Hints    map[string]r2.Vec `json:"-"` // Last known positions, keyed by node ID
}

// GraphResolver resolves an entity identifier into a graph of related entities
type GraphResolver interface {
	ResolveGraph(ctx context.Context, req Request) (*Graph, error)
}
