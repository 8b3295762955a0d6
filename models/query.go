package models

import (
	"fmt"
)

// FindNodeByID returns a node by its ID
func (g *Graph) FindNodeByID(id string) (*Node, error) {
	for i, node := range g.Nodes {
		if node.ID == id {
			return &g.Nodes[i], nil
		}
	}
	return nil, fmt.Errorf("node with ID %s not found", id)
}

// Neighbors returns the IDs of all nodes directly connected to a node,
// in edge order and without duplicates
func (g *Graph) Neighbors(nodeID string) []string {
	var result []string
	seen := make(map[string]bool)

	for _, edge := range g.Edges {
		var other string
		switch nodeID {
		case edge.Source:
			other = edge.Target
		case edge.Target:
			other = edge.Source
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			result = append(result, other)
		}
	}

	return result
}
