package directory

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/models"
)

// Ring layout used for freshly resolved nodes
const (
	FocalSize  = 60.0
	RingSize   = 36.0
	RepoRadius = 120.0
	TeamRadius = 180.0
)

// ring is one concentric band of related entities around the focal node
type ring struct {
	shape  models.Shape
	radius float64
	items  []models.Node
}

// ResolveGraph builds the graph for req: the person as a disk, plus a ring of
// repository squares and a ring of team triangles when requested, each linked
// to the person. Relations are fetched concurrently. Nodes present in
// req.Hints start at their hinted position; the rest take evenly spaced ring
// slots starting straight above the person.
func (d *Directory) ResolveGraph(ctx context.Context, req models.Request) (*models.Graph, error) {
	person, err := d.Person(ctx, req.EntityID)
	if err != nil {
		return nil, err
	}

	var teams []Team
	var repos []Repo
	g, gctx := errgroup.WithContext(ctx)
	if req.Repos {
		g.Go(func() error {
			var err error
			repos, err = d.ReposByPerson(gctx, person.ID)
			return err
		})
	}
	if req.Teams {
		g.Go(func() error {
			var err error
			teams, err = d.TeamsByPerson(gctx, person.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolving relations of %q: %w", person.ID, err)
	}

	// Repositories sit on the inner ring, teams on the outer one
	var rings []ring
	if req.Repos {
		r := ring{shape: models.ShapeSquare, radius: RepoRadius}
		for _, repo := range repos {
			r.items = append(r.items, models.NewNode(repo.ID, r.shape, RingSize, repo.Name))
		}
		rings = append(rings, r)
	}
	if req.Teams {
		r := ring{shape: models.ShapeTriangle, radius: TeamRadius}
		for _, team := range teams {
			r.items = append(r.items, models.NewNode(team.ID, r.shape, RingSize, team.Name))
		}
		rings = append(rings, r)
	}

	out := models.NewGraph(person.Name)
	center := req.Center
	if h, ok := req.Hints[person.ID]; ok {
		center = h
	}
	out.AddNode(models.NewNode(person.ID, models.ShapeDisk, FocalSize, person.Name).WithHint(center.X, center.Y))

	for _, r := range rings {
		n := len(r.items)
		for i, node := range r.items {
			pos, ok := req.Hints[node.ID]
			if !ok {
				pos = RingSlot(center, r.radius, i, n)
			}
			out.AddNode(node.WithHint(pos.X, pos.Y))
			out.AddEdge(person.ID, node.ID)
		}
	}
	return out, nil
}

// RingSlot returns the position of item i of n evenly spaced on a circle of
// the given radius, starting at the top and going clockwise on screen
func RingSlot(center r2.Vec, radius float64, i, n int) r2.Vec {
	theta := -math.Pi/2 + float64(i)*2*math.Pi/float64(n)
	return r2.Vec{
		X: center.X + radius*math.Cos(theta),
		Y: center.Y + radius*math.Sin(theta),
	}
}
