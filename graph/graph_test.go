package graph

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/models"
)

var origin = r2.Vec{X: 500, Y: 400}

func testGraph(ids ...string) *models.Graph {
	g := models.NewGraph("test")
	for _, id := range ids {
		g.AddNode(models.NewNode(id, models.ShapeDisk, 20, id))
	}
	return g
}

func TestReconcile_NewNodes(t *testing.T) {
	s := NewStore()
	g := testGraph("a", "b")
	g.Nodes[1] = g.Nodes[1].WithHint(10, 20)
	g.AddEdge("a", "b")

	stats, err := s.Reconcile(g, origin)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Added != 2 || stats.Kept != 0 || stats.Removed != 0 || stats.Links != 1 {
		t.Errorf("stats = %+v", stats)
	}

	a, _ := s.Node("a")
	if a.Position() != origin {
		t.Errorf("unhinted node at %v, want fallback %v", a.Position(), origin)
	}
	b, _ := s.Node("b")
	if b.X != 10 || b.Y != 20 {
		t.Errorf("hinted node at %v", b.Position())
	}
	if l := s.Links()[0]; l.Source != a || l.Target != b {
		t.Error("link does not reference the store records")
	}
}

func TestReconcile_PreservesState(t *testing.T) {
	s := NewStore()
	if _, err := s.Reconcile(testGraph("a", "b"), origin); err != nil {
		t.Fatal(err)
	}
	a, _ := s.Node("a")
	a.X, a.Y, a.VX, a.VY = 1, 2, 3, 4
	a.Pin(5, 6)

	next := testGraph("c", "a")
	next.Nodes[1].Label = "renamed"
	next.Nodes[1] = next.Nodes[1].WithHint(900, 900)
	stats, err := s.Reconcile(next, origin)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Added != 1 || stats.Kept != 1 || stats.Removed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	kept, ok := s.Node("a")
	if !ok || kept != a {
		t.Fatal("kept node should be the same record")
	}
	if kept.X != 1 || kept.Y != 2 || kept.VX != 3 || kept.VY != 4 {
		t.Errorf("kept node state changed: %+v", kept)
	}
	if !kept.Pinned || kept.FX != 5 || kept.FY != 6 {
		t.Errorf("pin lost: %+v", kept)
	}
	if kept.Label != "renamed" {
		t.Errorf("label not refreshed: %q", kept.Label)
	}
	if _, ok := s.Node("b"); ok {
		t.Error("removed node still in store")
	}

	// Order follows the latest graph
	if s.Nodes()[0].ID != "c" || s.Nodes()[1].ID != "a" {
		t.Errorf("order = %s, %s", s.Nodes()[0].ID, s.Nodes()[1].ID)
	}
}

func TestReconcile_DropsDanglingEdges(t *testing.T) {
	s := NewStore()
	g := testGraph("a", "b")
	g.AddEdge("a", "b")
	g.AddEdge("a", "ghost")
	g.AddEdge("ghost", "b")

	stats, err := s.Reconcile(g, origin)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Links != 1 || stats.DroppedEdges != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if len(s.Links()) != 1 {
		t.Errorf("links = %d", len(s.Links()))
	}
}

func TestReconcile_InvalidLeavesStoreUnchanged(t *testing.T) {
	s := NewStore()
	g := testGraph("a", "b")
	g.AddEdge("a", "b")
	if _, err := s.Reconcile(g, origin); err != nil {
		t.Fatal(err)
	}

	bad := testGraph("x", "x")
	_, err := s.Reconcile(bad, origin)
	if !errors.Is(err, models.ErrDuplicateNodeID) {
		t.Fatalf("err = %v, want ErrDuplicateNodeID", err)
	}
	if s.Len() != 2 || len(s.Links()) != 1 {
		t.Errorf("store changed: %d nodes, %d links", s.Len(), len(s.Links()))
	}
	if _, ok := s.Node("a"); !ok {
		t.Error("node a lost")
	}
}

func TestReconcile_Empty(t *testing.T) {
	s := NewStore()
	if _, err := s.Reconcile(testGraph("a"), origin); err != nil {
		t.Fatal(err)
	}
	stats, err := s.Reconcile(nil, origin)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Removed != 1 || s.Len() != 0 {
		t.Errorf("stats = %+v, len = %d", stats, s.Len())
	}
}

func TestCentroidAndSnapshot(t *testing.T) {
	s := NewStore()
	if c := s.Centroid(); c != (r2.Vec{}) {
		t.Errorf("empty centroid = %v", c)
	}

	g := testGraph("a", "b")
	g.Nodes[0] = g.Nodes[0].WithHint(0, 0)
	g.Nodes[1] = g.Nodes[1].WithHint(10, 20)
	if _, err := s.Reconcile(g, origin); err != nil {
		t.Fatal(err)
	}
	if c := s.Centroid(); c.X != 5 || c.Y != 10 {
		t.Errorf("centroid = %v", c)
	}

	snap := s.Snapshot()
	if len(snap) != 2 || snap[1].ID != "b" || snap[1].X != 10 || snap[1].Label != "b" {
		t.Errorf("snapshot = %+v", snap)
	}
	snap[0].X = 99
	if a, _ := s.Node("a"); a.X == 99 {
		t.Error("snapshot aliases the store")
	}
}

func TestUnpin(t *testing.T) {
	n := &Node{VX: 1, VY: 1}
	n.Pin(3, 4)
	n.Unpin()
	if n.Pinned || n.VX != 0 || n.VY != 0 {
		t.Errorf("after Unpin: %+v", n)
	}
}

func TestTriangleVertices(t *testing.T) {
	c := r2.Vec{X: 100, Y: 100}
	a, l, r := TriangleVertices(c, 30)

	centroid := r2.Scale(1.0/3, r2.Add(a, r2.Add(l, r)))
	if math.Abs(centroid.X-c.X) > 1e-9 || math.Abs(centroid.Y-c.Y) > 1e-9 {
		t.Errorf("centroid = %v, want %v", centroid, c)
	}
	for _, side := range []float64{r2.Norm(r2.Sub(a, l)), r2.Norm(r2.Sub(l, r)), r2.Norm(r2.Sub(r, a))} {
		if math.Abs(side-30) > 1e-9 {
			t.Errorf("side = %v, want 30", side)
		}
	}
	if a.Y >= l.Y {
		t.Error("apex should point up")
	}
}

func TestOutline(t *testing.T) {
	sq := &Node{Shape: models.ShapeSquare, Size: 20, X: 50, Y: 50}
	pts := sq.Outline(0)
	if len(pts) != 4 || pts[0] != (r2.Vec{X: 40, Y: 40}) || pts[2] != (r2.Vec{X: 60, Y: 60}) {
		t.Errorf("square outline = %v", pts)
	}
	if grown := sq.Outline(5); grown[0] != (r2.Vec{X: 35, Y: 35}) {
		t.Errorf("grown square = %v", grown[0])
	}

	disk := &Node{Shape: models.ShapeDisk, Size: 20}
	for _, p := range disk.Outline(1) {
		if math.Abs(r2.Norm(p)-11) > 1e-9 {
			t.Fatalf("disk vertex %v not at radius 11", p)
		}
	}

	tri := &Node{Shape: models.ShapeTriangle, Size: 30}
	base := tri.Outline(0)
	grown := tri.Outline(2)
	if len(base) != 3 || len(grown) != 3 {
		t.Fatalf("triangle outlines = %d, %d vertices", len(base), len(grown))
	}
	if r2.Norm(grown[0]) <= r2.Norm(base[0]) {
		t.Error("grown triangle should be larger")
	}
	// Shrinking past the inradius collapses to the centroid
	for _, p := range tri.Outline(-100) {
		if r2.Norm(p) > 1e-9 {
			t.Errorf("collapsed vertex = %v", p)
		}
	}
}
