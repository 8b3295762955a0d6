package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/config"
	"github.com/TFMV/relmap/directory"
	"github.com/TFMV/relmap/models"
)

type resolverFunc func(ctx context.Context, req models.Request) (*models.Graph, error)

func (f resolverFunc) ResolveGraph(ctx context.Context, req models.Request) (*models.Graph, error) {
	return f(ctx, req)
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(config.Default(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return e
}

func pair(a, b string) *models.Graph {
	g := models.NewGraph("pair")
	g.AddNode(models.NewNode(a, models.ShapeDisk, 28, a).WithHint(100, 100))
	g.AddNode(models.NewNode(b, models.ShapeSquare, 28, b).WithHint(300, 300))
	g.AddEdge(a, b)
	return g
}

func TestReconcile_StaleGenerationIgnored(t *testing.T) {
	e := newEngine(t)

	first := e.Begin()
	second := e.Begin()

	applied, err := e.Reconcile(first, pair("a", "b"))
	if err != nil || applied {
		t.Fatalf("stale Reconcile() = %v, %v; want false, nil", applied, err)
	}
	if e.Store().Len() != 0 {
		t.Fatalf("stale graph reached the store: %d nodes", e.Store().Len())
	}

	applied, err = e.Reconcile(second, pair("c", "d"))
	if err != nil || !applied {
		t.Fatalf("Reconcile() = %v, %v; want true, nil", applied, err)
	}
	if _, ok := e.Store().Node("c"); !ok {
		t.Error("latest graph not applied")
	}
	if e.Generation() != second {
		t.Errorf("Generation() = %d, want %d", e.Generation(), second)
	}

	// A late arrival of the first request still loses
	if applied, _ := e.Reconcile(first, pair("a", "b")); applied {
		t.Error("late stale graph applied")
	}
}

func TestReconcile_ReheatsAndRecenters(t *testing.T) {
	e := newEngine(t)
	if e.Active() {
		t.Fatal("fresh engine should be idle")
	}

	if _, err := e.Reconcile(e.Begin(), pair("a", "b")); err != nil {
		t.Fatal(err)
	}
	if e.Alpha() != 0.8 {
		t.Errorf("alpha = %g, want 0.8 after reconcile", e.Alpha())
	}
	if !e.Active() {
		t.Error("engine should be active after reconcile")
	}
}

func TestReconcile_InvalidGraphKeepsStore(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Reconcile(e.Begin(), pair("a", "b")); err != nil {
		t.Fatal(err)
	}
	gen := e.Generation()

	bad := models.NewGraph("dup")
	bad.AddNode(models.NewNode("x", models.ShapeDisk, 10, ""))
	bad.AddNode(models.NewNode("x", models.ShapeDisk, 10, ""))

	applied, err := e.Reconcile(e.Begin(), bad)
	if !errors.Is(err, models.ErrDuplicateNodeID) {
		t.Fatalf("Reconcile() error = %v, want ErrDuplicateNodeID", err)
	}
	if applied {
		t.Error("invalid graph reported as applied")
	}
	if e.Store().Len() != 2 {
		t.Errorf("store has %d nodes, want 2", e.Store().Len())
	}
	if e.Generation() != gen {
		t.Errorf("Generation() = %d, want %d", e.Generation(), gen)
	}
}

func TestRefresh_FailureKeepsStore(t *testing.T) {
	e := newEngine(t)
	ok := resolverFunc(func(ctx context.Context, req models.Request) (*models.Graph, error) {
		return pair("a", "b"), nil
	})
	missing := resolverFunc(func(ctx context.Context, req models.Request) (*models.Graph, error) {
		return nil, models.ErrEntityNotFound
	})

	if _, err := e.Refresh(context.Background(), ok, e.Request("a", false, false)); err != nil {
		t.Fatal(err)
	}
	before := e.Snapshot()

	applied, err := e.Refresh(context.Background(), missing, e.Request("zzz", true, true))
	if !errors.Is(err, models.ErrEntityNotFound) {
		t.Fatalf("Refresh() error = %v, want ErrEntityNotFound", err)
	}
	if applied {
		t.Error("failed refresh reported as applied")
	}

	after := e.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("store changed size: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("node %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestRefresh_NilGraphKeepsStore(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Reconcile(e.Begin(), pair("a", "b")); err != nil {
		t.Fatal(err)
	}
	gen := e.Generation()

	empty := resolverFunc(func(ctx context.Context, req models.Request) (*models.Graph, error) {
		return nil, nil
	})
	applied, err := e.Refresh(context.Background(), empty, e.Request("a", true, true))
	if !errors.Is(err, models.ErrEntityNotFound) {
		t.Fatalf("Refresh() error = %v, want ErrEntityNotFound", err)
	}
	if applied {
		t.Error("nil graph reported as applied")
	}
	if e.Store().Len() != 2 || len(e.Store().Links()) != 1 {
		t.Errorf("store = %d nodes, %d links; want 2, 1", e.Store().Len(), len(e.Store().Links()))
	}
	if e.Generation() != gen {
		t.Errorf("Generation() = %d, want %d", e.Generation(), gen)
	}
}

func TestReconcile_SameGraphTwiceKeepsPositions(t *testing.T) {
	e := newEngine(t)
	g := pair("a", "b")
	if _, err := e.Reconcile(e.Begin(), g); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Settle(context.Background(), 40); err != nil {
		t.Fatal(err)
	}
	before := e.Snapshot()

	if _, err := e.Reconcile(e.Begin(), g); err != nil {
		t.Fatal(err)
	}
	after := e.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("store changed size: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("node %s changed: %+v -> %+v", before[i].ID, before[i], after[i])
		}
	}
}

func TestSettle_FocalWithTwoRepos(t *testing.T) {
	e := newEngine(t)
	center := e.Center()

	g := models.NewGraph("p")
	g.AddNode(models.NewNode("p", models.ShapeDisk, directory.FocalSize, "p").WithHint(center.X, center.Y))
	for i, id := range []string{"r1", "r2"} {
		slot := directory.RingSlot(center, directory.RepoRadius, i, 2)
		g.AddNode(models.NewNode(id, models.ShapeSquare, directory.RingSize, id).WithHint(slot.X, slot.Y))
		g.AddEdge("p", id)
	}
	if _, err := e.Reconcile(e.Begin(), g); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Settle(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	if e.Active() {
		t.Fatal("layout should come to rest")
	}

	dist := func(a, b string) float64 {
		na, _ := e.Store().Node(a)
		nb, _ := e.Store().Node(b)
		return r2.Norm(r2.Sub(na.Position(), nb.Position()))
	}
	rest := (directory.FocalSize + directory.RingSize) * config.Default().Physics.LinkDistanceFactor
	for _, id := range []string{"r1", "r2"} {
		if d := dist("p", id); d < rest || math.IsNaN(d) {
			t.Errorf("distance p-%s = %.1f, want at least %.1f", id, d, rest)
		}
	}
	if d := dist("r1", "r2"); d < directory.RingSize {
		t.Errorf("distance r1-r2 = %.1f, want at least %g", d, float64(directory.RingSize))
	}
}

func TestRequest_CarriesHintsAndCenter(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Reconcile(e.Begin(), pair("a", "b")); err != nil {
		t.Fatal(err)
	}

	req := e.Request("a", true, false)
	if req.Center != (r2.Vec{X: 510, Y: 400}) {
		t.Errorf("center = %v, want canvas center", req.Center)
	}
	if h := req.Hints["b"]; h != (r2.Vec{X: 300, Y: 300}) {
		t.Errorf("hint for b = %v", h)
	}
}

func TestRefresh_WithDirectoryPreservesPositions(t *testing.T) {
	e := newEngine(t)
	fixture, err := directory.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	dir := directory.New(fixture, 0)
	ctx := context.Background()

	if _, err := e.Refresh(ctx, dir, e.Request("u1", false, true)); err != nil {
		t.Fatal(err)
	}
	if e.Store().Len() != 4 {
		t.Fatalf("store has %d nodes, want person plus three repos", e.Store().Len())
	}
	if _, err := e.Settle(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if e.Active() {
		t.Error("layout should come to rest")
	}

	r1, _ := e.Store().Node("r1")
	settled := r1.Position()

	// Toggling teams on keeps the repositories where they came to rest
	if _, err := e.Refresh(ctx, dir, e.Request("u1", true, true)); err != nil {
		t.Fatal(err)
	}
	if e.Store().Len() != 6 {
		t.Fatalf("store has %d nodes, want 6", e.Store().Len())
	}
	r1, _ = e.Store().Node("r1")
	if r1.Position() != settled {
		t.Errorf("r1 moved from %v to %v on reconcile", settled, r1.Position())
	}
}

func TestDragFlow(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Reconcile(e.Begin(), pair("a", "b")); err != nil {
		t.Fatal(err)
	}

	var released [][]models.NodeSnapshot
	e.OnDragEnd(func(s []models.NodeSnapshot) {
		released = append(released, s)
	})

	if !e.PointerDown(r2.Vec{X: 100, Y: 100}) {
		t.Fatal("PointerDown on node a should grab it")
	}
	if d, ok := e.Dragging(); !ok || d.NodeID != "a" {
		t.Fatalf("Dragging() = %+v, %v", d, ok)
	}

	e.PointerMove(r2.Vec{X: 150, Y: 120})
	e.Tick()

	a, _ := e.Store().Node("a")
	if a.X != 150 || a.Y != 120 {
		t.Errorf("dragged node at (%g, %g), want (150, 120)", a.X, a.Y)
	}

	e.PointerUp()
	if _, ok := e.Dragging(); ok {
		t.Error("drag should end on pointer up")
	}
	if a.Pinned || a.VX != 0 || a.VY != 0 {
		t.Errorf("released node = %+v, want unpinned and at rest", *a)
	}
	if len(released) != 1 {
		t.Fatalf("drag end callback fired %d times, want 1", len(released))
	}
	if snap := released[0]; len(snap) != 2 || snap[0].ID != "a" || snap[0].X != 150 || snap[0].Y != 120 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestReconcile_CancelsDragOfRemovedNode(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Reconcile(e.Begin(), pair("a", "b")); err != nil {
		t.Fatal(err)
	}
	if !e.PointerDown(r2.Vec{X: 100, Y: 100}) {
		t.Fatal("expected grab")
	}

	if _, err := e.Reconcile(e.Begin(), pair("c", "b")); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Dragging(); ok {
		t.Error("drag of removed node should be cancelled")
	}
}

func TestRenderAndResize(t *testing.T) {
	e := newEngine(t)

	img, err := e.Render()
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1020 || b.Dy() != 800 {
		t.Errorf("surface = %v, want 1020x800", b)
	}
	if e.Dirty() {
		t.Error("engine should be clean after render")
	}

	img, err = e.Resize(300, 200, 2)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 600 || b.Dy() != 400 {
		t.Errorf("surface = %v, want 600x400", b)
	}
	if c := e.Center(); c != (r2.Vec{X: 150, Y: 100}) {
		t.Errorf("center = %v after resize", c)
	}
}
