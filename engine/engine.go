// Package engine ties the layout pieces together: it owns the simulation
// store, the force integrator, the drag controller and the raster canvas,
// and gates incoming graphs with generation tokens so that a slow
// resolution can never overwrite a newer one.
//
// An Engine is not safe for concurrent use. Hosts resolve graphs wherever
// they like but must call Reconcile, Tick, Render and the pointer methods
// from one goroutine.
package engine

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/config"
	"github.com/TFMV/relmap/graph"
	"github.com/TFMV/relmap/interaction"
	"github.com/TFMV/relmap/logging"
	"github.com/TFMV/relmap/models"
	"github.com/TFMV/relmap/physics"
	"github.com/TFMV/relmap/render"
)

// Generation identifies one graph request. Only the most recently issued
// generation may be reconciled.
type Generation uint64

// Engine is the layout engine behind one canvas
type Engine struct {
	logger *slog.Logger
	store  *graph.Store
	sim    *physics.Simulation
	ctrl   *interaction.Controller
	canvas *render.Canvas

	width, height, density float64

	issued  Generation
	applied Generation

	onDragEnd func([]models.NodeSnapshot)
	dirty     bool
}

// New creates an engine with an empty store. A nil logger discards output.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	canvas, err := render.NewCanvas(cfg.Theme)
	if err != nil {
		return nil, fmt.Errorf("creating canvas: %w", err)
	}

	density := cfg.Canvas.Density
	if density <= 0 {
		density = 1
	}
	e := &Engine{
		logger:  logger,
		store:   graph.NewStore(),
		canvas:  canvas,
		width:   cfg.Canvas.Width,
		height:  cfg.Canvas.Height,
		density: density,
		dirty:   true,
	}
	e.sim = physics.New(cfg.Physics, e.Center())
	e.ctrl = interaction.NewController(e.store, e.sim, cfg.Physics.DragAlphaTarget)
	e.ctrl.OnRelease(e.released)
	return e, nil
}

// Center returns the logical canvas center, where new nodes without a hint
// appear and where the centering force pulls
func (e *Engine) Center() r2.Vec {
	return r2.Vec{X: e.width / 2, Y: e.height / 2}
}

// Begin issues a new generation, invalidating every earlier one
func (e *Engine) Begin() Generation {
	e.issued++
	return e.issued
}

// Current reports whether gen is the latest issued generation
func (e *Engine) Current(gen Generation) bool {
	return gen == e.issued
}

// Generation returns the generation of the graph currently in the store
func (e *Engine) Generation() Generation {
	return e.applied
}

// Request builds a resolution request anchored on the canvas center and
// carrying the current positions as hints
func (e *Engine) Request(entityID string, teams, repos bool) models.Request {
	return models.Request{
		EntityID: entityID,
		Teams:    teams,
		Repos:    repos,
		Center:   e.Center(),
		Hints:    models.Hints(e.store.Snapshot()),
	}
}

// Reconcile merges g into the store if gen is still the latest generation.
// It reports whether the graph was applied. A stale generation is dropped
// without error; a nil or invalid graph leaves the store unchanged.
func (e *Engine) Reconcile(gen Generation, g *models.Graph) (bool, error) {
	if !e.Current(gen) {
		e.logger.Debug("discarding stale graph", "generation", gen, "latest", e.issued)
		return false, nil
	}
	if g == nil {
		e.logger.Warn("empty resolution", "generation", gen)
		return false, fmt.Errorf("generation %d resolved to no graph: %w", gen, models.ErrEntityNotFound)
	}

	stats, err := e.store.Reconcile(g, e.Center())
	if err != nil {
		e.logger.Warn("graph rejected", "generation", gen, "error", err)
		return false, err
	}

	// The dragged node may have been reconciled away
	if d, ok := e.ctrl.State(); ok {
		if _, alive := e.store.Node(d.NodeID); !alive {
			e.ctrl.Cancel()
		}
	}

	e.sim.SetCenter(e.Center())
	e.sim.Reheat()
	e.applied = gen
	e.dirty = true

	e.logger.Debug("graph reconciled",
		"generation", gen,
		"added", stats.Added,
		"kept", stats.Kept,
		"removed", stats.Removed,
		"links", stats.Links,
		"dropped_edges", stats.DroppedEdges,
	)
	return true, nil
}

// Refresh resolves req and reconciles the result under a fresh generation.
// On a resolution error the store keeps its previous contents.
func (e *Engine) Refresh(ctx context.Context, resolver models.GraphResolver, req models.Request) (bool, error) {
	gen := e.Begin()
	g, err := resolver.ResolveGraph(ctx, req)
	if err != nil {
		e.logger.Warn("resolution failed", "entity", req.EntityID, "generation", gen, "error", err)
		return false, fmt.Errorf("resolving %q: %w", req.EntityID, err)
	}
	return e.Reconcile(gen, g)
}

// Active reports whether ticks still move nodes
func (e *Engine) Active() bool {
	return e.sim.Active()
}

// Alpha returns the simulation energy
func (e *Engine) Alpha() float64 {
	return e.sim.Alpha()
}

// Tick advances the simulation one step when it is active. It returns
// whether another tick is wanted.
func (e *Engine) Tick() bool {
	if !e.sim.Active() {
		return false
	}
	active := e.sim.Tick(e.store)
	e.dirty = true
	e.logger.Log(context.Background(), logging.LevelTrace, "tick", "n", e.sim.Ticks(), "alpha", e.sim.Alpha())
	return active
}

// Settle ticks until the layout comes to rest, maxTicks is reached or ctx is
// done. It returns the number of ticks taken.
func (e *Engine) Settle(ctx context.Context, maxTicks int) (int, error) {
	n, err := e.sim.Run(ctx, e.store, maxTicks)
	if n > 0 {
		e.dirty = true
	}
	e.logger.Debug("layout settled", "ticks", n, "alpha", e.sim.Alpha())
	return n, err
}

// Dirty reports whether the store changed since the last Render
func (e *Engine) Dirty() bool {
	return e.dirty
}

// Render draws the current store. The returned image is owned by the engine
// and reused by the next Render.
func (e *Engine) Render() (*image.RGBA, error) {
	img, err := e.canvas.Render(e.store, e.width, e.height, e.density)
	if err != nil {
		return nil, err
	}
	e.dirty = false
	return img, nil
}

// Size returns the logical canvas size and pixel density
func (e *Engine) Size() (width, height, density float64) {
	return e.width, e.height, e.density
}

// Resize changes the canvas geometry, moves the centering target to the new
// center and re-renders
func (e *Engine) Resize(width, height, density float64) (*image.RGBA, error) {
	if density <= 0 {
		density = 1
	}
	if width == e.width && height == e.height && density == e.density {
		return e.canvas.Image(), nil
	}
	e.width, e.height, e.density = width, height, density
	e.sim.SetCenter(e.Center())
	e.logger.Debug("canvas resized", "width", width, "height", height, "density", density)
	return e.Render()
}

// PointerDown starts a drag at logical point p. It reports whether a node
// was grabbed.
func (e *Engine) PointerDown(p r2.Vec) bool {
	grabbed := e.ctrl.PointerDown(p)
	if grabbed {
		d, _ := e.ctrl.State()
		e.logger.Debug("drag started", "node", d.NodeID)
	}
	return grabbed
}

// PointerMove moves the dragged node's pin, or updates hover state
func (e *Engine) PointerMove(p r2.Vec) {
	e.ctrl.PointerMove(p)
}

// PointerUp ends the active drag
func (e *Engine) PointerUp() {
	e.ctrl.PointerUp()
}

// Dragging reports the active drag, if any
func (e *Engine) Dragging() (interaction.Dragging, bool) {
	return e.ctrl.State()
}

// Cursor returns the pointer appearance the host should show
func (e *Engine) Cursor() interaction.Cursor {
	return e.ctrl.Cursor()
}

// OnDragEnd registers the callback that receives every node position after
// a drag completes
func (e *Engine) OnDragEnd(fn func([]models.NodeSnapshot)) {
	e.onDragEnd = fn
}

// Snapshot returns the current node positions
func (e *Engine) Snapshot() []models.NodeSnapshot {
	return e.store.Snapshot()
}

// Store exposes the simulation store for read-only use by renderers
func (e *Engine) Store() *graph.Store {
	return e.store
}

func (e *Engine) released(snapshot []models.NodeSnapshot) {
	e.dirty = true
	e.logger.Debug("drag ended", "nodes", len(snapshot))
	if e.onDragEnd != nil {
		e.onDragEnd(snapshot)
	}
}
