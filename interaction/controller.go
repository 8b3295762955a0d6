package interaction

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/graph"
	"github.com/TFMV/relmap/models"
)

// Energizer is the part of the simulation the controller drives
type Energizer interface {
	SetAlphaTarget(target float64)
}

// Cursor is the pointer appearance the host should show
type Cursor int

// Cursor appearances
const (
	CursorDefault Cursor = iota
	CursorGrab
	CursorGrabbing
)

// Dragging is the state of an active drag gesture
type Dragging struct {
	NodeID string
	Offset r2.Vec // pointer position minus node position at grab time
}

// Controller is a two-state machine: idle, or dragging one node.
// It is driven from the same goroutine as the simulation ticks.
type Controller struct {
	store      *graph.Store
	sim        Energizer
	dragTarget float64
	drag       *Dragging
	hover      bool
	onRelease  func([]models.NodeSnapshot)
}

// NewController creates an idle controller over store. dragTarget is the
// alpha sustained while a node is held.
func NewController(store *graph.Store, sim Energizer, dragTarget float64) *Controller {
	return &Controller{
		store:      store,
		sim:        sim,
		dragTarget: dragTarget,
	}
}

// OnRelease registers the callback that receives the node snapshot after
// every completed drag
func (c *Controller) OnRelease(fn func([]models.NodeSnapshot)) {
	c.onRelease = fn
}

// State returns the active drag, if any
func (c *Controller) State() (Dragging, bool) {
	if c.drag == nil {
		return Dragging{}, false
	}
	return *c.drag, true
}

// Cursor reports the pointer appearance for the last event
func (c *Controller) Cursor() Cursor {
	switch {
	case c.drag != nil:
		return CursorGrabbing
	case c.hover:
		return CursorGrab
	default:
		return CursorDefault
	}
}

// PointerDown starts a drag if p hits a node. It returns whether a node was
// grabbed.
func (c *Controller) PointerDown(p r2.Vec) bool {
	if c.drag != nil {
		// A second button press while dragging keeps the current gesture
		return true
	}
	n := HitTest(c.store, p)
	if n == nil {
		return false
	}

	c.drag = &Dragging{
		NodeID: n.ID,
		Offset: r2.Sub(p, n.Position()),
	}
	n.Pin(n.X, n.Y)
	c.sim.SetAlphaTarget(c.dragTarget)
	return true
}

// PointerMove updates the pin target of the dragged node. Forces are not
// evaluated here; the next tick honors the new pin.
func (c *Controller) PointerMove(p r2.Vec) {
	if c.drag == nil {
		c.hover = HitTest(c.store, p) != nil
		return
	}
	n, ok := c.store.Node(c.drag.NodeID)
	if !ok {
		// The node was reconciled away mid-gesture
		c.drag = nil
		c.sim.SetAlphaTarget(0)
		return
	}
	target := r2.Sub(p, c.drag.Offset)
	n.Pin(target.X, target.Y)
}

// PointerUp ends the drag wherever the pointer is, releases the pin and
// emits the position snapshot. It is a no-op while idle.
func (c *Controller) PointerUp() {
	if c.drag == nil {
		return
	}
	if n, ok := c.store.Node(c.drag.NodeID); ok {
		// The last move may not have been ticked yet
		n.X, n.Y = n.FX, n.FY
		n.Unpin()
	}
	c.drag = nil
	c.sim.SetAlphaTarget(0)

	if c.onRelease != nil {
		c.onRelease(c.store.Snapshot())
	}
}

// Cancel drops an active drag without emitting a snapshot. Used when the
// store is replaced underneath the gesture.
func (c *Controller) Cancel() {
	if c.drag == nil {
		return
	}
	if n, ok := c.store.Node(c.drag.NodeID); ok {
		n.Unpin()
	}
	c.drag = nil
	c.sim.SetAlphaTarget(0)
}
