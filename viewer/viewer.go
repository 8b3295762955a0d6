// Package viewer runs the layout engine in an interactive window. Ebitengine
// calls Update once per tick and Draw once per frame; both run on the game
// goroutine, which is the only goroutine that touches the engine. Graph
// resolutions run in the background and are handed back through a channel.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/engine"
	"github.com/TFMV/relmap/interaction"
	"github.com/TFMV/relmap/logging"
	"github.com/TFMV/relmap/models"
)

// resolveTimeout bounds one background resolution
const resolveTimeout = 10 * time.Second

// Options configures the window
type Options struct {
	Title   string
	Person  string  // resolved on start when set
	Teams   bool    // initial teams toggle
	Repos   bool    // initial repos toggle
	Density float64 // 0 follows the monitor's device scale factor
}

// result is a finished background resolution
type result struct {
	gen   engine.Generation
	graph *models.Graph
	err   error
}

// Game implements ebiten.Game over an engine
type Game struct {
	ctx      context.Context
	engine   *engine.Engine
	resolver models.GraphResolver
	logger   *slog.Logger
	density  float64

	input  []rune // person ID being typed
	person string
	teams  bool
	repos  bool
	status string

	results  chan result
	inflight context.CancelFunc

	// Window geometry reported by Layout, applied in Update
	width, height, scale float64

	frame *ebiten.Image
	err   error
}

// NewGame creates a game driving e. Resolutions go through resolver.
func NewGame(ctx context.Context, e *engine.Engine, resolver models.GraphResolver, opts Options, logger *slog.Logger) *Game {
	if logger == nil {
		logger = logging.Discard()
	}
	g := &Game{
		ctx:      ctx,
		engine:   e,
		resolver: resolver,
		logger:   logger,
		density:  opts.Density,
		input:    []rune(opts.Person),
		teams:    opts.Teams,
		repos:    opts.Repos,
		results:  make(chan result, 4),
	}
	g.width, g.height, g.scale = e.Size()
	if opts.Person != "" {
		g.submit()
	}
	return g
}

// Run opens the window and blocks until it is closed or ctx is done
func Run(ctx context.Context, e *engine.Engine, resolver models.GraphResolver, opts Options, logger *slog.Logger) error {
	w, h, _ := e.Size()
	title := opts.Title
	if title == "" {
		title = "relmap"
	}
	ebiten.SetWindowSize(int(w), int(h))
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	g := NewGame(ctx, e, resolver, opts, logger)
	defer g.cancelInflight()
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

// Update is called each tick by Ebitengine
func (g *Game) Update() error {
	if g.err != nil {
		return g.err
	}
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}

	if _, err := g.engine.Resize(g.width, g.height, g.scale); err != nil {
		return err
	}

	g.drainResults()
	g.handleKeys()
	g.handlePointer()
	g.engine.Tick()

	ebiten.SetCursorShape(cursorShape(g.engine.Cursor()))
	return nil
}

// Draw is called each frame by Ebitengine
func (g *Game) Draw(screen *ebiten.Image) {
	if g.engine.Dirty() || g.frame == nil {
		img, err := g.engine.Render()
		if err != nil {
			g.err = fmt.Errorf("rendering frame: %w", err)
			return
		}
		b := img.Bounds()
		if b.Empty() {
			return
		}
		if g.frame == nil || g.frame.Bounds().Size() != b.Size() {
			if g.frame != nil {
				g.frame.Deallocate()
			}
			g.frame = ebiten.NewImage(b.Dx(), b.Dy())
		}
		g.frame.WritePixels(img.Pix)
	}

	screen.DrawImage(g.frame, nil)
	ebitenutil.DebugPrintAt(screen, g.statusLine(), int(12*g.scale), int(36*g.scale))
}

// Layout maps the window size to a device-pixel screen. The engine works in
// window (logical) units and renders at the scale factor.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	scale := g.density
	if scale <= 0 {
		scale = ebiten.Monitor().DeviceScaleFactor()
	}
	if scale <= 0 {
		scale = 1
	}
	g.width, g.height, g.scale = float64(outsideWidth), float64(outsideHeight), scale
	return int(math.Floor(float64(outsideWidth) * scale)), int(math.Floor(float64(outsideHeight) * scale))
}

// handleKeys edits the person ID and flips the relation toggles
func (g *Game) handleKeys() {
	g.input = ebiten.AppendInputChars(g.input)

	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) && len(g.input) > 0 {
		g.input = g.input[:len(g.input)-1]
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.input = g.input[:0]
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
		g.submit()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF2) {
		g.teams = !g.teams
		g.refresh()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF3) {
		g.repos = !g.repos
		g.refresh()
	}
}

// handlePointer feeds the left mouse button to the drag controller
func (g *Game) handlePointer() {
	mx, my := ebiten.CursorPosition()
	p := r2.Vec{X: float64(mx) / g.scale, Y: float64(my) / g.scale}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.engine.PointerDown(p)
	}
	g.engine.PointerMove(p)
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		g.engine.PointerUp()
	}
}

// submit switches to the typed person
func (g *Game) submit() {
	id := strings.TrimSpace(string(g.input))
	if id == "" {
		return
	}
	g.person = id
	g.refresh()
}

// refresh starts a background resolution for the current person and
// toggles. Any earlier resolution is cancelled and, should it still finish,
// discarded by its stale generation.
func (g *Game) refresh() {
	if g.person == "" {
		return
	}
	gen := g.engine.Begin()
	req := g.engine.Request(g.person, g.teams, g.repos)

	g.cancelInflight()
	ctx, cancel := context.WithTimeout(g.ctx, resolveTimeout)
	g.inflight = cancel
	g.status = "loading " + g.person

	go func() {
		defer cancel()
		graph, err := g.resolver.ResolveGraph(ctx, req)
		select {
		case g.results <- result{gen: gen, graph: graph, err: err}:
		case <-g.ctx.Done():
		}
	}()
}

func (g *Game) cancelInflight() {
	if g.inflight != nil {
		g.inflight()
		g.inflight = nil
	}
}

// drainResults applies finished resolutions without blocking the frame
func (g *Game) drainResults() {
	for {
		select {
		case r := <-g.results:
			g.apply(r)
		default:
			return
		}
	}
}

func (g *Game) apply(r result) {
	if r.err != nil {
		if errors.Is(r.err, context.Canceled) {
			g.logger.Debug("resolution cancelled", "generation", r.gen)
			return
		}
		if g.engine.Current(r.gen) {
			g.status = r.err.Error()
		}
		g.logger.Warn("resolution failed", "generation", r.gen, "error", r.err)
		return
	}

	applied, err := g.engine.Reconcile(r.gen, r.graph)
	switch {
	case err != nil:
		g.status = err.Error()
	case applied:
		g.status = ""
	}
}

func (g *Game) statusLine() string {
	line := fmt.Sprintf("person: %s_   [F2] teams: %s   [F3] repos: %s", string(g.input), onOff(g.teams), onOff(g.repos))
	if g.status != "" {
		line += "\n" + g.status
	}
	return line
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// cursorShape maps the controller's cursor onto the platform cursor
func cursorShape(c interaction.Cursor) ebiten.CursorShapeType {
	switch c {
	case interaction.CursorGrab:
		return ebiten.CursorShapePointer
	case interaction.CursorGrabbing:
		return ebiten.CursorShapeMove
	default:
		return ebiten.CursorShapeDefault
	}
}
