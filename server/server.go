// Package server exposes the layout engine over HTTP: a person's relation
// map (or an uploaded graph file) is resolved, settled headlessly and
// returned as PNG, SVG or JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TFMV/relmap/config"
	"github.com/TFMV/relmap/engine"
	"github.com/TFMV/relmap/ingest"
	"github.com/TFMV/relmap/logging"
	"github.com/TFMV/relmap/models"
	"github.com/TFMV/relmap/render"
)

// Server serves rendered relation maps. Every request lays out its graph
// on a private engine, so handlers run concurrently.
type Server struct {
	cfg      *config.Config
	resolver models.GraphResolver
	logger   *slog.Logger

	// Uploaded graphs are kept in memory for the life of the process
	mu     sync.RWMutex
	graphs map[string]*models.Graph
}

// New creates a server resolving people through resolver
func New(cfg *config.Config, resolver models.GraphResolver, logger *slog.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		cfg:      cfg,
		resolver: resolver,
		logger:   logger,
		graphs:   make(map[string]*models.Graph),
	}
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/visualize", s.handleVisualize)
	mux.HandleFunc("/api/graph", s.handleAPIGraph)
	return mux
}

// Start listens on the configured port until ctx is done
func (s *Server) Start(ctx context.Context) error {
	// Start server with timeout protection
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Server.Port)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return server.Shutdown(shutdownCtx)
	}
}

// handleIndex renders the main page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, indexPage)
}

// handleUpload stores an uploaded graph file and redirects to its rendering
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10 MB limit
		http.Error(w, "Error parsing form: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Get the file from the form
	file, handler, err := r.FormFile("dataFile")
	if err != nil {
		http.Error(w, "Error retrieving file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	format := r.FormValue("format")
	if format == "" {
		format = "svg"
	}

	// The processor is picked from the extension, so keep it on the temp file
	tempFile, err := os.CreateTemp("", "upload-*"+filepath.Ext(handler.Filename))
	if err != nil {
		http.Error(w, "Error creating temp file: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	if _, err := io.Copy(tempFile, file); err != nil {
		http.Error(w, "Error saving file: "+err.Error(), http.StatusInternalServerError)
		return
	}

	g, err := ingest.ReadFile(tempFile.Name())
	if err != nil {
		http.Error(w, "Error processing file: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := g.Validate(); err != nil {
		http.Error(w, "Invalid graph: "+err.Error(), http.StatusBadRequest)
		return
	}

	graphID := uuid.New().String()
	s.mu.Lock()
	s.graphs[graphID] = g
	s.mu.Unlock()
	s.logger.Info("graph uploaded", "graph", graphID, "file", handler.Filename, "nodes", len(g.Nodes))

	http.Redirect(w, r, fmt.Sprintf("/visualize?graph=%s&format=%s", graphID, format), http.StatusSeeOther)
}

// handleVisualize lays out the requested graph and renders it
func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "svg"
	}
	s.serveRendered(w, r, format)
}

// handleAPIGraph returns the settled node positions as JSON
func (s *Server) handleAPIGraph(w http.ResponseWriter, r *http.Request) {
	s.serveRendered(w, r, "json")
}

func (s *Server) serveRendered(w http.ResponseWriter, r *http.Request, format string) {
	renderer, err := render.GetRenderer(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	opts := render.NewDefaultOptions(format)
	opts.Theme = s.cfg.Theme
	opts.Width = positiveFloat(q.Get("width"), s.cfg.Canvas.Width)
	opts.Height = positiveFloat(q.Get("height"), s.cfg.Canvas.Height)
	opts.Density = positiveFloat(q.Get("density"), 1)

	cfg := *s.cfg
	cfg.Canvas = config.CanvasConfig{Width: opts.Width, Height: opts.Height, Density: opts.Density}
	e, err := engine.New(&cfg, s.logger)
	if err != nil {
		http.Error(w, "Error creating engine: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.load(r.Context(), e, q.Get("id"), q.Get("graph"), boolParam(q.Get("teams")), boolParam(q.Get("repos"))); err != nil {
		switch {
		case errors.Is(err, errMissingID):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, models.ErrEntityNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, models.ErrDuplicateNodeID), errors.Is(err, models.ErrUnknownShape):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			s.logger.Error("layout failed", "error", err)
			http.Error(w, "Error resolving graph: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if _, err := e.Settle(r.Context(), s.cfg.Server.SettleMax); err != nil {
		http.Error(w, "Layout interrupted: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	output, err := renderer.Render(e.Store(), opts)
	if err != nil {
		http.Error(w, "Error generating visualization: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", render.ContentType(format))
	if _, err := w.Write(output); err != nil {
		s.logger.Debug("writing response", "format", format, "error", err)
	}
}

var errMissingID = errors.New("missing person id or graph id")

// load fills e from either an uploaded graph or the resolver
func (s *Server) load(ctx context.Context, e *engine.Engine, personID, graphID string, teams, repos bool) error {
	switch {
	case graphID != "":
		s.mu.RLock()
		g, ok := s.graphs[graphID]
		s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("graph %q: %w", graphID, models.ErrEntityNotFound)
		}
		// Reconcile normalizes the graph in place; work on a copy
		clone := *g
		clone.Nodes = append([]models.Node(nil), g.Nodes...)
		_, err := e.Reconcile(e.Begin(), &clone)
		return err
	case personID != "":
		_, err := e.Refresh(ctx, s.resolver, e.Request(personID, teams, repos))
		return err
	default:
		return errMissingID
	}
}

func positiveFloat(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func boolParam(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>relmap</title>
  <style>
    body {
      font-family: 'Helvetica Neue', Arial, sans-serif;
      margin: 0;
      padding: 20px;
      background: #f8fafc;
      color: #0f172a;
    }
    .container {
      max-width: 1100px;
      margin: 0 auto;
      background: white;
      padding: 30px;
      border-radius: 8px;
      box-shadow: 0 2px 10px rgba(0,0,0,0.1);
    }
    section {
      margin: 20px 0;
      padding: 20px;
      background: #f1f5f9;
      border-radius: 4px;
    }
    .btn {
      background: #2563eb;
      color: white;
      border: none;
      padding: 10px 20px;
      border-radius: 4px;
      cursor: pointer;
      font-size: 16px;
    }
    select, input[type=text] {
      padding: 8px;
      font-size: 16px;
      border: 1px solid #cbd5e1;
      border-radius: 4px;
      margin-right: 10px;
    }
  </style>
</head>
<body>
  <div class="container">
    <h1>relmap</h1>

    <section>
      <h2>Person</h2>
      <form action="/visualize" method="get">
        <input type="text" name="id" placeholder="Person ID (u1)" required>
        <label><input type="checkbox" name="teams" value="true"> Teams</label>
        <label><input type="checkbox" name="repos" value="true"> Repos</label>
        <select name="format">
          <option value="svg">SVG</option>
          <option value="png">PNG</option>
          <option value="json">JSON</option>
        </select>
        <button type="submit" class="btn">Render</button>
      </form>
    </section>

    <section>
      <h2>Upload Graph</h2>
      <form action="/upload" method="post" enctype="multipart/form-data">
        <input type="file" name="dataFile" accept=".json,.yaml,.yml,.csv,.log" required>
        <select name="format">
          <option value="svg">SVG</option>
          <option value="png">PNG</option>
          <option value="json">JSON</option>
        </select>
        <button type="submit" class="btn">Render</button>
      </form>
    </section>
  </div>
</body>
</html>
`
