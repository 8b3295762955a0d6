// Package render draws the simulation store: a density-aware raster canvas
// for the interactive view, plus PNG, SVG and JSON exports of the same frame.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"image/png"
	"math"
	"strings"
	"time"

	"github.com/TFMV/relmap/graph"
	"github.com/TFMV/relmap/models"
)

// OutputOptions defines rendering configuration options
type OutputOptions struct {
	Format  string  // Output format (png, svg, json)
	Width   float64 // Logical width of the output
	Height  float64 // Logical height of the output
	Density float64 // Physical pixels per logical pixel (png only)
	Theme   Theme
}

// Renderer interface defines methods that all rendering backends must implement
type Renderer interface {
	// Render creates a visualization of the store using the provided options
	Render(s *graph.Store, options *OutputOptions) ([]byte, error)

	// Name returns the name of the renderer
	Name() string

	// Description returns a description of the renderer
	Description() string
}

// NewDefaultOptions creates a default set of output options
func NewDefaultOptions(format string) *OutputOptions {
	return &OutputOptions{
		Format:  format,
		Width:   1020,
		Height:  800,
		Density: 1,
		Theme:   DefaultTheme(),
	}
}

// GetRenderer returns the appropriate renderer based on format
func GetRenderer(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "png":
		return &PNGRenderer{}, nil
	case "svg":
		return &SVGRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// ContentType returns the MIME type for a format
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "png":
		return "image/png"
	case "svg":
		return "image/svg+xml"
	case "json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// PNGRenderer rasterizes the store with a Canvas and encodes it as PNG
type PNGRenderer struct{}

// Name returns the name of the renderer
func (r *PNGRenderer) Name() string {
	return "PNG Renderer"
}

// Description returns a description of the renderer
func (r *PNGRenderer) Description() string {
	return "Renders the canvas view as a PNG image at the requested pixel density"
}

// Render creates a PNG representation of the store
func (r *PNGRenderer) Render(s *graph.Store, options *OutputOptions) ([]byte, error) {
	canvas, err := NewCanvas(options.Theme)
	if err != nil {
		return nil, err
	}
	img, err := canvas.Render(s, options.Width, options.Height, options.Density)
	if err != nil {
		return nil, fmt.Errorf("rasterizing: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// SVGRenderer outputs SVG format
type SVGRenderer struct{}

// Name returns the name of the renderer
func (r *SVGRenderer) Name() string {
	return "SVG Renderer"
}

// Description returns a description of the renderer
func (r *SVGRenderer) Description() string {
	return "Renders the canvas view as Scalable Vector Graphics (SVG)"
}

// Render creates an SVG representation of the store, in the same draw order
// as the raster canvas
func (r *SVGRenderer) Render(s *graph.Store, options *OutputOptions) ([]byte, error) {
	var buf bytes.Buffer
	theme := options.Theme

	// SVG header with appropriate encoding and responsive viewBox
	fmt.Fprintf(&buf, `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<svg width="%g" height="%g" viewBox="0 0 %g %g" xmlns="http://www.w3.org/2000/svg">
<defs>
  <linearGradient id="bg" x1="0" y1="0" x2="1" y2="1">
    <stop offset="0" stop-color="%s"/>
    <stop offset="1" stop-color="%s"/>
  </linearGradient>
</defs>
<rect width="100%%" height="100%%" fill="url(#bg)"/>
`, options.Width, options.Height, options.Width, options.Height, theme.BackgroundTop, theme.BackgroundBottom)

	fmt.Fprintf(&buf, `<text x="%g" y="%g" font-family="sans-serif" font-weight="600" font-size="%g" fill="%s">%s</text>
`, titleDot.X, titleDot.Y, theme.TitleSize, theme.Title, html.EscapeString(theme.TitleText))

	if s == nil || s.Len() == 0 {
		fmt.Fprintf(&buf, `<text x="%g" y="%g" font-family="sans-serif" font-size="%g" fill="%s" text-anchor="middle">%s</text>
`, options.Width/2, options.Height/2, theme.PlaceholderSize, theme.Placeholder, html.EscapeString(theme.PlaceholderText))
		buf.WriteString(`</svg>`)
		return buf.Bytes(), nil
	}

	// Draw edges
	for _, l := range s.Links() {
		fmt.Fprintf(&buf, `<line x1="%f" y1="%f" x2="%f" y2="%f" stroke="%s" stroke-width="%g"/>
`, l.Source.X, l.Source.Y, l.Target.X, l.Target.Y, theme.Edge, theme.EdgeWidth)
	}

	// Draw nodes
	stroke, strokeOpacity := svgColor(theme.Border)
	for _, n := range s.Nodes() {
		fill := theme.ShapeColor(n.Shape)
		attrs := fmt.Sprintf(`fill="%s" stroke="%s" stroke-opacity="%.3f" stroke-width="%g"`, fill, stroke, strokeOpacity, theme.BorderWidth)
		switch n.Shape {
		case models.ShapeSquare:
			fmt.Fprintf(&buf, `<rect x="%f" y="%f" width="%f" height="%f" %s/>
`, n.X-n.Size/2, n.Y-n.Size/2, n.Size, n.Size, attrs)
		case models.ShapeTriangle:
			a, b, c := graph.TriangleVertices(n.Position(), n.Size)
			fmt.Fprintf(&buf, `<polygon points="%f,%f %f,%f %f,%f" %s/>
`, a.X, a.Y, b.X, b.Y, c.X, c.Y, attrs)
		default:
			fmt.Fprintf(&buf, `<circle cx="%f" cy="%f" r="%f" %s/>
`, n.X, n.Y, n.Radius(), attrs)
		}
	}

	// Labels below each node
	for _, n := range s.Nodes() {
		if n.Label == "" {
			continue
		}
		fmt.Fprintf(&buf, `<text x="%f" y="%f" font-family="sans-serif" font-size="%g" fill="%s" text-anchor="middle">%s</text>
`, n.X, n.Y+n.Size, theme.LabelSize, theme.Label, html.EscapeString(n.Label))
	}

	// SVG footer
	buf.WriteString(`</svg>`)

	return buf.Bytes(), nil
}

// svgColor splits an #rrggbbaa color into #rrggbb and an opacity
func svgColor(hex string) (string, float64) {
	c := parseHexColor(hex)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), math.Round(float64(c.A)/255*1000) / 1000
}

// JSONRenderer outputs raw JSON format
type JSONRenderer struct{}

// Name returns the name of the renderer
func (r *JSONRenderer) Name() string {
	return "JSON Renderer"
}

// Description returns a description of the renderer
func (r *JSONRenderer) Description() string {
	return "Renders node positions and links as JSON for machine consumption"
}

// Frame is the JSON document produced by JSONRenderer
type Frame struct {
	Nodes    []models.NodeSnapshot `json:"nodes"`
	Edges    []models.Edge         `json:"edges"`
	Metadata map[string]any        `json:"metadata"`
}

// Render creates a JSON representation of the store
func (r *JSONRenderer) Render(s *graph.Store, options *OutputOptions) ([]byte, error) {
	frame := Frame{
		Nodes: []models.NodeSnapshot{},
		Edges: []models.Edge{},
		Metadata: map[string]any{
			"width":     options.Width,
			"height":    options.Height,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	if s != nil {
		frame.Nodes = s.Snapshot()
		for _, l := range s.Links() {
			frame.Edges = append(frame.Edges, models.Edge{Source: l.Source.ID, Target: l.Target.ID})
		}
	}
	frame.Metadata["nodeCount"] = len(frame.Nodes)
	frame.Metadata["edgeCount"] = len(frame.Edges)

	// Marshal to JSON
	return json.MarshalIndent(frame, "", "  ")
}
