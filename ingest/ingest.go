// Package ingest turns graph files into models.Graph values the engine can
// reconcile. JSON and YAML documents carry shapes, sizes and positions; CSV
// edge lists and arrow logs carry only topology.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/TFMV/relmap/models"
)

// DataProcessor defines the interface that all data processors must implement
type DataProcessor interface {
	// ProcessData takes raw data bytes and returns a graph representation
	ProcessData(data []byte) (*models.Graph, error)

	// GetName returns the name of the processor
	GetName() string
}

// document is the JSON/YAML graph file layout
type document struct {
	Name  string `json:"name" yaml:"name"`
	Nodes []struct {
		ID    string   `json:"id" yaml:"id"`
		Shape string   `json:"shape" yaml:"shape"`
		Type  string   `json:"type" yaml:"type"` // alias of shape
		Size  float64  `json:"size" yaml:"size"`
		Label string   `json:"label" yaml:"label"`
		X     *float64 `json:"x" yaml:"x"`
		Y     *float64 `json:"y" yaml:"y"`
	} `json:"nodes" yaml:"nodes"`
	Edges []struct {
		Source string `json:"source" yaml:"source"`
		Target string `json:"target" yaml:"target"`
	} `json:"edges" yaml:"edges"`
}

// graph converts the document. Nodes with both coordinates carry them as a
// placement hint. Edges are kept even when an endpoint is missing.
func (doc *document) graph(fallbackName string) (*models.Graph, error) {
	name := doc.Name
	if name == "" {
		name = fallbackName
	}
	g := models.NewGraph(name)

	for i, n := range doc.Nodes {
		kind := n.Shape
		if kind == "" {
			kind = n.Type
		}
		shape, err := models.ParseShape(kind)
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, n.ID, err)
		}
		node := models.NewNode(n.ID, shape, n.Size, n.Label)
		if n.X != nil && n.Y != nil {
			node = node.WithHint(*n.X, *n.Y)
		}
		g.AddNode(node)
	}
	for _, e := range doc.Edges {
		g.AddEdge(e.Source, e.Target)
	}
	return g, nil
}

// JSONProcessor handles JSON graph documents
type JSONProcessor struct{}

// NewJSONProcessor creates a new JSON processor
func NewJSONProcessor() *JSONProcessor {
	return &JSONProcessor{}
}

// GetName returns the name of the processor
func (p *JSONProcessor) GetName() string {
	return "JSON Processor"
}

// ProcessData processes JSON data
func (p *JSONProcessor) ProcessData(data []byte) (*models.Graph, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing JSON: %w", err)
	}
	return doc.graph("JSON Import")
}

// YAMLProcessor handles YAML graph documents with the same layout as JSON
type YAMLProcessor struct{}

// NewYAMLProcessor creates a new YAML processor
func NewYAMLProcessor() *YAMLProcessor {
	return &YAMLProcessor{}
}

// GetName returns the name of the processor
func (p *YAMLProcessor) GetName() string {
	return "YAML Processor"
}

// ProcessData processes YAML data
func (p *YAMLProcessor) ProcessData(data []byte) (*models.Graph, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}
	return doc.graph("YAML Import")
}

// topology accumulates nodes in first-seen order for the edge-list formats
type topology struct {
	g     *models.Graph
	shape models.Shape
	seen  map[string]bool
}

func newTopology(name string, shape models.Shape) *topology {
	return &topology{g: models.NewGraph(name), shape: shape, seen: make(map[string]bool)}
}

func (t *topology) node(id, label string) {
	if t.seen[id] {
		return
	}
	t.seen[id] = true
	if label == "" {
		label = id
	}
	t.g.AddNode(models.NewNode(id, t.shape, models.DefaultNodeSize, label))
}

// CSVProcessor handles CSV edge lists
type CSVProcessor struct {
	shape models.Shape
}

// NewCSVProcessor creates a new CSV processor drawing every node with shape
func NewCSVProcessor(shape models.Shape) *CSVProcessor {
	if shape == "" {
		shape = models.ShapeDisk
	}
	return &CSVProcessor{shape: shape}
}

// GetName returns the name of the processor
func (p *CSVProcessor) GetName() string {
	return "CSV Processor"
}

// ProcessData processes CSV data. The header must name a source and a target
// column; optional label columns name the endpoints.
func (p *CSVProcessor) ProcessData(data []byte) (*models.Graph, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	// Find source and target columns
	sourceIdx, targetIdx := -1, -1
	sourceLabelIdx, targetLabelIdx := -1, -1

	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "source", "from", "src":
			sourceIdx = i
		case "target", "to", "dst":
			targetIdx = i
		case "source_label", "from_label":
			sourceLabelIdx = i
		case "target_label", "to_label":
			targetLabelIdx = i
		}
	}

	if sourceIdx == -1 || targetIdx == -1 {
		return nil, fmt.Errorf("CSV must contain source and target columns")
	}

	t := newTopology("CSV Import", p.shape)
	cell := func(row []string, idx int) string {
		if idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	// Process rows
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV row: %w", err)
		}

		sourceID := cell(row, sourceIdx)
		targetID := cell(row, targetIdx)
		if sourceID == "" || targetID == "" {
			continue
		}
		t.node(sourceID, cell(row, sourceLabelIdx))
		t.node(targetID, cell(row, targetLabelIdx))
		t.g.AddEdge(sourceID, targetID)
	}

	return t.g, nil
}

// LogProcessor handles line-oriented relationship logs
type LogProcessor struct {
	shape models.Shape
}

// NewLogProcessor creates a new log processor drawing every node with shape
func NewLogProcessor(shape models.Shape) *LogProcessor {
	if shape == "" {
		shape = models.ShapeDisk
	}
	return &LogProcessor{shape: shape}
}

// GetName returns the name of the processor
func (p *LogProcessor) GetName() string {
	return "Log Processor"
}

// ProcessData processes log data.
// Each line holds one relationship, e.g. "A -> B" or "X connected to Y".
// Lines that match no pattern are skipped.
func (p *LogProcessor) ProcessData(data []byte) (*models.Graph, error) {
	lines := strings.Split(string(data), "\n")

	// Common log patterns for connections
	separators := []string{
		" -> ",
		" => ",
		" connected to ",
		" connects to ",
		" links to ",
		" linked to ",
		" - ",
	}

	t := newTopology("Log Import", p.shape)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		for _, sep := range separators {
			parts := strings.Split(line, sep)
			if len(parts) != 2 {
				continue
			}
			sourceID := strings.TrimSpace(parts[0])
			targetID := strings.TrimSpace(parts[1])
			if sourceID == "" || targetID == "" {
				break
			}
			t.node(sourceID, "")
			t.node(targetID, "")
			t.g.AddEdge(sourceID, targetID)
			break
		}
	}

	return t.g, nil
}

// GetProcessor returns the appropriate processor for the given format
func GetProcessor(format string) (DataProcessor, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONProcessor(), nil
	case "yaml", "yml":
		return NewYAMLProcessor(), nil
	case "csv":
		return NewCSVProcessor(models.ShapeDisk), nil
	case "log", "txt":
		return NewLogProcessor(models.ShapeDisk), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// ReadFile loads a graph file, picking the processor from its extension
func ReadFile(path string) (*models.Graph, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	processor, err := GetProcessor(ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	g, err := processor.ProcessData(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
