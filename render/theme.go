package render

import (
	"image/color"
	"strings"

	"github.com/TFMV/relmap/models"
)

// Theme holds the colors, sizes and texts of the canvas view
type Theme struct {
	BackgroundTop    string `yaml:"background_top"`
	BackgroundBottom string `yaml:"background_bottom"`
	Title            string `yaml:"title"`
	Edge             string `yaml:"edge"`
	Disk             string `yaml:"disk"`
	Square           string `yaml:"square"`
	Triangle         string `yaml:"triangle"`
	Border           string `yaml:"border"`
	Label            string `yaml:"label"`
	Placeholder      string `yaml:"placeholder"`

	EdgeWidth       float64 `yaml:"edge_width"`
	BorderWidth     float64 `yaml:"border_width"`
	TitleSize       float64 `yaml:"title_size"`
	LabelSize       float64 `yaml:"label_size"`
	PlaceholderSize float64 `yaml:"placeholder_size"`

	TitleText       string `yaml:"title_text"`
	PlaceholderText string `yaml:"placeholder_text"`
}

// DefaultTheme returns the light theme
func DefaultTheme() Theme {
	return Theme{
		BackgroundTop:    "#ffffff",
		BackgroundBottom: "#f8fafc",
		Title:            "#0f172a",
		Edge:             "#cbd5e1",
		Disk:             "#2563eb",
		Square:           "#10b981",
		Triangle:         "#f59e0b",
		Border:           "#0f172a22",
		Label:            "#334155",
		Placeholder:      "#64748b",
		EdgeWidth:        1.5,
		BorderWidth:      2,
		TitleSize:        16,
		LabelSize:        12,
		PlaceholderSize:  14,
		TitleText:        "Canvas Nodes",
		PlaceholderText:  "No nodes selected. Submit a person ID, then toggle repos/teams",
	}
}

// palette is a theme with its colors parsed
type palette struct {
	backgroundTop    color.NRGBA
	backgroundBottom color.NRGBA
	title            color.NRGBA
	edge             color.NRGBA
	border           color.NRGBA
	label            color.NRGBA
	placeholder      color.NRGBA
	shapes           map[models.Shape]color.NRGBA
}

func (t Theme) palette() palette {
	return palette{
		backgroundTop:    parseHexColor(t.BackgroundTop),
		backgroundBottom: parseHexColor(t.BackgroundBottom),
		title:            parseHexColor(t.Title),
		edge:             parseHexColor(t.Edge),
		border:           parseHexColor(t.Border),
		label:            parseHexColor(t.Label),
		placeholder:      parseHexColor(t.Placeholder),
		shapes: map[models.Shape]color.NRGBA{
			models.ShapeDisk:     parseHexColor(t.Disk),
			models.ShapeSquare:   parseHexColor(t.Square),
			models.ShapeTriangle: parseHexColor(t.Triangle),
		},
	}
}

// ShapeColor returns the hex fill color for a shape
func (t Theme) ShapeColor(s models.Shape) string {
	switch s {
	case models.ShapeSquare:
		return t.Square
	case models.ShapeTriangle:
		return t.Triangle
	default:
		return t.Disk
	}
}

// Parse a hex color string (#rgb, #rrggbb or #rrggbbaa)
func parseHexColor(hex string) color.NRGBA {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")

	switch len(hex) {
	case 3:
		// Convert 3-digit hex to 6-digit
		r := parseHexDigit(hex[0])
		g := parseHexDigit(hex[1])
		b := parseHexDigit(hex[2])
		return color.NRGBA{R: r * 17, G: g * 17, B: b * 17, A: 0xff}
	case 6:
		return color.NRGBA{
			R: parseHexByte(hex[0:2]),
			G: parseHexByte(hex[2:4]),
			B: parseHexByte(hex[4:6]),
			A: 0xff,
		}
	case 8:
		return color.NRGBA{
			R: parseHexByte(hex[0:2]),
			G: parseHexByte(hex[2:4]),
			B: parseHexByte(hex[4:6]),
			A: parseHexByte(hex[6:8]),
		}
	}

	// Default to opaque black if invalid
	return color.NRGBA{A: 0xff}
}

func parseHexDigit(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

func parseHexByte(s string) uint8 {
	var result uint8
	for i := 0; i < len(s); i++ {
		result = result*16 + parseHexDigit(s[i])
	}
	return result
}
