package render

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/gonum/spatial/r2"
)

type align int

const (
	alignLeft align = iota
	alignCenter
)

type faceKey struct {
	bold bool
	size float64 // physical pixels
}

// typesetter caches font faces by weight and physical size
type typesetter struct {
	regular *opentype.Font
	bold    *opentype.Font
	faces   map[faceKey]font.Face
}

func newTypesetter() (*typesetter, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	return &typesetter{
		regular: regular,
		bold:    bold,
		faces:   make(map[faceKey]font.Face),
	}, nil
}

func (t *typesetter) face(bold bool, size float64) (font.Face, error) {
	key := faceKey{bold: bold, size: size}
	if f, ok := t.faces[key]; ok {
		return f, nil
	}
	fnt := t.regular
	if bold {
		fnt = t.bold
	}
	f, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72, // 1pt == 1px
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %.1fpx face: %w", size, err)
	}
	t.faces[key] = f
	return f, nil
}

// draw writes s with its baseline at dot (physical pixels)
func (t *typesetter) draw(dst *image.RGBA, s string, dot r2.Vec, size float64, bold bool, a align, col color.Color) error {
	if s == "" || size <= 0 {
		return nil
	}
	face, err := t.face(bold, size)
	if err != nil {
		return err
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(dot.X), Y: toFixed(dot.Y)},
	}
	if a == alignCenter {
		d.Dot.X -= d.MeasureString(s) / 2
	}
	d.DrawString(s)
	return nil
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v * 64)
}
