// Package render produces annotated evidence images for fired alerts.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/wildguard/wildguard/internal/models"
)

const (
	boxThickness = 3
	tagPadding   = 3
	jpegQuality  = 90
)

var boxColor = color.RGBA{R: 52, G: 199, B: 89, A: 255}

// Renderer draws detection boxes and label tags onto a copy of the source
// frame.
type Renderer struct {
	face font.Face
}

// NewRenderer loads the preferred TTF font from fontPath. Any failure to
// load it falls back to the built-in fixed-width face; rendering must never
// fail a request over a missing font.
func NewRenderer(fontPath string) *Renderer {
	return &Renderer{face: loadFace(fontPath)}
}

func loadFace(fontPath string) font.Face {
	if fontPath == "" {
		return basicfont.Face7x13
	}

	data, err := os.ReadFile(fontPath)
	if err != nil {
		log.Warn().Err(err).Str("font_path", fontPath).Msg("Preferred font not readable, using built-in face")
		return basicfont.Face7x13
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		log.Warn().Err(err).Str("font_path", fontPath).Msg("Preferred font not parseable, using built-in face")
		return basicfont.Face7x13
	}

	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: 16, DPI: 72})
	if err != nil {
		log.Warn().Err(err).Str("font_path", fontPath).Msg("Failed to build font face, using built-in face")
		return basicfont.Face7x13
	}
	return face
}

// Render draws every detection in the batch onto a copy of src and returns
// the result as JPEG bytes. The caller's image is never mutated.
func (r *Renderer) Render(src image.Image, batch []models.Detection) ([]byte, error) {
	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	for _, d := range batch {
		x1, y1 := int(d.Box.X1), int(d.Box.Y1)
		x2, y2 := int(d.Box.X2), int(d.Box.Y2)
		drawRect(canvas, x1, y1, x2, y2, boxColor)
		r.drawLabelTag(canvas, x1, y1, fmt.Sprintf("%s %d%%", d.Label, int(d.Confidence*100+0.5)))
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode evidence image: %w", err)
	}
	return buf.Bytes(), nil
}

// drawLabelTag paints a filled tag with the label text just above the box
// corner, or below it when the box touches the top edge.
func (r *Renderer) drawLabelTag(img *image.RGBA, x, y int, label string) {
	metrics := r.face.Metrics()
	textWidth := font.MeasureString(r.face, label).Ceil()
	textHeight := metrics.Ascent.Ceil() + metrics.Descent.Ceil()

	tagTop := y - textHeight - 2*tagPadding
	if tagTop < img.Bounds().Min.Y {
		tagTop = y
	}
	tag := image.Rect(x, tagTop, x+textWidth+2*tagPadding, tagTop+textHeight+2*tagPadding)
	draw.Draw(img, tag.Intersect(img.Bounds()), image.NewUniform(boxColor), image.Point{}, draw.Src)

	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: r.face,
		Dot: fixed.Point26_6{
			X: fixed.I(x + tagPadding),
			Y: fixed.I(tagTop + tagPadding + metrics.Ascent.Ceil()),
		},
	}
	drawer.DrawString(label)
}

// drawRect draws a rectangle outline clamped to the image bounds.
func drawRect(img *image.RGBA, x1, y1, x2, y2 int, col color.Color) {
	bounds := img.Bounds()

	setPixel := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.Set(x, y, col)
		}
	}

	for t := 0; t < boxThickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(x, y1+t)
			setPixel(x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			setPixel(x1+t, y)
			setPixel(x2-t, y)
		}
	}
}
