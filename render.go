package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

// Layout of the puzzle image, in pixels.
const (
	canvasSize    = 1024
	gridWidth     = 640
	cellSize      = gridWidth / 4
	gridTop       = 150
	cellBorder    = 4
	cellInset     = 4
	titleBaseline = 80
	marginLeft    = 60
	cluesGap      = 60
	firstClueGap  = 50
	clueSpacing   = 80
	clueLineStep  = 30
	clueMaxWidth  = 900

	puzzleTitle = "Find the Secret Words!"
	cluesTitle  = "Clues:"
)

var (
	flatBackground = color.RGBA{0xf0, 0xf9, 0xff, 0xff}
	inkColor       = color.RGBA{0x1e, 0x3a, 0x8a, 0xff}
	wordColor      = color.RGBA{0x1e, 0x40, 0xaf, 0xff}
	washColor      = color.NRGBA{0xff, 0xff, 0xff, 102}
	cellFill       = color.NRGBA{0xff, 0xff, 0xff, 204}
)

// wordSizes are tried in order until the word fits inside its cell.
var wordSizes = []float64{32, 24, 18}

// Renderer draws PuzzleData into a flat 1024x1024 image.
//
// Faces from x/image are not safe for concurrent use, so every draw holds mu.
// The last encoded PNG is kept and returned again for the same *PuzzleData.
type Renderer struct {
	logger *zap.Logger

	mu        sync.Mutex
	title     font.Face
	heading   font.Face
	clue      font.Face
	wordFaces []font.Face

	last    *PuzzleData
	lastPNG []byte
}

// NewRenderer parses the embedded Go fonts and returns a ready renderer.
func NewRenderer(logger *zap.Logger) (*Renderer, error) {
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}

	r := &Renderer{logger: logger}
	if r.title, err = newFace(bold, 64); err != nil {
		return nil, err
	}
	if r.heading, err = newFace(bold, 42); err != nil {
		return nil, err
	}
	if r.clue, err = newFace(regular, 24); err != nil {
		return nil, err
	}
	for _, size := range wordSizes {
		f, err := newFace(bold, size)
		if err != nil {
			return nil, err
		}
		r.wordFaces = append(r.wordFaces, f)
	}
	return r, nil
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %gpx: %w", size, err)
	}
	return face, nil
}

// Render draws the puzzle and returns the raster image.
func (r *Renderer) Render(p *PuzzleData) (*image.RGBA, error) {
	if p == nil {
		return nil, errors.New("render: nil puzzle")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draw(p), nil
}

// RenderPNG draws the puzzle and encodes it as PNG. Calling it again with the
// same pointer returns the previous bytes without redrawing.
func (r *Renderer) RenderPNG(p *PuzzleData) ([]byte, error) {
	if p == nil {
		return nil, errors.New("render: nil puzzle")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if p == r.last && r.lastPNG != nil {
		return r.lastPNG, nil
	}

	img := r.draw(p)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	r.last, r.lastPNG = p, buf.Bytes()
	return r.lastPNG, nil
}

func (r *Renderer) draw(p *PuzzleData) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))

	r.drawBackground(img, p)

	drawCentered(img, r.title, puzzleTitle, canvasSize/2, titleBaseline, inkColor)

	startX := (canvasSize - gridWidth) / 2
	for i, word := range p.Grid {
		x := startX + (i%4)*cellSize
		y := gridTop + (i/4)*cellSize
		r.drawCell(img, image.Rect(x, y, x+cellSize, y+cellSize), word)
	}

	cluesY := gridTop + gridWidth + cluesGap
	drawText(img, r.heading, cluesTitle, marginLeft, cluesY, inkColor)

	measure := func(s string) int { return font.MeasureString(r.clue, s).Ceil() }
	for i, riddle := range p.Riddles {
		// Each clue starts a fixed distance below the previous one,
		// whatever the number of lines the previous clue wrapped to.
		lineY := cluesY + firstClueGap + i*clueSpacing
		text := strconv.Itoa(i+1) + ". " + riddle.Question
		for _, line := range wrapLines(text, clueMaxWidth, measure) {
			drawText(img, r.clue, line, marginLeft, lineY, inkColor)
			lineY += clueLineStep
		}
	}

	return img
}

// drawBackground paints the generated image washed with white, or the flat
// pastel colour when there is no usable image. Decode failures are not fatal.
func (r *Renderer) drawBackground(img *image.RGBA, p *PuzzleData) {
	bounds := img.Bounds()
	if p.HasBackground() {
		src, format, err := image.Decode(bytes.NewReader(p.Background.Data))
		if err == nil {
			draw.CatmullRom.Scale(img, bounds, src, src.Bounds(), draw.Src, nil)
			draw.Draw(img, bounds, image.NewUniform(washColor), image.Point{}, draw.Over)
			return
		}
		r.logger.Warn("Background image could not be decoded, using flat colour",
			zap.String("puzzle_id", p.ID),
			zap.String("mime_type", p.Background.MIMEType),
			zap.String("format", format),
			zap.Error(err),
		)
	}
	draw.Draw(img, bounds, image.NewUniform(flatBackground), image.Point{}, draw.Src)
}

func (r *Renderer) drawCell(img *image.RGBA, cell image.Rectangle, word string) {
	strokeRect(img, cell, cellBorder, inkColor)

	inner := cell.Inset(cellInset)
	draw.Draw(img, inner, image.NewUniform(cellFill), image.Point{}, draw.Over)

	word = strings.ToUpper(word)
	face := r.wordFaces[len(r.wordFaces)-1]
	for _, f := range r.wordFaces {
		if font.MeasureString(f, word).Ceil() <= inner.Dx()-2*cellInset {
			face = f
			break
		}
	}

	cx := cell.Min.X + cellSize/2
	cy := cell.Min.Y + cellSize/2
	m := face.Metrics()
	width := font.MeasureString(face, word)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(wordColor),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(cx) - width/2,
			Y: fixed.I(cy) + (m.Ascent-m.Descent)/2,
		},
	}
	d.DrawString(word)
}

// strokeRect outlines r with a line of the given width centred on its edges.
func strokeRect(img draw.Image, r image.Rectangle, width int, c color.Color) {
	src := image.NewUniform(c)
	half := width / 2
	outer := image.Rect(r.Min.X-half, r.Min.Y-half, r.Max.X+half, r.Max.Y+half)
	edges := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, outer.Min.Y+width),
		image.Rect(outer.Min.X, outer.Max.Y-width, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, outer.Min.Y, outer.Min.X+width, outer.Max.Y),
		image.Rect(outer.Max.X-width, outer.Min.Y, outer.Max.X, outer.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e, src, image.Point{}, draw.Src)
	}
}

func drawText(img draw.Image, face font.Face, s string, x, baseline int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

func drawCentered(img draw.Image, face font.Face, s string, cx, baseline int, c color.Color) {
	width := font.MeasureString(face, s)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(cx) - width/2, Y: fixed.I(baseline)},
	}
	d.DrawString(s)
}
