// Package render rasterizes engine draw commands the way a Canvas2D
// frontend executes them. The server uses it for session snapshots and
// PNG exports.
package render

import (
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/fogleman/gg"

	"github.com/presemt/presemt/backend-go/internal/engine"
	"github.com/presemt/presemt/backend-go/internal/plane"
	"github.com/presemt/presemt/backend-go/internal/typeset"
)

var errNoLoader = errors.New("no image loader")

var (
	videoFill       = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	placeholderFill = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	placeholderLine = color.RGBA{0x9c, 0xa3, 0xaf, 0xff}
)

type Options struct {
	Width  int // zero means engine.DefaultViewportSize
	Height int

	Background color.Color // nil means white

	// Images loads the picture of an image source. Without it, or when it
	// fails, images are drawn as placeholders.
	Images func(source string) (image.Image, error)

	// Posters loads the poster frame of a video source. Without it, or
	// when it fails, videos are drawn as a dark box.
	Posters func(source string) (image.Image, error)

	Logger *slog.Logger
}

// Renderer draws frames onto a fresh gg context each time. It caches
// decoded images by source and is not safe for concurrent use.
type Renderer struct {
	opts   Options
	text   *typeset.Measurer
	log    *slog.Logger
	images map[string]image.Image
}

func New(text *typeset.Measurer, opts Options) *Renderer {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width = int(engine.DefaultViewportSize.Width)
		opts.Height = int(engine.DefaultViewportSize.Height)
	}
	if opts.Background == nil {
		opts.Background = color.White
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{opts: opts, text: text, log: log, images: make(map[string]image.Image)}
}

// Size is the viewport the renderer draws, for engine.SetViewportSize.
func (r *Renderer) Size() plane.Size {
	return plane.Size{Width: float64(r.opts.Width), Height: float64(r.opts.Height)}
}

// Render draws cmds in order and returns the picture.
func (r *Renderer) Render(cmds []engine.DrawCommand) image.Image {
	dc := r.draw(cmds)
	return dc.Image()
}

// WritePNG renders cmds and encodes the picture as PNG.
func (r *Renderer) WritePNG(w io.Writer, cmds []engine.DrawCommand) error {
	return r.draw(cmds).EncodePNG(w)
}

func (r *Renderer) draw(cmds []engine.DrawCommand) *gg.Context {
	dc := gg.NewContext(r.opts.Width, r.opts.Height)
	dc.SetColor(r.opts.Background)
	dc.Clear()

	for _, cmd := range cmds {
		dc.Push()
		scale := applyTransform(dc, cmd.Transform)
		switch cmd.Op {
		case "path":
			r.drawPath(dc, cmd, scale)
		case "text":
			r.drawText(dc, cmd)
		case "image":
			r.drawImage(dc, cmd)
		case "video":
			r.drawVideo(dc, cmd)
		default:
			r.log.Warn("unknown draw op", "op", cmd.Op, "object", cmd.ObjectID)
		}
		dc.Pop()
	}
	return dc
}

// applyTransform sets the context matrix to the similarity [a b c d e f]
// and returns its scale. Draw commands never carry shear.
func applyTransform(dc *gg.Context, m []float64) float64 {
	if len(m) != 6 {
		return 1
	}
	scale := math.Hypot(m[0], m[1])
	dc.Translate(m[4], m[5])
	dc.Rotate(math.Atan2(m[1], m[0]))
	dc.Scale(scale, scale)
	return scale
}

// drawPath replays the path. gg strokes in device pixels, so the local
// stroke width is scaled by the transform.
func (r *Renderer) drawPath(dc *gg.Context, cmd engine.DrawCommand, scale float64) {
	for _, seg := range cmd.Path {
		if len(seg) == 0 {
			continue
		}
		op, _ := seg[0].(string)
		switch op {
		case "M", "L":
			x, okx := number(seg, 1)
			y, oky := number(seg, 2)
			if !okx || !oky {
				r.log.Warn("malformed path segment", "segment", seg)
				continue
			}
			if op == "M" {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		case "Z":
			dc.ClosePath()
		}
	}

	if cmd.Fill != "" {
		if c, err := ParseColor(cmd.Fill); err == nil {
			dc.SetColor(c)
			dc.FillPreserve()
		}
	}
	if cmd.Stroke != "" {
		c, err := ParseColor(cmd.Stroke)
		if err != nil {
			r.log.Warn("bad stroke color", "color", cmd.Stroke, "error", err)
		} else {
			dc.SetColor(c)
			dc.SetLineWidth(max(cmd.StrokeWidth, 0) * scale)
			dc.StrokePreserve()
		}
	}
	dc.ClearPath()
}

func number(seg engine.PathCommand, i int) (float64, bool) {
	if i >= len(seg) {
		return 0, false
	}
	switch v := seg[i].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func (r *Renderer) drawText(dc *gg.Context, cmd engine.DrawCommand) {
	face := r.text.Face(cmd.FontSize)
	ascent := float64(face.Metrics().Ascent) / 64
	lineHeight := r.text.LineHeight(cmd.FontSize)

	dc.SetFontFace(face)
	dc.SetColor(color.Black)
	for i, line := range strings.Split(cmd.Text, "\n") {
		dc.DrawString(line, 0, ascent+float64(i)*lineHeight)
	}
}

func (r *Renderer) drawImage(dc *gg.Context, cmd engine.DrawCommand) {
	img, err := r.load(cmd.Op, r.opts.Images, cmd.Source)
	if err != nil {
		r.log.Debug("image placeholder", "source", cmd.Source, "error", err)
		drawPlaceholder(dc, cmd.Width, cmd.Height)
		return
	}
	if !drawFitted(dc, img, cmd.Width, cmd.Height) {
		drawPlaceholder(dc, cmd.Width, cmd.Height)
	}
}

// drawFitted stretches img over the w by h box.
func drawFitted(dc *gg.Context, img image.Image, w, h float64) bool {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return false
	}
	dc.Push()
	dc.Scale(w/float64(b.Dx()), h/float64(b.Dy()))
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	dc.Pop()
	return true
}

// load returns the picture for source, cached by op and source.
func (r *Renderer) load(op string, loader func(string) (image.Image, error), source string) (image.Image, error) {
	if loader == nil {
		return nil, errNoLoader
	}
	key := op + ":" + source
	if img, ok := r.images[key]; ok {
		return img, nil
	}
	img, err := loader(source)
	if err != nil {
		return nil, err
	}
	r.images[key] = img
	return img, nil
}

func drawPlaceholder(dc *gg.Context, w, h float64) {
	dc.DrawRectangle(0, 0, w, h)
	dc.SetColor(placeholderFill)
	dc.FillPreserve()
	dc.SetColor(placeholderLine)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.MoveTo(0, 0)
	dc.LineTo(w, h)
	dc.MoveTo(w, 0)
	dc.LineTo(0, h)
	dc.Stroke()
}

// drawVideo draws a video object as its poster frame, or a dark box
// without one, under a play mark.
func (r *Renderer) drawVideo(dc *gg.Context, cmd engine.DrawCommand) {
	w, h := cmd.Width, cmd.Height
	dc.DrawRectangle(0, 0, w, h)
	dc.SetColor(videoFill)
	dc.Fill()
	if r.opts.Posters != nil {
		if poster, err := r.load(cmd.Op, r.opts.Posters, cmd.Source); err == nil {
			drawFitted(dc, poster, w, h)
		} else {
			r.log.Debug("no poster", "source", cmd.Source, "error", err)
		}
	}

	side := min(w, h) / 4
	cx, cy := w/2, h/2
	dc.MoveTo(cx-side/2, cy-side/2)
	dc.LineTo(cx+side/2, cy)
	dc.LineTo(cx-side/2, cy+side/2)
	dc.ClosePath()
	dc.SetColor(color.White)
	dc.Fill()
}
