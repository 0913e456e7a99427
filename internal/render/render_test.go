package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/presemt/presemt/backend-go/internal/engine"
	"github.com/presemt/presemt/backend-go/internal/plane"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.NewEngine(engine.Options{Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	e.SetViewportSize(400, 300)
	return e
}

func at(x, y float64) engine.Placement {
	return engine.Placement{At: plane.Point{X: x, Y: y}}
}

func rgb8(c color.Color) (r, g, b uint8) {
	r16, g16, b16, _ := c.RGBA()
	return uint8(r16 >> 8), uint8(g16 >> 8), uint8(b16 >> 8)
}

func TestRenderBackgroundAndVideo(t *testing.T) {
	e := newEngine(t)
	v, err := e.CreateVideo(at(200, 150), "clip.avi")
	if err != nil {
		t.Fatal(err)
	}
	v.SetSelected(true)

	r := New(e.Measurer(), Options{Width: 400, Height: 300, Logger: quiet()})
	img := r.Render(e.Frame())
	if img.Bounds() != image.Rect(0, 0, 400, 300) {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	// Between grid lines, outside the video.
	if r, g, b := rgb8(img.At(25, 25)); r != 255 || g != 255 || b != 255 {
		t.Errorf("background = %d,%d,%d", r, g, b)
	}
	// Video spans x 40..360, y 30..270.
	if got := color.RGBAModel.Convert(img.At(60, 60)).(color.RGBA); got != videoFill {
		t.Errorf("video fill = %v", got)
	}
	if r, g, b := rgb8(img.At(200, 150)); r < 200 || g < 200 || b < 200 {
		t.Errorf("play mark = %d,%d,%d", r, g, b)
	}
	// Selection outline on the left edge.
	if r, _, b := rgb8(img.At(40, 150)); b < 200 || r > 100 {
		t.Errorf("outline = %d,_,%d", r, b)
	}
}

func TestRenderImage(t *testing.T) {
	red := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			red.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	loads := 0
	r := New(nil, Options{Width: 400, Height: 300, Logger: quiet(), Images: func(source string) (image.Image, error) {
		loads++
		if source == "missing.png" {
			return nil, errors.New("not found")
		}
		return red, nil
	}})

	e := newEngine(t)
	if _, err := e.CreateImage(at(200, 150), "red.png"); err != nil {
		t.Fatal(err)
	}
	img := r.Render(e.Frame())
	if r, g, b := rgb8(img.At(200, 150)); r != 255 || g != 0 || b != 0 {
		t.Errorf("image center = %d,%d,%d", r, g, b)
	}
	r.Render(e.Frame())
	if loads != 1 {
		t.Errorf("loads = %d, want cached after first", loads)
	}

	missing := newEngine(t)
	if _, err := missing.CreateImage(at(200, 150), "missing.png"); err != nil {
		t.Fatal(err)
	}
	img = r.Render(missing.Frame())
	if got := color.RGBAModel.Convert(img.At(100, 100)).(color.RGBA); got != placeholderFill {
		t.Errorf("placeholder = %v", got)
	}
}

func TestRenderVideoPoster(t *testing.T) {
	green := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			green.Set(x, y, color.RGBA{0, 255, 0, 255})
		}
	}
	r := New(nil, Options{Width: 400, Height: 300, Logger: quiet(), Posters: func(source string) (image.Image, error) {
		if source != "clip.avi" {
			return nil, errors.New("no poster")
		}
		return green, nil
	}})

	e := newEngine(t)
	if _, err := e.CreateVideo(at(200, 150), "clip.avi"); err != nil {
		t.Fatal(err)
	}
	img := r.Render(e.Frame())
	if r, g, b := rgb8(img.At(60, 60)); r != 0 || g != 255 || b != 0 {
		t.Errorf("poster = %d,%d,%d", r, g, b)
	}
	if r, g, b := rgb8(img.At(200, 150)); r < 200 || g < 200 || b < 200 {
		t.Errorf("play mark over poster = %d,%d,%d", r, g, b)
	}
}

func TestRenderText(t *testing.T) {
	e := newEngine(t)
	obj, err := e.CreateText(at(200, 150), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	r := New(e.Measurer(), Options{Width: 400, Height: 300, Logger: quiet()})
	img := r.Render(e.Frame())

	b := obj.Bounds()
	dark := 0
	for x := int(b.X) + 1; x < int(b.X+b.Width); x++ {
		for y := int(b.Y) + 1; y < int(b.Y+b.Height); y++ {
			if r, _, _ := rgb8(img.At(x, y)); r < 64 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("no glyph pixels inside the text bounds")
	}
}

func TestWritePNG(t *testing.T) {
	e := newEngine(t)
	r := New(e.Measurer(), Options{Logger: quiet()})
	var buf bytes.Buffer
	if err := r.WritePNG(&buf, e.Frame()); err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != int(engine.DefaultViewportSize.Width) || cfg.Height != int(engine.DefaultViewportSize.Height) {
		t.Errorf("png size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#3b82f6", want: color.NRGBA{0x3b, 0x82, 0xf6, 0xff}},
		{in: "#fff", want: color.NRGBA{0xff, 0xff, 0xff, 0xff}},
		{in: "#00000080", want: color.NRGBA{0, 0, 0, 0x80}},
		{in: "rgb(1, 2, 3)", want: color.NRGBA{1, 2, 3, 255}},
		{in: "rgba(26,26,26,0.9)", want: color.NRGBA{26, 26, 26, 229}},
		{in: "rgba(300,0,0,2)", want: color.NRGBA{255, 0, 0, 255}},
		{in: "blue", wantErr: true},
		{in: "#12345", wantErr: true},
		{in: "rgb(1,2)", wantErr: true},
		{in: "rgba(a,b,c,d)", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseColor(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
