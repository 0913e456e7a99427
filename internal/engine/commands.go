package engine

import (
	"encoding/json"
	"math"

	"github.com/presemt/presemt/backend-go/internal/plane"
	"github.com/presemt/presemt/backend-go/internal/selection"
)

// Colors of the editor chrome.
const (
	GridColor      = "rgba(26,26,26,0.9)"
	SelectionColor = "#3b82f6"
	LassoColor     = "rgba(59,130,246,0.8)"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "path", "text", "image", "video"
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] local-to-viewport matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width, in local units like lineWidth
	Width       float64       `json:"width,omitempty"`       // Local box of objects
	Height      float64       `json:"height,omitempty"`
	Text        string        `json:"text,omitempty"`
	FontSize    float64       `json:"fontSize,omitempty"`
	Source      string        `json:"source,omitempty"` // Image or video URL
	Selected    bool          `json:"selected,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Z"].
type PathCommand []interface{}

// CompileDrawCommands generates the draw command buffer for p as seen
// through a viewport of the given size. Commands are in painter's order
// (back to front): grid, objects bottom first with their selection
// outlines, then the lasso in progress.
func CompileDrawCommands(p *plane.Plane, lasso selection.Polygon, viewportSize plane.Size) []DrawCommand {
	viewport := p.Viewport().Matrix()
	scale := p.Viewport().Scale

	commands := []DrawCommand{}

	visible := viewport.Invert().TransformRect(plane.Rect{Width: viewportSize.Width, Height: viewportSize.Height})
	if lines := p.GridLinesWithin(visible); len(lines) > 0 {
		path := make([]PathCommand, 0, 2*len(lines))
		for _, l := range lines {
			path = append(path, PathCommand{"M", l.From.X, l.From.Y}, PathCommand{"L", l.To.X, l.To.Y})
		}
		commands = append(commands, DrawCommand{
			Op:          "path",
			Transform:   viewport.ToSlice(),
			Path:        path,
			Stroke:      GridColor,
			StrokeWidth: 1 / scale,
		})
	}

	for _, o := range p.Objects() {
		sm := p.ScreenMatrix(o)
		m := sm.ToSlice()
		size := o.Size()
		cmd := DrawCommand{
			Op:        o.Kind().String(),
			ObjectID:  o.ID(),
			Transform: m,
			Width:     size.Width,
			Height:    size.Height,
			Selected:  o.Selected(),
		}
		switch payload := o.RenderPayload().(type) {
		case plane.TextPayload:
			cmd.Text = payload.Text
			cmd.FontSize = payload.FontSize
		case plane.ImagePayload:
			cmd.Source = payload.Source
		case plane.VideoPayload:
			cmd.Source = payload.Source
		}
		commands = append(commands, cmd)

		if o.Selected() {
			commands = append(commands, DrawCommand{
				Op:          "path",
				ObjectID:    o.ID(),
				Transform:   m,
				Path:        rectPath(size.Width, size.Height),
				Stroke:      SelectionColor,
				StrokeWidth: 2 / math.Hypot(sm[0], sm[1]),
			})
		}
	}

	if len(lasso) > 1 {
		path := make([]PathCommand, 0, len(lasso))
		for i, pt := range lasso {
			op := "L"
			if i == 0 {
				op = "M"
			}
			path = append(path, PathCommand{op, pt.X, pt.Y})
		}
		commands = append(commands, DrawCommand{
			Op:          "path",
			Transform:   viewport.ToSlice(),
			Path:        path,
			Stroke:      LassoColor,
			StrokeWidth: 2 / scale,
		})
	}

	return commands
}

// rectPath generates path commands for a rectangle.
func rectPath(w, h float64) []PathCommand {
	return []PathCommand{
		{"M", 0.0, 0.0},
		{"L", w, 0.0},
		{"L", w, h},
		{"L", 0.0, h},
		{"Z"},
	}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r plane.Rect) string {
	data, _ := json.Marshal(r)
	return string(data)
}
