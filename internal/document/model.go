package document

import (
	"encoding/json"
	"fmt"

	"github.com/presemt/presemt/backend-go/internal/plane"
)

// Document is the wire view of one plane: what frontends load and what
// the server hands out as a snapshot. It is not a storage format.
type Document struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Version   int          `json:"version"`
	UpdatedAt string       `json:"updatedAt"`
	Grid      Grid         `json:"grid"`
	Viewport  Transform    `json:"viewport"`
	Objects   []ObjectNode `json:"objects"` // z-order, bottom first
}

type Grid struct {
	Spacing float64 `json:"spacing"`
	Extent  float64 `json:"extent"`
}

type ObjectType string

const (
	ObjectTypeText  ObjectType = "Text"
	ObjectTypeImage ObjectType = "Image"
	ObjectTypeVideo ObjectType = "Video"
)

// Transform mirrors plane.Transform: translation, uniform scale,
// rotation in radians, and the local pivot.
type Transform struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	S  float64 `json:"s"`
	R  float64 `json:"r"`
	AX float64 `json:"ax"`
	AY float64 `json:"ay"`
}

type ObjectNode struct {
	ID        string          `json:"id"`
	Type      ObjectType      `json:"type"`
	Transform Transform       `json:"transform"`
	Width     float64         `json:"width"`
	Height    float64         `json:"height"`
	Data      json.RawMessage `json:"data"`
}

type TextData struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
}

type MediaData struct {
	Source string `json:"source"`
}

func TransformFrom(t plane.Transform) Transform {
	return Transform{
		X: t.Translation.X, Y: t.Translation.Y,
		S: t.Scale, R: t.Rotation,
		AX: t.Pivot.X, AY: t.Pivot.Y,
	}
}

func (t Transform) Plane() plane.Transform {
	return plane.Transform{
		Translation: plane.Point{X: t.X, Y: t.Y},
		Scale:       t.S,
		Rotation:    t.R,
		Pivot:       plane.Point{X: t.AX, Y: t.AY},
	}
}

// Center is the plane position of the node's pivot.
func (t Transform) Center() plane.Point {
	return plane.Point{X: t.X + t.AX, Y: t.Y + t.AY}
}

func typeFor(k plane.Kind) ObjectType {
	switch k {
	case plane.KindText:
		return ObjectTypeText
	case plane.KindImage:
		return ObjectTypeImage
	case plane.KindVideo:
		return ObjectTypeVideo
	default:
		return ObjectType(k.String())
	}
}

// Kind maps the node type back to a plane kind.
func (t ObjectType) Kind() (plane.Kind, error) {
	switch t {
	case ObjectTypeText:
		return plane.KindText, nil
	case ObjectTypeImage:
		return plane.KindImage, nil
	case ObjectTypeVideo:
		return plane.KindVideo, nil
	default:
		return 0, fmt.Errorf("%w: %q", plane.ErrUnsupportedKind, string(t))
	}
}

// NodeFrom captures the current state of obj.
func NodeFrom(obj *plane.Object) ObjectNode {
	var data any
	switch p := obj.RenderPayload().(type) {
	case plane.TextPayload:
		data = TextData{Text: p.Text, FontSize: p.FontSize}
	case plane.ImagePayload:
		data = MediaData{Source: p.Source}
	case plane.VideoPayload:
		data = MediaData{Source: p.Source}
	}
	raw, _ := json.Marshal(data)

	size := obj.Size()
	return ObjectNode{
		ID:        obj.ID(),
		Type:      typeFor(obj.Kind()),
		Transform: TransformFrom(obj.Transform()),
		Width:     size.Width,
		Height:    size.Height,
		Data:      raw,
	}
}

// Payload decodes the node data for its type.
func (n ObjectNode) Payload() (plane.Payload, error) {
	kind, err := n.Type.Kind()
	if err != nil {
		return nil, err
	}
	data := n.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	switch kind {
	case plane.KindText:
		var d TextData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("object %s: text data: %w", n.ID, err)
		}
		return plane.TextPayload{Text: d.Text, FontSize: d.FontSize}, nil
	default:
		var d MediaData
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("object %s: media data: %w", n.ID, err)
		}
		if kind == plane.KindImage {
			return plane.ImagePayload{Source: d.Source}, nil
		}
		return plane.VideoPayload{Source: d.Source}, nil
	}
}

// FromPlane builds the document view of p.
func FromPlane(id, name string, p *plane.Plane) *Document {
	g := p.Grid()
	doc := &Document{
		ID:       id,
		Name:     name,
		Version:  1,
		Grid:     Grid{Spacing: g.Spacing, Extent: g.Extent},
		Viewport: TransformFrom(p.Viewport()),
		Objects:  []ObjectNode{},
	}
	for _, o := range p.Objects() {
		doc.Objects = append(doc.Objects, NodeFrom(o))
	}
	return doc
}

// NewEmptyDocument creates a document with the default grid and no objects.
func NewEmptyDocument(id, name string) *Document {
	g := plane.DefaultGrid()
	return &Document{
		ID:       id,
		Name:     name,
		Version:  1,
		Grid:     Grid{Spacing: g.Spacing, Extent: g.Extent},
		Viewport: Transform{S: 1},
		Objects:  []ObjectNode{},
	}
}
