package plane

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedKind = errors.New("unsupported object kind")

// Kind is the closed set of plane object variants.
type Kind int

const (
	KindText Kind = iota + 1
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "text":
		return KindText, nil
	case "image":
		return KindImage, nil
	case "video":
		return KindVideo, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Kind) valid() bool {
	return k == KindText || k == KindImage || k == KindVideo
}

// Payload is the kind-specific content of an object. The set of
// implementations is closed: TextPayload, ImagePayload, VideoPayload.
type Payload interface {
	Kind() Kind
	payload()
}

type TextPayload struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
}

type ImagePayload struct {
	Source string `json:"source"`
}

type VideoPayload struct {
	Source string `json:"source"`
}

func (TextPayload) Kind() Kind  { return KindText }
func (ImagePayload) Kind() Kind { return KindImage }
func (VideoPayload) Kind() Kind { return KindVideo }

func (TextPayload) payload()  {}
func (ImagePayload) payload() {}
func (VideoPayload) payload() {}

// Object is a transformable, selectable entity on a Plane. Its local
// frame spans (0,0)-(Size); scale and rotation apply about the local
// center, which is also the reference point used for lasso selection.
type Object struct {
	id        string
	kind      Kind
	payload   Payload
	size      Size
	transform Transform
	selected  bool

	owner *Plane
}

// NewObject builds an object whose center sits at center, with identity
// rotation and unit scale. Nothing is added to any plane.
func NewObject(id string, kind Kind, payload Payload, size Size, center Point) (*Object, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKind, kind)
	}
	if payload == nil || payload.Kind() != kind {
		return nil, fmt.Errorf("%w: payload does not match %v", ErrUnsupportedKind, kind)
	}
	if !size.Valid() {
		return nil, fmt.Errorf("%w: size %vx%v", ErrInvalidTransform, size.Width, size.Height)
	}

	pivot := Point{size.Width / 2, size.Height / 2}
	return &Object{
		id:        id,
		kind:      kind,
		payload:   payload,
		size:      size,
		transform: NewTransform(center.Sub(pivot), pivot),
	}, nil
}

func (o *Object) ID() string { return o.id }

func (o *Object) Kind() Kind { return o.kind }

// RenderPayload returns the kind-specific content; callers switch on its
// concrete type.
func (o *Object) RenderPayload() Payload { return o.payload }

func (o *Object) Size() Size { return o.size }

func (o *Object) Transform() Transform { return o.transform }

func (o *Object) Matrix() Matrix2D { return o.transform.Matrix() }

func (o *Object) Selected() bool { return o.selected }

// Attached reports whether the object currently belongs to a plane.
func (o *Object) Attached() bool { return o.owner != nil }

// LocalBounds is the object's extent in its own frame.
func (o *Object) LocalBounds() Rect {
	return Rect{Width: o.size.Width, Height: o.size.Height}
}

// Center is the plane-space reference point of the object.
func (o *Object) Center() Point {
	return o.transform.Origin()
}

// Bounds is the plane-space axis-aligned box around the transformed object.
func (o *Object) Bounds() Rect {
	return o.Matrix().TransformRect(o.LocalBounds())
}

// ContainsPoint tests a plane-space point against the object's local
// bounding box.
func (o *Object) ContainsPoint(p Point) bool {
	local := o.transform.ToLocal(p)
	return o.LocalBounds().Contains(local.X, local.Y)
}

func (o *Object) ApplyDrag(delta Point) {
	if delta == (Point{}) {
		return
	}
	o.transform.ApplyDrag(delta)
	o.notify(TransformChanged)
}

func (o *Object) SetCenter(c Point) {
	o.ApplyDrag(c.Sub(o.Center()))
}

func (o *Object) SetCenterX(x float64) {
	o.ApplyDrag(Point{X: x - o.Center().X})
}

func (o *Object) SetScale(s float64) error {
	if err := o.transform.SetScale(s); err != nil {
		return err
	}
	o.notify(TransformChanged)
	return nil
}

func (o *Object) SetRotation(radians float64) {
	o.transform.SetRotation(radians)
	o.notify(TransformChanged)
}

func (o *Object) SetSelected(selected bool) {
	if o.selected == selected {
		return
	}
	o.selected = selected
	o.notify(SelectionChanged)
}

// SetPayload replaces the content of the object, keeping its kind and
// its center. The local frame is resized to size.
func (o *Object) SetPayload(payload Payload, size Size) error {
	if payload == nil || payload.Kind() != o.kind {
		return fmt.Errorf("%w: payload does not match %v", ErrUnsupportedKind, o.kind)
	}
	if !size.Valid() {
		return fmt.Errorf("%w: size %vx%v", ErrInvalidTransform, size.Width, size.Height)
	}

	center := o.Center()
	pivot := Point{size.Width / 2, size.Height / 2}
	o.payload = payload
	o.size = size
	o.transform.Pivot = pivot
	o.transform.Translation = center.Sub(pivot)
	o.notify(PayloadChanged)
	return nil
}

func (o *Object) notify(c Change) {
	if o.owner != nil {
		o.owner.emit(Event{Change: c, Object: o})
	}
}

func (o *Object) String() string {
	return fmt.Sprintf("%s(%s)", o.kind, o.id)
}
