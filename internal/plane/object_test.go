package plane

import (
	"errors"
	"math"
	"testing"
)

func mustObject(t *testing.T, id string, size Size, center Point) *Object {
	t.Helper()
	o, err := NewObject(id, KindText, TextPayload{Text: id, FontSize: 12}, size, center)
	if err != nil {
		t.Fatalf("NewObject(%s): %v", id, err)
	}
	return o
}

func TestNewObject(t *testing.T) {
	o, err := NewObject("obj_1", KindImage, ImagePayload{Source: "a.png"}, Size{100, 50}, Point{10, 10})
	if err != nil {
		t.Fatal(err)
	}
	if o.Center() != (Point{10, 10}) {
		t.Errorf("Center() = %v", o.Center())
	}
	tr := o.Transform()
	if tr.Scale != 1 || tr.Rotation != 0 {
		t.Errorf("transform = %+v, want unit scale and no rotation", tr)
	}
	if b := o.Bounds(); b != (Rect{X: -40, Y: -15, Width: 100, Height: 50}) {
		t.Errorf("Bounds() = %+v", b)
	}
	if o.Selected() || o.Attached() {
		t.Error("new object should be unselected and detached")
	}
}

func TestNewObjectRejects(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		payload Payload
		size    Size
		want    error
	}{
		{"unknown kind", Kind(42), TextPayload{}, Size{1, 1}, ErrUnsupportedKind},
		{"zero kind", 0, TextPayload{}, Size{1, 1}, ErrUnsupportedKind},
		{"nil payload", KindVideo, nil, Size{1, 1}, ErrUnsupportedKind},
		{"mismatched payload", KindVideo, ImagePayload{Source: "x.png"}, Size{1, 1}, ErrUnsupportedKind},
		{"zero size", KindText, TextPayload{Text: "x"}, Size{0, 10}, ErrInvalidTransform},
		{"infinite size", KindText, TextPayload{Text: "x"}, Size{math.Inf(1), 10}, ErrInvalidTransform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewObject("obj", tt.kind, tt.payload, tt.size, Point{})
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if o != nil {
				t.Errorf("got object %v on error", o)
			}
		})
	}
}

func TestObjectContainsPoint(t *testing.T) {
	o := mustObject(t, "a", Size{20, 10}, Point{0, 0})

	tests := []struct {
		p    Point
		want bool
	}{
		{Point{0, 0}, true},
		{Point{10, 5}, true}, // corner, inclusive
		{Point{10.01, 0}, false},
		{Point{0, 6}, false},
	}
	for _, tt := range tests {
		if got := o.ContainsPoint(tt.p); got != tt.want {
			t.Errorf("ContainsPoint(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	// After a quarter turn the box is 10 wide and 20 tall.
	o.SetRotation(math.Pi / 2)
	if !o.ContainsPoint(Point{0, 9}) {
		t.Error("rotated object should contain (0, 9)")
	}
	if o.ContainsPoint(Point{9, 0}) {
		t.Error("rotated object should not contain (9, 0)")
	}

	if err := o.SetScale(2); err != nil {
		t.Fatal(err)
	}
	if !o.ContainsPoint(Point{9, 0}) {
		t.Error("scaled object should contain (9, 0)")
	}
}

func TestObjectSetCenterX(t *testing.T) {
	o := mustObject(t, "a", Size{20, 10}, Point{5, 7})
	o.SetCenterX(100)
	if o.Center() != (Point{100, 7}) {
		t.Errorf("Center() = %v, want (100, 7)", o.Center())
	}
}

func TestObjectSetPayloadKeepsCenter(t *testing.T) {
	o := mustObject(t, "a", Size{20, 10}, Point{5, 7})
	if err := o.SetPayload(TextPayload{Text: "longer text", FontSize: 20}, Size{80, 20}); err != nil {
		t.Fatal(err)
	}
	if !near(o.Center(), Point{5, 7}) {
		t.Errorf("Center() = %v, want (5, 7)", o.Center())
	}
	if o.Size() != (Size{80, 20}) {
		t.Errorf("Size() = %v", o.Size())
	}

	err := o.SetPayload(VideoPayload{Source: "clip.avi"}, Size{1, 1})
	if !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("SetPayload(video) on text error = %v", err)
	}
	if _, ok := o.RenderPayload().(TextPayload); !ok {
		t.Errorf("payload replaced by rejected call: %T", o.RenderPayload())
	}
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{KindText, KindImage, KindVideo} {
		b, err := k.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var back Kind
		if err := back.UnmarshalText(b); err != nil || back != k {
			t.Errorf("round trip of %v: %v, %v", k, back, err)
		}
	}
	if _, err := ParseKind("audio"); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("ParseKind(audio) error = %v", err)
	}
}
