package plane

import (
	"errors"
	"math"
	"testing"
)

func TestPlaneHitTestTopmostWins(t *testing.T) {
	p := New()
	a := mustObject(t, "a", Size{100, 100}, Point{0, 0})
	b := mustObject(t, "b", Size{100, 100}, Point{20, 20})
	for _, o := range []*Object{a, b} {
		if err := p.Add(o); err != nil {
			t.Fatal(err)
		}
	}

	if got := p.HitTest(Point{10, 10}); got != b {
		t.Errorf("HitTest in overlap = %v, want b", got)
	}
	if got := p.HitTest(Point{-45, -45}); got != a {
		t.Errorf("HitTest only in a = %v, want a", got)
	}
	if got := p.HitTest(Point{500, 500}); got != nil {
		t.Errorf("HitTest on empty space = %v, want nil", got)
	}
}

func TestPlaneAddRemove(t *testing.T) {
	p := New()
	a := mustObject(t, "a", Size{10, 10}, Point{50, 50})

	if err := p.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(a); err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d after double add", p.Len())
	}

	other := New()
	if err := other.Add(a); !errors.Is(err, ErrAttached) {
		t.Errorf("Add to second plane error = %v", err)
	}

	a.SetSelected(true)
	if !p.Remove(a) {
		t.Fatal("Remove returned false for member")
	}
	if a.Selected() {
		t.Error("removed object still selected")
	}
	if a.Attached() {
		t.Error("removed object still attached")
	}
	if a.Center() == (Point{50, 50}) {
		t.Error("removed object kept its transform")
	}
	if p.Remove(a) {
		t.Error("second Remove reported true")
	}
	if p.Remove(nil) {
		t.Error("Remove(nil) reported true")
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d", p.Len())
	}
}

func TestPlaneListeners(t *testing.T) {
	p := New()
	var got []Change
	unsubscribe := p.Subscribe(func(e Event) { got = append(got, e.Change) })

	a := mustObject(t, "a", Size{10, 10}, Point{})
	if err := p.Add(a); err != nil {
		t.Fatal(err)
	}
	a.ApplyDrag(Point{1, 0})
	a.ApplyDrag(Point{}) // no-op, no event
	a.SetSelected(true)
	a.SetSelected(true) // unchanged, no event
	if err := p.TransformViewport(Point{}, Point{3, 3}, 1, 0); err != nil {
		t.Fatal(err)
	}
	p.Remove(a)
	a.ApplyDrag(Point{1, 1}) // detached, no event

	unsubscribe()
	if err := p.SetGrid(Grid{Spacing: 10, Extent: 100}); err != nil {
		t.Fatal(err)
	}

	want := []Change{ObjectAdded, TransformChanged, SelectionChanged, ViewportChanged, SelectionChanged, ObjectRemoved}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPlaneViewportConversion(t *testing.T) {
	p := New()
	// Zoom 2x about the viewport origin, then pan by (100, 0).
	if err := p.TransformViewport(Point{}, Point{100, 0}, 2, 0); err != nil {
		t.Fatal(err)
	}

	if got := p.ToPlaneSpace(Point{100, 0}); !near(got, Point{}) {
		t.Errorf("ToPlaneSpace((100,0)) = %v, want origin", got)
	}
	if got := p.ToPlaneSpace(Point{120, 40}); !near(got, Point{10, 20}) {
		t.Errorf("ToPlaneSpace((120,40)) = %v, want (10,20)", got)
	}
	if got := p.ToViewportSpace(Point{10, 20}); !near(got, Point{120, 40}) {
		t.Errorf("ToViewportSpace((10,20)) = %v", got)
	}

	// Hit testing goes through plane space, so zoom does not desync it.
	o := mustObject(t, "a", Size{10, 10}, Point{10, 20})
	if err := p.Add(o); err != nil {
		t.Fatal(err)
	}
	if got := p.HitTest(p.ToPlaneSpace(Point{128, 48})); got != o {
		t.Errorf("HitTest through zoomed viewport = %v", got)
	}
	m := p.ScreenMatrix(o)
	if got := m.Apply(Point{5, 5}); !near(got, Point{120, 40}) {
		t.Errorf("ScreenMatrix maps local center to %v", got)
	}
}

func TestPlaneZoomLimits(t *testing.T) {
	p := New()
	if err := p.SetZoomLimits(0.5, 4); err != nil {
		t.Fatal(err)
	}
	if err := p.TransformViewport(Point{}, Point{}, 8, 0); !errors.Is(err, ErrInvalidTransform) {
		t.Errorf("zoom past max error = %v", err)
	}
	if p.Viewport().Scale != 1 {
		t.Errorf("rejected zoom changed scale to %v", p.Viewport().Scale)
	}
	if err := p.TransformViewport(Point{}, Point{}, 0.25, 0); !errors.Is(err, ErrInvalidTransform) {
		t.Errorf("zoom past min error = %v", err)
	}
	if err := p.SetZoomLimits(4, 1); !errors.Is(err, ErrInvalidTransform) {
		t.Errorf("inverted limits error = %v", err)
	}

	if err := p.SetViewport(Transform{Scale: 10}); !errors.Is(err, ErrInvalidTransform) {
		t.Errorf("SetViewport past max error = %v", err)
	}
	if err := p.SetViewport(Transform{Scale: 2, Translation: Point{5, 5}}); err != nil {
		t.Fatal(err)
	}
	p.ResetViewport()
	if p.Viewport() != NewTransform(Point{}, Point{}) {
		t.Errorf("ResetViewport left %+v", p.Viewport())
	}
}

func TestGridValid(t *testing.T) {
	tests := []struct {
		name string
		grid Grid
		want bool
	}{
		{"default", DefaultGrid(), true},
		{"zero spacing", Grid{Spacing: 0, Extent: 10}, false},
		{"negative extent", Grid{Spacing: 10, Extent: -10}, false},
		{"nan spacing", Grid{Spacing: math.NaN(), Extent: 10}, false},
		{"infinite extent", Grid{Spacing: 10, Extent: math.Inf(1)}, false},
		{"at line limit", Grid{Spacing: 1, Extent: MaxGridLines / 2}, true},
		{"too dense", Grid{Spacing: 0.001, Extent: 50000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.grid.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlaneGrid(t *testing.T) {
	p := New()
	for _, g := range []Grid{{Spacing: 0, Extent: 10}, {Spacing: 0.001, Extent: 50000}} {
		if err := p.SetGrid(g); !errors.Is(err, ErrInvalidGrid) {
			t.Errorf("SetGrid(%+v) error = %v", g, err)
		}
	}
	if p.Grid() != DefaultGrid() {
		t.Errorf("rejected grid applied: %+v", p.Grid())
	}

	if err := p.SetGrid(Grid{Spacing: 50, Extent: 100}); err != nil {
		t.Fatal(err)
	}
	lines := p.GridLines()
	// Positions -100, -50, 0, 50 on each axis.
	if len(lines) != 8 {
		t.Fatalf("len(GridLines()) = %d, want 8", len(lines))
	}
	if lines[0] != (Line{From: Point{-100, -100}, To: Point{-100, 100}}) {
		t.Errorf("first line = %+v", lines[0])
	}

	within := p.GridLinesWithin(Rect{X: -10, Y: -10, Width: 70, Height: 20})
	// x in {0, 50}, y in {0}.
	if len(within) != 3 {
		t.Fatalf("GridLinesWithin = %+v", within)
	}
	if within[2] != (Line{From: Point{-10, 0}, To: Point{60, 0}}) {
		t.Errorf("clipped horizontal line = %+v", within[2])
	}
	if got := p.GridLinesWithin(Rect{X: 500, Y: 500, Width: 10, Height: 10}); got != nil {
		t.Errorf("lines outside extent = %+v", got)
	}
}
