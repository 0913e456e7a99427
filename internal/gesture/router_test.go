package gesture

import (
	"math"
	"testing"
	"time"

	"golang.org/x/mobile/event/touch"

	"github.com/presemt/presemt/backend-go/internal/plane"
	"github.com/presemt/presemt/backend-go/internal/selection"
)

const ms = time.Millisecond

// setTime pins the router clock to at for the rest of the test.
func setTime(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func ev(typ touch.Type, seq touch.Sequence, x, y float32) touch.Event {
	return touch.Event{X: x, Y: y, Sequence: seq, Type: typ}
}

func begin(seq touch.Sequence, x, y float32) touch.Event { return ev(touch.TypeBegin, seq, x, y) }
func move(seq touch.Sequence, x, y float32) touch.Event  { return ev(touch.TypeMove, seq, x, y) }
func end(seq touch.Sequence, x, y float32) touch.Event   { return ev(touch.TypeEnd, seq, x, y) }

type fixture struct {
	plane *plane.Plane
	lasso *selection.State
	r     *Router
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	setTime(t, time.Unix(1000, 0))
	p := plane.New()
	lasso := &selection.State{}
	return &fixture{plane: p, lasso: lasso, r: New(p, lasso, opts)}
}

func (f *fixture) add(t *testing.T, id string, center plane.Point) *plane.Object {
	t.Helper()
	o, err := plane.NewObject(id, plane.KindText, plane.TextPayload{Text: id, FontSize: 12}, plane.Size{Width: 20, Height: 20}, center)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.plane.Add(o); err != nil {
		t.Fatal(err)
	}
	return o
}

func (f *fixture) feed(events ...touch.Event) {
	for _, e := range events {
		f.r.Handle(e)
	}
}

func near(a, b plane.Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestGrabPersistence(t *testing.T) {
	f := newFixture(t, Options{})
	o := f.add(t, "o", plane.Point{})
	f.add(t, "elsewhere", plane.Point{X: 100, Y: 100})

	f.feed(begin(1, 0, 0))
	if st, _ := f.r.State(1); st != DraggingObject || f.r.Target(1) != o {
		t.Fatalf("after down: state %v target %v", st, f.r.Target(1))
	}

	// Out of o's bounds, across another object, and back.
	f.feed(move(1, 100, 100), move(1, 300, -50), move(1, 5, 5))
	if f.r.Target(1) != o {
		t.Errorf("target changed to %v", f.r.Target(1))
	}
	if got := o.Center(); !near(got, plane.Point{X: 5, Y: 5}) {
		t.Errorf("center = %v, want (5, 5)", got)
	}

	f.feed(end(1, 5, 5))
	if _, ok := f.r.State(1); ok {
		t.Error("sequence still registered after touch-up")
	}
	f.feed(move(1, 50, 50))
	if got := o.Center(); !near(got, plane.Point{X: 5, Y: 5}) {
		t.Errorf("move after release moved object to %v", got)
	}
}

func TestDragIsScaledByViewport(t *testing.T) {
	f := newFixture(t, Options{})
	o := f.add(t, "o", plane.Point{})
	if err := f.plane.TransformViewport(plane.Point{}, plane.Point{}, 2, 0); err != nil {
		t.Fatal(err)
	}

	f.feed(begin(1, 0, 0), move(1, 20, 0), end(1, 20, 0))
	if got := o.Center(); !near(got, plane.Point{X: 10}) {
		t.Errorf("center = %v, want (10, 0)", got)
	}
}

func TestIndependentStreams(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.add(t, "a", plane.Point{})
	b := f.add(t, "b", plane.Point{X: 100})

	f.feed(begin(1, 0, 0), begin(2, 100, 0))
	f.feed(move(1, 0, 10), move(2, 100, -10), move(1, 0, 20))
	f.feed(end(1, 0, 20), end(2, 100, -10))

	if got := a.Center(); !near(got, plane.Point{Y: 20}) {
		t.Errorf("a center = %v", got)
	}
	if got := b.Center(); !near(got, plane.Point{X: 100, Y: -10}) {
		t.Errorf("b center = %v", got)
	}
	if f.r.Active() != 0 {
		t.Errorf("Active() = %d", f.r.Active())
	}
}

func TestDoubleTapConfigures(t *testing.T) {
	base := time.Unix(1000, 0)

	tests := []struct {
		name      string
		gap       time.Duration
		second    plane.Point
		configure bool
	}{
		{"quick and close", 100 * ms, plane.Point{X: -6, Y: -9}, true},
		{"too slow", 400 * ms, plane.Point{X: -9, Y: -9}, false},
		{"too far", 100 * ms, plane.Point{X: 9, Y: 9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Options{})
			o := f.add(t, "o", plane.Point{})
			var configured []*plane.Object
			f.r.OnConfigure = func(obj *plane.Object) { configured = append(configured, obj) }

			setTime(t, base)
			f.feed(begin(1, -9, -9), end(1, -9, -9))
			setTime(t, base.Add(tt.gap))
			f.feed(begin(2, float32(tt.second.X), float32(tt.second.Y)))

			st, _ := f.r.State(2)
			if tt.configure {
				if len(configured) != 1 || configured[0] != o {
					t.Fatalf("configured = %v", configured)
				}
				if st != Idle {
					t.Errorf("state after double tap = %v, want idle", st)
				}
				f.feed(move(2, 50, 50))
				if got := o.Center(); !near(got, plane.Point{}) {
					t.Errorf("double tap stream dragged object to %v", got)
				}
				return
			}
			if len(configured) != 0 {
				t.Errorf("configured = %v, want none", configured)
			}
			if st != DraggingObject {
				t.Errorf("state = %v, want dragging", st)
			}
		})
	}
}

func TestAdjacentFingersGrabTheirOwnObjects(t *testing.T) {
	f := newFixture(t, Options{})
	a := f.add(t, "a", plane.Point{})
	b := f.add(t, "b", plane.Point{X: 15})
	configured := 0
	f.r.OnConfigure = func(*plane.Object) { configured++ }

	// Both fingers land at the same instant, 12 units apart.
	f.feed(begin(1, 0, 0), begin(2, 12, 0))
	if configured != 0 {
		t.Errorf("configured %d objects, want none", configured)
	}
	for seq, want := range map[touch.Sequence]*plane.Object{1: a, 2: b} {
		if st, _ := f.r.State(seq); st != DraggingObject || f.r.Target(seq) != want {
			t.Errorf("seq %d: state %v target %v, want dragging %v", seq, st, f.r.Target(seq), want)
		}
	}

	f.feed(move(2, 12, 30), end(2, 12, 30), end(1, 0, 0))
	if got := b.Center(); !near(got, plane.Point{X: 15, Y: 30}) {
		t.Errorf("b center = %v", got)
	}
	if got := a.Center(); !near(got, plane.Point{}) {
		t.Errorf("a center = %v", got)
	}
}

func TestThirdTapStartsOver(t *testing.T) {
	f := newFixture(t, Options{})
	f.add(t, "o", plane.Point{})
	configured := 0
	f.r.OnConfigure = func(*plane.Object) { configured++ }

	f.feed(begin(1, 0, 0), end(1, 0, 0))
	f.feed(begin(2, 0, 0), end(2, 0, 0))
	f.feed(begin(3, 0, 0))
	if configured != 1 {
		t.Fatalf("configured = %d, want 1", configured)
	}
	if st, _ := f.r.State(3); st != DraggingObject {
		t.Errorf("third tap state = %v, want dragging", st)
	}
	f.feed(end(3, 0, 0), begin(4, 0, 0))
	if configured != 2 {
		t.Errorf("configured = %d after fourth tap, want 2", configured)
	}
}

func TestLasso(t *testing.T) {
	f := newFixture(t, Options{ArmSelection: true})
	in := f.add(t, "in", plane.Point{X: 50, Y: 50})
	out := f.add(t, "out", plane.Point{X: 200, Y: 50})

	f.feed(begin(1, 0, 0))
	if st, _ := f.r.State(1); st != Lassoing || !f.lasso.Active {
		t.Fatalf("state = %v, lasso active = %v", st, f.lasso.Active)
	}

	// A second empty-space touch while the lasso runs is ignored.
	f.feed(begin(2, 300, 300), move(2, 310, 310))
	if st, _ := f.r.State(2); st != Idle {
		t.Errorf("second touch state = %v, want idle", st)
	}

	f.feed(move(1, 100, 0), move(1, 100, 100), move(1, 0, 100))
	if len(f.lasso.Polygon) != 4 {
		t.Errorf("polygon = %v", f.lasso.Polygon)
	}
	f.feed(end(1, 0, 100), end(2, 310, 310))

	if f.lasso.Active {
		t.Error("lasso still active after touch-up")
	}
	if !in.Selected() || out.Selected() {
		t.Errorf("selection: in=%v out=%v", in.Selected(), out.Selected())
	}

	// Flags persist until cancelled; a later drag does not clear them.
	f.feed(begin(3, 50, 50), move(3, 60, 50), end(3, 60, 50))
	if !in.Selected() {
		t.Error("selection lost after drag")
	}
}

func TestLassoUsesPlaneSpace(t *testing.T) {
	f := newFixture(t, Options{ArmSelection: true})
	o := f.add(t, "o", plane.Point{X: 50, Y: 50})
	if err := f.plane.TransformViewport(plane.Point{}, plane.Point{}, 0.5, 0); err != nil {
		t.Fatal(err)
	}
	var got selection.Polygon
	f.r.OnLassoEnd = func(poly selection.Polygon) {
		got = poly
		selection.Evaluate(f.plane, poly)
	}

	// The object is at (25, 25) on screen.
	f.feed(begin(1, 15, 15), move(1, 35, 15), move(1, 35, 35), move(1, 15, 35), end(1, 15, 35))
	if len(got) != 4 || !near(got[0], plane.Point{X: 30, Y: 30}) {
		t.Errorf("polygon = %v", got)
	}
	if !o.Selected() {
		t.Error("object under zoomed lasso not selected")
	}
}

func TestCancelSelectionFromAnyState(t *testing.T) {
	f := newFixture(t, Options{ArmSelection: true})
	a := f.add(t, "a", plane.Point{X: 50, Y: 50})
	b := f.add(t, "b", plane.Point{X: 500, Y: 500})
	a.SetSelected(true)
	b.SetSelected(true)

	lassoEnded := false
	f.r.OnLassoEnd = func(selection.Polygon) { lassoEnded = true }

	f.feed(begin(1, 0, 0), move(1, 10, 0), begin(2, 500, 500))
	f.r.CancelSelection()

	if f.r.Active() != 0 {
		t.Errorf("Active() = %d after cancel", f.r.Active())
	}
	if f.lasso.Active || len(f.lasso.Polygon) != 0 {
		t.Errorf("lasso = %+v", f.lasso)
	}
	if a.Selected() || b.Selected() {
		t.Error("objects still selected")
	}

	f.feed(move(2, 600, 600), end(1, 10, 0), end(2, 600, 600))
	if lassoEnded {
		t.Error("cancelled lasso was evaluated")
	}
	if got := b.Center(); !near(got, plane.Point{X: 500, Y: 500}) {
		t.Errorf("cancelled grab moved b to %v", got)
	}
}

func TestPlanePan(t *testing.T) {
	f := newFixture(t, Options{})
	f.feed(begin(1, 10, 10), move(1, 40, 30), end(1, 40, 30))

	if st, ok := f.r.State(1); ok {
		t.Errorf("state after up = %v", st)
	}
	if got := f.plane.ToPlaneSpace(plane.Point{X: 40, Y: 30}); !near(got, plane.Point{X: 10, Y: 10}) {
		t.Errorf("plane point under finger = %v, want (10, 10)", got)
	}
}

func TestPlanePinch(t *testing.T) {
	t.Run("zoom", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.feed(begin(1, 0, 0), begin(2, 10, 0), move(2, 20, 0))

		if s := f.plane.Viewport().Scale; math.Abs(s-2) > 1e-9 {
			t.Errorf("scale = %v, want 2", s)
		}
		if got := f.plane.ToPlaneSpace(plane.Point{}); !near(got, plane.Point{}) {
			t.Errorf("point under still finger = %v", got)
		}
		if got := f.plane.ToPlaneSpace(plane.Point{X: 20}); !near(got, plane.Point{X: 10}) {
			t.Errorf("point under moving finger = %v, want (10, 0)", got)
		}
	})

	t.Run("rotate", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.feed(begin(1, 0, 0), begin(2, 10, 0), move(2, 0, 10))

		if r := f.plane.Viewport().Rotation; math.Abs(r-math.Pi/2) > 1e-9 {
			t.Errorf("rotation = %v, want pi/2", r)
		}
		if got := f.plane.ToPlaneSpace(plane.Point{Y: 10}); !near(got, plane.Point{X: 10}) {
			t.Errorf("point under moving finger = %v, want (10, 0)", got)
		}
	})

	t.Run("zoom limit", func(t *testing.T) {
		f := newFixture(t, Options{})
		if err := f.plane.SetZoomLimits(0.5, 1.5); err != nil {
			t.Fatal(err)
		}
		f.feed(begin(1, 0, 0), begin(2, 10, 0), move(2, 40, 0))
		if s := f.plane.Viewport().Scale; s != 1 {
			t.Errorf("scale = %v, want rejected gesture", s)
		}
	})

	t.Run("third finger only tracks", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.feed(begin(1, 0, 0), begin(2, 10, 0), begin(3, 50, 50), move(3, 90, 90))
		if vp := f.plane.Viewport(); vp != plane.NewTransform(plane.Point{}, plane.Point{}) {
			t.Errorf("third finger moved viewport: %+v", vp)
		}
	})
}

func TestFollow(t *testing.T) {
	f := newFixture(t, Options{})
	f.feed(begin(1, 30, 40))

	o, err := plane.NewObject("o", plane.KindText, plane.TextPayload{Text: "o"}, plane.Size{Width: 10, Height: 10}, plane.Point{})
	if err != nil {
		t.Fatal(err)
	}
	if f.r.Follow(1, o) {
		t.Error("Follow accepted a detached object")
	}
	if err := f.plane.Add(o); err != nil {
		t.Fatal(err)
	}
	if !f.r.Follow(1, o) {
		t.Fatal("Follow rejected an active sequence")
	}
	if got := o.Center(); !near(got, plane.Point{X: 30, Y: 40}) {
		t.Errorf("center = %v, want pointer position", got)
	}

	f.feed(move(1, 70, 80))
	if got := o.Center(); !near(got, plane.Point{X: 70, Y: 80}) {
		t.Errorf("center = %v, want (70, 80)", got)
	}
	if vp := f.plane.Viewport(); vp.Translation != (plane.Point{}) {
		t.Errorf("following sequence still moved the viewport: %+v", vp)
	}
	if f.r.Follow(9, o) {
		t.Error("Follow accepted an unknown sequence")
	}
}

func TestRemovingGrabbedObjectEndsGrab(t *testing.T) {
	f := newFixture(t, Options{})
	o := f.add(t, "o", plane.Point{})
	f.feed(begin(1, 0, 0))

	f.plane.Remove(o)
	if st, _ := f.r.State(1); st != Idle || f.r.Target(1) != nil {
		t.Errorf("state = %v target = %v", st, f.r.Target(1))
	}
	f.feed(move(1, 10, 10), end(1, 10, 10))
}
