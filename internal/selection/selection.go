// Package selection implements lasso selection over a plane: the lasso
// state, the even-odd containment test, selection evaluation and
// center-horizontal alignment of the selected objects.
package selection

import (
	"github.com/presemt/presemt/backend-go/internal/plane"
)

// Polygon is a lasso path in plane space, treated as a closed ring.
type Polygon []plane.Point

// degenerate reports whether the polygon has fewer than 3 distinct points.
func (poly Polygon) degenerate() bool {
	var seen []plane.Point
	for _, p := range poly {
		dup := false
		for _, q := range seen {
			if p == q {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, p)
			if len(seen) == 3 {
				return false
			}
		}
	}
	return true
}

// PointInPolygon is the even-odd ray casting test. An edge toggles the
// result when min(y1, y2) < y <= max(y1, y2) and the point is left of the
// edge's crossing; horizontal edges never toggle. Points exactly on the
// boundary follow from those comparisons (a point on a left edge is
// outside, on a right edge inside).
func PointInPolygon(p plane.Point, poly Polygon) bool {
	if poly.degenerate() {
		return false
	}

	inside := false
	p1 := poly[len(poly)-1]
	for _, p2 := range poly {
		if p.Y > min(p1.Y, p2.Y) && p.Y <= max(p1.Y, p2.Y) && p.X <= max(p1.X, p2.X) {
			if p1.X == p2.X {
				inside = !inside
			} else {
				xinters := (p.Y-p1.Y)*(p2.X-p1.X)/(p2.Y-p1.Y) + p1.X
				if p.X <= xinters {
					inside = !inside
				}
			}
		}
		p1 = p2
	}
	return inside
}

// State is the in-progress lasso. Polygon is meaningful only while
// Active.
type State struct {
	Active  bool
	Polygon Polygon
}

// Begin starts a new lasso at p, discarding any previous path.
func (s *State) Begin(p plane.Point) {
	s.Active = true
	s.Polygon = Polygon{p}
}

// Append adds p to an active lasso. It reports false when no lasso is
// active.
func (s *State) Append(p plane.Point) bool {
	if !s.Active {
		return false
	}
	s.Polygon = append(s.Polygon, p)
	return true
}

// Finish ends the lasso and returns its path.
func (s *State) Finish() Polygon {
	poly := s.Polygon
	s.Active = false
	s.Polygon = nil
	return poly
}

func (s *State) Cancel() {
	s.Active = false
	s.Polygon = nil
}

// Evaluate reassigns the selected flag of every object on p: selected
// exactly when its center lies inside poly. It returns the selected
// objects in z-order.
func Evaluate(p *plane.Plane, poly Polygon) []*plane.Object {
	var selected []*plane.Object
	for _, o := range p.Objects() {
		in := PointInPolygon(o.Center(), poly)
		o.SetSelected(in)
		if in {
			selected = append(selected, o)
		}
	}
	return selected
}

// AlignSelected moves every object horizontally so its center sits on
// the middle of the objects' combined horizontal extent. Vertical
// positions are untouched; an empty set is a no-op.
func AlignSelected(objs []*plane.Object) {
	if len(objs) == 0 {
		return
	}

	b := objs[0].Bounds()
	left, right := b.Left(), b.Right()
	for _, o := range objs[1:] {
		b := o.Bounds()
		left = min(left, b.Left())
		right = max(right, b.Right())
	}

	middle := left + (right-left)/2
	for _, o := range objs {
		o.SetCenterX(middle)
	}
}

// Cancel ends any lasso and deselects every object on p.
func Cancel(p *plane.Plane, s *State) {
	s.Cancel()
	for _, o := range p.Objects() {
		o.SetSelected(false)
	}
}
