package plane

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidTransform = errors.New("invalid transform")

// Transform is the affine state of an object (or of the plane viewport).
// Scale and rotation are applied about Pivot, a point in local
// coordinates; Translation places the local origin on the plane, so the
// pivot lands on Translation+Pivot regardless of scale and rotation.
type Transform struct {
	Translation Point   `json:"translation"`
	Scale       float64 `json:"scale"`
	Rotation    float64 `json:"rotation"` // radians
	Pivot       Point   `json:"pivot"`
}

// NewTransform returns an unrotated, unscaled transform.
func NewTransform(translation, pivot Point) Transform {
	return Transform{Translation: translation, Scale: 1, Pivot: pivot}
}

// Matrix returns the local-to-plane matrix.
func (t Transform) Matrix() Matrix2D {
	return FromTransform(
		t.Translation.X, t.Translation.Y,
		t.Scale, t.Scale,
		t.Rotation,
		t.Pivot.X, t.Pivot.Y,
	)
}

// Origin is the plane position of the pivot.
func (t Transform) Origin() Point {
	return t.Translation.Add(t.Pivot)
}

// ToPlane maps a local point into plane coordinates.
func (t Transform) ToPlane(p Point) Point {
	return p.Sub(t.Pivot).Scale(t.Scale).Rotate(t.Rotation).Add(t.Origin())
}

// ToLocal maps a plane point into local coordinates, undoing translation,
// rotation and scale in reverse order of application.
func (t Transform) ToLocal(p Point) Point {
	return p.Sub(t.Origin()).Rotate(-t.Rotation).Scale(1 / t.Scale).Add(t.Pivot)
}

// ApplyDrag translates by delta. Objects may be moved anywhere.
func (t *Transform) ApplyDrag(delta Point) {
	t.Translation = t.Translation.Add(delta)
}

// SetScale rejects non-positive and non-finite values, leaving t untouched.
func (t *Transform) SetScale(s float64) error {
	if !validScale(s) {
		return fmt.Errorf("%w: scale %v", ErrInvalidTransform, s)
	}
	t.Scale = s
	return nil
}

func (t *Transform) SetRotation(radians float64) {
	t.Rotation = radians
}

// Composed returns t preceded by a gesture: scale by factor and rotate by
// rotation about center, then translate by pan. All values are in the
// space t maps into.
func (t Transform) Composed(center, pan Point, factor, rotation float64) (Transform, error) {
	if !validScale(factor) {
		return t, fmt.Errorf("%w: gesture factor %v", ErrInvalidTransform, factor)
	}
	if math.IsNaN(rotation) || math.IsInf(rotation, 0) {
		return t, fmt.Errorf("%w: gesture rotation %v", ErrInvalidTransform, rotation)
	}
	if math.IsNaN(pan.X) || math.IsNaN(pan.Y) {
		return t, fmt.Errorf("%w: gesture pan %v", ErrInvalidTransform, pan)
	}

	origin := t.Origin().Sub(center).Rotate(rotation).Scale(factor).Add(center).Add(pan)

	next := t
	next.Scale = t.Scale * factor
	next.Rotation = t.Rotation + rotation
	next.Translation = origin.Sub(t.Pivot)
	if !validScale(next.Scale) {
		return t, fmt.Errorf("%w: scale %v", ErrInvalidTransform, next.Scale)
	}
	return next, nil
}

func validScale(s float64) bool {
	return s > 0 && !math.IsInf(s, 0) && !math.IsNaN(s)
}
