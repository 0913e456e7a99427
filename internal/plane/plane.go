package plane

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	ErrInvalidGrid = errors.New("invalid grid")
	ErrAttached    = errors.New("object belongs to another plane")
)

// Change identifies what a plane Event is about.
type Change int

const (
	ObjectAdded Change = iota + 1
	ObjectRemoved
	TransformChanged
	SelectionChanged
	PayloadChanged
	ViewportChanged
	GridChanged
)

func (c Change) String() string {
	switch c {
	case ObjectAdded:
		return "object.added"
	case ObjectRemoved:
		return "object.removed"
	case TransformChanged:
		return "object.transform"
	case SelectionChanged:
		return "object.selected"
	case PayloadChanged:
		return "object.payload"
	case ViewportChanged:
		return "plane.viewport"
	case GridChanged:
		return "plane.grid"
	default:
		return fmt.Sprintf("change(%d)", int(c))
	}
}

// Event is delivered to listeners after every mutation. Object is nil for
// plane-level changes.
type Event struct {
	Change Change
	Object *Object
}

type Listener func(Event)

// Grid is the presentational reference grid: a line every Spacing plane
// units out to Extent in every direction.
type Grid struct {
	Spacing float64 `json:"spacing"`
	Extent  float64 `json:"extent"`
}

// DefaultGrid is 1000 cells of 50 units each side of the origin.
func DefaultGrid() Grid {
	return Grid{Spacing: 50, Extent: 50 * 1000}
}

// MaxGridLines bounds the lines a grid may have along one axis.
const MaxGridLines = 100_000

// Valid reports whether both spacing and extent are positive and finite,
// and the grid has at most MaxGridLines lines per axis.
func (g Grid) Valid() bool {
	if !(g.Spacing > 0 && g.Extent > 0) || math.IsInf(g.Extent, 0) || math.IsInf(g.Spacing, 0) {
		return false
	}
	return 2*g.Extent/g.Spacing <= MaxGridLines
}

// Line is a segment in plane space.
type Line struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

type listenerEntry struct {
	id int
	fn Listener
}

// Plane is the unbounded surface holding objects. Insertion order is
// z-order: the last object added is drawn last and wins hit tests.
//
// A Plane is not safe for concurrent use; callers that touch it from
// several goroutines must serialise access.
type Plane struct {
	objects  []*Object
	grid     Grid
	viewport Transform

	minZoom float64
	maxZoom float64

	listeners []listenerEntry
	nextID    int
}

// New creates an empty plane with the default grid and identity viewport.
func New() *Plane {
	return &Plane{
		grid:     DefaultGrid(),
		viewport: NewTransform(Point{}, Point{}),
	}
}

// Subscribe registers fn for every subsequent Event. The returned func
// removes it.
func (p *Plane) Subscribe(fn Listener) func() {
	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		p.listeners = slices.DeleteFunc(p.listeners, func(e listenerEntry) bool { return e.id == id })
	}
}

func (p *Plane) emit(e Event) {
	for _, l := range slices.Clone(p.listeners) {
		l.fn(e)
	}
}

// Add appends obj on top of the z-order. Adding a member again is a no-op.
func (p *Plane) Add(obj *Object) error {
	if obj == nil {
		return errors.New("nil object")
	}
	if obj.owner == p {
		return nil
	}
	if obj.owner != nil {
		return fmt.Errorf("%w: %s", ErrAttached, obj.id)
	}

	obj.owner = p
	p.objects = append(p.objects, obj)
	p.emit(Event{Change: ObjectAdded, Object: obj})
	return nil
}

// Remove detaches obj, clearing its selection and resetting its
// transform. Removing a non-member is a no-op and reports false.
func (p *Plane) Remove(obj *Object) bool {
	if obj == nil || obj.owner != p {
		return false
	}
	i := slices.Index(p.objects, obj)
	if i < 0 {
		return false
	}

	obj.SetSelected(false)
	p.objects = slices.Delete(p.objects, i, i+1)
	p.emit(Event{Change: ObjectRemoved, Object: obj})

	obj.owner = nil
	obj.transform = NewTransform(Point{}, obj.transform.Pivot)
	return true
}

// Objects returns the objects in z-order, bottom first.
func (p *Plane) Objects() []*Object {
	return slices.Clone(p.objects)
}

func (p *Plane) Len() int { return len(p.objects) }

// Object looks up a member by id.
func (p *Plane) Object(id string) (*Object, bool) {
	for _, o := range p.objects {
		if o.id == id {
			return o, true
		}
	}
	return nil, false
}

// Selected returns the selected members in z-order.
func (p *Plane) Selected() []*Object {
	var out []*Object
	for _, o := range p.objects {
		if o.selected {
			out = append(out, o)
		}
	}
	return out
}

// HitTest returns the topmost object containing the plane-space point.
func (p *Plane) HitTest(pt Point) *Object {
	for i := len(p.objects) - 1; i >= 0; i-- {
		if p.objects[i].ContainsPoint(pt) {
			return p.objects[i]
		}
	}
	return nil
}

// ToPlaneSpace converts a viewport (screen) coordinate into plane space.
// Every input coordinate must pass through here before object tests.
func (p *Plane) ToPlaneSpace(viewportPoint Point) Point {
	return p.viewport.ToLocal(viewportPoint)
}

// ToViewportSpace converts a plane coordinate to the viewport.
func (p *Plane) ToViewportSpace(planePoint Point) Point {
	return p.viewport.ToPlane(planePoint)
}

func (p *Plane) Viewport() Transform { return p.viewport }

// ScreenMatrix is the resolved local-to-viewport matrix of obj.
func (p *Plane) ScreenMatrix(obj *Object) Matrix2D {
	return p.viewport.Matrix().Multiply(obj.Matrix())
}

// SetZoomLimits bounds the viewport scale. Zero disables a bound.
func (p *Plane) SetZoomLimits(minZoom, maxZoom float64) error {
	if minZoom < 0 || maxZoom < 0 || (maxZoom > 0 && minZoom > maxZoom) {
		return fmt.Errorf("%w: zoom limits [%v, %v]", ErrInvalidTransform, minZoom, maxZoom)
	}
	p.minZoom, p.maxZoom = minZoom, maxZoom
	return nil
}

// TransformViewport applies a pan/zoom/rotate gesture expressed in
// viewport coordinates. A rejected gesture leaves the viewport unchanged.
func (p *Plane) TransformViewport(center, pan Point, factor, rotation float64) error {
	next, err := p.viewport.Composed(center, pan, factor, rotation)
	if err != nil {
		return err
	}
	if p.minZoom > 0 && next.Scale < p.minZoom {
		return fmt.Errorf("%w: zoom %v below %v", ErrInvalidTransform, next.Scale, p.minZoom)
	}
	if p.maxZoom > 0 && next.Scale > p.maxZoom {
		return fmt.Errorf("%w: zoom %v above %v", ErrInvalidTransform, next.Scale, p.maxZoom)
	}
	if next == p.viewport {
		return nil
	}
	p.viewport = next
	p.emit(Event{Change: ViewportChanged})
	return nil
}

// SetViewport replaces the viewport transform, subject to the zoom limits.
func (p *Plane) SetViewport(t Transform) error {
	if !validScale(t.Scale) {
		return fmt.Errorf("%w: viewport scale %v", ErrInvalidTransform, t.Scale)
	}
	if (p.minZoom > 0 && t.Scale < p.minZoom) || (p.maxZoom > 0 && t.Scale > p.maxZoom) {
		return fmt.Errorf("%w: zoom %v outside [%v, %v]", ErrInvalidTransform, t.Scale, p.minZoom, p.maxZoom)
	}
	p.viewport = t
	p.emit(Event{Change: ViewportChanged})
	return nil
}

// ResetViewport restores the identity viewport.
func (p *Plane) ResetViewport() {
	p.viewport = NewTransform(Point{}, Point{})
	p.emit(Event{Change: ViewportChanged})
}

func (p *Plane) Grid() Grid { return p.grid }

func (p *Plane) SetGrid(g Grid) error {
	if !g.Valid() {
		return fmt.Errorf("%w: spacing %v extent %v", ErrInvalidGrid, g.Spacing, g.Extent)
	}
	p.grid = g
	p.emit(Event{Change: GridChanged})
	return nil
}

// GridLines returns every grid line of the plane.
func (p *Plane) GridLines() []Line {
	e := p.grid.Extent
	return p.GridLinesWithin(Rect{X: -e, Y: -e, Width: 2 * e, Height: 2 * e})
}

// GridLinesWithin returns the grid lines crossing r, clipped to r. Lines
// sit at -Extent + k*Spacing for every k with a position below Extent.
func (p *Plane) GridLinesWithin(r Rect) []Line {
	g := p.grid
	lo := Point{max(r.X, -g.Extent), max(r.Y, -g.Extent)}
	hi := Point{min(r.X+r.Width, g.Extent), min(r.Y+r.Height, g.Extent)}
	if lo.X > hi.X || lo.Y > hi.Y {
		return nil
	}

	var lines []Line
	for _, x := range gridPositions(g, lo.X, hi.X) {
		lines = append(lines, Line{From: Point{x, lo.Y}, To: Point{x, hi.Y}})
	}
	for _, y := range gridPositions(g, lo.Y, hi.Y) {
		lines = append(lines, Line{From: Point{lo.X, y}, To: Point{hi.X, y}})
	}
	return lines
}

func gridPositions(g Grid, lo, hi float64) []float64 {
	first := int(math.Ceil((lo + g.Extent) / g.Spacing))
	var out []float64
	for k := max(first, 0); ; k++ {
		v := -g.Extent + float64(k)*g.Spacing
		if v >= g.Extent || v > hi {
			break
		}
		out = append(out, v)
	}
	return out
}
