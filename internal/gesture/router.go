// Package gesture routes raw touch streams to object drags, plane
// pan/zoom/rotate and lasso selection.
package gesture

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"golang.org/x/mobile/event/touch"

	"github.com/presemt/presemt/backend-go/internal/plane"
	"github.com/presemt/presemt/backend-go/internal/selection"
)

// now is replaced in tests.
var now = time.Now

const (
	DefaultDoubleTapInterval = 250 * time.Millisecond
	DefaultDoubleTapDistance = 20
)

// State is the interaction a touch sequence is bound to.
type State uint8

const (
	Idle State = iota
	DraggingObject
	TransformingPlane
	Lassoing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DraggingObject:
		return "dragging"
	case TransformingPlane:
		return "transforming"
	case Lassoing:
		return "lassoing"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

type Options struct {
	// ArmSelection makes a touch-down on empty space start a lasso
	// instead of moving the plane.
	ArmSelection bool

	// A touch-down on an object is a double tap when it lands within
	// DoubleTapInterval and DoubleTapDistance (viewport units) of the
	// last released tap. Fingers still down never pair up.
	DoubleTapInterval time.Duration
	DoubleTapDistance float64

	Logger *slog.Logger
}

// stream is the state machine of one touch sequence.
type stream struct {
	state  State
	target *plane.Object
	follow bool
	double bool
	last   plane.Point // viewport space
}

type tap struct {
	at  time.Time
	pos plane.Point
}

// Router owns the mapping from touch identity to interaction. Each
// sequence is routed independently; a grabbed object receives every move
// of its sequence until touch-up, without re-hit-testing.
//
// Router is not safe for concurrent use.
type Router struct {
	plane *plane.Plane
	lasso *selection.State
	opts  Options
	log   *slog.Logger

	armed   bool
	streams map[touch.Sequence]*stream
	// sequences moving the plane, in the order they went down
	planeSeqs []touch.Sequence
	// last touch-up, the first half of a double tap
	lastTap *tap

	// OnConfigure is called with the object under a double tap.
	OnConfigure func(*plane.Object)
	// OnLassoEnd receives the finished lasso path. The default evaluates
	// it against the plane.
	OnLassoEnd func(selection.Polygon)

	unsubscribe func()
}

// New creates a router for p that records lasso paths into lasso.
func New(p *plane.Plane, lasso *selection.State, opts Options) *Router {
	if opts.DoubleTapInterval <= 0 {
		opts.DoubleTapInterval = DefaultDoubleTapInterval
	}
	if opts.DoubleTapDistance <= 0 {
		opts.DoubleTapDistance = DefaultDoubleTapDistance
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := &Router{
		plane:   p,
		lasso:   lasso,
		opts:    opts,
		log:     log,
		armed:   opts.ArmSelection,
		streams: make(map[touch.Sequence]*stream),
	}
	r.OnLassoEnd = func(poly selection.Polygon) {
		selection.Evaluate(p, poly)
	}
	r.unsubscribe = p.Subscribe(r.onPlaneEvent)
	return r
}

// Close detaches the router from its plane.
func (r *Router) Close() {
	r.unsubscribe()
}

func (r *Router) SetArmed(armed bool) { r.armed = armed }
func (r *Router) Armed() bool         { return r.armed }

// State returns the interaction of seq; false when seq is not down.
func (r *Router) State(seq touch.Sequence) (State, bool) {
	s, ok := r.streams[seq]
	if !ok {
		return Idle, false
	}
	return s.state, true
}

// Target returns the object grabbed by seq, if any.
func (r *Router) Target(seq touch.Sequence) *plane.Object {
	if s, ok := r.streams[seq]; ok {
		return s.target
	}
	return nil
}

// Active is the number of sequences currently down.
func (r *Router) Active() int { return len(r.streams) }

// Handle feeds one touch event, in viewport coordinates.
func (r *Router) Handle(e touch.Event) {
	pt := plane.Point{X: float64(e.X), Y: float64(e.Y)}
	switch e.Type {
	case touch.TypeBegin:
		r.down(e.Sequence, pt)
	case touch.TypeMove:
		r.move(e.Sequence, pt)
	case touch.TypeEnd:
		r.up(e.Sequence)
	}
}

func (r *Router) down(seq touch.Sequence, pt plane.Point) {
	if _, ok := r.streams[seq]; ok {
		r.log.Warn("touch began twice", "seq", seq)
		r.up(seq)
		r.lastTap = nil
	}

	s := &stream{last: pt}
	r.streams[seq] = s
	s.double = r.isDoubleTap(pt)

	planePt := r.plane.ToPlaneSpace(pt)
	if obj := r.plane.HitTest(planePt); obj != nil {
		if s.double {
			r.log.Debug("double tap", "seq", seq, "object", obj.ID())
			if r.OnConfigure != nil {
				r.OnConfigure(obj)
			}
			return
		}
		s.state = DraggingObject
		s.target = obj
		r.log.Debug("grab", "seq", seq, "object", obj.ID())
		return
	}

	switch {
	case r.armed && r.lasso.Active:
		r.log.Debug("lasso in progress, touch ignored", "seq", seq)
	case r.armed:
		s.state = Lassoing
		r.lasso.Begin(planePt)
		r.log.Debug("lasso begin", "seq", seq)
	default:
		s.state = TransformingPlane
		r.planeSeqs = append(r.planeSeqs, seq)
	}
}

func (r *Router) isDoubleTap(pt plane.Point) bool {
	prev := r.lastTap
	if prev == nil {
		return false
	}
	if now().Sub(prev.at) > r.opts.DoubleTapInterval || pt.Sub(prev.pos).Len() > r.opts.DoubleTapDistance {
		return false
	}
	r.lastTap = nil
	return true
}

func (r *Router) move(seq touch.Sequence, pt plane.Point) {
	s, ok := r.streams[seq]
	if !ok {
		return
	}
	prev := s.last
	s.last = pt

	switch s.state {
	case DraggingObject:
		if s.follow {
			s.target.SetCenter(r.plane.ToPlaneSpace(pt))
			return
		}
		delta := r.plane.ToPlaneSpace(pt).Sub(r.plane.ToPlaneSpace(prev))
		s.target.ApplyDrag(delta)
	case Lassoing:
		if !r.lasso.Append(r.plane.ToPlaneSpace(pt)) {
			s.state = Idle
		}
	case TransformingPlane:
		r.transformPlane(seq, prev, pt)
	}
}

// transformPlane moves the viewport for a move of seq from prev to pt.
// One sequence pans; with two or more, the first two pinch, rotate and
// pan about their midpoint.
func (r *Router) transformPlane(seq touch.Sequence, prev, pt plane.Point) {
	var err error
	switch {
	case len(r.planeSeqs) == 1:
		err = r.plane.TransformViewport(plane.Point{}, pt.Sub(prev), 1, 0)
	case seq == r.planeSeqs[0] || seq == r.planeSeqs[1]:
		other := r.streams[r.planeSeqs[0]].last
		if seq == r.planeSeqs[0] {
			other = r.streams[r.planeSeqs[1]].last
		}
		c0 := mid(prev, other)
		c1 := mid(pt, other)
		v0 := other.Sub(prev)
		v1 := other.Sub(pt)

		factor, rotation := 1.0, 0.0
		if d0, d1 := v0.Len(), v1.Len(); d0 > 0 && d1 > 0 {
			factor = d1 / d0
			rotation = normalizeAngle(v1.Angle() - v0.Angle())
		}
		err = r.plane.TransformViewport(c0, c1.Sub(c0), factor, rotation)
	}
	if err != nil {
		r.log.Debug("viewport gesture rejected", "seq", seq, "error", err)
	}
}

func (r *Router) up(seq touch.Sequence) {
	s, ok := r.streams[seq]
	if !ok {
		return
	}
	delete(r.streams, seq)

	// The second half of a double tap does not start another pair.
	if !s.double {
		r.lastTap = &tap{at: now(), pos: s.last}
	}

	switch s.state {
	case DraggingObject:
		r.log.Debug("release", "seq", seq, "object", s.target.ID())
	case Lassoing:
		if !r.lasso.Active {
			return
		}
		poly := r.lasso.Finish()
		r.log.Debug("lasso end", "seq", seq, "points", len(poly))
		if r.OnLassoEnd != nil {
			r.OnLassoEnd(poly)
		}
	case TransformingPlane:
		r.planeSeqs = slices.DeleteFunc(r.planeSeqs, func(q touch.Sequence) bool { return q == seq })
	}
}

// Follow binds obj to the active sequence seq: until touch-up the
// object's center tracks the pointer. It reports false when seq is not
// down or obj is not on the plane.
func (r *Router) Follow(seq touch.Sequence, obj *plane.Object) bool {
	s, ok := r.streams[seq]
	if !ok || obj == nil || !obj.Attached() {
		return false
	}
	switch s.state {
	case Lassoing:
		r.lasso.Cancel()
	case TransformingPlane:
		r.planeSeqs = slices.DeleteFunc(r.planeSeqs, func(q touch.Sequence) bool { return q == seq })
	}

	s.state = DraggingObject
	s.target = obj
	s.follow = true
	obj.SetCenter(r.plane.ToPlaneSpace(s.last))
	return true
}

// CancelSelection forces every sequence back to idle, drops any lasso
// and deselects every object. Sequences still down are forgotten; their
// remaining events are ignored.
func (r *Router) CancelSelection() {
	clear(r.streams)
	r.planeSeqs = nil
	selection.Cancel(r.plane, r.lasso)
}

func (r *Router) onPlaneEvent(e plane.Event) {
	if e.Change != plane.ObjectRemoved {
		return
	}
	for seq, s := range r.streams {
		if s.target == e.Object {
			r.log.Debug("grabbed object removed", "seq", seq, "object", e.Object.ID())
			s.state = Idle
			s.target = nil
			s.follow = false
		}
	}
}

func mid(a, b plane.Point) plane.Point {
	return a.Add(b).Scale(0.5)
}

// normalizeAngle maps a into (-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
