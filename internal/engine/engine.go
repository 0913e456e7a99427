package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/mobile/event/touch"

	"github.com/presemt/presemt/backend-go/internal/asset"
	"github.com/presemt/presemt/backend-go/internal/document"
	"github.com/presemt/presemt/backend-go/internal/gesture"
	"github.com/presemt/presemt/backend-go/internal/panel"
	"github.com/presemt/presemt/backend-go/internal/plane"
	"github.com/presemt/presemt/backend-go/internal/selection"
	"github.com/presemt/presemt/backend-go/internal/typeid"
	"github.com/presemt/presemt/backend-go/internal/typeset"
)

var ErrObjectNotFound = errors.New("object not found")

// Panel names.
const (
	PanelText      = "text"
	PanelLocalFile = "localfile"
)

var (
	DefaultMediaSize    = plane.Size{Width: 320, Height: 240}
	DefaultViewportSize = plane.Size{Width: 1280, Height: 720}
)

type Options struct {
	Grid    plane.Grid // zero means plane.DefaultGrid
	MinZoom float64
	MaxZoom float64
	Gesture gesture.Options

	// ImageSize resolves the natural size of an image source. Without it,
	// or when it fails, images get DefaultMediaSize.
	ImageSize func(source string) (plane.Size, error)

	// OnPanel is called whenever the shown panel changes.
	OnPanel func(panel.State)

	Logger *slog.Logger
}

// Placement says where a new object goes. At is in viewport
// coordinates; with Follow set the object is bound to the active touch
// sequence Seq and tracks it until touch-up.
type Placement struct {
	At     plane.Point    `json:"at"`
	Follow bool           `json:"follow,omitempty"`
	Seq    touch.Sequence `json:"seq,omitempty"`
}

// Engine is the editor controller. It owns the plane, the gesture router,
// the lasso and the configuration panels, processes commands from a
// frontend and answers its queries.
//
// Engine is not safe for concurrent use.
type Engine struct {
	id   string
	name string

	plane  *plane.Plane
	lasso  selection.State
	router *gesture.Router
	panels *panel.Switcher
	panel  panel.State
	text   *typeset.Measurer

	opts Options
	log  *slog.Logger

	viewportSize plane.Size

	// Dirty flag: the frame needs recompiling
	dirty    bool
	frame    []DrawCommand
	rendered string
}

// NewEngine creates an engine with an empty plane.
func NewEngine(opts Options) (*Engine, error) {
	text, err := typeset.New()
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Gesture.Logger == nil {
		opts.Gesture.Logger = log
	}

	p := plane.New()
	if opts.Grid != (plane.Grid{}) {
		if err := p.SetGrid(opts.Grid); err != nil {
			return nil, err
		}
	}
	if err := p.SetZoomLimits(opts.MinZoom, opts.MaxZoom); err != nil {
		return nil, err
	}

	e := &Engine{
		plane:        p,
		text:         text,
		opts:         opts,
		log:          log,
		viewportSize: DefaultViewportSize,
		dirty:        true,
	}
	e.router = gesture.New(p, &e.lasso, opts.Gesture)
	e.router.OnConfigure = func(obj *plane.Object) {
		if err := e.configure(obj); err != nil {
			e.log.Error("configure", "id", obj.ID(), "error", err)
		}
	}
	e.panels = panel.NewSwitcher(map[string]panel.Factory{
		PanelText:      panel.NewRemote(PanelText, nil, e.publishPanel),
		PanelLocalFile: panel.NewRemote(PanelLocalFile, asset.SupportedExtensions(), e.publishPanel),
	})
	p.Subscribe(e.onPlaneEvent)
	return e, nil
}

// Close releases the gesture router.
func (e *Engine) Close() {
	e.router.Close()
}

func (e *Engine) onPlaneEvent(ev plane.Event) {
	e.dirty = true
	if ev.Change == plane.ObjectRemoved {
		e.panels.Forget(ev.Object)
	}
}

func (e *Engine) publishPanel(st panel.State) {
	e.panel = st
	if e.opts.OnPanel != nil {
		e.opts.OnPanel(st)
	}
}

// --- Commands (frontend → backend) ---

// HandleTouch routes one raw touch event in viewport coordinates.
func (e *Engine) HandleTouch(ev touch.Event) {
	lassoing := e.lasso.Active
	e.router.Handle(ev)
	if lassoing || e.lasso.Active {
		e.dirty = true
	}
}

// CreateText places a text object. Empty text and a non-positive font
// size fall back to the defaults.
func (e *Engine) CreateText(pl Placement, text string, fontSize float64) (*plane.Object, error) {
	if text == "" {
		text = typeset.DefaultText
	}
	if fontSize <= 0 {
		fontSize = typeset.DefaultFontSize
	}
	size := e.text.Measure(text, fontSize)
	return e.place(plane.KindText, plane.TextPayload{Text: text, FontSize: fontSize}, size, pl)
}

// CreateImage places an image object; an empty source uses the sample
// image.
func (e *Engine) CreateImage(pl Placement, source string) (*plane.Object, error) {
	if source == "" {
		source = document.SampleImage
	}
	return e.place(plane.KindImage, plane.ImagePayload{Source: source}, e.imageSize(source), pl)
}

func (e *Engine) CreateVideo(pl Placement, source string) (*plane.Object, error) {
	return e.place(plane.KindVideo, plane.VideoPayload{Source: source}, DefaultMediaSize, pl)
}

// FromLocalFile creates an image or a video depending on the extension of
// source.
func (e *Engine) FromLocalFile(pl Placement, source string) (*plane.Object, error) {
	switch asset.Classify(source) {
	case asset.Image:
		return e.CreateImage(pl, source)
	case asset.Video:
		return e.CreateVideo(pl, source)
	default:
		return nil, fmt.Errorf("%w: %q", plane.ErrUnsupportedKind, source)
	}
}

func (e *Engine) imageSize(source string) plane.Size {
	if e.opts.ImageSize == nil {
		return DefaultMediaSize
	}
	size, err := e.opts.ImageSize(source)
	if err != nil || !size.Valid() {
		e.log.Debug("image size unavailable", "source", source, "error", err)
		return DefaultMediaSize
	}
	return size
}

func (e *Engine) place(kind plane.Kind, payload plane.Payload, size plane.Size, pl Placement) (*plane.Object, error) {
	center := e.plane.ToPlaneSpace(pl.At)
	obj, err := plane.NewObject(typeid.NewObjectID(), kind, payload, size, center)
	if err != nil {
		return nil, err
	}
	if err := e.plane.Add(obj); err != nil {
		return nil, err
	}
	if pl.Follow && !e.router.Follow(pl.Seq, obj) {
		e.log.Debug("follow ignored, touch not down", "seq", pl.Seq, "object", obj.ID())
	}
	e.log.Info("object created", "id", obj.ID(), "kind", kind.String())
	return obj, nil
}

// Follow binds an existing object to the active touch sequence seq.
func (e *Engine) Follow(seq touch.Sequence, id string) error {
	obj, err := e.object(id)
	if err != nil {
		return err
	}
	if !e.router.Follow(seq, obj) {
		return fmt.Errorf("touch %d is not down", seq)
	}
	return nil
}

// RemoveObject removes id from the plane. Removing an unknown id is a
// no-op.
func (e *Engine) RemoveObject(id string) {
	if obj, ok := e.plane.Object(id); ok {
		e.plane.Remove(obj)
		e.log.Info("object removed", "id", id)
	}
}

func (e *Engine) SetSelectionArmed(armed bool) {
	e.router.SetArmed(armed)
}

func (e *Engine) SelectionArmed() bool { return e.router.Armed() }

// CancelSelection drops every gesture in progress and deselects all.
func (e *Engine) CancelSelection() {
	e.router.CancelSelection()
	e.dirty = true
}

// AlignSelected centers the selected objects horizontally on their
// combined extent.
func (e *Engine) AlignSelected() {
	selection.AlignSelected(e.plane.Selected())
}

// TogglePanel shows name, or hides it when it is already shown. An empty
// name hides whatever is shown.
func (e *Engine) TogglePanel(name string) error {
	return e.panels.Toggle(name)
}

func (e *Engine) ClosePanel() {
	e.panels.Close()
}

// Configure opens the panel that edits id.
func (e *Engine) Configure(id string) error {
	obj, err := e.object(id)
	if err != nil {
		return err
	}
	return e.configure(obj)
}

func (e *Engine) configure(obj *plane.Object) error {
	name := PanelLocalFile
	if obj.Kind() == plane.KindText {
		name = PanelText
	}
	e.log.Debug("configure", "id", obj.ID(), "panel", name)
	return e.panels.Open(name, obj)
}

// UpdateText replaces the content of a text object and re-measures it;
// its center stays put.
func (e *Engine) UpdateText(id, text string, fontSize float64) error {
	obj, err := e.object(id)
	if err != nil {
		return err
	}
	if obj.Kind() != plane.KindText {
		return fmt.Errorf("%w: %s is %v", plane.ErrUnsupportedKind, id, obj.Kind())
	}
	if fontSize <= 0 {
		fontSize = obj.RenderPayload().(plane.TextPayload).FontSize
	}
	return obj.SetPayload(plane.TextPayload{Text: text, FontSize: fontSize}, e.text.Measure(text, fontSize))
}

// UpdateSource points an image or video object at a new file of the same
// kind.
func (e *Engine) UpdateSource(id, source string) error {
	obj, err := e.object(id)
	if err != nil {
		return err
	}
	switch {
	case obj.Kind() == plane.KindImage && asset.Classify(source) == asset.Image:
		return obj.SetPayload(plane.ImagePayload{Source: source}, e.imageSize(source))
	case obj.Kind() == plane.KindVideo && asset.Classify(source) == asset.Video:
		return obj.SetPayload(plane.VideoPayload{Source: source}, obj.Size())
	default:
		return fmt.Errorf("%w: %q for %v", plane.ErrUnsupportedKind, source, obj.Kind())
	}
}

func (e *Engine) SetGrid(g plane.Grid) error {
	return e.plane.SetGrid(g)
}

// TransformViewport pans, zooms and rotates the plane about center, in
// viewport coordinates.
func (e *Engine) TransformViewport(center, pan plane.Point, factor, rotation float64) error {
	return e.plane.TransformViewport(center, pan, factor, rotation)
}

func (e *Engine) ResetViewport() {
	e.plane.ResetViewport()
}

// SetViewportSize tells the engine how much of the plane the frontend
// shows, which bounds the grid lines it emits.
func (e *Engine) SetViewportSize(width, height float64) {
	size := plane.Size{Width: width, Height: height}
	if !size.Valid() {
		return
	}
	e.viewportSize = size
	e.dirty = true
}

// LoadSampleDocument replaces the plane content with the built-in sample.
func (e *Engine) LoadSampleDocument(id string) {
	if err := e.LoadDocument(document.NewSampleDocument(id)); err != nil {
		e.log.Error("load sample document", "error", err)
	}
}

// LoadDocumentJSON is LoadDocument for a JSON encoded document.
func (e *Engine) LoadDocumentJSON(jsonData string) error {
	var doc document.Document
	if err := json.Unmarshal([]byte(jsonData), &doc); err != nil {
		return err
	}
	return e.LoadDocument(&doc)
}

// LoadDocument replaces the plane content with doc. Nothing changes when
// any part of doc is invalid.
func (e *Engine) LoadDocument(doc *document.Document) error {
	grid := plane.Grid{Spacing: doc.Grid.Spacing, Extent: doc.Grid.Extent}
	if grid == (plane.Grid{}) {
		grid = e.plane.Grid()
	}
	if !grid.Valid() {
		return fmt.Errorf("load document %s: %w", doc.ID, plane.ErrInvalidGrid)
	}

	objs := make([]*plane.Object, 0, len(doc.Objects))
	for _, n := range doc.Objects {
		obj, err := e.objectFrom(n)
		if err != nil {
			return fmt.Errorf("load document %s: %w", doc.ID, err)
		}
		objs = append(objs, obj)
	}

	viewport := doc.Viewport.Plane()
	if viewport.Scale == 0 {
		viewport.Scale = 1
	}

	e.router.CancelSelection()
	e.panels.Close()
	for _, o := range e.plane.Objects() {
		e.plane.Remove(o)
	}
	_ = e.plane.SetGrid(grid)
	if err := e.plane.SetViewport(viewport); err != nil {
		e.log.Warn("document viewport rejected", "id", doc.ID, "error", err)
		e.plane.ResetViewport()
	}
	for _, o := range objs {
		if err := e.plane.Add(o); err != nil {
			return err
		}
	}

	e.id, e.name = doc.ID, doc.Name
	e.dirty = true
	e.log.Info("document loaded", "id", doc.ID, "objects", len(objs))
	return nil
}

func (e *Engine) objectFrom(n document.ObjectNode) (*plane.Object, error) {
	payload, err := n.Payload()
	if err != nil {
		return nil, err
	}

	size := plane.Size{Width: n.Width, Height: n.Height}
	switch p := payload.(type) {
	case plane.TextPayload:
		if p.FontSize <= 0 {
			p.FontSize = typeset.DefaultFontSize
			payload = p
		}
		size = e.text.Measure(p.Text, p.FontSize)
	default:
		if !size.Valid() {
			size = DefaultMediaSize
		}
	}

	id := n.ID
	if id == "" {
		id = typeid.NewObjectID()
	}
	obj, err := plane.NewObject(id, payload.Kind(), payload, size, n.Transform.Center())
	if err != nil {
		return nil, err
	}
	if n.Transform.S != 0 {
		if err := obj.SetScale(n.Transform.S); err != nil {
			return nil, fmt.Errorf("object %s: %w", id, err)
		}
	}
	obj.SetRotation(n.Transform.R)
	return obj, nil
}

func (e *Engine) object(id string) (*plane.Object, error) {
	obj, ok := e.plane.Object(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	return obj, nil
}

// --- Queries (frontend ← backend) ---

// Frame returns the draw commands of the current state, recompiling only
// when something changed.
func (e *Engine) Frame() []DrawCommand {
	if e.dirty {
		e.frame = CompileDrawCommands(e.plane, e.lasso.Polygon, e.viewportSize)
		e.rendered = ""
		e.dirty = false
	}
	return e.frame
}

// Render returns the draw commands as JSON.
func (e *Engine) Render() string {
	frame := e.Frame()
	if e.rendered == "" {
		e.rendered, _ = DrawCommandsToJSON(frame)
	}
	return e.rendered
}

// Dirty reports whether the next Render will differ from the last one.
func (e *Engine) Dirty() bool { return e.dirty }

// HitTest returns the id of the topmost object under the viewport point,
// or an empty string.
func (e *Engine) HitTest(x, y float64) string {
	if obj := e.plane.HitTest(e.plane.ToPlaneSpace(plane.Point{X: x, Y: y})); obj != nil {
		return obj.ID()
	}
	return ""
}

// Selection returns the ids of the selected objects in z-order.
func (e *Engine) Selection() []string {
	ids := []string{}
	for _, o := range e.plane.Selected() {
		ids = append(ids, o.ID())
	}
	return ids
}

// GetSelectionBounds returns the plane-space box around the selection.
func (e *Engine) GetSelectionBounds() plane.Rect {
	var r plane.Rect
	for _, o := range e.plane.Selected() {
		r = r.Union(o.Bounds())
	}
	return r
}

// Lasso returns the lasso path in progress, empty when none is.
func (e *Engine) Lasso() selection.Polygon {
	return append(selection.Polygon(nil), e.lasso.Polygon...)
}

// Document returns the wire view of the plane.
func (e *Engine) Document() *document.Document {
	return document.FromPlane(e.id, e.name, e.plane)
}

// GetDocument returns the wire view as JSON.
func (e *Engine) GetDocument() string {
	data, _ := json.Marshal(e.Document())
	return string(data)
}

// Panel returns the state of the last panel opened or closed.
func (e *Engine) Panel() panel.State { return e.panel }

func (e *Engine) Plane() *plane.Plane { return e.plane }

func (e *Engine) Measurer() *typeset.Measurer { return e.text }

func (e *Engine) ViewportSize() plane.Size { return e.viewportSize }
