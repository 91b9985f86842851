// Package editor turns pointer and keyboard input on the template editor canvas into
// field store operations: drag-move, resize, marquee selection, keyboard nudge,
// shortcut field creation, delete and select-all.
//
// Pointer positions are viewport pixels. They are mapped to model space through the
// page layout and the inverse scale transform before touching the store.
package editor

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/fieldstore"
	"github.com/a3tai/mcp-lab-forms/internal/form"
)

const (
	// DefaultHandleSize is the side of the resize handle square, in pixels
	DefaultHandleSize = 10.0

	MinCheckboxSize = 16.0
	MinFieldWidth   = 40.0
	MinFieldHeight  = 20.0
)

// fallback placement when the pointer is not over any page
var fallbackPlacement = form.Point{X: 100, Y: 100}

// GestureKind names the pointer interaction in progress
type GestureKind int

const (
	GestureNone GestureKind = iota
	GestureDrag
	GestureResize
	GestureMarquee
)

func (k GestureKind) String() string {
	switch k {
	case GestureDrag:
		return "drag"
	case GestureResize:
		return "resize"
	case GestureMarquee:
		return "marquee"
	default:
		return "none"
	}
}

type gesture struct {
	kind  GestureKind
	start form.Point
	last  form.Point

	// drag
	ids     []string
	applied form.Point // model delta already pushed to the store

	// resize
	fieldID   string
	fieldType form.FieldType
	startSize form.Size
}

// Options tune an Engine
type Options struct {
	Scale      float64
	ScaleRange form.ScaleRange
	HandleSize float64
}

// Engine is the editing state machine of one editor session
type Engine struct {
	store      *fieldstore.Store
	layout     Layout
	scale      float64
	scaleRange form.ScaleRange
	handleSize float64

	pointer      form.Point
	pointerKnown bool
	gesture      gesture
}

// New creates an engine over store laid out by layout
func New(store *fieldstore.Store, layout Layout, opts Options) *Engine {
	if !opts.ScaleRange.Valid() {
		opts.ScaleRange = form.EditScaleRange
	}
	if opts.HandleSize <= 0 {
		opts.HandleSize = DefaultHandleSize
	}
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	return &Engine{
		store:      store,
		layout:     layout,
		scale:      opts.ScaleRange.Clamp(opts.Scale),
		scaleRange: opts.ScaleRange,
		handleSize: opts.HandleSize,
	}
}

// Scale returns the current zoom factor
func (e *Engine) Scale() float64 { return e.scale }

// SetScale changes the zoom factor, clamped to the edit range, and returns the value used
func (e *Engine) SetScale(s float64) float64 {
	e.scale = e.scaleRange.Clamp(s)
	return e.scale
}

// Gesture reports the pointer interaction in progress
func (e *Engine) Gesture() GestureKind { return e.gesture.kind }

// Marquee returns the marquee rectangle in viewport pixels while one is being drawn
func (e *Engine) Marquee() (form.Rect, bool) {
	if e.gesture.kind != GestureMarquee {
		return form.Rect{}, false
	}
	r := r2.RectFromPoints(toR2(e.gesture.start), toR2(e.gesture.last))
	return form.Rect{X: r.X.Lo, Y: r.Y.Lo, Width: r.X.Length(), Height: r.Y.Length()}, true
}

func (e *Engine) pageBoxes() []PageBox {
	if e.layout == nil {
		return nil
	}
	return e.layout.PageBoxes(e.scale)
}

func (e *Engine) pageBox(page int) (PageBox, bool) {
	for _, b := range e.pageBoxes() {
		if b.Page == page {
			return b, true
		}
	}
	return PageBox{}, false
}

// FieldViewRect returns the field's rect in viewport pixels
func (e *Engine) FieldViewRect(f form.Field) (r2.Rect, bool) {
	box, ok := e.pageBox(f.Page)
	if !ok {
		return r2.EmptyRect(), false
	}
	return viewRect(box.Origin, f.Rect(), e.scale), true
}

// hit is the result of hit-testing a pointer position
type hit struct {
	fieldID string
	handle  bool
}

// hitTest finds the topmost field under p. Later fields are drawn on top.
func (e *Engine) hitTest(p form.Point) (hit, bool) {
	fields := e.store.Fields()
	pt := toR2(p)
	for i := len(fields) - 1; i >= 0; i-- {
		r, ok := e.FieldViewRect(fields[i])
		if !ok || !r.ContainsPoint(pt) {
			continue
		}
		onHandle := p.X >= r.X.Hi-e.handleSize && p.Y >= r.Y.Hi-e.handleSize
		return hit{fieldID: fields[i].ID, handle: onHandle}, true
	}
	return hit{}, false
}

// PointerDown starts a drag, resize or marquee gesture depending on what is under p
func (e *Engine) PointerDown(p form.Point) {
	e.trackPointer(p)
	e.gesture = gesture{start: p, last: p}

	h, ok := e.hitTest(p)
	if !ok {
		e.gesture.kind = GestureMarquee
		return
	}

	selected := e.store.SelectedIDs()
	if h.handle && len(selected) == 1 && selected[0] == h.fieldID {
		f, _ := e.store.Get(h.fieldID)
		e.gesture.kind = GestureResize
		e.gesture.fieldID = f.ID
		e.gesture.fieldType = f.Type
		e.gesture.startSize = form.Size{Width: f.Width, Height: f.Height}
		return
	}

	e.gesture.kind = GestureDrag
	if e.store.IsSelected(h.fieldID) {
		e.gesture.ids = selected
	} else {
		e.store.Select(h.fieldID)
		e.gesture.ids = []string{h.fieldID}
	}
}

// PointerMove tracks the pointer and advances the active gesture
func (e *Engine) PointerMove(p form.Point) error {
	e.trackPointer(p)
	if e.gesture.kind == GestureNone {
		return nil
	}
	e.gesture.last = p

	dx := form.ToModel(p.X-e.gesture.start.X, e.scale)
	dy := form.ToModel(p.Y-e.gesture.start.Y, e.scale)

	switch e.gesture.kind {
	case GestureDrag:
		stepX, stepY := dx-e.gesture.applied.X, dy-e.gesture.applied.Y
		if stepX == 0 && stepY == 0 {
			return nil
		}
		if _, err := e.store.MoveMany(e.gesture.ids, stepX, stepY); err != nil {
			e.gesture = gesture{}
			return err
		}
		e.gesture.applied = form.Point{X: dx, Y: dy}
	case GestureResize:
		w := e.gesture.startSize.Width + dx
		h := e.gesture.startSize.Height + dy
		if _, err := e.ResizeTo(e.gesture.fieldID, w, h); err != nil {
			e.gesture = gesture{}
			return err
		}
	}
	return nil
}

// PointerUp finishes the active gesture. A marquee replaces the selection with every
// field whose projected box overlaps it.
func (e *Engine) PointerUp(p form.Point) error {
	if err := e.PointerMove(p); err != nil {
		return err
	}
	g := e.gesture
	e.gesture = gesture{}

	if g.kind == GestureMarquee {
		e.store.Select(e.fieldsInMarquee(g.start, p)...)
	}
	return nil
}

// Cancel abandons the active gesture without undoing changes already applied
func (e *Engine) Cancel() {
	e.gesture = gesture{}
}

func (e *Engine) trackPointer(p form.Point) {
	e.pointer = p
	e.pointerKnown = true
}

// fieldsInMarquee returns the ids of fields whose view rect strictly overlaps the
// rectangle spanned by a and b. Touching edges and zero-area marquees select nothing.
func (e *Engine) fieldsInMarquee(a, b form.Point) []string {
	marquee := r2.RectFromPoints(toR2(a), toR2(b))
	var ids []string
	for _, f := range e.store.Fields() {
		r, ok := e.FieldViewRect(f)
		if ok && marquee.InteriorIntersects(r) {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

// ClampSize applies the minimum size floors of a field type. Checkboxes stay square
// with the height forced to the width.
func ClampSize(t form.FieldType, w, h float64) (float64, float64) {
	if t == form.FieldTypeCheckbox {
		if w < MinCheckboxSize {
			w = MinCheckboxSize
		}
		return w, w
	}
	if w < MinFieldWidth {
		w = MinFieldWidth
	}
	if h < MinFieldHeight {
		h = MinFieldHeight
	}
	return w, h
}

// ResizeTo sets a field's size after applying ClampSize and returns the stored field
func (e *Engine) ResizeTo(id string, w, h float64) (form.Field, error) {
	f, ok := e.store.Get(id)
	if !ok {
		return form.Field{}, errors.Wrapf(fieldstore.ErrNotFound, "resize %s", id)
	}
	w, h = ClampSize(f.Type, w, h)
	if err := e.store.Update(id, fieldstore.FieldPatch{Width: &w, Height: &h}); err != nil {
		return f, err
	}
	f, _ = e.store.Get(id)
	return f, nil
}

// AddField validates f against the template and inserts it. Invalid fields are
// rejected and the store is left unchanged.
func (e *Engine) AddField(f form.Field) error {
	if err := form.Validate(f, e.store.PageCount()); err != nil {
		return err
	}
	if !f.Type.Valid() {
		return errors.Wrapf(form.ErrUnknownFieldType, "field %s: %q", f.ID, f.Type)
	}
	return e.store.Add(f)
}

// EditField applies patch after checking the result against the coordinate model.
// Invalid edits are rejected and the previous state is kept.
func (e *Engine) EditField(id string, patch fieldstore.FieldPatch) (form.Field, error) {
	current, ok := e.store.Get(id)
	if !ok {
		return form.Field{}, errors.Wrapf(fieldstore.ErrNotFound, "field %s", id)
	}
	candidate := current.Clone()
	fieldstore.ApplyPatch(&candidate, patch)
	if err := form.Validate(candidate, e.store.PageCount()); err != nil {
		return current, err
	}
	if !candidate.Type.Valid() {
		return current, errors.Wrapf(form.ErrUnknownFieldType, "field %s: %q", id, candidate.Type)
	}
	if err := e.store.Update(id, patch); err != nil {
		return current, err
	}
	updated, _ := e.store.Get(id)
	return updated, nil
}

// placement maps the last tracked pointer position to a page and model point.
// It falls back to page 1 at (100, 100) when the pointer is over no page.
func (e *Engine) placement() (int, form.Point) {
	if e.pointerKnown {
		pt := toR2(e.pointer)
		for _, b := range e.pageBoxes() {
			if b.ViewRect(e.scale).ContainsPoint(pt) {
				return b.Page, form.Point{
					X: form.ToModel(e.pointer.X-b.Origin.X, e.scale),
					Y: form.ToModel(e.pointer.Y-b.Origin.Y, e.scale),
				}
			}
		}
	}
	return 1, fallbackPlacement
}

// CreateAtPointer adds a field of type t with its top-left corner at the pointer and
// makes it the only selected field
func (e *Engine) CreateAtPointer(t form.FieldType) (form.Field, error) {
	page, at := e.placement()
	f := form.NewField(t, page, at.X, at.Y)
	if err := e.AddField(f); err != nil {
		return form.Field{}, err
	}
	e.store.Select(f.ID)
	return f, nil
}
