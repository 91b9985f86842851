// Package session binds one open template to everything needed to edit, fill or
// review it: the field store, the editing engine, the page render scheduler, the
// overlay and the export engine.
//
// A Session is single threaded. The Manager serialises every call into a session.
package session

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/editor"
	"github.com/a3tai/mcp-lab-forms/internal/fieldstore"
	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/log"
	"github.com/a3tai/mcp-lab-forms/internal/overlay"
	"github.com/a3tai/mcp-lab-forms/internal/pdf"
	"github.com/a3tai/mcp-lab-forms/internal/pdf/export"
	"github.com/a3tai/mcp-lab-forms/internal/store"
)

var (
	ErrNotFound   = errors.New("session not found")
	ErrWrongMode  = errors.New("operation not available in this session mode")
	ErrIncomplete = errors.New("required fields are empty")
)

// DefaultPageGap is the vertical space between stacked pages in the editor, in pixels
const DefaultPageGap = 16.0

// Options are shared by every session of a Manager
type Options struct {
	Repository store.Repository
	Source     *pdf.Source
	Bridge     pdf.Bridge
	Exporter   *export.Engine
	Fonts      *overlay.FontBank
	Lock       fieldstore.LockPolicy
	EditScale  form.ScaleRange
	FillScale  form.ScaleRange
	ZoomMask   time.Duration
	PageGap    float64
}

func (o *Options) defaults() {
	if o.Bridge == nil {
		o.Bridge = pdf.NewBridge()
	}
	if o.Exporter == nil {
		o.Exporter = export.New()
	}
	if o.Fonts == nil {
		o.Fonts = overlay.DefaultFontBank()
	}
	if !o.EditScale.Valid() {
		o.EditScale = form.EditScaleRange
	}
	if !o.FillScale.Valid() {
		o.FillScale = form.FillScaleRange
	}
	if o.PageGap <= 0 {
		o.PageGap = DefaultPageGap
	}
}

// Info summarises a session for callers
type Info struct {
	SessionID  string      `json:"sessionId"`
	TemplateID string      `json:"templateId"`
	Title      string      `json:"title"`
	Mode       string      `json:"mode"`
	PageCount  int         `json:"pageCount"`
	Pages      []form.Size `json:"pages"`
	FieldCount int         `json:"fieldCount"`
	Selected   []string    `json:"selected,omitempty"`
	Scale      float64     `json:"scale"`
	Published  bool        `json:"isPublished"`
	Dirty      bool        `json:"dirty"`
	Masked     bool        `json:"overlayMasked,omitempty"`
	OpenedAt   time.Time   `json:"openedAt"`
}

// Session is one open template in edit, fill or review mode
type Session struct {
	id     string
	mode   overlay.Mode
	opts   *Options
	opened time.Time

	store     *fieldstore.Store
	editor    *editor.Engine
	doc       *pdf.Document
	geometry  pdf.Geometry
	scheduler *pdf.Scheduler
	zoom      *overlay.ZoomMask
	values    form.Values
	fillScale float64
}

// open builds a session for tpl. base outlives the call and bounds page renders.
func open(ctx, base context.Context, id string, tpl *form.Template, mode overlay.Mode, opts *Options) (*Session, error) {
	fs, err := fieldstore.New(tpl, opts.Lock)
	if err != nil {
		return nil, err
	}
	doc, err := opts.Source.Fetch(ctx, tpl.PDFURL)
	if err != nil {
		return nil, errors.Wrapf(err, "template %s", tpl.ID)
	}
	geom, err := opts.Bridge.Geometry(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "template %s", tpl.ID)
	}
	if geom.PageCount != tpl.PageCount {
		log.WithFields(log.Fields{
			"template": tpl.ID,
			"stored":   tpl.PageCount,
			"document": geom.PageCount,
		}).Warn("template page count differs from its PDF")
	}

	s := &Session{
		id:        id,
		mode:      mode,
		opts:      opts,
		opened:    time.Now(),
		store:     fs,
		doc:       doc,
		geometry:  geom,
		scheduler: pdf.NewScheduler(base, opts.Bridge, doc),
		zoom:      overlay.NewZoomMask(opts.ZoomMask),
		values:    form.Values{},
		fillScale: opts.FillScale.Clamp(1),
	}
	s.editor = editor.New(fs, editor.StackedLayout{Sizes: geom.Pages, Gap: opts.PageGap}, editor.Options{
		Scale:      1,
		ScaleRange: opts.EditScale,
	})
	return s, nil
}

func (s *Session) close() {
	s.scheduler.Close()
}

func (s *Session) ID() string { return s.id }
func (s *Session) Mode() overlay.Mode { return s.mode }
func (s *Session) Store() *fieldstore.Store { return s.store }
func (s *Session) Document() *pdf.Document { return s.doc }
func (s *Session) Values() form.Values { return s.values }

// Editor returns the editing engine; only edit sessions have one that may be used
func (s *Session) Editor() (*editor.Engine, error) {
	if s.mode != overlay.ModeEdit {
		return nil, errors.Wrapf(ErrWrongMode, "editing in %s mode", s.mode)
	}
	return s.editor, nil
}

// Info reports the session's current state
func (s *Session) Info() Info {
	return Info{
		SessionID:  s.id,
		TemplateID: s.store.TemplateID(),
		Title:      s.store.Title(),
		Mode:       s.mode.String(),
		PageCount:  s.store.PageCount(),
		Pages:      s.geometry.Pages,
		FieldCount: s.store.Len(),
		Selected:   s.store.SelectedIDs(),
		Scale:      s.Scale(),
		Published:  s.store.Published(),
		Dirty:      s.store.Dirty(),
		Masked:     s.zoom.Masked(),
		OpenedAt:   s.opened,
	}
}

// PageBoxes places the template's pages in the viewport at the current scale
func (s *Session) PageBoxes() []editor.PageBox {
	return editor.StackedLayout{Sizes: s.geometry.Pages, Gap: s.opts.PageGap}.PageBoxes(s.Scale())
}

// Scale is the current zoom factor of the session's view
func (s *Session) Scale() float64 {
	if s.mode == overlay.ModeEdit {
		return s.editor.Scale()
	}
	return s.fillScale
}

// SetScale zooms the view, clamped to the mode's range. The overlay is reported as
// masked until the next page render or the end of the zoom mask window.
func (s *Session) SetScale(scale float64) float64 {
	var applied float64
	if s.mode == overlay.ModeEdit {
		applied = s.editor.SetScale(scale)
	} else {
		s.fillScale = s.opts.FillScale.Clamp(scale)
		applied = s.fillScale
	}
	s.zoom.Zoomed()
	return applied
}

// SetValues merges raw submitted values. Keys may be field ids or labels.
// Review sessions are read only and take values through LoadSubmission.
func (s *Session) SetValues(raw map[string]any) (int, error) {
	if s.mode != overlay.ModeFill {
		return 0, errors.Wrapf(ErrWrongMode, "values are entered in fill mode, not %s", s.mode)
	}
	parsed, err := form.ParseValues(raw, s.store.Fields())
	if err != nil {
		return 0, err
	}
	for k, v := range parsed {
		s.values[k] = v
	}
	return len(parsed), nil
}

// ClearValues drops every value of a fill session
func (s *Session) ClearValues() error {
	if s.mode != overlay.ModeFill {
		return errors.Wrapf(ErrWrongMode, "values are entered in fill mode, not %s", s.mode)
	}
	s.values = form.Values{}
	return nil
}

// LoadSubmission replaces the values with those of a submission document
func (s *Session) LoadSubmission(data []byte) (*store.Submission, error) {
	if s.mode == overlay.ModeEdit {
		return nil, errors.Wrap(ErrWrongMode, "submissions are shown in fill or review mode")
	}
	sub, err := store.DecodeSubmission(data, s.store.Fields())
	if err != nil {
		return nil, err
	}
	if sub.TemplateID != s.store.TemplateID() {
		return nil, errors.Wrapf(store.ErrInvalidDocument, "submission is for template %s, not %s",
			sub.TemplateID, s.store.TemplateID())
	}
	s.values = sub.Values
	return sub, nil
}

// Missing lists required fields without a usable value
func (s *Session) Missing() []form.Field {
	return form.MissingRequired(s.store.Fields(), s.values)
}

func (s *Session) compositor() overlay.Compositor {
	return overlay.Compositor{IsSelected: s.store.IsSelected}
}

// Elements returns the overlay elements of page at the current scale
func (s *Session) Elements(page int) []overlay.Element {
	return s.compositor().Compose(s.store.FieldsOnPage(page), page, s.Scale(), s.values, s.mode)
}

// RenderPage renders page at the current scale with the overlay drawn on top. A
// raster at the current scale ends the zoom mask.
//
// When the page itself fails to render, the overlay is drawn over a blank page of
// the right size and returned together with the *pdf.RenderError, so fields stay
// visible and fillable.
func (s *Session) RenderPage(ctx context.Context, page int) (*image.RGBA, error) {
	scale := s.Scale()
	surface, err := s.scheduler.Render(ctx, page, scale)
	if err != nil {
		size, ok := s.geometry.PageSize(page)
		if !errors.Is(err, pdf.ErrRenderFailed) || !ok {
			return nil, err
		}
		log.WithFields(log.Fields{"session": s.id, "page": page}).Warnf("page render failed, drawing overlay on a blank page: %v", err)
		surface = pdf.BlankSurface(page, size, scale)
	}
	s.zoom.Reveal()

	b := surface.Image.Bounds()
	layer := s.opts.Fonts.Rasterize(s.Elements(page), b.Dx(), b.Dy())
	return overlay.Composite(surface.Image, layer), err
}

// Save persists the title, fields and publish flag of an edit session
func (s *Session) Save(ctx context.Context) error {
	if s.mode != overlay.ModeEdit {
		return errors.Wrapf(ErrWrongMode, "saving in %s mode", s.mode)
	}
	if err := store.SaveTemplate(ctx, s.opts.Repository, s.store.Template()); err != nil {
		return err
	}
	s.store.MarkClean()
	log.WithFields(log.Fields{"session": s.id, "template": s.store.TemplateID()}).Info("template saved")
	return nil
}

// Export burns the current values into the template's PDF. With requireComplete set,
// empty required fields fail the export before anything is drawn.
func (s *Session) Export(ctx context.Context, requireComplete bool) ([]byte, error) {
	if requireComplete {
		if missing := s.Missing(); len(missing) > 0 {
			names := make([]string, len(missing))
			for i, f := range missing {
				names[i] = f.Label
				if names[i] == "" {
					names[i] = f.ID
				}
			}
			return nil, errors.Wrap(ErrIncomplete, strings.Join(names, ", "))
		}
	}
	return s.opts.Exporter.Export(ctx, s.doc.Bytes, s.store.Fields(), s.values)
}
