// Package importer turns the AcroForm widgets of an existing PDF into template fields,
// so a fillable PDF can seed a template instead of placing every field by hand.
package importer

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/log"
)

const (
	flagRequired   = 1 << 1
	flagMultiline  = 1 << 12
	flagRadio      = 1 << 15
	flagPushbutton = 1 << 16
)

// Result is the outcome of an import
type Result struct {
	Fields []form.Field `json:"fields"`
	Pages  []form.Size  `json:"pages"`
	// Skipped lists widgets that could not be mapped, with the reason
	Skipped []string `json:"skipped,omitempty"`
}

// Importer reads AcroForm fields with pdfcpu
type Importer struct {
	conf  *model.Configuration
	newID func() string
}

// New creates an importer that assigns fresh field ids
func New() *Importer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Importer{conf: conf, newID: form.NewID}
}

// ImportBytes imports the fields of an in-memory PDF
func (im *Importer) ImportBytes(b []byte) (*Result, error) {
	return im.Import(bytes.NewReader(b))
}

// Import reads rs and converts every terminal AcroForm field with a widget into a
// template field. Widget rects are flipped from bottom-left to top-left origin.
func (im *Importer) Import(rs io.ReadSeeker) (*Result, error) {
	ctx, err := api.ReadContext(rs, im.conf)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read PDF context")
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, errors.Wrap(err, "failed to ensure page count")
	}

	res := &Result{}
	annotPages := make(map[int]int)
	for p := 1; p <= ctx.PageCount; p++ {
		pageDict, _, inh, err := ctx.PageDict(p, true)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", p)
		}
		size := form.Size{Width: 612, Height: 792}
		if inh != nil && inh.MediaBox != nil {
			size = form.Size{
				Width:  math.Abs(inh.MediaBox.UR.X - inh.MediaBox.LL.X),
				Height: math.Abs(inh.MediaBox.UR.Y - inh.MediaBox.LL.Y),
			}
		}
		res.Pages = append(res.Pages, size)
		indexAnnots(ctx, pageDict, p, annotPages)
	}

	root, err := ctx.Catalog()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get catalog")
	}
	acroObj, found := root.Find("AcroForm")
	if !found {
		return res, nil
	}
	acro, err := ctx.DereferenceDict(acroObj)
	if err != nil || acro == nil {
		return res, errors.Wrap(err, "failed to dereference AcroForm")
	}
	fieldsObj, found := acro.Find("Fields")
	if !found {
		return res, nil
	}
	fields, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dereference Fields array")
	}

	w := walker{ctx: ctx, im: im, res: res, annotPages: annotPages}
	for _, obj := range fields {
		w.visit(obj, inherited{}, 0)
	}
	log.WithFields(log.Fields{"fields": len(res.Fields), "skipped": len(res.Skipped)}).Debug("acroform imported")
	return res, nil
}

// indexAnnots maps annotation object numbers to their 1-based page
func indexAnnots(ctx *model.Context, pageDict types.Dict, page int, out map[int]int) {
	obj, found := pageDict.Find("Annots")
	if !found {
		return
	}
	annots, err := ctx.DereferenceArray(obj)
	if err != nil {
		return
	}
	for _, a := range annots {
		if ref, ok := a.(types.IndirectRef); ok {
			out[int(ref.ObjectNumber)] = page
		}
	}
}

// inherited holds field attributes passed down from parent fields
type inherited struct {
	name  string
	ft    string
	flags int
}

type walker struct {
	ctx        *model.Context
	im         *Importer
	res        *Result
	annotPages map[int]int
}

const maxDepth = 32

func (w *walker) visit(obj types.Object, parent inherited, depth int) {
	if depth > maxDepth {
		w.skip(parent.name, "field tree too deep")
		return
	}
	d, err := w.ctx.DereferenceDict(obj)
	if err != nil || d == nil {
		return
	}

	attrs := parent
	if t, found := d.Find("T"); found {
		if s, err := w.ctx.DereferenceStringOrHexLiteral(t, model.V10, nil); err == nil && s != "" {
			if attrs.name != "" {
				attrs.name += "." + s
			} else {
				attrs.name = s
			}
		}
	}
	if ft, found := d.Find("FT"); found {
		if n, err := w.ctx.DereferenceName(ft, model.V10, nil); err == nil {
			attrs.ft = string(n)
		}
	}
	if ff, found := d.Find("Ff"); found {
		if n, err := w.ctx.DereferenceInteger(ff); err == nil && n != nil {
			attrs.flags = int(*n)
		}
	}

	kids, hasKids := d.Find("Kids")
	if _, isWidget := d.Find("Rect"); isWidget && !hasKids {
		w.widget(obj, d, attrs)
		return
	}
	if !hasKids {
		return
	}
	arr, err := w.ctx.DereferenceArray(kids)
	if err != nil {
		return
	}
	for _, k := range arr {
		w.visit(k, attrs, depth+1)
	}
}

func (w *walker) widget(obj types.Object, d types.Dict, attrs inherited) {
	t, ok := fieldType(attrs)
	if !ok {
		w.skip(attrs.name, fmt.Sprintf("unsupported field type %q", attrs.ft))
		return
	}

	page := w.page(obj, d)
	if page < 1 || page > len(w.res.Pages) {
		w.skip(attrs.name, "widget is not on any page")
		return
	}

	rectObj, _ := d.Find("Rect")
	rect, err := w.ctx.DereferenceArray(rectObj)
	if err != nil || len(rect) != 4 {
		w.skip(attrs.name, "malformed Rect")
		return
	}
	var c [4]float64
	for i, v := range rect {
		f, err := w.ctx.DereferenceNumber(v)
		if err != nil {
			w.skip(attrs.name, "malformed Rect")
			return
		}
		c[i] = f
	}
	llx, urx := math.Min(c[0], c[2]), math.Max(c[0], c[2])
	lly, ury := math.Min(c[1], c[3]), math.Max(c[1], c[3])

	f := form.Field{
		ID:       w.im.newID(),
		Type:     t,
		Page:     page,
		X:        llx,
		Y:        w.res.Pages[page-1].Height - ury,
		Width:    urx - llx,
		Height:   ury - lly,
		Label:    attrs.name,
		Required: attrs.flags&flagRequired != 0,
	}
	if err := form.Validate(f, len(w.res.Pages)); err != nil {
		w.skip(attrs.name, err.Error())
		return
	}
	w.res.Fields = append(w.res.Fields, f)
}

// page finds the page of a widget from the page Annots arrays, then from its P entry
func (w *walker) page(obj types.Object, d types.Dict) int {
	if ref, ok := obj.(types.IndirectRef); ok {
		if p, found := w.annotPages[int(ref.ObjectNumber)]; found {
			return p
		}
	}
	pObj, found := d.Find("P")
	if !found {
		return 0
	}
	ref, ok := pObj.(types.IndirectRef)
	if !ok {
		return 0
	}
	for p := 1; p <= w.ctx.PageCount; p++ {
		_, pageRef, _, err := w.ctx.PageDict(p, false)
		if err == nil && pageRef != nil && pageRef.ObjectNumber == ref.ObjectNumber {
			return p
		}
	}
	return 0
}

func (w *walker) skip(name, reason string) {
	if name == "" {
		name = "(unnamed)"
	}
	w.res.Skipped = append(w.res.Skipped, name+": "+reason)
}

// fieldType maps an AcroForm field type and flags to a template field type
func fieldType(attrs inherited) (form.FieldType, bool) {
	switch attrs.ft {
	case "Tx":
		if attrs.flags&flagMultiline != 0 {
			return form.FieldTypeMultiline, true
		}
		return form.FieldTypeText, true
	case "Btn":
		if attrs.flags&(flagRadio|flagPushbutton) != 0 {
			return "", false
		}
		return form.FieldTypeCheckbox, true
	case "Sig":
		return form.FieldTypeSignature, true
	case "Ch":
		return form.FieldTypeText, true
	}
	return "", false
}
