package export

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/log"
)

// ErrExportFailed matches every *ExportError
var ErrExportFailed = errors.New("export failed")

// ExportError is the single error returned by a failed export. No partial output
// accompanies it.
type ExportError struct {
	Stage   string `json:"stage"`
	FieldID string `json:"fieldId,omitempty"`
	Err     error  `json:"-"`
}

func (e *ExportError) Error() string {
	if e.FieldID != "" {
		return fmt.Sprintf("export failed at %s (field %s): %v", e.Stage, e.FieldID, e.Err)
	}
	return fmt.Sprintf("export failed at %s: %v", e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Is makes every ExportError match ErrExportFailed
func (e *ExportError) Is(target error) bool { return target == ErrExportFailed }

func fail(stage, fieldID string, err error) error {
	return &ExportError{Stage: stage, FieldID: fieldID, Err: err}
}

// Engine stamps values onto PDFs with pdfcpu, drawing text straight into each page's
// content stream
type Engine struct {
	conf *model.Configuration
}

// New creates an export engine with relaxed validation of the source document
func New() *Engine {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Engine{conf: conf}
}

// PageSizes reads the MediaBox of every page, honouring inherited attributes
func (e *Engine) PageSizes(pdfBytes []byte) ([]form.Size, error) {
	ctx, err := api.ReadContext(bytes.NewReader(pdfBytes), e.conf)
	if err != nil {
		return nil, errors.Wrap(err, "read pdf context")
	}
	return pageSizes(ctx)
}

func pageSizes(ctx *model.Context) ([]form.Size, error) {
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, errors.Wrap(err, "ensure page count")
	}
	sizes := make([]form.Size, 0, ctx.PageCount)
	for p := 1; p <= ctx.PageCount; p++ {
		_, _, inh, err := ctx.PageDict(p, false)
		if err != nil {
			return nil, errors.Wrapf(err, "page %d", p)
		}
		if inh == nil || inh.MediaBox == nil {
			return nil, errors.Errorf("page %d has no media box", p)
		}
		mb := inh.MediaBox
		sizes = append(sizes, form.Size{
			Width:  math.Abs(mb.UR.X - mb.LL.X),
			Height: math.Abs(mb.UR.Y - mb.LL.Y),
		})
	}
	return sizes, nil
}

// Export returns a copy of pdfBytes with values burned in at the field positions.
// Any failure aborts the whole export with an *ExportError.
func (e *Engine) Export(ctx context.Context, pdfBytes []byte, fields []form.Field, values form.Values) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fail("draw", "", errors.Errorf("panic: %v", r))
		}
	}()

	if len(pdfBytes) == 0 {
		return nil, fail("load", "", errors.New("empty document"))
	}
	doc, err := api.ReadValidateAndOptimize(bytes.NewReader(pdfBytes), e.conf)
	if err != nil {
		return nil, fail("load", "", err)
	}
	pages, err := pageSizes(doc)
	if err != nil {
		return nil, fail("load", "", err)
	}

	stamps := Plan(fields, values, pages)
	if len(stamps) == 0 {
		return append([]byte(nil), pdfBytes...), nil
	}

	byPage := make(map[int][]Stamp)
	var order []int
	for _, s := range stamps {
		if _, ok := byPage[s.Page]; !ok {
			order = append(order, s.Page)
		}
		byPage[s.Page] = append(byPage[s.Page], s)
	}

	fontRef, err := doc.IndRefForNewObject(types.Dict(map[string]types.Object{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name(DefaultFont),
		"Encoding": types.Name("WinAnsiEncoding"),
	}))
	if err != nil {
		return nil, fail("draw", "", err)
	}

	for _, page := range order {
		if err := ctx.Err(); err != nil {
			return nil, fail("draw", byPage[page][0].FieldID, err)
		}
		if err := stampPage(doc, page, *fontRef, byPage[page]); err != nil {
			return nil, fail("draw", byPage[page][0].FieldID, err)
		}
	}

	var buf bytes.Buffer
	if err := api.WriteContext(doc, &buf); err != nil {
		return nil, fail("save", "", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fail("save", "", err)
	}

	log.WithFields(log.Fields{"stamps": len(stamps), "pages": len(byPage), "bytes": buf.Len()}).Debug("export complete")
	return buf.Bytes(), nil
}

// stampPage registers the stamp font on a page and wraps its content so the stamps
// draw in an untransformed graphics state on top of it
func stampPage(doc *model.Context, page int, fontRef types.IndirectRef, stamps []Stamp) error {
	d, _, inh, err := doc.PageDict(page, false)
	if err != nil {
		return errors.Wrapf(err, "page %d", page)
	}

	res := inh.Resources
	if res == nil {
		res = types.NewDict()
	}
	fontName, err := addFont(doc, res, fontRef)
	if err != nil {
		return err
	}
	d.Update("Resources", res)

	var existing types.Array
	if obj, found := d.Find("Contents"); found && obj != nil {
		existing = types.Array{obj}
		if ir, ok := obj.(types.IndirectRef); ok {
			if deref, err := doc.Dereference(ir); err == nil {
				if arr, ok := deref.(types.Array); ok {
					existing = arr
				}
			}
		} else if arr, ok := obj.(types.Array); ok {
			existing = arr
		}
	}

	content := stampContent(fontName, stamps)
	if len(existing) == 0 {
		ref, err := newContentStream(doc, content)
		if err != nil {
			return err
		}
		d.Update("Contents", *ref)
		return nil
	}

	open, err := newContentStream(doc, []byte("q\n"))
	if err != nil {
		return err
	}
	closing, err := newContentStream(doc, append([]byte("Q\n"), content...))
	if err != nil {
		return err
	}
	contents := make(types.Array, 0, len(existing)+2)
	contents = append(contents, *open)
	contents = append(contents, existing...)
	contents = append(contents, *closing)
	d.Update("Contents", contents)
	return nil
}

// addFont adds fontRef to the font resources under an unused name
func addFont(doc *model.Context, res types.Dict, fontRef types.IndirectRef) (string, error) {
	obj, found := res.Find("Font")
	if !found {
		name := "LF0"
		res.Insert("Font", types.Dict(map[string]types.Object{name: fontRef}))
		return name, nil
	}
	fonts, err := doc.DereferenceDict(obj)
	if err != nil {
		return "", errors.Wrap(err, "font resources")
	}
	if fonts == nil {
		fonts = types.NewDict()
		res.Update("Font", fonts)
	}
	name := ""
	for i := 0; ; i++ {
		name = "LF" + strconv.Itoa(i)
		if _, taken := fonts.Find(name); !taken {
			break
		}
	}
	fonts.Insert(name, fontRef)
	return name, nil
}

func newContentStream(doc *model.Context, content []byte) (*types.IndirectRef, error) {
	sd, err := doc.NewStreamDictForBuf(content)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, errors.Wrap(err, "encode content stream")
	}
	return doc.IndRefForNewObject(*sd)
}

// stampContent draws every stamp with its baseline origin at (X, Y) at its exact size
func stampContent(fontName string, stamps []Stamp) []byte {
	var b bytes.Buffer
	for _, s := range stamps {
		fmt.Fprintf(&b, "BT /%s %s Tf %s %s Td (%s) Tj ET\n",
			fontName, num(s.FontSize), num(s.X), num(s.Y), encodeText(s.Text))
	}
	return b.Bytes()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var winAnsiExtra = map[rune]byte{
	'€': 0x80, '‚': 0x82, 'ƒ': 0x83, '„': 0x84, '…': 0x85, '†': 0x86, '‡': 0x87,
	'ˆ': 0x88, '‰': 0x89, 'Š': 0x8A, '‹': 0x8B, 'Œ': 0x8C, 'Ž': 0x8E, '‘': 0x91,
	'’': 0x92, '“': 0x93, '”': 0x94, '•': 0x95, '–': 0x96, '—': 0x97, '˜': 0x98,
	'™': 0x99, 'š': 0x9A, '›': 0x9B, 'œ': 0x9C, 'ž': 0x9E, 'Ÿ': 0x9F,
}

// encodeText maps s to WinAnsi bytes escaped for a literal string. Runes outside the
// encoding become '?'.
func encodeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		var c byte
		switch {
		case r >= 0x20 && r < 0x7F, r >= 0xA0 && r <= 0xFF:
			c = byte(r)
		default:
			ext, ok := winAnsiExtra[r]
			if !ok {
				ext = '?'
			}
			c = ext
		}
		if c == '(' || c == ')' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}
