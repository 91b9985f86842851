package pdf

import (
	"context"
	"image"
	"image/color"
	"math"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/overlay"
)

// LetterSize is used for pages without a readable MediaBox
var LetterSize = form.Size{Width: 612, Height: 792}

// Geometry is the page count and per-page size of a document, in points
type Geometry struct {
	PageCount int         `json:"pageCount"`
	Pages     []form.Size `json:"pages"`
}

// PageSize returns the size of a 1-based page
func (g Geometry) PageSize(page int) (form.Size, bool) {
	if page < 1 || page > len(g.Pages) {
		return form.Size{}, false
	}
	return g.Pages[page-1], true
}

// FirstPage returns the size of page 1, the template's informational dimensions
func (g Geometry) FirstPage() form.Size {
	if len(g.Pages) == 0 {
		return LetterSize
	}
	return g.Pages[0]
}

// Surface is one rendered page
type Surface struct {
	Page  int
	Scale float64
	// Size is the page size at scale 1
	Size  form.Size
	Image *image.RGBA
}

// Bridge measures and renders PDF pages
type Bridge interface {
	Geometry(doc *Document) (Geometry, error)
	RenderPage(ctx context.Context, doc *Document, page int, scale float64) (*Surface, error)
}

// TextBridge renders the text runs of a page onto a white surface. It reads page
// structure with ledongthuc/pdf and draws glyphs with Go Regular, which is enough to
// place fields against the printed captions of a form.
type TextBridge struct {
	fonts *overlay.FontBank
}

// NewBridge creates a TextBridge using the shared font bank
func NewBridge() *TextBridge {
	return &TextBridge{fonts: overlay.DefaultFontBank()}
}

// Geometry reads the page count and page sizes without rendering. The result is
// computed once per document.
func (b *TextBridge) Geometry(doc *Document) (Geometry, error) {
	doc.once.Do(func() {
		doc.geometry, doc.err = readGeometry(doc)
	})
	return doc.geometry, doc.err
}

func readGeometry(doc *Document) (g Geometry, err error) {
	defer recoverInto(&err, doc.URL, 0)

	r, err := doc.reader()
	if err != nil {
		return Geometry{}, renderError(doc.URL, 0, errors.Wrap(ErrInvalidPDF, err.Error()))
	}
	n := r.NumPage()
	if n < 1 {
		return Geometry{}, renderError(doc.URL, 0, errors.Wrap(ErrInvalidPDF, "document has no pages"))
	}
	g = Geometry{PageCount: n, Pages: make([]form.Size, 0, n)}
	for i := 1; i <= n; i++ {
		g.Pages = append(g.Pages, pageSize(r.Page(i)))
	}
	return g, nil
}

// inherited looks key up on the page and then on its ancestors in the page tree
func inherited(p pdf.Page, key string) pdf.Value {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		if r := v.Key(key); !r.IsNull() {
			return r
		}
	}
	return pdf.Value{}
}

func pageSize(p pdf.Page) form.Size {
	box := inherited(p, "MediaBox")
	if box.Len() != 4 {
		return LetterSize
	}
	w := math.Abs(box.Index(2).Float64() - box.Index(0).Float64())
	h := math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
	if w == 0 || h == 0 {
		return LetterSize
	}
	if rot := inherited(p, "Rotate").Int64(); rot%180 != 0 {
		w, h = h, w
	}
	return form.Size{Width: w, Height: h}
}

// RenderPage draws page of doc at scale s. Failures are *RenderError values.
func (b *TextBridge) RenderPage(ctx context.Context, doc *Document, page int, s float64) (surf *Surface, err error) {
	geom, err := b.Geometry(doc)
	if err != nil {
		return nil, err
	}
	size, ok := geom.PageSize(page)
	if !ok {
		return nil, renderError(doc.URL, page, errors.Wrapf(ErrPageOutOfRange, "document has %d pages", geom.PageCount))
	}
	if !(s > 0) {
		return nil, renderError(doc.URL, page, errors.Errorf("invalid scale %g", s))
	}
	defer recoverInto(&err, doc.URL, page)

	r, err := doc.reader()
	if err != nil {
		return nil, renderError(doc.URL, page, errors.Wrap(ErrInvalidPDF, err.Error()))
	}
	content := r.Page(page).Content()

	width := int(math.Ceil(form.ToView(size.Width, s)))
	height := int(math.Ceil(form.ToView(size.Height, s)))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	for _, rect := range content.Rect {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		strokeBox(img, rect, size.Height, s)
	}

	b.fonts.Lock()
	defer b.fonts.Unlock()
	d := &font.Drawer{Dst: img, Src: image.Black}
	for i, t := range content.Text {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if t.S == "" || t.FontSize <= 0 {
			continue
		}
		d.Face = b.fonts.Face(form.ToView(t.FontSize, s))
		// PDF text space is bottom-left; surfaces are top-left
		d.Dot = fixed.Point26_6{
			X: fixed.Int26_6(math.Round(form.ToView(t.X, s) * 64)),
			Y: fixed.Int26_6(math.Round(form.ToView(size.Height-t.Y, s) * 64)),
		}
		d.DrawString(t.S)
	}

	return &Surface{Page: page, Scale: s, Size: size, Image: img}, nil
}

var ruleColor = color.Gray{Y: 0x99}

func strokeBox(img *image.RGBA, r pdf.Rect, pageHeight, s float64) {
	x0 := int(math.Round(form.ToView(r.Min.X, s)))
	x1 := int(math.Round(form.ToView(r.Max.X, s)))
	y0 := int(math.Round(form.ToView(pageHeight-r.Max.Y, s)))
	y1 := int(math.Round(form.ToView(pageHeight-r.Min.Y, s)))
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	src := image.NewUniform(ruleColor)
	for _, edge := range []image.Rectangle{
		image.Rect(x0, y0, x1+1, y0+1),
		image.Rect(x0, y1, x1+1, y1+1),
		image.Rect(x0, y0, x0+1, y1+1),
		image.Rect(x1, y0, x1+1, y1+1),
	} {
		draw.Draw(img, edge.Intersect(img.Bounds()), src, image.Point{}, draw.Over)
	}
}

// BlankSurface returns a white surface for a page whose rendering failed, so the
// overlay can still be composed over it
func BlankSurface(page int, size form.Size, s float64) *Surface {
	width := int(math.Ceil(form.ToView(size.Width, s)))
	height := int(math.Ceil(form.ToView(size.Height, s)))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return &Surface{Page: page, Scale: s, Size: size, Image: img}
}
