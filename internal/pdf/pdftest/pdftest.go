// Package pdftest builds small, well-formed PDF documents for tests.
package pdftest

import (
	"fmt"
	"strings"
)

// Page describes one generated page
type Page struct {
	Width, Height float64
	// Text is drawn in Helvetica 12 at (72, Height-72)
	Text   string
	Rotate int
}

// Widget is an AcroForm field with a single widget annotation
type Widget struct {
	Name string
	// FT is the field type: Tx, Btn, Ch or Sig
	FT    string
	Page  int
	Rect  [4]float64 // llx lly urx ury
	Multi bool       // multiline text
}

// Options controls Build
type Options struct {
	Pages []Page
	// InheritedBox moves the MediaBox of the first page size onto the page tree node;
	// pages whose Width is zero then inherit it
	InheritedBox bool
	Widgets      []Widget
}

// Letter returns an n page US Letter document
func Letter(n int) []byte {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Width: 612, Height: 792, Text: fmt.Sprintf("Page %d", i+1)}
	}
	return Build(Options{Pages: pages})
}

type writer struct {
	b       strings.Builder
	offsets map[int]int
}

func (w *writer) obj(num int, body string) {
	w.offsets[num] = w.b.Len()
	fmt.Fprintf(&w.b, "%d 0 obj\n%s\nendobj\n", num, body)
}

// Build assembles a document with exact xref offsets
func Build(opts Options) []byte {
	w := &writer{offsets: make(map[int]int)}
	w.b.WriteString("%PDF-1.4\n")

	const catalog, pagesNode = 1, 2
	pageObj := func(i int) int { return 3 + 2*i }
	contentObj := func(i int) int { return 4 + 2*i }
	fontObj := 3 + 2*len(opts.Pages)
	widgetObj := func(i int) int { return fontObj + 1 + i }
	total := fontObj + 1 + len(opts.Widgets)

	var cat strings.Builder
	fmt.Fprintf(&cat, "<< /Type /Catalog /Pages %d 0 R", pagesNode)
	if len(opts.Widgets) > 0 {
		refs := make([]string, len(opts.Widgets))
		for i := range opts.Widgets {
			refs[i] = fmt.Sprintf("%d 0 R", widgetObj(i))
		}
		fmt.Fprintf(&cat, " /AcroForm << /Fields [%s] /NeedAppearances true >>", strings.Join(refs, " "))
	}
	cat.WriteString(" >>")
	w.obj(catalog, cat.String())

	kids := make([]string, len(opts.Pages))
	for i := range opts.Pages {
		kids[i] = fmt.Sprintf("%d 0 R", pageObj(i))
	}
	node := fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d", strings.Join(kids, " "), len(opts.Pages))
	if opts.InheritedBox && len(opts.Pages) > 0 {
		node += fmt.Sprintf(" /MediaBox [0 0 %g %g]", opts.Pages[0].Width, opts.Pages[0].Height)
	}
	w.obj(pagesNode, node+" >>")

	for i, p := range opts.Pages {
		var page strings.Builder
		fmt.Fprintf(&page, "<< /Type /Page /Parent %d 0 R", pagesNode)
		if !(opts.InheritedBox && (i == 0 || p.Width == 0)) {
			fmt.Fprintf(&page, " /MediaBox [0 0 %g %g]", p.Width, p.Height)
		}
		if p.Rotate != 0 {
			fmt.Fprintf(&page, " /Rotate %d", p.Rotate)
		}
		fmt.Fprintf(&page, " /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >>", contentObj(i), fontObj)

		var annots []string
		for j, wd := range opts.Widgets {
			if wd.Page == i+1 {
				annots = append(annots, fmt.Sprintf("%d 0 R", widgetObj(j)))
			}
		}
		if len(annots) > 0 {
			fmt.Fprintf(&page, " /Annots [%s]", strings.Join(annots, " "))
		}
		page.WriteString(" >>")
		w.obj(pageObj(i), page.String())

		height := p.Height
		if height == 0 && len(opts.Pages) > 0 {
			height = opts.Pages[0].Height
		}
		content := ""
		if p.Text != "" {
			content = fmt.Sprintf("BT\n/F1 12 Tf\n72 %g Td\n(%s) Tj\nET\n", height-72, escape(p.Text))
		}
		w.obj(contentObj(i), fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(content), content))
	}

	w.obj(fontObj, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, wd := range opts.Widgets {
		flags := ""
		if wd.Multi {
			flags = " /Ff 4096"
		}
		w.obj(widgetObj(i), fmt.Sprintf(
			"<< /Type /Annot /Subtype /Widget /FT /%s /T (%s) /Rect [%g %g %g %g] /P %d 0 R /F 4%s >>",
			wd.FT, escape(wd.Name), wd.Rect[0], wd.Rect[1], wd.Rect[2], wd.Rect[3], pageObj(wd.Page-1), flags))
	}

	xref := w.b.Len()
	fmt.Fprintf(&w.b, "xref\n0 %d\n0000000000 65535 f \n", total)
	for n := 1; n < total; n++ {
		fmt.Fprintf(&w.b, "%010d 00000 n \n", w.offsets[n])
	}
	fmt.Fprintf(&w.b, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n", total, catalog, xref)
	w.b.WriteString("%%EOF\n")
	return []byte(w.b.String())
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
