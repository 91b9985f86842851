package overlay

import (
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

const textPadding = 2

var (
	editFill     = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0x26}
	editBorder   = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	selectBorder = color.NRGBA{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff}
	inputFill    = color.NRGBA{R: 0xfe, G: 0xf9, B: 0xc3, A: 0x99}
	inputBorder  = color.NRGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
	required     = color.NRGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}
	valueInk     = color.NRGBA{R: 0x1e, G: 0x3a, B: 0x8a, A: 0xff}
	captionInk   = color.NRGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
)

// Rasterize draws elements onto a transparent width x height layer using the default
// font bank. Coordinates are rounded to whole pixels here and nowhere else.
func Rasterize(elements []Element, width, height int) *image.RGBA {
	return DefaultFontBank().Rasterize(elements, width, height)
}

// Rasterize draws elements onto a transparent layer with faces from b
func (b *FontBank) Rasterize(elements []Element, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	b.Lock()
	defer b.Unlock()
	for _, el := range elements {
		b.drawElement(dst, el)
	}
	return dst
}

// Composite draws layer over page into a new image the size of page
func Composite(page image.Image, layer image.Image) *image.RGBA {
	bounds := page.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), page, bounds.Min, draw.Src)
	if layer != nil {
		draw.Draw(out, out.Bounds(), layer, layer.Bounds().Min, draw.Over)
	}
	return out
}

// PixelRect rounds a view-space rect to the pixel grid
func PixelRect(r form.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)),
		int(math.Round(r.Y+r.Height)),
	)
}

func (b *FontBank) drawElement(dst *image.RGBA, el Element) {
	box := PixelRect(el.Box)
	if box.Empty() {
		return
	}

	switch el.Mode {
	case ModeEdit:
		fillRect(dst, box, editFill)
		if el.Selected {
			strokeRect(dst, box, 2, selectBorder)
		} else {
			strokeRect(dst, box, 1, editBorder)
		}
	case ModeFill:
		fillRect(dst, box, inputFill)
		strokeRect(dst, box, 1, inputBorder)
	}

	if el.Mark != nil {
		mark := PixelRect(*el.Mark)
		strokeRect(dst, mark, 1, inputBorder)
		if el.Checked {
			drawCross(dst, mark.Inset(mark.Dx()/5), valueInk)
		}
		return
	}

	text, ink := el.Text, valueInk
	if text == "" {
		text, ink = el.Placeholder, captionInk
	}
	if el.Required && el.Mode == ModeFill && el.Text == "" {
		fillRect(dst, image.Rect(box.Max.X-4, box.Min.Y, box.Max.X, box.Min.Y+4), required)
	}
	if text != "" {
		b.drawText(dst, box, el, text, ink)
	}
}

func (b *FontBank) drawText(dst *image.RGBA, box image.Rectangle, el Element, text string, ink color.Color) {
	clip, ok := dst.SubImage(box).(*image.RGBA)
	if !ok {
		return
	}
	face := b.Face(el.FontSize)
	m := face.Metrics()
	d := &font.Drawer{Dst: clip, Src: image.NewUniform(ink), Face: face}

	x := fixed.I(box.Min.X + textPadding)
	if el.Anchor == AnchorTop {
		y := box.Min.Y + textPadding + m.Ascent.Ceil()
		for _, line := range wrapLines(face, text, box.Dx()-2*textPadding) {
			if y-m.Ascent.Ceil() > box.Max.Y {
				break
			}
			d.Dot = fixed.Point26_6{X: x, Y: fixed.I(y)}
			d.DrawString(line)
			y += m.Height.Ceil()
		}
		return
	}

	mid := box.Min.Y + box.Dy()/2
	y := mid + (m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Dot = fixed.Point26_6{X: x, Y: fixed.I(y)}
	d.DrawString(strings.ReplaceAll(text, "\n", " "))
}

// wrapLines breaks text at spaces so each line fits within width pixels.
// Words wider than the line are kept whole and clipped when drawn.
func wrapLines(face font.Face, text string, width int) []string {
	var lines []string
	limit := fixed.I(width)
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if font.MeasureString(face, candidate) > limit {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

func fillRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func strokeRect(dst *image.RGBA, r image.Rectangle, w int, c color.Color) {
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), c)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), c)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y+w, r.Min.X+w, r.Max.Y-w), c)
	fillRect(dst, image.Rect(r.Max.X-w, r.Min.Y+w, r.Max.X, r.Max.Y-w), c)
}

// drawCross draws both diagonals of r
func drawCross(dst *image.RGBA, r image.Rectangle, c color.Color) {
	n := r.Dx()
	if r.Dy() < n {
		n = r.Dy()
	}
	for i := 0; i < n; i++ {
		for _, p := range []image.Point{
			{X: r.Min.X + i, Y: r.Min.Y + i},
			{X: r.Min.X + i, Y: r.Min.Y + n - 1 - i},
		} {
			if p.In(dst.Bounds()) {
				dst.Set(p.X, p.Y, c)
			}
		}
	}
}
